package server

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"regexp"
	"strings"
	"testing"
	"time"

	gossh "golang.org/x/crypto/ssh"

	"isotile/internal/assets"
	"isotile/internal/editor"
	"isotile/internal/maps"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []editor.Input
	}{
		{"wasd", []byte("wasd"), []editor.Input{
			{Action: editor.ActionUp}, {Action: editor.ActionLeft},
			{Action: editor.ActionDown}, {Action: editor.ActionRight},
		}},
		{"arrows", []byte("\x1b[A\x1b[D"), []editor.Input{
			{Action: editor.ActionUp}, {Action: editor.ActionLeft},
		}},
		{"unknown escape", []byte("\x1b[Zw"), []editor.Input{{Action: editor.ActionUp}}},
		{"layer digits", []byte("07"), []editor.Input{
			{Action: editor.ActionToggleLayer, Layer: 0},
			{Action: editor.ActionToggleLayer, Layer: 7},
		}},
		{"paint keys", []byte("][ x"), []editor.Input{
			{Action: editor.ActionBrushNext}, {Action: editor.ActionBrushPrev},
			{Action: editor.ActionPaint}, {Action: editor.ActionErase},
		}},
		{"ctrl-c", []byte{3}, []editor.Input{{Action: editor.ActionQuit}}},
		{"ignored", []byte("zé"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseInput(tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("parseInput(%q) = %v, want %v", tt.data, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("input %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

func TestSessionRendersAndQuits(t *testing.T) {
	m := maps.DefaultMap()
	m.Name = "Meadow"
	s := NewSSHServer(Config{Map: m, Source: assets.NewSynthetic(), PageSize: 1024, Rate: 50})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.srv.Serve(l)
	t.Cleanup(func() { s.srv.Close() })

	client, err := gossh.Dial("tcp", l.Addr().String(), &gossh.ClientConfig{
		User:            "tester",
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	sess, err := client.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	if err := sess.RequestPty("xterm-256color", 30, 100, gossh.TerminalModes{}); err != nil {
		t.Fatal(err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Shell(); err != nil {
		t.Fatal(err)
	}

	found := make(chan bool, 1)
	go func() {
		r := bufio.NewReader(stdout)
		var seen bytes.Buffer
		buf := make([]byte, 4096)
		for {
			n, err := r.Read(buf)
			seen.Write(buf[:n])
			if strings.Contains(ansiSeq.ReplaceAllString(seen.String(), ""), "Meadow") {
				found <- true
				io.Copy(io.Discard, r)
				return
			}
			if err != nil {
				found <- false
				return
			}
		}
	}()

	select {
	case ok := <-found:
		if !ok {
			t.Fatal("session closed before drawing the HUD")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no HUD within 10s")
	}
	if n := s.Sessions(); n != 1 {
		t.Errorf("Sessions = %d, want 1", n)
	}

	stdin.Write([]byte("q"))
	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("session did not end after q")
	}
}
