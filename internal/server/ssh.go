package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/gliderlabs/ssh"
	"github.com/sirupsen/logrus"

	"isotile/internal/editor"
	"isotile/internal/frame"
	"isotile/internal/layers"
	"isotile/internal/log"
	"isotile/internal/maps"
	"isotile/internal/render"
)

// DefaultScale is how many world pixels one terminal column covers.
const DefaultScale = 4

var errQuit = errors.New("session quit")

// Config describes what every session shows.
type Config struct {
	Addr    string
	HostKey string

	// Map is cloned for each session so edits stay private.
	Map    *maps.Map
	Source editor.Source

	PageSize int
	Evicting bool
	MaxLoads int64
	Rate     int
	Scale    int
}

// SSHServer serves one map editor per SSH session.
type SSHServer struct {
	cfg      Config
	srv      *ssh.Server
	sessions atomic.Int32
	log      logrus.FieldLogger
}

// NewSSHServer creates a new SSH server for cfg.
func NewSSHServer(cfg Config) *SSHServer {
	if cfg.Rate <= 0 {
		cfg.Rate = frame.DefaultRate
	}
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	s := &SSHServer{cfg: cfg, log: log.Entry("ssh")}
	s.srv = &ssh.Server{
		Addr:    cfg.Addr,
		Handler: s.handleSession,
	}
	return s
}

// Start begins listening for SSH connections. It blocks until the server is
// shut down.
func (s *SSHServer) Start() error {
	if err := s.srv.SetOption(ssh.HostKeyFile(s.cfg.HostKey)); err != nil {
		return fmt.Errorf("set host key: %w", err)
	}
	s.log.Infof("SSH server listening on %s", s.cfg.Addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, ssh.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting sessions and waits for open ones until ctx ends.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Sessions returns the number of connected sessions.
func (s *SSHServer) Sessions() int {
	return int(s.sessions.Load())
}

func (s *SSHServer) handleSession(sess ssh.Session) {
	ptyReq, winCh, ok := sess.Pty()
	if !ok {
		fmt.Fprintln(sess, "Error: PTY required. Use: ssh -t ...")
		return
	}

	username := sess.User()
	if username == "" {
		username = "Anonymous"
	}
	logger := s.log.WithFields(logrus.Fields{"user": username, "remote": sess.RemoteAddr().String()})

	s.sessions.Add(1)
	logger.Infof("session opened (%d online)", s.Sessions())
	defer func() {
		s.sessions.Add(-1)
		logger.Infof("session closed (%d online)", s.Sessions())
	}()

	loop := frame.NewLoop[editor.Input](s.cfg.Rate)
	ed, err := editor.New(s.cfg.Map.Clone(), s.cfg.Source, editor.Options{
		PageSize:  s.cfg.PageSize,
		Evicting:  s.cfg.Evicting,
		MaxLoads:  s.cfg.MaxLoads,
		FrameRate: loop.Clock().FPS,
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Error("could not open map")
		fmt.Fprintf(sess, "Error: could not open map: %v\n", err)
		return
	}
	defer func() {
		if err := ed.Close(); err != nil {
			logger.WithError(err).Warn("session cleanup")
		}
	}()

	// Terminal dimensions
	termW := ptyReq.Window.Width
	termH := ptyReq.Window.Height
	var termMu sync.Mutex

	engine := render.NewEngine(termW, termH)

	io.WriteString(sess, render.EnterScreen)
	defer io.WriteString(sess, render.LeaveScreen)

	ctx, cancel := context.WithCancel(sess.Context())
	defer cancel()

	// Goroutine: read input
	go func() {
		defer cancel()
		buf := make([]byte, 64)
		input := loop.Input()
		for {
			n, err := sess.Read(buf)
			if err != nil {
				return
			}
			for _, in := range parseInput(buf[:n]) {
				select {
				case input <- in:
				default:
				}
			}
		}
	}()

	// Goroutine: handle window resizes
	go func() {
		for win := range winCh {
			termMu.Lock()
			termW = win.Width
			termH = win.Height
			termMu.Unlock()
		}
	}()

	quit := false
	loop.OnInput = func(in editor.Input) {
		if quit {
			return
		}
		q, err := ed.Apply(in)
		if err != nil {
			logger.WithError(err).Warn("edit failed")
		}
		quit = q
	}
	loop.OnTick = func(now time.Time, delta time.Duration) error {
		if quit {
			return errQuit
		}
		termMu.Lock()
		w, h := termW, termH
		termMu.Unlock()

		cx, cy := ed.Center()
		vp := render.NewViewport(cx, cy, w, h, render.HUDRows, s.cfg.Scale)
		cam := vp.Camera()
		ed.SetViewSize(cam.Width, cam.Height)
		if _, err := ed.Tick(now, delta); err != nil {
			return err
		}

		out := engine.Render(s.frame(ed, vp, loop.Clock().FPS()), w, h)
		if len(out) > 0 {
			if _, err := io.WriteString(sess, out); err != nil {
				return err
			}
		}
		return nil
	}

	err = loop.Run(ctx)
	switch {
	case err == nil, errors.Is(err, errQuit), errors.Is(err, context.Canceled):
	default:
		logger.WithError(err).Warn("session ended")
	}
}

func (s *SSHServer) frame(ed *editor.Editor, vp render.Viewport, fps float64) render.Frame {
	sc := ed.Scene()
	tx, ty, onMap := ed.Cursor()
	return render.Frame{
		Graphics:  sc.RenderList(),
		AnimFrame: sc.Frame(),
		View:      vp,
		HUD: render.HUD{
			MapName:  ed.Map().Name,
			Layer:    layers.Name(ed.Layer()),
			Brush:    ed.Brush(),
			Visible:  ed.VisibleMarks(),
			TileX:    tx,
			TileY:    ty,
			OnMap:    onMap,
			Atlas:    ed.Cache().Stats(),
			FPS:      fps,
			Sessions: s.Sessions(),
		},
	}
}

// parseInput converts raw bytes into editor inputs.
// Handles arrow key escape sequences and the single-key bindings.
func parseInput(data []byte) []editor.Input {
	var inputs []editor.Input
	i := 0
	for i < len(data) {
		// Check for escape sequences (arrow keys)
		if i+2 < len(data) && data[i] == 0x1b && data[i+1] == '[' {
			var a editor.Action
			switch data[i+2] {
			case 'A':
				a = editor.ActionUp
			case 'B':
				a = editor.ActionDown
			case 'C':
				a = editor.ActionRight
			case 'D':
				a = editor.ActionLeft
			}
			if a != editor.ActionNone {
				inputs = append(inputs, editor.Input{Action: a})
			}
			i += 3
			continue
		}

		r, size := utf8.DecodeRune(data[i:])
		if in := editor.Key(r); in.Action != editor.ActionNone {
			inputs = append(inputs, in)
		}
		i += size
	}
	return inputs
}
