package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":2222" || c.Atlas.PageSize != 2048 || !c.Atlas.Evicting {
		t.Errorf("defaults = %+v", c)
	}
	if c.Log.Format != "text" {
		t.Errorf("log format = %q, want text", c.Log.Format)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	file := writeFile(t, "isotile.yaml", `
addr: ":2300"
atlas:
  page_size: 512
  evicting: false
log:
  level: debug
`)
	t.Setenv("ISOTILE_ATLAS_PAGE_SIZE", "1024")
	t.Setenv("ISOTILE_MAP_PATH", "maps/harbour.json")

	c, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"addr from file", c.Addr, ":2300"},
		{"env beats file", c.Atlas.PageSize, 1024},
		{"env only", c.MapPath, "maps/harbour.json"},
		{"file bool", c.Atlas.Evicting, false},
		{"nested file", c.Log.Level, "debug"},
		{"default kept", c.Atlas.TargetFPS, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "ISOTILE_ATLAS_MAX_LOADS"
	if _, ok := os.LookupEnv(key); ok {
		t.Skipf("%s already set", key)
	}
	t.Cleanup(func() { os.Unsetenv(key) })

	env := writeFile(t, ".env", key+"=3\n")
	c, err := Load("", env, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Atlas.MaxLoads != 3 {
		t.Errorf("max loads = %d, want 3", c.Atlas.MaxLoads)
	}
}

func TestValidate(t *testing.T) {
	file := writeFile(t, "bad.yaml", `
atlas:
  page_size: 16
  target_fps: 0
log:
  format: xml
`)
	_, err := Load(file)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	for _, want := range []string{"page_size", "target_fps", "xml"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
