package render

import (
	"context"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"isotile/internal/atlas"
	"isotile/internal/layers"
	"isotile/internal/maps"
	"isotile/internal/scene"
)

// flatSprites serves solid 64x32 sprites of one colour.
type flatSprites struct {
	c color.RGBA
}

func (f flatSprites) Info(k atlas.Key) (atlas.Info, bool) {
	return atlas.Info{Width: 64, Height: 32, Frames: 1}, true
}

func (f flatSprites) LoadResource(_ context.Context, k atlas.Key) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = f.c.R, f.c.G, f.c.B, f.c.A
	}
	return img, nil
}

// buildLoadedScene returns a scene over m with every sprite loaded.
func buildLoadedScene(t *testing.T, m *maps.Map, src flatSprites, cam scene.Camera) *scene.Scene {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cache := atlas.NewCache(src, atlas.WithPageSize(256, 256), atlas.WithLogger(logger))
	s, err := scene.New(cache, m, scene.AllLayers{}, scene.WithLogger(logger), scene.WithCamera(cam))
	if err != nil {
		t.Fatal(err)
	}
	sched := atlas.NewScheduler(cache, src, atlas.WithSchedulerLogger(logger))
	t.Cleanup(sched.Close)
	sched.Tick()
	sched.Wait()
	sched.Tick()
	if err := s.Update(time.Unix(0, 0), 0); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRenderPaintsGraphics(t *testing.T) {
	m := maps.New("t", 1, 1)
	m.Tile(0, 0).Gfx[layers.Ground] = 1
	red := flatSprites{c: color.RGBA{R: 200, A: 255}}

	// 8 columns x 4 rows of map at scale 8 cover 64x64 world pixels.
	vp := NewViewport(32, 32, 8, 4+HUDRows, HUDRows, 8)
	s := buildLoadedScene(t, m, red, vp.Camera())

	e := NewEngine(8, 4+HUDRows)
	out := e.Render(Frame{Graphics: s.RenderList(), View: vp}, 8, 4+HUDRows)
	if !strings.Contains(out, string(HalfBlock)) {
		t.Fatal("first frame should draw half-block cells")
	}

	// The sprite covers world y 0-32, the top two terminal rows.
	if c := e.current[0][0]; c.FgR != 200 || c.BgR != 200 {
		t.Errorf("top-left cell = %+v, want red on red", c)
	}
	if c := e.current[3][0]; c.FgR != background[0] || c.BgR != background[0] {
		t.Errorf("bottom cell = %+v, want background", c)
	}
}

func TestRenderEmitsOnlyChanges(t *testing.T) {
	m := maps.New("t", 1, 1)
	m.Tile(0, 0).Gfx[layers.Ground] = 1
	vp := NewViewport(32, 32, 8, 4+HUDRows, HUDRows, 8)
	s := buildLoadedScene(t, m, flatSprites{c: color.RGBA{G: 200, A: 255}}, vp.Camera())
	f := Frame{Graphics: s.RenderList(), View: vp, HUD: HUD{MapName: "t"}}

	e := NewEngine(8, 4+HUDRows)
	e.Render(f, 8, 4+HUDRows)
	if out := e.Render(f, 8, 4+HUDRows); out != "" {
		t.Errorf("unchanged frame emitted %d bytes", len(out))
	}

	f.Graphics = nil
	if out := e.Render(f, 8, 4+HUDRows); out == "" {
		t.Error("clearing the map should emit changes")
	}

	// A resize redraws everything.
	if out := e.Render(f, 10, 5+HUDRows); !strings.Contains(out, MoveTo(1, 1)) {
		t.Error("resize should redraw from the top-left cell")
	}
}

func TestCellWriterSkipsRepeats(t *testing.T) {
	type placed struct {
		row, col int
		c        Cell
	}
	red := Cell{Ch: 'a', FgR: 200, BgR: 10}
	blue := Cell{Ch: 'b', FgB: 200, BgB: 10}

	tests := []struct {
		name  string
		cells []placed
		moves int
		sgrs  int
	}{
		{"one run", []placed{{0, 0, red}, {0, 1, red}, {0, 2, red}}, 1, 1},
		{"colour change", []placed{{0, 0, red}, {0, 1, blue}, {0, 2, red}}, 1, 3},
		{"gap keeps colour", []placed{{0, 0, red}, {0, 4, red}, {2, 0, red}}, 3, 1},
		{"bold differs", []placed{{1, 1, red}, {1, 2, Cell{Ch: 'a', FgR: 200, BgR: 10, Bold: true}}}, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newCellWriter()
			for _, c := range tt.cells {
				w.put(c.row, c.col, c.c)
			}
			out := w.String()
			if got := strings.Count(out, "H"); got != tt.moves {
				t.Errorf("cursor moves = %d, want %d in %q", got, tt.moves, out)
			}
			if got := strings.Count(out, ";38;2;"); got != tt.sgrs {
				t.Errorf("colour sequences = %d, want %d in %q", got, tt.sgrs, out)
			}
			if !strings.HasSuffix(out, "\x1b[0m") {
				t.Errorf("output %q does not end with a reset", out)
			}
		})
	}

	if out := newCellWriter().String(); out != "" {
		t.Errorf("empty writer produced %q", out)
	}
}

func TestBlend(t *testing.T) {
	tests := []struct {
		dst, src uint8
		a        float64
		want     uint8
	}{
		{0, 200, 1, 200},
		{0, 200, 0.5, 100},
		{100, 200, 0.25, 125},
		{100, 200, 3, 200},
	}
	for _, tt := range tests {
		dst := []uint8{tt.dst, tt.dst, tt.dst, 255}
		blend(dst, []uint8{tt.src, tt.src, tt.src}, tt.a)
		if dst[0] != tt.want {
			t.Errorf("blend(%d, %d, %v) = %d, want %d", tt.dst, tt.src, tt.a, dst[0], tt.want)
		}
	}
}

func TestViewportCamera(t *testing.T) {
	vp := NewViewport(0, 100, 40, 20+HUDRows, HUDRows, 4)
	cam := vp.Camera()
	want := scene.Camera{X: -80, Y: 20, Width: 160, Height: 160}
	if cam != want {
		t.Errorf("Camera = %+v, want %+v", cam, want)
	}
	if x, y := vp.ScreenToWorld(20, 10); x != 2 || y != 104 {
		t.Errorf("ScreenToWorld(20,10) = %v,%v, want 2,104", x, y)
	}
}
