// Package viewer shows an editor in a desktop window. Atlas pages are
// mirrored into GPU images and re-uploaded whenever their pixels change.
package viewer

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"

	"isotile/internal/atlas"
	"isotile/internal/editor"
	"isotile/internal/layers"
	"isotile/internal/log"
)

const (
	minZoom = 0.25
	maxZoom = 4
)

var background = color.RGBA{10, 10, 15, 255}

var arrowKeys = map[ebiten.Key]editor.Action{
	ebiten.KeyArrowUp:    editor.ActionUp,
	ebiten.KeyArrowDown:  editor.ActionDown,
	ebiten.KeyArrowLeft:  editor.ActionLeft,
	ebiten.KeyArrowRight: editor.ActionRight,
	ebiten.KeyEscape:     editor.ActionQuit,
}

type texture struct {
	img     *ebiten.Image
	version uint64
}

// Game implements ebiten.Game over an editor.
type Game struct {
	ed       *editor.Editor
	textures map[*atlas.Page]*texture
	zoom     float64
	width    int
	height   int
	last     time.Time
	log      logrus.FieldLogger
}

// New returns a game showing ed.
func New(ed *editor.Editor) *Game {
	return &Game{
		ed:       ed,
		textures: make(map[*atlas.Page]*texture),
		zoom:     1,
		log:      log.Entry("viewer"),
	}
}

// Run opens a window and blocks until it closes.
func Run(ed *editor.Editor, title string, width, height, tps int) error {
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(tps)
	return ebiten.RunGame(New(ed))
}

func (g *Game) poll() []editor.Input {
	var inputs []editor.Input
	for _, r := range ebiten.AppendInputChars(nil) {
		if in := editor.Key(r); in.Action != editor.ActionNone {
			inputs = append(inputs, in)
		}
	}
	for k, a := range arrowKeys {
		if inpututil.IsKeyJustPressed(k) {
			inputs = append(inputs, editor.Input{Action: a})
		}
	}
	return inputs
}

func (g *Game) Update() error {
	for _, in := range g.poll() {
		quit, err := g.ed.Apply(in)
		if err != nil {
			g.log.WithError(err).Warn("edit failed")
		}
		if quit {
			return ebiten.Termination
		}
	}
	if _, dy := ebiten.Wheel(); dy != 0 {
		g.zoom = min(maxZoom, max(minZoom, g.zoom*(1+dy/10)))
	}

	now := time.Now()
	var delta time.Duration
	if !g.last.IsZero() {
		delta = now.Sub(g.last)
	}
	g.last = now

	g.ed.SetViewSize(float64(g.width)/g.zoom, float64(g.height)/g.zoom)
	_, err := g.ed.Tick(now, delta)
	return err
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	sc := g.ed.Scene()
	cam := g.ed.Camera()
	frame := sc.Frame()
	for _, tg := range sc.RenderList() {
		src, r := tg.Source(frame)
		if src == nil || !tg.Entry.Loaded() {
			continue
		}
		tex := g.texture(tg.Entry.Page())

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(tg.X)-cam.X, float64(tg.Y)-cam.Y)
		op.GeoM.Scale(g.zoom, g.zoom)
		op.ColorScale.ScaleAlpha(float32(min(tg.Alpha, 1)))
		screen.DrawImage(tex.SubImage(r).(*ebiten.Image), op)
	}

	ebitenutil.DebugPrint(screen, g.status())
}

// texture returns the GPU copy of p, uploading its pixels if they changed
// since the last upload.
func (g *Game) texture(p *atlas.Page) *ebiten.Image {
	t, ok := g.textures[p]
	if !ok {
		b := p.Image().Bounds()
		t = &texture{img: ebiten.NewImage(b.Dx(), b.Dy())}
		g.textures[p] = t
		g.log.Debugf("created texture for atlas page %d", p.Index())
	}
	if v := p.Version(); !ok || t.version != v {
		t.img.WritePixels(p.Image().Pix)
		t.version = v
	}
	return t.img
}

func (g *Game) status() string {
	tile := "off map"
	if x, y, ok := g.ed.Cursor(); ok {
		tile = fmt.Sprintf("%d,%d", x, y)
	}
	st := g.ed.Cache().Stats()
	return fmt.Sprintf("%s  %s  %s #%d  [%s]\natlas %dp %d/%d  %.0f fps  zoom %.2f",
		g.ed.Map().Name, tile, layers.Name(g.ed.Layer()), g.ed.Brush(), g.ed.VisibleMarks(),
		st.Pages, st.Loaded, st.Entries, ebiten.ActualFPS(), g.zoom)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.width, g.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}
