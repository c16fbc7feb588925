package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"isotile/internal/assets"
	"isotile/internal/atlas"
	"isotile/internal/layers"
	"isotile/internal/log"
	"isotile/internal/maps"
	"isotile/internal/scene"
)

var assetsDir = flag.String("assets", "", "sprite directory (placeholder sprites when empty)")

func main() {
	flag.Usage = printUsage
	flag.Parse()
	args := flag.Args()
	if len(args) < 2 {
		printUsage()
		os.Exit(1)
	}
	log.Setup(log.Options{Level: "warn"})

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "validate":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "Usage: maptools validate <maps-dir>")
			os.Exit(1)
		}
		os.Exit(runValidate(args[0]))
	case "stats":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "Usage: maptools stats <map-file>")
			os.Exit(1)
		}
		os.Exit(runStats(args[0]))
	case "inspect":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "Usage: maptools inspect <map-file> <x> <y>")
			os.Exit(1)
		}
		os.Exit(runInspect(args[0], args[1], args[2]))
	case "all":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "Usage: maptools all <maps-dir>")
			os.Exit(1)
		}
		os.Exit(runAll(args[0]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: maptools [-assets dir] <command> <path>

Commands:
  validate <maps-dir>           Check every map's sprites and warps
  stats    <map-file>           Show layer usage and atlas footprint
  inspect  <map-file> <x> <y>   Dump the composited graphics of one tile
  all      <maps-dir>           Run validate + stats for all maps`)
}

func openSource() assets.Provider {
	src, err := assets.OpenOrSynthetic(context.Background(), *assetsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return src
}

// compose builds a headless scene over m. Sprites are reserved in the atlas
// but never loaded.
func compose(m *maps.Map, src atlas.InfoProvider) (*scene.Scene, *atlas.Cache, error) {
	quiet := logrus.New()
	quiet.SetLevel(logrus.ErrorLevel)
	cache := atlas.NewCache(src, atlas.WithLogger(quiet))
	w, h := m.Size()
	full := scene.Camera{X: float64(-32 * h), Y: -scene.SectionSize, Width: float64(32 * (w + h)), Height: float64(16*(w+h) + scene.SectionSize)}
	s, err := scene.New(cache, m, scene.AllLayers{}, scene.WithLogger(quiet), scene.WithCamera(full))
	if err != nil {
		return nil, nil, err
	}
	return s, cache, nil
}

// --- validate ---

func runValidate(dir string) int {
	allMaps, err := maps.LoadMaps(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		return 1
	}
	src := openSource()
	defer src.Close()

	names := make([]string, 0, len(allMaps))
	for name := range allMaps {
		names = append(names, name)
	}
	slices.Sort(names)

	errors := 0
	for _, name := range names {
		m := allMaps[name]
		fmt.Printf("Validating %q...\n", name)
		before := errors

		missing := make(map[atlas.Key]int)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				t := m.Tile(x, y)
				for l, gfx := range t.Gfx {
					if gfx == 0 {
						continue
					}
					file, _ := layers.File(l)
					k := atlas.Key{File: file, Resource: layers.ResourceID(gfx)}
					if _, ok := src.Info(k); !ok {
						missing[k]++
					}
				}
				if t.Spec != nil {
					if _, ok := src.Info(atlas.Key{File: layers.SpecFile, Resource: *t.Spec}); !ok {
						fmt.Printf("  ERROR: tile (%d,%d) spec %d has no sprite\n", x, y, *t.Spec)
						errors++
					}
				}
				if w := t.Warp; w != nil && (w.X < 0 || w.Y < 0 || w.Map < 0) {
					fmt.Printf("  ERROR: warp at (%d,%d) targets map %d (%d,%d)\n", x, y, w.Map, w.X, w.Y)
					errors++
				}
			}
		}
		for k, n := range missing {
			fmt.Printf("  ERROR: %d tile(s) use %s which has no sprite\n", n, k)
			errors++
		}

		s, cache, err := compose(m, src)
		if err != nil {
			fmt.Printf("  ERROR: %v\n", err)
			errors++
			continue
		}
		if errors == before {
			fmt.Printf("  OK (%dx%d, %d graphics, %d atlas page(s))\n", m.Width, m.Height, s.Len(), len(cache.Pages()))
		}
		s.Destroy()
	}

	if errors > 0 {
		fmt.Printf("\n%d error(s) found\n", errors)
		return 1
	}
	fmt.Printf("\nAll %d maps valid\n", len(allMaps))
	return 0
}

// --- stats ---

func runStats(path string) int {
	m, err := maps.LoadMap(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	src := openSource()
	defer src.Close()

	total := m.Width * m.Height
	fmt.Printf("%s (%dx%d = %d tiles)\n\n", m.Name, m.Width, m.Height, total)

	var used [layers.GraphicCount]int
	var distinct [layers.GraphicCount]map[int]bool
	specs, warps, signs := 0, 0, 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			t := m.Tile(x, y)
			for l, gfx := range t.Gfx {
				if gfx == 0 {
					continue
				}
				used[l]++
				if distinct[l] == nil {
					distinct[l] = make(map[int]bool)
				}
				distinct[l][gfx] = true
			}
			if t.Spec != nil {
				specs++
			}
			if t.Warp != nil {
				warps++
			}
			if t.Sign != nil {
				signs++
			}
		}
	}

	for l := 0; l < layers.GraphicCount; l++ {
		pct := float64(used[l]) / float64(total) * 100
		bar := strings.Repeat("█", int(pct/2))
		fmt.Printf("  %-10s %5d (%5.1f%%) %3d ids %s\n", layers.Name(l), used[l], pct, len(distinct[l]), bar)
	}
	fmt.Printf("\nSpecs: %d  Warps: %d  Signs: %d  Items: %d  NPCs: %d\n", specs, warps, signs, len(m.Items), len(m.NPCs))

	s, cache, err := compose(m, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer s.Destroy()
	s.Update(time.Time{}, 0)
	st := cache.Stats()
	fmt.Printf("Graphics: %d  Atlas: %d page(s), %d sprite(s)  Sections: %d\n",
		s.Len(), st.Pages, st.Entries, len(s.VisibleSections()))
	return 0
}

// --- inspect ---

// graphicDump is the printable part of a tile graphic.
type graphicDump struct {
	Layer    string
	X, Y     int
	Width    int
	Height   int
	Depth    float64
	Alpha    float64
	Sprite   atlas.Key
	RefCount int
}

func runInspect(path, xs, ys string) int {
	x, errX := strconv.Atoi(xs)
	y, errY := strconv.Atoi(ys)
	if errX != nil || errY != nil {
		fmt.Fprintf(os.Stderr, "Error: bad tile coordinates %q %q\n", xs, ys)
		return 1
	}
	m, err := maps.LoadMap(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	t := m.Tile(x, y)
	if t == nil {
		fmt.Fprintf(os.Stderr, "Error: (%d,%d) is outside %dx%d\n", x, y, m.Width, m.Height)
		return 1
	}
	src := openSource()
	defer src.Close()

	s, _, err := compose(m, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer s.Destroy()

	var graphics []graphicDump
	for l := 0; l < layers.Count; l++ {
		g := s.Graphic(x, y, l)
		if g == nil {
			continue
		}
		graphics = append(graphics, graphicDump{
			Layer:    layers.Name(l),
			X:        g.X,
			Y:        g.Y,
			Width:    g.Width(),
			Height:   g.Height(),
			Depth:    g.Depth,
			Alpha:    g.Alpha,
			Sprite:   g.Entry.Key(),
			RefCount: g.Entry.RefCount(),
		})
	}

	dump := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
	fmt.Printf("%s (%d,%d)\n", filepath.Base(path), x, y)
	dump.Dump(t)
	if items := s.Items(x, y); len(items) > 0 {
		dump.Dump(items)
	}
	if npcs := s.NPCs(x, y); len(npcs) > 0 {
		dump.Dump(npcs)
	}
	dump.Dump(graphics)
	return 0
}

// --- all ---

func runAll(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading directory: %v\n", err)
		return 1
	}

	fmt.Println("=== VALIDATE ===")
	code := runValidate(dir)
	if code != 0 {
		return code
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		fmt.Printf("\n=== STATS: %s ===\n", entry.Name())
		if c := runStats(filepath.Join(dir, entry.Name())); c != 0 {
			code = c
		}
	}
	return code
}
