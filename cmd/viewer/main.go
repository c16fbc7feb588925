package main

import (
	"context"
	"flag"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"isotile/internal/assets"
	"isotile/internal/config"
	"isotile/internal/editor"
	"isotile/internal/log"
	"isotile/internal/maps"
	"isotile/internal/viewer"
)

func main() {
	configFile := flag.String("config", "", "YAML config file")
	mapPath := flag.String("map", "", "map file (overrides config)")
	width := flag.Int("width", 1280, "window width")
	height := flag.Int("height", 800, "window height")
	save := flag.String("save", "", "write the edited map here on exit")
	flag.Parse()

	cfg, err := config.Load(*configFile, ".env")
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if err := log.Setup(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		log.Fatalf("Log setup error: %v", err)
	}
	if *mapPath != "" {
		cfg.MapPath = *mapPath
	}

	m, err := maps.LoadMap(cfg.MapPath)
	if err != nil {
		log.Warnf("Could not load map %s: %v, using default map", cfg.MapPath, err)
		m = maps.DefaultMap()
	}

	src, err := assets.OpenOrSynthetic(context.Background(), cfg.Assets,
		assets.WithPixelCacheMB(cfg.Atlas.PixelCacheMB),
		assets.WithWorkers(cfg.Atlas.LoaderWorkers))
	if err != nil {
		log.Fatalf("Failed to load sprites from %s: %v", cfg.Assets, err)
	}
	defer src.Close()

	ed, err := editor.New(m, src, editor.Options{
		PageSize:  cfg.Atlas.PageSize,
		Evicting:  cfg.Atlas.Evicting,
		MaxLoads:  int64(cfg.Atlas.MaxLoads),
		FrameRate: ebiten.ActualFPS,
	})
	if err != nil {
		log.Fatalf("Open map: %v", err)
	}
	defer ed.Close()

	if err := viewer.Run(ed, "isotile: "+m.Name, *width, *height, cfg.Atlas.TargetFPS); err != nil {
		log.Errorf("Viewer error: %v", err)
	}
	log.Infof("%s closed after %d edits", m.Name, ed.Edits())

	if *save != "" && ed.Edits() > 0 {
		data, err := m.Marshal()
		if err != nil {
			log.Fatalf("Encode map: %v", err)
		}
		if err := os.WriteFile(*save, data, 0o644); err != nil {
			log.Fatalf("Save map: %v", err)
		}
		log.Infof("Saved %s to %s", m.Name, *save)
	}
}
