package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"isotile/internal/log"
	"isotile/internal/maps"
)

func main() {
	seed := flag.Int64("seed", 0, "random seed (0 = random)")
	size := flag.String("size", "100x80", "map size as WxH")
	name := flag.String("name", "Wilderness", "map name")
	out := flag.String("out", "", "output file (default: stdout)")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	if err := log.Setup(log.Options{Level: *level}); err != nil {
		log.Fatalf("log setup: %v", err)
	}
	logger := log.Entry("mapgen")

	w, h, err := parseSize(*size)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	logger.Infof("generating %dx%d map %q (seed %d)", w, h, *name, *seed)

	f, ends := generateTerrain(w, h, *seed)
	m := dress(*name, f, ends, *seed)

	data, err := m.Marshal()
	if err != nil {
		logger.Fatalf("marshal map: %v", err)
	}

	if *out == "" {
		os.Stdout.Write(append(data, '\n'))
	} else {
		if err := os.WriteFile(*out, append(data, '\n'), 0644); err != nil {
			logger.Fatalf("write map: %v", err)
		}
		logger.Infof("wrote %s (%d bytes)", *out, len(data))
	}

	total := float64(w * h)
	for t := grass; t <= bridge; t++ {
		if c := f.count(t); c > 0 {
			logger.WithFields(logrus.Fields{"tiles": c, "share": fmt.Sprintf("%.1f%%", float64(c)/total*100)}).Infof("terrain %s", t)
		}
	}
	logger.WithFields(logrus.Fields{"warps": len(ends), "items": len(m.Items), "npcs": len(m.NPCs)}).Info("done")
}

func parseSize(s string) (int, int, error) {
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid size %q (expected WxH)", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil || w < 10 || w > maps.MaxDimension {
		return 0, 0, fmt.Errorf("invalid width %q (10 to %d)", parts[0], maps.MaxDimension)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h < 10 || h > maps.MaxDimension {
		return 0, 0, fmt.Errorf("invalid height %q (10 to %d)", parts[1], maps.MaxDimension)
	}
	return w, h, nil
}
