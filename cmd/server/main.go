package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"isotile/internal/assets"
	"isotile/internal/config"
	"isotile/internal/log"
	"isotile/internal/maps"
	"isotile/internal/server"
)

func main() {
	configFile := flag.String("config", "", "YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile, ".env")
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if err := log.Setup(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		log.Fatalf("Log setup error: %v", err)
	}

	// Generate host key if it doesn't exist
	if err := ensureHostKey(cfg.HostKey); err != nil {
		log.Fatalf("Host key error: %v", err)
	}

	m, err := maps.LoadMap(cfg.MapPath)
	if err != nil {
		log.Warnf("Could not load map %s: %v, using default map", cfg.MapPath, err)
		m = maps.DefaultMap()
	}
	w, h := m.Size()
	log.Infof("Map loaded: %s (%dx%d)", m.Name, w, h)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := assets.OpenOrSynthetic(ctx, cfg.Assets,
		assets.WithPixelCacheMB(cfg.Atlas.PixelCacheMB),
		assets.WithWorkers(cfg.Atlas.LoaderWorkers))
	if err != nil {
		log.Fatalf("Failed to load sprites from %s: %v", cfg.Assets, err)
	}
	defer src.Close()

	srv := server.NewSSHServer(server.Config{
		Addr:     cfg.Addr,
		HostKey:  cfg.HostKey,
		Map:      m,
		Source:   src,
		PageSize: cfg.Atlas.PageSize,
		Evicting: cfg.Atlas.Evicting,
		MaxLoads: int64(cfg.Atlas.MaxLoads),
		Rate:     cfg.Atlas.TargetFPS,
	})

	go func() {
		<-ctx.Done()
		log.Infof("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Starting isotile, connect with: ssh -p %s you@localhost", port(cfg.Addr))
	if err := srv.Start(); err != nil {
		log.Fatalf("SSH server error: %v", err)
	}
}

func port(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[i+1:]
		}
	}
	return addr
}

func ensureHostKey(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // key already exists
	}

	log.Infof("Generating new host key at %s", path)
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}

	keyBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return pem.Encode(f, &pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes})
}
