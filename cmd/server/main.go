package main

import (
	"fmt"
	"os"

	"github.com/nutriscan/backend/config"
	httpDelivery "github.com/nutriscan/backend/internal/delivery/http"
	"github.com/nutriscan/backend/internal/domain"
	"github.com/nutriscan/backend/internal/infrastructure/history"
	"github.com/nutriscan/backend/internal/infrastructure/lookup"
	"github.com/nutriscan/backend/internal/logging"
	"github.com/nutriscan/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Configure(logging.Config{Level: cfg.Server.LogLevel})
	log := logging.WithComponent("server")

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("lookup", cfg.Lookup.BaseURL).
		Msg("starting nutriscan backend v1.0.0")

	// Product lookup: HTTP client wrapped by the TTL/dedup cache, one
	// instance shared for the app's lifetime
	client := lookup.NewClient(cfg.Lookup.BaseURL, lookup.Options{
		Timeout:        cfg.Lookup.Timeout,
		RequestsPerSec: cfg.Lookup.RequestsPerSec,
	})
	cache := usecase.NewLookupCache(client, usecase.LookupCacheConfig{
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
		MinLatency: cfg.Lookup.MinLatency,
	})

	// Scan history (optional)
	var store domain.ScanHistory
	if cfg.History.Enabled {
		s, err := history.Open(cfg.History.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.History.Path).Msg("failed to open scan history")
		}
		defer s.Close()
		store = s
		log.Info().Str("path", cfg.History.Path).Msg("scan history enabled")
	}

	// Scanner: the embedding host injects camera access and the decode
	// engine; a headless deployment has neither and the controller reports
	// not_supported on start. The native delegate, when the host provides
	// one, is also injected here.
	var (
		media  domain.MediaDevices
		engine domain.DecodeEngine
		native domain.NativeScanner
	)
	backend := usecase.SelectBackend(cfg.Scanner.Backend, media, engine, native)
	scanner := usecase.NewScannerController(backend, usecase.ScannerControllerConfig{
		DetectionThrottle: cfg.Scanner.Throttle,
	})

	// Detections stream to UI clients over the event hub; the UI wires
	// detection to lookup on its side
	hub := httpDelivery.NewEventHub()
	scanner.SetOnDetected(func(r domain.DecodeResult) {
		hub.Broadcast(httpDelivery.DetectionEvent(r))
	})

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(scanner, cache, store, hub)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("server listening")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
