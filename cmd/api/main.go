package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pitchbay/api/internal/app"
	"pitchbay/api/internal/config"
	"pitchbay/api/internal/content"
	"pitchbay/api/internal/search"
	"pitchbay/api/internal/session"
	"pitchbay/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	client := content.NewClient(cfg.ContentURL, cfg.ContentDataset, cfg.ContentAPIVer, cfg.ReadToken, cfg.WriteToken)
	if err := client.Ping(ctx); err != nil {
		log.Printf("WARNING: content store unreachable at startup: %v", err)
	}
	if !client.HasWriteToken() {
		log.Printf("WARNING: CONTENT_WRITE_TOKEN not set, mutations will fail with a configuration error")
	}
	dataStore := store.NewContentStore(client)

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh token storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Printf("Using in-memory refresh token storage")
		sessions = session.NewMemoryStore()
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewGroqFallback(dataStore))

	service := app.New(cfg, dataStore, sessions, searchService)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Pitchbay API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
