package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"recall-server/api"
	"recall-server/config"
	"recall-server/loghandler"
	"recall-server/rooms"
	"recall-server/storage"
	"recall-server/ws"
)

func main() {
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo)))

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; using environment variables", "tag", "main")
	}

	cfg := config.Load()

	if cfg.AuthBaseURL == "" {
		slog.Warn("AUTH_BASE_URL is not set; websocket auth will reject clients", "tag", "main")
	}
	slog.Info("configuration loaded", "tag", "main",
		"minPlayers", cfg.MinPlayers, "maxPlayers", cfg.MaxPlayers,
		"sameRankWindowSec", cfg.SameRankWindowSec, "specialWindowSec", cfg.SpecialWindowSec,
		"port", cfg.WSPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to Postgres", "tag", "main", "err", err)
		os.Exit(1)
	}
	if store == nil {
		slog.Warn("DATABASE_URL is not set; game history will not be persisted", "tag", "main")
	} else {
		defer store.Close()
	}

	var history storage.HistoryStore
	if store != nil {
		history = store
	}

	registry := rooms.NewRegistry(cfg, history)
	hub := ws.NewHub(cfg, registry)
	registry.SetTransport(hub)
	go hub.Run(ctx)

	handler := api.NewHandler(cfg, history, registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/api/health", handler.Health)
	mux.HandleFunc("/api/rooms", handler.RoomList)
	mux.HandleFunc("/api/history", handler.History)
	mux.HandleFunc("/api/leaderboard", handler.Leaderboard)

	addr := fmt.Sprintf(":%d", cfg.WSPort)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received", "tag", "main")
		registry.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("server listening", "tag", "main", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server stopped", "tag", "main", "err", err)
		os.Exit(1)
	}
}
