package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"presence-chat/internal/chat"
	"presence-chat/internal/config"
	"presence-chat/internal/db"
	myMiddleware "presence-chat/internal/middleware"
	"presence-chat/internal/user"
)

func main() {
	// 1. Config & Logging
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// 2. Presence store: Redis when configured, memory otherwise
	var repo user.Repository
	var closeRedis func() error
	if cfg.RedisAddr != "" {
		rdb, err := db.NewRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		closeRedis = rdb.Close
		repo = user.NewRedisRepository(rdb, cfg.LastSeenTTL)
		log.Println("✅ Connected to Redis")
	} else {
		repo = user.NewMemoryRepository()
		log.Println("⚠️ REDIS_ADDR not set, last-seen kept in memory")
	}
	userService := user.NewService(repo, logger.With("component", "user"))

	// 3. Chat hub
	hub := chat.NewHub(chat.HubOptions{
		Options: chat.Options{
			DefaultRoom:  cfg.DefaultRoom,
			HistoryLimit: cfg.HistoryLimit,
			Logger:       logger.With("component", "hub"),
		},
		Recorder: userService,
	})
	userService.SetDirectory(hub)

	hubCtx, stopHub := context.WithCancel(context.Background())
	go func() {
		if err := hub.Run(hubCtx); err != nil {
			logger.Error("hub exited", "error", err)
		}
	}()

	chatHandler := chat.NewHandler(hub, chat.HandlerOptions{
		SendBuffer:     cfg.SendBuffer,
		MaxMessageSize: cfg.MaxMessageSize,
		Logger:         logger.With("component", "ws"),
	})
	userHandler := user.NewHandler(userService)
	originMiddleware := myMiddleware.NewOriginMiddleware(cfg.AllowedOrigins, logger)

	// 4. Routes
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", chatHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(originMiddleware.Handle)

		r.Get("/ws", chatHandler.ServeWs)
		r.Get("/api/rooms", chatHandler.Rooms)
		r.Get("/api/users/search", userHandler.SearchUsers)
		r.Get("/api/users/{username}/presence", userHandler.GetPresence)
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// 5. Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
			"chat-hub": func(ctx context.Context) error {
				stopHub()
				select {
				case <-hub.Done():
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		},
	)

	exitCode := <-wait
	if closeRedis != nil {
		if err := closeRedis(); err != nil {
			logger.Warn("closing redis", "error", err)
		}
	}
	log.Printf("👋 Server exited with code %d", exitCode)
	os.Exit(exitCode)
}
