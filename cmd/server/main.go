package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/auth"
	"github.com/freeeve/conquest/internal/config"
	"github.com/freeeve/conquest/internal/handler"
	"github.com/freeeve/conquest/internal/logger"
	"github.com/freeeve/conquest/internal/middleware"
	"github.com/freeeve/conquest/internal/repository"
	"github.com/freeeve/conquest/internal/repository/postgres"
	redisrepo "github.com/freeeve/conquest/internal/repository/redis"
	"github.com/freeeve/conquest/internal/service"
)

func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().Str("tcp", cfg.TCPAddr()).Str("http", cfg.HTTPAddr()).Msg("Config loaded")

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer startCancel()

	// Storage is optional; without it sessions live only in memory.
	var (
		cache       repository.SnapshotCache
		audit       repository.AuditLog
		db          *sql.DB
		redisClient *redisrepo.Client
	)
	if cfg.DatabaseURL != "" {
		db, err = postgres.Connect(startCtx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		audit = postgres.NewEventRepo(db)
	} else {
		log.Warn().Msg("DATABASE_URL not set, audit log disabled")
	}
	if cfg.RedisURL != "" {
		redisClient, err = redisrepo.NewClient(startCtx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		cache = redisClient
	} else {
		log.Warn().Msg("REDIS_URL not set, snapshot mirror disabled")
	}

	mirror := service.NewMirror(cache, audit)
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	settings := service.DefaultSettings()
	settings.LobbyArmies = cfg.LobbyStartingArmies
	settings.MatchArmies = cfg.MatchStartingArmies
	settings.NameTimeout = cfg.MatchNameTimeout
	mgr := service.NewManager(settings, jwtMgr, mirror)

	hub := handler.NewHub()
	opts := handler.ClientOptions{
		SendBuffer:        cfg.SendBuffer,
		MessagesPerSecond: cfg.MessagesPerSecond,
		MessageBurst:      cfg.MessageBurst,
	}

	tcpSrv := handler.NewTCPServer(mgr, hub, opts)
	if err := tcpSrv.Listen(cfg.TCPAddr()); err != nil {
		log.Fatal().Err(err).Msg("TCP listen failed")
	}
	go func() {
		if err := tcpSrv.Serve(); err != nil {
			log.Fatal().Err(err).Msg("TCP server error")
		}
	}()

	var (
		httpSrv   *http.Server
		wsHandler *handler.WSHandler
	)
	if addr := cfg.HTTPAddr(); addr != "" {
		wsHandler = handler.NewWSHandler(mgr, hub, opts, cfg.AllowedOrigins)
		statusHandler := handler.NewStatusHandler(mgr, hub, cache, audit)

		mux := http.NewServeMux()
		authMw := auth.Middleware(jwtMgr)

		mux.HandleFunc("GET /healthz", statusHandler.Health)
		mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)
		mux.Handle("GET /api/v1/sessions/current", authMw(http.HandlerFunc(statusHandler.CurrentSession)))
		mux.Handle("GET /api/v1/sessions/{id}/events", authMw(http.HandlerFunc(statusHandler.SessionEvents)))

		root := middleware.Chain(mux,
			middleware.Logger,
			middleware.CORS(cfg.AllowedOrigins),
			middleware.RateLimit(cfg.MessagesPerSecond, cfg.MessageBurst),
		)
		httpSrv = &http.Server{
			Addr:        addr,
			Handler:     root,
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", addr).Msg("HTTP server listening")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("HTTP server error")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Sessions first so every seat receives LOBBY_CLOSED before its
	// connection goes away.
	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown error")
		}
	}
	if err := mgr.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Sessions did not close in time")
	}
	if err := tcpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("TCP shutdown incomplete")
	}
	if wsHandler != nil {
		wsHandler.Shutdown()
	}
	if err := mirror.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Mirror did not drain in time")
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if db != nil {
		db.Close()
	}
	log.Info().Msg("Server stopped")
}
