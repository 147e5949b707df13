package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/padraicbc/nflodds/auth"
	"github.com/padraicbc/nflodds/config"
	"github.com/padraicbc/nflodds/db"
	"github.com/padraicbc/nflodds/handlers"
	"github.com/padraicbc/nflodds/ingest"
	applog "github.com/padraicbc/nflodds/logger"
	"github.com/padraicbc/nflodds/predict"
	"github.com/padraicbc/nflodds/provider"
	"github.com/padraicbc/nflodds/publisher"
	"github.com/padraicbc/nflodds/query"
)

func main() {
	cfg := config.Load()
	logger, err := applog.New("nflodds", cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx := context.Background()

	bdb, err := db.Setup(ctx, cfg)
	if err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}
	defer bdb.Close()

	if err := db.CreateTables(ctx, bdb, logger); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}
	store := db.NewStore(bdb, logger)

	feed := provider.New(provider.Config{
		BaseURL:  cfg.OddsAPIURL,
		APIKey:   cfg.OddsAPIKey,
		SportKey: cfg.OddsSportKey,
		Regions:  cfg.OddsRegions,
		Timeout:  cfg.ProviderTimeout,
	}, logger)

	var notifier ingest.Notifier
	if cfg.RedisURL != "" {
		rdb, err := publisher.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connect failed", zap.Error(err))
		}
		defer rdb.Close()
		notifier = publisher.NewStreamPublisher(rdb, cfg.OddsSportKey)
		logger.Info("publishing ingestion runs", zap.String("stream", publisher.StreamKey(cfg.OddsSportKey)))
	}

	reconciler := ingest.New(store, feed, ingest.Options{
		SportName: cfg.OddsSportName,
		Notifier:  notifier,
		Log:       logger,
	})
	tokens := auth.NewTokens(cfg.JWTKey(), cfg.TokenTTL)

	h := handlers.New(handlers.Deps{
		Ingester: reconciler,
		Odds:     query.NewService(store, logger),
		Model:    predict.NewModel(store),
		Users:    store,
		Ratings:  store,
		Tokens:   tokens,
		Counter:  store,
		Provider: feed,
		Log:      logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	handlers.Register(e, h, tokens, cfg.Debug)

	if cfg.Debug {
		logger.Info("starting server", zap.String("mode", "debug"), zap.String("addr", cfg.Port))
		if err := e.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server exited", zap.Error(err))
		}
		return
	}

	autoTLS := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(".cache"),
		HostPolicy: autocert.HostWhitelist(cfg.TLSDomains...),
	}

	// update-odds blocks for the whole provider fetch and reconcile.
	s := &http.Server{
		Addr:         ":443",
		Handler:      e,
		TLSConfig:    autoTLS.TLSConfig(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	logger.Info("starting server", zap.String("mode", "tls"), zap.Strings("domains", cfg.TLSDomains))
	if err := s.ListenAndServeTLS("", ""); err != http.ErrServerClosed {
		logger.Error("tls server exited", zap.Error(err))
		os.Exit(1)
	}
}
