package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/loltft/rudefriend/internal/config"
	"github.com/loltft/rudefriend/internal/es"
	"github.com/loltft/rudefriend/internal/files"
	"github.com/loltft/rudefriend/internal/handlers"
	"github.com/loltft/rudefriend/internal/logging"
	"github.com/loltft/rudefriend/internal/mykafka"
	"github.com/loltft/rudefriend/internal/service"
	"github.com/loltft/rudefriend/internal/token"
	httpserver "github.com/loltft/rudefriend/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.LOG_LEVEL)

	ctx := context.Background()
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		log.Error("db init failed", "error", err)
		os.Exit(1)
	}

	if err := config.SeedSuperMember(db, log); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}

	var brokers []string
	if cfg.KAFKA_ADDRESS != "" {
		brokers = []string{cfg.KAFKA_ADDRESS}
	}
	prod := mykafka.NewProducer(brokers)
	if prod == nil {
		log.Warn("kafka not configured, events disabled")
	}

	esClient, err := es.NewClient(cfg)
	if err != nil {
		log.Warn("elasticsearch unavailable, board search disabled", "error", err)
		esClient = nil
	}

	codec := token.NewCodec([]byte(cfg.JWT_SECRET))
	hasher := token.NewHasher([]byte(cfg.HASH_SECRET))
	fileService := &files.FileService{DB: db, Store: files.NewLocalStore(cfg.UPLOAD_DIR)}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	httpserver.Register(e, httpserver.Deps{
		Auth:   &handlers.AuthHandler{DB: db, Codec: codec, Hasher: hasher, Producer: prod},
		Member: &handlers.MemberHandler{DB: db, Producer: prod},
		Board:  &handlers.BoardHandler{DB: db, Files: fileService, ES: esClient, Producer: prod},
		Tokens: &service.TokenService{DB: db, Codec: codec, Hasher: hasher},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error("db close error", "error", err)
		}
	}

	if err := prod.Close(); err != nil {
		log.Error("kafka close error", "error", err)
	}

	log.Info("shutdown complete")
}
