package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lendmatch/internal/db"
	"lendmatch/internal/server"
	"lendmatch/internal/store"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger, err := newLogger(config)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	matcher, cleanup, err := newMatchingService(ctx, config, logger, pool)
	if err != nil {
		return err
	}
	defer cleanup()

	lenderRepo := store.NewLenderRepository(pool)
	productRepo := store.NewLoanProductRepository(pool)

	var keys server.KeySetSource
	if config.JWKSURL != "" {
		jwkCache, err := jwk.NewCache(ctx, httprc.NewClient())
		if err != nil {
			return fmt.Errorf("failed to initialize jwk cache: %w", err)
		}

		if err := jwkCache.Register(ctx, config.JWKSURL); err != nil {
			return fmt.Errorf("failed to register jwks url with cache: %w", err)
		}
		keys = jwkCache
	} else {
		logger.Warn("JWKS_URL not set, API authentication disabled")
	}

	srv, err := server.New(
		config,
		logger,
		matcher,
		lenderRepo,
		productRepo,
		pool,
		keys,
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
