package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/matchday-backend/internal/auth"
	"github.com/DoyleJ11/matchday-backend/internal/config"
	"github.com/DoyleJ11/matchday-backend/internal/gateway"
	"github.com/DoyleJ11/matchday-backend/internal/httpapi"
	"github.com/DoyleJ11/matchday-backend/internal/hub"
	"github.com/DoyleJ11/matchday-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	authorizer, err := auth.NewStaticFromSpecs(cfg.AgentTokens, cfg.ViewerTokens, cfg.AdminTokens)
	if err != nil {
		logger.Fatal("auth config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo *store.Repository
	if cfg.DatabaseURL != "" {
		repo, err = store.OpenRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open repository", zap.Error(err))
		}
	}

	h := hub.New(logger)
	st := store.New(ctx, h, repo, logger)
	defer st.Shutdown()

	if repo != nil {
		snaps, err := repo.LoadAll(ctx)
		if err != nil {
			logger.Fatal("seed store", zap.Error(err))
		}
		for _, snap := range snaps {
			if _, err := st.Ensure(snap); err != nil {
				logger.Fatal("seed store", zap.String("match_id", snap.MatchID), zap.Error(err))
			}
		}
		logger.Info("store seeded from postgres", zap.Int("matches", len(snaps)))
	}

	gw := gateway.New(st, authorizer, logger)
	handler := httpapi.SetupRoutes(gw, h, logger, cfg.WriteTimeout)

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
