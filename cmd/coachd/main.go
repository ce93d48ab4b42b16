package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cogniverse/coach-engine/internal/config"
	"github.com/cogniverse/coach-engine/internal/provider"
	"github.com/cogniverse/coach-engine/internal/report"
	"github.com/cogniverse/coach-engine/internal/server"
	"github.com/cogniverse/coach-engine/internal/state"
)

// #region main

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := buildLogger(cfg.Dev)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	store, err := state.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal("open store", zap.String("db", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()

	var gen provider.Generator
	if cfg.OpenAIAPIKey != "" {
		oc := provider.DefaultOpenAIConfig(cfg.OpenAIAPIKey)
		oc.BaseURL = cfg.OpenAIBaseURL
		oc.Model = cfg.OpenAIModel
		oc.Timeout = cfg.OpenAITimeout
		gen = provider.NewOpenAIClient(oc)
	} else {
		log.Warn("no provider key configured, all reports will use fallback content")
	}

	lib := report.DefaultFallbackLibrary()
	pipe := report.NewPipeline(gen, lib, log)

	if !cfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(store, pipe, lib, log)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("coachd listening",
			zap.String("addr", cfg.Addr),
			zap.String("db", cfg.DBPath),
			zap.Bool("provider", gen != nil))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("serve", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// #endregion main
