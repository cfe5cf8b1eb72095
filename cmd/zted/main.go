package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zte.szuro.net/internal/cache"
	"zte.szuro.net/internal/config"
	"zte.szuro.net/internal/history"
	"zte.szuro.net/internal/input"
	"zte.szuro.net/internal/inventory"
	"zte.szuro.net/internal/logger"
	"zte.szuro.net/internal/observer"
	"zte.szuro.net/internal/trigger"
	"zte.szuro.net/internal/zbx"
	"zte.szuro.net/pkg/expression"
)

const evaluationInterval = 30 * time.Second

func printVersionInfo() {
	fmt.Printf("ZTE %s\n", config.Version)
	fmt.Printf("Git commit: %s\n", config.Commit)
	fmt.Printf("Compilation time: %s\n", config.BuildDate)
}

func main() {
	ztePath := flag.String("c", "/etc/zted.yaml", "Path of config file")
	version := flag.Bool("v", false, "Show version info")
	flag.Parse()

	if *version {
		printVersionInfo()
		os.Exit(0)
	}

	zteConfig, err := config.ParseZTEConfig(*ztePath)
	if err != nil {
		logger.Error("Invalid configuration", slog.String("path", *ztePath), slog.Any("error", err))
		os.Exit(1)
	}
	logger.SetLogLevel(zteConfig.GetLogLevel())

	if err := run(zteConfig); err != nil {
		logger.Error("zted failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(zteConfig config.ZTEConf) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := history.Open(filepath.Join(zteConfig.DataDir, "history"), zteConfig.History.Retain, zteConfig.History.TTL)
	if err != nil {
		return err
	}
	defer store.Close()

	inv, err := inventory.FromConfig(zteConfig.Inventory)
	if err != nil {
		return err
	}
	defer inv.Close()

	evaluator, err := trigger.NewEvaluator(ctx, zteConfig.Triggers, inv, store, zteConfig.Macros)
	if err != nil {
		return err
	}

	for _, target := range zteConfig.Targets {
		o, err := observer.FromTarget(target, zteConfig.DataDir)
		if err != nil {
			logger.Warn("Failed to register target", slog.String("name", target.Name), slog.Any("error", err))
			continue
		}
		defer o.Cleanup()
		evaluator.Register(o)
	}

	var errorCache expression.ErrorCache
	if zteConfig.Cache.Enabled {
		c, err := cache.NewErrorCache(zteConfig.Cache.MaxEntries)
		if err != nil {
			return err
		}
		defer c.Close()
		errorCache = c
	}
	validator := expression.NewValidator(inventory.NewResolver(inv), errorCache)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/validate", validateHandler(validator))

	var inp input.Inputer
	switch zteConfig.Mode {
	case config.FILE_MODE:
		zbxConfig, err := zbx.ParseZabbixConfig(zteConfig.ServerConfig)
		if err != nil {
			return err
		}
		if inp, err = input.NewFileInput(zbxConfig, zteConfig); err != nil {
			return err
		}
	case config.HTTP_MODE:
		hi, err := input.NewHTTPInput(zteConfig)
		if err != nil {
			return err
		}
		mux.Handle("/history", hi.Handler())
		inp = hi
	}
	inp.GetSubject().Register(evaluator)
	config.ZteInfo.Set(1)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", zteConfig.Http.ListenAddress, zteConfig.Http.ListenPort),
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)

	for !inp.IsReady() {
		logger.Info("Input is not active, sleeping", slog.Duration("delay", zbx.DEFAULT_DELAY))
		select {
		case <-sig:
			return server.Close()
		case <-time.After(zbx.DEFAULT_DELAY):
		}
	}
	logger.Info("Input is active", slog.String("mode", zteConfig.Mode), slog.Int("triggers", len(zteConfig.Triggers)))

	inp.Start()
	go evaluator.Run(ctx, evaluationInterval)

	<-sig
	logger.Info("Exiting...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", slog.Any("error", err))
	}
	if err := inp.Stop(); err != nil {
		logger.Error("stopping failed", slog.Any("error", err))
	}
	cancel()
	return nil
}
