// Command simplc runs a standalone simulated PLC: it loads the YAML
// configuration described in spec §6 (falling back to zero-config
// defaults when none is found), builds the PLC, starts whichever
// protocol server/client roles are configured, and serves the REST/WS
// control surface alongside the scheduler loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sdplc-io/simplc/internal/api"
	"github.com/sdplc-io/simplc/internal/config"
	"github.com/sdplc-io/simplc/internal/logging"
	"github.com/sdplc-io/simplc/pkg/simplc"
)

func main() {
	configPath := flag.String("config", "", "path to the simplc YAML config (searches ./configs and $HOME/.simplc if empty)")
	flag.Parse()

	bootLogger, _ := zap.NewDevelopment()

	cfg, err := config.Load(*configPath, bootLogger)
	if err != nil {
		bootLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := logging.Init(logging.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		LogDir:     cfg.Logger.LogDir,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
		Compress:   cfg.Logger.Compress,
	})
	if err != nil {
		bootLogger.Fatal("failed to initialize logging", zap.Error(err))
	}
	defer logging.Sync()

	plc, err := simplc.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build plc", zap.Error(err))
	}

	hub := api.NewHub()
	hubStop := make(chan struct{})
	go hub.Run(hubStop)

	app := api.New(&api.Service{
		Registry:  plc.Registry,
		Modbus:    plc.Modbus,
		OPCUA:     plc.OPCUA,
		Scheduler: plc.Scheduler,
		Engine:    plc.Engine,
		Telemetry: plc.Telemetry,
		Hub:       hub,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if runErr := plc.Start(ctx); runErr != nil && runErr != context.Canceled {
			logger.Error("plc run loop exited", zap.Error(runErr))
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	go func() {
		logger.Info("serving control surface", zap.String("addr", addr))
		if listenErr := app.Listen(addr); listenErr != nil {
			logger.Error("api server stopped", zap.Error(listenErr))
		}
	}()

	watchReload(*configPath, logger, plc)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	cancel()
	plc.Stop()
	close(hubStop)
	_ = app.Shutdown()
}

// watchReload watches the config file, only when a config file path was
// actually given (the zero-config default has nothing on disk to watch),
// and logs a warning when it changes. The running PLC is not updated:
// changes take effect on the next restart.
func watchReload(configPath string, logger *zap.Logger, plc *simplc.PLC) {
	if configPath == "" {
		return
	}
	config.WatchReload(configPath, logger, func(cfg *config.Config) {
		logger.Warn("config changed on disk; restart simplc to apply it",
			zap.String("path", configPath))
		_ = cfg
		_ = plc
	})
}
