package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/ayusman/handvolume/internal/app"
	"github.com/ayusman/handvolume/internal/config"
	"github.com/ayusman/handvolume/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", filepath.Join(config.DataDir(), "config.yaml"), "path to the YAML config file")
		uiMode     = flag.String("ui", "", "override ui.mode: window, tray or headless")
		backend    = flag.String("sink", "", "override sink.backend: auto, osascript, amixer, plugin or mock")
		serve      = flag.String("serve", "", "enable the HTTP server on this address")
		logLevel   = flag.String("log-level", "", "override log.level")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		fmt.Fprintf(os.Stderr, "environment: %v\n", err)
		return 1
	}
	if *uiMode != "" {
		cfg.UI.Mode = *uiMode
	}
	if *backend != "" {
		cfg.Sink.Backend = *backend
	}
	if *serve != "" {
		cfg.Server.Enabled = true
		cfg.Server.Addr = *serve
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, log, app.Deps{})
	if errors.Is(err, app.ErrCameraUnavailable) {
		fmt.Println("Cannot open camera")
		log.Debug("camera", zap.Error(err))
		return 1
	}
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return 1
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		log.Error("control loop failed", zap.Error(err))
		return 1
	}
	return 0
}
