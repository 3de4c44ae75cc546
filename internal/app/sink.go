package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ayusman/handvolume/internal/config"
	"github.com/ayusman/handvolume/internal/plugin"
	"github.com/ayusman/handvolume/internal/sink"
)

// Mock sink range, matching the 0..100 mixers.
const (
	mockMin = 0
	mockMax = 100
)

// NewSink builds the output sink selected by cfg.Backend.
func NewSink(cfg config.Sink, log *zap.Logger) (sink.Sink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := sink.CommandOptions{Timeout: cfg.Timeout, Logger: log}

	switch cfg.Backend {
	case config.SinkAuto, "":
		s, err := sink.NewSystem(cfg.AmixerControl, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SinkOsascript:
		return sink.NewOsascript(opts), nil
	case config.SinkAmixer:
		return sink.NewAmixer(cfg.AmixerControl, opts), nil
	case config.SinkPlugin:
		mgr := plugin.NewManager(cfg.PluginDir, log)
		if err := mgr.Discover(); err != nil {
			return nil, fmt.Errorf("discover plugins: %w", err)
		}
		log.Info("discovered plugins", zap.Int("count", len(mgr.List())), zap.String("dir", mgr.PluginDir()))
		s, err := sink.NewPlugin(mgr, cfg.Plugin, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SinkMock:
		return sink.NewMock(mockMin, mockMax), nil
	default:
		return nil, fmt.Errorf("unknown sink backend %q", cfg.Backend)
	}
}
