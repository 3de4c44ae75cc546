// Package app wires handvolume's collaborators together from a config and
// runs the control loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ayusman/handvolume/internal/capture"
	"github.com/ayusman/handvolume/internal/config"
	"github.com/ayusman/handvolume/internal/control"
	"github.com/ayusman/handvolume/internal/detector"
	"github.com/ayusman/handvolume/internal/input"
	"github.com/ayusman/handvolume/internal/metrics"
	"github.com/ayusman/handvolume/internal/overlay"
	"github.com/ayusman/handvolume/internal/server"
	"github.com/ayusman/handvolume/internal/sink"
	"github.com/ayusman/handvolume/internal/store"
	"github.com/ayusman/handvolume/internal/telemetry"
	"github.com/ayusman/handvolume/internal/tray"
)

// ErrCameraUnavailable is returned by New when the camera cannot be opened.
var ErrCameraUnavailable = errors.New("cannot open camera")

// Run end reasons stored with each run.
const (
	EndQuit        = "quit"
	EndCancelled   = "cancelled"
	EndCaptureLost = "capture_lost"
	EndError       = "error"
)

// Deps overrides collaborators New would otherwise build from the config.
// Nil fields are built normally.
type Deps struct {
	Camera   capture.Camera
	Detector detector.Detector
	Sink     sink.Sink
	// Signals is polled in addition to the UI's own sources.
	Signals control.SignalSource
	// Stdin feeds headless mode; defaults to os.Stdin.
	Stdin io.Reader
}

// App owns every collaborator of one control session.
type App struct {
	cfg config.Config
	log *zap.Logger

	camera   capture.Camera
	detector detector.Detector
	sink     sink.Sink

	metrics *metrics.Metrics
	hub     *telemetry.Hub
	store   *store.Store
	run     *store.RunRecorder
	server  *server.Server

	latch  *input.Latch
	stdin  io.Reader
	window *overlay.Window
	jpeg   *overlay.JPEGBuffer
	tray   *tray.Tray

	loop *control.Loop
}

// New builds an App from cfg. The camera is opened first; if that fails New
// returns ErrCameraUnavailable before anything else is started.
func New(cfg config.Config, log *zap.Logger, deps Deps) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	a := &App{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		latch:   &input.Latch{},
		stdin:   deps.Stdin,
	}
	if a.stdin == nil {
		a.stdin = os.Stdin
	}
	built := false
	defer func() {
		if !built {
			a.Close()
		}
	}()

	a.camera = deps.Camera
	if a.camera == nil {
		a.camera = capture.NewCamera(cfg.Camera)
	}
	if err := a.camera.Open(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	var err error
	a.detector = deps.Detector
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(cfg.Detector); err == nil {
			a.detector = mp
			log.Info("using mediapipe hand detection")
		} else {
			log.Warn("mediapipe not available, no hands will be tracked", zap.Error(err))
			a.detector = detector.NewMockDetector()
		}
	}

	a.sink = deps.Sink
	if a.sink == nil {
		if a.sink, err = NewSink(cfg.Sink, log); err != nil {
			return nil, fmt.Errorf("create sink: %w", err)
		}
	}
	log.Info("using sink", zap.String("sink", a.sink.Name()))

	a.hub = telemetry.NewHub(telemetry.DefaultBuffer, func() { a.metrics.TelemetryDropped.Add(1) })
	observers := []control.Observer{a.hub}

	if cfg.Store.Path != "" {
		if a.store, err = store.New(cfg.Store.Path); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		if a.run, err = a.store.StartRun(a.sink.Name()); err != nil {
			return nil, fmt.Errorf("start run: %w", err)
		}
		observers = append(observers, a.run)
		log.Info("recording run", zap.String("run", a.run.ID()), zap.String("store", a.store.Path()))
	}

	keys := input.KeysFrom(cfg.Calibration.MinKey, cfg.Calibration.MaxKey, cfg.Calibration.QuitKey)
	signals := input.Combined{a.latch}
	if deps.Signals != nil {
		signals = append(signals, deps.Signals)
	}

	var outputs []overlay.Output
	switch cfg.UI.Mode {
	case config.UIWindow:
		kb := input.NewKeyboard(keys)
		signals = append(signals, kb)
		a.window = overlay.NewWindow(cfg.UI.Title, kb.HandleKey)
		outputs = append(outputs, a.window)
	case config.UITray:
		a.tray = tray.New(cfg.UI.Title, a.latch)
		observers = append(observers, a.tray)
	}

	if cfg.Server.Enabled {
		a.jpeg = overlay.NewJPEGBuffer()
		outputs = append(outputs, a.jpeg)
		a.server = server.New(server.Config{
			StaticDir: cfg.Server.StaticDir,
			Store:     a.store,
			Hub:       a.hub,
			Frames:    a.jpeg,
			Metrics:   a.metrics.Handler(),
			Logger:    log.Named("server"),
		})
	}

	loopCfg := control.Config{
		Source:     CameraSource{Camera: a.camera},
		Estimator:  HandEstimator{Detector: a.detector},
		Signals:    signals,
		Sink:       a.sink,
		Observers:  observers,
		Recorder:   a.metrics,
		Logger:     log.Named("loop"),
		WindowSize: cfg.Calibration.WindowSize,
		Gamma:      cfg.Mapping.Gamma,
		BarBottom:  cfg.Mapping.BarBottom,
		BarTop:     cfg.Mapping.BarTop,
		RetryDelay: cfg.Calibration.RetryDelay,
	}
	if len(outputs) > 0 {
		layout := overlay.DefaultLayout()
		layout.BarBottom = int(cfg.Mapping.BarBottom)
		layout.BarTop = int(cfg.Mapping.BarTop)
		loopCfg.Renderer = overlay.NewRenderer(layout, outputs...)
	}

	if a.loop, err = control.New(loopCfg); err != nil {
		return nil, fmt.Errorf("create control loop: %w", err)
	}

	built = true
	return a, nil
}

// Run drives the loop until quit, cancellation or capture loss. In tray mode
// it blocks in the tray's event loop and must be called on the main thread.
// A quit or cancellation returns nil.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.tray == nil {
		return a.runLoop(ctx)
	}

	// Quit from the tray must also end calibration, where the loop ignores it.
	a.tray.OnQuit(cancel)

	errCh := make(chan error, 1)
	started := make(chan struct{})
	a.tray.Run(func() {
		close(started)
		go func() {
			errCh <- a.runLoop(ctx)
			a.tray.Quit()
		}()
	})
	cancel()

	select {
	case <-started:
		return <-errCh
	default:
		return nil
	}
}

func (a *App) runLoop(ctx context.Context) error {
	if a.server != nil {
		go func() {
			if err := a.server.Serve(ctx, a.cfg.Server.Addr); err != nil {
				a.log.Error("http server", zap.Error(err))
			}
		}()
	}

	if a.cfg.UI.Mode == config.UIHeadless {
		keys := input.KeysFrom(a.cfg.Calibration.MinKey, a.cfg.Calibration.MaxKey, a.cfg.Calibration.QuitKey)
		go func() {
			if err := input.Lines(a.stdin, keys, a.latch); err != nil {
				a.log.Warn("read commands", zap.Error(err))
			}
		}()
		a.log.Info("headless mode: type the confirm keys followed by enter",
			zap.String("min", a.cfg.Calibration.MinKey),
			zap.String("max", a.cfg.Calibration.MaxKey),
			zap.String("quit", a.cfg.Calibration.QuitKey))
	}

	err := a.loop.Run(ctx)

	reason := EndQuit
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = EndCancelled
		err = nil
	case errors.Is(err, control.ErrCaptureLost):
		reason = EndCaptureLost
	default:
		reason = EndError
	}

	if a.run != nil {
		if ferr := a.run.Finish(reason); ferr != nil {
			a.log.Error("save run", zap.Error(ferr))
		}
	}

	fields := []zap.Field{zap.String("reason", reason), zap.Uint64("frames", a.metrics.FramesProcessed.Load())}
	if v, ok := a.loop.LastApplied(); ok {
		fields = append(fields, zap.Float64("final_level", v))
	}
	a.log.Info("control loop finished", fields...)

	return err
}

// Close releases every collaborator. It is safe to call on a partially
// built App.
func (a *App) Close() error {
	var errs []error
	if a.window != nil {
		errs = append(errs, a.window.Close())
	}
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.camera != nil {
		errs = append(errs, a.camera.Close())
	}
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	}
	if a.run != nil {
		errs = append(errs, a.run.Finish(EndError))
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// Loop returns the control loop.
func (a *App) Loop() *control.Loop {
	return a.loop
}

// Hub returns the telemetry hub.
func (a *App) Hub() *telemetry.Hub {
	return a.hub
}

// Metrics returns the loop metrics.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Store returns the run store, or nil when run history is disabled.
func (a *App) Store() *store.Store {
	return a.store
}

// RunID returns the current run's ID, or "" when run history is disabled.
func (a *App) RunID() string {
	if a.run == nil {
		return ""
	}
	return a.run.ID()
}

// Server returns the HTTP server, or nil when it is disabled.
func (a *App) Server() *server.Server {
	return a.server
}
