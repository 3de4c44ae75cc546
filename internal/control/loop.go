package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/handvolume/internal/calibration"
	"github.com/ayusman/handvolume/internal/detector"
	"github.com/ayusman/handvolume/internal/gesture"
	"github.com/ayusman/handvolume/internal/mapping"
)

// Default bar geometry, in image rows. The bar grows upward as the level rises.
const (
	DefaultBarBottom = 400
	DefaultBarTop    = 150
)

// Config holds the loop's collaborators and tuning.
type Config struct {
	Source    FrameSource
	Estimator Estimator
	Signals   SignalSource
	Sink      Sink

	// Optional.
	Renderer  Renderer
	Observers []Observer
	Recorder  Recorder
	Logger    *zap.Logger
	Clock     func() time.Time

	// WindowSize is the calibration window capacity (default 30).
	WindowSize int
	// Gamma is the response-curve exponent (default 1.8).
	Gamma float64
	// BarBottom and BarTop are the bar positions at 0% and 100%.
	BarBottom float64
	BarTop    float64
	// RetryDelay is slept after a dropped frame while calibrating.
	RetryDelay time.Duration
}

// Loop drives calibration and volume control one frame at a time.
// All methods must be called from a single goroutine.
type Loop struct {
	cfg     Config
	log     *zap.Logger
	now     func() time.Time
	sampler gesture.Sampler

	phase   Phase
	session *calibration.Session
	minRef  calibration.Result
	rng     calibration.Range

	deviceMin float64
	deviceMax float64

	seq               uint64
	previousFrameTime time.Time
	last              Frame
	lastApplied       float64
	hasApplied        bool
	dropped           int
}

// New validates cfg, reads the sink's device range and returns a loop in
// the CalibratingMin phase.
func New(cfg Config) (*Loop, error) {
	if cfg.Source == nil {
		return nil, errors.New("control: frame source is required")
	}
	if cfg.Estimator == nil {
		return nil, errors.New("control: estimator is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("control: sink is required")
	}
	if cfg.Signals == nil {
		return nil, errors.New("control: signal source is required")
	}

	if cfg.WindowSize <= 0 {
		cfg.WindowSize = gesture.DefaultWindowSize
	}
	if cfg.Gamma <= 0 {
		cfg.Gamma = mapping.DefaultGamma
	}
	if cfg.BarBottom == 0 && cfg.BarTop == 0 {
		cfg.BarBottom = DefaultBarBottom
		cfg.BarTop = DefaultBarTop
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	lo, hi, err := cfg.Sink.Range()
	if err != nil {
		return nil, fmt.Errorf("read device range: %w", err)
	}

	l := &Loop{
		cfg:       cfg,
		log:       cfg.Logger,
		now:       cfg.Clock,
		sampler:   gesture.NewSampler(),
		phase:     CalibratingMin,
		deviceMin: lo,
		deviceMax: hi,
	}
	l.session = calibration.NewSession(calibration.Min, cfg.WindowSize)
	l.log.Info("device range", zap.Float64("min", lo), zap.Float64("max", hi))
	l.log.Info("hold pose and confirm to calibrate", zap.String("pose", calibration.Min.Label()))

	return l, nil
}

// Run ticks until the quit signal is observed, ctx is cancelled or the
// frame source fails after calibration.
func (l *Loop) Run(ctx context.Context) error {
	for l.phase != Stopped {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := l.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// Tick processes exactly one frame.
func (l *Loop) Tick() error {
	if l.phase == Stopped {
		return nil
	}

	img, err := l.cfg.Source.Next()
	if err != nil {
		return l.captureFailed(err)
	}
	defer img.Close()
	l.dropped = 0

	points, err := l.cfg.Estimator.Estimate(img)
	if err != nil {
		l.log.Debug("estimate landmarks", zap.Error(err))
		if l.cfg.Recorder != nil {
			l.cfg.Recorder.EstimateFailed()
		}
		points = nil
	}

	l.seq++
	f := Frame{
		Seq:       l.seq,
		Phase:     l.phase,
		Timestamp: l.now(),
	}

	if dist, ok := l.sampler.Sample(points); ok {
		f.Detected = true
		f.RawDistance = dist
		f.Thumb, _ = detector.Find(points, l.sampler.From)
		f.Index, _ = detector.Find(points, l.sampler.To)
	}

	if l.phase.Calibrating() {
		l.session.Observe(f.RawDistance, f.Detected)
		f.Prompt = "Hold " + l.session.Target().Label()
		f.Samples = l.session.Len()
	} else {
		l.control(&f)
	}

	l.emit(img, f)
	l.advance(l.cfg.Signals.Poll())

	return nil
}

// control maps a running-phase sample onto the device and applies it.
func (l *Loop) control(f *Frame) {
	if f.Detected {
		// A degenerate or inverted range holds the level at the minimum.
		if !l.rng.Degenerate() && !l.rng.Inverted() {
			f.NormalizedPercent = mapping.Map(f.RawDistance, l.rng.MinDistance, l.rng.MaxDistance, 0, 100)
		}
		f.AdjustedPercent = mapping.Curve(f.NormalizedPercent, l.cfg.Gamma)
		adjusted := float64(f.AdjustedPercent)
		f.DeviceValue = mapping.Map(adjusted, 0, 100, l.deviceMin, l.deviceMax)
		f.BarPosition = mapping.Map(adjusted, 0, 100, l.cfg.BarBottom, l.cfg.BarTop)

		if err := l.cfg.Sink.SetLevel(f.DeviceValue); err != nil {
			l.log.Warn("set level", zap.Float64("value", f.DeviceValue), zap.Error(err))
			if l.cfg.Recorder != nil {
				l.cfg.Recorder.SinkFailed()
			}
		} else {
			f.Applied = true
			l.lastApplied = f.DeviceValue
			l.hasApplied = true
		}
	}

	now := f.Timestamp
	if !l.previousFrameTime.IsZero() {
		if dt := now.Sub(l.previousFrameTime).Seconds(); dt > 0 {
			f.FPS = 1 / dt
		}
	}
	l.previousFrameTime = now
}

func (l *Loop) emit(img Image, f Frame) {
	l.last = f
	if l.cfg.Renderer != nil {
		l.cfg.Renderer.Render(img, f)
	}
	for _, o := range l.cfg.Observers {
		o.ObserveFrame(f)
	}
	if l.cfg.Recorder != nil {
		l.cfg.Recorder.FrameProcessed(f)
	}
}

// advance applies the phase transition for this frame's signals.
func (l *Loop) advance(sig Signals) {
	next := Transition(l.phase, sig)
	if next == l.phase {
		return
	}

	switch next {
	case CalibratingMax:
		l.minRef = l.session.Confirm()
		l.log.Info("calibrated",
			zap.Stringer("target", l.minRef.Target),
			zap.Float64("distance", l.minRef.ReferenceValue),
			zap.Int("samples", l.minRef.Samples))
		l.session = calibration.NewSession(calibration.Max, l.cfg.WindowSize)
		l.log.Info("hold pose and confirm to calibrate", zap.String("pose", calibration.Max.Label()))

	case Running:
		maxRef := l.session.Confirm()
		l.log.Info("calibrated",
			zap.Stringer("target", maxRef.Target),
			zap.Float64("distance", maxRef.ReferenceValue),
			zap.Int("samples", maxRef.Samples))
		l.session = nil
		l.rng = calibration.NewRange(l.minRef, maxRef)
		l.previousFrameTime = time.Time{}

		fields := []zap.Field{
			zap.Float64("min", l.rng.MinDistance),
			zap.Float64("max", l.rng.MaxDistance),
		}
		switch {
		case l.rng.Degenerate():
			l.log.Warn("distance range is empty, level will stay at minimum", fields...)
		case l.rng.Inverted():
			l.log.Warn("distance range is inverted, level will stay at minimum", fields...)
		default:
			l.log.Info("using distance range", fields...)
		}

	case Stopped:
		l.log.Info("quit requested", zap.Uint64("frame", l.seq))
	}

	l.phase = next
}

func (l *Loop) captureFailed(err error) error {
	if l.cfg.Recorder != nil {
		l.cfg.Recorder.CaptureFailed()
	}

	if l.phase.Calibrating() {
		l.dropped++
		if l.dropped == 1 {
			l.log.Warn("dropped frame during calibration", zap.Error(err))
		}
		if l.cfg.RetryDelay > 0 {
			time.Sleep(l.cfg.RetryDelay)
		}
		return nil
	}

	return fmt.Errorf("%w: %w", ErrCaptureLost, err)
}

// Phase returns the current phase.
func (l *Loop) Phase() Phase {
	return l.phase
}

// Range returns the calibrated distance range. It is zero until the loop
// reaches Running.
func (l *Loop) Range() calibration.Range {
	return l.rng
}

// DeviceRange returns the sink's value range.
func (l *Loop) DeviceRange() (float64, float64) {
	return l.deviceMin, l.deviceMax
}

// Last returns the most recently processed frame.
func (l *Loop) Last() Frame {
	return l.last
}

// LastApplied returns the last value accepted by the sink.
func (l *Loop) LastApplied() (float64, bool) {
	return l.lastApplied, l.hasApplied
}
