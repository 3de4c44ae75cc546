// Package metrics exposes control loop counters to Prometheus.
package metrics

import (
	"math"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/handvolume/internal/control"
)

// float64 stored as bits so it can be read lock-free by the collector.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }
func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }

// Metrics implements control.Recorder.
type Metrics struct {
	// Frame counters
	FramesProcessed atomic.Uint64
	FramesDetected  atomic.Uint64
	LevelUpdates    atomic.Uint64

	// Error counters
	CaptureErrors  atomic.Uint64
	EstimateErrors atomic.Uint64
	SinkErrors     atomic.Uint64

	// Telemetry
	TelemetryDropped atomic.Uint64

	// Latest frame
	Phase           atomic.Int64
	RawDistance     atomicFloat
	AdjustedPercent atomic.Int64
	DeviceValue     atomicFloat
	FPS             atomicFloat

	registry *prometheus.Registry
}

// New creates a new Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) gauge(name, help string, f func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: "handvolume", Name: name, Help: help},
		f,
	))
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Namespace: "handvolume", Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) registerPrometheusMetrics() {
	m.counter("frames_processed_total", "Frames processed by the control loop", &m.FramesProcessed)
	m.counter("frames_detected_total", "Frames in which a hand was tracked", &m.FramesDetected)
	m.counter("level_updates_total", "Levels accepted by the output sink", &m.LevelUpdates)

	m.counter("capture_errors_total", "Frame capture failures", &m.CaptureErrors)
	m.counter("estimate_errors_total", "Landmark estimation failures", &m.EstimateErrors)
	m.counter("sink_errors_total", "Output sink failures", &m.SinkErrors)
	m.counter("telemetry_dropped_total", "Telemetry frames dropped for slow subscribers", &m.TelemetryDropped)

	m.gauge("phase", "Loop phase (0=calibrating_min 1=calibrating_max 2=running 3=stopped)",
		func() float64 { return float64(m.Phase.Load()) })
	m.gauge("raw_distance_pixels", "Thumb to index distance on the last tracked frame",
		func() float64 { return m.RawDistance.Load() })
	m.gauge("adjusted_percent", "Curve-adjusted level on the last tracked frame",
		func() float64 { return float64(m.AdjustedPercent.Load()) })
	m.gauge("device_value", "Last value sent to the output sink",
		func() float64 { return m.DeviceValue.Load() })
	m.gauge("fps", "Frame rate while running",
		func() float64 { return m.FPS.Load() })
}

// FrameProcessed records one loop frame.
func (m *Metrics) FrameProcessed(f control.Frame) {
	m.FramesProcessed.Add(1)
	m.Phase.Store(int64(f.Phase))
	m.FPS.Store(f.FPS)

	if !f.Detected {
		return
	}
	m.FramesDetected.Add(1)
	m.RawDistance.Store(f.RawDistance)

	if f.Applied {
		m.LevelUpdates.Add(1)
		m.AdjustedPercent.Store(int64(f.AdjustedPercent))
		m.DeviceValue.Store(f.DeviceValue)
	}
}

func (m *Metrics) CaptureFailed()  { m.CaptureErrors.Add(1) }
func (m *Metrics) EstimateFailed() { m.EstimateErrors.Add(1) }
func (m *Metrics) SinkFailed()     { m.SinkErrors.Add(1) }

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
