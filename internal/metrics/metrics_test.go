package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ayusman/handvolume/internal/control"
)

func TestMetrics_FrameProcessed(t *testing.T) {
	m := New()

	m.FrameProcessed(control.Frame{Phase: control.CalibratingMin})
	m.FrameProcessed(control.Frame{Phase: control.CalibratingMin, Detected: true, RawDistance: 18})
	m.FrameProcessed(control.Frame{
		Phase:           control.Running,
		Detected:        true,
		RawDistance:     110,
		AdjustedPercent: 29,
		DeviceValue:     -46.3275,
		Applied:         true,
		FPS:             30,
	})
	m.FrameProcessed(control.Frame{Phase: control.Running, Detected: true, RawDistance: 120, AdjustedPercent: 40})

	if got := m.FramesProcessed.Load(); got != 4 {
		t.Errorf("FramesProcessed = %d, want 4", got)
	}
	if got := m.FramesDetected.Load(); got != 3 {
		t.Errorf("FramesDetected = %d, want 3", got)
	}
	if got := m.LevelUpdates.Load(); got != 1 {
		t.Errorf("LevelUpdates = %d, want 1", got)
	}
	if got := m.DeviceValue.Load(); got != -46.3275 {
		t.Errorf("DeviceValue = %v", got)
	}
	if got := m.AdjustedPercent.Load(); got != 29 {
		t.Errorf("AdjustedPercent = %d, want value of last applied frame", got)
	}
	if got := m.RawDistance.Load(); got != 120 {
		t.Errorf("RawDistance = %v, want 120", got)
	}
	if got := control.Phase(m.Phase.Load()); got != control.Running {
		t.Errorf("Phase = %v", got)
	}
}

func TestMetrics_Failures(t *testing.T) {
	m := New()

	m.CaptureFailed()
	m.CaptureFailed()
	m.EstimateFailed()
	m.SinkFailed()

	if m.CaptureErrors.Load() != 2 || m.EstimateErrors.Load() != 1 || m.SinkErrors.Load() != 1 {
		t.Errorf("errors = %d/%d/%d", m.CaptureErrors.Load(), m.EstimateErrors.Load(), m.SinkErrors.Load())
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.FrameProcessed(control.Frame{Phase: control.Running, Detected: true, Applied: true, DeviceValue: 42})
	m.SinkFailed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		"handvolume_frames_processed_total 1",
		"handvolume_level_updates_total 1",
		"handvolume_sink_errors_total 1",
		"handvolume_device_value 42",
		"handvolume_phase 2",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

var _ control.Recorder = (*Metrics)(nil)
