package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"gocv.io/x/gocv"

	"github.com/ayusman/handvolume/internal/capture"
	"github.com/ayusman/handvolume/internal/config"
	"github.com/ayusman/handvolume/internal/control"
	"github.com/ayusman/handvolume/internal/detector"
	"github.com/ayusman/handvolume/internal/input"
	"github.com/ayusman/handvolume/internal/sink"
)

func headlessConfig(t *testing.T) config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.UI.Mode = config.UIHeadless
	cfg.Sink.Backend = config.SinkMock
	cfg.Store.Path = filepath.Join(t.TempDir(), "runs.db")
	cfg.Server.Enabled = false
	return cfg
}

func repeatHands(n int, h detector.HandLandmarks) [][]detector.HandLandmarks {
	seq := make([][]detector.HandLandmarks, n)
	for i := range seq {
		seq[i] = []detector.HandLandmarks{h}
	}
	return seq
}

func TestApp_CalibrateAndControl(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	camera := capture.NewMockCamera([]*gocv.Mat{&frame}, true)

	det := detector.NewMockDetector()
	seq := append(repeatHands(3, detector.FistLandmarks()), repeatHands(3, detector.OpenHandLandmarks())...)
	det.SetSequence(seq)
	// 80px apart on a 640px wide frame.
	det.SetHands([]detector.HandLandmarks{detector.PinchLandmarks(
		detector.Point3D{X: 0.25, Y: 0.5},
		detector.Point3D{X: 0.375, Y: 0.5},
	)})

	script := make([]control.Signals, 9)
	script[2] = control.Signals{ConfirmMin: true}
	script[5] = control.Signals{ConfirmMax: true}
	script[8] = control.Signals{Quit: true}

	out := sink.NewMock(0, 100)
	a, err := New(headlessConfig(t), zaptest.NewLogger(t), Deps{
		Camera:   camera,
		Detector: det,
		Sink:     out,
		Signals:  input.NewScripted(script...),
		Stdin:    strings.NewReader(""),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if a.Loop().Phase() != control.Stopped {
		t.Errorf("phase = %v, want stopped", a.Loop().Phase())
	}

	rng := a.Loop().Range()
	if rng.MinDistance >= rng.MaxDistance {
		t.Errorf("range = %+v, want min < max", rng)
	}

	levels := out.Levels()
	if len(levels) != 3 {
		t.Fatalf("sink levels = %v, want 3 updates", levels)
	}
	for _, v := range levels {
		if v != 24 {
			t.Errorf("level = %v, want 24", v)
		}
	}

	if got := a.Metrics().FramesProcessed.Load(); got != 9 {
		t.Errorf("frames processed = %d, want 9", got)
	}
	if got := a.Metrics().LevelUpdates.Load(); got != 3 {
		t.Errorf("level updates = %d, want 3", got)
	}

	last, ok := a.Hub().Latest()
	if !ok || last.Phase != control.Running || last.AdjustedPercent != 24 {
		t.Errorf("latest telemetry = %+v", last)
	}

	run, err := a.Store().Runs().Get(a.RunID())
	if err != nil {
		t.Fatalf("stored run: %v", err)
	}
	if run.EndReason != EndQuit || run.Frames != 9 || run.Updates != 3 || run.Sink != "mock" {
		t.Errorf("stored run = %+v", run)
	}

	events, err := a.Store().Runs().Events(a.RunID())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 || events[2].Phase != "running" || events[2].Frame != 7 {
		t.Errorf("events = %+v", events)
	}
}

func TestApp_Cancel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})

	a, err := New(headlessConfig(t), zaptest.NewLogger(t), Deps{
		Camera:   capture.NewMockCamera([]*gocv.Mat{&frame}, true),
		Detector: det,
		Sink:     sink.NewMock(0, 100),
		Stdin:    strings.NewReader(""),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v, want nil on cancel", err)
	}
	if a.Loop().Phase() != control.CalibratingMin {
		t.Errorf("phase = %v, want calibrating_min", a.Loop().Phase())
	}

	run, err := a.Store().Runs().Get(a.RunID())
	if err != nil {
		t.Fatal(err)
	}
	if run.EndReason != EndCancelled || run.Updates != 0 {
		t.Errorf("stored run = %+v", run)
	}
}

func TestApp_CaptureLost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	// Playback ends after calibration, which is fatal once running.
	camera := capture.NewMockCamera([]*gocv.Mat{&frame, &frame, &frame}, false)

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})

	a, err := New(headlessConfig(t), zaptest.NewLogger(t), Deps{
		Camera:   camera,
		Detector: det,
		Sink:     sink.NewMock(0, 100),
		Signals: input.NewScripted(
			control.Signals{ConfirmMin: true},
			control.Signals{ConfirmMax: true},
		),
		Stdin: strings.NewReader(""),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	err = a.Run(context.Background())
	if !errors.Is(err, control.ErrCaptureLost) || !errors.Is(err, capture.ErrNoMoreFrames) {
		t.Fatalf("Run() error = %v, want ErrCaptureLost wrapping ErrNoMoreFrames", err)
	}

	run, err := a.Store().Runs().Get(a.RunID())
	if err != nil {
		t.Fatal(err)
	}
	if run.EndReason != EndCaptureLost {
		t.Errorf("end reason = %q, want %q", run.EndReason, EndCaptureLost)
	}
}
