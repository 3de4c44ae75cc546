package store

import (
	"sync"
	"time"

	"github.com/ayusman/handvolume/internal/control"
)

// RunRecorder accumulates one run's counters in memory as frames arrive and
// writes them on Finish. It implements control.Observer.
type RunRecorder struct {
	repo *RunRepository

	mu       sync.Mutex
	run      Run
	events   []Event
	phase    control.Phase
	seen     bool
	finished bool
}

// StartRun inserts a new run row for sinkName and returns its recorder.
func (s *Store) StartRun(sinkName string) (*RunRecorder, error) {
	rec := &RunRecorder{
		repo: s.Runs(),
		run:  Run{Sink: sinkName},
	}
	if err := rec.repo.Create(&rec.run); err != nil {
		return nil, err
	}
	return rec, nil
}

// ObserveFrame counts f and notes phase changes.
func (r *RunRecorder) ObserveFrame(f control.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return
	}

	r.run.Frames++
	if f.Detected {
		r.run.Detected++
	}
	if f.Applied {
		r.run.Updates++
		v := f.DeviceValue
		r.run.FinalLevel = &v
	}

	if !r.seen || f.Phase != r.phase {
		at := f.Timestamp
		if at.IsZero() {
			at = time.Now()
		}
		r.events = append(r.events, Event{Phase: f.Phase.String(), Frame: f.Seq, At: at})
		r.phase = f.Phase
		r.seen = true
	}
}

// ID returns the run's identifier.
func (r *RunRecorder) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run.ID
}

// Snapshot returns a copy of the run's current counters.
func (r *RunRecorder) Snapshot() Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run
}

// Finish stores the run with the given end reason. Later calls are no-ops.
func (r *RunRecorder) Finish(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return nil
	}
	r.finished = true
	r.run.EndReason = reason

	return r.repo.Finish(&r.run, r.events)
}
