package sink

import "sync"

// Mock records every level it is given.
type Mock struct {
	mu     sync.Mutex
	min    float64
	max    float64
	levels []float64
	err    error
	closed bool
}

// NewMock returns a recording sink with the given range.
func NewMock(min, max float64) *Mock {
	return &Mock{min: min, max: max}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Range() (float64, float64, error) {
	return m.min, m.max, nil
}

func (m *Mock) SetLevel(v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.err != nil {
		return m.err
	}
	if err := checkRange(v, m.min, m.max); err != nil {
		return err
	}
	m.levels = append(m.levels, v)
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetError makes subsequent SetLevel calls fail with err.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Levels returns a copy of the recorded levels.
func (m *Mock) Levels() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.levels...)
}

// Last returns the most recent level.
func (m *Mock) Last() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.levels) == 0 {
		return 0, false
	}
	return m.levels[len(m.levels)-1], true
}
