package gesture

import "gonum.org/v1/gonum/stat"

// DefaultWindowSize is the number of samples kept while calibrating.
const DefaultWindowSize = 30

// Window is a fixed-capacity FIFO of the most recent samples. Once full,
// each push evicts the oldest sample.
type Window struct {
	buf   []float64
	head  int
	count int
}

// NewWindow creates a Window holding up to size samples.
// Sizes below 1 fall back to DefaultWindowSize.
func NewWindow(size int) *Window {
	if size < 1 {
		size = DefaultWindowSize
	}
	return &Window{buf: make([]float64, size)}
}

// Push appends v, evicting the oldest sample when the window is full.
func (w *Window) Push(v float64) {
	tail := (w.head + w.count) % len(w.buf)
	w.buf[tail] = v

	if w.count < len(w.buf) {
		w.count++
		return
	}
	w.head = (w.head + 1) % len(w.buf)
}

// Len returns the number of buffered samples.
func (w *Window) Len() int {
	return w.count
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

// Values returns the buffered samples, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, w.count)
	for i := range out {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// Mean returns the arithmetic mean of the buffered samples, or 0 when empty.
func (w *Window) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return stat.Mean(w.Values(), nil)
}

// Reset discards all samples.
func (w *Window) Reset() {
	w.head = 0
	w.count = 0
}
