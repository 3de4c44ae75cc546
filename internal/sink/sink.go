// Package sink applies control values to output devices.
package sink

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnsupported is returned when no backend exists for the platform.
	ErrUnsupported = errors.New("sink: unsupported platform")

	// ErrOutOfRange is returned by SetLevel for values outside Range.
	ErrOutOfRange = errors.New("sink: level out of range")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("sink: closed")
)

// Sink is an output device with a fixed value range.
type Sink interface {
	Name() string
	Range() (min, max float64, err error)
	SetLevel(v float64) error
	Close() error
}

func checkRange(v, lo, hi float64) error {
	if lo > hi {
		lo, hi = hi, lo
	}
	if math.IsNaN(v) || v < lo || v > hi {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, v, lo, hi)
	}
	return nil
}
