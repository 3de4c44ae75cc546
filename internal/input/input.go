// Package input turns operator events into per-frame control signals.
package input

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ayusman/handvolume/internal/control"
)

// Keys maps single characters to the three operator signals.
type Keys struct {
	ConfirmMin byte
	ConfirmMax byte
	Quit       byte
}

// DefaultKeys returns m, x and q.
func DefaultKeys() Keys {
	return Keys{ConfirmMin: 'm', ConfirmMax: 'x', Quit: 'q'}
}

// KeysFrom builds Keys from single-character strings, falling back to the
// defaults for empty values.
func KeysFrom(minKey, maxKey, quitKey string) Keys {
	k := DefaultKeys()
	if minKey != "" {
		k.ConfirmMin = minKey[0]
	}
	if maxKey != "" {
		k.ConfirmMax = maxKey[0]
	}
	if quitKey != "" {
		k.Quit = quitKey[0]
	}
	return k
}

// Decode maps a key code, as returned by a highgui WaitKey, to signals.
// Only the low byte is significant; -1 means no key.
func (k Keys) Decode(code int) control.Signals {
	if code < 0 {
		return control.Signals{}
	}
	b := byte(code & 0xFF)
	return control.Signals{
		ConfirmMin: b == k.ConfirmMin,
		ConfirmMax: b == k.ConfirmMax,
		Quit:       b == k.Quit,
	}
}

// Latch collects signals from any goroutine until the next Poll.
type Latch struct {
	min  atomic.Bool
	max  atomic.Bool
	quit atomic.Bool
}

// Trigger sets every signal that is true in s.
func (l *Latch) Trigger(s control.Signals) {
	if s.ConfirmMin {
		l.min.Store(true)
	}
	if s.ConfirmMax {
		l.max.Store(true)
	}
	if s.Quit {
		l.quit.Store(true)
	}
}

// Poll returns and clears the latched signals.
func (l *Latch) Poll() control.Signals {
	return control.Signals{
		ConfirmMin: l.min.Swap(false),
		ConfirmMax: l.max.Swap(false),
		Quit:       l.quit.Swap(false),
	}
}

// Keyboard latches key presses reported by a window.
type Keyboard struct {
	keys  Keys
	latch Latch
}

// NewKeyboard returns a keyboard source using keys.
func NewKeyboard(keys Keys) *Keyboard {
	return &Keyboard{keys: keys}
}

// HandleKey records a WaitKey result.
func (k *Keyboard) HandleKey(code int) {
	k.latch.Trigger(k.keys.Decode(code))
}

// Poll returns and clears the signals from recorded keys.
func (k *Keyboard) Poll() control.Signals {
	return k.latch.Poll()
}

// Lines reads newline-terminated commands from r into a latch. The first
// character of each line is decoded with keys; "quit" and "exit" also quit.
// It returns when r is exhausted.
func Lines(r io.Reader, keys Keys, latch *Latch) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit":
			latch.Trigger(control.Signals{Quit: true})
			continue
		}
		latch.Trigger(keys.Decode(int(line[0])))
	}
	return sc.Err()
}

// Scripted replays a fixed sequence, one entry per poll, then reports
// nothing.
type Scripted struct {
	mu    sync.Mutex
	seq   []control.Signals
	polls int
}

// NewScripted returns a source replaying seq.
func NewScripted(seq ...control.Signals) *Scripted {
	return &Scripted{seq: seq}
}

// At returns a script that fires s on poll n (1-based) and is silent
// elsewhere.
func At(n int, s control.Signals) []control.Signals {
	if n < 1 {
		return nil
	}
	seq := make([]control.Signals, n)
	seq[n-1] = s
	return seq
}

// Poll returns the next scripted entry, or no signals once exhausted.
func (s *Scripted) Poll() control.Signals {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.polls++
	if s.polls > len(s.seq) {
		return control.Signals{}
	}
	return s.seq[s.polls-1]
}

// Polls returns how many times Poll has been called.
func (s *Scripted) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Combined merges several sources. Every source is polled each frame.
type Combined []control.SignalSource

// Poll ORs together the signals of every source.
func (c Combined) Poll() control.Signals {
	var out control.Signals
	for _, src := range c {
		s := src.Poll()
		out.ConfirmMin = out.ConfirmMin || s.ConfirmMin
		out.ConfirmMax = out.ConfirmMax || s.ConfirmMax
		out.Quit = out.Quit || s.Quit
	}
	return out
}
