package sink

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Command sinks accept integer percentages.
const (
	PercentMin = 0
	PercentMax = 100
)

// DefaultTimeout bounds a single mixer invocation.
const DefaultTimeout = 2 * time.Second

// RunFunc executes an external program and returns its combined output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRun runs the program with os/exec.
func ExecRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Command sets the level by running a mixer program with a 0..100 argument.
// Every request runs the mixer, even when the level has not changed.
type Command struct {
	name    string
	program string
	args    func(level int) []string
	run     RunFunc
	timeout time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
}

// CommandOptions tune a Command sink. Zero values take defaults.
type CommandOptions struct {
	Run     RunFunc
	Timeout time.Duration
	Logger  *zap.Logger
}

func newCommand(name, program string, args func(int) []string, opts CommandOptions) *Command {
	if opts.Run == nil {
		opts.Run = ExecRun
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Command{
		name:    name,
		program: program,
		args:    args,
		run:     opts.Run,
		timeout: opts.Timeout,
		log:     opts.Logger.With(zap.String("sink", name)),
	}
}

// NewOsascript returns the macOS sink.
func NewOsascript(opts CommandOptions) *Command {
	return newCommand("osascript", "osascript", func(level int) []string {
		return []string{"-e", fmt.Sprintf("set volume output volume %d", level)}
	}, opts)
}

// NewAmixer returns the ALSA sink driving the given mixer control.
func NewAmixer(control string, opts CommandOptions) *Command {
	if control == "" {
		control = "Master"
	}
	return newCommand("amixer", "amixer", func(level int) []string {
		return []string{"-q", "sset", control, fmt.Sprintf("%d%%", level)}
	}, opts)
}

// NewSystem picks the mixer for the running platform.
func NewSystem(amixerControl string, opts CommandOptions) (*Command, error) {
	switch runtime.GOOS {
	case "darwin":
		return NewOsascript(opts), nil
	case "linux":
		return NewAmixer(amixerControl, opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
	}
}

func (c *Command) Name() string {
	return c.name
}

// Range is always 0..100.
func (c *Command) Range() (float64, float64, error) {
	return PercentMin, PercentMax, nil
}

// SetLevel rounds v to the nearest percent and runs the mixer.
func (c *Command) SetLevel(v float64) error {
	if err := checkRange(v, PercentMin, PercentMax); err != nil {
		return err
	}
	level := int(math.Round(v))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	args := c.args(level)
	if out, err := c.run(ctx, c.program, args...); err != nil {
		return fmt.Errorf("%s %v: %w: %s", c.program, args, err, out)
	}

	c.log.Debug("level set", zap.Int("percent", level))
	return nil
}

func (c *Command) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
