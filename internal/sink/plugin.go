package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/handvolume/internal/plugin"
)

// Plugin forwards levels to an external plugin over its JSON protocol.
// The range is fetched once and cached.
type Plugin struct {
	exec   *plugin.Executor
	plugin *plugin.Plugin

	mu       sync.Mutex
	min, max float64
	ranged   bool
	closed   bool
}

// NewPlugin looks up name in mgr and checks it speaks the sink actions.
func NewPlugin(mgr *plugin.Manager, name string, timeout time.Duration) (*Plugin, error) {
	p, err := mgr.Require(name, plugin.ActionGetRange, plugin.ActionSetLevel)
	if err != nil {
		return nil, fmt.Errorf("plugin sink: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Plugin{
		exec:   plugin.NewExecutor(timeout),
		plugin: p,
	}, nil
}

func (p *Plugin) Name() string {
	return "plugin:" + p.plugin.Manifest.Name
}

func (p *Plugin) Range() (float64, float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rangeLocked()
}

func (p *Plugin) rangeLocked() (float64, float64, error) {
	if p.ranged {
		return p.min, p.max, nil
	}

	var data plugin.RangeData
	if err := p.exec.Call(context.Background(), p.plugin, plugin.ActionGetRange, nil, &data); err != nil {
		return 0, 0, err
	}
	p.min, p.max, p.ranged = data.Min, data.Max, true
	return p.min, p.max, nil
}

func (p *Plugin) SetLevel(v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	lo, hi, err := p.rangeLocked()
	if err != nil {
		return err
	}
	if err := checkRange(v, lo, hi); err != nil {
		return err
	}

	return p.exec.Call(context.Background(), p.plugin, plugin.ActionSetLevel, plugin.LevelParams{Value: v}, nil)
}

func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
