package sink

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/ayusman/handvolume/internal/plugin"
)

type invocation struct {
	program string
	args    []string
}

type fakeRunner struct {
	calls []invocation
	err   error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("missing deadline")
	}
	f.calls = append(f.calls, invocation{program: name, args: args})
	if f.err != nil {
		return []byte("mixer exploded"), f.err
	}
	return nil, nil
}

func TestCommand_Osascript(t *testing.T) {
	r := &fakeRunner{}
	s := NewOsascript(CommandOptions{Run: r.run, Logger: zaptest.NewLogger(t)})

	if lo, hi, err := s.Range(); err != nil || lo != 0 || hi != 100 {
		t.Fatalf("Range() = %v, %v, %v", lo, hi, err)
	}

	if err := s.SetLevel(29.4); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}

	want := invocation{program: "osascript", args: []string{"-e", "set volume output volume 29"}}
	if len(r.calls) != 1 || !reflect.DeepEqual(r.calls[0], want) {
		t.Errorf("calls = %+v, want %+v", r.calls, want)
	}
	if s.Name() != "osascript" {
		t.Errorf("Name() = %q", s.Name())
	}
}

func TestCommand_Amixer(t *testing.T) {
	tests := []struct {
		name    string
		control string
		level   float64
		want    []string
	}{
		{name: "default control", control: "", level: 50, want: []string{"-q", "sset", "Master", "50%"}},
		{name: "custom control", control: "PCM", level: 99.6, want: []string{"-q", "sset", "PCM", "100%"}},
		{name: "zero", control: "Master", level: 0, want: []string{"-q", "sset", "Master", "0%"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{}
			s := NewAmixer(tt.control, CommandOptions{Run: r.run})

			if err := s.SetLevel(tt.level); err != nil {
				t.Fatalf("SetLevel() error = %v", err)
			}
			if len(r.calls) != 1 || r.calls[0].program != "amixer" || !reflect.DeepEqual(r.calls[0].args, tt.want) {
				t.Errorf("calls = %+v, want amixer %v", r.calls, tt.want)
			}
		})
	}
}

func TestCommand_RepeatsUnchangedLevel(t *testing.T) {
	r := &fakeRunner{}
	s := NewAmixer("", CommandOptions{Run: r.run})

	for i := 0; i < 5; i++ {
		if err := s.SetLevel(29); err != nil {
			t.Fatalf("SetLevel() error = %v", err)
		}
	}

	if len(r.calls) != 5 {
		t.Fatalf("ran mixer %d times, want 5", len(r.calls))
	}
	want := []string{"-q", "sset", "Master", "29%"}
	for i, c := range r.calls {
		if !reflect.DeepEqual(c.args, want) {
			t.Errorf("call %d args = %v, want %v", i, c.args, want)
		}
	}
}

func TestCommand_Errors(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1")}
	s := NewOsascript(CommandOptions{Run: r.run})

	err := s.SetLevel(10)
	if err == nil || !strings.Contains(err.Error(), "mixer exploded") {
		t.Errorf("SetLevel() error = %v, want mixer output", err)
	}

	// A failed level is retried on the next call.
	r.err = nil
	if err := s.SetLevel(10); err != nil {
		t.Errorf("retry error = %v", err)
	}
	if len(r.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(r.calls))
	}

	for _, v := range []float64{-1, 100.5, math.NaN()} {
		if err := s.SetLevel(v); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SetLevel(%v) error = %v, want ErrOutOfRange", v, err)
		}
	}

	s.Close()
	if err := s.SetLevel(20); !errors.Is(err, ErrClosed) {
		t.Errorf("SetLevel after Close error = %v, want ErrClosed", err)
	}
}

func TestNewSystem(t *testing.T) {
	s, err := NewSystem("Master", CommandOptions{})

	switch runtime.GOOS {
	case "darwin":
		if err != nil || s.Name() != "osascript" {
			t.Errorf("NewSystem() = %v, %v", s, err)
		}
	case "linux":
		if err != nil || s.Name() != "amixer" {
			t.Errorf("NewSystem() = %v, %v", s, err)
		}
	default:
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("NewSystem() error = %v, want ErrUnsupported", err)
		}
	}
}

func TestMock(t *testing.T) {
	m := NewMock(-65.25, 0)

	if _, ok := m.Last(); ok {
		t.Error("Last() on fresh mock should report nothing")
	}

	for _, v := range []float64{-65.25, -46.3275, 0} {
		if err := m.SetLevel(v); err != nil {
			t.Fatalf("SetLevel(%v) error = %v", v, err)
		}
	}
	if got := m.Levels(); !reflect.DeepEqual(got, []float64{-65.25, -46.3275, 0}) {
		t.Errorf("Levels() = %v", got)
	}
	if last, _ := m.Last(); last != 0 {
		t.Errorf("Last() = %v", last)
	}

	if err := m.SetLevel(1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetLevel(1) error = %v, want ErrOutOfRange", err)
	}

	boom := errors.New("device busy")
	m.SetError(boom)
	if err := m.SetLevel(-1); !errors.Is(err, boom) {
		t.Errorf("SetLevel() error = %v, want %v", err, boom)
	}
}

const pluginScript = `#!/bin/sh
INPUT=$(cat)
echo "$INPUT" >> requests.log
case "$INPUT" in
  *get-range*) echo '{"success":true,"data":{"min":-65.25,"max":0}}' ;;
  *set-level*) echo '{"success":true}' ;;
  *) echo '{"success":false,"error":"unknown action"}' ;;
esac
`

func installPlugin(t *testing.T, actions ...string) (*plugin.Manager, string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	root := t.TempDir()
	dir := filepath.Join(root, "volume")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "volume.sh"), []byte(pluginScript), 0755); err != nil {
		t.Fatal(err)
	}

	manifest, _ := json.Marshal(plugin.Manifest{
		Name:       "volume",
		Executable: "volume.sh",
		Actions:    actions,
	})
	if err := os.WriteFile(filepath.Join(dir, plugin.ManifestFile), manifest, 0644); err != nil {
		t.Fatal(err)
	}

	mgr := plugin.NewManager(root, zaptest.NewLogger(t))
	if err := mgr.Discover(); err != nil {
		t.Fatal(err)
	}
	return mgr, dir
}

func TestPlugin_RoundTrip(t *testing.T) {
	mgr, dir := installPlugin(t, plugin.ActionGetRange, plugin.ActionSetLevel)

	s, err := NewPlugin(mgr, "volume", 5*time.Second)
	if err != nil {
		t.Fatalf("NewPlugin() error = %v", err)
	}
	defer s.Close()

	lo, hi, err := s.Range()
	if err != nil || lo != -65.25 || hi != 0 {
		t.Fatalf("Range() = %v, %v, %v", lo, hi, err)
	}
	if s.Name() != "plugin:volume" {
		t.Errorf("Name() = %q", s.Name())
	}

	if err := s.SetLevel(-46.3275); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if err := s.SetLevel(5); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetLevel(5) error = %v, want ErrOutOfRange", err)
	}

	log, err := os.ReadFile(filepath.Join(dir, "requests.log"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(log)), "\n")
	// The range is fetched once and cached.
	if len(lines) != 2 {
		t.Fatalf("plugin saw %d requests, want 2: %q", len(lines), lines)
	}

	var req struct {
		Action string             `json:"action"`
		Params plugin.LevelParams `json:"params"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &req); err != nil {
		t.Fatal(err)
	}
	if req.Action != plugin.ActionSetLevel || req.Params.Value != -46.3275 {
		t.Errorf("request = %+v", req)
	}
}

func TestNewPlugin_Errors(t *testing.T) {
	mgr, _ := installPlugin(t, plugin.ActionGetRange)

	if _, err := NewPlugin(mgr, "volume", time.Second); !errors.Is(err, plugin.ErrActionUnsupported) {
		t.Errorf("error = %v, want ErrActionUnsupported", err)
	}
	if _, err := NewPlugin(mgr, "absent", time.Second); !errors.Is(err, plugin.ErrPluginNotFound) {
		t.Errorf("error = %v, want ErrPluginNotFound", err)
	}
}
