package control

import "fmt"

// Phase is the loop's top-level state.
type Phase int

const (
	CalibratingMin Phase = iota
	CalibratingMax
	Running
	Stopped
)

var phaseNames = map[Phase]string{
	CalibratingMin: "calibrating_min",
	CalibratingMax: "calibrating_max",
	Running:        "running",
	Stopped:        "stopped",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Calibrating reports whether p is one of the calibration phases.
func (p Phase) Calibrating() bool {
	return p == CalibratingMin || p == CalibratingMax
}

// Transition returns the phase that follows p given this frame's signals.
// Each phase only reacts to its own signal.
func Transition(p Phase, s Signals) Phase {
	switch p {
	case CalibratingMin:
		if s.ConfirmMin {
			return CalibratingMax
		}
	case CalibratingMax:
		if s.ConfirmMax {
			return Running
		}
	case Running:
		if s.Quit {
			return Stopped
		}
	}
	return p
}
