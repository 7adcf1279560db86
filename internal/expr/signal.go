package expr

// Role classifies a signal within a model.
type Role int

const (
	Internal Role = iota
	AnalogInput
	AnalogOutput
	AnalogState
	DigitalInput
	DigitalOutput
	DigitalState
)

func (r Role) String() string {
	switch r {
	case AnalogInput:
		return "analog input"
	case AnalogOutput:
		return "analog output"
	case AnalogState:
		return "analog state"
	case DigitalInput:
		return "digital input"
	case DigitalOutput:
		return "digital output"
	case DigitalState:
		return "digital state"
	default:
		return "internal"
	}
}

// Signal is a named quantity in a model. Signals are owned by the model's
// catalog; expressions reference them by handle.
type Signal struct {
	Name string
	Role Role
	Fmt  Format
	Init float64

	// CopyFrom optionally names another signal whose (possibly
	// parameterized) analog format this signal inherits, for backends that
	// carry formats as parameters rather than literal ranges.
	CopyFrom *Signal
}

func (s *Signal) isExpr() {}

// Format returns the signal's declared format.
func (s *Signal) Format() Format { return s.Fmt }

// IsInput reports whether the signal is a module input.
func (s *Signal) IsInput() bool {
	return s.Role == AnalogInput || s.Role == DigitalInput
}

// IsOutput reports whether the signal is a module output.
func (s *Signal) IsOutput() bool {
	return s.Role == AnalogOutput || s.Role == DigitalOutput
}

// IsIO reports whether the signal is part of the module interface.
func (s *Signal) IsIO() bool { return s.IsInput() || s.IsOutput() }

// IsAnalog reports whether the signal carries a real-valued format.
func (s *Signal) IsAnalog() bool {
	_, ok := s.Fmt.(RealFormat)
	return ok
}

// IsSelectorBit reports whether the signal can address a case table:
// a one-bit unsigned digital signal.
func (s *Signal) IsSelectorBit() bool {
	f, ok := s.Fmt.(IntFormat)
	return ok && f.Width == 1 && !f.Signed
}

// NewAnalogSignal returns an internal analog signal bounded by rng.
func NewAnalogSignal(name string, rng float64) *Signal {
	return &Signal{Name: name, Fmt: RealFormat{Range: rng}}
}

// NewDigitalSignal returns an internal digital signal.
func NewDigitalSignal(name string, width int, signed bool) *Signal {
	return &Signal{Name: name, Fmt: IntFormat{Width: width, Signed: signed}}
}
