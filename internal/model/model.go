package model

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/nsulzer/msdsl/internal/expr"
)

// Model is a mixed-signal model under description: a catalog of signals, the
// assignments driving them, and the sample interval shared by all continuous
// dynamics. Declaration happens single-threaded; mu serializes the
// multi-assignment compilation entry points (AddEqnSys,
// SetTransferFunction), which are not safe to interleave.
type Model struct {
	Name string
	DT   float64

	mu          sync.Mutex
	signals     map[string]*expr.Signal
	order       []string
	assignments map[string]*Assignment
	assignOrder []string
	probes      []*expr.Signal
	namer       *Namer
}

// New creates a model with the given module name, sample interval (zero when
// the model has no continuous dynamics) and IO signals.
func New(name string, dt float64, ios ...*expr.Signal) (*Model, error) {
	m := &Model{
		Name:        name,
		DT:          dt,
		signals:     make(map[string]*expr.Signal),
		assignments: make(map[string]*Assignment),
		namer:       NewNamer(),
	}
	for _, io := range ios {
		if !io.IsIO() {
			return nil, errors.Wrapf(ErrDeclaration, "signal %s has role %s, not an IO role", io.Name, io.Role)
		}
		if _, err := m.AddSignal(io); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AddSignal declares a signal. The name must be unused.
func (m *Model) AddSignal(s *expr.Signal) (*expr.Signal, error) {
	if err := m.namer.Add(s.Name); err != nil {
		return nil, err
	}
	m.signals[s.Name] = s
	m.order = append(m.order, s.Name)
	return s, nil
}

// AddAnalogInput declares an analog module input.
func (m *Model) AddAnalogInput(name string) (*expr.Signal, error) {
	return m.AddSignal(&expr.Signal{Name: name, Role: expr.AnalogInput, Fmt: expr.RealFormat{}})
}

// AddAnalogOutput declares an analog module output.
func (m *Model) AddAnalogOutput(name string, init float64) (*expr.Signal, error) {
	return m.AddSignal(&expr.Signal{Name: name, Role: expr.AnalogOutput, Fmt: expr.RealFormat{}, Init: init})
}

// AddAnalogState declares an internal analog state bounded by rng.
func (m *Model) AddAnalogState(name string, rng, init float64) (*expr.Signal, error) {
	return m.AddSignal(&expr.Signal{Name: name, Role: expr.AnalogState, Fmt: expr.RealFormat{Range: rng}, Init: init})
}

// AddDigitalInput declares a digital module input.
func (m *Model) AddDigitalInput(name string, width int, signed bool) (*expr.Signal, error) {
	return m.AddSignal(&expr.Signal{Name: name, Role: expr.DigitalInput, Fmt: expr.IntFormat{Width: width, Signed: signed}})
}

// AddDigitalOutput declares a digital module output.
func (m *Model) AddDigitalOutput(name string, width int, signed bool, init float64) (*expr.Signal, error) {
	return m.AddSignal(&expr.Signal{Name: name, Role: expr.DigitalOutput, Fmt: expr.IntFormat{Width: width, Signed: signed}, Init: init})
}

// AddDigitalState declares an internal digital state.
func (m *Model) AddDigitalState(name string, width int, signed bool, init float64) (*expr.Signal, error) {
	return m.AddSignal(&expr.Signal{Name: name, Role: expr.DigitalState, Fmt: expr.IntFormat{Width: width, Signed: signed}, Init: init})
}

// Signal looks up a declared signal by name.
func (m *Model) Signal(name string) (*expr.Signal, bool) {
	s, ok := m.signals[name]
	return s, ok
}

// Signals returns the declared signals in declaration order.
func (m *Model) Signals() []*expr.Signal {
	out := make([]*expr.Signal, len(m.order))
	for i, name := range m.order {
		out[i] = m.signals[name]
	}
	return out
}

// Assignment looks up the assignment driving a signal.
func (m *Model) Assignment(name string) (*Assignment, bool) {
	a, ok := m.assignments[name]
	return a, ok
}

func (m *Model) addAssignment(a *Assignment) error {
	name := a.Signal.Name
	if _, ok := m.assignments[name]; ok {
		return errors.Wrapf(ErrDeclaration, "the signal %s has already been assigned", name)
	}
	m.assignments[name] = a
	m.assignOrder = append(m.assignOrder, name)
	return nil
}

// SetThisCycle drives the signal combinationally from the expression.
func (m *Model) SetThisCycle(s *expr.Signal, e expr.Expr) error {
	return m.addAssignment(&Assignment{Signal: s, Expr: e, Timing: ThisCycle})
}

// SetNextCycle drives the signal from the expression on the next clock edge.
func (m *Model) SetNextCycle(s *expr.Signal, e expr.Expr) error {
	return m.addAssignment(&Assignment{Signal: s, Expr: e, Timing: NextCycle})
}

// BindName declares a fresh signal holding the expression's value, with the
// expression's derived format, and returns it.
func (m *Model) BindName(name string, e expr.Expr) (*expr.Signal, error) {
	s := &expr.Signal{Name: name, Fmt: e.Format()}
	if _, err := m.AddSignal(s); err != nil {
		return nil, err
	}
	if err := m.addAssignment(&Assignment{Signal: s, Expr: e, Timing: Binding}); err != nil {
		return nil, err
	}
	return s, nil
}

// AddProbe registers a signal for debug probing in the generated artifact.
func (m *Model) AddProbe(s *expr.Signal) {
	m.probes = append(m.probes, s)
}
