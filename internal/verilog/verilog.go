// Package verilog renders a compiled model as SystemVerilog over a
// real-number macro library (MAKE_REAL, ADD_REAL, MUL_REAL and friends), so
// the emitted module is synthesizable with either fixed-point or floating
// point real representations.
package verilog

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/nsulzer/msdsl"
	"github.com/nsulzer/msdsl/internal/eqn"
	"github.com/nsulzer/msdsl/internal/expr"
	"github.com/nsulzer/msdsl/internal/model"
)

// Generator implements model.CodeGenerator for SystemVerilog. Temporary
// signal names come from the namer of the compilation session so they never
// collide with user signals.
type Generator struct {
	buf      strings.Builder
	tab      string
	tabLevel int
	namer    *model.Namer
}

// New returns a generator writing the file header immediately.
func New(namer *model.Namer) *Generator {
	g := &Generator{tab: "    ", namer: namer}
	g.comment(fmt.Sprintf("Model generated by msdsl %s", msdsl.Version()))
	g.println("")
	g.println("`timescale 1ns/1ps")
	g.println("")
	g.println("`include \"real.sv\"")
	g.println("`include \"math.sv\"")
	g.println("")
	return g
}

// String returns the rendered artifact.
func (g *Generator) String() string { return g.buf.String() }

// StartModule emits the module header: real-format parameters for the analog
// IOs, then the port list, then the clock and reset driving every next-cycle
// update.
func (g *Generator) StartModule(name string, ios []*expr.Signal) error {
	g.println("`default_nettype none")
	g.println("")
	g.write("module " + name)

	var params []string
	for _, io := range ios {
		if io.IsAnalog() {
			params = append(params, fmt.Sprintf("`DECL_REAL(%s)", io.Name))
		}
	}
	if len(params) > 0 {
		g.write(" #")
		g.commaSeparatedLines(params)
	}

	ports := make([]string, 0, len(ios)+2)
	for _, io := range ios {
		p, err := portString(io)
		if err != nil {
			return err
		}
		ports = append(ports, p)
	}
	ports = append(ports, "input wire logic clk", "input wire logic rst")
	g.write(" ")
	g.commaSeparatedLines(ports)

	g.write(";\n")
	g.indent()
	return nil
}

// EndModule closes the module body.
func (g *Generator) EndModule() error {
	g.dedent()
	g.println("endmodule")
	g.println("")
	g.println("`default_nettype wire")
	return nil
}

// MakeSection emits an advisory comment labelling the next block.
func (g *Generator) MakeSection(label string) {
	g.comment(label)
}

// MakeSignal declares an internal signal.
func (g *Generator) MakeSignal(s *expr.Signal) error {
	switch f := s.Fmt.(type) {
	case expr.RealFormat:
		if f.Range > 0 {
			g.macroCall("MAKE_REAL", s.Name, realToStr(f.Range))
			return nil
		}
		if s.CopyFrom != nil {
			g.macroCall("COPY_FORMAT_REAL", s.CopyFrom.Name, s.Name)
			return nil
		}
		return errors.Errorf("no range specified for signal %s", s.Name)
	case expr.IntFormat:
		g.println(digitalTypeString(f) + " " + s.Name + ";")
		return nil
	default:
		return errors.Errorf("signal %s has no format", s.Name)
	}
}

// SetThisCycle assigns the expression to the signal combinationally.
func (g *Generator) SetThisCycle(s *expr.Signal, e expr.Expr) error {
	src, err := g.exprToSignal(e)
	if err != nil {
		return err
	}
	return g.makeAssign(src, s)
}

// SetNextCycle registers the expression into the signal on the clock edge,
// resetting synchronously to init.
func (g *Generator) SetNextCycle(s *expr.Signal, e expr.Expr, init float64) error {
	src, err := g.exprToSignal(e)
	if err != nil {
		return err
	}
	if s.IsAnalog() {
		if !src.IsAnalog() {
			return errors.Errorf("cannot register digital signal %s into analog signal %s", src.Name, s.Name)
		}
		g.macroCall("MEM_INTO_REAL", src.Name, s.Name, realToStr(init))
		return nil
	}
	g.println("always @(posedge clk) begin")
	g.indent()
	g.println("if (rst == 1'b1) begin")
	g.indent()
	g.println(fmt.Sprintf("%s <= %d;", s.Name, int64(init)))
	g.dedent()
	g.println("end else begin")
	g.indent()
	g.println(fmt.Sprintf("%s <= %s;", s.Name, src.Name))
	g.dedent()
	g.println("end")
	g.dedent()
	g.println("end")
	return nil
}

// BindName declares a fresh signal carrying the expression's value and
// format.
func (g *Generator) BindName(name string, e expr.Expr) error {
	src, err := g.exprToSignal(e)
	if err != nil {
		return err
	}
	if src.IsAnalog() {
		g.macroCall("COPY_FORMAT_REAL", src.Name, name)
		g.macroCall("ASSIGN_REAL", src.Name, name)
		return nil
	}
	f, _ := src.Fmt.(expr.IntFormat)
	g.println(digitalTypeString(f) + " " + name + ";")
	g.println("assign " + name + " = " + src.Name + ";")
	return nil
}

// MakeProbe marks a signal for waveform dumping.
func (g *Generator) MakeProbe(s *expr.Signal) error {
	if s.IsAnalog() {
		g.macroCall("PROBE_REAL", s.Name)
	} else {
		g.macroCall("PROBE", s.Name)
	}
	return nil
}

// exprToSignal lowers an expression to a named signal, emitting whatever
// temporaries the lowering needs.
func (g *Generator) exprToSignal(e expr.Expr) (*expr.Signal, error) {
	switch v := e.(type) {
	case *expr.Signal:
		return v, nil
	case *expr.Constant:
		name := g.namer.Tmp("tmp")
		g.macroCall("MAKE_CONST_REAL", realToStr(v.Value), name)
		return &expr.Signal{Name: name, Fmt: v.Fmt}, nil
	case *expr.Sum:
		return g.fold(v.Operands, "ADD_REAL")
	case *expr.Product:
		return g.fold(v.Operands, "MUL_REAL")
	case *expr.Concatenate:
		return g.makeConcat(v), nil
	case *expr.ArraySelect:
		return g.makeAnalogArray(v)
	default:
		// Case, Deriv and EqualTo nodes never survive compilation.
		return nil, errors.Wrapf(eqn.ErrConsistency, "expression %s reached code generation", expr.Sprint(e))
	}
}

// fold lowers the operands and reduces them pairwise through a two-input
// real macro.
func (g *Generator) fold(operands []expr.Expr, macro string) (*expr.Signal, error) {
	acc, err := g.exprToSignal(operands[0])
	if err != nil {
		return nil, err
	}
	for _, op := range operands[1:] {
		rhs, err := g.exprToSignal(op)
		if err != nil {
			return nil, err
		}
		if !acc.IsAnalog() || !rhs.IsAnalog() {
			return nil, errors.Errorf("%s requires analog operands, got %s and %s", macro, acc.Name, rhs.Name)
		}
		name := g.namer.Tmp("tmp")
		g.macroCall(macro, acc.Name, rhs.Name, name)
		acc = &expr.Signal{Name: name, Fmt: expr.RealFormat{}, CopyFrom: acc}
	}
	return acc, nil
}

func (g *Generator) makeConcat(c *expr.Concatenate) *expr.Signal {
	f, _ := c.Format().(expr.IntFormat)
	name := g.namer.Tmp("tmp")
	g.println(digitalTypeString(f) + " " + name + ";")
	names := make([]string, len(c.Signals))
	for i, s := range c.Signals {
		names[i] = s.Name
	}
	g.println("assign " + name + " = {" + strings.Join(names, ", ") + "};")
	return &expr.Signal{Name: name, Fmt: f}
}

// makeAnalogArray lowers an address-indexed table into a combinational case
// statement over format-aligned entries. A degenerate single-entry table
// never reaches here; the expression model collapses it.
func (g *Generator) makeAnalogArray(a *expr.ArraySelect) (*expr.Signal, error) {
	values := make([]*expr.Signal, len(a.Elements))
	for i, el := range a.Elements {
		s, err := g.exprToSignal(el)
		if err != nil {
			return nil, err
		}
		if !s.IsAnalog() {
			return nil, errors.Errorf("array entry %s is not analog", s.Name)
		}
		values[i] = s
	}
	addr, err := g.exprToSignal(a.Address)
	if err != nil {
		return nil, err
	}
	if addr.IsAnalog() {
		return nil, errors.Errorf("array address %s is not digital", addr.Name)
	}

	out := &expr.Signal{Name: g.namer.Tmp("tmp"), Fmt: expr.RealFormat{}}
	g.macroCall("MAKE_REAL", out.Name, maxAnalogRange(values))

	entries := make([]*expr.Signal, len(values))
	for k, value := range values {
		entry := &expr.Signal{Name: fmt.Sprintf("%s_%d", out.Name, k), Fmt: expr.RealFormat{}}
		entries[k] = entry
		g.macroCall("COPY_FORMAT_REAL", out.Name, entry.Name)
		g.macroCall("ASSIGN_REAL", value.Name, entry.Name)
	}

	g.println("always @(*) begin")
	g.indent()
	g.println("case (" + addr.Name + ")")
	g.indent()
	for k, entry := range entries {
		g.println(fmt.Sprintf("%d: %s = %s;", k, out.Name, entry.Name))
	}
	g.println("default: " + out.Name + " = 0;")
	g.dedent()
	g.println("endcase")
	g.dedent()
	g.println("end")
	return out, nil
}

func (g *Generator) makeAssign(src, dst *expr.Signal) error {
	if src.IsAnalog() && dst.IsAnalog() {
		g.macroCall("ASSIGN_REAL", src.Name, dst.Name)
		return nil
	}
	if !src.IsAnalog() && !dst.IsAnalog() {
		g.println("assign " + dst.Name + " = " + src.Name + ";")
		return nil
	}
	return errors.Errorf("cannot assign %s to %s across analog/digital boundary", src.Name, dst.Name)
}

// writer helpers

func (g *Generator) indent() { g.tabLevel++ }

func (g *Generator) dedent() {
	if g.tabLevel > 0 {
		g.tabLevel--
	}
}

func (g *Generator) write(s string) { g.buf.WriteString(s) }

func (g *Generator) println(line string) {
	if line == "" {
		g.buf.WriteByte('\n')
		return
	}
	g.buf.WriteString(strings.Repeat(g.tab, g.tabLevel))
	g.buf.WriteString(line)
	g.buf.WriteByte('\n')
}

func (g *Generator) comment(content string) {
	g.println("// " + content)
}

func (g *Generator) macroCall(name string, args ...string) {
	g.println("`" + name + "(" + strings.Join(args, ", ") + ");")
}

func (g *Generator) commaSeparatedLines(lines []string) {
	g.write("(\n")
	for i, line := range lines {
		g.write(strings.Repeat(g.tab, g.tabLevel+1) + line)
		if i < len(lines)-1 {
			g.write(",")
		}
		g.write("\n")
	}
	g.write(strings.Repeat(g.tab, g.tabLevel) + ")")
}

func portString(io *expr.Signal) (string, error) {
	switch io.Role {
	case expr.AnalogInput:
		return fmt.Sprintf("`INPUT_REAL(%s)", io.Name), nil
	case expr.AnalogOutput:
		return fmt.Sprintf("`OUTPUT_REAL(%s)", io.Name), nil
	case expr.DigitalInput:
		f, _ := io.Fmt.(expr.IntFormat)
		return "input wire " + digitalTypeString(f) + " " + io.Name, nil
	case expr.DigitalOutput:
		f, _ := io.Fmt.(expr.IntFormat)
		return "output wire " + digitalTypeString(f) + " " + io.Name, nil
	default:
		return "", errors.Errorf("signal %s with role %s cannot be a port", io.Name, io.Role)
	}
}

func digitalTypeString(f expr.IntFormat) string {
	out := "logic"
	if f.Signed {
		out += " signed"
	}
	return fmt.Sprintf("%s [%d:0]", out, f.Width-1)
}

func realToStr(v float64) string {
	return fmt.Sprintf("%0.10f", v)
}

// maxAnalogRange expresses the range of a table output as the maximum of its
// entries' range parameters, so format parameterization survives into the
// generated text.
func maxAnalogRange(values []*expr.Signal) string {
	if len(values) == 1 {
		return fmt.Sprintf("`RANGE_PARAM_REAL(%s)", values[0].Name)
	}
	return fmt.Sprintf("`MAX_MATH(`RANGE_PARAM_REAL(%s), %s)", values[0].Name, maxAnalogRange(values[1:]))
}
