package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nsulzer/msdsl"
	"github.com/nsulzer/msdsl/internal/eqn"
	"github.com/nsulzer/msdsl/internal/expr"
	"github.com/nsulzer/msdsl/internal/model"
	"github.com/nsulzer/msdsl/internal/verilog"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "emit":
		if err := cmdEmit(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "examples":
		for _, name := range exampleNames() {
			fmt.Println(name)
		}
	case "version":
		fmt.Println(msdsl.Version())
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintln(os.Stderr, "unknown command:", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("msdsl - mixed-signal model compiler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  msdsl emit <example> [-o <file.sv>] [-dt <seconds>]")
	fmt.Println("  msdsl examples")
	fmt.Println("  msdsl version")
}

func cmdEmit(args []string) error {
	fs := flag.NewFlagSet("emit", flag.ContinueOnError)
	outPath := fs.String("o", "", "output SystemVerilog file")
	dt := fs.Float64("dt", 1e-6, "sample interval in seconds")

	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return errors.New("emit requires an example name first; see 'msdsl examples'")
	}
	name := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	build, ok := examples[name]
	if !ok {
		return fmt.Errorf("unknown example %q; see 'msdsl examples'", name)
	}
	m, err := build(*dt)
	if err != nil {
		return err
	}

	gen := verilog.New(model.NewNamer())
	if err := m.Compile(gen); err != nil {
		return err
	}

	path := *outPath
	if path == "" {
		path = name + ".sv"
	}
	if ext := filepath.Ext(path); ext == "" {
		path += ".sv"
	}
	return os.WriteFile(path, []byte(gen.String()), 0644)
}

// examples maps names to builders of the built-in demonstration models.
var examples = map[string]func(dt float64) (*model.Model, error){
	"rc":          buildRC,
	"switched_rc": buildSwitchedRC,
	"lpf_tf":      buildLowpassTF,
}

func exampleNames() []string {
	names := make([]string, 0, len(examples))
	for name := range examples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildRC is a first-order RC low-pass: deriv(v_out) = (v_in - v_out)/(R*C).
func buildRC(dt float64) (*model.Model, error) {
	m, err := model.New("rc", dt,
		&expr.Signal{Name: "v_in", Role: expr.AnalogInput, Fmt: expr.RealFormat{}},
		&expr.Signal{Name: "v_out", Role: expr.AnalogOutput, Fmt: expr.RealFormat{}},
	)
	if err != nil {
		return nil, err
	}
	vIn, _ := m.Signal("v_in")
	vOut, _ := m.Signal("v_out")

	const rc = 1e-3 // 1k * 1uF
	deriv := expr.NewProduct(
		expr.NewConstant(1/rc),
		expr.NewSum(vIn, expr.NewProduct(expr.NewConstant(-1), vOut)),
	)
	if err := m.AddEqnSys([]*expr.EqualTo{expr.NewEqualTo(expr.NewDeriv(vOut), deriv)}); err != nil {
		return nil, err
	}
	return m, nil
}

// buildSwitchedRC switches the RC time constant with a digital control bit.
func buildSwitchedRC(dt float64) (*model.Model, error) {
	m, err := model.New("switched_rc", dt,
		&expr.Signal{Name: "v_in", Role: expr.AnalogInput, Fmt: expr.RealFormat{}},
		&expr.Signal{Name: "v_out", Role: expr.AnalogOutput, Fmt: expr.RealFormat{}},
		&expr.Signal{Name: "ctrl", Role: expr.DigitalInput, Fmt: expr.IntFormat{Width: 1}},
	)
	if err != nil {
		return nil, err
	}
	vIn, _ := m.Signal("v_in")
	vOut, _ := m.Signal("v_out")
	ctrl, _ := m.Signal("ctrl")

	gain, err := eqn.NewCase(expr.Constants([]float64{1e3, 1e4}), []*expr.Signal{ctrl})
	if err != nil {
		return nil, err
	}
	deriv := expr.NewProduct(gain, expr.NewSum(vIn, expr.NewProduct(expr.NewConstant(-1), vOut)))
	if err := m.AddEqnSys([]*expr.EqualTo{expr.NewEqualTo(expr.NewDeriv(vOut), deriv)}); err != nil {
		return nil, err
	}
	return m, nil
}

// buildLowpassTF is the same low-pass expressed as a transfer function
// 1/(tau*s + 1) and expanded into a tapped difference equation.
func buildLowpassTF(dt float64) (*model.Model, error) {
	m, err := model.New("lpf_tf", dt,
		&expr.Signal{Name: "v_in", Role: expr.AnalogInput, Fmt: expr.RealFormat{}},
		&expr.Signal{Name: "v_out", Role: expr.AnalogOutput, Fmt: expr.RealFormat{}},
	)
	if err != nil {
		return nil, err
	}
	vIn, _ := m.Signal("v_in")
	vOut, _ := m.Signal("v_out")

	const tau = 1e-3
	if err := m.SetTransferFunction(vIn, vOut, []float64{1}, []float64{tau, 1}); err != nil {
		return nil, err
	}
	return m, nil
}
