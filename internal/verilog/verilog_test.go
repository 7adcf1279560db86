package verilog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsulzer/msdsl/internal/eqn"
	"github.com/nsulzer/msdsl/internal/expr"
	"github.com/nsulzer/msdsl/internal/model"
)

func generate(t *testing.T, m *model.Model) string {
	t.Helper()
	gen := New(model.NewNamer())
	require.NoError(t, m.Compile(gen))
	return gen.String()
}

func assertContains(t *testing.T, text string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(text, want) {
			t.Errorf("generated text is missing %q:\n%s", want, text)
		}
	}
}

func TestGenerateFirstOrderFilter(t *testing.T) {
	m, err := model.New("rc", 1)
	require.NoError(t, err)
	vin, err := m.AddAnalogInput("v_in")
	require.NoError(t, err)
	vout, err := m.AddAnalogOutput("v_out", 0)
	require.NoError(t, err)
	require.NoError(t, m.AddEqnSys([]*expr.EqualTo{
		expr.NewEqualTo(
			expr.NewDeriv(vout),
			expr.NewSum(vin, expr.NewProduct(expr.NewConstant(-1), vout)),
		),
	}))

	text := generate(t, m)
	assertContains(t, text,
		"// Model generated by msdsl",
		"`include \"real.sv\"",
		"`default_nettype none",
		"module rc #",
		"`DECL_REAL(v_in)",
		"`DECL_REAL(v_out)",
		"`INPUT_REAL(v_in)",
		"`OUTPUT_REAL(v_out)",
		"input wire logic clk",
		"input wire logic rst",
		// exp(-1) and 1-exp(-1) for dt=1
		"`MAKE_CONST_REAL(0.3678794412, tmp0);",
		"`MUL_REAL(tmp0, v_out, tmp1);",
		"`MAKE_CONST_REAL(0.6321205588, tmp2);",
		"`MUL_REAL(tmp2, v_in, tmp3);",
		"`ADD_REAL(tmp1, tmp3, tmp4);",
		"`MEM_INTO_REAL(tmp4, v_out, 0.0000000000);",
		"endmodule",
	)
	assert.NotContains(t, text, "case (", "a caseless model should emit no select table")
}

func TestGenerateSelectTable(t *testing.T) {
	m, err := model.New("switched_rc", 1)
	require.NoError(t, err)
	ctrl, err := m.AddDigitalInput("ctrl", 1, false)
	require.NoError(t, err)
	vout, err := m.AddAnalogOutput("v_out", 0)
	require.NoError(t, err)

	gain, err := eqn.NewCase(expr.Constants([]float64{-1, -2}), []*expr.Signal{ctrl})
	require.NoError(t, err)
	require.NoError(t, m.AddEqnSys([]*expr.EqualTo{
		expr.NewEqualTo(expr.NewDeriv(vout), expr.NewProduct(gain, vout)),
	}))

	text := generate(t, m)
	assertContains(t, text,
		"input wire logic [0:0] ctrl",
		// table entries for both selector settings
		"`MAKE_CONST_REAL(0.3678794412, tmp0);",
		"`MAKE_CONST_REAL(0.1353352832, tmp1);",
		// the selector word and the addressed table
		"assign tmp2 = {ctrl};",
		"`MAKE_REAL(tmp3, `MAX_MATH(`RANGE_PARAM_REAL(tmp0), `RANGE_PARAM_REAL(tmp1)));",
		"`COPY_FORMAT_REAL(tmp3, tmp3_0);",
		"`ASSIGN_REAL(tmp0, tmp3_0);",
		"always @(*) begin",
		"case (tmp2)",
		"0: tmp3 = tmp3_0;",
		"1: tmp3 = tmp3_1;",
		"default: tmp3 = 0;",
		"endcase",
	)
}

func TestGenerateDigitalRegister(t *testing.T) {
	m, err := model.New("reg4", 0)
	require.NoError(t, err)
	d, err := m.AddDigitalInput("d", 4, false)
	require.NoError(t, err)
	q, err := m.AddDigitalOutput("q", 4, false, 0)
	require.NoError(t, err)
	require.NoError(t, m.SetNextCycle(q, d))

	text := generate(t, m)
	assertContains(t, text,
		"input wire logic [3:0] d",
		"output wire logic [3:0] q",
		"always @(posedge clk) begin",
		"if (rst == 1'b1) begin",
		"q <= 0;",
		"q <= d;",
	)
}

func TestGenerateBindingAndState(t *testing.T) {
	m, err := model.New("amp", 0)
	require.NoError(t, err)
	x, err := m.AddAnalogInput("x")
	require.NoError(t, err)
	w, err := m.AddAnalogState("w", 2.5, 0)
	require.NoError(t, err)
	y, err := m.BindName("y", expr.NewProduct(expr.NewConstant(3), x))
	require.NoError(t, err)
	require.NoError(t, m.SetThisCycle(w, y))

	text := generate(t, m)
	assertContains(t, text,
		"`MAKE_REAL(w, 2.5000000000);",
		"`MAKE_CONST_REAL(3.0000000000, tmp0);",
		"`MUL_REAL(tmp0, x, tmp1);",
		"`COPY_FORMAT_REAL(tmp1, y);",
		"`ASSIGN_REAL(tmp1, y);",
		"`ASSIGN_REAL(y, w);",
	)
}

func TestGenerateProbes(t *testing.T) {
	m, err := model.New("probed", 0)
	require.NoError(t, err)
	x, err := m.AddAnalogInput("x")
	require.NoError(t, err)
	y, err := m.AddAnalogOutput("y", 0)
	require.NoError(t, err)
	s, err := m.AddDigitalInput("sel", 1, false)
	require.NoError(t, err)
	require.NoError(t, m.SetThisCycle(y, x))
	m.AddProbe(y)
	m.AddProbe(s)

	text := generate(t, m)
	assertContains(t, text,
		"`PROBE_REAL(y);",
		"`PROBE(sel);",
	)
}

func TestGenerateRejectsUnrangedInternal(t *testing.T) {
	m, err := model.New("bad", 0)
	require.NoError(t, err)
	x, err := m.AddAnalogInput("x")
	require.NoError(t, err)
	w, err := m.AddAnalogState("w", 0, 0) // no range to derive a format from
	require.NoError(t, err)
	require.NoError(t, m.SetThisCycle(w, x))

	gen := New(model.NewNamer())
	assert.Error(t, m.Compile(gen))
}
