package prm

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"
)

func TestDeclare_DefaultIsReadBack(t *testing.T) {
	h := New()
	sec := h.Enter("model")
	require.NoError(t, sec.Declare("scale", "2.5", Double(0, 10), "Scale factor."))

	got, err := sec.GetDouble("scale")
	require.NoError(t, err)
	require.Equal(t, 2.5, got)

	require.True(t, sec.Declared("scale"))
	require.False(t, h.Declared("scale"))
	require.True(t, h.Declared("model.scale"))
}

func TestDeclare_InvalidDefault(t *testing.T) {
	h := New()
	err := h.Declare("scale", "11", Double(0, 10), "")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidDefault))
}

func TestDeclare_EmptyDefaultAllowed(t *testing.T) {
	h := New()
	require.NoError(t, h.Declare("plugin_name", "", Selection("a", "b"), ""))

	raw, err := h.Raw("plugin_name")
	require.NoError(t, err)
	require.Equal(t, "", raw)
}

func TestDeclare_EmptyName(t *testing.T) {
	require.Error(t, New().Declare(" ", "", nil, ""))
}

func TestDeclare_Idempotent(t *testing.T) {
	h := New()
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Declare("n", "4", Integer(1, 8), "Count."))
	}
	require.Len(t, h.Entries(), 1)

	n, err := h.GetInteger("n")
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestTypedGetters(t *testing.T) {
	h := New()
	require.NoError(t, h.Declare("n", "0", Integer(-100, 100), ""))
	require.NoError(t, h.Declare("x", "0", AnyDouble(), ""))
	require.NoError(t, h.Declare("on", "false", Bool(), ""))

	ints := map[string]int{"010": 10, " 7 ": 7, "-08": -8, "+3": 3, "000": 0, "-0": 0}
	for in, want := range ints {
		h.Set("n", in)
		n, err := h.GetInteger("n")
		require.NoError(t, err, in)
		require.Equal(t, want, n, in)
	}

	h.Set("x", " 2.5e3 ")
	x, err := h.GetDouble("x")
	require.NoError(t, err)
	require.Equal(t, 2500.0, x)

	h.Set("on", "true")
	b, err := h.GetBool("on")
	require.NoError(t, err)
	require.True(t, b)

	h.Set("n", "ten")
	_, err = h.GetInteger("n")
	require.ErrorIs(t, err, ErrMalformedValue)
}

func TestGet_Undeclared(t *testing.T) {
	h := New()
	h.Set("other", "x")

	_, err := h.Get("other")
	require.ErrorIs(t, err, ErrUndeclared)
	_, err = h.Raw("missing")
	require.ErrorIs(t, err, ErrUndeclared)
}

func TestGet_MalformedValue(t *testing.T) {
	h := New()
	sec := h.Enter("density")
	require.NoError(t, sec.Declare("density_formulation", "solid density",
		Selection("solid density", "fluid density"), ""))

	sec.Set("density_formulation", "liquid density")
	_, err := sec.Get("density_formulation")
	require.ErrorIs(t, err, ErrMalformedValue)

	var mv *MalformedValueError
	require.True(t, errors.As(err, &mv))
	require.Equal(t, "density.density_formulation", mv.Key)
	require.Equal(t, "liquid density", mv.Value)
	require.Contains(t, err.Error(), "solid density|fluid density")
}

func TestReadYAML_OverridesDefaults(t *testing.T) {
	h := New()
	sec := h.Enter("uniform")
	require.NoError(t, sec.Declare("gradient", "0, 0", List(AnyDouble(), 2, 3), ""))
	require.NoError(t, sec.Declare("enabled", "false", Bool(), ""))

	doc := `
uniform:
  gradient: [1.5, -2]
  enabled: true
`
	require.NoError(t, h.ReadYAML(strings.NewReader(doc)))

	xs, err := sec.GetDoubles("gradient")
	require.NoError(t, err)
	require.Equal(t, []float64{1.5, -2}, xs)

	b, err := sec.GetBool("enabled")
	require.NoError(t, err)
	require.True(t, b)
}

func TestReadYAML_StringList(t *testing.T) {
	h := New()
	require.NoError(t, h.Declare("gradient", "0, 0", List(AnyDouble(), 2, 2), ""))
	require.NoError(t, h.ReadYAML(strings.NewReader("gradient: \"3, 4\"\n")))

	xs, err := h.GetDoubles("gradient")
	require.NoError(t, err)
	require.Equal(t, []float64{3, 4}, xs)
}

func TestReadYAML_Invalid(t *testing.T) {
	require.Error(t, New().ReadYAML(strings.NewReader("a: [unterminated")))
}

func TestMergeMap(t *testing.T) {
	h := New()
	require.NoError(t, h.Enter("a").Declare("b", "1", Integer(0, 10), ""))
	require.NoError(t, h.MergeMap(map[string]any{"a": map[string]any{"b": 7}}))

	n, err := h.Enter("a").GetInteger("b")
	require.NoError(t, err)
	require.Equal(t, 7, n)
}

func TestUnrecognized(t *testing.T) {
	h := New()
	require.NoError(t, h.Declare("known", "1", Anything(), ""))
	require.NoError(t, h.ReadYAML(strings.NewReader("known: 2\nstray:\n  key: 3\n")))

	require.Equal(t, []string{"stray.key"}, h.Unrecognized())
}

func TestWithEnvPrefix(t *testing.T) {
	t.Setenv("FLUIDBCTEST_MODEL__SCALE", "9")
	h := New(WithEnvPrefix("FLUIDBCTEST"))
	require.NoError(t, h.Enter("model").Declare("scale", "1", Double(0, 10), ""))

	x, err := h.Enter("model").GetDouble("scale")
	require.NoError(t, err)
	require.Equal(t, 9.0, x)
}

func TestSettings(t *testing.T) {
	h := New()
	require.NoError(t, h.Enter("m").Declare("x", "1", Anything(), ""))
	h.Enter("m").Set("x", "2")

	s := h.Settings()
	m, ok := s["m"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "2", m["x"])
}

func TestWriteSchema(t *testing.T) {
	h := New()
	sec := h.Enter("boundary_fluid_pressure_model")
	require.NoError(t, sec.Declare("plugin_name", "density", Selection("density", "uniform"), "Which model."))
	require.NoError(t, sec.Enter("density").Declare("density_formulation", "solid density",
		Selection("solid density", "fluid density"), ""))

	var buf bytes.Buffer
	require.NoError(t, h.WriteSchema(&buf))
	out := buf.String()
	require.Contains(t, out, "# Which model.")
	require.Contains(t, out, "[Selection density|uniform ]")

	// The schema must be a parameter file that reads back to the defaults.
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	back := New()
	require.NoError(t, back.Enter("boundary_fluid_pressure_model").Declare("plugin_name", "", Selection("density", "uniform"), ""))
	require.NoError(t, back.MergeMap(doc))
	got, err := back.Enter("boundary_fluid_pressure_model").Get("plugin_name")
	require.NoError(t, err)
	require.Equal(t, "density", got)
}

func TestParse_IdempotentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := New()
		sec := h.Enter("model")
		require.NoError(t, sec.Declare("scale", "1", Double(-1e6, 1e6), ""))
		require.NoError(t, sec.Declare("count", "1", Integer(0, 1000), ""))

		scale := rapid.Float64Range(-1e6, 1e6).Draw(t, "scale")
		count := rapid.IntRange(0, 1000).Draw(t, "count")
		sec.Set("scale", strconv.FormatFloat(scale, 'g', -1, 64))
		sec.Set("count", count)

		x1, err := sec.GetDouble("scale")
		require.NoError(t, err)
		n1, err := sec.GetInteger("count")
		require.NoError(t, err)
		x2, _ := sec.GetDouble("scale")
		n2, _ := sec.GetInteger("count")

		require.Equal(t, x1, x2)
		require.Equal(t, n1, n2)
		require.Equal(t, scale, x1)
		require.Equal(t, count, n1)
	})
}
