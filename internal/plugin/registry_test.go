package plugin

import (
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/hyperengineering/fluidbc/internal/prm"
)

// model is a minimal product type for exercising the registry.
type model interface {
	Name() string
}

type stubModel struct {
	name  string
	scale float64
}

func (s *stubModel) Name() string { return s.name }

func stubFactory(name string) Factory[model] {
	return func() model { return &stubModel{name: name} }
}

func newTestRegistry(opts ...Option) *Registry[model] {
	return New[model]("boundary_fluid_pressure_model", "plugin_name", opts...)
}

func TestRegister_NewPlugin(t *testing.T) {
	r := newTestRegistry()
	if err := r.Register("uniform", "Constant gradient.", nil, stubFactory("uniform")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	e, ok := r.Lookup("uniform")
	if !ok {
		t.Fatal("Lookup() ok = false, want true")
	}
	if e.Description != "Constant gradient." {
		t.Errorf("Description = %q", e.Description)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegister_Duplicate(t *testing.T) {
	r := newTestRegistry()
	if err := r.Register("density", "", nil, stubFactory("a")); err != nil {
		t.Fatalf("Register(1) error = %v", err)
	}

	err := r.Register("density", "", nil, stubFactory("b"))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Register(2) error = %v, want ErrDuplicate", err)
	}
	if err.Error() != "plugin already registered: density" {
		t.Errorf("error = %q", err.Error())
	}

	// The first registration is kept.
	m, err := r.Build("density")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if m.Name() != "a" {
		t.Errorf("Build().Name() = %q, want %q", m.Name(), "a")
	}
}

func TestMustRegister_PanicsOnDuplicate(t *testing.T) {
	r := newTestRegistry()
	r.MustRegister("density", "", nil, stubFactory("density"))

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("MustRegister duplicate did not panic")
		}
		err, ok := rec.(error)
		if !ok || !errors.Is(err, ErrDuplicate) {
			t.Errorf("panic value = %v, want ErrDuplicate", rec)
		}
	}()
	r.MustRegister("density", "", nil, stubFactory("density"))
}

func TestRegister_Invalid(t *testing.T) {
	r := newTestRegistry()
	if err := r.Register("", "", nil, stubFactory("x")); !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("Register(empty name) error = %v, want ErrInvalidRegistration", err)
	}
	for _, name := range []string{" ", " padded", "padded ", "\tpadded"} {
		if err := r.Register(name, "", nil, stubFactory("x")); !errors.Is(err, ErrInvalidRegistration) {
			t.Errorf("Register(%q) error = %v, want ErrInvalidRegistration", name, err)
		}
	}
	if len(r.Names()) != 0 {
		t.Errorf("Names() = %v, want no entries after rejected registrations", r.Names())
	}
	if err := r.Register("x", "", nil, nil); !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("Register(nil factory) error = %v, want ErrInvalidRegistration", err)
	}
}

func TestRegister_IndependentRegistries(t *testing.T) {
	// One registry per dimension: the same name may live in each.
	r2 := newTestRegistry()
	r3 := newTestRegistry()
	if err := r2.Register("density", "", nil, stubFactory("2d")); err != nil {
		t.Fatalf("Register(2d) error = %v", err)
	}
	if err := r3.Register("density", "", nil, stubFactory("3d")); err != nil {
		t.Fatalf("Register(3d) error = %v", err)
	}
	if err := r2.Register("density", "", nil, stubFactory("2d")); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second Register(2d) error = %v, want ErrDuplicate", err)
	}
}

func TestSeal_PreventsFurtherRegistration(t *testing.T) {
	r := newTestRegistry()
	r.MustRegister("a", "", nil, stubFactory("a"))

	if !r.Seal() {
		t.Fatal("Seal() = false on first call")
	}
	if r.Seal() {
		t.Fatal("Seal() = true on second call")
	}
	if err := r.Register("b", "", nil, stubFactory("b")); !errors.Is(err, ErrSealed) {
		t.Fatalf("Register after Seal error = %v, want ErrSealed", err)
	}
	if _, err := r.Build("a"); err != nil {
		t.Errorf("Build after Seal error = %v", err)
	}
}

func TestNamesAndEntries_Sorted(t *testing.T) {
	r := newTestRegistry()
	for _, n := range []string{"uniform", "density", "table"} {
		r.MustRegister(n, n+" model", nil, stubFactory(n))
	}

	want := []string{"density", "table", "uniform"}
	require.Equal(t, want, r.Names())

	entries := r.Entries()
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.Name
	}
	require.Equal(t, want, got)
}

func TestDeclareAll_DeclaresSelectorAndEveryModel(t *testing.T) {
	r := newTestRegistry(WithDefault("density"), WithSelectorDoc("Select a model."))
	var declared []string
	for _, n := range []string{"uniform", "density"} {
		name := n
		r.MustRegister(name, "The "+name+" model.", func(h *prm.Handler) error {
			declared = append(declared, name)
			return h.Enter(name).Declare("scale", "1", prm.Double(0, 10), "")
		}, stubFactory(name))
	}
	r.MustRegister("bare", "No parameters.", nil, stubFactory("bare"))

	h := prm.New()
	require.NoError(t, r.DeclareAll(h))
	require.True(t, r.Sealed())
	require.Equal(t, []string{"density", "uniform"}, declared)

	keys := make(map[string]prm.Entry)
	for _, e := range h.Entries() {
		keys[e.Key] = e
	}
	sel, ok := keys["boundary_fluid_pressure_model.plugin_name"]
	require.True(t, ok)
	require.Equal(t, "density", sel.Default)
	require.Equal(t, "[Selection bare|density|uniform ]", sel.Pattern.Description())
	require.True(t, strings.HasPrefix(sel.Documentation, "Select a model."))
	require.Contains(t, sel.Documentation, "`uniform': The uniform model.")
	require.Contains(t, keys, "boundary_fluid_pressure_model.uniform.scale")
	require.Contains(t, keys, "boundary_fluid_pressure_model.density.scale")
}

func TestDeclareAll_DefaultNotRegistered(t *testing.T) {
	r := newTestRegistry(WithDefault("missing"))
	r.MustRegister("density", "", nil, stubFactory("density"))

	err := r.DeclareAll(prm.New())
	require.ErrorIs(t, err, prm.ErrInvalidDefault)
}

func TestDeclareAll_PropagatesDeclareError(t *testing.T) {
	r := newTestRegistry()
	boom := errors.New("boom")
	r.MustRegister("density", "", func(*prm.Handler) error { return boom }, stubFactory("density"))

	err := r.DeclareAll(prm.New())
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), `"density"`)
}

func TestCreate_Selected(t *testing.T) {
	r := newTestRegistry()
	r.MustRegister("density", "", nil, stubFactory("density"))
	r.MustRegister("uniform", "", nil, stubFactory("uniform"))

	h := prm.New()
	require.NoError(t, r.DeclareAll(h))
	h.Enter("boundary_fluid_pressure_model").Set("plugin_name", "uniform")

	m, err := r.Create(h)
	require.NoError(t, err)
	require.Equal(t, "uniform", m.Name())

	// Every Create returns a fresh instance.
	m2, err := r.Create(h)
	require.NoError(t, err)
	require.NotSame(t, m, m2)
}

func TestCreate_UnknownName(t *testing.T) {
	r := newTestRegistry()
	r.MustRegister("density", "", nil, stubFactory("density"))
	r.MustRegister("uniform", "", nil, stubFactory("uniform"))

	h := prm.New()
	require.NoError(t, r.DeclareAll(h))
	h.Enter("boundary_fluid_pressure_model").Set("plugin_name", "nonexistent")

	m, err := r.Create(h)
	require.Nil(t, m)
	require.ErrorIs(t, err, ErrUnknown)

	var une *UnknownNameError
	require.True(t, errors.As(err, &une))
	require.Equal(t, "nonexistent", une.Name)
	require.Equal(t, []string{"density", "uniform"}, une.Valid)
	require.Contains(t, err.Error(), "nonexistent")
	require.Contains(t, err.Error(), "density")
}

func TestCreate_NoSelectionNoDefault(t *testing.T) {
	r := newTestRegistry()
	r.MustRegister("density", "", nil, stubFactory("density"))

	h := prm.New()
	require.NoError(t, r.DeclareAll(h))

	_, err := r.Create(h)
	require.ErrorIs(t, err, ErrUnknown)
}

func TestCreate_BeforeDeclare(t *testing.T) {
	r := newTestRegistry()
	r.MustRegister("density", "", nil, stubFactory("density"))

	_, err := r.Create(prm.New())
	require.ErrorIs(t, err, prm.ErrUndeclared)
}

func TestCreate_DoesNotDeclareOrParse(t *testing.T) {
	r := newTestRegistry(WithDefault("density"))
	r.MustRegister("density", "", func(h *prm.Handler) error {
		return h.Enter("density").Declare("scale", "3", prm.Double(0, 10), "")
	}, stubFactory("density"))

	h := prm.New()
	require.NoError(t, r.DeclareAll(h))
	m, err := r.Create(h)
	require.NoError(t, err)
	require.Equal(t, 0.0, m.(*stubModel).scale)
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	r := newTestRegistry()
	for i := 0; i < 10; i++ {
		r.MustRegister(stubName(i), "", nil, stubFactory(stubName(i)))
	}
	h := prm.New()
	require.NoError(t, r.DeclareAll(h))

	var wg gosync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			name := stubName(idx % 10)
			m, err := r.Build(name)
			if err != nil {
				t.Errorf("Build(%q) error = %v", name, err)
				return
			}
			if m.Name() != name {
				t.Errorf("Name() = %q, want %q", m.Name(), name)
			}
		}(i)
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Create(h); !errors.Is(err, ErrUnknown) {
				t.Errorf("Create() error = %v, want ErrUnknown", err)
			}
		}()
	}
	wg.Wait()
}

func TestRegister_UniqueNamesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := newTestRegistry()
		names := rapid.SliceOf(rapid.StringMatching(`[a-z]{1,4}`)).Draw(t, "names")

		seen := make(map[string]bool)
		for _, n := range names {
			err := r.Register(n, "", nil, stubFactory(n))
			if seen[n] {
				require.ErrorIs(t, err, ErrDuplicate)
			} else {
				require.NoError(t, err)
			}
			seen[n] = true
		}
		require.Equal(t, len(seen), r.Len())

		// Every registered name builds an instance of itself.
		for n := range seen {
			m, err := r.Build(n)
			require.NoError(t, err)
			require.Equal(t, n, m.Name())
		}
	})
}

func stubName(i int) string {
	return fmt.Sprintf("model-%c", 'a'+i)
}
