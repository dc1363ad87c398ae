package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hyperengineering/fluidbc/internal/prm"
)

// Registry holds the models registered for one product type T.
// It is safe for concurrent use; after Seal it only serves reads.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
	sealed  atomic.Bool

	section     string
	selector    string
	selectorDoc string
	def         string
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	def string
	doc string
}

// WithDefault sets the model selected when the parameter file names none.
// The name must be registered by the time parameters are declared.
func WithDefault(name string) Option { return func(o *options) { o.def = name } }

// WithSelectorDoc sets the documentation of the selector parameter.
func WithSelectorDoc(doc string) Option { return func(o *options) { o.doc = doc } }

// New creates an empty registry whose selection is read from the parameter
// selector inside section.
func New[T any](section, selector string, opts ...Option) *Registry[T] {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return &Registry[T]{
		entries:     make(map[string]Entry[T]),
		section:     section,
		selector:    selector,
		selectorDoc: o.doc,
		def:         o.def,
	}
}

// Register adds a model to the catalog.
// It fails if name is already registered or the registry is sealed. Names
// must not carry surrounding whitespace, since selections are trimmed.
// A nil declare function means the model takes no parameters.
func (r *Registry[T]) Register(name, description string, declare DeclareFunc, factory Factory[T]) error {
	if r.Sealed() {
		return fmt.Errorf("%w: cannot register %s", ErrSealed, name)
	}
	if name == "" || strings.TrimSpace(name) != name || factory == nil {
		return fmt.Errorf("%w: name %q", ErrInvalidRegistration, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.entries[name] = Entry[T]{
		Name:        name,
		Description: description,
		Declare:     declare,
		Factory:     factory,
	}
	return nil
}

// MustRegister is Register for startup code, where a failed registration is
// a programming error. It panics on error.
func (r *Registry[T]) MustRegister(name, description string, declare DeclareFunc, factory Factory[T]) {
	if err := r.Register(name, description, declare, factory); err != nil {
		panic(err)
	}
}

// Seal prevents further registrations. It reports whether this call sealed
// the registry.
func (r *Registry[T]) Seal() bool { return !r.sealed.Swap(true) }

// Sealed reports whether the registry is sealed.
func (r *Registry[T]) Sealed() bool { return r.sealed.Load() }

// Len returns the number of registered models.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Names returns the registered names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Entries returns a snapshot of the catalog, sorted by name.
func (r *Registry[T]) Entries() []Entry[T] {
	r.mu.RLock()
	items := make([]Entry[T], 0, len(r.entries))
	for _, e := range r.entries {
		items = append(items, e)
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

// Lookup returns the entry registered under name.
func (r *Registry[T]) Lookup(name string) (Entry[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Section returns the parameter section the registry declares into.
func (r *Registry[T]) Section() string { return r.section }

// SelectorKey returns the full key of the selector parameter.
func (r *Registry[T]) SelectorKey() string { return r.section + "." + r.selector }

// Scope returns the view of h that registered models declare and parse in.
func (r *Registry[T]) Scope(h *prm.Handler) *prm.Handler {
	return h.Enter(r.section)
}

// DeclareAll declares the selector and then the parameters of every
// registered model, in name order. The selected model is not known yet, so
// all of them declare. The registry is sealed first: from here on the
// catalog must not change.
func (r *Registry[T]) DeclareAll(h *prm.Handler) error {
	r.Seal()

	scope := r.Scope(h)
	entries := r.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}

	if err := scope.Declare(r.selector, r.def, prm.Selection(names...), r.selectorDocumentation(entries)); err != nil {
		return fmt.Errorf("declare %s: %w", r.SelectorKey(), err)
	}

	for _, e := range entries {
		if e.Declare == nil {
			continue
		}
		if err := e.Declare(scope); err != nil {
			return fmt.Errorf("declare parameters of %q: %w", e.Name, err)
		}
	}
	return nil
}

func (r *Registry[T]) selectorDocumentation(entries []Entry[T]) string {
	var b strings.Builder
	if r.selectorDoc != "" {
		b.WriteString(r.selectorDoc)
		b.WriteString("\n\n")
	}
	b.WriteString("The following models are available:")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n`%s': %s", e.Name, e.Description)
	}
	return b.String()
}

// Create reads the selected name from h and constructs a fresh instance.
// The instance has not read its parameters and is not initialized; the
// caller does both, in that order. An unknown or empty selection returns an
// *UnknownNameError and the zero T.
func (r *Registry[T]) Create(h *prm.Handler) (T, error) {
	name, err := r.Selected(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.Build(name)
}

// Selected returns the model name configured in h, which may be empty or
// unregistered.
func (r *Registry[T]) Selected(h *prm.Handler) (string, error) {
	raw, err := r.Scope(h).Raw(r.selector)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", r.SelectorKey(), err)
	}
	return strings.TrimSpace(raw), nil
}

// Build constructs a fresh instance of the named model.
func (r *Registry[T]) Build(name string) (T, error) {
	var zero T

	e, ok := r.Lookup(name)
	if !ok {
		return zero, &UnknownNameError{
			Parameter: r.SelectorKey(),
			Name:      name,
			Valid:     r.Names(),
		}
	}
	return e.Factory(), nil
}
