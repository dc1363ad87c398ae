// Package prm is the parameter store boundary models declare their options in
// and later read them from.
//
// Parameters go through two phases. First every option that might be used is
// declared with a default, a Pattern and documentation. Then, after the
// parameter file has been read, the selected components read back the values
// they declared. Values are stored in a viper instance so that YAML files,
// explicit overrides and environment variables all resolve the same way.
package prm

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Entry is one declared parameter.
type Entry struct {
	Key           string
	Default       string
	Pattern       Pattern
	Documentation string
}

// store is the state shared by a Handler and every view created with Enter.
type store struct {
	mu      sync.RWMutex
	v       *viper.Viper
	entries map[string]Entry
}

// Handler declares and reads parameters, scoped to a section.
// The root handler has an empty section. Handlers are safe for concurrent use.
type Handler struct {
	s       *store
	section string
}

// Option configures a Handler.
type Option func(*viper.Viper)

// WithEnvPrefix lets environment variables override parameters. The key
// "a.b_c" is read from PREFIX_A__B_C.
func WithEnvPrefix(prefix string) Option {
	return func(v *viper.Viper) {
		v.SetEnvPrefix(prefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
		v.AutomaticEnv()
	}
}

// New creates an empty root handler.
func New(opts ...Option) *Handler {
	v := viper.New()
	v.SetConfigType("yaml")
	for _, opt := range opts {
		opt(v)
	}
	return &Handler{
		s: &store{
			v:       v,
			entries: make(map[string]Entry),
		},
	}
}

// Enter returns a view of the same store scoped to a subsection.
func (h *Handler) Enter(section string) *Handler {
	return &Handler{s: h.s, section: h.key(section)}
}

// Section returns the dotted section path of this view.
func (h *Handler) Section() string {
	return h.section
}

func (h *Handler) key(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if h.section == "" {
		return name
	}
	return h.section + "." + name
}

// Declare registers a parameter in the current section.
// An empty default means the parameter has no default; a non-empty default
// must match pattern. Declaring the same name again replaces the entry.
func (h *Handler) Declare(name, def string, pattern Pattern, doc string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("declare parameter: empty name in section %q", h.section)
	}
	if pattern == nil {
		pattern = Anything()
	}
	key := h.key(name)
	if def != "" {
		if err := pattern.Match(def); err != nil {
			return fmt.Errorf("%w: %s = %q, expected %s: %v", ErrInvalidDefault, key, def, pattern.Description(), err)
		}
	}

	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.entries[key] = Entry{Key: key, Default: def, Pattern: pattern, Documentation: doc}
	h.s.v.SetDefault(key, def)
	return nil
}

// Declared reports whether name was declared in the current section.
func (h *Handler) Declared(name string) bool {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	_, ok := h.s.entries[h.key(name)]
	return ok
}

// Set overrides the value of a parameter in the current section.
// The parameter does not need to be declared yet.
func (h *Handler) Set(name string, value any) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.v.Set(h.key(name), value)
}

// ReadYAML merges a YAML parameter document into the store.
func (h *Handler) ReadYAML(r io.Reader) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if err := h.s.v.MergeConfig(r); err != nil {
		return fmt.Errorf("parse parameters: %w", err)
	}
	return nil
}

// ReadFile merges a YAML parameter file into the store.
func (h *Handler) ReadFile(path string) error {
	f, err := os.Open(path) //nolint:gosec // parameter file path is operator supplied
	if err != nil {
		return fmt.Errorf("open parameter file: %w", err)
	}
	defer f.Close()
	return h.ReadYAML(f)
}

// MergeMap merges nested parameter values into the store.
func (h *Handler) MergeMap(values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if err := h.s.v.MergeConfigMap(values); err != nil {
		return fmt.Errorf("merge parameters: %w", err)
	}
	return nil
}

// Raw returns the current value of a declared parameter without checking its pattern.
func (h *Handler) Raw(name string) (string, error) {
	key := h.key(name)

	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	if _, ok := h.s.entries[key]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUndeclared, key)
	}
	return stringify(h.s.v.Get(key))
}

// Get returns the value of a declared parameter, checked against its pattern.
func (h *Handler) Get(name string) (string, error) {
	key := h.key(name)

	h.s.mu.RLock()
	entry, ok := h.s.entries[key]
	h.s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUndeclared, key)
	}

	value, err := h.Raw(name)
	if err != nil {
		return "", err
	}
	if err := entry.Pattern.Match(value); err != nil {
		return "", &MalformedValueError{
			Key:     key,
			Value:   value,
			Pattern: entry.Pattern.Description(),
			Reason:  err,
		}
	}
	return value, nil
}

// GetDouble reads a parameter as a float64.
func (h *Handler) GetDouble(name string) (float64, error) {
	s, err := h.Get(name)
	if err != nil {
		return 0, err
	}
	x, err := cast.ToFloat64E(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", h.key(name), err)
	}
	return x, nil
}

// GetInteger reads a parameter as an int.
func (h *Handler) GetInteger(name string) (int, error) {
	s, err := h.Get(name)
	if err != nil {
		return 0, err
	}
	n, err := cast.ToIntE(decimal(s))
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", h.key(name), err)
	}
	return n, nil
}

// decimal strips leading zeros, which cast would read as an octal prefix.
// Integer patterns only accept base 10.
func decimal(s string) string {
	s = strings.TrimSpace(s)
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	if digits := strings.TrimLeft(s, "0"); digits != "" {
		return sign + digits
	}
	if s != "" {
		return "0"
	}
	return sign
}

// GetBool reads a parameter as a bool.
func (h *Handler) GetBool(name string) (bool, error) {
	s, err := h.Get(name)
	if err != nil {
		return false, err
	}
	b, err := cast.ToBoolE(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("parameter %s: %w", h.key(name), err)
	}
	return b, nil
}

// GetList reads a comma separated parameter.
func (h *Handler) GetList(name string) ([]string, error) {
	s, err := h.Get(name)
	if err != nil {
		return nil, err
	}
	return SplitList(s), nil
}

// GetDoubles reads a comma separated list of numbers.
func (h *Handler) GetDoubles(name string) ([]float64, error) {
	items, err := h.GetList(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, item := range items {
		if out[i], err = cast.ToFloat64E(item); err != nil {
			return nil, fmt.Errorf("parameter %s element %d: %w", h.key(name), i, err)
		}
	}
	return out, nil
}

// Entries returns every declared parameter, sorted by key.
func (h *Handler) Entries() []Entry {
	h.s.mu.RLock()
	entries := make([]Entry, 0, len(h.s.entries))
	for _, e := range h.s.entries {
		entries = append(entries, e)
	}
	h.s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// Unrecognized returns keys present in the store that were never declared, sorted.
func (h *Handler) Unrecognized() []string {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	var keys []string
	for _, k := range h.s.v.AllKeys() {
		if _, ok := h.s.entries[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Settings returns the current values of every declared parameter as a
// nested map, suitable for YAML encoding.
func (h *Handler) Settings() map[string]any {
	out := make(map[string]any)
	for _, e := range h.Entries() {
		h.s.mu.RLock()
		value, err := stringify(h.s.v.Get(e.Key))
		h.s.mu.RUnlock()
		if err != nil {
			value = e.Default
		}
		setNested(out, strings.Split(e.Key, "."), value)
	}
	return out
}

func setNested(m map[string]any, path []string, value any) {
	for _, p := range path[:len(path)-1] {
		child, ok := m[p].(map[string]any)
		if !ok {
			child = make(map[string]any)
			m[p] = child
		}
		m = child
	}
	m[path[len(path)-1]] = value
}

// stringify renders a stored value in the textual form patterns match against.
// Lists become comma separated.
func stringify(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			s, err := cast.ToStringE(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ", "), nil
	case []string:
		return strings.Join(val, ", "), nil
	case []float64:
		parts := make([]string, len(val))
		for i, x := range val {
			parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		return strings.Join(parts, ", "), nil
	default:
		return cast.ToStringE(val)
	}
}
