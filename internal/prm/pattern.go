package prm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hyperengineering/fluidbc/internal/validation"
)

// Pattern constrains the textual value of a parameter.
type Pattern interface {
	// Match returns an error if value is not acceptable.
	Match(value string) error
	// Description is the human-readable form shown in errors and schema dumps.
	Description() string
}

type anything struct{}

// Anything accepts every value.
func Anything() Pattern { return anything{} }

func (anything) Match(string) error  { return nil }
func (anything) Description() string { return "[Anything]" }

type boolean struct{}

// Bool accepts "true" and "false".
func Bool() Pattern { return boolean{} }

func (boolean) Match(value string) error {
	return toErr(validation.ValidateEnum("value", value, []string{"true", "false"}))
}

func (boolean) Description() string { return "[Bool]" }

type integer struct {
	min, max int64
}

// Integer accepts integers in [min, max].
func Integer(min, max int64) Pattern { return integer{min: min, max: max} }

func (p integer) Match(value string) error {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer")
	}
	return toErr(validation.ValidateIntRange("value", n, p.min, p.max))
}

func (p integer) Description() string {
	return fmt.Sprintf("[Integer range %d...%d (inclusive)]", p.min, p.max)
}

type double struct {
	min, max float64
}

// Double accepts floating point numbers in [min, max].
// Use math.Inf for an open bound.
func Double(min, max float64) Pattern { return double{min: min, max: max} }

// AnyDouble accepts every finite or infinite number.
func AnyDouble() Pattern { return double{min: math.Inf(-1), max: math.Inf(1)} }

func (p double) Match(value string) error {
	x, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	return toErr(validation.ValidateRange("value", x, p.min, p.max))
}

func (p double) Description() string {
	return fmt.Sprintf("[Double %s...%s (inclusive)]", bound(p.min), bound(p.max))
}

func bound(x float64) string {
	switch {
	case math.IsInf(x, 1):
		return "MAX_DOUBLE"
	case math.IsInf(x, -1):
		return "-MAX_DOUBLE"
	default:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
}

type selection struct {
	options []string
}

// Selection accepts exactly one of options.
func Selection(options ...string) Pattern {
	return selection{options: append([]string(nil), options...)}
}

func (p selection) Match(value string) error {
	return toErr(validation.ValidateEnum("value", value, p.options))
}

func (p selection) Description() string {
	return "[Selection " + strings.Join(p.options, "|") + " ]"
}

type list struct {
	elem     Pattern
	min, max int
}

// List accepts a comma separated list of between min and max elements, each
// matching elem.
func List(elem Pattern, min, max int) Pattern {
	return list{elem: elem, min: min, max: max}
}

func (p list) Match(value string) error {
	items := SplitList(value)
	if err := validation.ValidateCount("value", len(items), p.min, p.max); err != nil {
		return err
	}
	for i, item := range items {
		if err := p.elem.Match(item); err != nil {
			return fmt.Errorf("element %d (%q): %w", i, item, err)
		}
	}
	return nil
}

func (p list) Description() string {
	return fmt.Sprintf("[List of <%s> of length %d...%d (inclusive)]", p.elem.Description(), p.min, p.max)
}

// SplitList splits a comma separated value into trimmed elements.
// An empty or blank value is the empty list.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// toErr converts a possibly nil *ValidationError into an error without
// producing a typed-nil interface.
func toErr(v *validation.ValidationError) error {
	if v == nil {
		return nil
	}
	return v
}
