package catalogue

import (
	"fmt"
	"strings"
)

// Selection is the operator's choice for one category (data groups or
// applications). An unspecified selection means "everything"; a specified
// one with no values means "nothing".
type Selection struct {
	specified bool
	values    []string
}

// Unspecified returns a selection that resolves to the full default set
func Unspecified() Selection {
	return Selection{}
}

// Explicit returns a specified selection. Empty strings are dropped, so
// Explicit() and Explicit("") both select nothing.
func Explicit(values ...string) Selection {
	s := Selection{specified: true, values: make([]string, 0, len(values))}
	for _, v := range values {
		if v != "" {
			s.values = append(s.values, v)
		}
	}
	return s
}

// FromFlag builds a selection from a parsed flag and whether it was given.
// Repeated flags arrive already unioned in first-seen order.
func FromFlag(changed bool, values []string) Selection {
	if !changed {
		return Unspecified()
	}
	return Explicit(values...)
}

// Values returns the explicitly selected values
func (s Selection) Values() []string {
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}

// Resolve returns defaults when unspecified and the explicit values
// otherwise. Duplicates are kept.
func (s Selection) Resolve(defaults []string) []string {
	if !s.specified {
		out := make([]string, len(defaults))
		copy(out, defaults)
		return out
	}
	return s.Values()
}

// Validate checks that every explicit value is one of allowed.
func (s Selection) Validate(kind string, allowed []string) error {
	known := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		known[a] = struct{}{}
	}
	for _, v := range s.values {
		if _, ok := known[v]; !ok {
			return &InvalidSelectionError{Kind: kind, Value: v, Allowed: allowed}
		}
	}
	return nil
}

// InvalidSelectionError reports a selected name outside the allowed set
type InvalidSelectionError struct {
	Kind    string
	Value   string
	Allowed []string
}

func (e *InvalidSelectionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s %q (no choices available)", e.Kind, e.Value)
	}
	return fmt.Sprintf("invalid %s %q (choose from %s)", e.Kind, e.Value, strings.Join(e.Allowed, ", "))
}
