// Package models holds the onboarding record, the wizard session and the
// reducers that update them.
package models

import (
	"strconv"
	"strings"
)

// DeductionProfileField holds the nested deduction answers of the Luna flow.
const DeductionProfileField = "deduction_profile"

// Record is the sparse field map accumulated across stages. Values are the
// JSON-decoded scalars the wizard sends (string, bool, float64) plus one
// nested map for the deduction profile.
//
// Records are treated as immutable: reducers return a modified copy.
type Record map[string]any

// Clone copies r, including nested maps.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if m, ok := v.(map[string]any); ok {
			inner := make(map[string]any, len(m))
			for ik, iv := range m {
				inner[ik] = iv
			}
			out[k] = inner
			continue
		}
		out[k] = v
	}
	return out
}

// Text renders a scalar field as trimmed text. Missing fields yield "".
func (r Record) Text(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// Present reports whether field holds an answer. A false boolean is an answer.
func (r Record) Present(field string) bool {
	switch v := r[field].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

// Truthy reports whether field holds an affirmative answer: true, "Y", "yes" or "true".
func (r Record) Truthy(field string) bool {
	switch v := r[field].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "y", "yes", "true":
			return true
		}
	}
	return false
}

// Equals reports whether field's text equals want, ignoring case.
func (r Record) Equals(field, want string) bool {
	return strings.EqualFold(r.Text(field), want)
}

// Deductions returns the nested deduction profile, or nil.
func (r Record) Deductions() map[string]any {
	m, _ := r[DeductionProfileField].(map[string]any)
	return m
}

// SetField returns a copy of r with field set. A nil value clears the field.
func SetField(r Record, field string, value any) Record {
	out := r.Clone()
	if value == nil {
		delete(out, field)
		return out
	}
	out[field] = value
	return out
}

// SetDeduction returns a copy of r with one deduction profile key set.
func SetDeduction(r Record, key string, value any) Record {
	out := r.Clone()
	profile, _ := out[DeductionProfileField].(map[string]any)
	if profile == nil {
		profile = map[string]any{}
		out[DeductionProfileField] = profile
	}
	if value == nil {
		delete(profile, key)
		return out
	}
	profile[key] = value
	return out
}

// Merge returns a copy of r overlaid with every field of other.
func Merge(r, other Record) Record {
	out := r.Clone()
	for k, v := range other.Clone() {
		out[k] = v
	}
	return out
}

// FieldPair maps a source field onto the destination it is copied to.
type FieldPair struct {
	From string
	To   string
}

// CopyRule describes a "same as" toggle. While the toggle is on, destination
// fields mirror their sources.
type CopyRule struct {
	Toggle  string
	Default bool
	Pairs   []FieldPair
}

// Sources reports whether field is a source of the rule.
func (c CopyRule) Sources(field string) bool {
	for _, p := range c.Pairs {
		if p.From == field {
			return true
		}
	}
	return false
}

// ApplyCopy returns a copy of r with every destination overwritten from its
// source. Missing sources clear their destination.
func ApplyCopy(r Record, rule CopyRule) Record {
	out := r.Clone()
	for _, p := range rule.Pairs {
		if v, ok := out[p.From]; ok {
			out[p.To] = v
		} else {
			delete(out, p.To)
		}
	}
	return out
}
