// Package flow describes onboarding wizards as tables of stages and fields and
// drives sessions through them.
package flow

import (
	"fmt"
	"sort"

	"fdctax/internal/onboarding/models"
	"fdctax/internal/validation"
)

// Predicate is evaluated against the record to gate a field or a stage.
type Predicate func(models.Record) bool

// FieldDescriptor declares one input of a stage.
type FieldDescriptor struct {
	Name     string
	Label    string
	Required bool
	// Accept requires an affirmative answer (a ticked declaration).
	Accept bool
	// VisibleWhen hides the field, and its requirement, when it returns false.
	VisibleWhen Predicate
	// Validator backs the field with a checksum check that must pass before leaving the stage.
	Validator validation.Kind
	// Message replaces the flow's aggregate message when this field is missing.
	Message string
}

// Visible reports whether the field is shown for r.
func (f FieldDescriptor) Visible(r models.Record) bool {
	return f.VisibleWhen == nil || f.VisibleWhen(r)
}

// StageDescriptor is one screen of a flow.
type StageDescriptor struct {
	ID       int
	Title    string
	Fields   []FieldDescriptor
	SkipWhen Predicate
	// Completion marks the display-only stage entered after a successful submit.
	Completion bool
}

// Skipped reports whether the stage is bypassed for r.
func (s StageDescriptor) Skipped(r models.Record) bool {
	return s.SkipWhen != nil && s.SkipWhen(r)
}

// Prefill copies From into To when To is still empty and From changes.
type Prefill struct {
	From string
	To   string
}

// Flow is a complete wizard definition.
type Flow struct {
	Name  string
	Title string
	// MissingMessage is shown when a required field without its own message is empty.
	MissingMessage string
	Stages         []StageDescriptor
	Defaults       models.Record
	CopyRules      []models.CopyRule
	Prefills       []Prefill
	// PaymentField and PaymentReferenceField receive the outcome of a payment.
	PaymentField          string
	PaymentReferenceField string
	// PaymentRequired reports whether the paid tier was chosen.
	PaymentRequired Predicate
}

// Stage returns the descriptor with the given ID.
func (f *Flow) Stage(id int) (StageDescriptor, bool) {
	if id < 1 || id > len(f.Stages) {
		return StageDescriptor{}, false
	}
	return f.Stages[id-1], true
}

// First returns the first stage shown for r.
func (f *Flow) First(r models.Record) int {
	for _, st := range f.Stages {
		if !st.Skipped(r) {
			return st.ID
		}
	}
	return 1
}

// LastSubmittable returns the stage from which r can be submitted: the last
// stage that is neither skipped nor a completion screen.
func (f *Flow) LastSubmittable(r models.Record) int {
	for i := len(f.Stages) - 1; i >= 0; i-- {
		st := f.Stages[i]
		if !st.Completion && !st.Skipped(r) {
			return st.ID
		}
	}
	return 0
}

// CompletionStage returns the completion stage ID, or 0 when the flow has none.
func (f *Flow) CompletionStage() int {
	for _, st := range f.Stages {
		if st.Completion {
			return st.ID
		}
	}
	return 0
}

// CopyRule returns the rule governed by toggle.
func (f *Flow) CopyRule(toggle string) (models.CopyRule, bool) {
	for _, rule := range f.CopyRules {
		if rule.Toggle == toggle {
			return rule, true
		}
	}
	return models.CopyRule{}, false
}

// Field looks up a field descriptor by name across all stages.
func (f *Flow) Field(name string) (FieldDescriptor, bool) {
	for _, st := range f.Stages {
		for _, fd := range st.Fields {
			if fd.Name == name {
				return fd, true
			}
		}
	}
	return FieldDescriptor{}, false
}

// ValidatorFor returns the validator kind backing field, if any.
func (f *Flow) ValidatorFor(field string) (validation.Kind, bool) {
	fd, ok := f.Field(field)
	if !ok || fd.Validator == "" {
		return "", false
	}
	return fd.Validator, true
}

// Registry holds the flows served by the application.
type Registry struct {
	flows map[string]*Flow
}

// NewRegistry indexes flows by name.
func NewRegistry(flows ...*Flow) *Registry {
	r := &Registry{flows: make(map[string]*Flow, len(flows))}
	for _, f := range flows {
		r.flows[f.Name] = f
	}
	return r
}

// DefaultRegistry serves the Luna and ABN assistance flows.
func DefaultRegistry() *Registry {
	return NewRegistry(Luna(), ABNAssistance())
}

// Get returns the named flow.
func (r *Registry) Get(name string) (*Flow, error) {
	f, ok := r.flows[name]
	if !ok {
		return nil, fmt.Errorf("unknown flow %q", name)
	}
	return f, nil
}

// Names lists the registered flows in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.flows))
	for name := range r.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func equals(field, want string) Predicate {
	return func(r models.Record) bool {
		return r.Equals(field, want)
	}
}

func not(p Predicate) Predicate {
	return func(r models.Record) bool {
		return !p(r)
	}
}
