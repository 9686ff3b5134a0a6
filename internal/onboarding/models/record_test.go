package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdctax/internal/validation"
)

var postalRule = CopyRule{
	Toggle:  "postal_same_as_residential",
	Default: true,
	Pairs: []FieldPair{
		{From: "residential_address_line_1", To: "postal_address_line_1"},
		{From: "residential_address_state", To: "postal_address_state"},
	},
}

func TestSetFieldDoesNotMutateInput(t *testing.T) {
	r := Record{"first_name": "Ada"}
	next := SetField(r, "last_name", "Lovelace")

	assert.Equal(t, "Lovelace", next.Text("last_name"))
	assert.False(t, r.Present("last_name"))
}

func TestSetFieldNilClears(t *testing.T) {
	r := SetField(Record{"abn": "51824753556"}, "abn", nil)
	assert.False(t, r.Present("abn"))
}

func TestSetDeductionCopiesNestedMap(t *testing.T) {
	r := SetDeduction(Record{}, "car_use", "yes")
	next := SetDeduction(r, "home_office", "no")

	assert.Equal(t, map[string]any{"car_use": "yes"}, r.Deductions())
	assert.Equal(t, map[string]any{"car_use": "yes", "home_office": "no"}, next.Deductions())
}

func TestPresentAndTruthy(t *testing.T) {
	r := Record{"blank": "  ", "no": false, "yes": "Y", "flag": true, "zero": float64(0)}

	assert.False(t, r.Present("blank"))
	assert.True(t, r.Present("no"))
	assert.True(t, r.Present("zero"))
	assert.False(t, r.Present("missing"))
	assert.True(t, r.Truthy("yes"))
	assert.True(t, r.Truthy("flag"))
	assert.False(t, r.Truthy("no"))
	assert.Equal(t, "0", r.Text("zero"))
}

func TestApplyCopyOverwritesDestinations(t *testing.T) {
	r := Record{
		"residential_address_line_1": "1 Main St",
		"postal_address_line_1":      "PO Box 9",
		"postal_address_state":       "VIC",
	}
	out := ApplyCopy(r, postalRule)

	assert.Equal(t, "1 Main St", out.Text("postal_address_line_1"))
	assert.False(t, out.Present("postal_address_state"))
	assert.Equal(t, "PO Box 9", r.Text("postal_address_line_1"))
	assert.True(t, postalRule.Sources("residential_address_state"))
	assert.False(t, postalRule.Sources("postal_address_state"))
}

func TestValidationSequence(t *testing.T) {
	s := &Session{}
	first := s.ResetValidation("tfn")
	require.True(t, s.MarkPending("tfn", first))
	second := s.ResetValidation("tfn")
	require.True(t, s.MarkPending("tfn", second))

	assert.False(t, s.ApplyValidation("tfn", first, validation.Passed("Valid TFN")))
	assert.True(t, s.ValidationOf("tfn").Loading)

	assert.True(t, s.ApplyValidation("tfn", second, validation.Failed("Invalid TFN - please check the number")))
	res := s.ValidationOf("tfn")
	assert.True(t, res.Evaluated())
	assert.False(t, res.IsValid())
}

func TestSessionCloneIsDeep(t *testing.T) {
	s := &Session{Record: Record{"a": "1"}, Toggles: map[string]bool{"t": true}}
	s.ResetValidation("abn")
	s.ApplyValidation("abn", 1, validation.Passed("Valid ABN"))

	c := s.Clone()
	c.Record["a"] = "2"
	c.Toggles["t"] = false
	*c.Validations["abn"].Result.Valid = false

	assert.Equal(t, "1", s.Record.Text("a"))
	assert.True(t, s.Toggles["t"])
	assert.True(t, s.ValidationOf("abn").IsValid())
}
