// Package validation implements the Australian Tax File Number and Australian
// Business Number checks used by the onboarding wizard.
//
// Both validators are pure: the same input always yields the same Result and
// nothing is retained between calls.
package validation

// Kind names an identifier with a checksum validator.
type Kind string

const (
	KindTFN Kind = "tfn"
	KindABN Kind = "abn"
)

// Messages returned to the wizard. They are shown verbatim next to the field.
const (
	MsgTFNLength      = "TFN must be 9 digits"
	MsgTFNValid       = "Valid TFN"
	MsgTFNInvalid     = "Invalid TFN - please check the number"
	MsgABNLength      = "ABN must be 11 digits"
	MsgABNNotNumeric  = "ABN must contain only numbers"
	MsgABNValid       = "Valid ABN"
	MsgABNInvalid     = "Invalid ABN - please check the number"
	MsgValidatorError = "Validation error"
)

// Result is the outcome of a validator run.
//
// Valid is tri-state: nil means the field has not been evaluated yet (empty
// input or a fresh edit), otherwise it holds the verdict. Loading marks a check
// that has been issued but not answered.
type Result struct {
	Valid   *bool  `json:"valid"`
	Message string `json:"message,omitempty"`
	Loading bool   `json:"loading,omitempty"`
}

// NotEvaluated is the zero Result.
func NotEvaluated() Result {
	return Result{}
}

// Pending marks an in-flight check.
func Pending() Result {
	return Result{Loading: true}
}

// Passed builds a positive verdict.
func Passed(msg string) Result {
	v := true
	return Result{Valid: &v, Message: msg}
}

// Failed builds a negative verdict.
func Failed(msg string) Result {
	v := false
	return Result{Valid: &v, Message: msg}
}

// Evaluated reports whether a verdict is present.
func (r Result) Evaluated() bool {
	return r.Valid != nil && !r.Loading
}

// IsValid is true only for a settled positive verdict.
func (r Result) IsValid() bool {
	return r.Valid != nil && *r.Valid && !r.Loading
}

// Validate dispatches to the validator for kind.
func Validate(kind Kind, raw string) Result {
	switch kind {
	case KindTFN:
		return ValidateTFN(raw)
	case KindABN:
		return ValidateABN(raw)
	default:
		return NotEvaluated()
	}
}

// ReadyForCheck reports whether raw has reached the length at which a check
// is worth issuing. Shorter input is still being typed and is left unevaluated.
func ReadyForCheck(kind Kind, raw string) bool {
	switch kind {
	case KindTFN:
		return len(NormalizeTFN(raw)) == tfnLength
	case KindABN:
		return len([]rune(NormalizeABN(raw))) == abnLength
	default:
		return false
	}
}
