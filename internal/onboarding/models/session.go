package models

import (
	"time"

	"fdctax/internal/validation"
)

// FieldValidation is the latest validator outcome for a field plus the
// sequence number of the request that is allowed to update it.
type FieldValidation struct {
	Result validation.Result `json:"result"`
	Seq    uint64            `json:"seq"`
}

// Session is one user's run through a flow.
type Session struct {
	ID          string                     `json:"id"`
	Flow        string                     `json:"flow"`
	Stage       int                        `json:"stage"`
	Record      Record                     `json:"record"`
	Validations map[string]FieldValidation `json:"validations,omitempty"`
	Toggles     map[string]bool            `json:"toggles,omitempty"`
	Error       string                     `json:"error,omitempty"`
	Submitting  bool                       `json:"submitting,omitempty"`
	Complete    bool                       `json:"complete,omitempty"`
	ClientID    string                     `json:"client_id,omitempty"`
	ResumeToken string                     `json:"resume_token,omitempty"`
	Resumed     bool                       `json:"resumed,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
	ExpiresAt   time.Time                  `json:"expires_at"`
}

// ValidationOf returns the stored result for field, or NotEvaluated.
func (s *Session) ValidationOf(field string) validation.Result {
	if s.Validations == nil {
		return validation.NotEvaluated()
	}
	return s.Validations[field].Result
}

// ResetValidation clears field's result and issues a new sequence number.
// Responses carrying an older number are discarded by ApplyValidation.
func (s *Session) ResetValidation(field string) uint64 {
	if s.Validations == nil {
		s.Validations = map[string]FieldValidation{}
	}
	fv := s.Validations[field]
	fv.Seq++
	fv.Result = validation.NotEvaluated()
	s.Validations[field] = fv
	return fv.Seq
}

// MarkPending flags field as awaiting the response to request seq.
func (s *Session) MarkPending(field string, seq uint64) bool {
	fv, ok := s.Validations[field]
	if !ok || fv.Seq != seq {
		return false
	}
	fv.Result = validation.Pending()
	s.Validations[field] = fv
	return true
}

// ApplyValidation stores res only if seq is still the latest request for field.
func (s *Session) ApplyValidation(field string, seq uint64, res validation.Result) bool {
	fv, ok := s.Validations[field]
	if !ok || fv.Seq != seq {
		return false
	}
	res.Loading = false
	fv.Result = res
	s.Validations[field] = fv
	return true
}

// ToggleOn reports the toggle state, falling back to def when never set.
func (s *Session) ToggleOn(name string, def bool) bool {
	if v, ok := s.Toggles[name]; ok {
		return v
	}
	return def
}

// Clone deep-copies the session so stores never share maps with callers.
func (s *Session) Clone() *Session {
	out := *s
	out.Record = s.Record.Clone()
	if s.Validations != nil {
		out.Validations = make(map[string]FieldValidation, len(s.Validations))
		for k, v := range s.Validations {
			if v.Result.Valid != nil {
				b := *v.Result.Valid
				v.Result.Valid = &b
			}
			out.Validations[k] = v
		}
	}
	if s.Toggles != nil {
		out.Toggles = make(map[string]bool, len(s.Toggles))
		for k, v := range s.Toggles {
			out.Toggles[k] = v
		}
	}
	return &out
}
