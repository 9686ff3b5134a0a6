package service

import (
	"time"

	"fdctax/internal/onboarding/flow"
	"fdctax/internal/onboarding/models"
	"fdctax/internal/validation"
)

// Snapshot is the client-facing view of a session after an operation.
type Snapshot struct {
	SessionID   string                       `json:"session_id"`
	Flow        string                       `json:"flow"`
	FlowTitle   string                       `json:"flow_title"`
	Stage       StageView                    `json:"stage"`
	Progress    int                          `json:"progress"`
	Record      models.Record                `json:"record"`
	Validations map[string]validation.Result `json:"validations"`
	Toggles     map[string]bool              `json:"toggles,omitempty"`
	Error       string                       `json:"error,omitempty"`
	Submitting  bool                         `json:"submitting"`
	Complete    bool                         `json:"complete"`
	ClientID    string                       `json:"client_id,omitempty"`
	ResumeToken string                       `json:"resume_token,omitempty"`
	Resumed     bool                         `json:"resumed"`
	ExpiresAt   time.Time                    `json:"expires_at,omitzero"`
}

// StageView describes the stage the session is on.
type StageView struct {
	ID        int         `json:"id"`
	Title     string      `json:"title"`
	Number    int         `json:"number"`
	Total     int         `json:"total"`
	CanSubmit bool        `json:"can_submit"`
	Fields    []FieldView `json:"fields"`
}

// FieldView lists a visible input of the current stage.
type FieldView struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Required  bool   `json:"required"`
	Validator string `json:"validator,omitempty"`
}

func newSnapshot(f *flow.Flow, s *models.Session) *Snapshot {
	number, total, percent := f.Progress(s)
	st, _ := f.Stage(s.Stage)

	fields := make([]FieldView, 0, len(st.Fields))
	for _, fd := range st.Fields {
		if !fd.Visible(s.Record) {
			continue
		}
		fields = append(fields, FieldView{
			Name:      fd.Name,
			Label:     fd.Label,
			Required:  fd.Required || fd.Accept,
			Validator: string(fd.Validator),
		})
	}

	validations := make(map[string]validation.Result, len(s.Validations))
	for name, fv := range s.Validations {
		validations[name] = fv.Result
	}

	var toggles map[string]bool
	if len(f.CopyRules) > 0 {
		toggles = make(map[string]bool, len(f.CopyRules))
		for _, rule := range f.CopyRules {
			toggles[rule.Toggle] = s.ToggleOn(rule.Toggle, rule.Default)
		}
	}

	return &Snapshot{
		SessionID: s.ID,
		Flow:      f.Name,
		FlowTitle: f.Title,
		Stage: StageView{
			ID:        st.ID,
			Title:     st.Title,
			Number:    number,
			Total:     total,
			CanSubmit: !s.Complete && s.Stage == f.LastSubmittable(s.Record),
			Fields:    fields,
		},
		Progress:    percent,
		Record:      s.Record.Clone(),
		Validations: validations,
		Toggles:     toggles,
		Error:       s.Error,
		Submitting:  s.Submitting,
		Complete:    s.Complete,
		ClientID:    s.ClientID,
		ResumeToken: s.ResumeToken,
		Resumed:     s.Resumed,
		ExpiresAt:   s.ExpiresAt,
	}
}
