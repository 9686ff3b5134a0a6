// Package events publishes onboarding lifecycle events for downstream
// consumers (practice management sync, reporting).
package events

import "time"

// Type names an event.
type Type string

const (
	TypeSessionStarted Type = "onboarding.started"
	TypeSubmitted      Type = "onboarding.submitted"
	TypeSubmitFailed   Type = "onboarding.submit_failed"
	TypePaymentSettled Type = "onboarding.payment_settled"
)

// Event is transport-agnostic; sinks choose the encoding.
type Event struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	Flow        string         `json:"flow"`
	SessionID   string         `json:"session_id,omitempty"`
	ClientID    string         `json:"client_id,omitempty"`
	ResumeToken string         `json:"resume_token,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// Key partitions events per client, falling back to the session.
func (e Event) Key() string {
	if e.ClientID != "" {
		return e.ClientID
	}
	return e.SessionID
}
