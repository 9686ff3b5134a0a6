package models

import (
	"time"

	"fdctax/pkg/secrets"
)

// ClientView is the admin read model. The TFN is masked.
type ClientView struct {
	ID           string         `json:"id"`
	ResumeToken  string         `json:"resume_token"`
	Flow         string         `json:"flow"`
	FullName     string         `json:"full_name"`
	CasualName   string         `json:"casual_name,omitempty"`
	Email        string         `json:"email"`
	Mobile       string         `json:"mobile"`
	ABN          string         `json:"abn,omitempty"`
	BusinessName string         `json:"business_name,omitempty"`
	TFN          string         `json:"tfn,omitempty"`
	Data         map[string]any `json:"onboarding_data,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewClientView builds the read model. plainTFN is masked before it is stored.
func NewClientView(c *Client, plainTFN string, withData bool) *ClientView {
	v := &ClientView{
		ID:           c.ID.String(),
		ResumeToken:  c.ResumeToken.String(),
		Flow:         c.Flow,
		FullName:     c.FullName,
		CasualName:   c.CasualName,
		Email:        c.Email,
		Mobile:       c.Mobile,
		ABN:          secrets.FormatABN(c.ABN),
		BusinessName: c.BusinessName,
		TFN:          secrets.MaskTFN(plainTFN),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if withData {
		v.Data = c.Data
	}
	return v
}

// SubmitResult is returned to the wizard after a successful submission.
type SubmitResult struct {
	Success     bool   `json:"success"`
	ID          string `json:"id"`
	ResumeToken string `json:"resume_token"`
}
