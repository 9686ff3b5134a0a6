// Package models holds the client CRM record produced by a submitted onboarding.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is one onboarded client. The raw onboarding answers are kept in Data
// without the TFN, which is only stored sealed.
type Client struct {
	ID           uuid.UUID
	ResumeToken  uuid.UUID
	Flow         string
	FirstName    string
	MiddleName   string
	LastName     string
	FullName     string
	CasualName   string
	Email        string
	Mobile       string
	ABN          string
	BusinessName string
	TFNEncrypted string
	Data         map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ListQuery filters the client list. Search matches name, email and business
// name case-insensitively.
type ListQuery struct {
	Search string
	Limit  int
	Offset int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Normalize clamps the paging values.
func (q ListQuery) Normalize() ListQuery {
	q.Search = strings.TrimSpace(q.Search)
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Matches applies the search filter in memory.
func (c *Client) Matches(search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, hay := range []string{c.FullName, c.Email, c.BusinessName} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// FullNameOf joins the non-empty name parts.
func FullNameOf(first, middle, last string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{first, middle, last} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
