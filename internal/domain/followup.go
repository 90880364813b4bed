package domain

import "time"

// FollowUp is an email campaign sent to addresses captured by a link.
type FollowUp struct {
	ID             string    `json:"_id"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body,omitempty"`
	Img            string    `json:"img,omitempty"`
	DestinationURL string    `json:"destinationUrl"`
	Enabled        bool      `json:"enabled"`
	Approved       bool      `json:"approved"`
	Link           *LinkRef  `json:"link,omitempty"`
	User           *UserRef  `json:"user,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// FollowUpUpdate is the editable subset of a follow-up.
type FollowUpUpdate struct {
	Subject        string `json:"subject"`
	Body           string `json:"body,omitempty"`
	Img            string `json:"img,omitempty"`
	DestinationURL string `json:"destinationUrl"`
	Enabled        bool   `json:"enabled"`
	Approved       bool   `json:"approved"`
}

// PendingApproval counts follow-ups still waiting for an admin.
func PendingApproval(items []FollowUp) int {
	n := 0
	for _, f := range items {
		if !f.Approved {
			n++
		}
	}
	return n
}
