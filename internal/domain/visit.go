package domain

import (
	"strings"
	"time"
)

// Visit is a single recorded hit on a link.
type Visit struct {
	ID        string    `json:"_id"`
	VisitorID string    `json:"visitorId"`
	VisitIP   string    `json:"visitIp,omitempty"`
	VisitedAt time.Time `json:"visitedAt"`
	Link      *LinkRef  `json:"link,omitempty"`
}

// ShortVisitorID is the first group of the visitor UUID, enough to tell visitors apart.
func (v Visit) ShortVisitorID() string {
	id, _, _ := strings.Cut(v.VisitorID, "-")
	return id
}

// Email is an address captured by a link.
type Email struct {
	ID           string    `json:"_id"`
	Email        string    `json:"email"`
	FollowUpSent bool      `json:"followUpSent"`
	VisitedAt    time.Time `json:"visitedAt"`
	Link         *LinkRef  `json:"link,omitempty"`
}
