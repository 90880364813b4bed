package domain

import "time"

// Link is a shortened redirect link as returned by the backend.
//
// The dashboard never creates links itself; it only reads them, edits a
// subset of their attributes and deletes them.
type Link struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the backend identifier (Mongo ObjectID hex).
	ID string `json:"_id"`

	// Slug is the public path segment of the short link.
	// Example: summer-sale -> https://scanaqr.com/summer-sale
	Slug string `json:"slug"`

	// ─────────────────────────────
	// Behaviour (editable)
	// ─────────────────────────────

	// DestinationURL is where visitors are redirected.
	DestinationURL string `json:"destinationUrl"`

	// Type is the capture mode of the link ("none", "email", ...).
	Type string `json:"type,omitempty"`

	// Image is an optional preview image reference.
	Image string `json:"image,omitempty"`

	Description string `json:"description,omitempty"`

	// IsActive disables the redirect when false.
	IsActive bool `json:"isActive"`

	// GoogleLogin is "active", "optional" or "inactive".
	GoogleLogin string `json:"googleLogin,omitempty"`

	// ─────────────────────────────
	// Aggregates (computed by the backend)
	// ─────────────────────────────

	Visits     int64 `json:"visits"`
	EmailCount int64 `json:"emailCount"`

	// User is a denormalised snapshot of the owner. It is not kept in sync
	// with the user list; the backend is trusted for associations.
	User *UserRef `json:"user,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LinkRef is the embedded form of a link inside other records.
type LinkRef struct {
	ID   string `json:"_id"`
	Slug string `json:"slug"`
}

// HasCapture reports whether the link collects anything besides visits.
func (l Link) HasCapture() bool {
	return l.Type != "" && l.Type != "none"
}

// LinkDetails is the payload of the link details screen.
type LinkDetails struct {
	Link
	EmailList []Email `json:"emailList"`
}

// LinkUpdate is the editable subset of a link.
type LinkUpdate struct {
	DestinationURL string `json:"destinationUrl"`
	Type           string `json:"type,omitempty"`
	Image          string `json:"image,omitempty"`
	Description    string `json:"description,omitempty"`
	IsActive       bool   `json:"isActive"`
	GoogleLogin    string `json:"googleLogin,omitempty"`
}

// GoogleLogin modes.
const (
	GoogleLoginActive   = "active"
	GoogleLoginOptional = "optional"
	GoogleLoginInactive = "inactive"
)
