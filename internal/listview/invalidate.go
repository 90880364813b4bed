package listview

import (
	"github.com/MrSnakeDoc/linkdash/internal/domain"
)

// MutationKind names a write the dashboard can perform.
type MutationKind string

const (
	LinkUpdate     MutationKind = "link.update"
	LinkDelete     MutationKind = "link.delete"
	VisitDelete    MutationKind = "visit.delete"
	UserCreate     MutationKind = "user.create"
	UserUpdate     MutationKind = "user.update"
	UserRemove     MutationKind = "user.remove"
	UserStatus     MutationKind = "user.status"
	FollowUpUpdate MutationKind = "followup.update"
	FollowUpDelete MutationKind = "followup.delete"
	PasswordChange MutationKind = "user.password"
)

// Invalidations maps each mutation to the entity kinds whose lists could
// contain the mutated record.
type Invalidations map[MutationKind][]domain.EntityKind

// DefaultInvalidations is the single declaration of what each write makes
// stale. Links and follow-ups embed an owner snapshot and user details embed
// links, hence the cross-kind entries.
var DefaultInvalidations = Invalidations{
	LinkUpdate:     {domain.KindLink, domain.KindUser, domain.KindDashboard},
	LinkDelete:     {domain.KindLink, domain.KindUser, domain.KindVisit, domain.KindEmail, domain.KindFollowUp, domain.KindDashboard},
	VisitDelete:    {domain.KindVisit, domain.KindLink, domain.KindDashboard},
	UserCreate:     {domain.KindUser, domain.KindDashboard},
	UserUpdate:     {domain.KindUser, domain.KindLink, domain.KindFollowUp, domain.KindDashboard},
	UserRemove:     {domain.KindUser, domain.KindLink, domain.KindFollowUp, domain.KindDashboard},
	UserStatus:     {domain.KindUser},
	FollowUpUpdate: {domain.KindFollowUp},
	FollowUpDelete: {domain.KindFollowUp},
	PasswordChange: nil,
}

// Kinds returns the kinds invalidated by m, and false for an undeclared mutation.
func (inv Invalidations) Kinds(m MutationKind) ([]domain.EntityKind, bool) {
	kinds, ok := inv[m]
	return kinds, ok
}
