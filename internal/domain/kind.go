package domain

// EntityKind names a backend-owned record type. It is the first component
// of every list cache key.
type EntityKind string

const (
	KindLink      EntityKind = "link"
	KindUser      EntityKind = "user"
	KindVisit     EntityKind = "visit"
	KindEmail     EntityKind = "email"
	KindFollowUp  EntityKind = "followup"
	KindDashboard EntityKind = "dashboard"
)

// Kinds lists every entity kind, in navigation order.
var Kinds = []EntityKind{KindDashboard, KindUser, KindLink, KindVisit, KindEmail, KindFollowUp}

func (k EntityKind) String() string { return string(k) }
