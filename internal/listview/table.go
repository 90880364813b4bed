package listview

import (
	"net/url"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/linkdash/internal/domain"
)

// Column describes one table column. Label is an i18n key.
type Column struct {
	Key   string
	Label string
}

// Action is a per-row button opening a dialog.
type Action struct {
	Mode  string
	Label string
}

// Table is the render model of a list screen.
type Table[T any] struct {
	Kind       domain.EntityKind
	Columns    []Column
	Rows       []T
	Selectable bool
	Selection  Selection
	Actions    []Action
}

func (t Table[T]) Empty() bool { return len(t.Rows) == 0 }

// EmptyKey is the common namespace key rendered instead of an empty table.
func (t Table[T]) EmptyKey() string { return EmptyStateKey(t.Kind) }

var emptyKeys = map[domain.EntityKind]string{
	domain.KindLink:      "empty_links",
	domain.KindUser:      "empty_users",
	domain.KindVisit:     "empty_visits",
	domain.KindEmail:     "empty_emails",
	domain.KindFollowUp:  "empty_followups",
	domain.KindDashboard: "empty_dashboard",
}

// EmptyStateKey returns the kind-specific empty-state message key.
func EmptyStateKey(kind domain.EntityKind) string {
	if k, ok := emptyKeys[kind]; ok {
		return k
	}
	return "empty_generic"
}

// Selection is a set of selected row identifiers.
type Selection map[string]struct{}

// ParseSelection reads every value of field, also accepting comma separated lists.
func ParseSelection(values url.Values, field string) Selection {
	sel := Selection{}
	for _, raw := range values[field] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				sel[id] = struct{}{}
			}
		}
	}
	return sel
}

// Reconcile drops identifiers that are not among ids, the current rows.
func (s Selection) Reconcile(ids []string) Selection {
	present := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		present[id] = struct{}{}
	}
	out := Selection{}
	for id := range s {
		if _, ok := present[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s Selection) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Selection) Len() int { return len(s) }

// IDs returns the selection sorted.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
