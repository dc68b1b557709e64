// Package perm holds the permission vocabulary and the pure evaluator that
// guards every sensitive endpoint. The evaluator operates on a flattened
// permission set materialized once per request by the identity middleware;
// it never walks the role graph itself.
package perm

import "fmt"

// FullAccess is the superuser bypass token. Its presence in a set makes
// every evaluation succeed, independent of role structure.
const FullAccess = "admin:full_access"

// Capability tokens. Flat namespace, exact string membership.
const (
	UsersView   = "users:view"
	UsersManage = "users:manage"
	RolesView   = "roles:view"
	RolesManage = "roles:manage"

	StudentsViewOwn = "students:view_own"
	StudentsViewAll = "students:view_all"
	StudentsManage  = "students:manage"

	RoomsView   = "rooms:view"
	RoomsManage = "rooms:manage"

	InspectionsViewOwn   = "inspections:view_own"
	InspectionsViewAll   = "inspections:view_all"
	InspectionsSubmitOwn = "inspections:submit_own"
	InspectionsSubmitAny = "inspections:submit_any"
	InspectionsReview    = "inspections:review"
	InspectionsDelete    = "inspections:delete"

	AnnouncementsView   = "announcements:view"
	AnnouncementsCreate = "announcements:create"
	AnnouncementsEdit   = "announcements:edit"
	AnnouncementsDelete = "announcements:delete"

	PatrolLocationsView   = "patrol_locations:view"
	PatrolLocationsManage = "patrol_locations:manage"
	PatrolsPerform        = "patrols:perform"
	PatrolsViewAll        = "patrols:view_all"
	ReportsViewStatistics = "reports:view_statistics"
	ReportsExport         = "reports:export"

	AuditLogsView = "audit_logs:view"
	ItemsManage   = "manage_items"
)

// Set is a deduplicated permission-name set.
type Set map[string]struct{}

func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Logic selects how multiple required tokens combine.
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// Required is the permission spec a guard evaluates against a caller's set.
type Required struct {
	Perms []string
	Logic Logic
}

// NewRequired validates the logic literal at construction so a misconfigured
// guard fails at wiring time, not on the first request.
func NewRequired(logic Logic, perms ...string) (Required, error) {
	if logic != And && logic != Or {
		return Required{}, fmt.Errorf("invalid permission logic %q: must be %q or %q", logic, And, Or)
	}
	return Required{Perms: perms, Logic: logic}, nil
}

// All requires every listed permission.
func All(perms ...string) Required {
	return Required{Perms: perms, Logic: And}
}

// Any requires at least one of the listed permissions.
func Any(perms ...string) Required {
	return Required{Perms: perms, Logic: Or}
}

// Evaluate reports whether the caller's set satisfies the requirement.
// The superuser bypass is checked first and on its own so it stays auditable.
func Evaluate(s Set, req Required) bool {
	if s.Has(FullAccess) {
		return true
	}
	switch req.Logic {
	case Or:
		for _, p := range req.Perms {
			if s.Has(p) {
				return true
			}
		}
		return false
	default:
		for _, p := range req.Perms {
			if !s.Has(p) {
				return false
			}
		}
		return true
	}
}
