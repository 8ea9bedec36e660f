// internal/app/system/authz/roles.go
package authz

import (
	"strings"

	"github.com/yovalentych/research-os-sub002/internal/domain/models"
)

// rank orders global roles; mentor and supervisor share a tier.
var rank = map[string]int{
	models.RoleOwner:        4,
	models.RoleSupervisor:   3,
	models.RoleMentor:       3,
	models.RoleCollaborator: 2,
	models.RoleViewer:       1,
}

func norm(role string) string { return strings.ToLower(strings.TrimSpace(role)) }

// IsElevated reports whether a global role sees and edits every project.
func IsElevated(globalRole string) bool {
	switch norm(globalRole) {
	case models.RoleOwner, models.RoleSupervisor, models.RoleMentor:
		return true
	}
	return false
}

// IsGlobalRole reports whether role is one of the five global roles.
func IsGlobalRole(role string) bool {
	_, ok := rank[norm(role)]
	return ok
}

// AtLeast reports whether role ranks at or above min. Unknown roles rank
// below everything.
func AtLeast(role, min string) bool {
	r, ok := rank[norm(role)]
	if !ok {
		return false
	}
	return r >= rank[norm(min)]
}

// projectGrants is the membership decision table.
var projectGrants = map[string]struct{ view, edit bool }{
	models.ProjectRoleCollaborator: {view: true, edit: true},
	models.ProjectRoleViewer:       {view: true, edit: false},
}

// IsProjectRole reports whether role can be granted by a membership.
func IsProjectRole(role string) bool {
	_, ok := projectGrants[norm(role)]
	return ok
}
