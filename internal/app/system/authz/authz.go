// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"errors"
	"net/http"

	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
	"github.com/yovalentych/research-os-sub002/internal/app/system/metrics"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Actor is the authenticated principal a decision is made for.
type Actor struct {
	ID   primitive.ObjectID
	Role string // global role
}

// ActorFromRequest builds the Actor from the session user. No user is
// Unauthorized; a malformed session id is InvalidArgument.
func ActorFromRequest(r *http.Request) (Actor, error) {
	const op = "authz.ActorFromRequest"
	u, ok := auth.CurrentUser(r)
	if !ok {
		return Actor{}, apperr.E(apperr.KindUnauthorized, op, "sign in required", nil)
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return Actor{}, apperr.E(apperr.KindInvalidArgument, op, "malformed session user id", err)
	}
	return Actor{ID: id, Role: norm(u.Role)}, nil
}

// Rule names reported in Access.Rule and the decision counter.
const (
	RuleElevated   = "elevated"
	RuleOwner      = "owner"
	RuleMembership = "membership"
	RuleDiscovery  = "shared_discovery"
	RuleNoProject  = "no_project"
	RuleNone       = "none"
)

// Access is the outcome of one decision. Role is nil when there is no access.
type Access struct {
	CanView bool    `json:"can_view"`
	CanEdit bool    `json:"can_edit"`
	Role    *string `json:"role"`
	Rule    string  `json:"rule"`
}

// Facts are the inputs to Decide. Project nil means the project does not
// exist; Membership nil means the actor has none. Discoverable is consulted
// only when no earlier rule matched.
type Facts struct {
	Actor        Actor
	Project      *models.Project
	Membership   *models.ProjectMembership
	Discoverable func() bool
}

type rule struct {
	name  string
	apply func(f *Facts) (Access, bool)
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{RuleElevated, func(f *Facts) (Access, bool) {
		if !IsElevated(f.Actor.Role) {
			return Access{}, false
		}
		return grant(true, norm(f.Actor.Role)), true
	}},
	{RuleOwner, func(f *Facts) (Access, bool) {
		if f.Project.OwnerID.IsZero() || f.Project.OwnerID != f.Actor.ID {
			return Access{}, false
		}
		return grant(true, models.RoleOwner), true
	}},
	{RuleMembership, func(f *Facts) (Access, bool) {
		if f.Membership == nil {
			return Access{}, false
		}
		role := norm(f.Membership.Role)
		g, ok := projectGrants[role]
		if !ok || !g.view {
			return Access{}, false
		}
		return grant(g.edit, role), true
	}},
	{RuleDiscovery, func(f *Facts) (Access, bool) {
		if !f.Project.IsShared() || f.Discoverable == nil || !f.Discoverable() {
			return Access{}, false
		}
		return grant(false, models.ProjectRoleViewer), true
	}},
}

func grant(edit bool, label string) Access {
	return Access{CanView: true, CanEdit: edit, Role: &label}
}

// Decide applies the rule table to f. It performs no I/O beyond the
// Discoverable callback.
func Decide(f Facts) Access {
	if f.Project == nil {
		return Access{Rule: RuleNoProject}
	}
	for _, r := range rules {
		if a, ok := r.apply(&f); ok {
			a.Rule = r.name
			return a
		}
	}
	return Access{Rule: RuleNone}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Resolver                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// ProjectLookup loads a project; a missing one is mongo.ErrNoDocuments.
type ProjectLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error)
}

// MembershipLookup loads a membership; a missing one is mongo.ErrNoDocuments.
type MembershipLookup interface {
	Get(ctx context.Context, projectID, userID primitive.ObjectID) (models.ProjectMembership, error)
}

// DiscoveryPredicate decides whether an actor belongs to the population that
// may view shared projects they are not a member of.
type DiscoveryPredicate interface {
	Includes(ctx context.Context, actor Actor) (bool, error)
}

// DiscoveryFunc adapts a function to DiscoveryPredicate.
type DiscoveryFunc func(ctx context.Context, actor Actor) (bool, error)

func (f DiscoveryFunc) Includes(ctx context.Context, a Actor) (bool, error) { return f(ctx, a) }

// Resolver loads the facts for a decision and applies Decide.
type Resolver struct {
	projects    ProjectLookup
	memberships MembershipLookup
	discovery   DiscoveryPredicate
	metrics     *metrics.Metrics
}

// NewResolver wires the lookups. A nil discovery predicate disables the
// shared-discovery rule; m may be nil.
func NewResolver(projects ProjectLookup, memberships MembershipLookup, discovery DiscoveryPredicate, m *metrics.Metrics) *Resolver {
	return &Resolver{projects: projects, memberships: memberships, discovery: discovery, metrics: m}
}

// ResolveAccess decides what actor may do on the project identified by
// projectIDHex. A malformed id fails with InvalidArgument before any read;
// a missing project or membership is no access, not an error.
func (rs *Resolver) ResolveAccess(ctx context.Context, actor Actor, projectIDHex string) (Access, error) {
	const op = "authz.ResolveAccess"
	pid, err := primitive.ObjectIDFromHex(projectIDHex)
	if err != nil {
		return Access{}, apperr.E(apperr.KindInvalidArgument, op, "invalid project id", err)
	}
	if actor.ID.IsZero() {
		return Access{}, apperr.E(apperr.KindInvalidArgument, op, "invalid actor id", nil)
	}
	a, _, err := rs.resolve(ctx, actor, pid)
	return a, err
}

// ResolveProject is ResolveAccess for a parsed id that also returns the
// loaded project (nil when it does not exist).
func (rs *Resolver) ResolveProject(ctx context.Context, actor Actor, projectID primitive.ObjectID) (Access, *models.Project, error) {
	return rs.resolve(ctx, actor, projectID)
}

func (rs *Resolver) resolve(ctx context.Context, actor Actor, pid primitive.ObjectID) (Access, *models.Project, error) {
	const op = "authz.resolve"
	facts := Facts{Actor: actor}

	p, err := rs.projects.GetByID(ctx, pid)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return rs.record(Decide(facts)), nil, nil
	case err != nil:
		return Access{}, nil, apperr.Storage(op, err)
	}
	facts.Project = &p

	// Elevated actors and owners never need the membership read.
	if !IsElevated(actor.Role) && p.OwnerID != actor.ID {
		m, err := rs.memberships.Get(ctx, pid, actor.ID)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
		case err != nil:
			return Access{}, nil, apperr.Storage(op, err)
		default:
			facts.Membership = &m
		}
	}

	var discErr error
	if rs.discovery != nil {
		facts.Discoverable = func() bool {
			ok, err := rs.discovery.Includes(ctx, actor)
			discErr = err
			return err == nil && ok
		}
	}

	a := Decide(facts)
	if discErr != nil {
		return Access{}, nil, apperr.Storage(op, discErr)
	}
	return rs.record(a), &p, nil
}

func (rs *Resolver) record(a Access) Access {
	rs.metrics.AccessDecision(a.Rule)
	return a
}

// CanManageMembers reports whether actor may add or remove members.
func (rs *Resolver) CanManageMembers(ctx context.Context, actor Actor, projectIDHex string) (bool, error) {
	const op = "authz.CanManageMembers"
	pid, err := primitive.ObjectIDFromHex(projectIDHex)
	if err != nil {
		return false, apperr.E(apperr.KindInvalidArgument, op, "invalid project id", err)
	}
	p, err := rs.projects.GetByID(ctx, pid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage(op, err)
	}
	return CanManageMembers(actor, p), nil
}

// CanManageMembers is true for elevated actors and the project owner.
// Collaborators edit content but never the member list.
func CanManageMembers(actor Actor, project models.Project) bool {
	if IsElevated(actor.Role) {
		return true
	}
	return !project.OwnerID.IsZero() && project.OwnerID == actor.ID
}

// CanChangeGlobalRole reports whether actor may set another user's global
// role. Only owners may, and never on themselves.
func CanChangeGlobalRole(actor Actor, target primitive.ObjectID) bool {
	return norm(actor.Role) == models.RoleOwner && actor.ID != target
}
