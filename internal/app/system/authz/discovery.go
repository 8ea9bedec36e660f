// internal/app/system/authz/discovery.go
package authz

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Discovery modes accepted by the shared_discovery setting.
const (
	DiscoveryParticipants  = "participants"
	DiscoveryAuthenticated = "authenticated"
	DiscoveryOff           = "off"
)

// OwnershipChecker reports whether a user owns any project.
type OwnershipChecker interface {
	OwnsAny(ctx context.Context, userID primitive.ObjectID) (bool, error)
}

// ParticipationChecker reports whether a user holds any membership.
type ParticipationChecker interface {
	HasAny(ctx context.Context, userID primitive.ObjectID) (bool, error)
}

// Participants includes actors who own a project or are a member of one.
func Participants(owners OwnershipChecker, members ParticipationChecker) DiscoveryPredicate {
	return DiscoveryFunc(func(ctx context.Context, a Actor) (bool, error) {
		ok, err := owners.OwnsAny(ctx, a.ID)
		if err != nil || ok {
			return ok, err
		}
		return members.HasAny(ctx, a.ID)
	})
}

// Authenticated includes every signed-in actor.
func Authenticated() DiscoveryPredicate {
	return DiscoveryFunc(func(context.Context, Actor) (bool, error) { return true, nil })
}

// DiscoveryFor maps a configured mode to a predicate. Off returns nil,
// which disables the shared-discovery rule.
func DiscoveryFor(mode string, owners OwnershipChecker, members ParticipationChecker) (DiscoveryPredicate, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", DiscoveryParticipants:
		return Participants(owners, members), nil
	case DiscoveryAuthenticated:
		return Authenticated(), nil
	case DiscoveryOff:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown shared discovery mode %q", mode)
}
