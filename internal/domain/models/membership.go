// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project-scoped roles a membership can grant.
const (
	ProjectRoleCollaborator = "collaborator"
	ProjectRoleViewer       = "viewer"
)

// ProjectMembership is the authoritative join between users and projects.
// Exactly one document per (project_id, user_id); role is a scalar ("collaborator"|"viewer").
type ProjectMembership struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role      string             `bson:"role" json:"role"` // "collaborator" | "viewer"
	InvitedBy primitive.ObjectID `bson:"invited_by" json:"invited_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
