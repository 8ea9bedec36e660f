// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Global roles, highest first. Owner, supervisor, and mentor are "elevated":
// they see and edit every project regardless of membership.
const (
	RoleOwner        = "owner"
	RoleSupervisor   = "supervisor"
	RoleMentor       = "mentor"
	RoleCollaborator = "collaborator"
	RoleViewer       = "viewer"
)

// User is an authenticated actor. Role is the single global role; it only
// changes through an owner-level administrative action.
//
// NOTE:
//   - Project access is not embedded on User.
//     Use the project_memberships collection to discover a user's projects.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`
	Role       string             `bson:"role" json:"role"` // owner | supervisor | mentor | collaborator | viewer
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
