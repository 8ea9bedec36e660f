// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project visibility values.
const (
	VisibilityPrivate = "private"
	VisibilityShared  = "shared"
)

// Project is the unit of access control. Child records (experiments, tasks,
// materials, protocols, files) carry project_id and are only ever queried
// scoped to a project the actor can access.
//
// Projects are archived, never hard-deleted, so audit history keeps a
// resolvable parent.
type Project struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Title       string             `bson:"title" json:"title"`
	TitleCI     string             `bson:"title_ci" json:"-"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Visibility  string             `bson:"visibility" json:"visibility"` // "private" | "shared"
	ArchivedAt  *time.Time         `bson:"archived_at,omitempty" json:"archived_at,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsShared reports whether the project is discoverable by non-members.
func (p *Project) IsShared() bool {
	return p.Visibility == VisibilityShared
}

// IsArchived reports whether the project has been archived.
func (p *Project) IsArchived() bool {
	return p.ArchivedAt != nil
}
