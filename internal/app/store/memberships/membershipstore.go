// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c        *mongo.Collection
	users    *mongo.Collection
	projects *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:        db.Collection("project_memberships"),
		users:    db.Collection("users"),
		projects: db.Collection("projects"),
	}
}

var (
	ErrBadRole             = errors.New(`role must be "collaborator" or "viewer"`)
	ErrDuplicateMembership = errors.New("user is already a member of this project")
)

// ValidRole reports whether role may be granted by a membership.
func ValidRole(role string) bool {
	return role == models.ProjectRoleCollaborator || role == models.ProjectRoleViewer
}

// Add creates a membership. The project and user must both exist
// (mongo.ErrNoDocuments otherwise). A second membership for the same
// (project, user) pair fails with ErrDuplicateMembership and never
// overwrites the existing role.
func (s *Store) Add(ctx context.Context, projectID, userID, invitedBy primitive.ObjectID, role string) (models.ProjectMembership, error) {
	if !ValidRole(role) {
		return models.ProjectMembership{}, ErrBadRole
	}

	if err := s.projects.FindOne(ctx, bson.M{"_id": projectID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err(); err != nil {
		return models.ProjectMembership{}, err
	}
	if err := s.users.FindOne(ctx, bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err(); err != nil {
		return models.ProjectMembership{}, err
	}

	now := time.Now().UTC()
	m := models.ProjectMembership{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		InvitedBy: invitedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ProjectMembership{}, ErrDuplicateMembership
		}
		return models.ProjectMembership{}, err
	}
	return m, nil
}

// Get returns the membership for (projectID, userID) or mongo.ErrNoDocuments.
func (s *Store) Get(ctx context.Context, projectID, userID primitive.ObjectID) (models.ProjectMembership, error) {
	var m models.ProjectMembership
	err := s.c.FindOne(ctx, bson.M{"project_id": projectID, "user_id": userID}).Decode(&m)
	return m, err
}

// SetRole changes the role of an existing membership and returns it as
// stored afterwards. Returns mongo.ErrNoDocuments if there is none.
func (s *Store) SetRole(ctx context.Context, projectID, userID primitive.ObjectID, role string) (models.ProjectMembership, error) {
	if !ValidRole(role) {
		return models.ProjectMembership{}, ErrBadRole
	}
	var m models.ProjectMembership
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"project_id": projectID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&m)
	return m, err
}

// Remove deletes the membership for (projectID, userID). It reports whether
// a document was actually removed.
func (s *Store) Remove(ctx context.Context, projectID, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"project_id": projectID, "user_id": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// ListByProject returns all memberships for a project, optionally filtered by role.
// If role is empty, returns all memberships.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID, role string) ([]models.ProjectMembership, error) {
	filter := bson.M{"project_id": projectID}
	if role != "" {
		filter["role"] = role
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.ProjectMembership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// CountByUser returns the count of memberships for a user.
func (s *Store) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID})
}

// HasAny reports whether the user holds at least one membership.
// It stops at the first match rather than counting.
func (s *Store) HasAny(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"user_id": userID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
