// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/yovalentych/research-os-sub002/internal/app/system/normalize"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrTitleRequired   = errors.New("project title is required")
	ErrBadVisibility   = errors.New(`visibility must be "private" or "shared"`)
	ErrAlreadyArchived = errors.New("project is already archived")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

// ValidVisibility reports whether v is a known visibility value.
func ValidVisibility(v string) bool {
	return v == models.VisibilityPrivate || v == models.VisibilityShared
}

// GetByID loads a project. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	var p models.Project
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	return p, err
}

// Create inserts a project. Visibility defaults to private.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	p.ID = primitive.NewObjectID()
	p.Title = normalize.Name(p.Title)
	if p.Title == "" {
		return models.Project{}, ErrTitleRequired
	}
	p.TitleCI = text.Fold(p.Title)
	p.Visibility = normalize.Visibility(p.Visibility)
	if p.Visibility == "" {
		p.Visibility = models.VisibilityPrivate
	}
	if !ValidVisibility(p.Visibility) {
		return models.Project{}, ErrBadVisibility
	}
	p.ArchivedAt = nil

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Update holds the mutable fields of a project. Nil fields are left unchanged.
type Update struct {
	Title       *string
	Description *string
	Visibility  *string
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Visibility == nil
}

// Update applies upd and returns the project as stored afterwards.
// Returns mongo.ErrNoDocuments if the project does not exist.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (models.Project, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		title := normalize.Name(*upd.Title)
		if title == "" {
			return models.Project{}, ErrTitleRequired
		}
		set["title"] = title
		set["title_ci"] = text.Fold(title)
	}
	if upd.Description != nil {
		// Description can be cleared (set to empty)
		set["description"] = *upd.Description
	}
	if upd.Visibility != nil {
		v := normalize.Visibility(*upd.Visibility)
		if !ValidVisibility(v) {
			return models.Project{}, ErrBadVisibility
		}
		set["visibility"] = v
	}

	var p models.Project
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	return p, err
}

// Archive stamps archived_at. Projects are never hard-deleted.
// Returns ErrAlreadyArchived if the project was archived before, and
// mongo.ErrNoDocuments if it does not exist.
func (s *Store) Archive(ctx context.Context, id primitive.ObjectID, at time.Time) (models.Project, error) {
	at = at.UTC()
	var p models.Project
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "archived_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"archived_at": at, "updated_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err == mongo.ErrNoDocuments {
		if _, gerr := s.GetByID(ctx, id); gerr == nil {
			return models.Project{}, ErrAlreadyArchived
		}
	}
	return p, err
}

// OwnsAny reports whether userID owns at least one project.
func (s *Store) OwnsAny(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"owner_id": userID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountByOwner returns the number of projects owned by userID.
func (s *Store) CountByOwner(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"owner_id": userID})
}
