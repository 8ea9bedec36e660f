// internal/app/system/validators/validators.go

// Package validators attaches JSON-Schema validators to the collections the
// stores write. Stores already normalize their input; the validators catch
// writes that bypass them (scripts, manual fixes).
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/yovalentych/research-os-sub002/internal/app/store/audit"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collections lists every collection EnsureAll creates, in creation order.
var Collections = []string{
	"users",
	"projects",
	"project_memberships",
	"audit_log",
	"field_versions",
	"institutions",
	"registry_sources",
}

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string
	schemas := map[string]bson.M{
		"users":               usersSchema(),
		"projects":            projectsSchema(),
		"project_memberships": membershipsSchema(),
		"audit_log":           auditSchema(),
		"field_versions":      fieldVersionsSchema(),
		"institutions":        institutionsSchema(),
		"registry_sources":    registrySourcesSchema(),
	}

	for _, coll := range Collections {
		if _, err := ensureCollection(ctx, db, coll, logger); err != nil {
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		if err := setValidator(ctx, db, coll, schemas[coll], logger); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				logger.Info("validator skipped (unsupported)", zap.String("collection", coll))
				continue
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		logger.Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			logger.Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		logger.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	logger.Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M, logger *zap.Logger) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	logger.Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enum(values ...string) bson.M {
	a := bson.A{}
	for _, v := range values {
		a = append(a, v)
	}
	return bson.M{"enum": a}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "email", "role", "status"},
			"properties": bson.M{
				"full_name":    nonBlank,
				"full_name_ci": bson.M{"bsonType": "string"},
				"email":        nonBlank,
				"role": enum(models.RoleOwner, models.RoleSupervisor, models.RoleMentor,
					models.RoleCollaborator, models.RoleViewer),
				"status": enum("active", "disabled"),
			},
		},
	}
}

func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "title_ci", "owner_id", "visibility", "created_at"},
			"properties": bson.M{
				"title":       nonBlank,
				"title_ci":    nonBlank,
				"description": bson.M{"bsonType": "string"},
				"owner_id":    bson.M{"bsonType": "objectId"},
				"visibility":  enum(models.VisibilityPrivate, models.VisibilityShared),
				"archived_at": bson.M{"bsonType": bson.A{"date", "null"}},
				"created_at":  bson.M{"bsonType": "date"},
				"updated_at":  bson.M{"bsonType": "date"},
			},
		},
	}
}

func membershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"project_id", "user_id", "role", "created_at"},
			"properties": bson.M{
				"project_id": bson.M{"bsonType": "objectId"},
				"user_id":    bson.M{"bsonType": "objectId"},
				"role":       enum(models.ProjectRoleCollaborator, models.ProjectRoleViewer),
				"invited_by": bson.M{"bsonType": "objectId"},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func auditSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"actor_id", "action", "entity_type", "entity_id", "timestamp"},
			"properties": bson.M{
				"actor_id":    bson.M{"bsonType": "objectId"},
				"action":      enum(audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete),
				"entity_type": nonBlank,
				"entity_id":   nonBlank,
				"project_id":  bson.M{"bsonType": "objectId"},
				"timestamp":   bson.M{"bsonType": "date"},
				"metadata":    bson.M{"bsonType": "object"},
			},
		},
	}
}

func fieldVersionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"entity_type", "entity_id", "field_path", "changed_by", "changed_at"},
			"properties": bson.M{
				"entity_type": nonBlank,
				"entity_id":   nonBlank,
				"field_path":  nonBlank,
				"changed_by":  bson.M{"bsonType": "objectId"},
				"changed_at":  bson.M{"bsonType": "date"},
				"audit_id":    bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func institutionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"external_id", "name", "name_ci", "source_key", "synced_at"},
			"properties": bson.M{
				"external_id": nonBlank,
				"name":        bson.M{"bsonType": "string"},
				"name_ci":     bson.M{"bsonType": "string"},
				"source_key":  nonBlank,
				"synced_at":   bson.M{"bsonType": "date"},
			},
		},
	}
}

func registrySourcesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"key", "interval_days", "sync_in_progress"},
			"properties": bson.M{
				"key":              nonBlank,
				"interval_days":    bson.M{"enum": bson.A{models.RegistryIntervalDaily, models.RegistryIntervalWeekly}},
				"sync_in_progress": bson.M{"bsonType": "bool"},
				"sync_total":       bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"sync_processed":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}
