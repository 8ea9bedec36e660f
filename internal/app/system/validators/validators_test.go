package validators_test

import (
	"testing"
	"time"

	"github.com/yovalentych/research-os-sub002/internal/app/system/validators"
	"github.com/yovalentych/research-os-sub002/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}
	for _, expected := range validators.Collections {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestProjectsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	now := time.Now().UTC()
	valid := func() bson.M {
		return bson.M{
			"_id":        primitive.NewObjectID(),
			"title":      "Soil survey",
			"title_ci":   "soil survey",
			"owner_id":   primitive.NewObjectID(),
			"visibility": "private",
			"created_at": now,
			"updated_at": now,
		}
	}

	tests := []struct {
		name    string
		mutate  func(bson.M)
		wantErr bool
	}{
		{"valid", func(bson.M) {}, false},
		{"blank title", func(d bson.M) { d["title"] = "   " }, true},
		{"missing owner", func(d bson.M) { delete(d, "owner_id") }, true},
		{"bad visibility", func(d bson.M) { d["visibility"] = "public" }, true},
		{"archived", func(d bson.M) { d["archived_at"] = now }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := valid()
			tc.mutate(doc)
			_, err := db.Collection("projects").InsertOne(ctx, doc)
			if (err != nil) != tc.wantErr {
				t.Errorf("err: got %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestAuditValidator_RejectsUnknownAction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	_, err := db.Collection("audit_log").InsertOne(ctx, bson.M{
		"actor_id":    primitive.NewObjectID(),
		"action":      "rename",
		"entity_type": "project",
		"entity_id":   primitive.NewObjectID().Hex(),
		"timestamp":   time.Now().UTC(),
	})
	if err == nil {
		t.Error("expected validator to reject unknown action")
	}
}
