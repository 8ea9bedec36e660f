package institutionstore_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	institutionstore "github.com/yovalentych/research-os-sub002/internal/app/store/institutions"
	"github.com/yovalentych/research-os-sub002/internal/app/system/paging"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"github.com/yovalentych/research-os-sub002/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestUpsertBatch_InsertsThenUpdatesInPlace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := institutionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first := time.Now().UTC().Add(-time.Hour)
	items := []models.Institution{
		{ExternalID: "edbo-1", NationalCode: "02070921", Name: "Taras Shevchenko National University", City: "Kyiv"},
		{ExternalID: "edbo-2", Name: "Lviv Polytechnic"},
	}
	res, err := store.UpsertBatch(ctx, "edbo", items, first)
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	if res.Inserted != 2 || res.Conflicts != 0 {
		t.Errorf("first batch: got %+v, want 2 inserted", res)
	}

	before, err := store.GetByExternalID(ctx, "edbo-1")
	if err != nil {
		t.Fatalf("GetByExternalID failed: %v", err)
	}
	if before.NameCI == "" {
		t.Error("expected NameCI to be set")
	}
	if before.SourceKey != "edbo" {
		t.Errorf("SourceKey: got %q, want %q", before.SourceKey, "edbo")
	}

	// Same upstream data again, plus a rename.
	items[0].Name = "Kyiv National University"
	items[0].City = ""
	res, err = store.UpsertBatch(ctx, "edbo", items, time.Now().UTC())
	if err != nil {
		t.Fatalf("second UpsertBatch failed: %v", err)
	}
	if res.Inserted != 0 || res.Matched != 2 {
		t.Errorf("second batch: got %+v, want 0 inserted, 2 matched", res)
	}

	after, err := store.GetByExternalID(ctx, "edbo-1")
	if err != nil {
		t.Fatalf("GetByExternalID failed: %v", err)
	}
	if after.ID != before.ID {
		t.Errorf("ID changed on upsert: got %s, want %s", after.ID.Hex(), before.ID.Hex())
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("CreatedAt changed: got %v, want %v", after.CreatedAt, before.CreatedAt)
	}
	if after.Name != "Kyiv National University" {
		t.Errorf("Name: got %q, want %q", after.Name, "Kyiv National University")
	}
	if after.City != "" {
		t.Errorf("City: got %q, want it removed", after.City)
	}

	n, err := store.Count(ctx, "edbo")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count: got %d, want 2", n)
	}
}

func TestUpsertBatch_NationalCodeConflictIsCounted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := institutionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res, err := store.UpsertBatch(ctx, "edbo", []models.Institution{
		{ExternalID: "a", NationalCode: "111", Name: "Alpha"},
		{ExternalID: "b", NationalCode: "111", Name: "Beta"},
		{ExternalID: "c", Name: "Gamma"},
	}, time.Now())
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	if res.Conflicts != 1 {
		t.Errorf("Conflicts: got %d, want 1", res.Conflicts)
	}
	if res.Written() != 2 {
		t.Errorf("Written: got %d, want 2", res.Written())
	}
}

func TestUpsertBatch_MissingExternalID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := institutionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.UpsertBatch(ctx, "edbo", []models.Institution{{Name: "Nameless"}}, time.Now())
	if !errors.Is(err, institutionstore.ErrExternalIDRequired) {
		t.Errorf("got %v, want ErrExternalIDRequired", err)
	}
}

func TestGetByExternalID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := institutionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.GetByExternalID(ctx, "missing"); err != mongo.ErrNoDocuments {
		t.Errorf("got %v, want mongo.ErrNoDocuments", err)
	}
}

func TestSearch_PrefixAndPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := institutionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var items []models.Institution
	for i := 0; i < 5; i++ {
		items = append(items, models.Institution{
			ExternalID: fmt.Sprintf("k-%d", i),
			Name:       fmt.Sprintf("Kharkiv Institute %d", i),
		})
	}
	items = append(items, models.Institution{ExternalID: "o-1", Name: "Odesa Academy"})
	if _, err := store.UpsertBatch(ctx, "edbo", items, time.Now()); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	page, err := store.Search(ctx, "kharkiv", paging.ConfigureKeyset("", "", 3))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(page.Items) != 3 || !page.HasNext || page.HasPrev {
		t.Fatalf("first page: got %d items, next=%v prev=%v", len(page.Items), page.HasNext, page.HasPrev)
	}
	if page.Items[0].Name != "Kharkiv Institute 0" {
		t.Errorf("first item: got %q, want %q", page.Items[0].Name, "Kharkiv Institute 0")
	}

	page2, err := store.Search(ctx, "kharkiv", paging.ConfigureKeyset("", page.NextCursor, 3))
	if err != nil {
		t.Fatalf("Search page 2 failed: %v", err)
	}
	if len(page2.Items) != 2 || page2.HasNext || !page2.HasPrev {
		t.Errorf("second page: got %d items, next=%v prev=%v", len(page2.Items), page2.HasNext, page2.HasPrev)
	}

	back, err := store.Search(ctx, "kharkiv", paging.ConfigureKeyset(page2.PrevCursor, "", 3))
	if err != nil {
		t.Fatalf("Search backward failed: %v", err)
	}
	if len(back.Items) != 3 || back.Items[0].Name != "Kharkiv Institute 0" {
		t.Errorf("backward page: got %d items starting %q", len(back.Items), firstName(back))
	}

	all, err := store.Search(ctx, "", paging.ConfigureKeyset("", "", 10))
	if err != nil {
		t.Fatalf("Search all failed: %v", err)
	}
	if len(all.Items) != 6 {
		t.Errorf("empty query: got %d items, want 6", len(all.Items))
	}
}

func TestSearch_RegexCharactersAreLiteral(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := institutionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.UpsertBatch(ctx, "edbo", []models.Institution{{ExternalID: "x", Name: "Institute"}}, time.Now()); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	page, err := store.Search(ctx, ".*", paging.ConfigureKeyset("", "", 10))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("got %d items, want 0", len(page.Items))
	}
}

func firstName(p institutionstore.Page) string {
	if len(p.Items) == 0 {
		return ""
	}
	return p.Items[0].Name
}
