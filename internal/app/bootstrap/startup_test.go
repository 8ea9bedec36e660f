package bootstrap

import (
	"reflect"
	"testing"

	"github.com/dalemusser/waffle/config"
	userstore "github.com/yovalentych/research-os-sub002/internal/app/store/users"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"github.com/yovalentych/research-os-sub002/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureOwner_CreatesNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	users := userstore.New(db)

	if err := ensureOwner(ctx, users, "founder@lab.org", testLogger()); err != nil {
		t.Fatalf("ensureOwner failed: %v", err)
	}

	user, err := users.GetByEmail(ctx, "founder@lab.org")
	if err != nil {
		t.Fatalf("failed to find created user: %v", err)
	}
	if user.Role != models.RoleOwner {
		t.Errorf("expected role 'owner', got %q", user.Role)
	}
	if user.FullName != "founder" {
		t.Errorf("FullName: got %q, want %q", user.FullName, "founder")
	}
	if user.Status != userstore.StatusActive {
		t.Errorf("expected status 'active', got %q", user.Status)
	}
}

func TestEnsureOwner_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	users := userstore.New(db)

	existing := fixtures.CreateCollaborator(ctx, "Existing User", "existing@lab.org")
	if err := ensureOwner(ctx, users, "existing@lab.org", testLogger()); err != nil {
		t.Fatalf("ensureOwner failed: %v", err)
	}

	user, err := users.GetByID(ctx, existing.ID)
	if err != nil {
		t.Fatalf("failed to find user: %v", err)
	}
	if user.Role != models.RoleOwner {
		t.Errorf("expected role 'owner', got %q", user.Role)
	}
	if user.FullName != "Existing User" {
		t.Errorf("FullName changed: got %q", user.FullName)
	}
}

func TestEnsureOwner_AlreadyOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	users := userstore.New(db)

	owner := fixtures.CreateOwner(ctx, "Owner", "owner@lab.org")
	before, err := users.GetByID(ctx, owner.ID)
	if err != nil {
		t.Fatalf("failed to find user: %v", err)
	}
	if err := ensureOwner(ctx, users, "owner@lab.org", testLogger()); err != nil {
		t.Fatalf("ensureOwner failed: %v", err)
	}
	user, err := users.GetByID(ctx, owner.ID)
	if err != nil {
		t.Fatalf("failed to find user: %v", err)
	}
	if !user.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("an existing owner should be left untouched")
	}
}

func TestEnsureOwner_NoEmailWarnsWithoutOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	core, logs := observer.New(zap.WarnLevel)
	if err := ensureOwner(ctx, userstore.New(db), "", zap.New(core)); err != nil {
		t.Fatalf("ensureOwner failed: %v", err)
	}
	if logs.Len() != 1 {
		t.Errorf("expected 1 warning, got %d", logs.Len())
	}
}

func TestParseSourceKeys(t *testing.T) {
	got := ParseSourceKeys(" EDEBO, ror,,edebo , ")
	want := []string{"edebo", "ror"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseSourceKeys: got %v, want %v", got, want)
	}
	if ParseSourceKeys("") != nil {
		t.Error("empty input should yield nil")
	}
}

func TestValidateConfig(t *testing.T) {
	base := AppConfig{
		MongoURI:                    "mongodb://localhost:27017",
		SharedDiscovery:             "participants",
		HistoryMaxLimit:             200,
		RegistryDefaultIntervalDays: models.RegistryIntervalWeekly,
	}
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"defaults", dev, func(*AppConfig) {}, false},
		{"bad mongo uri", dev, func(c *AppConfig) { c.MongoURI = "postgres://x" }, true},
		{"bad discovery", dev, func(c *AppConfig) { c.SharedDiscovery = "everyone" }, true},
		{"zero history limit", dev, func(c *AppConfig) { c.HistoryMaxLimit = 0 }, true},
		{"dev login in prod", prod, func(c *AppConfig) { c.DevLogin = true }, true},
		{"dev login in dev", dev, func(c *AppConfig) { c.DevLogin = true }, false},
		{"registry without sources", dev, func(c *AppConfig) { c.RegistryBaseURL = "https://registry.example" }, true},
		{"registry bad interval", dev, func(c *AppConfig) {
			c.RegistryBaseURL = "https://registry.example"
			c.RegistrySources = []string{"edebo"}
			c.RegistryDefaultIntervalDays = 3
		}, true},
		{"registry token without client", dev, func(c *AppConfig) {
			c.RegistryBaseURL = "https://registry.example"
			c.RegistrySources = []string{"edebo"}
			c.RegistryTokenURL = "https://auth.example/token"
		}, true},
		{"registry ok", dev, func(c *AppConfig) {
			c.RegistryBaseURL = "https://registry.example"
			c.RegistrySources = []string{"edebo"}
		}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := ValidateConfig(tc.core, cfg, testLogger())
			if (err != nil) != tc.wantErr {
				t.Errorf("err: got %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewServices_RegistryOptional(t *testing.T) {
	db := testutil.SetupTestDB(t)

	svc, err := NewServices(AppConfig{SharedDiscovery: "off"}, db, testLogger())
	if err != nil {
		t.Fatalf("NewServices failed: %v", err)
	}
	if svc.Sync != nil || svc.Scheduler != nil {
		t.Error("registry components should be nil without a base url")
	}

	svc, err = NewServices(AppConfig{
		RegistryBaseURL: "https://registry.example",
		RegistrySources: []string{"edebo"},
	}, db, testLogger())
	if err != nil {
		t.Fatalf("NewServices failed: %v", err)
	}
	if svc.Sync == nil || svc.Scheduler == nil {
		t.Error("registry components should be wired with a base url")
	}
}
