// internal/domain/models/registrysource.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegistrySource describes one mirrored external dataset.
// Exactly one document exists per Key; the SyncInProgress flag on that
// document is the lock that keeps two pulls of the same source from
// interleaving.
type RegistrySource struct {
	ID  primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Key string             `bson:"key" json:"key"`

	// Refresh policy
	IntervalDays int        `bson:"interval_days" json:"interval_days"`
	SyncedAt     *time.Time `bson:"synced_at,omitempty" json:"synced_at,omitempty"` // last successful sync

	// Progress of the current (or last) run
	SyncInProgress bool       `bson:"sync_in_progress" json:"sync_in_progress"`
	SyncStartedAt  *time.Time `bson:"sync_started_at,omitempty" json:"sync_started_at,omitempty"`
	SyncRunID      string     `bson:"sync_run_id,omitempty" json:"sync_run_id,omitempty"`
	SyncTotal      int        `bson:"sync_total" json:"sync_total"`
	SyncProcessed  int        `bson:"sync_processed" json:"sync_processed"`
	SyncMessage    string     `bson:"sync_message,omitempty" json:"sync_message,omitempty"` // last failure summary

	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Allowed refresh intervals, in days.
const (
	RegistryIntervalDaily  = 1
	RegistryIntervalWeekly = 7
)

// DefaultRegistryIntervalDays is used when a source has no stored policy.
const DefaultRegistryIntervalDays = RegistryIntervalWeekly
