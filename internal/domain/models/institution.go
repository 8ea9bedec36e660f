// internal/domain/models/institution.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Institution is a mirrored record from an external institutional registry.
// It is upserted by ExternalID, which never changes upstream; NationalCode is
// a secondary natural key that some records lack. Both are unique-sparse, so
// the field is omitted (not blank) when unknown.
type Institution struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	ExternalID       string             `bson:"external_id" json:"external_id"`
	NationalCode     string             `bson:"national_code,omitempty" json:"national_code,omitempty"`
	Name             string             `bson:"name" json:"name"`
	NameCI           string             `bson:"name_ci" json:"-"` // ← always stored
	ShortName        string             `bson:"short_name,omitempty" json:"short_name,omitempty"`
	Kind             string             `bson:"kind,omitempty" json:"kind,omitempty"`
	City             string             `bson:"city,omitempty" json:"city,omitempty"`
	Region           string             `bson:"region,omitempty" json:"region,omitempty"`
	Country          string             `bson:"country,omitempty" json:"country,omitempty"`
	Website          string             `bson:"website,omitempty" json:"website,omitempty"`
	ParentExternalID string             `bson:"parent_external_id,omitempty" json:"parent_external_id,omitempty"`
	Status           string             `bson:"status,omitempty" json:"status,omitempty"`
	SourceKey        string             `bson:"source_key" json:"source_key"`
	SyncedAt         time.Time          `bson:"synced_at" json:"synced_at"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}
