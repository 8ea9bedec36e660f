// internal/app/features/auditlog/types.go
package auditlog

import (
	"github.com/yovalentych/research-os-sub002/internal/app/store/audit"
	fieldversionstore "github.com/yovalentych/research-os-sub002/internal/app/store/fieldversions"
)

// ListResponse is one page of a project's audit trail, newest first.
type ListResponse struct {
	Items   []audit.Entry `json:"items"`
	Total   int64         `json:"total"`
	Limit   int64         `json:"limit"`
	Offset  int64         `json:"offset"`
	HasMore bool          `json:"has_more"`
}

// VersionsResponse is the field history of one entity, newest first.
type VersionsResponse struct {
	EntityType string                      `json:"entity_type"`
	EntityID   string                      `json:"entity_id"`
	Field      string                      `json:"field,omitempty"`
	Items      []fieldversionstore.Version `json:"items"`
}
