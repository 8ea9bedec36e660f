// internal/app/features/projects/snapshot.go
package projects

import (
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"github.com/yovalentych/research-os-sub002/internal/domain/snapshot"
)

// Snapshot captures the user-editable fields of p for version tracking.
func Snapshot(p models.Project) snapshot.Snapshot {
	s := snapshot.Snapshot{
		"title":       snapshot.String(p.Title),
		"description": snapshot.String(p.Description),
		"visibility":  snapshot.String(p.Visibility),
		"owner_id":    snapshot.String(p.OwnerID.Hex()),
		"archived_at": snapshot.Null(),
	}
	if p.ArchivedAt != nil {
		s["archived_at"] = snapshot.Time(*p.ArchivedAt)
	}
	return s
}
