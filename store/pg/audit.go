package pg

import (
	"context"
	"encoding/json"
	"log"

	"github.com/stratumhq/adminauth"
)

// Emit persists one audit entry. The dispatcher already decided to spend an
// entry on us; a failed insert is logged and swallowed because the trail is
// best effort by contract.
func (s *Store) Emit(ctx context.Context, entry adminauth.AuditEntry) {
	before, err := json.Marshal(entry.Before)
	if err != nil {
		before = nil
	}
	after, err := json.Marshal(entry.After)
	if err != nil {
		after = nil
	}
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		metadata = nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log
		   (id, occurred_at, actor, tenant_id, action, resource, resource_id,
		    before_state, after_state, metadata, suspicious)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.Timestamp, entry.Actor, tenantParam(entry.TenantID),
		entry.Action, entry.Resource, entry.ResourceID,
		before, after, metadata, entry.Suspicious)
	if err != nil {
		log.Printf("pg: audit insert failed: %v", err)
	}
}
