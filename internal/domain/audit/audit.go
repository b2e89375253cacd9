// Package audit defines the ledger audit trail contract.
// Posting and cancelling stock documents are the two events that move real
// inventory; each one is recorded with a full snapshot of the document.
package audit

import (
	"context"
	"time"

	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
)

// Action is the audited event type.
type Action string

const (
	ActionPost   Action = "POST"
	ActionCancel Action = "CANCEL"
)

// Entry is one audit trail record. Payload carries the document snapshot as
// JSON; the store compresses it before persisting.
type Entry struct {
	TenantID   id.ID     `db:"tenant_id" json:"tenantId"`
	DocID      id.ID     `db:"doc_id" json:"docId"`
	DocType    string    `db:"doc_type" json:"docType"`
	DocNo      string    `db:"doc_no" json:"docNo"`
	Action     Action    `db:"action" json:"action"`
	UserID     string    `db:"user_id" json:"userId,omitempty"`
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`
	Payload    []byte    `db:"payload" json:"-"`
}

// Recorder persists audit entries. Implementations must not fail the business
// transaction they run inside; a lost audit row is logged, not raised.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NopRecorder discards entries (tests, tooling).
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, entry Entry) error { return nil }
