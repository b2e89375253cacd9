package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used for payloads.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// Document snapshots are small JSON most of the time; compressing tiny
// payloads costs more than it saves.
const compressThreshold = 4 * 1024

// AuditStore persists the ledger audit trail. Implements audit.Recorder.
type AuditStore struct {
	txManager *TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

var _ audit.Recorder = (*AuditStore)(nil)

// NewAuditStore creates the audit trail store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditStore{
		txManager: txManager,
		encoder:   encoder,
		decoder:   decoder,
	}, nil
}

// Record persists one audit entry inside the caller's transaction.
func (s *AuditStore) Record(ctx context.Context, entry audit.Entry) error {
	if id.IsNil(entry.TenantID) {
		entry.TenantID = tenant.MustID(ctx)
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}

	payload := entry.Payload
	algo := CompressionNone
	if len(payload) > compressThreshold {
		payload = s.encoder.EncodeAll(payload, nil)
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO stock_audit (
			id, tenant_id, doc_id, doc_type, doc_no, action,
			user_id, payload, compression_algo, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		id.New(), entry.TenantID, entry.DocID, entry.DocType, entry.DocNo,
		entry.Action, entry.UserID, payload, algo, entry.OccurredAt,
	)
	return err
}

// History returns the audit entries of one document, newest first, with
// payloads decompressed.
func (s *AuditStore) History(ctx context.Context, docID id.ID, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	sql := `
		SELECT tenant_id, doc_id, doc_type, doc_no, action,
			   user_id, payload, compression_algo, occurred_at
		FROM stock_audit
		WHERE tenant_id = $1 AND doc_id = $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`

	querier := s.txManager.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql, tenant.MustID(ctx), docID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e    audit.Entry
			algo CompressionAlgo
		)
		err := rows.Scan(
			&e.TenantID, &e.DocID, &e.DocType, &e.DocNo, &e.Action,
			&e.UserID, &e.Payload, &algo, &e.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if algo == CompressionZstd && len(e.Payload) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.Payload, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit payload: %w", err)
			}
			e.Payload = decompressed
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
