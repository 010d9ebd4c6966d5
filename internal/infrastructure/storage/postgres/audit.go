package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "batchline/internal/core/context"
	"batchline/internal/core/id"
	"batchline/internal/domain/audit"
)

// sys_audit.payload starts with a one-byte format marker followed by the
// JSON document.
const (
	payloadRaw  byte = 0
	payloadZstd byte = 1
)

// auditCompressThreshold is the JSON size above which payloads are
// zstd-compressed.
const auditCompressThreshold = 10 * 1024

// AuditEntry is one row of the sys_audit trail.
type AuditEntry struct {
	ID         id.ID          `db:"id"`
	EntityType string         `db:"entity_type"`
	EntityID   id.ID          `db:"entity_id"`
	Action     audit.Action   `db:"action"`
	Operator   string         `db:"operator"`
	TraceID    string         `db:"trace_id"`
	Changes    map[string]any `db:"-"`
	CreatedAt  time.Time      `db:"created_at"`
}

// AuditRecorder writes audit rows through the transaction-aware querier,
// so a mutation and its trail commit or roll back together.
type AuditRecorder struct {
	txManager *TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// Compile-time check that AuditRecorder implements the domain contract.
var _ audit.Recorder = (*AuditRecorder)(nil)

// NewAuditRecorder creates an audit recorder with shared zstd codecs.
func NewAuditRecorder(txManager *TxManager) (*AuditRecorder, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditRecorder{
		txManager: txManager,
		encoder:   encoder,
		decoder:   decoder,
		threshold: auditCompressThreshold,
	}, nil
}

// Record implements audit.Recorder. Operator and trace id come from the
// request context; tooling without either is recorded as "system".
func (r *AuditRecorder) Record(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	payload, err := r.encodePayload(changes)
	if err != nil {
		return err
	}

	_, err = r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (id, entity_type, entity_id, action, operator, trace_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		id.New(), entityType, entityID, action,
		appctx.OperatorName(ctx), appctx.GetTraceID(ctx),
		payload, time.Now().UTC(),
	)
	if err != nil {
		return TranslateError(err, "audit")
	}
	return nil
}

// EntityHistory returns the audit trail for one entity, newest first.
func (r *AuditRecorder) EntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, entity_type, entity_id, action, operator, trace_id, payload, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, TranslateError(err, "audit")
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var payload []byte
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action,
			&e.Operator, &e.TraceID, &payload, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		e.Changes, err = r.decodePayload(payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// encodePayload marshals changes and prefixes the format marker,
// compressing above the threshold.
func (r *AuditRecorder) encodePayload(changes map[string]any) ([]byte, error) {
	raw, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("marshal audit changes: %w", err)
	}

	if len(raw) <= r.threshold {
		return append([]byte{payloadRaw}, raw...), nil
	}
	return r.encoder.EncodeAll(raw, []byte{payloadZstd}), nil
}

// decodePayload reverses encodePayload.
func (r *AuditRecorder) decodePayload(payload []byte) (map[string]any, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	raw := payload[1:]
	if payload[0] == payloadZstd {
		decompressed, err := r.decoder.DecodeAll(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress audit payload: %w", err)
		}
		raw = decompressed
	}

	var changes map[string]any
	if err := json.Unmarshal(raw, &changes); err != nil {
		return nil, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	return changes, nil
}
