package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "tannery/internal/core/context"
	"tannery/internal/core/id"
	"tannery/internal/domain/ledger"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// MovementAuditEntry is the stored before-image of an edited or deleted
// movement. Movements are mutated in place, so this trail is the only
// way to reconstruct a balance as of a past moment.
type MovementAuditEntry struct {
	ID               id.ID           `db:"id"`
	MovementID       id.ID           `db:"movement_id"`
	Action           string          `db:"action"`
	UserID           string          `db:"user_id"`
	Before           json.RawMessage `db:"before_image"`
	BeforeCompressed []byte          `db:"before_compressed"`
	CompressionAlgo  CompressionAlgo `db:"compression_algo"`
	CreatedAt        time.Time       `db:"created_at"`
}

// MovementAudit records movement before-images, compressing large ones.
// Implements ledger.AuditRecorder.
type MovementAudit struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ ledger.AuditRecorder = (*MovementAudit)(nil)

// NewMovementAudit creates a new movement audit recorder.
func NewMovementAudit(txManager *TxManager) (*MovementAudit, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &MovementAudit{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 1024,
	}, nil
}

// RecordChange stores the before-image of a movement under edit or delete.
// Runs in the caller's transaction so the trail and the change commit together.
func (a *MovementAudit) RecordChange(ctx context.Context, action string, before *ledger.Movement) error {
	image, err := json.Marshal(before)
	if err != nil {
		return fmt.Errorf("marshal before image: %w", err)
	}

	entry := MovementAuditEntry{
		ID:              id.New(),
		MovementID:      before.ID,
		Action:          action,
		UserID:          appctx.GetUserID(ctx),
		Before:          image,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}

	if len(image) > a.compressThreshold {
		entry.BeforeCompressed = a.encoder.EncodeAll(image, nil)
		entry.Before = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_movement_audit (
			id, movement_id, action, user_id,
			before_image, before_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	querier := a.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		entry.ID, entry.MovementID, entry.Action, entry.UserID,
		entry.Before, entry.BeforeCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// GetMovementHistory retrieves the audit trail of one movement,
// newest first, with before-images decompressed.
func (a *MovementAudit) GetMovementHistory(ctx context.Context, movementID id.ID, limit int) ([]MovementAuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	sql := `
		SELECT id, movement_id, action, user_id,
			   before_image, before_compressed, compression_algo, created_at
		FROM sys_movement_audit
		WHERE movement_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := a.txManager.GetQuerier(ctx).Query(ctx, sql, movementID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []MovementAuditEntry
	for rows.Next() {
		var e MovementAuditEntry
		err := rows.Scan(
			&e.ID, &e.MovementID, &e.Action, &e.UserID,
			&e.Before, &e.BeforeCompressed, &e.CompressionAlgo, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.BeforeCompressed) > 0 {
			decompressed, err := a.decoder.DecodeAll(e.BeforeCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress before image: %w", err)
			}
			e.Before = decompressed
			e.BeforeCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
