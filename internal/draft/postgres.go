package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/DukeRupert/shopdesk/internal/upload"
)

// PostgresStore keeps drafts in the form_drafts table. The upload list and
// address selection are stored as JSONB.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresStore returns a store over db. Migrations must have run.
func NewPostgresStore(db *sql.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl}
}

const draftColumns = `id, kind, record_id, files, address, created_at, updated_at, expires_at`

const createDraft = `-- name: CreateDraft :one
INSERT INTO form_drafts (id, kind, record_id, files, address, expires_at)
VALUES ($1, $2, $3, $4, $5, NOW() + make_interval(secs => $6))
RETURNING ` + draftColumns

const getDraft = `-- name: GetDraft :one
SELECT ` + draftColumns + `
FROM form_drafts
WHERE id = $1 AND expires_at > NOW()`

const saveDraft = `-- name: SaveDraft :one
UPDATE form_drafts
SET files = $2,
    address = $3,
    updated_at = NOW(),
    expires_at = NOW() + make_interval(secs => $4)
WHERE id = $1 AND expires_at > NOW()
RETURNING ` + draftColumns

const deleteDraft = `-- name: DeleteDraft :exec
DELETE FROM form_drafts WHERE id = $1`

const deleteExpiredDrafts = `-- name: DeleteExpiredDrafts :many
DELETE FROM form_drafts
WHERE expires_at < $1
RETURNING ` + draftColumns

func (s *PostgresStore) Create(ctx context.Context, d Draft) (Draft, error) {
	files, addr, err := encodeState(d)
	if err != nil {
		return Draft{}, err
	}
	row := s.db.QueryRowContext(ctx, createDraft,
		uuid.New(),
		string(d.Kind),
		sql.NullString{String: d.RecordID, Valid: d.RecordID != ""},
		files,
		addr,
		s.ttl.Seconds(),
	)
	out, err := scanDraft(row)
	if err != nil {
		return Draft{}, fmt.Errorf("create draft: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Draft, error) {
	out, err := scanDraft(s.db.QueryRowContext(ctx, getDraft, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("get draft: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Save(ctx context.Context, d Draft) (Draft, error) {
	files, addr, err := encodeState(d)
	if err != nil {
		return Draft{}, err
	}
	out, err := scanDraft(s.db.QueryRowContext(ctx, saveDraft, d.ID, files, addr, s.ttl.Seconds()))
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("save draft: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, deleteDraft, id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, cutoff time.Time) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, deleteExpiredDrafts, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete expired drafts: %w", err)
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired draft: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired drafts: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (Draft, error) {
	var (
		d        Draft
		kind     string
		recordID sql.NullString
		files    pqtype.NullRawMessage
		addr     pqtype.NullRawMessage
	)
	if err := row.Scan(&d.ID, &kind, &recordID, &files, &addr, &d.CreatedAt, &d.UpdatedAt, &d.ExpiresAt); err != nil {
		return Draft{}, err
	}
	d.Kind = Kind(kind)
	d.RecordID = recordID.String
	if files.Valid {
		if err := json.Unmarshal(files.RawMessage, &d.Files); err != nil {
			return Draft{}, fmt.Errorf("decode files: %w", err)
		}
	}
	if addr.Valid {
		if err := json.Unmarshal(addr.RawMessage, &d.Address); err != nil {
			return Draft{}, fmt.Errorf("decode address: %w", err)
		}
	}
	return d, nil
}

func encodeState(d Draft) (files, addr pqtype.NullRawMessage, err error) {
	list := d.Files
	if list == nil {
		list = []upload.Item{}
	}
	fb, err := json.Marshal(list)
	if err != nil {
		return files, addr, fmt.Errorf("encode files: %w", err)
	}
	ab, err := json.Marshal(d.Address)
	if err != nil {
		return files, addr, fmt.Errorf("encode address: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: fb, Valid: true},
		pqtype.NullRawMessage{RawMessage: ab, Valid: true},
		nil
}
