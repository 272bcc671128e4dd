package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sawpanic/tradegate/internal/permission"
)

const schema = `
CREATE TABLE IF NOT EXISTS assessments (
    id           TEXT PRIMARY KEY,
    asset        TEXT NOT NULL,
    state        TEXT NOT NULL,
    decided_by   TEXT NOT NULL,
    uncertainty  TEXT NOT NULL,
    payload      JSONB NOT NULL,
    assessed_at  TIMESTAMPTZ NOT NULL,
    valid_until  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assessments_asset_time ON assessments (asset, assessed_at DESC);

CREATE TABLE IF NOT EXISTS transitions (
    id            BIGSERIAL PRIMARY KEY,
    asset         TEXT NOT NULL,
    from_state    TEXT NOT NULL,
    to_state      TEXT NOT NULL,
    kind          TEXT NOT NULL,
    assessment_id TEXT NOT NULL REFERENCES assessments (id),
    occurred_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_asset_time ON transitions (asset, occurred_at DESC);
`

// ErrNotFound is returned when no assessment exists for an asset.
var ErrNotFound = errors.New("assessment not found")

// PostgresStore persists assessments and transitions in Postgres. The
// full assessment travels as a JSONB payload; the indexed columns exist
// for queries only.
type PostgresStore struct {
	db *sqlx.DB
}

// OpenPostgres connects, pings, and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Save(ctx context.Context, a *permission.Assessment) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assessment %s: %w", a.ID, err)
	}
	const q = `
        INSERT INTO assessments (id, asset, state, decided_by, uncertainty, payload, assessed_at, valid_until)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO NOTHING`
	_, err = s.db.ExecContext(ctx, q,
		a.ID, a.Asset, string(a.State), a.DecidedBy, string(a.Uncertainty),
		payload, a.AssessedAt, a.ValidUntil)
	if err != nil {
		return fmt.Errorf("save assessment %s: %w", a.ID, err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, asset string) (*permission.Assessment, error) {
	const q = `SELECT payload FROM assessments WHERE asset = $1 ORDER BY assessed_at DESC LIMIT 1`
	var payload []byte
	if err := s.db.GetContext(ctx, &payload, q, asset); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest assessment %s: %w", asset, err)
	}
	return decodeAssessment(payload)
}

func (s *PostgresStore) History(ctx context.Context, asset string, since time.Time, limit int) ([]*permission.Assessment, error) {
	limit = clampHistoryLimit(limit)
	const q = `
        SELECT payload FROM assessments
        WHERE asset = $1 AND assessed_at >= $2
        ORDER BY assessed_at DESC LIMIT $3`
	var payloads [][]byte
	if err := s.db.SelectContext(ctx, &payloads, q, asset, since, limit); err != nil {
		return nil, fmt.Errorf("assessment history %s: %w", asset, err)
	}
	out := make([]*permission.Assessment, 0, len(payloads))
	for _, p := range payloads {
		a, err := decodeAssessment(p)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *PostgresStore) SaveTransition(ctx context.Context, rec TransitionRecord) error {
	const q = `
        INSERT INTO transitions (asset, from_state, to_state, kind, assessment_id, occurred_at)
        VALUES (:asset, :from_state, :to_state, :kind, :assessment_id, :occurred_at)`
	if _, err := s.db.NamedExecContext(ctx, q, rec); err != nil {
		return fmt.Errorf("save transition %s: %w", rec.Asset, err)
	}
	return nil
}

func decodeAssessment(payload []byte) (*permission.Assessment, error) {
	var a permission.Assessment
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode assessment payload: %w", err)
	}
	return &a, nil
}
