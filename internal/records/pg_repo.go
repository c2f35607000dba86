package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = time.Second * 3

const uniqueViolationCode = "23505"

// PostgresRepository stores focus records in Postgres. The full record is
// kept as a JSONB payload with the columns the queries actually filter
// and order on pulled out alongside it.
type PostgresRepository struct {
	conn *pgxpool.Pool
}

// NewPostgresRepository wraps a pgx pool and ensures the schema exists.
func NewPostgresRepository(conn *pgxpool.Pool) (*PostgresRepository, error) {
	repo := &PostgresRepository{conn: conn}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (p *PostgresRepository) ensureSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	_, err := p.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS focus_records (
			id         TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			completed  BOOLEAN NOT NULL,
			payload    JSONB NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure focus_records schema: %w", err)
	}
	return nil
}

func (p *PostgresRepository) Add(ctx context.Context, record FocusRecord) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode focus record: %w", err)
	}

	_, err = p.conn.Exec(ctx,
		`INSERT INTO focus_records (id, created_at, completed, payload) VALUES ($1, $2, $3, $4)`,
		record.ID, record.CreatedAt, record.Completed, payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrDuplicateID
		}
		return fmt.Errorf("failed to insert focus record: %w", err)
	}
	return nil
}

func (p *PostgresRepository) Get(ctx context.Context, id string) (FocusRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var payload []byte
	err := p.conn.QueryRow(ctx, `SELECT payload FROM focus_records WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return FocusRecord{}, ErrNotFound
	}
	if err != nil {
		return FocusRecord{}, fmt.Errorf("failed to load focus record: %w", err)
	}

	var record FocusRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return FocusRecord{}, fmt.Errorf("failed to decode focus record %s: %w", id, err)
	}
	return record, nil
}

// List returns all records ordered by creation time, oldest first.
func (p *PostgresRepository) List(ctx context.Context) ([]FocusRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := p.conn.Query(ctx, `SELECT payload FROM focus_records ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list focus records: %w", err)
	}
	defer rows.Close()

	var out []FocusRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan focus record: %w", err)
		}
		var record FocusRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("failed to decode focus record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// AttachSelfReport amends a record with its one-time self-report.
func (p *PostgresRepository) AttachSelfReport(ctx context.Context, id string, report SelfReport) error {
	record, err := p.Get(ctx, id)
	if err != nil {
		return err
	}
	record.SelfReport = &report

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode focus record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := p.conn.Exec(ctx, `UPDATE focus_records SET payload = $1 WHERE id = $2`, payload, id)
	if err != nil {
		return fmt.Errorf("failed to update focus record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := p.conn.Exec(ctx, `DELETE FROM focus_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete focus record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := p.conn.Exec(ctx, `DELETE FROM focus_records WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to delete focus records: %w", err)
	}
	return nil
}
