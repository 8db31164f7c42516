package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/valuation-cli/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresReportStore implements ReportStore using pgxpool.
type PostgresReportStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgresReportStore connects to Postgres and returns a report store.
func NewPostgresReportStore(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresReportStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresReportStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reports (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	client_id       TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'draft',
	data            JSONB NOT NULL,
	current_step    TEXT NOT NULL DEFAULT '',
	completed_steps JSONB NOT NULL DEFAULT '[]',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS report_files (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	report_id    TEXT NOT NULL DEFAULT '',
	filename     TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	size         BIGINT NOT NULL DEFAULT 0,
	content      BYTEA,
	uploaded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reports_client_id ON reports(client_id);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_updated_at ON reports(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_report_files_report_id ON report_files(report_id);
`

func (s *PostgresReportStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresReportStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresReportStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresReportStore) CreateReport(ctx context.Context, rec *model.ReportRecord) (*model.ReportRecord, error) {
	out := prepareReport(rec, uuid.New().String())
	now := time.Now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now

	dataJSON, stepsJSON, err := marshalReport(out)
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (id, client_id, status, data, current_step, completed_steps, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		out.ID, out.ClientID, string(out.Status), []byte(dataJSON), out.CurrentStep, []byte(stepsJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert report %s", out.ID)
	}
	return out, nil
}

func (s *PostgresReportStore) GetReport(ctx context.Context, id string) (*model.ReportRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, client_id, status, data, current_step, completed_steps, created_at, updated_at FROM reports WHERE id = $1`,
		id,
	)
	rec, err := scanPgReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", id)
	}
	return rec, nil
}

func (s *PostgresReportStore) UpdateReport(ctx context.Context, rec *model.ReportRecord) (*model.ReportRecord, error) {
	out := prepareReport(rec, rec.ID)
	out.UpdatedAt = time.Now().UTC()

	dataJSON, stepsJSON, err := marshalReport(out)
	if err != nil {
		return nil, err
	}
	err = s.pool.QueryRow(ctx,
		`UPDATE reports SET client_id = $1, status = $2, data = $3, current_step = $4, completed_steps = $5, updated_at = $6
		 WHERE id = $7 RETURNING created_at`,
		out.ClientID, string(out.Status), []byte(dataJSON), out.CurrentStep, []byte(stepsJSON), out.UpdatedAt, out.ID,
	).Scan(&out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "report %s", out.ID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update report %s", out.ID)
	}
	return out, nil
}

func (s *PostgresReportStore) ListReports(ctx context.Context, filter ReportFilter) ([]model.ReportRecord, error) {
	query := `SELECT id, client_id, status, data, current_step, completed_steps, created_at, updated_at FROM reports WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ClientID != "" {
		query += fmt.Sprintf(` AND client_id = $%d`, argIdx)
		args = append(args, filter.ClientID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY updated_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))
	argIdx++
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	reports := []model.ReportRecord{}
	for rows.Next() {
		rec, err := scanPgReport(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		reports = append(reports, *rec)
	}
	return reports, eris.Wrap(rows.Err(), "postgres: list reports iterate")
}

func (s *PostgresReportStore) DeleteReport(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete report %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "report %s", id)
	}
	return nil
}

func (s *PostgresReportStore) CreateClient(ctx context.Context, c *model.Client) (*model.Client, error) {
	out := *c
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	out.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO clients (id, name, email, phone, created_at) VALUES ($1, $2, $3, $4, $5)`,
		out.ID, out.Name, out.Email, out.Phone, out.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert client %s", out.ID)
	}
	return &out, nil
}

func (s *PostgresReportStore) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email, phone, created_at FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list clients")
	}
	defer rows.Close()

	clients := []model.Client{}
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan client")
		}
		clients = append(clients, c)
	}
	return clients, eris.Wrap(rows.Err(), "postgres: list clients iterate")
}

func (s *PostgresReportStore) SaveFile(ctx context.Context, f *model.UploadedFile, content []byte) (*model.UploadedFile, error) {
	out := *f
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	out.Size = int64(len(content))
	out.UploadedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO report_files (id, report_id, filename, content_type, size, content, uploaded_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		out.ID, out.ReportID, out.Filename, out.ContentType, out.Size, content, out.UploadedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert file %s", out.Filename)
	}
	return &out, nil
}

func scanPgReport(row pgx.Row) (*model.ReportRecord, error) {
	var rec model.ReportRecord
	var status string
	var dataJSON, stepsJSON []byte
	if err := row.Scan(&rec.ID, &rec.ClientID, &status, &dataJSON, &rec.CurrentStep, &stepsJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = model.ReportStatus(status)
	if err := unmarshalReport(&rec, dataJSON, stepsJSON); err != nil {
		return nil, err
	}
	return &rec, nil
}
