package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/valuation-cli/internal/model"
)

// openSQLite opens a SQLite database at dsn and configures WAL mode.
func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return db, nil
}

// SQLiteReportStore implements ReportStore using modernc.org/sqlite.
type SQLiteReportStore struct {
	db *sql.DB
}

// NewSQLiteReportStore opens the report database at dsn.
func NewSQLiteReportStore(dsn string) (*SQLiteReportStore, error) {
	db, err := openSQLite(dsn)
	if err != nil {
		return nil, err
	}
	return &SQLiteReportStore{db: db}, nil
}

const sqliteReportMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reports (
	id              TEXT PRIMARY KEY,
	client_id       TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'draft',
	data            TEXT NOT NULL,
	current_step    TEXT NOT NULL DEFAULT '',
	completed_steps TEXT NOT NULL DEFAULT '[]',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS report_files (
	id           TEXT PRIMARY KEY,
	report_id    TEXT NOT NULL DEFAULT '',
	filename     TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL DEFAULT 0,
	content      BLOB,
	uploaded_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reports_client_id ON reports(client_id);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_report_files_report_id ON report_files(report_id);
`

func (s *SQLiteReportStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteReportMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteReportStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteReportStore) CreateReport(ctx context.Context, rec *model.ReportRecord) (*model.ReportRecord, error) {
	out := prepareReport(rec, uuid.New().String())
	now := time.Now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now

	dataJSON, stepsJSON, err := marshalReport(out)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, client_id, status, data, current_step, completed_steps, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.ClientID, string(out.Status), dataJSON, out.CurrentStep, stepsJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert report %s", out.ID)
	}
	return out, nil
}

func (s *SQLiteReportStore) GetReport(ctx context.Context, id string) (*model.ReportRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, client_id, status, data, current_step, completed_steps, created_at, updated_at
		 FROM reports WHERE id = ?`, id,
	)
	rec, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", id)
	}
	return rec, nil
}

func (s *SQLiteReportStore) UpdateReport(ctx context.Context, rec *model.ReportRecord) (*model.ReportRecord, error) {
	existing, err := s.GetReport(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	out := prepareReport(rec, rec.ID)
	out.CreatedAt = existing.CreatedAt
	out.UpdatedAt = time.Now().UTC()

	dataJSON, stepsJSON, err := marshalReport(out)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE reports SET client_id = ?, status = ?, data = ?, current_step = ?, completed_steps = ?, updated_at = ?
		 WHERE id = ?`,
		out.ClientID, string(out.Status), dataJSON, out.CurrentStep, stepsJSON, out.UpdatedAt, out.ID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update report %s", out.ID)
	}
	if err := checkRowsAffected(res, "report", out.ID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteReportStore) ListReports(ctx context.Context, filter ReportFilter) ([]model.ReportRecord, error) {
	query := `SELECT id, client_id, status, data, current_step, completed_steps, created_at, updated_at FROM reports WHERE 1=1`
	var args []any

	if filter.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, filter.ClientID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY updated_at DESC, id LIMIT ?`
	args = append(args, listLimit(filter))
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close() //nolint:errcheck

	reports := []model.ReportRecord{}
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report")
		}
		reports = append(reports, *rec)
	}
	return reports, eris.Wrap(rows.Err(), "sqlite: list reports iterate")
}

func (s *SQLiteReportStore) DeleteReport(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete report %s", id)
	}
	return checkRowsAffected(res, "report", id)
}

func (s *SQLiteReportStore) CreateClient(ctx context.Context, c *model.Client) (*model.Client, error) {
	out := *c
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	out.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, email, phone, created_at) VALUES (?, ?, ?, ?, ?)`,
		out.ID, out.Name, out.Email, out.Phone, out.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert client %s", out.ID)
	}
	return &out, nil
}

func (s *SQLiteReportStore) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, phone, created_at FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clients")
	}
	defer rows.Close() //nolint:errcheck

	clients := []model.Client{}
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan client")
		}
		clients = append(clients, c)
	}
	return clients, eris.Wrap(rows.Err(), "sqlite: list clients iterate")
}

func (s *SQLiteReportStore) SaveFile(ctx context.Context, f *model.UploadedFile, content []byte) (*model.UploadedFile, error) {
	out := *f
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	out.Size = int64(len(content))
	out.UploadedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO report_files (id, report_id, filename, content_type, size, content, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.ReportID, out.Filename, out.ContentType, out.Size, content, out.UploadedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert file %s", out.Filename)
	}
	return &out, nil
}

func marshalReport(rec *model.ReportRecord) (string, string, error) {
	dataJSON, err := json.Marshal(rec.Data)
	if err != nil {
		return "", "", eris.Wrap(err, "store: marshal report data")
	}
	steps := rec.CompletedSteps
	if steps == nil {
		steps = []string{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return "", "", eris.Wrap(err, "store: marshal completed steps")
	}
	return string(dataJSON), string(stepsJSON), nil
}

func unmarshalReport(rec *model.ReportRecord, dataJSON, stepsJSON []byte) error {
	rec.Data = &model.ReportData{}
	if err := json.Unmarshal(dataJSON, rec.Data); err != nil {
		return eris.Wrap(err, "store: unmarshal report data")
	}
	if rec.Data.Sections == nil {
		rec.Data.Sections = make(map[string]model.Section)
	}
	if len(stepsJSON) > 0 {
		if err := json.Unmarshal(stepsJSON, &rec.CompletedSteps); err != nil {
			return eris.Wrap(err, "store: unmarshal completed steps")
		}
	}
	return nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanReport(row scannable) (*model.ReportRecord, error) {
	var rec model.ReportRecord
	var status, dataJSON, stepsJSON string
	if err := row.Scan(&rec.ID, &rec.ClientID, &status, &dataJSON, &rec.CurrentStep, &stepsJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = model.ReportStatus(status)
	if err := unmarshalReport(&rec, []byte(dataJSON), []byte(stepsJSON)); err != nil {
		return nil, err
	}
	return &rec, nil
}
