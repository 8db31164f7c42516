package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/valuation-cli/internal/model"
)

var reportColumns = []string{"id", "client_id", "status", "data", "current_step", "completed_steps", "created_at", "updated_at"}

// newMockPostgresStore creates a PostgresReportStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresReportStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresReportStore{pool: mock}, mock
}

func TestPostgres_CreateReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO reports`).
		WithArgs(pgxmock.AnyArg(), "cli-1", "draft", pgxmock.AnyArg(), "location", []byte(`["property_identification"]`), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec, err := s.CreateReport(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, rec.ID, rec.Data.ReportID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, client_id, status, data, current_step, completed_steps, created_at, updated_at FROM reports WHERE id = \$1`).
		WithArgs("rpt-1").
		WillReturnRows(pgxmock.NewRows(reportColumns).AddRow(
			"rpt-1", "cli-1", "in_review",
			[]byte(`{"report_id":"rpt-1","sections":{"legal":{"deed_number":"4471"}}}`),
			"legal", []byte(`["property_identification","location"]`), now, now,
		))

	rec, err := s.GetReport(context.Background(), "rpt-1")
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusInReview, rec.Status)
	assert.Equal(t, []string{"property_identification", "location"}, rec.CompletedSteps)
	assert.Equal(t, "4471", rec.Data.Section(model.SectionLegal).String("deed_number"))
	assert.Equal(t, now, rec.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetReport_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM reports WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetReport(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetReport_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM reports WHERE id = \$1`).
		WithArgs("rpt-1").
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetReport(context.Background(), "rpt-1")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "postgres: get report rpt-1")
}

func TestPostgres_UpdateReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	rec := sampleReport()
	rec.ID = "rpt-1"

	mock.ExpectQuery(`UPDATE reports SET .* RETURNING created_at`).
		WithArgs("cli-1", "draft", pgxmock.AnyArg(), "location", pgxmock.AnyArg(), pgxmock.AnyArg(), "rpt-1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	out, err := s.UpdateReport(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, created, out.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateReport_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	rec := sampleReport()
	rec.ID = "ghost"

	mock.ExpectQuery(`UPDATE reports`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.UpdateReport(context.Background(), rec)
	assert.True(t, IsNotFound(err))
}

func TestPostgres_ListReports_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE true AND client_id = \$1 AND status = \$2 ORDER BY updated_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("cli-1", "draft", 10, 20).
		WillReturnRows(pgxmock.NewRows(reportColumns).
			AddRow("rpt-1", "cli-1", "draft", []byte(`{"sections":{}}`), "", []byte(`[]`), now, now).
			AddRow("rpt-2", "cli-1", "draft", []byte(`{"sections":{}}`), "", []byte(`[]`), now, now))

	out, err := s.ListReports(context.Background(), ReportFilter{
		ClientID: "cli-1",
		Status:   model.ReportStatusDraft,
		Limit:    10,
		Offset:   20,
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "rpt-2", out[1].ID)
	assert.NotNil(t, out[0].Data.Sections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListReports_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE true ORDER BY updated_at DESC, id LIMIT \$1$`).
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(reportColumns))

	out, err := s.ListReports(context.Background(), ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM reports WHERE id = \$1`).
		WithArgs("rpt-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM reports WHERE id = \$1`).
		WithArgs("rpt-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteReport(context.Background(), "rpt-1"))
	assert.True(t, IsNotFound(s.DeleteReport(context.Background(), "rpt-1")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Clients(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO clients`).
		WithArgs("cli-9", "Seylan Bank", "", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT id, name, email, phone, created_at FROM clients`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "phone", "created_at"}).
			AddRow("cli-9", "Seylan Bank", "", "", now))

	c, err := s.CreateClient(context.Background(), &model.Client{ID: "cli-9", Name: "Seylan Bank"})
	require.NoError(t, err)
	assert.Equal(t, "cli-9", c.ID)

	clients, err := s.ListClients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Seylan Bank", clients[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveFile(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO report_files`).
		WithArgs(pgxmock.AnyArg(), "rpt-1", "plan.pdf", "application/pdf", int64(3), []byte("abc"), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	f, err := s.SaveFile(context.Background(), &model.UploadedFile{
		ReportID: "rpt-1", Filename: "plan.pdf", ContentType: "application/pdf",
	}, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.Size)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS reports`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
