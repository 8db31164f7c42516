package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/valuation-cli/internal/model"
)

func newTestReportStore(t *testing.T) *SQLiteReportStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "reports.db")
	st, err := NewSQLiteReportStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleReport() *model.ReportRecord {
	data := model.NewReportData("", "cli-1")
	data.Sections[model.SectionIdentification] = model.Section{
		"lot_number":     "7",
		"extent_perches": 15.5,
	}
	return &model.ReportRecord{
		ClientID:       "cli-1",
		Data:           data,
		CurrentStep:    "location",
		CompletedSteps: []string{"property_identification"},
	}
}

func TestSQLite_CreateAndGetReport(t *testing.T) {
	st := newTestReportStore(t)
	ctx := context.Background()

	created, err := st.CreateReport(ctx, sampleReport())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, model.ReportStatusDraft, created.Status)
	assert.Equal(t, created.ID, created.Data.ReportID)

	got, err := st.GetReport(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "cli-1", got.ClientID)
	assert.Equal(t, "location", got.CurrentStep)
	assert.Equal(t, []string{"property_identification"}, got.CompletedSteps)
	assert.Equal(t, "7", got.Data.Section(model.SectionIdentification).String("lot_number"))
	perches, ok := got.Data.Section(model.SectionIdentification).Float("extent_perches")
	require.True(t, ok)
	assert.InDelta(t, 15.5, perches, 1e-9)
}

func TestSQLite_CreateReport_KeepsGivenID(t *testing.T) {
	st := newTestReportStore(t)
	rec := sampleReport()
	rec.ID = "rpt-fixed"

	created, err := st.CreateReport(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "rpt-fixed", created.ID)
}

func TestSQLite_GetReport_NotFound(t *testing.T) {
	st := newTestReportStore(t)

	_, err := st.GetReport(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSQLite_UpdateReport(t *testing.T) {
	st := newTestReportStore(t)
	ctx := context.Background()
	created, err := st.CreateReport(ctx, sampleReport())
	require.NoError(t, err)

	created.Status = model.ReportStatusInReview
	created.CurrentStep = "legal"
	created.Data.Merge(model.SectionLegal, model.Section{"deed_number": "4471"})
	updated, err := st.UpdateReport(ctx, created)
	require.NoError(t, err)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	got, err := st.GetReport(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusInReview, got.Status)
	assert.Equal(t, "legal", got.CurrentStep)
	assert.Equal(t, "4471", got.Data.Section(model.SectionLegal).String("deed_number"))
}

func TestSQLite_UpdateReport_NotFound(t *testing.T) {
	st := newTestReportStore(t)
	rec := sampleReport()
	rec.ID = "ghost"

	_, err := st.UpdateReport(context.Background(), rec)
	assert.True(t, IsNotFound(err))
}

func TestSQLite_ListReports_Filter(t *testing.T) {
	st := newTestReportStore(t)
	ctx := context.Background()

	for _, client := range []string{"cli-1", "cli-1", "cli-2"} {
		rec := sampleReport()
		rec.ClientID = client
		_, err := st.CreateReport(ctx, rec)
		require.NoError(t, err)
	}

	all, err := st.ListReports(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := st.ListReports(ctx, ReportFilter{ClientID: "cli-1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	page, err := st.ListReports(ctx, ReportFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	none, err := st.ListReports(ctx, ReportFilter{Status: model.ReportStatusFinalized})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestSQLite_DeleteReport(t *testing.T) {
	st := newTestReportStore(t)
	ctx := context.Background()
	created, err := st.CreateReport(ctx, sampleReport())
	require.NoError(t, err)

	require.NoError(t, st.DeleteReport(ctx, created.ID))
	_, err = st.GetReport(ctx, created.ID)
	assert.True(t, IsNotFound(err))

	assert.True(t, IsNotFound(st.DeleteReport(ctx, created.ID)))
}

func TestSQLite_Clients(t *testing.T) {
	st := newTestReportStore(t)
	ctx := context.Background()

	_, err := st.CreateClient(ctx, &model.Client{Name: "Seylan Bank", Email: "credit@seylan.lk"})
	require.NoError(t, err)
	_, err = st.CreateClient(ctx, &model.Client{ID: "cli-owner", Name: "A. Owner"})
	require.NoError(t, err)

	clients, err := st.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "A. Owner", clients[0].Name)
	assert.Equal(t, "cli-owner", clients[0].ID)
	assert.Equal(t, "credit@seylan.lk", clients[1].Email)
}

func TestSQLite_SaveFile(t *testing.T) {
	st := newTestReportStore(t)

	f, err := st.SaveFile(context.Background(), &model.UploadedFile{
		ReportID:    "rpt-1",
		Filename:    "deed.pdf",
		ContentType: "application/pdf",
	}, []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, int64(8), f.Size)
	assert.False(t, f.UploadedAt.IsZero())
}
