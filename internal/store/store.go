// Package store persists valuation reports for the dev backend and the
// local wizard snapshot for the CLI.
package store

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/valuation-cli/internal/model"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = eris.New("store: not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ReportFilter specifies criteria for listing reports.
type ReportFilter struct {
	ClientID string             `json:"client_id,omitempty"`
	Status   model.ReportStatus `json:"status,omitempty"`
	Limit    int                `json:"limit,omitempty"`
	Offset   int                `json:"offset,omitempty"`
}

// ReportStore defines the persistence interface of the report API.
type ReportStore interface {
	// Reports
	CreateReport(ctx context.Context, rec *model.ReportRecord) (*model.ReportRecord, error)
	GetReport(ctx context.Context, id string) (*model.ReportRecord, error)
	UpdateReport(ctx context.Context, rec *model.ReportRecord) (*model.ReportRecord, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]model.ReportRecord, error)
	DeleteReport(ctx context.Context, id string) error

	// Clients
	CreateClient(ctx context.Context, c *model.Client) (*model.Client, error)
	ListClients(ctx context.Context) ([]model.Client, error)

	// Files
	SaveFile(ctx context.Context, f *model.UploadedFile, content []byte) (*model.UploadedFile, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// prepareReport fills defaults on a record about to be inserted.
func prepareReport(rec *model.ReportRecord, id string) *model.ReportRecord {
	out := *rec
	if out.ID == "" {
		out.ID = id
	}
	if out.Status == "" {
		out.Status = model.ReportStatusDraft
	}
	if out.Data == nil {
		out.Data = model.NewReportData(out.ID, out.ClientID)
	} else {
		out.Data = out.Data.Clone()
	}
	out.Data.ReportID = out.ID
	if out.Data.ClientID == "" {
		out.Data.ClientID = out.ClientID
	}
	return &out
}

func listLimit(filter ReportFilter) int {
	if filter.Limit <= 0 {
		return 100
	}
	return filter.Limit
}
