package apiclient

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/valuation-cli/internal/model"
)

const (
	reportsEndpoint = "/reports"
	clientsEndpoint = "/clients"
	uploadEndpoint  = "/files/upload"

	tagReports = "reports"
	tagClients = "clients"
)

func reportTag(id string) string { return "report:" + id }

func reportPath(id string) string { return reportsEndpoint + "/" + url.PathEscape(id) }

// CreateReport stores a new report and returns it with its assigned id.
func (c *Client) CreateReport(ctx context.Context, rec *model.ReportRecord) (*model.ReportRecord, error) {
	resp, err := c.Post(ctx, reportsEndpoint, rec, nil)
	if err != nil {
		return nil, err
	}
	c.InvalidateTag(tagReports)

	var out model.ReportRecord
	if err := resp.Decode(&out); err != nil {
		return nil, eris.Wrap(err, "apiclient: create report")
	}
	return &out, nil
}

// GetReport fetches a report by id. Responses are cached until the report is
// written through this client.
func (c *Client) GetReport(ctx context.Context, id string) (*model.ReportRecord, error) {
	resp, err := c.Get(ctx, reportPath(id), &RequestOptions{CacheTags: []string{reportTag(id)}})
	if err != nil {
		return nil, err
	}
	var out model.ReportRecord
	if err := resp.Decode(&out); err != nil {
		return nil, eris.Wrapf(err, "apiclient: get report %s", id)
	}
	return &out, nil
}

// UpdateReport replaces a stored report.
func (c *Client) UpdateReport(ctx context.Context, rec *model.ReportRecord) (*model.ReportRecord, error) {
	if rec.ID == "" {
		return nil, eris.New("apiclient: update report: missing id")
	}
	resp, err := c.Put(ctx, reportPath(rec.ID), rec, nil)
	if err != nil {
		return nil, err
	}
	c.InvalidateTag(reportTag(rec.ID))
	c.InvalidateTag(tagReports)

	var out model.ReportRecord
	if err := resp.Decode(&out); err != nil {
		return nil, eris.Wrapf(err, "apiclient: update report %s", rec.ID)
	}
	return &out, nil
}

// ReportPatch is a partial report update: sections are shallow-merged on
// the server, other fields replace when set.
type ReportPatch struct {
	Sections       map[string]model.Section `json:"sections,omitempty"`
	Status         model.ReportStatus       `json:"status,omitempty"`
	CurrentStep    *string                  `json:"current_step,omitempty"`
	CompletedSteps []string                 `json:"completed_steps,omitempty"`
}

// PatchReport applies a partial update to a stored report.
func (c *Client) PatchReport(ctx context.Context, id string, patch ReportPatch) (*model.ReportRecord, error) {
	resp, err := c.Patch(ctx, reportPath(id), patch, nil)
	if err != nil {
		return nil, err
	}
	c.InvalidateTag(reportTag(id))
	c.InvalidateTag(tagReports)

	var out model.ReportRecord
	if err := resp.Decode(&out); err != nil {
		return nil, eris.Wrapf(err, "apiclient: patch report %s", id)
	}
	return &out, nil
}

// DeleteReport removes a report. It is never retried.
func (c *Client) DeleteReport(ctx context.Context, id string) error {
	if _, err := c.Delete(ctx, reportPath(id), nil); err != nil {
		return err
	}
	c.InvalidateTag(reportTag(id))
	c.InvalidateTag(tagReports)
	return nil
}

// ListReports returns stored reports, newest first.
func (c *Client) ListReports(ctx context.Context) ([]model.ReportRecord, error) {
	resp, err := c.Get(ctx, reportsEndpoint, &RequestOptions{CacheTags: []string{tagReports}})
	if err != nil {
		return nil, err
	}
	var out []model.ReportRecord
	if err := resp.Decode(&out); err != nil {
		return nil, eris.Wrap(err, "apiclient: list reports")
	}
	return out, nil
}

// ListClients returns the valuer's clients.
func (c *Client) ListClients(ctx context.Context) ([]model.Client, error) {
	resp, err := c.Get(ctx, clientsEndpoint, &RequestOptions{CacheTags: []string{tagClients}})
	if err != nil {
		return nil, err
	}
	var out []model.Client
	if err := resp.Decode(&out); err != nil {
		return nil, eris.Wrap(err, "apiclient: list clients")
	}
	return out, nil
}

// UploadReportFiles uploads files attached to a report.
func (c *Client) UploadReportFiles(ctx context.Context, reportID string, files []File, onProgress func(UploadProgress)) *BatchUploadResult {
	fields := map[string]string{}
	if reportID != "" {
		fields["report_id"] = reportID
	}
	return c.UploadFiles(ctx, uploadEndpoint, files, UploadOptions{Fields: fields, OnProgress: onProgress})
}

// SaveReport creates the report when it has no id yet, otherwise updates it.
func (c *Client) SaveReport(ctx context.Context, rec *model.ReportRecord) (*model.ReportRecord, error) {
	if rec.ID == "" {
		return c.CreateReport(ctx, rec)
	}
	return c.UpdateReport(ctx, rec)
}

// LoadReport fetches a report, bypassing the cache.
func (c *Client) LoadReport(ctx context.Context, id string) (*model.ReportRecord, error) {
	c.InvalidateTag(reportTag(id))
	return c.GetReport(ctx, id)
}
