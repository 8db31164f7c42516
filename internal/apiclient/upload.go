package apiclient

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/valuation-cli/internal/model"
)

// UploadFailure records one file that could not be uploaded.
type UploadFailure struct {
	Filename   string `json:"filename"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// BatchUploadResult lists stored file ids and per-file failures, in input order.
type BatchUploadResult struct {
	Successful []string        `json:"successful"`
	Failed     []UploadFailure `json:"failed"`
}

// UploadProgress is reported for every status change of a file in a batch.
type UploadProgress struct {
	Index    int
	Filename string
	Status   model.UploadStatus
	FileID   string
	Message  string
}

// UploadOptions tunes UploadFiles.
type UploadOptions struct {
	// Concurrency bounds parallel uploads. Default: 4.
	Concurrency int
	// Fields are added to every multipart request (e.g. report_id).
	Fields map[string]string
	// OnProgress is called from upload goroutines; it must be safe for
	// concurrent use.
	OnProgress func(UploadProgress)
}

// UploadFiles uploads each file as its own multipart request. A failed file
// never cancels its siblings; each outcome is recorded independently.
func (c *Client) UploadFiles(ctx context.Context, endpoint string, files []File, opts UploadOptions) *BatchUploadResult {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	report := func(p UploadProgress) {
		if opts.OnProgress != nil {
			opts.OnProgress(p)
		}
	}

	type outcome struct {
		fileID string
		fail   *UploadFailure
	}
	outcomes := make([]outcome, len(files))

	for i, f := range files {
		report(UploadProgress{Index: i, Filename: f.Name, Status: model.UploadPending})
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(opts.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			report(UploadProgress{Index: i, Filename: f.Name, Status: model.UploadUploading})

			fileID, err := c.uploadOne(ctx, endpoint, f, opts.Fields)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				status := StatusNetworkError
				if apiErr, ok := AsAPIError(err); ok {
					status = apiErr.Status
				}
				outcomes[i] = outcome{fail: &UploadFailure{Filename: f.Name, Message: err.Error(), StatusCode: status}}
				zap.L().Warn("file upload failed", zap.String("filename", f.Name), zap.Error(err))
				report(UploadProgress{Index: i, Filename: f.Name, Status: model.UploadFailed, Message: err.Error()})
				return nil
			}
			outcomes[i] = outcome{fileID: fileID}
			report(UploadProgress{Index: i, Filename: f.Name, Status: model.UploadDone, FileID: fileID})
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	result := &BatchUploadResult{Successful: []string{}, Failed: []UploadFailure{}}
	for _, o := range outcomes {
		if o.fail != nil {
			result.Failed = append(result.Failed, *o.fail)
			continue
		}
		result.Successful = append(result.Successful, o.fileID)
	}
	return result
}

func (c *Client) uploadOne(ctx context.Context, endpoint string, f File, fields map[string]string) (string, error) {
	resp, err := c.Post(ctx, endpoint, &MultipartBody{Fields: fields, Files: []File{f}}, nil)
	if err != nil {
		return "", err
	}
	var stored model.UploadedFile
	if err := resp.Decode(&stored); err != nil {
		return "", err
	}
	if stored.ID == "" {
		return "", newAPIError(normalizeEndpoint(endpoint), resp.StatusCode, "upload response missing file_id", nil)
	}
	return stored.ID, nil
}
