package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/valuation-cli/internal/model"
)

func TestUploadFiles_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		if hdr.Filename == "corrupt.pdf" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"unreadable PDF"}`))
			return
		}
		json.NewEncoder(w).Encode(model.UploadedFile{ID: "f-" + hdr.Filename, Filename: hdr.Filename})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)

	var mu sync.Mutex
	statuses := map[string][]model.UploadStatus{}
	files := []File{
		{Name: "deed.pdf", Data: []byte("a")},
		{Name: "corrupt.pdf", Data: []byte("b")},
		{Name: "plan.pdf", Data: []byte("c")},
	}
	res := c.UploadReportFiles(context.Background(), "r-1", files, func(p UploadProgress) {
		mu.Lock()
		statuses[p.Filename] = append(statuses[p.Filename], p.Status)
		mu.Unlock()
	})

	assert.Equal(t, []string{"f-deed.pdf", "f-plan.pdf"}, res.Successful)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "corrupt.pdf", res.Failed[0].Filename)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Failed[0].StatusCode)
	assert.Contains(t, res.Failed[0].Message, "unreadable PDF")

	assert.Equal(t, []model.UploadStatus{model.UploadPending, model.UploadUploading, model.UploadDone}, statuses["deed.pdf"])
	assert.Equal(t, []model.UploadStatus{model.UploadPending, model.UploadUploading, model.UploadFailed}, statuses["corrupt.pdf"])
}

func TestUploadFiles_Empty(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1"})
	res := c.UploadFiles(context.Background(), "/files/upload", nil, UploadOptions{})
	assert.Empty(t, res.Successful)
	assert.Empty(t, res.Failed)
}
