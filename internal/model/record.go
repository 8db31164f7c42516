package model

import "time"

// ReportStatus is the lifecycle state of a stored report.
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusInReview  ReportStatus = "in_review"
	ReportStatusFinalized ReportStatus = "finalized"
)

// ReportRecord is the backend representation of a report: the report data
// plus the wizard position needed to resume it.
type ReportRecord struct {
	ID             string       `json:"id"`
	ClientID       string       `json:"client_id,omitempty"`
	Status         ReportStatus `json:"status"`
	Data           *ReportData  `json:"data"`
	CurrentStep    string       `json:"current_step,omitempty"`
	CompletedSteps []string     `json:"completed_steps,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Client is a valuation client (bank, owner, legal firm) reports are made for.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadedFile describes a stored upload (deed, survey plan, photo).
type UploadedFile struct {
	ID          string    `json:"file_id"`
	ReportID    string    `json:"report_id,omitempty"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// UploadStatus tracks a single file in a batch upload.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadDone      UploadStatus = "done"
	UploadFailed    UploadStatus = "failed"
)
