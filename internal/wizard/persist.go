package wizard

import (
	"context"
	"time"

	"github.com/sells-group/valuation-cli/internal/apiclient"
	"github.com/sells-group/valuation-cli/internal/model"
)

// StateNamespace is the key the wizard snapshot is stored under.
const StateNamespace = "wizard_state"

// Persister stores the local wizard snapshot. LoadState returns nil, nil
// when nothing has been saved yet.
type Persister interface {
	SaveState(ctx context.Context, namespace string, data []byte) error
	LoadState(ctx context.Context, namespace string) ([]byte, error)
}

// Backend is the remote report API the wizard saves to and resumes from.
type Backend interface {
	SaveReport(ctx context.Context, rec *model.ReportRecord) (*model.ReportRecord, error)
	LoadReport(ctx context.Context, id string) (*model.ReportRecord, error)
}

// Uploader sends report attachments. Progress callbacks may arrive from
// several goroutines.
type Uploader interface {
	UploadReportFiles(ctx context.Context, reportID string, files []apiclient.File, onProgress func(apiclient.UploadProgress)) *apiclient.BatchUploadResult
}

// Progress is the navigation position of the wizard.
type Progress struct {
	CurrentStep      Step   `json:"currentStep"`
	CurrentStepIndex int    `json:"currentStepIndex"`
	CompletedSteps   []Step `json:"completedSteps"`
	TotalSteps       int    `json:"totalSteps"`
	Percentage       int    `json:"percentage"`
}

// UploadState is the last known status of one attachment.
type UploadState struct {
	Filename string             `json:"filename"`
	FileID   string             `json:"file_id,omitempty"`
	Status   model.UploadStatus `json:"status"`
	Message  string             `json:"message,omitempty"`
}

// State is the persisted form of the wizard. Provenance sets are written as
// sorted path arrays.
type State struct {
	ReportData        *model.ReportData       `json:"reportData"`
	Progress          Progress                `json:"progress"`
	StepValidations   map[Step]StepValidation `json:"stepValidations"`
	LastSaved         *time.Time              `json:"lastSaved"`
	IsDirty           bool                    `json:"isDirty"`
	AIPopulatedFields map[Step][]string       `json:"aiPopulated"`
	Uploads           map[string]UploadState  `json:"uploads,omitempty"`
}
