// Package wizard holds the in-progress valuation report: step navigation,
// validation, AI provenance, undo history and persistence. A Store is safe
// for concurrent use; every mutation goes through its mutex.
package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/valuation-cli/internal/apiclient"
	"github.com/sells-group/valuation-cli/internal/geo"
	"github.com/sells-group/valuation-cli/internal/model"
)

// Options configures a Store.
type Options struct {
	Catalog      *Catalog
	HistoryLimit int
	Persister    Persister
	Backend      Backend
	Namespace    string
	Now          func() time.Time
}

// Store is the wizard state container.
type Store struct {
	mu sync.Mutex

	catalog      *Catalog
	persister    Persister
	backend      Backend
	namespace    string
	now          func() time.Time
	historyLimit int

	data        *model.ReportData
	current     int
	completed   map[Step]bool
	validations map[Step]StepValidation
	ai          provenance
	history     *history
	uploads     map[string]UploadState
	dirty       bool
	lastSaved   *time.Time
	errors      []string
}

// New builds a Store holding an empty report. Call Hydrate to resume a
// persisted session or Init to start a new one.
func New(opts Options) *Store {
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.Namespace == "" {
		opts.Namespace = StateNamespace
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	s := &Store{
		catalog:      opts.Catalog,
		persister:    opts.Persister,
		backend:      opts.Backend,
		namespace:    opts.Namespace,
		now:          opts.Now,
		historyLimit: opts.HistoryLimit,
	}
	s.resetLocked(s.newReportLocked("", ""))
	return s
}

// Catalog returns the step catalog the store navigates.
func (s *Store) Catalog() *Catalog { return s.catalog }

// Init discards any current state and starts a new report.
func (s *Store) Init(ctx context.Context, reportID, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked(s.newReportLocked(reportID, clientID))
	s.dirty = true
	return s.persistLocked(ctx)
}

// Hydrate restores the last persisted snapshot. It reports whether one was
// found.
func (s *Store) Hydrate(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persister == nil {
		return false, nil
	}
	raw, err := s.persister.LoadState(ctx, s.namespace)
	if err != nil {
		return false, eris.Wrap(err, "wizard: load state")
	}
	if raw == nil {
		return false, nil
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return false, eris.Wrap(err, "wizard: decode state")
	}

	data := st.ReportData
	if data == nil {
		data = s.newReportLocked("", "")
	}
	if data.Sections == nil {
		data.Sections = make(map[string]model.Section)
	}
	s.resetLocked(data)

	if i := s.catalog.Index(st.Progress.CurrentStep); i >= 0 {
		s.current = i
	}
	for _, step := range st.Progress.CompletedSteps {
		if s.catalog.Index(step) >= 0 {
			s.completed[step] = true
		}
	}
	for step, v := range st.StepValidations {
		if s.catalog.Index(step) >= 0 {
			s.validations[step] = v
		}
	}
	s.ai = provenanceFromArrays(st.AIPopulatedFields)
	s.history.retag(s.ai)
	for k, u := range st.Uploads {
		s.uploads[k] = u
	}
	s.dirty = st.IsDirty
	s.lastSaved = st.LastSaved

	zap.L().Debug("wizard: hydrated",
		zap.String("report_id", data.ReportID),
		zap.String("step", string(s.catalog.At(s.current))),
	)
	return true, nil
}

// Teardown writes a final snapshot and clears in-memory state.
func (s *Store) Teardown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.persistLocked(ctx)
	s.resetLocked(s.newReportLocked("", ""))
	s.errors = nil
	return err
}

// State returns a copy of the persisted form of the wizard.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Data returns a deep copy of the live report.
func (s *Store) Data() *model.ReportData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// Dirty reports whether there are changes not yet saved to the backend.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// LastSaved returns the time of the last successful backend save.
func (s *Store) LastSaved() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSaved == nil {
		return time.Time{}, false
	}
	return *s.lastSaved, true
}

// Errors returns the accumulated save/load failure messages.
func (s *Store) Errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.errors...)
}

// ClearErrors empties the error list.
func (s *Store) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = nil
}

// --- navigation ---

// CurrentStep returns the step the wizard is on.
func (s *Store) CurrentStep() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.At(s.current)
}

// GoToStep moves to step without any gating.
func (s *Store) GoToStep(step Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.catalog.Index(step)
	if i < 0 {
		return false
	}
	s.current = i
	s.autosaveLocked()
	return true
}

// NextStep validates the current step and, when valid, marks it complete and
// advances. It returns false when the step is invalid or already the last.
func (s *Store) NextStep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := s.catalog.At(s.current)
	v := s.validateLocked(step)
	if !v.IsValid {
		zap.L().Debug("wizard: step invalid",
			zap.String("step", string(step)),
			zap.Int("errors", len(v.Errors)),
		)
		s.autosaveLocked()
		return false
	}
	s.completed[step] = true
	if s.current == s.catalog.Len()-1 {
		s.autosaveLocked()
		return false
	}
	s.current++
	s.autosaveLocked()
	return true
}

// PreviousStep moves back one step.
func (s *Store) PreviousStep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == 0 {
		return false
	}
	s.current--
	s.autosaveLocked()
	return true
}

// CanNavigateToStep reports whether JumpToStep(step) would succeed.
func (s *Store) CanNavigateToStep(step Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canNavigateLocked(step)
}

// JumpToStep moves to step when every earlier step is complete. Backward
// jumps always succeed.
func (s *Store) JumpToStep(step Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.canNavigateLocked(step) {
		return false
	}
	s.current = s.catalog.Index(step)
	s.autosaveLocked()
	return true
}

// IsStepComplete reports whether step was completed and its last
// validation passed.
func (s *Store) IsStepComplete(step Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isCompleteLocked(step)
}

// Progress returns the navigation position.
func (s *Store) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

// --- data ---

// UpdateReportData shallow-merges partial into a report section. Touched keys
// lose their AI provenance.
func (s *Store) UpdateReportData(section string, partial model.Section) {
	s.BulkUpdateData(map[string]model.Section{section: partial})
}

// BulkUpdateData merges several sections as a single undoable change.
func (s *Store) BulkUpdateData(partials map[string]model.Section) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(partials))
	for k, p := range partials {
		if k != "" && len(p) > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)

	for _, section := range keys {
		partial := partials[section]
		s.data.Merge(section, partial)
		s.deriveLocked(section)
		if step, ok := s.catalog.StepForSection(section); ok {
			for k := range partial {
				s.ai.unmark(step, k)
			}
		}
	}
	s.commitLocked(keys...)
}

// UpdateField sets one value in a step's section. It is the manual-edit
// path: the AI flags of path, of anything nested below it and of its
// enclosing objects are cleared.
func (s *Store) UpdateField(step Step, path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	section, ok := s.catalog.SectionFor(step)
	if !ok {
		return eris.Errorf("wizard: unknown step %q", step)
	}
	if path == "" {
		return eris.New("wizard: empty field path")
	}
	s.sectionLocked(section).Set(path, value)
	s.deriveLocked(section)
	s.ai.unmark(step, path)
	s.commitLocked(section)
	return nil
}

// GetStepData returns a copy of the section a step edits.
func (s *Store) GetStepData(step Step) model.Section {
	s.mu.Lock()
	defer s.mu.Unlock()

	section, ok := s.catalog.SectionFor(step)
	if !ok {
		return model.Section{}
	}
	out := s.data.Section(section).Clone()
	if out == nil {
		out = model.Section{}
	}
	return out
}

// ResetStep clears a step's section, provenance, completion and validation.
func (s *Store) ResetStep(step Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	section, ok := s.catalog.SectionFor(step)
	if !ok {
		return false
	}
	delete(s.data.Sections, section)
	s.ai.clear(step)
	delete(s.completed, step)
	delete(s.validations, step)
	s.commitLocked(section)
	return true
}

// --- validation ---

// ValidateStep validates step against the live data and stores the result.
func (s *Store) ValidateStep(step Step) StepValidation {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.validateLocked(step)
	s.autosaveLocked()
	return v
}

// ValidateAll validates every step.
func (s *Store) ValidateAll() map[Step]StepValidation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Step]StepValidation, s.catalog.Len())
	for _, step := range s.catalog.Steps() {
		out[step] = s.validateLocked(step)
	}
	s.autosaveLocked()
	return out
}

// Validation returns the last stored validation of step.
func (s *Store) Validation(step Step) (StepValidation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.validations[step]
	return v, ok
}

// --- AI provenance ---

// MarkFieldAsAIPopulated flags one field path of step as AI-sourced.
func (s *Store) MarkFieldAsAIPopulated(step Step, path string) {
	s.MarkFieldsAsAIPopulated(step, path)
}

// MarkFieldsAsAIPopulated flags several field paths of step as AI-sourced.
func (s *Store) MarkFieldsAsAIPopulated(step Step, paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.catalog.Index(step) < 0 || len(paths) == 0 {
		return
	}
	s.ai.mark(step, paths...)
	s.history.retag(s.ai)
	s.autosaveLocked()
}

// ClearAIPopulatedFields drops every AI flag of step.
func (s *Store) ClearAIPopulatedFields(step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ai.clear(step)
	s.history.retag(s.ai)
	s.autosaveLocked()
}

// IsFieldAIPopulated reports whether path of step holds an AI-sourced value.
func (s *Store) IsFieldAIPopulated(step Step, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ai.has(step, path)
}

// GetAIPopulatedFields returns the AI-sourced paths of step, sorted.
func (s *Store) GetAIPopulatedFields(step Step) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ai.list(step)
}

// --- history ---

// Undo restores the previous snapshot.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.history.undo()
	if !ok {
		return false
	}
	s.restoreLocked(snap)
	return true
}

// Redo re-applies the next snapshot.
func (s *Store) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.history.redo()
	if !ok {
		return false
	}
	s.restoreLocked(snap)
	return true
}

// CanUndo reports whether Undo would succeed.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.canUndo()
}

// CanRedo reports whether Redo would succeed.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.canRedo()
}

// HistoryPosition returns the current snapshot index and the snapshot count.
func (s *Store) HistoryPosition() (index, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.index, s.history.len()
}

// --- uploads ---

// SetUploadStatus records the status of one attachment. A finished upload
// adds its file id to the file_uploads section.
func (s *Store) SetUploadStatus(filename string, status model.UploadStatus, fileID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.uploads[filename] = UploadState{
		Filename: filename,
		FileID:   fileID,
		Status:   status,
		Message:  message,
	}
	if status != model.UploadDone || fileID == "" {
		s.autosaveLocked()
		return
	}

	sec := s.sectionLocked(model.SectionFileUploads)
	raw, _ := sec.Get("files")
	files, _ := raw.([]any)
	for _, f := range files {
		if f == fileID {
			s.autosaveLocked()
			return
		}
	}
	sec["files"] = append(files, fileID)
	s.commitLocked(model.SectionFileUploads)
}

// Uploads returns the known attachment states keyed by filename.
func (s *Store) Uploads() map[string]UploadState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]UploadState, len(s.uploads))
	for k, v := range s.uploads {
		out[k] = v
	}
	return out
}

// UploadFiles sends files through up, routing every progress callback back
// through SetUploadStatus.
func (s *Store) UploadFiles(ctx context.Context, up Uploader, files []apiclient.File) *apiclient.BatchUploadResult {
	s.mu.Lock()
	reportID := s.data.ReportID
	s.mu.Unlock()

	for _, f := range files {
		s.SetUploadStatus(f.Name, model.UploadPending, "", "")
	}
	return up.UploadReportFiles(ctx, reportID, files, func(p apiclient.UploadProgress) {
		s.SetUploadStatus(p.Filename, p.Status, p.FileID, p.Message)
	})
}

// --- backend persistence ---

// SaveProgress sends the report to the backend. Failures are appended to
// Errors and reported as false.
func (s *Store) SaveProgress(ctx context.Context) bool {
	s.mu.Lock()
	backend := s.backend
	rec := s.recordLocked()
	s.mu.Unlock()

	if backend == nil {
		s.fail("Failed to save progress: no backend configured")
		return false
	}

	saved, err := backend.SaveReport(ctx, rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.recordErrorLocked(fmt.Sprintf("Failed to save progress: %v", err))
		return false
	}
	if saved != nil && saved.ID != "" && s.data.ReportID == "" {
		s.data.ReportID = saved.ID
	}
	now := s.now()
	s.lastSaved = &now
	if s.data.UpdatedAt.Equal(rec.Data.UpdatedAt) {
		s.dirty = false
	}
	s.autosaveLocked()
	return true
}

// LoadProgress replaces the local state with a report from the backend.
// Completed steps are revalidated against the loaded data.
func (s *Store) LoadProgress(ctx context.Context, id string) bool {
	s.mu.Lock()
	backend := s.backend
	s.mu.Unlock()

	if backend == nil {
		s.fail("Failed to load report: no backend configured")
		return false
	}

	rec, err := backend.LoadReport(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.recordErrorLocked(fmt.Sprintf("Failed to load report %s: %v", id, err))
		return false
	}

	var data *model.ReportData
	if rec.Data != nil {
		data = rec.Data.Clone()
	} else {
		data = s.newReportLocked(rec.ID, rec.ClientID)
	}
	if data.Sections == nil {
		data.Sections = make(map[string]model.Section)
	}
	if data.ReportID == "" {
		data.ReportID = rec.ID
	}
	if data.ClientID == "" {
		data.ClientID = rec.ClientID
	}
	s.resetLocked(data)

	if i := s.catalog.Index(Step(rec.CurrentStep)); i >= 0 {
		s.current = i
	}
	for _, name := range rec.CompletedSteps {
		step := Step(name)
		if s.catalog.Index(step) < 0 {
			continue
		}
		s.completed[step] = true
		s.validateLocked(step)
	}
	now := s.now()
	s.lastSaved = &now
	s.autosaveLocked()
	return true
}

// --- internals; callers hold mu ---

func (s *Store) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordErrorLocked(msg)
}

func (s *Store) recordErrorLocked(msg string) {
	s.errors = append(s.errors, msg)
	zap.L().Warn("wizard: error recorded", zap.String("message", msg))
}

func (s *Store) newReportLocked(reportID, clientID string) *model.ReportData {
	d := model.NewReportData(reportID, clientID)
	now := s.now()
	d.CreatedAt = now
	d.UpdatedAt = now
	return d
}

func (s *Store) resetLocked(data *model.ReportData) {
	s.data = data
	s.current = 0
	s.completed = make(map[Step]bool)
	s.validations = make(map[Step]StepValidation)
	s.ai = make(provenance)
	s.uploads = make(map[string]UploadState)
	s.history = newHistory(s.historyLimit, data, s.ai)
	s.dirty = false
	s.lastSaved = nil
}

func (s *Store) sectionLocked(key string) model.Section {
	sec := s.data.Section(key)
	if sec == nil {
		sec = model.Section{}
		if s.data.Sections == nil {
			s.data.Sections = make(map[string]model.Section)
		}
		s.data.Sections[key] = sec
	}
	return sec
}

func (s *Store) deriveLocked(section string) {
	sec := s.data.Section(section)
	if sec == nil {
		return
	}
	switch section {
	case model.SectionIdentification:
		model.DeriveExtent(sec)
	case model.SectionLocation:
		geo.DeriveLocality(sec)
	}
}

// commitLocked finishes a data mutation: timestamps, history, revalidation
// of already-validated steps that edit a touched section, autosave.
func (s *Store) commitLocked(sections ...string) {
	s.data.UpdatedAt = s.now()
	s.dirty = true
	s.history.push(s.data, s.ai)
	for _, section := range sections {
		if step, ok := s.catalog.StepForSection(section); ok {
			if _, seen := s.validations[step]; seen {
				s.validateLocked(step)
			}
		}
	}
	s.autosaveLocked()
}

// restoreLocked installs a history snapshot and its AI flags, keeping
// report identity.
func (s *Store) restoreLocked(snap snapshot) {
	data := snap.data
	data.ReportID = s.data.ReportID
	data.ClientID = s.data.ClientID
	data.CreatedAt = s.data.CreatedAt
	s.data = data
	s.ai = snap.ai
	if s.ai == nil {
		s.ai = make(provenance)
	}
	s.dirty = true
	for step := range s.validations {
		s.validateLocked(step)
	}
	s.autosaveLocked()
}

func (s *Store) validateLocked(step Step) StepValidation {
	v := Validate(s.catalog, step, s.data)
	if s.catalog.Index(step) >= 0 {
		s.validations[step] = v
	}
	return v
}

func (s *Store) isCompleteLocked(step Step) bool {
	if !s.completed[step] {
		return false
	}
	v, ok := s.validations[step]
	return ok && v.IsValid
}

func (s *Store) canNavigateLocked(step Step) bool {
	target := s.catalog.Index(step)
	if target < 0 {
		return false
	}
	if target <= s.current {
		return true
	}
	for i := 0; i < target; i++ {
		if !s.isCompleteLocked(s.catalog.At(i)) {
			return false
		}
	}
	return true
}

func (s *Store) progressLocked() Progress {
	p := Progress{
		CurrentStep:      s.catalog.At(s.current),
		CurrentStepIndex: s.current,
		CompletedSteps:   []Step{},
		TotalSteps:       s.catalog.Len(),
	}
	done := 0
	for _, step := range s.catalog.Steps() {
		if s.completed[step] {
			p.CompletedSteps = append(p.CompletedSteps, step)
		}
		if s.isCompleteLocked(step) {
			done++
		}
	}
	if p.TotalSteps > 0 {
		p.Percentage = done * 100 / p.TotalSteps
	}
	return p
}

func (s *Store) recordLocked() *model.ReportRecord {
	p := s.progressLocked()
	completed := make([]string, len(p.CompletedSteps))
	for i, step := range p.CompletedSteps {
		completed[i] = string(step)
	}
	return &model.ReportRecord{
		ID:             s.data.ReportID,
		ClientID:       s.data.ClientID,
		Status:         model.ReportStatusDraft,
		Data:           s.data.Clone(),
		CurrentStep:    string(p.CurrentStep),
		CompletedSteps: completed,
		CreatedAt:      s.data.CreatedAt,
		UpdatedAt:      s.data.UpdatedAt,
	}
}

func (s *Store) stateLocked() State {
	validations := make(map[Step]StepValidation, len(s.validations))
	for k, v := range s.validations {
		validations[k] = v
	}
	var uploads map[string]UploadState
	if len(s.uploads) > 0 {
		uploads = make(map[string]UploadState, len(s.uploads))
		for k, v := range s.uploads {
			uploads[k] = v
		}
	}
	var lastSaved *time.Time
	if s.lastSaved != nil {
		t := *s.lastSaved
		lastSaved = &t
	}
	return State{
		ReportData:        s.data.Clone(),
		Progress:          s.progressLocked(),
		StepValidations:   validations,
		LastSaved:         lastSaved,
		IsDirty:           s.dirty,
		AIPopulatedFields: s.ai.arrays(),
		Uploads:           uploads,
	}
}

func (s *Store) persistLocked(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	raw, err := json.Marshal(s.stateLocked())
	if err != nil {
		return eris.Wrap(err, "wizard: encode state")
	}
	if err := s.persister.SaveState(ctx, s.namespace, raw); err != nil {
		return eris.Wrap(err, "wizard: persist state")
	}
	return nil
}

func (s *Store) autosaveLocked() {
	if err := s.persistLocked(context.Background()); err != nil {
		s.recordErrorLocked(fmt.Sprintf("Failed to persist wizard state: %v", err))
	}
}
