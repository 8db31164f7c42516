package wizard

import "github.com/sells-group/valuation-cli/internal/model"

// DefaultHistoryLimit bounds the number of snapshots kept for undo.
const DefaultHistoryLimit = 50

// snapshot is one undo entry: the report data and the AI flags that
// describe it. Both are private copies.
type snapshot struct {
	data *model.ReportData
	ai   provenance
}

func (s snapshot) clone() snapshot {
	return snapshot{data: s.data.Clone(), ai: s.ai.clone()}
}

// history is a linear undo stack of deep-copied snapshots. index points at
// the snapshot matching the live state.
type history struct {
	snapshots []snapshot
	index     int
	limit     int
}

func newHistory(limit int, initial *model.ReportData, ai provenance) *history {
	if limit < 2 {
		limit = DefaultHistoryLimit
	}
	h := &history{limit: limit}
	h.reset(initial, ai)
	return h
}

func (h *history) reset(initial *model.ReportData, ai provenance) {
	h.snapshots = []snapshot{snapshot{data: initial, ai: ai}.clone()}
	h.index = 0
}

// push records the live state after the current position, discarding any
// redo tail and the oldest snapshot once the limit is reached.
func (h *history) push(data *model.ReportData, ai provenance) {
	h.snapshots = append(h.snapshots[:h.index+1], snapshot{data: data, ai: ai}.clone())
	if over := len(h.snapshots) - h.limit; over > 0 {
		h.snapshots = append([]snapshot(nil), h.snapshots[over:]...)
	}
	h.index = len(h.snapshots) - 1
}

// retag replaces the AI flags of the current entry. Flag-only changes are
// not undo steps, but undoing past them and redoing back must restore them.
func (h *history) retag(ai provenance) {
	h.snapshots[h.index].ai = ai.clone()
}

func (h *history) canUndo() bool { return h.index > 0 }

func (h *history) canRedo() bool { return h.index < len(h.snapshots)-1 }

func (h *history) undo() (snapshot, bool) {
	if !h.canUndo() {
		return snapshot{}, false
	}
	h.index--
	return h.snapshots[h.index].clone(), true
}

func (h *history) redo() (snapshot, bool) {
	if !h.canRedo() {
		return snapshot{}, false
	}
	h.index++
	return h.snapshots[h.index].clone(), true
}

func (h *history) at(i int) (*model.ReportData, bool) {
	if i < 0 || i >= len(h.snapshots) {
		return nil, false
	}
	return h.snapshots[i].data, true
}

func (h *history) len() int { return len(h.snapshots) }
