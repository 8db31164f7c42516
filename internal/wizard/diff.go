package wizard

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sells-group/valuation-cli/internal/model"
)

// HistoryDiff renders a line diff of the report sections between two undo
// snapshots (0 is the oldest kept). Removed lines start with "- ", added
// lines with "+ ".
func (s *Store) HistoryDiff(from, to int) (string, error) {
	s.mu.Lock()
	a, okA := s.history.at(from)
	b, okB := s.history.at(to)
	n := s.history.len()
	var before, after string
	var err error
	if okA && okB {
		before, err = snapshotText(a)
		if err == nil {
			after, err = snapshotText(b)
		}
	}
	s.mu.Unlock()

	if !okA || !okB {
		return "", eris.Errorf("wizard: history index out of range (have %d snapshots)", n)
	}
	if err != nil {
		return "", err
	}
	return lineDiff(before, after), nil
}

// snapshotText renders sections only; timestamps change on every edit.
func snapshotText(d *model.ReportData) (string, error) {
	raw, err := json.MarshalIndent(d.Sections, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "wizard: render snapshot")
	}
	return string(raw) + "\n", nil
}

func lineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
		}
	}
	return sb.String()
}
