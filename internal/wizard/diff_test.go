package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/valuation-cli/internal/model"
)

func TestHistoryDiff(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.UpdateReportData(model.SectionPlanning, model.Section{"zoning": "residential"})
	s.UpdateReportData(model.SectionPlanning, model.Section{"zoning": "commercial"})

	out, err := s.HistoryDiff(1, 2)
	require.NoError(t, err)

	assert.Contains(t, out, `-     "zoning": "residential"`)
	assert.Contains(t, out, `+     "zoning": "commercial"`)
	assert.Contains(t, out, `    "planning": {`)
}

func TestHistoryDiff_Identical(t *testing.T) {
	s, _ := newTestStore(t, nil)
	out, err := s.HistoryDiff(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "  {}\n", out)
}

func TestHistoryDiff_OutOfRange(t *testing.T) {
	s, _ := newTestStore(t, nil)
	_, err := s.HistoryDiff(0, 3)
	assert.Error(t, err)
}
