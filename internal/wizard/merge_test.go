package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/valuation-cli/internal/model"
)

func TestApplyAISuggestions_OverwriteIfEmpty(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.UpdateReportData(model.SectionLegal, model.Section{
		"deed_number": "4471",
		"notary_name": "  ",
	})

	applied, err := s.ApplyAISuggestions(StepLegal, map[string]any{
		"deed_number":    "9999",
		"notary_name":    "S. Silva",
		"ownership_type": "freehold",
		"attested_on":    "",
	}, OverwriteIfEmpty)
	require.NoError(t, err)

	assert.Equal(t, []string{"notary_name", "ownership_type"}, applied)
	data := s.GetStepData(StepLegal)
	assert.Equal(t, "4471", data.String("deed_number"))
	assert.Equal(t, "S. Silva", data.String("notary_name"))
	assert.Equal(t, []string{"notary_name", "ownership_type"}, s.GetAIPopulatedFields(StepLegal))
	assert.False(t, s.IsFieldAIPopulated(StepLegal, "deed_number"))
}

func TestApplyAISuggestions_OverwriteAll(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.UpdateReportData(model.SectionLegal, model.Section{"deed_number": "4471", "notary_name": "S. Silva"})

	applied, err := s.ApplyAISuggestions(StepLegal, map[string]any{
		"deed_number": "9999",
		"notary_name": "S. Silva",
	}, OverwriteAll)
	require.NoError(t, err)

	// Unchanged values are not flagged.
	assert.Equal(t, []string{"deed_number"}, applied)
	assert.Equal(t, "9999", s.GetStepData(StepLegal).String("deed_number"))
}

func TestApplyAISuggestions_NestedPathsAndDerivedExtent(t *testing.T) {
	s, _ := newTestStore(t, nil)

	applied, err := s.ApplyAISuggestions(StepPropertyIdentification, map[string]any{
		"extent_perches":   15.5,
		"boundaries.north": "Lot 6",
	}, OverwriteIfEmpty)
	require.NoError(t, err)

	assert.Equal(t, []string{"boundaries.north", "extent_perches"}, applied)
	data := s.GetStepData(StepPropertyIdentification)
	v, ok := data.Get("boundaries.north")
	require.True(t, ok)
	assert.Equal(t, "Lot 6", v)
	sqm, _ := data.Float("extent_sqm")
	assert.InDelta(t, 392.0392, sqm, 1e-4)
}

func TestApplyAISuggestions_NothingAppliedLeavesHistory(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.UpdateReportData(model.SectionPlanning, model.Section{"zoning": "residential"})
	idx, _ := s.HistoryPosition()

	applied, err := s.ApplyAISuggestions(StepPlanning, map[string]any{"zoning": "commercial"}, OverwriteIfEmpty)
	require.NoError(t, err)

	assert.Empty(t, applied)
	after, _ := s.HistoryPosition()
	assert.Equal(t, idx, after)
}

func TestApplyAISuggestions_UnknownStep(t *testing.T) {
	s, _ := newTestStore(t, nil)
	_, err := s.ApplyAISuggestions("zoning_lookup", map[string]any{"a": 1}, OverwriteAll)
	assert.Error(t, err)
}

func TestDeclineAISuggestions(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.UpdateReportData(model.SectionLegal, model.Section{"deed_number": "4471"})
	_, err := s.ApplyAISuggestions(StepLegal, map[string]any{
		"notary_name":    "S. Silva",
		"ownership_type": "freehold",
	}, OverwriteIfEmpty)
	require.NoError(t, err)

	removed := s.DeclineAISuggestions(StepLegal)

	assert.Equal(t, []string{"notary_name", "ownership_type"}, removed)
	assert.Empty(t, s.GetAIPopulatedFields(StepLegal))
	data := s.GetStepData(StepLegal)
	assert.Equal(t, model.Section{"deed_number": "4471"}, data)

	require.True(t, s.Undo())
	assert.Equal(t, "S. Silva", s.GetStepData(StepLegal).String("notary_name"))
	assert.Equal(t, []string{"notary_name", "ownership_type"}, s.GetAIPopulatedFields(StepLegal))
	assert.Empty(t, s.DeclineAISuggestions(StepPlanning))
}

func TestDeclineAISuggestions_DropsDerivedExtent(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.UpdateReportData(model.SectionIdentification, model.Section{"lot_number": "7"})
	_, err := s.ApplyAISuggestions(StepPropertyIdentification, map[string]any{"extent_perches": 15.5}, OverwriteIfEmpty)
	require.NoError(t, err)
	require.Contains(t, s.GetStepData(StepPropertyIdentification), "extent_sqm")

	assert.Equal(t, []string{"extent_perches"}, s.DeclineAISuggestions(StepPropertyIdentification))
	assert.Equal(t, model.Section{"lot_number": "7"}, s.GetStepData(StepPropertyIdentification))
}
