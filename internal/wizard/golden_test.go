package wizard

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/valuation-cli/internal/model"
)

func TestPersistedStateGolden(t *testing.T) {
	s, p := newTestStore(t, nil)
	s.UpdateReportData(model.SectionIdentification, model.Section{
		"lot_number":     "7",
		"plan_number":    "PP 1234",
		"surveyor_name":  "K. Perera",
		"extent_perches": 15.5,
	})
	s.MarkFieldsAsAIPopulated(StepPropertyIdentification, "surveyor_name", "lot_number")
	require.True(t, s.NextStep())

	raw, err := p.LoadState(t.Context(), StateNamespace)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, json.Indent(&buf, raw, "", "  "))
	buf.WriteByte('\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "persisted_state", buf.Bytes())
}
