package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSection_GetSetDelete(t *testing.T) {
	t.Parallel()

	sec := Section{}
	sec.Set("boundaries.north", "Road")
	sec.Set("owner", "K. Perera")

	v, ok := sec.Get("boundaries.north")
	require.True(t, ok)
	assert.Equal(t, "Road", v)
	assert.Equal(t, "K. Perera", sec.String("owner"))

	sec.Delete("boundaries.north")
	_, ok = sec.Get("boundaries.north")
	assert.False(t, ok)

	_, ok = sec.Get("owner.name")
	assert.False(t, ok, "scalar cannot be traversed")
}

func TestReportData_MergeIsShallow(t *testing.T) {
	t.Parallel()

	r := NewReportData("r-1", "c-1")
	r.Merge(SectionLocation, Section{"district": "Colombo", "gps": map[string]any{"lat": 6.9, "lng": 79.8}})
	r.Merge(SectionLocation, Section{"gps": map[string]any{"lat": 7.0}})

	loc := r.Section(SectionLocation)
	assert.Equal(t, "Colombo", loc["district"])
	_, ok := loc.Get("gps.lng")
	assert.False(t, ok, "nested maps are replaced, not merged")
}

func TestReportData_CloneIsDeep(t *testing.T) {
	t.Parallel()

	r := NewReportData("r-1", "c-1")
	r.Merge(SectionComparables, Section{"items": []any{map[string]any{"price": 100.0}}})

	c := r.Clone()
	items := c.Sections[SectionComparables]["items"].([]any)
	items[0].(map[string]any)["price"] = 200.0

	orig := r.Sections[SectionComparables]["items"].([]any)
	assert.Equal(t, 100.0, orig[0].(map[string]any)["price"])
}

func TestIsEmptyValue(t *testing.T) {
	t.Parallel()

	assert.True(t, IsEmptyValue(nil))
	assert.True(t, IsEmptyValue("  "))
	assert.True(t, IsEmptyValue([]any{}))
	assert.True(t, IsEmptyValue(map[string]any{}))
	assert.False(t, IsEmptyValue(0.0))
	assert.False(t, IsEmptyValue(false))
	assert.False(t, IsEmptyValue("x"))
}

func TestDeriveExtent(t *testing.T) {
	t.Parallel()

	sec := Section{"extent_perches": 15.5}
	require.True(t, DeriveExtent(sec))
	assert.InDelta(t, 392.0392, sec["extent_sqm"].(float64), 0.0001)
	assert.InDelta(t, 0.0969, sec["extent_acres"].(float64), 0.0001)

	assert.False(t, DeriveExtent(Section{}))
}

func TestDeriveExtent_ClearsStaleValues(t *testing.T) {
	t.Parallel()

	for name, perches := range map[string]any{"missing": nil, "negative": -3.0, "text": "abc"} {
		sec := Section{"extent_sqm": 392.0392, "extent_acres": 0.0969}
		if perches != nil {
			sec["extent_perches"] = perches
		}
		assert.True(t, DeriveExtent(sec), name)
		assert.NotContains(t, sec, "extent_sqm", name)
		assert.NotContains(t, sec, "extent_acres", name)
	}
}

func TestExtentSqm(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 392.03921592, ExtentSqm(15.5), 1e-8)
	assert.InDelta(t, 25.29285264, ExtentSqm(1), 1e-12)
}

func TestFormatLKR(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Rs. 12,500,000.00", FormatLKR(12500000))
	assert.Equal(t, "Rs. 950.50", FormatLKR(950.5))
}
