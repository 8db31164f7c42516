package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/valuation-cli/internal/model"
)

func TestInSriLanka(t *testing.T) {
	assert.True(t, InSriLanka(6.9271, 79.8612)) // Colombo
	assert.True(t, InSriLanka(9.6615, 80.0255)) // Jaffna
	assert.False(t, InSriLanka(13.0827, 80.2707), "Chennai")
	assert.False(t, InSriLanka(0, 0))
}

func TestDistanceKM(t *testing.T) {
	colombo := NewPoint(6.9271, 79.8612)
	kandy := NewPoint(7.2906, 80.6337)
	assert.InDelta(t, 94.0, DistanceKM(colombo, kandy), 2.0)
	assert.InDelta(t, 0.0, DistanceKM(colombo, colombo), 1e-9)
}

func TestPointFromSection(t *testing.T) {
	p, ok := PointFromSection(model.Section{"latitude": 6.9, "longitude": 79.86})
	require.True(t, ok)
	assert.InDelta(t, 6.9, p.Y(), 1e-9)
	assert.InDelta(t, 79.86, p.X(), 1e-9)

	_, ok = PointFromSection(model.Section{"latitude": 6.9})
	assert.False(t, ok)
}

func TestToGeoJSON(t *testing.T) {
	data, err := ToGeoJSON(NewPoint(6.9, 79.86), map[string]any{"report_id": "r-1"})
	require.NoError(t, err)

	var f struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, []float64{79.86, 6.9}, f.Geometry.Coordinates)
	assert.Equal(t, "r-1", f.Properties["report_id"])
}

func TestNearestAmenity(t *testing.T) {
	sec := model.Section{"amenities": []any{
		map[string]any{"name": "Kandy Hospital", "type": "hospital", "latitude": 7.2906, "longitude": 80.6337},
		map[string]any{"name": "Fort Station", "type": "rail", "latitude": 6.9344, "longitude": 79.8500},
		map[string]any{"name": "broken"},
	}}
	amenities := AmenitiesFromSection(sec)
	require.Len(t, amenities, 2)

	a, km, ok := NearestAmenity(NewPoint(6.9271, 79.8612), amenities)
	require.True(t, ok)
	assert.Equal(t, "Fort Station", a.Name)
	assert.Less(t, km, 2.0)

	_, _, ok = NearestAmenity(NewPoint(6.9, 79.8), nil)
	assert.False(t, ok)
}
