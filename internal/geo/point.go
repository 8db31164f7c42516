package geo

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/valuation-cli/internal/model"
)

const earthRadiusKM = 6371.0

// Sri Lanka bounding box (WGS84).
const (
	minLat = 5.85
	maxLat = 9.9
	minLng = 79.5
	maxLng = 81.95
)

// InSriLanka reports whether the coordinate falls inside the island's bounding box.
func InSriLanka(lat, lng float64) bool {
	return lat >= minLat && lat <= maxLat && lng >= minLng && lng <= maxLng
}

// PointFromSection reads latitude/longitude from a location section and
// returns a WGS84 point.
func PointFromSection(sec model.Section) (*geom.Point, bool) {
	lat, ok := sec.Float("latitude")
	if !ok {
		return nil, false
	}
	lng, ok := sec.Float("longitude")
	if !ok {
		return nil, false
	}
	return NewPoint(lat, lng), true
}

// NewPoint builds a WGS84 point. go-geom stores coordinates as X=lng, Y=lat.
func NewPoint(lat, lng float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(4326)
}

// ToGeoJSON renders a point as a GeoJSON Feature with the given properties.
func ToGeoJSON(p *geom.Point, props map[string]any) ([]byte, error) {
	f := &geojson.Feature{
		Geometry:   p,
		Properties: props,
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, eris.Wrap(err, "geo: marshal geojson")
	}
	return data, nil
}

// DistanceKM returns the great-circle distance between two points.
func DistanceKM(a, b *geom.Point) float64 {
	lat1, lng1 := a.Y()*math.Pi/180, a.X()*math.Pi/180
	lat2, lng2 := b.Y()*math.Pi/180, b.X()*math.Pi/180
	dLat := lat2 - lat1
	dLng := lng2 - lng1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Amenity is a named point of interest near a property.
type Amenity struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NearestAmenity returns the closest amenity to p and its distance.
func NearestAmenity(p *geom.Point, amenities []Amenity) (Amenity, float64, bool) {
	best := -1
	bestKM := math.MaxFloat64
	for i, a := range amenities {
		d := DistanceKM(p, NewPoint(a.Latitude, a.Longitude))
		if d < bestKM {
			best, bestKM = i, d
		}
	}
	if best < 0 {
		return Amenity{}, 0, false
	}
	return amenities[best], bestKM, true
}

// AmenitiesFromSection decodes the "amenities" list of a location section.
func AmenitiesFromSection(sec model.Section) []Amenity {
	raw, ok := sec.Get("amenities")
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]Amenity, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		lat, okLat := model.ToFloat(m["latitude"])
		lng, okLng := model.ToFloat(m["longitude"])
		if !okLat || !okLng {
			continue
		}
		name, _ := m["name"].(string)
		typ, _ := m["type"].(string)
		out = append(out, Amenity{Name: name, Type: typ, Latitude: lat, Longitude: lng})
	}
	return out
}
