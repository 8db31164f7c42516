// Package geo provides property location geometry and locality classification.
package geo

import (
	"math"

	"github.com/sells-group/valuation-cli/internal/model"
)

// Locality classification constants.
const (
	ClassUrban     = "urban"
	ClassSuburban  = "suburban"
	ClassSemiRural = "semi_rural"
	ClassRural     = "rural"
)

// Distance thresholds for classification (kilometers to the nearest town centre).
const (
	urbanThreshold     = 2.0
	suburbanThreshold  = 8.0
	semiRuralThreshold = 20.0
)

// Classify returns the locality class for a property given its distance to
// the nearest town centre.
//   - urban: <= 2km
//   - suburban: <= 8km
//   - semi_rural: <= 20km
//   - rural: beyond 20km
func Classify(townKM float64) string {
	switch {
	case townKM <= urbanThreshold:
		return ClassUrban
	case townKM <= suburbanThreshold:
		return ClassSuburban
	case townKM <= semiRuralThreshold:
		return ClassSemiRural
	default:
		return ClassRural
	}
}

// AmenityTown marks the amenity used as the nearest town centre.
const AmenityTown = "town"

// DeriveLocality sets "locality" and "town_distance_km" on a location
// section from its nearest town amenity. It reports whether a town was
// found.
func DeriveLocality(sec model.Section) bool {
	p, ok := PointFromSection(sec)
	if !ok {
		return false
	}
	var towns []Amenity
	for _, a := range AmenitiesFromSection(sec) {
		if a.Type == AmenityTown {
			towns = append(towns, a)
		}
	}
	_, km, ok := NearestAmenity(p, towns)
	if !ok {
		return false
	}
	sec["town_distance_km"] = math.Round(km*100) / 100
	sec["locality"] = Classify(km)
	return true
}
