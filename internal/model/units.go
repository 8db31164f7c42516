package model

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PerchToSqm is the number of square metres in one perch.
const PerchToSqm = 25.29285264

// PerchesPerAcre is the number of perches in one acre.
const PerchesPerAcre = 160.0

// ExtentSqm converts an extent in perches to square metres.
func ExtentSqm(perches float64) float64 {
	return perches * PerchToSqm
}

// ExtentAcres converts an extent in perches to acres.
func ExtentAcres(perches float64) float64 {
	return perches / PerchesPerAcre
}

// DeriveExtent fills extent_sqm (and extent_acres) from extent_perches.
// Without a usable perch count both derived values are removed. It reports
// whether the section changed.
func DeriveExtent(sec Section) bool {
	perches, ok := sec.Float("extent_perches")
	if !ok || perches < 0 {
		_, hadSqm := sec["extent_sqm"]
		_, hadAcres := sec["extent_acres"]
		delete(sec, "extent_sqm")
		delete(sec, "extent_acres")
		return hadSqm || hadAcres
	}
	sec["extent_sqm"] = round(ExtentSqm(perches), 4)
	sec["extent_acres"] = round(ExtentAcres(perches), 4)
	return true
}

// FormatLKR renders a rupee amount with thousands separators, e.g.
// "Rs. 12,500,000.00".
func FormatLKR(amount float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("Rs. %.2f", amount)
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
