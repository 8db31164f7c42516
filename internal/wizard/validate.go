package wizard

import (
	"fmt"
	"time"

	"github.com/sells-group/valuation-cli/internal/geo"
	"github.com/sells-group/valuation-cli/internal/model"
)

// Issue is a single validation finding.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Step    Step   `json:"step"`
}

// StepValidation is the result of validating one step. Errors block
// navigation; warnings do not.
type StepValidation struct {
	IsValid  bool    `json:"isValid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Thresholds used by step rules.
const (
	minComparables    = 3
	narrowRoadFt      = 10.0
	farAmenityKM      = 10.0
	extentMismatchSqm = 1.0
	dateLayout        = "2006-01-02"
)

var (
	floodRiskLevels = map[string]bool{"none": true, "low": true, "medium": true, "high": true}
	ownershipTypes  = map[string]bool{"freehold": true, "leasehold": true, "state_grant": true, "condominium": true}
)

type checker struct {
	step Step
	sec  model.Section
	res  StepValidation
}

func (c *checker) err(field, format string, args ...any) {
	c.res.Errors = append(c.res.Errors, Issue{Field: field, Message: fmt.Sprintf(format, args...), Step: c.step})
}

func (c *checker) warn(field, format string, args ...any) {
	c.res.Warnings = append(c.res.Warnings, Issue{Field: field, Message: fmt.Sprintf(format, args...), Step: c.step})
}

// number returns the numeric value at field, recording an error when present
// but not numeric.
func (c *checker) number(field string) (float64, bool) {
	v, ok := c.sec.Get(field)
	if !ok || model.IsEmptyValue(v) {
		return 0, false
	}
	n, ok := model.ToFloat(v)
	if !ok {
		c.err(field, "%s must be a number", field)
		return 0, false
	}
	return n, true
}

type stepRule func(c *checker, data *model.ReportData)

var stepRules = map[Step]stepRule{
	StepPropertyIdentification: validateIdentification,
	StepLocation:               validateLocation,
	StepTransport:              validateTransport,
	StepEnvironmental:          validateEnvironmental,
	StepPlanning:               validatePlanning,
	StepBuildings:              validateBuildings,
	StepMarketValuation:        validateMarketValuation,
	StepLegal:                  validateLegal,
	StepFinalization:           validateFinalization,
}

// Validate is a pure function of the report data: required fields from the
// catalog, then the step's own rules.
func Validate(cat *Catalog, step Step, data *model.ReportData) StepValidation {
	def, ok := cat.Def(step)
	if !ok {
		return StepValidation{
			Errors:   []Issue{{Field: "", Message: fmt.Sprintf("unknown step %q", step), Step: step}},
			Warnings: []Issue{},
		}
	}

	c := &checker{
		step: step,
		sec:  data.Section(def.Section),
		res:  StepValidation{Errors: []Issue{}, Warnings: []Issue{}},
	}
	if c.sec == nil {
		c.sec = model.Section{}
	}

	for _, rf := range def.Required {
		v, ok := c.sec.Get(rf.Field)
		if !ok || model.IsEmptyValue(v) {
			label := rf.Label
			if label == "" {
				label = rf.Field
			}
			c.err(rf.Field, "%s is required", label)
		}
	}

	if rule, ok := stepRules[step]; ok {
		rule(c, data)
	}

	c.res.IsValid = len(c.res.Errors) == 0
	return c.res
}

func validateIdentification(c *checker, _ *model.ReportData) {
	perches, ok := c.number("extent_perches")
	if !ok {
		return
	}
	if perches <= 0 {
		c.err("extent_perches", "extent must be greater than zero")
		return
	}
	if sqm, ok := c.number("extent_sqm"); ok {
		if diff := sqm - model.ExtentSqm(perches); diff > extentMismatchSqm || diff < -extentMismatchSqm {
			c.warn("extent_sqm", "extent in square metres (%.2f) does not match %.2f perches", sqm, perches)
		}
	}
}

func validateLocation(c *checker, _ *model.ReportData) {
	p, ok := geo.PointFromSection(c.sec)
	if !ok {
		c.warn("latitude", "coordinates not set; map, zoning and amenity lookups are unavailable")
		return
	}
	if !geo.InSriLanka(p.Y(), p.X()) {
		c.err("latitude", "coordinates %.5f, %.5f are outside Sri Lanka", p.Y(), p.X())
		return
	}
	if a, km, ok := geo.NearestAmenity(p, geo.AmenitiesFromSection(c.sec)); ok && km > farAmenityKM {
		c.warn("amenities", "nearest amenity (%s) is %.1f km away", a.Name, km)
	}
}

func validateTransport(c *checker, _ *model.ReportData) {
	width, ok := c.number("road_width_ft")
	if !ok {
		return
	}
	if width < 0 {
		c.err("road_width_ft", "road width cannot be negative")
		return
	}
	if width < narrowRoadFt {
		c.warn("road_width_ft", "access road narrower than %.0f ft may limit lending value", narrowRoadFt)
	}
}

func validateEnvironmental(c *checker, _ *model.ReportData) {
	risk := c.sec.String("flood_risk")
	if risk == "" {
		return
	}
	if !floodRiskLevels[risk] {
		c.err("flood_risk", "flood risk must be one of none, low, medium, high")
		return
	}
	if risk == "high" {
		c.warn("flood_risk", "high flood risk should be reflected in the valuation")
	}
}

func validatePlanning(c *checker, _ *model.ReportData) {
	if v, ok := c.sec.Get("street_line_affected"); ok && v == true {
		c.warn("street_line_affected", "property is affected by a street line; deduct the affected extent")
	}
}

func validateBuildings(c *checker, _ *model.ReportData) {
	raw, _ := c.sec.Get("items")
	items, _ := raw.([]any)
	if len(items) == 0 {
		c.warn("items", "no buildings recorded; report will be a land-only valuation")
		return
	}
	for i, it := range items {
		b, ok := it.(map[string]any)
		if !ok {
			c.err(fmt.Sprintf("items.%d", i), "building %d is malformed", i+1)
			continue
		}
		area, ok := model.ToFloat(b["floor_area_sqft"])
		if !ok || area <= 0 {
			c.err(fmt.Sprintf("items.%d.floor_area_sqft", i), "building %d needs a floor area", i+1)
		}
	}
}

func validateMarketValuation(c *checker, data *model.ReportData) {
	market, ok := c.number("market_value")
	if ok && market <= 0 {
		c.err("market_value", "market value must be greater than zero")
	}
	if forced, fok := c.number("forced_sale_value"); fok && ok && forced > market {
		c.err("forced_sale_value", "forced sale value cannot exceed market value")
	}

	n := 0
	if comps := data.Section(model.SectionComparables); comps != nil {
		if raw, ok := comps.Get("items"); ok {
			if items, ok := raw.([]any); ok {
				n = len(items)
			}
		}
	}
	if n < minComparables {
		c.warn("comparables", "only %d comparable sales; at least %d recommended", n, minComparables)
	}
}

func validateLegal(c *checker, _ *model.ReportData) {
	t := c.sec.String("ownership_type")
	if t != "" && !ownershipTypes[t] {
		c.err("ownership_type", "unknown ownership type %q", t)
	}
}

func validateFinalization(c *checker, _ *model.ReportData) {
	d := c.sec.String("valuation_date")
	if d == "" {
		return
	}
	if _, err := time.Parse(dateLayout, d); err != nil {
		c.err("valuation_date", "valuation date must be YYYY-MM-DD")
	}
}
