// Package comparables imports market comparable sales from spreadsheets into
// the comparables section of a report.
package comparables

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/valuation-cli/internal/model"
)

// Comparable is one recorded land sale used to support a market value.
type Comparable struct {
	Address       string  `json:"address"`
	Date          string  `json:"date,omitempty"`
	ExtentPerches float64 `json:"extent_perches"`
	Price         float64 `json:"price"`
	PricePerPerch float64 `json:"price_per_perch"`
}

// Options selects the worksheet to read.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

const dateLayout = "2006-01-02"

var headerAliases = map[string]string{
	"address":         "address",
	"location":        "address",
	"property":        "address",
	"date":            "date",
	"sale_date":       "date",
	"extent":          "extent_perches",
	"extent_perches":  "extent_perches",
	"perches":         "extent_perches",
	"price":           "price",
	"sale_price":      "price",
	"price_lkr":       "price",
	"price_per_perch": "price_per_perch",
	"rate_per_perch":  "price_per_perch",
}

var requiredColumns = []string{"address", "extent_perches", "price"}

// ReadXLSX reads comparables from an XLSX workbook. The first non-empty row
// is the header; blank rows are skipped. Price per perch is derived when the
// sheet does not carry it.
func ReadXLSX(path string, opts Options) ([]Comparable, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "comparables: open workbook")
	}
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var cols map[string]int
	var out []Comparable
	for i, row := range sheet.Rows {
		cells := rowToStrings(row)
		if blank(cells) {
			continue
		}
		if cols == nil {
			cols, err = mapHeader(cells)
			if err != nil {
				return nil, err
			}
			continue
		}
		c, err := parseRow(cells, cols)
		if err != nil {
			return nil, eris.Wrapf(err, "comparables: row %d", i+1)
		}
		out = append(out, c)
	}
	if cols == nil {
		return nil, eris.New("comparables: sheet is empty")
	}
	return out, nil
}

func getSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("comparables: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("comparables: sheet index %d out of range (workbook has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer("(", "", ")", "", ".", "", "/", " ", "-", " ").Replace(h)
	return strings.Join(strings.Fields(h), "_")
}

func mapHeader(cells []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, h := range cells {
		key, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	var missing []string
	for _, req := range requiredColumns {
		if _, ok := cols[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("comparables: missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func cell(cells []string, cols map[string]int, key string) string {
	i, ok := cols[key]
	if !ok || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func parseRow(cells []string, cols map[string]int) (Comparable, error) {
	c := Comparable{Address: cell(cells, cols, "address")}
	if c.Address == "" {
		return c, eris.New("address is empty")
	}

	var err error
	if c.ExtentPerches, err = parseAmount(cell(cells, cols, "extent_perches")); err != nil {
		return c, eris.Wrap(err, "extent")
	}
	if c.ExtentPerches <= 0 {
		return c, eris.New("extent must be greater than zero")
	}
	if c.Price, err = parseAmount(cell(cells, cols, "price")); err != nil {
		return c, eris.Wrap(err, "price")
	}
	if c.Price <= 0 {
		return c, eris.New("price must be greater than zero")
	}

	if raw := cell(cells, cols, "price_per_perch"); raw != "" {
		if c.PricePerPerch, err = parseAmount(raw); err != nil {
			return c, eris.Wrap(err, "price per perch")
		}
	} else {
		c.PricePerPerch = roundTo(c.Price/c.ExtentPerches, 2)
	}

	if raw := cell(cells, cols, "date"); raw != "" {
		if c.Date, err = parseDate(raw); err != nil {
			return c, err
		}
	}
	return c, nil
}

// parseAmount accepts plain numbers and rupee amounts such as
// "Rs. 1,250,000" or "LKR 1,250,000.00".
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"LKR", "Rs.", "Rs"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, eris.New("value is empty")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Errorf("invalid number %q", s)
	}
	return v, nil
}

var dateLayouts = []string{dateLayout, "02/01/2006", "2/1/2006", "01-02-06", "2006/01/02", "02-Jan-2006", "Jan 2, 2006"}

// parseDate normalizes a sale date to YYYY-MM-DD. Bare numbers are Excel
// serial dates.
func parseDate(s string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return xlsx.TimeFromExcelTime(serial, false).Format(dateLayout), nil
	}
	return "", eris.Errorf("invalid date %q", s)
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

// Summary aggregates price per perch across comparables.
type Summary struct {
	Count               int     `json:"count"`
	MinPricePerPerch    float64 `json:"min_price_per_perch"`
	MaxPricePerPerch    float64 `json:"max_price_per_perch"`
	MedianPricePerPerch float64 `json:"median_price_per_perch"`
}

// Summarize returns the spread of price per perch. The zero Summary is
// returned for no comparables.
func Summarize(comps []Comparable) Summary {
	if len(comps) == 0 {
		return Summary{}
	}
	rates := make([]float64, len(comps))
	for i, c := range comps {
		rates[i] = c.PricePerPerch
	}
	sort.Float64s(rates)

	mid := len(rates) / 2
	median := rates[mid]
	if len(rates)%2 == 0 {
		median = (rates[mid-1] + rates[mid]) / 2
	}
	return Summary{
		Count:               len(rates),
		MinPricePerPerch:    rates[0],
		MaxPricePerPerch:    rates[len(rates)-1],
		MedianPricePerPerch: roundTo(median, 2),
	}
}

// ToSection renders comparables as the comparables report section. Items
// are plain maps so the section survives JSON snapshots unchanged.
func ToSection(comps []Comparable) model.Section {
	items := make([]any, len(comps))
	for i, c := range comps {
		item := map[string]any{
			"address":         c.Address,
			"extent_perches":  c.ExtentPerches,
			"price":           c.Price,
			"price_per_perch": c.PricePerPerch,
		}
		if c.Date != "" {
			item["date"] = c.Date
		}
		items[i] = item
	}
	sum := Summarize(comps)
	return model.Section{
		"items":                  items,
		"median_price_per_perch": sum.MedianPricePerPerch,
		"summary": fmt.Sprintf("%d comparables, %s to %s per perch",
			sum.Count, model.FormatLKR(sum.MinPricePerPerch), model.FormatLKR(sum.MaxPricePerPerch)),
	}
}
