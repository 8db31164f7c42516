package model

import (
	"sort"
	"strings"
	"time"
)

// Section keys of a valuation report.
const (
	SectionPropertyInfo    = "property_info"
	SectionIdentification  = "identification"
	SectionLocation        = "location"
	SectionTransport       = "transport"
	SectionEnvironmental   = "environmental"
	SectionPlanning        = "planning"
	SectionBuildings       = "buildings"
	SectionUtilities       = "utilities"
	SectionAIAnalysis      = "ai_analysis"
	SectionFileUploads     = "file_uploads"
	SectionPropertyDetails = "property_details"
	SectionValuation       = "valuation"
	SectionMarketAnalysis  = "market_analysis"
	SectionComparables     = "comparables"
	SectionLegal           = "legal"
	SectionFinalization    = "finalization"
)

// Section is a loosely-typed bag of report fields. Nested maps are addressed
// with dot paths ("boundaries.north").
type Section map[string]any

// ReportData is the in-progress valuation report held by the wizard.
type ReportData struct {
	ReportID  string             `json:"report_id,omitempty"`
	ClientID  string             `json:"client_id,omitempty"`
	Sections  map[string]Section `json:"sections"`
	CreatedAt time.Time          `json:"created_at,omitempty"`
	UpdatedAt time.Time          `json:"updated_at,omitempty"`
}

// NewReportData returns an empty report with an initialized section map.
func NewReportData(reportID, clientID string) *ReportData {
	now := time.Now().UTC()
	return &ReportData{
		ReportID:  reportID,
		ClientID:  clientID,
		Sections:  make(map[string]Section),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Section returns the named section, or nil when it has never been written.
func (r *ReportData) Section(key string) Section {
	if r == nil || r.Sections == nil {
		return nil
	}
	return r.Sections[key]
}

// Merge shallow-merges partial into the named section, creating it if needed.
// Top-level keys in partial replace existing keys; nested maps are replaced,
// not merged.
func (r *ReportData) Merge(key string, partial Section) {
	if r.Sections == nil {
		r.Sections = make(map[string]Section)
	}
	sec, ok := r.Sections[key]
	if !ok || sec == nil {
		sec = make(Section, len(partial))
		r.Sections[key] = sec
	}
	for k, v := range partial {
		sec[k] = CopyValue(v)
	}
}

// Clone returns a deep copy of the report.
func (r *ReportData) Clone() *ReportData {
	if r == nil {
		return nil
	}
	out := &ReportData{
		ReportID:  r.ReportID,
		ClientID:  r.ClientID,
		Sections:  make(map[string]Section, len(r.Sections)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for k, sec := range r.Sections {
		out.Sections[k] = sec.Clone()
	}
	return out
}

// SectionKeys returns the populated section keys in sorted order.
func (r *ReportData) SectionKeys() []string {
	keys := make([]string, 0, len(r.Sections))
	for k := range r.Sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	if s == nil {
		return nil
	}
	out := make(Section, len(s))
	for k, v := range s {
		out[k] = CopyValue(v)
	}
	return out
}

// Get resolves a dot path inside the section.
func (s Section) Get(path string) (any, bool) {
	if s == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var cur any = map[string]any(s)
	for _, p := range parts {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes value at a dot path, creating intermediate maps.
func (s Section) Set(path string, value any) {
	if s == nil || path == "" {
		return
	}
	parts := strings.Split(path, ".")
	m := map[string]any(s)
	for _, p := range parts[:len(parts)-1] {
		next, ok := asMap(m[p])
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = CopyValue(value)
}

// Delete removes the value at a dot path.
func (s Section) Delete(path string) {
	if s == nil || path == "" {
		return
	}
	parts := strings.Split(path, ".")
	m := map[string]any(s)
	for _, p := range parts[:len(parts)-1] {
		next, ok := asMap(m[p])
		if !ok {
			return
		}
		m = next
	}
	delete(m, parts[len(parts)-1])
}

// String returns the value at path as a trimmed string ("" when absent).
func (s Section) String(path string) string {
	v, ok := s.Get(path)
	if !ok || v == nil {
		return ""
	}
	str, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(str)
}

// Float returns the value at path as a float64.
func (s Section) Float(path string) (float64, bool) {
	v, ok := s.Get(path)
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// IsEmptyValue reports whether v counts as "not filled in" for merge and
// validation purposes.
func IsEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case Section:
		return len(t) == 0
	default:
		return false
	}
}

// CopyValue deep-copies JSON-shaped values (maps, slices, scalars).
func CopyValue(v any) any {
	switch t := v.(type) {
	case Section:
		return map[string]any(t.Clone())
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = CopyValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = CopyValue(vv)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []map[string]any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = CopyValue(vv)
		}
		return out
	default:
		return v
	}
}

// ToFloat converts numeric JSON-ish values to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Section:
		return map[string]any(t), true
	default:
		return nil, false
	}
}
