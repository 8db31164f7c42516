package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/valuation-cli/internal/model"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type memPersister struct {
	mu    sync.Mutex
	blobs map[string][]byte
	saves int
	err   error
}

func newMemPersister() *memPersister {
	return &memPersister{blobs: make(map[string][]byte)}
}

func (p *memPersister) SaveState(_ context.Context, namespace string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.saves++
	p.blobs[namespace] = append([]byte(nil), data...)
	return nil
}

func (p *memPersister) LoadState(_ context.Context, namespace string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	data, ok := p.blobs[namespace]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

type fakeBackend struct {
	mu      sync.Mutex
	reports map[string]*model.ReportRecord
	saveErr error
	loadErr error
	saved   []*model.ReportRecord
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{reports: make(map[string]*model.ReportRecord)}
}

func (b *fakeBackend) SaveReport(_ context.Context, rec *model.ReportRecord) (*model.ReportRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return nil, b.saveErr
	}
	out := *rec
	if out.ID == "" {
		out.ID = "rpt-generated"
	}
	b.reports[out.ID] = &out
	b.saved = append(b.saved, &out)
	return &out, nil
}

func (b *fakeBackend) LoadReport(_ context.Context, id string) (*model.ReportRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	rec, ok := b.reports[id]
	if !ok {
		return nil, errors.New("report not found")
	}
	return rec, nil
}

func newTestStore(t *testing.T, mutate func(*Options)) (*Store, *memPersister) {
	t.Helper()
	p := newMemPersister()
	opts := Options{
		Persister: p,
		Now:       func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&opts)
	}
	s := New(opts)
	require.NoError(t, s.Init(context.Background(), "rpt-001", "cli-042"))
	return s, p
}

// validSections returns data that passes every step.
func validSections() map[string]model.Section {
	return map[string]model.Section{
		model.SectionIdentification: {
			"lot_number":     "7",
			"plan_number":    "PP 1234",
			"surveyor_name":  "K. Perera",
			"extent_perches": 15.5,
		},
		model.SectionLocation: {
			"district":    "Colombo",
			"gn_division": "Nugegoda West",
			"village":     "Nugegoda",
			"address":     "12 Station Road, Nugegoda",
			"latitude":    6.8649,
			"longitude":   79.8997,
		},
		model.SectionTransport: {
			"access_road_type": "tarred",
			"road_width_ft":    20.0,
		},
		model.SectionEnvironmental: {"flood_risk": "low"},
		model.SectionPlanning:      {"zoning": "residential"},
		model.SectionBuildings: {
			"items": []any{map[string]any{"floor_area_sqft": 1800.0}},
		},
		model.SectionUtilities: {
			"electricity":  "CEB",
			"water_supply": "NWSDB",
		},
		model.SectionValuation: {
			"valuation_basis": "market",
			"market_value":    12500000.0,
		},
		model.SectionLegal: {
			"deed_number":    "1234",
			"notary_name":    "S. Silva",
			"ownership_type": "freehold",
		},
		model.SectionFinalization: {
			"valuer_name":         "A. Fernando",
			"valuer_registration": "IVSL-0456",
			"valuation_date":      "2026-03-14",
		},
	}
}
