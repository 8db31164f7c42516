package comparables

import (
	"go.uber.org/zap"

	"github.com/sells-group/valuation-cli/internal/model"
)

// Updater receives imported sections. *wizard.Store satisfies it.
type Updater interface {
	UpdateReportData(section string, partial model.Section)
}

// Import reads a workbook and replaces the comparables section of dst with
// its rows.
func Import(dst Updater, path string, opts Options) ([]Comparable, error) {
	comps, err := ReadXLSX(path, opts)
	if err != nil {
		return nil, err
	}
	dst.UpdateReportData(model.SectionComparables, ToSection(comps))
	zap.L().Info("imported comparables",
		zap.String("path", path),
		zap.Int("count", len(comps)),
	)
	return comps, nil
}
