package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/valuation-cli/internal/apiclient"
	"github.com/sells-group/valuation-cli/internal/comparables"
	"github.com/sells-group/valuation-cli/internal/geo"
	"github.com/sells-group/valuation-cli/internal/model"
	"github.com/sells-group/valuation-cli/internal/wizard"
)

func newReportUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload deeds, plans and photos for the report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]apiclient.File, 0, len(args))
			for _, p := range args {
				data, err := os.ReadFile(p)
				if err != nil {
					return eris.Wrapf(err, "read %s", p)
				}
				files = append(files, apiclient.File{
					Name:        filepath.Base(p),
					ContentType: mime.TypeByExtension(filepath.Ext(p)),
					Data:        data,
				})
			}
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				res := env.wiz.UploadFiles(cmd.Context(), env.client, files)
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "uploaded %d of %d files\n", len(res.Successful), len(files))
				for _, f := range res.Failed {
					_, _ = fmt.Fprintf(out, "  failed %s: %s\n", f.Filename, f.Message)
				}
				if len(res.Failed) > 0 {
					return eris.Errorf("%d uploads failed", len(res.Failed))
				}
				return nil
			})
		},
	}
}

func newReportComparablesCmd() *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "import-comparables <file.xlsx>",
		Short: "Load market comparables from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				comps, err := comparables.Import(env.wiz, args[0], comparables.Options{SheetName: sheet})
				if err != nil {
					return err
				}
				sum := comparables.Summarize(comps)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d comparables, median %s per perch\n",
					sum.Count, model.FormatLKR(sum.MedianPricePerPerch))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet name (default first sheet)")
	return cmd
}

func newReportGeoJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geojson",
		Short: "Print the property location as a GeoJSON feature",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				loc := env.wiz.GetStepData(wizard.StepLocation)
				p, ok := geo.PointFromSection(loc)
				if !ok {
					return eris.New("location has no coordinates")
				}
				props := map[string]any{"report_id": env.wiz.Data().ReportID}
				if addr := loc.String("address"); addr != "" {
					props["address"] = addr
				}
				raw, err := geo.ToGeoJSON(p, props)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			})
		},
	}
}
