package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/valuation-cli/internal/model"
)

func newReportSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the draft to the reports API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				if !env.wiz.SaveProgress(cmd.Context()) {
					return reportErrors(env)
				}
				id := env.wiz.Data().ReportID
				zap.L().Info("report saved", zap.String("report_id", id))
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved report %s\n", id)
				return nil
			})
		},
	}
}

func newReportLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <id>",
		Short: "Replace the local draft with a report from the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(env *wizardEnv) error {
				if !env.wiz.LoadProgress(cmd.Context(), args[0]) {
					return reportErrors(env)
				}
				env.active = true
				printProgress(cmd.OutOrStdout(), env)
				return nil
			})
		},
	}
}

func newReportListCmd() *cobra.Command {
	var clients bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports (or clients) known to the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(env *wizardEnv) error {
				ctx := cmd.Context()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				defer w.Flush() //nolint:errcheck

				if clients {
					list, err := env.client.ListClients(ctx)
					if err != nil {
						return eris.Wrap(err, "list clients")
					}
					_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL")
					for _, c := range list {
						_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, orDash(c.Email))
					}
					return nil
				}

				list, err := env.client.ListReports(ctx)
				if err != nil {
					return eris.Wrap(err, "list reports")
				}
				_, _ = fmt.Fprintln(w, "ID\tCLIENT\tSTATUS\tSTEP\tUPDATED")
				for _, r := range list {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						r.ID, orDash(r.ClientID), statusOrDraft(r.Status), orDash(r.CurrentStep),
						r.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clients, "clients", false, "list clients instead of reports")
	return cmd
}

func statusOrDraft(s model.ReportStatus) model.ReportStatus {
	if s == "" {
		return model.ReportStatusDraft
	}
	return s
}
