package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/valuation-cli/internal/model"
	"github.com/sells-group/valuation-cli/internal/wizard"
)

func init() {
	rootCmd.AddCommand(newReportCmd())
}

// newReportCmd builds the report command tree. The shell builds a fresh
// tree per line so flag values never leak between commands.
func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Work on the valuation report in progress",
	}
	cmd.AddCommand(
		newReportNewCmd(),
		newReportShowCmd(),
		newReportSetCmd(),
		newReportValidateCmd(),
		newReportNextCmd(),
		newReportPrevCmd(),
		newReportJumpCmd(),
		newReportResetCmd(),
		newReportUndoCmd(),
		newReportRedoCmd(),
		newReportHistoryCmd(),
		newReportAICmd(),
		newReportSaveCmd(),
		newReportLoadCmd(),
		newReportListCmd(),
		newReportUploadCmd(),
		newReportComparablesCmd(),
		newReportGeoJSONCmd(),
		newReportShellCmd(),
	)
	return cmd
}

func parseStep(env *wizardEnv, raw string) (wizard.Step, error) {
	step := wizard.Step(raw)
	if env.wiz.Catalog().Index(step) < 0 {
		return "", eris.Errorf("unknown step %q (steps: %s)", raw, stepList(env.wiz.Catalog()))
	}
	return step, nil
}

func stepList(cat *wizard.Catalog) string {
	steps := cat.Steps()
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// parseValue reads a command-line value as JSON when it parses, otherwise
// as a plain string.
func parseValue(raw string, asString bool) any {
	if asString {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printProgress(out io.Writer, env *wizardEnv) {
	p := env.wiz.Progress()
	data := env.wiz.Data()
	cat := env.wiz.Catalog()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Report:\t%s\n", orDash(data.ReportID))
	_, _ = fmt.Fprintf(w, "Client:\t%s\n", orDash(data.ClientID))
	_, _ = fmt.Fprintf(w, "Step:\t%d/%d %s\n", p.CurrentStepIndex+1, p.TotalSteps, p.CurrentStep)
	_, _ = fmt.Fprintf(w, "Complete:\t%d%%\n", p.Percentage)
	if t, ok := env.wiz.LastSaved(); ok {
		_, _ = fmt.Fprintf(w, "Last saved:\t%s\n", t.Format("2006-01-02 15:04:05"))
	}
	if env.wiz.Dirty() {
		_, _ = fmt.Fprintln(w, "Unsaved changes:\tyes")
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tSTEP\tSTATUS\tAI FIELDS")
	for i, step := range cat.Steps() {
		status := "-"
		switch {
		case env.wiz.IsStepComplete(step):
			status = "complete"
		case step == p.CurrentStep:
			status = "current"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", i+1, step, status, len(env.wiz.GetAIPopulatedFields(step)))
	}
	_ = w.Flush()
}

func printValidation(out io.Writer, step wizard.Step, v wizard.StepValidation) {
	state := "valid"
	if !v.IsValid {
		state = "invalid"
	}
	_, _ = fmt.Fprintf(out, "%s: %s\n", step, state)
	for _, e := range v.Errors {
		_, _ = fmt.Fprintf(out, "  error   %s: %s\n", e.Field, e.Message)
	}
	for _, w := range v.Warnings {
		_, _ = fmt.Fprintf(out, "  warning %s: %s\n", w.Field, w.Message)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newReportNewCmd() *cobra.Command {
	var reportID, clientID string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new report, discarding the local draft",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(env *wizardEnv) error {
				if err := env.wiz.Init(cmd.Context(), reportID, clientID); err != nil {
					return eris.Wrap(err, "start report")
				}
				env.active = true
				printProgress(cmd.OutOrStdout(), env)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reportID, "id", "", "existing backend report id")
	cmd.Flags().StringVar(&clientID, "client", "", "client id the report is for")
	return cmd
}

func newReportShowCmd() *cobra.Command {
	var stepFlag string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show progress, or the data of one step",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				out := cmd.OutOrStdout()
				if asJSON && stepFlag == "" {
					return printJSON(out, env.wiz.State())
				}
				if stepFlag == "" {
					printProgress(out, env)
					return nil
				}
				step, err := parseStep(env, stepFlag)
				if err != nil {
					return err
				}
				data := env.wiz.GetStepData(step)
				if asJSON {
					return printJSON(out, data)
				}
				printSection(out, env, step, data)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stepFlag, "step", "", "step to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printSection(out io.Writer, env *wizardEnv, step wizard.Step, sec model.Section) {
	keys := make([]string, 0, len(sec))
	for k := range sec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tVALUE\tSOURCE")
	for _, k := range keys {
		src := "manual"
		if env.wiz.IsFieldAIPopulated(step, k) {
			src = "ai"
		}
		raw, _ := json.Marshal(sec[k])
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", k, raw, src)
	}
	_ = w.Flush()
}

func newReportSetCmd() *cobra.Command {
	var asString bool
	cmd := &cobra.Command{
		Use:   "set <step> <field> <value> [<field> <value>...]",
		Short: "Set fields of a step (values are JSON when they parse)",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args)%2 != 1 {
				return eris.New("expected <step> followed by field/value pairs")
			}
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				step, err := parseStep(env, args[0])
				if err != nil {
					return err
				}
				for i := 1; i < len(args); i += 2 {
					if err := env.wiz.UpdateField(step, args[i], parseValue(args[i+1], asString)); err != nil {
						return err
					}
				}
				if err := reportErrors(env); err != nil {
					return err
				}
				printSection(cmd.OutOrStdout(), env, step, env.wiz.GetStepData(step))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asString, "string", false, "store values as strings without JSON parsing")
	return cmd
}

func newReportValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [step]",
		Short: "Validate one step, or every step",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					step, err := parseStep(env, args[0])
					if err != nil {
						return err
					}
					printValidation(out, step, env.wiz.ValidateStep(step))
					return nil
				}
				all := env.wiz.ValidateAll()
				for _, step := range env.wiz.Catalog().Steps() {
					printValidation(out, step, all[step])
				}
				return nil
			})
		},
	}
}

func newReportNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Validate the current step and advance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				out := cmd.OutOrStdout()
				step := env.wiz.CurrentStep()
				if env.wiz.NextStep() {
					_, _ = fmt.Fprintf(out, "%s complete, now on %s\n", step, env.wiz.CurrentStep())
					return nil
				}
				v, _ := env.wiz.Validation(step)
				if v.IsValid {
					_, _ = fmt.Fprintf(out, "%s complete; this is the last step\n", step)
					return nil
				}
				printValidation(out, step, v)
				return eris.Errorf("%s has %d validation errors", step, len(v.Errors))
			})
		},
	}
}

func newReportPrevCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prev",
		Short: "Go back one step",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				if !env.wiz.PreviousStep() {
					return eris.New("already on the first step")
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "now on %s\n", env.wiz.CurrentStep())
				return nil
			})
		},
	}
}

func newReportJumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jump <step>",
		Short: "Jump to a step whose earlier steps are all complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				step, err := parseStep(env, args[0])
				if err != nil {
					return err
				}
				if !env.wiz.JumpToStep(step) {
					return eris.Errorf("cannot jump to %s: complete the earlier steps first", step)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "now on %s\n", step)
				return nil
			})
		},
	}
}

func newReportResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <step>",
		Short: "Clear all data of a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				step, err := parseStep(env, args[0])
				if err != nil {
					return err
				}
				env.wiz.ResetStep(step)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s cleared\n", step)
				return nil
			})
		},
	}
}

func newReportUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Undo the last data change (within a shell session)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				if !env.wiz.Undo() {
					return eris.New("nothing to undo")
				}
				printHistoryPosition(cmd.OutOrStdout(), env)
				return nil
			})
		},
	}
}

func newReportRedoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Redo the last undone change (within a shell session)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				if !env.wiz.Redo() {
					return eris.New("nothing to redo")
				}
				printHistoryPosition(cmd.OutOrStdout(), env)
				return nil
			})
		},
	}
}

func printHistoryPosition(out io.Writer, env *wizardEnv) {
	i, n := env.wiz.HistoryPosition()
	_, _ = fmt.Fprintf(out, "history entry %d of %d (0-based; undo %t, redo %t)\n", i, n, env.wiz.CanUndo(), env.wiz.CanRedo())
}

func newReportHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect undo history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				printHistoryPosition(cmd.OutOrStdout(), env)
				return nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "diff <from> <to>",
		Short: "Show the data difference between two history entries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return eris.Wrap(err, "parse from index")
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return eris.Wrap(err, "parse to index")
			}
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				d, err := env.wiz.HistoryDiff(from, to)
				if err != nil {
					return err
				}
				_, _ = io.WriteString(cmd.OutOrStdout(), d)
				return nil
			})
		},
	})
	return cmd
}
