package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/valuation-cli/internal/wizard"
)

func newReportAICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Review AI suggested field values",
	}
	cmd.AddCommand(newAIAcceptCmd(), newAIDeclineCmd(), newAIListCmd())
	return cmd
}

// readSuggestions merges a JSON object from file ("-" for stdin) with
// field=value arguments; arguments win.
func readSuggestions(in io.Reader, file string, pairs []string) (map[string]any, error) {
	out := make(map[string]any)
	if file != "" {
		var raw []byte
		var err error
		if file == "-" {
			raw, err = io.ReadAll(in)
		} else {
			raw, err = os.ReadFile(file)
		}
		if err != nil {
			return nil, eris.Wrap(err, "read suggestions")
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, eris.Wrap(err, "parse suggestions")
		}
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, eris.Errorf("suggestion %q must be field=value", p)
		}
		out[k] = parseValue(v, false)
	}
	if len(out) == 0 {
		return nil, eris.New("no suggestions given")
	}
	return out, nil
}

func newAIAcceptCmd() *cobra.Command {
	var file string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "accept <step> [field=value...]",
		Short: "Merge AI suggestions into a step, filling empty fields only unless --overwrite",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suggestions, err := readSuggestions(cmd.InOrStdin(), file, args[1:])
			if err != nil {
				return err
			}
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				step, err := parseStep(env, args[0])
				if err != nil {
					return err
				}
				policy := wizard.OverwriteIfEmpty
				if overwrite {
					policy = wizard.OverwriteAll
				}
				applied, err := env.wiz.ApplyAISuggestions(step, suggestions, policy)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(applied) == 0 {
					_, _ = fmt.Fprintln(out, "no fields changed")
					return nil
				}
				_, _ = fmt.Fprintf(out, "applied %d suggestions to %s: %s\n", len(applied), step, strings.Join(applied, ", "))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON object of suggestions (- for stdin)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace fields that already have values")
	return cmd
}

func newAIDeclineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decline <step>",
		Short: "Remove every AI populated value from a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				step, err := parseStep(env, args[0])
				if err != nil {
					return err
				}
				removed := env.wiz.DeclineAISuggestions(step)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "declined %d suggestions in %s\n", len(removed), step)
				return nil
			})
		},
	}
}

func newAIListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <step>",
		Short: "List AI populated fields of a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActiveEnv(cmd, func(env *wizardEnv) error {
				step, err := parseStep(env, args[0])
				if err != nil {
					return err
				}
				for _, f := range env.wiz.GetAIPopulatedFields(step) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			})
		},
	}
}
