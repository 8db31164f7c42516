package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/google/shlex"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

func newReportShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run report commands in one session, keeping undo history",
		Long: "Reads report subcommands line by line (for example `set location district Colombo`). " +
			"The wizard stays in memory between lines, so undo, redo and history diff span the session.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if _, nested := ctx.Value(envKey{}).(*wizardEnv); nested {
				return eris.New("already in a shell")
			}
			return withEnv(cmd, func(env *wizardEnv) error {
				return runShell(context.WithValue(ctx, envKey{}, env), cmd)
			})
		},
	}
}

func runShell(ctx context.Context, cmd *cobra.Command) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		_, _ = fmt.Fprint(out, "report> ")
		if !sc.Scan() {
			_, _ = fmt.Fprintln(out)
			return sc.Err()
		}
		args, err := splitArgs(sc.Text())
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}

		sub := newReportCmd()
		sub.SetArgs(args)
		sub.SetIn(cmd.InOrStdin())
		sub.SetOut(out)
		sub.SetErr(errOut)
		sub.SilenceUsage = true
		sub.SilenceErrors = true
		if err := sub.ExecuteContext(ctx); err != nil {
			_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		}
	}
}

// splitArgs splits a shell line with POSIX-style quoting: single or double
// quotes group words, a backslash escapes the next character and an
// unquoted # starts a comment.
func splitArgs(line string) ([]string, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return nil, eris.Wrap(err, "parse command line")
	}
	if len(args) == 0 {
		return nil, nil
	}
	return args, nil
}
