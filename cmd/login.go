package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the API bearer token locally",
	RunE: func(cmd *cobra.Command, _ []string) error {
		token := strings.TrimSpace(loginToken)
		if token == "" {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), "API token: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return eris.Wrap(err, "read token")
			}
			token = strings.TrimSpace(line)
		}
		if token == "" {
			return eris.New("token is required")
		}
		return withEnv(cmd, func(env *wizardEnv) error {
			if err := env.local.SetToken(cmd.Context(), token); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "token saved")
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored API token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withEnv(cmd, func(env *wizardEnv) error {
			if err := env.local.ClearToken(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		})
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "bearer token (prompted when omitted)")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
