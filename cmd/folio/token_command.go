package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens",
	}
	tokenCmd.AddCommand(newTokenIssueCommand(ctx))
	return tokenCmd
}

func newTokenIssueCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				token, expires, err := a.tokens.Issue(userID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", formatTime(expires))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to embed in the token")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
