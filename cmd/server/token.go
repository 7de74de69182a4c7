package main

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-gstbooks/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(g *globals) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !g.cfg.AuthEnabled() {
				return errors.New("auth.secret is not configured")
			}
			tok, err := auth.NewTokens(g.cfg.Auth.Secret, g.cfg.Auth.TokenTTL).Issue(subject)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "caller id stored in the token")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
