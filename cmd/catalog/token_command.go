package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/movie-catalog/internal/auth"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var user string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed user token for rating submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(user) == "" {
				return errors.New("--user is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.TokenTTLSecs) * time.Second
			}
			tokens, err := auth.NewTokens(cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Subject (rating owner id) the token identifies")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to AUTH_TOKEN_TTL_SECS)")
	return cmd
}
