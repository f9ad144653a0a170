package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voxdrill/internal/api"
)

func newTokenCmd(c *cli) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <learnerId>",
		Short: "Issue a bearer token for a learner",
		Long: `Sign a token with server.jwt_secret. Clients send it as
"Authorization: Bearer <token>", or as ?token= on the live websocket.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := c.cfg.Server.JWTSecret
			if secret == "" {
				return errors.New("server.jwt_secret is not configured")
			}
			token, err := api.IssueToken(secret, args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (0 for no expiry)")
	return cmd
}
