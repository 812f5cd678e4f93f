package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/hackstorm/internal/client"
)

func newRegisterCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				user = cfg.User
			}
			if user == "" || pass == "" {
				return fmt.Errorf("--user and --pass are required")
			}

			return oneShot(cmd, func(ctx context.Context, c *client.Client, out *Output) error {
				msg, err := c.Register(ctx, user, pass)
				if err != nil {
					return err
				}
				out.PrintMessage(msg)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (env: HACKSTORM_USER)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")

	return cmd
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile <name>",
		Short: "Show a player's public profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, func(ctx context.Context, c *client.Client, out *Output) error {
				profile, err := c.Profile(ctx, args[0])
				if err != nil {
					return err
				}
				out.Print(profile)
				return nil
			})
		},
	}
}
