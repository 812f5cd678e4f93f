package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mcoot/hackstorm/internal/client"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server name, version, player counts and uptime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, func(ctx context.Context, c *client.Client, out *Output) error {
				info, err := c.Info(ctx)
				if err != nil {
					return err
				}
				out.Print(info)
				return nil
			})
		},
	}
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the server is answering",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, func(ctx context.Context, c *client.Client, out *Output) error {
				pong, err := c.Ping(ctx)
				if err != nil {
					return err
				}
				out.Print(pong)
				return nil
			})
		},
	}
}
