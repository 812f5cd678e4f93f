package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/hackstorm/internal/client"
)

// connect dials the configured server
func connect(ctx context.Context) (*client.Client, error) {
	opts := client.DefaultOptions()
	opts.Timeout = cfg.Timeout
	if cfg.Verbose {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return client.Dial(ctx, cfg.Server, opts)
}

// oneShot runs fn on a fresh connection and closes it afterwards
func oneShot(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client, out *Output) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(ctx, c, NewOutput(cfg.Output, cmd.OutOrStdout()))
}
