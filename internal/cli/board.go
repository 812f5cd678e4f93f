package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mcoot/hackstorm/internal/client"
)

func newLeaderboardCmd() *cobra.Command {
	var sortBy string
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top players",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, func(ctx context.Context, c *client.Client, out *Output) error {
				board, err := c.Leaderboard(ctx, sortBy, limit)
				if err != nil {
					return err
				}
				out.Print(board)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort-by", "reputation", "Sort field: reputation, level, money, missions")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of rows")

	return cmd
}

func newOnlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "online",
		Short: "List players currently online",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, func(ctx context.Context, c *client.Client, out *Output) error {
				online, err := c.Online(ctx)
				if err != nil {
					return err
				}
				out.Print(online)
				return nil
			})
		},
	}
}

func newChatlogCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "chatlog",
		Short: "Show recent chat messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, func(ctx context.Context, c *client.Client, out *Output) error {
				msgs, err := c.ChatHistory(ctx, count)
				if err != nil {
					return err
				}
				out.Print(msgs)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&count, "count", 20, "Number of messages")

	return cmd
}
