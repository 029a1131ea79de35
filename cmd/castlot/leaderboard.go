package main

import (
	"fmt"
	"os"

	"github.com/alejandrodnm/castlot/internal/adapters/notify"
	"github.com/spf13/cobra"
)

// newConsole escribe a stdout salvo que el comando tenga otra salida (tests).
func newConsole(cmd *cobra.Command) *notify.Console {
	if out := cmd.OutOrStdout(); out != os.Stdout {
		return notify.NewConsoleWriter(out, tableOut)
	}
	return notify.NewConsole(tableOut)
}

func leaderboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the calibration leaderboard from the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ex, store, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			board, err := ex.GetLeaderboard(ctx)
			if err != nil {
				return err
			}
			return newConsole(cmd).Notify(ctx, board)
		},
	}
}

func marketsCommand() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "markets",
		Short: "List markets with their current YES probability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ex, store, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			markets, err := ex.ListMarkets(ctx, category)
			if err != nil {
				return err
			}
			newConsole(cmd).PrintMarkets(markets, ex.MarketMaker())
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category (career, relationships, habits, academics, purchases)")
	return cmd
}

func commentsCommand() *cobra.Command {
	var user, text string
	cmd := &cobra.Command{
		Use:   "comments <market-id>",
		Short: "Print a market's comment thread, or post to it with --text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ex, store, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			marketID := args[0]
			if text != "" {
				if user == "" {
					return fmt.Errorf("--user is required with --text")
				}
				if _, err := ex.AddComment(ctx, marketID, user, text); err != nil {
					return err
				}
			}

			m, err := ex.GetMarket(ctx, marketID)
			if err != nil {
				return err
			}
			comments, err := ex.Comments(ctx, marketID)
			if err != nil {
				return err
			}
			newConsole(cmd).PrintComments(m, comments)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "author of the new comment")
	cmd.Flags().StringVar(&text, "text", "", "post this comment before printing the thread")
	return cmd
}
