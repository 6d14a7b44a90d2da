package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MarkoPoloResearchLab/reflections/internal/app"
	"github.com/MarkoPoloResearchLab/reflections/internal/httpapi"
	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(env *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			return env.withRuntime(cmd, logger, func(ctx context.Context, runtime *app.Runtime) error {
				return httpapi.Run(ctx, env.cfg.HTTPConfig(), runtime.HTTPDependencies())
			})
		},
	}
}

func newSubmitCommand(env *commandEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <text>",
		Short: "Record a reflection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, _ := cmd.Flags().GetString(flagPrompt)
			return env.withRuntime(cmd, nil, func(ctx context.Context, runtime *app.Runtime) error {
				result, err := runtime.Service.Submit(ctx, journal.SubmitRequest{
					Text:   strings.Join(args, " "),
					Prompt: prompt,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "recorded %s (%s) on %s\n", result.Entry.ID(), result.Entry.RewardTier(), result.Entry.DisplayDate())
				if result.Transition.IsFirstToday {
					fmt.Fprintf(out, "earned %d gold (bonus %d)\n", result.Reward.Earned, result.Reward.Bonus)
				}
				printDisplay(out, result.Snapshot.Display)
				return nil
			})
		},
	}
	cmd.Flags().String(flagPrompt, "", "prompt the reflection answers")
	return cmd
}

func newBuyCommand(env *commandEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy <item>",
		Short: "Buy a cosmetic from the shop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var supplied *int64
			if cmd.Flags().Changed(flagCost) {
				cost, _ := cmd.Flags().GetInt64(flagCost)
				supplied = &cost
			}
			return env.withRuntime(cmd, nil, func(ctx context.Context, runtime *app.Runtime) error {
				cost, err := runtime.Catalog.ResolveCost(args[0], supplied)
				if err != nil {
					return err
				}
				result, err := runtime.Service.Purchase(ctx, journal.PurchaseRequest{ItemID: args[0], Cost: cost})
				if errors.Is(err, journal.ErrInsufficientFunds) {
					return fmt.Errorf("%s costs %d gold: %w", args[0], cost, err)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %s\n", args[0], result.Status)
				printDisplay(out, result.Snapshot.Display)
				return nil
			})
		},
	}
	cmd.Flags().Int64(flagCost, 0, "expected price; rejected when it differs from the catalog")
	return cmd
}

func newEquipCommand(env *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "equip <item>",
		Short: "Make an owned cosmetic active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withRuntime(cmd, nil, func(ctx context.Context, runtime *app.Runtime) error {
				if _, err := runtime.Catalog.Item(args[0]); err != nil {
					return err
				}
				snapshot, err := runtime.Service.Equip(ctx, args[0])
				if err != nil {
					return err
				}
				printDisplay(cmd.OutOrStdout(), snapshot.Display)
				return nil
			})
		},
	}
}

func newGrantCommand(env *commandEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Credit gold manually",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, _ := cmd.Flags().GetInt64(flagAmount)
			return env.withRuntime(cmd, nil, func(ctx context.Context, runtime *app.Runtime) error {
				snapshot, err := runtime.Service.Grant(ctx, amount)
				if err != nil {
					return err
				}
				printDisplay(cmd.OutOrStdout(), snapshot.Display)
				return nil
			})
		},
	}
	cmd.Flags().Int64(flagAmount, 20, "gold to credit")
	return cmd
}

func newStateCommand(env *commandEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print streak, balance and recent reflections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt(flagLimit)
			return env.withRuntime(cmd, nil, func(ctx context.Context, runtime *app.Runtime) error {
				snapshot, err := runtime.Service.Snapshot(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printDisplay(out, snapshot.Display)
				for _, entry := range journal.RecentEntries(snapshot.State, limit) {
					fmt.Fprintf(out, "%s  %-9s  %s\n", entry.Date(), entry.RewardTier(), entry.Text())
				}
				return nil
			})
		},
	}
	cmd.Flags().Int(flagLimit, 10, "reflections to list")
	return cmd
}

func newTokensCommand(env *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "Print the token records a renderer would draw",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withRuntime(cmd, nil, func(ctx context.Context, runtime *app.Runtime) error {
				snapshot, err := runtime.Service.Snapshot(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, record := range snapshot.Tokens.Records {
					fmt.Fprintf(out, "%-20s %-6s %s\n", record.Identity, record.Tint, record.Label)
				}
				return nil
			})
		},
	}
}

func newWatchCommand(env *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the state whenever another process changes it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			return env.withRuntime(cmd, logger, func(ctx context.Context, runtime *app.Runtime) error {
				out := cmd.OutOrStdout()
				listener, err := journal.NewSyncListener(runtime.Service.States(), func(_ context.Context, snapshot journal.Snapshot) {
					printDisplay(out, snapshot.Display)
				}, runtime.OperationLogger)
				if err != nil {
					return err
				}
				changes, err := runtime.Watcher.Watch(ctx)
				if err != nil {
					return err
				}
				if err := listener.Run(ctx, changes); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		},
	}
}

func newSummaryCommand(env *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize recent reflections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withRuntime(cmd, nil, func(ctx context.Context, runtime *app.Runtime) error {
				snapshot, err := runtime.Service.Snapshot(ctx)
				if err != nil {
					return err
				}
				result, err := runtime.Summarizer.Summarize(ctx, snapshot.State)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n(%s)\n", result.Summary, result.Source)
				return nil
			})
		},
	}
}

func newPromptCommand(env *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print a random writing prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withRuntime(cmd, nil, func(_ context.Context, runtime *app.Runtime) error {
				prompt, err := runtime.Catalog.RandomPrompt()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), prompt)
				return nil
			})
		},
	}
}

func newAuditCommand(env *commandEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare the audited gold movements with the stored balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt(flagLimit)
			return env.withRuntime(cmd, nil, func(ctx context.Context, runtime *app.Runtime) error {
				report, err := runtime.CheckAudit(ctx, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, record := range report.Records {
					fmt.Fprintf(out, "%s  %-8s %-9s %+d -> %d\n",
						record.CreatedAt.Format("2006-01-02 15:04:05"), record.Operation, record.Status, record.GoldDelta, record.GoldBalance)
				}
				fmt.Fprintf(out, "audited gold %d, balance %d\n", report.RecordedGold, report.GoldBalance)
				if !report.Consistent {
					return fmt.Errorf("audit mismatch: audited gold %d, balance %d", report.RecordedGold, report.GoldBalance)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int(flagLimit, 20, "audit records to list")
	return cmd
}

func printDisplay(out io.Writer, display journal.Display) {
	fmt.Fprintf(out, "streak %d  gold %d  bonus %d  silver %d  entries %d  theme %s\n",
		display.Streak, display.GoldBalance, display.PendingBonus, display.SilverCount, display.EntryCount, display.ActiveCosmetic)
}
