package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/automation"
	"github.com/teemow/inboxpilot/internal/logging"
)

// withApp loads the configuration, builds an app without metrics and runs
// fn against it. Logs go to stderr so command output stays parseable.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogging(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("error during shutdown", logging.Err(err))
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, a)
}

func newRunCmd() *cobra.Command {
	var (
		refresh bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one auto-label cycle and print the status",
		Long: `Run a single auto-label cycle in the foreground and print the resulting
status. A run that cannot start (automation disabled, no rules, missing
credentials) or that fails is reported in the status and the log, not as a
command failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if refresh {
					n, err := a.service.RefreshSnapshot(ctx, a.refresher)
					if err != nil {
						a.logger.Warn("snapshot refresh failed, the cycle reads Gmail directly", logging.Err(err))
					} else {
						a.logger.Info("snapshot refreshed", "messages", n)
					}
				}

				st := a.service.RunNow(ctx)
				if asJSON {
					return printJSON(cmd.OutOrStdout(), st)
				}
				return printStatus(cmd.OutOrStdout(), st)
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Refresh the local mail snapshot before the run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")

	return cmd
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage auto-label rules",
		Long: `Manage the plain-language rules the auto-labeler evaluates. Adding or
deleting a rule clears the processed-email ledger and runs a cycle so recent
mail is checked against the new rule set.`,
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				rules := a.service.ListRules()
				if asJSON {
					if rules == nil {
						rules = []automation.Rule{}
					}
					return printJSON(cmd.OutOrStdout(), rules)
				}
				return printRules(cmd.OutOrStdout(), rules)
			})
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Print the rules as JSON")

	addCmd := &cobra.Command{
		Use:   "add LABEL REASON...",
		Short: "Add a rule",
		Example: `  inboxpilot rules add Receipts "order confirmations and invoices"
  inboxpilot rules add Travel flight and hotel bookings`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				rule, err := a.service.AddRule(ctx, args[0], strings.Join(args[1:], " "))
				if errors.Is(err, automation.ErrInvalidRule) {
					return fmt.Errorf("label and reason must not be empty")
				}
				if err != nil {
					return fmt.Errorf("failed to add rule: %w", err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added rule %s (%s)\n", rule.ID, rule.Label)
				return err
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				removed, err := a.service.DeleteRule(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to delete rule: %w", err)
				}
				if !removed {
					return fmt.Errorf("rule %s not found", args[0])
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted rule %s\n", args[0])
				return err
			})
		},
	}

	cmd.AddCommand(listCmd, addCmd, deleteCmd)
	return cmd
}

func newAutomationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automation",
		Short: "Show or toggle the auto-labeler",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the automation status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return printStatus(cmd.OutOrStdout(), a.service.Status())
			})
		},
	}

	toggle := func(enabled bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				st, err := a.service.SetEnabled(ctx, enabled)
				if err != nil {
					return fmt.Errorf("failed to update automation: %w", err)
				}
				return printStatus(cmd.OutOrStdout(), st)
			})
		}
	}

	enableCmd := &cobra.Command{
		Use:   "enable",
		Short: "Enable the auto-labeler and run a cycle",
		Args:  cobra.NoArgs,
		RunE:  toggle(true),
	}
	disableCmd := &cobra.Command{
		Use:   "disable",
		Short: "Disable the auto-labeler",
		Args:  cobra.NoArgs,
		RunE:  toggle(false),
	}

	cmd.AddCommand(statusCmd, enableCmd, disableCmd)
	return cmd
}

func newLogsCmd() *cobra.Command {
	var (
		days   int
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print auto-label log entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				page := a.service.Logs(days, limit)
				if asJSON {
					return printJSON(cmd.OutOrStdout(), page)
				}
				if len(page.Logs) == 0 {
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "No log entries in the last %d day(s)\n", page.QueryDays)
					return err
				}
				return printLogEntries(cmd.OutOrStdout(), page.Logs)
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Look-back window in days, clamped to the retention window")
	cmd.Flags().IntVar(&limit, "limit", 100, fmt.Sprintf("Maximum number of entries (max %d)", automation.MaxLogLimit))
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the entries as JSON")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "inboxpilot version %s\n", version)
		},
	}
}
