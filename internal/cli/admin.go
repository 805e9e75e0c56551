package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/takax-network/takax/internal/app/service"
	"github.com/takax-network/takax/internal/domain"
)

// cliAdmin is recorded in the admin audit log for CLI actions.
const cliAdmin = "cli"

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerReconcileCmd)

	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCreateCmd.Flags().String("title", "", "Task title (required)")
	taskCreateCmd.Flags().String("description", "", "Task description")
	taskCreateCmd.Flags().String("reward", "", "Reward in coins, 0.1-100 (required)")
	taskCreateCmd.Flags().String("type", string(domain.TaskWebsiteVisit), "Task type")
	taskCreateCmd.Flags().String("link", "", "External link")
	taskCreateCmd.Flags().Int("daily-limit", 1, "Completions per user per day")
	_ = taskCreateCmd.MarkFlagRequired("title")
	_ = taskCreateCmd.MarkFlagRequired("reward")

	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userBanCmd, userUnbanCmd)
	userBanCmd.Flags().String("reason", "", "Ban reason shown to admins")

	rootCmd.AddCommand(teamCmd)
	teamCmd.AddCommand(teamBanCmd, teamUnbanCmd)
}

// ─── ledger reconcile ───────────────────────────────────────────────────────

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the coin ledger",
}

var ledgerReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check every balance against its ledger history",
	Long: `Recompute each user's balance and total earned from the ledger and
report every user whose stored values disagree. Exits non-zero on mismatch.`,
	Args: cobra.NoArgs,
	RunE: runLedgerReconcile,
}

func runLedgerReconcile(cmd *cobra.Command, args []string) error {
	app, err := openApp(true)
	if err != nil {
		return err
	}
	defer app.Close()

	mismatches, checked, err := app.Service.Ledger().ReconcileAll(cmd.Context(), app.DB)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, m := range mismatches {
		fmt.Fprintf(out, "  ✗ %s\n", m)
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%d of %d users do not match the ledger", len(mismatches), checked)
	}
	fmt.Fprintf(out, "✅ %d users reconciled, no mismatches\n", checked)
	return nil
}

// ─── task create ────────────────────────────────────────────────────────────

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage earning tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task",
	Args:  cobra.NoArgs,
	RunE:  runTaskCreate,
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	in, err := taskInputFromFlags(cmd)
	if err != nil {
		return err
	}
	app, err := openApp(true)
	if err != nil {
		return err
	}
	defer app.Close()

	task, err := app.Service.CreateTask(cmd.Context(), cliAdmin, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Task %q created (id %s, reward %s)\n",
		task.Title, task.ID, task.RewardAmount.StringFixed(2))
	return nil
}

func taskInputFromFlags(cmd *cobra.Command) (service.TaskInput, error) {
	title, _ := cmd.Flags().GetString("title")
	desc, _ := cmd.Flags().GetString("description")
	rewardStr, _ := cmd.Flags().GetString("reward")
	typ, _ := cmd.Flags().GetString("type")
	link, _ := cmd.Flags().GetString("link")
	limit, _ := cmd.Flags().GetInt("daily-limit")

	reward, err := decimal.NewFromString(rewardStr)
	if err != nil {
		return service.TaskInput{}, fmt.Errorf("invalid --reward %q: %w", rewardStr, err)
	}
	tt := domain.TaskType(typ)
	return service.TaskInput{
		Title:        &title,
		Description:  &desc,
		RewardAmount: &reward,
		TaskType:     &tt,
		ExternalLink: &link,
		DailyLimit:   &limit,
	}, nil
}

// ─── user ban / unban ───────────────────────────────────────────────────────

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Moderate users",
}

var userBanCmd = &cobra.Command{
	Use:   "ban TELEGRAM_ID",
	Short: "Ban a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		return runUserStatus(cmd, args[0], domain.ActionBan, reason)
	},
}

var userUnbanCmd = &cobra.Command{
	Use:   "unban TELEGRAM_ID",
	Short: "Restore a banned user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUserStatus(cmd, args[0], domain.ActionUnban, "")
	},
}

func runUserStatus(cmd *cobra.Command, userID string, action domain.UserAction, reason string) error {
	app, err := openApp(true)
	if err != nil {
		return err
	}
	defer app.Close()

	msg, err := app.Service.SetUserStatus(cmd.Context(), cliAdmin, userID, string(action), reason)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s\n", msg)
	return nil
}

// ─── team ban / unban ───────────────────────────────────────────────────────

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Moderate teams",
}

var teamBanCmd = &cobra.Command{
	Use:   "ban TEAM_ID",
	Short: "Ban a team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTeamBan(cmd, args[0], true)
	},
}

var teamUnbanCmd = &cobra.Command{
	Use:   "unban TEAM_ID",
	Short: "Lift a team ban",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTeamBan(cmd, args[0], false)
	},
}

func runTeamBan(cmd *cobra.Command, teamID string, banned bool) error {
	app, err := openApp(true)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Service.SetTeamBanned(cmd.Context(), cliAdmin, teamID, banned); err != nil {
		return err
	}
	state := "unbanned"
	if banned {
		state = "banned"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Team %s %s\n", teamID, state)
	return nil
}
