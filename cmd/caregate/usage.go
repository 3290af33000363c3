package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caregate/caregate/adapters/clock"
	"github.com/caregate/caregate/adapters/sqlite"
	"github.com/caregate/caregate/domain/billing"
	"github.com/caregate/caregate/domain/plan"
	"github.com/caregate/caregate/ports"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect and manage usage counters",
	Long: `Inspect and manage per-account usage counters.

Examples:
  caregate usage show pat@example.com
  caregate usage reset pat@example.com`,
}

var usageShowCmd = &cobra.Command{
	Use:   "show <account-id-or-email>",
	Short: "Show current and past billing period usage",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsageShow,
}

var usageResetCmd = &cobra.Command{
	Use:   "reset <account-id-or-email>",
	Short: "Reset the current period's counter to zero",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsageReset,
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.AddCommand(usageShowCmd)
	usageCmd.AddCommand(usageResetCmd)
}

func runUsageShow(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	accounts := sqlite.NewAccountStore(db)
	account, err := findAccount(accounts, args[0])
	if err != nil {
		return err
	}

	store := sqlite.NewUsageStore(db)
	period := currentPeriod(account)
	limit := plan.Allowance(account.Tier)

	var used int64
	if rec, err := store.Find(context.Background(), account.ID, period.Start); err == nil {
		used = rec.QueryCount
	} else if !errors.Is(err, ports.ErrNotFound) {
		return fmt.Errorf("failed to read usage: %w", err)
	}

	fmt.Printf("Account: %s (%s)\n", account.Email, account.Tier)
	fmt.Printf("Period:  %s to %s\n",
		period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"))
	fmt.Printf("Usage:   %d / %d\n", used, limit)
	fmt.Println()

	history, err := store.ListByAccount(context.Background(), account.ID, 12)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if len(history) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD START\tPERIOD END\tQUERIES")
	fmt.Fprintln(w, "------------\t----------\t-------")
	for _, rec := range history {
		fmt.Fprintf(w, "%s\t%s\t%d\n",
			rec.PeriodStart.Format("2006-01-02"),
			rec.PeriodEnd.Format("2006-01-02"),
			rec.QueryCount)
	}
	w.Flush()
	return nil
}

func runUsageReset(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	accounts := sqlite.NewAccountStore(db)
	account, err := findAccount(accounts, args[0])
	if err != nil {
		return err
	}

	store := sqlite.NewUsageStore(db)
	period := currentPeriod(account)

	if err := store.SetCount(context.Background(), account.ID, period.Start, 0); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			fmt.Println("No usage recorded for the current period.")
			return nil
		}
		return fmt.Errorf("failed to reset usage: %w", err)
	}

	fmt.Printf("Usage reset for %s (period starting %s)\n",
		account.Email, period.Start.Format("2006-01-02"))
	return nil
}

func currentPeriod(account ports.Account) billing.Period {
	anchor := account.BillingAnchor
	if anchor.IsZero() {
		anchor = account.CreatedAt
	}
	return billing.CurrentPeriod(anchor, clock.Real{}.Now())
}
