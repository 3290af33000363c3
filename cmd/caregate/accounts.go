package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caregate/caregate/adapters/sqlite"
	"github.com/caregate/caregate/config"
	"github.com/caregate/caregate/domain/plan"
	"github.com/caregate/caregate/ports"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage patient accounts",
	Long: `Manage CareGate patient accounts.

Examples:
  caregate accounts list
  caregate accounts get pat@example.com
  caregate accounts set-tier pat@example.com pro`,
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	RunE:  runAccountsList,
}

var accountsGetCmd = &cobra.Command{
	Use:   "get <account-id-or-email>",
	Short: "Get account details",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsGet,
}

var accountsSetTierCmd = &cobra.Command{
	Use:   "set-tier <account-id-or-email> <tier>",
	Short: "Change an account's tier",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccountsSetTier,
}

func init() {
	rootCmd.AddCommand(accountsCmd)

	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsGetCmd)
	accountsCmd.AddCommand(accountsSetTierCmd)
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewAccountStore(db)
	accounts, err := store.List(context.Background(), 1000, 0)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		fmt.Println("No accounts found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tTIER\tSTATUS\tANCHOR")
	fmt.Fprintln(w, "--\t-----\t----\t------\t------")

	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Email, a.Tier, a.Status, a.BillingAnchor.Format("2006-01-02"))
	}

	w.Flush()
	return nil
}

func runAccountsGet(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewAccountStore(db)
	account, err := findAccount(store, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:      %s\n", account.ID)
	fmt.Printf("Email:   %s\n", account.Email)
	if account.Name != "" {
		fmt.Printf("Name:    %s\n", account.Name)
	}
	fmt.Printf("Tier:    %s (%d queries/month)\n",
		account.Tier, plan.Allowance(account.Tier))
	fmt.Printf("Status:  %s\n", account.Status)
	fmt.Printf("Anchor:  %s\n", account.BillingAnchor.Format("2006-01-02"))
	fmt.Printf("Created: %s\n", account.CreatedAt.Format("2006-01-02"))
	if account.StripeID != "" {
		fmt.Printf("Billing: %s\n", account.StripeID)
	}
	return nil
}

func runAccountsSetTier(cmd *cobra.Command, args []string) error {
	tier := plan.Normalize(args[1])
	if string(tier) != args[1] {
		return fmt.Errorf("unknown tier %q (valid: free, pro, premium)", args[1])
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewAccountStore(db)
	account, err := findAccount(store, args[0])
	if err != nil {
		return err
	}

	account.Tier = string(tier)
	if err := store.Update(context.Background(), account); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	fmt.Printf("Account %s moved to tier %s\n", account.Email, tier)
	return nil
}

// findAccount retrieves an account by ID or email address.
func findAccount(store *sqlite.AccountStore, identifier string) (ports.Account, error) {
	ctx := context.Background()

	if strings.Contains(identifier, "@") {
		account, err := store.GetByEmail(ctx, strings.ToLower(identifier))
		if err != nil {
			return ports.Account{}, fmt.Errorf("account not found: %s", identifier)
		}
		return account, nil
	}

	account, err := store.Get(ctx, identifier)
	if err != nil {
		return ports.Account{}, fmt.Errorf("account not found: %s", identifier)
	}
	return account, nil
}

func openDatabase() (*sqlite.DB, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}
