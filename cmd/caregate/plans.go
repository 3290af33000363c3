package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caregate/caregate/domain/plan"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Show the subscription tier catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIER\tNAME\tQUERIES/MONTH\tPRICE")
		fmt.Fprintln(w, "----\t----\t-------------\t-----")

		for _, p := range plan.Catalog() {
			price := "free"
			if p.PriceMonthly > 0 {
				price = fmt.Sprintf("$%d.%02d/mo", p.PriceMonthly/100, p.PriceMonthly%100)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.Tier, p.Name, p.QueriesPerMonth, price)
		}

		w.Flush()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plansCmd)
}
