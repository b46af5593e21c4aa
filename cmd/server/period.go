package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atforche/financial-tracker/ledger"
)

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "Administer accounting periods",
}

var periodCreateCmd = &cobra.Command{
	Use:   "create YYYY-MM",
	Short: "Open the accounting period for a month",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := ledger.ParsePeriodKey(args[0])
		if err != nil {
			return err
		}
		return withLedger(cmd.Context(), func(ctx context.Context, l *ledger.Ledger) error {
			period, err := l.Periods.CreateAccountingPeriod(ctx, key.Year, key.Month)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", period.Key(), period.ID)
			return nil
		})
	},
}

var periodCloseCmd = &cobra.Command{
	Use:   "close YYYY-MM",
	Short: "Close an accounting period and carry its balances forward",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := ledger.ParsePeriodKey(args[0])
		if err != nil {
			return err
		}
		return withLedger(cmd.Context(), func(ctx context.Context, l *ledger.Ledger) error {
			id, err := findPeriod(ctx, l, key)
			if err != nil {
				return err
			}
			period, err := l.Periods.ClosePeriod(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "closed %s\n", period.Key())
			return nil
		})
	},
}

var periodListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounting periods, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(ctx context.Context, l *ledger.Ledger) error {
			periods, err := l.Periods.ListAccountingPeriods(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PERIOD\tSTATUS\tID")
			for _, p := range periods {
				status := "closed"
				if p.IsOpen {
					status = "open"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Key(), status, p.ID)
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(periodCmd)
	periodCmd.AddCommand(periodCreateCmd, periodCloseCmd, periodListCmd)
}

func withLedger(ctx context.Context, fn func(ctx context.Context, l *ledger.Ledger) error) error {
	log := newLogger()
	store, err := openStore(log)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, ledger.New(store, log))
}

func findPeriod(ctx context.Context, l *ledger.Ledger, key ledger.PeriodKey) (ledger.AccountingPeriodID, error) {
	periods, err := l.Periods.ListAccountingPeriods(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range periods {
		if p.Key() == key {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ledger.ErrAccountingPeriodNotFound, key)
}
