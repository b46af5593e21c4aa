/*
validation.go - Checks shared by every command that records balance events

EVENT DATES:
  An event is recorded under an open accounting period and may be dated at
  most one calendar month away from it. It may not be dated before the
  inception of any account it touches, nor recorded under a period earlier
  than that account's initial period.

TIMELINES:
  Inserting an event in the past changes the balance every later event was
  validated against. validateTimelines re-folds each touched account from
  the earliest changed position with the proposed events overlaid and calls
  IsValidToApply before every event from there on.

SEE ALSO:
  - balance_service.go: overlaySource and the fold itself
  - errors.go: ValidationErrors, NegativeBalanceError
*/
package ledger

import (
	"context"
	"strings"
)

// validateEventDate records every reason date cannot be used under period.
func validateEventDate(errs *ValidationErrors, periods *periodIndex, period AccountingPeriod, date Date, accounts ...Account) {
	if !period.IsOpen {
		errs.Add(ErrInvalidAccountingPeriod, "accounting period %s is closed", period.Key())
	}
	if date.IsZero() {
		errs.Add(ErrInvalidTransactionDate, "date is required")
		return
	}
	if !period.Key().IsAdjacent(date) {
		errs.Add(ErrInvalidTransactionDate, "date %s is more than one month from accounting period %s", date, period.Key())
	}
	for _, account := range accounts {
		if date.Before(account.InitialDate) {
			errs.Add(ErrInvalidTransactionDate, "date %s is before account %q was opened on %s", date, account.Name, account.InitialDate)
		}
		if initial := periods.keyOf(account.InitialAccountingPeriodID); period.Key().Before(initial) {
			errs.Add(ErrInvalidAccountingPeriod, "accounting period %s is before account %q was opened in %s", period.Key(), account.Name, initial)
		}
	}
}

// validateFundAmounts records malformed amounts under kind and unknown funds
// under ErrInvalidFund.
func validateFundAmounts(ctx context.Context, store Store, errs *ValidationErrors, kind error, amounts FundAmounts) error {
	if len(amounts) == 0 {
		errs.Add(kind, "at least one fund amount is required")
		return nil
	}
	if amounts.HasDuplicateFunds() {
		errs.Add(kind, "fund amounts contain duplicate funds")
	}
	for _, fa := range amounts {
		if !fa.Amount.IsPositive() {
			errs.Add(kind, "amount for fund %s must be positive, got %s", fa.FundID, fa.Amount)
		}
		if err := requireFund(ctx, store, errs, fa.FundID); err != nil {
			return err
		}
	}
	return nil
}

// requireFund records ErrInvalidFund when fundID does not exist. Only store
// failures are returned.
func requireFund(ctx context.Context, store Store, errs *ValidationErrors, fundID FundID) error {
	if _, err := store.GetFund(ctx, fundID); err != nil {
		if IsNotFound(err) {
			errs.Add(ErrInvalidFund, "fund %s does not exist", fundID)
			return nil
		}
		return err
	}
	return nil
}

// validateName trims name and records ErrInvalidName when it is empty.
func validateName(errs *ValidationErrors, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add(ErrInvalidName, "name is required")
	}
	return name
}

// validateTimelines folds each account's timeline from `from` with added
// events overlaid and removed events dropped, and checks every event at or
// after `from` against the balance it lands on.
func (e *balanceEngine) validateTimelines(ctx context.Context, accounts []Account, from position, added []BalanceEvent, removed []EventID) error {
	overlay := e.withOverlay(added, removed)
	latest, err := overlay.latestPeriod()
	if err != nil {
		return err
	}
	start := from.justBefore()

	for _, account := range accounts {
		t, err := overlay.accountTarget(ctx, account)
		if err != nil {
			return err
		}
		bal, err := balanceAt(ctx, overlay.events, t, start, latest)
		if err != nil {
			return err
		}
		events, err := eventsAfter(ctx, overlay.events, t, start, latest)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := ev.IsValidToApply(bal); err != nil {
				return err
			}
			bal = t.apply(ev, bal, DirectionStandard)
		}
	}
	return nil
}

// earliestDate returns the earliest of the given dates.
func earliestDate(first Date, rest ...Date) Date {
	for _, d := range rest {
		if d.Before(first) {
			first = d
		}
	}
	return first
}
