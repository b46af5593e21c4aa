/*
accounting_period_service.go - Accounting period lifecycle and checkpoints

LIFECYCLE:
  Periods are created one calendar month at a time with no gaps, start open,
  and close oldest first. Only a contiguous suffix of periods is ever open.

  CreateAccountingPeriod: the first period, or exactly latest + 1 month
  ClosePeriod:            the earliest open period, with every leg posted
  DeleteAccountingPeriod: the latest period, open and unused

CHECKPOINTS:
  A checkpoint for period P holds the settled balance of everything owned
  by periods before P. It is written when P-1 closes (if P exists) or when P
  is created after P-1 already closed. Once written it never changes, since
  nothing owned by a closed period can change.

  Checkpoint(P+1) = Ending(P) from balanceForPeriod, so queries give the
  same answer before and after the close.

SEE ALSO:
  - balance_service.go: Where checkpoints are read
  - period.go: PeriodKey and AccountingPeriod
*/
package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type AccountingPeriodService struct {
	store TxStore
	log   zerolog.Logger
}

func NewAccountingPeriodService(store TxStore, log zerolog.Logger) *AccountingPeriodService {
	return &AccountingPeriodService{store: store, log: log}
}

// CreateAccountingPeriod opens the period for year/month.
func (s *AccountingPeriodService) CreateAccountingPeriod(ctx context.Context, year int, month time.Month) (*AccountingPeriod, error) {
	var (
		result      *AccountingPeriod
		checkpoints int
	)
	err := s.store.WithTx(ctx, func(tx Store) error {
		engine, err := newBalanceEngine(ctx, tx)
		if err != nil {
			return err
		}

		var errs ValidationErrors
		if year < MinPeriodYear || year > MaxPeriodYear {
			errs.Add(ErrInvalidAccountingPeriod, "year %d is outside %d-%d", year, MinPeriodYear, MaxPeriodYear)
		}
		if month < time.January || month > time.December {
			errs.Add(ErrInvalidAccountingPeriod, "month %d is outside 1-12", int(month))
		}
		if err := errs.Err(); err != nil {
			return err
		}

		key := NewPeriodKey(year, month)
		latest, hasLatest := engine.periods.latest()
		if _, exists := engine.periods.find(key); exists {
			return newRuleError(ErrInvalidAccountingPeriod, "accounting period %s already exists", key)
		}
		if hasLatest && key != latest.Key().Next() {
			return newRuleError(ErrInvalidAccountingPeriod, "accounting period %s must immediately follow %s", key, latest.Key())
		}

		period := AccountingPeriod{ID: NewAccountingPeriodID(), Year: year, Month: month, IsOpen: true}
		if err := tx.SaveAccountingPeriod(ctx, period); err != nil {
			return err
		}
		if hasLatest && !latest.IsOpen {
			if checkpoints, err = engine.writeCheckpoints(ctx, latest, period); err != nil {
				return err
			}
		}
		result = &period
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("period_id", string(result.ID)).
		Str("period", result.Key().String()).
		Int("checkpoints", checkpoints).
		Msg("accounting period created")
	return result, nil
}

// ClosePeriod closes the earliest open period.
func (s *AccountingPeriodService) ClosePeriod(ctx context.Context, id AccountingPeriodID) (*AccountingPeriod, error) {
	var (
		result      *AccountingPeriod
		checkpoints int
	)
	err := s.store.WithTx(ctx, func(tx Store) error {
		engine, err := newBalanceEngine(ctx, tx)
		if err != nil {
			return err
		}
		period, err := lookupPeriod(engine.periods, id)
		if err != nil {
			return err
		}
		if !period.IsOpen {
			return newRuleError(ErrInvalidAccountingPeriod, "accounting period %s is already closed", period.Key())
		}

		var errs ValidationErrors
		for _, p := range engine.periods.ordered {
			if p.Key().Before(period.Key()) && p.IsOpen {
				errs.Add(ErrInvalidAccountingPeriod, "earlier accounting period %s is still open", p.Key())
			}
		}
		txs, err := tx.ListTransactionsByPeriod(ctx, id)
		if err != nil {
			return err
		}
		for _, t := range txs {
			if t.HasPendingLeg() {
				errs.Add(ErrInvalidAccountingPeriod, "transaction %s on %s has unposted legs", t.ID, t.Date)
			}
		}
		if err := errs.Err(); err != nil {
			return err
		}

		period.IsOpen = false
		if err := tx.SaveAccountingPeriod(ctx, period); err != nil {
			return err
		}
		if next, ok := engine.periods.find(period.Key().Next()); ok {
			if checkpoints, err = engine.writeCheckpoints(ctx, period, next); err != nil {
				return err
			}
		}
		result = &period
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("period_id", string(id)).
		Str("period", result.Key().String()).
		Int("checkpoints", checkpoints).
		Msg("accounting period closed")
	return result, nil
}

// DeleteAccountingPeriod removes the latest period while it is open and
// owns nothing.
func (s *AccountingPeriodService) DeleteAccountingPeriod(ctx context.Context, id AccountingPeriodID) error {
	var key PeriodKey
	err := s.store.WithTx(ctx, func(tx Store) error {
		periods, err := loadPeriods(ctx, tx)
		if err != nil {
			return err
		}
		period, err := lookupPeriod(periods, id)
		if err != nil {
			return err
		}
		key = period.Key()

		var errs ValidationErrors
		if !period.IsOpen {
			errs.Add(ErrInvalidAccountingPeriod, "accounting period %s is closed", key)
		}
		if latest, _ := periods.latest(); latest.ID != id {
			errs.Add(ErrInvalidAccountingPeriod, "accounting period %s is not the latest", key)
		}
		txs, err := tx.ListTransactionsByPeriod(ctx, id)
		if err != nil {
			return err
		}
		if len(txs) > 0 {
			errs.Add(ErrInvalidAccountingPeriod, "accounting period %s owns %d transactions", key, len(txs))
		}
		events, err := tx.EventsByPeriod(ctx, key)
		if err != nil {
			return err
		}
		if len(txs) == 0 && len(events) > 0 {
			errs.Add(ErrInvalidAccountingPeriod, "accounting period %s owns balance events", key)
		}
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		for _, account := range accounts {
			if account.InitialAccountingPeriodID == id {
				errs.Add(ErrInvalidAccountingPeriod, "account %q was opened in accounting period %s", account.Name, key)
			}
		}
		if err := errs.Err(); err != nil {
			return err
		}

		if err := tx.DeleteCheckpointsForPeriod(ctx, id); err != nil {
			return err
		}
		return tx.DeleteAccountingPeriod(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("period_id", string(id)).Str("period", key.String()).Msg("accounting period deleted")
	return nil
}

func (s *AccountingPeriodService) GetAccountingPeriod(ctx context.Context, id AccountingPeriodID) (*AccountingPeriod, error) {
	var result *AccountingPeriod
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		result, err = tx.GetAccountingPeriod(ctx, id)
		return err
	})
	return result, err
}

func (s *AccountingPeriodService) ListAccountingPeriods(ctx context.Context) ([]AccountingPeriod, error) {
	var result []AccountingPeriod
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		result, err = tx.ListAccountingPeriods(ctx)
		return err
	})
	return result, err
}

// =============================================================================
// CHECKPOINTS
// =============================================================================

// writeCheckpoints carries the settled ending balances of closed into next,
// for every account opened no later than closed and every fund.
func (e *balanceEngine) writeCheckpoints(ctx context.Context, closed, next AccountingPeriod) (int, error) {
	written := 0

	accounts, err := e.store.ListAccounts(ctx)
	if err != nil {
		return written, err
	}
	for _, account := range accounts {
		if e.periods.keyOf(account.InitialAccountingPeriodID).After(closed.Key()) {
			continue
		}
		t, err := e.accountTarget(ctx, account)
		if err != nil {
			return written, err
		}
		_, ending, err := balanceForPeriod(ctx, e.events, t, closed.Key())
		if err != nil {
			return written, err
		}
		checkpoint := AccountBalanceCheckpoint{
			ID:                 NewCheckpointID(),
			AccountID:          account.ID,
			AccountingPeriodID: next.ID,
			FundBalances:       ending.Balance.Clone(),
		}
		if err := e.store.SaveAccountCheckpoint(ctx, checkpoint); err != nil {
			return written, err
		}
		written++
	}

	funds, err := e.store.ListFunds(ctx)
	if err != nil {
		return written, err
	}
	for _, fund := range funds {
		t, err := e.fundTarget(ctx, fund)
		if err != nil {
			return written, err
		}
		_, ending, err := balanceForPeriod(ctx, e.events, t, closed.Key())
		if err != nil {
			return written, err
		}
		checkpoint := FundBalanceCheckpoint{
			ID:                 NewCheckpointID(),
			FundID:             fund.ID,
			AccountingPeriodID: next.ID,
			AccountBalances:    ending.Balance.Clone(),
		}
		if err := e.store.SaveFundCheckpoint(ctx, checkpoint); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
