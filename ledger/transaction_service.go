/*
transaction_service.go - Adding, posting, updating and deleting transactions

LIFECYCLE OF A LEG:
  Added -> Posted. Adding a leg records an Added part that changes the
  account's pending balance. Posting moves the same amounts from pending
  into settled. A posted leg never goes back.

EVENTS PER LEG:
  Each leg owns one TransactionBalanceEvent per calendar date it touches.
  Posting on the transaction date appends a Posted part to the Added event;
  posting later creates a second event. All events are owned by the
  transaction's accounting period.

SEQUENCES:
  Transaction sequence: 1 + highest transaction sequence on that date.
  Event sequence:       1 + highest event sequence on that date (all kinds).
  When both legs are added together the credit event follows the debit event.

EVERY COMMAND:
  1. Load the transaction and the period index
  2. Accumulate rule violations (ValidationErrors)
  3. Build the new events
  4. Re-validate the touched accounts' timelines (validation.go)
  5. Save, all inside one unit of work

SEE ALSO:
  - transaction.go: The aggregate
  - transaction_event.go: Added/Posted parts and polarity
  - account_service.go: Initial account transactions
*/
package ledger

import (
	"context"

	"github.com/rs/zerolog"
)

// =============================================================================
// REQUESTS
// =============================================================================

// TransactionAccountRequest is one leg of a new transaction.
type TransactionAccountRequest struct {
	AccountID   AccountID
	FundAmounts FundAmounts
}

type AddTransactionRequest struct {
	AccountingPeriodID AccountingPeriodID
	Date               Date
	Location           string
	Description        string
	DebitAccount       *TransactionAccountRequest
	CreditAccount      *TransactionAccountRequest
}

// UpdateTransactionRequest replaces the editable fields of a transaction.
// Fund amounts must be given for exactly the legs the transaction has.
type UpdateTransactionRequest struct {
	Date              Date
	Location          string
	Description       string
	DebitFundAmounts  FundAmounts
	CreditFundAmounts FundAmounts
}

// =============================================================================
// TRANSACTION SERVICE
// =============================================================================

type TransactionService struct {
	store TxStore
	log   zerolog.Logger
}

func NewTransactionService(store TxStore, log zerolog.Logger) *TransactionService {
	return &TransactionService{store: store, log: log}
}

// AddTransaction records a transaction with an Added event per leg.
func (s *TransactionService) AddTransaction(ctx context.Context, req AddTransactionRequest) (*Transaction, error) {
	var result *Transaction
	err := s.store.WithTx(ctx, func(tx Store) error {
		engine, err := newBalanceEngine(ctx, tx)
		if err != nil {
			return err
		}
		period, err := lookupPeriod(engine.periods, req.AccountingPeriodID)
		if err != nil {
			return err
		}

		var errs ValidationErrors
		if req.DebitAccount == nil && req.CreditAccount == nil {
			errs.Add(ErrInvalidDebitAccount, "a transaction needs a debit account, a credit account or both")
			return errs.Err()
		}

		debit, err := validateLegRequest(ctx, tx, &errs, ErrInvalidDebitAccount, req.DebitAccount)
		if err != nil {
			return err
		}
		credit, err := validateLegRequest(ctx, tx, &errs, ErrInvalidCreditAccount, req.CreditAccount)
		if err != nil {
			return err
		}

		var accounts []Account
		if debit != nil {
			accounts = append(accounts, *debit)
		}
		if credit != nil {
			accounts = append(accounts, *credit)
		}
		if debit != nil && credit != nil {
			if debit.ID == credit.ID {
				errs.Add(ErrInvalidCreditAccount, "debit and credit account must differ")
				accounts = accounts[:1]
			}
			debitTotal := req.DebitAccount.FundAmounts.Total()
			creditTotal := req.CreditAccount.FundAmounts.Total()
			if !debitTotal.Equal(creditTotal) {
				errs.Add(ErrInvalidCreditAccount, "credit total %s does not match debit total %s", creditTotal, debitTotal)
			}
		}
		validateEventDate(&errs, engine.periods, period, req.Date, accounts...)
		if err := errs.Err(); err != nil {
			return err
		}

		t := &Transaction{
			ID:                 NewTransactionID(),
			AccountingPeriodID: period.ID,
			Date:               req.Date,
			Location:           req.Location,
			Description:        req.Description,
		}
		if t.Sequence, err = tx.NextTransactionSequence(ctx, req.Date); err != nil {
			return err
		}

		seq := newSequencer(tx)
		if debit != nil {
			t.DebitAccount = &TransactionAccount{AccountID: debit.ID, FundAmounts: req.DebitAccount.FundAmounts.Clone()}
			if err := addLegEvent(ctx, seq, t, period.Key(), *debit, PartAddedDebit, req.Date); err != nil {
				return err
			}
		}
		if credit != nil {
			t.CreditAccount = &TransactionAccount{AccountID: credit.ID, FundAmounts: req.CreditAccount.FundAmounts.Clone()}
			if err := addLegEvent(ctx, seq, t, period.Key(), *credit, PartAddedCredit, req.Date); err != nil {
				return err
			}
		}

		if err := engine.validateTimelines(ctx, accounts, startOfDate(req.Date), t.Events(), nil); err != nil {
			return err
		}
		if err := tx.SaveTransaction(ctx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transaction_id", string(result.ID)).
		Str("date", result.Date.String()).
		Str("amount", result.Amount().String()).
		Msg("transaction added")
	return result, nil
}

// PostTransaction posts the leg for accountID on postedDate.
func (s *TransactionService) PostTransaction(ctx context.Context, id TransactionID, accountID AccountID, postedDate Date) (*Transaction, error) {
	var result *Transaction
	err := s.store.WithTx(ctx, func(tx Store) error {
		engine, err := newBalanceEngine(ctx, tx)
		if err != nil {
			return err
		}
		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		leg, debit := t.Leg(accountID)
		if leg == nil {
			return newRuleError(ErrInvalidAccount, "account %s is not part of transaction %s", accountID, id)
		}
		if t.IsInitialAccountTransaction() {
			return newRuleError(ErrUnableToUpdate, "transaction %s opened an account and is posted already", id)
		}
		if leg.IsPosted() {
			return newRuleError(ErrUnableToUpdate, "transaction %s is already posted to account %s", id, accountID)
		}

		period, err := lookupPeriod(engine.periods, t.AccountingPeriodID)
		if err != nil {
			return err
		}
		var errs ValidationErrors
		if !period.IsOpen {
			errs.Add(ErrInvalidAccountingPeriod, "accounting period %s is closed", period.Key())
		}
		switch {
		case postedDate.IsZero():
			errs.Add(ErrInvalidTransactionDate, "posted date is required")
		case postedDate.Before(t.Date):
			errs.Add(ErrInvalidTransactionDate, "posted date %s is before transaction date %s", postedDate, t.Date)
		case !period.Key().IsAdjacent(postedDate):
			errs.Add(ErrInvalidTransactionDate, "posted date %s is more than one month from accounting period %s", postedDate, period.Key())
		}
		if err := errs.Err(); err != nil {
			return err
		}

		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}

		updated := t.Clone()
		updatedLeg, _ := updated.Leg(accountID)
		updatedLeg.PostedDate = &postedDate
		changed, err := postLeg(ctx, newSequencer(tx), updated, period.Key(), *account, debit, postedDate)
		if err != nil {
			return err
		}

		if err := engine.validateTimelines(ctx, []Account{*account}, startOfDate(postedDate), []BalanceEvent{changed}, nil); err != nil {
			return err
		}
		if err := tx.SaveTransaction(ctx, updated); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transaction_id", string(id)).
		Str("account_id", string(accountID)).
		Str("posted_date", postedDate.String()).
		Msg("transaction posted")
	return result, nil
}

// UpdateTransaction rewrites a transaction none of whose legs have posted.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id TransactionID, req UpdateTransactionRequest) (*Transaction, error) {
	var result *Transaction
	err := s.store.WithTx(ctx, func(tx Store) error {
		engine, err := newBalanceEngine(ctx, tx)
		if err != nil {
			return err
		}
		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if t.IsInitialAccountTransaction() {
			return newRuleError(ErrUnableToUpdate, "transaction %s opened an account", id)
		}
		if len(t.PostedLegs()) > 0 {
			return newRuleError(ErrUnableToUpdate, "transaction %s has posted legs", id)
		}

		var errs ValidationErrors
		if (t.DebitAccount != nil) != (req.DebitFundAmounts != nil) {
			errs.Add(ErrUnableToUpdate, "the debit leg cannot be added or removed")
		}
		if (t.CreditAccount != nil) != (req.CreditFundAmounts != nil) {
			errs.Add(ErrUnableToUpdate, "the credit leg cannot be added or removed")
		}
		if err := errs.Err(); err != nil {
			return err
		}

		period, err := lookupPeriod(engine.periods, t.AccountingPeriodID)
		if err != nil {
			return err
		}
		accounts, err := legAccounts(ctx, tx, t)
		if err != nil {
			return err
		}
		if t.DebitAccount != nil {
			if err := validateFundAmounts(ctx, tx, &errs, ErrInvalidDebitAccount, req.DebitFundAmounts); err != nil {
				return err
			}
		}
		if t.CreditAccount != nil {
			if err := validateFundAmounts(ctx, tx, &errs, ErrInvalidCreditAccount, req.CreditFundAmounts); err != nil {
				return err
			}
		}
		if t.DebitAccount != nil && t.CreditAccount != nil && !req.DebitFundAmounts.Total().Equal(req.CreditFundAmounts.Total()) {
			errs.Add(ErrInvalidCreditAccount, "credit total %s does not match debit total %s",
				req.CreditFundAmounts.Total(), req.DebitFundAmounts.Total())
		}
		validateEventDate(&errs, engine.periods, period, req.Date, accounts...)
		if err := errs.Err(); err != nil {
			return err
		}

		updated := t.Clone()
		updated.Date = req.Date
		updated.Location = req.Location
		updated.Description = req.Description
		if !req.Date.Equal(t.Date) {
			if updated.Sequence, err = tx.NextTransactionSequence(ctx, req.Date); err != nil {
				return err
			}
		}

		// Rebuild the Added events; an event that stays on its date keeps
		// its place in the order.
		updated.BalanceEvents = nil
		seq := newSequencer(tx)
		for _, account := range accounts {
			leg, debit := updated.Leg(account.ID)
			if debit {
				leg.FundAmounts = req.DebitFundAmounts.Clone()
			} else {
				leg.FundAmounts = req.CreditFundAmounts.Clone()
			}
			old := t.BalanceEvents[t.eventOn(account.ID, t.Date)]
			ev := old.clone()
			ev.Date = req.Date
			ev.Parts = []TransactionBalanceEventPart{{Type: addedPartType(debit), AccountType: account.Type, FundAmounts: leg.FundAmounts.Clone()}}
			if !req.Date.Equal(t.Date) {
				if ev.Sequence, err = seq.nextFor(ctx, req.Date); err != nil {
					return err
				}
			}
			updated.BalanceEvents = append(updated.BalanceEvents, ev)
		}

		from := startOfDate(earliestDate(t.Date, req.Date))
		if err := engine.validateTimelines(ctx, accounts, from, updated.Events(), t.eventIDs()); err != nil {
			return err
		}
		if err := tx.SaveTransaction(ctx, updated); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("transaction_id", string(id)).Msg("transaction updated")
	return result, nil
}

// DeleteTransaction removes a transaction and its events. removedAccount
// names an account being deleted along with it: that account's initial
// transaction and posted leg do not block the delete.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id TransactionID, removedAccount *AccountID) error {
	err := s.store.WithTx(ctx, func(tx Store) error {
		engine, err := newBalanceEngine(ctx, tx)
		if err != nil {
			return err
		}
		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		return deleteTransaction(ctx, tx, engine, t, removedAccount)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("transaction_id", string(id)).Msg("transaction deleted")
	return nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error) {
	var result *Transaction
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		result, err = tx.GetTransaction(ctx, id)
		return err
	})
	return result, err
}

// ListTransactions returns the transactions owned by a period in
// (Date, Sequence) order.
func (s *TransactionService) ListTransactions(ctx context.Context, periodID AccountingPeriodID) ([]Transaction, error) {
	var result []Transaction
	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.GetAccountingPeriod(ctx, periodID); err != nil {
			return err
		}
		var err error
		result, err = tx.ListTransactionsByPeriod(ctx, periodID)
		return err
	})
	return result, err
}

// =============================================================================
// HELPERS
// =============================================================================

func lookupPeriod(periods *periodIndex, id AccountingPeriodID) (AccountingPeriod, error) {
	period, ok := periods.get(id)
	if !ok {
		return AccountingPeriod{}, newRuleError(ErrAccountingPeriodNotFound, "%s", id)
	}
	return period, nil
}

// validateLegRequest checks one requested leg. It returns the leg's account
// when it exists; only store failures are returned as errors.
func validateLegRequest(ctx context.Context, store Store, errs *ValidationErrors, kind error, leg *TransactionAccountRequest) (*Account, error) {
	if leg == nil {
		return nil, nil
	}
	if err := validateFundAmounts(ctx, store, errs, kind, leg.FundAmounts); err != nil {
		return nil, err
	}
	if leg.AccountID == "" {
		errs.Add(kind, "account is required when fund amounts are given")
		return nil, nil
	}
	account, err := store.GetAccount(ctx, leg.AccountID)
	if err != nil {
		if IsNotFound(err) {
			errs.Add(kind, "account %s does not exist", leg.AccountID)
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

// legAccounts loads the accounts of every leg, debit first.
func legAccounts(ctx context.Context, store Store, t *Transaction) ([]Account, error) {
	var accounts []Account
	for _, id := range t.AccountIDs() {
		account, err := store.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, nil
}

// addLegEvent appends a new single-part event for account to t.
func addLegEvent(ctx context.Context, seq *sequencer, t *Transaction, period PeriodKey, account Account, partType TransactionBalanceEventPartType, date Date) error {
	leg, _ := t.Leg(account.ID)
	sequence, err := seq.nextFor(ctx, date)
	if err != nil {
		return err
	}
	t.BalanceEvents = append(t.BalanceEvents, TransactionBalanceEvent{
		ID:            NewEventID(),
		TransactionID: t.ID,
		AccountID:     account.ID,
		Period:        period,
		Date:          date,
		Sequence:      sequence,
		Parts: []TransactionBalanceEventPart{
			{Type: partType, AccountType: account.Type, FundAmounts: leg.FundAmounts.Clone()},
		},
	})
	return nil
}

// postLeg records the Posted part for account on date, joining the leg's
// event on that date if there is one. It returns the new or changed event.
func postLeg(ctx context.Context, seq *sequencer, t *Transaction, period PeriodKey, account Account, debit bool, date Date) (TransactionBalanceEvent, error) {
	partType := postedPartType(debit)
	if i := t.eventOn(account.ID, date); i >= 0 {
		leg, _ := t.Leg(account.ID)
		t.BalanceEvents[i].Parts = append(t.BalanceEvents[i].Parts, TransactionBalanceEventPart{
			Type:        partType,
			AccountType: account.Type,
			FundAmounts: leg.FundAmounts.Clone(),
		})
		return t.BalanceEvents[i], nil
	}
	if err := addLegEvent(ctx, seq, t, period, account, partType, date); err != nil {
		return TransactionBalanceEvent{}, err
	}
	return t.BalanceEvents[len(t.BalanceEvents)-1], nil
}

// deleteTransaction removes t after checking that nothing blocks it and
// that the remaining timelines stay valid.
func deleteTransaction(ctx context.Context, tx Store, engine *balanceEngine, t *Transaction, removedAccount *AccountID) error {
	period, err := lookupPeriod(engine.periods, t.AccountingPeriodID)
	if err != nil {
		return err
	}
	if !period.IsOpen {
		return newRuleError(ErrInvalidAccountingPeriod, "accounting period %s is closed", period.Key())
	}
	removing := func(id AccountID) bool { return removedAccount != nil && *removedAccount == id }
	if t.IsInitialAccountTransaction() && !removing(t.InitialAccountID) {
		return newRuleError(ErrUnableToUpdate, "transaction %s opened account %s", t.ID, t.InitialAccountID)
	}
	for _, id := range t.PostedLegs() {
		if !removing(id) {
			return newRuleError(ErrUnableToUpdate, "transaction %s is posted to account %s", t.ID, id)
		}
	}

	all, err := legAccounts(ctx, tx, t)
	if err != nil {
		return err
	}
	var accounts []Account
	for _, account := range all {
		if !removing(account.ID) {
			accounts = append(accounts, account)
		}
	}
	if len(accounts) > 0 && len(t.BalanceEvents) > 0 {
		from := t.BalanceEvents[0].Date
		for _, ev := range t.BalanceEvents[1:] {
			from = earliestDate(from, ev.Date)
		}
		if err := engine.validateTimelines(ctx, accounts, startOfDate(from), nil, t.eventIDs()); err != nil {
			return err
		}
	}
	return tx.DeleteTransaction(ctx, t.ID)
}
