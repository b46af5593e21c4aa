package ledger

import (
	"context"

	"github.com/rs/zerolog"
)

// =============================================================================
// ACCOUNT SERVICE
// =============================================================================

type CreateAccountRequest struct {
	Name               string
	Type               AccountType
	AccountingPeriodID AccountingPeriodID
	Date               Date

	// FundAmounts seed the starting balance. Empty means the account starts
	// at zero and gets no initial transaction.
	FundAmounts FundAmounts
}

type AccountService struct {
	store TxStore
	log   zerolog.Logger
}

func NewAccountService(store TxStore, log zerolog.Logger) *AccountService {
	return &AccountService{store: store, log: log}
}

// CreateAccount opens an account. A non-empty starting balance is recorded
// as an initial transaction with one leg that is added and posted on the
// initial date: credit for standard accounts, debit for debt accounts.
func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	var result *Account
	err := s.store.WithTx(ctx, func(tx Store) error {
		periods, err := loadPeriods(ctx, tx)
		if err != nil {
			return err
		}
		period, err := lookupPeriod(periods, req.AccountingPeriodID)
		if err != nil {
			return err
		}

		var errs ValidationErrors
		name := validateName(&errs, req.Name)
		if err := requireUniqueAccountName(ctx, tx, &errs, name, ""); err != nil {
			return err
		}
		if !req.Type.IsValid() {
			errs.Add(ErrInvalidAccount, "unknown account type %q", req.Type)
		}
		validateEventDate(&errs, periods, period, req.Date)
		if len(req.FundAmounts) > 0 {
			if err := validateFundAmounts(ctx, tx, &errs, ErrInvalidAmount, req.FundAmounts); err != nil {
				return err
			}
		}
		if err := errs.Err(); err != nil {
			return err
		}

		account := Account{
			ID:                        NewAccountID(),
			Name:                      name,
			Type:                      req.Type,
			InitialAccountingPeriodID: period.ID,
			InitialDate:               req.Date,
		}
		var initial *Transaction
		if len(req.FundAmounts) > 0 {
			if initial, err = initialTransaction(ctx, tx, period, account, req.FundAmounts); err != nil {
				return err
			}
			account.InitialTransactionID = initial.ID
		}

		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		if initial != nil {
			if err := tx.SaveTransaction(ctx, initial); err != nil {
				return err
			}
		}
		result = &account
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", string(result.ID)).
		Str("name", result.Name).
		Str("type", string(result.Type)).
		Msg("account created")
	return result, nil
}

func initialTransaction(ctx context.Context, tx Store, period AccountingPeriod, account Account, amounts FundAmounts) (*Transaction, error) {
	sequence, err := tx.NextTransactionSequence(ctx, account.InitialDate)
	if err != nil {
		return nil, err
	}
	date := account.InitialDate
	t := &Transaction{
		ID:                 NewTransactionID(),
		AccountingPeriodID: period.ID,
		Date:               date,
		Sequence:           sequence,
		Description:        "Opening balance",
		InitialAccountID:   account.ID,
	}
	leg := &TransactionAccount{AccountID: account.ID, FundAmounts: amounts.Clone(), PostedDate: &date}
	debit := account.Type == AccountDebt
	if debit {
		t.DebitAccount = leg
	} else {
		t.CreditAccount = leg
	}

	seq := newSequencer(tx)
	if err := addLegEvent(ctx, seq, t, period.Key(), account, addedPartType(debit), date); err != nil {
		return nil, err
	}
	if _, err := postLeg(ctx, seq, t, period.Key(), account, debit, date); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *AccountService) RenameAccount(ctx context.Context, id AccountID, name string) (*Account, error) {
	var result *Account
	err := s.store.WithTx(ctx, func(tx Store) error {
		account, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		var errs ValidationErrors
		name := validateName(&errs, name)
		if err := requireUniqueAccountName(ctx, tx, &errs, name, id); err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}
		account.Name = name
		if err := tx.SaveAccount(ctx, *account); err != nil {
			return err
		}
		result = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("account_id", string(id)).Str("name", result.Name).Msg("account renamed")
	return result, nil
}

// DeleteAccount removes an account that has no activity beyond its initial
// transaction, while its initial accounting period is still open.
func (s *AccountService) DeleteAccount(ctx context.Context, id AccountID) error {
	err := s.store.WithTx(ctx, func(tx Store) error {
		engine, err := newBalanceEngine(ctx, tx)
		if err != nil {
			return err
		}
		account, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		period, err := lookupPeriod(engine.periods, account.InitialAccountingPeriodID)
		if err != nil {
			return err
		}
		if !period.IsOpen {
			return newRuleError(ErrInvalidAccountingPeriod, "accounting period %s is closed", period.Key())
		}

		for _, p := range engine.periods.ordered {
			if p.Key().Before(period.Key()) {
				continue
			}
			events, err := tx.EventsByPeriod(ctx, p.Key())
			if err != nil {
				return err
			}
			for _, ev := range events {
				if !touchesAccount(ev, id) {
					continue
				}
				if te, ok := ev.(TransactionBalanceEvent); ok && te.TransactionID == account.InitialTransactionID {
					continue
				}
				return newRuleError(ErrUnableToUpdate, "account %q has activity in %s", account.Name, p.Key())
			}
		}

		if account.InitialTransactionID != "" {
			initial, err := tx.GetTransaction(ctx, account.InitialTransactionID)
			if err != nil {
				return err
			}
			if err := deleteTransaction(ctx, tx, engine, initial, &id); err != nil {
				return err
			}
		}
		return tx.DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("account_id", string(id)).Msg("account deleted")
	return nil
}

func (s *AccountService) GetAccount(ctx context.Context, id AccountID) (*Account, error) {
	var result *Account
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		result, err = tx.GetAccount(ctx, id)
		return err
	})
	return result, err
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]Account, error) {
	var result []Account
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		result, err = tx.ListAccounts(ctx)
		return err
	})
	return result, err
}

func requireUniqueAccountName(ctx context.Context, store Store, errs *ValidationErrors, name string, self AccountID) error {
	if name == "" {
		return nil
	}
	existing, err := store.FindAccountByName(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		errs.Add(ErrInvalidName, "an account named %q already exists", name)
	}
	return nil
}

// =============================================================================
// FUND SERVICE
// =============================================================================

type CreateFundRequest struct {
	Name        string
	Description string
}

type FundService struct {
	store TxStore
	log   zerolog.Logger
}

func NewFundService(store TxStore, log zerolog.Logger) *FundService {
	return &FundService{store: store, log: log}
}

func (s *FundService) CreateFund(ctx context.Context, req CreateFundRequest) (*Fund, error) {
	var result *Fund
	err := s.store.WithTx(ctx, func(tx Store) error {
		var errs ValidationErrors
		name := validateName(&errs, req.Name)
		if err := requireUniqueFundName(ctx, tx, &errs, name, ""); err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}
		fund := Fund{ID: NewFundID(), Name: name, Description: req.Description}
		if err := tx.SaveFund(ctx, fund); err != nil {
			return err
		}
		result = &fund
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("fund_id", string(result.ID)).Str("name", result.Name).Msg("fund created")
	return result, nil
}

func (s *FundService) RenameFund(ctx context.Context, id FundID, name string) (*Fund, error) {
	var result *Fund
	err := s.store.WithTx(ctx, func(tx Store) error {
		fund, err := tx.GetFund(ctx, id)
		if err != nil {
			return err
		}
		var errs ValidationErrors
		name := validateName(&errs, name)
		if err := requireUniqueFundName(ctx, tx, &errs, name, id); err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}
		fund.Name = name
		if err := tx.SaveFund(ctx, *fund); err != nil {
			return err
		}
		result = fund
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("fund_id", string(id)).Str("name", result.Name).Msg("fund renamed")
	return result, nil
}

// DeleteFund removes a fund that no balance event has ever touched.
func (s *FundService) DeleteFund(ctx context.Context, id FundID) error {
	err := s.store.WithTx(ctx, func(tx Store) error {
		fund, err := tx.GetFund(ctx, id)
		if err != nil {
			return err
		}
		periods, err := tx.ListAccountingPeriods(ctx)
		if err != nil {
			return err
		}
		for _, p := range periods {
			events, err := tx.EventsByPeriod(ctx, p.Key())
			if err != nil {
				return err
			}
			for _, ev := range events {
				if touchesFund(ev, id) {
					return newRuleError(ErrUnableToUpdate, "fund %q has activity in %s", fund.Name, p.Key())
				}
			}
		}
		return tx.DeleteFund(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("fund_id", string(id)).Msg("fund deleted")
	return nil
}

func (s *FundService) GetFund(ctx context.Context, id FundID) (*Fund, error) {
	var result *Fund
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		result, err = tx.GetFund(ctx, id)
		return err
	})
	return result, err
}

func (s *FundService) ListFunds(ctx context.Context) ([]Fund, error) {
	var result []Fund
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		result, err = tx.ListFunds(ctx)
		return err
	})
	return result, err
}

func requireUniqueFundName(ctx context.Context, store Store, errs *ValidationErrors, name string, self FundID) error {
	if name == "" {
		return nil
	}
	existing, err := store.FindFundByName(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		errs.Add(ErrInvalidName, "a fund named %q already exists", name)
	}
	return nil
}
