package ledger

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ADJUSTMENTS - Changes in value and fund conversions
// =============================================================================

// Both adjustments change the settled balance of one account directly and
// are recorded as standalone balance events.

type AddChangeInValueRequest struct {
	AccountingPeriodID AccountingPeriodID
	Date               Date
	AccountID          AccountID
	FundAmount         FundAmount // negative for losses and fees
	Description        string
}

type AddFundConversionRequest struct {
	AccountingPeriodID AccountingPeriodID
	Date               Date
	AccountID          AccountID
	FromFundID         FundID
	ToFundID           FundID
	Amount             decimal.Decimal
	Description        string
}

type AdjustmentService struct {
	store TxStore
	log   zerolog.Logger
}

func NewAdjustmentService(store TxStore, log zerolog.Logger) *AdjustmentService {
	return &AdjustmentService{store: store, log: log}
}

func (s *AdjustmentService) AddChangeInValue(ctx context.Context, req AddChangeInValueRequest) (*ChangeInValue, error) {
	var result *ChangeInValue
	err := s.store.WithTx(ctx, func(tx Store) error {
		engine, account, period, err := s.prepare(ctx, tx, req.AccountingPeriodID, req.AccountID, req.Date, func(errs *ValidationErrors) error {
			if req.FundAmount.Amount.IsZero() {
				errs.Add(ErrInvalidAmount, "change in value must not be zero")
			}
			return requireFund(ctx, tx, errs, req.FundAmount.FundID)
		})
		if err != nil {
			return err
		}

		sequence, err := tx.NextEventSequence(ctx, req.Date)
		if err != nil {
			return err
		}
		event := ChangeInValue{
			ID:          NewEventID(),
			AccountID:   account.ID,
			Period:      period.Key(),
			Date:        req.Date,
			Sequence:    sequence,
			FundAmount:  req.FundAmount,
			Description: req.Description,
		}
		if err := engine.validateTimelines(ctx, []Account{*account}, startOfDate(req.Date), []BalanceEvent{event}, nil); err != nil {
			return err
		}
		if err := tx.SaveChangeInValue(ctx, event); err != nil {
			return err
		}
		result = &event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("event_id", string(result.ID)).
		Str("account_id", string(result.AccountID)).
		Str("fund_id", string(result.FundAmount.FundID)).
		Str("amount", result.FundAmount.Amount.String()).
		Msg("change in value added")
	return result, nil
}

func (s *AdjustmentService) AddFundConversion(ctx context.Context, req AddFundConversionRequest) (*FundConversion, error) {
	var result *FundConversion
	err := s.store.WithTx(ctx, func(tx Store) error {
		engine, account, period, err := s.prepare(ctx, tx, req.AccountingPeriodID, req.AccountID, req.Date, func(errs *ValidationErrors) error {
			if !req.Amount.IsPositive() {
				errs.Add(ErrInvalidAmount, "conversion amount must be positive, got %s", req.Amount)
			}
			if req.FromFundID == req.ToFundID {
				errs.Add(ErrInvalidFund, "cannot convert fund %s into itself", req.FromFundID)
			}
			if err := requireFund(ctx, tx, errs, req.FromFundID); err != nil {
				return err
			}
			return requireFund(ctx, tx, errs, req.ToFundID)
		})
		if err != nil {
			return err
		}

		sequence, err := tx.NextEventSequence(ctx, req.Date)
		if err != nil {
			return err
		}
		event := FundConversion{
			ID:          NewEventID(),
			AccountID:   account.ID,
			Period:      period.Key(),
			Date:        req.Date,
			Sequence:    sequence,
			FromFundID:  req.FromFundID,
			ToFundID:    req.ToFundID,
			Amount:      req.Amount,
			Description: req.Description,
		}
		if err := engine.validateTimelines(ctx, []Account{*account}, startOfDate(req.Date), []BalanceEvent{event}, nil); err != nil {
			return err
		}
		if err := tx.SaveFundConversion(ctx, event); err != nil {
			return err
		}
		result = &event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("event_id", string(result.ID)).
		Str("account_id", string(result.AccountID)).
		Str("from_fund_id", string(result.FromFundID)).
		Str("to_fund_id", string(result.ToFundID)).
		Str("amount", result.Amount.String()).
		Msg("fund conversion added")
	return result, nil
}

// prepare runs the checks every adjustment shares plus the extra ones in
// check, and returns everything needed to build the event.
func (s *AdjustmentService) prepare(
	ctx context.Context,
	tx Store,
	periodID AccountingPeriodID,
	accountID AccountID,
	date Date,
	check func(errs *ValidationErrors) error,
) (*balanceEngine, *Account, AccountingPeriod, error) {
	engine, err := newBalanceEngine(ctx, tx)
	if err != nil {
		return nil, nil, AccountingPeriod{}, err
	}
	period, err := lookupPeriod(engine.periods, periodID)
	if err != nil {
		return nil, nil, period, err
	}

	var errs ValidationErrors
	account, err := tx.GetAccount(ctx, accountID)
	switch {
	case IsNotFound(err):
		errs.Add(ErrInvalidAccount, "account %s does not exist", accountID)
	case err != nil:
		return nil, nil, period, err
	default:
		validateEventDate(&errs, engine.periods, period, date, *account)
	}
	if account == nil {
		validateEventDate(&errs, engine.periods, period, date)
	}
	if err := check(&errs); err != nil {
		return nil, nil, period, err
	}
	if err := errs.Err(); err != nil {
		return nil, nil, period, err
	}
	return engine, account, period, nil
}
