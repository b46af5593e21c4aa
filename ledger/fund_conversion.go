package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// FUND CONVERSION - Settled money moved between funds inside one account
// =============================================================================

type FundConversion struct {
	ID          EventID
	AccountID   AccountID
	Period      PeriodKey
	Date        Date
	Sequence    int
	FromFundID  FundID
	ToFundID    FundID
	Amount      decimal.Decimal
	Description string
}

func (f FundConversion) EventID() EventID            { return f.ID }
func (f FundConversion) Kind() EventKind             { return EventFundConversion }
func (f FundConversion) AccountingPeriod() PeriodKey { return f.Period }
func (f FundConversion) EventDate() Date             { return f.Date }
func (f FundConversion) EventSequence() int          { return f.Sequence }
func (f FundConversion) AccountIDs() []AccountID     { return []AccountID{f.AccountID} }
func (f FundConversion) FundIDs() []FundID           { return []FundID{f.FromFundID, f.ToFundID} }

// IsValidToApply requires the source fund to hold at least the converted
// amount once its pending decreases are taken into account.
func (f FundConversion) IsValidToApply(current AccountBalance) error {
	if current.AccountID != f.AccountID {
		return nil
	}
	if !current.Balance.Contains(f.FromFundID) {
		return newRuleError(ErrInvalidFund, "account %s holds nothing in fund %s on %s", f.AccountID, f.FromFundID, f.Date)
	}
	available := current.AvailableFund(f.FromFundID)
	if available.LessThan(f.Amount) {
		return &NegativeBalanceError{
			AccountID: f.AccountID,
			EventID:   f.ID,
			Date:      f.Date,
			Available: available,
			Requested: f.Amount,
		}
	}
	return nil
}

func (f FundConversion) amounts(direction ApplicationDirection) (from, to decimal.Decimal) {
	if direction == DirectionReverse {
		return f.Amount, f.Amount.Neg()
	}
	return f.Amount.Neg(), f.Amount
}

func (f FundConversion) ApplyToAccountBalance(current AccountBalance, direction ApplicationDirection) AccountBalance {
	if current.AccountID != f.AccountID {
		return current
	}
	from, to := f.amounts(direction)
	return current.AddSettled(
		FundAmount{FundID: f.FromFundID, Amount: from},
		FundAmount{FundID: f.ToFundID, Amount: to},
	)
}

func (f FundConversion) ApplyToFundBalance(current FundBalance, direction ApplicationDirection) FundBalance {
	from, to := f.amounts(direction)
	switch current.FundID {
	case f.FromFundID:
		return current.AddSettled(AccountAmount{AccountID: f.AccountID, Amount: from})
	case f.ToFundID:
		return current.AddSettled(AccountAmount{AccountID: f.AccountID, Amount: to})
	}
	return current
}
