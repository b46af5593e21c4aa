package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// CHANGE IN VALUE - Settled gain or loss on one fund of one account
// =============================================================================

// ChangeInValue records interest, fees or market movement. A positive amount
// raises the settled balance and a negative amount lowers it.
type ChangeInValue struct {
	ID          EventID
	AccountID   AccountID
	Period      PeriodKey
	Date        Date
	Sequence    int
	FundAmount  FundAmount
	Description string
}

func (c ChangeInValue) EventID() EventID            { return c.ID }
func (c ChangeInValue) Kind() EventKind             { return EventChangeInValue }
func (c ChangeInValue) AccountingPeriod() PeriodKey { return c.Period }
func (c ChangeInValue) EventDate() Date             { return c.Date }
func (c ChangeInValue) EventSequence() int          { return c.Sequence }
func (c ChangeInValue) AccountIDs() []AccountID     { return []AccountID{c.AccountID} }
func (c ChangeInValue) FundIDs() []FundID           { return []FundID{c.FundAmount.FundID} }

func (c ChangeInValue) signedAmount(direction ApplicationDirection) FundAmount {
	return FundAmount{
		FundID: c.FundAmount.FundID,
		Amount: c.FundAmount.Amount.Mul(decimal.NewFromInt(int64(direction.sign()))),
	}
}

// IsValidToApply accepts any gain. A loss must fit within the account's
// available total.
func (c ChangeInValue) IsValidToApply(current AccountBalance) error {
	if current.AccountID != c.AccountID || !c.FundAmount.Amount.IsNegative() {
		return nil
	}
	available := current.AvailableTotal()
	if available.Add(c.FundAmount.Amount).IsNegative() {
		return &NegativeBalanceError{
			AccountID: c.AccountID,
			EventID:   c.ID,
			Date:      c.Date,
			Available: available,
			Requested: c.FundAmount.Amount.Neg(),
		}
	}
	return nil
}

func (c ChangeInValue) ApplyToAccountBalance(current AccountBalance, direction ApplicationDirection) AccountBalance {
	if current.AccountID != c.AccountID {
		return current
	}
	return current.AddSettled(c.signedAmount(direction))
}

func (c ChangeInValue) ApplyToFundBalance(current FundBalance, direction ApplicationDirection) FundBalance {
	if current.FundID != c.FundAmount.FundID {
		return current
	}
	return current.AddSettled(AccountAmount{AccountID: c.AccountID, Amount: c.signedAmount(direction).Amount})
}
