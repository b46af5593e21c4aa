package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// ACCOUNT BALANCE - Derived state of one account
// =============================================================================

// AccountBalance is the settled and pending money of an account, per fund.
// It is never persisted; the engine rebuilds it by folding balance events.
// Methods return new values and never mutate the receiver.
type AccountBalance struct {
	AccountID      AccountID
	AccountType    AccountType
	Balance        FundAmounts
	PendingChanges FundAmounts
}

func NewAccountBalance(account Account) AccountBalance {
	return AccountBalance{AccountID: account.ID, AccountType: account.Type}
}

func (b AccountBalance) Total() decimal.Decimal        { return b.Balance.Total() }
func (b AccountBalance) PendingTotal() decimal.Decimal { return b.PendingChanges.Total() }

func (b AccountBalance) TotalIncludingPending() decimal.Decimal {
	return b.Total().Add(b.PendingTotal())
}

// AvailableTotal is the conservative capacity of the account: pending
// decreases count against it, pending increases do not.
func (b AccountBalance) AvailableTotal() decimal.Decimal {
	return MinDecimal(b.Total(), b.TotalIncludingPending())
}

// AvailableFund is AvailableTotal restricted to one fund.
func (b AccountBalance) AvailableFund(fundID FundID) decimal.Decimal {
	settled := b.Balance.Amount(fundID)
	return MinDecimal(settled, settled.Add(b.PendingChanges.Amount(fundID)))
}

func (b AccountBalance) AddSettled(amounts ...FundAmount) AccountBalance {
	b.Balance = b.Balance.Add(amounts...)
	return b
}

func (b AccountBalance) AddPending(amounts ...FundAmount) AccountBalance {
	b.PendingChanges = b.PendingChanges.Add(amounts...)
	return b
}

// Settled drops pending changes. Checkpoints only carry settled money.
func (b AccountBalance) Settled() AccountBalance {
	b.PendingChanges = nil
	return b
}

// =============================================================================
// FUND BALANCE - Derived state of one fund, split by account
// =============================================================================

type FundBalance struct {
	FundID         FundID
	Balance        AccountAmounts
	PendingChanges AccountAmounts
}

func NewFundBalance(fund Fund) FundBalance {
	return FundBalance{FundID: fund.ID}
}

func (b FundBalance) Total() decimal.Decimal        { return b.Balance.Total() }
func (b FundBalance) PendingTotal() decimal.Decimal { return b.PendingChanges.Total() }

func (b FundBalance) TotalIncludingPending() decimal.Decimal {
	return b.Total().Add(b.PendingTotal())
}

func (b FundBalance) AddSettled(amounts ...AccountAmount) FundBalance {
	b.Balance = b.Balance.Add(amounts...)
	return b
}

func (b FundBalance) AddPending(amounts ...AccountAmount) FundBalance {
	b.PendingChanges = b.PendingChanges.Add(amounts...)
	return b
}

func (b FundBalance) Settled() FundBalance {
	b.PendingChanges = nil
	return b
}

// =============================================================================
// QUERY RESULTS
// =============================================================================

type AccountBalanceByDate struct {
	Date    Date
	Balance AccountBalance
}

type AccountBalanceByEvent struct {
	Event   BalanceEvent
	Balance AccountBalance
}

// AccountBalanceByAccountingPeriod holds the balance at both ends of a
// period. Ending.PendingChanges is the period's ending pending amount.
type AccountBalanceByAccountingPeriod struct {
	AccountingPeriod AccountingPeriod
	Starting         AccountBalance
	Ending           AccountBalance
}

type FundBalanceByDate struct {
	Date    Date
	Balance FundBalance
}

type FundBalanceByEvent struct {
	Event   BalanceEvent
	Balance FundBalance
}

type FundBalanceByAccountingPeriod struct {
	AccountingPeriod AccountingPeriod
	Starting         FundBalance
	Ending           FundBalance
}
