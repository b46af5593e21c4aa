/*
Package ledger provides the accounting ledger and balance reconstruction engine.

PURPOSE:
  Money lives in Accounts and is earmarked into Funds. Every change to a
  balance is recorded as a dated, sequenced Balance Event owned by an
  Accounting Period (a calendar month). Balances are never stored directly:
  they are rebuilt by folding events on top of the nearest checkpoint.

KEY CONCEPTS IN THIS FILE (types.go):
  - Identifiers: Type-safe ids for accounts, funds, periods, transactions
  - AccountType: Standard or Debt (decides debit/credit polarity)
  - EventKind: Which concrete Balance Event a record holds

DESIGN PRINCIPLES:
  1. Derived balances: AccountBalance and FundBalance are always computed
  2. Precision: All amounts use decimal.Decimal
  3. Total order: Events are ordered by (EventDate, EventSequence)
  4. Atomic commands: Every command runs inside one TxStore unit of work

USAGE:
  l := ledger.New(store.NewMemory(), logger.New("info"))
  period, _ := l.Periods.CreateAccountingPeriod(ctx, 2024, time.November)
  fund, _ := l.Funds.CreateFund(ctx, ledger.CreateFundRequest{Name: "Savings"})

SEE ALSO:
  - amounts.go: FundAmount value type
  - event.go: Balance Event contract
  - balance_service.go: Balance computation engine
  - store.go: Repository interfaces
*/
package ledger

import (
	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type FundID string
type AccountingPeriodID string
type TransactionID string
type EventID string
type CheckpointID string

func NewAccountID() AccountID                   { return AccountID(uuid.NewString()) }
func NewFundID() FundID                         { return FundID(uuid.NewString()) }
func NewAccountingPeriodID() AccountingPeriodID { return AccountingPeriodID(uuid.NewString()) }
func NewTransactionID() TransactionID           { return TransactionID(uuid.NewString()) }
func NewEventID() EventID                       { return EventID(uuid.NewString()) }
func NewCheckpointID() CheckpointID             { return CheckpointID(uuid.NewString()) }

// =============================================================================
// ACCOUNT TYPE
// =============================================================================

type AccountType string

const (
	AccountStandard AccountType = "standard" // Checking, savings, cash
	AccountDebt     AccountType = "debt"     // Credit cards, loans
)

func (t AccountType) IsValid() bool {
	return t == AccountStandard || t == AccountDebt
}

// =============================================================================
// EVENT KIND
// =============================================================================

type EventKind string

const (
	EventTransaction    EventKind = "transaction"
	EventChangeInValue  EventKind = "change_in_value"
	EventFundConversion EventKind = "fund_conversion"
)
