/*
store.go - Persistence interfaces for ledger entities and balance events

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Every repository the services need, bound to one unit of work
  TxStore: Runs a function against a Store atomically

UNIT OF WORK:
  Every command and query runs inside TxStore.WithTx. Implementations
  serialize units of work so that the per-date sequence counters and the
  "earliest open period" check never race. If fn returns an error nothing
  it wrote is kept.

EVENT INDEX:
  EventsByPeriod is the arena lookup the engine is built on: all balance
  events owned by one calendar month, of every kind. Transaction balance
  events are persisted together with their transaction.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - balance_service.go: Main consumer of EventsByPeriod
*/
package ledger

import "context"

// =============================================================================
// REPOSITORIES
// =============================================================================

// Get* methods return the matching Err*NotFound error when nothing matches.
// Find* methods return (nil, nil) instead.

type AccountRepository interface {
	GetAccount(ctx context.Context, id AccountID) (*Account, error)
	FindAccountByName(ctx context.Context, name string) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	SaveAccount(ctx context.Context, account Account) error
	DeleteAccount(ctx context.Context, id AccountID) error
}

type FundRepository interface {
	GetFund(ctx context.Context, id FundID) (*Fund, error)
	FindFundByName(ctx context.Context, name string) (*Fund, error)
	ListFunds(ctx context.Context) ([]Fund, error)
	SaveFund(ctx context.Context, fund Fund) error
	// DeleteFund removes the fund and its checkpoints.
	DeleteFund(ctx context.Context, id FundID) error
}

type AccountingPeriodRepository interface {
	GetAccountingPeriod(ctx context.Context, id AccountingPeriodID) (*AccountingPeriod, error)

	// ListAccountingPeriods returns every period ordered by (Year, Month).
	ListAccountingPeriods(ctx context.Context) ([]AccountingPeriod, error)

	SaveAccountingPeriod(ctx context.Context, period AccountingPeriod) error
	DeleteAccountingPeriod(ctx context.Context, id AccountingPeriodID) error
}

type TransactionRepository interface {
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	ListTransactionsByPeriod(ctx context.Context, periodID AccountingPeriodID) ([]Transaction, error)

	// SaveTransaction upserts the transaction and replaces its balance events.
	SaveTransaction(ctx context.Context, tx *Transaction) error

	// DeleteTransaction removes the transaction and its balance events.
	DeleteTransaction(ctx context.Context, id TransactionID) error

	// NextTransactionSequence returns 1 + the highest transaction sequence
	// used on date.
	NextTransactionSequence(ctx context.Context, date Date) (int, error)
}

type BalanceEventRepository interface {
	// EventsByPeriod returns every balance event owned by the period.
	EventsByPeriod(ctx context.Context, period PeriodKey) ([]BalanceEvent, error)

	// NextEventSequence returns 1 + the highest event sequence used on date,
	// across all event kinds.
	NextEventSequence(ctx context.Context, date Date) (int, error)

	SaveChangeInValue(ctx context.Context, event ChangeInValue) error
	SaveFundConversion(ctx context.Context, event FundConversion) error
}

type CheckpointRepository interface {
	ListAccountCheckpoints(ctx context.Context, accountID AccountID) ([]AccountBalanceCheckpoint, error)
	SaveAccountCheckpoint(ctx context.Context, checkpoint AccountBalanceCheckpoint) error
	ListFundCheckpoints(ctx context.Context, fundID FundID) ([]FundBalanceCheckpoint, error)
	SaveFundCheckpoint(ctx context.Context, checkpoint FundBalanceCheckpoint) error
	DeleteCheckpointsForPeriod(ctx context.Context, periodID AccountingPeriodID) error
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	AccountRepository
	FundRepository
	AccountingPeriodRepository
	TransactionRepository
	BalanceEventRepository
	CheckpointRepository
}

// TxStore runs units of work.
type TxStore interface {
	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// loadPeriods reads every accounting period into an index.
func loadPeriods(ctx context.Context, store Store) (*periodIndex, error) {
	periods, err := store.ListAccountingPeriods(ctx)
	if err != nil {
		return nil, err
	}
	return newPeriodIndex(periods), nil
}
