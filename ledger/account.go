package ledger

// =============================================================================
// ACCOUNT
// =============================================================================

// Account holds money. Its starting balance is seeded by a synthetic initial
// transaction posted on InitialDate inside InitialAccountingPeriodID.
type Account struct {
	ID                        AccountID
	Name                      string
	Type                      AccountType
	InitialAccountingPeriodID AccountingPeriodID
	InitialDate               Date
	InitialTransactionID      TransactionID // empty when the account started at zero
}

// =============================================================================
// FUND
// =============================================================================

// Fund earmarks money across accounts. Funds own no transactions.
type Fund struct {
	ID          FundID
	Name        string
	Description string
}

// =============================================================================
// CHECKPOINTS - Settled balances carried into a period
// =============================================================================

// AccountBalanceCheckpoint is the settled balance of an account at the start
// of AccountingPeriodID. It is created when the previous period closes and
// never changes afterwards.
type AccountBalanceCheckpoint struct {
	ID                 CheckpointID
	AccountID          AccountID
	AccountingPeriodID AccountingPeriodID
	FundBalances       FundAmounts
}

type FundBalanceCheckpoint struct {
	ID                 CheckpointID
	FundID             FundID
	AccountingPeriodID AccountingPeriodID
	AccountBalances    AccountAmounts
}
