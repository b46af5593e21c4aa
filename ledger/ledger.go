package ledger

import "github.com/rs/zerolog"

// =============================================================================
// LEDGER - Every service over one store
// =============================================================================

// Ledger groups the services that share a store. Commands on any of them
// are serialized by the store's unit of work.
type Ledger struct {
	Periods      *AccountingPeriodService
	Accounts     *AccountService
	Funds        *FundService
	Transactions *TransactionService
	Adjustments  *AdjustmentService
	Balances     *BalanceService
}

func New(store TxStore, log zerolog.Logger) *Ledger {
	return &Ledger{
		Periods:      NewAccountingPeriodService(store, log.With().Str("service", "periods").Logger()),
		Accounts:     NewAccountService(store, log.With().Str("service", "accounts").Logger()),
		Funds:        NewFundService(store, log.With().Str("service", "funds").Logger()),
		Transactions: NewTransactionService(store, log.With().Str("service", "transactions").Logger()),
		Adjustments:  NewAdjustmentService(store, log.With().Str("service", "adjustments").Logger()),
		Balances:     NewBalanceService(store),
	}
}
