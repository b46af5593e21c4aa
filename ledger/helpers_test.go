package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atforche/financial-tracker/ledger"
	"github.com/atforche/financial-tracker/ledger/store"
)

// fixture drives a ledger over an in-memory store. Every helper fails the
// test on error so scenarios read as a list of steps.
type fixture struct {
	t   *testing.T
	ctx context.Context
	l   *ledger.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, ctx: context.Background(), l: ledger.New(store.NewMemory(), zerolog.Nop())}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(s string) ledger.Date { return ledger.MustParseDate(s) }

func amt(fund ledger.Fund, s string) ledger.FundAmount { return ledger.NewFundAmount(fund.ID, dec(s)) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got}, msgAndArgs...)...)
}

func (f *fixture) period(year int, month time.Month) ledger.AccountingPeriod {
	f.t.Helper()
	p, err := f.l.Periods.CreateAccountingPeriod(f.ctx, year, month)
	require.NoError(f.t, err)
	return *p
}

func (f *fixture) close(p ledger.AccountingPeriod) ledger.AccountingPeriod {
	f.t.Helper()
	closed, err := f.l.Periods.ClosePeriod(f.ctx, p.ID)
	require.NoError(f.t, err)
	return *closed
}

func (f *fixture) fund(name string) ledger.Fund {
	f.t.Helper()
	fund, err := f.l.Funds.CreateFund(f.ctx, ledger.CreateFundRequest{Name: name})
	require.NoError(f.t, err)
	return *fund
}

func (f *fixture) account(name string, typ ledger.AccountType, p ledger.AccountingPeriod, on string, amounts ...ledger.FundAmount) ledger.Account {
	f.t.Helper()
	account, err := f.l.Accounts.CreateAccount(f.ctx, ledger.CreateAccountRequest{
		Name:               name,
		Type:               typ,
		AccountingPeriodID: p.ID,
		Date:               date(on),
		FundAmounts:        amounts,
	})
	require.NoError(f.t, err)
	return *account
}

func (f *fixture) addDebit(p ledger.AccountingPeriod, on string, account ledger.Account, amounts ...ledger.FundAmount) (*ledger.Transaction, error) {
	return f.l.Transactions.AddTransaction(f.ctx, ledger.AddTransactionRequest{
		AccountingPeriodID: p.ID,
		Date:               date(on),
		DebitAccount:       &ledger.TransactionAccountRequest{AccountID: account.ID, FundAmounts: amounts},
	})
}

func (f *fixture) debit(p ledger.AccountingPeriod, on string, account ledger.Account, amounts ...ledger.FundAmount) ledger.Transaction {
	f.t.Helper()
	t, err := f.addDebit(p, on, account, amounts...)
	require.NoError(f.t, err)
	return *t
}

func (f *fixture) credit(p ledger.AccountingPeriod, on string, account ledger.Account, amounts ...ledger.FundAmount) ledger.Transaction {
	f.t.Helper()
	t, err := f.l.Transactions.AddTransaction(f.ctx, ledger.AddTransactionRequest{
		AccountingPeriodID: p.ID,
		Date:               date(on),
		CreditAccount:      &ledger.TransactionAccountRequest{AccountID: account.ID, FundAmounts: amounts},
	})
	require.NoError(f.t, err)
	return *t
}

func (f *fixture) post(t ledger.Transaction, account ledger.Account, on string) ledger.Transaction {
	f.t.Helper()
	posted, err := f.l.Transactions.PostTransaction(f.ctx, t.ID, account.ID, date(on))
	require.NoError(f.t, err)
	return *posted
}

func (f *fixture) byPeriod(account ledger.Account, p ledger.AccountingPeriod) ledger.AccountBalanceByAccountingPeriod {
	f.t.Helper()
	b, err := f.l.Balances.AccountBalanceByAccountingPeriod(f.ctx, account.ID, p.ID)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) asOf(account ledger.Account, on string) ledger.AccountBalance {
	f.t.Helper()
	b, err := f.l.Balances.AccountBalanceAsOf(f.ctx, account.ID, date(on))
	require.NoError(f.t, err)
	return b
}

func (f *fixture) byDate(account ledger.Account, from, to string) []ledger.AccountBalanceByDate {
	f.t.Helper()
	b, err := f.l.Balances.AccountBalancesByDate(f.ctx, account.ID, ledger.DateRange{Start: date(from), End: date(to)})
	require.NoError(f.t, err)
	return b
}
