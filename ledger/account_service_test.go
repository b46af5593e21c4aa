package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atforche/financial-tracker/ledger"
)

func TestCreateAccount(t *testing.T) {
	// GIVEN: A period and two funds
	f := newFixture(t)
	nov := f.period(2024, time.November)
	rent := f.fund("Rent")
	food := f.fund("Food")

	// WHEN: Opening an account with money in both funds
	account := f.account("  Checking ", ledger.AccountStandard, nov, "2024-11-04", amt(rent, "1000"), amt(food, "250"))

	// THEN: The name is trimmed and an opening transaction is posted
	assert.Equal(t, "Checking", account.Name)
	require.NotEmpty(t, account.InitialTransactionID)

	opening, err := f.l.Transactions.GetTransaction(f.ctx, account.InitialTransactionID)
	require.NoError(t, err)
	require.NotNil(t, opening.CreditAccount)
	assert.Nil(t, opening.DebitAccount)
	assert.True(t, opening.CreditAccount.IsPosted())
	require.Len(t, opening.BalanceEvents, 1)
	assert.Len(t, opening.BalanceEvents[0].Parts, 2)

	// THEN: The opening balance is the period's starting balance
	b := f.byPeriod(account, nov)
	assertDecimal(t, "1250", b.Starting.Total())
	assertDecimal(t, "1250", b.Ending.Total())
	assertDecimal(t, "250", b.Starting.Balance.Amount(food.ID))
}

func TestCreateAccount_Empty(t *testing.T) {
	// GIVEN: A period
	f := newFixture(t)
	nov := f.period(2024, time.November)

	// WHEN: Opening an account with no money
	account := f.account("Cash", ledger.AccountStandard, nov, "2024-11-01")

	// THEN: No opening transaction exists and the balance is empty
	assert.Empty(t, account.InitialTransactionID)
	assert.Empty(t, f.asOf(account, "2024-11-30").Balance)
}

func TestCreateAccount_Debt(t *testing.T) {
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")

	card := f.account("Card", ledger.AccountDebt, nov, "2024-11-01", amt(fund, "400"))

	opening, err := f.l.Transactions.GetTransaction(f.ctx, card.InitialTransactionID)
	require.NoError(t, err)
	assert.NotNil(t, opening.DebitAccount)
	assertDecimal(t, "400", f.asOf(card, "2024-11-01").Total())
}

func TestCreateAccount_Rules(t *testing.T) {
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	f.account("Checking", ledger.AccountStandard, nov, "2024-11-01")

	tests := []struct {
		name    string
		req     ledger.CreateAccountRequest
		wantErr error
	}{
		{"duplicate name", ledger.CreateAccountRequest{Name: "Checking", Type: ledger.AccountStandard, AccountingPeriodID: nov.ID, Date: date("2024-11-01")}, ledger.ErrInvalidName},
		{"blank name", ledger.CreateAccountRequest{Name: " ", Type: ledger.AccountStandard, AccountingPeriodID: nov.ID, Date: date("2024-11-01")}, ledger.ErrInvalidName},
		{"unknown type", ledger.CreateAccountRequest{Name: "Other", Type: "brokerage", AccountingPeriodID: nov.ID, Date: date("2024-11-01")}, ledger.ErrInvalidAccount},
		{"unknown period", ledger.CreateAccountRequest{Name: "Other", Type: ledger.AccountStandard, AccountingPeriodID: "missing", Date: date("2024-11-01")}, ledger.ErrAccountingPeriodNotFound},
		{"date too far", ledger.CreateAccountRequest{Name: "Other", Type: ledger.AccountStandard, AccountingPeriodID: nov.ID, Date: date("2025-01-01")}, ledger.ErrInvalidTransactionDate},
		{"negative amount", ledger.CreateAccountRequest{Name: "Other", Type: ledger.AccountStandard, AccountingPeriodID: nov.ID, Date: date("2024-11-01"), FundAmounts: ledger.FundAmounts{amt(fund, "-1")}}, ledger.ErrInvalidAmount},
		{"unknown fund", ledger.CreateAccountRequest{Name: "Other", Type: ledger.AccountStandard, AccountingPeriodID: nov.ID, Date: date("2024-11-01"), FundAmounts: ledger.FundAmounts{ledger.NewFundAmount("missing", dec("1"))}}, ledger.ErrInvalidFund},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.l.Accounts.CreateAccount(f.ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRenameAccount(t *testing.T) {
	f := newFixture(t)
	nov := f.period(2024, time.November)
	checking := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01")
	f.account("Savings", ledger.AccountStandard, nov, "2024-11-01")

	renamed, err := f.l.Accounts.RenameAccount(f.ctx, checking.ID, "Everyday")
	require.NoError(t, err)
	assert.Equal(t, "Everyday", renamed.Name)

	// Renaming to its own name is allowed; taking another account's is not.
	_, err = f.l.Accounts.RenameAccount(f.ctx, checking.ID, "Everyday")
	assert.NoError(t, err)
	_, err = f.l.Accounts.RenameAccount(f.ctx, checking.ID, "Savings")
	assert.ErrorIs(t, err, ledger.ErrInvalidName)
	_, err = f.l.Accounts.RenameAccount(f.ctx, "missing", "Other")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestDeleteAccount(t *testing.T) {
	// GIVEN: One account with only its opening balance and one with activity
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	idle := f.account("Idle", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))
	busy := f.account("Busy", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))
	f.debit(nov, "2024-11-05", busy, amt(fund, "10"))

	// WHEN: Deleting both
	require.NoError(t, f.l.Accounts.DeleteAccount(f.ctx, idle.ID))
	err := f.l.Accounts.DeleteAccount(f.ctx, busy.ID)

	// THEN: Only the idle account and its opening transaction are removed
	assert.ErrorIs(t, err, ledger.ErrUnableToUpdate)
	_, err = f.l.Accounts.GetAccount(f.ctx, idle.ID)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	_, err = f.l.Transactions.GetTransaction(f.ctx, idle.InitialTransactionID)
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)

	accounts, err := f.l.Accounts.ListAccounts(f.ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, busy.ID, accounts[0].ID)
}

func TestFunds(t *testing.T) {
	f := newFixture(t)
	rent := f.fund("Rent")
	f.fund("Food")

	_, err := f.l.Funds.CreateFund(f.ctx, ledger.CreateFundRequest{Name: "Rent"})
	assert.ErrorIs(t, err, ledger.ErrInvalidName)

	renamed, err := f.l.Funds.RenameFund(f.ctx, rent.ID, "Housing")
	require.NoError(t, err)
	assert.Equal(t, "Housing", renamed.Name)

	_, err = f.l.Funds.RenameFund(f.ctx, rent.ID, "Food")
	assert.ErrorIs(t, err, ledger.ErrInvalidName)

	got, err := f.l.Funds.GetFund(f.ctx, rent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Housing", got.Name)

	funds, err := f.l.Funds.ListFunds(f.ctx)
	require.NoError(t, err)
	assert.Len(t, funds, 2)

	_, err = f.l.Funds.GetFund(f.ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrFundNotFound)
}

func TestDeleteFund(t *testing.T) {
	// GIVEN: One fund holding an opening balance and one never used
	f := newFixture(t)
	nov := f.period(2024, time.November)
	used := f.fund("Used")
	idle := f.fund("Idle")
	f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(used, "100"))
	f.period(2024, time.December)
	f.close(nov)

	// THEN: The used fund is kept
	err := f.l.Funds.DeleteFund(f.ctx, used.ID)
	require.ErrorIs(t, err, ledger.ErrUnableToUpdate)
	assert.Contains(t, err.Error(), "2024-11")

	// THEN: The idle fund goes, checkpoints and all
	require.NoError(t, f.l.Funds.DeleteFund(f.ctx, idle.ID))
	_, err = f.l.Funds.GetFund(f.ctx, idle.ID)
	assert.ErrorIs(t, err, ledger.ErrFundNotFound)

	err = f.l.Funds.DeleteFund(f.ctx, idle.ID)
	assert.ErrorIs(t, err, ledger.ErrFundNotFound)
}
