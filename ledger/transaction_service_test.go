package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atforche/financial-tracker/ledger"
)

func TestAddTransaction_NegativeBalance(t *testing.T) {
	// GIVEN: An account holding 100
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))

	// WHEN: Debiting 250
	_, err := f.addDebit(nov, "2024-11-05", account, amt(fund, "250"))

	// THEN: The command is rejected with the shortfall and nothing is stored
	require.ErrorIs(t, err, ledger.ErrNegativeBalance)
	var negative *ledger.NegativeBalanceError
	require.True(t, errors.As(err, &negative))
	assert.Equal(t, account.ID, negative.AccountID)
	assertDecimal(t, "100", negative.Available)
	assertDecimal(t, "250", negative.Requested)

	txs, err := f.l.Transactions.ListTransactions(f.ctx, nov.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestAddTransaction_InvalidatesLaterEvent(t *testing.T) {
	// GIVEN: 300 with a 200 debit already recorded on 2024-11-10
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "300"))
	later := f.debit(nov, "2024-11-10", account, amt(fund, "200"))

	// WHEN: A 150 debit is inserted before it
	_, err := f.addDebit(nov, "2024-11-05", account, amt(fund, "150"))

	// THEN: The later debit would no longer fit, so the insert is rejected
	var negative *ledger.NegativeBalanceError
	require.True(t, errors.As(err, &negative), "got %v", err)
	assert.Equal(t, later.BalanceEvents[0].ID, negative.EventID)
	assertDecimal(t, "150", negative.Available)
	assertDecimal(t, "200", negative.Requested)

	// THEN: A smaller insert still fits
	_, err = f.addDebit(nov, "2024-11-05", account, amt(fund, "100"))
	assert.NoError(t, err)
}

func TestAddTransaction_PendingCreditNotSpendable(t *testing.T) {
	// GIVEN: 100 settled with a pending 50 credit
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))
	f.credit(nov, "2024-11-05", account, amt(fund, "50"))

	// THEN: Only settled money counts for a new debit
	assertDecimal(t, "100", f.asOf(account, "2024-11-05").AvailableTotal())
	_, err := f.addDebit(nov, "2024-11-06", account, amt(fund, "120"))
	assert.ErrorIs(t, err, ledger.ErrNegativeBalance)

	_, err = f.addDebit(nov, "2024-11-06", account, amt(fund, "100"))
	assert.NoError(t, err)
}

func TestAddTransaction_AccumulatesViolations(t *testing.T) {
	// GIVEN: A ledger with one account
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))

	// WHEN: The date is too far out, one amount is negative and one fund is unknown
	_, err := f.l.Transactions.AddTransaction(f.ctx, ledger.AddTransactionRequest{
		AccountingPeriodID: nov.ID,
		Date:               date("2025-02-01"),
		DebitAccount: &ledger.TransactionAccountRequest{
			AccountID:   account.ID,
			FundAmounts: ledger.FundAmounts{amt(fund, "-5"), ledger.NewFundAmount("missing", dec("5"))},
		},
	})

	// THEN: Every violation is reported together
	var verrs *ledger.ValidationErrors
	require.True(t, errors.As(err, &verrs), "got %v", err)
	assert.Len(t, verrs.Errors, 3)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransactionDate)
	assert.ErrorIs(t, err, ledger.ErrInvalidDebitAccount)
	assert.ErrorIs(t, err, ledger.ErrInvalidFund)
}

func TestAddTransaction_Rules(t *testing.T) {
	f := newFixture(t)
	nov := f.period(2024, time.November)
	decP := f.period(2024, time.December)
	fund := f.fund("Test")
	checking := f.account("Checking", ledger.AccountStandard, nov, "2024-11-03", amt(fund, "100"))
	savings := f.account("Savings", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))
	late := f.account("Late", ledger.AccountStandard, decP, "2024-12-01", amt(fund, "100"))

	leg := func(a ledger.Account, amount string) *ledger.TransactionAccountRequest {
		return &ledger.TransactionAccountRequest{AccountID: a.ID, FundAmounts: ledger.FundAmounts{amt(fund, amount)}}
	}

	tests := []struct {
		name    string
		req     ledger.AddTransactionRequest
		wantErr error
	}{
		{
			name:    "no legs",
			req:     ledger.AddTransactionRequest{AccountingPeriodID: nov.ID, Date: date("2024-11-05")},
			wantErr: ledger.ErrInvalidDebitAccount,
		},
		{
			name:    "unknown period",
			req:     ledger.AddTransactionRequest{AccountingPeriodID: "missing", Date: date("2024-11-05"), DebitAccount: leg(checking, "1")},
			wantErr: ledger.ErrAccountingPeriodNotFound,
		},
		{
			name:    "before account opened",
			req:     ledger.AddTransactionRequest{AccountingPeriodID: nov.ID, Date: date("2024-11-02"), DebitAccount: leg(checking, "1")},
			wantErr: ledger.ErrInvalidTransactionDate,
		},
		{
			name:    "period before account's first period",
			req:     ledger.AddTransactionRequest{AccountingPeriodID: nov.ID, Date: date("2024-12-05"), DebitAccount: leg(late, "1")},
			wantErr: ledger.ErrInvalidAccountingPeriod,
		},
		{
			name:    "unknown account",
			req:     ledger.AddTransactionRequest{AccountingPeriodID: nov.ID, Date: date("2024-11-05"), DebitAccount: &ledger.TransactionAccountRequest{AccountID: "missing", FundAmounts: ledger.FundAmounts{amt(fund, "1")}}},
			wantErr: ledger.ErrInvalidDebitAccount,
		},
		{
			name:    "same account twice",
			req:     ledger.AddTransactionRequest{AccountingPeriodID: nov.ID, Date: date("2024-11-05"), DebitAccount: leg(checking, "1"), CreditAccount: leg(checking, "1")},
			wantErr: ledger.ErrInvalidCreditAccount,
		},
		{
			name:    "unbalanced legs",
			req:     ledger.AddTransactionRequest{AccountingPeriodID: nov.ID, Date: date("2024-11-05"), DebitAccount: leg(checking, "10"), CreditAccount: leg(savings, "20")},
			wantErr: ledger.ErrInvalidCreditAccount,
		},
		{
			name:    "no fund amounts",
			req:     ledger.AddTransactionRequest{AccountingPeriodID: nov.ID, Date: date("2024-11-05"), CreditAccount: &ledger.TransactionAccountRequest{AccountID: checking.ID}},
			wantErr: ledger.ErrInvalidCreditAccount,
		},
		{
			name: "transfer",
			req:  ledger.AddTransactionRequest{AccountingPeriodID: nov.ID, Date: date("2024-11-05"), DebitAccount: leg(checking, "10"), CreditAccount: leg(savings, "10")},
		},
		{
			name: "dated in the previous month",
			req:  ledger.AddTransactionRequest{AccountingPeriodID: decP.ID, Date: date("2024-11-20"), CreditAccount: leg(savings, "10")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.l.Transactions.AddTransaction(f.ctx, tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAddTransaction_ClosedPeriod(t *testing.T) {
	// GIVEN: A closed November
	f := newFixture(t)
	nov := f.period(2024, time.November)
	f.period(2024, time.December)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))
	f.close(nov)

	// WHEN: Recording under November
	_, err := f.addDebit(nov, "2024-11-20", account, amt(fund, "10"))

	// THEN: The period is rejected
	assert.ErrorIs(t, err, ledger.ErrInvalidAccountingPeriod)
}

func TestPostTransaction_Events(t *testing.T) {
	// GIVEN: Two pending debits
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "500"))
	sameDay := f.debit(nov, "2024-11-05", account, amt(fund, "10"))
	laterDay := f.debit(nov, "2024-11-05", account, amt(fund, "20"))

	// WHEN: One posts the same day and the other two days later
	sameDay = f.post(sameDay, account, "2024-11-05")
	laterDay = f.post(laterDay, account, "2024-11-07")

	// THEN: A same-day post joins the added event, otherwise a new event is recorded
	require.Len(t, sameDay.BalanceEvents, 1)
	assert.Len(t, sameDay.BalanceEvents[0].Parts, 2)
	require.NotNil(t, sameDay.DebitAccount.PostedDate)
	assert.Equal(t, date("2024-11-05"), *sameDay.DebitAccount.PostedDate)

	require.Len(t, laterDay.BalanceEvents, 2)
	assert.Equal(t, ledger.PartPostedDebit, laterDay.BalanceEvents[1].Parts[0].Type)

	b := f.asOf(account, "2024-11-06")
	assertDecimal(t, "490", b.Total())
	assertDecimal(t, "-20", b.PendingTotal())
	assertDecimal(t, "470", f.asOf(account, "2024-11-07").Total())
}

func TestPostTransaction_Rules(t *testing.T) {
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	checking := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "500"))
	savings := f.account("Savings", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "500"))
	tx := f.debit(nov, "2024-11-10", checking, amt(fund, "10"))
	posted := f.debit(nov, "2024-11-10", checking, amt(fund, "10"))
	f.post(posted, checking, "2024-11-10")

	tests := []struct {
		name    string
		id      ledger.TransactionID
		account ledger.AccountID
		on      string
		wantErr error
	}{
		{"unknown transaction", "missing", checking.ID, "2024-11-10", ledger.ErrTransactionNotFound},
		{"account not on transaction", tx.ID, savings.ID, "2024-11-10", ledger.ErrInvalidAccount},
		{"before transaction date", tx.ID, checking.ID, "2024-11-09", ledger.ErrInvalidTransactionDate},
		{"too far from period", tx.ID, checking.ID, "2025-01-02", ledger.ErrInvalidTransactionDate},
		{"already posted", posted.ID, checking.ID, "2024-11-11", ledger.ErrUnableToUpdate},
		{"opening transaction", checking.InitialTransactionID, checking.ID, "2024-11-11", ledger.ErrUnableToUpdate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.l.Transactions.PostTransaction(f.ctx, tt.id, tt.account, date(tt.on))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateTransaction(t *testing.T) {
	// GIVEN: A pending 50 debit on 2024-11-10
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "300"))
	tx := f.debit(nov, "2024-11-10", account, amt(fund, "50"))

	// WHEN: It is moved to 2024-11-04 and raised to 80
	updated, err := f.l.Transactions.UpdateTransaction(f.ctx, tx.ID, ledger.UpdateTransactionRequest{
		Date:             date("2024-11-04"),
		Description:      "Corrected",
		DebitFundAmounts: ledger.FundAmounts{amt(fund, "80")},
	})
	require.NoError(t, err)

	// THEN: Balances follow the new date and amount
	assert.Equal(t, "Corrected", updated.Description)
	require.Len(t, updated.BalanceEvents, 1)
	assert.Equal(t, tx.BalanceEvents[0].ID, updated.BalanceEvents[0].ID)
	assertDecimal(t, "-80", f.asOf(account, "2024-11-04").PendingTotal())
	assert.Empty(t, f.asOf(account, "2024-11-03").PendingChanges)

	// WHEN: The amount would overdraw the account
	_, err = f.l.Transactions.UpdateTransaction(f.ctx, tx.ID, ledger.UpdateTransactionRequest{
		Date:             date("2024-11-04"),
		DebitFundAmounts: ledger.FundAmounts{amt(fund, "301")},
	})

	// THEN: The update is rejected
	assert.ErrorIs(t, err, ledger.ErrNegativeBalance)
}

func TestUpdateTransaction_Rules(t *testing.T) {
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "300"))
	pending := f.debit(nov, "2024-11-10", account, amt(fund, "50"))
	posted := f.post(f.debit(nov, "2024-11-10", account, amt(fund, "50")), account, "2024-11-11")

	t.Run("posted", func(t *testing.T) {
		_, err := f.l.Transactions.UpdateTransaction(f.ctx, posted.ID, ledger.UpdateTransactionRequest{
			Date:             date("2024-11-10"),
			DebitFundAmounts: ledger.FundAmounts{amt(fund, "10")},
		})
		assert.ErrorIs(t, err, ledger.ErrUnableToUpdate)
	})

	t.Run("opening transaction", func(t *testing.T) {
		_, err := f.l.Transactions.UpdateTransaction(f.ctx, account.InitialTransactionID, ledger.UpdateTransactionRequest{
			Date:              date("2024-11-01"),
			CreditFundAmounts: ledger.FundAmounts{amt(fund, "10")},
		})
		assert.ErrorIs(t, err, ledger.ErrUnableToUpdate)
	})

	t.Run("adding a leg", func(t *testing.T) {
		_, err := f.l.Transactions.UpdateTransaction(f.ctx, pending.ID, ledger.UpdateTransactionRequest{
			Date:              date("2024-11-10"),
			DebitFundAmounts:  ledger.FundAmounts{amt(fund, "10")},
			CreditFundAmounts: ledger.FundAmounts{amt(fund, "10")},
		})
		assert.ErrorIs(t, err, ledger.ErrUnableToUpdate)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := f.l.Transactions.UpdateTransaction(f.ctx, "missing", ledger.UpdateTransactionRequest{})
		assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
	})
}

func TestDeleteTransaction(t *testing.T) {
	// GIVEN: A pending debit and a posted debit
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "300"))
	pending := f.debit(nov, "2024-11-10", account, amt(fund, "50"))
	posted := f.post(f.debit(nov, "2024-11-12", account, amt(fund, "30")), account, "2024-11-12")

	// WHEN: Deleting the pending debit
	require.NoError(t, f.l.Transactions.DeleteTransaction(f.ctx, pending.ID, nil))

	// THEN: It and its events are gone
	_, err := f.l.Transactions.GetTransaction(f.ctx, pending.ID)
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
	b := f.asOf(account, "2024-11-30")
	assertDecimal(t, "270", b.Total())
	assert.Empty(t, b.PendingChanges)

	// THEN: Posted and opening transactions cannot be deleted
	assert.ErrorIs(t, f.l.Transactions.DeleteTransaction(f.ctx, posted.ID, nil), ledger.ErrUnableToUpdate)
	assert.ErrorIs(t, f.l.Transactions.DeleteTransaction(f.ctx, account.InitialTransactionID, nil), ledger.ErrUnableToUpdate)
	assert.ErrorIs(t, f.l.Transactions.DeleteTransaction(f.ctx, "missing", nil), ledger.ErrTransactionNotFound)
}
