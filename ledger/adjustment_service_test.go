package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atforche/financial-tracker/ledger"
)

func TestChangeInValue(t *testing.T) {
	// GIVEN: An account holding 100
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Investments")
	account := f.account("Brokerage", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))

	// WHEN: Interest of 2.50 is recorded
	civ, err := f.l.Adjustments.AddChangeInValue(f.ctx, ledger.AddChangeInValueRequest{
		AccountingPeriodID: nov.ID,
		Date:               date("2024-11-15"),
		AccountID:          account.ID,
		FundAmount:         amt(fund, "2.50"),
		Description:        "Interest",
	})
	require.NoError(t, err)

	// THEN: It settles immediately
	assert.Equal(t, ledger.EventChangeInValue, civ.Kind())
	assertDecimal(t, "100", f.asOf(account, "2024-11-14").Total())
	b := f.asOf(account, "2024-11-15")
	assertDecimal(t, "102.50", b.Total())
	assert.Empty(t, b.PendingChanges)
}

func TestChangeInValue_LossInvalidatesLaterDebit(t *testing.T) {
	// GIVEN: 100 with an 80 debit on 2024-11-10
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))
	f.debit(nov, "2024-11-10", account, amt(fund, "80"))

	civ := func(amount string) error {
		_, err := f.l.Adjustments.AddChangeInValue(f.ctx, ledger.AddChangeInValueRequest{
			AccountingPeriodID: nov.ID,
			Date:               date("2024-11-05"),
			AccountID:          account.ID,
			FundAmount:         amt(fund, amount),
		})
		return err
	}

	// THEN: A 50 loss before the debit leaves too little for it
	assert.ErrorIs(t, civ("-50"), ledger.ErrNegativeBalance)

	// THEN: A 20 loss still fits
	assert.NoError(t, civ("-20"))
	assertDecimal(t, "80", f.asOf(account, "2024-11-05").Total())
}

func TestChangeInValue_Rules(t *testing.T) {
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))

	tests := []struct {
		name    string
		req     ledger.AddChangeInValueRequest
		wantErr error
	}{
		{"zero", ledger.AddChangeInValueRequest{AccountingPeriodID: nov.ID, Date: date("2024-11-05"), AccountID: account.ID, FundAmount: amt(fund, "0")}, ledger.ErrInvalidAmount},
		{"unknown account", ledger.AddChangeInValueRequest{AccountingPeriodID: nov.ID, Date: date("2024-11-05"), AccountID: "missing", FundAmount: amt(fund, "1")}, ledger.ErrInvalidAccount},
		{"unknown fund", ledger.AddChangeInValueRequest{AccountingPeriodID: nov.ID, Date: date("2024-11-05"), AccountID: account.ID, FundAmount: ledger.NewFundAmount("missing", dec("1"))}, ledger.ErrInvalidFund},
		{"too far from period", ledger.AddChangeInValueRequest{AccountingPeriodID: nov.ID, Date: date("2025-01-05"), AccountID: account.ID, FundAmount: amt(fund, "1")}, ledger.ErrInvalidTransactionDate},
		{"unknown period", ledger.AddChangeInValueRequest{AccountingPeriodID: "missing", Date: date("2024-11-05"), AccountID: account.ID, FundAmount: amt(fund, "1")}, ledger.ErrAccountingPeriodNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.l.Adjustments.AddChangeInValue(f.ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFundConversion(t *testing.T) {
	// GIVEN: An account holding 100 in Savings
	f := newFixture(t)
	nov := f.period(2024, time.November)
	savings := f.fund("Savings")
	travel := f.fund("Travel")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(savings, "100"))

	// WHEN: 40 moves from Savings to Travel
	fc, err := f.l.Adjustments.AddFundConversion(f.ctx, ledger.AddFundConversionRequest{
		AccountingPeriodID: nov.ID,
		Date:               date("2024-11-05"),
		AccountID:          account.ID,
		FromFundID:         savings.ID,
		ToFundID:           travel.ID,
		Amount:             dec("40"),
	})
	require.NoError(t, err)

	// THEN: The account total is unchanged and both funds move
	assert.ElementsMatch(t, []ledger.FundID{savings.ID, travel.ID}, fc.FundIDs())
	b := f.asOf(account, "2024-11-05")
	assertDecimal(t, "100", b.Total())
	assertDecimal(t, "60", b.Balance.Amount(savings.ID))
	assertDecimal(t, "40", b.Balance.Amount(travel.ID))

	days, err := f.l.Balances.FundBalancesByDate(f.ctx, travel.ID, ledger.DateRange{Start: date("2024-11-04"), End: date("2024-11-05")})
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Empty(t, days[0].Balance.Balance)
	assertDecimal(t, "40", days[1].Balance.Balance.Amount(account.ID))
}

func TestFundConversion_Rules(t *testing.T) {
	f := newFixture(t)
	nov := f.period(2024, time.November)
	savings := f.fund("Savings")
	travel := f.fund("Travel")
	empty := f.fund("Empty")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(savings, "100"))
	f.debit(nov, "2024-11-03", account, amt(savings, "70"))

	convert := func(from, to ledger.Fund, amount string) error {
		_, err := f.l.Adjustments.AddFundConversion(f.ctx, ledger.AddFundConversionRequest{
			AccountingPeriodID: nov.ID,
			Date:               date("2024-11-05"),
			AccountID:          account.ID,
			FromFundID:         from.ID,
			ToFundID:           to.ID,
			Amount:             dec(amount),
		})
		return err
	}

	t.Run("pending decrease counts against the source fund", func(t *testing.T) {
		assert.ErrorIs(t, convert(savings, travel, "40"), ledger.ErrNegativeBalance)
	})
	t.Run("fund the account does not hold", func(t *testing.T) {
		assert.ErrorIs(t, convert(empty, travel, "1"), ledger.ErrInvalidFund)
	})
	t.Run("same fund", func(t *testing.T) {
		assert.ErrorIs(t, convert(savings, savings, "1"), ledger.ErrInvalidFund)
	})
	t.Run("not positive", func(t *testing.T) {
		assert.ErrorIs(t, convert(savings, travel, "0"), ledger.ErrInvalidAmount)
	})
	t.Run("within available", func(t *testing.T) {
		assert.NoError(t, convert(savings, travel, "30"))
	})
}
