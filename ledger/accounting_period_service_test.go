package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atforche/financial-tracker/ledger"
)

func TestCreateAccountingPeriod(t *testing.T) {
	f := newFixture(t)
	nov := f.period(2024, time.November)
	assert.True(t, nov.IsOpen)
	assert.Equal(t, "2024-11", nov.Key().String())

	t.Run("invalid year and month are both reported", func(t *testing.T) {
		_, err := f.l.Periods.CreateAccountingPeriod(f.ctx, 2019, 13)
		var verrs *ledger.ValidationErrors
		require.True(t, errors.As(err, &verrs), "got %v", err)
		assert.Len(t, verrs.Errors, 2)
		assert.ErrorIs(t, err, ledger.ErrInvalidAccountingPeriod)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := f.l.Periods.CreateAccountingPeriod(f.ctx, 2024, time.November)
		assert.ErrorIs(t, err, ledger.ErrInvalidAccountingPeriod)
	})

	t.Run("gap", func(t *testing.T) {
		_, err := f.l.Periods.CreateAccountingPeriod(f.ctx, 2025, time.January)
		require.ErrorIs(t, err, ledger.ErrInvalidAccountingPeriod)
		assert.Contains(t, err.Error(), "must immediately follow")
	})

	t.Run("before the first period", func(t *testing.T) {
		_, err := f.l.Periods.CreateAccountingPeriod(f.ctx, 2024, time.October)
		assert.ErrorIs(t, err, ledger.ErrInvalidAccountingPeriod)
	})

	t.Run("next month across a year end", func(t *testing.T) {
		f.period(2024, time.December)
		jan := f.period(2025, time.January)
		assert.Equal(t, 2025, jan.Year)
	})

	periods, err := f.l.Periods.ListAccountingPeriods(f.ctx)
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, "2024-11", periods[0].Key().String())
	assert.Equal(t, "2025-01", periods[2].Key().String())
}

func TestClosePeriod_Rules(t *testing.T) {
	// GIVEN: November with a pending debit, and December
	f := newFixture(t)
	nov := f.period(2024, time.November)
	decP := f.period(2024, time.December)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))
	pending := f.debit(nov, "2024-11-20", account, amt(fund, "10"))

	// THEN: December cannot close before November
	_, err := f.l.Periods.ClosePeriod(f.ctx, decP.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidAccountingPeriod)

	// THEN: November cannot close while a leg is unposted
	_, err = f.l.Periods.ClosePeriod(f.ctx, nov.ID)
	require.ErrorIs(t, err, ledger.ErrInvalidAccountingPeriod)
	assert.Contains(t, err.Error(), "unposted")

	// WHEN: The leg posts
	f.post(pending, account, "2024-12-01")
	closed := f.close(nov)

	// THEN: November is closed once and only once
	assert.False(t, closed.IsOpen)
	_, err = f.l.Periods.ClosePeriod(f.ctx, nov.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidAccountingPeriod)

	_, err = f.l.Periods.ClosePeriod(f.ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrAccountingPeriodNotFound)

	got, err := f.l.Periods.GetAccountingPeriod(f.ctx, nov.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOpen)
}

func TestClosePeriod_CheckpointOnLaterCreate(t *testing.T) {
	// GIVEN: November closed before December exists
	f := newFixture(t)
	nov := f.period(2024, time.November)
	fund := f.fund("Test")
	account := f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))
	tx := f.debit(nov, "2024-11-20", account, amt(fund, "30"))
	f.post(tx, account, "2024-11-21")
	f.close(nov)

	// WHEN: December is created
	decP := f.period(2024, time.December)

	// THEN: December starts from November's settled ending
	b := f.byPeriod(account, decP)
	assertDecimal(t, "70", b.Starting.Total())
	assertDecimal(t, "70", f.asOf(account, "2024-12-15").Total())
	assertDecimal(t, "100", f.asOf(account, "2024-11-20").Total())
}

func TestDeleteAccountingPeriod(t *testing.T) {
	f := newFixture(t)
	nov := f.period(2024, time.November)
	decP := f.period(2024, time.December)
	fund := f.fund("Test")
	f.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amt(fund, "100"))

	t.Run("not the latest", func(t *testing.T) {
		err := f.l.Periods.DeleteAccountingPeriod(f.ctx, nov.ID)
		assert.ErrorIs(t, err, ledger.ErrInvalidAccountingPeriod)
	})

	t.Run("latest and unused", func(t *testing.T) {
		require.NoError(t, f.l.Periods.DeleteAccountingPeriod(f.ctx, decP.ID))
		_, err := f.l.Periods.GetAccountingPeriod(f.ctx, decP.ID)
		assert.ErrorIs(t, err, ledger.ErrAccountingPeriodNotFound)
	})

	t.Run("an account was opened in it", func(t *testing.T) {
		err := f.l.Periods.DeleteAccountingPeriod(f.ctx, nov.ID)
		assert.ErrorIs(t, err, ledger.ErrInvalidAccountingPeriod)
	})

	t.Run("unknown", func(t *testing.T) {
		err := f.l.Periods.DeleteAccountingPeriod(f.ctx, "missing")
		assert.ErrorIs(t, err, ledger.ErrAccountingPeriodNotFound)
	})
}

func TestDeleteAccountingPeriod_Closed(t *testing.T) {
	f := newFixture(t)
	nov := f.period(2024, time.November)
	f.close(nov)

	err := f.l.Periods.DeleteAccountingPeriod(f.ctx, nov.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidAccountingPeriod)
}
