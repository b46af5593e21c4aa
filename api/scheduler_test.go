package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atforche/financial-tracker/api"
	"github.com/atforche/financial-tracker/ledger"
	"github.com/atforche/financial-tracker/ledger/store"
)

type schedulerFixture struct {
	ctx       context.Context
	l         *ledger.Ledger
	scheduler *api.PeriodScheduler
	account   *ledger.Account
	fund      *ledger.Fund
	nov       *ledger.AccountingPeriod
}

// newSchedulerFixture opens November 2024 with a 100.00 account and pins
// the scheduler clock to now.
func newSchedulerFixture(t *testing.T, now string) *schedulerFixture {
	t.Helper()
	ctx := context.Background()
	l := ledger.New(store.NewMemory(), zerolog.Nop())

	nov, err := l.Periods.CreateAccountingPeriod(ctx, 2024, time.November)
	require.NoError(t, err)
	fund, err := l.Funds.CreateFund(ctx, ledger.CreateFundRequest{Name: "General"})
	require.NoError(t, err)
	account, err := l.Accounts.CreateAccount(ctx, ledger.CreateAccountRequest{
		Name:               "Checking",
		Type:               ledger.AccountStandard,
		AccountingPeriodID: nov.ID,
		Date:               ledger.MustParseDate("2024-11-01"),
		FundAmounts:        ledger.FundAmounts{ledger.NewFundAmount(fund.ID, decimal.NewFromInt(100))},
	})
	require.NoError(t, err)

	clock := ledger.MustParseDate(now).Time
	s := api.NewPeriodScheduler(l, zerolog.Nop())
	s.Now = func() time.Time { return clock }

	return &schedulerFixture{ctx: ctx, l: l, scheduler: s, account: account, fund: fund, nov: nov}
}

func (f *schedulerFixture) debit(t *testing.T, on string, amount int64) ledger.TransactionID {
	t.Helper()
	tx, err := f.l.Transactions.AddTransaction(f.ctx, ledger.AddTransactionRequest{
		AccountingPeriodID: f.nov.ID,
		Date:               ledger.MustParseDate(on),
		DebitAccount: &ledger.TransactionAccountRequest{
			AccountID:   f.account.ID,
			FundAmounts: ledger.FundAmounts{ledger.NewFundAmount(f.fund.ID, decimal.NewFromInt(amount))},
		},
	})
	require.NoError(t, err)
	return tx.ID
}

func keys(ks ...string) []ledger.PeriodKey {
	out := make([]ledger.PeriodKey, len(ks))
	for i, k := range ks {
		key, err := ledger.ParsePeriodKey(k)
		if err != nil {
			panic(err)
		}
		out[i] = key
	}
	return out
}

func TestScheduler_CreatesAndClosesPeriods(t *testing.T) {
	// GIVEN: November 2024 with a posted debit, checked on 2025-01-20
	f := newSchedulerFixture(t, "2025-01-20")
	tx := f.debit(t, "2024-11-10", 30)
	_, err := f.l.Transactions.PostTransaction(f.ctx, tx, f.account.ID, ledger.MustParseDate("2024-11-11"))
	require.NoError(t, err)

	// WHEN: The scheduler runs
	run := f.scheduler.RunNow(f.ctx)

	// THEN: December and January exist, and the periods past their grace
	// window are closed
	assert.Equal(t, keys("2024-12", "2025-01"), run.Created)
	assert.Equal(t, keys("2024-11", "2024-12"), run.Closed)

	periods, err := f.l.Periods.ListAccountingPeriods(f.ctx)
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.False(t, periods[0].IsOpen)
	assert.False(t, periods[1].IsOpen)
	assert.True(t, periods[2].IsOpen)

	// THEN: January starts from the checkpoint written on close
	b, err := f.l.Balances.AccountBalanceByAccountingPeriod(f.ctx, f.account.ID, periods[2].ID)
	require.NoError(t, err)
	assert.True(t, b.Starting.Total().Equal(decimal.NewFromInt(70)), b.Starting.Total().String())

	// WHEN: It runs again
	again := f.scheduler.RunNow(f.ctx)

	// THEN: Nothing is left to do
	assert.Empty(t, again.Created)
	assert.Empty(t, again.Closed)
}

func TestScheduler_GraceWindow(t *testing.T) {
	// GIVEN: 2024-12-10 is inside November's grace window
	f := newSchedulerFixture(t, "2024-12-10")

	run := f.scheduler.RunNow(f.ctx)

	assert.Equal(t, keys("2024-12"), run.Created)
	assert.Empty(t, run.Closed)
}

func TestScheduler_StopsAtUnpostedPeriod(t *testing.T) {
	// GIVEN: November holds an unposted debit
	f := newSchedulerFixture(t, "2025-01-20")
	f.debit(t, "2024-11-10", 30)

	// WHEN: The scheduler runs
	run := f.scheduler.RunNow(f.ctx)

	// THEN: Periods are still created, but nothing closes
	assert.Len(t, run.Created, 2)
	assert.Empty(t, run.Closed)
}

func TestScheduler_EmptyLedger(t *testing.T) {
	l := ledger.New(store.NewMemory(), zerolog.Nop())
	s := api.NewPeriodScheduler(l, zerolog.Nop())

	run := s.RunNow(context.Background())

	assert.Empty(t, run.Created)
	periods, err := l.Periods.ListAccountingPeriods(context.Background())
	require.NoError(t, err)
	assert.Empty(t, periods)
}

func TestScheduler_StartStop(t *testing.T) {
	// GIVEN: An enabled scheduler with a long interval
	f := newSchedulerFixture(t, "2024-12-10")
	f.scheduler.Enabled = true
	f.scheduler.CheckInterval = time.Hour

	// WHEN: Started and stopped
	f.scheduler.Start()
	f.scheduler.Stop()

	// THEN: The immediate check on start has run
	periods, err := f.l.Periods.ListAccountingPeriods(f.ctx)
	require.NoError(t, err)
	assert.Len(t, periods, 2)

	// Stopping twice is harmless
	f.scheduler.Stop()
}

func TestScheduler_Disabled(t *testing.T) {
	f := newSchedulerFixture(t, "2025-01-20")

	f.scheduler.Start()
	f.scheduler.Stop()

	periods, err := f.l.Periods.ListAccountingPeriods(f.ctx)
	require.NoError(t, err)
	assert.Len(t, periods, 1)
}
