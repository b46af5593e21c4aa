package ledger_test

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/atforche/financial-tracker/ledger"
)

func TestFundAmounts_Add(t *testing.T) {
	a := ledger.NewFundAmount("a", dec("10"))
	b := ledger.NewFundAmount("b", dec("5"))

	sum := ledger.FundAmounts{b}.Add(a, ledger.NewFundAmount("b", dec("-5")), ledger.NewFundAmount("a", dec("2.5")))

	assert.Equal(t, []ledger.FundID{"a"}, sum.Funds(), "zero entries are pruned")
	assertDecimal(t, "12.5", sum.Amount("a"))
	assertDecimal(t, "0", sum.Amount("b"))
	assertDecimal(t, "12.5", sum.Total())
	assert.False(t, sum.HasDuplicateFunds())
	assert.True(t, ledger.FundAmounts{a, a}.HasDuplicateFunds())
}

func TestFundAmounts_NeverKeepZeroEntries(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	funds := []ledger.FundID{"a", "b", "c"}

	var sum ledger.FundAmounts
	for i := 0; i < 500; i++ {
		fund := funds[rng.Intn(len(funds))]
		sum = sum.Add(ledger.NewFundAmount(fund, dec(strconv.Itoa(rng.Intn(5)-2))))

		for _, fa := range sum {
			assert.False(t, fa.Amount.IsZero(), "step %d kept a zero entry for %s", i, fa.FundID)
		}
		assert.False(t, sum.HasDuplicateFunds())
	}
}

func TestAccountBalance_AvailableTotal(t *testing.T) {
	tests := []struct {
		name    string
		settled string
		pending string
		want    string
	}{
		{"pending decrease counts", "100", "-30", "70"},
		{"pending increase does not", "100", "30", "100"},
		{"nothing pending", "100", "", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ledger.AccountBalance{}.AddSettled(ledger.NewFundAmount("f", dec(tt.settled)))
			if tt.pending != "" {
				b = b.AddPending(ledger.NewFundAmount("f", dec(tt.pending)))
			}
			assertDecimal(t, tt.want, b.AvailableTotal())
			assertDecimal(t, tt.want, b.AvailableFund("f"))
		})
	}
}

func TestPeriodKey(t *testing.T) {
	dec24 := ledger.NewPeriodKey(2024, time.December)

	assert.Equal(t, ledger.NewPeriodKey(2025, time.January), dec24.Next())
	assert.Equal(t, ledger.NewPeriodKey(2024, time.November), dec24.Previous())
	assert.Equal(t, date("2024-12-31"), dec24.End())
	assert.True(t, dec24.IsAdjacent(date("2025-01-31")))
	assert.True(t, dec24.IsAdjacent(date("2024-11-01")))
	assert.False(t, dec24.IsAdjacent(date("2025-02-01")))

	key, err := ledger.ParsePeriodKey("2024-12")
	assert.NoError(t, err)
	assert.Equal(t, dec24, key)
	_, err = ledger.ParsePeriodKey("December")
	assert.Error(t, err)
}
