package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FUND AMOUNT - Money earmarked to a fund
// =============================================================================

// FundAmount is an amount of money attributed to a single fund.
type FundAmount struct {
	FundID FundID          `json:"fund_id"`
	Amount decimal.Decimal `json:"amount"`
}

func NewFundAmount(fundID FundID, amount decimal.Decimal) FundAmount {
	return FundAmount{FundID: fundID, Amount: amount}
}

func (f FundAmount) Reversed() FundAmount { return FundAmount{FundID: f.FundID, Amount: f.Amount.Neg()} }

// FundAmounts is a collection of fund amounts. Collections produced by Add
// never repeat a fund and never carry a zero entry.
type FundAmounts []FundAmount

// Total sums every amount in the collection.
func (fa FundAmounts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, f := range fa {
		total = total.Add(f.Amount)
	}
	return total
}

func (fa FundAmounts) Reversed() FundAmounts {
	out := make(FundAmounts, len(fa))
	for i, f := range fa {
		out[i] = f.Reversed()
	}
	return out
}

// Add merges other into a copy of fa by fund. Entries that net to zero are
// pruned and the result is sorted by fund id.
func (fa FundAmounts) Add(other ...FundAmount) FundAmounts {
	sums := make(map[FundID]decimal.Decimal, len(fa)+len(other))
	for _, f := range fa {
		sums[f.FundID] = sums[f.FundID].Add(f.Amount)
	}
	for _, f := range other {
		sums[f.FundID] = sums[f.FundID].Add(f.Amount)
	}
	out := make(FundAmounts, 0, len(sums))
	for id, amount := range sums {
		if amount.IsZero() {
			continue
		}
		out = append(out, FundAmount{FundID: id, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FundID < out[j].FundID })
	return out
}

// Amount returns the amount held for a fund, zero if absent.
func (fa FundAmounts) Amount(fundID FundID) decimal.Decimal {
	for _, f := range fa {
		if f.FundID == fundID {
			return f.Amount
		}
	}
	return decimal.Zero
}

func (fa FundAmounts) Contains(fundID FundID) bool {
	for _, f := range fa {
		if f.FundID == fundID {
			return true
		}
	}
	return false
}

func (fa FundAmounts) HasDuplicateFunds() bool {
	seen := make(map[FundID]bool, len(fa))
	for _, f := range fa {
		if seen[f.FundID] {
			return true
		}
		seen[f.FundID] = true
	}
	return false
}

func (fa FundAmounts) Funds() []FundID {
	ids := make([]FundID, len(fa))
	for i, f := range fa {
		ids[i] = f.FundID
	}
	return ids
}

func (fa FundAmounts) Clone() FundAmounts {
	if fa == nil {
		return nil
	}
	return append(FundAmounts{}, fa...)
}

// =============================================================================
// ACCOUNT AMOUNT - Fund-scoped view of money, keyed by account
// =============================================================================

// AccountAmount is the portion of a fund's money held in one account.
type AccountAmount struct {
	AccountID AccountID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type AccountAmounts []AccountAmount

func (aa AccountAmounts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, a := range aa {
		total = total.Add(a.Amount)
	}
	return total
}

// Add merges other into a copy of aa by account, pruning zero entries.
func (aa AccountAmounts) Add(other ...AccountAmount) AccountAmounts {
	sums := make(map[AccountID]decimal.Decimal, len(aa)+len(other))
	for _, a := range aa {
		sums[a.AccountID] = sums[a.AccountID].Add(a.Amount)
	}
	for _, a := range other {
		sums[a.AccountID] = sums[a.AccountID].Add(a.Amount)
	}
	out := make(AccountAmounts, 0, len(sums))
	for id, amount := range sums {
		if amount.IsZero() {
			continue
		}
		out = append(out, AccountAmount{AccountID: id, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

func (aa AccountAmounts) Amount(accountID AccountID) decimal.Decimal {
	for _, a := range aa {
		if a.AccountID == accountID {
			return a.Amount
		}
	}
	return decimal.Zero
}

func (aa AccountAmounts) Clone() AccountAmounts {
	if aa == nil {
		return nil
	}
	return append(AccountAmounts{}, aa...)
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
