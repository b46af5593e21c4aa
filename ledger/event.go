/*
event.go - The Balance Event contract

PURPOSE:
  Every fact that can change a balance implements BalanceEvent. The engine
  only ever folds BalanceEvents; it does not know which concrete kind it is
  holding.

CONCRETE EVENTS:
  TransactionBalanceEvent: Added/Posted parts of one transaction leg
  ChangeInValue:           Interest, fees, market movement on one fund
  FundConversion:          Settled money moved between two funds

ORDERING:
  Events are totally ordered by (EventDate, EventSequence). EventSequence is
  allocated per calendar date across all event kinds, so the order is
  stable no matter which accounting period owns an event.

OWNERSHIP:
  AccountingPeriod() is the period the event was recorded under. The event
  date may fall up to one month either side of it.

SEE ALSO:
  - transaction_event.go, change_in_value.go, fund_conversion.go
  - balance_service.go: Folding events into balances
*/
package ledger

import (
	"math"
	"sort"
)

// ApplicationDirection selects forward application or its exact inverse.
type ApplicationDirection int

const (
	DirectionStandard ApplicationDirection = iota
	DirectionReverse
)

// sign returns +1 for Standard and -1 for Reverse.
func (d ApplicationDirection) sign() int {
	if d == DirectionReverse {
		return -1
	}
	return 1
}

type BalanceEvent interface {
	EventID() EventID
	Kind() EventKind
	AccountingPeriod() PeriodKey
	EventDate() Date
	EventSequence() int

	AccountIDs() []AccountID
	FundIDs() []FundID

	// IsValidToApply reports whether the event may be applied on top of
	// current. Events that do not touch current's account are always valid.
	IsValidToApply(current AccountBalance) error

	ApplyToAccountBalance(current AccountBalance, direction ApplicationDirection) AccountBalance
	ApplyToFundBalance(current FundBalance, direction ApplicationDirection) FundBalance
}

// =============================================================================
// EVENT ORDER
// =============================================================================

// position is a point in the total event order. An event is included at a
// position when it sorts at or before it.
type position struct {
	date     Date
	sequence int
}

func startOfDate(d Date) position { return position{date: d, sequence: 0} }
func endOfDate(d Date) position   { return position{date: d, sequence: math.MaxInt} }

func positionOf(e BalanceEvent) position {
	return position{date: e.EventDate(), sequence: e.EventSequence()}
}

func (p position) before(other position) bool {
	if !p.date.Equal(other.date) {
		return p.date.Before(other.date)
	}
	return p.sequence < other.sequence
}

// justBefore is the position immediately preceding p.
func (p position) justBefore() position {
	return position{date: p.date, sequence: p.sequence - 1}
}

func (p position) includes(e BalanceEvent) bool {
	return !p.before(positionOf(e))
}

func compareEvents(a, b BalanceEvent) bool {
	return positionOf(a).before(positionOf(b))
}

// SortEvents orders events by (EventDate, EventSequence).
func SortEvents(events []BalanceEvent) {
	sort.SliceStable(events, func(i, j int) bool { return compareEvents(events[i], events[j]) })
}

func touchesAccount(e BalanceEvent, accountID AccountID) bool {
	for _, id := range e.AccountIDs() {
		if id == accountID {
			return true
		}
	}
	return false
}

func touchesFund(e BalanceEvent, fundID FundID) bool {
	for _, id := range e.FundIDs() {
		if id == fundID {
			return true
		}
	}
	return false
}
