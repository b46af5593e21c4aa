package ledger

import (
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// PERIOD KEY - Calendar month used to order and index accounting periods
// =============================================================================

// PeriodKey is the natural key of an accounting period. Balance events
// reference their owning period by key, and the event store is indexed by it.
type PeriodKey struct {
	Year  int
	Month time.Month
}

func NewPeriodKey(year int, month time.Month) PeriodKey {
	return PeriodKey{Year: year, Month: month}
}

// index is a monotonically increasing month number.
func (k PeriodKey) index() int { return k.Year*12 + int(k.Month) - 1 }

func periodFromIndex(i int) PeriodKey {
	return PeriodKey{Year: i / 12, Month: time.Month(i%12 + 1)}
}

func (k PeriodKey) Next() PeriodKey     { return periodFromIndex(k.index() + 1) }
func (k PeriodKey) Previous() PeriodKey { return periodFromIndex(k.index() - 1) }

func (k PeriodKey) Before(other PeriodKey) bool { return k.index() < other.index() }
func (k PeriodKey) After(other PeriodKey) bool  { return k.index() > other.index() }

func (k PeriodKey) Start() Date { return NewDate(k.Year, k.Month, 1) }
func (k PeriodKey) End() Date   { return k.Next().Start().AddDays(-1) }

func (k PeriodKey) Contains(d Date) bool { return d.Period() == k }

// MonthsFrom returns the absolute distance in calendar months between the
// period and the month containing d.
func (k PeriodKey) MonthsFrom(d Date) int {
	diff := d.Period().index() - k.index()
	if diff < 0 {
		return -diff
	}
	return diff
}

// IsAdjacent reports whether d falls in the period's month or a neighbouring one.
func (k PeriodKey) IsAdjacent(d Date) bool { return k.MonthsFrom(d) <= 1 }

func (k PeriodKey) String() string { return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month)) }

// ParsePeriodKey parses the "YYYY-MM" form produced by String.
func ParsePeriodKey(s string) (PeriodKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return PeriodKey{}, fmt.Errorf("invalid period %q (use YYYY-MM): %w", s, err)
	}
	return PeriodKey{Year: t.Year(), Month: t.Month()}, nil
}

// periodsBetween returns every key in [from, to], oldest first.
func periodsBetween(from, to PeriodKey) []PeriodKey {
	var keys []PeriodKey
	for i := from.index(); i <= to.index(); i++ {
		keys = append(keys, periodFromIndex(i))
	}
	return keys
}

// =============================================================================
// ACCOUNTING PERIOD - A calendar month that is open (mutable) or closed
// =============================================================================

const (
	MinPeriodYear = 2020
	MaxPeriodYear = 2050
)

type AccountingPeriod struct {
	ID     AccountingPeriodID
	Year   int
	Month  time.Month
	IsOpen bool
}

func (p AccountingPeriod) Key() PeriodKey { return PeriodKey{Year: p.Year, Month: p.Month} }

// periodIndex is the loaded set of accounting periods for one unit of work.
type periodIndex struct {
	ordered []AccountingPeriod
	byID    map[AccountingPeriodID]AccountingPeriod
	byKey   map[PeriodKey]AccountingPeriod
}

func newPeriodIndex(periods []AccountingPeriod) *periodIndex {
	idx := &periodIndex{
		ordered: append([]AccountingPeriod{}, periods...),
		byID:    make(map[AccountingPeriodID]AccountingPeriod, len(periods)),
		byKey:   make(map[PeriodKey]AccountingPeriod, len(periods)),
	}
	sortPeriods(idx.ordered)
	for _, p := range periods {
		idx.byID[p.ID] = p
		idx.byKey[p.Key()] = p
	}
	return idx
}

func (idx *periodIndex) get(id AccountingPeriodID) (AccountingPeriod, bool) {
	p, ok := idx.byID[id]
	return p, ok
}

func (idx *periodIndex) find(key PeriodKey) (AccountingPeriod, bool) {
	p, ok := idx.byKey[key]
	return p, ok
}

func (idx *periodIndex) first() (AccountingPeriod, bool) {
	if len(idx.ordered) == 0 {
		return AccountingPeriod{}, false
	}
	return idx.ordered[0], true
}

func (idx *periodIndex) latest() (AccountingPeriod, bool) {
	if len(idx.ordered) == 0 {
		return AccountingPeriod{}, false
	}
	return idx.ordered[len(idx.ordered)-1], true
}

// keyOf resolves a period id to its calendar key, falling back to the zero key.
func (idx *periodIndex) keyOf(id AccountingPeriodID) PeriodKey {
	return idx.byID[id].Key()
}

func sortPeriods(periods []AccountingPeriod) {
	sort.Slice(periods, func(i, j int) bool { return periods[i].Key().Before(periods[j].Key()) })
}
