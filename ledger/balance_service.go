/*
balance_service.go - Balance computation engine

PURPOSE:
  Answers "what is the balance of this account (or fund) at point X", where
  X is a calendar date, a specific balance event, or an accounting period
  boundary. Nothing here writes; balances are rebuilt on every query.

THE PROBLEM:
  Events are owned by the period that was open when they were recorded, but
  their date may fall one month either side of it, and an event recorded
  later can be dated earlier than events already on file. So the engine
  never walks one period's events in storage order. It gathers events by
  owning period and folds them in (EventDate, EventSequence) order.

RECONSTRUCTING A BALANCE AT A POSITION:
  1. Pick the latest checkpoint whose period starts on or before the date.
     The checkpoint for P equals the fold of every event owned before P.
  2. Events owned by P-1 dated after the position are already inside the
     checkpoint: reverse them, newest first.
  3. Apply events owned by P and later that sort at or before the position.
  Without a checkpoint, fold everything from the target's first period.

PERIOD BALANCES:
  Starting(P) = checkpoint for P, else the inception amount in the target's
  first period, else Ending(P-1).
  Ending(P)   = checkpoint for P+1, else Starting(P) plus every event owned
  by P regardless of its date.

ACCOUNTS AND FUNDS:
  Both are folded by the same generic code; balanceTarget supplies the
  empty balance, the event filter and the apply function.

SEE ALSO:
  - event.go: Ordering and positions
  - accounting_period_service.go: Creates the checkpoints used here
  - validation.go: Re-folds timelines with proposed changes overlaid
*/
package ledger

import (
	"context"
)

// =============================================================================
// EVENT SOURCES
// =============================================================================

// eventSource yields the balance events owned by one period.
type eventSource interface {
	EventsByPeriod(ctx context.Context, period PeriodKey) ([]BalanceEvent, error)
}

// overlaySource shows a store as it would look after a pending command:
// removed events disappear and added events replace any stored event with
// the same id.
type overlaySource struct {
	base    eventSource
	added   []BalanceEvent
	removed map[EventID]bool
}

func newOverlaySource(base eventSource, added []BalanceEvent, removed []EventID) *overlaySource {
	o := &overlaySource{base: base, added: added, removed: make(map[EventID]bool)}
	for _, id := range removed {
		o.removed[id] = true
	}
	for _, e := range added {
		o.removed[e.EventID()] = true
	}
	return o
}

func (o *overlaySource) EventsByPeriod(ctx context.Context, period PeriodKey) ([]BalanceEvent, error) {
	stored, err := o.base.EventsByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	var events []BalanceEvent
	for _, e := range stored {
		if !o.removed[e.EventID()] {
			events = append(events, e)
		}
	}
	for _, e := range o.added {
		if e.AccountingPeriod() == period {
			events = append(events, e)
		}
	}
	return events, nil
}

// =============================================================================
// BALANCE TARGET - What is being folded
// =============================================================================

type balanceTarget[B any] struct {
	empty   B
	touches func(BalanceEvent) bool
	apply   func(BalanceEvent, B, ApplicationDirection) B

	// firstPeriod is the earliest period that can own events for the target,
	// and firstDate the earliest date that can be queried.
	firstPeriod PeriodKey
	firstDate   Date

	// inceptionEvent marks events counted in the starting balance of
	// firstPeriod rather than in its activity. May be nil.
	inceptionEvent func(BalanceEvent) bool

	checkpoints map[PeriodKey]B
}

// checkpointAt returns the latest checkpoint whose period starts on or before d.
func (t balanceTarget[B]) checkpointAt(d Date) (B, PeriodKey, bool) {
	var (
		best  B
		key   PeriodKey
		found bool
	)
	for k, cp := range t.checkpoints {
		if k.Start().After(d) {
			continue
		}
		if !found || k.After(key) {
			best, key, found = cp, k, true
		}
	}
	return best, key, found
}

func (t balanceTarget[B]) fold(bal B, events []BalanceEvent, direction ApplicationDirection) B {
	if direction == DirectionReverse {
		for i := len(events) - 1; i >= 0; i-- {
			bal = t.apply(events[i], bal, direction)
		}
		return bal
	}
	for _, e := range events {
		bal = t.apply(e, bal, direction)
	}
	return bal
}

// collect returns the target's events owned by periods in [from, to], sorted.
func collect[B any](ctx context.Context, src eventSource, t balanceTarget[B], from, to PeriodKey) ([]BalanceEvent, error) {
	var out []BalanceEvent
	for _, key := range periodsBetween(from, to) {
		events, err := src.EventsByPeriod(ctx, key)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			if t.touches(e) {
				out = append(out, e)
			}
		}
	}
	SortEvents(out)
	return out, nil
}

func filterEvents(events []BalanceEvent, keep func(BalanceEvent) bool) []BalanceEvent {
	var out []BalanceEvent
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// balanceAt reconstructs the balance including every event at or before at.
func balanceAt[B any](ctx context.Context, src eventSource, t balanceTarget[B], at position, latest PeriodKey) (B, error) {
	bal := t.empty
	from := t.firstPeriod

	if cp, key, ok := t.checkpointAt(at.date); ok {
		bal, from = cp, key
		prior, err := collect(ctx, src, t, key.Previous(), key.Previous())
		if err != nil {
			return bal, err
		}
		later := filterEvents(prior, func(e BalanceEvent) bool { return !at.includes(e) })
		bal = t.fold(bal, later, DirectionReverse)
	}

	events, err := collect(ctx, src, t, from, minPeriod(at.date.Period().Next(), latest))
	if err != nil {
		return bal, err
	}
	return t.fold(bal, filterEvents(events, at.includes), DirectionStandard), nil
}

// eventsAfter returns the target's events that sort strictly after p.
func eventsAfter[B any](ctx context.Context, src eventSource, t balanceTarget[B], p position, latest PeriodKey) ([]BalanceEvent, error) {
	events, err := collect(ctx, src, t, p.date.Period().Previous(), latest)
	if err != nil {
		return nil, err
	}
	return filterEvents(events, func(e BalanceEvent) bool { return !p.includes(e) }), nil
}

type datedBalance[B any] struct {
	date    Date
	balance B
}

type eventBalance[B any] struct {
	event   BalanceEvent
	balance B
}

// eventsInRange returns the target's events dated inside r, sorted.
func eventsInRange[B any](ctx context.Context, src eventSource, t balanceTarget[B], r DateRange, latest PeriodKey) ([]BalanceEvent, error) {
	events, err := collect(ctx, src, t, r.Start.Period().Previous(), minPeriod(r.End.Period().Next(), latest))
	if err != nil {
		return nil, err
	}
	return filterEvents(events, func(e BalanceEvent) bool { return r.Contains(e.EventDate()) }), nil
}

func balancesByDate[B any](ctx context.Context, src eventSource, t balanceTarget[B], r DateRange, latest PeriodKey) ([]datedBalance[B], error) {
	bal, err := balanceAt(ctx, src, t, startOfDate(r.Start), latest)
	if err != nil {
		return nil, err
	}
	events, err := eventsInRange(ctx, src, t, r, latest)
	if err != nil {
		return nil, err
	}

	var out []datedBalance[B]
	i := 0
	for _, d := range r.Dates() {
		for ; i < len(events) && events[i].EventDate().Equal(d); i++ {
			bal = t.apply(events[i], bal, DirectionStandard)
		}
		out = append(out, datedBalance[B]{date: d, balance: bal})
	}
	return out, nil
}

func balancesByEvent[B any](ctx context.Context, src eventSource, t balanceTarget[B], r DateRange, latest PeriodKey) ([]eventBalance[B], error) {
	bal, err := balanceAt(ctx, src, t, startOfDate(r.Start), latest)
	if err != nil {
		return nil, err
	}
	events, err := eventsInRange(ctx, src, t, r, latest)
	if err != nil {
		return nil, err
	}

	out := make([]eventBalance[B], 0, len(events))
	for _, e := range events {
		bal = t.apply(e, bal, DirectionStandard)
		out = append(out, eventBalance[B]{event: e, balance: bal})
	}
	return out, nil
}

// balanceForPeriod walks forward from the nearest period whose starting
// balance is known without recursion: a checkpoint, or the first period.
func balanceForPeriod[B any](ctx context.Context, src eventSource, t balanceTarget[B], key PeriodKey) (starting, ending B, err error) {
	start := key
	for {
		if _, ok := t.checkpoints[start]; ok || !start.After(t.firstPeriod) {
			break
		}
		start = start.Previous()
	}

	bal, ok := t.checkpoints[start]
	if !ok {
		if bal, err = inception(ctx, src, t); err != nil {
			return starting, ending, err
		}
	}

	for k := start; ; k = k.Next() {
		starting = bal
		if next, ok := t.checkpoints[k.Next()]; ok {
			ending = next
		} else {
			events, err := collect(ctx, src, t, k, k)
			if err != nil {
				return starting, ending, err
			}
			if t.inceptionEvent != nil && k == t.firstPeriod {
				events = filterEvents(events, func(e BalanceEvent) bool { return !t.inceptionEvent(e) })
			}
			ending = t.fold(starting, events, DirectionStandard)
		}
		if k == key {
			return starting, ending, nil
		}
		bal = ending
	}
}

// inception is the target's balance before any activity in its first period.
func inception[B any](ctx context.Context, src eventSource, t balanceTarget[B]) (B, error) {
	if t.inceptionEvent == nil {
		return t.empty, nil
	}
	events, err := collect(ctx, src, t, t.firstPeriod, t.firstPeriod)
	if err != nil {
		return t.empty, err
	}
	return t.fold(t.empty, filterEvents(events, t.inceptionEvent), DirectionStandard), nil
}

func minPeriod(a, b PeriodKey) PeriodKey {
	if a.Before(b) {
		return a
	}
	return b
}

// =============================================================================
// BALANCE ENGINE - Bound to one unit of work
// =============================================================================

type balanceEngine struct {
	store   Store
	events  eventSource
	periods *periodIndex
}

func newBalanceEngine(ctx context.Context, store Store) (*balanceEngine, error) {
	periods, err := loadPeriods(ctx, store)
	if err != nil {
		return nil, err
	}
	return &balanceEngine{store: store, events: store, periods: periods}, nil
}

// withOverlay returns an engine that sees the proposed changes.
func (e *balanceEngine) withOverlay(added []BalanceEvent, removed []EventID) *balanceEngine {
	return &balanceEngine{
		store:   e.store,
		events:  newOverlaySource(e.events, added, removed),
		periods: e.periods,
	}
}

func (e *balanceEngine) latestPeriod() (PeriodKey, error) {
	latest, ok := e.periods.latest()
	if !ok {
		return PeriodKey{}, newRuleError(ErrInvalidAccountingPeriod, "no accounting periods exist")
	}
	return latest.Key(), nil
}

func (e *balanceEngine) accountTarget(ctx context.Context, account Account) (balanceTarget[AccountBalance], error) {
	checkpoints, err := e.store.ListAccountCheckpoints(ctx, account.ID)
	if err != nil {
		return balanceTarget[AccountBalance]{}, err
	}
	byPeriod := make(map[PeriodKey]AccountBalance, len(checkpoints))
	for _, cp := range checkpoints {
		bal := NewAccountBalance(account)
		bal.Balance = cp.FundBalances.Clone()
		byPeriod[e.periods.keyOf(cp.AccountingPeriodID)] = bal
	}

	return balanceTarget[AccountBalance]{
		empty:   NewAccountBalance(account),
		touches: func(ev BalanceEvent) bool { return touchesAccount(ev, account.ID) },
		apply: func(ev BalanceEvent, b AccountBalance, d ApplicationDirection) AccountBalance {
			return ev.ApplyToAccountBalance(b, d)
		},
		firstPeriod: e.periods.keyOf(account.InitialAccountingPeriodID),
		firstDate:   account.InitialDate,
		inceptionEvent: func(ev BalanceEvent) bool {
			te, ok := ev.(TransactionBalanceEvent)
			return ok && account.InitialTransactionID != "" && te.TransactionID == account.InitialTransactionID
		},
		checkpoints: byPeriod,
	}, nil
}

func (e *balanceEngine) fundTarget(ctx context.Context, fund Fund) (balanceTarget[FundBalance], error) {
	first, ok := e.periods.first()
	if !ok {
		return balanceTarget[FundBalance]{}, newRuleError(ErrInvalidAccountingPeriod, "no accounting periods exist")
	}
	checkpoints, err := e.store.ListFundCheckpoints(ctx, fund.ID)
	if err != nil {
		return balanceTarget[FundBalance]{}, err
	}
	byPeriod := make(map[PeriodKey]FundBalance, len(checkpoints))
	for _, cp := range checkpoints {
		bal := NewFundBalance(fund)
		bal.Balance = cp.AccountBalances.Clone()
		byPeriod[e.periods.keyOf(cp.AccountingPeriodID)] = bal
	}

	return balanceTarget[FundBalance]{
		empty:   NewFundBalance(fund),
		touches: func(ev BalanceEvent) bool { return touchesFund(ev, fund.ID) },
		apply: func(ev BalanceEvent, b FundBalance, d ApplicationDirection) FundBalance {
			return ev.ApplyToFundBalance(b, d)
		},
		firstPeriod: first.Key(),
		firstDate:   first.Key().Start(),
		checkpoints: byPeriod,
	}, nil
}

// checkRange rejects ranges outside [firstDate, last day any event can be dated].
func (e *balanceEngine) checkRange(r DateRange, firstDate Date) (PeriodKey, error) {
	latest, err := e.latestPeriod()
	if err != nil {
		return latest, err
	}
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start) {
		return latest, newRuleError(ErrInvalidTransactionDate, "invalid date range %s to %s", r.Start, r.End)
	}
	if r.Start.Before(firstDate) {
		return latest, newRuleError(ErrInvalidTransactionDate, "no applicable accounting period for %s", r.Start)
	}
	if r.End.After(latest.Next().End()) {
		return latest, newRuleError(ErrInvalidTransactionDate, "no applicable accounting period for %s", r.End)
	}
	return latest, nil
}

// checkPeriod rejects periods before the target's first period.
func (e *balanceEngine) checkPeriod(key, first PeriodKey) error {
	if key.Before(first) {
		return newRuleError(ErrInvalidAccountingPeriod, "period %s is before %s", key, first)
	}
	return nil
}

// ===== Account queries =====

// accountBalanceAt includes every event at or before at.
func (e *balanceEngine) accountBalanceAt(ctx context.Context, account Account, at position) (AccountBalance, error) {
	t, err := e.accountTarget(ctx, account)
	if err != nil {
		return AccountBalance{}, err
	}
	latest, err := e.latestPeriod()
	if err != nil {
		return AccountBalance{}, err
	}
	return balanceAt(ctx, e.events, t, at, latest)
}

func (e *balanceEngine) accountBalancesByDate(ctx context.Context, account Account, r DateRange) ([]AccountBalanceByDate, error) {
	t, err := e.accountTarget(ctx, account)
	if err != nil {
		return nil, err
	}
	latest, err := e.checkRange(r, t.firstDate)
	if err != nil {
		return nil, err
	}
	dated, err := balancesByDate(ctx, e.events, t, r, latest)
	if err != nil {
		return nil, err
	}
	out := make([]AccountBalanceByDate, len(dated))
	for i, d := range dated {
		out[i] = AccountBalanceByDate{Date: d.date, Balance: d.balance}
	}
	return out, nil
}

func (e *balanceEngine) accountBalancesByEvent(ctx context.Context, account Account, r DateRange) ([]AccountBalanceByEvent, error) {
	t, err := e.accountTarget(ctx, account)
	if err != nil {
		return nil, err
	}
	latest, err := e.checkRange(r, t.firstDate)
	if err != nil {
		return nil, err
	}
	sequenced, err := balancesByEvent(ctx, e.events, t, r, latest)
	if err != nil {
		return nil, err
	}
	out := make([]AccountBalanceByEvent, len(sequenced))
	for i, s := range sequenced {
		out[i] = AccountBalanceByEvent{Event: s.event, Balance: s.balance}
	}
	return out, nil
}

func (e *balanceEngine) accountBalanceByPeriod(ctx context.Context, account Account, period AccountingPeriod) (AccountBalanceByAccountingPeriod, error) {
	result := AccountBalanceByAccountingPeriod{AccountingPeriod: period}
	t, err := e.accountTarget(ctx, account)
	if err != nil {
		return result, err
	}
	if err := e.checkPeriod(period.Key(), t.firstPeriod); err != nil {
		return result, err
	}
	result.Starting, result.Ending, err = balanceForPeriod(ctx, e.events, t, period.Key())
	return result, err
}

// ===== Fund queries =====

func (e *balanceEngine) fundBalancesByDate(ctx context.Context, fund Fund, r DateRange) ([]FundBalanceByDate, error) {
	t, err := e.fundTarget(ctx, fund)
	if err != nil {
		return nil, err
	}
	latest, err := e.checkRange(r, t.firstDate)
	if err != nil {
		return nil, err
	}
	dated, err := balancesByDate(ctx, e.events, t, r, latest)
	if err != nil {
		return nil, err
	}
	out := make([]FundBalanceByDate, len(dated))
	for i, d := range dated {
		out[i] = FundBalanceByDate{Date: d.date, Balance: d.balance}
	}
	return out, nil
}

func (e *balanceEngine) fundBalancesByEvent(ctx context.Context, fund Fund, r DateRange) ([]FundBalanceByEvent, error) {
	t, err := e.fundTarget(ctx, fund)
	if err != nil {
		return nil, err
	}
	latest, err := e.checkRange(r, t.firstDate)
	if err != nil {
		return nil, err
	}
	sequenced, err := balancesByEvent(ctx, e.events, t, r, latest)
	if err != nil {
		return nil, err
	}
	out := make([]FundBalanceByEvent, len(sequenced))
	for i, s := range sequenced {
		out[i] = FundBalanceByEvent{Event: s.event, Balance: s.balance}
	}
	return out, nil
}

func (e *balanceEngine) fundBalanceByPeriod(ctx context.Context, fund Fund, period AccountingPeriod) (FundBalanceByAccountingPeriod, error) {
	result := FundBalanceByAccountingPeriod{AccountingPeriod: period}
	t, err := e.fundTarget(ctx, fund)
	if err != nil {
		return result, err
	}
	if err := e.checkPeriod(period.Key(), t.firstPeriod); err != nil {
		return result, err
	}
	result.Starting, result.Ending, err = balanceForPeriod(ctx, e.events, t, period.Key())
	return result, err
}

// =============================================================================
// BALANCE SERVICE - Read-only queries, one unit of work each
// =============================================================================

type BalanceService struct {
	store TxStore
}

func NewBalanceService(store TxStore) *BalanceService {
	return &BalanceService{store: store}
}

// query runs fn with an engine bound to a fresh unit of work.
func (s *BalanceService) query(ctx context.Context, fn func(tx Store, engine *balanceEngine) error) error {
	return s.store.WithTx(ctx, func(tx Store) error {
		engine, err := newBalanceEngine(ctx, tx)
		if err != nil {
			return err
		}
		return fn(tx, engine)
	})
}

// AccountBalanceAsOf returns the balance after every event dated on or before date.
func (s *BalanceService) AccountBalanceAsOf(ctx context.Context, accountID AccountID, date Date) (AccountBalance, error) {
	var result AccountBalance
	err := s.query(ctx, func(tx Store, engine *balanceEngine) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if _, err := engine.checkRange(DateRange{Start: date, End: date}, account.InitialDate); err != nil {
			return err
		}
		result, err = engine.accountBalanceAt(ctx, *account, endOfDate(date))
		return err
	})
	return result, err
}

func (s *BalanceService) AccountBalancesByDate(ctx context.Context, accountID AccountID, r DateRange) ([]AccountBalanceByDate, error) {
	var result []AccountBalanceByDate
	err := s.query(ctx, func(tx Store, engine *balanceEngine) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		result, err = engine.accountBalancesByDate(ctx, *account, r)
		return err
	})
	return result, err
}

func (s *BalanceService) AccountBalancesByEvent(ctx context.Context, accountID AccountID, r DateRange) ([]AccountBalanceByEvent, error) {
	var result []AccountBalanceByEvent
	err := s.query(ctx, func(tx Store, engine *balanceEngine) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		result, err = engine.accountBalancesByEvent(ctx, *account, r)
		return err
	})
	return result, err
}

func (s *BalanceService) AccountBalanceByAccountingPeriod(ctx context.Context, accountID AccountID, periodID AccountingPeriodID) (AccountBalanceByAccountingPeriod, error) {
	var result AccountBalanceByAccountingPeriod
	err := s.query(ctx, func(tx Store, engine *balanceEngine) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		period, err := tx.GetAccountingPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		result, err = engine.accountBalanceByPeriod(ctx, *account, *period)
		return err
	})
	return result, err
}

func (s *BalanceService) FundBalancesByDate(ctx context.Context, fundID FundID, r DateRange) ([]FundBalanceByDate, error) {
	var result []FundBalanceByDate
	err := s.query(ctx, func(tx Store, engine *balanceEngine) error {
		fund, err := tx.GetFund(ctx, fundID)
		if err != nil {
			return err
		}
		result, err = engine.fundBalancesByDate(ctx, *fund, r)
		return err
	})
	return result, err
}

func (s *BalanceService) FundBalancesByEvent(ctx context.Context, fundID FundID, r DateRange) ([]FundBalanceByEvent, error) {
	var result []FundBalanceByEvent
	err := s.query(ctx, func(tx Store, engine *balanceEngine) error {
		fund, err := tx.GetFund(ctx, fundID)
		if err != nil {
			return err
		}
		result, err = engine.fundBalancesByEvent(ctx, *fund, r)
		return err
	})
	return result, err
}

func (s *BalanceService) FundBalanceByAccountingPeriod(ctx context.Context, fundID FundID, periodID AccountingPeriodID) (FundBalanceByAccountingPeriod, error) {
	var result FundBalanceByAccountingPeriod
	err := s.query(ctx, func(tx Store, engine *balanceEngine) error {
		fund, err := tx.GetFund(ctx, fundID)
		if err != nil {
			return err
		}
		period, err := tx.GetAccountingPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		result, err = engine.fundBalanceByPeriod(ctx, *fund, *period)
		return err
	})
	return result, err
}
