// Package store provides the in-memory ledger store.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/atforche/financial-tracker/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps every entity in maps. Units of work are serialized by a
// mutex and rolled back by restoring a snapshot taken before fn runs.
// Aggregates are cloned on the way in and out so callers never share
// slices with the store.
type Memory struct {
	mu    sync.Mutex
	state *state
}

var (
	_ ledger.TxStore = (*Memory)(nil)
	_ ledger.Store   = (*state)(nil)
)

func NewMemory() *Memory {
	return &Memory{state: newState()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.snapshot()
	if err := fn(m.state); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// Reset drops every entity.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = newState()
	return nil
}

type state struct {
	accounts           map[ledger.AccountID]ledger.Account
	funds              map[ledger.FundID]ledger.Fund
	periods            map[ledger.AccountingPeriodID]ledger.AccountingPeriod
	transactions       map[ledger.TransactionID]*ledger.Transaction
	adjustments        map[ledger.EventID]ledger.BalanceEvent
	accountCheckpoints map[ledger.CheckpointID]ledger.AccountBalanceCheckpoint
	fundCheckpoints    map[ledger.CheckpointID]ledger.FundBalanceCheckpoint
}

func newState() *state {
	return &state{
		accounts:           make(map[ledger.AccountID]ledger.Account),
		funds:              make(map[ledger.FundID]ledger.Fund),
		periods:            make(map[ledger.AccountingPeriodID]ledger.AccountingPeriod),
		transactions:       make(map[ledger.TransactionID]*ledger.Transaction),
		adjustments:        make(map[ledger.EventID]ledger.BalanceEvent),
		accountCheckpoints: make(map[ledger.CheckpointID]ledger.AccountBalanceCheckpoint),
		fundCheckpoints:    make(map[ledger.CheckpointID]ledger.FundBalanceCheckpoint),
	}
}

// snapshot copies the maps. Stored values are never mutated in place, so
// the values themselves can be shared.
func (s *state) snapshot() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.funds {
		c.funds[k] = v
	}
	for k, v := range s.periods {
		c.periods[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.adjustments {
		c.adjustments[k] = v
	}
	for k, v := range s.accountCheckpoints {
		c.accountCheckpoints[k] = v
	}
	for k, v := range s.fundCheckpoints {
		c.fundCheckpoints[k] = v
	}
	return c
}

// ===== Accounts =====

func (s *state) GetAccount(_ context.Context, id ledger.AccountID) (*ledger.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return &account, nil
}

func (s *state) FindAccountByName(_ context.Context, name string) (*ledger.Account, error) {
	for _, account := range s.accounts {
		if account.Name == name {
			return &account, nil
		}
	}
	return nil, nil
}

func (s *state) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	result := make([]ledger.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *state) SaveAccount(_ context.Context, account ledger.Account) error {
	s.accounts[account.ID] = account
	return nil
}

func (s *state) DeleteAccount(_ context.Context, id ledger.AccountID) error {
	delete(s.accounts, id)
	for cpID, cp := range s.accountCheckpoints {
		if cp.AccountID == id {
			delete(s.accountCheckpoints, cpID)
		}
	}
	return nil
}

// ===== Funds =====

func (s *state) GetFund(_ context.Context, id ledger.FundID) (*ledger.Fund, error) {
	fund, ok := s.funds[id]
	if !ok {
		return nil, ledger.ErrFundNotFound
	}
	return &fund, nil
}

func (s *state) FindFundByName(_ context.Context, name string) (*ledger.Fund, error) {
	for _, fund := range s.funds {
		if fund.Name == name {
			return &fund, nil
		}
	}
	return nil, nil
}

func (s *state) ListFunds(_ context.Context) ([]ledger.Fund, error) {
	result := make([]ledger.Fund, 0, len(s.funds))
	for _, fund := range s.funds {
		result = append(result, fund)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *state) SaveFund(_ context.Context, fund ledger.Fund) error {
	s.funds[fund.ID] = fund
	return nil
}

func (s *state) DeleteFund(_ context.Context, id ledger.FundID) error {
	delete(s.funds, id)
	for cpID, cp := range s.fundCheckpoints {
		if cp.FundID == id {
			delete(s.fundCheckpoints, cpID)
		}
	}
	return nil
}

// ===== Accounting periods =====

func (s *state) GetAccountingPeriod(_ context.Context, id ledger.AccountingPeriodID) (*ledger.AccountingPeriod, error) {
	period, ok := s.periods[id]
	if !ok {
		return nil, ledger.ErrAccountingPeriodNotFound
	}
	return &period, nil
}

func (s *state) ListAccountingPeriods(_ context.Context) ([]ledger.AccountingPeriod, error) {
	result := make([]ledger.AccountingPeriod, 0, len(s.periods))
	for _, period := range s.periods {
		result = append(result, period)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key().Before(result[j].Key()) })
	return result, nil
}

func (s *state) SaveAccountingPeriod(_ context.Context, period ledger.AccountingPeriod) error {
	s.periods[period.ID] = period
	return nil
}

func (s *state) DeleteAccountingPeriod(_ context.Context, id ledger.AccountingPeriodID) error {
	delete(s.periods, id)
	return nil
}

// ===== Transactions =====

func (s *state) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	t, ok := s.transactions[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	return t.Clone(), nil
}

func (s *state) ListTransactionsByPeriod(_ context.Context, periodID ledger.AccountingPeriodID) ([]ledger.Transaction, error) {
	var result []ledger.Transaction
	for _, t := range s.transactions {
		if t.AccountingPeriodID == periodID {
			result = append(result, *t.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Sequence < result[j].Sequence
	})
	return result, nil
}

func (s *state) SaveTransaction(_ context.Context, t *ledger.Transaction) error {
	s.transactions[t.ID] = t.Clone()
	return nil
}

func (s *state) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	delete(s.transactions, id)
	return nil
}

func (s *state) NextTransactionSequence(_ context.Context, date ledger.Date) (int, error) {
	highest := 0
	for _, t := range s.transactions {
		if t.Date.Equal(date) && t.Sequence > highest {
			highest = t.Sequence
		}
	}
	return highest + 1, nil
}

// ===== Balance events =====

func (s *state) events() []ledger.BalanceEvent {
	var events []ledger.BalanceEvent
	for _, t := range s.transactions {
		events = append(events, t.Clone().Events()...)
	}
	for _, e := range s.adjustments {
		events = append(events, e)
	}
	return events
}

func (s *state) EventsByPeriod(_ context.Context, period ledger.PeriodKey) ([]ledger.BalanceEvent, error) {
	var result []ledger.BalanceEvent
	for _, e := range s.events() {
		if e.AccountingPeriod() == period {
			result = append(result, e)
		}
	}
	ledger.SortEvents(result)
	return result, nil
}

func (s *state) NextEventSequence(_ context.Context, date ledger.Date) (int, error) {
	highest := 0
	for _, e := range s.events() {
		if e.EventDate().Equal(date) && e.EventSequence() > highest {
			highest = e.EventSequence()
		}
	}
	return highest + 1, nil
}

func (s *state) SaveChangeInValue(_ context.Context, event ledger.ChangeInValue) error {
	s.adjustments[event.ID] = event
	return nil
}

func (s *state) SaveFundConversion(_ context.Context, event ledger.FundConversion) error {
	s.adjustments[event.ID] = event
	return nil
}

// ===== Checkpoints =====

func (s *state) ListAccountCheckpoints(_ context.Context, accountID ledger.AccountID) ([]ledger.AccountBalanceCheckpoint, error) {
	var result []ledger.AccountBalanceCheckpoint
	for _, cp := range s.accountCheckpoints {
		if cp.AccountID == accountID {
			cp.FundBalances = cp.FundBalances.Clone()
			result = append(result, cp)
		}
	}
	return result, nil
}

func (s *state) SaveAccountCheckpoint(_ context.Context, checkpoint ledger.AccountBalanceCheckpoint) error {
	checkpoint.FundBalances = checkpoint.FundBalances.Clone()
	s.accountCheckpoints[checkpoint.ID] = checkpoint
	return nil
}

func (s *state) ListFundCheckpoints(_ context.Context, fundID ledger.FundID) ([]ledger.FundBalanceCheckpoint, error) {
	var result []ledger.FundBalanceCheckpoint
	for _, cp := range s.fundCheckpoints {
		if cp.FundID == fundID {
			cp.AccountBalances = cp.AccountBalances.Clone()
			result = append(result, cp)
		}
	}
	return result, nil
}

func (s *state) SaveFundCheckpoint(_ context.Context, checkpoint ledger.FundBalanceCheckpoint) error {
	checkpoint.AccountBalances = checkpoint.AccountBalances.Clone()
	s.fundCheckpoints[checkpoint.ID] = checkpoint
	return nil
}

func (s *state) DeleteCheckpointsForPeriod(_ context.Context, periodID ledger.AccountingPeriodID) error {
	for id, cp := range s.accountCheckpoints {
		if cp.AccountingPeriodID == periodID {
			delete(s.accountCheckpoints, id)
		}
	}
	for id, cp := range s.fundCheckpoints {
		if cp.AccountingPeriodID == periodID {
			delete(s.fundCheckpoints, id)
		}
	}
	return nil
}
