/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Provides pre-built scenarios that populate the ledger with realistic
	data for demos and manual testing. Each scenario creates periods, funds,
	accounts, transactions and adjustments that show one engine feature.

AVAILABLE SCENARIOS:
	worked-example: One account, a debit added then posted the same day
	cross-period:   Events dated outside their owning period, November closed
	household:      Several funds, a credit card paid off, a conversion and interest

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create accounting periods, funds and accounts
 3. Add, post and adjust through the ledger services, so every
    rule is checked exactly as for API callers

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "household"}

NOTE:
	Scenarios reset the store. Only use in development/demo environments.
	The routes exist only when the handler was built WithScenarios.

SEE ALSO:
  - handlers.go: Handler
  - cmd/server/serve.go: Enables scenarios when demo.scenarios is set
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atforche/financial-tracker/ledger"
)

// Resetter clears a store. Both store implementations satisfy it.
type Resetter interface {
	Reset(ctx context.Context) error
}

// WithScenarios enables the scenario endpoints over store.
func (h *Handler) WithScenarios(store Resetter) *Handler {
	h.resetter = store
	return h
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "worked-example",
		Name:        "Worked Example",
		Description: "2500.00 opening balance, 250.00 debit added and posted on 2024-11-05",
	},
	{
		ID:          "cross-period",
		Name:        "Cross-Period Events",
		Description: "Transactions dated in the month before and after their owning period; November closed",
	},
	{
		ID:          "household",
		Name:        "Household",
		Description: "Checking, savings and a credit card across rent, groceries and savings funds",
	},
}

var scenarioLoaders = map[string]func(s *seeder){
	"worked-example": loadWorkedExample,
	"cross-period":   loadCrossPeriod,
	"household":      loadHousehold,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("no scenario %q", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.resetter.Reset(ctx); err != nil {
		h.fail(w, r, "Failed to reset store", err)
		return
	}

	s := &seeder{ctx: ctx, l: h.Ledger}
	load(s)
	if s.err != nil {
		h.fail(w, r, "Failed to load scenario", s.err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SEEDER - Ledger calls that stop at the first error
// =============================================================================

type seeder struct {
	ctx context.Context
	l   *ledger.Ledger
	err error
}

func (s *seeder) fail(step string, err error) {
	if err != nil && s.err == nil {
		s.err = fmt.Errorf("%s: %w", step, err)
	}
}

func (s *seeder) period(year int, month time.Month) ledger.AccountingPeriod {
	if s.err != nil {
		return ledger.AccountingPeriod{}
	}
	p, err := s.l.Periods.CreateAccountingPeriod(s.ctx, year, month)
	s.fail("create period", err)
	if p == nil {
		return ledger.AccountingPeriod{}
	}
	return *p
}

func (s *seeder) close(p ledger.AccountingPeriod) {
	if s.err != nil {
		return
	}
	_, err := s.l.Periods.ClosePeriod(s.ctx, p.ID)
	s.fail("close period "+p.Key().String(), err)
}

func (s *seeder) fund(name string) ledger.FundID {
	if s.err != nil {
		return ""
	}
	f, err := s.l.Funds.CreateFund(s.ctx, ledger.CreateFundRequest{Name: name})
	s.fail("create fund "+name, err)
	if f == nil {
		return ""
	}
	return f.ID
}

func (s *seeder) account(name string, typ ledger.AccountType, p ledger.AccountingPeriod, on string, amounts ...ledger.FundAmount) ledger.AccountID {
	if s.err != nil {
		return ""
	}
	a, err := s.l.Accounts.CreateAccount(s.ctx, ledger.CreateAccountRequest{
		Name:               name,
		Type:               typ,
		AccountingPeriodID: p.ID,
		Date:               ledger.MustParseDate(on),
		FundAmounts:        amounts,
	})
	s.fail("create account "+name, err)
	if a == nil {
		return ""
	}
	return a.ID
}

// transaction adds a transaction; debit or credit may be empty.
func (s *seeder) transaction(p ledger.AccountingPeriod, on, description string, debit, credit ledger.AccountID, amounts ...ledger.FundAmount) ledger.TransactionID {
	if s.err != nil {
		return ""
	}
	req := ledger.AddTransactionRequest{
		AccountingPeriodID: p.ID,
		Date:               ledger.MustParseDate(on),
		Description:        description,
	}
	if debit != "" {
		req.DebitAccount = &ledger.TransactionAccountRequest{AccountID: debit, FundAmounts: amounts}
	}
	if credit != "" {
		req.CreditAccount = &ledger.TransactionAccountRequest{AccountID: credit, FundAmounts: amounts}
	}
	t, err := s.l.Transactions.AddTransaction(s.ctx, req)
	s.fail("add transaction "+description, err)
	if t == nil {
		return ""
	}
	return t.ID
}

func (s *seeder) post(id ledger.TransactionID, account ledger.AccountID, on string) {
	if s.err != nil {
		return
	}
	_, err := s.l.Transactions.PostTransaction(s.ctx, id, account, ledger.MustParseDate(on))
	s.fail("post transaction", err)
}

func (s *seeder) changeInValue(p ledger.AccountingPeriod, on string, account ledger.AccountID, amount ledger.FundAmount, description string) {
	if s.err != nil {
		return
	}
	_, err := s.l.Adjustments.AddChangeInValue(s.ctx, ledger.AddChangeInValueRequest{
		AccountingPeriodID: p.ID,
		Date:               ledger.MustParseDate(on),
		AccountID:          account,
		FundAmount:         amount,
		Description:        description,
	})
	s.fail("add change in value", err)
}

func (s *seeder) convert(p ledger.AccountingPeriod, on string, account ledger.AccountID, from, to ledger.FundID, amount string) {
	if s.err != nil {
		return
	}
	_, err := s.l.Adjustments.AddFundConversion(s.ctx, ledger.AddFundConversionRequest{
		AccountingPeriodID: p.ID,
		Date:               ledger.MustParseDate(on),
		AccountID:          account,
		FromFundID:         from,
		ToFundID:           to,
		Amount:             decimal.RequireFromString(amount),
	})
	s.fail("add fund conversion", err)
}

func amount(fund ledger.FundID, s string) ledger.FundAmount {
	return ledger.NewFundAmount(fund, decimal.RequireFromString(s))
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadWorkedExample(s *seeder) {
	nov := s.period(2024, time.November)
	fund := s.fund("Test")
	account := s.account("Test", ledger.AccountStandard, nov, "2024-11-01", amount(fund, "2500.00"))

	tx := s.transaction(nov, "2024-11-05", "Groceries", account, "", amount(fund, "250.00"))
	s.post(tx, account, "2024-11-05")
}

func loadCrossPeriod(s *seeder) {
	nov := s.period(2024, time.November)
	dec := s.period(2024, time.December)
	fund := s.fund("General")
	checking := s.account("Checking", ledger.AccountStandard, nov, "2024-11-01", amount(fund, "1000.00"))

	rent := s.transaction(nov, "2024-11-10", "Rent", checking, "", amount(fund, "100.00"))
	s.post(rent, checking, "2024-11-12")

	// Recorded under December, dated in November.
	late := s.transaction(dec, "2024-11-28", "Late statement", checking, "", amount(fund, "50.00"))
	// Recorded under November, dated in December.
	early := s.transaction(nov, "2024-12-03", "Prepaid subscription", checking, "", amount(fund, "25.00"))
	s.post(early, checking, "2024-12-03")
	s.post(late, checking, "2024-12-02")

	s.close(nov)
}

func loadHousehold(s *seeder) {
	nov := s.period(2024, time.November)
	rent := s.fund("Rent")
	groceries := s.fund("Groceries")
	savings := s.fund("Savings")

	checking := s.account("Checking", ledger.AccountStandard, nov, "2024-11-01",
		amount(rent, "1500.00"), amount(groceries, "500.00"))
	saver := s.account("High-Yield Savings", ledger.AccountStandard, nov, "2024-11-01", amount(savings, "5000.00"))
	card := s.account("Credit Card", ledger.AccountDebt, nov, "2024-11-01")

	rentTx := s.transaction(nov, "2024-11-01", "November rent", checking, "", amount(rent, "1500.00"))
	s.post(rentTx, checking, "2024-11-02")

	shop := s.transaction(nov, "2024-11-08", "Weekly shop", card, "", amount(groceries, "120.00"))
	s.post(shop, card, "2024-11-09")

	s.convert(nov, "2024-11-15", saver, savings, groceries, "200.00")
	payment := s.transaction(nov, "2024-11-25", "Card payment", checking, card, amount(groceries, "120.00"))
	s.post(payment, checking, "2024-11-26")
	s.post(payment, card, "2024-11-27")

	s.changeInValue(nov, "2024-11-30", saver, amount(savings, "12.34"), "Interest")
}
