/*
handlers.go - HTTP API handlers for the ledger

PURPOSE:
  Exposes the ledger services via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every rule to the ledger package.

ENDPOINTS:
  Accounting periods:
    GET    /api/accounting-periods                 List periods, oldest first
    POST   /api/accounting-periods                 Create period {year, month}
    GET    /api/accounting-periods/{id}            Get period
    DELETE /api/accounting-periods/{id}            Delete latest unused period
    POST   /api/accounting-periods/{id}/close      Close period
    GET    /api/accounting-periods/{id}/transactions  Transactions owned by period

  Funds:
    GET    /api/funds                              List funds
    POST   /api/funds                              Create fund
    GET    /api/funds/{id}                         Get fund
    PUT    /api/funds/{id}                         Rename fund
    DELETE /api/funds/{id}                         Delete unused fund
    GET    /api/funds/{id}/balances/by-date        ?from=&to=
    GET    /api/funds/{id}/balances/by-event       ?from=&to=
    GET    /api/funds/{id}/balances/by-period/{periodID}

  Accounts:
    GET    /api/accounts                           List accounts
    POST   /api/accounts                           Create account with opening balance
    GET    /api/accounts/{id}                      Get account
    PUT    /api/accounts/{id}                      Rename account
    DELETE /api/accounts/{id}                      Delete unused account
    GET    /api/accounts/{id}/balance              ?date= (default today)
    GET    /api/accounts/{id}/balances/by-date     ?from=&to=
    GET    /api/accounts/{id}/balances/by-event    ?from=&to=
    GET    /api/accounts/{id}/balances/by-period/{periodID}

  Transactions:
    POST   /api/transactions                       Add transaction
    GET    /api/transactions/{id}                  Get transaction
    PUT    /api/transactions/{id}                  Update unposted transaction
    DELETE /api/transactions/{id}                  Delete unposted transaction
    POST   /api/transactions/{id}/post             Post one leg

  Adjustments:
    POST   /api/change-in-values                   Record change in value
    POST   /api/fund-conversions                   Record fund conversion

  Scenarios (only when enabled, see scenarios.go):
    GET    /api/scenarios                          List demo scenarios
    GET    /api/scenarios/current                  Currently loaded scenario
    POST   /api/scenarios/load                     Reset and load {scenario_id}

ERROR HANDLING:
  Errors are returned as JSON {"error", "details"}:
  - 400: Malformed input or a rejected command (ledger.IsClientError)
  - 404: Entity in the path not found (ledger.IsNotFound)
  - 500: Internal errors (logged)
  A command rejected for several reasons lists each one in details.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atforche/financial-tracker/ledger"
	"github.com/atforche/financial-tracker/logger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *ledger.Ledger
	format Formatter

	// Scenario endpoints; nil unless WithScenarios was called.
	resetter        Resetter
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over l that displays amounts in currency.
func NewHandler(l *ledger.Ledger, currency string) *Handler {
	return &Handler{Ledger: l, format: NewFormatter(currency)}
}

// =============================================================================
// ACCOUNTING PERIOD HANDLERS
// =============================================================================

func (h *Handler) ListAccountingPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Ledger.Periods.ListAccountingPeriods(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list accounting periods", err)
		return
	}
	dtos := make([]AccountingPeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toAccountingPeriodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAccountingPeriod(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountingPeriodRequest
	if !decode(w, r, &req) {
		return
	}
	period, err := h.Ledger.Periods.CreateAccountingPeriod(r.Context(), req.Year, time.Month(req.Month))
	if err != nil {
		h.fail(w, r, "Failed to create accounting period", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountingPeriodDTO(*period))
}

func (h *Handler) GetAccountingPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.Ledger.Periods.GetAccountingPeriod(r.Context(), ledger.AccountingPeriodID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get accounting period", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountingPeriodDTO(*period))
}

func (h *Handler) CloseAccountingPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.Ledger.Periods.ClosePeriod(r.Context(), ledger.AccountingPeriodID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to close accounting period", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountingPeriodDTO(*period))
}

func (h *Handler) DeleteAccountingPeriod(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Periods.DeleteAccountingPeriod(r.Context(), ledger.AccountingPeriodID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete accounting period", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// FUND HANDLERS
// =============================================================================

func (h *Handler) ListFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := h.Ledger.Funds.ListFunds(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list funds", err)
		return
	}
	dtos := make([]FundDTO, len(funds))
	for i, f := range funds {
		dtos[i] = toFundDTO(f)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateFund(w http.ResponseWriter, r *http.Request) {
	var req CreateFundRequest
	if !decode(w, r, &req) {
		return
	}
	fund, err := h.Ledger.Funds.CreateFund(r.Context(), ledger.CreateFundRequest{Name: req.Name, Description: req.Description})
	if err != nil {
		h.fail(w, r, "Failed to create fund", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFundDTO(*fund))
}

func (h *Handler) GetFund(w http.ResponseWriter, r *http.Request) {
	fund, err := h.Ledger.Funds.GetFund(r.Context(), ledger.FundID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get fund", err)
		return
	}
	writeJSON(w, http.StatusOK, toFundDTO(*fund))
}

func (h *Handler) RenameFund(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	fund, err := h.Ledger.Funds.RenameFund(r.Context(), ledger.FundID(chi.URLParam(r, "id")), req.Name)
	if err != nil {
		h.fail(w, r, "Failed to rename fund", err)
		return
	}
	writeJSON(w, http.StatusOK, toFundDTO(*fund))
}

func (h *Handler) DeleteFund(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Funds.DeleteFund(r.Context(), ledger.FundID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete fund", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Ledger.Accounts.ListAccounts(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list accounts", err)
		return
	}
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	account, err := h.Ledger.Accounts.CreateAccount(r.Context(), ledger.CreateAccountRequest{
		Name:               req.Name,
		Type:               ledger.AccountType(req.Type),
		AccountingPeriodID: ledger.AccountingPeriodID(req.AccountingPeriodID),
		Date:               date,
		FundAmounts:        toFundAmounts(req.FundAmounts),
	})
	if err != nil {
		h.fail(w, r, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*account))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.Ledger.Accounts.GetAccount(r.Context(), ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

func (h *Handler) RenameAccount(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	account, err := h.Ledger.Accounts.RenameAccount(r.Context(), ledger.AccountID(chi.URLParam(r, "id")), req.Name)
	if err != nil {
		h.fail(w, r, "Failed to rename account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Accounts.DeleteAccount(r.Context(), ledger.AccountID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Ledger.Transactions.ListTransactions(r.Context(), ledger.AccountingPeriodID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to list transactions", err)
		return
	}
	dtos := make([]TransactionDTO, len(txs))
	for i, t := range txs {
		dtos[i] = h.format.transaction(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req AddTransactionRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	t, err := h.Ledger.Transactions.AddTransaction(r.Context(), ledger.AddTransactionRequest{
		AccountingPeriodID: ledger.AccountingPeriodID(req.AccountingPeriodID),
		Date:               date,
		Location:           req.Location,
		Description:        req.Description,
		DebitAccount:       toLegRequest(req.DebitAccount),
		CreditAccount:      toLegRequest(req.CreditAccount),
	})
	if err != nil {
		h.fail(w, r, "Failed to add transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.format.transaction(*t))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.Ledger.Transactions.GetTransaction(r.Context(), ledger.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, h.format.transaction(*t))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	t, err := h.Ledger.Transactions.UpdateTransaction(r.Context(), ledger.TransactionID(chi.URLParam(r, "id")), ledger.UpdateTransactionRequest{
		Date:              date,
		Location:          req.Location,
		Description:       req.Description,
		DebitFundAmounts:  toFundAmounts(req.DebitFundAmounts),
		CreditFundAmounts: toFundAmounts(req.CreditFundAmounts),
	})
	if err != nil {
		h.fail(w, r, "Failed to update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, h.format.transaction(*t))
}

func (h *Handler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	var req PostTransactionRequest
	if !decode(w, r, &req) {
		return
	}
	posted, err := parseDate("posted_date", req.PostedDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid posted date", err)
		return
	}
	t, err := h.Ledger.Transactions.PostTransaction(r.Context(),
		ledger.TransactionID(chi.URLParam(r, "id")), ledger.AccountID(req.AccountID), posted)
	if err != nil {
		h.fail(w, r, "Failed to post transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, h.format.transaction(*t))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Transactions.DeleteTransaction(r.Context(), ledger.TransactionID(chi.URLParam(r, "id")), nil); err != nil {
		h.fail(w, r, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADJUSTMENT HANDLERS
// =============================================================================

func (h *Handler) AddChangeInValue(w http.ResponseWriter, r *http.Request) {
	var req AddChangeInValueRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	event, err := h.Ledger.Adjustments.AddChangeInValue(r.Context(), ledger.AddChangeInValueRequest{
		AccountingPeriodID: ledger.AccountingPeriodID(req.AccountingPeriodID),
		Date:               date,
		AccountID:          ledger.AccountID(req.AccountID),
		FundAmount:         ledger.NewFundAmount(ledger.FundID(req.FundAmount.FundID), req.FundAmount.Amount),
		Description:        req.Description,
	})
	if err != nil {
		h.fail(w, r, "Failed to add change in value", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.format.changeInValue(*event))
}

func (h *Handler) AddFundConversion(w http.ResponseWriter, r *http.Request) {
	var req AddFundConversionRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	event, err := h.Ledger.Adjustments.AddFundConversion(r.Context(), ledger.AddFundConversionRequest{
		AccountingPeriodID: ledger.AccountingPeriodID(req.AccountingPeriodID),
		Date:               date,
		AccountID:          ledger.AccountID(req.AccountID),
		FromFundID:         ledger.FundID(req.FromFundID),
		ToFundID:           ledger.FundID(req.ToFundID),
		Amount:             req.Amount,
		Description:        req.Description,
	})
	if err != nil {
		h.fail(w, r, "Failed to add fund conversion", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFundConversionDTO(*event))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

func (h *Handler) AccountBalanceAsOf(w http.ResponseWriter, r *http.Request) {
	date := ledger.Today()
	if s := r.URL.Query().Get("date"); s != "" {
		var err error
		if date, err = parseDate("date", s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
	}
	balance, err := h.Ledger.Balances.AccountBalanceAsOf(r.Context(), ledger.AccountID(chi.URLParam(r, "id")), date)
	if err != nil {
		h.fail(w, r, "Failed to get account balance", err)
		return
	}
	writeJSON(w, http.StatusOK, h.format.accountBalance(balance))
}

func (h *Handler) AccountBalancesByDate(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := parseRange(w, r)
	if !ok {
		return
	}
	balances, err := h.Ledger.Balances.AccountBalancesByDate(r.Context(), ledger.AccountID(chi.URLParam(r, "id")), dateRange)
	if err != nil {
		h.fail(w, r, "Failed to get account balances", err)
		return
	}
	dtos := make([]AccountBalanceByDateDTO, len(balances))
	for i, b := range balances {
		dtos[i] = AccountBalanceByDateDTO{Date: b.Date.String(), Balance: h.format.accountBalance(b.Balance)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AccountBalancesByEvent(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := parseRange(w, r)
	if !ok {
		return
	}
	balances, err := h.Ledger.Balances.AccountBalancesByEvent(r.Context(), ledger.AccountID(chi.URLParam(r, "id")), dateRange)
	if err != nil {
		h.fail(w, r, "Failed to get account balances", err)
		return
	}
	dtos := make([]AccountBalanceByEventDTO, len(balances))
	for i, b := range balances {
		dtos[i] = AccountBalanceByEventDTO{Event: toBalanceEventDTO(b.Event), Balance: h.format.accountBalance(b.Balance)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AccountBalanceByPeriod(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Ledger.Balances.AccountBalanceByAccountingPeriod(r.Context(),
		ledger.AccountID(chi.URLParam(r, "id")), ledger.AccountingPeriodID(chi.URLParam(r, "periodID")))
	if err != nil {
		h.fail(w, r, "Failed to get account balance", err)
		return
	}
	writeJSON(w, http.StatusOK, AccountBalanceByPeriodDTO{
		AccountingPeriod: toAccountingPeriodDTO(balance.AccountingPeriod),
		Starting:         h.format.accountBalance(balance.Starting),
		Ending:           h.format.accountBalance(balance.Ending),
	})
}

func (h *Handler) FundBalancesByDate(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := parseRange(w, r)
	if !ok {
		return
	}
	balances, err := h.Ledger.Balances.FundBalancesByDate(r.Context(), ledger.FundID(chi.URLParam(r, "id")), dateRange)
	if err != nil {
		h.fail(w, r, "Failed to get fund balances", err)
		return
	}
	dtos := make([]FundBalanceByDateDTO, len(balances))
	for i, b := range balances {
		dtos[i] = FundBalanceByDateDTO{Date: b.Date.String(), Balance: h.format.fundBalance(b.Balance)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) FundBalancesByEvent(w http.ResponseWriter, r *http.Request) {
	dateRange, ok := parseRange(w, r)
	if !ok {
		return
	}
	balances, err := h.Ledger.Balances.FundBalancesByEvent(r.Context(), ledger.FundID(chi.URLParam(r, "id")), dateRange)
	if err != nil {
		h.fail(w, r, "Failed to get fund balances", err)
		return
	}
	dtos := make([]FundBalanceByEventDTO, len(balances))
	for i, b := range balances {
		dtos[i] = FundBalanceByEventDTO{Event: toBalanceEventDTO(b.Event), Balance: h.format.fundBalance(b.Balance)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) FundBalanceByPeriod(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Ledger.Balances.FundBalanceByAccountingPeriod(r.Context(),
		ledger.FundID(chi.URLParam(r, "id")), ledger.AccountingPeriodID(chi.URLParam(r, "periodID")))
	if err != nil {
		h.fail(w, r, "Failed to get fund balance", err)
		return
	}
	writeJSON(w, http.StatusOK, FundBalanceByPeriodDTO{
		AccountingPeriod: toAccountingPeriodDTO(balance.AccountingPeriod),
		Starting:         h.format.fundBalance(balance.Starting),
		Ending:           h.format.fundBalance(balance.Ending),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func parseDate(field, s string) (ledger.Date, error) {
	if s == "" {
		return ledger.Date{}, fmt.Errorf("%s is required", field)
	}
	return ledger.ParseDate(s)
}

func parseRange(w http.ResponseWriter, r *http.Request) (ledger.DateRange, bool) {
	from, err := parseDate("from", r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return ledger.DateRange{}, false
	}
	to, err := parseDate("to", r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return ledger.DateRange{}, false
	}
	return ledger.DateRange{Start: from, End: to}, true
}

func toFundAmounts(reqs []FundAmountRequest) ledger.FundAmounts {
	if len(reqs) == 0 {
		return nil
	}
	amounts := make(ledger.FundAmounts, len(reqs))
	for i, req := range reqs {
		amounts[i] = ledger.NewFundAmount(ledger.FundID(req.FundID), req.Amount)
	}
	return amounts
}

func toLegRequest(req *TransactionAccountRequest) *ledger.TransactionAccountRequest {
	if req == nil {
		return nil
	}
	return &ledger.TransactionAccountRequest{
		AccountID:   ledger.AccountID(req.AccountID),
		FundAmounts: toFundAmounts(req.FundAmounts),
	}
}

// fail maps a service error to a status code. Unexpected errors are logged
// with the request-scoped logger.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg(message)
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	var verrs *ledger.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		details := make([]string, len(verrs.Errors))
		for i, e := range verrs.Errors {
			details[i] = e.Error()
		}
		resp.Details = details
	case err != nil:
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
