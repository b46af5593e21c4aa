/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Amounts travel as decimal strings ("2500.00") and are never converted to
  float. Response amounts carry an extra "display" field formatted in the
  configured currency (see format.go).

DATES:
  Calendar dates are "YYYY-MM-DD". Accounting periods are referenced by id.

VALIDATION:
  Validation is done by the ledger services, not here. DTOs are pure data
  carriers; handlers only parse dates and decimals.

SEE ALSO:
  - handlers.go: Uses these types
  - format.go: Display formatting
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/atforche/financial-tracker/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type CreateAccountingPeriodRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type CreateFundRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RenameRequest renames an account or a fund.
type RenameRequest struct {
	Name string `json:"name"`
}

type FundAmountRequest struct {
	FundID string          `json:"fund_id"`
	Amount decimal.Decimal `json:"amount"`
}

type CreateAccountRequest struct {
	Name               string              `json:"name"`
	Type               string              `json:"type"`
	AccountingPeriodID string              `json:"accounting_period_id"`
	Date               string              `json:"date"`
	FundAmounts        []FundAmountRequest `json:"fund_amounts"`
}

type TransactionAccountRequest struct {
	AccountID   string              `json:"account_id"`
	FundAmounts []FundAmountRequest `json:"fund_amounts"`
}

type AddTransactionRequest struct {
	AccountingPeriodID string                     `json:"accounting_period_id"`
	Date               string                     `json:"date"`
	Location           string                     `json:"location"`
	Description        string                     `json:"description"`
	DebitAccount       *TransactionAccountRequest `json:"debit_account,omitempty"`
	CreditAccount      *TransactionAccountRequest `json:"credit_account,omitempty"`
}

type UpdateTransactionRequest struct {
	Date              string              `json:"date"`
	Location          string              `json:"location"`
	Description       string              `json:"description"`
	DebitFundAmounts  []FundAmountRequest `json:"debit_fund_amounts,omitempty"`
	CreditFundAmounts []FundAmountRequest `json:"credit_fund_amounts,omitempty"`
}

type PostTransactionRequest struct {
	AccountID  string `json:"account_id"`
	PostedDate string `json:"posted_date"`
}

type AddChangeInValueRequest struct {
	AccountingPeriodID string            `json:"accounting_period_id"`
	Date               string            `json:"date"`
	AccountID          string            `json:"account_id"`
	FundAmount         FundAmountRequest `json:"fund_amount"`
	Description        string            `json:"description"`
}

type AddFundConversionRequest struct {
	AccountingPeriodID string          `json:"accounting_period_id"`
	Date               string          `json:"date"`
	AccountID          string          `json:"account_id"`
	FromFundID         string          `json:"from_fund_id"`
	ToFundID           string          `json:"to_fund_id"`
	Amount             decimal.Decimal `json:"amount"`
	Description        string          `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type AccountingPeriodDTO struct {
	ID     string `json:"id"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Name   string `json:"name"` // "2024-11"
	IsOpen bool   `json:"is_open"`
}

type FundDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AccountDTO struct {
	ID                        string `json:"id"`
	Name                      string `json:"name"`
	Type                      string `json:"type"`
	InitialAccountingPeriodID string `json:"initial_accounting_period_id"`
	InitialDate               string `json:"initial_date"`
	InitialTransactionID      string `json:"initial_transaction_id,omitempty"`
}

type FundAmountDTO struct {
	FundID  string          `json:"fund_id"`
	Amount  decimal.Decimal `json:"amount"`
	Display string          `json:"display"`
}

type AccountAmountDTO struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Display   string          `json:"display"`
}

type TransactionAccountDTO struct {
	AccountID   string          `json:"account_id"`
	FundAmounts []FundAmountDTO `json:"fund_amounts"`
	PostedDate  *string         `json:"posted_date,omitempty"`
}

type TransactionDTO struct {
	ID                 string                 `json:"id"`
	AccountingPeriodID string                 `json:"accounting_period_id"`
	Date               string                 `json:"date"`
	Sequence           int                    `json:"sequence"`
	Location           string                 `json:"location"`
	Description        string                 `json:"description"`
	Amount             decimal.Decimal        `json:"amount"`
	DebitAccount       *TransactionAccountDTO `json:"debit_account,omitempty"`
	CreditAccount      *TransactionAccountDTO `json:"credit_account,omitempty"`
	InitialAccountID   string                 `json:"initial_account_id,omitempty"`
}

// BalanceEventDTO is the common view of any balance event.
type BalanceEventDTO struct {
	ID               string   `json:"id"`
	Kind             string   `json:"kind"`
	AccountingPeriod string   `json:"accounting_period"`
	Date             string   `json:"date"`
	Sequence         int      `json:"sequence"`
	AccountIDs       []string `json:"account_ids"`
	FundIDs          []string `json:"fund_ids"`
}

type ChangeInValueDTO struct {
	BalanceEventDTO
	AccountID   string        `json:"account_id"`
	FundAmount  FundAmountDTO `json:"fund_amount"`
	Description string        `json:"description"`
}

type FundConversionDTO struct {
	BalanceEventDTO
	AccountID   string          `json:"account_id"`
	FromFundID  string          `json:"from_fund_id"`
	ToFundID    string          `json:"to_fund_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type AccountBalanceDTO struct {
	AccountID             string          `json:"account_id"`
	AccountType           string          `json:"account_type"`
	Balance               []FundAmountDTO `json:"balance"`
	PendingChanges        []FundAmountDTO `json:"pending_changes"`
	Total                 decimal.Decimal `json:"total"`
	TotalIncludingPending decimal.Decimal `json:"total_including_pending"`
	AvailableTotal        decimal.Decimal `json:"available_total"`
	Display               string          `json:"display"`
}

type FundBalanceDTO struct {
	FundID                string             `json:"fund_id"`
	Balance               []AccountAmountDTO `json:"balance"`
	PendingChanges        []AccountAmountDTO `json:"pending_changes"`
	Total                 decimal.Decimal    `json:"total"`
	TotalIncludingPending decimal.Decimal    `json:"total_including_pending"`
	Display               string             `json:"display"`
}

type AccountBalanceByDateDTO struct {
	Date    string            `json:"date"`
	Balance AccountBalanceDTO `json:"balance"`
}

type AccountBalanceByEventDTO struct {
	Event   BalanceEventDTO   `json:"event"`
	Balance AccountBalanceDTO `json:"balance"`
}

type AccountBalanceByPeriodDTO struct {
	AccountingPeriod AccountingPeriodDTO `json:"accounting_period"`
	Starting         AccountBalanceDTO   `json:"starting"`
	Ending           AccountBalanceDTO   `json:"ending"`
}

type FundBalanceByDateDTO struct {
	Date    string         `json:"date"`
	Balance FundBalanceDTO `json:"balance"`
}

type FundBalanceByEventDTO struct {
	Event   BalanceEventDTO `json:"event"`
	Balance FundBalanceDTO  `json:"balance"`
}

type FundBalanceByPeriodDTO struct {
	AccountingPeriod AccountingPeriodDTO `json:"accounting_period"`
	Starting         FundBalanceDTO      `json:"starting"`
	Ending           FundBalanceDTO      `json:"ending"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response. Details holds every
// violation when a command was rejected for more than one reason.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAccountingPeriodDTO(p ledger.AccountingPeriod) AccountingPeriodDTO {
	return AccountingPeriodDTO{
		ID:     string(p.ID),
		Year:   p.Year,
		Month:  int(p.Month),
		Name:   p.Key().String(),
		IsOpen: p.IsOpen,
	}
}

func toFundDTO(f ledger.Fund) FundDTO {
	return FundDTO{ID: string(f.ID), Name: f.Name, Description: f.Description}
}

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:                        string(a.ID),
		Name:                      a.Name,
		Type:                      string(a.Type),
		InitialAccountingPeriodID: string(a.InitialAccountingPeriodID),
		InitialDate:               a.InitialDate.String(),
		InitialTransactionID:      string(a.InitialTransactionID),
	}
}

func (f Formatter) fundAmounts(amounts ledger.FundAmounts) []FundAmountDTO {
	dtos := make([]FundAmountDTO, len(amounts))
	for i, a := range amounts {
		dtos[i] = FundAmountDTO{FundID: string(a.FundID), Amount: a.Amount, Display: f.Format(a.Amount)}
	}
	return dtos
}

func (f Formatter) accountAmounts(amounts ledger.AccountAmounts) []AccountAmountDTO {
	dtos := make([]AccountAmountDTO, len(amounts))
	for i, a := range amounts {
		dtos[i] = AccountAmountDTO{AccountID: string(a.AccountID), Amount: a.Amount, Display: f.Format(a.Amount)}
	}
	return dtos
}

func (f Formatter) transaction(t ledger.Transaction) TransactionDTO {
	leg := func(l *ledger.TransactionAccount) *TransactionAccountDTO {
		if l == nil {
			return nil
		}
		dto := &TransactionAccountDTO{AccountID: string(l.AccountID), FundAmounts: f.fundAmounts(l.FundAmounts)}
		if l.PostedDate != nil {
			posted := l.PostedDate.String()
			dto.PostedDate = &posted
		}
		return dto
	}
	return TransactionDTO{
		ID:                 string(t.ID),
		AccountingPeriodID: string(t.AccountingPeriodID),
		Date:               t.Date.String(),
		Sequence:           t.Sequence,
		Location:           t.Location,
		Description:        t.Description,
		Amount:             t.Amount(),
		DebitAccount:       leg(t.DebitAccount),
		CreditAccount:      leg(t.CreditAccount),
		InitialAccountID:   string(t.InitialAccountID),
	}
}

func toBalanceEventDTO(e ledger.BalanceEvent) BalanceEventDTO {
	dto := BalanceEventDTO{
		ID:               string(e.EventID()),
		Kind:             string(e.Kind()),
		AccountingPeriod: e.AccountingPeriod().String(),
		Date:             e.EventDate().String(),
		Sequence:         e.EventSequence(),
	}
	for _, id := range e.AccountIDs() {
		dto.AccountIDs = append(dto.AccountIDs, string(id))
	}
	for _, id := range e.FundIDs() {
		dto.FundIDs = append(dto.FundIDs, string(id))
	}
	return dto
}

func (f Formatter) changeInValue(c ledger.ChangeInValue) ChangeInValueDTO {
	return ChangeInValueDTO{
		BalanceEventDTO: toBalanceEventDTO(c),
		AccountID:       string(c.AccountID),
		FundAmount:      f.fundAmounts(ledger.FundAmounts{c.FundAmount})[0],
		Description:     c.Description,
	}
}

func toFundConversionDTO(c ledger.FundConversion) FundConversionDTO {
	return FundConversionDTO{
		BalanceEventDTO: toBalanceEventDTO(c),
		AccountID:       string(c.AccountID),
		FromFundID:      string(c.FromFundID),
		ToFundID:        string(c.ToFundID),
		Amount:          c.Amount,
		Description:     c.Description,
	}
}

func (f Formatter) accountBalance(b ledger.AccountBalance) AccountBalanceDTO {
	return AccountBalanceDTO{
		AccountID:             string(b.AccountID),
		AccountType:           string(b.AccountType),
		Balance:               f.fundAmounts(b.Balance),
		PendingChanges:        f.fundAmounts(b.PendingChanges),
		Total:                 b.Total(),
		TotalIncludingPending: b.TotalIncludingPending(),
		AvailableTotal:        b.AvailableTotal(),
		Display:               f.Format(b.Total()),
	}
}

func (f Formatter) fundBalance(b ledger.FundBalance) FundBalanceDTO {
	return FundBalanceDTO{
		FundID:                string(b.FundID),
		Balance:               f.accountAmounts(b.Balance),
		PendingChanges:        f.accountAmounts(b.PendingChanges),
		Total:                 b.Total(),
		TotalIncludingPending: b.TotalIncludingPending(),
		Display:               f.Format(b.Total()),
	}
}
