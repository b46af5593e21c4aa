/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every rejected command surfaces one of the sentinel errors below, possibly
  wrapped in a structured error carrying more context.

ERROR CATEGORIES:
  1. Rule violations - Invalid period, date, account, fund or update
  2. Balance violations - A command would drive a balance negative
  3. Lookup errors - Referenced entity does not exist

ACCUMULATION:
  Commands with several independent checks collect every violation into
  ValidationErrors before failing. errors.Is matches any member:

    if errors.Is(err, ledger.ErrInvalidTransactionDate) {
        ...
    }

SEE ALSO:
  - validation.go: Shared event date checks
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAccountingPeriod covers closed, out-of-order, gapped or
	// duplicate periods, and periods before an account's initial period.
	ErrInvalidAccountingPeriod = errors.New("invalid accounting period")

	// ErrInvalidTransactionDate covers dates not adjacent to their period,
	// before an account's inception, or posted before the transaction date.
	ErrInvalidTransactionDate = errors.New("invalid transaction date")

	ErrInvalidDebitAccount  = errors.New("invalid debit account")
	ErrInvalidCreditAccount = errors.New("invalid credit account")

	// ErrInvalidAccount is returned when an account is malformed or does not
	// take part in the event or transaction being acted on.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrInvalidFund is returned when a referenced fund does not exist or does
	// not take part in the event.
	ErrInvalidFund = errors.New("invalid fund")

	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnableToUpdate is returned when a transaction can no longer be
	// changed: it seeds an account, or one of its legs is posted.
	ErrUnableToUpdate = errors.New("unable to update")

	// ErrNegativeBalance is returned when a command could drive an account
	// balance below zero.
	ErrNegativeBalance = errors.New("balance would become negative")

	ErrInvalidName = errors.New("invalid name")

	ErrAccountNotFound          = errors.New("account not found")
	ErrFundNotFound             = errors.New("fund not found")
	ErrAccountingPeriodNotFound = errors.New("accounting period not found")
	ErrTransactionNotFound      = errors.New("transaction not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RuleError is a single rule violation of a known kind.
type RuleError struct {
	Kind    error
	Message string
}

func newRuleError(kind error, format string, args ...any) *RuleError {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *RuleError) Error() string { return e.Kind.Error() + ": " + e.Message }
func (e *RuleError) Unwrap() error { return e.Kind }

// ValidationErrors accumulates rule violations for one command.
type ValidationErrors struct {
	Errors []error
}

func (v *ValidationErrors) Add(kind error, format string, args ...any) {
	v.Errors = append(v.Errors, newRuleError(kind, format, args...))
}

func (v *ValidationErrors) Append(err error) {
	if err == nil {
		return
	}
	var nested *ValidationErrors
	if errors.As(err, &nested) {
		v.Errors = append(v.Errors, nested.Errors...)
		return
	}
	v.Errors = append(v.Errors, err)
}

// Err returns nil when nothing was collected.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	msgs := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (v *ValidationErrors) Unwrap() []error { return v.Errors }

// NegativeBalanceError reports the balance an event could not be applied to.
type NegativeBalanceError struct {
	AccountID AccountID
	EventID   EventID
	Date      Date
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *NegativeBalanceError) Error() string {
	return fmt.Sprintf("balance would become negative: account %s on %s has %s available, event %s needs %s",
		e.AccountID, e.Date, e.Available, e.EventID, e.Requested)
}

func (e *NegativeBalanceError) Unwrap() error {
	return ErrNegativeBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAccountingPeriod) ||
		errors.Is(err, ErrInvalidTransactionDate) ||
		errors.Is(err, ErrInvalidDebitAccount) ||
		errors.Is(err, ErrInvalidCreditAccount) ||
		errors.Is(err, ErrInvalidAccount) ||
		errors.Is(err, ErrInvalidFund) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrUnableToUpdate) ||
		errors.Is(err, ErrNegativeBalance) ||
		errors.Is(err, ErrInvalidName)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrFundNotFound) ||
		errors.Is(err, ErrAccountingPeriodNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}
