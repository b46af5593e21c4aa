package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// TRANSACTION - Debit and/or credit legs plus the balance events they own
// =============================================================================

// TransactionAccount is one leg of a transaction. A nil PostedDate means the
// leg was added but has not posted yet.
type TransactionAccount struct {
	AccountID   AccountID
	FundAmounts FundAmounts
	PostedDate  *Date
}

func (l TransactionAccount) IsPosted() bool { return l.PostedDate != nil }

type Transaction struct {
	ID                 TransactionID
	AccountingPeriodID AccountingPeriodID
	Date               Date
	Sequence           int
	Location           string
	Description        string
	DebitAccount       *TransactionAccount
	CreditAccount      *TransactionAccount

	// InitialAccountID is set when this transaction seeds an account's
	// starting balance.
	InitialAccountID AccountID

	BalanceEvents []TransactionBalanceEvent
}

// Amount is the total of one leg. Both legs always agree when present.
func (t *Transaction) Amount() decimal.Decimal {
	if t.DebitAccount != nil {
		return t.DebitAccount.FundAmounts.Total()
	}
	if t.CreditAccount != nil {
		return t.CreditAccount.FundAmounts.Total()
	}
	return decimal.Zero
}

func (t *Transaction) IsInitialAccountTransaction() bool { return t.InitialAccountID != "" }

// Leg returns the leg for accountID and whether it is the debit leg.
func (t *Transaction) Leg(accountID AccountID) (*TransactionAccount, bool) {
	if t.DebitAccount != nil && t.DebitAccount.AccountID == accountID {
		return t.DebitAccount, true
	}
	if t.CreditAccount != nil && t.CreditAccount.AccountID == accountID {
		return t.CreditAccount, false
	}
	return nil, false
}

func (t *Transaction) AccountIDs() []AccountID {
	var ids []AccountID
	if t.DebitAccount != nil {
		ids = append(ids, t.DebitAccount.AccountID)
	}
	if t.CreditAccount != nil {
		ids = append(ids, t.CreditAccount.AccountID)
	}
	return ids
}

// HasPendingLeg reports whether any leg is added but not yet posted.
func (t *Transaction) HasPendingLeg() bool {
	return (t.DebitAccount != nil && !t.DebitAccount.IsPosted()) ||
		(t.CreditAccount != nil && !t.CreditAccount.IsPosted())
}

// PostedLegs returns the accounts whose legs have posted.
func (t *Transaction) PostedLegs() []AccountID {
	var ids []AccountID
	if t.DebitAccount != nil && t.DebitAccount.IsPosted() {
		ids = append(ids, t.DebitAccount.AccountID)
	}
	if t.CreditAccount != nil && t.CreditAccount.IsPosted() {
		ids = append(ids, t.CreditAccount.AccountID)
	}
	return ids
}

func (t *Transaction) Events() []BalanceEvent {
	events := make([]BalanceEvent, len(t.BalanceEvents))
	for i, e := range t.BalanceEvents {
		events[i] = e
	}
	return events
}

func (t *Transaction) eventIDs() []EventID {
	ids := make([]EventID, len(t.BalanceEvents))
	for i, e := range t.BalanceEvents {
		ids[i] = e.ID
	}
	return ids
}

func (t *Transaction) hasPartType(partType TransactionBalanceEventPartType) bool {
	for _, e := range t.BalanceEvents {
		if e.hasPart(partType) {
			return true
		}
	}
	return false
}

// eventOn returns the index of the leg event for accountID dated on date, or -1.
func (t *Transaction) eventOn(accountID AccountID, date Date) int {
	for i, e := range t.BalanceEvents {
		if e.AccountID == accountID && e.Date.Equal(date) {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so stores never share slices with callers.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.DebitAccount = t.DebitAccount.clone()
	c.CreditAccount = t.CreditAccount.clone()
	c.BalanceEvents = make([]TransactionBalanceEvent, len(t.BalanceEvents))
	for i, e := range t.BalanceEvents {
		c.BalanceEvents[i] = e.clone()
	}
	return &c
}

func (l *TransactionAccount) clone() *TransactionAccount {
	if l == nil {
		return nil
	}
	c := *l
	c.FundAmounts = l.FundAmounts.Clone()
	if l.PostedDate != nil {
		d := *l.PostedDate
		c.PostedDate = &d
	}
	return &c
}
