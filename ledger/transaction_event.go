package ledger

// =============================================================================
// TRANSACTION BALANCE EVENT - Added/Posted parts of one transaction leg
// =============================================================================

type TransactionBalanceEventPartType string

const (
	PartAddedDebit   TransactionBalanceEventPartType = "added_debit"
	PartAddedCredit  TransactionBalanceEventPartType = "added_credit"
	PartPostedDebit  TransactionBalanceEventPartType = "posted_debit"
	PartPostedCredit TransactionBalanceEventPartType = "posted_credit"
)

func (t TransactionBalanceEventPartType) IsDebit() bool {
	return t == PartAddedDebit || t == PartPostedDebit
}

func (t TransactionBalanceEventPartType) IsPosted() bool {
	return t == PartPostedDebit || t == PartPostedCredit
}

func addedPartType(debit bool) TransactionBalanceEventPartType {
	if debit {
		return PartAddedDebit
	}
	return PartAddedCredit
}

func postedPartType(debit bool) TransactionBalanceEventPartType {
	if debit {
		return PartPostedDebit
	}
	return PartPostedCredit
}

// TransactionBalanceEventPart is one typed contribution of a leg. AccountType
// is captured when the part is created so polarity can be decided without
// loading the account.
type TransactionBalanceEventPart struct {
	Type        TransactionBalanceEventPartType `json:"type"`
	AccountType AccountType                     `json:"account_type"`
	FundAmounts FundAmounts                     `json:"fund_amounts"`
}

// increases reports whether the part raises the balance when applied in the
// standard direction. This is the only place debit/credit polarity lives.
func (p TransactionBalanceEventPart) increases() bool {
	debit := p.Type.IsDebit()
	return (debit && p.AccountType == AccountDebt) || (!debit && p.AccountType != AccountDebt)
}

func (p TransactionBalanceEventPart) signedAmounts(direction ApplicationDirection) FundAmounts {
	amounts := p.FundAmounts
	if !p.increases() {
		amounts = amounts.Reversed()
	}
	if direction == DirectionReverse {
		amounts = amounts.Reversed()
	}
	return amounts
}

// TransactionBalanceEvent records every part of one leg that lands on the
// same calendar date.
type TransactionBalanceEvent struct {
	ID            EventID
	TransactionID TransactionID
	AccountID     AccountID
	Period        PeriodKey
	Date          Date
	Sequence      int
	Parts         []TransactionBalanceEventPart
}

func (e TransactionBalanceEvent) EventID() EventID            { return e.ID }
func (e TransactionBalanceEvent) Kind() EventKind             { return EventTransaction }
func (e TransactionBalanceEvent) AccountingPeriod() PeriodKey { return e.Period }
func (e TransactionBalanceEvent) EventDate() Date             { return e.Date }
func (e TransactionBalanceEvent) EventSequence() int          { return e.Sequence }
func (e TransactionBalanceEvent) AccountIDs() []AccountID     { return []AccountID{e.AccountID} }

func (e TransactionBalanceEvent) FundIDs() []FundID {
	var funds FundAmounts
	for _, part := range e.Parts {
		funds = funds.Add(part.FundAmounts...)
	}
	return funds.Funds()
}

func (e TransactionBalanceEvent) hasPart(t TransactionBalanceEventPartType) bool {
	for _, part := range e.Parts {
		if part.Type == t {
			return true
		}
	}
	return false
}

// IsValidToApply rejects an added part that decreases the balance by more
// than the account's available total. Posted parts are always valid since
// their added part already reserved the capacity.
func (e TransactionBalanceEvent) IsValidToApply(current AccountBalance) error {
	if current.AccountID != e.AccountID {
		return nil
	}
	for _, part := range e.Parts {
		if part.Type.IsPosted() || part.increases() {
			continue
		}
		requested := part.FundAmounts.Total()
		available := current.AvailableTotal()
		if available.Sub(requested).IsNegative() {
			return &NegativeBalanceError{
				AccountID: e.AccountID,
				EventID:   e.ID,
				Date:      e.Date,
				Available: available,
				Requested: requested,
			}
		}
	}
	return nil
}

// ApplyToAccountBalance moves added amounts into pending, and posted amounts
// from pending into settled.
func (e TransactionBalanceEvent) ApplyToAccountBalance(current AccountBalance, direction ApplicationDirection) AccountBalance {
	if current.AccountID != e.AccountID {
		return current
	}
	for _, part := range e.Parts {
		amounts := part.signedAmounts(direction)
		if part.Type.IsPosted() {
			current = current.AddSettled(amounts...).AddPending(amounts.Reversed()...)
			continue
		}
		current = current.AddPending(amounts...)
	}
	return current
}

func (e TransactionBalanceEvent) ApplyToFundBalance(current FundBalance, direction ApplicationDirection) FundBalance {
	for _, part := range e.Parts {
		amount := part.signedAmounts(direction).Amount(current.FundID)
		if amount.IsZero() {
			continue
		}
		change := AccountAmount{AccountID: e.AccountID, Amount: amount}
		if part.Type.IsPosted() {
			current = current.AddSettled(change).AddPending(AccountAmount{AccountID: e.AccountID, Amount: amount.Neg()})
			continue
		}
		current = current.AddPending(change)
	}
	return current
}

func (e TransactionBalanceEvent) clone() TransactionBalanceEvent {
	parts := make([]TransactionBalanceEventPart, len(e.Parts))
	for i, part := range e.Parts {
		part.FundAmounts = part.FundAmounts.Clone()
		parts[i] = part
	}
	e.Parts = parts
	return e
}
