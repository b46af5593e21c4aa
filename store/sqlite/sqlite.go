/*
Package sqlite provides a SQLite-backed implementation of the ledger store.

PURPOSE:
  Implements ledger.TxStore and every repository behind ledger.Store using
  SQLite. The same schema works on PostgreSQL with minor dialect changes.

KEY TABLES:
  accounting_periods:  One row per calendar month, unique (year, month)
  funds, accounts:     Named entities, names unique
  transactions:        Transaction header plus both legs
  balance_events:      Every balance event of every kind, keyed by owning
                       period. Transaction events cascade with their row.
  account_checkpoints: Settled balances carried into a period
  fund_checkpoints

INDEXES:
  - idx_balance_events_period: EventsByPeriod (engine hot path)
  - idx_balance_events_date:   NextEventSequence
  - idx_transactions_date:     NextTransactionSequence

ENCODING:
  Dates are stored as YYYY-MM-DD text and decimals as strings, so ordering
  and precision survive the round trip. Fund amounts and event parts are
  JSON columns.

CONCURRENCY:
  WithTx holds a mutex for the whole unit of work and runs every statement
  on the one *sql.Tx, so the per-date sequence counters never race. The pool
  is capped at one connection, which also keeps ":memory:" databases
  shared between statements.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  l := ledger.New(store, logger.New("info"))

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/atforche/financial-tracker/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var _ ledger.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounting_periods (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		is_open INTEGER NOT NULL,
		UNIQUE (year, month)
	);

	CREATE TABLE IF NOT EXISTS funds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		initial_period_id TEXT NOT NULL REFERENCES accounting_periods(id),
		initial_date TEXT NOT NULL,
		initial_transaction_id TEXT
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL REFERENCES accounting_periods(id),
		date TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		location TEXT,
		description TEXT,
		debit_account_id TEXT,
		debit_fund_amounts_json TEXT,
		debit_posted_date TEXT,
		credit_account_id TEXT,
		credit_fund_amounts_json TEXT,
		credit_posted_date TEXT,
		initial_account_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_period
		ON transactions(period_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_date
		ON transactions(date);

	CREATE TABLE IF NOT EXISTS balance_events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		period TEXT NOT NULL,
		date TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		account_id TEXT NOT NULL,
		transaction_id TEXT REFERENCES transactions(id) ON DELETE CASCADE,
		payload_json TEXT NOT NULL
	);

	-- Engine hot path: every event owned by one period
	CREATE INDEX IF NOT EXISTS idx_balance_events_period
		ON balance_events(period, date, sequence);
	CREATE INDEX IF NOT EXISTS idx_balance_events_date
		ON balance_events(date);
	CREATE INDEX IF NOT EXISTS idx_balance_events_transaction
		ON balance_events(transaction_id) WHERE transaction_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS account_checkpoints (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		period_id TEXT NOT NULL REFERENCES accounting_periods(id),
		fund_balances_json TEXT NOT NULL,
		UNIQUE (account_id, period_id)
	);

	CREATE TABLE IF NOT EXISTS fund_checkpoints (
		id TEXT PRIMARY KEY,
		fund_id TEXT NOT NULL,
		period_id TEXT NOT NULL REFERENCES accounting_periods(id),
		account_balances_json TEXT NOT NULL,
		UNIQUE (fund_id, period_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&repo{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Reset deletes every row. Used by the CLI and tests.
func (s *Store) Reset(ctx context.Context) error {
	return s.WithTx(ctx, func(store ledger.Store) error {
		r := store.(*repo)
		for _, table := range []string{
			"balance_events", "account_checkpoints", "fund_checkpoints",
			"transactions", "accounts", "funds", "accounting_periods",
		} {
			if _, err := r.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to reset %s: %w", table, err)
			}
		}
		return nil
	})
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repo implements ledger.Store on top of one queryer.
type repo struct {
	q queryer
}

var _ ledger.Store = (*repo)(nil)

// =============================================================================
// ACCOUNTING PERIODS
// =============================================================================

func (r *repo) GetAccountingPeriod(ctx context.Context, id ledger.AccountingPeriodID) (*ledger.AccountingPeriod, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, year, month, is_open FROM accounting_periods WHERE id = ?
	`, id)
	period, err := scanPeriod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrAccountingPeriodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get accounting period: %w", err)
	}
	return &period, nil
}

func (r *repo) ListAccountingPeriods(ctx context.Context) ([]ledger.AccountingPeriod, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, year, month, is_open FROM accounting_periods ORDER BY year, month
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounting periods: %w", err)
	}
	defer rows.Close()

	var periods []ledger.AccountingPeriod
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan accounting period: %w", err)
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

func (r *repo) SaveAccountingPeriod(ctx context.Context, period ledger.AccountingPeriod) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounting_periods (id, year, month, is_open)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET is_open = excluded.is_open
	`, period.ID, period.Year, int(period.Month), period.IsOpen)
	if err != nil {
		return fmt.Errorf("failed to save accounting period: %w", err)
	}
	return nil
}

func (r *repo) DeleteAccountingPeriod(ctx context.Context, id ledger.AccountingPeriodID) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM accounting_periods WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete accounting period: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row scanner) (ledger.AccountingPeriod, error) {
	var (
		period ledger.AccountingPeriod
		month  int
	)
	if err := row.Scan(&period.ID, &period.Year, &month, &period.IsOpen); err != nil {
		return period, err
	}
	period.Month = time.Month(month)
	return period, nil
}

// =============================================================================
// FUNDS
// =============================================================================

func (r *repo) GetFund(ctx context.Context, id ledger.FundID) (*ledger.Fund, error) {
	fund, err := r.queryFund(ctx, "WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrFundNotFound
	}
	return fund, err
}

func (r *repo) FindFundByName(ctx context.Context, name string) (*ledger.Fund, error) {
	fund, err := r.queryFund(ctx, "WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return fund, err
}

func (r *repo) queryFund(ctx context.Context, where string, args ...any) (*ledger.Fund, error) {
	var (
		fund        ledger.Fund
		description sql.NullString
	)
	err := r.q.QueryRowContext(ctx, "SELECT id, name, description FROM funds "+where, args...).
		Scan(&fund.ID, &fund.Name, &description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund: %w", err)
	}
	fund.Description = description.String
	return &fund, nil
}

func (r *repo) ListFunds(ctx context.Context) ([]ledger.Fund, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id, name, description FROM funds ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	defer rows.Close()

	var funds []ledger.Fund
	for rows.Next() {
		var (
			fund        ledger.Fund
			description sql.NullString
		)
		if err := rows.Scan(&fund.ID, &fund.Name, &description); err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		fund.Description = description.String
		funds = append(funds, fund)
	}
	return funds, rows.Err()
}

func (r *repo) SaveFund(ctx context.Context, fund ledger.Fund) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO funds (id, name, description)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description
	`, fund.ID, fund.Name, nullString(fund.Description))
	if err != nil {
		return fmt.Errorf("failed to save fund: %w", err)
	}
	return nil
}

func (r *repo) DeleteFund(ctx context.Context, id ledger.FundID) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM fund_checkpoints WHERE fund_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete fund checkpoints: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, "DELETE FROM funds WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete fund: %w", err)
	}
	return nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

const accountColumns = "id, name, type, initial_period_id, initial_date, initial_transaction_id"

func (r *repo) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	account, err := scanAccount(r.q.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *repo) FindAccountByName(ctx context.Context, name string) (*ledger.Account, error) {
	account, err := scanAccount(r.q.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &account, nil
}

func (r *repo) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *repo) SaveAccount(ctx context.Context, account ledger.Account) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			initial_transaction_id = excluded.initial_transaction_id
	`,
		account.ID,
		account.Name,
		account.Type,
		account.InitialAccountingPeriodID,
		account.InitialDate.String(),
		nullString(string(account.InitialTransactionID)),
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (r *repo) DeleteAccount(ctx context.Context, id ledger.AccountID) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM account_checkpoints WHERE account_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete account checkpoints: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

func scanAccount(row scanner) (ledger.Account, error) {
	var (
		account     ledger.Account
		initialDate string
		initialTx   sql.NullString
	)
	err := row.Scan(&account.ID, &account.Name, &account.Type, &account.InitialAccountingPeriodID, &initialDate, &initialTx)
	if err != nil {
		return account, err
	}
	if account.InitialDate, err = ledger.ParseDate(initialDate); err != nil {
		return account, err
	}
	account.InitialTransactionID = ledger.TransactionID(initialTx.String)
	return account, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const transactionColumns = `id, period_id, date, sequence, location, description,
	debit_account_id, debit_fund_amounts_json, debit_posted_date,
	credit_account_id, credit_fund_amounts_json, credit_posted_date,
	initial_account_id`

func (r *repo) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	txs, err := r.queryTransactions(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ledger.ErrTransactionNotFound
	}
	return &txs[0], nil
}

func (r *repo) ListTransactionsByPeriod(ctx context.Context, periodID ledger.AccountingPeriodID) ([]ledger.Transaction, error) {
	return r.queryTransactions(ctx, "WHERE period_id = ? ORDER BY date, sequence", periodID)
}

func (r *repo) queryTransactions(ctx context.Context, where string, args ...any) ([]ledger.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+transactionColumns+" FROM transactions "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	var txs []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Events are loaded after the cursor is closed; the pool holds one connection.
	for i := range txs {
		if txs[i].BalanceEvents, err = r.transactionEvents(ctx, txs[i].ID); err != nil {
			return nil, err
		}
	}
	return txs, nil
}

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var (
		t                                  ledger.Transaction
		date                               string
		location, description, initial    sql.NullString
		debitID, debitAmounts, debitPosted sql.NullString
		creditID, creditAmounts, creditPos sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.AccountingPeriodID, &date, &t.Sequence, &location, &description,
		&debitID, &debitAmounts, &debitPosted,
		&creditID, &creditAmounts, &creditPos,
		&initial,
	)
	if err != nil {
		return t, fmt.Errorf("failed to scan transaction: %w", err)
	}
	if t.Date, err = ledger.ParseDate(date); err != nil {
		return t, err
	}
	t.Location = location.String
	t.Description = description.String
	t.InitialAccountID = ledger.AccountID(initial.String)
	if t.DebitAccount, err = decodeLeg(debitID, debitAmounts, debitPosted); err != nil {
		return t, err
	}
	if t.CreditAccount, err = decodeLeg(creditID, creditAmounts, creditPos); err != nil {
		return t, err
	}
	return t, nil
}

func (r *repo) SaveTransaction(ctx context.Context, t *ledger.Transaction) error {
	debitID, debitAmounts, debitPosted, err := encodeLeg(t.DebitAccount)
	if err != nil {
		return err
	}
	creditID, creditAmounts, creditPosted, err := encodeLeg(t.CreditAccount)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			sequence = excluded.sequence,
			location = excluded.location,
			description = excluded.description,
			debit_fund_amounts_json = excluded.debit_fund_amounts_json,
			debit_posted_date = excluded.debit_posted_date,
			credit_fund_amounts_json = excluded.credit_fund_amounts_json,
			credit_posted_date = excluded.credit_posted_date
	`,
		t.ID, t.AccountingPeriodID, t.Date.String(), t.Sequence,
		nullString(t.Location), nullString(t.Description),
		debitID, debitAmounts, debitPosted,
		creditID, creditAmounts, creditPosted,
		nullString(string(t.InitialAccountID)),
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, "DELETE FROM balance_events WHERE transaction_id = ?", t.ID); err != nil {
		return fmt.Errorf("failed to replace transaction events: %w", err)
	}
	for _, e := range t.BalanceEvents {
		payload, err := json.Marshal(e.Parts)
		if err != nil {
			return fmt.Errorf("failed to encode event parts: %w", err)
		}
		if err := r.insertEvent(ctx, e, string(e.TransactionID), e.AccountID, string(payload)); err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM balance_events WHERE transaction_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete transaction events: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

func (r *repo) NextTransactionSequence(ctx context.Context, date ledger.Date) (int, error) {
	var next int
	err := r.q.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(sequence), 0) + 1 FROM transactions WHERE date = ?",
		date.String(),
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate transaction sequence: %w", err)
	}
	return next, nil
}

func (r *repo) transactionEvents(ctx context.Context, id ledger.TransactionID) ([]ledger.TransactionBalanceEvent, error) {
	events, err := r.queryEvents(ctx, "WHERE transaction_id = ? ORDER BY date, sequence", id)
	if err != nil {
		return nil, err
	}
	result := make([]ledger.TransactionBalanceEvent, 0, len(events))
	for _, e := range events {
		if te, ok := e.(ledger.TransactionBalanceEvent); ok {
			result = append(result, te)
		}
	}
	return result, nil
}

// encodeLeg flattens a leg into its three nullable columns.
func encodeLeg(leg *ledger.TransactionAccount) (id, amounts, posted sql.NullString, err error) {
	if leg == nil {
		return id, amounts, posted, nil
	}
	data, err := json.Marshal(leg.FundAmounts)
	if err != nil {
		return id, amounts, posted, fmt.Errorf("failed to encode fund amounts: %w", err)
	}
	id = nullString(string(leg.AccountID))
	amounts = nullString(string(data))
	if leg.PostedDate != nil {
		posted = nullString(leg.PostedDate.String())
	}
	return id, amounts, posted, nil
}

func decodeLeg(id, amounts, posted sql.NullString) (*ledger.TransactionAccount, error) {
	if !id.Valid {
		return nil, nil
	}
	leg := &ledger.TransactionAccount{AccountID: ledger.AccountID(id.String)}
	if err := json.Unmarshal([]byte(amounts.String), &leg.FundAmounts); err != nil {
		return nil, fmt.Errorf("failed to decode fund amounts: %w", err)
	}
	if posted.Valid {
		d, err := ledger.ParseDate(posted.String)
		if err != nil {
			return nil, err
		}
		leg.PostedDate = &d
	}
	return leg, nil
}

// =============================================================================
// BALANCE EVENTS
// =============================================================================

type changeInValuePayload struct {
	FundAmount  ledger.FundAmount `json:"fund_amount"`
	Description string            `json:"description,omitempty"`
}

type fundConversionPayload struct {
	FromFundID  ledger.FundID   `json:"from_fund_id"`
	ToFundID    ledger.FundID   `json:"to_fund_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

func (r *repo) EventsByPeriod(ctx context.Context, period ledger.PeriodKey) ([]ledger.BalanceEvent, error) {
	return r.queryEvents(ctx, "WHERE period = ? ORDER BY date, sequence", period.String())
}

func (r *repo) NextEventSequence(ctx context.Context, date ledger.Date) (int, error) {
	var next int
	err := r.q.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(sequence), 0) + 1 FROM balance_events WHERE date = ?",
		date.String(),
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate event sequence: %w", err)
	}
	return next, nil
}

func (r *repo) SaveChangeInValue(ctx context.Context, event ledger.ChangeInValue) error {
	payload, err := json.Marshal(changeInValuePayload{FundAmount: event.FundAmount, Description: event.Description})
	if err != nil {
		return fmt.Errorf("failed to encode change in value: %w", err)
	}
	return r.insertEvent(ctx, event, "", event.AccountID, string(payload))
}

func (r *repo) SaveFundConversion(ctx context.Context, event ledger.FundConversion) error {
	payload, err := json.Marshal(fundConversionPayload{
		FromFundID:  event.FromFundID,
		ToFundID:    event.ToFundID,
		Amount:      event.Amount,
		Description: event.Description,
	})
	if err != nil {
		return fmt.Errorf("failed to encode fund conversion: %w", err)
	}
	return r.insertEvent(ctx, event, "", event.AccountID, string(payload))
}

func (r *repo) insertEvent(ctx context.Context, e ledger.BalanceEvent, transactionID string, accountID ledger.AccountID, payload string) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO balance_events (id, kind, period, date, sequence, account_id, transaction_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.EventID(),
		e.Kind(),
		e.AccountingPeriod().String(),
		e.EventDate().String(),
		e.EventSequence(),
		accountID,
		nullString(transactionID),
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save balance event: %w", err)
	}
	return nil
}

func (r *repo) queryEvents(ctx context.Context, where string, args ...any) ([]ledger.BalanceEvent, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, kind, period, date, sequence, account_id, transaction_id, payload_json
		FROM balance_events `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance events: %w", err)
	}
	defer rows.Close()

	var events []ledger.BalanceEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row scanner) (ledger.BalanceEvent, error) {
	var (
		id            ledger.EventID
		kind          ledger.EventKind
		period, date  string
		sequence      int
		accountID     ledger.AccountID
		transactionID sql.NullString
		payload       string
	)
	if err := row.Scan(&id, &kind, &period, &date, &sequence, &accountID, &transactionID, &payload); err != nil {
		return nil, fmt.Errorf("failed to scan balance event: %w", err)
	}
	key, err := ledger.ParsePeriodKey(period)
	if err != nil {
		return nil, err
	}
	d, err := ledger.ParseDate(date)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ledger.EventTransaction:
		e := ledger.TransactionBalanceEvent{
			ID:            id,
			TransactionID: ledger.TransactionID(transactionID.String),
			AccountID:     accountID,
			Period:        key,
			Date:          d,
			Sequence:      sequence,
		}
		if err := json.Unmarshal([]byte(payload), &e.Parts); err != nil {
			return nil, fmt.Errorf("failed to decode event parts: %w", err)
		}
		return e, nil
	case ledger.EventChangeInValue:
		var p changeInValuePayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("failed to decode change in value: %w", err)
		}
		return ledger.ChangeInValue{
			ID:          id,
			AccountID:   accountID,
			Period:      key,
			Date:        d,
			Sequence:    sequence,
			FundAmount:  p.FundAmount,
			Description: p.Description,
		}, nil
	case ledger.EventFundConversion:
		var p fundConversionPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("failed to decode fund conversion: %w", err)
		}
		return ledger.FundConversion{
			ID:          id,
			AccountID:   accountID,
			Period:      key,
			Date:        d,
			Sequence:    sequence,
			FromFundID:  p.FromFundID,
			ToFundID:    p.ToFundID,
			Amount:      p.Amount,
			Description: p.Description,
		}, nil
	}
	return nil, fmt.Errorf("unknown balance event kind %q", kind)
}

// =============================================================================
// CHECKPOINTS
// =============================================================================

func (r *repo) ListAccountCheckpoints(ctx context.Context, accountID ledger.AccountID) ([]ledger.AccountBalanceCheckpoint, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, account_id, period_id, fund_balances_json
		FROM account_checkpoints WHERE account_id = ?
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []ledger.AccountBalanceCheckpoint
	for rows.Next() {
		var (
			cp       ledger.AccountBalanceCheckpoint
			balances string
		)
		if err := rows.Scan(&cp.ID, &cp.AccountID, &cp.AccountingPeriodID, &balances); err != nil {
			return nil, fmt.Errorf("failed to scan account checkpoint: %w", err)
		}
		if err := json.Unmarshal([]byte(balances), &cp.FundBalances); err != nil {
			return nil, fmt.Errorf("failed to decode account checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

func (r *repo) SaveAccountCheckpoint(ctx context.Context, cp ledger.AccountBalanceCheckpoint) error {
	balances, err := json.Marshal(cp.FundBalances)
	if err != nil {
		return fmt.Errorf("failed to encode account checkpoint: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO account_checkpoints (id, account_id, period_id, fund_balances_json)
		VALUES (?, ?, ?, ?)
	`, cp.ID, cp.AccountID, cp.AccountingPeriodID, string(balances))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: checkpoint already exists for account %s", ledger.ErrInvalidAccountingPeriod, cp.AccountID)
		}
		return fmt.Errorf("failed to save account checkpoint: %w", err)
	}
	return nil
}

func (r *repo) ListFundCheckpoints(ctx context.Context, fundID ledger.FundID) ([]ledger.FundBalanceCheckpoint, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, fund_id, period_id, account_balances_json
		FROM fund_checkpoints WHERE fund_id = ?
	`, fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fund checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []ledger.FundBalanceCheckpoint
	for rows.Next() {
		var (
			cp       ledger.FundBalanceCheckpoint
			balances string
		)
		if err := rows.Scan(&cp.ID, &cp.FundID, &cp.AccountingPeriodID, &balances); err != nil {
			return nil, fmt.Errorf("failed to scan fund checkpoint: %w", err)
		}
		if err := json.Unmarshal([]byte(balances), &cp.AccountBalances); err != nil {
			return nil, fmt.Errorf("failed to decode fund checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

func (r *repo) SaveFundCheckpoint(ctx context.Context, cp ledger.FundBalanceCheckpoint) error {
	balances, err := json.Marshal(cp.AccountBalances)
	if err != nil {
		return fmt.Errorf("failed to encode fund checkpoint: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO fund_checkpoints (id, fund_id, period_id, account_balances_json)
		VALUES (?, ?, ?, ?)
	`, cp.ID, cp.FundID, cp.AccountingPeriodID, string(balances))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: checkpoint already exists for fund %s", ledger.ErrInvalidAccountingPeriod, cp.FundID)
		}
		return fmt.Errorf("failed to save fund checkpoint: %w", err)
	}
	return nil
}

func (r *repo) DeleteCheckpointsForPeriod(ctx context.Context, periodID ledger.AccountingPeriodID) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM account_checkpoints WHERE period_id = ?", periodID); err != nil {
		return fmt.Errorf("failed to delete account checkpoints: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, "DELETE FROM fund_checkpoints WHERE period_id = ?", periodID); err != nil {
		return fmt.Errorf("failed to delete fund checkpoints: %w", err)
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
