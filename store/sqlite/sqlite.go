/*
Package sqlite provides a SQLite-backed implementation of lease.Store.

PURPOSE:
  Persists contract records with optimistic locking, plus a per-term
  projection that reporting queries can read without decoding documents.

KEY TABLES:
  contracts:  One row per contract. The full lease.Contract is stored as a
              JSON document next to its version and a few indexed columns.
  rent_terms: One row per rent (contract_id, term) with the term totals.
              Rewritten in the same transaction as the contract row, so it
              never disagrees with the document.

OPTIMISTIC LOCKING:
  Update runs
    UPDATE contracts SET ..., version = version + 1 WHERE id = ? AND version = ?
  and treats zero affected rows as either ErrContractNotFound or
  ErrConcurrentModification, depending on whether the id exists.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/rent.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := lease.NewService(store, lease.DefaultPolicy(), logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - lease/store.go: Interface definition
  - lease/store/memory.go: In-memory implementation for testing
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

	"github.com/warp/rent-engine/billing"
	"github.com/warp/rent-engine/lease"
)

// Store implements lease.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

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

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		version INTEGER NOT NULL,
		frequency TEXT NOT NULL,
		begin_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		terminated_at TEXT,
		document TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_created_at
		ON contracts(created_at);

	-- Per-term projection of contracts.document
	CREATE TABLE IF NOT EXISTS rent_terms (
		contract_id TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		term INTEGER NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		pre_tax_amount TEXT NOT NULL,
		discount TEXT NOT NULL,
		debts TEXT NOT NULL,
		vat TEXT NOT NULL,
		grand_total TEXT NOT NULL,
		payment TEXT NOT NULL,
		balance TEXT NOT NULL,
		new_balance TEXT NOT NULL,
		PRIMARY KEY (contract_id, term)
	);

	-- Last-term lookups for outstanding balances
	CREATE INDEX IF NOT EXISTS idx_rent_terms_contract_term
		ON rent_terms(contract_id, term DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONTRACT STORE (lease.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create inserts a contract with version 1.
func (s *Store) Create(ctx context.Context, rec lease.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(rec.Contract)
	if err != nil {
		return fmt.Errorf("failed to encode contract: %w", err)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO contracts
		(id, name, version, frequency, begin_date, end_date, terminated_at, document, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.Name, rec.Contract.Frequency,
		rec.Contract.Begin.String(), rec.Contract.End.String(), terminatedAt(rec.Contract),
		string(doc), formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("contract %s already exists: %w", rec.ID, lease.ErrConcurrentModification)
		}
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	if err := writeTerms(ctx, sqlTx, rec.ID, rec.Contract.Rents); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Get returns a contract by id.
func (s *Store) Get(ctx context.Context, id string) (lease.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, version, document, created_at, updated_at FROM contracts WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return lease.Record{}, lease.ErrContractNotFound
	}
	return rec, err
}

// List returns all contracts ordered by creation time.
func (s *Store) List(ctx context.Context) ([]lease.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, version, document, created_at, updated_at FROM contracts ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	records := []lease.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Update replaces a contract if its stored version is expectedVersion.
func (s *Store) Update(ctx context.Context, rec lease.Record, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(rec.Contract)
	if err != nil {
		return fmt.Errorf("failed to encode contract: %w", err)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx, `
		UPDATE contracts SET
			name = ?, frequency = ?, begin_date = ?, end_date = ?, terminated_at = ?,
			document = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`,
		rec.Name, rec.Contract.Frequency, rec.Contract.Begin.String(), rec.Contract.End.String(),
		terminatedAt(rec.Contract), string(doc), formatTime(rec.UpdatedAt),
		rec.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var count int
		if err := sqlTx.QueryRowContext(ctx, "SELECT COUNT(*) FROM contracts WHERE id = ?", rec.ID).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return lease.ErrContractNotFound
		}
		return lease.ErrConcurrentModification
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM rent_terms WHERE contract_id = ?", rec.ID); err != nil {
		return fmt.Errorf("failed to clear rent terms: %w", err)
	}
	if err := writeTerms(ctx, sqlTx, rec.ID, rec.Contract.Rents); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Delete removes a contract and its rent terms.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM contracts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return lease.ErrContractNotFound
	}
	return nil
}

// =============================================================================
// RENT TERM PROJECTION
// =============================================================================

// TermRow is one row of the rent_terms projection.
type TermRow struct {
	ContractID string
	Term       billing.Term
	Month      int
	Year       int
	GrandTotal decimal.Decimal
	Payment    decimal.Decimal
	Balance    decimal.Decimal
	NewBalance decimal.Decimal
}

func writeTerms(ctx context.Context, db execer, contractID string, rents []lease.Rent) error {
	query := `
		INSERT INTO rent_terms
		(contract_id, term, month, year, pre_tax_amount, discount, debts, vat,
		 grand_total, payment, balance, new_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, r := range rents {
		t := r.Total
		_, err := db.ExecContext(ctx, query,
			contractID, int64(r.Term), r.Month, r.Year,
			t.PreTaxAmount.String(), t.Discount.String(), t.Debts.String(), t.VAT.String(),
			t.GrandTotal.String(), t.Payment.String(), t.Balance.String(), t.NewBalance.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert rent term %s: %w", r.Term, err)
		}
	}
	return nil
}

// Terms returns the projected rows of one contract in term order.
func (s *Store) Terms(ctx context.Context, contractID string) ([]TermRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT contract_id, term, month, year, grand_total, payment, balance, new_balance
		FROM rent_terms
		WHERE contract_id = ?
		ORDER BY term ASC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rent terms: %w", err)
	}
	defer rows.Close()

	var out []TermRow
	for rows.Next() {
		var (
			row                                      TermRow
			term                                     int64
			grandTotal, payment, balance, newBalance string
		)
		if err := rows.Scan(&row.ContractID, &term, &row.Month, &row.Year, &grandTotal, &payment, &balance, &newBalance); err != nil {
			return nil, fmt.Errorf("failed to scan rent term: %w", err)
		}
		row.Term = billing.Term(term)
		row.GrandTotal = parseDecimal(grandTotal)
		row.Payment = parseDecimal(payment)
		row.Balance = parseDecimal(balance)
		row.NewBalance = parseDecimal(newBalance)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Outstanding sums what tenants owe across all contracts: the new balance
// of each contract's last term.
func (s *Store) Outstanding(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.new_balance
		FROM rent_terms r
		WHERE r.term = (SELECT MAX(term) FROM rent_terms WHERE contract_id = r.contract_id)
	`)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query outstanding balances: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(parseDecimal(v))
	}
	return total, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (lease.Record, error) {
	var (
		rec                  lease.Record
		doc                  string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Version, &doc, &createdAt, &updatedAt); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(doc), &rec.Contract); err != nil {
		return rec, fmt.Errorf("failed to decode contract %s: %w", rec.ID, err)
	}
	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return rec, fmt.Errorf("failed to parse created_at of contract %s: %w", rec.ID, err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return rec, fmt.Errorf("failed to parse updated_at of contract %s: %w", rec.ID, err)
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func terminatedAt(c lease.Contract) sql.NullString {
	if c.Termination == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.Termination.String(), Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
