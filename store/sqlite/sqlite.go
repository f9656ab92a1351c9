/*
Package sqlite provides the SQLite-backed billing.Store.

PURPOSE:
  Production persistence for companies, contracts, amendment history, monthly
  billings, outsourcing entries, and holidays. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

UNIQUENESS ENFORCEMENT:
  A partial unique index guarantees at most one NON-CANCELLED billing per
  (contract, year, month):

    idx_unique_active_billing ON monthly_billings(contract_id, billing_year,
      billing_month) WHERE status != 'cancelled'

  The generator pre-checks, but the index closes the check-then-insert race.
  Violations surface as billing.DuplicateBillingError.

DATA ENCODING:
  - Money: decimal strings in TEXT columns (never floats)
  - Dates: "2006-01-02" TEXT
  - Timestamps: RFC 3339 TEXT
  - Warning lists and billing-month lists: JSON TEXT

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/store.go: the interface this implements
  - billing/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ billing.Store = (*Store)(nil)

// New creates a SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Counterpart companies (customers and subcontractors)
	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		company_type TEXT NOT NULL,
		warehouse_code TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Maintenance contracts
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL REFERENCES companies(id),
		item_name TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		monthly_amount TEXT NOT NULL,
		billing_cycle TEXT NOT NULL,
		billing_months TEXT,
		billing_timing TEXT,
		auto_renewal INTEGER NOT NULL DEFAULT 0,
		renewal_period_months INTEGER NOT NULL DEFAULT 0,
		reverse_billing INTEGER NOT NULL DEFAULT 0,
		outsourcing_company_id TEXT REFERENCES companies(id),
		outsourcing_amount TEXT NOT NULL DEFAULT '0',
		outsourcing_zero INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);
	CREATE INDEX IF NOT EXISTS idx_contracts_company ON contracts(company_id);

	-- Append-only amendment log
	CREATE TABLE IF NOT EXISTS contract_history (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL REFERENCES contracts(id),
		change_type TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		old_amount TEXT,
		new_amount TEXT,
		old_note TEXT,
		new_note TEXT,
		reason TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_contract_type
		ON contract_history(contract_id, change_type, effective_date);

	-- One invoice row per contract per covered billing month
	CREATE TABLE IF NOT EXISTS monthly_billings (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL REFERENCES contracts(id),
		billing_year INTEGER NOT NULL,
		billing_month INTEGER NOT NULL,
		cover_months INTEGER NOT NULL DEFAULT 1,
		calculated_amount TEXT NOT NULL,
		override_amount TEXT,
		final_amount TEXT NOT NULL,
		vat_amount TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		outsourcing_amount TEXT NOT NULL DEFAULT '0',
		profit TEXT NOT NULL DEFAULT '0',
		suggested_date TEXT,
		sales_date TEXT,
		request_date TEXT,
		status TEXT NOT NULL,
		warnings TEXT,
		has_warnings INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		locked_at TEXT,
		locked_by TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_billings_month
		ON monthly_billings(billing_year, billing_month);
	CREATE INDEX IF NOT EXISTS idx_billings_contract
		ON monthly_billings(contract_id);

	-- At most one non-cancelled billing per contract and month
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_active_billing
		ON monthly_billings(contract_id, billing_year, billing_month)
		WHERE status != 'cancelled';

	-- Subcontractor purchases recorded against an invoice
	CREATE TABLE IF NOT EXISTS outsourcing_entries (
		id TEXT PRIMARY KEY,
		billing_id TEXT NOT NULL REFERENCES monthly_billings(id),
		company_id TEXT NOT NULL REFERENCES companies(id),
		amount TEXT NOT NULL,
		purchase_date TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_billing ON outsourcing_entries(billing_id);

	-- Non-business days for issue-date rolling
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		holiday_date TEXT NOT NULL UNIQUE,
		name TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(holiday_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// COMPANIES
// =============================================================================

const companyColumns = `id, code, name, company_type, warehouse_code, is_active, created_at, updated_at`

func (s *Store) GetCompany(ctx context.Context, id billing.CompanyID) (*billing.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, string(id))
	c, err := scanCompany(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]billing.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []billing.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) SaveCompany(ctx context.Context, c *billing.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if c.ID == "" {
		c.ID = billing.CompanyID(uuid.NewString())
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (`+companyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			company_type = excluded.company_type,
			warehouse_code = excluded.warehouse_code,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		string(c.ID), c.Code, c.Name, string(c.Type),
		nullString(c.WarehouseCode), boolInt(c.IsActive),
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save company: %w", err)
	}
	return nil
}

// =============================================================================
// CONTRACTS
// =============================================================================

const contractColumns = `id, company_id, item_name, start_date, end_date,
	monthly_amount, billing_cycle, billing_months, billing_timing,
	auto_renewal, renewal_period_months, reverse_billing,
	outsourcing_company_id, outsourcing_amount, outsourcing_zero,
	status, notes, created_at, updated_at`

func (s *Store) GetContract(ctx context.Context, id billing.ContractID) (*billing.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = ?`, string(id))
	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return c, nil
}

func (s *Store) ListContracts(ctx context.Context, statuses ...billing.ContractStatus) ([]billing.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + contractColumns + ` FROM contracts`
	var args []any
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, st := range statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []billing.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) SaveContract(ctx context.Context, c *billing.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if c.ID == "" {
		c.ID = billing.ContractID(uuid.NewString())
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	months, err := marshalMonths(c.BillingMonths)
	if err != nil {
		return fmt.Errorf("save contract: %w", err)
	}

	var outsourcingCompany sql.NullString
	if c.OutsourcingCompanyID != nil {
		outsourcingCompany = nullString(string(*c.OutsourcingCompanyID))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contracts (`+contractColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_id = excluded.company_id,
			item_name = excluded.item_name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			monthly_amount = excluded.monthly_amount,
			billing_cycle = excluded.billing_cycle,
			billing_months = excluded.billing_months,
			billing_timing = excluded.billing_timing,
			auto_renewal = excluded.auto_renewal,
			renewal_period_months = excluded.renewal_period_months,
			reverse_billing = excluded.reverse_billing,
			outsourcing_company_id = excluded.outsourcing_company_id,
			outsourcing_amount = excluded.outsourcing_amount,
			outsourcing_zero = excluded.outsourcing_zero,
			status = excluded.status,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		string(c.ID), string(c.CompanyID), c.ItemName,
		nullDate(c.Start), nullDate(c.End),
		c.MonthlyAmount.String(), string(c.Cycle), months, nullString(c.Timing),
		boolInt(c.AutoRenewal), c.RenewalPeriodMonths, boolInt(c.ReverseBilling),
		outsourcingCompany, c.OutsourcingAmount.String(), boolInt(c.OutsourcingZero),
		string(c.Status), nullString(c.Notes),
		c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save contract: %w", err)
	}
	return nil
}

// =============================================================================
// CONTRACT HISTORY
// =============================================================================

func (s *Store) ListHistory(ctx context.Context, contractID billing.ContractID, changeType billing.ChangeType) ([]billing.ContractHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, change_type, effective_date,
			old_amount, new_amount, old_note, new_note, reason, created_by, created_at
		FROM contract_history
		WHERE contract_id = ? AND change_type = ?
		ORDER BY effective_date, created_at`,
		string(contractID), string(changeType))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []billing.ContractHistory
	for rows.Next() {
		var (
			h                 billing.ContractHistory
			id, cid, ct       string
			effectiveDate     string
			oldAmt, newAmt    sql.NullString
			oldNote, newNote  sql.NullString
			reason, createdBy sql.NullString
			createdAt         string
		)
		if err := rows.Scan(&id, &cid, &ct, &effectiveDate,
			&oldAmt, &newAmt, &oldNote, &newNote, &reason, &createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.ID = billing.HistoryID(id)
		h.ContractID = billing.ContractID(cid)
		h.Type = billing.ChangeType(ct)
		if h.EffectiveDate, err = billing.ParseDate(effectiveDate); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if h.OldAmount, err = decimalPtr(oldAmt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if h.NewAmount, err = decimalPtr(newAmt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.OldNote = oldNote.String
		h.NewNote = newNote.String
		h.Reason = reason.String
		h.CreatedBy = createdBy.String
		if h.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) AddHistory(ctx context.Context, h *billing.ContractHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = billing.HistoryID(uuid.NewString())
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contract_history
			(id, contract_id, change_type, effective_date,
			 old_amount, new_amount, old_note, new_note, reason, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(h.ID), string(h.ContractID), string(h.Type), h.EffectiveDate.String(),
		nullDecimal(h.OldAmount), nullDecimal(h.NewAmount),
		nullString(h.OldNote), nullString(h.NewNote),
		nullString(h.Reason), nullString(h.CreatedBy),
		h.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("add history: %w", err)
	}
	return nil
}

// =============================================================================
// BILLINGS
// =============================================================================

const billingColumns = `id, contract_id, billing_year, billing_month, cover_months,
	calculated_amount, override_amount, final_amount, vat_amount, total_amount,
	outsourcing_amount, profit, suggested_date, sales_date, request_date,
	status, warnings, has_warnings, notes, created_at, updated_at, locked_at, locked_by`

func (s *Store) GetBilling(ctx context.Context, id billing.BillingID) (*billing.MonthlyBilling, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+billingColumns+` FROM monthly_billings WHERE id = ?`, string(id))
	b, err := scanBilling(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get billing: %w", err)
	}
	return b, nil
}

func (s *Store) ListBillingsForMonth(ctx context.Context, year, month int, status billing.BillingStatus) ([]billing.MonthlyBilling, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + billingColumns + ` FROM monthly_billings
		WHERE billing_year = ? AND billing_month = ?`
	args := []any{year, month}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id`

	return s.queryBillings(ctx, query, args...)
}

func (s *Store) ListBillingsForContractMonth(ctx context.Context, contractID billing.ContractID, year, month int) ([]billing.MonthlyBilling, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryBillings(ctx, `
		SELECT `+billingColumns+` FROM monthly_billings
		WHERE contract_id = ? AND billing_year = ? AND billing_month = ?
		ORDER BY created_at`,
		string(contractID), year, month)
}

func (s *Store) queryBillings(ctx context.Context, query string, args ...any) ([]billing.MonthlyBilling, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list billings: %w", err)
	}
	defer rows.Close()

	var out []billing.MonthlyBilling
	for rows.Next() {
		b, err := scanBilling(rows)
		if err != nil {
			return nil, fmt.Errorf("scan billing: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) InsertBilling(ctx context.Context, b *billing.MonthlyBilling) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = billing.BillingID(uuid.NewString())
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	args, err := billingArgs(b)
	if err != nil {
		return fmt.Errorf("insert billing: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO monthly_billings (`+billingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...)
	if err != nil {
		if isUniqueViolation(err) {
			return &billing.DuplicateBillingError{
				ContractID: b.ContractID,
				Year:       b.Year,
				Month:      b.Month,
			}
		}
		return fmt.Errorf("insert billing: %w", err)
	}
	return nil
}

func (s *Store) UpdateBilling(ctx context.Context, b *billing.MonthlyBilling) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.UpdatedAt = time.Now()

	warnings, err := marshalWarnings(b.Warnings)
	if err != nil {
		return fmt.Errorf("update billing: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE monthly_billings SET
			cover_months = ?,
			calculated_amount = ?,
			override_amount = ?,
			final_amount = ?,
			vat_amount = ?,
			total_amount = ?,
			outsourcing_amount = ?,
			profit = ?,
			suggested_date = ?,
			sales_date = ?,
			request_date = ?,
			status = ?,
			warnings = ?,
			has_warnings = ?,
			notes = ?,
			updated_at = ?,
			locked_at = ?,
			locked_by = ?
		WHERE id = ?`,
		b.CoverMonths,
		b.CalculatedAmount.String(), nullDecimal(b.OverrideAmount), b.FinalAmount.String(),
		b.VATAmount.String(), b.TotalAmount.String(),
		b.OutsourcingAmount.String(), b.Profit.String(),
		nullDate(b.SuggestedDate), nullDate(b.SalesDate), nullDate(b.RequestDate),
		string(b.Status), warnings, boolInt(b.HasWarnings), nullString(b.Notes),
		b.UpdatedAt.Format(time.RFC3339), nullTime(b.LockedAt), nullString(b.LockedBy),
		string(b.ID))
	if err != nil {
		return fmt.Errorf("update billing: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return billing.ErrBillingNotFound
	}
	return nil
}

// =============================================================================
// OUTSOURCING ENTRIES
// =============================================================================

func (s *Store) ListEntries(ctx context.Context, billingID billing.BillingID) ([]billing.OutsourcingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, billing_id, company_id, amount, purchase_date, notes, created_at
		FROM outsourcing_entries
		WHERE billing_id = ?
		ORDER BY created_at`, string(billingID))
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []billing.OutsourcingEntry
	for rows.Next() {
		var (
			e                  billing.OutsourcingEntry
			id, bid, cid, amt  string
			purchaseDate, note sql.NullString
			createdAt          string
		)
		if err := rows.Scan(&id, &bid, &cid, &amt, &purchaseDate, &note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.ID = billing.EntryID(id)
		e.BillingID = billing.BillingID(bid)
		e.CompanyID = billing.CompanyID(cid)
		if e.Amount, err = decimal.NewFromString(amt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.PurchaseDate, err = datePtr(purchaseDate); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Notes = note.String
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) AddEntry(ctx context.Context, e *billing.OutsourcingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = billing.EntryID(uuid.NewString())
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outsourcing_entries
			(id, billing_id, company_id, amount, purchase_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(e.ID), string(e.BillingID), string(e.CompanyID),
		e.Amount.String(), nullDate(e.PurchaseDate), nullString(e.Notes),
		e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("add entry: %w", err)
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, id billing.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM outsourcing_entries WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (s *Store) ListHolidays(ctx context.Context, year int) ([]billing.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, holiday_date, name, created_at
		FROM holidays
		WHERE holiday_date >= ? AND holiday_date <= ?
		ORDER BY holiday_date`,
		fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year))
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	var out []billing.Holiday
	for rows.Next() {
		var (
			h         billing.Holiday
			dateStr   string
			name      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&h.ID, &dateStr, &name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		if h.Date, err = billing.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		h.Name = name.String
		if h.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) SaveHoliday(ctx context.Context, h *billing.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, holiday_date, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(holiday_date) DO UPDATE SET name = excluded.name`,
		h.ID, h.Date.String(), nullString(h.Name), h.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save holiday: %w", err)
	}
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*billing.Company, error) {
	var (
		c                    billing.Company
		id, companyType      string
		warehouseCode        sql.NullString
		isActive             int
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &c.Code, &c.Name, &companyType,
		&warehouseCode, &isActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.ID = billing.CompanyID(id)
	c.Type = billing.CompanyType(companyType)
	c.WarehouseCode = warehouseCode.String
	c.IsActive = isActive != 0

	var err error
	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanContract(row rowScanner) (*billing.Contract, error) {
	var (
		c                    billing.Contract
		id, companyID        string
		startDate, endDate   sql.NullString
		monthlyAmount        string
		cycle                string
		months, timing       sql.NullString
		autoRenewal          int
		reverseBilling       int
		outsourcingCompany   sql.NullString
		outsourcingAmount    string
		outsourcingZero      int
		status               string
		notes                sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &companyID, &c.ItemName, &startDate, &endDate,
		&monthlyAmount, &cycle, &months, &timing,
		&autoRenewal, &c.RenewalPeriodMonths, &reverseBilling,
		&outsourcingCompany, &outsourcingAmount, &outsourcingZero,
		&status, &notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	c.ID = billing.ContractID(id)
	c.CompanyID = billing.CompanyID(companyID)
	c.Cycle = billing.BillingCycle(cycle)
	c.Timing = timing.String
	c.AutoRenewal = autoRenewal != 0
	c.ReverseBilling = reverseBilling != 0
	c.OutsourcingZero = outsourcingZero != 0
	c.Status = billing.ContractStatus(status)
	c.Notes = notes.String

	var err error
	if c.Start, err = datePtr(startDate); err != nil {
		return nil, err
	}
	if c.End, err = datePtr(endDate); err != nil {
		return nil, err
	}
	if c.MonthlyAmount, err = decimal.NewFromString(monthlyAmount); err != nil {
		return nil, err
	}
	if c.OutsourcingAmount, err = decimal.NewFromString(outsourcingAmount); err != nil {
		return nil, err
	}
	if c.BillingMonths, err = unmarshalMonths(months); err != nil {
		return nil, err
	}
	if outsourcingCompany.Valid {
		cid := billing.CompanyID(outsourcingCompany.String)
		c.OutsourcingCompanyID = &cid
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanBilling(row rowScanner) (*billing.MonthlyBilling, error) {
	var (
		b                                billing.MonthlyBilling
		id, contractID                   string
		calcAmt, finalAmt, vatAmt        string
		totalAmt, outsourcingAmt, profit string
		overrideAmt                      sql.NullString
		suggested, sales, request        sql.NullString
		status                           string
		warnings, notes                  sql.NullString
		hasWarnings                      int
		createdAt, updatedAt             string
		lockedAt, lockedBy               sql.NullString
	)
	if err := row.Scan(&id, &contractID, &b.Year, &b.Month, &b.CoverMonths,
		&calcAmt, &overrideAmt, &finalAmt, &vatAmt, &totalAmt,
		&outsourcingAmt, &profit, &suggested, &sales, &request,
		&status, &warnings, &hasWarnings, &notes,
		&createdAt, &updatedAt, &lockedAt, &lockedBy); err != nil {
		return nil, err
	}

	b.ID = billing.BillingID(id)
	b.ContractID = billing.ContractID(contractID)
	b.Status = billing.BillingStatus(status)
	b.HasWarnings = hasWarnings != 0
	b.Notes = notes.String
	b.LockedBy = lockedBy.String

	var err error
	if b.CalculatedAmount, err = decimal.NewFromString(calcAmt); err != nil {
		return nil, err
	}
	if b.OverrideAmount, err = decimalPtr(overrideAmt); err != nil {
		return nil, err
	}
	if b.FinalAmount, err = decimal.NewFromString(finalAmt); err != nil {
		return nil, err
	}
	if b.VATAmount, err = decimal.NewFromString(vatAmt); err != nil {
		return nil, err
	}
	if b.TotalAmount, err = decimal.NewFromString(totalAmt); err != nil {
		return nil, err
	}
	if b.OutsourcingAmount, err = decimal.NewFromString(outsourcingAmt); err != nil {
		return nil, err
	}
	if b.Profit, err = decimal.NewFromString(profit); err != nil {
		return nil, err
	}
	if b.SuggestedDate, err = datePtr(suggested); err != nil {
		return nil, err
	}
	if b.SalesDate, err = datePtr(sales); err != nil {
		return nil, err
	}
	if b.RequestDate, err = datePtr(request); err != nil {
		return nil, err
	}
	if warnings.Valid && warnings.String != "" {
		if err := json.Unmarshal([]byte(warnings.String), &b.Warnings); err != nil {
			return nil, err
		}
	}
	if b.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, err
	}
	if lockedAt.Valid {
		t, err := time.Parse(time.RFC3339, lockedAt.String)
		if err != nil {
			return nil, err
		}
		b.LockedAt = &t
	}
	return &b, nil
}

func billingArgs(b *billing.MonthlyBilling) ([]any, error) {
	warnings, err := marshalWarnings(b.Warnings)
	if err != nil {
		return nil, err
	}
	return []any{
		string(b.ID), string(b.ContractID), b.Year, b.Month, b.CoverMonths,
		b.CalculatedAmount.String(), nullDecimal(b.OverrideAmount), b.FinalAmount.String(),
		b.VATAmount.String(), b.TotalAmount.String(),
		b.OutsourcingAmount.String(), b.Profit.String(),
		nullDate(b.SuggestedDate), nullDate(b.SalesDate), nullDate(b.RequestDate),
		string(b.Status), warnings, boolInt(b.HasWarnings), nullString(b.Notes),
		b.CreatedAt.Format(time.RFC3339), b.UpdatedAt.Format(time.RFC3339),
		nullTime(b.LockedAt), nullString(b.LockedBy),
	}, nil
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *billing.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func datePtr(s sql.NullString) (*billing.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := billing.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decimalPtr(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func marshalWarnings(ws []billing.Warning) (sql.NullString, error) {
	if len(ws) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(ws)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func marshalMonths(months []int) (sql.NullString, error) {
	if len(months) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(months)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalMonths(s sql.NullString) ([]int, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var months []int
	if err := json.Unmarshal([]byte(s.String), &months); err != nil {
		return nil, err
	}
	return months, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation matches SQLite's unique-constraint error without binding
// to driver-internal error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
