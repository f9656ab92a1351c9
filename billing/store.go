/*
store.go - Persistence interface for contracts, billings, and related data

PURPOSE:
  Defines the boundary between the billing engine and the database. The
  engine only ever sees this interface; SQLite and in-memory implementations
  provide the rows.

KEY QUERIES:
  - Contracts filtered by status set (generation candidates)
  - History filtered by contract + change type, ordered by effective date
    (amendment timelines)
  - Billings by month and by contract/month (duplicate checks, summaries)
  - Outsourcing entries by billing (entries override the contract default)
  - Holidays by year (issue-date suggestion)

UNIQUENESS CONTRACT:
  InsertBilling must enforce that at most one NON-CANCELLED billing exists
  per (contract, year, month) and surface a violation as ErrDuplicateBilling.
  The generator pre-checks, but the constraint closes the race between check
  and insert.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite (partial unique index)
  - billing/store: in-memory for tests and dev

SEE ALSO:
  - generator.go, calc.go, validate.go: the consumers
*/
package billing

import "context"

// Store is the storage collaborator consumed by the billing engine.
type Store interface {
	// Companies
	GetCompany(ctx context.Context, id CompanyID) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	SaveCompany(ctx context.Context, c *Company) error

	// Contracts
	GetContract(ctx context.Context, id ContractID) (*Contract, error)
	// ListContracts returns contracts whose status is in the given set;
	// with no statuses it returns everything.
	ListContracts(ctx context.Context, statuses ...ContractStatus) ([]Contract, error)
	SaveContract(ctx context.Context, c *Contract) error

	// Contract history
	// ListHistory returns a contract's amendments of one change type,
	// ordered by effective date ascending (ties by creation time).
	ListHistory(ctx context.Context, contractID ContractID, changeType ChangeType) ([]ContractHistory, error)
	AddHistory(ctx context.Context, h *ContractHistory) error

	// Billings
	GetBilling(ctx context.Context, id BillingID) (*MonthlyBilling, error)
	// ListBillingsForMonth returns a month's billings; status "" means all.
	ListBillingsForMonth(ctx context.Context, year, month int, status BillingStatus) ([]MonthlyBilling, error)
	// ListBillingsForContractMonth returns all billings (any status) for one
	// contract in one month.
	ListBillingsForContractMonth(ctx context.Context, contractID ContractID, year, month int) ([]MonthlyBilling, error)
	// InsertBilling persists a new billing, assigning its ID when empty.
	// Returns ErrDuplicateBilling when a non-cancelled billing already
	// exists for the same contract, year, and month.
	InsertBilling(ctx context.Context, b *MonthlyBilling) error
	// UpdateBilling persists changes to an existing billing. The engine, not
	// the store, enforces locked-invoice immutability.
	UpdateBilling(ctx context.Context, b *MonthlyBilling) error

	// Outsourcing entries
	ListEntries(ctx context.Context, billingID BillingID) ([]OutsourcingEntry, error)
	AddEntry(ctx context.Context, e *OutsourcingEntry) error
	DeleteEntry(ctx context.Context, id EntryID) error

	// Holidays
	ListHolidays(ctx context.Context, year int) ([]Holiday, error)
	SaveHoliday(ctx context.Context, h *Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
}
