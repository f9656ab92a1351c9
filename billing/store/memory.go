/*
Package store provides the in-memory billing.Store used by tests and dev mode.

PURPOSE:
  A complete, thread-safe implementation of the billing.Store interface over
  plain maps. It enforces the same uniqueness contract as the SQLite store:
  at most one non-cancelled invoice per (contract, year, month).

All reads return defensive copies so callers can never mutate stored state
without going through the interface.

SEE ALSO:
  - store/sqlite: the production implementation
*/
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/billing-engine/billing"
)

// Memory is an in-memory billing.Store.
type Memory struct {
	mu sync.RWMutex

	companies map[billing.CompanyID]billing.Company
	contracts map[billing.ContractID]billing.Contract
	history   map[billing.HistoryID]billing.ContractHistory
	billings  map[billing.BillingID]billing.MonthlyBilling
	entries   map[billing.EntryID]billing.OutsourcingEntry
	holidays  map[string]billing.Holiday
}

var _ billing.Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		companies: make(map[billing.CompanyID]billing.Company),
		contracts: make(map[billing.ContractID]billing.Contract),
		history:   make(map[billing.HistoryID]billing.ContractHistory),
		billings:  make(map[billing.BillingID]billing.MonthlyBilling),
		entries:   make(map[billing.EntryID]billing.OutsourcingEntry),
		holidays:  make(map[string]billing.Holiday),
	}
}

// =============================================================================
// COMPANIES
// =============================================================================

func (m *Memory) GetCompany(_ context.Context, id billing.CompanyID) (*billing.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListCompanies(_ context.Context) ([]billing.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) SaveCompany(_ context.Context, c *billing.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = billing.CompanyID(uuid.NewString())
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
	m.companies[c.ID] = *c
	return nil
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (m *Memory) GetContract(_ context.Context, id billing.ContractID) (*billing.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contracts[id]
	if !ok {
		return nil, nil
	}
	out := c
	out.BillingMonths = append([]int(nil), c.BillingMonths...)
	return &out, nil
}

func (m *Memory) ListContracts(_ context.Context, statuses ...billing.ContractStatus) ([]billing.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[billing.ContractStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	var out []billing.Contract
	for _, c := range m.contracts {
		if len(wanted) > 0 && !wanted[c.Status] {
			continue
		}
		copied := c
		copied.BillingMonths = append([]int(nil), c.BillingMonths...)
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveContract(_ context.Context, c *billing.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = billing.ContractID(uuid.NewString())
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
	copied := *c
	copied.BillingMonths = append([]int(nil), c.BillingMonths...)
	m.contracts[c.ID] = copied
	return nil
}

// =============================================================================
// CONTRACT HISTORY
// =============================================================================

func (m *Memory) ListHistory(_ context.Context, contractID billing.ContractID, changeType billing.ChangeType) ([]billing.ContractHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []billing.ContractHistory
	for _, h := range m.history {
		if h.ContractID == contractID && h.Type == changeType {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EffectiveDate.Equal(out[j].EffectiveDate) {
			return out[i].EffectiveDate.Before(out[j].EffectiveDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) AddHistory(_ context.Context, h *billing.ContractHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == "" {
		h.ID = billing.HistoryID(uuid.NewString())
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	m.history[h.ID] = *h
	return nil
}

// =============================================================================
// BILLINGS
// =============================================================================

func (m *Memory) GetBilling(_ context.Context, id billing.BillingID) (*billing.MonthlyBilling, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.billings[id]
	if !ok {
		return nil, nil
	}
	out := copyBilling(b)
	return &out, nil
}

func (m *Memory) ListBillingsForMonth(_ context.Context, year, month int, status billing.BillingStatus) ([]billing.MonthlyBilling, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []billing.MonthlyBilling
	for _, b := range m.billings {
		if b.Year != year || b.Month != month {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		out = append(out, copyBilling(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListBillingsForContractMonth(_ context.Context, contractID billing.ContractID, year, month int) ([]billing.MonthlyBilling, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []billing.MonthlyBilling
	for _, b := range m.billings {
		if b.ContractID == contractID && b.Year == year && b.Month == month {
			out = append(out, copyBilling(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) InsertBilling(_ context.Context, b *billing.MonthlyBilling) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Cancelled rows never conflict, mirroring the SQLite partial index.
	if b.Status != billing.BillingCancelled {
		for _, existing := range m.billings {
			if existing.ContractID == b.ContractID &&
				existing.Year == b.Year && existing.Month == b.Month &&
				existing.Status != billing.BillingCancelled {
				return &billing.DuplicateBillingError{
					ContractID: b.ContractID,
					Year:       b.Year,
					Month:      b.Month,
					ExistingID: existing.ID,
				}
			}
		}
	}

	if b.ID == "" {
		b.ID = billing.BillingID(uuid.NewString())
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	m.billings[b.ID] = copyBilling(*b)
	return nil
}

func (m *Memory) UpdateBilling(_ context.Context, b *billing.MonthlyBilling) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.billings[b.ID]; !ok {
		return billing.ErrBillingNotFound
	}
	b.UpdatedAt = time.Now()
	m.billings[b.ID] = copyBilling(*b)
	return nil
}

// =============================================================================
// OUTSOURCING ENTRIES
// =============================================================================

func (m *Memory) ListEntries(_ context.Context, billingID billing.BillingID) ([]billing.OutsourcingEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []billing.OutsourcingEntry
	for _, e := range m.entries {
		if e.BillingID == billingID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) AddEntry(_ context.Context, e *billing.OutsourcingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = billing.EntryID(uuid.NewString())
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.entries[e.ID] = *e
	return nil
}

func (m *Memory) DeleteEntry(_ context.Context, id billing.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (m *Memory) ListHolidays(_ context.Context, year int) ([]billing.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []billing.Holiday
	for _, h := range m.holidays {
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) SaveHoliday(_ context.Context, h *billing.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	m.holidays[h.ID] = *h
	return nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holidays, id)
	return nil
}

// copyBilling deep-copies the fields that alias shared memory.
func copyBilling(b billing.MonthlyBilling) billing.MonthlyBilling {
	out := b
	out.Warnings = append([]billing.Warning(nil), b.Warnings...)
	if b.OverrideAmount != nil {
		v := *b.OverrideAmount
		out.OverrideAmount = &v
	}
	if b.SuggestedDate != nil {
		v := *b.SuggestedDate
		out.SuggestedDate = &v
	}
	if b.SalesDate != nil {
		v := *b.SalesDate
		out.SalesDate = &v
	}
	if b.RequestDate != nil {
		v := *b.RequestDate
		out.RequestDate = &v
	}
	if b.LockedAt != nil {
		v := *b.LockedAt
		out.LockedAt = &v
	}
	return out
}
