/*
calc.go - Amount, VAT, outsourcing, and profit calculation

PURPOSE:
  Resolves the effective monthly price and outsourcing cost as of a billing
  month (applying the most recent dated amendment on or before that month),
  computes invoice amounts, and aggregates monthly/yearly summaries.

AMENDMENT TIMELINES:
  Price and outsourcing amendments form two independent dated value streams
  (ChangeAmount / ChangeOutsourcing). A Timeline is loaded once per contract
  per stream and binary-searched, rather than re-querying storage per field
  per call.

ROUNDING:
  VAT is 10% of the billing amount, rounded half-up to the nearest won.
  All amounts are whole-won decimals; profit may be negative.

SEE ALSO:
  - generator.go: drives these calculations per candidate contract
  - store.go: history and billing queries
*/
package billing

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMENDMENT TIMELINE - Dated value stream with binary search
// =============================================================================

// Timeline is a contract's ordered amendment history for one change type.
type Timeline struct {
	entries []ContractHistory // ascending by EffectiveDate
}

// NewTimeline builds a timeline from history rows, sorting defensively.
func NewTimeline(entries []ContractHistory) Timeline {
	sorted := make([]ContractHistory, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveDate.Before(sorted[j].EffectiveDate)
	})
	return Timeline{entries: sorted}
}

// EffectiveValue returns the amount snapshot from the entry with the latest
// effective date on or before asOf; absent any such entry (or any entry
// carrying an amount), fallback is authoritative.
func (t Timeline) EffectiveValue(asOf Date, fallback decimal.Decimal) decimal.Decimal {
	// First entry strictly after asOf; everything before index i applies.
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].EffectiveDate.After(asOf)
	})
	for j := i - 1; j >= 0; j-- {
		if t.entries[j].NewAmount != nil {
			return *t.entries[j].NewAmount
		}
	}
	return fallback
}

// Len returns the number of amendments on the timeline.
func (t Timeline) Len() int { return len(t.entries) }

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator computes invoice amounts against the store.
type Calculator struct {
	store Store
}

// NewCalculator creates a calculator backed by the given store.
func NewCalculator(store Store) *Calculator {
	return &Calculator{store: store}
}

// LoadTimeline loads one contract's amendment timeline for a change type.
func (c *Calculator) LoadTimeline(ctx context.Context, contractID ContractID, changeType ChangeType) (Timeline, error) {
	entries, err := c.store.ListHistory(ctx, contractID, changeType)
	if err != nil {
		return Timeline{}, fmt.Errorf("load %s history for contract %s: %w", changeType, contractID, err)
	}
	return NewTimeline(entries), nil
}

// EffectiveAmount resolves the contract's effective monthly price as of the
// billing month's first day.
func (c *Calculator) EffectiveAmount(ctx context.Context, contract *Contract, year, month int) (decimal.Decimal, error) {
	tl, err := c.LoadTimeline(ctx, contract.ID, ChangeAmount)
	if err != nil {
		return decimal.Zero, err
	}
	return tl.EffectiveValue(MonthStart(year, month), contract.MonthlyAmount), nil
}

// EffectiveOutsourcing resolves the contract's effective monthly outsourcing
// cost as of the billing month's first day.
func (c *Calculator) EffectiveOutsourcing(ctx context.Context, contract *Contract, year, month int) (decimal.Decimal, error) {
	tl, err := c.LoadTimeline(ctx, contract.ID, ChangeOutsourcing)
	if err != nil {
		return decimal.Zero, err
	}
	return tl.EffectiveValue(MonthStart(year, month), contract.OutsourcingAmount), nil
}

// BillingAmount computes the invoice amount for a billing month:
// effective monthly price x covered-month count. coverMonths 0 means derive
// it from the contract's cycle.
func (c *Calculator) BillingAmount(ctx context.Context, contract *Contract, year, month, coverMonths int) (decimal.Decimal, int, string, error) {
	if contract.MonthlyAmount.IsNegative() {
		return decimal.Zero, 0, "", &RecordError{
			ContractID: contract.ID,
			Field:      "monthly_amount",
			Reason:     "negative contract price",
		}
	}

	if coverMonths <= 0 {
		coverMonths = CoverMonths(contract.Cycle)
	}

	effective, err := c.EffectiveAmount(ctx, contract, year, month)
	if err != nil {
		return decimal.Zero, 0, "", err
	}

	amount := effective.Mul(decimal.NewFromInt(int64(coverMonths)))
	note := fmt.Sprintf("monthly %s won x %d month(s)", effective.String(), coverMonths)
	return amount, coverMonths, note, nil
}

// VATAndTotal computes VAT (10%, rounded half-up to the nearest won) and the
// invoice total.
func VATAndTotal(amount decimal.Decimal) (vat, total decimal.Decimal) {
	vat = amount.Mul(VATRate).Round(0)
	total = amount.Add(vat)
	return vat, total
}

// OutsourcingAmount computes the subcontracted cost for an invoice.
// Precedence: explicit-zero flag, then recorded entries (their sum is
// authoritative over the default), then the effective default amount scaled
// by covered months, then zero.
func (c *Calculator) OutsourcingAmount(ctx context.Context, contract *Contract, billingID BillingID, year, month, coverMonths int) (decimal.Decimal, string, error) {
	if contract.OutsourcingZero {
		return decimal.Zero, "explicit zero", nil
	}

	if billingID != "" {
		entries, err := c.store.ListEntries(ctx, billingID)
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("load entries for billing %s: %w", billingID, err)
		}
		if len(entries) > 0 {
			sum := decimal.Zero
			for _, e := range entries {
				sum = sum.Add(e.Amount)
			}
			return sum, fmt.Sprintf("%d entries summed", len(entries)), nil
		}
	}

	if contract.OutsourcingAmount.IsPositive() {
		effective, err := c.EffectiveOutsourcing(ctx, contract, year, month)
		if err != nil {
			return decimal.Zero, "", err
		}
		total := effective.Mul(decimal.NewFromInt(int64(coverMonths)))
		note := fmt.Sprintf("default monthly %s won x %d month(s)", effective.String(), coverMonths)
		return total, note, nil
	}

	return decimal.Zero, "no outsourcing", nil
}

// Profit is the net margin: final amount minus outsourcing amount. A negative
// result is reported, not clamped.
func Profit(amount, outsourcing decimal.Decimal) decimal.Decimal {
	return amount.Sub(outsourcing)
}

// =============================================================================
// SUMMARIES
// =============================================================================

// SummaryTotals aggregates non-cancelled invoices.
type SummaryTotals struct {
	Count       int             `json:"count"`
	Billing     decimal.Decimal `json:"billing"`
	Outsourcing decimal.Decimal `json:"outsourcing"`
	Profit      decimal.Decimal `json:"profit"`
}

func newSummaryTotals() SummaryTotals {
	return SummaryTotals{Billing: decimal.Zero, Outsourcing: decimal.Zero, Profit: decimal.Zero}
}

func (s *SummaryTotals) add(b *MonthlyBilling) {
	s.Count++
	s.Billing = s.Billing.Add(b.FinalAmount)
	s.Outsourcing = s.Outsourcing.Add(b.OutsourcingAmount)
	s.Profit = s.Profit.Add(b.Profit)
}

// MonthlySummary aggregates a month's non-cancelled invoices, broken down by
// the counterpart company's warehouse code.
type MonthlySummary struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	SummaryTotals
	ByWarehouse map[string]*SummaryTotals `json:"by_warehouse"`
}

// YearlySummary aggregates a year's non-cancelled invoices by month.
type YearlySummary struct {
	Year int `json:"year"`
	SummaryTotals
	ByMonth map[int]*MonthlySummary `json:"by_month"`
}

// MonthlySummary aggregates one month. warehouseCode "" means all warehouses.
func (c *Calculator) MonthlySummary(ctx context.Context, year, month int, warehouseCode string) (*MonthlySummary, error) {
	billings, err := c.store.ListBillingsForMonth(ctx, year, month, "")
	if err != nil {
		return nil, fmt.Errorf("list billings for %d-%02d: %w", year, month, err)
	}

	summary := &MonthlySummary{
		Year:          year,
		Month:         month,
		SummaryTotals: newSummaryTotals(),
		ByWarehouse:   make(map[string]*SummaryTotals),
	}

	for i := range billings {
		b := &billings[i]
		if b.Status == BillingCancelled {
			continue
		}

		warehouse := "unknown"
		contract, err := c.store.GetContract(ctx, b.ContractID)
		if err == nil && contract != nil {
			if company, err := c.store.GetCompany(ctx, contract.CompanyID); err == nil && company != nil && company.WarehouseCode != "" {
				warehouse = company.WarehouseCode
			}
		}
		if warehouseCode != "" && warehouse != warehouseCode {
			continue
		}

		summary.add(b)

		wh, ok := summary.ByWarehouse[warehouse]
		if !ok {
			totals := newSummaryTotals()
			wh = &totals
			summary.ByWarehouse[warehouse] = wh
		}
		wh.add(b)
	}

	return summary, nil
}

// YearlySummary aggregates all twelve months of a year.
func (c *Calculator) YearlySummary(ctx context.Context, year int, warehouseCode string) (*YearlySummary, error) {
	summary := &YearlySummary{
		Year:          year,
		SummaryTotals: newSummaryTotals(),
		ByMonth:       make(map[int]*MonthlySummary),
	}

	for month := 1; month <= 12; month++ {
		monthly, err := c.MonthlySummary(ctx, year, month, warehouseCode)
		if err != nil {
			return nil, err
		}
		summary.Count += monthly.Count
		summary.Billing = summary.Billing.Add(monthly.Billing)
		summary.Outsourcing = summary.Outsourcing.Add(monthly.Outsourcing)
		summary.Profit = summary.Profit.Add(monthly.Profit)
		summary.ByMonth[month] = monthly
	}

	return summary, nil
}
