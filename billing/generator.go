/*
generator.go - Batch generation and invoice lifecycle

PURPOSE:
  Orchestrates monthly invoice generation: walks every billable contract,
  decides whether the target month is due under the contract's period and
  cycle, computes amounts and a proposed issue date, attaches validation
  warnings, and returns drafts plus a per-run report. Also owns the invoice
  lifecycle transitions (confirm, lock, cancel) and manual overrides.

PER-RECORD ISOLATION:
  One malformed contract never fails the batch. Record-level failures are
  captured in the report's Failed list and generation continues.

LIFECYCLE:
  draft -> confirmed -> locked; any non-locked status -> cancelled.
  Locked invoices are immutable: every mutation returns a LockedError.
  Cancelling frees the (contract, year, month) slot for regeneration.

SEE ALSO:
  - calc.go: amount computation
  - validate.go: the warning battery attached to each draft
  - store.go: duplicate enforcement at insert time
*/
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// =============================================================================
// GENERATOR
// =============================================================================

// Generator drives batch generation and the invoice lifecycle.
type Generator struct {
	store     Store
	calc      *Calculator
	validator *Validator
	log       zerolog.Logger
}

// NewGenerator wires a generator over the store.
func NewGenerator(store Store, log zerolog.Logger) *Generator {
	return &Generator{
		store:     store,
		calc:      NewCalculator(store),
		validator: NewValidator(store),
		log:       log.With().Str("component", "generator").Logger(),
	}
}

// Calculator exposes the generator's calculator for summary endpoints.
func (g *Generator) Calculator() *Calculator { return g.calc }

// Validator exposes the generator's validator for reporting endpoints.
func (g *Generator) Validator() *Validator { return g.validator }

// GenerationFailure records one contract the batch could not process.
type GenerationFailure struct {
	ContractID ContractID `json:"contract_id"`
	Reason     string     `json:"reason"`
}

// GenerationReport summarizes one generation run.
type GenerationReport struct {
	Year              int                 `json:"year"`
	Month             int                 `json:"month"`
	Created           int                 `json:"created"`
	SkippedDuplicate  int                 `json:"skipped_duplicate"`
	SkippedIneligible int                 `json:"skipped_ineligible"`
	Failed            []GenerationFailure `json:"failed,omitempty"`
}

// GenerateMonth produces draft invoices for every contract due in the target
// month. The drafts are NOT persisted; callers review and pass them to
// SaveBillings. Contracts with an existing non-cancelled invoice for the month
// are skipped, as are contracts whose period or cycle makes the month not due.
func (g *Generator) GenerateMonth(ctx context.Context, year, month int) ([]*MonthlyBilling, *GenerationReport, error) {
	if month < 1 || month > 12 {
		return nil, nil, fmt.Errorf("invalid month %d", month)
	}

	contracts, err := g.store.ListContracts(ctx, ContractActive, ContractPeriodUndefined)
	if err != nil {
		return nil, nil, fmt.Errorf("list billable contracts: %w", err)
	}

	cal, err := g.holidayCalendar(ctx, year)
	if err != nil {
		return nil, nil, err
	}

	report := &GenerationReport{Year: year, Month: month}
	var drafts []*MonthlyBilling

	for i := range contracts {
		c := &contracts[i]

		existing, err := g.firstNonCancelled(ctx, c.ID, year, month)
		if err != nil {
			report.Failed = append(report.Failed, GenerationFailure{ContractID: c.ID, Reason: err.Error()})
			continue
		}
		if existing != nil {
			report.SkippedDuplicate++
			continue
		}

		ref := MonthStart(year, month)
		if !EvaluateContractPeriod(c, ref).Active {
			report.SkippedIneligible++
			continue
		}

		if !IsTargetMonth(c.Cycle, year, month, g.customMonths(c)) {
			report.SkippedIneligible++
			continue
		}

		draft, err := g.buildDraft(ctx, c, year, month, cal)
		if err != nil {
			g.log.Warn().Err(err).Str("contract_id", string(c.ID)).Msg("generation failed for contract")
			report.Failed = append(report.Failed, GenerationFailure{ContractID: c.ID, Reason: err.Error()})
			continue
		}

		drafts = append(drafts, draft)
		report.Created++
	}

	g.log.Info().
		Int("year", year).Int("month", month).
		Int("created", report.Created).
		Int("skipped_duplicate", report.SkippedDuplicate).
		Int("skipped_ineligible", report.SkippedIneligible).
		Int("failed", len(report.Failed)).
		Msg("generation run complete")

	return drafts, report, nil
}

// buildDraft assembles one draft invoice: amounts, proposed date, warnings.
func (g *Generator) buildDraft(ctx context.Context, c *Contract, year, month int, cal HolidayCalendar) (*MonthlyBilling, error) {
	amount, coverMonths, calcNote, err := g.calc.BillingAmount(ctx, c, year, month, 0)
	if err != nil {
		return nil, err
	}
	vat, total := VATAndTotal(amount)

	outsourcing, _, err := g.calc.OutsourcingAmount(ctx, c, "", year, month, coverMonths)
	if err != nil {
		return nil, err
	}

	suggested := SuggestDate(c, year, month, cal)

	now := time.Now()
	draft := &MonthlyBilling{
		ContractID:        c.ID,
		Year:              year,
		Month:             month,
		CoverMonths:       coverMonths,
		CalculatedAmount:  amount,
		FinalAmount:       amount,
		VATAmount:         vat,
		TotalAmount:       total,
		OutsourcingAmount: outsourcing,
		Profit:            Profit(amount, outsourcing),
		SuggestedDate:     suggested,
		SalesDate:         suggested,
		Status:            BillingDraft,
		Notes:             calcNote,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	warnings, err := g.validator.ValidateBilling(ctx, draft, c)
	if err != nil {
		return nil, err
	}
	draft.SetWarnings(warnings)

	return draft, nil
}

// customMonths resolves an irregular contract's explicit billing-month list,
// falling back to months encoded in its timing text.
func (g *Generator) customMonths(c *Contract) []int {
	if len(c.BillingMonths) > 0 {
		return c.BillingMonths
	}
	if c.Timing != "" {
		return ParseTiming(c.Timing).Months
	}
	return nil
}

// SaveBillings persists a reviewed batch of drafts. Per-record isolation:
// a duplicate or failed insert skips that draft and the batch continues.
func (g *Generator) SaveBillings(ctx context.Context, drafts []*MonthlyBilling) (*GenerationReport, error) {
	report := &GenerationReport{}
	for _, d := range drafts {
		report.Year, report.Month = d.Year, d.Month
		if err := g.store.InsertBilling(ctx, d); err != nil {
			if IsClientError(err) {
				report.SkippedDuplicate++
				continue
			}
			report.Failed = append(report.Failed, GenerationFailure{ContractID: d.ContractID, Reason: err.Error()})
			continue
		}
		report.Created++
	}
	return report, nil
}

// =============================================================================
// LIFECYCLE TRANSITIONS
// =============================================================================

// Confirm moves a draft invoice to confirmed.
func (g *Generator) Confirm(ctx context.Context, id BillingID) (*MonthlyBilling, error) {
	b, err := g.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != BillingDraft {
		return nil, &TransitionError{BillingID: id, From: b.Status, To: BillingConfirmed}
	}
	b.Status = BillingConfirmed
	b.UpdatedAt = time.Now()
	if err := g.store.UpdateBilling(ctx, b); err != nil {
		return nil, fmt.Errorf("confirm billing %s: %w", id, err)
	}
	return b, nil
}

// Lock moves a confirmed invoice to locked, stamping who locked it and when.
// Locked is terminal and immutable.
func (g *Generator) Lock(ctx context.Context, id BillingID, actor string) (*MonthlyBilling, error) {
	b, err := g.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != BillingConfirmed {
		return nil, &TransitionError{BillingID: id, From: b.Status, To: BillingLocked}
	}
	now := time.Now()
	b.Status = BillingLocked
	b.LockedAt = &now
	b.LockedBy = actor
	b.UpdatedAt = now
	if err := g.store.UpdateBilling(ctx, b); err != nil {
		return nil, fmt.Errorf("lock billing %s: %w", id, err)
	}
	g.log.Info().Str("billing_id", string(id)).Str("actor", actor).Msg("billing locked")
	return b, nil
}

// Cancel moves any non-locked invoice to cancelled, freeing the month slot
// for regeneration.
func (g *Generator) Cancel(ctx context.Context, id BillingID) (*MonthlyBilling, error) {
	b, err := g.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Locked() {
		return nil, &LockedError{BillingID: id, LockedBy: b.LockedBy, LockedAt: b.LockedAt}
	}
	if b.Status == BillingCancelled {
		return b, nil
	}
	b.Status = BillingCancelled
	b.UpdatedAt = time.Now()
	if err := g.store.UpdateBilling(ctx, b); err != nil {
		return nil, fmt.Errorf("cancel billing %s: %w", id, err)
	}
	return b, nil
}

// =============================================================================
// MANUAL ADJUSTMENTS
// =============================================================================

// OverrideRequest carries the fields a reviewer may adjust on a non-locked
// invoice. Nil fields are left untouched.
type OverrideRequest struct {
	Amount      *decimal.Decimal
	SalesDate   *Date
	RequestDate *Date
	Notes       *string
}

// Override applies manual corrections. An amount override recomputes VAT,
// total, and profit from the override; the calculated amount is preserved for
// audit. Locked invoices reject all overrides.
func (g *Generator) Override(ctx context.Context, id BillingID, req OverrideRequest) (*MonthlyBilling, error) {
	b, err := g.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Locked() {
		return nil, &LockedError{BillingID: id, LockedBy: b.LockedBy, LockedAt: b.LockedAt}
	}

	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, &RecordError{ContractID: b.ContractID, Field: "override_amount", Reason: "negative amount"}
		}
		override := *req.Amount
		b.OverrideAmount = &override
		b.FinalAmount = override
		b.VATAmount, b.TotalAmount = VATAndTotal(override)
		b.Profit = Profit(override, b.OutsourcingAmount)
	}
	if req.SalesDate != nil {
		d := *req.SalesDate
		b.SalesDate = &d
	}
	if req.RequestDate != nil {
		d := *req.RequestDate
		b.RequestDate = &d
	}
	if req.Notes != nil {
		b.Notes = *req.Notes
	}

	b.UpdatedAt = time.Now()
	if err := g.store.UpdateBilling(ctx, b); err != nil {
		return nil, fmt.Errorf("override billing %s: %w", id, err)
	}
	return b, nil
}

// RefreshOutsourcing recomputes an invoice's outsourcing amount and profit
// after its entries changed. Locked invoices are immutable.
func (g *Generator) RefreshOutsourcing(ctx context.Context, id BillingID) (*MonthlyBilling, error) {
	b, err := g.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Locked() {
		return nil, &LockedError{BillingID: id, LockedBy: b.LockedBy, LockedAt: b.LockedAt}
	}

	contract, err := g.store.GetContract(ctx, b.ContractID)
	if err != nil {
		return nil, fmt.Errorf("load contract %s: %w", b.ContractID, err)
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}

	outsourcing, _, err := g.calc.OutsourcingAmount(ctx, contract, b.ID, b.Year, b.Month, b.CoverMonths)
	if err != nil {
		return nil, err
	}
	b.OutsourcingAmount = outsourcing
	b.Profit = Profit(b.FinalAmount, outsourcing)
	b.UpdatedAt = time.Now()

	if err := g.store.UpdateBilling(ctx, b); err != nil {
		return nil, fmt.Errorf("refresh billing %s: %w", id, err)
	}
	return b, nil
}

// CheckDuplicate returns the existing non-cancelled invoice for a contract
// and month, or nil.
func (g *Generator) CheckDuplicate(ctx context.Context, contractID ContractID, year, month int) (*MonthlyBilling, error) {
	return g.firstNonCancelled(ctx, contractID, year, month)
}

// =============================================================================
// HELPERS
// =============================================================================

func (g *Generator) mustGet(ctx context.Context, id BillingID) (*MonthlyBilling, error) {
	b, err := g.store.GetBilling(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load billing %s: %w", id, err)
	}
	if b == nil {
		return nil, ErrBillingNotFound
	}
	return b, nil
}

func (g *Generator) firstNonCancelled(ctx context.Context, contractID ContractID, year, month int) (*MonthlyBilling, error) {
	existing, err := g.store.ListBillingsForContractMonth(ctx, contractID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list billings for contract %s in %d-%02d: %w", contractID, year, month, err)
	}
	for i := range existing {
		if existing[i].Status != BillingCancelled {
			return &existing[i], nil
		}
	}
	return nil, nil
}

func (g *Generator) holidayCalendar(ctx context.Context, year int) (HolidayCalendar, error) {
	holidays, err := g.store.ListHolidays(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list holidays for %d: %w", year, err)
	}
	// December issue dates can roll back into the previous year only across
	// a long holiday run; keeping the single-year calendar is acceptable
	// because rolls stop at the first business day.
	return NewHolidaySetFromHolidays(holidays), nil
}
