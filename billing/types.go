/*
Package billing implements the recurring-contract billing engine.

PURPOSE:
  This package contains the domain types and algorithms for generating and
  validating monthly maintenance-contract invoices: deciding which contracts
  are due for a billing month, computing amounts (contract price, VAT,
  subcontracted cost, net margin) with dated amendments applied, proposing
  holiday-aware issue dates from free-text timing descriptions, and running
  the fixed battery of consistency checks before a batch is finalized.

KEY CONCEPTS IN THIS FILE (types.go):
  - Contract: one company's service agreement for one line item
  - ContractHistory: append-only amendment log (price/outsourcing changes)
  - MonthlyBilling: one invoice row per contract per covered billing month
  - OutsourcingEntry: subcontractor cost recorded against a specific invoice
  - Warning: a structured validation finding with severity

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal in whole won, never floats
  2. Type Safety: strong typing for IDs prevents mixing contract/billing IDs
  3. Explicit defaults: auto-renewal and renewal period defaults are named
     constants, never inferred from absent fields
  4. Lifecycle discipline: locked and cancelled invoices are terminal

SEE ALSO:
  - period.go: contract period evaluation with auto-renewal rolling
  - cycle.go: billing-cycle target-month resolution
  - calc.go: amount, VAT, outsourcing, and profit calculation
  - timing.go: issue-timing parsing and date suggestion
  - generator.go: batch generation and invoice lifecycle
  - validate.go: the ten consistency checks
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CompanyID string
type ContractID string
type BillingID string
type HistoryID string
type EntryID string

// =============================================================================
// ENUMS
// =============================================================================

// BillingCycle is the recurrence pattern governing which months produce an
// invoice for a contract.
type BillingCycle string

const (
	CycleMonthly    BillingCycle = "monthly"
	CycleQuarterly  BillingCycle = "quarterly"
	CycleSemiannual BillingCycle = "semiannual"
	CycleBiannual   BillingCycle = "biannual"  // twice a year, 6 covered months each
	CycleIrregular  BillingCycle = "irregular" // explicit month list, manual otherwise
)

// ContractStatus is the contract lifecycle state.
type ContractStatus string

const (
	ContractActive          ContractStatus = "active"
	ContractPeriodUndefined ContractStatus = "period_undefined"
	ContractExpired         ContractStatus = "expired"
	ContractTerminated      ContractStatus = "terminated"
)

// BillingStatus is the invoice lifecycle state.
// Transitions: draft -> confirmed -> locked; any non-locked -> cancelled.
// Locked and cancelled are terminal.
type BillingStatus string

const (
	BillingDraft     BillingStatus = "draft"
	BillingConfirmed BillingStatus = "confirmed"
	BillingLocked    BillingStatus = "locked"
	BillingCancelled BillingStatus = "cancelled"
)

// ChangeType identifies which amendment stream a history entry belongs to.
// Amount and outsourcing form two independent dated value streams.
type ChangeType string

const (
	ChangeAmount      ChangeType = "amount"
	ChangeOutsourcing ChangeType = "outsourcing"
	ChangePeriod      ChangeType = "period"
	ChangeStatus      ChangeType = "status"
	ChangeOther       ChangeType = "other"
)

// CompanyType distinguishes counterpart companies we bill (sales) from
// subcontractors we purchase from.
type CompanyType string

const (
	CompanySales    CompanyType = "sales"
	CompanyPurchase CompanyType = "purchase"
)

// =============================================================================
// POLICY CONSTANTS
// =============================================================================

const (
	// DefaultRenewalPeriodMonths applies when a contract auto-renews but
	// carries no explicit renewal period.
	DefaultRenewalPeriodMonths = 12

	// SuddenChangeThresholdPercent is the absolute month-over-month change
	// in final amount that triggers the sudden-change warning.
	SuddenChangeThresholdPercent = 30

	// ExpiryWarningDays is the window after the billing month's first day
	// within which a contract end date raises the expiring warning.
	ExpiryWarningDays = 30
)

// VATRate is the value-added tax rate applied to every invoice (10%).
var VATRate = decimal.RequireFromString("0.1")

// =============================================================================
// WARNINGS
// =============================================================================

// Severity classifies a validation finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Warning is one structured validation finding attached to an invoice.
type Warning struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// =============================================================================
// ENTITIES
// =============================================================================

// Company is a counterpart: either a maintenance customer (sales) or an
// outsourcing vendor (purchase). WarehouseCode is the organizational grouping
// code used by the summary reports.
type Company struct {
	ID            CompanyID
	Code          string
	Name          string
	Type          CompanyType
	WarehouseCode string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Contract is one company's maintenance agreement for one line item.
// Start and End may both be nil: the period is undefined and the contract is
// permanently eligible for billing (with a warning).
type Contract struct {
	ID       ContractID
	CompanyID CompanyID
	ItemName string

	Start *Date
	End   *Date

	// MonthlyAmount is the contract price per covered month, in whole won.
	MonthlyAmount decimal.Decimal

	Cycle BillingCycle
	// BillingMonths is the explicit month list for irregular cycles.
	// Empty means the contract is billed manually, never by the generator.
	BillingMonths []int
	// Timing is the free-text issue-timing description ("month-end",
	// "10th of every month", "on request", ...). Parsed by ParseTiming.
	Timing string

	AutoRenewal         bool
	RenewalPeriodMonths int

	// ReverseBilling means the counterparty issues the invoice document;
	// no issue-date proposal applies.
	ReverseBilling bool

	// Default subcontracting relationship. OutsourcingZero distinguishes a
	// deliberate zero from a not-yet-entered cost.
	OutsourcingCompanyID *CompanyID
	OutsourcingAmount    decimal.Decimal
	OutsourcingZero      bool

	Status ContractStatus

	// Notes is free text; ParseNotes extracts structured billing rules
	// (PO required, attachment required, reverse-issued) from it.
	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RenewalPeriod returns the renewal period in months, falling back to the
// explicit default when unset.
func (c *Contract) RenewalPeriod() int {
	if c.RenewalPeriodMonths > 0 {
		return c.RenewalPeriodMonths
	}
	return DefaultRenewalPeriodMonths
}

// ContractHistory is one amendment in a contract's append-only change log.
// For amount-bearing change types (amount, outsourcing) the value snapshots
// live in OldAmount/NewAmount; other change types carry free-form notes.
type ContractHistory struct {
	ID         HistoryID
	ContractID ContractID
	Type       ChangeType
	// EffectiveDate is the date the amendment takes effect. The applicable
	// value at month M is the entry with the latest effective date on or
	// before the first day of M.
	EffectiveDate Date

	OldAmount *decimal.Decimal
	NewAmount *decimal.Decimal
	OldNote   string
	NewNote   string

	Reason    string
	CreatedBy string
	CreatedAt time.Time
}

// MonthlyBilling is one invoice row per contract per covered billing month.
type MonthlyBilling struct {
	ID         BillingID
	ContractID ContractID

	Year  int
	Month int
	// CoverMonths is how many calendar months this invoice's amount
	// represents (1, 3, or 6 depending on cycle).
	CoverMonths int

	// CalculatedAmount is the system-computed amount; OverrideAmount is an
	// optional manual correction; FinalAmount is the authoritative one
	// (override when present, else calculated).
	CalculatedAmount decimal.Decimal
	OverrideAmount   *decimal.Decimal
	FinalAmount      decimal.Decimal

	VATAmount   decimal.Decimal
	TotalAmount decimal.Decimal

	OutsourcingAmount decimal.Decimal
	// Profit = FinalAmount - OutsourcingAmount. May be negative.
	Profit decimal.Decimal

	SuggestedDate *Date
	SalesDate     *Date
	RequestDate   *Date

	Status BillingStatus

	Warnings    []Warning
	HasWarnings bool

	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
	LockedAt  *time.Time
	LockedBy  string
}

// Locked reports whether the invoice is immutable.
func (b *MonthlyBilling) Locked() bool { return b.Status == BillingLocked }

// SetWarnings attaches validation findings and updates the flag.
func (b *MonthlyBilling) SetWarnings(ws []Warning) {
	b.Warnings = ws
	b.HasWarnings = len(ws) > 0
}

// OutsourcingEntry is one subcontractor purchase recorded against an invoice.
// When any entries exist for an invoice, their sum is authoritative over the
// contract's default outsourcing amount.
type OutsourcingEntry struct {
	ID        EntryID
	BillingID BillingID
	CompanyID CompanyID
	Amount    decimal.Decimal
	PurchaseDate *Date
	Notes     string
	CreatedAt time.Time
}

// Holiday is a calendar date marked non-business, used only to shift proposed
// issue dates backward.
type Holiday struct {
	ID        string
	Date      Date
	Name      string
	CreatedAt time.Time
}
