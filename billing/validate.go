/*
validate.go - The fixed battery of consistency checks

PURPOSE:
  Runs ten independent checks against a (billing, contract) pair and returns
  structured warnings. Advisory only: warnings never block generation or
  persistence, with one exception - a duplicate non-cancelled billing for the
  same contract/month is reported at error severity and the store's
  uniqueness constraint refuses it at insert time.

THE TEN CHECKS:
   1. Undefined contract period                      -> warning
   2. Issue timing unparseable / manual required     -> warning
   3. Amount changed >= 30% vs previous month        -> warning
   4. Outsourcing configured but amount zero         -> warning
   5. Duplicate non-cancelled billing                -> ERROR
   6. Reverse-issued contract                        -> info
   7. PO / attachment required by notes              -> info
   8. Contract end within 30 days                    -> info or warning
   9. Previous month still in draft                  -> warning
  10. Auto-renewal rolled the window forward         -> info

Validation is deterministic: the same (billing, contract) pair against the
same store yields the same warning list in the same order.

SEE ALSO:
  - generator.go: attaches these warnings to freshly generated drafts
*/
package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	decimalHundred               = decimal.NewFromInt(100)
	decimalSuddenChangeThreshold = decimal.NewFromInt(SuddenChangeThresholdPercent)
)

// Warning codes produced by the validator.
const (
	CodePeriodUndefined       = "PERIOD_UNDEFINED"
	CodeStatusPeriodUndefined = "STATUS_PERIOD_UNDEFINED"
	CodeTimingManualRequired  = "TIMING_MANUAL_REQUIRED"
	CodeTimingParseFailed     = "TIMING_PARSE_FAILED"
	CodeAmountSuddenChange    = "AMOUNT_SUDDEN_CHANGE"
	CodeOutsourcingMissing    = "OUTSOURCING_MISSING"
	CodeDuplicateBilling      = "DUPLICATE_BILLING"
	CodeReverseBilling        = "REVERSE_BILLING"
	CodeReverseBillingDateSet = "REVERSE_BILLING_DATE_SET"
	CodePORequired            = "PO_REQUIRED"
	CodeAttachmentRequired    = "ATTACHMENT_REQUIRED"
	CodeContractExpiring      = "CONTRACT_EXPIRING"
	CodeContractExpiringAuto  = "CONTRACT_EXPIRING_AUTO_RENEWAL"
	CodePreviousUnconfirmed   = "PREVIOUS_UNCONFIRMED"
	CodeAutoRenewed           = "AUTO_RENEWED"
)

// Validator runs the consistency checks against the store.
type Validator struct {
	store Store
}

// NewValidator creates a validator backed by the given store.
func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

// ValidateBilling runs all ten checks independently and concatenates the
// results. The billing may be unsaved (empty ID); the duplicate check then
// counts every existing non-cancelled billing for the month.
func (v *Validator) ValidateBilling(ctx context.Context, b *MonthlyBilling, c *Contract) ([]Warning, error) {
	var warnings []Warning

	warnings = append(warnings, v.checkUndefinedPeriod(c)...)
	warnings = append(warnings, v.checkTiming(c)...)

	ws, err := v.checkSuddenChange(ctx, b, c)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, ws...)

	warnings = append(warnings, v.checkOutsourcingMissing(b, c)...)

	ws, err = v.checkDuplicate(ctx, b, c)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, ws...)

	warnings = append(warnings, v.checkReverseBilling(b, c)...)
	warnings = append(warnings, v.checkNoteRules(c)...)
	warnings = append(warnings, v.checkExpiring(b, c)...)

	ws, err = v.checkPreviousDraft(ctx, b)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, ws...)

	warnings = append(warnings, v.checkAutoRenewal(b, c)...)

	return warnings, nil
}

// 1. Undefined contract period.
func (v *Validator) checkUndefinedPeriod(c *Contract) []Warning {
	var ws []Warning
	if c.Start == nil || c.End == nil {
		ws = append(ws, Warning{
			Code:     CodePeriodUndefined,
			Severity: SeverityWarning,
			Message:  "contract period undefined - billable but needs review",
		})
	}
	if c.Status == ContractPeriodUndefined {
		ws = append(ws, Warning{
			Code:     CodeStatusPeriodUndefined,
			Severity: SeverityWarning,
			Message:  "contract status is period-undefined",
		})
	}
	return ws
}

// 2. Issue timing unparseable or manual required.
func (v *Validator) checkTiming(c *Contract) []Warning {
	if c.Timing == "" {
		return nil
	}

	rule := ParseTiming(c.Timing)
	if rule.Kind != TimingManual {
		return nil
	}
	if rule.Parsed {
		// Recognized manual keyword ("on request", "negotiated"...).
		return []Warning{{
			Code:     CodeTimingManualRequired,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("manual issue date required: %q", c.Timing),
		}}
	}
	return []Warning{{
		Code:     CodeTimingParseFailed,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("could not resolve issue timing: %q", c.Timing),
	}}
}

// 3. Amount changed >= 30% vs the immediately preceding calendar month's
// non-cancelled billing. Open question resolved as: calendar-adjacent month
// only, matching reference behavior (see DESIGN.md).
func (v *Validator) checkSuddenChange(ctx context.Context, b *MonthlyBilling, c *Contract) ([]Warning, error) {
	prevYear, prevMonth := previousMonth(b.Year, b.Month)

	prev, err := v.latestNonCancelled(ctx, c.ID, prevYear, prevMonth)
	if err != nil {
		return nil, err
	}
	if prev == nil || !prev.FinalAmount.IsPositive() {
		return nil, nil
	}

	change := b.FinalAmount.Sub(prev.FinalAmount).
		Div(prev.FinalAmount).
		Mul(decimalHundred).
		Abs()
	if change.LessThan(decimalSuddenChangeThreshold) {
		return nil, nil
	}

	return []Warning{{
		Code:     CodeAmountSuddenChange,
		Severity: SeverityWarning,
		Message: fmt.Sprintf("sudden amount change: previous month %s won, this month %s won (%s%% change)",
			prev.FinalAmount.String(), b.FinalAmount.String(), change.Round(1).String()),
	}}, nil
}

// 4. Configured outsourcing relationship but zero amount without the
// explicit-zero flag.
func (v *Validator) checkOutsourcingMissing(b *MonthlyBilling, c *Contract) []Warning {
	hasDefault := c.OutsourcingCompanyID != nil || c.OutsourcingAmount.IsPositive()
	if !hasDefault || !b.OutsourcingAmount.IsZero() || c.OutsourcingZero {
		return nil
	}
	return []Warning{{
		Code:     CodeOutsourcingMissing,
		Severity: SeverityWarning,
		Message:  "outsourcing amount is zero for a contract with a configured subcontractor",
	}}
}

// 5. Another non-cancelled billing for the same contract/year/month.
// This is the one hard error in the battery.
func (v *Validator) checkDuplicate(ctx context.Context, b *MonthlyBilling, c *Contract) ([]Warning, error) {
	existing, err := v.store.ListBillingsForContractMonth(ctx, c.ID, b.Year, b.Month)
	if err != nil {
		return nil, fmt.Errorf("duplicate check for contract %s: %w", c.ID, err)
	}

	count := 0
	for i := range existing {
		if existing[i].Status == BillingCancelled {
			continue
		}
		if b.ID != "" && existing[i].ID == b.ID {
			continue
		}
		count++
	}
	if count == 0 {
		return nil, nil
	}

	return []Warning{{
		Code:     CodeDuplicateBilling,
		Severity: SeverityError,
		Message:  fmt.Sprintf("%d other non-cancelled billing(s) exist for this contract and month", count),
	}}, nil
}

// 6. Reverse-issued contract.
func (v *Validator) checkReverseBilling(b *MonthlyBilling, c *Contract) []Warning {
	if !c.ReverseBilling {
		return nil
	}

	var ws []Warning
	if b.SalesDate != nil || b.RequestDate != nil {
		ws = append(ws, Warning{
			Code:     CodeReverseBillingDateSet,
			Severity: SeverityInfo,
			Message:  "reverse-issued contract: issue dates are reference-only",
		})
	}
	ws = append(ws, Warning{
		Code:     CodeReverseBilling,
		Severity: SeverityInfo,
		Message:  "reverse-issued contract - managed against the counterparty's invoice",
	})
	return ws
}

// 7. PO number / attachment required by contract notes.
func (v *Validator) checkNoteRules(c *Contract) []Warning {
	rules := ParseNotes(c.Notes)

	var ws []Warning
	if rules.RequiresPO {
		msg := "PO number required for this counterpart"
		if rules.PONumber != "" {
			msg = fmt.Sprintf("PO number required for this counterpart (PO %s)", rules.PONumber)
		}
		ws = append(ws, Warning{Code: CodePORequired, Severity: SeverityInfo, Message: msg})
	}
	if rules.RequiresAttachment {
		msg := "attachment required"
		if rules.AttachmentNote != "" {
			msg = fmt.Sprintf("attachment required: %s", rules.AttachmentNote)
		}
		ws = append(ws, Warning{Code: CodeAttachmentRequired, Severity: SeverityInfo, Message: msg})
	}
	return ws
}

// 8. Contract end within 30 days after the billing month's first day.
func (v *Validator) checkExpiring(b *MonthlyBilling, c *Contract) []Warning {
	if c.End == nil {
		return nil
	}

	days := DaysBetween(MonthStart(b.Year, b.Month), *c.End)
	if days <= 0 || days > ExpiryWarningDays {
		return nil
	}

	if c.AutoRenewal {
		return []Warning{{
			Code:     CodeContractExpiringAuto,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("contract expires soon (%s) - will auto-renew", c.End),
		}}
	}
	return []Warning{{
		Code:     CodeContractExpiring,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("contract expires soon (%s) - manual renewal needed", c.End),
	}}
}

// 9. Previous calendar month still has a draft billing for this contract.
func (v *Validator) checkPreviousDraft(ctx context.Context, b *MonthlyBilling) ([]Warning, error) {
	prevYear, prevMonth := previousMonth(b.Year, b.Month)

	existing, err := v.store.ListBillingsForContractMonth(ctx, b.ContractID, prevYear, prevMonth)
	if err != nil {
		return nil, fmt.Errorf("previous-draft check for contract %s: %w", b.ContractID, err)
	}

	for i := range existing {
		if existing[i].Status == BillingDraft {
			return []Warning{{
				Code:     CodePreviousUnconfirmed,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("billing for %d-%02d is still in draft", prevYear, prevMonth),
			}}, nil
		}
	}
	return nil, nil
}

// 10. Auto-renewal rolled the contract window forward for this month.
func (v *Validator) checkAutoRenewal(b *MonthlyBilling, c *Contract) []Warning {
	if !c.AutoRenewal || c.End == nil {
		return nil
	}

	status := EvaluateContractPeriod(c, MonthStart(b.Year, b.Month))
	if !status.Renewed() {
		return nil
	}
	return []Warning{{
		Code:     CodeAutoRenewed,
		Severity: SeverityInfo,
		Message:  status.Message,
	}}
}

// =============================================================================
// AGGREGATE QUERIES
// =============================================================================

// MonthWarning is a warning annotated with its billing, contract, and
// counterpart company for dashboard-style reporting.
type MonthWarning struct {
	BillingID   BillingID  `json:"billing_id,omitempty"`
	ContractID  ContractID `json:"contract_id"`
	CompanyName string     `json:"company_name,omitempty"`
	Warning
}

// WarningsForMonth collects the warnings from every flagged billing in a
// month, annotated with the counterpart company's name.
func (v *Validator) WarningsForMonth(ctx context.Context, year, month int) ([]MonthWarning, error) {
	billings, err := v.store.ListBillingsForMonth(ctx, year, month, "")
	if err != nil {
		return nil, fmt.Errorf("list billings for %d-%02d: %w", year, month, err)
	}

	var all []MonthWarning
	for i := range billings {
		b := &billings[i]
		if !b.HasWarnings {
			continue
		}
		companyName := v.companyName(ctx, b.ContractID)
		for _, w := range b.Warnings {
			all = append(all, MonthWarning{
				BillingID:   b.ID,
				ContractID:  b.ContractID,
				CompanyName: companyName,
				Warning:     w,
			})
		}
	}
	return all, nil
}

// MissingBillings returns the active/period-undefined contracts that have no
// non-cancelled billing in the target month, after re-running the period
// evaluator so expired-without-renewal contracts are excluded.
func (v *Validator) MissingBillings(ctx context.Context, year, month int) ([]Contract, error) {
	contracts, err := v.store.ListContracts(ctx, ContractActive, ContractPeriodUndefined)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}

	billings, err := v.store.ListBillingsForMonth(ctx, year, month, "")
	if err != nil {
		return nil, fmt.Errorf("list billings for %d-%02d: %w", year, month, err)
	}
	billed := make(map[ContractID]bool)
	for i := range billings {
		if billings[i].Status != BillingCancelled {
			billed[billings[i].ContractID] = true
		}
	}

	ref := MonthStart(year, month)
	var missing []Contract
	for _, c := range contracts {
		if billed[c.ID] {
			continue
		}
		if EvaluateContractPeriod(&c, ref).Active {
			missing = append(missing, c)
		}
	}
	return missing, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (v *Validator) latestNonCancelled(ctx context.Context, contractID ContractID, year, month int) (*MonthlyBilling, error) {
	existing, err := v.store.ListBillingsForContractMonth(ctx, contractID, year, month)
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

func (v *Validator) companyName(ctx context.Context, contractID ContractID) string {
	contract, err := v.store.GetContract(ctx, contractID)
	if err != nil || contract == nil {
		return ""
	}
	company, err := v.store.GetCompany(ctx, contract.CompanyID)
	if err != nil || company == nil {
		return ""
	}
	return company.Name
}

func previousMonth(year, month int) (int, int) {
	month--
	if month == 0 {
		return year - 1, 12
	}
	return year, month
}
