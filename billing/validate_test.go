package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/billing/store"
)

func warningCodes(ws []billing.Warning) []string {
	codes := make([]string, len(ws))
	for i, w := range ws {
		codes[i] = w.Code
	}
	return codes
}

func baseBilling(c *billing.Contract, year, month int, final string) *billing.MonthlyBilling {
	return &billing.MonthlyBilling{
		ContractID:       c.ID,
		Year:             year,
		Month:            month,
		CoverMonths:      1,
		CalculatedAmount: dec(final),
		FinalAmount:      dec(final),
		VATAmount:        dec("0"),
		TotalAmount:      dec(final),
		OutsourcingAmount: dec("0"),
		Profit:           dec(final),
		Status:           billing.BillingDraft,
	}
}

func TestValidate_CleanContractYieldsNoWarnings(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{
		ID:            "c-1",
		Start:         datePtr(2024, time.January, 1),
		End:           datePtr(2025, time.December, 31),
		MonthlyAmount: dec("1000000"),
		Cycle:         billing.CycleMonthly,
		Timing:        "month-end",
		Status:        billing.ContractActive,
	}
	require.NoError(t, mem.SaveContract(ctx, c))

	ws, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1000000"), c)
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestValidate_UndefinedPeriod(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{ID: "c-1", MonthlyAmount: dec("1"), Cycle: billing.CycleMonthly, Status: billing.ContractPeriodUndefined}
	require.NoError(t, mem.SaveContract(ctx, c))

	ws, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	codes := warningCodes(ws)
	assert.Contains(t, codes, "PERIOD_UNDEFINED")
	assert.Contains(t, codes, "STATUS_PERIOD_UNDEFINED")
}

func TestValidate_ManualTimingRequired(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{
		ID: "c-1", Start: datePtr(2024, time.January, 1), End: datePtr(2025, time.December, 31),
		Timing: "billed separately on request", Cycle: billing.CycleMonthly, Status: billing.ContractActive,
	}
	require.NoError(t, mem.SaveContract(ctx, c))

	ws, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	assert.Contains(t, warningCodes(ws), "TIMING_MANUAL_REQUIRED")
}

func TestValidate_TimingParseFailed(t *testing.T) {
	// GIVEN: Timing text with no recognizable keyword, phrase, or day
	// THEN: The parse-failure warning fires, not the manual-keyword one

	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{
		ID: "c-1", Start: datePtr(2024, time.January, 1), End: datePtr(2025, time.December, 31),
		Timing: "whenever the project wraps up", Cycle: billing.CycleMonthly, Status: billing.ContractActive,
	}
	require.NoError(t, mem.SaveContract(ctx, c))

	ws, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	codes := warningCodes(ws)
	assert.Contains(t, codes, "TIMING_PARSE_FAILED")
	assert.NotContains(t, codes, "TIMING_MANUAL_REQUIRED")
}

func TestValidate_SuddenAmountChange(t *testing.T) {
	// GIVEN: May billed at 1M, June at 1.4M (+40%)
	// THEN: The sudden-change warning fires; +20% would not

	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{
		ID: "c-1", Start: datePtr(2024, time.January, 1), End: datePtr(2025, time.December, 31),
		MonthlyAmount: dec("1000000"), Cycle: billing.CycleMonthly, Status: billing.ContractActive,
	}
	require.NoError(t, mem.SaveContract(ctx, c))
	prev := baseBilling(c, 2024, 5, "1000000")
	prev.Status = billing.BillingConfirmed
	require.NoError(t, mem.InsertBilling(ctx, prev))

	ws, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1400000"), c)
	require.NoError(t, err)
	assert.Contains(t, warningCodes(ws), "AMOUNT_SUDDEN_CHANGE")

	ws, err = v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1200000"), c)
	require.NoError(t, err)
	assert.NotContains(t, warningCodes(ws), "AMOUNT_SUDDEN_CHANGE")

	// A decrease past the threshold also fires
	ws, err = v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "600000"), c)
	require.NoError(t, err)
	assert.Contains(t, warningCodes(ws), "AMOUNT_SUDDEN_CHANGE")
}

func TestValidate_OutsourcingMissing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	vendor := billing.CompanyID("vendor-1")
	c := &billing.Contract{
		ID: "c-1", Start: datePtr(2024, time.January, 1), End: datePtr(2025, time.December, 31),
		Cycle: billing.CycleMonthly, Status: billing.ContractActive,
		OutsourcingCompanyID: &vendor,
	}
	require.NoError(t, mem.SaveContract(ctx, c))

	ws, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	assert.Contains(t, warningCodes(ws), "OUTSOURCING_MISSING")

	// The explicit-zero flag silences it
	c.OutsourcingZero = true
	ws, err = v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	assert.NotContains(t, warningCodes(ws), "OUTSOURCING_MISSING")
}

func TestValidate_DuplicateIsErrorSeverity(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{
		ID: "c-1", Start: datePtr(2024, time.January, 1), End: datePtr(2025, time.December, 31),
		Cycle: billing.CycleMonthly, Status: billing.ContractActive,
	}
	require.NoError(t, mem.SaveContract(ctx, c))
	existing := baseBilling(c, 2024, 6, "1000000")
	require.NoError(t, mem.InsertBilling(ctx, existing))

	// An unsaved candidate for the same month collides with the saved one
	ws, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1000000"), c)
	require.NoError(t, err)

	var found *billing.Warning
	for i := range ws {
		if ws[i].Code == "DUPLICATE_BILLING" {
			found = &ws[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, billing.SeverityError, found.Severity)

	// The saved billing itself is excluded by ID and stays clean
	ws, err = v.ValidateBilling(ctx, existing, c)
	require.NoError(t, err)
	assert.NotContains(t, warningCodes(ws), "DUPLICATE_BILLING")
}

func TestValidate_ReverseBillingInfo(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{
		ID: "c-1", Start: datePtr(2024, time.January, 1), End: datePtr(2025, time.December, 31),
		Cycle: billing.CycleMonthly, Status: billing.ContractActive, ReverseBilling: true,
	}
	require.NoError(t, mem.SaveContract(ctx, c))

	b := baseBilling(c, 2024, 6, "1")
	b.SalesDate = datePtr(2024, time.June, 28)

	ws, err := v.ValidateBilling(ctx, b, c)
	require.NoError(t, err)
	codes := warningCodes(ws)
	assert.Contains(t, codes, "REVERSE_BILLING")
	assert.Contains(t, codes, "REVERSE_BILLING_DATE_SET")
}

func TestValidate_NoteRules(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{
		ID: "c-1", Start: datePtr(2024, time.January, 1), End: datePtr(2025, time.December, 31),
		Cycle: billing.CycleMonthly, Status: billing.ContractActive,
		Notes: "PO# X-99 required, attachment: work report",
	}
	require.NoError(t, mem.SaveContract(ctx, c))

	ws, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	codes := warningCodes(ws)
	assert.Contains(t, codes, "PO_REQUIRED")
	assert.Contains(t, codes, "ATTACHMENT_REQUIRED")
}

func TestValidate_ContractExpiring(t *testing.T) {
	// GIVEN: A contract ending 20 days into the billing month
	// THEN: warning without auto-renewal, info with it

	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{
		ID: "c-1", Start: datePtr(2024, time.January, 1), End: datePtr(2024, time.June, 20),
		Cycle: billing.CycleMonthly, Status: billing.ContractActive,
	}
	require.NoError(t, mem.SaveContract(ctx, c))

	ws, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	var w *billing.Warning
	for i := range ws {
		if ws[i].Code == "CONTRACT_EXPIRING" {
			w = &ws[i]
		}
	}
	require.NotNil(t, w)
	assert.Equal(t, billing.SeverityWarning, w.Severity)

	c.AutoRenewal = true
	ws, err = v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	codes := warningCodes(ws)
	assert.Contains(t, codes, "CONTRACT_EXPIRING_AUTO_RENEWAL")
	assert.NotContains(t, codes, "CONTRACT_EXPIRING")
}

func TestValidate_PreviousUnconfirmed(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{
		ID: "c-1", Start: datePtr(2024, time.January, 1), End: datePtr(2025, time.December, 31),
		Cycle: billing.CycleMonthly, Status: billing.ContractActive,
	}
	require.NoError(t, mem.SaveContract(ctx, c))
	require.NoError(t, mem.InsertBilling(ctx, baseBilling(c, 2024, 5, "1"))) // still draft

	ws, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	assert.Contains(t, warningCodes(ws), "PREVIOUS_UNCONFIRMED")
}

func TestValidate_AutoRenewedInfo(t *testing.T) {
	// GIVEN: A 2023 annual term auto-renewed into 2024
	// THEN: Billing June 2024 carries the auto-renewed info finding

	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{
		ID: "c-1", Start: datePtr(2023, time.January, 1), End: datePtr(2023, time.December, 31),
		AutoRenewal: true, Cycle: billing.CycleMonthly, Status: billing.ContractActive,
	}
	require.NoError(t, mem.SaveContract(ctx, c))

	ws, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	assert.Contains(t, warningCodes(ws), "AUTO_RENEWED")
}

func TestValidate_Idempotent(t *testing.T) {
	// Running validation twice against the same state yields identical output
	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	c := &billing.Contract{
		ID: "c-1", MonthlyAmount: dec("1"), Cycle: billing.CycleMonthly,
		Status: billing.ContractPeriodUndefined, Timing: "ask the account manager",
	}
	require.NoError(t, mem.SaveContract(ctx, c))

	first, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	second, err := v.ValidateBilling(ctx, baseBilling(c, 2024, 6, "1"), c)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWarningsForMonth_AnnotatesCompany(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	company := &billing.Company{Code: "A", Name: "Alpha Corp", Type: billing.CompanySales, IsActive: true}
	require.NoError(t, mem.SaveCompany(ctx, company))
	c := &billing.Contract{CompanyID: company.ID, ItemName: "x", Cycle: billing.CycleMonthly, Status: billing.ContractActive}
	require.NoError(t, mem.SaveContract(ctx, c))

	b := baseBilling(c, 2024, 6, "1")
	b.SetWarnings([]billing.Warning{{Code: "PERIOD_UNDEFINED", Severity: billing.SeverityWarning, Message: "m"}})
	require.NoError(t, mem.InsertBilling(ctx, b))

	ws, err := v.WarningsForMonth(ctx, 2024, 6)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "Alpha Corp", ws[0].CompanyName)
	assert.Equal(t, b.ID, ws[0].BillingID)
}

func TestMissingBillings(t *testing.T) {
	// GIVEN: Two active contracts, one already billed for the month
	// THEN: Only the unbilled one is reported missing

	ctx := context.Background()
	mem := store.NewMemory()
	v := billing.NewValidator(mem)

	billed := &billing.Contract{ItemName: "billed", Cycle: billing.CycleMonthly, Status: billing.ContractActive,
		Start: datePtr(2024, time.January, 1), End: datePtr(2025, time.December, 31)}
	missing := &billing.Contract{ItemName: "missing", Cycle: billing.CycleMonthly, Status: billing.ContractActive,
		Start: datePtr(2024, time.January, 1), End: datePtr(2025, time.December, 31)}
	expired := &billing.Contract{ItemName: "expired", Cycle: billing.CycleMonthly, Status: billing.ContractActive,
		Start: datePtr(2023, time.January, 1), End: datePtr(2023, time.December, 31)}
	require.NoError(t, mem.SaveContract(ctx, billed))
	require.NoError(t, mem.SaveContract(ctx, missing))
	require.NoError(t, mem.SaveContract(ctx, expired))
	require.NoError(t, mem.InsertBilling(ctx, baseBilling(billed, 2024, 6, "1")))

	got, err := v.MissingBillings(ctx, 2024, 6)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, missing.ID, got[0].ID)
}
