package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/billing/store"
)

func newTestGenerator() (*billing.Generator, *store.Memory) {
	mem := store.NewMemory()
	return billing.NewGenerator(mem, zerolog.Nop()), mem
}

func activeContract(t *testing.T, ctx context.Context, mem *store.Memory, monthly string, cycle billing.BillingCycle) *billing.Contract {
	t.Helper()
	company := &billing.Company{Code: "C-" + monthly, Name: "Counterpart", Type: billing.CompanySales, IsActive: true}
	require.NoError(t, mem.SaveCompany(ctx, company))

	c := &billing.Contract{
		CompanyID:     company.ID,
		ItemName:      "maintenance",
		Start:         datePtr(2024, time.January, 1),
		End:           datePtr(2024, time.December, 31),
		MonthlyAmount: dec(monthly),
		Cycle:         cycle,
		Timing:        "month-end",
		Status:        billing.ContractActive,
	}
	require.NoError(t, mem.SaveContract(ctx, c))
	return c
}

func TestGenerateMonth_CreatesDraftWithAmounts(t *testing.T) {
	// GIVEN: One active monthly contract at 1M won
	// WHEN: Generating June 2024
	// THEN: One draft with VAT, total, profit, and a proposed issue date

	ctx := context.Background()
	gen, mem := newTestGenerator()
	activeContract(t, ctx, mem, "1000000", billing.CycleMonthly)

	drafts, report, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, 1, report.Created)
	assert.Empty(t, report.Failed)

	d := drafts[0]
	assert.Equal(t, billing.BillingDraft, d.Status)
	assert.True(t, d.FinalAmount.Equal(dec("1000000")))
	assert.True(t, d.VATAmount.Equal(dec("100000")))
	assert.True(t, d.TotalAmount.Equal(dec("1100000")))
	assert.True(t, d.Profit.Equal(dec("1000000")))
	require.NotNil(t, d.SuggestedDate)
	// 2024-06-30 is a Sunday; the proposal rolls back to Friday the 28th
	assert.Equal(t, billing.NewDate(2024, time.June, 28), *d.SuggestedDate)
	require.NotNil(t, d.SalesDate)
	assert.Equal(t, *d.SuggestedDate, *d.SalesDate)
}

func TestGenerateMonth_SkipsNonTargetMonthsAndExpired(t *testing.T) {
	ctx := context.Background()
	gen, mem := newTestGenerator()

	// Quarterly contract: May is not a target month
	activeContract(t, ctx, mem, "500000", billing.CycleQuarterly)

	// Expired contract without auto-renewal
	expired := activeContract(t, ctx, mem, "700000", billing.CycleMonthly)
	expired.End = datePtr(2024, time.March, 31)
	require.NoError(t, mem.SaveContract(ctx, expired))

	drafts, report, err := gen.GenerateMonth(ctx, 2024, 5)
	require.NoError(t, err)
	assert.Empty(t, drafts)
	assert.Equal(t, 2, report.SkippedIneligible)
}

func TestGenerateMonth_SecondRunSkipsBilledContracts(t *testing.T) {
	// GIVEN: A month already generated and saved
	// WHEN: Running generation again
	// THEN: Nothing new is created; the contract counts as a duplicate skip

	ctx := context.Background()
	gen, mem := newTestGenerator()
	activeContract(t, ctx, mem, "1000000", billing.CycleMonthly)

	drafts, _, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	_, err = gen.SaveBillings(ctx, drafts)
	require.NoError(t, err)

	drafts, report, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	assert.Empty(t, drafts)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.SkippedDuplicate)
}

func TestGenerateMonth_CancelledBillingFreesTheSlot(t *testing.T) {
	ctx := context.Background()
	gen, mem := newTestGenerator()
	activeContract(t, ctx, mem, "1000000", billing.CycleMonthly)

	drafts, _, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	_, err = gen.SaveBillings(ctx, drafts)
	require.NoError(t, err)

	_, err = gen.Cancel(ctx, drafts[0].ID)
	require.NoError(t, err)

	drafts, report, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, 1, report.Created)
}

func TestGenerateMonth_IrregularUsesTimingMonths(t *testing.T) {
	// GIVEN: An irregular contract whose timing text carries the month list
	// THEN: Only those months generate

	ctx := context.Background()
	gen, mem := newTestGenerator()
	c := activeContract(t, ctx, mem, "400000", billing.CycleIrregular)
	c.Timing = "billed in 4,10 months, month-end"
	require.NoError(t, mem.SaveContract(ctx, c))

	drafts, _, err := gen.GenerateMonth(ctx, 2024, 4)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	drafts, _, err = gen.GenerateMonth(ctx, 2024, 5)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestGenerateMonth_RecordFailureIsolation(t *testing.T) {
	// GIVEN: One healthy contract and one with a negative price
	// WHEN: Generating
	// THEN: The healthy contract is billed; the other lands in Failed

	ctx := context.Background()
	gen, mem := newTestGenerator()
	activeContract(t, ctx, mem, "1000000", billing.CycleMonthly)
	bad := activeContract(t, ctx, mem, "900000", billing.CycleMonthly)
	bad.MonthlyAmount = dec("-5")
	require.NoError(t, mem.SaveContract(ctx, bad))

	drafts, report, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, bad.ID, report.Failed[0].ContractID)
}

func TestLifecycle_Transitions(t *testing.T) {
	ctx := context.Background()
	gen, mem := newTestGenerator()
	activeContract(t, ctx, mem, "1000000", billing.CycleMonthly)

	drafts, _, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	_, err = gen.SaveBillings(ctx, drafts)
	require.NoError(t, err)
	id := drafts[0].ID

	// Locking a draft is not allowed
	_, err = gen.Lock(ctx, id, "reviewer")
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)

	b, err := gen.Confirm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, billing.BillingConfirmed, b.Status)

	// Confirming twice is not allowed
	_, err = gen.Confirm(ctx, id)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)

	b, err = gen.Lock(ctx, id, "reviewer")
	require.NoError(t, err)
	assert.Equal(t, billing.BillingLocked, b.Status)
	assert.Equal(t, "reviewer", b.LockedBy)
	require.NotNil(t, b.LockedAt)

	// Locked is terminal: cancel is rejected
	_, err = gen.Cancel(ctx, id)
	assert.ErrorIs(t, err, billing.ErrBillingLocked)
}

func TestOverride_RecomputesDerivedAmounts(t *testing.T) {
	// GIVEN: A saved draft computed at 1M
	// WHEN: Overriding the amount to 800k
	// THEN: VAT, total, and profit follow; the calculated amount is preserved

	ctx := context.Background()
	gen, mem := newTestGenerator()
	activeContract(t, ctx, mem, "1000000", billing.CycleMonthly)

	drafts, _, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	_, err = gen.SaveBillings(ctx, drafts)
	require.NoError(t, err)

	override := dec("800000")
	b, err := gen.Override(ctx, drafts[0].ID, billing.OverrideRequest{Amount: &override})
	require.NoError(t, err)
	assert.True(t, b.FinalAmount.Equal(dec("800000")))
	assert.True(t, b.VATAmount.Equal(dec("80000")))
	assert.True(t, b.TotalAmount.Equal(dec("880000")))
	assert.True(t, b.CalculatedAmount.Equal(dec("1000000")))
	require.NotNil(t, b.OverrideAmount)
}

func TestOverride_LockedInvoiceIsImmutable(t *testing.T) {
	ctx := context.Background()
	gen, mem := newTestGenerator()
	activeContract(t, ctx, mem, "1000000", billing.CycleMonthly)

	drafts, _, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	_, err = gen.SaveBillings(ctx, drafts)
	require.NoError(t, err)
	id := drafts[0].ID

	_, err = gen.Confirm(ctx, id)
	require.NoError(t, err)
	_, err = gen.Lock(ctx, id, "reviewer")
	require.NoError(t, err)

	override := dec("1")
	_, err = gen.Override(ctx, id, billing.OverrideRequest{Amount: &override})
	assert.ErrorIs(t, err, billing.ErrBillingLocked)

	b, err := mem.GetBilling(ctx, id)
	require.NoError(t, err)
	assert.True(t, b.FinalAmount.Equal(dec("1000000")), "locked amount must be unchanged")
}

func TestSaveBillings_DuplicateInsertIsSkippedNotFatal(t *testing.T) {
	ctx := context.Background()
	gen, mem := newTestGenerator()
	activeContract(t, ctx, mem, "1000000", billing.CycleMonthly)

	drafts, _, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	_, err = gen.SaveBillings(ctx, drafts)
	require.NoError(t, err)

	// Saving the same drafts again hits the uniqueness constraint
	for _, d := range drafts {
		d.ID = ""
	}
	report, err := gen.SaveBillings(ctx, drafts)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.SkippedDuplicate)
}

func TestCheckDuplicate(t *testing.T) {
	ctx := context.Background()
	gen, mem := newTestGenerator()
	c := activeContract(t, ctx, mem, "1000000", billing.CycleMonthly)

	existing, err := gen.CheckDuplicate(ctx, c.ID, 2024, 6)
	require.NoError(t, err)
	assert.Nil(t, existing)

	drafts, _, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	_, err = gen.SaveBillings(ctx, drafts)
	require.NoError(t, err)

	existing, err = gen.CheckDuplicate(ctx, c.ID, 2024, 6)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, drafts[0].ID, existing.ID)
}

func TestRefreshOutsourcing_EntriesOverrideDefault(t *testing.T) {
	// GIVEN: A contract with a 300k default subcontract cost
	// WHEN: Recording actual entries totalling 250k
	// THEN: The invoice switches to the entry sum and profit follows

	ctx := context.Background()
	gen, mem := newTestGenerator()
	c := activeContract(t, ctx, mem, "1000000", billing.CycleMonthly)
	c.OutsourcingAmount = dec("300000")
	require.NoError(t, mem.SaveContract(ctx, c))

	drafts, _, err := gen.GenerateMonth(ctx, 2024, 6)
	require.NoError(t, err)
	assert.True(t, drafts[0].OutsourcingAmount.Equal(dec("300000")))
	_, err = gen.SaveBillings(ctx, drafts)
	require.NoError(t, err)
	id := drafts[0].ID

	require.NoError(t, mem.AddEntry(ctx, &billing.OutsourcingEntry{BillingID: id, CompanyID: "v-1", Amount: dec("250000")}))

	b, err := gen.RefreshOutsourcing(ctx, id)
	require.NoError(t, err)
	assert.True(t, b.OutsourcingAmount.Equal(dec("250000")))
	assert.True(t, b.Profit.Equal(dec("750000")))
}
