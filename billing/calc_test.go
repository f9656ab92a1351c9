package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/billing/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestVATAndTotal_RoundsHalfUp(t *testing.T) {
	// GIVEN: A billing amount of 1,234,567 won
	// WHEN: Computing VAT at 10%
	// THEN: 123,456.7 rounds half-up to 123,457

	vat, total := billing.VATAndTotal(dec("1234567"))
	assert.True(t, vat.Equal(dec("123457")), "vat = %s", vat)
	assert.True(t, total.Equal(dec("1358024")), "total = %s", total)

	vat, total = billing.VATAndTotal(dec("1000000"))
	assert.True(t, vat.Equal(dec("100000")))
	assert.True(t, total.Equal(dec("1100000")))
}

func TestProfit_MayBeNegative(t *testing.T) {
	profit := billing.Profit(dec("500000"), dec("700000"))
	assert.True(t, profit.Equal(dec("-200000")))
	assert.True(t, profit.IsNegative())
}

func TestTimeline_EffectiveValue(t *testing.T) {
	// GIVEN: Amendments effective 2024-03-01 (1.2M) and 2024-07-01 (1.5M)
	// THEN: The value as of a month is the latest amendment on or before it

	tl := billing.NewTimeline([]billing.ContractHistory{
		{EffectiveDate: billing.NewDate(2024, time.July, 1), NewAmount: decPtr("1500000")},
		{EffectiveDate: billing.NewDate(2024, time.March, 1), NewAmount: decPtr("1200000")},
	})
	fallback := dec("1000000")

	assert.True(t, tl.EffectiveValue(billing.NewDate(2024, time.January, 1), fallback).Equal(dec("1000000")))
	assert.True(t, tl.EffectiveValue(billing.NewDate(2024, time.March, 1), fallback).Equal(dec("1200000")))
	assert.True(t, tl.EffectiveValue(billing.NewDate(2024, time.May, 1), fallback).Equal(dec("1200000")))
	assert.True(t, tl.EffectiveValue(billing.NewDate(2024, time.August, 1), fallback).Equal(dec("1500000")))
}

func TestTimeline_SkipsEntriesWithoutAmount(t *testing.T) {
	tl := billing.NewTimeline([]billing.ContractHistory{
		{EffectiveDate: billing.NewDate(2024, time.February, 1), NewAmount: decPtr("900000")},
		{EffectiveDate: billing.NewDate(2024, time.April, 1)}, // note-only amendment
	})
	got := tl.EffectiveValue(billing.NewDate(2024, time.May, 1), dec("0"))
	assert.True(t, got.Equal(dec("900000")))
}

func TestBillingAmount_AppliesAmendmentAndCoverMonths(t *testing.T) {
	// GIVEN: A quarterly contract amended from 1M to 1.2M effective 2024-03-01
	// WHEN: Computing March 2024 (3 covered months)
	// THEN: 1.2M x 3 = 3.6M

	ctx := context.Background()
	mem := store.NewMemory()
	calc := billing.NewCalculator(mem)

	contract := &billing.Contract{
		CompanyID:     "co-1",
		ItemName:      "server maintenance",
		MonthlyAmount: dec("1000000"),
		Cycle:         billing.CycleQuarterly,
		Status:        billing.ContractActive,
	}
	require.NoError(t, mem.SaveContract(ctx, contract))
	require.NoError(t, mem.AddHistory(ctx, &billing.ContractHistory{
		ContractID:    contract.ID,
		Type:          billing.ChangeAmount,
		EffectiveDate: billing.NewDate(2024, time.March, 1),
		NewAmount:     decPtr("1200000"),
	}))

	amount, cover, note, err := calc.BillingAmount(ctx, contract, 2024, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, cover)
	assert.True(t, amount.Equal(dec("3600000")), "amount = %s", amount)
	assert.Contains(t, note, "1200000")

	// December of the previous year still uses the original price
	amount, _, _, err = calc.BillingAmount(ctx, contract, 2023, 12, 0)
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("3000000")))
}

func TestBillingAmount_RejectsNegativePrice(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	calc := billing.NewCalculator(mem)

	contract := &billing.Contract{
		ID:            "c-neg",
		MonthlyAmount: dec("-1"),
		Cycle:         billing.CycleMonthly,
	}
	_, _, _, err := calc.BillingAmount(ctx, contract, 2024, 1, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrInvalidRecord)
}

func TestOutsourcingAmount_Precedence(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	calc := billing.NewCalculator(mem)

	// Explicit zero wins over everything
	c := &billing.Contract{ID: "c-1", OutsourcingZero: true, OutsourcingAmount: dec("300000")}
	amt, reason, err := calc.OutsourcingAmount(ctx, c, "", 2024, 5, 1)
	require.NoError(t, err)
	assert.True(t, amt.IsZero())
	assert.Equal(t, "explicit zero", reason)

	// Recorded entries override the contract default
	c = &billing.Contract{ID: "c-2", OutsourcingAmount: dec("300000")}
	require.NoError(t, mem.SaveContract(ctx, c))
	b := &billing.MonthlyBilling{ContractID: c.ID, Year: 2024, Month: 5,
		CalculatedAmount: dec("0"), FinalAmount: dec("0"), VATAmount: dec("0"),
		TotalAmount: dec("0"), OutsourcingAmount: dec("0"), Profit: dec("0"),
		Status: billing.BillingDraft}
	require.NoError(t, mem.InsertBilling(ctx, b))
	require.NoError(t, mem.AddEntry(ctx, &billing.OutsourcingEntry{BillingID: b.ID, CompanyID: "v-1", Amount: dec("120000")}))
	require.NoError(t, mem.AddEntry(ctx, &billing.OutsourcingEntry{BillingID: b.ID, CompanyID: "v-2", Amount: dec("80000")}))

	amt, reason, err = calc.OutsourcingAmount(ctx, c, b.ID, 2024, 5, 1)
	require.NoError(t, err)
	assert.True(t, amt.Equal(dec("200000")), "amt = %s", amt)
	assert.Contains(t, reason, "2 entries")

	// No entries: the default scales by covered months
	amt, _, err = calc.OutsourcingAmount(ctx, c, "", 2024, 5, 3)
	require.NoError(t, err)
	assert.True(t, amt.Equal(dec("900000")))

	// Nothing configured: zero
	c = &billing.Contract{ID: "c-3", OutsourcingAmount: dec("0")}
	amt, reason, err = calc.OutsourcingAmount(ctx, c, "", 2024, 5, 1)
	require.NoError(t, err)
	assert.True(t, amt.IsZero())
	assert.Equal(t, "no outsourcing", reason)
}

func TestMonthlySummary_GroupsByWarehouseAndSkipsCancelled(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	calc := billing.NewCalculator(mem)

	companyA := &billing.Company{Code: "A", Name: "Alpha", Type: billing.CompanySales, WarehouseCode: "W1", IsActive: true}
	companyB := &billing.Company{Code: "B", Name: "Beta", Type: billing.CompanySales, WarehouseCode: "W2", IsActive: true}
	require.NoError(t, mem.SaveCompany(ctx, companyA))
	require.NoError(t, mem.SaveCompany(ctx, companyB))

	contractA := &billing.Contract{CompanyID: companyA.ID, ItemName: "a", MonthlyAmount: dec("100"), Cycle: billing.CycleMonthly, Status: billing.ContractActive}
	contractB := &billing.Contract{CompanyID: companyB.ID, ItemName: "b", MonthlyAmount: dec("200"), Cycle: billing.CycleMonthly, Status: billing.ContractActive}
	require.NoError(t, mem.SaveContract(ctx, contractA))
	require.NoError(t, mem.SaveContract(ctx, contractB))

	insert := func(c *billing.Contract, final, outsourcing string, status billing.BillingStatus) {
		t.Helper()
		require.NoError(t, mem.InsertBilling(ctx, &billing.MonthlyBilling{
			ContractID: c.ID, Year: 2024, Month: 6, CoverMonths: 1,
			CalculatedAmount: dec(final), FinalAmount: dec(final),
			VATAmount: dec("0"), TotalAmount: dec(final),
			OutsourcingAmount: dec(outsourcing),
			Profit:            dec(final).Sub(dec(outsourcing)),
			Status:            status,
		}))
	}
	insert(contractA, "100000", "30000", billing.BillingConfirmed)
	insert(contractB, "200000", "0", billing.BillingDraft)

	// Cancelled rows may coexist with an active one for the same month.
	require.NoError(t, mem.InsertBilling(ctx, &billing.MonthlyBilling{
		ContractID: contractA.ID, Year: 2024, Month: 6, CoverMonths: 1,
		CalculatedAmount: dec("999999"), FinalAmount: dec("999999"),
		VATAmount: dec("0"), TotalAmount: dec("999999"),
		OutsourcingAmount: dec("0"), Profit: dec("999999"),
		Status: billing.BillingCancelled,
	}))

	summary, err := calc.MonthlySummary(ctx, 2024, 6, "")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.True(t, summary.Billing.Equal(dec("300000")), "billing = %s", summary.Billing)
	assert.True(t, summary.Profit.Equal(dec("270000")))
	assert.Len(t, summary.ByWarehouse, 2)
	assert.True(t, summary.ByWarehouse["W1"].Billing.Equal(dec("100000")))

	// Warehouse filter narrows the totals
	summary, err = calc.MonthlySummary(ctx, 2024, 6, "W2")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	assert.True(t, summary.Billing.Equal(dec("200000")))
}
