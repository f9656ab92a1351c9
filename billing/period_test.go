package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/billing-engine/billing"
)

func datePtr(year int, month time.Month, day int) *billing.Date {
	d := billing.NewDate(year, month, day)
	return &d
}

func TestEvaluatePeriod_UndefinedPeriodIsBillable(t *testing.T) {
	// GIVEN: A contract with neither start nor end date
	// WHEN: Evaluating any reference date
	// THEN: The contract is active with a review message

	status := billing.EvaluatePeriod(nil, nil, false, 0, billing.NewDate(2026, time.August, 1))
	assert.True(t, status.Active)
	assert.Contains(t, status.Message, "undefined")
	assert.False(t, status.Renewed())
}

func TestEvaluatePeriod_WithinTerm(t *testing.T) {
	start := datePtr(2024, time.January, 1)
	end := datePtr(2024, time.December, 31)

	status := billing.EvaluatePeriod(start, end, false, 0, billing.NewDate(2024, time.June, 15))
	assert.True(t, status.Active)
	assert.Equal(t, 0, status.Renewals)
}

func TestEvaluatePeriod_ExpiredWithoutAutoRenewal(t *testing.T) {
	start := datePtr(2023, time.January, 1)
	end := datePtr(2023, time.December, 31)

	status := billing.EvaluatePeriod(start, end, false, 0, billing.NewDate(2024, time.June, 15))
	assert.False(t, status.Active)
	assert.Contains(t, status.Message, "expired")
}

func TestEvaluatePeriod_AutoRenewalRollsWindowForward(t *testing.T) {
	// GIVEN: A 2023 annual contract with auto-renewal
	// WHEN: Evaluating mid-2024
	// THEN: The window rolls to [2024-01-01, 2024-12-31] with one renewal

	start := datePtr(2023, time.January, 1)
	end := datePtr(2023, time.December, 31)

	status := billing.EvaluatePeriod(start, end, true, 12, billing.NewDate(2024, time.June, 15))
	assert.True(t, status.Active)
	assert.Equal(t, 1, status.Renewals)
	assert.Equal(t, billing.NewDate(2024, time.January, 1), *status.Start)
	assert.Equal(t, billing.NewDate(2024, time.December, 31), *status.End)
}

func TestEvaluatePeriod_MultipleRenewalsAndClamping(t *testing.T) {
	// GIVEN: A contract ending 2024-02-29 with 12-month auto-renewal
	// WHEN: Evaluating in 2026
	// THEN: Each roll clamps Feb 29 to Feb 28 in non-leap years

	start := datePtr(2023, time.March, 1)
	end := datePtr(2024, time.February, 29)

	status := billing.EvaluatePeriod(start, end, true, 12, billing.NewDate(2026, time.January, 15))
	assert.True(t, status.Active)
	assert.Equal(t, 2, status.Renewals)
	assert.Equal(t, billing.NewDate(2026, time.February, 28), *status.End)
}

func TestEvaluatePeriod_NotYetStarted(t *testing.T) {
	start := datePtr(2027, time.January, 1)
	end := datePtr(2027, time.December, 31)

	status := billing.EvaluatePeriod(start, end, true, 12, billing.NewDate(2026, time.August, 1))
	assert.False(t, status.Active)
	assert.Contains(t, status.Message, "not yet started")
}

func TestEvaluatePeriod_MissingStartUsesEndOnly(t *testing.T) {
	// GIVEN: A contract with an end date but no start date
	// THEN: It is active through the end, and auto-renewal rolls past it

	end := datePtr(2024, time.June, 30)

	status := billing.EvaluatePeriod(nil, end, false, 0, billing.NewDate(2024, time.May, 1))
	assert.True(t, status.Active)

	status = billing.EvaluatePeriod(nil, end, false, 0, billing.NewDate(2024, time.August, 1))
	assert.False(t, status.Active)

	status = billing.EvaluatePeriod(nil, end, true, 12, billing.NewDate(2024, time.August, 1))
	assert.True(t, status.Active)
	assert.Equal(t, 1, status.Renewals)
}

func TestEvaluatePeriod_OpenEnded(t *testing.T) {
	start := datePtr(2020, time.January, 1)

	status := billing.EvaluatePeriod(start, nil, false, 0, billing.NewDate(2026, time.August, 1))
	assert.True(t, status.Active)
}

func TestEvaluatePeriod_RenewalPeriodFallback(t *testing.T) {
	// GIVEN: Auto-renewal with no explicit renewal period
	// THEN: The 12-month default applies

	start := datePtr(2023, time.January, 1)
	end := datePtr(2023, time.December, 31)

	status := billing.EvaluatePeriod(start, end, true, 0, billing.NewDate(2024, time.March, 1))
	assert.Equal(t, billing.NewDate(2024, time.December, 31), *status.End)
}
