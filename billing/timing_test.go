package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/billing"
)

func TestParseTiming_FixedPhrases(t *testing.T) {
	rule := billing.ParseTiming("month-end billing")
	assert.Equal(t, billing.TimingMonthEnd, rule.Kind)
	assert.True(t, rule.Parsed)

	rule = billing.ParseTiming("issued on the 10th")
	assert.Equal(t, billing.TimingFixedDay, rule.Kind)
	assert.Equal(t, 10, rule.Day)

	rule = billing.ParseTiming("every 27th")
	assert.Equal(t, billing.TimingFixedDay, rule.Kind)
	assert.Equal(t, 27, rule.Day)
}

func TestParseTiming_PhraseTable(t *testing.T) {
	// GIVEN: Every known phrase and a spread of ordinal days
	// THEN: Each resolves to its own day, never a shorter ordinal's

	tests := []struct {
		text string
		kind billing.TimingKind
		day  int
	}{
		{"month-end", billing.TimingMonthEnd, 0},
		{"month end", billing.TimingMonthEnd, 0},
		{"end of month", billing.TimingMonthEnd, 0},
		{"end of the month", billing.TimingMonthEnd, 0},
		{"last day of each month", billing.TimingMonthEnd, 0},
		{"beginning of month", billing.TimingFixedDay, 1},
		{"start of month", billing.TimingFixedDay, 1},
		{"issued on the 1st", billing.TimingFixedDay, 1},
		{"issued on the 2nd", billing.TimingFixedDay, 2},
		{"issued on the 3rd", billing.TimingFixedDay, 3},
		{"issued on the 5th", billing.TimingFixedDay, 5},
		{"issued on the 10th", billing.TimingFixedDay, 10},
		{"issued on the 15th", billing.TimingFixedDay, 15},
		{"issued on the 20th", billing.TimingFixedDay, 20},
		{"issued on the 21st", billing.TimingFixedDay, 21},
		{"issued on the 25th", billing.TimingFixedDay, 25},
		{"issued on the 31st", billing.TimingFixedDay, 31},
	}
	for _, tc := range tests {
		rule := billing.ParseTiming(tc.text)
		assert.Equal(t, tc.kind, rule.Kind, tc.text)
		assert.Equal(t, tc.day, rule.Day, tc.text)
		assert.True(t, rule.Parsed, tc.text)
	}
}

func TestParseTiming_ReverseAndManual(t *testing.T) {
	rule := billing.ParseTiming("reverse issued by customer")
	assert.Equal(t, billing.TimingReverse, rule.Kind)

	// Recognized manual keywords parse as manual
	rule = billing.ParseTiming("billed separately upon request")
	assert.Equal(t, billing.TimingManual, rule.Kind)
	assert.True(t, rule.Parsed)

	// Unresolvable text degrades to manual, never a guessed date
	rule = billing.ParseTiming("whenever the project wraps up")
	assert.Equal(t, billing.TimingManual, rule.Kind)
	assert.False(t, rule.Parsed)
}

func TestParseTiming_MonthLists(t *testing.T) {
	// GIVEN: A description with an explicit month list
	// THEN: The months feed the cycle resolver

	rule := billing.ParseTiming("billed in 3,6,9,12 months, month-end")
	assert.Equal(t, []int{3, 6, 9, 12}, rule.Months)
	assert.Equal(t, billing.TimingMonthEnd, rule.Kind)

	rule = billing.ParseTiming("twice a year, month end")
	assert.Equal(t, billing.TimingMonthEnd, rule.Kind)
	assert.True(t, rule.Parsed)

	// "twice a year" with no explicit months defaults to June and December
	rule = billing.ParseTiming("twice a year")
	assert.Equal(t, []int{6, 12}, rule.Months)
}

func TestBillingDate_RollsToPreviousBusinessDay(t *testing.T) {
	// GIVEN: Month-end falls on Saturday 2024-06-30 is a Sunday
	// WHEN: Resolving the issue date
	// THEN: It rolls back to Friday 2024-06-28

	rule := billing.TimingRule{Kind: billing.TimingMonthEnd}
	d, ok := billing.BillingDate(2024, 6, rule, nil)
	require.True(t, ok)
	assert.Equal(t, billing.NewDate(2024, time.June, 28), d)
}

func TestBillingDate_FixedDayClampsShortMonths(t *testing.T) {
	// Day 31 in April clamps to the 30th before business-day rolling
	rule := billing.TimingRule{Kind: billing.TimingFixedDay, Day: 31}
	d, ok := billing.BillingDate(2024, 4, rule, nil)
	require.True(t, ok)
	assert.Equal(t, billing.NewDate(2024, time.April, 30), d)
}

func TestBillingDate_HolidayRoll(t *testing.T) {
	// GIVEN: 2024-01-01 (Monday) is a holiday
	// THEN: A fixed day-1 rule rolls back past the weekend to 2023-12-29

	cal := billing.NewHolidaySet(billing.NewDate(2024, time.January, 1))
	rule := billing.TimingRule{Kind: billing.TimingFixedDay, Day: 1}
	d, ok := billing.BillingDate(2024, 1, rule, cal)
	require.True(t, ok)
	assert.Equal(t, billing.NewDate(2023, time.December, 29), d)
}

func TestSuggestDate(t *testing.T) {
	// Reverse-issued contracts never get a proposal
	c := &billing.Contract{ReverseBilling: true, Timing: "month-end"}
	assert.Nil(t, billing.SuggestDate(c, 2024, 5, nil))

	// Manual timing returns nil
	c = &billing.Contract{Timing: "on request"}
	assert.Nil(t, billing.SuggestDate(c, 2024, 5, nil))

	// Empty timing defaults to month-end
	c = &billing.Contract{}
	d := billing.SuggestDate(c, 2024, 5, nil)
	require.NotNil(t, d)
	assert.Equal(t, billing.NewDate(2024, time.May, 31), *d)
}
