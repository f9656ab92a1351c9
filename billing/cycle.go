package billing

// =============================================================================
// CYCLE RESOLVER - Which months does a billing cycle produce an invoice?
// =============================================================================

// cycleTargetMonths maps each cycle to the calendar months it bills on.
// Irregular cycles have no fixed months; they bill only on the contract's
// explicit month list.
var cycleTargetMonths = map[BillingCycle][]int{
	CycleMonthly:    {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	CycleQuarterly:  {3, 6, 9, 12},
	CycleSemiannual: {6, 12},
	CycleBiannual:   {6, 12},
	CycleIrregular:  {},
}

// cycleCoverMonths maps each cycle to the number of calendar months one
// invoice's amount represents.
var cycleCoverMonths = map[BillingCycle]int{
	CycleMonthly:    1,
	CycleQuarterly:  3,
	CycleSemiannual: 6,
	CycleBiannual:   6,
	CycleIrregular:  1,
}

// IsTargetMonth reports whether the given calendar month is one on which the
// cycle produces an invoice. For irregular cycles only the contract-supplied
// explicit month list counts; with no list the contract is billed manually.
func IsTargetMonth(cycle BillingCycle, year, month int, customMonths []int) bool {
	if cycle == CycleIrregular {
		for _, m := range customMonths {
			if m == month {
				return true
			}
		}
		return false
	}
	for _, m := range cycleTargetMonths[cycle] {
		if m == month {
			return true
		}
	}
	return false
}

// CoverMonths returns the covered-month count for a cycle. Unknown cycles
// default to 1.
func CoverMonths(cycle BillingCycle) int {
	if n, ok := cycleCoverMonths[cycle]; ok {
		return n
	}
	return 1
}
