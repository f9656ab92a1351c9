package billing

import "fmt"

// =============================================================================
// PERIOD EVALUATOR - Is the contract under an active obligation?
// =============================================================================

// PeriodStatus is the result of evaluating a contract's service obligation as
// of a reference date. When auto-renewal rolled the window forward, Renewals
// holds the number of whole renewal cycles applied and Start/End the
// rolled-forward window.
type PeriodStatus struct {
	Active   bool
	Start    *Date
	End      *Date
	Renewals int
	Message  string
}

// Renewed reports whether auto-renewal rolled the window forward.
func (s PeriodStatus) Renewed() bool { return s.Renewals > 0 }

// EvaluatePeriod decides whether a contract is under an active service
// obligation as of ref, rolling an auto-renewing term forward past its nominal
// end. Rules, in order:
//
//  1. Both dates absent: active, period undefined.
//  2. Start absent: active while ref <= end; past the end, auto-renewal rolls
//     the end forward (an undefined start never blocks billing).
//  3. End absent: active, open-ended.
//  4. ref within [start, end]: active.
//  5. ref past end, no auto-renewal: expired.
//  6. ref past end, auto-renewal: roll (start, end) forward by whole renewal
//     periods until end >= ref. Month arithmetic clamps the day-of-month to
//     the destination month on both endpoints of every step.
//  7. ref before start: not yet started.
//
// renewalMonths <= 0 falls back to DefaultRenewalPeriodMonths.
func EvaluatePeriod(start, end *Date, autoRenewal bool, renewalMonths int, ref Date) PeriodStatus {
	if renewalMonths <= 0 {
		renewalMonths = DefaultRenewalPeriodMonths
	}

	if start == nil && end == nil {
		return PeriodStatus{
			Active:  true,
			Message: "contract period undefined - billable but needs review",
		}
	}

	if start == nil {
		if ref.BeforeOrEqual(*end) {
			return PeriodStatus{Active: true, End: end, Message: "contract start undefined"}
		}
		if !autoRenewal {
			return PeriodStatus{Active: false, End: end, Message: "contract expired"}
		}
		rolledEnd := *end
		renewals := 0
		for rolledEnd.Before(ref) {
			rolledEnd = rolledEnd.AddMonths(renewalMonths)
			renewals++
		}
		return PeriodStatus{
			Active:   true,
			End:      &rolledEnd,
			Renewals: renewals,
			Message:  fmt.Sprintf("auto-renewed to [.., %s] (%d renewal(s))", rolledEnd, renewals),
		}
	}

	if end == nil {
		if autoRenewal {
			return PeriodStatus{
				Active:  true,
				Start:   start,
				Message: "contract end undefined - open-ended, treated as auto-renewing",
			}
		}
		return PeriodStatus{Active: true, Start: start, Message: "contract end undefined"}
	}

	if start.BeforeOrEqual(ref) && ref.BeforeOrEqual(*end) {
		return PeriodStatus{Active: true, Start: start, End: end, Message: "within contract term"}
	}

	if ref.After(*end) {
		if !autoRenewal {
			return PeriodStatus{Active: false, Start: start, End: end, Message: "contract expired"}
		}
		rolledStart, rolledEnd := *start, *end
		renewals := 0
		for rolledEnd.Before(ref) {
			rolledStart = rolledStart.AddMonths(renewalMonths)
			rolledEnd = rolledEnd.AddMonths(renewalMonths)
			renewals++
		}
		return PeriodStatus{
			Active:   true,
			Start:    &rolledStart,
			End:      &rolledEnd,
			Renewals: renewals,
			Message:  fmt.Sprintf("auto-renewed to [%s, %s] (%d renewal(s))", rolledStart, rolledEnd, renewals),
		}
	}

	return PeriodStatus{Active: false, Start: start, End: end, Message: "contract not yet started"}
}

// EvaluateContractPeriod evaluates a contract's own period fields as of ref.
func EvaluateContractPeriod(c *Contract, ref Date) PeriodStatus {
	return EvaluatePeriod(c.Start, c.End, c.AutoRenewal, c.RenewalPeriod(), ref)
}
