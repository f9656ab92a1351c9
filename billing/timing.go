package billing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// BILLING DATE SUGGESTER - Free-text issue timing
// =============================================================================

// TimingKind tags the parsed issue-timing variant so downstream code handles
// every case exhaustively instead of probing optional fields.
type TimingKind string

const (
	// TimingFixedDay bills on a fixed day-of-month (Day holds it).
	TimingFixedDay TimingKind = "fixed_day"
	// TimingMonthEnd bills on the last day of the month.
	TimingMonthEnd TimingKind = "month_end"
	// TimingReverse means the counterparty issues the invoice; no proposal.
	TimingReverse TimingKind = "reverse"
	// TimingManual means the description could not be resolved to a date
	// rule and a human must decide. Never guess.
	TimingManual TimingKind = "manual"
)

// TimingRule is the structured result of parsing an issue-timing description.
// Months carries an explicit billing-month list when the description encodes
// one (irregular contracts often specify timing and months together).
type TimingRule struct {
	Kind     TimingKind
	Day      int // valid only when Kind == TimingFixedDay
	Months   []int
	Parsed   bool // recognized text; false means nothing in the description resolved
	Original string
}

// reverseKeywords immediately classify the description as reverse-issued.
var reverseKeywords = []string{"reverse"}

// manualKeywords mean a human must pick the date.
var manualKeywords = []string{
	"on request", "upon request", "negotiat", "separately", "separate billing",
	"tbd", "to be confirmed", "contact", "case by case", "ask ",
}

// fixedPhrases are known month-relative phrases matched by substring, checked
// in order. Day 0 is the month-end sentinel. Numeric day-of-month ordinals
// ("15th", "21st") are matched only by the word-bounded ordinalDayRe; a
// substring match would let "5th" swallow "15th" and "25th".
var fixedPhrases = []struct {
	phrase string
	day    int
}{
	{"month-end", 0},
	{"month end", 0},
	{"end of month", 0},
	{"end of the month", 0},
	{"last day", 0},
	{"beginning of month", 1},
	{"start of month", 1},
}

var (
	// "3,6,9,12 month(s)" - a comma-separated list of bare numbers
	// followed by "month".
	monthListRe = regexp.MustCompile(`((?:\d{1,2}\s*,\s*)+\d{1,2})\s*month`)
	// individual "<N> month" occurrences ("billed in 6 month and 12 month").
	singleMonthRe = regexp.MustCompile(`(\d{1,2})\s*month`)
	// bare ordinal day ("every 27th").
	ordinalDayRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)\b`)
)

// ParseTiming parses a free-text issue-timing description. Precedence:
// reverse keywords, manual keywords, known fixed phrases, explicit month
// lists, "twice a year", bare ordinal days. Anything unresolvable degrades to
// TimingManual rather than a guessed date.
func ParseTiming(text string) TimingRule {
	rule := TimingRule{Kind: TimingManual, Original: text}

	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" {
		return rule
	}

	for _, kw := range reverseKeywords {
		if strings.Contains(trimmed, kw) {
			rule.Kind = TimingReverse
			rule.Parsed = true
			return rule
		}
	}

	for _, kw := range manualKeywords {
		if strings.Contains(trimmed, kw) {
			rule.Parsed = true
			return rule
		}
	}

	dayFound := false
	for _, p := range fixedPhrases {
		if strings.Contains(trimmed, p.phrase) {
			if p.day == 0 {
				rule.Kind = TimingMonthEnd
			} else {
				rule.Kind = TimingFixedDay
				rule.Day = p.day
			}
			rule.Parsed = true
			dayFound = true
			break
		}
	}

	if m := monthListRe.FindStringSubmatch(trimmed); m != nil {
		for _, part := range strings.Split(m[1], ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && n >= 1 && n <= 12 {
				rule.Months = append(rule.Months, n)
			}
		}
	} else {
		for _, m := range singleMonthRe.FindAllStringSubmatch(trimmed, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 12 {
				rule.Months = append(rule.Months, n)
			}
		}
	}

	if strings.Contains(trimmed, "twice a year") || strings.Contains(trimmed, "twice yearly") {
		if len(rule.Months) == 0 {
			rule.Months = []int{6, 12}
		}
		rule.Parsed = true
	}

	if !dayFound {
		if m := ordinalDayRe.FindStringSubmatch(trimmed); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 31 {
				rule.Kind = TimingFixedDay
				rule.Day = n
				rule.Parsed = true
				dayFound = true
			}
		}
	}

	if !rule.Parsed {
		rule.Kind = TimingManual
	} else if !dayFound && rule.Kind == TimingManual {
		// Months resolved but no day; the months feed the cycle resolver
		// while the date defaults to month-end at suggestion time.
		rule.Kind = TimingMonthEnd
	}

	return rule
}

// BillingDate resolves a timing rule to a concrete issue date in the given
// month, then rolls backward to the nearest preceding business day against
// the holiday calendar. Returns false for reverse and manual rules.
func BillingDate(year, month int, rule TimingRule, cal HolidayCalendar) (Date, bool) {
	var target Date
	switch rule.Kind {
	case TimingMonthEnd:
		target = MonthEnd(year, month)
	case TimingFixedDay:
		day := rule.Day
		if last := DaysInMonth(year, time.Month(month)); day > last {
			day = last
		}
		target = NewDate(year, time.Month(month), day)
	default:
		return Date{}, false
	}
	return PreviousBusinessDay(target, cal), true
}

// SuggestDate proposes an issue date for a contract's billing month.
// Reverse-issued contracts and manual-required timings return nil; a contract
// with no timing text at all defaults to month-end.
func SuggestDate(c *Contract, year, month int, cal HolidayCalendar) *Date {
	if c.ReverseBilling {
		return nil
	}

	rule := TimingRule{Kind: TimingMonthEnd}
	if strings.TrimSpace(c.Timing) != "" {
		rule = ParseTiming(c.Timing)
		if rule.Kind == TimingReverse || rule.Kind == TimingManual {
			return nil
		}
	}

	d, ok := BillingDate(year, month, rule, cal)
	if !ok {
		return nil
	}
	return &d
}
