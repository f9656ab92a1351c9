package billing

import (
	"regexp"
	"strings"
)

// =============================================================================
// NOTES PARSER - Structured billing rules from free-text contract notes
// =============================================================================

// NoteRules holds the structured rules extracted from a contract's free-text
// notes. Anything that cannot be confidently extracted stays unset; the rules
// only ever add review flags, never change amounts or dates.
type NoteRules struct {
	RequiresPO         bool
	PONumber           string
	RequiresAttachment bool
	AttachmentNote     string
	EmailRecipients    []string
	ReverseBilling     bool
}

var (
	// A PO number must contain a digit; plain words after "PO" are prose.
	poNumberRe   = regexp.MustCompile(`(?i)\bPO[:#\s-]*([A-Za-z0-9-]*\d[A-Za-z0-9-]*)`)
	attachNoteRe = regexp.MustCompile(`(?i)attach(?:ment)?\w*[:\s]+(.+?)(?:[,.]|$)`)
	emailRe      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	poWordRe     = regexp.MustCompile(`(?i)\bPO\b`)
)

// ParseNotes extracts PO, attachment, email, and reverse-issue rules from a
// contract's notes text.
func ParseNotes(notes string) NoteRules {
	var rules NoteRules

	text := strings.TrimSpace(notes)
	if text == "" {
		return rules
	}

	if poWordRe.MatchString(text) {
		rules.RequiresPO = true
		if m := poNumberRe.FindStringSubmatch(text); m != nil {
			rules.PONumber = m[1]
		}
	}

	if strings.Contains(strings.ToLower(text), "attach") {
		rules.RequiresAttachment = true
		if m := attachNoteRe.FindStringSubmatch(text); m != nil {
			rules.AttachmentNote = strings.TrimSpace(m[1])
		}
	}

	rules.EmailRecipients = emailRe.FindAllString(text, -1)

	if strings.Contains(strings.ToLower(text), "reverse") {
		rules.ReverseBilling = true
	}

	return rules
}
