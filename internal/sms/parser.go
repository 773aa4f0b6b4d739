package sms

import (
	"regexp"
	"strconv"
	"strings"
)

// Operator messages arrive in mixed Arabic/Latin formats, e.g.
//
//	"تم استلام مبلغ 150000 ل.س. رقم العملية: 600123456789"
//
// Extraction is best-effort: a message with no recognizable reference is
// still stored and left for manual review.

var (
	refPattern = regexp.MustCompile(`(?:رقم\s*العملية|مرجع|Ref)[:\s\-]*([A-Za-z0-9\-]+)`)

	amountPattern = regexp.MustCompile(`(?:مبلغ|قيمة|قدره|Amount)[:\s\-]*([0-9][0-9.,]*)`)
)

// ExtractOpRef pulls the operation reference out of a message body.
// Returns "" when no pattern matches.
func ExtractOpRef(body string) string {
	m := refPattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ExtractAmount pulls the amount (SYP integer units) out of a message
// body. Thousands separators are tolerated; a fractional tail is
// dropped.
func ExtractAmount(body string) (int64, bool) {
	m := amountPattern.FindStringSubmatch(body)
	if m == nil {
		return 0, false
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FallbackRef mirrors the webhook convention: when nothing matches, the
// trimmed body (first 64 runes) doubles as the reference so an operator
// can still eyeball-match it.
func FallbackRef(body string) string {
	s := strings.TrimSpace(body)
	r := []rune(s)
	if len(r) > 64 {
		r = r[:64]
	}
	return string(r)
}
