package model

import (
	"strings"
	"time"
)

type CodeStatus string

const (
	CodeStatusAvailable CodeStatus = "available"
	CodeStatusSold      CodeStatus = "sold"
	CodeStatusExpired   CodeStatus = "expired"
)

// RechargeCode is one pre-generated code in the inventory. The canonical code
// string is unique across the whole inventory, not just within a plan.
type RechargeCode struct {
	ID        string
	Code      string // canonical form, see NormalizeCode
	Value     int64  // minor currency units, copied from the plan at import
	Status    CodeStatus
	PlanID    string
	AppName   string // denormalized product label, carried for display/audit
	CreatedAt time.Time
	SoldAt    *time.Time // nil until allocated
	ExpiresAt time.Time
}

const codeBlockSize = 4

// NormalizeCode turns raw pasted text into the canonical code representation:
// every non-alphanumeric character is stripped, the remainder is grouped into
// blocks of four joined by single spaces, and the result is upper-cased.
// It is pure and idempotent; an input with no alphanumerics yields "".
func NormalizeCode(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		}
	}
	stripped := b.String()
	if stripped == "" {
		return ""
	}
	var out strings.Builder
	out.Grow(len(stripped) + len(stripped)/codeBlockSize)
	for i := 0; i < len(stripped); i += codeBlockSize {
		if i > 0 {
			out.WriteByte(' ')
		}
		end := i + codeBlockSize
		if end > len(stripped) {
			end = len(stripped)
		}
		out.WriteString(stripped[i:end])
	}
	return out.String()
}

// ParseCodeBlock splits a pasted block of codes into one raw code per
// non-blank line. Lines that normalize to "" are dropped by the importer,
// not here.
func ParseCodeBlock(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
