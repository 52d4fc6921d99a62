package reconciliation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// dueDateLayouts are the date formats accepted from the order-management system
var dueDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDueDate parses a due date in any accepted layout
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, NewTranslationError("due_date", ErrInvalidDueDate, "due date is empty")
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, NewTranslationError("due_date", ErrInvalidDueDate, fmt.Sprintf("unparseable due date %q", raw))
}

// PaymentTermDays converts a due date into days until due, counted from now
// and clamped at zero. A due date before the issue date is invalid.
func PaymentTermDays(due string, issued, now time.Time) (int, error) {
	dueAt, err := ParseDueDate(due)
	if err != nil {
		return 0, err
	}
	if !issued.IsZero() && truncateDay(dueAt).Before(truncateDay(issued)) {
		return 0, NewTranslationError("due_date", ErrInvalidDueDate,
			fmt.Sprintf("due date %s is before issue date %s", dueAt.Format("2006-01-02"), issued.Format("2006-01-02")))
	}

	days := truncateDay(dueAt).Sub(truncateDay(now)).Hours() / 24
	return int(math.Max(0, math.Round(days))), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeName folds case and Unicode composition so counterparty names
// typed differently in each system compare equal.
func NormalizeName(name string) string {
	folded := cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
	return strings.Join(strings.Fields(folded), " ")
}

// SameName reports whether two counterparty names match after normalisation
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// DisplayName trims and title-cases a name for a newly created relation
func DisplayName(name string) string {
	return cases.Title(language.Und, cases.NoLower).String(strings.Join(strings.Fields(name), " "))
}
