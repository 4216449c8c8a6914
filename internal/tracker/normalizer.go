// Package tracker provides date normalization for storefront update markers.
package tracker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrUnparseable is returned when a marker contains no recognizable date
var ErrUnparseable = errors.New("unparseable date")

// UnparseableError carries the raw marker that failed to normalize.
type UnparseableError struct {
	Raw string
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnparseable, e.Raw)
}

// Unwrap allows errors.Is(err, ErrUnparseable)
func (e *UnparseableError) Unwrap() error {
	return ErrUnparseable
}

// Date is a calendar date with day precision.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// monthName matches abbreviated and full English month names.
const monthName = `(Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:tember|t)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

// canonicalMonth maps the four-letter "Sept" to the abbreviation time.Parse knows.
func canonicalMonth(name string) string {
	if strings.EqualFold(name, "sept") {
		return name[:3]
	}
	return name
}

// datePattern excises a date-shaped substring and rebuilds it in a canonical
// spelling that its layouts can parse.
type datePattern struct {
	name      string
	re        *regexp.Regexp
	canonical func(groups []string) string
	layouts   []string
}

// datePatterns are tried in priority order; the first one matching anywhere
// in the input decides which layouts are attempted.
var datePatterns = []datePattern{
	{
		name: "month-day-year",
		re:   regexp.MustCompile(`(?i)\b` + monthName + `\.?\s+(\d{1,2}),?\s+(\d{4})\b`),
		canonical: func(g []string) string {
			return fmt.Sprintf("%s %s, %s", canonicalMonth(g[1]), g[2], g[3])
		},
		layouts: []string{"Jan 2, 2006", "January 2, 2006"},
	},
	{
		name: "day-month-year",
		re:   regexp.MustCompile(`(?i)\b(\d{1,2})\s+` + monthName + `\.?,?\s+(\d{4})\b`),
		canonical: func(g []string) string {
			return fmt.Sprintf("%s %s %s", g[1], canonicalMonth(g[2]), g[3])
		},
		layouts: []string{"2 Jan 2006", "2 January 2006"},
	},
	{
		name: "month-year",
		re:   regexp.MustCompile(`(?i)\b` + monthName + `\.?,?\s+(\d{4})\b`),
		canonical: func(g []string) string {
			return fmt.Sprintf("%s %s", canonicalMonth(g[1]), g[2])
		},
		layouts: []string{"Jan 2006", "January 2006"},
	},
	{
		name: "numeric",
		re:   regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
		canonical: func(g []string) string {
			return fmt.Sprintf("%s/%s/%s", g[1], g[2], g[3])
		},
		layouts: []string{"1/2/2006"},
	},
	{
		name: "iso",
		re:   regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})`),
		canonical: func(g []string) string {
			return fmt.Sprintf("%s-%s-%s", g[1], g[2], g[3])
		},
		layouts: []string{"2006-01-02"},
	},
}

// dateShape matches any substring one of the date patterns would accept.
var dateShape = func() *regexp.Regexp {
	parts := make([]string, 0, len(datePatterns))
	for _, p := range datePatterns {
		parts = append(parts, "(?:"+p.re.String()+")")
	}
	return regexp.MustCompile(strings.Join(parts, "|"))
}()

// Normalize parses a raw marker into a Date.
// The marker may carry surrounding text; only the first date-shaped substring
// of the highest priority pattern is considered.
func Normalize(raw string) (Date, error) {
	for _, p := range datePatterns {
		groups := p.re.FindStringSubmatch(raw)
		if groups == nil {
			continue
		}

		candidate := p.canonical(groups)
		for _, layout := range p.layouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return DateOf(t), nil
			}
		}
		return Date{}, &UnparseableError{Raw: raw}
	}
	return Date{}, &UnparseableError{Raw: raw}
}

// FindDate returns the leftmost date-shaped substring of text.
func FindDate(text string) (string, bool) {
	match := dateShape.FindString(text)
	return match, match != ""
}
