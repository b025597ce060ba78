package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

var cjkDatePattern = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)

// StandardizeDate converts a vendor date string to ISO "YYYY-MM-DD". The
// localized 年月日 form is tried first, then ISO, slash and dot forms, then
// the ambiguous MM/DD/YYYY and DD/MM/YYYY orderings — the first parse that
// lands inside the configured plausible window wins. When every pattern
// fails the current date is returned; callers log that as a warning.
func (n *Normalizer) StandardizeDate(value string) string {
	if s, ok := n.ParseDate(value); ok {
		return s
	}
	return n.now().Format(isoDate)
}

// ParseDate is the fallible form of StandardizeDate: it reports whether any
// pattern produced a plausible date, letting callers decide how to record
// the fallback.
func (n *Normalizer) ParseDate(value string) (string, bool) {
	s := foldDigits(strings.TrimSpace(value))
	if t, ok := n.parseDate(s); ok {
		return t.Format(isoDate), true
	}
	return "", false
}

func (n *Normalizer) parseDate(s string) (time.Time, bool) {
	if m := cjkDatePattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if t, ok := validDate(year, month, day); ok && n.inRange(t) {
			return t, true
		}
	}

	layouts := []string{
		isoDate,
		"2006/01/02",
		"2006.01.02",
		"20060102",
		"01/02/2006", // US ordering
		"02/01/2006", // day-first ordering
		"01-02-2006",
		"02-01-2006",
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if n.inRange(t) {
			return t, true
		}
	}
	return time.Time{}, false
}

// validDate rejects impossible calendar dates such as February 30th, which
// time.Date would otherwise silently roll over.
func validDate(year, month, day int) (time.Time, bool) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func (n *Normalizer) inRange(t time.Time) bool {
	if !n.cfg.DateMin.IsZero() && t.Before(n.cfg.DateMin) {
		return false
	}
	if !n.cfg.DateMax.IsZero() && t.After(n.cfg.DateMax) {
		return false
	}
	return true
}

// IsValidDate reports whether s is a well-formed ISO date inside the
// configured plausible window.
func (n *Normalizer) IsValidDate(s string) bool {
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return false
	}
	return n.inRange(t)
}

// Today returns the current date in ISO form, using the injected clock.
func (n *Normalizer) Today() string {
	return n.now().Format(isoDate)
}

// DaysBetween returns b minus a in whole days for two ISO dates.
func DaysBetween(a, b string) (int, error) {
	ta, err := time.Parse(isoDate, a)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", a, err)
	}
	tb, err := time.Parse(isoDate, b)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", b, err)
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}
