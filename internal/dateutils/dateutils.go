// Package dateutils parses and formats the dates users type on the command line.
package dateutils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutEuropean = "02.01.2006"
	DateLayoutSlashed  = "02/01/2006"
	DateLayoutFull     = "2006-01-02 15:04"
)

// CommonFormats is a list of standard formats to try when parsing dates
var CommonFormats = []string{
	time.RFC3339,
	DateLayoutFull,
	DateLayoutISO,
	DateLayoutEuropean,
	DateLayoutSlashed,
	"2 Jan 2006",
	"Jan 2, 2006",
}

var (
	spaces   = regexp.MustCompile(`\s+`)
	relative = regexp.MustCompile(`^([+-])(\d+)([dw])$`)
)

// ParseDate parses s relative to time.Now. See ParseDateAt.
func ParseDate(s string) (time.Time, error) {
	return ParseDateAt(s, time.Now())
}

// ParseDateAt parses an absolute date in one of CommonFormats, a keyword
// (today, yesterday, tomorrow) or an offset in days or weeks such as "+3d"
// or "-2w". Keywords and offsets keep the time of day of now. An empty
// string yields the zero time.
func ParseDateAt(s string, now time.Time) (time.Time, error) {
	s = CleanDateString(s)
	switch strings.ToLower(s) {
	case "":
		return time.Time{}, nil
	case "today", "now":
		return now, nil
	case "yesterday":
		return now.AddDate(0, 0, -1), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1), nil
	}

	if m := relative.FindStringSubmatch(strings.ToLower(s)); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
		}
		if m[3] == "w" {
			n *= 7
		}
		if m[1] == "-" {
			n = -n
		}
		return now.AddDate(0, 0, n), nil
	}

	for _, format := range CommonFormats {
		if t, err := time.ParseInLocation(format, s, now.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// FormatDate formats a time.Time value according to the specified layout
// If no layout is provided, DateLayoutISO is used. The zero time formats as "".
func FormatDate(date time.Time, layout string) string {
	if date.IsZero() {
		return ""
	}
	if layout == "" {
		layout = DateLayoutISO
	}
	return date.Format(layout)
}

// CleanDateString trims s and collapses inner whitespace.
func CleanDateString(dateStr string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// CompareDates compares two dates and returns:
//
//	-1 if date1 is before date2
//	 0 if date1 is equal to date2
//	 1 if date1 is after date2
func CompareDates(date1, date2 time.Time) int {
	date1 = time.Date(date1.Year(), date1.Month(), date1.Day(), 0, 0, 0, 0, time.UTC)
	date2 = time.Date(date2.Year(), date2.Month(), date2.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case date1.Before(date2):
		return -1
	case date1.After(date2):
		return 1
	default:
		return 0
	}
}

// IsOverdue reports whether a repayment date lies on an earlier day than now.
// A zero date is never overdue.
func IsOverdue(repayBy, now time.Time) bool {
	return !repayBy.IsZero() && CompareDates(repayBy, now) < 0
}
