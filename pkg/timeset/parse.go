package timeset

import (
	"strings"
	"time"

	"github.com/tempora-db/tempora/pkg/terrors"
)

// timestamp layouts accepted on input, tried in order. All are ISO-8601
// shapes; layouts without a zone are interpreted in the supplied location.
var tsLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. loc is the time-zone binding
// used for zone-less literals; nil means UTC.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, layout := range tsLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, terrors.New(terrors.InvalidInput, "cannot parse timestamp %q", s)
}

// FormatTimestamp renders a timestamp in the canonical output layout.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.999999999Z07:00")
}

// ParsePeriod parses a period literal such as "[2000-01-01, 2000-01-05)".
func ParsePeriod(s string, loc *time.Location) (Period, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Period{}, terrors.NewAt(terrors.InvalidInput, 0, "period literal too short")
	}
	var lowerInc, upperInc bool
	switch s[0] {
	case '[':
		lowerInc = true
	case '(':
		lowerInc = false
	default:
		return Period{}, terrors.NewAt(terrors.InvalidInput, 0, "period must open with '[' or '('")
	}
	switch s[len(s)-1] {
	case ']':
		upperInc = true
	case ')':
		upperInc = false
	default:
		return Period{}, terrors.NewAt(terrors.InvalidInput, len(s)-1, "period must close with ']' or ')'")
	}
	body := s[1 : len(s)-1]
	comma := strings.Index(body, ",")
	if comma < 0 {
		return Period{}, terrors.NewAt(terrors.InvalidInput, 1, "period needs two comma-separated bounds")
	}
	lower, err := ParseTimestamp(body[:comma], loc)
	if err != nil {
		return Period{}, err
	}
	upper, err := ParseTimestamp(body[comma+1:], loc)
	if err != nil {
		return Period{}, err
	}
	return NewPeriod(lower, upper, lowerInc, upperInc)
}

// ParseTimestampSet parses "{t1, t2, ...}".
func ParseTimestampSet(s string, loc *time.Location) (TimestampSet, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return TimestampSet{}, terrors.NewAt(terrors.InvalidInput, 0, "timestamp set must be brace-enclosed")
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	times := make([]time.Time, 0, len(parts))
	for _, p := range parts {
		t, err := ParseTimestamp(p, loc)
		if err != nil {
			return TimestampSet{}, err
		}
		times = append(times, t)
	}
	return NewTimestampSet(times), nil
}

// ParsePeriodSet parses "{[..., ...], (..., ...)}".
func ParsePeriodSet(s string, loc *time.Location) (PeriodSet, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return PeriodSet{}, terrors.NewAt(terrors.InvalidInput, 0, "period set must be brace-enclosed")
	}
	body := s[1 : len(s)-1]
	var periods []Period
	for len(body) > 0 {
		body = strings.TrimLeft(body, ", \t")
		if len(body) == 0 {
			break
		}
		end := strings.IndexAny(body, "])")
		if end < 0 {
			return PeriodSet{}, terrors.NewAt(terrors.InvalidInput, len(s)-len(body), "unterminated period in set")
		}
		p, err := ParsePeriod(body[:end+1], loc)
		if err != nil {
			return PeriodSet{}, err
		}
		periods = append(periods, p)
		body = body[end+1:]
	}
	return NewPeriodSet(periods)
}
