package domain

import (
	"strings"
	"time"
)

// StatusFilter narrows link and follow-up lists.
type StatusFilter string

const (
	StatusAll      StatusFilter = "all"
	StatusActive   StatusFilter = "active"
	StatusInactive StatusFilter = "inactive"
)

// ParseStatusFilter falls back to StatusAll on anything unknown.
func ParseStatusFilter(s string) StatusFilter {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive
	case StatusInactive:
		return StatusInactive
	default:
		return StatusAll
	}
}

// UserStatus is the target of a bulk status change.
type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserBlocked UserStatus = "blocked"
)

// ParseUserStatus returns false for anything but active/blocked. There is no
// default: the admin must pick one explicitly.
func ParseUserStatus(s string) (UserStatus, bool) {
	switch UserStatus(strings.ToLower(strings.TrimSpace(s))) {
	case UserActive:
		return UserActive, true
	case UserBlocked:
		return UserBlocked, true
	default:
		return "", false
	}
}

// Period is the time window of the dashboard overview.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Periods in the order they are offered.
var Periods = []Period{PeriodAll, PeriodToday, PeriodWeek, PeriodMonth, PeriodYear}

func ParsePeriod(s string) Period {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Periods {
		if p == known {
			return p
		}
	}
	return PeriodAll
}

// DateRange is the optional from/to filter of the link details screen.
// Dates use the HTML date input layout (2006-01-02); empty means open.
type DateRange struct {
	From string
	To   string
}

const dateLayout = "2006-01-02"

// ParseDateRange drops malformed bounds and swaps reversed ones.
func ParseDateRange(from, to string) DateRange {
	f := normaliseDate(from)
	t := normaliseDate(to)
	if f != "" && t != "" && f > t {
		f, t = t, f
	}
	return DateRange{From: f, To: t}
}

func normaliseDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return ""
	}
	return d.Format(dateLayout)
}
