package core

import (
	"errors"
	"strings"
	"time"
)

// PeriodKind distinguishes start-bound periods from calendar membership tests.
type PeriodKind int

const (
	PeriodAllTime PeriodKind = iota
	PeriodThisMonth
	PeriodThisYear
	PeriodToday
	PeriodThisWeek
)

var ErrUnknownPeriod = errors.New("unknown period")

var periodLabels = []struct {
	label string
	kind  PeriodKind
}{
	{"This month", PeriodThisMonth},
	{"This year", PeriodThisYear},
	{"All time", PeriodAllTime},
	{"Today", PeriodToday},
	{"This week", PeriodThisWeek},
}

// Period is a resolved time window. There is never an end bound: "now" is
// implicit for live queries.
type Period struct {
	Label string
	Kind  PeriodKind
	Start time.Time
	now   time.Time
}

// PeriodLabels lists the recognised labels in display order.
func PeriodLabels() []string {
	out := make([]string, len(periodLabels))
	for i, p := range periodLabels {
		out[i] = p.label
	}
	return out
}

// ResolvePeriod maps a label to a concrete window relative to now, using
// now's location as the calendar. Labels match case-insensitively; an empty
// label means "This month".
func ResolvePeriod(label string, now time.Time) (Period, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "This month"
	}
	for _, p := range periodLabels {
		if strings.EqualFold(p.label, label) {
			return newPeriod(p.label, p.kind, now), nil
		}
	}
	return Period{}, ErrUnknownPeriod
}

// AllTime is the unbounded period.
func AllTime(now time.Time) Period {
	return newPeriod("All time", PeriodAllTime, now)
}

func newPeriod(label string, kind PeriodKind, now time.Time) Period {
	loc := now.Location()
	y, m, d := now.Date()
	var start time.Time
	switch kind {
	case PeriodThisMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case PeriodThisYear:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	case PeriodToday:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PeriodThisWeek:
		wd := (int(now.Weekday()) + 6) % 7 // Monday = 0
		start = time.Date(y, m, d-wd, 0, 0, 0, 0, loc)
	default:
		start = time.Unix(0, 0).In(loc)
	}
	return Period{Label: label, Kind: kind, Start: start, now: now}
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	switch p.Kind {
	case PeriodToday:
		t = t.In(p.now.Location())
		ty, tm, td := t.Date()
		ny, nm, nd := p.now.Date()
		return ty == ny && tm == nm && td == nd
	case PeriodThisWeek:
		ty, tw := t.In(p.now.Location()).ISOWeek()
		ny, nw := p.now.ISOWeek()
		return ty == ny && tw == nw
	default:
		return !t.Before(p.Start)
	}
}
