package stats

import (
	"fmt"
	"time"
)

// Named shortcuts accepted wherever a date argument is.
const (
	ShortcutToday     = "today"
	ShortcutYesterday = "yesterday"
	ShortcutLastWeek  = "last-week"
	ShortcutLastMonth = "last-month"
)

// ResolveFrom turns a --from argument into an inclusive lower bound:
// the start of the named day, resolved against now.
func ResolveFrom(arg string, now time.Time) (time.Time, error) {
	day, err := resolveDay(arg, now)
	if err != nil {
		return time.Time{}, err
	}
	return day, nil
}

// ResolveTo turns a --to argument into an exclusive upper bound: the
// midnight following the named day, so "--to yesterday" covers all of
// yesterday.
func ResolveTo(arg string, now time.Time) (time.Time, error) {
	day, err := resolveDay(arg, now)
	if err != nil {
		return time.Time{}, err
	}
	return day.AddDate(0, 0, 1), nil
}

// resolveDay maps a shortcut or ISO date (YYYY-MM-DD) to midnight UTC of
// that day.
func resolveDay(arg string, now time.Time) (time.Time, error) {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch arg {
	case ShortcutToday:
		return midnight, nil
	case ShortcutYesterday:
		return midnight.AddDate(0, 0, -1), nil
	case ShortcutLastWeek:
		return midnight.AddDate(0, 0, -7), nil
	case ShortcutLastMonth:
		return midnight.AddDate(0, 0, -30), nil
	}

	day, err := time.Parse("2006-01-02", arg)
	if err != nil {
		return time.Time{}, fmt.Errorf("stats: invalid date %q (want YYYY-MM-DD or today/yesterday/last-week/last-month)", arg)
	}
	return day, nil
}
