package digest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Day argument parsing for manual digest runs. Accepts relative days
// ("today", "yesterday"), weekday names ("monday", "tue"), month-day
// forms ("dec 02", "december 2"), ISO dates ("2025-12-02"), and short
// numeric dates ("12/02", "12-02"). Weekdays and month-day forms resolve
// to the most recent past occurrence.

var dayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	monthDayRe = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})$`)
	isoDateRe  = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	shortRe    = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})$`)
)

// ParseDayArg resolves a day argument to local midnight of that day in
// loc, relative to now.
func ParseDayArg(arg string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := midnight(local)
	lowered := strings.ToLower(strings.TrimSpace(arg))

	switch lowered {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	// Weekday name: most recent past occurrence; a weekday matching
	// today means last week's.
	if wd, ok := dayNames[lowered]; ok {
		daysAgo := (int(local.Weekday()) - int(wd) + 7) % 7
		if daysAgo == 0 {
			daysAgo = 7
		}
		return today.AddDate(0, 0, -daysAgo), nil
	}

	// "dec 02" / "december 2".
	if m := monthDayRe.FindStringSubmatch(lowered); m != nil {
		if month, ok := monthNames[m[1]]; ok {
			day, _ := strconv.Atoi(m[2])
			target, err := validDate(local.Year(), month, day, loc)
			if err != nil {
				return time.Time{}, err
			}
			if target.After(today) {
				target, err = validDate(local.Year()-1, month, day, loc)
				if err != nil {
					return time.Time{}, err
				}
			}
			return target, nil
		}
	}

	// "2025-12-02".
	if isoDateRe.MatchString(lowered) {
		parts := strings.SplitN(lowered, "-", 3)
		year, _ := strconv.Atoi(parts[0])
		month, _ := strconv.Atoi(parts[1])
		day, _ := strconv.Atoi(parts[2])
		return validDate(year, time.Month(month), day, loc)
	}

	// "12/02" or "12-02".
	if m := shortRe.FindStringSubmatch(lowered); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		target, err := validDate(local.Year(), time.Month(month), day, loc)
		if err != nil {
			return time.Time{}, err
		}
		if target.After(today) {
			return validDate(local.Year()-1, time.Month(month), day, loc)
		}
		return target, nil
	}

	return time.Time{}, fmt.Errorf("unrecognized day argument: %q", arg)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// validDate builds a date and rejects normalized overflows like feb 30.
func validDate(year int, month time.Month, day int, loc *time.Location) (time.Time, error) {
	if month < time.January || month > time.December {
		return time.Time{}, fmt.Errorf("invalid month: %d", month)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date: %d %s %d", year, month, day)
	}
	return t, nil
}
