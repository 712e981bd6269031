package deadlines

import "time"

// nthWeekday returns the date of the nth occurrence of weekday in month/year
// (1-indexed; e.g. nthWeekday(2024, time.January, time.Monday, 3) is MLK Day).
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(weekday-first.Weekday()+7) % 7
	day := 1 + offset + (n-1)*7
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// lastWeekday returns the date of the last occurrence of weekday in month/year.
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	// First day of the following month, stepped back to find the last
	// weekday of this one.
	var nextMonth time.Month
	nextYear := year
	if month == time.December {
		nextMonth = time.January
		nextYear++
	} else {
		nextMonth = month + 1
	}
	last := time.Date(nextYear, nextMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for last.Weekday() != weekday {
		last = last.AddDate(0, 0, -1)
	}
	return last
}

// observed applies the Saturday->Friday, Sunday->Monday shift used for
// fixed-date federal holidays.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}

func dateOnly(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FederalHolidays returns the observed dates of the 11 federal holidays for
// year.
func FederalHolidays(year int) []time.Time {
	return []time.Time{
		observed(dateOnly(year, time.January, 1)),           // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3),      // MLK Day
		nthWeekday(year, time.February, time.Monday, 3),     // Presidents' Day
		lastWeekday(year, time.May, time.Monday),            // Memorial Day
		observed(dateOnly(year, time.June, 19)),             // Juneteenth
		observed(dateOnly(year, time.July, 4)),              // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),    // Labor Day
		nthWeekday(year, time.October, time.Monday, 2),      // Columbus Day
		observed(dateOnly(year, time.November, 11)),         // Veterans Day
		nthWeekday(year, time.November, time.Thursday, 4),   // Thanksgiving
		observed(dateOnly(year, time.December, 25)),         // Christmas
	}
}

// IsFederalHoliday reports whether d (compared by calendar date, ignoring
// time of day and location) is a federal holiday. It also checks the
// adjacent years since an observed-day shift can move a holiday across a
// year boundary (e.g. Jan 1 falling on a Saturday is observed the prior Dec 31).
func IsFederalHoliday(d time.Time) bool {
	y, m, day := d.Date()
	target := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	for _, year := range []int{y - 1, y, y + 1} {
		for _, h := range FederalHolidays(year) {
			if h.Equal(target) {
				return true
			}
		}
	}
	return false
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsBusinessDay reports whether d is neither a weekend day nor a federal
// holiday.
func IsBusinessDay(d time.Time) bool {
	return !IsWeekend(d) && !IsFederalHoliday(d)
}
