// Package calendar aligns dates quoted in the document corpus with the
// transactional dataset's actual timeline. The corpus narrates events against
// an assumed base year while the store's orders live some whole number of
// years later; every date literal derived from a document must be shifted by
// that fixed offset before it reaches SQL.
package calendar

import (
	"strings"
	"time"

	"github.com/sells-group/retail-analytics/internal/model"
)

// ComputeOffset returns the signed year offset between the store's earliest
// transaction year and the base year the corpus assumes.
func ComputeOffset(storeMinYear, assumedBaseYear int) int {
	return storeMinYear - assumedBaseYear
}

// ShiftDate adds offset years to d, preserving month and day. A Feb-29
// source date maps to Feb-28 when the shifted year is not a leap year.
func ShiftDate(d time.Time, offset int) time.Time {
	year := d.Year() + offset
	month := d.Month()
	day := d.Day()
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ShiftRange shifts both boundaries of a date range by offset years.
func ShiftRange(r model.DateRange, offset int) model.DateRange {
	return model.DateRange{
		Start: ShiftDate(r.Start, offset),
		End:   ShiftDate(r.End, offset),
	}
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// ResolveSeason maps a named season or quarter to its canonical inclusive
// date range in baseYear. Recognized names: the four seasons (northern
// hemisphere, "autumn" and "fall" both accepted) and quarters q1-q4.
// Winter is anchored to December of baseYear through February of the
// following year.
func ResolveSeason(name string, baseYear int) (model.DateRange, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "spring":
		return span(baseYear, time.March, 1, baseYear, time.May, 31), true
	case "summer":
		return span(baseYear, time.June, 1, baseYear, time.August, 31), true
	case "autumn", "fall":
		return span(baseYear, time.September, 1, baseYear, time.November, 30), true
	case "winter":
		return span(baseYear, time.December, 1, baseYear+1, time.February, lastFebDay(baseYear+1)), true
	case "q1":
		return span(baseYear, time.January, 1, baseYear, time.March, 31), true
	case "q2":
		return span(baseYear, time.April, 1, baseYear, time.June, 30), true
	case "q3":
		return span(baseYear, time.July, 1, baseYear, time.September, 30), true
	case "q4":
		return span(baseYear, time.October, 1, baseYear, time.December, 31), true
	}
	return model.DateRange{}, false
}

func span(y1 int, m1 time.Month, d1, y2 int, m2 time.Month, d2 int) model.DateRange {
	return model.DateRange{
		Start: time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC),
	}
}

func lastFebDay(year int) int {
	if isLeapYear(year) {
		return 29
	}
	return 28
}
