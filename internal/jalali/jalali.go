// Package jalali implements Persian (Jalali) civil calendar arithmetic.
//
// The conversion between instants and Jalali dates embeds the break-year
// intercalation table used by the common jalaali algorithm instead of
// relying on locale-aware formatting facilities, so results are identical
// on every platform and can be unit-tested against reference dates.
package jalali

import (
	"fmt"
	"time"
)

// Date is a civil date in the Jalali calendar.
// Month is in [1,12]; Day is in [1, MonthLength(Year, Month)].
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// monthNames are the twelve Jalali month names, Farvardin to Esfand.
var monthNames = [12]string{
	"فروردین", "اردیبهشت", "خرداد", "تیر", "مرداد", "شهریور",
	"مهر", "آبان", "آذر", "دی", "بهمن", "اسفند",
}

// breaks is the list of years (since the epoch of the calendar) in which
// the length of the 33-year intercalation cycle changes.
var breaks = []int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210,
	1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// MonthName returns the Persian name of a month, or "" when the month is
// out of the [1,12] range. Utilities in this package never fail outward.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// IsLeap reports whether a Jalali year has a 30-day Esfand.
func IsLeap(year int) bool {
	leap, _, _ := calendarCycle(year)
	return leap == 0
}

// MonthLength returns the number of days in a (year, month) pair:
// 31 for months 1-6, 30 for months 7-11, and 29 or 30 for month 12
// depending on the leap rule.
func MonthLength(year, month int) int {
	switch {
	case month <= 6:
		return 31
	case month <= 11:
		return 30
	case IsLeap(year):
		return 30
	default:
		return 29
	}
}

// calendarCycle locates a Jalali year inside the intercalation cycle.
// It returns the leap offset of the year (0 means leap), the Gregorian
// year holding its first day, and the March day of that first day.
func calendarCycle(jy int) (leap, gy, march int) {
	gy = jy + 621
	leapJ := -14
	jp := breaks[0]

	// Outside the tabulated range the cycle is unknown; fall back to a
	// non-leap year starting March 21 instead of failing outward.
	if jy < breaks[0] || jy >= breaks[len(breaks)-1] {
		return 1, gy, 21
	}

	// Number of years since the last cycle break, and leap days elapsed.
	var jump int
	for i := 1; i < len(breaks); i++ {
		jm := breaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += jump/33*8 + jump%33/4
		jp = jm
	}
	n := jy - jp

	leapJ += n/33*8 + (n%33+3)/4
	if jump%33 == 4 && jump-n == 4 {
		leapJ++
	}

	leapG := gy/4 - (gy/100+1)*3/4 - 150
	march = 20 + leapJ - leapG

	if jump-n < 6 {
		n = n - jump + (jump+4)/33*33
	}
	leap = ((n+1)%33 - 1) % 4
	if leap == -1 {
		leap = 4
	}
	return leap, gy, march
}

// gregorianToJDN converts a Gregorian date to a Julian day number.
func gregorianToJDN(gy, gm, gd int) int {
	d := (gy+(gm-8)/6+100100)*1461/4 +
		(153*((gm+9)%12)+2)/5 +
		gd - 34840408
	return d - (gy+100100+(gm-8)/6)/100*3/4 + 752
}

// jdnToGregorian converts a Julian day number to a Gregorian date.
func jdnToGregorian(jdn int) (gy, gm, gd int) {
	j := 4*jdn + 139361631
	j = j + (4*jdn+183187720)/146097*3/4*4 - 3908
	i := j%1461/4*5 + 308
	gd = i%153/5 + 1
	gm = i/153%12 + 1
	gy = j/1461 - 100100 + (8-gm)/6
	return gy, gm, gd
}

// toJDN converts a Jalali date to a Julian day number.
func toJDN(d Date) int {
	_, gy, march := calendarCycle(d.Year)
	return gregorianToJDN(gy, 3, march) + (d.Month-1)*31 - d.Month/7*(d.Month-7) + d.Day - 1
}

// fromJDN converts a Julian day number to a Jalali date.
func fromJDN(jdn int) Date {
	gy, _, _ := jdnToGregorian(jdn)
	jy := gy - 621
	leap, _, march := calendarCycle(jy)
	k := jdn - gregorianToJDN(gy, 3, march)

	if k >= 0 {
		if k <= 185 {
			return Date{Year: jy, Month: 1 + k/31, Day: k%31 + 1}
		}
		k -= 186
	} else {
		jy--
		k += 179
		if leap == 1 {
			k++
		}
	}
	return Date{Year: jy, Month: 7 + k/30, Day: k%30 + 1}
}

// FromTime returns the Jalali civil date of an instant.
func FromTime(t time.Time) Date {
	gy, gm, gd := t.Date()
	return fromJDN(gregorianToJDN(gy, int(gm), gd))
}

// FromUnixMilli returns the Jalali civil date of an epoch timestamp in
// milliseconds, evaluated in UTC.
func FromUnixMilli(ms int64) Date {
	return FromTime(time.UnixMilli(ms).UTC())
}

// Today returns the current Jalali date.
func Today() Date { return FromTime(time.Now()) }

// Time returns the midnight UTC instant of the date.
func (d Date) Time() time.Time {
	gy, gm, gd := jdnToGregorian(toJDN(d))
	return time.Date(gy, time.Month(gm), gd, 0, 0, 0, 0, time.UTC)
}

// String renders the date as "YYYY/M/D".
func (d Date) String() string {
	return fmt.Sprintf("%d/%d/%d", d.Year, d.Month, d.Day)
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

// Validate checks that the date names a real calendar day.
func (d Date) Validate() error {
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("invalid month %d", d.Month)
	}
	if d.Day < 1 || d.Day > MonthLength(d.Year, d.Month) {
		return fmt.Errorf("invalid day %d for %s %d", d.Day, MonthName(d.Month), d.Year)
	}
	return nil
}

// Before reports whether d is before x.
func (d Date) Before(x Date) bool {
	if d.Year != x.Year {
		return d.Year < x.Year
	}
	if d.Month != x.Month {
		return d.Month < x.Month
	}
	return d.Day < x.Day
}

// AddMonths adds delta whole months (delta may be negative) to a date.
// The year carry uses floor division so negative deltas roll back across
// year boundaries, and the day is clamped down to the length of the
// target month, including a 30-day Esfand in leap years.
func AddMonths(d Date, delta int) Date {
	total := d.Month + delta
	year := d.Year + floorDiv(total-1, 12)
	month := mod(total-1, 12) + 1
	day := d.Day
	if max := MonthLength(year, month); day > max {
		day = max
	}
	return Date{Year: year, Month: month, Day: day}
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// mod returns the always-non-negative remainder of a/b.
func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
