package jalali

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTime_ReferenceDates(t *testing.T) {
	cases := []struct {
		gy, gm, gd int
		want       Date
	}{
		{1970, 1, 1, Date{1348, 10, 11}},  // Unix epoch
		{1979, 2, 11, Date{1357, 11, 22}}, // 22 Bahman 1357
		{2000, 1, 1, Date{1378, 10, 11}},
		{2016, 3, 20, Date{1395, 1, 1}},
		{2021, 3, 21, Date{1400, 1, 1}},
		{2024, 3, 20, Date{1403, 1, 1}},
		{2025, 3, 20, Date{1403, 12, 30}}, // leap Esfand
		{2025, 3, 21, Date{1404, 1, 1}},
		{2026, 8, 28, Date{1405, 6, 6}},
	}
	for _, tc := range cases {
		got := FromTime(time.Date(tc.gy, time.Month(tc.gm), tc.gd, 12, 0, 0, 0, time.UTC))
		assert.Equal(t, tc.want, got, "%04d-%02d-%02d", tc.gy, tc.gm, tc.gd)
	}
}

func TestFromTime_RoundTrip(t *testing.T) {
	// Walk a decade day by day and make sure Date.Time inverts FromTime.
	start := time.Date(2015, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3653; i++ {
		instant := start.AddDate(0, 0, i)
		d := FromTime(instant)
		require.NoError(t, d.Validate())
		require.Equal(t, instant, d.Time(), "day %d (%s)", i, instant)
	}
}

func TestFromUnixMilli(t *testing.T) {
	assert.Equal(t, Date{1348, 10, 11}, FromUnixMilli(0))
}

func TestIsLeap(t *testing.T) {
	for _, y := range []int{1375, 1387, 1391, 1395, 1399, 1403, 1408} {
		assert.True(t, IsLeap(y), "year %d", y)
	}
	for _, y := range []int{1396, 1400, 1402, 1404, 1405} {
		assert.False(t, IsLeap(y), "year %d", y)
	}
}

func TestMonthLength(t *testing.T) {
	for m := 1; m <= 6; m++ {
		assert.Equal(t, 31, MonthLength(1403, m))
	}
	for m := 7; m <= 11; m++ {
		assert.Equal(t, 30, MonthLength(1403, m))
	}
	assert.Equal(t, 30, MonthLength(1403, 12))
	assert.Equal(t, 29, MonthLength(1404, 12))
	assert.Equal(t, 30, MonthLength(1399, 12))
	assert.Equal(t, 29, MonthLength(1400, 12))
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		name  string
		in    Date
		delta int
		want  Date
	}{
		{"same month", Date{1403, 5, 10}, 0, Date{1403, 5, 10}},
		{"simple", Date{1403, 1, 1}, 1, Date{1403, 2, 1}},
		{"year rollover", Date{1403, 12, 5}, 1, Date{1404, 1, 5}},
		{"negative", Date{1403, 1, 15}, -1, Date{1402, 12, 15}},
		{"negative across years", Date{1403, 1, 31}, -7, Date{1402, 6, 31}},
		{"clamp into 30-day month", Date{1403, 6, 31}, 1, Date{1403, 7, 30}},
		{"leap Esfand keeps day 30", Date{1403, 11, 30}, 1, Date{1403, 12, 30}},
		{"common Esfand clamps to 29", Date{1404, 11, 30}, 1, Date{1404, 12, 29}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AddMonths(tc.in, tc.delta))
		})
	}
}

func TestAddMonths_TwelveIsNextYear(t *testing.T) {
	for m := 1; m <= 12; m++ {
		d := Date{1402, m, 10}
		assert.Equal(t, Date{1403, m, 10}, AddMonths(d, 12))
	}
}

func TestAddMonths_Composition(t *testing.T) {
	d := Date{1400, 4, 15} // day 15 never needs clamping
	for a := -14; a <= 14; a++ {
		for b := -14; b <= 14; b++ {
			assert.Equal(t, AddMonths(d, a+b), AddMonths(AddMonths(d, a), b),
				"a=%d b=%d", a, b)
		}
	}
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "فروردین", MonthName(1))
	assert.Equal(t, "اسفند", MonthName(12))
	assert.Equal(t, "", MonthName(0))
	assert.Equal(t, "", MonthName(13))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Date{1403, 12, 30}.Validate())
	assert.Error(t, Date{1404, 12, 30}.Validate())
	assert.Error(t, Date{1403, 0, 1}.Validate())
	assert.Error(t, Date{1403, 13, 1}.Validate())
	assert.Error(t, Date{1403, 1, 0}.Validate())
	assert.Error(t, Date{1403, 7, 31}.Validate())
}

func TestBefore(t *testing.T) {
	assert.True(t, Date{1402, 12, 29}.Before(Date{1403, 1, 1}))
	assert.True(t, Date{1403, 1, 1}.Before(Date{1403, 1, 2}))
	assert.False(t, Date{1403, 2, 1}.Before(Date{1403, 1, 29}))
}
