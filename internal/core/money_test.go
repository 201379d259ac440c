package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out Money
	}{
		{"", 0},
		{"abc", 0},
		{"0", 0},
		{"1234", 1234},
		{"1,234", 1234},
		{"۱۲۳۴", 1234},
		{"۱۲,۳۴۵", 12345},
		{"12.75", 12}, // leading integer portion only
		{"-500", -500},
		{"  ۲۵۰ تومان ", 250},
		{"$1,000,000", 1000000},
		{"--", 0},
		{".5", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.out, ParseAmount(tc.in), "input %q", tc.in)
	}
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in  Money
		out string
	}{
		{0, "۰"},
		{7, "۷"},
		{100, "۱۰۰"},
		{1234, "۱,۲۳۴"},
		{1234567, "۱,۲۳۴,۵۶۷"},
		{-1234567, "-۱,۲۳۴,۵۶۷"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.out, FormatMoney(tc.in), "input %d", tc.in)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, n := range []Money{0, 1, 99, 100, 999, 1000, 12345, 999999, 1000000, 98765432101} {
		assert.Equal(t, n, ParseAmount(FormatMoney(n)), "n=%d", n)
	}
}

func TestToPersianDigits(t *testing.T) {
	assert.Equal(t, "۱۴۰۳/۵/۱", ToPersianDigits("1403/5/1"))
	assert.Equal(t, "بدون عدد", ToPersianDigits("بدون عدد"))
}
