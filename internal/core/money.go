// Money parsing and formatting.
//
// Amounts travel through the system as integer counts of the smallest
// currency unit; formatting to localized text happens only at the edges.
// Parsing is deliberately forgiving: form input arrives with Persian
// digits, grouping separators and stray characters, and a value that
// cannot be understood becomes zero instead of an error.
package core

import (
	"strconv"
	"strings"
)

// Money is an amount in the smallest currency unit. All arithmetic on
// money is integer arithmetic.
type Money int64

var persianDigits = [10]rune{'۰', '۱', '۲', '۳', '۴', '۵', '۶', '۷', '۸', '۹'}

// ToPersianDigits maps every ASCII digit in s to its Persian glyph.
// Non-digit characters pass through unchanged.
func ToPersianDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(persianDigits[r-'0'])
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseAmount turns localized form input into a Money value. Persian
// digits are mapped back to ASCII, grouping separators are removed,
// anything that is not a digit, minus sign or decimal point is dropped,
// and the leading integer portion of what remains is parsed. Unparsable
// input yields 0; this never fails, so a half-typed field cannot break
// form entry.
func ParseAmount(s string) Money {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '۰' && r <= '۹':
			b.WriteRune(rune('0' + r - '۰'))
		case r == ',':
			// grouping separator
		case r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		}
	}
	return parseLeadingInt(b.String())
}

// parseLeadingInt mirrors parseInt semantics: an optional sign followed
// by the longest run of digits; everything after that is ignored.
func parseLeadingInt(s string) Money {
	if s == "" {
		return 0
	}
	i := 0
	if s[0] == '-' {
		i = 1
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i {
		return 0
	}
	n, err := strconv.ParseInt(s[:j], 10, 64)
	if err != nil {
		return 0
	}
	return Money(n)
}

// FormatMoney renders an amount with grouping separators every three
// digits and Persian digits. The sign is kept outside the grouping.
func FormatMoney(m Money) string {
	digits := strconv.FormatInt(int64(m), 10)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	return sign + ToPersianDigits(groupThousands(digits))
}

// groupThousands inserts a comma every three digits from the right.
func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	b.Grow(n + n/3)
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
