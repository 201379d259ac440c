// Package budget derives monthly spending reports from the transaction
// ledger: a per-day histogram and a category breakdown for one Jalali
// month. Aggregation is a pure query; it never mutates the ledger.
package budget

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"paydo/internal/core"
	"paydo/internal/jalali"
)

// CategoryAmount is one row of the category breakdown.
type CategoryAmount struct {
	Tag     string          `json:"tag"`
	Amount  core.Money      `json:"amount"`
	Percent decimal.Decimal `json:"percent"` // share of the month total, 0 when the total is 0
}

// Report is the aggregation result for one (year, month, kind) view.
type Report struct {
	Year  int                  `json:"year"`
	Month int                  `json:"month"`
	Kind  core.TransactionKind `json:"kind"`

	// Total is the sum over every matching transaction, including ones
	// whose day value is corrupt and therefore absent from Daily.
	Total core.Money `json:"total"`

	// Daily is indexed by day of month; index 0 is unused so that
	// Daily[d] is the amount recorded on day d.
	Daily []core.Money `json:"daily"`

	Categories []CategoryAmount `json:"categories"`
}

var oneHundred = decimal.NewFromInt(100)

// Focus resolves a signed month offset from the current instant into the
// Jalali month it designates.
func Focus(now time.Time, offset int) jalali.Date {
	today := jalali.FromTime(now)
	// Day 1 keeps the offset arithmetic clear of end-of-month clamping.
	return jalali.AddMonths(jalali.Date{Year: today.Year, Month: today.Month, Day: 1}, offset)
}

// Aggregate builds the report for one Jalali month and transaction kind.
//
// Transactions whose stored day falls outside the month's length are
// counted in Total but dropped from the histogram; the ledger is treated
// as append-only, so a corrupt row should dent the chart, not the sum.
func Aggregate(txs []core.Transaction, year, month int, kind core.TransactionKind) Report {
	days := jalali.MonthLength(year, month)
	r := Report{
		Year:  year,
		Month: month,
		Kind:  kind,
		Daily: make([]core.Money, days+1),
	}

	type bucket struct {
		tag    string
		amount core.Money
	}
	var groups []bucket
	index := map[string]int{}

	for _, tx := range txs {
		if tx.Kind != kind || tx.Date.Year != year || tx.Date.Month != month {
			continue
		}
		r.Total += tx.Amount
		if d := tx.Date.Day; d >= 1 && d <= days {
			r.Daily[d] += tx.Amount
		}
		tag := tx.FirstTag()
		i, ok := index[tag]
		if !ok {
			i = len(groups)
			index[tag] = i
			groups = append(groups, bucket{tag: tag})
		}
		groups[i].amount += tx.Amount
	}

	if len(groups) == 0 {
		return r
	}

	// Descending by amount; ties keep first-seen order (stable sort over
	// the insertion-ordered slice).
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].amount > groups[j].amount })

	total := decimal.NewFromInt(int64(r.Total))
	r.Categories = make([]CategoryAmount, 0, len(groups))
	for _, g := range groups {
		percent := decimal.Zero
		if r.Total > 0 {
			percent = decimal.NewFromInt(int64(g.amount)).Mul(oneHundred).Div(total)
		}
		r.Categories = append(r.Categories, CategoryAmount{
			Tag:     g.tag,
			Amount:  g.amount,
			Percent: percent,
		})
	}
	return r
}
