// Package loan generates and maintains installment schedules.
//
// A schedule is created in bulk from a start date and an installment
// count, then edited piecemeal: installments can be changed, removed
// (with mandatory renumbering) or appended. The per-installment amount
// is constant; the suggested default is ceil(total/count), so the
// schedule sum may exceed the loan total by up to count-1 currency
// units. That slack is intentional and progress figures are computed
// against the loan's own total, not the installment sum.
package loan

import (
	"github.com/shopspring/decimal"

	"paydo/internal/core"
	"paydo/internal/jalali"
)

// Progress summarizes how far along a loan's repayment is.
type Progress struct {
	PaidCount  int             `json:"paidCount"`
	TotalCount int             `json:"totalCount"`
	Percent    decimal.Decimal `json:"percent"`
	PaidAmount core.Money      `json:"paidAmount"`
	Remaining  core.Money      `json:"remaining"`
}

var oneHundred = decimal.NewFromInt(100)

// SuggestAmount returns the default per-installment amount,
// ceil(total/count). Count must be positive.
func SuggestAmount(total core.Money, count int) core.Money {
	c := core.Money(count)
	return (total + c - 1) / c
}

// Generate builds the initial schedule: count installments of the given
// amount, due dates advancing one month from start, sequence numbers
// 1..count, all unpaid.
func Generate(total core.Money, count int, start jalali.Date, amount core.Money) ([]core.Installment, error) {
	if count < 1 {
		return nil, core.ErrInvalidCount
	}
	if total <= 0 || amount <= 0 {
		return nil, core.ErrInvalidAmount
	}
	if err := start.Validate(); err != nil {
		return nil, err
	}
	schedule := make([]core.Installment, 0, count)
	for i := 0; i < count; i++ {
		schedule = append(schedule, core.Installment{
			Sequence: i + 1,
			DueDate:  jalali.AddMonths(start, i),
			Amount:   amount,
		})
	}
	return schedule, nil
}

// AppendNext adds one installment after the current last: due one month
// later (rolling into the next year after Esfand), same amount, unpaid.
// An empty schedule starts over at the first of the current month.
func AppendNext(l *core.Loan) core.Installment {
	next := core.Installment{Sequence: len(l.Installments) + 1}
	if n := len(l.Installments); n > 0 {
		last := l.Installments[n-1]
		next.DueDate = jalali.AddMonths(last.DueDate, 1)
		next.Amount = last.Amount
	} else {
		today := jalali.Today()
		next.DueDate = jalali.Date{Year: today.Year, Month: today.Month, Day: 1}
	}
	l.Installments = append(l.Installments, next)
	return next
}

// RemoveAt deletes the installment at index and renumbers the remainder
// to a contiguous 1..N. Renumbering is an invariant of the loan, not an
// optional cleanup.
func RemoveAt(l *core.Loan, index int) error {
	if index < 0 || index >= len(l.Installments) {
		return core.ErrIndexOutOfRange
	}
	l.Installments = append(l.Installments[:index], l.Installments[index+1:]...)
	renumber(l)
	return nil
}

// Edit replaces the fields of the installment at index in place. Other
// installments are not recomputed.
func Edit(l *core.Loan, index int, due jalali.Date, amount core.Money, isPaid bool) error {
	if index < 0 || index >= len(l.Installments) {
		return core.ErrIndexOutOfRange
	}
	if amount <= 0 {
		return core.ErrInvalidAmount
	}
	if err := due.Validate(); err != nil {
		return err
	}
	inst := &l.Installments[index]
	inst.DueDate = due
	inst.Amount = amount
	inst.IsPaid = isPaid
	return nil
}

// ComputeProgress derives the read-only progress figures for list views.
// Remaining is measured against the loan's recorded total, so it may
// differ from the sum of unpaid installments under the rounding slack.
func ComputeProgress(l core.Loan) Progress {
	p := Progress{TotalCount: len(l.Installments)}
	for _, inst := range l.Installments {
		if inst.IsPaid {
			p.PaidCount++
			p.PaidAmount += inst.Amount
		}
	}
	if p.TotalCount > 0 {
		p.Percent = decimal.NewFromInt(int64(p.PaidCount)).
			Mul(oneHundred).
			Div(decimal.NewFromInt(int64(p.TotalCount)))
	}
	p.Remaining = l.TotalAmount - p.PaidAmount
	return p
}

func renumber(l *core.Loan) {
	for i := range l.Installments {
		l.Installments[i].Sequence = i + 1
	}
}
