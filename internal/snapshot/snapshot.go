// Package snapshot encodes the whole tracker state as the JSON tree the
// original browser build of the app persisted, and reads it back. The
// codec keeps the legacy field names (type, accountId, date, ...) so
// backups taken from the old build restore cleanly, and carries
// structured Jalali date fields alongside the legacy localized date
// string.
package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"paydo/internal/core"
	"paydo/internal/jalali"
)

// State is the full persisted state of the tracker.
type State struct {
	Accounts     []core.Account
	Transactions []core.Transaction
	Loans        []core.Loan
	Assets       []core.Asset
}

type accountJSON struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance int64  `json:"balance"`
}

type transactionJSON struct {
	ID              int64    `json:"id"`
	Type            string   `json:"type"`
	Amount          int64    `json:"amount"`
	Title           string   `json:"title"`
	Tags            []string `json:"tags"`
	AccountID       int64    `json:"accountId"`
	TargetAccountID int64    `json:"targetAccountId,omitempty"`
	// Date is the legacy localized date string ("۱۴۰۳/۵/۱"); the
	// structured fields below are authoritative when present.
	Date      string `json:"date,omitempty"`
	Year      int    `json:"year,omitempty"`
	Month     int    `json:"month,omitempty"`
	Day       int    `json:"day,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type installmentJSON struct {
	ID     int   `json:"id"` // sequence number in the legacy layout
	Year   int   `json:"year"`
	Month  int   `json:"month"`
	Day    int   `json:"day"`
	Amount int64 `json:"amount"`
	IsPaid bool  `json:"isPaid"`
}

type loanJSON struct {
	ID           int64             `json:"id"`
	BankName     string            `json:"bankName"`
	TotalAmount  int64             `json:"totalAmount"`
	Installments []installmentJSON `json:"installments"`
}

type assetJSON struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type stateJSON struct {
	Accounts     []accountJSON     `json:"accounts"`
	Transactions []transactionJSON `json:"transactions"`
	Loans        []loanJSON        `json:"loans"`
	Assets       []assetJSON       `json:"assets"`
}

// Encode marshals the state into the persisted layout.
func Encode(s State) ([]byte, error) {
	out := stateJSON{
		Accounts:     make([]accountJSON, 0, len(s.Accounts)),
		Transactions: make([]transactionJSON, 0, len(s.Transactions)),
		Loans:        make([]loanJSON, 0, len(s.Loans)),
		Assets:       make([]assetJSON, 0, len(s.Assets)),
	}
	for _, a := range s.Accounts {
		out.Accounts = append(out.Accounts, accountJSON{
			ID: a.ID, Name: a.Name, Type: string(a.Kind), Balance: int64(a.Balance),
		})
	}
	for _, t := range s.Transactions {
		out.Transactions = append(out.Transactions, transactionJSON{
			ID:              t.ID,
			Type:            string(t.Kind),
			Amount:          int64(t.Amount),
			Title:           t.Title,
			Tags:            t.Tags,
			AccountID:       t.AccountID,
			TargetAccountID: t.TargetAccountID,
			Date:            core.ToPersianDigits(t.Date.String()),
			Year:            t.Date.Year,
			Month:           t.Date.Month,
			Day:             t.Date.Day,
			Timestamp:       t.Timestamp,
		})
	}
	for _, l := range s.Loans {
		lj := loanJSON{
			ID: l.ID, BankName: l.BankName, TotalAmount: int64(l.TotalAmount),
			Installments: make([]installmentJSON, 0, len(l.Installments)),
		}
		for _, inst := range l.Installments {
			lj.Installments = append(lj.Installments, installmentJSON{
				ID:     inst.Sequence,
				Year:   inst.DueDate.Year,
				Month:  inst.DueDate.Month,
				Day:    inst.DueDate.Day,
				Amount: int64(inst.Amount),
				IsPaid: inst.IsPaid,
			})
		}
		out.Loans = append(out.Loans, lj)
	}
	for _, a := range s.Assets {
		out.Assets = append(out.Assets, assetJSON{ID: a.ID, Name: a.Name, Value: int64(a.Value)})
	}
	return json.MarshalIndent(out, "", "  ")
}

// Decode parses a persisted blob. A blob missing the accounts or
// transactions top-level fields fails structural validation and is
// rejected so callers can fall back to defaults.
func Decode(data []byte) (State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, fmt.Errorf("%w: %v", core.ErrInvalidSnapshot, err)
	}
	if _, ok := raw["accounts"]; !ok {
		return State{}, fmt.Errorf("%w: missing accounts", core.ErrInvalidSnapshot)
	}
	if _, ok := raw["transactions"]; !ok {
		return State{}, fmt.Errorf("%w: missing transactions", core.ErrInvalidSnapshot)
	}

	var in stateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return State{}, fmt.Errorf("%w: %v", core.ErrInvalidSnapshot, err)
	}

	var s State
	for _, a := range in.Accounts {
		s.Accounts = append(s.Accounts, core.Account{
			ID: a.ID, Name: a.Name, Kind: core.AccountKind(a.Type), Balance: core.Money(a.Balance),
		})
	}
	for _, t := range in.Transactions {
		s.Transactions = append(s.Transactions, core.Transaction{
			ID:              t.ID,
			Kind:            core.TransactionKind(t.Type),
			Amount:          core.Money(t.Amount),
			Title:           t.Title,
			Tags:            t.Tags,
			AccountID:       t.AccountID,
			TargetAccountID: t.TargetAccountID,
			Date:            transactionDate(t),
			Timestamp:       t.Timestamp,
		})
	}
	for _, l := range in.Loans {
		loan := core.Loan{ID: l.ID, BankName: l.BankName, TotalAmount: core.Money(l.TotalAmount)}
		for i, inst := range l.Installments {
			seq := inst.ID
			if seq == 0 {
				seq = i + 1
			}
			loan.Installments = append(loan.Installments, core.Installment{
				Sequence: seq,
				DueDate:  jalali.Date{Year: inst.Year, Month: inst.Month, Day: inst.Day},
				Amount:   core.Money(inst.Amount),
				IsPaid:   inst.IsPaid,
			})
		}
		s.Loans = append(s.Loans, loan)
	}
	for _, a := range in.Assets {
		s.Assets = append(s.Assets, core.Asset{ID: a.ID, Name: a.Name, Value: core.Money(a.Value)})
	}
	return s, nil
}

// transactionDate picks the best available date for a legacy record:
// structured fields, then the localized date string, then the epoch
// timestamp.
func transactionDate(t transactionJSON) jalali.Date {
	if t.Year != 0 && t.Month != 0 && t.Day != 0 {
		return jalali.Date{Year: t.Year, Month: t.Month, Day: t.Day}
	}
	if d, ok := ParseLegacyDate(t.Date); ok {
		return d
	}
	return jalali.FromUnixMilli(t.Timestamp)
}

// ParseLegacyDate decodes the localized "۱۴۰۳/۵/۱" date strings the old
// build stored. The month may be zero-padded; digits may be Persian or
// ASCII.
func ParseLegacyDate(s string) (jalali.Date, bool) {
	ascii := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '۰' && r <= '۹' {
			r = rune('0' + r - '۰')
		}
		ascii = append(ascii, r)
	}
	parts := strings.Split(string(ascii), "/")
	if len(parts) != 3 {
		return jalali.Date{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return jalali.Date{}, false
		}
		nums[i] = n
	}
	d := jalali.Date{Year: nums[0], Month: nums[1], Day: nums[2]}
	if d.Validate() != nil {
		return jalali.Date{}, false
	}
	return d, true
}
