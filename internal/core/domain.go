// Package core holds the domain model of the tracker: accounts,
// transactions, assets, loans and the money/digit normalization rules
// shared by every other package.
package core

import (
	"errors"
	"strings"

	"paydo/internal/jalali"
)

const (
	Expense  TransactionKind = "expense"
	Income   TransactionKind = "income"
	Transfer TransactionKind = "transfer"

	Cash AccountKind = "cash"
	Card AccountKind = "card"
)

// DefaultTag is the category assigned to transactions submitted without
// tags ("other").
const DefaultTag = "#سایر"

// MaxTags is the maximum number of category tags kept per transaction.
const MaxTags = 3

type (
	TransactionKind string
	AccountKind     string

	Transaction struct {
		ID              int64           `json:"id"`
		Kind            TransactionKind `json:"type"`
		Amount          Money           `json:"amount"`
		Title           string          `json:"title"`
		Tags            []string        `json:"tags"`
		AccountID       int64           `json:"accountId"`
		TargetAccountID int64           `json:"targetAccountId,omitempty"` // set only for transfers
		Date            jalali.Date     `json:"date"`
		Timestamp       int64           `json:"timestamp"` // epoch milliseconds
	}

	Account struct {
		ID      int64       `json:"id"`
		Name    string      `json:"name"`
		Kind    AccountKind `json:"type"`
		Balance Money       `json:"balance"`
	}

	Asset struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Value Money  `json:"value"`
	}

	Loan struct {
		ID           int64         `json:"id"`
		BankName     string        `json:"bankName"`
		TotalAmount  Money         `json:"totalAmount"`
		Installments []Installment `json:"installments"`
	}

	// Installment is one scheduled partial payment of a loan.
	// Sequence numbers are 1-based and contiguous after every mutation.
	Installment struct {
		Sequence int         `json:"seq"`
		DueDate  jalali.Date `json:"dueDate"`
		Amount   Money       `json:"amount"`
		IsPaid   bool        `json:"isPaid"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCount    = errors.New("invalid installment count")
	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidKind     = errors.New("invalid kind")
	ErrMissingAccount  = errors.New("missing account")
	ErrSameAccount     = errors.New("source and target accounts are the same")
	ErrLastAccount     = errors.New("at least one account must remain")
	ErrAccountNotFound = errors.New("account not found")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrAssetNotFound   = errors.New("asset not found")
	ErrIndexOutOfRange = errors.New("installment index out of range")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// NormalizeTags splits free-form tag input on whitespace and commas,
// keeps at most MaxTags entries, and makes sure each one starts with the
// '#' marker. Empty input yields the default tag.
func NormalizeTags(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return []string{DefaultTag}
	}
	if len(fields) > MaxTags {
		fields = fields[:MaxTags]
	}
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		if !strings.HasPrefix(f, "#") {
			f = "#" + f
		}
		tags = append(tags, f)
	}
	return tags
}

// FirstTag returns the transaction's leading category, falling back to
// the default tag when none was recorded.
func (t Transaction) FirstTag() string {
	if len(t.Tags) == 0 {
		return DefaultTag
	}
	return t.Tags[0]
}

func (k TransactionKind) Valid() bool {
	switch k {
	case Expense, Income, Transfer:
		return true
	}
	return false
}

func (k AccountKind) Valid() bool {
	return k == Cash || k == Card
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.AccountID == 0 {
		return ErrMissingAccount
	}
	if t.Kind == Transfer {
		if t.TargetAccountID == 0 {
			return ErrMissingAccount
		}
		if t.TargetAccountID == t.AccountID {
			return ErrSameAccount
		}
	}
	return t.Date.Validate()
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (a Asset) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (l Loan) Validate() error {
	if strings.TrimSpace(l.BankName) == "" {
		return ErrEmptyName
	}
	if l.TotalAmount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
