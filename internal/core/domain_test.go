package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"paydo/internal/jalali"
)

func validTransaction() Transaction {
	return Transaction{
		Kind:      Expense,
		Amount:    1000,
		Title:     "groceries",
		Tags:      []string{"#خوراک"},
		AccountID: 1,
		Date:      jalali.Date{Year: 1403, Month: 5, Day: 1},
	}
}

func TestTransactionValidate(t *testing.T) {
	assert.NoError(t, validTransaction().Validate())

	tx := validTransaction()
	tx.Amount = 0
	assert.ErrorIs(t, tx.Validate(), ErrInvalidAmount)

	tx = validTransaction()
	tx.Title = "  "
	assert.ErrorIs(t, tx.Validate(), ErrEmptyTitle)

	tx = validTransaction()
	tx.Kind = "loan"
	assert.ErrorIs(t, tx.Validate(), ErrInvalidKind)

	tx = validTransaction()
	tx.AccountID = 0
	assert.ErrorIs(t, tx.Validate(), ErrMissingAccount)

	tx = validTransaction()
	tx.Kind = Transfer
	tx.TargetAccountID = 0
	assert.ErrorIs(t, tx.Validate(), ErrMissingAccount)

	tx = validTransaction()
	tx.Kind = Transfer
	tx.TargetAccountID = tx.AccountID
	assert.ErrorIs(t, tx.Validate(), ErrSameAccount)

	tx = validTransaction()
	tx.Date = jalali.Date{Year: 1404, Month: 12, Day: 30}
	assert.Error(t, tx.Validate())
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{DefaultTag}, NormalizeTags(""))
	assert.Equal(t, []string{DefaultTag}, NormalizeTags("  ,  "))
	assert.Equal(t, []string{"#food"}, NormalizeTags("food"))
	assert.Equal(t, []string{"#food", "#bills"}, NormalizeTags("#food bills"))
	assert.Equal(t, []string{"#a", "#b", "#c"}, NormalizeTags("a b c d e"))
	assert.Equal(t, []string{"#قبض", "#خانه"}, NormalizeTags("قبض,خانه"))
}

func TestFirstTag(t *testing.T) {
	tx := validTransaction()
	assert.Equal(t, "#خوراک", tx.FirstTag())
	tx.Tags = nil
	assert.Equal(t, DefaultTag, tx.FirstTag())
}

func TestAccountValidate(t *testing.T) {
	assert.NoError(t, Account{Name: "wallet", Kind: Cash}.Validate())
	assert.ErrorIs(t, Account{Name: "", Kind: Cash}.Validate(), ErrEmptyName)
	assert.ErrorIs(t, Account{Name: "x", Kind: "crypto"}.Validate(), ErrInvalidKind)
}

func TestLoanValidate(t *testing.T) {
	assert.NoError(t, Loan{BankName: "ملت", TotalAmount: 1200}.Validate())
	assert.ErrorIs(t, Loan{BankName: "", TotalAmount: 1}.Validate(), ErrEmptyName)
	assert.ErrorIs(t, Loan{BankName: "x", TotalAmount: 0}.Validate(), ErrInvalidAmount)
}
