package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydo/internal/core"
	"paydo/internal/jalali"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "paydo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAccountCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateAccount(ctx, core.Account{Name: "کیف پول", Kind: core.Cash, Balance: 500})
	require.NoError(t, err)

	got, err := repo.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "کیف پول", got.Name)
	assert.Equal(t, core.Cash, got.Kind)
	assert.Equal(t, core.Money(500), got.Balance)

	got.Name = "کارت"
	got.Kind = core.Card
	require.NoError(t, repo.UpdateAccount(ctx, got))

	n, err := repo.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.DeleteAccount(ctx, id))
	_, err = repo.GetAccount(ctx, id)
	assert.ErrorIs(t, err, core.ErrAccountNotFound)
	assert.ErrorIs(t, repo.DeleteAccount(ctx, id), core.ErrAccountNotFound)
}

func TestAddTransaction_AppliesDeltasAtomically(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	src, err := repo.CreateAccount(ctx, core.Account{Name: "a", Kind: core.Cash, Balance: 1000})
	require.NoError(t, err)
	dst, err := repo.CreateAccount(ctx, core.Account{Name: "b", Kind: core.Card, Balance: 0})
	require.NoError(t, err)

	tx := core.Transaction{
		Kind:            core.Transfer,
		Amount:          300,
		Title:           "جابجایی",
		Tags:            []string{"#سایر"},
		AccountID:       src,
		TargetAccountID: dst,
		Date:            jalali.Date{Year: 1403, Month: 5, Day: 2},
		Timestamp:       1722500000000,
	}
	_, err = repo.AddTransaction(ctx, tx, map[int64]core.Money{src: -300, dst: 300})
	require.NoError(t, err)

	a, err := repo.GetAccount(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, core.Money(700), a.Balance)
	b, err := repo.GetAccount(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, core.Money(300), b.Balance)

	txs, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, core.Transfer, txs[0].Kind)
	assert.Equal(t, []string{"#سایر"}, txs[0].Tags)
	assert.Equal(t, jalali.Date{Year: 1403, Month: 5, Day: 2}, txs[0].Date)
}

func TestAddTransaction_UnknownAccountRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	src, err := repo.CreateAccount(ctx, core.Account{Name: "a", Kind: core.Cash, Balance: 1000})
	require.NoError(t, err)

	tx := core.Transaction{
		Kind: core.Expense, Amount: 100, Title: "x", AccountID: src,
		Date: jalali.Date{Year: 1403, Month: 5, Day: 2},
	}
	_, err = repo.AddTransaction(ctx, tx, map[int64]core.Money{src: -100, 999: 100})
	assert.ErrorIs(t, err, core.ErrAccountNotFound)

	// Nothing was committed.
	a, err := repo.GetAccount(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, core.Money(1000), a.Balance)
	txs, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestLoanRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	l := core.Loan{
		BankName:    "ملت",
		TotalAmount: 1200,
		Installments: []core.Installment{
			{Sequence: 1, DueDate: jalali.Date{Year: 1403, Month: 1, Day: 1}, Amount: 100},
			{Sequence: 2, DueDate: jalali.Date{Year: 1403, Month: 2, Day: 1}, Amount: 100, IsPaid: true},
		},
	}
	id, err := repo.CreateLoan(ctx, l)
	require.NoError(t, err)

	got, err := repo.GetLoan(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ملت", got.BankName)
	require.Len(t, got.Installments, 2)
	assert.True(t, got.Installments[1].IsPaid)

	require.NoError(t, repo.UpdateLoanInfo(ctx, id, "صادرات", 2400))
	require.NoError(t, repo.ReplaceInstallments(ctx, id, got.Installments[:1]))

	got, err = repo.GetLoan(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "صادرات", got.BankName)
	assert.Equal(t, core.Money(2400), got.TotalAmount)
	require.Len(t, got.Installments, 1)

	require.NoError(t, repo.DeleteLoan(ctx, id))
	_, err = repo.GetLoan(ctx, id)
	assert.ErrorIs(t, err, core.ErrLoanNotFound)
}

func TestReplaceAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateAccount(ctx, core.Account{Name: "old", Kind: core.Cash})
	require.NoError(t, err)

	accounts := []core.Account{{ID: 42, Name: "restored", Kind: core.Card, Balance: 77}}
	txs := []core.Transaction{{
		ID: 7, Kind: core.Income, Amount: 900, Title: "حقوق",
		Tags: []string{"#حقوق"}, AccountID: 42,
		Date: jalali.Date{Year: 1403, Month: 4, Day: 30}, Timestamp: 1721000000000,
	}}
	loans := []core.Loan{{
		ID: 3, BankName: "ملی", TotalAmount: 600,
		Installments: []core.Installment{
			{Sequence: 1, DueDate: jalali.Date{Year: 1403, Month: 7, Day: 1}, Amount: 200},
		},
	}}
	assets := []core.Asset{{ID: 5, Name: "سکه", Value: 12000}}

	require.NoError(t, repo.ReplaceAll(ctx, accounts, txs, loans, assets))

	gotAccounts, err := repo.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, gotAccounts, 1)
	assert.Equal(t, int64(42), gotAccounts[0].ID)

	gotTxs, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, gotTxs, 1)
	assert.Equal(t, int64(7), gotTxs[0].ID)

	gotLoans, err := repo.ListLoans(ctx)
	require.NoError(t, err)
	require.Len(t, gotLoans, 1)
	require.Len(t, gotLoans[0].Installments, 1)

	gotAssets, err := repo.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, gotAssets, 1)
	assert.Equal(t, core.Money(12000), gotAssets[0].Value)
}
