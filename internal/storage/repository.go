// Package storage persists the tracker state in SQLite. It exposes the
// ledger read interface consumed by the budget aggregator plus CRUD for
// accounts, assets and loans. Installment writes always replace a loan's
// whole schedule so the contiguous sequence numbering is enforced in a
// single place.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"paydo/internal/core"
)

type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if needed) the database at dbPath and
// runs pending migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// encodeTags joins tags with single spaces; tags never contain
// whitespace after normalization.
func encodeTags(tags []string) string { return strings.Join(tags, " ") }

func decodeTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// --- accounts ---

func (r *Repository) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (name, kind, balance) VALUES (?, ?, ?)`,
		a.Name, string(a.Kind), int64(a.Balance))
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, kind = ?, balance = ? WHERE id = ?`,
		a.Name, string(a.Kind), int64(a.Balance), a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res, core.ErrAccountNotFound)
}

func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res, core.ErrAccountNotFound)
}

func (r *Repository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	var a core.Account
	var kind string
	var balance int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, kind, balance FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &kind, &balance)
	if err == sql.ErrNoRows {
		return core.Account{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	a.Kind = core.AccountKind(kind)
	a.Balance = core.Money(balance)
	return a, nil
}

func (r *Repository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, balance FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var kind string
		var balance int64
		if err := rows.Scan(&a.ID, &a.Name, &kind, &balance); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Kind = core.AccountKind(kind)
		a.Balance = core.Money(balance)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *Repository) CountAccounts(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// --- transactions ---

// AddTransaction inserts the transaction and applies the balance deltas
// in one database transaction, so a failed write leaves no partial
// mutation behind.
func (r *Repository) AddTransaction(ctx context.Context, t core.Transaction, deltas map[int64]core.Money) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (kind, amount, title, tags, account_id, target_account_id, jyear, jmonth, jday, timestamp_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.Kind), int64(t.Amount), t.Title, encodeTags(t.Tags),
		t.AccountID, t.TargetAccountID,
		t.Date.Year, t.Date.Month, t.Date.Day, t.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for accountID, delta := range deltas {
		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = balance + ? WHERE id = ?`,
			int64(delta), accountID)
		if err != nil {
			return 0, fmt.Errorf("apply balance delta: %w", err)
		}
		if err := requireRow(res, core.ErrAccountNotFound); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// ListTransactions returns the whole ledger. Order is not meaningful;
// callers sort explicitly.
func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, amount, title, tags, account_id, target_account_id, jyear, jmonth, jday, timestamp_ms
		 FROM transactions`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var t core.Transaction
	var kind, tags string
	var amount int64
	if err := rows.Scan(&t.ID, &kind, &amount, &t.Title, &tags,
		&t.AccountID, &t.TargetAccountID,
		&t.Date.Year, &t.Date.Month, &t.Date.Day, &t.Timestamp); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Kind = core.TransactionKind(kind)
	t.Amount = core.Money(amount)
	t.Tags = decodeTags(tags)
	return t, nil
}

// --- assets ---

func (r *Repository) CreateAsset(ctx context.Context, a core.Asset) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (name, value) VALUES (?, ?)`, a.Name, int64(a.Value))
	if err != nil {
		return 0, fmt.Errorf("create asset: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repository) UpdateAsset(ctx context.Context, a core.Asset) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assets SET name = ?, value = ? WHERE id = ?`, a.Name, int64(a.Value), a.ID)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	return requireRow(res, core.ErrAssetNotFound)
}

func (r *Repository) DeleteAsset(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	return requireRow(res, core.ErrAssetNotFound)
}

func (r *Repository) ListAssets(ctx context.Context) ([]core.Asset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, value FROM assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []core.Asset
	for rows.Next() {
		var a core.Asset
		var value int64
		if err := rows.Scan(&a.ID, &a.Name, &value); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.Value = core.Money(value)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// --- loans ---

func (r *Repository) CreateLoan(ctx context.Context, l core.Loan) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO loans (bank_name, total_amount) VALUES (?, ?)`,
		l.BankName, int64(l.TotalAmount))
	if err != nil {
		return 0, fmt.Errorf("create loan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := insertInstallments(ctx, tx, id, l.Installments); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (r *Repository) UpdateLoanInfo(ctx context.Context, id int64, bankName string, total core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE loans SET bank_name = ?, total_amount = ? WHERE id = ?`,
		bankName, int64(total), id)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	return requireRow(res, core.ErrLoanNotFound)
}

func (r *Repository) DeleteLoan(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE loan_id = ?`, id); err != nil {
		return fmt.Errorf("delete installments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}
	if err := requireRow(res, core.ErrLoanNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceInstallments swaps a loan's whole schedule for the given one.
func (r *Repository) ReplaceInstallments(ctx context.Context, loanID int64, installments []core.Installment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE loan_id = ?`, loanID); err != nil {
		return fmt.Errorf("clear installments: %w", err)
	}
	if err := insertInstallments(ctx, tx, loanID, installments); err != nil {
		return err
	}
	return tx.Commit()
}

func insertInstallments(ctx context.Context, tx *sql.Tx, loanID int64, installments []core.Installment) error {
	for _, inst := range installments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO installments (loan_id, seq, jyear, jmonth, jday, amount, is_paid)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			loanID, inst.Sequence,
			inst.DueDate.Year, inst.DueDate.Month, inst.DueDate.Day,
			int64(inst.Amount), inst.IsPaid)
		if err != nil {
			return fmt.Errorf("insert installment %d: %w", inst.Sequence, err)
		}
	}
	return nil
}

func (r *Repository) GetLoan(ctx context.Context, id int64) (core.Loan, error) {
	var l core.Loan
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, bank_name, total_amount FROM loans WHERE id = ?`, id).
		Scan(&l.ID, &l.BankName, &total)
	if err == sql.ErrNoRows {
		return core.Loan{}, core.ErrLoanNotFound
	}
	if err != nil {
		return core.Loan{}, fmt.Errorf("get loan: %w", err)
	}
	l.TotalAmount = core.Money(total)
	l.Installments, err = r.listInstallments(ctx, id)
	if err != nil {
		return core.Loan{}, err
	}
	return l, nil
}

func (r *Repository) ListLoans(ctx context.Context) ([]core.Loan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, bank_name, total_amount FROM loans ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var loans []core.Loan
	for rows.Next() {
		var l core.Loan
		var total int64
		if err := rows.Scan(&l.ID, &l.BankName, &total); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		l.TotalAmount = core.Money(total)
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range loans {
		loans[i].Installments, err = r.listInstallments(ctx, loans[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return loans, nil
}

func (r *Repository) listInstallments(ctx context.Context, loanID int64) ([]core.Installment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, jyear, jmonth, jday, amount, is_paid
		 FROM installments WHERE loan_id = ? ORDER BY seq`, loanID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	var installments []core.Installment
	for rows.Next() {
		var inst core.Installment
		var amount int64
		if err := rows.Scan(&inst.Sequence,
			&inst.DueDate.Year, &inst.DueDate.Month, &inst.DueDate.Day,
			&amount, &inst.IsPaid); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		inst.Amount = core.Money(amount)
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

// --- bulk state replacement ---

// ReplaceAll wipes every table and installs the given state, keeping the
// entity IDs from the snapshot. Used by restore and by the legacy data
// migration; runs in one transaction so a bad snapshot leaves the
// previous state untouched.
func (r *Repository) ReplaceAll(ctx context.Context, accounts []core.Account, txs []core.Transaction, loans []core.Loan, assets []core.Asset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"installments", "loans", "assets", "transactions", "accounts"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, a := range accounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, name, kind, balance) VALUES (?, ?, ?, ?)`,
			a.ID, a.Name, string(a.Kind), int64(a.Balance)); err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
	}
	for _, t := range txs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, kind, amount, title, tags, account_id, target_account_id, jyear, jmonth, jday, timestamp_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, string(t.Kind), int64(t.Amount), t.Title, encodeTags(t.Tags),
			t.AccountID, t.TargetAccountID,
			t.Date.Year, t.Date.Month, t.Date.Day, t.Timestamp); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
	}
	for _, l := range loans {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO loans (id, bank_name, total_amount) VALUES (?, ?, ?)`,
			l.ID, l.BankName, int64(l.TotalAmount)); err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}
		if err := insertInstallments(ctx, tx, l.ID, l.Installments); err != nil {
			return err
		}
	}
	for _, a := range assets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assets (id, name, value) VALUES (?, ?, ?)`,
			a.ID, a.Name, int64(a.Value)); err != nil {
			return fmt.Errorf("insert asset: %w", err)
		}
	}

	return tx.Commit()
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
