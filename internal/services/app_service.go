// Package services orchestrates the tracker's use cases over SQLite and
// AMQP. Every mutation validates first, applies atomically through the
// repository, then publishes a change event; a missing or failing
// broker never fails the request.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"paydo/internal/amqp"
	"paydo/internal/budget"
	"paydo/internal/core"
	"paydo/internal/jalali"
	"paydo/internal/loan"
	"paydo/internal/snapshot"
	"paydo/internal/storage"
)

// DefaultAccountName is the cash account seeded on first run and after
// a reset.
const DefaultAccountName = "کیف پول نقدی"

// AppService orchestrates tracker operations across SQLite and AMQP.
type AppService struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
}

func NewAppService(storage *storage.Repository, amqpClient *amqp.Client) *AppService {
	return &AppService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// EnsureSeedData creates the default cash account when the database is
// empty, so the tracker is usable on first run.
func (s *AppService) EnsureSeedData(ctx context.Context) error {
	n, err := s.storage.CountAccounts(ctx)
	if err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = s.storage.CreateAccount(ctx, core.Account{Name: DefaultAccountName, Kind: core.Cash})
	if err != nil {
		return fmt.Errorf("seed default account: %w", err)
	}
	slog.InfoContext(ctx, "seeded default account", "name", DefaultAccountName)
	return nil
}

// --- transactions ---

// AddTransaction validates, fills defaults (today's date, current
// timestamp, the default tag), applies the balance effects atomically
// and publishes a change event.
//
// Balance effects: expense subtracts from the source account, income
// adds to it, transfer moves the amount from source to target.
func (s *AppService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if len(t.Tags) == 0 {
		t.Tags = []string{core.DefaultTag}
	}
	if t.Date.IsZero() {
		t.Date = jalali.Today()
	}
	if t.Timestamp == 0 {
		t.Timestamp = time.Now().UnixMilli()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	deltas := map[int64]core.Money{}
	switch t.Kind {
	case core.Expense:
		deltas[t.AccountID] = -t.Amount
	case core.Income:
		deltas[t.AccountID] = t.Amount
	case core.Transfer:
		deltas[t.AccountID] = -t.Amount
		deltas[t.TargetAccountID] = t.Amount
	}

	id, err := s.storage.AddTransaction(ctx, t, deltas)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id

	s.publishChange(ctx, amqp.EntityTransaction, "create", id)
	return t, nil
}

// Transactions returns the ledger newest first.
func (s *AppService) Transactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp > txs[j].Timestamp })
	return txs, nil
}

// SearchTransactions filters the ledger by a substring match on the
// title or any tag. Persian digits in the query are normalized so
// amounts typed either way match.
func (s *AppService) SearchTransactions(ctx context.Context, query string) ([]core.Transaction, error) {
	txs, err := s.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return txs, nil
	}
	var out []core.Transaction
	for _, t := range txs {
		if matchesQuery(t, query) {
			out = append(out, t)
		}
	}
	return out, nil
}

func matchesQuery(t core.Transaction, query string) bool {
	if strings.Contains(t.Title, query) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(tag, query) {
			return true
		}
	}
	return false
}

// MonthReport aggregates one Jalali month of the ledger, offset months
// away from the current one.
func (s *AppService) MonthReport(ctx context.Context, offset int, kind core.TransactionKind) (budget.Report, error) {
	if !kind.Valid() {
		return budget.Report{}, core.ErrInvalidKind
	}
	txs, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return budget.Report{}, err
	}
	focus := budget.Focus(time.Now(), offset)
	return budget.Aggregate(txs, focus.Year, focus.Month, kind), nil
}

// --- accounts ---

func (s *AppService) Accounts(ctx context.Context) ([]core.Account, error) {
	return s.storage.ListAccounts(ctx)
}

func (s *AppService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	id, err := s.storage.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, err
	}
	a.ID = id
	s.publishChange(ctx, amqp.EntityAccount, "create", id)
	return a, nil
}

func (s *AppService) UpdateAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdateAccount(ctx, a); err != nil {
		return err
	}
	s.publishChange(ctx, amqp.EntityAccount, "update", a.ID)
	return nil
}

// DeleteAccount removes an account. The last remaining account cannot
// be deleted; the tracker always keeps at least one.
func (s *AppService) DeleteAccount(ctx context.Context, id int64) error {
	n, err := s.storage.CountAccounts(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return core.ErrLastAccount
	}
	if err := s.storage.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.publishChange(ctx, amqp.EntityAccount, "delete", id)
	return nil
}

// --- assets ---

func (s *AppService) Assets(ctx context.Context) ([]core.Asset, error) {
	return s.storage.ListAssets(ctx)
}

func (s *AppService) CreateAsset(ctx context.Context, a core.Asset) (core.Asset, error) {
	if err := a.Validate(); err != nil {
		return core.Asset{}, err
	}
	id, err := s.storage.CreateAsset(ctx, a)
	if err != nil {
		return core.Asset{}, err
	}
	a.ID = id
	s.publishChange(ctx, amqp.EntityAsset, "create", id)
	return a, nil
}

func (s *AppService) UpdateAsset(ctx context.Context, a core.Asset) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdateAsset(ctx, a); err != nil {
		return err
	}
	s.publishChange(ctx, amqp.EntityAsset, "update", a.ID)
	return nil
}

func (s *AppService) DeleteAsset(ctx context.Context, id int64) error {
	if err := s.storage.DeleteAsset(ctx, id); err != nil {
		return err
	}
	s.publishChange(ctx, amqp.EntityAsset, "delete", id)
	return nil
}

// --- loans ---

// LoanView pairs a loan with its derived repayment progress.
type LoanView struct {
	core.Loan
	Progress loan.Progress `json:"progress"`
}

func (s *AppService) Loans(ctx context.Context) ([]LoanView, error) {
	loans, err := s.storage.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]LoanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, LoanView{Loan: l, Progress: loan.ComputeProgress(l)})
	}
	return views, nil
}

func (s *AppService) Loan(ctx context.Context, id int64) (LoanView, error) {
	l, err := s.storage.GetLoan(ctx, id)
	if err != nil {
		return LoanView{}, err
	}
	return LoanView{Loan: l, Progress: loan.ComputeProgress(l)}, nil
}

// CreateLoan generates the installment schedule and persists the loan.
// A zero amount asks for the suggested default, ceil(total/count).
func (s *AppService) CreateLoan(ctx context.Context, bankName string, total core.Money, count int, start jalali.Date, amount core.Money) (core.Loan, error) {
	l := core.Loan{BankName: strings.TrimSpace(bankName), TotalAmount: total}
	if err := l.Validate(); err != nil {
		return core.Loan{}, err
	}
	if count < 1 {
		return core.Loan{}, core.ErrInvalidCount
	}
	if amount == 0 {
		amount = loan.SuggestAmount(total, count)
	}
	schedule, err := loan.Generate(total, count, start, amount)
	if err != nil {
		return core.Loan{}, err
	}
	l.Installments = schedule

	id, err := s.storage.CreateLoan(ctx, l)
	if err != nil {
		return core.Loan{}, fmt.Errorf("save loan: %w", err)
	}
	l.ID = id
	s.publishChange(ctx, amqp.EntityLoan, "create", id)
	return l, nil
}

func (s *AppService) UpdateLoanInfo(ctx context.Context, id int64, bankName string, total core.Money) error {
	l := core.Loan{BankName: strings.TrimSpace(bankName), TotalAmount: total}
	if err := l.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdateLoanInfo(ctx, id, l.BankName, l.TotalAmount); err != nil {
		return err
	}
	s.publishChange(ctx, amqp.EntityLoan, "update", id)
	return nil
}

func (s *AppService) DeleteLoan(ctx context.Context, id int64) error {
	if err := s.storage.DeleteLoan(ctx, id); err != nil {
		return err
	}
	s.publishChange(ctx, amqp.EntityLoan, "delete", id)
	return nil
}

// EditInstallment replaces one installment's fields. Index is the
// 0-based position in the schedule.
func (s *AppService) EditInstallment(ctx context.Context, loanID int64, index int, due jalali.Date, amount core.Money, isPaid bool) error {
	return s.mutateSchedule(ctx, loanID, func(l *core.Loan) error {
		return loan.Edit(l, index, due, amount, isPaid)
	})
}

// SetInstallmentPaid marks one installment paid or unpaid.
func (s *AppService) SetInstallmentPaid(ctx context.Context, loanID int64, index int, paid bool) error {
	return s.mutateSchedule(ctx, loanID, func(l *core.Loan) error {
		if index < 0 || index >= len(l.Installments) {
			return core.ErrIndexOutOfRange
		}
		l.Installments[index].IsPaid = paid
		return nil
	})
}

// RemoveInstallment deletes one installment and renumbers the rest.
func (s *AppService) RemoveInstallment(ctx context.Context, loanID int64, index int) error {
	return s.mutateSchedule(ctx, loanID, func(l *core.Loan) error {
		return loan.RemoveAt(l, index)
	})
}

// AppendInstallment adds one installment after the current last, due
// one month later with the same amount.
func (s *AppService) AppendInstallment(ctx context.Context, loanID int64) (core.Installment, error) {
	var added core.Installment
	err := s.mutateSchedule(ctx, loanID, func(l *core.Loan) error {
		added = loan.AppendNext(l)
		return nil
	})
	if err != nil {
		return core.Installment{}, err
	}
	return added, nil
}

// mutateSchedule loads the loan, applies fn to its schedule and writes
// the whole schedule back, so sequence numbering is re-persisted as a
// unit.
func (s *AppService) mutateSchedule(ctx context.Context, loanID int64, fn func(*core.Loan) error) error {
	l, err := s.storage.GetLoan(ctx, loanID)
	if err != nil {
		return err
	}
	if err := fn(&l); err != nil {
		return err
	}
	if err := s.storage.ReplaceInstallments(ctx, loanID, l.Installments); err != nil {
		return err
	}
	s.publishChange(ctx, amqp.EntityLoan, "update", loanID)
	return nil
}

// --- whole state ---

// ExportState reads the full tracker state for a snapshot.
func (s *AppService) ExportState(ctx context.Context) (snapshot.State, error) {
	accounts, err := s.storage.ListAccounts(ctx)
	if err != nil {
		return snapshot.State{}, err
	}
	txs, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return snapshot.State{}, err
	}
	loans, err := s.storage.ListLoans(ctx)
	if err != nil {
		return snapshot.State{}, err
	}
	assets, err := s.storage.ListAssets(ctx)
	if err != nil {
		return snapshot.State{}, err
	}
	return snapshot.State{
		Accounts:     accounts,
		Transactions: txs,
		Loans:        loans,
		Assets:       assets,
	}, nil
}

// RestoreState replaces the whole tracker state with the given
// snapshot. An empty account list is topped up with the default
// account so the tracker never ends up accountless.
func (s *AppService) RestoreState(ctx context.Context, state snapshot.State) error {
	if len(state.Accounts) == 0 {
		state.Accounts = []core.Account{{ID: 1, Name: DefaultAccountName, Kind: core.Cash}}
	}
	if err := s.storage.ReplaceAll(ctx, state.Accounts, state.Transactions, state.Loans, state.Assets); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	s.publishChange(ctx, amqp.EntityState, "restore", 0)
	return nil
}

// Reset wipes everything back to a single empty default account.
func (s *AppService) Reset(ctx context.Context) error {
	defaults := []core.Account{{ID: 1, Name: DefaultAccountName, Kind: core.Cash}}
	if err := s.storage.ReplaceAll(ctx, defaults, nil, nil, nil); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	s.publishChange(ctx, amqp.EntityState, "reset", 0)
	return nil
}

func (s *AppService) publishChange(ctx context.Context, entity, op string, id int64) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping change message",
			"entity", entity, "op", op)
		return
	}
	if err := s.amqpClient.PublishChange(ctx, entity, op, id); err != nil {
		// The mutation is already committed locally.
		slog.ErrorContext(ctx, "failed to publish change message",
			"entity", entity, "op", op, "id", id, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *AppService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close app service: %v", errs)
	}

	return nil
}
