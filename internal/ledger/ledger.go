// Package ledger owns the borrow/return state transitions and everything
// derived from them: availability, overdue classification, and the borrowing
// statistics. It is the only place where the admission rules live; the HTTP
// layer is a thin shell around it.
package ledger

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-library-api/internal/domain"
	"go-library-api/pkg/utils"
)

// DefaultLoanPeriod is the single operational loan period. The 30-day figure
// that shows up in some historical fixtures is fixture-only and must not leak
// into borrow paths.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// Store is the persistence surface the ledger depends on. Implementations
// must make InTx run fn against a transaction-scoped Store; the *ForUpdate
// lookup must take a row lock inside such a transaction.
type Store interface {
	FindBook(ctx context.Context, isbn string) (*domain.Book, error)
	FindBookForUpdate(ctx context.Context, isbn string) (*domain.Book, error)
	CountActiveBorrows(ctx context.Context, isbn string) (int64, error)
	FindActiveBorrow(ctx context.Context, email, isbn string) (*domain.Borrow, error)
	InsertBorrow(ctx context.Context, b *domain.Borrow) error

	// CloseActiveBorrows sets return_date on every active row for the pair and
	// reports how many rows it touched. The predicate and the mutation are one
	// statement, so there is no check-then-update race.
	CloseActiveBorrows(ctx context.Context, email, isbn string, at time.Time) (int64, error)

	ListOverdue(ctx context.Context, now time.Time, offset, limit int) ([]domain.OverdueEntry, error)
	ListActiveByUser(ctx context.Context, email string) ([]domain.Borrow, error)

	BorrowsSince(ctx context.Context, since time.Time) ([]domain.Borrow, error)
	ReturnsSince(ctx context.Context, since time.Time) ([]domain.Borrow, error)
	DueSince(ctx context.Context, since time.Time) ([]domain.Borrow, error)
	BookTitles(ctx context.Context, isbns []string) (map[string]string, error)

	InTx(ctx context.Context, fn func(tx Store) error) error
}

type Ledger struct {
	store      Store
	log        *zap.Logger
	loanPeriod time.Duration
	topN       int
	now        func() time.Time
}

type Options struct {
	LoanPeriod time.Duration // 0 means DefaultLoanPeriod
	TopN       int           // 0 means 10
	Now        func() time.Time
}

func New(store Store, log *zap.Logger, opts Options) *Ledger {
	if opts.LoanPeriod <= 0 {
		opts.LoanPeriod = DefaultLoanPeriod
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		store:      store,
		log:        log,
		loanPeriod: opts.LoanPeriod,
		topN:       opts.TopN,
		now:        opts.Now,
	}
}

// Availability reports total and derived available copies for one ISBN.
func (l *Ledger) Availability(ctx context.Context, isbn string) (domain.Availability, error) {
	book, err := l.store.FindBook(ctx, isbn)
	if err != nil {
		return domain.Availability{}, err
	}
	if book == nil {
		return domain.Availability{}, ErrBookNotFound
	}
	active, err := l.store.CountActiveBorrows(ctx, isbn)
	if err != nil {
		return domain.Availability{}, err
	}
	return domain.Availability{
		ISBN:              book.ISBN,
		TotalQuantity:     book.TotalQuantity,
		AvailableQuantity: book.TotalQuantity - int(active),
	}, nil
}

// Borrow admits a loan. Preconditions in order, first failure wins:
// the book exists, a copy is available, and the user holds no active borrow
// of the same ISBN. The whole check-and-insert runs in one transaction with
// the book row locked, so two requests racing for the last copy (or the same
// pair) cannot both succeed.
func (l *Ledger) Borrow(ctx context.Context, email, isbn string) (*domain.Borrow, error) {
	var out *domain.Borrow
	err := l.store.InTx(ctx, func(tx Store) error {
		book, err := tx.FindBookForUpdate(ctx, isbn)
		if err != nil {
			return err
		}
		if book == nil {
			return ErrBookNotFound
		}
		active, err := tx.CountActiveBorrows(ctx, isbn)
		if err != nil {
			return err
		}
		if book.TotalQuantity-int(active) <= 0 {
			return ErrBookUnavailable
		}
		dup, err := tx.FindActiveBorrow(ctx, email, isbn)
		if err != nil {
			return err
		}
		if dup != nil {
			return ErrAlreadyBorrowed
		}
		now := l.now()
		b := &domain.Borrow{
			ID:         utils.NewID(),
			UserEmail:  email,
			BookISBN:   isbn,
			BorrowDate: now,
			DueDate:    now.Add(l.loanPeriod),
		}
		if err := tx.InsertBorrow(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		// The partial unique index is the backstop for concurrent duplicates.
		if isDupKey(err) {
			return nil, ErrAlreadyBorrowed
		}
		return nil, err
	}
	l.log.Info("borrow recorded",
		zap.String("user", out.UserEmail),
		zap.String("isbn", out.BookISBN),
		zap.Time("due", out.DueDate),
	)
	return out, nil
}

// Return closes the active borrow for the pair. Under the one-active-borrow
// invariant a single row matches; if a prior violation left more than one,
// all of them are closed in the same guarded update.
func (l *Ledger) Return(ctx context.Context, email, isbn string) error {
	n, err := l.store.CloseActiveBorrows(ctx, email, isbn, l.now())
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoActiveBorrow
	}
	if n > 1 {
		l.log.Warn("closed more than one active borrow for pair",
			zap.String("user", email), zap.String("isbn", isbn), zap.Int64("rows", n))
	}
	return nil
}

// ListOverdue pages through active borrows whose due date has passed.
// Ordering is due_date asc, then (user_email, book_isbn), so identical data
// pages identically. page >= 1 and pageSize in [1,100] are the caller's
// responsibility per the transport contract; out-of-range values are clamped
// rather than rejected here.
func (l *Ledger) ListOverdue(ctx context.Context, page, pageSize int) ([]domain.OverdueEntry, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return l.store.ListOverdue(ctx, l.now(), (page-1)*pageSize, pageSize)
}

// ActiveBorrows lists a user's open loans, due soonest first.
func (l *Ledger) ActiveBorrows(ctx context.Context, email string) ([]domain.Borrow, error) {
	return l.store.ListActiveByUser(ctx, email)
}

// Now exposes the ledger clock so callers classify with the same notion of
// "current moment" the ledger uses.
func (l *Ledger) Now() time.Time { return l.now() }

func isDupKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}
