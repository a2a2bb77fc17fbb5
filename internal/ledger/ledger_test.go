package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-library-api/internal/domain"
)

// memStore is a deterministic in-memory Store. InTx runs fn against the
// same instance; tests are single-goroutine so the lock semantics of the
// real store are irrelevant here.
type memStore struct {
	books   map[string]*domain.Book
	borrows []*domain.Borrow
}

func newMemStore(books ...domain.Book) *memStore {
	m := &memStore{books: map[string]*domain.Book{}}
	for i := range books {
		b := books[i]
		m.books[b.ISBN] = &b
	}
	return m
}

var _ Store = (*memStore)(nil)

func (m *memStore) InTx(ctx context.Context, fn func(tx Store) error) error { return fn(m) }

func (m *memStore) FindBook(_ context.Context, isbn string) (*domain.Book, error) {
	return m.books[isbn], nil
}

func (m *memStore) FindBookForUpdate(ctx context.Context, isbn string) (*domain.Book, error) {
	return m.FindBook(ctx, isbn)
}

func (m *memStore) CountActiveBorrows(_ context.Context, isbn string) (int64, error) {
	var n int64
	for _, b := range m.borrows {
		if b.BookISBN == isbn && b.ReturnDate == nil {
			n++
		}
	}
	return n, nil
}

func (m *memStore) FindActiveBorrow(_ context.Context, email, isbn string) (*domain.Borrow, error) {
	for _, b := range m.borrows {
		if b.UserEmail == email && b.BookISBN == isbn && b.ReturnDate == nil {
			return b, nil
		}
	}
	return nil, nil
}

func (m *memStore) InsertBorrow(_ context.Context, b *domain.Borrow) error {
	cp := *b
	m.borrows = append(m.borrows, &cp)
	return nil
}

func (m *memStore) CloseActiveBorrows(_ context.Context, email, isbn string, at time.Time) (int64, error) {
	var n int64
	for _, b := range m.borrows {
		if b.UserEmail == email && b.BookISBN == isbn && b.ReturnDate == nil {
			t := at
			b.ReturnDate = &t
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListOverdue(_ context.Context, now time.Time, offset, limit int) ([]domain.OverdueEntry, error) {
	var rows []domain.OverdueEntry
	for _, b := range m.borrows {
		if b.ReturnDate == nil && b.DueDate.Before(now) {
			title := ""
			if bk := m.books[b.BookISBN]; bk != nil {
				title = bk.Title
			}
			rows = append(rows, domain.OverdueEntry{
				UserEmail: b.UserEmail,
				BookISBN:  b.BookISBN,
				Title:     title,
				DueDate:   b.DueDate,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].DueDate.Equal(rows[j].DueDate) {
			return rows[i].DueDate.Before(rows[j].DueDate)
		}
		if rows[i].UserEmail != rows[j].UserEmail {
			return rows[i].UserEmail < rows[j].UserEmail
		}
		return rows[i].BookISBN < rows[j].BookISBN
	})
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memStore) ListActiveByUser(_ context.Context, email string) ([]domain.Borrow, error) {
	var out []domain.Borrow
	for _, b := range m.borrows {
		if b.UserEmail == email && b.ReturnDate == nil {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) BorrowsSince(_ context.Context, since time.Time) ([]domain.Borrow, error) {
	var out []domain.Borrow
	for _, b := range m.borrows {
		if !b.BorrowDate.Before(since) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) ReturnsSince(_ context.Context, since time.Time) ([]domain.Borrow, error) {
	var out []domain.Borrow
	for _, b := range m.borrows {
		if b.ReturnDate != nil && !b.ReturnDate.Before(since) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) DueSince(_ context.Context, since time.Time) ([]domain.Borrow, error) {
	var out []domain.Borrow
	for _, b := range m.borrows {
		if !b.DueDate.Before(since) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) BookTitles(_ context.Context, isbns []string) (map[string]string, error) {
	titles := map[string]string{}
	for _, isbn := range isbns {
		if b := m.books[isbn]; b != nil {
			titles[isbn] = b.Title
		}
	}
	return titles, nil
}

// --- helpers ---

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestLedger(store Store) *Ledger {
	return New(store, nil, Options{Now: func() time.Time { return testNow }})
}

const (
	isbnMockingbird = "978-0-06-112008-4"
	isbnGatsby      = "978-0-7432-7356-5"
)

func testBooks() []domain.Book {
	return []domain.Book{
		{ISBN: isbnMockingbird, Title: "To Kill a Mockingbird", Author: "Harper Lee", TotalQuantity: 5},
		{ISBN: isbnGatsby, Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", TotalQuantity: 1},
	}
}

// --- availability ---

func TestAvailability(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	l := newTestLedger(store)

	av, err := l.Availability(ctx, isbnMockingbird)
	require.NoError(t, err)
	require.Equal(t, 5, av.TotalQuantity)
	require.Equal(t, 5, av.AvailableQuantity)

	_, err = l.Borrow(ctx, "alice@example.com", isbnMockingbird)
	require.NoError(t, err)
	_, err = l.Borrow(ctx, "bob@example.com", isbnMockingbird)
	require.NoError(t, err)

	av, err = l.Availability(ctx, isbnMockingbird)
	require.NoError(t, err)
	require.Equal(t, 3, av.AvailableQuantity)
}

func TestAvailability_UnknownISBN(t *testing.T) {
	l := newTestLedger(newMemStore(testBooks()...))
	_, err := l.Availability(context.Background(), "no-such-isbn")
	require.ErrorIs(t, err, ErrBookNotFound)
}

// --- borrow admission ---

func TestBorrow_BookNotFound(t *testing.T) {
	store := newMemStore(testBooks()...)
	l := newTestLedger(store)
	_, err := l.Borrow(context.Background(), "alice@example.com", "no-such-isbn")
	require.ErrorIs(t, err, ErrBookNotFound)
	require.Empty(t, store.borrows)
}

func TestBorrow_NoCopiesAvailable(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	l := newTestLedger(store)

	_, err := l.Borrow(ctx, "alice@example.com", isbnGatsby)
	require.NoError(t, err)

	_, err = l.Borrow(ctx, "bob@example.com", isbnGatsby)
	require.ErrorIs(t, err, ErrBookUnavailable)
	require.Len(t, store.borrows, 1)
}

func TestBorrow_DuplicateActive(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	l := newTestLedger(store)

	_, err := l.Borrow(ctx, "alice@example.com", isbnMockingbird)
	require.NoError(t, err)

	_, err = l.Borrow(ctx, "alice@example.com", isbnMockingbird)
	require.ErrorIs(t, err, ErrAlreadyBorrowed)
	require.Len(t, store.borrows, 1)
}

func TestBorrow_SetsDueDate(t *testing.T) {
	store := newMemStore(testBooks()...)
	l := newTestLedger(store)

	b, err := l.Borrow(context.Background(), "alice@example.com", isbnMockingbird)
	require.NoError(t, err)
	require.Equal(t, testNow, b.BorrowDate)
	require.Equal(t, testNow.Add(DefaultLoanPeriod), b.DueDate)
	require.Nil(t, b.ReturnDate)
	require.NotEmpty(t, b.ID)
}

func TestBorrow_CustomLoanPeriod(t *testing.T) {
	store := newMemStore(testBooks()...)
	l := New(store, nil, Options{
		LoanPeriod: 7 * 24 * time.Hour,
		Now:        func() time.Time { return testNow },
	})
	b, err := l.Borrow(context.Background(), "alice@example.com", isbnMockingbird)
	require.NoError(t, err)
	require.Equal(t, testNow.AddDate(0, 0, 7), b.DueDate)
}

type insertFailStore struct {
	*memStore
	insertErr error
}

func (s *insertFailStore) InsertBorrow(context.Context, *domain.Borrow) error { return s.insertErr }

func (s *insertFailStore) InTx(_ context.Context, fn func(tx Store) error) error { return fn(s) }

func TestBorrow_UniqueIndexRaceMapsToConflict(t *testing.T) {
	store := &insertFailStore{
		memStore:  newMemStore(testBooks()...),
		insertErr: errors.New(`duplicate key value violates unique constraint "ux_active_borrow"`),
	}
	l := newTestLedger(store)
	_, err := l.Borrow(context.Background(), "alice@example.com", isbnMockingbird)
	require.ErrorIs(t, err, ErrAlreadyBorrowed)
}

// --- return admission ---

func TestReturn_NoActiveBorrow(t *testing.T) {
	store := newMemStore(testBooks()...)
	l := newTestLedger(store)
	err := l.Return(context.Background(), "alice@example.com", isbnMockingbird)
	require.ErrorIs(t, err, ErrNoActiveBorrow)
	require.Empty(t, store.borrows)
}

func TestReturn_RestoresAvailabilityAndAllowsReborrow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	l := newTestLedger(store)

	before, err := l.Availability(ctx, isbnGatsby)
	require.NoError(t, err)

	_, err = l.Borrow(ctx, "alice@example.com", isbnGatsby)
	require.NoError(t, err)
	require.NoError(t, l.Return(ctx, "alice@example.com", isbnGatsby))

	after, err := l.Availability(ctx, isbnGatsby)
	require.NoError(t, err)
	require.Equal(t, before.AvailableQuantity, after.AvailableQuantity)

	// the first borrow is closed, so the same pair may borrow again
	_, err = l.Borrow(ctx, "alice@example.com", isbnGatsby)
	require.NoError(t, err)
}

func TestReturn_SetsReturnDateOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	l := newTestLedger(store)

	_, err := l.Borrow(ctx, "alice@example.com", isbnMockingbird)
	require.NoError(t, err)
	require.NoError(t, l.Return(ctx, "alice@example.com", isbnMockingbird))
	require.NotNil(t, store.borrows[0].ReturnDate)
	require.Equal(t, testNow, *store.borrows[0].ReturnDate)

	// second return finds nothing active
	err = l.Return(ctx, "alice@example.com", isbnMockingbird)
	require.ErrorIs(t, err, ErrNoActiveBorrow)
}

func TestReturn_ClosesEveryMatchingActiveRow(t *testing.T) {
	// A prior invariant violation left two active rows for the pair; the
	// guarded update closes both.
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	for i := 0; i < 2; i++ {
		_ = store.InsertBorrow(ctx, &domain.Borrow{
			ID: fmt.Sprintf("b%d", i), UserEmail: "alice@example.com", BookISBN: isbnMockingbird,
			BorrowDate: testNow.AddDate(0, 0, -3), DueDate: testNow.AddDate(0, 0, 11),
		})
	}
	l := newTestLedger(store)
	require.NoError(t, l.Return(ctx, "alice@example.com", isbnMockingbird))
	for _, b := range store.borrows {
		require.NotNil(t, b.ReturnDate)
	}
}

// --- scenarios ---

func TestBorrow_FiveCopiesThenConflict(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	l := newTestLedger(store)

	for i := 0; i < 5; i++ {
		_, err := l.Borrow(ctx, fmt.Sprintf("user%02d@example.com", i), isbnMockingbird)
		require.NoError(t, err)
	}
	av, err := l.Availability(ctx, isbnMockingbird)
	require.NoError(t, err)
	require.Equal(t, 0, av.AvailableQuantity)

	_, err = l.Borrow(ctx, "user99@example.com", isbnMockingbird)
	require.ErrorIs(t, err, ErrBookUnavailable)
}

func TestListOverdue_PaginationIsStable(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	for i := 0; i < 15; i++ {
		_ = store.InsertBorrow(ctx, &domain.Borrow{
			ID:         fmt.Sprintf("b%02d", i),
			UserEmail:  fmt.Sprintf("user%02d@example.com", i),
			BookISBN:   isbnMockingbird,
			BorrowDate: testNow.AddDate(0, 0, -30+i),
			DueDate:    testNow.AddDate(0, 0, -16+i), // all in the past
		})
	}
	l := newTestLedger(store)

	page1, err := l.ListOverdue(ctx, 1, 10)
	require.NoError(t, err)
	page2, err := l.ListOverdue(ctx, 2, 10)
	require.NoError(t, err)

	require.Len(t, page1, 10)
	require.Len(t, page2, 5)

	seen := map[string]bool{}
	for _, e := range append(page1, page2...) {
		key := e.UserEmail + "|" + e.BookISBN
		require.False(t, seen[key], "row %s appeared twice", key)
		seen[key] = true
	}
	require.Len(t, seen, 15)

	// due_date ascending within and across pages
	all := append(append([]domain.OverdueEntry(nil), page1...), page2...)
	for i := 1; i < len(all); i++ {
		require.False(t, all[i].DueDate.Before(all[i-1].DueDate))
	}
	require.Equal(t, "To Kill a Mockingbird", all[0].Title)
}

func TestListOverdue_ExcludesReturnedAndFutureDue(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	ret := testNow.AddDate(0, 0, -1)
	_ = store.InsertBorrow(ctx, &domain.Borrow{
		ID: "returned", UserEmail: "alice@example.com", BookISBN: isbnMockingbird,
		BorrowDate: testNow.AddDate(0, 0, -20), DueDate: testNow.AddDate(0, 0, -6), ReturnDate: &ret,
	})
	_ = store.InsertBorrow(ctx, &domain.Borrow{
		ID: "future", UserEmail: "bob@example.com", BookISBN: isbnMockingbird,
		BorrowDate: testNow.AddDate(0, 0, -1), DueDate: testNow.AddDate(0, 0, 13),
	})
	l := newTestLedger(store)

	rows, err := l.ListOverdue(ctx, 1, 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestActiveBorrows(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	l := newTestLedger(store)

	_, err := l.Borrow(ctx, "alice@example.com", isbnMockingbird)
	require.NoError(t, err)
	_, err = l.Borrow(ctx, "alice@example.com", isbnGatsby)
	require.NoError(t, err)
	require.NoError(t, l.Return(ctx, "alice@example.com", isbnGatsby))

	open, err := l.ActiveBorrows(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, isbnMockingbird, open[0].BookISBN)
}
