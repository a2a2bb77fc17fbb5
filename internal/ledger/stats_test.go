package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-library-api/internal/domain"
)

func day(offset int) time.Time { return testNow.AddDate(0, 0, offset) }

func ptr(t time.Time) *time.Time { return &t }

func TestDailyCounts(t *testing.T) {
	rows := []domain.Borrow{
		{BorrowDate: day(-2)},
		{BorrowDate: day(-2).Add(3 * time.Hour)},
		{BorrowDate: day(0)},
	}
	got := dailyCounts(rows, borrowDay)
	require.Equal(t, []DailyCount{
		{Day: "2025-05-30", Count: 2},
		{Day: "2025-06-01", Count: 1},
	}, got)
}

func TestDailyCounts_SkipsUnreturned(t *testing.T) {
	rows := []domain.Borrow{
		{ReturnDate: ptr(day(-1))},
		{ReturnDate: nil},
	}
	got := dailyCounts(rows, returnDay)
	require.Equal(t, []DailyCount{{Day: "2025-05-31", Count: 1}}, got)
}

func TestTopBooks_RanksByCountThenISBN(t *testing.T) {
	rows := []domain.Borrow{
		{BookISBN: "B"},
		{BookISBN: "A"}, {BookISBN: "A"}, {BookISBN: "A"},
		{BookISBN: "D"}, {BookISBN: "C"},
	}
	got := topBooks(rows, 10)
	require.Equal(t, []BookCount{
		{ISBN: "A", Count: 3},
		{ISBN: "B", Count: 1},
		{ISBN: "C", Count: 1},
		{ISBN: "D", Count: 1},
	}, got)
}

func TestTopBooks_Truncates(t *testing.T) {
	rows := []domain.Borrow{{BookISBN: "A"}, {BookISBN: "B"}, {BookISBN: "C"}}
	require.Len(t, topBooks(rows, 2), 2)
}

func TestTopUsers_TiesByEmail(t *testing.T) {
	rows := []domain.Borrow{
		{UserEmail: "bob@example.com"},
		{UserEmail: "alice@example.com"},
	}
	got := topUsers(rows, 10)
	require.Equal(t, "alice@example.com", got[0].UserEmail)
	require.Equal(t, "bob@example.com", got[1].UserEmail)
}

func TestOverdueDaily(t *testing.T) {
	rows := []domain.Borrow{
		// still out, due passed: counts
		{DueDate: day(-3)},
		// returned late: counts
		{DueDate: day(-3), ReturnDate: ptr(day(-1))},
		// returned on the due date: not overdue
		{DueDate: day(-5), ReturnDate: ptr(day(-5))},
		// due in the future: not overdue yet
		{DueDate: day(7)},
	}
	got := overdueDaily(rows, testNow)
	require.Equal(t, []DailyCount{{Day: "2025-05-29", Count: 2}}, got)
}

func TestMostOverdueUsers_OnlyCurrentlyOverdue(t *testing.T) {
	rows := []domain.Borrow{
		{UserEmail: "alice@example.com", DueDate: day(-4)},
		{UserEmail: "alice@example.com", DueDate: day(-2)},
		// late but returned: no longer held against the user
		{UserEmail: "bob@example.com", DueDate: day(-4), ReturnDate: ptr(day(-1))},
		{UserEmail: "carol@example.com", DueDate: day(-1)},
	}
	got := mostOverdueUsers(rows, testNow, 10)
	require.Equal(t, []UserCount{
		{UserEmail: "alice@example.com", Count: 2},
		{UserEmail: "carol@example.com", Count: 1},
	}, got)
}

func TestBorrowStats(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	for i := 0; i < 3; i++ {
		_ = store.InsertBorrow(ctx, &domain.Borrow{
			UserEmail: "alice@example.com", BookISBN: isbnMockingbird, BorrowDate: day(-2),
		})
	}
	_ = store.InsertBorrow(ctx, &domain.Borrow{
		UserEmail: "bob@example.com", BookISBN: isbnGatsby,
		BorrowDate: day(-1), ReturnDate: ptr(day(0)),
	})
	// outside the window, must not show up
	_ = store.InsertBorrow(ctx, &domain.Borrow{
		UserEmail: "old@example.com", BookISBN: isbnGatsby, BorrowDate: day(-40),
	})
	l := newTestLedger(store)

	rep, err := l.BorrowStats(ctx, day(-30))
	require.NoError(t, err)

	require.Equal(t, []DailyCount{
		{Day: "2025-05-30", Count: 3},
		{Day: "2025-05-31", Count: 1},
	}, rep.Borrows)
	require.Equal(t, []DailyCount{{Day: "2025-06-01", Count: 1}}, rep.Returns)

	require.Len(t, rep.MostPopularBooks, 2)
	require.Equal(t, isbnMockingbird, rep.MostPopularBooks[0].ISBN)
	require.Equal(t, "To Kill a Mockingbird", rep.MostPopularBooks[0].Title)
	require.Equal(t, 3, rep.MostPopularBooks[0].Count)

	require.Equal(t, []UserCount{
		{UserEmail: "alice@example.com", Count: 3},
		{UserEmail: "bob@example.com", Count: 1},
	}, rep.MostBorrowingUsers)
}

func TestOverdueStats(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(testBooks()...)
	_ = store.InsertBorrow(ctx, &domain.Borrow{
		UserEmail: "alice@example.com", BookISBN: isbnMockingbird, DueDate: day(-3),
	})
	_ = store.InsertBorrow(ctx, &domain.Borrow{
		UserEmail: "bob@example.com", BookISBN: isbnGatsby,
		DueDate: day(-3), ReturnDate: ptr(day(-1)),
	})
	// due before the window cutoff, excluded entirely
	_ = store.InsertBorrow(ctx, &domain.Borrow{
		UserEmail: "old@example.com", BookISBN: isbnGatsby, DueDate: day(-40),
	})
	l := newTestLedger(store)

	rep, err := l.OverdueStats(ctx, day(-30))
	require.NoError(t, err)

	require.Equal(t, []DailyCount{{Day: "2025-05-29", Count: 2}}, rep.Overdue)
	require.Equal(t, []UserCount{{UserEmail: "alice@example.com", Count: 1}}, rep.MostOverdueUsers)
}
