package ledger

import (
	"context"
	"sort"
	"time"

	"go-library-api/internal/domain"
)

// Day formatting for the daily series. Days with zero events are omitted:
// the series is sparse, no zero-fill.
const dayLayout = "2006-01-02"

type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type BookCount struct {
	ISBN  string `json:"isbn"`
	Title string `json:"title"`
	Count int    `json:"count"`
}

type UserCount struct {
	UserEmail string `json:"userEmail"`
	Count     int    `json:"count"`
}

// BorrowReport bundles the borrowing-side aggregates for one window.
type BorrowReport struct {
	Borrows            []DailyCount `json:"borrows"`
	Returns            []DailyCount `json:"returns"`
	MostPopularBooks   []BookCount  `json:"mostPopularBooks"`
	MostBorrowingUsers []UserCount  `json:"mostBorrowingUsers"`
}

// OverdueReport bundles the overdue-side aggregates for one window.
type OverdueReport struct {
	Overdue          []DailyCount `json:"overdue"`
	MostOverdueUsers []UserCount  `json:"mostOverdueUsers"`
}

// BorrowStats aggregates borrows and returns since the cutoff. Read-only:
// nothing here mutates ledger state.
func (l *Ledger) BorrowStats(ctx context.Context, since time.Time) (*BorrowReport, error) {
	borrowed, err := l.store.BorrowsSince(ctx, since)
	if err != nil {
		return nil, err
	}
	returned, err := l.store.ReturnsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	books := topBooks(borrowed, l.topN)
	isbns := make([]string, 0, len(books))
	for _, b := range books {
		isbns = append(isbns, b.ISBN)
	}
	titles, err := l.store.BookTitles(ctx, isbns)
	if err != nil {
		return nil, err
	}
	for i := range books {
		books[i].Title = titles[books[i].ISBN]
	}

	return &BorrowReport{
		Borrows:            dailyCounts(borrowed, borrowDay),
		Returns:            dailyCounts(returned, returnDay),
		MostPopularBooks:   books,
		MostBorrowingUsers: topUsers(borrowed, l.topN),
	}, nil
}

// OverdueStats aggregates over borrows whose due date falls inside the
// window. "Overdue" is always judged against the current moment, independent
// of the window: the window only bounds which borrows are considered.
func (l *Ledger) OverdueStats(ctx context.Context, since time.Time) (*OverdueReport, error) {
	due, err := l.store.DueSince(ctx, since)
	if err != nil {
		return nil, err
	}
	now := l.now()
	return &OverdueReport{
		Overdue:          overdueDaily(due, now),
		MostOverdueUsers: mostOverdueUsers(due, now, l.topN),
	}, nil
}

// --- pure aggregation helpers ---

func borrowDay(b domain.Borrow) (time.Time, bool) { return b.BorrowDate, true }

func returnDay(b domain.Borrow) (time.Time, bool) {
	if b.ReturnDate == nil {
		return time.Time{}, false
	}
	return *b.ReturnDate, true
}

func dailyCounts(rows []domain.Borrow, day func(domain.Borrow) (time.Time, bool)) []DailyCount {
	byDay := map[string]int{}
	for _, r := range rows {
		ts, ok := day(r)
		if !ok {
			continue
		}
		byDay[ts.UTC().Format(dayLayout)]++
	}
	out := make([]DailyCount, 0, len(byDay))
	for d, n := range byDay {
		out = append(out, DailyCount{Day: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// topBooks ranks by borrow count desc, ties broken by ISBN ascending.
// Titles are left blank for the caller to resolve.
func topBooks(rows []domain.Borrow, n int) []BookCount {
	byISBN := map[string]int{}
	for _, r := range rows {
		byISBN[r.BookISBN]++
	}
	out := make([]BookCount, 0, len(byISBN))
	for isbn, c := range byISBN {
		out = append(out, BookCount{ISBN: isbn, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ISBN < out[j].ISBN
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// topUsers ranks by borrow count desc, ties broken by email ascending.
func topUsers(rows []domain.Borrow, n int) []UserCount {
	byUser := map[string]int{}
	for _, r := range rows {
		byUser[r.UserEmail]++
	}
	return rankUsers(byUser, n)
}

// overdueDaily counts, per due-date day, the borrows that were or still are
// overdue as of now: due date passed and either never returned or returned
// after it.
func overdueDaily(rows []domain.Borrow, now time.Time) []DailyCount {
	byDay := map[string]int{}
	for _, r := range rows {
		if !wasOverdue(r, now) {
			continue
		}
		byDay[r.DueDate.UTC().Format(dayLayout)]++
	}
	out := make([]DailyCount, 0, len(byDay))
	for d, c := range byDay {
		out = append(out, DailyCount{Day: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// mostOverdueUsers ranks users by currently-overdue borrows: return date
// still unset and due date strictly before now.
func mostOverdueUsers(rows []domain.Borrow, now time.Time, n int) []UserCount {
	byUser := map[string]int{}
	for _, r := range rows {
		if r.ReturnDate == nil && r.DueDate.Before(now) {
			byUser[r.UserEmail]++
		}
	}
	return rankUsers(byUser, n)
}

func wasOverdue(b domain.Borrow, now time.Time) bool {
	if !b.DueDate.Before(now) {
		return false
	}
	return b.ReturnDate == nil || b.ReturnDate.After(b.DueDate)
}

func rankUsers(byUser map[string]int, n int) []UserCount {
	out := make([]UserCount, 0, len(byUser))
	for email, c := range byUser {
		out = append(out, UserCount{UserEmail: email, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserEmail < out[j].UserEmail
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
