package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-library-api/internal/domain"
	"go-library-api/internal/ledger"
)

// Store is the gorm implementation of ledger.Store. A transaction-scoped
// copy is handed to the ledger via InTx; FindBookForUpdate takes a row lock
// only when called on such a copy.
type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

var _ ledger.Store = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx ledger.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) FindBook(ctx context.Context, isbn string) (*domain.Book, error) {
	var b domain.Book
	err := s.db.WithContext(ctx).First(&b, "isbn = ?", isbn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) FindBookForUpdate(ctx context.Context, isbn string) (*domain.Book, error) {
	var b domain.Book
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, "isbn = ?", isbn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) CountActiveBorrows(ctx context.Context, isbn string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Borrow{}).
		Where("book_isbn = ? AND return_date IS NULL", isbn).
		Count(&n).Error
	return n, err
}

func (s *Store) FindActiveBorrow(ctx context.Context, email, isbn string) (*domain.Borrow, error) {
	var b domain.Borrow
	err := s.db.WithContext(ctx).
		First(&b, "user_email = ? AND book_isbn = ? AND return_date IS NULL", email, isbn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) InsertBorrow(ctx context.Context, b *domain.Borrow) error {
	return s.db.WithContext(ctx).Create(b).Error
}

func (s *Store) CloseActiveBorrows(ctx context.Context, email, isbn string, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&domain.Borrow{}).
		Where("user_email = ? AND book_isbn = ? AND return_date IS NULL", email, isbn).
		Update("return_date", at)
	return res.RowsAffected, res.Error
}

func (s *Store) ListOverdue(ctx context.Context, now time.Time, offset, limit int) ([]domain.OverdueEntry, error) {
	var out []domain.OverdueEntry
	err := s.db.WithContext(ctx).Model(&domain.Borrow{}).
		Select("borrows.user_email, borrows.book_isbn, books.title, borrows.due_date").
		Joins("JOIN books ON books.isbn = borrows.book_isbn").
		Where("borrows.return_date IS NULL AND borrows.due_date < ?", now).
		Order("borrows.due_date ASC, borrows.user_email ASC, borrows.book_isbn ASC").
		Offset(offset).Limit(limit).
		Scan(&out).Error
	return out, err
}

func (s *Store) ListActiveByUser(ctx context.Context, email string) ([]domain.Borrow, error) {
	var out []domain.Borrow
	err := s.db.WithContext(ctx).
		Where("user_email = ? AND return_date IS NULL", email).
		Order("due_date ASC, book_isbn ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) BorrowsSince(ctx context.Context, since time.Time) ([]domain.Borrow, error) {
	var out []domain.Borrow
	err := s.db.WithContext(ctx).
		Where("borrow_date >= ?", since).
		Find(&out).Error
	return out, err
}

func (s *Store) ReturnsSince(ctx context.Context, since time.Time) ([]domain.Borrow, error) {
	var out []domain.Borrow
	err := s.db.WithContext(ctx).
		Where("return_date IS NOT NULL AND return_date >= ?", since).
		Find(&out).Error
	return out, err
}

func (s *Store) DueSince(ctx context.Context, since time.Time) ([]domain.Borrow, error) {
	var out []domain.Borrow
	err := s.db.WithContext(ctx).
		Where("due_date >= ?", since).
		Find(&out).Error
	return out, err
}

func (s *Store) BookTitles(ctx context.Context, isbns []string) (map[string]string, error) {
	titles := make(map[string]string, len(isbns))
	if len(isbns) == 0 {
		return titles, nil
	}
	var books []domain.Book
	if err := s.db.WithContext(ctx).Where("isbn IN ?", isbns).Find(&books).Error; err != nil {
		return nil, err
	}
	for _, b := range books {
		titles[b.ISBN] = b.Title
	}
	return titles, nil
}

// CountBorrowHistory reports how many borrow rows (active or closed)
// reference the ISBN. Catalog deletion is refused while any exist.
func (s *Store) CountBorrowHistory(ctx context.Context, isbn string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Borrow{}).
		Where("book_isbn = ?", isbn).
		Count(&n).Error
	return n, err
}
