package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go-library-api/internal/domain"
)

type BookRepo struct{ db *gorm.DB }

func NewBookRepo(db *gorm.DB) *BookRepo { return &BookRepo{db: db} }

func (r *BookRepo) Create(ctx context.Context, b *domain.Book) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BookRepo) FindByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	var b domain.Book
	err := r.db.WithContext(ctx).First(&b, "isbn = ?", isbn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BookQuery filters are case-insensitive substring matches; empty filters
// are ignored.
type BookQuery struct {
	Title  string
	Author string
	ISBN   string
	Offset int
	Limit  int
}

func (r *BookRepo) Search(ctx context.Context, q BookQuery) ([]domain.Book, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Book{})
	// LOWER(...) LIKE keeps the contains-search portable across mysql and postgres.
	if s := strings.TrimSpace(q.Title); s != "" {
		tx = tx.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if s := strings.TrimSpace(q.Author); s != "" {
		tx = tx.Where("LOWER(author) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if s := strings.TrimSpace(q.ISBN); s != "" {
		tx = tx.Where("LOWER(isbn) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var books []domain.Book
	if err := tx.Order("isbn ASC").Offset(q.Offset).Limit(q.Limit).Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// Update rewrites the descriptive fields and quantity; returns the number of
// rows touched (0 means unknown ISBN).
func (r *BookRepo) Update(ctx context.Context, b *domain.Book) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Book{}).
		Where("isbn = ?", b.ISBN).
		Updates(map[string]any{
			"title":          b.Title,
			"author":         b.Author,
			"shelf":          b.Shelf,
			"total_quantity": b.TotalQuantity,
		})
	return res.RowsAffected, res.Error
}

func (r *BookRepo) Delete(ctx context.Context, isbn string) (int64, error) {
	res := r.db.WithContext(ctx).Where("isbn = ?", isbn).Delete(&domain.Book{})
	return res.RowsAffected, res.Error
}
