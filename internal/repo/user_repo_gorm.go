package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go-library-api/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.User{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []domain.User
	if err := tx.Order("created_at DESC, email ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepo) UpdateName(ctx context.Context, email, name string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("email = ?", email).
		Update("name", name)
	return res.RowsAffected, res.Error
}

func (r *UserRepo) Delete(ctx context.Context, email string) (int64, error) {
	res := r.db.WithContext(ctx).Where("email = ?", email).Delete(&domain.User{})
	return res.RowsAffected, res.Error
}
