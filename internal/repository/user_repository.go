package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docai/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if conflict := mapUserConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

// SetSuperuser promotes or demotes an account; used by the seed command.
func (r *UserRepository) SetSuperuser(ctx context.Context, id uint, superuser bool) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("is_superuser", superuser).Error
	if err != nil {
		return fmt.Errorf("update superuser flag failed: %w", err)
	}
	return nil
}

func (r *UserRepository) first(ctx context.Context, query string, arg any) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user failed: %w", err)
	}
	return &user, nil
}
