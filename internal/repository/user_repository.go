package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gopherai-docqa/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(username string) (*model.User, error) {
	return r.first("query user by username", r.db.Where("username = ?", username))
}

// GetByUsernameOrEmail returns any account already holding either identifier.
func (r *UserRepository) GetByUsernameOrEmail(username, email string) (*model.User, error) {
	return r.first("query user by identity", r.db.Where("username = ? OR email = ?", username, email).Order("id ASC"))
}

func (r *UserRepository) GetByID(id uint) (*model.User, error) {
	return r.first("query user by id", r.db.Where("id = ?", id))
}

func (r *UserRepository) RecordLogin(id uint, at time.Time) error {
	res := r.db.Model(&model.User{}).Where("id = ?", id).Update("last_login_at", at)
	if res.Error != nil {
		return fmt.Errorf("record login failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) first(op string, query *gorm.DB) (*model.User, error) {
	var user model.User
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	return &user, nil
}
