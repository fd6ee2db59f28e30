package repository

import (
	"context"

	"gmcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	ListActiveAdmins(ctx context.Context) ([]model.User, error)
	Save(ctx context.Context, u *model.User) error
}

type userRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return &u, err
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	return &u, err
}

func (r *userRepo) ListActiveAdmins(ctx context.Context) ([]model.User, error) {
	var admins []model.User
	err := r.db.WithContext(ctx).Where("role = ? AND active", "admin").Find(&admins).Error
	return admins, err
}

func (r *userRepo) Save(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}
