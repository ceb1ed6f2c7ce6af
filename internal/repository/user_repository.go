package repository

import (
	"context"

	"github.com/detodo/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	SetSubscription(ctx context.Context, id string, active bool, customerID string) (int64, error)
	SetSubscriptionByCustomer(ctx context.Context, customerID string, active bool) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) SetSubscription(ctx context.Context, id string, active bool, customerID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	fields := map[string]interface{}{"subscription_active": active}
	if customerID != "" {
		fields["stripe_customer_id"] = customerID
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *userRepository) SetSubscriptionByCustomer(ctx context.Context, customerID string, active bool) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("stripe_customer_id = ?", customerID).
		Update("subscription_active", active)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
