package repository

import (
	"context"
	"time"

	"github.com/detodo/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type TradeRepository interface {
	Create(ctx context.Context, t *model.Trade) error
	FindByID(ctx context.Context, id string) (*model.Trade, error)
	ListForUser(ctx context.Context, uid string) ([]model.Trade, error)
	RejectIfPending(ctx context.Context, id, ownerID string, at time.Time) (int64, error)
	Approve(ctx context.Context, t *model.Trade, at time.Time) error
}

type tradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository(db *gorm.DB) TradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) Create(ctx context.Context, t *model.Trade) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *tradeRepository) FindByID(ctx context.Context, id string) (*model.Trade, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var t model.Trade
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tradeRepository) ListForUser(ctx context.Context, uid string) ([]model.Trade, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Trade
	if err := r.db.WithContext(ctx).
		Where("proposer_id = ? OR owner_id = ?", uid, uid).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *tradeRepository) RejectIfPending(ctx context.Context, id, ownerID string, at time.Time) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, model.TradeStatusPending).
		Updates(map[string]interface{}{
			"status":      model.TradeStatusRejected,
			"resolved_at": at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Approve flips the trade to approved and both referenced products to sold in
// one transaction. Every statement is conditional on the state read by the
// caller; if any of them matches no row the transaction is rolled back and
// ErrStaleState is returned, leaving trade and products untouched.
func (r *tradeRepository) Approve(ctx context.Context, t *model.Trade, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Trade{}).
			Where("id = ? AND owner_id = ? AND status = ?", t.ID, t.OwnerID, model.TradeStatusPending).
			Updates(map[string]interface{}{
				"status":      model.TradeStatusApproved,
				"resolved_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrStaleState
		}

		for _, pid := range []string{t.OfferedProductID, t.RequestedProductID} {
			res := tx.Model(&model.Product{}).
				Where("id = ? AND status = ?", pid, model.ProductStatusAvailable).
				Updates(map[string]interface{}{
					"status":            model.ProductStatusSold,
					"sold_at":           at,
					"sold_via_trade_id": t.ID,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return ErrStaleState
			}
		}
		return nil
	})
}
