package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/internal/repo"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
)

// Repository covers the seller and order lookups the matcher needs.
type Repository interface {
	FindSellerByCounterparty(ctx context.Context, counterpartyID string) (*models.Seller, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// FindAttributableOrder returns the most recent order for the phone whose
	// total is within tolerance of paid and which was created at or after
	// notBefore. Nil when nothing qualifies.
	FindAttributableOrder(ctx context.Context, phone string, paid, tolerance decimal.Decimal, notBefore time.Time) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
}

type repository struct {
	repo.Base
}

// NewRepository builds a reconcile repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) FindSellerByCounterparty(ctx context.Context, counterpartyID string) (*models.Seller, error) {
	var seller models.Seller
	err := r.DB(ctx).
		Where("counterparty_id = ?", counterpartyID).
		First(&seller).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindAttributableOrder(ctx context.Context, phone string, paid, tolerance decimal.Decimal, notBefore time.Time) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Where("customer_phone = ?", phone).
		Where("total_price BETWEEN ? AND ?", paid.Sub(tolerance), paid.Add(tolerance)).
		Where("created_at >= ?", notBefore).
		Order("created_at DESC").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Save(order).Error
}
