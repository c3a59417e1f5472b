package issuance

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/internal/repo"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
)

// Repository persists payment issuance records, indexed by conversation id
// and by external message id.
type Repository interface {
	Create(ctx context.Context, record *models.PaymentIssuance) error
	Update(ctx context.Context, record *models.PaymentIssuance) error
	FindByExternalID(ctx context.Context, externalID string) (*models.PaymentIssuance, error)
	RecentUnpaidByCustomer(ctx context.Context, customerID string, limit int) ([]models.PaymentIssuance, error)
	MostRecentUnpaidByConversation(ctx context.Context, conversationID string) (*models.PaymentIssuance, error)
	RecentByConversation(ctx context.Context, conversationID string, limit int) ([]models.PaymentIssuance, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds an issuance repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) Create(ctx context.Context, record *models.PaymentIssuance) error {
	return r.DB(ctx).Create(record).Error
}

func (r *repository) Update(ctx context.Context, record *models.PaymentIssuance) error {
	return r.DB(ctx).Save(record).Error
}

func (r *repository) FindByExternalID(ctx context.Context, externalID string) (*models.PaymentIssuance, error) {
	var record models.PaymentIssuance
	err := r.DB(ctx).
		Where("external_message_id = ?", externalID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) RecentUnpaidByCustomer(ctx context.Context, customerID string, limit int) ([]models.PaymentIssuance, error) {
	var records []models.PaymentIssuance
	err := r.DB(ctx).
		Where("customer_id = ? AND is_paid = ?", customerID, false).
		Order("received_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) MostRecentUnpaidByConversation(ctx context.Context, conversationID string) (*models.PaymentIssuance, error) {
	var record models.PaymentIssuance
	err := r.DB(ctx).
		Where("conversation_id = ? AND is_paid = ?", conversationID, false).
		Order("received_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) RecentByConversation(ctx context.Context, conversationID string, limit int) ([]models.PaymentIssuance, error) {
	var records []models.PaymentIssuance
	err := r.DB(ctx).
		Where("conversation_id = ?", conversationID).
		Order("received_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
