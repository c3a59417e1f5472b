package drafts

import (
	"context"

	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/internal/repo"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
)

// Repository covers bundle persistence and the product alias surface.
type Repository interface {
	CreateBundle(ctx context.Context, bundle *models.OrderDraftBundle) error
	FindBundleByCode(ctx context.Context, code string) (*models.OrderDraftBundle, error)
	BundleCodeExists(ctx context.Context, code string) (bool, error)
	ListAliasedProducts(ctx context.Context) ([]models.Product, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a drafts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) CreateBundle(ctx context.Context, bundle *models.OrderDraftBundle) error {
	return r.DB(ctx).Create(bundle).Error
}

func (r *repository) FindBundleByCode(ctx context.Context, code string) (*models.OrderDraftBundle, error) {
	var bundle models.OrderDraftBundle
	err := r.DB(ctx).Where("code = ?", code).First(&bundle).Error
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (r *repository) BundleCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.OrderDraftBundle{}).
		Where("code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListAliasedProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.DB(ctx).
		Where("alias IS NOT NULL AND is_active = ?", true).
		Order("created_at ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
