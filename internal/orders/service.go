package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yvoloshin/paylink-backend/internal/drafts"
	"github.com/yvoloshin/paylink-backend/internal/inventory"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	"github.com/yvoloshin/paylink-backend/pkg/enums"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

// CreateOrderInput redeems a bundle code into a durable order.
type CreateOrderInput struct {
	BundleCode    string `json:"bundle_code" validate:"required"`
	CustomerPhone string `json:"customer_phone" validate:"required"`
}

// Service creates orders from redeemed bundles.
type Service interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error)
}

// ServiceParams carries the service dependencies.
type ServiceParams struct {
	Repo      Repository
	Drafts    drafts.Service
	Inventory *inventory.Coordinator
}

type service struct {
	repo      Repository
	drafts    drafts.Service
	inventory *inventory.Coordinator
}

// NewService validates the dependencies and builds a Service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: repo is required")
	}
	if p.Drafts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: drafts service is required")
	}
	if p.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: inventory coordinator is required")
	}
	return &service{repo: p.Repo, drafts: p.Drafts, inventory: p.Inventory}, nil
}

// CreateOrder redeems the bundle, reserves stock, then persists the order.
// A failed persist compensates the reservation before returning.
func (s *service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	log := logger.FromContext(ctx)

	bundle, err := s.drafts.FetchBundle(ctx, in.BundleCode)
	if err != nil {
		return nil, err
	}

	total := bundle.DeliveryPrice
	lines := make([]inventory.Line, 0, len(bundle.Items))
	items := make([]models.OrderItem, 0, len(bundle.Items))
	for _, item := range bundle.Items {
		product, err := s.repo.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load bundle product")
		}
		if product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bundle references a product that no longer exists")
		}
		total = total.Add(product.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty))))
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Qty: item.Qty})
		items = append(items, models.OrderItem{ProductID: item.ProductID, Qty: item.Qty})
	}

	reservation, err := s.inventory.Reserve(ctx, lines)
	if err != nil {
		return nil, err
	}

	code := bundle.Code
	order := &models.Order{
		ID:            uuid.New(),
		CustomerPhone: in.CustomerPhone,
		TotalPrice:    total,
		Status:        enums.OrderStatusPending,
		Items:         items,
		BundleCode:    &code,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		if rbErr := reservation.Rollback(ctx); rbErr != nil {
			log.Error().Err(rbErr).Str("bundle_code", code).Msg("rollback reservation after failed create")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("bundle_code", code).
		Str("total_price", total.String()).
		Msg("order created from bundle")
	return order, nil
}
