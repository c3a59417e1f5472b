package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

// Line is one requested quantity of one product.
type Line struct {
	ProductID uuid.UUID
	Qty       int
}

// ShortfallError rejects an order whose stock cannot be covered. The order is
// rejected whole; no partial reservation survives.
type ShortfallError struct {
	ProductID uuid.UUID
	Title     string
	Requested int
	Available int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Title, e.Requested, e.Available)
}

// Coordinator applies stock decrements ahead of order creation. Products with
// null stock are untracked and never limit an order. Reservation and order
// persistence are not guaranteed to share a store, so failure recovery is a
// compensating rollback rather than a transaction.
type Coordinator struct {
	db *gorm.DB
}

// NewCoordinator builds a Coordinator bound to the provided DB.
func NewCoordinator(db *gorm.DB) *Coordinator {
	return &Coordinator{db: db}
}

// Reservation records the decrements one Reserve call applied, so a failed
// order creation can put them back.
type Reservation struct {
	db      *gorm.DB
	applied []Line
}

// Reserve checks all lines first and only then decrements, all or nothing.
// A nil error always returns a usable Reservation (possibly with no tracked
// decrements).
func (c *Coordinator) Reserve(ctx context.Context, lines []Line) (*Reservation, error) {
	products := make(map[uuid.UUID]*models.Product, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		var product models.Product
		if err := c.db.WithContext(ctx).Where("id = ?", line.ProductID).First(&product).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product stock")
		}
		if product.StockQty != nil && *product.StockQty < line.Qty {
			return nil, &ShortfallError{
				ProductID: product.ID,
				Title:     product.Title,
				Requested: line.Qty,
				Available: *product.StockQty,
			}
		}
		products[line.ProductID] = &product
	}

	reservation := &Reservation{db: c.db}
	for _, line := range lines {
		if products[line.ProductID].StockQty == nil {
			continue
		}
		err := c.db.WithContext(ctx).Model(&models.Product{}).
			Where("id = ?", line.ProductID).
			UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", line.Qty)).Error
		if err != nil {
			if rbErr := reservation.Rollback(ctx); rbErr != nil {
				log := logger.FromContext(ctx)
				log.Error().Err(rbErr).Msg("rollback after failed decrement")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
		}
		reservation.applied = append(reservation.applied, line)
	}
	return reservation, nil
}

// Rollback re-adds every recorded decrement. Individual failures are folded
// together so one bad row does not strand the rest.
func (r *Reservation) Rollback(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var combined error
	for _, line := range r.applied {
		err := r.db.WithContext(ctx).Model(&models.Product{}).
			Where("id = ?", line.ProductID).
			UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", line.Qty)).Error
		if err != nil {
			combined = multierr.Append(combined, fmt.Errorf("restore stock for %s: %w", line.ProductID, err))
		}
	}
	r.applied = nil
	return combined
}
