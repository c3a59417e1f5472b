package controllers

import (
	"errors"
	"net/http"

	"github.com/yvoloshin/paylink-backend/api/responses"
	"github.com/yvoloshin/paylink-backend/api/validators"
	"github.com/yvoloshin/paylink-backend/internal/inventory"
	"github.com/yvoloshin/paylink-backend/internal/orders"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

type orderResponse struct {
	ID            string `json:"id"`
	CustomerPhone string `json:"customer_phone"`
	TotalPrice    string `json:"total_price"`
	Status        string `json:"status"`
	BundleCode    string `json:"bundle_code,omitempty"`
}

func toOrderResponse(order *models.Order) orderResponse {
	out := orderResponse{
		ID:            order.ID.String(),
		CustomerPhone: order.CustomerPhone,
		TotalPrice:    order.TotalPrice.String(),
		Status:        order.Status.String(),
	}
	if order.BundleCode != nil {
		out.BundleCode = *order.BundleCode
	}
	return out
}

// CreateOrder redeems a bundle code into a durable order.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req orders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.CreateOrder(ctx, req)
		if err != nil {
			var shortfall *inventory.ShortfallError
			if errors.As(err, &shortfall) {
				err = pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, shortfall.Error())
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order))
	}
}
