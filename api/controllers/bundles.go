package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yvoloshin/paylink-backend/api/responses"
	"github.com/yvoloshin/paylink-backend/internal/drafts"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

type bundleItemResponse struct {
	ProductID string `json:"product_id"`
	Alias     string `json:"alias"`
	Qty       int    `json:"qty"`
}

type bundleResponse struct {
	Code          string               `json:"code"`
	DeliveryPrice string               `json:"delivery_price"`
	NoteText      string               `json:"note_text,omitempty"`
	Items         []bundleItemResponse `json:"items"`
}

func toBundleResponse(bundle *models.OrderDraftBundle) bundleResponse {
	items := make([]bundleItemResponse, 0, len(bundle.Items))
	for _, item := range bundle.Items {
		items = append(items, bundleItemResponse{
			ProductID: item.ProductID.String(),
			Alias:     item.Alias,
			Qty:       item.Qty,
		})
	}
	return bundleResponse{
		Code:          bundle.Code,
		DeliveryPrice: bundle.DeliveryPrice.String(),
		NoteText:      bundle.NoteText,
		Items:         items,
	}
}

// FetchBundle redeems a bundle code into its line items. A pure read; the
// bundle stays redeemable.
func FetchBundle(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "bundle code required"))
			return
		}

		bundle, err := svc.FetchBundle(ctx, code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBundleResponse(bundle))
	}
}
