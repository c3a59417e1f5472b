package controllers

import (
	"net/http"
	"time"

	"github.com/yvoloshin/paylink-backend/api/responses"
	"github.com/yvoloshin/paylink-backend/api/validators"
	"github.com/yvoloshin/paylink-backend/internal/issuance"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

type issuanceResponse struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	CustomerID     string  `json:"customer_id"`
	LinkURL        string  `json:"link_url"`
	BundleCode     *string `json:"bundle_code,omitempty"`
	ExpectedAmount *string `json:"expected_amount,omitempty"`
	IsPaid         bool    `json:"is_paid"`
	PaidAmount     *string `json:"paid_amount,omitempty"`
	PaidAt         *string `json:"paid_at,omitempty"`
	MatchedOrderID *string `json:"matched_order_id,omitempty"`
	ReceivedAt     string  `json:"received_at"`
}

func toIssuanceResponse(record models.PaymentIssuance) issuanceResponse {
	resp := issuanceResponse{
		ID:             record.ID.String(),
		ConversationID: record.ConversationID,
		CustomerID:     record.CustomerID,
		LinkURL:        record.LinkURL,
		BundleCode:     record.BundleCode,
		IsPaid:         record.IsPaid,
		ReceivedAt:     record.ReceivedAt.Format(time.RFC3339),
	}
	if record.ExpectedAmount != nil {
		amount := record.ExpectedAmount.String()
		resp.ExpectedAmount = &amount
	}
	if record.PaidAmount != nil {
		amount := record.PaidAmount.String()
		resp.PaidAmount = &amount
	}
	if record.PaidAt != nil {
		paidAt := record.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &paidAt
	}
	if record.MatchedOrderID != nil {
		orderID := record.MatchedOrderID.String()
		resp.MatchedOrderID = &orderID
	}
	return resp
}

// ListIssuances returns a conversation's recent payment links, newest first.
// Backoffice read for chasing up unpaid or misattributed payments.
func ListIssuances(repo issuance.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		conversationID := validators.SanitizeString(r.URL.Query().Get("conversation_id"), 128)
		if conversationID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "conversation_id query parameter required"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		records, err := repo.RecentByConversation(ctx, conversationID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list issuances"))
			return
		}

		out := make([]issuanceResponse, 0, len(records))
		for _, record := range records {
			out = append(out, toIssuanceResponse(record))
		}
		responses.WriteSuccess(w, map[string]any{"issuances": out})
	}
}
