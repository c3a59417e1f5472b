package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/yvoloshin/paylink-backend/api/middleware"
	"github.com/yvoloshin/paylink-backend/api/responses"
	"github.com/yvoloshin/paylink-backend/api/validators"
	"github.com/yvoloshin/paylink-backend/internal/dispatch"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

type planStepPayload struct {
	TargetID    string `json:"target_id" validate:"required,uuid4"`
	RepeatCount int    `json:"repeat_count" validate:"required,min=1"`
}

type putPlanRequest struct {
	Chain []planStepPayload `json:"chain" validate:"required,dive"`
}

type planStepResponse struct {
	TargetID    string `json:"target_id"`
	RepeatCount int    `json:"repeat_count"`
}

func toPlanResponse(chain []models.DispatchStep) []planStepResponse {
	out := make([]planStepResponse, 0, len(chain))
	for _, step := range chain {
		out = append(out, planStepResponse{
			TargetID:    step.TargetID.String(),
			RepeatCount: step.RepeatCount,
		})
	}
	return out
}

// GetDispatchPlan returns the chain filtered to what the actor may see.
func GetDispatchPlan(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor := middleware.ActorFromContext(ctx)
		chain, err := svc.GetPlan(ctx, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"chain": toPlanResponse(chain)})
	}
}

// PutDispatchPlan replaces the actor's visible portion of the chain; hidden
// steps survive the update in place.
func PutDispatchPlan(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req putPlanRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		submitted := make([]models.DispatchStep, 0, len(req.Chain))
		for _, step := range req.Chain {
			targetID, err := uuid.Parse(step.TargetID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "target id must be a uuid"))
				return
			}
			submitted = append(submitted, models.DispatchStep{
				TargetID:    targetID,
				RepeatCount: step.RepeatCount,
			})
		}

		actor := middleware.ActorFromContext(ctx)
		merged, err := svc.PutPlan(ctx, actor, submitted)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"chain": toPlanResponse(merged)})
	}
}
