package dispatch

import (
	"context"

	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
)

// Service exposes the admin surface over the dispatch plan. Every read and
// write is filtered through the visibility predicate so restricted targets
// never leak to admins who cannot see them.
type Service interface {
	GetPlan(ctx context.Context, actor string) ([]models.DispatchStep, error)
	PutPlan(ctx context.Context, actor string, submitted []models.DispatchStep) ([]models.DispatchStep, error)
}

type service struct {
	repo       Repository
	visibility *Visibility
}

func NewService(repo Repository, visibility *Visibility) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dispatch repo required")
	}
	if visibility == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "visibility predicate required")
	}
	return &service{repo: repo, visibility: visibility}, nil
}

// GetPlan returns the chain with steps the actor may not see filtered out.
func (s *service) GetPlan(ctx context.Context, actor string) ([]models.DispatchStep, error) {
	plan, err := s.repo.GetPlan(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispatch plan")
	}
	return s.visibleChain(actor, plan.Chain), nil
}

// PutPlan merges the actor's submitted partial chain back into the full chain
// by position: each full-chain step the actor can see consumes the next
// submitted step in order, hidden steps are kept unchanged, and leftover
// submitted steps are appended. Any edit resets the cursor to the start.
func (s *service) PutPlan(ctx context.Context, actor string, submitted []models.DispatchStep) ([]models.DispatchStep, error) {
	for _, step := range submitted {
		if step.RepeatCount < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "repeat count must be at least 1")
		}
		if !s.visibility.IsVisibleTo(actor, step.TargetID) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "target not visible to actor")
		}
	}

	plan, err := s.repo.GetPlan(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispatch plan")
	}

	merged := make([]models.DispatchStep, 0, len(plan.Chain)+len(submitted))
	next := 0
	for _, existing := range plan.Chain {
		if s.visibility.IsVisibleTo(actor, existing.TargetID) {
			if next < len(submitted) {
				merged = append(merged, submitted[next])
				next++
			}
			// a visible step with no submitted counterpart is removed
			continue
		}
		merged = append(merged, existing)
	}
	merged = append(merged, submitted[next:]...)

	actorCopy := actor
	plan.Chain = merged
	plan.CursorIndex = 0
	plan.SentInStep = 0
	plan.LastUpdatedBy = &actorCopy

	if err := s.repo.SavePlan(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist dispatch plan")
	}
	return s.visibleChain(actor, plan.Chain), nil
}

func (s *service) visibleChain(actor string, chain []models.DispatchStep) []models.DispatchStep {
	visible := make([]models.DispatchStep, 0, len(chain))
	for _, step := range chain {
		if s.visibility.IsVisibleTo(actor, step.TargetID) {
			visible = append(visible, step)
		}
	}
	return visible
}
