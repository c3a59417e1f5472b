package dispatch

import (
	"context"

	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
)

// Scheduler walks the persisted round-robin chain and hands out the next
// payment target. State is read-then-written per pick; the upstream channel
// is trusted not to deliver truly concurrent events for the same target.
type Scheduler struct {
	repo Repository
}

func NewScheduler(repo Repository) (*Scheduler, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dispatch repo required")
	}
	return &Scheduler{repo: repo}, nil
}

// Pick selects the next usable target. Steps whose target is not usable are
// skipped with the cursor advanced past them. When no step in the chain has a
// usable target the most recently created usable target is used as fallback;
// when none exists at all Pick returns nil with no error.
func (s *Scheduler) Pick(ctx context.Context) (*models.PaymentTarget, error) {
	plan, err := s.repo.GetPlan(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispatch plan")
	}

	if len(plan.Chain) > 0 {
		if plan.CursorIndex >= len(plan.Chain) || plan.CursorIndex < 0 {
			plan.CursorIndex = 0
			plan.SentInStep = 0
		}

		for attempts := 0; attempts < len(plan.Chain); attempts++ {
			step := plan.Chain[plan.CursorIndex]
			target, err := s.usableTarget(ctx, step)
			if err != nil {
				return nil, err
			}
			if target == nil {
				plan.CursorIndex = (plan.CursorIndex + 1) % len(plan.Chain)
				plan.SentInStep = 0
				continue
			}

			plan.SentInStep++
			if plan.SentInStep >= step.RepeatCount {
				plan.CursorIndex = (plan.CursorIndex + 1) % len(plan.Chain)
				plan.SentInStep = 0
			}
			if err := s.repo.SavePlan(ctx, plan); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist dispatch cursor")
			}
			return target, nil
		}

		// a full pass found nothing usable; persist the advanced cursor state
		if err := s.repo.SavePlan(ctx, plan); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist dispatch cursor")
		}
	}

	fallback, err := s.repo.MostRecentUsableTarget(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fallback target lookup")
	}
	return fallback, nil
}

func (s *Scheduler) usableTarget(ctx context.Context, step models.DispatchStep) (*models.PaymentTarget, error) {
	if step.RepeatCount <= 0 {
		return nil, nil
	}
	target, err := s.repo.FindTarget(ctx, step.TargetID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target")
	}
	if !target.Usable() {
		return nil, nil
	}
	return target, nil
}
