package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/internal/repo"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
)

// Repository persists the singleton plan row and reads payment targets.
type Repository interface {
	GetPlan(ctx context.Context) (*models.DispatchPlan, error)
	SavePlan(ctx context.Context, plan *models.DispatchPlan) error
	FindTarget(ctx context.Context, id uuid.UUID) (*models.PaymentTarget, error)
	ListTargets(ctx context.Context) ([]models.PaymentTarget, error)
	MostRecentUsableTarget(ctx context.Context) (*models.PaymentTarget, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a dispatch repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

// GetPlan loads the singleton row, returning an empty plan when none exists.
func (r *repository) GetPlan(ctx context.Context) (*models.DispatchPlan, error) {
	var plan models.DispatchPlan
	err := r.DB(ctx).Where("id = ?", models.DispatchPlanID).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.DispatchPlan{ID: models.DispatchPlanID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) SavePlan(ctx context.Context, plan *models.DispatchPlan) error {
	plan.ID = models.DispatchPlanID
	return r.DB(ctx).Save(plan).Error
}

func (r *repository) FindTarget(ctx context.Context, id uuid.UUID) (*models.PaymentTarget, error) {
	var target models.PaymentTarget
	err := r.DB(ctx).Where("id = ?", id).First(&target).Error
	if err != nil {
		return nil, err
	}
	return &target, nil
}

func (r *repository) ListTargets(ctx context.Context) ([]models.PaymentTarget, error) {
	var targets []models.PaymentTarget
	err := r.DB(ctx).Order("created_at ASC").Find(&targets).Error
	if err != nil {
		return nil, err
	}
	return targets, nil
}

func (r *repository) MostRecentUsableTarget(ctx context.Context) (*models.PaymentTarget, error) {
	var target models.PaymentTarget
	err := r.DB(ctx).
		Where("is_active = ? AND link_url <> ''", true).
		Order("created_at DESC").
		First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &target, nil
}

// LinkLookup satisfies the classifier's matched-link probe against the
// currently usable targets.
type LinkLookup struct {
	repo Repository
}

func NewLinkLookup(repo Repository) *LinkLookup {
	return &LinkLookup{repo: repo}
}

func (l *LinkLookup) ContainsActiveLink(ctx context.Context, text string) (bool, error) {
	targets, err := l.repo.ListTargets(ctx)
	if err != nil {
		return false, err
	}
	for _, target := range targets {
		if target.Usable() && strings.Contains(text, target.LinkURL) {
			return true, nil
		}
	}
	return false, nil
}

// FindActiveLink returns the first usable target whose link appears in text.
func (l *LinkLookup) FindActiveLink(ctx context.Context, text string) (*models.PaymentTarget, error) {
	targets, err := l.repo.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	for _, target := range targets {
		if target.Usable() && strings.Contains(text, target.LinkURL) {
			found := target
			return &found, nil
		}
	}
	return nil, nil
}
