package expenses

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

// Shorthand grammar: a leading dot, an amount, then the category text.
var shorthandPattern = regexp.MustCompile(`^\.\s+(\d+(?:[.,]\d+)?)\s+(\S.*)$`)

// Service records bookkeeping expenses entered through the chat shorthand.
type Service interface {
	RecordShorthand(ctx context.Context, senderID, text string) (*models.Expense, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds an expenses Service bound to the provided DB.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "expenses: db is required")
	}
	return &service{db: db}, nil
}

func (s *service) RecordShorthand(ctx context.Context, senderID, text string) (*models.Expense, error) {
	m := shorthandPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnparsable, "expense shorthand did not parse")
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "."))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnparsable, err, "expense amount not numeric")
	}

	expense := &models.Expense{
		ID:         uuid.New(),
		Amount:     amount,
		Category:   strings.TrimSpace(m[2]),
		RecordedBy: senderID,
	}
	if err := s.db.WithContext(ctx).Create(expense).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create expense")
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("category", expense.Category).
		Str("amount", expense.Amount.String()).
		Msg("expense recorded")
	return expense, nil
}
