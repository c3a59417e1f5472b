package reconcile

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yvoloshin/paylink-backend/internal/classifier"
	"github.com/yvoloshin/paylink-backend/internal/gateway"
	"github.com/yvoloshin/paylink-backend/internal/issuance"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	"github.com/yvoloshin/paylink-backend/pkg/enums"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

// MatcherParams carries the matcher dependencies.
type MatcherParams struct {
	Extractor Extractor
	Repo      Repository
	Issuances issuance.Repository
	Messenger gateway.Messenger
	Tolerance decimal.Decimal
	History   int
	Clock     func() time.Time
}

// Matcher correlates a confirmed-payment document with the issuance it pays
// for and, when possible, with the customer's order. The financial fact is
// recorded even when no order can be attributed.
type Matcher struct {
	extractor Extractor
	repo      Repository
	issuances issuance.Repository
	messenger gateway.Messenger
	tolerance decimal.Decimal
	history   int
	now       func() time.Time
}

// NewMatcher validates the dependencies and builds a Matcher.
func NewMatcher(p MatcherParams) (*Matcher, error) {
	if p.Extractor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconcile: extractor is required")
	}
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconcile: repo is required")
	}
	if p.Issuances == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconcile: issuance repo is required")
	}
	if p.Messenger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconcile: messenger is required")
	}
	if p.History <= 0 {
		p.History = 15
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &Matcher{
		extractor: p.Extractor,
		repo:      p.Repo,
		issuances: p.Issuances,
		messenger: p.Messenger,
		tolerance: p.Tolerance,
		history:   p.History,
		now:       p.Clock,
	}, nil
}

// Process reconciles one receipt document. Extraction or seller-resolution
// failures abort with a typed error; everything past marking the issuance
// paid is best-effort attribution.
func (m *Matcher) Process(ctx context.Context, ev classifier.Event, text string) error {
	log := logger.FromContext(ctx)

	ext, err := m.extractor.Extract(text)
	if err != nil {
		return err
	}
	log = log.With().
		Str("counterparty_id", ext.CounterpartyID).
		Str("paid_amount", ext.Amount.String()).
		Logger()

	seller, err := m.repo.FindSellerByCounterparty(ctx, ext.CounterpartyID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve seller")
	}
	if seller == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "receipt counterparty is not a known seller")
	}

	record, err := m.resolveIssuance(ctx, ev, seller)
	if err != nil {
		return err
	}

	now := m.now()
	record.IsPaid = true
	record.PaidAmount = &ext.Amount
	record.PaidAt = &now
	record.SellerID = &seller.ID
	if ev.Attachment != nil && ev.Attachment.FileRef != "" {
		ref := ev.Attachment.FileRef
		record.ProofRef = &ref
	}
	if err := m.issuances.Update(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark issuance paid")
	}

	order, err := m.attributeOrder(ctx, ev, record, seller, ext.Amount)
	if err != nil {
		return err
	}
	if order == nil {
		log.Warn().
			Str("conversation_id", ev.ConversationID).
			Msg("payment recorded without an attributable order")
	} else if record.MatchedOrderID == nil || *record.MatchedOrderID != order.ID {
		record.MatchedOrderID = &order.ID
		if err := m.issuances.Update(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stamp matched order")
		}
	}

	m.deliverBundleCode(ctx, ev, record, ext.Amount)
	return nil
}

// resolveIssuance prefers the most recent unpaid issuance for the
// conversation; payments with no prior issuance get one synthesized with the
// seller's display name as the link label.
func (m *Matcher) resolveIssuance(ctx context.Context, ev classifier.Event, seller *models.Seller) (*models.PaymentIssuance, error) {
	record, err := m.issuances.MostRecentUnpaidByConversation(ctx, ev.ConversationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find unpaid issuance")
	}
	if record != nil {
		return record, nil
	}
	record = &models.PaymentIssuance{
		CustomerID:     ev.SenderID,
		ConversationID: ev.ConversationID,
		LinkURL:        seller.DisplayName,
		SourceText:     ev.Text,
	}
	if err := m.issuances.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "synthesize issuance")
	}
	return record, nil
}

func (m *Matcher) attributeOrder(ctx context.Context, ev classifier.Event, record *models.PaymentIssuance, seller *models.Seller, paid decimal.Decimal) (*models.Order, error) {
	var order *models.Order
	if record.MatchedOrderID != nil {
		existing, err := m.repo.GetOrder(ctx, *record.MatchedOrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load referenced order")
		}
		// An order that predates the issuance belongs to an earlier purchase.
		if existing != nil && !existing.CreatedAt.Before(record.ReceivedAt) {
			order = existing
		}
	}
	if order == nil && ev.SenderPhone != "" {
		found, err := m.repo.FindAttributableOrder(ctx, ev.SenderPhone, paid, m.tolerance, record.ReceivedAt)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search orders for attribution")
		}
		order = found
	}
	if order == nil {
		return nil, nil
	}

	now := m.now()
	order.SellerID = &seller.ID
	name := seller.DisplayName
	order.SellerName = &name
	order.AttributedAt = &now
	if !order.Status.IsPaidEquivalent() {
		order.Status = enums.OrderStatusPaid
	}
	if err := m.repo.UpdateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stamp order attribution")
	}
	return order, nil
}

// deliverBundleCode sends the redemption code now that payment is confirmed.
// The code is withheld until this point on purpose. Linkage is read off the
// issuance itself or recovered from the conversation's recent history by
// amount match. Delivery failure is logged, never fatal.
func (m *Matcher) deliverBundleCode(ctx context.Context, ev classifier.Event, record *models.PaymentIssuance, paid decimal.Decimal) {
	log := logger.FromContext(ctx)

	code := record.BundleCode
	if code == nil {
		history, err := m.issuances.RecentByConversation(ctx, ev.ConversationID, m.history)
		if err != nil {
			log.Error().Err(err).Msg("scan history for bundle linkage")
			return
		}
		for i := range history {
			prior := &history[i]
			if prior.BundleCode == nil || prior.ExpectedAmount == nil {
				continue
			}
			if prior.ExpectedAmount.Equal(paid) {
				code = prior.BundleCode
				break
			}
		}
	}
	if code == nil {
		return
	}
	if err := m.messenger.SendText(ctx, ev.ConversationID, "Your order code: "+*code); err != nil {
		log.Error().Err(err).Str("bundle_code", *code).Msg("deliver bundle code")
	}
}
