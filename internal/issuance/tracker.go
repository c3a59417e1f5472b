package issuance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yvoloshin/paylink-backend/internal/classifier"
	"github.com/yvoloshin/paylink-backend/internal/dispatch"
	"github.com/yvoloshin/paylink-backend/internal/drafts"
	"github.com/yvoloshin/paylink-backend/pkg/db"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
)

// TargetPicker selects the payment target for the next dispatch.
type TargetPicker interface {
	Pick(ctx context.Context) (*models.PaymentTarget, error)
}

var _ TargetPicker = (*dispatch.Scheduler)(nil)

// Result is the outcome of recording a dispatch or a matched link.
type Result struct {
	Issuance *models.PaymentIssuance
	// Reused reports that an existing record absorbed the event, so no new
	// link should go out.
	Reused bool
}

// TrackerParams carries the tracker dependencies.
type TrackerParams struct {
	Repo        Repository
	Picker      TargetPicker
	Linkage     *drafts.LinkageCache
	Trigger     string
	DedupWindow time.Duration
	History     int
	Clock       func() time.Time
}

// Tracker issues payment links and keeps duplicate inbound events from
// producing duplicate issuance records. Two layers guard against replays:
// an external-message-id lookup and a short time window over the customer's
// recent unpaid issuances.
type Tracker struct {
	repo        Repository
	picker      TargetPicker
	linkage     *drafts.LinkageCache
	amountAfter *regexp.Regexp
	window      time.Duration
	history     int
	now         func() time.Time
}

// NewTracker validates the dependencies and builds a Tracker.
func NewTracker(p TrackerParams) (*Tracker, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "issuance: repo is required")
	}
	if p.Picker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "issuance: picker is required")
	}
	if p.Trigger == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "issuance: trigger is required")
	}
	if p.DedupWindow <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "issuance: dedup window must be positive")
	}
	if p.History <= 0 {
		p.History = 15
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &Tracker{
		repo:        p.Repo,
		picker:      p.Picker,
		linkage:     p.Linkage,
		amountAfter: regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(strings.TrimSpace(p.Trigger)) + `\s+(\d+(?:[.,]\d+)?)`),
		window:      p.DedupWindow,
		history:     p.History,
		now:         p.Clock,
	}, nil
}

// RecordDispatch handles a message that asked for a payment link: it picks a
// target, resolves any pending draft linkage, and records the issuance unless
// the event is a duplicate of a recent one.
func (t *Tracker) RecordDispatch(ctx context.Context, ev classifier.Event) (*Result, error) {
	target, err := t.picker.Pick(ctx)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no usable payment target configured")
	}
	amount := t.extractAmount(ev.Text)
	bundleCode := t.resolveLinkage(ctx, ev.ConversationID, amount)
	return t.record(ctx, ev, target.LinkURL, target.ID, amount, bundleCode, false)
}

// RecordMatchedLink handles a message that quoted an active payment link back
// into the conversation. The amount is whatever the customer typed alongside,
// and the window dedup ignores amounts entirely on this path.
func (t *Tracker) RecordMatchedLink(ctx context.Context, ev classifier.Event, target *models.PaymentTarget) (*Result, error) {
	if target == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "issuance: matched link without a target")
	}
	amount := t.extractAmount(ev.Text)
	bundleCode := t.resolveLinkage(ctx, ev.ConversationID, amount)
	return t.record(ctx, ev, target.LinkURL, target.ID, amount, bundleCode, true)
}

func (t *Tracker) record(ctx context.Context, ev classifier.Event, linkURL string, targetID uuid.UUID, amount *decimal.Decimal, bundleCode string, anyAmount bool) (*Result, error) {
	log := logger.FromContext(ctx)

	if ev.ExternalID != "" {
		existing, err := t.repo.FindByExternalID(ctx, ev.ExternalID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up issuance by external id")
		}
		if existing != nil {
			if merged := t.mergeLinkage(existing, bundleCode, amount); merged {
				if err := t.repo.Update(ctx, existing); err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge linkage into issuance")
				}
			}
			log.Debug().Str("external_id", ev.ExternalID).Msg("issuance replayed, reusing record")
			return &Result{Issuance: existing, Reused: true}, nil
		}
	}

	recent, err := t.repo.RecentUnpaidByCustomer(ctx, ev.SenderID, t.history)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "scan recent issuances")
	}
	cutoff := t.now().Add(-t.window)
	for i := range recent {
		prior := &recent[i]
		if prior.ReceivedAt.Before(cutoff) {
			continue
		}
		if prior.LinkURL != linkURL {
			continue
		}
		if !anyAmount && !sameAmount(prior.ExpectedAmount, amount) {
			continue
		}
		changed := t.mergeLinkage(prior, bundleCode, amount)
		if prior.ExternalMessageID == nil && ev.ExternalID != "" {
			id := ev.ExternalID
			prior.ExternalMessageID = &id
			changed = true
		}
		if changed {
			if err := t.repo.Update(ctx, prior); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge linkage into issuance")
			}
		}
		log.Debug().Str("conversation_id", ev.ConversationID).Msg("issuance within dedup window, reusing record")
		return &Result{Issuance: prior, Reused: true}, nil
	}

	record := &models.PaymentIssuance{
		CustomerID:     ev.SenderID,
		ConversationID: ev.ConversationID,
		TargetID:       &targetID,
		LinkURL:        linkURL,
		SourceText:     ev.Text,
		ExpectedAmount: amount,
		// The dedup cutoff above is measured on the same clock; letting the
		// DB stamp this would compare two clocks.
		ReceivedAt: t.now(),
	}
	if ev.ExternalID != "" {
		id := ev.ExternalID
		record.ExternalMessageID = &id
	}
	if bundleCode != "" {
		record.BundleCode = &bundleCode
	}
	if err := t.repo.Create(ctx, record); err != nil {
		// A concurrent delivery of the same event can lose the race on the
		// external_message_id index; treat the winner's row as ours.
		if db.IsUniqueViolation(err, "external_message_id") && ev.ExternalID != "" {
			existing, findErr := t.repo.FindByExternalID(ctx, ev.ExternalID)
			if findErr == nil && existing != nil {
				return &Result{Issuance: existing, Reused: true}, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create issuance")
	}
	log.Info().
		Str("conversation_id", ev.ConversationID).
		Str("target_id", targetID.String()).
		Msg(fmt.Sprintf("payment link issued (bundle=%q)", bundleCode))
	return &Result{Issuance: record}, nil
}

// resolveLinkage attaches the conversation's pending draft bundle when the
// requested amount matches the draft total exactly. A successful match
// consumes the cache entry.
func (t *Tracker) resolveLinkage(_ context.Context, conversationID string, amount *decimal.Decimal) string {
	if t.linkage == nil || amount == nil {
		return ""
	}
	pending, ok := t.linkage.Get(conversationID)
	if !ok || !pending.TotalToPay.Equal(*amount) {
		return ""
	}
	t.linkage.Take(conversationID)
	return pending.BundleCode
}

func (t *Tracker) mergeLinkage(record *models.PaymentIssuance, bundleCode string, amount *decimal.Decimal) bool {
	changed := false
	if bundleCode != "" && record.BundleCode == nil {
		code := bundleCode
		record.BundleCode = &code
		changed = true
	}
	if amount != nil && record.ExpectedAmount == nil {
		a := *amount
		record.ExpectedAmount = &a
		changed = true
	}
	return changed
}

func (t *Tracker) extractAmount(text string) *decimal.Decimal {
	m := t.amountAfter.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "."))
	if err != nil {
		return nil
	}
	return &value
}

func sameAmount(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
