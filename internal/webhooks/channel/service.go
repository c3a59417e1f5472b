package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yvoloshin/paylink-backend/internal/classifier"
	"github.com/yvoloshin/paylink-backend/internal/dispatch"
	"github.com/yvoloshin/paylink-backend/internal/drafts"
	"github.com/yvoloshin/paylink-backend/internal/expenses"
	"github.com/yvoloshin/paylink-backend/internal/gateway"
	"github.com/yvoloshin/paylink-backend/internal/issuance"
	"github.com/yvoloshin/paylink-backend/internal/reconcile"
	"github.com/yvoloshin/paylink-backend/pkg/enums"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
	"github.com/yvoloshin/paylink-backend/pkg/logger"
	"github.com/yvoloshin/paylink-backend/pkg/metrics"
	"github.com/yvoloshin/paylink-backend/pkg/redis"
)

// Payload is one inbound event as the channel delivers it.
type Payload struct {
	EventID        string `json:"event_id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	SenderPhone    string `json:"sender_phone"`
	Text           string `json:"text"`
	Attachment     *struct {
		ContentType string `json:"content_type"`
		FileRef     string `json:"file_ref"`
		FileName    string `json:"file_name"`
	} `json:"attachment"`
}

func (p Payload) toEvent() classifier.Event {
	ev := classifier.Event{
		ExternalID:     p.EventID,
		ConversationID: p.ConversationID,
		SenderID:       p.SenderID,
		SenderPhone:    p.SenderPhone,
		Text:           p.Text,
	}
	if p.Attachment != nil {
		ev.Attachment = &classifier.Attachment{
			ContentType: p.Attachment.ContentType,
			FileRef:     p.Attachment.FileRef,
			FileName:    p.Attachment.FileName,
		}
	}
	return ev
}

// DocumentReader pulls the text out of a receipt attachment.
type DocumentReader interface {
	ReadText(ctx context.Context, att *classifier.Attachment) (string, error)
}

// ServiceParams carries the webhook service dependencies.
type ServiceParams struct {
	Classifier  *classifier.Classifier
	Drafts      drafts.Service
	Tracker     *issuance.Tracker
	Matcher     *reconcile.Matcher
	Expenses    expenses.Service
	Links       *dispatch.LinkLookup
	Messenger   gateway.Messenger
	Documents   DocumentReader
	Idempotency redis.IdempotencyStore
	EventTTL    time.Duration
	Metrics     *metrics.WebhookMetrics
}

// Service turns inbound channel events into engine actions. Every failure is
// logged and swallowed here; the transport always receives the same
// acknowledgement no matter what happened inside.
type Service interface {
	HandleEvent(ctx context.Context, payload Payload)
}

type service struct {
	classifier  *classifier.Classifier
	drafts      drafts.Service
	tracker     *issuance.Tracker
	matcher     *reconcile.Matcher
	expenses    expenses.Service
	links       *dispatch.LinkLookup
	messenger   gateway.Messenger
	documents   DocumentReader
	idempotency redis.IdempotencyStore
	eventTTL    time.Duration
	metrics     *metrics.WebhookMetrics
}

// NewService validates the dependencies and builds a Service. Idempotency and
// Metrics are optional; everything else is required.
func NewService(p ServiceParams) (Service, error) {
	if p.Classifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "channel: classifier is required")
	}
	if p.Drafts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "channel: drafts service is required")
	}
	if p.Tracker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "channel: tracker is required")
	}
	if p.Matcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "channel: matcher is required")
	}
	if p.Expenses == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "channel: expenses service is required")
	}
	if p.Links == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "channel: link lookup is required")
	}
	if p.Messenger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "channel: messenger is required")
	}
	if p.Documents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "channel: document reader is required")
	}
	if p.EventTTL <= 0 {
		p.EventTTL = 24 * time.Hour
	}
	return &service{
		classifier:  p.Classifier,
		drafts:      p.Drafts,
		tracker:     p.Tracker,
		matcher:     p.Matcher,
		expenses:    p.Expenses,
		links:       p.Links,
		messenger:   p.Messenger,
		documents:   p.Documents,
		idempotency: p.Idempotency,
		eventTTL:    p.EventTTL,
		metrics:     p.Metrics,
	}, nil
}

func (s *service) HandleEvent(ctx context.Context, payload Payload) {
	started := time.Now()
	ev := payload.toEvent()
	ctx = logger.WithConversationID(ctx, ev.ConversationID)
	log := logger.FromContext(ctx)

	if !s.claimEvent(ctx, ev.ExternalID) {
		log.Debug().Str("external_id", ev.ExternalID).Msg("event already claimed, skipping")
		return
	}

	route := s.classifier.Classify(ctx, ev)
	ctx = logger.WithEventRoute(ctx, route.String())
	log = logger.FromContext(ctx)

	var err error
	switch route {
	case enums.EventRouteReceipt:
		err = s.handleReceipt(ctx, ev)
	case enums.EventRouteExpense:
		err = s.handleExpense(ctx, ev)
	case enums.EventRouteDraft:
		err = s.handleDraft(ctx, ev)
	case enums.EventRouteDispatch:
		err = s.handleDispatch(ctx, ev)
	case enums.EventRouteMatchedLink:
		err = s.handleMatchedLink(ctx, ev)
	case enums.EventRouteIgnore:
		// Nothing to do.
	}

	if s.metrics != nil {
		s.metrics.ObserveDuration(route.String(), time.Since(started))
		if err != nil {
			s.metrics.IncDropped(route.String())
		} else {
			s.metrics.IncHandled(route.String())
		}
	}
	if err != nil {
		log.Error().Err(err).
			Str("external_id", ev.ExternalID).
			Msg("event handling failed, dropping")
	}
}

// claimEvent short-circuits replays at the transport edge. Redis being down
// or unconfigured falls through to the durable dedup in the issuance layer.
func (s *service) claimEvent(ctx context.Context, externalID string) bool {
	if s.idempotency == nil || externalID == "" {
		return true
	}
	key := s.idempotency.IdempotencyKey("channel:event", externalID)
	claimed, err := s.idempotency.SetNX(ctx, key, "1", s.eventTTL)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("idempotency store unavailable, proceeding")
		return true
	}
	return claimed
}

func (s *service) handleReceipt(ctx context.Context, ev classifier.Event) error {
	text, err := s.documents.ReadText(ctx, ev.Attachment)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read receipt document")
	}
	return s.matcher.Process(ctx, ev, text)
}

func (s *service) handleExpense(ctx context.Context, ev classifier.Event) error {
	_, err := s.expenses.RecordShorthand(ctx, ev.SenderID, ev.Text)
	return err
}

func (s *service) handleDraft(ctx context.Context, ev classifier.Event) error {
	result, err := s.drafts.ParseAndStore(ctx, ev.ConversationID, ev.Text)
	if err != nil {
		var unresolved *drafts.UnresolvedAliasError
		if errors.As(err, &unresolved) {
			reply := "Could not find these items: " + strings.Join(unresolved.Aliases, ", ")
			if sendErr := s.messenger.SendText(ctx, ev.ConversationID, reply); sendErr != nil {
				log := logger.FromContext(ctx)
				log.Error().Err(sendErr).Msg("send unresolved-alias reply")
			}
		}
		return err
	}
	reply := fmt.Sprintf("Order received. Total to pay: %s", result.TotalToPay.String())
	return s.messenger.SendText(ctx, ev.ConversationID, reply)
}

func (s *service) handleDispatch(ctx context.Context, ev classifier.Event) error {
	result, err := s.tracker.RecordDispatch(ctx, ev)
	if err != nil {
		return err
	}
	if result.Reused {
		return nil
	}
	return s.messenger.SendText(ctx, ev.ConversationID, result.Issuance.LinkURL)
}

func (s *service) handleMatchedLink(ctx context.Context, ev classifier.Event) error {
	target, err := s.links.FindActiveLink(ctx, ev.Text)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find active link")
	}
	if target == nil {
		return nil
	}
	_, err = s.tracker.RecordMatchedLink(ctx, ev, target)
	return err
}
