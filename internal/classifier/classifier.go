package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/yvoloshin/paylink-backend/pkg/enums"
)

// Attachment describes a file carried by an inbound event.
type Attachment struct {
	ContentType string
	FileRef     string
	FileName    string
}

// Event is one raw webhook payload after transport decoding.
type Event struct {
	ExternalID     string
	ConversationID string
	SenderID       string
	SenderPhone    string
	Text           string
	Attachment     *Attachment
}

// ActiveLinkLookup answers whether the text contains a currently usable
// payment link.
type ActiveLinkLookup interface {
	ContainsActiveLink(ctx context.Context, text string) (bool, error)
}

// Classifier routes a raw event to one of the handling paths. It never
// mutates state and never fails; events that fit no path are ignored.
type Classifier struct {
	trigger string
	header  string
	links   ActiveLinkLookup
}

var expensePattern = regexp.MustCompile(`^\.\s+\d+(?:[.,]\d+)?\s+\S+`)

var documentContentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument",
	"image/",
}

func New(trigger, draftHeader string, links ActiveLinkLookup) *Classifier {
	return &Classifier{
		trigger: strings.ToLower(strings.TrimSpace(trigger)),
		header:  strings.ToLower(strings.TrimSpace(draftHeader)),
		links:   links,
	}
}

// Classify applies the ordered classification rules from the handling design:
// receipt document, expense shorthand, order draft, dispatch trigger, matched
// active link, otherwise ignore.
func (c *Classifier) Classify(ctx context.Context, event Event) enums.EventRoute {
	if isReceiptDocument(event) {
		return enums.EventRouteReceipt
	}

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return enums.EventRouteIgnore
	}

	if expensePattern.MatchString(text) {
		return enums.EventRouteExpense
	}

	if c.matchesDraftHeader(text) {
		return enums.EventRouteDraft
	}

	if strings.HasPrefix(strings.ToLower(text), c.trigger) {
		return enums.EventRouteDispatch
	}

	if c.links != nil {
		if found, err := c.links.ContainsActiveLink(ctx, text); err == nil && found {
			return enums.EventRouteMatchedLink
		}
	}

	return enums.EventRouteIgnore
}

func (c *Classifier) matchesDraftHeader(text string) bool {
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}
	return strings.ToLower(strings.TrimSpace(firstLine)) == c.header
}

func isReceiptDocument(event Event) bool {
	if event.Attachment == nil || event.SenderID == "" {
		return false
	}
	ct := strings.ToLower(strings.TrimSpace(event.Attachment.ContentType))
	for _, prefix := range documentContentTypes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}
