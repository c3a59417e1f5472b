package classifier

import (
	"context"
	"testing"

	"github.com/yvoloshin/paylink-backend/pkg/enums"
)

type stubLinks struct {
	match bool
}

func (s stubLinks) ContainsActiveLink(context.Context, string) (bool, error) {
	return s.match, nil
}

func TestClassifyOrderedRules(t *testing.T) {
	ctx := context.Background()
	c := New("send payment link", "order", stubLinks{})

	tests := []struct {
		name  string
		event Event
		want  enums.EventRoute
	}{
		{
			name: "receipt document",
			event: Event{
				SenderID:   "cust-1",
				Attachment: &Attachment{ContentType: "application/pdf", FileRef: "f1"},
			},
			want: enums.EventRouteReceipt,
		},
		{
			name:  "attachment without sender is ignored",
			event: Event{Attachment: &Attachment{ContentType: "application/pdf"}},
			want:  enums.EventRouteIgnore,
		},
		{
			name:  "expense shorthand",
			event: Event{SenderID: "admin", Text: ". 1200 packaging"},
			want:  enums.EventRouteExpense,
		},
		{
			name:  "order draft",
			event: Event{SenderID: "cust-1", Text: "Order\nTincture X 2 units\ndelivery 1500"},
			want:  enums.EventRouteDraft,
		},
		{
			name:  "dispatch trigger",
			event: Event{SenderID: "admin", Text: "Send payment link 3500"},
			want:  enums.EventRouteDispatch,
		},
		{
			name:  "plain text ignored",
			event: Event{SenderID: "cust-1", Text: "hello there"},
			want:  enums.EventRouteIgnore,
		},
		{
			name:  "empty text ignored",
			event: Event{SenderID: "cust-1"},
			want:  enums.EventRouteIgnore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(ctx, tt.event); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyMatchedLink(t *testing.T) {
	ctx := context.Background()

	c := New("send payment link", "order", stubLinks{match: true})
	event := Event{SenderID: "cust-1", Text: "paying here https://pay.example.com/abc"}
	if got := c.Classify(ctx, event); got != enums.EventRouteMatchedLink {
		t.Fatalf("expected matched_link, got %s", got)
	}

	c = New("send payment link", "order", stubLinks{match: false})
	if got := c.Classify(ctx, event); got != enums.EventRouteIgnore {
		t.Fatalf("expected ignore, got %s", got)
	}
}

func TestClassifyExpenseBeatsDraft(t *testing.T) {
	ctx := context.Background()
	c := New("send payment link", ". 100 misc", stubLinks{})
	if got := c.Classify(ctx, Event{SenderID: "a", Text: ". 100 misc"}); got != enums.EventRouteExpense {
		t.Fatalf("expense rule must run before draft rule, got %s", got)
	}
}
