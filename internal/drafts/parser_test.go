package drafts

import (
	"testing"

	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
)

func TestParseDraft(t *testing.T) {
	parsed, err := ParseDraft("Order\nTincture X 2 units\ndelivery 1500\nLeave at gate", "order")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(parsed.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(parsed.Lines))
	}
	if parsed.Lines[0].Alias != "Tincture X" || parsed.Lines[0].Qty != 2 {
		t.Fatalf("unexpected line %+v", parsed.Lines[0])
	}
	if !parsed.DeliveryPrice.Equal(decimalFromInt(1500)) {
		t.Fatalf("unexpected delivery price %s", parsed.DeliveryPrice)
	}
	if parsed.NoteText != "Leave at gate" {
		t.Fatalf("unexpected note %q", parsed.NoteText)
	}
}

func TestParseDraftAggregatesAliases(t *testing.T) {
	parsed, err := ParseDraft("order\nTincture  x\ntincture X 2 units\nBalm\ndelivery 100", "order")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(parsed.Lines) != 2 {
		t.Fatalf("expected aggregation to 2 lines, got %d", len(parsed.Lines))
	}
	if parsed.Lines[0].Qty != 3 {
		t.Fatalf("expected aggregated qty 3, got %d", parsed.Lines[0].Qty)
	}
	if parsed.Lines[1].Alias != "Balm" || parsed.Lines[1].Qty != 1 {
		t.Fatalf("expected default qty 1 for Balm, got %+v", parsed.Lines[1])
	}
}

func TestParseDraftGrammarFailures(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{name: "missing header", text: "Hi\nTincture X\ndelivery 100"},
		{name: "missing delivery line", text: "order\nTincture X"},
		{name: "no alias lines", text: "order\ndelivery 100"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDraft(tc.text, "order")
			if err == nil {
				t.Fatal("expected parse error")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnparsable {
				t.Fatalf("expected unparsable code, got %v", err)
			}
		})
	}
}

func TestNormalizeAlias(t *testing.T) {
	if got := NormalizeAlias("  Tincture   X "); got != "tincture x" {
		t.Fatalf("unexpected normalization %q", got)
	}
}
