package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
)

func TestMarkerExtractorHappyPath(t *testing.T) {
	ex := NewMarkerExtractor("Payment successful")
	text := "Payment successful\nAmount: 3 500.00\nRecipient: 123456789012\n"

	got, err := ex.Extract(text)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !got.Amount.Equal(decimal.NewFromInt(3500)) {
		t.Fatalf("amount = %s, want 3500", got.Amount.String())
	}
	if got.CounterpartyID != "123456789012" {
		t.Fatalf("counterparty = %s", got.CounterpartyID)
	}
}

func TestMarkerExtractorRequiresMarker(t *testing.T) {
	ex := NewMarkerExtractor("Payment successful")
	_, err := ex.Extract("Transfer declined\nAmount: 3500\nRecipient: 123456789012")
	if err == nil {
		t.Fatal("want error for missing marker")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnparsable {
		t.Fatalf("want unparsable error, got %v", err)
	}
}

func TestMarkerExtractorRequiresCounterparty(t *testing.T) {
	ex := NewMarkerExtractor("Payment successful")
	_, err := ex.Extract("Payment successful\nAmount: 3500")
	if err == nil {
		t.Fatal("want error for missing counterparty id")
	}
}

func TestMarkerExtractorAmountDoesNotEatCounterparty(t *testing.T) {
	ex := NewMarkerExtractor("Payment successful")
	got, err := ex.Extract("Payment successful 123456789012 4200")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !got.Amount.Equal(decimal.NewFromInt(4200)) {
		t.Fatalf("amount = %s, want 4200", got.Amount.String())
	}
}
