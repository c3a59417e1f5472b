package reconcile

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
)

// Extraction is the payment evidence pulled out of a receipt document.
type Extraction struct {
	Amount         decimal.Decimal
	CounterpartyID string
}

// Extractor turns receipt text into payment evidence. The marker-based
// implementation below is the production one; keeping it behind an interface
// lets the matching algorithm survive a receipt-format change.
type Extractor interface {
	Extract(text string) (Extraction, error)
}

var (
	amountPattern       = regexp.MustCompile(`\b(\d+(?:\s\d{3})*(?:[.,]\d{1,2})?)\b`)
	counterpartyPattern = regexp.MustCompile(`\b(\d{12})\b`)
)

type markerExtractor struct {
	marker string
}

// NewMarkerExtractor builds an Extractor that requires the given literal
// success marker to appear in the text.
func NewMarkerExtractor(marker string) Extractor {
	return &markerExtractor{marker: marker}
}

func (e *markerExtractor) Extract(text string) (Extraction, error) {
	idx := strings.Index(text, e.marker)
	if idx < 0 {
		return Extraction{}, pkgerrors.New(pkgerrors.CodeUnparsable, "success marker not found")
	}

	counterparty := counterpartyPattern.FindStringSubmatch(text)
	if counterparty == nil {
		return Extraction{}, pkgerrors.New(pkgerrors.CodeUnparsable, "counterparty id not found")
	}

	// The amount follows the marker; the counterparty id would also match
	// the amount pattern, so it is cut out first.
	tail := strings.Replace(text[idx+len(e.marker):], counterparty[1], "", 1)
	m := amountPattern.FindStringSubmatch(tail)
	if m == nil {
		return Extraction{}, pkgerrors.New(pkgerrors.CodeUnparsable, "paid amount not found")
	}
	raw := strings.ReplaceAll(strings.ReplaceAll(m[1], " ", ""), ",", ".")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return Extraction{}, pkgerrors.Wrap(pkgerrors.CodeUnparsable, err, "paid amount not numeric")
	}

	return Extraction{Amount: amount, CounterpartyID: counterparty[1]}, nil
}
