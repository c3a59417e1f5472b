package drafts

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
)

// DraftLine is one alias request aggregated across the draft body.
type DraftLine struct {
	Alias string // display form, first occurrence wins
	Qty   int
}

// ParsedDraft is the structured form of a free-text order draft.
type ParsedDraft struct {
	Lines         []DraftLine // keyed order preserved, qty aggregated per normalized alias
	DeliveryPrice decimal.Decimal
	NoteText      string
}

var (
	deliveryLinePattern = regexp.MustCompile(`(?i)^delivery\s+(\d+)$`)
	qtySuffixPattern    = regexp.MustCompile(`(?i)^(.*?)\s+(\d+)\s+units$`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// NormalizeAlias trims, collapses inner whitespace and case-folds an alias so
// admin formatting differences never split a product across index entries.
func NormalizeAlias(alias string) string {
	return strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(alias), " "))
}

// ParseDraft parses the draft grammar: a literal header line, alias lines
// (optionally suffixed with a quantity) up to a "delivery <digits>" line, and
// free note text after it. Quantities aggregate per normalized alias.
func ParseDraft(text, header string) (*ParsedDraft, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) == 0 || NormalizeAlias(lines[0]) != NormalizeAlias(header) {
		return nil, pkgerrors.New(pkgerrors.CodeUnparsable, "draft header missing")
	}

	parsed := &ParsedDraft{}
	quantities := map[string]int{}
	order := []string{}
	display := map[string]string{}

	deliveryIdx := -1
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if m := deliveryLinePattern.FindStringSubmatch(line); m != nil {
			price, err := decimal.NewFromString(m[1])
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeUnparsable, err, "delivery price")
			}
			parsed.DeliveryPrice = price
			deliveryIdx = i
			break
		}

		alias, qty := splitAliasLine(line)
		if alias == "" {
			continue
		}
		key := NormalizeAlias(alias)
		if _, seen := quantities[key]; !seen {
			order = append(order, key)
			display[key] = alias
		}
		quantities[key] += qty
	}

	if deliveryIdx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnparsable, "delivery line missing")
	}
	if len(order) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnparsable, "draft has no alias lines")
	}

	if deliveryIdx+1 < len(lines) {
		parsed.NoteText = strings.TrimSpace(strings.Join(lines[deliveryIdx+1:], "\n"))
	}

	for _, key := range order {
		parsed.Lines = append(parsed.Lines, DraftLine{Alias: display[key], Qty: quantities[key]})
	}
	return parsed, nil
}

func splitAliasLine(line string) (string, int) {
	if m := qtySuffixPattern.FindStringSubmatch(line); m != nil {
		qty := 0
		for _, ch := range m[2] {
			qty = qty*10 + int(ch-'0')
		}
		if qty > 0 {
			return strings.TrimSpace(m[1]), qty
		}
	}
	return line, 1
}
