package drafts

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
)

// Ambiguous glyphs are excluded so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength      = 8
	maxCodeAttempts = 10
)

// DraftResult reports a stored bundle back to the webhook handler.
type DraftResult struct {
	BundleCode string
	TotalToPay decimal.Decimal
}

// UnresolvedAliasError carries the full set of aliases the catalog could not
// resolve; the caller replies to the sender naming them.
type UnresolvedAliasError struct {
	Aliases []string
}

func (e *UnresolvedAliasError) Error() string {
	return fmt.Sprintf("unresolved aliases: %s", strings.Join(e.Aliases, ", "))
}

// Service parses free-text order drafts into persisted bundles.
type Service interface {
	ParseAndStore(ctx context.Context, conversationID, text string) (*DraftResult, error)
	FetchBundle(ctx context.Context, code string) (*models.OrderDraftBundle, error)
}

type ServiceParams struct {
	Repo        Repository
	Linkage     *LinkageCache
	DraftHeader string
}

type service struct {
	repo    Repository
	linkage *LinkageCache
	header  string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "drafts repo required")
	}
	if params.Linkage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "linkage cache required")
	}
	if params.DraftHeader == "" {
		params.DraftHeader = "order"
	}
	return &service{
		repo:    params.Repo,
		linkage: params.Linkage,
		header:  params.DraftHeader,
	}, nil
}

// ParseAndStore parses the draft, resolves every alias against a freshly
// built index, persists the bundle, and records the transient linkage. The
// alias index is rebuilt on every call so admin alias edits take effect
// immediately. Nothing is persisted when any alias stays unresolved.
func (s *service) ParseAndStore(ctx context.Context, conversationID, text string) (*DraftResult, error) {
	parsed, err := ParseDraft(text, s.header)
	if err != nil {
		return nil, err
	}

	index, err := s.buildAliasIndex(ctx)
	if err != nil {
		return nil, err
	}

	var items []models.BundleItem
	var unresolved []string
	productsTotal := decimal.Zero
	for _, line := range parsed.Lines {
		product, ok := index[NormalizeAlias(line.Alias)]
		if !ok {
			unresolved = append(unresolved, line.Alias)
			continue
		}
		items = append(items, models.BundleItem{
			ProductID: product.ID,
			Alias:     line.Alias,
			Qty:       line.Qty,
		})
		productsTotal = productsTotal.Add(product.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	if len(unresolved) > 0 {
		return nil, &UnresolvedAliasError{Aliases: unresolved}
	}

	totalToPay := productsTotal.Add(parsed.DeliveryPrice)

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	bundle := &models.OrderDraftBundle{
		Code:          code,
		DeliveryPrice: parsed.DeliveryPrice,
		NoteText:      parsed.NoteText,
		Items:         items,
	}
	if err := s.repo.CreateBundle(ctx, bundle); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist bundle")
	}

	s.linkage.Put(conversationID, PendingLinkage{
		BundleCode: code,
		TotalToPay: totalToPay,
		RawText:    text,
	})

	return &DraftResult{BundleCode: code, TotalToPay: totalToPay}, nil
}

// FetchBundle is a pure read; redemption never consumes the bundle.
func (s *service) FetchBundle(ctx context.Context, code string) (*models.OrderDraftBundle, error) {
	bundle, err := s.repo.FindBundleByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bundle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bundle")
	}
	return bundle, nil
}

func (s *service) buildAliasIndex(ctx context.Context) (map[string]models.Product, error) {
	products, err := s.repo.ListAliasedProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list aliased products")
	}
	index := make(map[string]models.Product, len(products))
	for _, product := range products {
		if product.Alias == nil {
			continue
		}
		key := NormalizeAlias(*product.Alias)
		if key == "" {
			continue
		}
		// first match wins per normalized alias
		if _, exists := index[key]; !exists {
			index[key] = product
		}
	}
	return index, nil
}

func (s *service) generateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode(codeLength)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate bundle code")
		}
		exists, err := s.repo.BundleCodeExists(ctx, code)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check bundle code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "bundle code space exhausted")
}

func randomCode(length int) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
