package drafts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
)

func decimalFromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:drafts_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.OrderDraftBundle{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, alias string, price int64) models.Product {
	t.Helper()
	product := models.Product{
		ID:        uuid.New(),
		Title:     alias,
		Alias:     &alias,
		UnitPrice: decimal.NewFromInt(price),
		IsActive:  true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func newServiceForTest(t *testing.T, db *gorm.DB) (Service, *LinkageCache) {
	t.Helper()
	cache := NewLinkageCache(6*time.Hour, 16, nil)
	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(db),
		Linkage:     cache,
		DraftHeader: "order",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, cache
}

func TestParseAndStoreSuccess(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Tincture X", 1000)
	svc, cache := newServiceForTest(t, db)

	result, err := svc.ParseAndStore(ctx, "conv-1", "Order\nTincture X 2 units\ndelivery 1500\nLeave at gate")
	if err != nil {
		t.Fatalf("parse and store: %v", err)
	}
	if !result.TotalToPay.Equal(decimal.NewFromInt(3500)) {
		t.Fatalf("expected total 3500, got %s", result.TotalToPay)
	}

	bundle, err := svc.FetchBundle(ctx, result.BundleCode)
	if err != nil {
		t.Fatalf("fetch bundle: %v", err)
	}
	if len(bundle.Items) != 1 || bundle.Items[0].ProductID != product.ID || bundle.Items[0].Qty != 2 {
		t.Fatalf("unexpected items %+v", bundle.Items)
	}
	if !bundle.DeliveryPrice.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("unexpected delivery price %s", bundle.DeliveryPrice)
	}
	if bundle.NoteText != "Leave at gate" {
		t.Fatalf("unexpected note %q", bundle.NoteText)
	}

	linkage, ok := cache.Get("conv-1")
	if !ok {
		t.Fatal("expected pending linkage for conversation")
	}
	if linkage.BundleCode != result.BundleCode || !linkage.TotalToPay.Equal(result.TotalToPay) {
		t.Fatalf("unexpected linkage %+v", linkage)
	}

	// redemption is a read, not a consume
	if _, err := svc.FetchBundle(ctx, result.BundleCode); err != nil {
		t.Fatalf("second fetch should succeed: %v", err)
	}
}

func TestParseAndStoreUnresolvedAlias(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedProduct(t, db, "Tincture X", 1000)
	svc, cache := newServiceForTest(t, db)

	_, err := svc.ParseAndStore(ctx, "conv-1", "order\nGhost Item\ndelivery 100")
	if err == nil {
		t.Fatal("expected unresolved alias error")
	}
	var unresolved *UnresolvedAliasError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedAliasError, got %v", err)
	}
	if len(unresolved.Aliases) != 1 || unresolved.Aliases[0] != "Ghost Item" {
		t.Fatalf("expected exactly the missing alias, got %v", unresolved.Aliases)
	}

	var count int64
	if err := db.Model(&models.OrderDraftBundle{}).Count(&count).Error; err != nil {
		t.Fatalf("count bundles: %v", err)
	}
	if count != 0 {
		t.Fatalf("no bundle should persist on unresolved alias, got %d", count)
	}
	if _, ok := cache.Get("conv-1"); ok {
		t.Fatal("no linkage should be recorded on failure")
	}
}

func TestParseAndStoreAliasEditTakesEffect(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Old Name", 500)
	svc, _ := newServiceForTest(t, db)

	if _, err := svc.ParseAndStore(ctx, "conv-1", "order\nNew Name\ndelivery 10"); err == nil {
		t.Fatal("expected unresolved alias before edit")
	}

	newAlias := "New Name"
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Update("alias", &newAlias).Error; err != nil {
		t.Fatalf("update alias: %v", err)
	}

	result, err := svc.ParseAndStore(ctx, "conv-1", "order\nNew Name\ndelivery 10")
	if err != nil {
		t.Fatalf("index should be rebuilt per draft: %v", err)
	}
	if !result.TotalToPay.Equal(decimal.NewFromInt(510)) {
		t.Fatalf("expected total 510, got %s", result.TotalToPay)
	}
}

func TestFetchBundleNotFound(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newServiceForTest(t, db)

	_, err := svc.FetchBundle(context.Background(), "NOPE1234")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
