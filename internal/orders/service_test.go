package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/internal/drafts"
	"github.com/yvoloshin/paylink-backend/internal/inventory"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	"github.com/yvoloshin/paylink-backend/pkg/enums"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.OrderDraftBundle{}, &models.Order{}))
	return db
}

func intPtr(v int) *int { return &v }

func seedProduct(t *testing.T, db *gorm.DB, title string, price int64, stock *int) models.Product {
	t.Helper()
	product := models.Product{
		ID:        uuid.New(),
		Title:     title,
		UnitPrice: decimal.NewFromInt(price),
		StockQty:  stock,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func seedBundle(t *testing.T, db *gorm.DB, code string, delivery int64, items []models.BundleItem) {
	t.Helper()
	bundle := models.OrderDraftBundle{
		Code:          code,
		DeliveryPrice: decimal.NewFromInt(delivery),
		Items:         items,
	}
	require.NoError(t, db.Create(&bundle).Error)
}

func newServiceForTest(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	cache := drafts.NewLinkageCache(6*time.Hour, 16, nil)
	draftSvc, err := drafts.NewService(drafts.ServiceParams{
		Repo:        drafts.NewRepository(db),
		Linkage:     cache,
		DraftHeader: "order",
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(db),
		Drafts:    draftSvc,
		Inventory: inventory.NewCoordinator(db),
	})
	require.NoError(t, err)
	return svc
}

func TestCreateOrderRedeemsBundle(t *testing.T) {
	db := newTestDB(t)
	svc := newServiceForTest(t, db)
	product := seedProduct(t, db, "Tincture X", 1000, intPtr(10))
	seedBundle(t, db, "ABCD2345", 1500, []models.BundleItem{
		{ProductID: product.ID, Alias: "tincture x", Qty: 2},
	})

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		BundleCode:    "ABCD2345",
		CustomerPhone: "998900000001",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !order.TotalPrice.Equal(decimal.NewFromInt(3500)) {
		t.Fatalf("total = %s, want 3500", order.TotalPrice.String())
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if order.BundleCode == nil || *order.BundleCode != "ABCD2345" {
		t.Fatal("bundle code not stamped on order")
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if *reloaded.StockQty != 8 {
		t.Fatalf("stock = %d, want 8", *reloaded.StockQty)
	}
}

func TestCreateOrderUnknownBundle(t *testing.T) {
	db := newTestDB(t)
	svc := newServiceForTest(t, db)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		BundleCode:    "NOPE2345",
		CustomerPhone: "998900000001",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("want not-found error, got %v", err)
	}
}

func TestCreateOrderShortfallCreatesNothing(t *testing.T) {
	db := newTestDB(t)
	svc := newServiceForTest(t, db)
	plenty := seedProduct(t, db, "Tincture X", 1000, intPtr(10))
	scarce := seedProduct(t, db, "Tincture Y", 2000, intPtr(1))
	seedBundle(t, db, "ABCD2345", 0, []models.BundleItem{
		{ProductID: plenty.ID, Alias: "tincture x", Qty: 2},
		{ProductID: scarce.ID, Alias: "tincture y", Qty: 3},
	})

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		BundleCode:    "ABCD2345",
		CustomerPhone: "998900000001",
	})
	var shortfall *inventory.ShortfallError
	if !errors.As(err, &shortfall) {
		t.Fatalf("want shortfall error, got %v", err)
	}

	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatal("no order should exist after a shortfall")
	}
	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", plenty.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if *reloaded.StockQty != 10 {
		t.Fatalf("first item stock = %d, want 10 untouched", *reloaded.StockQty)
	}
}
