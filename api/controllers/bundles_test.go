package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/internal/drafts"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
	"github.com/yvoloshin/paylink-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:controllers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Product{},
		&models.OrderDraftBundle{},
		&models.PaymentTarget{},
		&models.DispatchPlan{},
		&models.Order{},
		&models.PaymentIssuance{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newDraftsService(t *testing.T, db *gorm.DB) drafts.Service {
	t.Helper()
	svc, err := drafts.NewService(drafts.ServiceParams{
		Repo:        drafts.NewRepository(db),
		Linkage:     drafts.NewLinkageCache(6*time.Hour, 16, nil),
		DraftHeader: "order",
	})
	if err != nil {
		t.Fatalf("drafts service: %v", err)
	}
	return svc
}

func bundleRouter(svc drafts.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/bundles/{code}", FetchBundle(svc, nil))
	return r
}

func TestFetchBundleReturnsItems(t *testing.T) {
	db := newTestDB(t)
	productID := uuid.New()
	bundle := models.OrderDraftBundle{
		Code:          "ABCD2345",
		DeliveryPrice: decimal.NewFromInt(1500),
		NoteText:      "Leave at gate",
		Items:         []models.BundleItem{{ProductID: productID, Alias: "tincture x", Qty: 2}},
	}
	if err := db.Create(&bundle).Error; err != nil {
		t.Fatalf("seed bundle: %v", err)
	}
	router := bundleRouter(newDraftsService(t, db))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bundles/ABCD2345", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data bundleResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Code != "ABCD2345" {
		t.Fatalf("code = %q", envelope.Data.Code)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].Qty != 2 {
		t.Fatalf("items = %+v", envelope.Data.Items)
	}
	if envelope.Data.DeliveryPrice != "1500" {
		t.Fatalf("delivery = %q", envelope.Data.DeliveryPrice)
	}
}

func TestFetchBundleUnknownCode(t *testing.T) {
	db := newTestDB(t)
	router := bundleRouter(newDraftsService(t, db))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bundles/NOPE2345", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != "NOT_FOUND" {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}
}
