package issuance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yvoloshin/paylink-backend/internal/classifier"
	"github.com/yvoloshin/paylink-backend/internal/drafts"
	"github.com/yvoloshin/paylink-backend/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:issuance_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.PaymentIssuance{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type stubPicker struct {
	target *models.PaymentTarget
}

func (p *stubPicker) Pick(context.Context) (*models.PaymentTarget, error) {
	return p.target, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTrackerForTest(t *testing.T, db *gorm.DB, cache *drafts.LinkageCache, clock *fakeClock) (*Tracker, *models.PaymentTarget) {
	t.Helper()
	target := &models.PaymentTarget{
		ID:      uuid.New(),
		LinkURL: "https://pay.example/alpha",
	}
	tracker, err := NewTracker(TrackerParams{
		Repo:        NewRepository(db),
		Picker:      &stubPicker{target: target},
		Linkage:     cache,
		Trigger:     "send payment link",
		DedupWindow: 3 * time.Minute,
		History:     15,
		Clock:       clock.Now,
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tracker, target
}

func countIssuances(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.PaymentIssuance{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func event(externalID, text string) classifier.Event {
	return classifier.Event{
		ExternalID:     externalID,
		ConversationID: "conv-1",
		SenderID:       "cust-1",
		Text:           text,
	}
}

func TestRecordDispatchReplayCollapsesOnExternalID(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: time.Now()}
	tracker, _ := newTrackerForTest(t, db, nil, clock)
	ctx := context.Background()

	first, err := tracker.RecordDispatch(ctx, event("msg-1", "send payment link 3500"))
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if first.Reused {
		t.Fatal("first dispatch should create a record")
	}

	second, err := tracker.RecordDispatch(ctx, event("msg-1", "send payment link 3500"))
	if err != nil {
		t.Fatalf("replayed dispatch: %v", err)
	}
	if !second.Reused {
		t.Fatal("replayed delivery should reuse the record")
	}
	if second.Issuance.ID != first.Issuance.ID {
		t.Fatal("replay returned a different record")
	}
	if n := countIssuances(t, db); n != 1 {
		t.Fatalf("want 1 issuance, got %d", n)
	}
}

func TestRecordDispatchWindowReuse(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: time.Now()}
	tracker, _ := newTrackerForTest(t, db, nil, clock)
	ctx := context.Background()

	if _, err := tracker.RecordDispatch(ctx, event("msg-1", "send payment link 3500")); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	res, err := tracker.RecordDispatch(ctx, event("msg-2", "send payment link 3500"))
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if !res.Reused {
		t.Fatal("same link and amount inside the window should reuse")
	}
	if n := countIssuances(t, db); n != 1 {
		t.Fatalf("want 1 issuance, got %d", n)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	res, err = tracker.RecordDispatch(ctx, event("msg-3", "send payment link 3500"))
	if err != nil {
		t.Fatalf("third dispatch: %v", err)
	}
	if res.Reused {
		t.Fatal("past the window a new record is due")
	}
	if n := countIssuances(t, db); n != 2 {
		t.Fatalf("want 2 issuances, got %d", n)
	}
}

func TestRecordDispatchDifferentAmountIsNotADuplicate(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: time.Now()}
	tracker, _ := newTrackerForTest(t, db, nil, clock)
	ctx := context.Background()

	if _, err := tracker.RecordDispatch(ctx, event("msg-1", "send payment link 3500")); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	res, err := tracker.RecordDispatch(ctx, event("msg-2", "send payment link 4200"))
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if res.Reused {
		t.Fatal("different amount should create a separate record")
	}
	if n := countIssuances(t, db); n != 2 {
		t.Fatalf("want 2 issuances, got %d", n)
	}
}

func TestRecordMatchedLinkIgnoresAmountInWindow(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: time.Now()}
	tracker, target := newTrackerForTest(t, db, nil, clock)
	ctx := context.Background()

	if _, err := tracker.RecordDispatch(ctx, event("msg-1", "send payment link 3500")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	res, err := tracker.RecordMatchedLink(ctx, event("msg-2", "here is the link again"), target)
	if err != nil {
		t.Fatalf("matched link: %v", err)
	}
	if !res.Reused {
		t.Fatal("matched link inside the window should reuse regardless of amount")
	}
	if n := countIssuances(t, db); n != 1 {
		t.Fatalf("want 1 issuance, got %d", n)
	}
}

func TestRecordDispatchAttachesPendingBundle(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: time.Now()}
	cache := drafts.NewLinkageCache(6*time.Hour, 16, nil)
	tracker, _ := newTrackerForTest(t, db, cache, clock)
	ctx := context.Background()

	cache.Put("conv-1", drafts.PendingLinkage{
		BundleCode: "ABCD2345",
		TotalToPay: decimal.NewFromInt(3500),
	})

	res, err := tracker.RecordDispatch(ctx, event("msg-1", "send payment link 3500"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Issuance.BundleCode == nil || *res.Issuance.BundleCode != "ABCD2345" {
		t.Fatalf("bundle code not attached: %v", res.Issuance.BundleCode)
	}
	if _, ok := cache.Get("conv-1"); ok {
		t.Fatal("linkage entry should be consumed")
	}

	res, err = tracker.RecordDispatch(ctx, event("msg-2", "send payment link 9999"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Issuance.BundleCode != nil {
		t.Fatal("mismatched amount must not attach a bundle")
	}
}

func TestDedupWindowMeasuredOnInjectedClock(t *testing.T) {
	db := newTestDB(t)
	// A base far from wall time proves rows are stamped with the injected
	// clock, not the DB's.
	clock := &fakeClock{now: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)}
	tracker, _ := newTrackerForTest(t, db, nil, clock)
	ctx := context.Background()

	first, err := tracker.RecordDispatch(ctx, event("msg-clock-1", "send payment link 3500"))
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if !first.Issuance.ReceivedAt.Equal(clock.now) {
		t.Fatalf("received_at = %s, want %s", first.Issuance.ReceivedAt, clock.now)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	second, err := tracker.RecordDispatch(ctx, event("msg-clock-2", "send payment link 3500"))
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if !second.Reused {
		t.Fatal("dispatch inside the window should reuse the record")
	}

	clock.now = clock.now.Add(5 * time.Minute)
	third, err := tracker.RecordDispatch(ctx, event("msg-clock-3", "send payment link 3500"))
	if err != nil {
		t.Fatalf("third dispatch: %v", err)
	}
	if third.Reused {
		t.Fatal("dispatch past the window should create a new record")
	}
	if n := countIssuances(t, db); n != 2 {
		t.Fatalf("issuances = %d, want 2", n)
	}
}
