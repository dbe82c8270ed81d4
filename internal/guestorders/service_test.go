package guestorders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kagetora-io/clubledger-backend/internal/orders"
	"github.com/kagetora-io/clubledger-backend/pkg/db/models"
	"github.com/kagetora-io/clubledger-backend/pkg/enums"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
)

const sqliteUUID = "(lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-4' || substr(lower(hex(randomblob(2))),2) || '-a' || substr(lower(hex(randomblob(2))),2) || '-' || lower(hex(randomblob(6))))"

func setupGuestOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	visits := `
CREATE TABLE visits (
  id TEXT PRIMARY KEY DEFAULT ` + sqliteUUID + `,
  primary_guest_id TEXT,
  seating_plan_code TEXT NOT NULL,
  check_in_at DATETIME NOT NULL,
  check_out_at DATETIME,
  guest_count INTEGER NOT NULL DEFAULT 1,
  is_group_visit INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'active',
  merged_into_visit_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	visitGuests := `
CREATE TABLE visit_guests (
  id TEXT PRIMARY KEY DEFAULT ` + sqliteUUID + `,
  visit_id TEXT NOT NULL,
  customer_id TEXT,
  guest_name TEXT,
  guest_phone TEXT,
  guest_type TEXT NOT NULL,
  seat_position TEXT,
  relationship_to_main TEXT,
  is_primary_payer INTEGER NOT NULL DEFAULT 0,
  subtotal INTEGER NOT NULL DEFAULT 0,
  service_amount INTEGER NOT NULL DEFAULT 0,
  tax_amount INTEGER NOT NULL DEFAULT 0,
  total INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE order_items (
  id TEXT PRIMARY KEY DEFAULT ` + sqliteUUID + `,
  visit_id TEXT NOT NULL,
  product_id TEXT,
  name TEXT NOT NULL,
  line_type TEXT NOT NULL DEFAULT 'drink',
  target_cast_id TEXT,
  quantity INTEGER NOT NULL DEFAULT 1,
  unit_price INTEGER NOT NULL,
  total INTEGER NOT NULL,
  placed_at DATETIME NOT NULL,
  corrects_item_id TEXT,
  corrected_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	shares := `
CREATE TABLE guest_order_shares (
  id TEXT PRIMARY KEY DEFAULT ` + sqliteUUID + `,
  order_item_id TEXT NOT NULL,
  visit_guest_id TEXT NOT NULL,
  quantity_for_guest TEXT NOT NULL,
  amount_for_guest INTEGER NOT NULL,
  is_shared_item INTEGER NOT NULL DEFAULT 0,
  shared_percentage TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (order_item_id, visit_guest_id)
);`
	require.NoError(t, db.Exec(visits).Error)
	require.NoError(t, db.Exec(visitGuests).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec(shares).Error)
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type visitFinder struct {
	db *gorm.DB
}

func (f visitFinder) FindVisitByID(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	var visit models.Visit
	if err := f.db.WithContext(ctx).First(&visit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &visit, nil
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db), orders.NewRepository(db), visitFinder{db: db}, 0.10, 0.10, 0.01)
	require.NoError(t, err)
	return svc
}

func seedVisit(t *testing.T, db *gorm.DB, status enums.VisitStatus) *models.Visit {
	t.Helper()

	visit := &models.Visit{
		ID:              uuid.New(),
		SeatingPlanCode: "BAR",
		CheckInAt:       time.Now().UTC().Add(-time.Hour),
		GuestCount:      1,
		Status:          status,
	}
	require.NoError(t, db.Create(visit).Error)
	return visit
}

func seedGuest(t *testing.T, db *gorm.DB, visitID uuid.UUID, gt enums.GuestType, payer bool) *models.VisitGuest {
	t.Helper()

	name := "Guest " + uuid.NewString()[:8]
	guest := &models.VisitGuest{
		ID:             uuid.New(),
		VisitID:        visitID,
		GuestName:      &name,
		GuestType:      gt,
		IsPrimaryPayer: payer,
	}
	require.NoError(t, db.Create(guest).Error)
	return guest
}

func seedItem(t *testing.T, db *gorm.DB, visitID uuid.UUID, qty int, total int64) *models.OrderItem {
	t.Helper()

	item := &models.OrderItem{
		ID:        uuid.New(),
		VisitID:   visitID,
		Name:      "Champagne",
		LineType:  enums.QuoteLineTypeDrink,
		Quantity:  qty,
		UnitPrice: total / int64(qty),
		Total:     total,
		PlacedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func loadGuest(t *testing.T, db *gorm.DB, id uuid.UUID) *models.VisitGuest {
	t.Helper()

	var guest models.VisitGuest
	require.NoError(t, db.First(&guest, "id = ?", id).Error)
	return &guest
}

func TestServiceSplitOrder_amountsReconcile(t *testing.T) {
	db := setupGuestOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	visit := seedVisit(t, db, enums.VisitStatusActive)
	main := seedGuest(t, db, visit.ID, enums.GuestTypeMain, true)
	companion := seedGuest(t, db, visit.ID, enums.GuestTypeCompanion, false)
	item := seedItem(t, db, visit.ID, 2, 1000)

	rows, err := svc.SplitOrder(ctx, item.ID, []ShareInput{
		{GuestID: main.ID, Percentage: decimal.NewFromInt(60)},
		{GuestID: companion.ID, Percentage: decimal.NewFromInt(40)},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(600), rows[0].AmountForGuest)
	assert.Equal(t, int64(400), rows[1].AmountForGuest)
	assert.True(t, rows[0].IsSharedItem)

	updated := loadGuest(t, db, main.ID)
	assert.Equal(t, int64(600), updated.Subtotal)
	assert.Equal(t, int64(60), updated.ServiceAmount)
	assert.Equal(t, int64(66), updated.TaxAmount)
	assert.Equal(t, int64(726), updated.Total)

	other := loadGuest(t, db, companion.ID)
	assert.Equal(t, int64(400), other.Subtotal)
	assert.Equal(t, int64(484), other.Total)
}

func TestServiceVoidAllocations_backsOutGuestTotals(t *testing.T) {
	db := setupGuestOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	visit := seedVisit(t, db, enums.VisitStatusActive)
	main := seedGuest(t, db, visit.ID, enums.GuestTypeMain, true)
	companion := seedGuest(t, db, visit.ID, enums.GuestTypeCompanion, false)
	item := seedItem(t, db, visit.ID, 2, 1000)

	_, err := svc.SplitOrder(ctx, item.ID, []ShareInput{
		{GuestID: main.ID, Percentage: decimal.NewFromInt(60)},
		{GuestID: companion.ID, Percentage: decimal.NewFromInt(40)},
	})
	require.NoError(t, err)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.VoidAllocations(ctx, tx, item.ID)
	}))

	shares, err := svc.ListShares(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, shares)

	for _, guestID := range []uuid.UUID{main.ID, companion.ID} {
		guest := loadGuest(t, db, guestID)
		assert.Equal(t, int64(0), guest.Subtotal)
		assert.Equal(t, int64(0), guest.Total)
	}
}

func TestServiceSplitOrder_remainderGoesToLargestShare(t *testing.T) {
	db := setupGuestOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	visit := seedVisit(t, db, enums.VisitStatusActive)
	a := seedGuest(t, db, visit.ID, enums.GuestTypeMain, true)
	b := seedGuest(t, db, visit.ID, enums.GuestTypeCompanion, false)
	c := seedGuest(t, db, visit.ID, enums.GuestTypeCompanion, false)
	item := seedItem(t, db, visit.ID, 1, 1000)

	rows, err := svc.SplitOrder(ctx, item.ID, []ShareInput{
		{GuestID: a.ID, Percentage: decimal.NewFromFloat(33.34)},
		{GuestID: b.ID, Percentage: decimal.NewFromFloat(33.33)},
		{GuestID: c.ID, Percentage: decimal.NewFromFloat(33.33)},
	})
	require.NoError(t, err)

	var sum int64
	for _, row := range rows {
		sum += row.AmountForGuest
	}
	assert.Equal(t, int64(1000), sum)
	assert.Equal(t, int64(334), rows[0].AmountForGuest)
}

func TestServiceSplitOrder_imbalanceRejected(t *testing.T) {
	db := setupGuestOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	visit := seedVisit(t, db, enums.VisitStatusActive)
	main := seedGuest(t, db, visit.ID, enums.GuestTypeMain, true)
	companion := seedGuest(t, db, visit.ID, enums.GuestTypeCompanion, false)
	item := seedItem(t, db, visit.ID, 1, 1000)

	_, err := svc.SplitOrder(ctx, item.ID, []ShareInput{
		{GuestID: main.ID, Percentage: decimal.NewFromInt(60)},
		{GuestID: companion.ID, Percentage: decimal.NewFromInt(30)},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeImbalance))

	var count int64
	require.NoError(t, db.Model(&models.GuestOrderShare{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, loadGuest(t, db, main.ID).Subtotal)
}

func TestServiceAssignToGuest_reassignmentReversesPriorShare(t *testing.T) {
	db := setupGuestOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	visit := seedVisit(t, db, enums.VisitStatusActive)
	first := seedGuest(t, db, visit.ID, enums.GuestTypeMain, true)
	second := seedGuest(t, db, visit.ID, enums.GuestTypeCompanion, false)
	item := seedItem(t, db, visit.ID, 1, 5000)

	_, err := svc.AssignToGuest(ctx, item.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), loadGuest(t, db, first.ID).Subtotal)

	share, err := svc.AssignToGuest(ctx, item.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), share.AmountForGuest)
	assert.False(t, share.IsSharedItem)

	reversed := loadGuest(t, db, first.ID)
	assert.Zero(t, reversed.Subtotal)
	assert.Zero(t, reversed.Total)
	assert.Equal(t, int64(5000), loadGuest(t, db, second.ID).Subtotal)

	remaining, err := svc.ListShares(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, second.ID, remaining[0].VisitGuestID)
}

func TestServiceAssignToGuest_rejectsForeignGuest(t *testing.T) {
	db := setupGuestOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	visit := seedVisit(t, db, enums.VisitStatusActive)
	other := seedVisit(t, db, enums.VisitStatusActive)
	stranger := seedGuest(t, db, other.ID, enums.GuestTypeMain, true)
	item := seedItem(t, db, visit.ID, 1, 1000)

	_, err := svc.AssignToGuest(ctx, item.ID, stranger.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestServiceAssignToGuest_rejectsCorrectedItem(t *testing.T) {
	db := setupGuestOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	visit := seedVisit(t, db, enums.VisitStatusActive)
	guest := seedGuest(t, db, visit.ID, enums.GuestTypeMain, true)
	item := seedItem(t, db, visit.ID, 1, 1000)
	now := time.Now().UTC()
	require.NoError(t, db.Model(item).Update("corrected_at", now).Error)

	_, err := svc.AssignToGuest(ctx, item.ID, guest.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestServiceRegisterGuest(t *testing.T) {
	db := setupGuestOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	visit := seedVisit(t, db, enums.VisitStatusActive)
	seedGuest(t, db, visit.ID, enums.GuestTypeMain, true)

	name := "Aoi"
	guest, err := svc.RegisterGuest(ctx, visit.ID, RegisterGuestInput{
		GuestName: &name,
		GuestType: enums.GuestTypeCompanion,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, guest.ID)
	assert.False(t, guest.IsPrimaryPayer)

	var reloaded models.Visit
	require.NoError(t, db.First(&reloaded, "id = ?", visit.ID).Error)
	assert.Equal(t, 2, reloaded.GuestCount)
	assert.True(t, reloaded.IsGroupVisit)
}

func TestServiceRegisterGuest_primaryPayerSwaps(t *testing.T) {
	db := setupGuestOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	visit := seedVisit(t, db, enums.VisitStatusActive)
	main := seedGuest(t, db, visit.ID, enums.GuestTypeMain, true)

	name := "Rin"
	guest, err := svc.RegisterGuest(ctx, visit.ID, RegisterGuestInput{
		GuestName:      &name,
		GuestType:      enums.GuestTypeCompanion,
		IsPrimaryPayer: true,
	})
	require.NoError(t, err)
	assert.True(t, guest.IsPrimaryPayer)
	assert.False(t, loadGuest(t, db, main.ID).IsPrimaryPayer)

	var payers int64
	require.NoError(t, db.Model(&models.VisitGuest{}).
		Where("visit_id = ? AND is_primary_payer = ?", visit.ID, true).
		Count(&payers).Error)
	assert.Equal(t, int64(1), payers)
}

func TestServiceRegisterGuest_rejections(t *testing.T) {
	db := setupGuestOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	active := seedVisit(t, db, enums.VisitStatusActive)
	done := seedVisit(t, db, enums.VisitStatusCompleted)
	name := "Mio"

	_, err := svc.RegisterGuest(ctx, active.ID, RegisterGuestInput{GuestName: &name, GuestType: enums.GuestTypeMain})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.RegisterGuest(ctx, active.ID, RegisterGuestInput{GuestType: enums.GuestTypeCompanion})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.RegisterGuest(ctx, done.ID, RegisterGuestInput{GuestName: &name, GuestType: enums.GuestTypeCompanion})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestServiceSetPrimaryPayer(t *testing.T) {
	db := setupGuestOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	visit := seedVisit(t, db, enums.VisitStatusActive)
	main := seedGuest(t, db, visit.ID, enums.GuestTypeMain, true)
	companion := seedGuest(t, db, visit.ID, enums.GuestTypeCompanion, false)

	require.NoError(t, svc.SetPrimaryPayer(ctx, visit.ID, companion.ID))
	assert.False(t, loadGuest(t, db, main.ID).IsPrimaryPayer)
	assert.True(t, loadGuest(t, db, companion.ID).IsPrimaryPayer)

	// already the payer: no-op
	require.NoError(t, svc.SetPrimaryPayer(ctx, visit.ID, companion.ID))

	err := svc.SetPrimaryPayer(ctx, seedVisit(t, db, enums.VisitStatusActive).ID, companion.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
