package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kagetora-io/clubledger-backend/pkg/db/models"
	"github.com/kagetora-io/clubledger-backend/pkg/enums"
	pkgerrors "github.com/kagetora-io/clubledger-backend/pkg/errors"
)

const sqliteUUID = "(lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-4' || substr(lower(hex(randomblob(2))),2) || '-a' || substr(lower(hex(randomblob(2))),2) || '-' || lower(hex(randomblob(6))))"

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

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
	require.NoError(t, db.Exec(orderItems).Error)
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func seedItem(t *testing.T, db *gorm.DB, visitID uuid.UUID, name string, qty int, unitPrice int64, placedAt time.Time) *models.OrderItem {
	t.Helper()

	item := &models.OrderItem{
		ID:        uuid.New(),
		VisitID:   visitID,
		Name:      name,
		LineType:  enums.QuoteLineTypeDrink,
		Quantity:  qty,
		UnitPrice: unitPrice,
		Total:     unitPrice * int64(qty),
		PlacedAt:  placedAt,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestRepositoryListByVisit_orderedByPlacedAt(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	visitID := uuid.New()
	now := time.Now().UTC()
	seedItem(t, db, visitID, "Second", 1, 2000, now)
	seedItem(t, db, visitID, "First", 1, 1000, now.Add(-time.Hour))
	seedItem(t, db, uuid.New(), "Other visit", 1, 500, now)

	items, err := repo.ListByVisit(ctx, visitID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "First", items[0].Name)
	assert.Equal(t, "Second", items[1].Name)
}

func TestServiceCorrect(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	original := seedItem(t, db, uuid.New(), "Bottle", 2, 1000, time.Now().UTC())

	replacement, err := svc.Correct(ctx, original.ID, CorrectionInput{Quantity: 1, UnitPrice: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), replacement.Total)
	assert.Equal(t, original.VisitID, replacement.VisitID)
	assert.Equal(t, original.Name, replacement.Name)
	require.NotNil(t, replacement.CorrectsItemID)
	assert.Equal(t, original.ID, *replacement.CorrectsItemID)
	assert.WithinDuration(t, original.PlacedAt, replacement.PlacedAt, time.Second)

	// the original keeps its amounts and gains the correction stamp
	stamped, err := svc.Get(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), stamped.Total)
	require.NotNil(t, stamped.CorrectedAt)
}

func TestServiceCorrect_alreadyCorrected(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	original := seedItem(t, db, uuid.New(), "Bottle", 1, 1000, time.Now().UTC())
	_, err = svc.Correct(ctx, original.ID, CorrectionInput{Quantity: 1, UnitPrice: 900})
	require.NoError(t, err)

	_, err = svc.Correct(ctx, original.ID, CorrectionInput{Quantity: 1, UnitPrice: 800})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	items, err := svc.ListByVisit(ctx, original.VisitID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

type recordingVoider struct {
	voided []uuid.UUID
	err    error
}

func (v *recordingVoider) VoidAllocations(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error {
	if v.err != nil {
		return v.err
	}
	v.voided = append(v.voided, orderItemID)
	return nil
}

func TestServiceCorrect_voidsAllocations(t *testing.T) {
	db := setupOrdersTestDB(t)
	casts := &recordingVoider{}
	guests := &recordingVoider{}
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db), casts, guests)
	require.NoError(t, err)
	ctx := context.Background()

	original := seedItem(t, db, uuid.New(), "Bottle", 1, 1000, time.Now().UTC())

	_, err = svc.Correct(ctx, original.ID, CorrectionInput{Quantity: 1, UnitPrice: 900})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{original.ID}, casts.voided)
	assert.Equal(t, []uuid.UUID{original.ID}, guests.voided)
}

func TestServiceCorrect_voiderFailureRollsBack(t *testing.T) {
	db := setupOrdersTestDB(t)
	broken := &recordingVoider{err: gorm.ErrInvalidTransaction}
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db), broken)
	require.NoError(t, err)
	ctx := context.Background()

	original := seedItem(t, db, uuid.New(), "Bottle", 1, 1000, time.Now().UTC())

	_, err = svc.Correct(ctx, original.ID, CorrectionInput{Quantity: 1, UnitPrice: 900})
	require.Error(t, err)

	// nothing committed: no replacement row, no correction stamp
	items, err := svc.ListByVisit(ctx, original.VisitID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].CorrectedAt)
}

func TestServiceCorrect_validation(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	item := seedItem(t, db, uuid.New(), "Bottle", 1, 1000, time.Now().UTC())

	_, err = svc.Correct(ctx, item.ID, CorrectionInput{Quantity: 0, UnitPrice: 1000})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Correct(ctx, item.ID, CorrectionInput{Quantity: 1, UnitPrice: -1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Correct(ctx, uuid.New(), CorrectionInput{Quantity: 1, UnitPrice: 1000})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
