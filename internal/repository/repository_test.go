package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"catalog-service/internal/models"
	"catalog-service/internal/pricing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.SpecialOrder{}, &models.PricingFormula{}))
	return db
}

func createProduct(t *testing.T, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	if p.ProductName == "" {
		p.ProductName = "Product " + p.ItemCode
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestCatalogRepository_FindByRefTriesBothKeySpaces(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db, nil)
	ctx := context.Background()

	custom := createProduct(t, db, models.Product{ID: "abc-123", ItemCode: "A", Supplier: "Acme"})
	legacy := createProduct(t, db, models.Product{ItemCode: "B", Supplier: "Acme"})

	found, err := repo.FindByRef(ctx, models.ParseProductRef("abc-123"))
	require.NoError(t, err)
	assert.Equal(t, custom.RowID, found.RowID)

	found, err = repo.FindByRef(ctx, models.ParseProductRef(strconv.FormatUint(legacy.RowID, 10)))
	require.NoError(t, err)
	assert.Equal(t, legacy.RowID, found.RowID)

	_, err = repo.FindByRef(ctx, models.ParseProductRef("999"))
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = repo.FindByRef(ctx, models.ParseProductRef(""))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCatalogRepository_FindByRefPrefersCustomID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db, nil)

	first := createProduct(t, db, models.Product{ID: "x", ItemCode: "A", Supplier: "Acme"})
	// A custom id that looks like another row's row id.
	numeric := createProduct(t, db, models.Product{ID: strconv.FormatUint(first.RowID, 10), ItemCode: "B", Supplier: "Acme"})

	found, err := repo.FindByRef(context.Background(), models.ParseProductRef(numeric.ID))
	require.NoError(t, err)
	assert.Equal(t, numeric.RowID, found.RowID)
}

func TestCatalogRepository_UpdateFieldsKeepsIdentity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db, nil)
	ctx := context.Background()
	p := createProduct(t, db, models.Product{ID: "keep-me", ItemCode: "A", Supplier: "Acme"})

	err := repo.UpdateFields(ctx, p.RowID, map[string]interface{}{
		"id":           "replaced",
		"product_name": "Renamed",
	})
	require.NoError(t, err)

	got, err := repo.FindByRef(ctx, models.ParseProductRef("keep-me"))
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.ProductName)

	err = repo.UpdateFields(ctx, 9999, map[string]interface{}{"product_name": "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCatalogRepository_DeleteByRefsSparesKeptRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db, nil)
	ctx := context.Background()

	keep := createProduct(t, db, models.Product{ID: "dup", ItemCode: "A", Supplier: "Acme"})
	copyRow := createProduct(t, db, models.Product{ID: "dup", ItemCode: "A", Supplier: "Acme"})
	legacy := createProduct(t, db, models.Product{ItemCode: "A", Supplier: "Acme"})
	createProduct(t, db, models.Product{ID: "other", ItemCode: "B", Supplier: "Acme"})

	deleted, err := repo.DeleteByRefs(ctx, []string{"dup"}, []uint64{legacy.RowID}, keep.RowID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	rows, err := repo.ListBySupplier(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, keep.RowID, rows[0].RowID)
	assert.NotEqual(t, copyRow.RowID, rows[1].RowID)
	assert.Equal(t, "other", rows[1].ID)

	deleted, err = repo.DeleteByRefs(ctx, nil, nil, 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestCatalogRepository_ListDuplicateRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db, nil)

	createProduct(t, db, models.Product{ID: "1", ItemCode: "A", Supplier: "Acme"})
	createProduct(t, db, models.Product{ID: "2", ItemCode: "A", Supplier: "Acme"})
	createProduct(t, db, models.Product{ID: "3", ItemCode: "A", Supplier: "Other"})
	createProduct(t, db, models.Product{ID: "4", ItemCode: "B", Supplier: "Other"})
	createProduct(t, db, models.Product{ID: "5", ItemCode: "B", Supplier: "Acme"})

	rows, err := repo.ListDuplicateRows(context.Background())
	require.NoError(t, err)
	ids := make([]string, len(rows))
	for i, p := range rows {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestCatalogRepository_ListDuplicateRowsManyGroups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db, nil)

	const groups = 1500
	products := make([]models.Product, 0, groups*2+1)
	for i := 0; i < groups; i++ {
		code := fmt.Sprintf("C%04d", i)
		products = append(products,
			models.Product{ItemCode: code, Supplier: "Acme", ProductName: code},
			models.Product{ItemCode: code, Supplier: "Acme", ProductName: code},
		)
	}
	products = append(products, models.Product{ItemCode: "C0000", Supplier: "Other", ProductName: "single"})
	require.NoError(t, db.CreateInBatches(products, 200).Error)

	rows, err := repo.ListDuplicateRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, groups*2)
	for _, p := range rows {
		assert.Equal(t, "Acme", p.Supplier)
	}
}

func TestCatalogRepository_DeleteBySupplierReturnsRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogRepository(db, nil)
	ctx := context.Background()
	createProduct(t, db, models.Product{ID: "a", ItemCode: "A", Supplier: "Gone"})
	createProduct(t, db, models.Product{ID: "b", ItemCode: "B", Supplier: "Stays"})

	deleted, err := repo.DeleteBySupplier(ctx, "Gone")
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "a", deleted[0].ID)

	deleted, err = repo.DeleteBySupplier(ctx, "Gone")
	require.NoError(t, err)
	assert.Empty(t, deleted)

	stats, err := repo.SupplierStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.SupplierStat{{Supplier: "Stays", Count: 1}}, stats)
}

func TestPublicIDs(t *testing.T) {
	ids := PublicIDs([]models.Product{
		{RowID: 1, ID: "abc"},
		{RowID: 2},
	})
	assert.Equal(t, []string{"abc", "1", "2"}, ids)
}

func TestOrdersRepository_ActiveItemCodes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrdersRepository(db)
	ctx := context.Background()

	orders := []models.SpecialOrder{
		{ID: "1", ItemCode: "OPEN", Supplier: "Acme", Status: models.OrderStatusPending},
		{ID: "2", ItemCode: "RECEIVED", Supplier: "Acme", Status: models.OrderStatusReceived},
		{ID: "3", ItemCode: "DONE", Supplier: "Acme", Status: models.OrderStatusDelivered},
		{ID: "4", ItemCode: "OOS", Supplier: "Acme", Status: models.OrderStatusOutOfStock},
		{ID: "5", ItemCode: "ARCHIVED", Supplier: "Acme", Status: models.OrderStatusPending, IsArchived: true},
		{ID: "6", ItemCode: "ELSEWHERE", Supplier: "Other", Status: models.OrderStatusPending},
	}
	for i := range orders {
		require.NoError(t, repo.Create(ctx, &orders[i]))
	}

	active, err := repo.ActiveItemCodes(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"OPEN": {}, "RECEIVED": {}}, active)
}

func TestOrdersRepository_ReassignAndCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrdersRepository(db)
	ctx := context.Background()

	for _, o := range []models.SpecialOrder{
		{ID: "1", ProductID: "old-a", Status: models.OrderStatusPending},
		{ID: "2", ProductID: "42", Status: models.OrderStatusPending},
		{ID: "3", ProductID: "other", Status: models.OrderStatusPending},
	} {
		o := o
		require.NoError(t, repo.Create(ctx, &o))
	}

	n, err := repo.ReassignProduct(ctx, []string{"old-a", "42"}, "winner")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := repo.CountByProductIDs(ctx, []string{"winner"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	err = repo.Update(ctx, "missing", map[string]interface{}{"notes": "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFormulaRepository_OverridesMergeOntoDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFormulaRepository(db, nil, nil)
	ctx := context.Background()

	set, err := repo.FormulaSet(ctx)
	require.NoError(t, err)
	assert.Equal(t, pricing.DefaultFormulas(), set)

	override := models.NewPricingFormula(pricing.CategoryWine, pricing.Formula{TaxPerLiter: 1, MarginDivisor: 0.7})
	require.NoError(t, repo.Upsert(ctx, &override))

	override.TaxPerLiter = 2
	require.NoError(t, repo.Upsert(ctx, &override))

	set, err = repo.FormulaSet(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, set[pricing.CategoryWine].TaxPerLiter)
	assert.Equal(t, 0.7, set[pricing.CategoryWine].MarginDivisor)
	assert.Equal(t, pricing.DefaultFormulas()[pricing.CategorySpirits], set[pricing.CategorySpirits])

	var stored int64
	require.NoError(t, db.Model(&models.PricingFormula{}).Count(&stored).Error)
	assert.Equal(t, int64(1), stored)
}
