package services

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.SpecialOrder{}, &models.PricingFormula{}))
	return db
}

func newTestLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type testEnv struct {
	db       *gorm.DB
	products *repository.CatalogRepository
	orders   *repository.OrdersRepository
	formulas *repository.FormulaRepository
	events   *recordingEvents
	logger   *logrus.Entry
}

func newTestEnv(t *testing.T) *testEnv {
	db := newTestDB(t)
	return &testEnv{
		db:       db,
		products: repository.NewCatalogRepository(db, nil),
		orders:   repository.NewOrdersRepository(db),
		formulas: repository.NewFormulaRepository(db, nil, nil),
		events:   &recordingEvents{},
		logger:   newTestLogger(),
	}
}

func (e *testEnv) seedProduct(t *testing.T, p models.Product) models.Product {
	t.Helper()
	if p.ProductName == "" {
		p.ProductName = "Product " + p.ItemCode
	}
	require.NoError(t, e.db.Create(&p).Error)
	return p
}

func (e *testEnv) seedOrder(t *testing.T, o models.SpecialOrder) models.SpecialOrder {
	t.Helper()
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	require.NoError(t, e.db.Create(&o).Error)
	return o
}

func (e *testEnv) supplierRows(t *testing.T, supplier string) []models.Product {
	t.Helper()
	rows, err := e.products.ListBySupplier(context.Background(), supplier)
	require.NoError(t, err)
	return rows
}

func rowIDString(p models.Product) string {
	return strconv.FormatUint(p.RowID, 10)
}

func at(minutes int) time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEvents) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recordingEvents) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

func (r *recordingEvents) PublishProductCreated(context.Context, *models.Product) {
	r.record("created")
}

func (r *recordingEvents) PublishProductUpdated(context.Context, *models.Product, []string) {
	r.record("updated")
}

func (r *recordingEvents) PublishProductDeleted(context.Context, *models.Product) {
	r.record("deleted")
}

func (r *recordingEvents) PublishProductMerged(context.Context, *models.Product, []string, int64) {
	r.record("merged")
}

func (r *recordingEvents) PublishSupplierRenamed(context.Context, string, string, models.RenameSupplierResult) {
	r.record("supplier_renamed")
}

func (r *recordingEvents) PublishSupplierDeleted(context.Context, string, models.DeleteSupplierResult) {
	r.record("supplier_deleted")
}

var errStorage = errors.New("storage unavailable")

// faultyCatalog fails selected writes while the matching hook returns an error.
type faultyCatalog struct {
	repository.CatalogRepositoryInterface
	deleteByRefs   func(keepRowID uint64) error
	deleteByRowIDs func(rowIDs []uint64) error
}

func (f *faultyCatalog) DeleteByRefs(ctx context.Context, ids []string, rowIDs []uint64, keepRowID uint64) (int64, error) {
	if f.deleteByRefs != nil {
		if err := f.deleteByRefs(keepRowID); err != nil {
			return 0, err
		}
	}
	return f.CatalogRepositoryInterface.DeleteByRefs(ctx, ids, rowIDs, keepRowID)
}

func (f *faultyCatalog) DeleteByRowIDs(ctx context.Context, rowIDs []uint64) (int64, error) {
	if f.deleteByRowIDs != nil {
		if err := f.deleteByRowIDs(rowIDs); err != nil {
			return 0, err
		}
	}
	return f.CatalogRepositoryInterface.DeleteByRowIDs(ctx, rowIDs)
}

// faultyOrders fails selected order writes while the matching hook returns an error.
type faultyOrders struct {
	repository.OrdersRepositoryInterface
	reassign       func(toID string) error
	renameSupplier error
}

func (f *faultyOrders) ReassignProduct(ctx context.Context, fromIDs []string, toID string) (int64, error) {
	if f.reassign != nil {
		if err := f.reassign(toID); err != nil {
			return 0, err
		}
	}
	return f.OrdersRepositoryInterface.ReassignProduct(ctx, fromIDs, toID)
}

func (f *faultyOrders) RenameSupplier(ctx context.Context, oldName, newName string) (int64, error) {
	if f.renameSupplier != nil {
		return 0, f.renameSupplier
	}
	return f.OrdersRepositoryInterface.RenameSupplier(ctx, oldName, newName)
}

func (e *testEnv) faulty() (*faultyCatalog, *faultyOrders) {
	return &faultyCatalog{CatalogRepositoryInterface: e.products}, &faultyOrders{OrdersRepositoryInterface: e.orders}
}
