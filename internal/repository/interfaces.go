package repository

import (
	"context"
	"errors"

	"catalog-service/internal/models"
	"catalog-service/internal/pricing"
)

var ErrNotFound = errors.New("not found")

// CatalogRepositoryInterface is the product storage used by the sync engine,
// the duplicate resolver and the supplier lifecycle manager.
type CatalogRepositoryInterface interface {
	ListBySupplier(ctx context.Context, supplier string) ([]models.Product, error)
	ListAll(ctx context.Context, supplier string) ([]models.Product, error)
	ListDuplicateRows(ctx context.Context) ([]models.Product, error)
	FindByRef(ctx context.Context, ref models.ProductRef) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	UpdateFields(ctx context.Context, rowID uint64, fields map[string]interface{}) error
	DeleteByRowIDs(ctx context.Context, rowIDs []uint64) (int64, error)
	DeleteByRefs(ctx context.Context, ids []string, rowIDs []uint64, keepRowID uint64) (int64, error)
	RenameSupplier(ctx context.Context, oldName, newName string) (int64, error)
	DeleteBySupplier(ctx context.Context, supplier string) ([]models.Product, error)
	SupplierStats(ctx context.Context) ([]models.SupplierStat, error)
}

// OrdersRepositoryInterface is the special order storage.
type OrdersRepositoryInterface interface {
	Create(ctx context.Context, order *models.SpecialOrder) error
	GetByID(ctx context.Context, id string) (*models.SpecialOrder, error)
	List(ctx context.Context, filter models.SpecialOrderFilter) ([]models.SpecialOrder, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	ReassignProduct(ctx context.Context, fromIDs []string, toID string) (int64, error)
	RenameSupplier(ctx context.Context, oldName, newName string) (int64, error)
	CountByProductIDs(ctx context.Context, productIDs []string) (int64, error)
	ActiveItemCodes(ctx context.Context, supplier string) (map[string]struct{}, error)
}

// FormulaRepositoryInterface stores per-category pricing overrides.
type FormulaRepositoryInterface interface {
	FormulaSet(ctx context.Context) (pricing.FormulaSet, error)
	Upsert(ctx context.Context, formula *models.PricingFormula) error
}
