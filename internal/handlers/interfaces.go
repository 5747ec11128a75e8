package handlers

import (
	"context"

	"catalog-service/internal/models"
	"catalog-service/internal/pricing"
	"catalog-service/internal/services"
)

// CatalogSyncer reconciles one supplier's catalog with an import.
type CatalogSyncer interface {
	Sync(ctx context.Context, req services.SyncRequest) (*models.SyncResult, error)
}

// DuplicateService finds and merges duplicate catalog rows.
type DuplicateService interface {
	Scan(ctx context.Context) ([]models.DuplicateGroup, error)
	Merge(ctx context.Context, groups []models.MergeGroup) *models.MergeResult
	AutoMerge(ctx context.Context) (*models.MergeResult, error)
}

// SupplierService renames, deletes and lists suppliers.
type SupplierService interface {
	List(ctx context.Context) ([]models.SupplierStat, error)
	Rename(ctx context.Context, oldName, newName string) (*models.RenameSupplierResult, error)
	Delete(ctx context.Context, name string) (*models.DeleteSupplierResult, error)
}

// PricingProvider prices catalog rows and manages formulas.
type PricingProvider interface {
	Price(ctx context.Context, productID string) (*models.ProductWithPrice, error)
	ListPriced(ctx context.Context, supplier string) ([]models.ProductWithPrice, error)
	Formulas(ctx context.Context) (pricing.FormulaSet, error)
	UpdateFormula(ctx context.Context, category string, req models.UpdateFormulaRequest, updatedBy string) (*models.PricingFormula, error)
}

// SpecialOrderProvider manages special orders.
type SpecialOrderProvider interface {
	Create(ctx context.Context, req models.CreateSpecialOrderRequest) (*models.SpecialOrder, error)
	Get(ctx context.Context, id string) (*models.SpecialOrder, error)
	List(ctx context.Context, filter models.SpecialOrderFilter) ([]models.SpecialOrder, error)
	Update(ctx context.Context, id string, req models.UpdateSpecialOrderRequest) (*models.SpecialOrder, error)
	Verify(ctx context.Context, id string) (*models.SnapshotVerification, error)
}

var (
	_ CatalogSyncer        = (*services.CatalogSyncEngine)(nil)
	_ DuplicateService     = (*services.DuplicateResolver)(nil)
	_ SupplierService      = (*services.SupplierLifecycleManager)(nil)
	_ PricingProvider      = (*services.PricingService)(nil)
	_ SpecialOrderProvider = (*services.SpecialOrderService)(nil)
)
