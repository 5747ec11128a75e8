package services

import (
	"context"

	"catalog-service/internal/models"
)

// CatalogEvents receives notifications about catalog changes. Implementations
// must not block; publishing failures are theirs to log.
type CatalogEvents interface {
	PublishProductCreated(ctx context.Context, product *models.Product)
	PublishProductUpdated(ctx context.Context, product *models.Product, changedFields []string)
	PublishProductDeleted(ctx context.Context, product *models.Product)
	PublishProductMerged(ctx context.Context, winner *models.Product, loserIDs []string, ordersReassigned int64)
	PublishSupplierRenamed(ctx context.Context, oldName, newName string, result models.RenameSupplierResult)
	PublishSupplierDeleted(ctx context.Context, supplier string, result models.DeleteSupplierResult)
}

type noopEvents struct{}

func (noopEvents) PublishProductCreated(context.Context, *models.Product) {}

func (noopEvents) PublishProductUpdated(context.Context, *models.Product, []string) {}

func (noopEvents) PublishProductDeleted(context.Context, *models.Product) {}

func (noopEvents) PublishProductMerged(context.Context, *models.Product, []string, int64) {}

func (noopEvents) PublishSupplierRenamed(context.Context, string, string, models.RenameSupplierResult) {}

func (noopEvents) PublishSupplierDeleted(context.Context, string, models.DeleteSupplierResult) {}

func eventsOrNoop(ev CatalogEvents) CatalogEvents {
	if ev == nil {
		return noopEvents{}
	}
	return ev
}
