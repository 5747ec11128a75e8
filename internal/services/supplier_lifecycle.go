package services

import (
	"context"
	"fmt"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// SupplierLifecycleManager renames and deletes suppliers across products and
// special orders. Neither operation is atomic across the two tables; both
// converge when re-run.
type SupplierLifecycleManager struct {
	products repository.CatalogRepositoryInterface
	orders   repository.OrdersRepositoryInterface
	events   CatalogEvents
	logger   *logrus.Entry
}

func NewSupplierLifecycleManager(products repository.CatalogRepositoryInterface, orders repository.OrdersRepositoryInterface, events CatalogEvents, logger *logrus.Entry) *SupplierLifecycleManager {
	return &SupplierLifecycleManager{
		products: products,
		orders:   orders,
		events:   eventsOrNoop(events),
		logger:   logger.WithField("component", "supplier_lifecycle"),
	}
}

// List returns product counts per supplier.
func (m *SupplierLifecycleManager) List(ctx context.Context) ([]models.SupplierStat, error) {
	stats, err := m.products.SupplierStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier stats: %w", err)
	}
	return stats, nil
}

// Rename overwrites the supplier name on products first, then on orders.
func (m *SupplierLifecycleManager) Rename(ctx context.Context, oldName, newName string) (*models.RenameSupplierResult, error) {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if oldName == "" {
		return nil, validationError("old supplier name is required")
	}
	if newName == "" {
		return nil, validationError("new supplier name is required")
	}
	if oldName == newName {
		return nil, validationError("new supplier name must differ from the old one")
	}

	products, err := m.products.RenameSupplier(ctx, oldName, newName)
	if err != nil {
		return nil, fmt.Errorf("failed to rename supplier on products: %w", err)
	}
	orders, err := m.orders.RenameSupplier(ctx, oldName, newName)
	if err != nil {
		return nil, fmt.Errorf("failed to rename supplier on special orders (%d products already renamed): %w", products, err)
	}

	result := &models.RenameSupplierResult{
		ProductsUpdated: int(products),
		OrdersUpdated:   int(orders),
	}

	m.logger.WithFields(logrus.Fields{
		"oldName":         oldName,
		"newName":         newName,
		"productsUpdated": result.ProductsUpdated,
		"ordersUpdated":   result.OrdersUpdated,
	}).Info("Supplier renamed")

	if result.ProductsUpdated > 0 || result.OrdersUpdated > 0 {
		m.events.PublishSupplierRenamed(ctx, oldName, newName, *result)
	}
	return result, nil
}

// Delete removes every product of name. Orders pointing at the removed rows
// are counted and reported, never repaired.
func (m *SupplierLifecycleManager) Delete(ctx context.Context, name string) (*models.DeleteSupplierResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("supplier name is required")
	}

	deleted, err := m.products.DeleteBySupplier(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to delete products of supplier %q: %w", name, err)
	}

	result := &models.DeleteSupplierResult{ProductsDeleted: len(deleted)}
	if len(deleted) == 0 {
		return result, nil
	}

	dangling, err := m.orders.CountByProductIDs(ctx, repository.PublicIDs(deleted))
	if err != nil {
		// The products are gone; a failed count only loses the warning.
		m.logger.WithError(err).WithField("supplier", name).Error("Failed to count orders of deleted supplier")
		result.Warnings = append(result.Warnings, "could not check special orders for dangling product references")
	} else if dangling > 0 {
		result.DanglingOrders = int(dangling)
		msg := fmt.Sprintf("%d special orders reference deleted products of supplier %q", dangling, name)
		result.Warnings = append(result.Warnings, msg)
		m.logger.WithFields(logrus.Fields{
			"supplier":       name,
			"danglingOrders": dangling,
		}).Warn("ReferenceIntegrityWarning: " + msg)
	}

	m.logger.WithFields(logrus.Fields{
		"supplier":        name,
		"productsDeleted": result.ProductsDeleted,
	}).Info("Supplier deleted")

	m.events.PublishSupplierDeleted(ctx, name, *result)
	return result, nil
}
