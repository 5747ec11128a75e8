package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// SyncRequest is one supplier-scoped full replace.
type SyncRequest struct {
	Items    []CatalogItem
	Supplier string
	// OwnerID is written to the vendor column when set.
	OwnerID string
	// ProtectActiveOrders keeps rows missing from the batch when an open
	// order of the same supplier still references their item code.
	ProtectActiveOrders bool
}

// CatalogSyncEngine reconciles a supplier's stored catalog with an import.
//
// Matching is by item code within the supplier only; imported rows carry no
// stable id. Writes are sequential without a transaction, and replaying the
// same request after a failure converges on the same end state.
type CatalogSyncEngine struct {
	products repository.CatalogRepositoryInterface
	orders   repository.OrdersRepositoryInterface
	events   CatalogEvents
	logger   *logrus.Entry
	now      func() time.Time
}

func NewCatalogSyncEngine(products repository.CatalogRepositoryInterface, orders repository.OrdersRepositoryInterface, events CatalogEvents, logger *logrus.Entry) *CatalogSyncEngine {
	return &CatalogSyncEngine{
		products: products,
		orders:   orders,
		events:   eventsOrNoop(events),
		logger:   logger.WithField("component", "catalog_sync"),
		now:      time.Now,
	}
}

// Sync makes the stored rows of req.Supplier match req.Items. Rows of other
// suppliers are never read or written.
func (e *CatalogSyncEngine) Sync(ctx context.Context, req SyncRequest) (*models.SyncResult, error) {
	supplier := strings.TrimSpace(req.Supplier)
	if supplier == "" {
		return nil, validationError("supplier is required")
	}
	result := &models.SyncResult{Supplier: supplier}

	// Last occurrence of a repeated item code wins.
	incoming := make(map[string]CatalogItem, len(req.Items))
	codes := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		code := strings.TrimSpace(item.ItemCode)
		if code == "" {
			continue
		}
		if _, seen := incoming[code]; seen {
			result.Collapsed++
		} else {
			codes = append(codes, code)
		}
		item.ItemCode = code
		item.Supplier = supplier
		incoming[code] = item
	}

	existing, err := e.products.ListBySupplier(ctx, supplier)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog for supplier %q: %w", supplier, err)
	}
	stored := make(map[string][]models.Product)
	for _, p := range existing {
		stored[p.ItemCode] = append(stored[p.ItemCode], p)
	}

	now := e.now()
	for _, code := range codes {
		item := incoming[code]
		rows := stored[code]

		if len(rows) == 0 {
			product := newProductFromItem(item, req.OwnerID, now)
			if err := e.products.Create(ctx, product); err != nil {
				return nil, fmt.Errorf("failed to insert item %q: %w", code, err)
			}
			result.Added++
			e.events.PublishProductCreated(ctx, product)
			continue
		}

		// Extra rows for the same code are left to the duplicate resolver.
		sortByTieBreak(rows)
		target := rows[0]
		fields, changed := diffProduct(&target, item, req.OwnerID)
		if len(fields) == 0 {
			result.Kept++
			continue
		}
		fields["upload_date"] = now
		if err := e.products.UpdateFields(ctx, target.RowID, fields); err != nil {
			return nil, fmt.Errorf("failed to update item %q: %w", code, err)
		}
		result.Updated++
		applyItem(&target, item, req.OwnerID)
		e.events.PublishProductUpdated(ctx, &target, changed)
	}

	var protectedCodes map[string]struct{}
	if req.ProtectActiveOrders {
		protectedCodes, err = e.orders.ActiveItemCodes(ctx, supplier)
		if err != nil {
			return nil, fmt.Errorf("failed to load active orders for supplier %q: %w", supplier, err)
		}
	}

	staleCodes := make([]string, 0)
	for code := range stored {
		if _, ok := incoming[code]; !ok {
			staleCodes = append(staleCodes, code)
		}
	}
	sort.Strings(staleCodes)

	var stale []models.Product
	for _, code := range staleCodes {
		if _, ok := protectedCodes[code]; ok {
			result.Protected += len(stored[code])
			continue
		}
		stale = append(stale, stored[code]...)
	}

	if len(stale) > 0 {
		rowIDs := make([]uint64, len(stale))
		for i, p := range stale {
			rowIDs[i] = p.RowID
		}
		deleted, err := e.products.DeleteByRowIDs(ctx, rowIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to delete stale items: %w", err)
		}
		result.Deleted = int(deleted)
		for i := range stale {
			e.events.PublishProductDeleted(ctx, &stale[i])
		}
	}

	e.logger.WithFields(logrus.Fields{
		"supplier":  supplier,
		"added":     result.Added,
		"updated":   result.Updated,
		"kept":      result.Kept,
		"deleted":   result.Deleted,
		"protected": result.Protected,
		"collapsed": result.Collapsed,
	}).Info("Catalog sync completed")

	return result, nil
}

func newProductFromItem(item CatalogItem, ownerID string, now time.Time) *models.Product {
	p := &models.Product{
		ID:         uuid.New().String(),
		UploadDate: now,
	}
	applyItem(p, item, ownerID)
	return p
}

func applyItem(p *models.Product, item CatalogItem, ownerID string) {
	p.ItemCode = item.ItemCode
	p.Supplier = item.Supplier
	p.Producer = item.Producer
	p.ProductName = item.ProductName
	p.Vintage = item.Vintage
	p.PackSize = item.PackSize
	p.BottleSize = item.BottleSize
	p.ProductType = item.ProductType
	p.FOBCasePrice = item.FOBCasePrice
	p.Country = item.Country
	p.Region = item.Region
	p.Appellation = item.Appellation
	p.GrapeVariety = item.GrapeVariety
	p.ProductLink = item.ProductLink
	p.ExtendedData = item.ExtendedData
	if ownerID != "" {
		owner := ownerID
		p.Vendor = &owner
	}
}

// diffProduct compares stored against item field by field and returns the
// column updates plus the changed field names. An empty map means no write.
func diffProduct(stored *models.Product, item CatalogItem, ownerID string) (map[string]interface{}, []string) {
	fields := make(map[string]interface{})
	var changed []string

	str := func(column, name, current, next string) {
		if current != next {
			fields[column] = next
			changed = append(changed, name)
		}
	}
	str("producer", models.FieldProducer, stored.Producer, item.Producer)
	str("product_name", models.FieldProductName, stored.ProductName, item.ProductName)
	str("vintage", models.FieldVintage, stored.Vintage, item.Vintage)
	str("pack_size", models.FieldPackSize, stored.PackSize, item.PackSize)
	str("bottle_size", models.FieldBottleSize, stored.BottleSize, item.BottleSize)
	str("product_type", models.FieldProductType, stored.ProductType, item.ProductType)
	str("country", models.FieldCountry, stored.Country, item.Country)
	str("region", models.FieldRegion, stored.Region, item.Region)
	str("appellation", models.FieldAppellation, stored.Appellation, item.Appellation)
	str("grape_variety", models.FieldGrapeVariety, stored.GrapeVariety, item.GrapeVariety)
	str("product_link", models.FieldProductLink, stored.ProductLink, item.ProductLink)

	if stored.FOBCasePrice != item.FOBCasePrice {
		fields["fob_case_price"] = item.FOBCasePrice
		changed = append(changed, models.FieldFOBCasePrice)
	}
	if !sameExtendedData(stored.ExtendedData, item.ExtendedData) {
		fields["extended_data"] = extendedDataValue(item.ExtendedData)
		changed = append(changed, "extendedData")
	}
	if ownerID != "" && (stored.Vendor == nil || *stored.Vendor != ownerID) {
		fields["vendor"] = ownerID
		changed = append(changed, "vendor")
	}

	return fields, changed
}

func sameExtendedData(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || fmt.Sprint(av) != fmt.Sprint(bv) {
			return false
		}
	}
	return true
}

func extendedDataValue(m map[string]interface{}) datatypes.JSONMap {
	if len(m) == 0 {
		return nil
	}
	return datatypes.JSONMap(m)
}
