package repository

import (
	"context"
	"errors"
	"time"

	"catalog-service/internal/models"
	"gorm.io/gorm"
)

// OrdersRepository stores special orders. Product ids and supplier names on
// orders are plain copies; nothing here enforces that they resolve.
type OrdersRepository struct {
	db *gorm.DB
}

var _ OrdersRepositoryInterface = (*OrdersRepository)(nil)

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{db: db}
}

func (r *OrdersRepository) Create(ctx context.Context, order *models.SpecialOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrdersRepository) GetByID(ctx context.Context, id string) (*models.SpecialOrder, error) {
	var order models.SpecialOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// List returns orders matching filter, newest first.
func (r *OrdersRepository) List(ctx context.Context, filter models.SpecialOrderFilter) ([]models.SpecialOrder, error) {
	query := r.db.WithContext(ctx).Model(&models.SpecialOrder{})
	if filter.Supplier != "" {
		query = query.Where("supplier = ?", filter.Supplier)
	}
	if filter.Username != "" {
		query = query.Where("username = ?", filter.Username)
	}
	if filter.ProductID != "" {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if !filter.IncludeArchived {
		query = query.Where("is_archived = ?", false)
	}

	orders := make([]models.SpecialOrder, 0)
	err := query.Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *OrdersRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.SpecialOrder{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReassignProduct points every order holding one of fromIDs at toID.
func (r *OrdersRepository) ReassignProduct(ctx context.Context, fromIDs []string, toID string) (int64, error) {
	if len(fromIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.SpecialOrder{}).
		Where("product_id IN ?", fromIDs).
		Updates(map[string]interface{}{"product_id": toID, "updated_at": time.Now()})
	return result.RowsAffected, result.Error
}

// RenameSupplier overwrites the denormalized supplier name on orders.
func (r *OrdersRepository) RenameSupplier(ctx context.Context, oldName, newName string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SpecialOrder{}).
		Where("supplier = ?", oldName).
		Updates(map[string]interface{}{"supplier": newName, "updated_at": time.Now()})
	return result.RowsAffected, result.Error
}

// CountByProductIDs counts orders referencing any of productIDs.
func (r *OrdersRepository) CountByProductIDs(ctx context.Context, productIDs []string) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SpecialOrder{}).
		Where("product_id IN ?", productIDs).
		Count(&count).Error
	return count, err
}

// ActiveItemCodes returns the item codes of supplier that open, unarchived
// orders still depend on.
func (r *OrdersRepository) ActiveItemCodes(ctx context.Context, supplier string) (map[string]struct{}, error) {
	closed := make([]string, len(models.ClosedOrderStatuses))
	for i, s := range models.ClosedOrderStatuses {
		closed[i] = string(s)
	}

	var codes []string
	err := r.db.WithContext(ctx).
		Model(&models.SpecialOrder{}).
		Where("supplier = ? AND is_archived = ? AND status NOT IN ?", supplier, false, closed).
		Distinct().
		Pluck("item_code", &codes).Error
	if err != nil {
		return nil, err
	}
	active := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c != "" {
			active[c] = struct{}{}
		}
	}
	return active, nil
}
