package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"catalog-service/internal/models"
	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Cache TTL constants
const (
	ProductCacheTTL = 5 * time.Minute
	FormulaCacheTTL = 10 * time.Minute
)

type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
	cache *cache.CacheLayer
}

var _ CatalogRepositoryInterface = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB, redisClient *redis.Client) *CatalogRepository {
	repo := &CatalogRepository{
		db:    db,
		redis: redisClient,
	}

	if redisClient != nil {
		cacheConfig := cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 5000,
			L1TTL:      30 * time.Second,
			DefaultTTL: ProductCacheTTL,
			KeyPrefix:  "catalog:products:",
		}
		repo.cache = cache.NewCacheLayerFromClient(redisClient, cacheConfig)
	}

	return repo
}

func productCacheKey(raw string) string {
	return fmt.Sprintf("product:%s", raw)
}

// invalidateProductCaches drops every cached product lookup. Sync, merge and
// supplier operations touch many rows and their refs are not all known, so
// lookups are invalidated wholesale.
func (r *CatalogRepository) invalidateProductCaches(ctx context.Context) {
	if r.cache == nil {
		return
	}
	_ = r.cache.DeletePattern(ctx, "product:*")
}

// RedisHealth returns the health status of the Redis connection
func (r *CatalogRepository) RedisHealth(ctx context.Context) error {
	if r.redis == nil {
		return fmt.Errorf("redis not configured")
	}
	return r.redis.Ping(ctx).Err()
}

// ListBySupplier returns every row of one supplier, oldest row first.
func (r *CatalogRepository) ListBySupplier(ctx context.Context, supplier string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("supplier = ?", supplier).
		Order("row_id ASC").
		Find(&products).Error
	return products, err
}

// ListAll returns the whole catalog, optionally narrowed to one supplier.
func (r *CatalogRepository) ListAll(ctx context.Context, supplier string) ([]models.Product, error) {
	var products []models.Product
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if supplier != "" {
		query = query.Where("supplier = ?", supplier)
	}
	err := query.Order("supplier ASC, item_code ASC, row_id ASC").Find(&products).Error
	return products, err
}

// ListDuplicateRows returns every row whose (item_code, supplier) pair occurs
// more than once.
func (r *CatalogRepository) ListDuplicateRows(ctx context.Context) ([]models.Product, error) {
	keys := r.db.
		Model(&models.Product{}).
		Select("item_code, supplier").
		Group("item_code, supplier").
		Having("COUNT(*) > 1")

	rows := make([]models.Product, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN (?) AS dup ON dup.item_code = products.item_code AND dup.supplier = products.supplier", keys).
		Order("products.row_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type cachedProduct struct {
	Found   bool            `json:"found"`
	Product *models.Product `json:"product,omitempty"`
}

// FindByRef resolves ref against the custom id first and the row id second.
func (r *CatalogRepository) FindByRef(ctx context.Context, ref models.ProductRef) (*models.Product, error) {
	if ref.Raw == "" {
		return nil, ErrNotFound
	}

	load := func() (*models.Product, error) {
		var product models.Product
		err := r.db.WithContext(ctx).Where("id = ?", ref.Raw).Order("row_id ASC").First(&product).Error
		if err == nil {
			return &product, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if !ref.HasRowID {
			return nil, nil
		}
		err = r.db.WithContext(ctx).Where("row_id = ?", ref.RowID).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &product, nil
	}

	if r.cache != nil {
		var cached cachedProduct
		err := r.cache.GetOrSetJSON(ctx, productCacheKey(ref.Raw), &cached, ProductCacheTTL, func() (any, error) {
			p, err := load()
			if err != nil {
				return nil, err
			}
			return &cachedProduct{Found: p != nil, Product: p}, nil
		})
		if err != nil {
			return nil, err
		}
		if !cached.Found || cached.Product == nil {
			return nil, ErrNotFound
		}
		return cached.Product, nil
	}

	p, err := load()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// Create inserts a product. UploadDate defaults to now.
func (r *CatalogRepository) Create(ctx context.Context, product *models.Product) error {
	if product.UploadDate.IsZero() {
		product.UploadDate = time.Now()
	}
	err := r.db.WithContext(ctx).Create(product).Error
	if err == nil {
		r.invalidateProductCaches(ctx)
	}
	return err
}

// UpdateFields writes fields onto the row with rowID. The custom id and the
// creation time are never part of fields.
func (r *CatalogRepository) UpdateFields(ctx context.Context, rowID uint64, fields map[string]interface{}) error {
	delete(fields, "id")
	delete(fields, "row_id")
	delete(fields, "created_at")
	fields["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("row_id = ?", rowID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.invalidateProductCaches(ctx)
	return nil
}

// DeleteByRowIDs removes rows by storage key.
func (r *CatalogRepository) DeleteByRowIDs(ctx context.Context, rowIDs []uint64) (int64, error) {
	if len(rowIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("row_id IN ?", rowIDs).Delete(&models.Product{})
	if result.Error == nil && result.RowsAffected > 0 {
		r.invalidateProductCaches(ctx)
	}
	return result.RowsAffected, result.Error
}

// DeleteByRefs removes rows whose custom id is in ids or whose row id is in
// rowIDs. The row keepRowID is never deleted.
func (r *CatalogRepository) DeleteByRefs(ctx context.Context, ids []string, rowIDs []uint64, keepRowID uint64) (int64, error) {
	if len(ids) == 0 && len(rowIDs) == 0 {
		return 0, nil
	}

	query := r.db.WithContext(ctx).Where("row_id <> ?", keepRowID)
	switch {
	case len(ids) > 0 && len(rowIDs) > 0:
		query = query.Where("(id IN ? OR row_id IN ?)", ids, rowIDs)
	case len(ids) > 0:
		query = query.Where("id IN ?", ids)
	default:
		query = query.Where("row_id IN ?", rowIDs)
	}

	result := query.Delete(&models.Product{})
	if result.Error == nil && result.RowsAffected > 0 {
		r.invalidateProductCaches(ctx)
	}
	return result.RowsAffected, result.Error
}

// RenameSupplier overwrites the supplier of every matching product.
func (r *CatalogRepository) RenameSupplier(ctx context.Context, oldName, newName string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("supplier = ?", oldName).
		Updates(map[string]interface{}{"supplier": newName, "updated_at": time.Now()})
	if result.Error == nil && result.RowsAffected > 0 {
		r.invalidateProductCaches(ctx)
	}
	return result.RowsAffected, result.Error
}

// DeleteBySupplier removes every product of supplier and returns the rows it
// removed, so callers can follow references to them.
func (r *CatalogRepository) DeleteBySupplier(ctx context.Context, supplier string) ([]models.Product, error) {
	var deleted []models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("supplier = ?", supplier).Find(&deleted).Error; err != nil {
			return err
		}
		if len(deleted) == 0 {
			return nil
		}
		rowIDs := make([]uint64, len(deleted))
		for i, p := range deleted {
			rowIDs[i] = p.RowID
		}
		return tx.Where("row_id IN ?", rowIDs).Delete(&models.Product{}).Error
	})
	if err != nil {
		return nil, err
	}
	if len(deleted) > 0 {
		r.invalidateProductCaches(ctx)
	}
	return deleted, nil
}

// SupplierStats counts products per supplier, largest first.
func (r *CatalogRepository) SupplierStats(ctx context.Context) ([]models.SupplierStat, error) {
	stats := make([]models.SupplierStat, 0)
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("supplier, COUNT(*) AS count").
		Group("supplier").
		Order("count DESC, supplier ASC").
		Scan(&stats).Error
	return stats, err
}

// PublicIDs returns every identifier orders may hold for the given rows.
func PublicIDs(products []models.Product) []string {
	ids := make([]string, 0, len(products)*2)
	for _, p := range products {
		if p.ID != "" {
			ids = append(ids, p.ID)
		}
		ids = append(ids, strconv.FormatUint(p.RowID, 10))
	}
	return ids
}
