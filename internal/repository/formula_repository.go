package repository

import (
	"context"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/pricing"
	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const formulaSetCacheKey = "formulas:set"

// FormulaRepository reads the live formula set: the configured defaults with
// any stored per-category overrides on top.
type FormulaRepository struct {
	db       *gorm.DB
	cache    *cache.CacheLayer
	defaults pricing.FormulaSet
}

var _ FormulaRepositoryInterface = (*FormulaRepository)(nil)

func NewFormulaRepository(db *gorm.DB, redisClient *redis.Client, defaults pricing.FormulaSet) *FormulaRepository {
	if defaults == nil {
		defaults = pricing.DefaultFormulas()
	}
	repo := &FormulaRepository{db: db, defaults: defaults}

	if redisClient != nil {
		repo.cache = cache.NewCacheLayerFromClient(redisClient, cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 16,
			L1TTL:      30 * time.Second,
			DefaultTTL: FormulaCacheTTL,
			KeyPrefix:  "catalog:formulas:",
		})
	}

	return repo
}

func (r *FormulaRepository) load(ctx context.Context) (pricing.FormulaSet, error) {
	var stored []models.PricingFormula
	if err := r.db.WithContext(ctx).Find(&stored).Error; err != nil {
		return nil, err
	}
	overrides := make(pricing.FormulaSet, len(stored))
	for _, f := range stored {
		overrides[pricing.Category(f.Category)] = f.Formula()
	}
	return r.defaults.Merge(overrides), nil
}

// FormulaSet returns the live set. The result is a fresh map the caller may
// keep.
func (r *FormulaRepository) FormulaSet(ctx context.Context) (pricing.FormulaSet, error) {
	if r.cache != nil {
		set := make(pricing.FormulaSet)
		err := r.cache.GetOrSetJSON(ctx, formulaSetCacheKey, &set, FormulaCacheTTL, func() (any, error) {
			return r.load(ctx)
		})
		if err != nil {
			return nil, err
		}
		return set, nil
	}
	return r.load(ctx)
}

// Upsert stores the override for one category.
func (r *FormulaRepository) Upsert(ctx context.Context, formula *models.PricingFormula) error {
	formula.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}},
		UpdateAll: true,
	}).Create(formula).Error
	if err == nil && r.cache != nil {
		_ = r.cache.Delete(ctx, formulaSetCacheKey)
	}
	return err
}
