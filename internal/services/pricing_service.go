package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/pricing"
	"catalog-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// PricingService prices stored products with the live formula set.
type PricingService struct {
	products repository.CatalogRepositoryInterface
	formulas repository.FormulaRepositoryInterface
	logger   *logrus.Entry
}

func NewPricingService(products repository.CatalogRepositoryInterface, formulas repository.FormulaRepositoryInterface, logger *logrus.Entry) *PricingService {
	return &PricingService{
		products: products,
		formulas: formulas,
		logger:   logger.WithField("component", "pricing"),
	}
}

// Price resolves productID through both key spaces and prices it.
func (s *PricingService) Price(ctx context.Context, productID string) (*models.ProductWithPrice, error) {
	ref := models.ParseProductRef(productID)
	if ref.Raw == "" {
		return nil, validationError("productId is required")
	}
	product, err := s.products.FindByRef(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("product %q", ref.Raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %q: %w", ref.Raw, err)
	}

	set, err := s.formulas.FormulaSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing formulas: %w", err)
	}
	return &models.ProductWithPrice{
		Product: *product,
		Price:   pricing.Calculate(product.PricingInput(), set),
	}, nil
}

// ListPriced returns the catalog, optionally for one supplier, with prices.
// Prices are computed on read and never stored on products.
func (s *PricingService) ListPriced(ctx context.Context, supplier string) ([]models.ProductWithPrice, error) {
	products, err := s.products.ListAll(ctx, strings.TrimSpace(supplier))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	set, err := s.formulas.FormulaSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing formulas: %w", err)
	}

	priced := make([]models.ProductWithPrice, len(products))
	for i, p := range products {
		priced[i] = models.ProductWithPrice{
			Product: p,
			Price:   pricing.Calculate(p.PricingInput(), set),
		}
	}
	return priced, nil
}

// Formulas returns the live formula set.
func (s *PricingService) Formulas(ctx context.Context) (pricing.FormulaSet, error) {
	set, err := s.formulas.FormulaSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing formulas: %w", err)
	}
	return set, nil
}

// UpdateFormula applies the non-nil fields of req on top of the current
// formula for category and stores the result.
func (s *PricingService) UpdateFormula(ctx context.Context, category string, req models.UpdateFormulaRequest, updatedBy string) (*models.PricingFormula, error) {
	cat := pricing.Category(strings.TrimSpace(category))
	if !pricing.IsValidCategory(cat) {
		return nil, validationError("unknown pricing category %q", category)
	}

	for name, v := range map[string]*float64{
		"taxPerLiter":     req.TaxPerLiter,
		"taxFixed":        req.TaxFixed,
		"shippingPerCase": req.ShippingPerCase,
		"marginDivisor":   req.MarginDivisor,
		"srpMultiplier":   req.SRPMultiplier,
	} {
		if v != nil && *v < 0 {
			return nil, validationError("%s must not be negative", name)
		}
	}

	set, err := s.formulas.FormulaSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing formulas: %w", err)
	}
	current := set[cat]
	if req.TaxPerLiter != nil {
		current.TaxPerLiter = *req.TaxPerLiter
	}
	if req.TaxFixed != nil {
		current.TaxFixed = *req.TaxFixed
	}
	if req.ShippingPerCase != nil {
		current.ShippingPerCase = *req.ShippingPerCase
	}
	if req.MarginDivisor != nil {
		current.MarginDivisor = *req.MarginDivisor
	}
	if req.SRPMultiplier != nil {
		current.SRPMultiplier = *req.SRPMultiplier
	}

	stored := models.NewPricingFormula(cat, current)
	stored.UpdatedBy = updatedBy
	if err := s.formulas.Upsert(ctx, &stored); err != nil {
		return nil, fmt.Errorf("failed to store formula for %s: %w", cat, err)
	}

	s.logger.WithFields(logrus.Fields{
		"category":  cat,
		"updatedBy": updatedBy,
	}).Info("Pricing formula updated")

	return &stored, nil
}
