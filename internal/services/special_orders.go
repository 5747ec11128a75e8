package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/pricing"
	"catalog-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SpecialOrderService creates and maintains special orders. Orders copy the
// product and its price at creation time; later catalog or formula changes
// do not reach them.
type SpecialOrderService struct {
	products repository.CatalogRepositoryInterface
	orders   repository.OrdersRepositoryInterface
	formulas repository.FormulaRepositoryInterface
	logger   *logrus.Entry
}

func NewSpecialOrderService(products repository.CatalogRepositoryInterface, orders repository.OrdersRepositoryInterface, formulas repository.FormulaRepositoryInterface, logger *logrus.Entry) *SpecialOrderService {
	return &SpecialOrderService{
		products: products,
		orders:   orders,
		formulas: formulas,
		logger:   logger.WithField("component", "special_orders"),
	}
}

func orderQuantity(packSize string, cases, bottles int) (int, error) {
	if cases < 0 || bottles < 0 {
		return 0, validationError("cases and bottles must not be negative")
	}
	qty := cases*pricing.ParsePackSize(packSize) + bottles
	if qty <= 0 {
		return 0, validationError("order must contain at least one bottle")
	}
	return qty, nil
}

// Create prices the referenced product with the live formula set and stores
// the order with a copy of both.
func (s *SpecialOrderService) Create(ctx context.Context, req models.CreateSpecialOrderRequest) (*models.SpecialOrder, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, validationError("username is required")
	}

	ref := models.ParseProductRef(req.ProductID)
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

	qty, err := orderQuantity(product.PackSize, req.Cases, req.Bottles)
	if err != nil {
		return nil, err
	}

	set, err := s.formulas.FormulaSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing formulas: %w", err)
	}
	breakdown := pricing.Calculate(product.PricingInput(), set)
	snap := breakdown.Snapshot()

	uploadDate := product.UploadDate
	order := &models.SpecialOrder{
		ID:              uuid.New().String(),
		Username:        username,
		ItemCode:        product.ItemCode,
		ProductID:       product.PublicID(),
		Producer:        product.Producer,
		ProductName:     product.ProductName,
		Vintage:         product.Vintage,
		PackSize:        product.PackSize,
		BottleSize:      product.BottleSize,
		ProductType:     product.ProductType,
		FOBCasePrice:    product.FOBCasePrice,
		Supplier:        product.Supplier,
		ProductLink:     product.ProductLink,
		UploadDate:      &uploadDate,
		FrontlinePrice:  snap.FrontlinePrice,
		FrontlineCase:   snap.FrontlineCase,
		SRP:             snap.SRP,
		WhlsBottle:      snap.WhlsBottle,
		WhlsCase:        snap.WhlsCase,
		LaidIn:          snap.LaidIn,
		FormulaUsed:     snap.FormulaUsed,
		FormulaSnapshot: models.FormulaToMap(breakdown.CategoryUsed, breakdown.Formula),
		Cases:           req.Cases,
		Bottles:         req.Bottles,
		Quantity:        qty,
		Status:          models.OrderStatusPending,
		Notes:           req.Notes,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create special order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"orderId":   order.ID,
		"productId": order.ProductID,
		"supplier":  order.Supplier,
		"quantity":  order.Quantity,
	}).Info("Special order created")

	return order, nil
}

func (s *SpecialOrderService) Get(ctx context.Context, id string) (*models.SpecialOrder, error) {
	order, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("special order %q", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load special order %q: %w", id, err)
	}
	return order, nil
}

func (s *SpecialOrderService) List(ctx context.Context, filter models.SpecialOrderFilter) ([]models.SpecialOrder, error) {
	if filter.Status != "" && !models.IsValidOrderStatus(filter.Status) {
		return nil, validationError("unknown status %q", filter.Status)
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list special orders: %w", err)
	}
	return orders, nil
}

// Update changes workflow and quantity fields. The price snapshot and the
// product reference are not writable here.
func (s *SpecialOrderService) Update(ctx context.Context, id string, req models.UpdateSpecialOrderRequest) (*models.SpecialOrder, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Cases != nil || req.Bottles != nil {
		cases, bottles := order.Cases, order.Bottles
		if req.Cases != nil {
			cases = *req.Cases
		}
		if req.Bottles != nil {
			bottles = *req.Bottles
		}
		qty, err := orderQuantity(order.PackSize, cases, bottles)
		if err != nil {
			return nil, err
		}
		fields["cases"] = cases
		fields["bottles"] = bottles
		fields["quantity"] = qty
	}
	if req.Status != nil {
		if !models.IsValidOrderStatus(*req.Status) {
			return nil, validationError("unknown status %q", *req.Status)
		}
		fields["status"] = *req.Status
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if req.AdminNotes != nil {
		fields["admin_notes"] = *req.AdminNotes
	}
	if req.Submitted != nil {
		fields["submitted"] = *req.Submitted
	}
	if req.IsArchived != nil {
		fields["is_archived"] = *req.IsArchived
	}

	if len(fields) == 0 {
		return order, nil
	}
	if err := s.orders.Update(ctx, id, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("special order %q", id)
		}
		return nil, fmt.Errorf("failed to update special order %q: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Verify recomputes the stored price snapshot from the order's own product
// copy and frozen formula.
func (s *SpecialOrderService) Verify(ctx context.Context, id string) (*models.SnapshotVerification, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(order.FormulaSnapshot) == 0 {
		return nil, validationError("special order %q has no formula snapshot", id)
	}

	category, formula := models.FormulaFromMap(order.FormulaSnapshot)
	if category == "" {
		category = pricing.Category(order.FormulaUsed)
	}
	input := pricing.Input{
		ProductType:  order.ProductType,
		ProductName:  order.ProductName,
		BottleSize:   order.BottleSize,
		PackSize:     order.PackSize,
		FOBCasePrice: order.FOBCasePrice,
	}
	recomputed := pricing.CalculateWith(input, category, formula).Snapshot()
	stored := pricing.Snapshot{
		FrontlinePrice: order.FrontlinePrice,
		FrontlineCase:  order.FrontlineCase,
		SRP:            order.SRP,
		WhlsBottle:     order.WhlsBottle,
		WhlsCase:       order.WhlsCase,
		LaidIn:         order.LaidIn,
		FormulaUsed:    order.FormulaUsed,
	}

	storedMap, recomputedMap := snapshotMap(stored), snapshotMap(recomputed)
	result := &models.SnapshotVerification{
		OrderID:    order.ID,
		Stored:     storedMap,
		Recomputed: recomputedMap,
	}
	for _, key := range snapshotKeys {
		if storedMap[key] != recomputedMap[key] {
			result.Mismatched = append(result.Mismatched, key)
		}
	}
	result.Matches = len(result.Mismatched) == 0

	if !result.Matches {
		s.logger.WithFields(logrus.Fields{
			"orderId":    order.ID,
			"mismatched": result.Mismatched,
		}).Warn("Special order price snapshot does not match its formula")
	}
	return result, nil
}

var snapshotKeys = []string{"frontlinePrice", "frontlineCase", "srp", "whlsBottle", "whlsCase", "laidIn", "formulaUsed"}

func snapshotMap(s pricing.Snapshot) map[string]any {
	return map[string]any{
		"frontlinePrice": s.FrontlinePrice,
		"frontlineCase":  s.FrontlineCase,
		"srp":            s.SRP,
		"whlsBottle":     s.WhlsBottle,
		"whlsCase":       s.WhlsCase,
		"laidIn":         s.LaidIn,
		"formulaUsed":    s.FormulaUsed,
	}
}
