package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"catalog-service/internal/middleware"
	"catalog-service/internal/models"
	"github.com/gin-gonic/gin"
)

type SpecialOrdersHandler struct {
	orders  SpecialOrderProvider
	pricing PricingProvider
}

func NewSpecialOrdersHandler(orders SpecialOrderProvider, pricing PricingProvider) *SpecialOrdersHandler {
	return &SpecialOrdersHandler{orders: orders, pricing: pricing}
}

func forbiddenSupplier(supplier string) error {
	return fmt.Errorf("%w: supplier %q is outside your scope", ErrForbidden, supplier)
}

// loadScoped fetches an order and checks the caller may see its supplier.
func (h *SpecialOrdersHandler) loadScoped(c *gin.Context) (*models.SpecialOrder, bool) {
	order, err := h.orders.Get(requestContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "ORDER_FAILED")
		return nil, false
	}
	if !middleware.CanAccessSupplier(c, order.Supplier) {
		respondError(c, forbiddenSupplier(order.Supplier), "ORDER_FAILED")
		return nil, false
	}
	return order, true
}

// CreateSpecialOrder places an order for a catalog product
// POST /api/v1/special-orders
func (h *SpecialOrdersHandler) CreateSpecialOrder(c *gin.Context) {
	var req models.CreateSpecialOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Username == "" {
		req.Username = actorName(c)
	}

	ctx := requestContext(c)
	if _, restricted := middleware.AllowedSuppliers(c); restricted {
		priced, err := h.pricing.Price(ctx, req.ProductID)
		if err != nil {
			respondError(c, err, "ORDER_CREATE_FAILED")
			return
		}
		if !middleware.CanAccessSupplier(c, priced.Supplier) {
			respondError(c, forbiddenSupplier(priced.Supplier), "ORDER_CREATE_FAILED")
			return
		}
	}

	order, err := h.orders.Create(ctx, req)
	if err != nil {
		respondError(c, err, "ORDER_CREATE_FAILED")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListSpecialOrders lists orders, newest first
// GET /api/v1/special-orders?supplier=&username=&productId=&status=&includeArchived=
func (h *SpecialOrdersHandler) ListSpecialOrders(c *gin.Context) {
	filter := models.SpecialOrderFilter{
		Supplier:  c.Query("supplier"),
		Username:  c.Query("username"),
		ProductID: c.Query("productId"),
		Status:    models.OrderStatus(c.Query("status")),
	}
	if raw := c.Query("includeArchived"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "includeArchived must be a boolean")
			return
		}
		filter.IncludeArchived = include
	}
	if filter.Supplier != "" && !middleware.CanAccessSupplier(c, filter.Supplier) {
		respondError(c, forbiddenSupplier(filter.Supplier), "ORDER_LIST_FAILED")
		return
	}

	orders, err := h.orders.List(requestContext(c), filter)
	if err != nil {
		respondError(c, err, "ORDER_LIST_FAILED")
		return
	}

	visible := orders[:0]
	for _, o := range orders {
		if middleware.CanAccessSupplier(c, o.Supplier) {
			visible = append(visible, o)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    visible,
		"total":   len(visible),
	})
}

// UpdateSpecialOrder changes quantity and workflow fields
// PATCH /api/v1/special-orders/:id
func (h *SpecialOrdersHandler) UpdateSpecialOrder(c *gin.Context) {
	var req models.UpdateSpecialOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if _, ok := h.loadScoped(c); !ok {
		return
	}

	order, err := h.orders.Update(requestContext(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err, "ORDER_UPDATE_FAILED")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// VerifySpecialOrder recomputes an order's price snapshot
// GET /api/v1/special-orders/:id/verify
func (h *SpecialOrdersHandler) VerifySpecialOrder(c *gin.Context) {
	if _, ok := h.loadScoped(c); !ok {
		return
	}

	verification, err := h.orders.Verify(requestContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "ORDER_VERIFY_FAILED")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    verification,
	})
}
