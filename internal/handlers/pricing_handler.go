package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"catalog-service/internal/middleware"
	"catalog-service/internal/models"
	"github.com/gin-gonic/gin"
)

type PricingHandler struct {
	pricing PricingProvider
}

func NewPricingHandler(pricing PricingProvider) *PricingHandler {
	return &PricingHandler{pricing: pricing}
}

// GetPrice returns the live price breakdown of one product
// GET /api/v1/price?productId=
func (h *PricingHandler) GetPrice(c *gin.Context) {
	productID := strings.TrimSpace(c.Query("productId"))
	if productID == "" {
		errorResponse(c, http.StatusBadRequest, "PRODUCT_ID_REQUIRED", "productId query parameter is required")
		return
	}

	priced, err := h.pricing.Price(requestContext(c), productID)
	if err != nil {
		respondError(c, err, "PRICE_FAILED")
		return
	}
	if !middleware.CanAccessSupplier(c, priced.Supplier) {
		respondError(c, fmt.Errorf("%w: product %q belongs to another supplier", ErrForbidden, productID), "PRICE_FAILED")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    priced,
	})
}

// GetFormulas returns the live formula set
// GET /api/v1/formulas
func (h *PricingHandler) GetFormulas(c *gin.Context) {
	set, err := h.pricing.Formulas(requestContext(c))
	if err != nil {
		respondError(c, err, "FORMULAS_FAILED")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    set,
	})
}

// UpdateFormula overrides fields of one category's formula
// PUT /api/v1/formulas/:category
func (h *PricingHandler) UpdateFormula(c *gin.Context) {
	var req models.UpdateFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	stored, err := h.pricing.UpdateFormula(requestContext(c), c.Param("category"), req, actorName(c))
	if err != nil {
		respondError(c, err, "FORMULA_UPDATE_FAILED")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stored,
	})
}
