package handlers

import (
	"net/http"

	"catalog-service/internal/middleware"
	"catalog-service/internal/models"
	"github.com/gin-gonic/gin"
)

// ReconcileHandler serves duplicate cleanup and supplier lifecycle routes.
// All of them act across the whole catalog and are mounted behind
// middleware.RequireUnrestricted, except the supplier listing.
type ReconcileHandler struct {
	duplicates DuplicateService
	suppliers  SupplierService
}

func NewReconcileHandler(duplicates DuplicateService, suppliers SupplierService) *ReconcileHandler {
	return &ReconcileHandler{duplicates: duplicates, suppliers: suppliers}
}

// ScanDuplicates lists groups of rows sharing item code and supplier
// GET /api/v1/duplicates/scan
func (h *ReconcileHandler) ScanDuplicates(c *gin.Context) {
	groups, err := h.duplicates.Scan(requestContext(c))
	if err != nil {
		respondError(c, err, "SCAN_FAILED")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    groups,
		"total":   len(groups),
	})
}

// MergeDuplicates folds loser rows into their winners
// POST /api/v1/duplicates/merge
func (h *ReconcileHandler) MergeDuplicates(c *gin.Context) {
	var req models.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result := h.duplicates.Merge(requestContext(c), req.Groups)
	c.JSON(mergeStatus(result), gin.H{
		"success": len(result.FailedGroups) == 0,
		"data":    result,
	})
}

// AutoMergeDuplicates merges every duplicate group into its default winner
// POST /api/v1/duplicates/auto-merge
func (h *ReconcileHandler) AutoMergeDuplicates(c *gin.Context) {
	result, err := h.duplicates.AutoMerge(requestContext(c))
	if err != nil {
		respondError(c, err, "MERGE_FAILED")
		return
	}
	c.JSON(mergeStatus(result), gin.H{
		"success": len(result.FailedGroups) == 0,
		"data":    result,
	})
}

// mergeStatus is 200 when every group merged, 207 when some did and 422
// when none did.
func mergeStatus(result *models.MergeResult) int {
	switch {
	case len(result.FailedGroups) == 0:
		return http.StatusOK
	case result.PartialSuccess:
		return http.StatusMultiStatus
	default:
		return http.StatusUnprocessableEntity
	}
}

// ListSuppliers returns product counts per supplier
// GET /api/v1/suppliers
func (h *ReconcileHandler) ListSuppliers(c *gin.Context) {
	stats, err := h.suppliers.List(requestContext(c))
	if err != nil {
		respondError(c, err, "LIST_FAILED")
		return
	}

	visible := make([]models.SupplierStat, 0, len(stats))
	for _, s := range stats {
		if middleware.CanAccessSupplier(c, s.Supplier) {
			visible = append(visible, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    visible,
	})
}

// RenameSupplier renames a supplier on products and special orders
// POST /api/v1/suppliers/rename
func (h *ReconcileHandler) RenameSupplier(c *gin.Context) {
	var req models.RenameSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.suppliers.Rename(requestContext(c), req.OldName, req.NewName)
	if err != nil {
		respondError(c, err, "RENAME_FAILED")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// DeleteSupplier removes every product of a supplier
// DELETE /api/v1/suppliers/:name
func (h *ReconcileHandler) DeleteSupplier(c *gin.Context) {
	result, err := h.suppliers.Delete(requestContext(c), c.Param("name"))
	if err != nil {
		respondError(c, err, "DELETE_FAILED")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
