package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"catalog-service/internal/middleware"
	"catalog-service/internal/models"
	"catalog-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CatalogHandlerConfig carries import limits and defaults.
type CatalogHandlerConfig struct {
	MaxImportRows       int
	MaxUploadBytes      int64
	ProtectActiveOrders bool
}

type CatalogHandler struct {
	sync    CatalogSyncer
	pricing PricingProvider
	mapper  *services.ColumnMapper
	cfg     CatalogHandlerConfig
	logger  *logrus.Entry
}

func NewCatalogHandler(sync CatalogSyncer, pricing PricingProvider, mapper *services.ColumnMapper, cfg CatalogHandlerConfig, logger *logrus.Entry) *CatalogHandler {
	if mapper == nil {
		mapper = services.NewColumnMapper(nil)
	}
	if cfg.MaxImportRows <= 0 {
		cfg.MaxImportRows = 20000
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return &CatalogHandler{
		sync:    sync,
		pricing: pricing,
		mapper:  mapper,
		cfg:     cfg,
		logger:  logger.WithField("component", "catalog_handler"),
	}
}

type importInput struct {
	rows         []map[string]string
	headers      []string
	mapping      map[string]string
	extraColumns []string
	supplier     string
	ownerID      string
	protect      *bool
}

// ImportJSON imports pre-parsed spreadsheet rows
// POST /api/v1/import
func (h *CatalogHandler) ImportJSON(c *gin.Context) {
	var req models.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	h.runImport(c, importInput{
		rows:         req.Items,
		headers:      req.Headers,
		mapping:      req.Mapping,
		extraColumns: req.ExtraColumns,
		supplier:     req.Supplier,
		ownerID:      req.OwnerID,
		protect:      req.ProtectActiveOrders,
	})
}

// ImportFile imports a CSV or Excel upload
// POST /api/v1/import/file
//
// Form fields: file, supplier, ownerId, mapping (JSON object of field to
// header), extraColumns (JSON array or comma separated), protectActiveOrders.
func (h *CatalogHandler) ImportFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "FILE_REQUIRED", "Please upload a CSV or Excel file")
		return
	}
	defer file.Close()

	var parse func(io.Reader) ([]string, []map[string]string, error)
	switch models.ImportFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")) {
	case models.ImportFormatCSV:
		parse = parseCSV
	case models.ImportFormatXLSX:
		parse = parseXLSX
	default:
		errorResponse(c, http.StatusBadRequest, "INVALID_FORMAT", "Only CSV and XLSX files are supported")
		return
	}

	headers, rows, err := parse(file)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "PARSE_ERROR", err.Error())
		return
	}

	in := importInput{
		rows:     rows,
		headers:  headers,
		supplier: c.PostForm("supplier"),
		ownerID:  c.PostForm("ownerId"),
	}
	if raw := strings.TrimSpace(c.PostForm("mapping")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.mapping); err != nil {
			errorResponse(c, http.StatusBadRequest, "INVALID_MAPPING", "mapping must be a JSON object of field to header")
			return
		}
	}
	in.extraColumns = parseListField(c.PostForm("extraColumns"))
	if raw := c.PostForm("protectActiveOrders"); raw != "" {
		protect, err := strconv.ParseBool(raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "protectActiveOrders must be a boolean")
			return
		}
		in.protect = &protect
	}

	h.runImport(c, in)
}

func parseListField(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var list []string
	if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &list) == nil {
		return list
	}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}

func (h *CatalogHandler) runImport(c *gin.Context, in importInput) {
	startTime := time.Now()

	supplier := strings.TrimSpace(in.supplier)
	if supplier == "" {
		errorResponse(c, http.StatusBadRequest, "SUPPLIER_REQUIRED", "supplier is required")
		return
	}
	if !middleware.CanAccessSupplier(c, supplier) {
		errorResponse(c, http.StatusForbidden, "FORBIDDEN", fmt.Sprintf("not allowed to import for supplier %q", supplier))
		return
	}
	if len(in.rows) == 0 {
		errorResponse(c, http.StatusBadRequest, "EMPTY_FILE", "The import contains no data rows")
		return
	}
	if len(in.rows) > h.cfg.MaxImportRows {
		errorResponse(c, http.StatusBadRequest, "TOO_MANY_ROWS", fmt.Sprintf("imports are limited to %d rows", h.cfg.MaxImportRows))
		return
	}

	mapped, err := h.mapper.Map(services.MappingInput{
		Rows:         in.rows,
		Headers:      in.headers,
		Overrides:    in.mapping,
		ExtraColumns: in.extraColumns,
	})
	if err != nil {
		respondError(c, err, "MAPPING_FAILED")
		return
	}
	if len(mapped.Items) == 0 {
		msg := "No valid rows: every row is missing an item code or product name"
		if len(mapped.MissingRequired) > 0 {
			msg = "No column matched required fields: " + strings.Join(mapped.MissingRequired, ", ")
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_VALID_ROWS",
				"message": msg,
			},
			"mapping":         mapped.Mapping,
			"missingRequired": mapped.MissingRequired,
			"droppedRows":     mapped.Dropped,
		})
		return
	}

	protect := h.cfg.ProtectActiveOrders
	if in.protect != nil {
		protect = *in.protect
	}

	result, err := h.sync.Sync(requestContext(c), services.SyncRequest{
		Items:               mapped.Items,
		Supplier:            supplier,
		OwnerID:             strings.TrimSpace(in.ownerID),
		ProtectActiveOrders: protect,
	})
	if err != nil {
		h.logger.WithError(err).WithField("supplier", supplier).Error("Catalog import failed")
		respondError(c, err, "IMPORT_FAILED")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"supplier":     supplier,
		"rows":         len(in.rows),
		"dropped":      len(mapped.Dropped),
		"processingMs": time.Since(startTime).Milliseconds(),
	}).Info("Catalog import processed")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": models.ImportResponse{
			SyncResult:  *result,
			Dropped:     len(mapped.Dropped),
			DroppedRows: mapped.Dropped,
			Mapping:     mapped.Mapping,
		},
	})
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/import/template?format=json|csv|xlsx
func (h *CatalogHandler) GetImportTemplate(c *gin.Context) {
	template := models.CatalogImportTemplate()

	switch models.ImportFormat(c.DefaultQuery("format", "json")) {
	case models.ImportFormatCSV:
		var buf bytes.Buffer
		if err := writeTemplateCSV(&buf, template); err != nil {
			respondError(c, err, "TEMPLATE_FAILED")
			return
		}
		c.Header("Content-Disposition", "attachment; filename=catalog_import_template.csv")
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
	case models.ImportFormatXLSX:
		var buf bytes.Buffer
		if err := writeTemplateXLSX(&buf, template); err != nil {
			respondError(c, err, "TEMPLATE_FAILED")
			return
		}
		c.Header("Content-Disposition", "attachment; filename=catalog_import_template.xlsx")
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
			"fields":   models.CatalogImportFields(),
		})
	}
}

// scopedCatalog lists priced products the caller may see.
func (h *CatalogHandler) scopedCatalog(c *gin.Context) ([]models.ProductWithPrice, bool) {
	supplier := strings.TrimSpace(c.Query("supplier"))
	if supplier != "" && !middleware.CanAccessSupplier(c, supplier) {
		errorResponse(c, http.StatusForbidden, "FORBIDDEN", fmt.Sprintf("not allowed to read supplier %q", supplier))
		return nil, false
	}

	products, err := h.pricing.ListPriced(requestContext(c), supplier)
	if err != nil {
		respondError(c, err, "LIST_FAILED")
		return nil, false
	}

	if _, restricted := middleware.AllowedSuppliers(c); restricted && supplier == "" {
		visible := products[:0]
		for _, p := range products {
			if middleware.CanAccessSupplier(c, p.Supplier) {
				visible = append(visible, p)
			}
		}
		products = visible
	}
	return products, true
}

// ListProducts returns the live catalog with computed prices
// GET /api/v1/products?supplier=
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, ok := h.scopedCatalog(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"total":   len(products),
	})
}

// ExportProducts downloads the priced catalog as an Excel workbook
// GET /api/v1/products/export?supplier=
func (h *CatalogHandler) ExportProducts(c *gin.Context) {
	products, ok := h.scopedCatalog(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := writeCatalogXLSX(&buf, products); err != nil {
		respondError(c, err, "EXPORT_FAILED")
		return
	}

	filename := "catalog_export.xlsx"
	if s := strings.TrimSpace(c.Query("supplier")); s != "" {
		filename = fmt.Sprintf("catalog_%s.xlsx", sanitizeFilename(s))
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
