package middleware

import (
	"net/http"
	"strings"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/gin-gonic/gin"
)

const (
	// AllowedSuppliersHeader carries the caller's supplier allow-list,
	// comma separated. Absent means unrestricted unless the caller is
	// vendor-scoped.
	AllowedSuppliersHeader = "X-Allowed-Suppliers"

	allowedSuppliersKey = "allowed_suppliers"
	restrictedKey       = "supplier_restricted"
)

// SupplierScope resolves the caller's supplier allow-list. A list already
// placed in the context by an upstream auth layer wins over the header.
// Vendor-scoped identities are always restricted and are rejected when no
// allow-list reaches the service.
func SupplierScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		var allowed []string
		restricted := false

		if v, ok := c.Get(allowedSuppliersKey); ok {
			switch list := v.(type) {
			case []string:
				allowed, restricted = normalizeSuppliers(list), true
			case string:
				allowed, restricted = normalizeSuppliers(strings.Split(list, ",")), true
			}
		} else if raw, ok := c.Request.Header[http.CanonicalHeaderKey(AllowedSuppliersHeader)]; ok {
			allowed, restricted = normalizeSuppliers(strings.Split(strings.Join(raw, ","), ",")), true
		}

		if !restricted && gosharedmw.GetVendorScopeFilter(c) != "" {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SUPPLIER_SCOPE_UNRESOLVED",
					"message": "No supplier allow-list for vendor-scoped user",
				},
			})
			c.Abort()
			return
		}

		c.Set(allowedSuppliersKey, allowed)
		c.Set(restrictedKey, restricted)
		c.Next()
	}
}

func normalizeSuppliers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AllowedSuppliers returns the caller's allow-list and whether one applies.
// An unrestricted caller gets (nil, false).
func AllowedSuppliers(c *gin.Context) ([]string, bool) {
	if !c.GetBool(restrictedKey) {
		return nil, false
	}
	v, _ := c.Get(allowedSuppliersKey)
	list, _ := v.([]string)
	return list, true
}

// CanAccessSupplier reports whether the caller may act on supplier.
func CanAccessSupplier(c *gin.Context, supplier string) bool {
	allowed, restricted := AllowedSuppliers(c)
	if !restricted {
		return true
	}
	supplier = strings.TrimSpace(supplier)
	for _, s := range allowed {
		if strings.EqualFold(s, supplier) {
			return true
		}
	}
	return false
}

// RequireUnrestricted rejects callers bound to a supplier allow-list.
// Catalog-wide operations such as supplier renames and duplicate merges
// sit behind it.
func RequireUnrestricted() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, restricted := AllowedSuppliers(c); restricted {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SUPPLIER_RESTRICTED",
					"message": "This operation is not available to supplier-restricted users",
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
