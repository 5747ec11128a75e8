package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type scopeResult struct {
	allowed    []string
	restricted bool
	canAcme    bool
}

func runScope(t *testing.T, setup gin.HandlerFunc, header string) scopeResult {
	t.Helper()
	var got scopeResult

	router := gin.New()
	if setup != nil {
		router.Use(setup)
	}
	router.Use(SupplierScope())
	router.GET("/", func(c *gin.Context) {
		got.allowed, got.restricted = AllowedSuppliers(c)
		got.canAcme = CanAccessSupplier(c, "acme")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(AllowedSuppliersHeader, header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	return got
}

func TestSupplierScope_NoListIsUnrestricted(t *testing.T) {
	got := runScope(t, nil, "")
	assert.False(t, got.restricted)
	assert.Nil(t, got.allowed)
	assert.True(t, got.canAcme)
}

func TestSupplierScope_HeaderRestricts(t *testing.T) {
	got := runScope(t, nil, " Acme , Beta,,")
	assert.True(t, got.restricted)
	assert.Equal(t, []string{"Acme", "Beta"}, got.allowed)
	assert.True(t, got.canAcme)
}

func TestSupplierScope_ContextListWinsOverHeader(t *testing.T) {
	setup := func(c *gin.Context) {
		c.Set("allowed_suppliers", []string{"Other"})
		c.Next()
	}
	got := runScope(t, setup, "Acme")
	assert.True(t, got.restricted)
	assert.Equal(t, []string{"Other"}, got.allowed)
	assert.False(t, got.canAcme)
}

func TestRequireUnrestricted(t *testing.T) {
	router := gin.New()
	router.Use(SupplierScope())
	router.POST("/merge", RequireUnrestricted(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/merge", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/merge", nil)
	req.Header.Set(AllowedSuppliersHeader, "Acme")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "SUPPLIER_RESTRICTED")
}

func vendorScoped(c *gin.Context) {
	c.Set("vendor_scope_filter", "vendor-123")
	c.Next()
}

func TestSupplierScope_VendorWithoutListIsRejected(t *testing.T) {
	router := gin.New()
	router.Use(vendorScoped, SupplierScope())
	router.DELETE("/suppliers/:name", RequireUnrestricted(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"canAccessOther": CanAccessSupplier(c, c.Param("name"))})
	})

	req := httptest.NewRequest(http.MethodDelete, "/suppliers/SomeoneElse", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "SUPPLIER_SCOPE_UNRESOLVED")
	assert.NotContains(t, w.Body.String(), "canAccessOther")
}

func TestSupplierScope_VendorWithListIsRestricted(t *testing.T) {
	got := runScope(t, vendorScoped, "Acme")
	assert.True(t, got.restricted)
	assert.Equal(t, []string{"Acme"}, got.allowed)
	assert.True(t, got.canAcme)

	router := gin.New()
	router.Use(vendorScoped, SupplierScope())
	router.POST("/merge", RequireUnrestricted(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodPost, "/merge", nil)
	req.Header.Set(AllowedSuppliersHeader, "Acme")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "SUPPLIER_RESTRICTED")
}

func TestDevelopmentAuthMiddleware(t *testing.T) {
	var userID, staffID string
	router := gin.New()
	router.Use(DevelopmentAuthMiddleware())
	router.GET("/", func(c *gin.Context) {
		userID = c.GetString("user_id")
		staffID = c.GetString("staff_id")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, DevUserID, userID)
	assert.Equal(t, DevUserID, staffID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "user-42")
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "user-42", userID)
}
