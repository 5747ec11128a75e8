package models

import (
	"strconv"
	"strings"
	"time"

	"catalog-service/internal/pricing"
	"gorm.io/datatypes"
)

// Product is one catalog row. RowID is the storage key; ID is the stable
// identifier handed to clients and copied onto special orders. Older rows may
// carry an empty ID and are then addressed by RowID.
// (item_code, supplier) should be unique but is not enforced: duplicates are
// cleaned up by the duplicate resolver rather than rejected on write.
type Product struct {
	RowID        uint64            `json:"rowId" gorm:"column:row_id;primaryKey;autoIncrement"`
	ID           string            `json:"id" gorm:"column:id;index:idx_products_public_id"`
	ItemCode     string            `json:"itemCode" gorm:"not null;index:idx_products_supplier_item,priority:2"`
	Supplier     string            `json:"supplier" gorm:"not null;index:idx_products_supplier_item,priority:1"`
	Producer     string            `json:"producer"`
	ProductName  string            `json:"productName" gorm:"not null"`
	Vintage      string            `json:"vintage"`
	PackSize     string            `json:"packSize"`
	BottleSize   string            `json:"bottleSize"`
	ProductType  string            `json:"productType"`
	FOBCasePrice float64           `json:"fobCasePrice" gorm:"column:fob_case_price"`
	Country      string            `json:"country,omitempty"`
	Region       string            `json:"region,omitempty"`
	Appellation  string            `json:"appellation,omitempty"`
	GrapeVariety string            `json:"grapeVariety,omitempty"`
	ProductLink  string            `json:"productLink,omitempty"`
	ExtendedData datatypes.JSONMap `json:"extendedData,omitempty"`
	Vendor       *string           `json:"vendor,omitempty" gorm:"index"`
	UploadDate   time.Time         `json:"uploadDate"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// PublicID is the identifier callers should use for p: the custom id when
// present, the row id otherwise.
func (p Product) PublicID() string {
	if p.ID != "" {
		return p.ID
	}
	return strconv.FormatUint(p.RowID, 10)
}

// PricingInput extracts the fields the price formula depends on.
func (p Product) PricingInput() pricing.Input {
	return pricing.Input{
		ProductType:  p.ProductType,
		ProductName:  p.ProductName,
		BottleSize:   p.BottleSize,
		PackSize:     p.PackSize,
		FOBCasePrice: p.FOBCasePrice,
	}
}

// ProductRef is a raw product identifier resolved against both key spaces.
// Historical callers passed either the custom id or the storage row id, so a
// lookup must try both.
type ProductRef struct {
	Raw      string
	RowID    uint64
	HasRowID bool
}

// ParseProductRef trims raw and records whether it is also a valid row id.
func ParseProductRef(raw string) ProductRef {
	ref := ProductRef{Raw: strings.TrimSpace(raw)}
	if n, err := strconv.ParseUint(ref.Raw, 10, 64); err == nil && n > 0 {
		ref.RowID = n
		ref.HasRowID = true
	}
	return ref
}

// ParseProductRefs resolves a list of identifiers, dropping blanks.
// It returns the custom ids and the numeric row ids separately.
func ParseProductRefs(raw []string) (ids []string, rowIDs []uint64) {
	for _, r := range raw {
		ref := ParseProductRef(r)
		if ref.Raw == "" {
			continue
		}
		ids = append(ids, ref.Raw)
		if ref.HasRowID {
			rowIDs = append(rowIDs, ref.RowID)
		}
	}
	return ids, rowIDs
}

// ProductWithPrice is a catalog row rendered with its live price.
type ProductWithPrice struct {
	Product
	Price pricing.Breakdown `json:"price"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
