package models

import (
	"time"

	"gorm.io/datatypes"
)

// OrderStatus is the workflow state of a special order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusOrdered    OrderStatus = "Ordered"
	OrderStatusReceived   OrderStatus = "Received"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
	OrderStatusOutOfStock OrderStatus = "Out of Stock"
)

// ClosedOrderStatuses are the statuses after which an order no longer needs
// its product to stay in the catalog.
var ClosedOrderStatuses = []OrderStatus{OrderStatusDelivered, OrderStatusCancelled, OrderStatusOutOfStock}

// IsValidOrderStatus reports whether s is a known workflow status.
func IsValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusOrdered, OrderStatusReceived,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusOutOfStock:
		return true
	}
	return false
}

// SpecialOrder is a customer request for a catalog product.
//
// ProductID and Supplier are copies, not foreign keys. ProductID is rewritten
// only by duplicate merges and Supplier only by supplier renames. A supplier
// delete leaves ProductID dangling on purpose.
//
// The price fields are a snapshot taken at creation and are never recomputed
// in place. FormulaSnapshot keeps the formula that produced them so the
// snapshot can be verified later.
type SpecialOrder struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"index"`
	ItemCode     string     `json:"itemCode"`
	ProductID    string     `json:"productId" gorm:"index"`
	Producer     string     `json:"producer"`
	ProductName  string     `json:"productName"`
	Vintage      string     `json:"vintage"`
	PackSize     string     `json:"packSize"`
	BottleSize   string     `json:"bottleSize"`
	ProductType  string     `json:"productType"`
	FOBCasePrice float64    `json:"fobCasePrice" gorm:"column:fob_case_price"`
	Supplier     string     `json:"supplier" gorm:"index"`
	ProductLink  string     `json:"productLink,omitempty"`
	UploadDate   *time.Time `json:"uploadDate,omitempty"`

	FrontlinePrice  string            `json:"frontlinePrice"`
	FrontlineCase   string            `json:"frontlineCase"`
	SRP             string            `json:"srp" gorm:"column:srp"`
	WhlsBottle      string            `json:"whlsBottle"`
	WhlsCase        string            `json:"whlsCase"`
	LaidIn          string            `json:"laidIn"`
	FormulaUsed     string            `json:"formulaUsed"`
	FormulaSnapshot datatypes.JSONMap `json:"formulaSnapshot,omitempty"`

	Cases      int         `json:"cases"`
	Bottles    int         `json:"bottles"`
	Quantity   int         `json:"quantity"`
	Status     OrderStatus `json:"status" gorm:"not null;default:'Pending';index"`
	Notes      string      `json:"notes,omitempty"`
	AdminNotes string      `json:"adminNotes,omitempty"`
	Submitted  bool        `json:"submitted"`
	IsArchived bool        `json:"isArchived" gorm:"index"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// TableName returns the table name for the SpecialOrder model
func (SpecialOrder) TableName() string {
	return "special_orders"
}

// SpecialOrderFilter narrows a special order listing.
type SpecialOrderFilter struct {
	Supplier        string
	Username        string
	ProductID       string
	Status          OrderStatus
	IncludeArchived bool
}

type CreateSpecialOrderRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Username  string `json:"username"`
	Cases     int    `json:"cases" binding:"min=0"`
	Bottles   int    `json:"bottles" binding:"min=0"`
	Notes     string `json:"notes"`
}

type UpdateSpecialOrderRequest struct {
	Cases      *int         `json:"cases,omitempty"`
	Bottles    *int         `json:"bottles,omitempty"`
	Status     *OrderStatus `json:"status,omitempty"`
	Notes      *string      `json:"notes,omitempty"`
	AdminNotes *string      `json:"adminNotes,omitempty"`
	Submitted  *bool        `json:"submitted,omitempty"`
	IsArchived *bool        `json:"isArchived,omitempty"`
}

// SnapshotVerification compares a stored price snapshot with a fresh
// computation from the order's own frozen inputs.
type SnapshotVerification struct {
	OrderID    string         `json:"orderId"`
	Matches    bool           `json:"matches"`
	Stored     map[string]any `json:"stored"`
	Recomputed map[string]any `json:"recomputed"`
	Mismatched []string       `json:"mismatched,omitempty"`
}
