package models

import "time"

// SyncResult reports what a supplier sync changed.
type SyncResult struct {
	Supplier  string `json:"supplier"`
	Added     int    `json:"added"`
	Updated   int    `json:"updated"`
	Kept      int    `json:"kept"`
	Deleted   int    `json:"deleted"`
	Protected int    `json:"protected"`
	Collapsed int    `json:"collapsed"`
}

// DuplicateMember is one stored row inside a duplicate group.
type DuplicateMember struct {
	ID          string    `json:"id"`
	RowID       uint64    `json:"rowId"`
	ProductName string    `json:"productName"`
	Vintage     string    `json:"vintage,omitempty"`
	BottleSize  string    `json:"bottleSize,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
	UploadDate  time.Time `json:"uploadDate"`
}

// DuplicateGroup lists rows sharing (itemCode, supplier). Members are sorted
// by the default tie-break, so Members[0] is the default winner. The
// tie-break (latest update wins) is a heuristic; callers may pick another
// winner.
type DuplicateGroup struct {
	ItemCode        string            `json:"itemCode"`
	Supplier        string            `json:"supplier"`
	Count           int               `json:"count"`
	DefaultWinnerID string            `json:"defaultWinnerId"`
	Members         []DuplicateMember `json:"members"`
}

// MergeGroup names the surviving row and the rows folded into it.
type MergeGroup struct {
	WinnerID string   `json:"winnerId" binding:"required"`
	LoserIDs []string `json:"loserIds"`
}

type MergeRequest struct {
	Groups []MergeGroup `json:"groups" binding:"required,min=1,dive"`
}

// MergeError records a group that could not be merged.
type MergeError struct {
	GroupIndex int    `json:"groupIndex"`
	WinnerID   string `json:"winnerId"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// MergeResult aggregates a batch of merges. PartialSuccess is set when some
// groups failed while others completed.
type MergeResult struct {
	Merged           int          `json:"merged"`
	Deleted          int          `json:"deleted"`
	OrdersReassigned int          `json:"ordersReassigned"`
	FailedGroups     []MergeError `json:"failedGroups,omitempty"`
	PartialSuccess   bool         `json:"partialSuccess"`
}

type RenameSupplierRequest struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

type RenameSupplierResult struct {
	ProductsUpdated int `json:"productsUpdated"`
	OrdersUpdated   int `json:"ordersUpdated"`
}

// DeleteSupplierResult reports the rows removed and the orders left holding a
// product id that no longer resolves.
type DeleteSupplierResult struct {
	ProductsDeleted int      `json:"productsDeleted"`
	DanglingOrders  int      `json:"danglingOrders"`
	Warnings        []string `json:"warnings,omitempty"`
}

// SupplierStat is the product count for one supplier.
type SupplierStat struct {
	Supplier string `json:"supplier"`
	Count    int64  `json:"count"`
}
