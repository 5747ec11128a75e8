package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// Merge failure codes reported in MergeError.Code.
const (
	MergeErrInvalidGroup   = "INVALID_GROUP"
	MergeErrWinnerNotFound = "WINNER_NOT_FOUND"
	MergeErrLookupFailed   = "LOOKUP_FAILED"
	MergeErrReassignFailed = "REASSIGN_FAILED"
	MergeErrDeleteFailed   = "DELETE_FAILED"
)

// DuplicateResolver finds rows sharing (itemCode, supplier) and folds them
// into one surviving row, moving special orders along.
type DuplicateResolver struct {
	products repository.CatalogRepositoryInterface
	orders   repository.OrdersRepositoryInterface
	events   CatalogEvents
	logger   *logrus.Entry
}

func NewDuplicateResolver(products repository.CatalogRepositoryInterface, orders repository.OrdersRepositoryInterface, events CatalogEvents, logger *logrus.Entry) *DuplicateResolver {
	return &DuplicateResolver{
		products: products,
		orders:   orders,
		events:   eventsOrNoop(events),
		logger:   logger.WithField("component", "duplicate_resolver"),
	}
}

// sortByTieBreak orders rows most recently updated first, then most recently
// uploaded, then oldest row. This is a heuristic for "the row the supplier
// meant", not a guarantee.
func sortByTieBreak(rows []models.Product) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.UploadDate.Equal(b.UploadDate) {
			return a.UploadDate.After(b.UploadDate)
		}
		return a.RowID < b.RowID
	})
}

// Scan groups the catalog by (itemCode, supplier) and returns the groups with
// two or more rows, ordered by supplier then item code.
func (r *DuplicateResolver) Scan(ctx context.Context) ([]models.DuplicateGroup, error) {
	rows, err := r.products.ListDuplicateRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate rows: %w", err)
	}

	type key struct{ supplier, itemCode string }
	byKey := make(map[key][]models.Product)
	keys := make([]key, 0)
	for _, p := range rows {
		k := key{supplier: p.Supplier, itemCode: p.ItemCode}
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].supplier != keys[j].supplier {
			return keys[i].supplier < keys[j].supplier
		}
		return keys[i].itemCode < keys[j].itemCode
	})

	groups := make([]models.DuplicateGroup, 0, len(keys))
	for _, k := range keys {
		members := byKey[k]
		if len(members) < 2 {
			continue
		}
		sortByTieBreak(members)

		group := models.DuplicateGroup{
			ItemCode: k.itemCode,
			Supplier: k.supplier,
			Count:    len(members),
			Members:  make([]models.DuplicateMember, len(members)),
		}
		for i, p := range members {
			group.Members[i] = models.DuplicateMember{
				ID:          p.PublicID(),
				RowID:       p.RowID,
				ProductName: p.ProductName,
				Vintage:     p.Vintage,
				BottleSize:  p.BottleSize,
				UpdatedAt:   p.UpdatedAt,
				UploadDate:  p.UploadDate,
			}
		}
		group.DefaultWinnerID = group.Members[0].ID
		groups = append(groups, group)
	}
	return groups, nil
}

// Merge applies each group independently. A failing group is recorded in
// FailedGroups and the remaining groups still run. Reassigned orders point at
// the winner's public id (its custom id when set, else its row id), whichever
// key the group used to address it. Re-running a failed group converges.
func (r *DuplicateResolver) Merge(ctx context.Context, groups []models.MergeGroup) *models.MergeResult {
	result := &models.MergeResult{}

	for i, group := range groups {
		deleted, reassigned, mergeErr := r.mergeGroup(ctx, group)
		if mergeErr != nil {
			mergeErr.GroupIndex = i
			mergeErr.WinnerID = group.WinnerID
			result.FailedGroups = append(result.FailedGroups, *mergeErr)
			r.logger.WithFields(logrus.Fields{
				"groupIndex": i,
				"winnerId":   group.WinnerID,
				"code":       mergeErr.Code,
			}).Warn("Duplicate merge failed: " + mergeErr.Message)
			continue
		}
		result.Merged++
		result.Deleted += int(deleted)
		result.OrdersReassigned += int(reassigned)
	}

	result.PartialSuccess = len(result.FailedGroups) > 0 && result.Merged > 0

	r.logger.WithFields(logrus.Fields{
		"merged":           result.Merged,
		"deleted":          result.Deleted,
		"ordersReassigned": result.OrdersReassigned,
		"failed":           len(result.FailedGroups),
	}).Info("Duplicate merge completed")

	return result
}

func (r *DuplicateResolver) mergeGroup(ctx context.Context, group models.MergeGroup) (int64, int64, *models.MergeError) {
	ref := models.ParseProductRef(group.WinnerID)
	if ref.Raw == "" {
		return 0, 0, &models.MergeError{Code: MergeErrInvalidGroup, Message: "winner id is required"}
	}

	winner, err := r.products.FindByRef(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, 0, &models.MergeError{Code: MergeErrWinnerNotFound, Message: fmt.Sprintf("winner %q not found", ref.Raw)}
	}
	if err != nil {
		return 0, 0, &models.MergeError{Code: MergeErrLookupFailed, Message: err.Error()}
	}

	winnerKeys := make(map[string]struct{}, 3)
	winnerKeys[ref.Raw] = struct{}{}
	winnerKeys[winner.PublicID()] = struct{}{}
	winnerKeys[strconv.FormatUint(winner.RowID, 10)] = struct{}{}
	losers := make([]string, 0, len(group.LoserIDs))
	for _, id := range group.LoserIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, isWinner := winnerKeys[id]; isWinner {
			continue
		}
		losers = append(losers, id)
	}
	if len(losers) == 0 {
		return 0, 0, nil
	}

	reassigned, err := r.orders.ReassignProduct(ctx, losers, winner.PublicID())
	if err != nil {
		return 0, 0, &models.MergeError{Code: MergeErrReassignFailed, Message: err.Error()}
	}

	ids, rowIDs := models.ParseProductRefs(losers)
	deleted, err := r.products.DeleteByRefs(ctx, ids, rowIDs, winner.RowID)
	if err != nil {
		return 0, reassigned, &models.MergeError{Code: MergeErrDeleteFailed, Message: err.Error()}
	}

	r.events.PublishProductMerged(ctx, winner, losers, reassigned)
	return deleted, reassigned, nil
}

// PlanAutoMerge turns scan groups into merge groups using each group's
// default winner.
func PlanAutoMerge(groups []models.DuplicateGroup) []models.MergeGroup {
	plan := make([]models.MergeGroup, 0, len(groups))
	for _, g := range groups {
		if len(g.Members) < 2 {
			continue
		}
		winner := g.Members[0]
		sharedID := false
		for _, m := range g.Members[1:] {
			if m.ID == winner.ID {
				sharedID = true
				break
			}
		}

		// Rows copied with the same custom id are addressed by row id.
		mg := models.MergeGroup{WinnerID: winner.ID}
		if sharedID {
			mg.WinnerID = strconv.FormatUint(winner.RowID, 10)
		}
		for _, m := range g.Members[1:] {
			id := m.ID
			if id == winner.ID {
				id = strconv.FormatUint(m.RowID, 10)
			}
			mg.LoserIDs = append(mg.LoserIDs, id)
		}
		plan = append(plan, mg)
	}
	return plan
}

// AutoMerge scans and merges every group into its default winner.
func (r *DuplicateResolver) AutoMerge(ctx context.Context) (*models.MergeResult, error) {
	groups, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return &models.MergeResult{}, nil
	}
	return r.Merge(ctx, PlanAutoMerge(groups)), nil
}
