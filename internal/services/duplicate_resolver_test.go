package services

import (
	"context"
	"testing"

	"catalog-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(env *testEnv) *DuplicateResolver {
	return NewDuplicateResolver(env.products, env.orders, env.events, env.logger)
}

func TestDuplicateResolver_ScanGroupsBySupplierAndCode(t *testing.T) {
	env := newTestEnv(t)
	resolver := newTestResolver(env)

	stale := env.seedProduct(t, models.Product{ID: "a-stale", ItemCode: "A", Supplier: "Zeta", UpdatedAt: at(0)})
	fresh := env.seedProduct(t, models.Product{ID: "a-fresh", ItemCode: "A", Supplier: "Zeta", UpdatedAt: at(30)})
	env.seedProduct(t, models.Product{ID: "a-other", ItemCode: "A", Supplier: "Beta"})
	env.seedProduct(t, models.Product{ID: "b-1", ItemCode: "B", Supplier: "Beta", UpdatedAt: at(0)})
	env.seedProduct(t, models.Product{ItemCode: "B", Supplier: "Beta", UpdatedAt: at(0)})

	groups, err := resolver.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "Beta", groups[0].Supplier)
	assert.Equal(t, "B", groups[0].ItemCode)
	assert.Equal(t, 2, groups[0].Count)
	// Same timestamps: the oldest row wins, and an empty id falls back to the row id.
	assert.Equal(t, "b-1", groups[0].DefaultWinnerID)
	assert.Equal(t, rowIDString(models.Product{RowID: groups[0].Members[1].RowID}), groups[0].Members[1].ID)

	assert.Equal(t, "Zeta", groups[1].Supplier)
	assert.Equal(t, fresh.ID, groups[1].DefaultWinnerID)
	assert.Equal(t, []string{fresh.ID, stale.ID}, []string{groups[1].Members[0].ID, groups[1].Members[1].ID})
}

func TestDuplicateResolver_ScanWithoutDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, models.Product{ID: "a", ItemCode: "A", Supplier: "Acme"})
	env.seedProduct(t, models.Product{ID: "b", ItemCode: "B", Supplier: "Acme"})

	groups, err := newTestResolver(env).Scan(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestSortByTieBreak(t *testing.T) {
	rows := []models.Product{
		{RowID: 3, UpdatedAt: at(5), UploadDate: at(0)},
		{RowID: 1, UpdatedAt: at(5), UploadDate: at(0)},
		{RowID: 2, UpdatedAt: at(5), UploadDate: at(1)},
		{RowID: 4, UpdatedAt: at(9), UploadDate: at(0)},
	}
	sortByTieBreak(rows)

	got := make([]uint64, len(rows))
	for i, r := range rows {
		got[i] = r.RowID
	}
	assert.Equal(t, []uint64{4, 2, 1, 3}, got)
}

func TestDuplicateResolver_MergeReassignsOrdersAndDeletesLosers(t *testing.T) {
	env := newTestEnv(t)
	resolver := newTestResolver(env)
	ctx := context.Background()

	winner := env.seedProduct(t, models.Product{ID: "win", ItemCode: "A", Supplier: "Acme"})
	loser := env.seedProduct(t, models.Product{ID: "lose", ItemCode: "A", Supplier: "Acme"})
	legacy := env.seedProduct(t, models.Product{ItemCode: "A", Supplier: "Acme"})
	bystander := env.seedProduct(t, models.Product{ID: "keep", ItemCode: "Z", Supplier: "Acme"})

	byCustomID := env.seedOrder(t, models.SpecialOrder{ProductID: loser.ID, Supplier: "Acme"})
	byRowID := env.seedOrder(t, models.SpecialOrder{ProductID: rowIDString(legacy), Supplier: "Acme"})
	untouched := env.seedOrder(t, models.SpecialOrder{ProductID: bystander.ID, Supplier: "Acme"})

	result := resolver.Merge(ctx, []models.MergeGroup{{
		WinnerID: winner.ID,
		LoserIDs: []string{loser.ID, rowIDString(legacy)},
	}})
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 2, result.Deleted)
	assert.Equal(t, 2, result.OrdersReassigned)
	assert.Empty(t, result.FailedGroups)
	assert.False(t, result.PartialSuccess)

	for _, id := range []string{byCustomID.ID, byRowID.ID} {
		o, err := env.orders.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, winner.ID, o.ProductID)
	}
	o, err := env.orders.GetByID(ctx, untouched.ID)
	require.NoError(t, err)
	assert.Equal(t, bystander.ID, o.ProductID)

	rows := env.supplierRows(t, "Acme")
	require.Len(t, rows, 2)
	assert.Equal(t, winner.RowID, rows[0].RowID)
	assert.Equal(t, bystander.RowID, rows[1].RowID)

	groups, err := resolver.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
	assert.Equal(t, 1, env.events.count("merged"))
}

func TestDuplicateResolver_MergeIgnoresWinnerAmongLosers(t *testing.T) {
	env := newTestEnv(t)
	winner := env.seedProduct(t, models.Product{ID: "win", ItemCode: "A", Supplier: "Acme"})
	loser := env.seedProduct(t, models.Product{ID: "lose", ItemCode: "A", Supplier: "Acme"})

	result := newTestResolver(env).Merge(context.Background(), []models.MergeGroup{{
		WinnerID: winner.ID,
		LoserIDs: []string{winner.ID, rowIDString(winner), loser.ID},
	}})
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Deleted)

	rows := env.supplierRows(t, "Acme")
	require.Len(t, rows, 1)
	assert.Equal(t, winner.RowID, rows[0].RowID)
}

func TestDuplicateResolver_MergeResolvesWinnerByRowID(t *testing.T) {
	env := newTestEnv(t)
	winner := env.seedProduct(t, models.Product{ItemCode: "A", Supplier: "Acme"})
	loser := env.seedProduct(t, models.Product{ID: "lose", ItemCode: "A", Supplier: "Acme"})
	order := env.seedOrder(t, models.SpecialOrder{ProductID: loser.ID})

	result := newTestResolver(env).Merge(context.Background(), []models.MergeGroup{{
		WinnerID: rowIDString(winner),
		LoserIDs: []string{loser.ID},
	}})
	assert.Equal(t, 1, result.Merged)

	o, err := env.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, rowIDString(winner), o.ProductID)
}

func TestDuplicateResolver_MergeContinuesAfterFailedGroup(t *testing.T) {
	env := newTestEnv(t)
	winner := env.seedProduct(t, models.Product{ID: "win", ItemCode: "A", Supplier: "Acme"})
	loser := env.seedProduct(t, models.Product{ID: "lose", ItemCode: "A", Supplier: "Acme"})
	orphan := env.seedProduct(t, models.Product{ID: "orphan", ItemCode: "B", Supplier: "Acme"})

	result := newTestResolver(env).Merge(context.Background(), []models.MergeGroup{
		{WinnerID: "does-not-exist", LoserIDs: []string{orphan.ID}},
		{WinnerID: winner.ID, LoserIDs: []string{loser.ID}},
		{WinnerID: " "},
	})

	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Deleted)
	assert.True(t, result.PartialSuccess)
	require.Len(t, result.FailedGroups, 2)
	assert.Equal(t, 0, result.FailedGroups[0].GroupIndex)
	assert.Equal(t, "does-not-exist", result.FailedGroups[0].WinnerID)
	assert.Equal(t, MergeErrWinnerNotFound, result.FailedGroups[0].Code)
	assert.Equal(t, 2, result.FailedGroups[1].GroupIndex)
	assert.Equal(t, MergeErrInvalidGroup, result.FailedGroups[1].Code)

	// The failed group wrote nothing.
	rows := env.supplierRows(t, "Acme")
	ids := make([]string, 0, len(rows))
	for _, p := range rows {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"win", "orphan"}, ids)
}

func TestDuplicateResolver_MergeStorageFailuresThenReplay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w1 := env.seedProduct(t, models.Product{ID: "w1", ItemCode: "A", Supplier: "Acme"})
	l1 := env.seedProduct(t, models.Product{ID: "l1", ItemCode: "A", Supplier: "Acme"})
	w2 := env.seedProduct(t, models.Product{ID: "w2", ItemCode: "B", Supplier: "Acme"})
	l2 := env.seedProduct(t, models.Product{ID: "l2", ItemCode: "B", Supplier: "Acme"})
	w3 := env.seedProduct(t, models.Product{ID: "w3", ItemCode: "C", Supplier: "Acme"})
	l3 := env.seedProduct(t, models.Product{ID: "l3", ItemCode: "C", Supplier: "Acme"})
	o1 := env.seedOrder(t, models.SpecialOrder{ProductID: l1.ID, Supplier: "Acme"})
	o2 := env.seedOrder(t, models.SpecialOrder{ProductID: l2.ID, Supplier: "Acme"})

	products, orders := env.faulty()
	orders.reassign = func(toID string) error {
		if toID == w1.ID {
			return errStorage
		}
		return nil
	}
	products.deleteByRefs = func(keepRowID uint64) error {
		if keepRowID == w2.RowID {
			return errStorage
		}
		return nil
	}
	resolver := NewDuplicateResolver(products, orders, env.events, env.logger)

	groups := []models.MergeGroup{
		{WinnerID: w1.ID, LoserIDs: []string{l1.ID}},
		{WinnerID: w2.ID, LoserIDs: []string{l2.ID}},
		{WinnerID: w3.ID, LoserIDs: []string{l3.ID}},
	}
	result := resolver.Merge(ctx, groups)

	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Deleted)
	assert.True(t, result.PartialSuccess)
	require.Len(t, result.FailedGroups, 2)
	assert.Equal(t, 0, result.FailedGroups[0].GroupIndex)
	assert.Equal(t, MergeErrReassignFailed, result.FailedGroups[0].Code)
	assert.Equal(t, 1, result.FailedGroups[1].GroupIndex)
	assert.Equal(t, MergeErrDeleteFailed, result.FailedGroups[1].Code)

	// Group 1 wrote nothing; group 2 moved its orders but kept the loser.
	o, err := env.orders.GetByID(ctx, o1.ID)
	require.NoError(t, err)
	assert.Equal(t, l1.ID, o.ProductID)
	o, err = env.orders.GetByID(ctx, o2.ID)
	require.NoError(t, err)
	assert.Equal(t, w2.ID, o.ProductID)
	assert.Len(t, env.supplierRows(t, "Acme"), 5)

	orders.reassign = nil
	products.deleteByRefs = nil
	replay := resolver.Merge(ctx, groups[:2])

	assert.Equal(t, 2, replay.Merged)
	assert.Equal(t, 2, replay.Deleted)
	assert.Equal(t, 1, replay.OrdersReassigned)
	assert.Empty(t, replay.FailedGroups)
	assert.False(t, replay.PartialSuccess)

	for _, id := range []string{o1.ID, o2.ID} {
		o, err := env.orders.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Contains(t, []string{w1.ID, w2.ID}, o.ProductID)
	}
	remaining, err := resolver.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Len(t, env.supplierRows(t, "Acme"), 3)
}

func TestDuplicateResolver_MergeAllGroupsFailed(t *testing.T) {
	env := newTestEnv(t)
	winner := env.seedProduct(t, models.Product{ID: "win", ItemCode: "A", Supplier: "Acme"})
	loser := env.seedProduct(t, models.Product{ID: "lose", ItemCode: "A", Supplier: "Acme"})

	products, orders := env.faulty()
	products.deleteByRefs = func(uint64) error { return errStorage }
	result := NewDuplicateResolver(products, orders, env.events, env.logger).Merge(context.Background(), []models.MergeGroup{
		{WinnerID: winner.ID, LoserIDs: []string{loser.ID}},
	})

	assert.Equal(t, 0, result.Merged)
	assert.False(t, result.PartialSuccess)
	require.Len(t, result.FailedGroups, 1)
	assert.Equal(t, MergeErrDeleteFailed, result.FailedGroups[0].Code)
	assert.Contains(t, result.FailedGroups[0].Message, errStorage.Error())
}

func TestDuplicateResolver_MergeRowIDWinnerKeepsPublicID(t *testing.T) {
	env := newTestEnv(t)
	winner := env.seedProduct(t, models.Product{ID: "win", ItemCode: "A", Supplier: "Acme"})
	loser := env.seedProduct(t, models.Product{ID: "lose", ItemCode: "A", Supplier: "Acme"})
	order := env.seedOrder(t, models.SpecialOrder{ProductID: loser.ID})

	result := newTestResolver(env).Merge(context.Background(), []models.MergeGroup{{
		WinnerID: rowIDString(winner),
		LoserIDs: []string{loser.ID},
	}})
	assert.Equal(t, 1, result.Merged)

	o, err := env.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "win", o.ProductID, "orders follow the winner's public id, not the key it was addressed by")
}

func TestDuplicateResolver_MergeWithoutLosers(t *testing.T) {
	env := newTestEnv(t)
	winner := env.seedProduct(t, models.Product{ID: "win", ItemCode: "A", Supplier: "Acme"})

	result := newTestResolver(env).Merge(context.Background(), []models.MergeGroup{{WinnerID: winner.ID}})
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 0, result.Deleted)
	assert.False(t, result.PartialSuccess)
}

func TestDuplicateResolver_AutoMergeKeepsDefaultWinner(t *testing.T) {
	env := newTestEnv(t)
	resolver := newTestResolver(env)
	ctx := context.Background()

	env.seedProduct(t, models.Product{ID: "old", ItemCode: "A", Supplier: "Acme", UpdatedAt: at(0)})
	fresh := env.seedProduct(t, models.Product{ID: "fresh", ItemCode: "A", Supplier: "Acme", UpdatedAt: at(60)})
	env.seedOrder(t, models.SpecialOrder{ProductID: "old", Supplier: "Acme"})

	result, err := resolver.AutoMerge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.OrdersReassigned)

	rows := env.supplierRows(t, "Acme")
	require.Len(t, rows, 1)
	assert.Equal(t, fresh.RowID, rows[0].RowID)

	again, err := resolver.AutoMerge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Merged)
}

func TestPlanAutoMerge_SharedCustomIDUsesRowIDs(t *testing.T) {
	groups := []models.DuplicateGroup{{
		ItemCode: "A",
		Supplier: "Acme",
		Members: []models.DuplicateMember{
			{ID: "copied", RowID: 7},
			{ID: "copied", RowID: 3},
			{ID: "unique", RowID: 9},
		},
	}}

	plan := PlanAutoMerge(groups)
	require.Len(t, plan, 1)
	assert.Equal(t, "7", plan[0].WinnerID)
	assert.Equal(t, []string{"3", "unique"}, plan[0].LoserIDs)
}
