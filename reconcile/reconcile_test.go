package reconcile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/smart-shop/catalog"
	"github.com/bububa/smart-shop/matcher"
	"github.com/bububa/smart-shop/receipt"
)

type mapOracle map[string]string

func (o mapOracle) Ask(_ context.Context, name string, _ []matcher.Candidate) (string, error) {
	if answer, ok := o[name]; ok {
		return answer, nil
	}
	return matcher.NewItemAnswer, nil
}

func newStore(t *testing.T) *catalog.Store {
	t.Helper()
	tpl := catalog.New()
	tpl.Set("dairy_eggs", "milk", catalog.Item{Quantity: 1, MaxPerWeek: 4, Unit: "gallon"})
	tpl.Set("produce", "bananas", catalog.Item{Quantity: 0, MaxPerWeek: 6, Unit: "count"})
	store := catalog.NewStore(catalog.NewFile(filepath.Join(t.TempDir(), "grocery_list.json")), tpl)
	t.Cleanup(store.Close)
	return store
}

func quantity(t *testing.T, store *catalog.Store, category string, key string) catalog.Item {
	t.Helper()
	c, err := store.Load(context.Background())
	require.NoError(t, err)
	item, ok := c.Get(category, key)
	require.True(t, ok, "%s:%s", category, key)
	return item
}

func TestReconcileMatchedMilk(t *testing.T) {
	store := newStore(t)
	r := New(store, matcher.New(mapOracle{"2% Milk": "dairy_eggs:milk"}))

	report, err := r.Reconcile(context.Background(), []receipt.LineItem{{Item: "2% Milk", Quantity: 2, Price: 7.98}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, Line{Item: "2% Milk", Quantity: 2, Outcome: OutcomeMatched, Category: "dairy_eggs", Key: "milk"}, report.Lines[0])
	assert.NotEmpty(t, report.LastUpdated)
	assert.Equal(t, store.Version(), report.Version)

	assert.Equal(t, float64(3), quantity(t, store, "dairy_eggs", "milk").Quantity)
}

func TestReconcileCustomItems(t *testing.T) {
	store := newStore(t)
	r := New(store, matcher.New(mapOracle{}))

	report, err := r.Reconcile(context.Background(), []receipt.LineItem{
		{Item: "Dragon Fruit", Quantity: 2},
		{Item: "Dragon Fruit", Quantity: 1},
		{Item: "Kombucha", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Merged)

	fruit := quantity(t, store, catalog.CustomCategory, "dragon_fruit")
	assert.Equal(t, float64(3), fruit.Quantity)
	assert.Equal(t, float64(4), fruit.MaxPerWeek)
	assert.Equal(t, catalog.DefaultUnit, fruit.Unit)
	assert.Equal(t, "Dragon Fruit", fruit.OriginalName)

	c, err := store.Load(context.Background())
	require.NoError(t, err)
	items, ok := c.Categories.Get(catalog.CustomCategory)
	require.True(t, ok)
	assert.Equal(t, 2, items.Len())
}

func TestReconcileUnmatchedGoesToCustom(t *testing.T) {
	store := newStore(t)
	// answer names an unknown key, treated as unmatched
	r := New(store, matcher.New(mapOracle{"Oat Milk": "dairy_eggs:oat_milk"}))
	report, err := r.Reconcile(context.Background(), []receipt.LineItem{{Item: "Oat Milk", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, report.Lines[0].Outcome)
	assert.Equal(t, float64(1), quantity(t, store, catalog.CustomCategory, "oat_milk").Quantity)
}

func TestReconcileSkips(t *testing.T) {
	store := newStore(t)
	r := New(store, matcher.New(mapOracle{}))
	report, err := r.Reconcile(context.Background(), []receipt.LineItem{
		{Item: "", Quantity: 1},
		{Item: "   ", Quantity: 1},
		{Item: "Bananas", Quantity: 0},
		{Item: "Bananas", Quantity: -2},
		{Item: "!!!", Quantity: 1},
		{Item: "Bananas", Quantity: 6},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Skipped)
	assert.Equal(t, 1, report.Matched)
	require.Len(t, report.Lines, 6)
	assert.Equal(t, OutcomeMatched, report.Lines[5].Outcome)
	assert.Equal(t, float64(6), quantity(t, store, "produce", "bananas").Quantity)
}

func TestReconcileAllSkippedWritesNothing(t *testing.T) {
	store := newStore(t)
	before, err := store.Load(context.Background())
	require.NoError(t, err)
	version := store.Version()

	r := New(store, matcher.New(mapOracle{}))
	for _, lines := range [][]receipt.LineItem{
		nil,
		{{Item: "", Quantity: 1}, {Item: "Bananas", Quantity: 0}},
	} {
		report, err := r.Reconcile(context.Background(), lines)
		require.NoError(t, err)
		assert.Equal(t, len(lines), report.Skipped)
		assert.Equal(t, version, report.Version)
		assert.Equal(t, before.LastUpdated, report.LastUpdated)
	}
	assert.Equal(t, version, store.Version())
	after, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.LastUpdated, after.LastUpdated)
}

func TestReconcileNeverDecreases(t *testing.T) {
	store := newStore(t)
	r := New(store, matcher.New(mapOracle{"Whole Milk": "dairy_eggs:milk"}))
	before, err := store.Load(context.Background())
	require.NoError(t, err)

	lines := []receipt.LineItem{
		{Item: "Whole Milk", Quantity: 1},
		{Item: "Bananas", Quantity: 3},
		{Item: "Bananas", Quantity: -10},
		{Item: "Tofu", Quantity: 1},
	}
	for i := 0; i < 2; i++ {
		_, err := r.Reconcile(context.Background(), lines)
		require.NoError(t, err)
	}
	after, err := store.Load(context.Background())
	require.NoError(t, err)
	before.Each(func(category string, key string, item catalog.Item) {
		got, ok := after.Get(category, key)
		require.True(t, ok)
		assert.GreaterOrEqual(t, got.Quantity, item.Quantity, "%s:%s", category, key)
	})
	// no receipt deduplication
	milk, _ := after.Get("dairy_eggs", "milk")
	assert.Equal(t, float64(3), milk.Quantity)
}

type resettingStore struct {
	*catalog.Store
}

// Update drops every tracked item first, as a concurrent reset to an empty template would
func (s resettingStore) Update(ctx context.Context, fn func(*catalog.Catalog) error) (*catalog.Catalog, uint64, error) {
	return s.Store.Update(ctx, func(c *catalog.Catalog) error {
		c.Categories.Delete("dairy_eggs")
		return fn(c)
	})
}

func TestReconcileDeletedKeyFallsBackToCustom(t *testing.T) {
	store := newStore(t)
	r := New(resettingStore{store}, matcher.New(mapOracle{"2% Milk": "dairy_eggs:milk"}))
	report, err := r.Reconcile(context.Background(), []receipt.LineItem{{Item: "2% Milk", Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, report.Lines[0].Outcome)
	assert.Equal(t, "2%_milk", report.Lines[0].Key)
}
