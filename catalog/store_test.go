package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	tpl, err := DefaultTemplate()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "data", "grocery_list.json")
	store := NewStore(NewFile(path), tpl)
	t.Cleanup(store.Close)
	return store, path
}

func TestLoadCreatesFromTemplate(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	c, err := store.Load(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, c.LastUpdated)
	assert.Equal(t, uint64(1), store.Version())

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(bs, &raw))
	assert.Contains(t, raw, "categories")

	// second load reads the file, no extra write
	_, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), store.Version())
}

func TestLoadCorruptFileIsUnavailable(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNoTemplateIsUnavailable(t *testing.T) {
	store := NewStore(NewFile(filepath.Join(t.TempDir(), "g.json")), nil)
	defer store.Close()
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSaveStampsAndResetRestores(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	tpl, err := DefaultTemplate()
	require.NoError(t, err)
	store := NewStore(NewFile(filepath.Join(t.TempDir(), "g.json")), tpl, WithClock(func() time.Time { return now }))
	defer store.Close()
	ctx := context.Background()

	c, err := store.Load(ctx)
	require.NoError(t, err)
	c.Set("dairy_eggs", "milk", Item{Quantity: 3, MaxPerWeek: 4, Unit: "gallon", OriginalName: "Milk"})
	require.NoError(t, store.Save(ctx, c))

	c, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04T05:06:07Z", c.LastUpdated)
	milk, _ := c.Get("dairy_eggs", "milk")
	assert.Equal(t, float64(3), milk.Quantity)

	_, err = store.Reset(ctx)
	require.NoError(t, err)
	c, err = store.Load(ctx)
	require.NoError(t, err)
	tpl.Each(func(category string, key string, want Item) {
		got, ok := c.Get(category, key)
		require.True(t, ok, "%s:%s", category, key)
		assert.Equal(t, want.Quantity, got.Quantity)
	})
	assert.Equal(t, tpl.Len(), c.Len())
}

func TestReplaceRejectsMalformed(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	before, err := store.Load(ctx)
	require.NoError(t, err)
	version := store.Version()

	err = store.Replace(ctx, &Catalog{})
	require.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, version, store.Version())

	after, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Len(), after.Len())
}

func TestUpdateErrorWritesNothing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	_, err := store.Load(ctx)
	require.NoError(t, err)
	version := store.Version()

	boom := assert.AnError
	_, _, err = store.Update(ctx, func(c *Catalog) error {
		c.Set("dairy_eggs", "milk", Item{Quantity: 100})
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, version, store.Version())
	c, err := store.Load(ctx)
	require.NoError(t, err)
	milk, _ := c.Get("dairy_eggs", "milk")
	assert.Equal(t, float64(0), milk.Quantity)
}

func TestUpdateCanceledWritesNothing(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load(context.Background())
	require.NoError(t, err)
	version := store.Version()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, _, err = store.Update(ctx, func(c *Catalog) error {
		c.Set("dairy_eggs", "milk", Item{Quantity: 1, MaxPerWeek: 4, Unit: "gallon"})
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, version, store.Version())

	c, err := store.Load(context.Background())
	require.NoError(t, err)
	milk, _ := c.Get("dairy_eggs", "milk")
	assert.Equal(t, float64(0), milk.Quantity)
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.Update(ctx, func(c *Catalog) error {
				milk, _ := c.Get("dairy_eggs", "milk")
				milk.Quantity++
				c.Set("dairy_eggs", "milk", milk)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := store.Load(ctx)
	require.NoError(t, err)
	milk, _ := c.Get("dairy_eggs", "milk")
	assert.Equal(t, float64(workers), milk.Quantity)
}

func TestClosedStore(t *testing.T) {
	store, _ := newTestStore(t)
	store.Close()
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
