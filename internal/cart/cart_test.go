package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	blazer = Product{ID: uuid.MustParse("8d3e4f1c-1111-4a7b-9c2d-000000000001"), Name: "Blazer", Price: decimal.RequireFromString("59.99")}
	socks  = Product{ID: uuid.MustParse("8d3e4f1c-1111-4a7b-9c2d-000000000002"), Name: "Socks", Price: decimal.RequireFromString("4.50")}
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newCart(t *testing.T, storage Storage) *Cart {
	t.Helper()
	c, err := New(storage, quietLogger(), nil)
	require.NoError(t, err)
	require.NoError(t, c.Load(context.Background()))
	return c
}

type failingStorage struct {
	data    []byte
	saveErr error
}

func (f *failingStorage) Load(context.Context) ([]byte, error) { return f.data, nil }
func (f *failingStorage) Save(context.Context, []byte) error  { return f.saveErr }
func (f *failingStorage) Delete(context.Context) error        { return f.saveErr }

func storedItems(t *testing.T, store *MemoryStore, session string) []Item {
	t.Helper()
	raw, ok := store.Raw(session)
	if !ok {
		return nil
	}
	var items []Item
	require.NoError(t, json.Unmarshal(raw, &items))
	return items
}

func TestAddToCartMergesMatchingLine(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, NewMemoryStore().Session("s1"))

	require.NoError(t, c.AddToCart(ctx, blazer, 1, "M", "Navy"))
	require.NoError(t, c.AddToCart(ctx, blazer, 2, " M ", "Navy"))
	require.NoError(t, c.AddToCart(ctx, blazer, 1, "L", "Navy"))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "M", items[0].Size)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Equal(t, "L", items[1].Size)
	assert.Equal(t, 4, c.Count())
}

func TestAddToCartRejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, NewMemoryStore().Session("s1"))

	err := c.AddToCart(ctx, blazer, 0, "", "")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, c.Items())
}

func TestRemoveFromCartDropsEveryVariant(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, NewMemoryStore().Session("s1"))
	require.NoError(t, c.AddToCart(ctx, blazer, 1, "M", ""))
	require.NoError(t, c.AddToCart(ctx, blazer, 1, "L", ""))
	require.NoError(t, c.AddToCart(ctx, socks, 2, "", ""))

	require.NoError(t, c.RemoveFromCart(ctx, blazer.ID))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, socks.ID, items[0].ProductID)
}

func TestRemoveLineDropsOnlyThatVariant(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, NewMemoryStore().Session("s1"))
	require.NoError(t, c.AddToCart(ctx, blazer, 1, "M", ""))
	require.NoError(t, c.AddToCart(ctx, blazer, 1, "L", ""))

	require.NoError(t, c.RemoveLine(ctx, NewKey(blazer.ID, "M", "")))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "L", items[0].Size)
}

func TestUpdateQuantityClampsToOne(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, NewMemoryStore().Session("s1"))
	require.NoError(t, c.AddToCart(ctx, blazer, 3, "M", ""))
	require.NoError(t, c.AddToCart(ctx, blazer, 2, "L", ""))
	require.NoError(t, c.AddToCart(ctx, socks, 5, "", ""))

	require.NoError(t, c.UpdateQuantity(ctx, blazer.ID, -4))
	items := c.Items()
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Equal(t, 5, items[2].Quantity)

	require.NoError(t, c.UpdateQuantity(ctx, socks.ID, 7))
	assert.Equal(t, 9, c.Count())
}

func TestTotal(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, NewMemoryStore().Session("s1"))
	assert.True(t, c.Total().IsZero())

	require.NoError(t, c.AddToCart(ctx, blazer, 2, "", ""))
	require.NoError(t, c.AddToCart(ctx, socks, 3, "", ""))
	assert.Equal(t, "133.48", c.Total().StringFixed(2))
}

func TestPersistenceMirrorsEveryCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := newCart(t, store.Session("s1"))

	require.NoError(t, c.AddToCart(ctx, socks, 2, "", ""))
	stored := storedItems(t, store, "s1")
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].Quantity)

	require.NoError(t, c.RemoveFromCart(ctx, socks.ID))
	_, ok := store.Raw("s1")
	assert.False(t, ok, "empty cart should remove the stored key")

	require.NoError(t, c.AddToCart(ctx, socks, 1, "", ""))
	require.NoError(t, c.ClearCart(ctx))
	_, ok = store.Raw("s1")
	assert.False(t, ok)
	assert.Empty(t, c.Items())

	require.NoError(t, c.ClearCart(ctx))
}

func TestLoadRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	first := newCart(t, store.Session("s1"))
	require.NoError(t, first.AddToCart(ctx, blazer, 2, "M", "Navy"))

	reopened := newCart(t, store.Session("s1"))
	assert.Equal(t, first.Items(), reopened.Items())
	assert.True(t, reopened.Total().Equal(decimal.RequireFromString("119.98")))
}

func TestSnapshotKeepsSchoolAndCategory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	oakridgeBlazer := blazer
	oakridgeBlazer.School = &Ref{ID: uuid.MustParse("5c1a7e20-2222-4a7b-9c2d-000000000001"), Name: "Oakridge Primary"}
	oakridgeBlazer.Category = &Ref{ID: uuid.MustParse("5c1a7e20-3333-4a7b-9c2d-000000000001"), Name: "Blazers"}

	first := newCart(t, store.Session("s1"))
	require.NoError(t, first.AddToCart(ctx, oakridgeBlazer, 1, "M", "Navy"))
	require.NoError(t, first.AddToCart(ctx, socks, 3, "", ""))

	raw, ok := store.Raw("s1")
	require.True(t, ok)
	assert.Contains(t, string(raw), `"school":{"id":"5c1a7e20-2222-4a7b-9c2d-000000000001","name":"Oakridge Primary"}`)

	items := newCart(t, store.Session("s1")).Items()
	require.Len(t, items, 2)
	require.NotNil(t, items[0].School)
	assert.Equal(t, "Oakridge Primary", items[0].School.Name)
	require.NotNil(t, items[0].Category)
	assert.Equal(t, oakridgeBlazer.Category.ID, items[0].Category.ID)
	assert.Nil(t, items[1].School)
	assert.Nil(t, items[1].Category)
}

func TestLoadIgnoresUnreadableSnapshot(t *testing.T) {
	store := NewMemoryStore()
	store.Put("s1", []byte("{not json"))
	var buf bytes.Buffer
	c, err := New(store.Session("s1"), logger.New(logger.Options{ServiceName: "test", Output: &buf}), nil)
	require.NoError(t, err)

	require.NoError(t, c.Load(context.Background()))
	assert.Empty(t, c.Items())
	assert.Contains(t, buf.String(), "cart.snapshot_unreadable")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestFailedPersistLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	initial, err := json.Marshal([]Item{{ProductID: socks.ID, Name: "Socks", Price: socks.Price, Quantity: 1}})
	require.NoError(t, err)
	storage := &failingStorage{data: initial, saveErr: errors.New("redis down")}
	reg := prometheus.NewRegistry()
	c, err := New(storage, quietLogger(), metrics.NewCartMetrics(reg))
	require.NoError(t, err)
	require.NoError(t, c.Load(ctx))

	notified := 0
	c.Subscribe(func([]Item) { notified++ })

	err = c.AddToCart(ctx, blazer, 1, "", "")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	err = c.ClearCart(ctx)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	require.Len(t, c.Items(), 1)
	assert.Equal(t, 1, c.Count())
	assert.Zero(t, notified)

	families, err := reg.Gather()
	require.NoError(t, err)
	var failures float64
	for _, family := range families {
		if family.GetName() != "cart_snapshot_writes_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == "error" {
					failures += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(2), failures)
}

func TestTwoTabsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tabA := newCart(t, store.Session("shared"))
	tabB := newCart(t, store.Session("shared"))

	require.NoError(t, tabA.AddToCart(ctx, blazer, 1, "M", ""))
	require.NoError(t, tabB.AddToCart(ctx, socks, 2, "", ""))

	stored := storedItems(t, store, "shared")
	require.Len(t, stored, 1)
	assert.Equal(t, socks.ID, stored[0].ProductID)

	require.Len(t, tabA.Items(), 1)
	assert.Equal(t, blazer.ID, tabA.Items()[0].ProductID)
}

func TestSubscribeReceivesCopies(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, NewMemoryStore().Session("s1"))

	var seen [][]Item
	cancel := c.Subscribe(func(items []Item) {
		if len(items) > 0 {
			items[0].Quantity = 99
		}
		seen = append(seen, items)
	})

	require.NoError(t, c.AddToCart(ctx, socks, 1, "", ""))
	require.Len(t, seen, 1)
	assert.Equal(t, 1, c.Items()[0].Quantity)

	cancel()
	require.NoError(t, c.AddToCart(ctx, socks, 1, "", ""))
	assert.Len(t, seen, 1)
}
