package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemoryStore_SetGetUpdateRemove(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id := s.NewKey("products")
	require.NoError(t, s.Set(ctx, "products", id, map[string]any{"productName": "Runner", "productPrice": 10.5}))

	doc, err := s.Get(ctx, "products", id)
	require.NoError(t, err)
	assert.Equal(t, "Runner", doc.Data["productName"])

	require.NoError(t, s.Update(ctx, "products", id, map[string]any{"productPrice": 12.0}))
	doc, err = s.Get(ctx, "products", id)
	require.NoError(t, err)
	assert.Equal(t, "Runner", doc.Data["productName"])
	assert.Equal(t, 12.0, doc.Data["productPrice"])

	require.NoError(t, s.Remove(ctx, "products", id))
	_, err = s.Get(ctx, "products", id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	s := NewMemoryStore()
	err := s.Update(context.Background(), "cart", "nope", map[string]any{"quantity": 2})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_KeysAreOrdered(t *testing.T) {
	s := NewMemoryStore()
	a := s.NewKey("cart")
	b := s.NewKey("cart")
	assert.Less(t, a, b)
}

func TestMemoryStore_FindFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "cart", "a", map[string]any{"userId": "u1", "productId": "p1"}))
	require.NoError(t, s.Set(ctx, "cart", "b", map[string]any{"userId": "u2", "productId": "p1"}))
	require.NoError(t, s.Set(ctx, "cart", "c", map[string]any{"userId": "u1", "productId": "p2"}))

	docs, err := s.Find(ctx, "cart", Eq("userId", "u1"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "c", docs[1].ID)

	docs, err = s.Find(ctx, "cart", Eq("userId", "u1"), Eq("productId", "p1"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)
}

func TestMemoryStore_FailOn(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	s.FailOn(OpSet, boom)
	assert.ErrorIs(t, s.Set(ctx, "x", "1", nil), boom)
	assert.Equal(t, 1, s.Calls(OpSet))

	s.FailOn(OpSet, nil)
	assert.NoError(t, s.Set(ctx, "x", "1", nil))
	assert.Equal(t, 2, s.Calls(OpSet))
}

func TestMemoryStore_WatchDeliversInitialAndChanges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var mu sync.Mutex
	var seen [][]Doc
	sub := s.Watch(ctx, "cart", func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, snap.Docs)
	}, Eq("userId", "u1"))

	latest := func() []Doc {
		mu.Lock()
		defer mu.Unlock()
		if len(seen) == 0 {
			return nil
		}
		return seen[len(seen)-1]
	}

	require.Eventually(t, func() bool { mu.Lock(); defer mu.Unlock(); return len(seen) >= 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, latest())

	require.NoError(t, s.Set(ctx, "cart", "a", map[string]any{"userId": "u1"}))
	require.Eventually(t, func() bool { return len(latest()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	mu.Lock()
	n := len(seen)
	mu.Unlock()
	require.NoError(t, s.Set(ctx, "cart", "b", map[string]any{"userId": "u1"}))
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, n, len(seen))
	mu.Unlock()
}

func TestMemoryStore_WatchDocMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	got := make(chan DocSnapshot, 4)
	sub := s.WatchDoc(ctx, "products", "p1", func(snap DocSnapshot) { got <- snap })
	defer sub.Close()

	snap := <-got
	assert.NoError(t, snap.Err)
	assert.Nil(t, snap.Doc)

	require.NoError(t, s.Set(ctx, "products", "p1", map[string]any{"productName": "A"}))
	snap = <-got
	require.NotNil(t, snap.Doc)
	assert.Equal(t, "A", snap.Doc.Data["productName"])
}

func TestMemoryStore_RunTx(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "cart", "a", map[string]any{"quantity": 1}))

	t.Run("commits writes", func(t *testing.T) {
		err := s.RunTx(ctx, func(ctx context.Context, tx Tx) error {
			if _, err := tx.Get("cart", "a"); err != nil {
				return err
			}
			return tx.Update("cart", "a", map[string]any{"quantity": 3})
		})
		require.NoError(t, err)
		doc, _ := s.Get(ctx, "cart", "a")
		assert.Equal(t, 3, doc.Data["quantity"])
	})

	t.Run("discards writes on error", func(t *testing.T) {
		err := s.RunTx(ctx, func(ctx context.Context, tx Tx) error {
			_ = tx.Remove("cart", "a")
			return errors.New("abort")
		})
		require.Error(t, err)
		assert.Equal(t, 1, s.Len("cart"))
	})

	t.Run("rejects read after write", func(t *testing.T) {
		err := s.RunTx(ctx, func(ctx context.Context, tx Tx) error {
			_ = tx.Update("cart", "a", map[string]any{"quantity": 4})
			_, err := tx.Find("cart")
			return err
		})
		assert.ErrorIs(t, err, ErrReadAfterWrite)
	})
}
