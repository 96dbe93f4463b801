package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	Name  string
	Value int
}

func setupSQLite(t *testing.T) (*SQLiteCache, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "cache", "index.db")
	c, err := NewSQLiteCache(dbPath)
	require.NoError(t, err, "Failed to create sqlite cache")

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Logf("Warning: error closing test database: %v", err)
		}
	})

	return c, dbPath
}

func implementations(t *testing.T) map[string]Cache {
	sqlite, _ := setupSQLite(t)
	return map[string]Cache{
		"sqlite": sqlite,
		"memory": NewMemoryCache(),
	}
}

func TestCacheReadWriteDelete(t *testing.T) {
	ctx := context.Background()

	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Read(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, c.Write(ctx, "key", []byte("first")))
			data, err := c.Read(ctx, "key")
			require.NoError(t, err)
			assert.Equal(t, []byte("first"), data)

			require.NoError(t, c.Write(ctx, "key", []byte("second")))
			data, err = c.Read(ctx, "key")
			require.NoError(t, err)
			assert.Equal(t, []byte("second"), data)

			require.NoError(t, c.Delete(ctx, "key"))
			_, err = c.Read(ctx, "key")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, c.Delete(ctx, "key"), "deleting a missing key")
			assert.NoError(t, c.Flush(ctx))
		})
	}
}

func TestCacheGetPut(t *testing.T) {
	ctx := context.Background()

	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			item := testItem{Name: "ItemA", Value: 10}
			require.NoError(t, Put(ctx, c, SymbolKey("file:///a.php"), item))

			got, err := Get[testItem](ctx, c, SymbolKey("file:///a.php"))
			require.NoError(t, err)
			assert.Equal(t, item, got)

			_, err = Get[testItem](ctx, c, ReferenceKey("file:///a.php"))
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, c.Write(ctx, "broken", []byte{0xc1}))
			_, err = Get[testItem](ctx, c, "broken")
			assert.Error(t, err)
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSQLiteCacheBatchAndKeys(t *testing.T) {
	ctx := context.Background()
	c, _ := setupSQLite(t)

	require.NoError(t, c.WriteBatch(ctx, map[string][]byte{
		SymbolKey("file:///a.php"):    []byte("a"),
		SymbolKey("file:///b.php"):    []byte("b"),
		ReferenceKey("file:///a.php"): []byte("ra"),
	}))
	require.NoError(t, c.WriteBatch(ctx, nil))

	keys, err := c.Keys(ctx, "symbols:")
	require.NoError(t, err)
	assert.Equal(t, []string{"symbols:file:///a.php", "symbols:file:///b.php"}, keys)

	require.NoError(t, c.Clear(ctx))
	keys, err = c.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSQLiteCachePersists(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")

	c, err := NewSQLiteCache(dbPath)
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, KnownDocumentsKey, []byte("known")))
	require.NoError(t, c.Close())

	reopened, err := NewSQLiteCache(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	data, err := reopened.Read(ctx, KnownDocumentsKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("known"), data)
}

func TestSQLiteCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c, _ := setupSQLite(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			assert.NoError(t, Put(ctx, c, key, testItem{Name: key, Value: i}))
			got, err := Get[testItem](ctx, c, key)
			assert.NoError(t, err)
			assert.Equal(t, i, got.Value)
		}(i)
	}
	wg.Wait()

	keys, err := c.Keys(ctx, "key-")
	require.NoError(t, err)
	assert.Len(t, keys, 8)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	value := []byte("abc")
	require.NoError(t, c.Write(ctx, "key", value))
	value[0] = 'x'

	data, err := c.Read(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
	assert.Equal(t, 1, c.Len())
}
