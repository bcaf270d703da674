package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallter/wallter/internal/domain"
)

func TestEvictNoopWithoutBounds(t *testing.T) {
	store := openTestStore(t, Options{})
	putBytes(t, store, "a", []byte("aaa"))

	n, err := store.Evict(EvictPolicy{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEvictRemovesLeastRecentlySet(t *testing.T) {
	store := openTestStore(t, Options{})

	a := putBytes(t, store, "a", []byte("aaa"))
	b := putBytes(t, store, "b", []byte("bbb"))
	c := putBytes(t, store, "c", []byte("ccc"))

	now := time.Now().UTC()
	require.NoError(t, store.MarkSet(a.ID, now.Add(-time.Hour)))
	require.NoError(t, store.MarkSet(b.ID, now))
	// c never set: it goes first

	n, err := store.Evict(EvictPolicy{MaxEntries: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := store.List(FilterAll)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].ID, "most recently set record survives")

	_, err = store.Get(c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoFileExists(t, a.Path)
	assert.NoFileExists(t, c.Path)
}

func TestEvictNeverTouchesFavorites(t *testing.T) {
	store := openTestStore(t, Options{})

	fav := putBytes(t, store, "fav", []byte("fav bytes"))
	putBytes(t, store, "plain", []byte("plain bytes"))
	require.NoError(t, store.MarkFavorite(fav.ID, true))

	n, err := store.Evict(EvictPolicy{MaxEntries: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Get(fav.ID)
	require.NoError(t, err)
	assert.True(t, got.Favorite)
	assert.FileExists(t, got.Path)
}

func TestEvictNeverTouchesLocalFiles(t *testing.T) {
	localDir := t.TempDir()
	store := openTestStore(t, Options{})

	writeTestImage(t, localDir, "mine.jpg", []byte("local image"))
	merged, err := store.MergeLocalDir(localDir)
	require.NoError(t, err)
	require.Equal(t, 1, merged)

	putBytes(t, store, "dl", []byte("downloaded"))

	// bound of 1 forces eviction, but only the download is eligible
	n, err := store.Evict(EvictPolicy{MaxEntries: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := store.List(FilterAll)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.OriginLocal, records[0].Origin)
	assert.FileExists(t, records[0].Path)
}

func TestEvictByteBound(t *testing.T) {
	store := openTestStore(t, Options{})

	a := putBytes(t, store, "a", make([]byte, 100))
	b := putBytes(t, store, "b", append(make([]byte, 100), 1))
	_ = a

	now := time.Now().UTC()
	require.NoError(t, store.MarkSet(b.ID, now))

	n, err := store.Evict(EvictPolicy{MaxBytes: 150})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := store.List(FilterAll)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].ID)
}
