package feedcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Second), mr
}

func sampleEntries(itemIDs ...string) []Entry {
	entries := make([]Entry, 0, len(itemIDs))
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range itemIDs {
		entries = append(entries, Entry{
			ID:          EntryID("memorial:m1", id),
			PublishedAt: at.Add(-time.Duration(i) * time.Hour),
			Reasons:     []string{ReasonRecentPost},
			Item:        ItemSnapshot{ID: id, AuthorID: "u1"},
		})
	}
	return entries
}

func TestStoreRoundTrip(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	in := sampleEntries("a", "b")
	require.NoError(t, store.Set(ctx, "feed:memorial:m1", in, time.Minute))

	out, hit, err := store.Get(ctx, "feed:memorial:m1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, out, 2)
	require.Equal(t, in[0].ID, out[0].ID)
	require.Equal(t, in[0].Item.ID, out[0].Item.ID)
	// timestamps survive serialization to the instant
	require.True(t, in[0].PublishedAt.Equal(out[0].PublishedAt))
}

func TestStoreMiss(t *testing.T) {
	store, _ := setupStore(t)
	_, hit, err := store.Get(context.Background(), "feed:memorial:absent")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestStoreSetEmptyDeletes(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "feed:memorial:m1", sampleEntries("a"), time.Minute))
	require.True(t, mr.Exists("feed:memorial:m1"))

	// an empty cached feed is never stored, it reads as a miss
	require.NoError(t, store.Set(ctx, "feed:memorial:m1", nil, time.Minute))
	require.False(t, mr.Exists("feed:memorial:m1"))

	_, hit, err := store.Get(ctx, "feed:memorial:m1")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestStoreTTLExpiry(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "feed:global", sampleEntries("a"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, hit, err := store.Get(ctx, "feed:global")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestStoreCorruptValueIsMiss(t *testing.T) {
	store, mr := setupStore(t)
	require.NoError(t, mr.Set("feed:global", "{nonsense"))

	_, hit, err := store.Get(context.Background(), "feed:global")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestEntryIDDeterministic(t *testing.T) {
	require.Equal(t, EntryID("memorial:m1", "item-1"), EntryID("memorial:m1", "item-1"))
	require.NotEqual(t, EntryID("memorial:m1", "item-1"), EntryID("memorial:m2", "item-1"))
	require.NotEqual(t, EntryID("memorial:m1", "item-1"), EntryID("memorial:m1", "item-2"))
	require.Len(t, EntryID("memorial:m1", "item-1"), 16)
}
