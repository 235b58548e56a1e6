package backup

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedArchives stores count empty archives for the instance with ascending
// timestamps, oldest first, and returns their keys.
func seedArchives(t *testing.T, store Store, id string, count int) []string {
	t.Helper()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	keys := make([]string, 0, count)
	for i := 0; i < count; i++ {
		key := archiveKey(id, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.Put(ctx, key, strings.NewReader("archive")))
		keys = append(keys, key)
	}
	return keys
}

func TestPruner_SweepKeepsNewest(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	crowded := seedArchives(t, store, "crowded", 5)
	sparse := seedArchives(t, store, "sparse", 2)

	pruner := NewPruner(NewService(store), PrunerConfig{Keep: 3})
	deleted, err := pruner.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	remaining, err := store.List(ctx, "crowded/")
	require.NoError(t, err)
	require.Len(t, remaining, 3)
	// The two oldest archives are gone; the newest three survive.
	for i, entry := range remaining {
		assert.Equal(t, crowded[i+2], entry.Key)
	}

	untouched, err := store.List(ctx, "sparse/")
	require.NoError(t, err)
	require.Len(t, untouched, 2)
	assert.Equal(t, sparse[0], untouched[0].Key)
}

func TestPruner_SweepEmptyStore(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	pruner := NewPruner(NewService(store), PrunerConfig{Keep: 3})
	deleted, err := pruner.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestPruner_DryRun(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	seedArchives(t, store, "inst", 4)

	pruner := NewPruner(NewService(store), PrunerConfig{Keep: 1, DryRun: true})
	deleted, err := pruner.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted, "dry run reports what a real sweep would remove")

	entries, err := store.List(ctx, "inst/")
	require.NoError(t, err)
	assert.Len(t, entries, 4, "dry run must not delete anything")
}

func TestPruner_Defaults(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	pruner := NewPruner(NewService(store), PrunerConfig{})
	assert.Equal(t, 10, pruner.config.Keep)
	assert.Equal(t, 24*time.Hour, pruner.config.Interval)
}

func TestPruner_StartStop(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	pruner := NewPruner(NewService(store), PrunerConfig{Keep: 3, Interval: time.Hour})
	pruner.Start()
	pruner.Start() // second call is a no-op

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pruner.Stop(ctx))
	require.NoError(t, pruner.Stop(ctx), "Stop is idempotent")
}

func TestPruner_StopWithoutStart(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	pruner := NewPruner(NewService(store), PrunerConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, pruner.Stop(ctx))
}

func TestPruner_IgnoresUnrelatedKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	// A key without an instance prefix is not an archive the pruner owns.
	require.NoError(t, store.Put(ctx, "stray.tar.gz", strings.NewReader("x")))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Put(ctx,
			fmt.Sprintf("inst/2026030%dT000000Z.tar.gz", i+1), strings.NewReader("x")))
	}

	pruner := NewPruner(NewService(store), PrunerConfig{Keep: 1})
	deleted, err := pruner.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	stray, err := store.List(ctx, "stray")
	require.NoError(t, err)
	assert.Len(t, stray, 1)
}
