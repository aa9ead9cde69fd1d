package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tpctrack/internal/testutil"
	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
	"github.com/banshee-data/tpctrack/internal/tpc/l2geometry"
	"github.com/banshee-data/tpctrack/internal/tpc/l6session"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func reconstruct(t *testing.T, event string) *l6session.Result {
	t.Helper()
	geom := testutil.SmallGeometry()
	gen := testutil.NewGenerator(geom)
	helices := []testutil.Helix{
		{Phi0: 0.4, Tgl: 0.2, Label: 1},
		{Phi0: 2.1, Curvature: 1.0 / 900, Label: 2},
	}
	s := l6session.New(l6session.DefaultConfig(), geom, event)
	s.Material = l2geometry.Vacuum{}
	res, err := s.Run(context.Background(), l1clusters.SliceSupply(gen.Clusters(helices, testutil.Options{})))
	require.NoError(t, err)
	require.Len(t, res.Tracks, 2)
	return res
}

func TestOpenMigrates(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	var journal string
	require.NoError(t, s.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	// Migrating an up-to-date database is a no-op.
	assert.NoError(t, s.MigrateUp())
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)
	res := reconstruct(t, "evt-1")
	require.NoError(t, s.SaveEvent(ctx, "evt-1", res))

	events, err := s.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].EventID)
	assert.Equal(t, 2, events[0].Accepted)
	assert.Equal(t, l6session.Fingerprint(res.Tracks), events[0].Fingerprint)
	assert.Equal(t, res.Metrics, events[0].Metrics)

	tracks, err := s.Tracks(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	for i, got := range tracks {
		want := res.Tracks[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.NClusters, got.NClusters)
		assert.Equal(t, want.Label, got.Label)
		assert.Equal(t, want.Outer.P, got.P)
		assert.Equal(t, [15]float64(want.Outer.C), got.Covariance)
		assert.Len(t, got.Refs, want.NClusters)
		for row, id := range got.Refs {
			assert.Equal(t, want.Refs[row], id)
		}
	}
}

func TestSaveReplacesEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t)
	res := reconstruct(t, "evt-2")
	require.NoError(t, s.SaveEvent(ctx, "evt-2", res))
	require.NoError(t, s.SaveEvent(ctx, "evt-2", res))

	events, err := s.Events(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	tracks, err := s.Tracks(ctx, "evt-2")
	require.NoError(t, err)
	assert.Len(t, tracks, 2)

	none, err := s.Tracks(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}
