// Package sqlite persists reconstructed events and their tracks in a
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/tpctrack/internal/tpc"
	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
	"github.com/banshee-data/tpctrack/internal/tpc/l6session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a track database.
type Store struct {
	*sql.DB
}

// Open opens or creates the database at path and migrates it to the
// latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps the per-connection pragmas in force.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// MigrateUp runs all pending migrations up to the latest version.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// Closing m would close the underlying connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version and dirty state.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := msqlite.WithInstance(s.DB, &msqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

// migrateLogger routes migrate output to the ops stream.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) { tpc.Opsf("[migrate] "+format, v...) }
func (migrateLogger) Verbose() bool                          { return false }

// SaveEvent stores the event summary and every accepted track of res in
// one transaction. Saving the same event twice replaces it.
func (s *Store) SaveEvent(ctx context.Context, eventID string, res *l6session.Result) error {
	metrics, err := json.Marshal(res.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM tpc_track_clusters WHERE track_id IN (SELECT track_id FROM tpc_tracks WHERE event_id = ?)`,
		`DELETE FROM tpc_tracks WHERE event_id = ?`,
		`DELETE FROM tpc_events WHERE event_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, eventID); err != nil {
			return fmt.Errorf("failed to replace event %s: %w", eventID, err)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tpc_events (event_id, clusters, accepted, fingerprint, metrics_json, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		eventID, res.Metrics.Clusters, len(res.Tracks),
		strconv.FormatUint(l6session.Fingerprint(res.Tracks), 16), string(metrics),
		float64(res.Elapsed.Microseconds())/1000,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", eventID, err)
	}

	trackStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tpc_tracks (
			track_id, event_id, seed, n_clusters, rows_traversed, chi2, refit_chi2, dedx,
			label, fake, n_wrong, early_stop, x, alpha, y, z, snp, tgl, curvature, covariance_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer trackStmt.Close()
	refStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tpc_track_clusters (track_id, global_row, cluster_id) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer refStmt.Close()

	for i := range res.Tracks {
		t := &res.Tracks[i]
		cov, err := json.Marshal(t.Outer.C)
		if err != nil {
			return err
		}
		p := t.Outer
		_, err = trackStmt.ExecContext(ctx,
			t.ID, eventID, t.Seed, t.NClusters, t.RowsTraversed, t.Chi2, t.RefitChi2, t.DEdx,
			t.Label, t.Fake, t.NWrongAssoc, t.EarlyStop,
			p.X, p.Alpha, p.Y(), p.Z(), p.Snp(), p.Tgl(), p.Curvature(), string(cov),
		)
		if err != nil {
			return fmt.Errorf("failed to insert track %s: %w", t.ID, err)
		}
		for row, id := range t.Refs {
			if id == l1clusters.NoCluster {
				continue
			}
			if _, err := refStmt.ExecContext(ctx, t.ID, row, int64(id)); err != nil {
				return fmt.Errorf("failed to insert cluster ref of %s: %w", t.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	tpc.Diagf("store: saved event %s with %d tracks", eventID, len(res.Tracks))
	return nil
}

// Event is a stored event summary.
type Event struct {
	EventID     string
	Clusters    int
	Accepted    int
	Fingerprint uint64
	Metrics     l6session.Metrics
	ElapsedMs   float64
}

// Events returns every stored event in insertion order.
func (s *Store) Events(ctx context.Context) ([]Event, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT event_id, clusters, accepted, fingerprint, metrics_json, elapsed_ms
		FROM tpc_events ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var fp, metrics string
		if err := rows.Scan(&e.EventID, &e.Clusters, &e.Accepted, &fp, &metrics, &e.ElapsedMs); err != nil {
			return nil, err
		}
		if e.Fingerprint, err = strconv.ParseUint(fp, 16, 64); err != nil {
			return nil, fmt.Errorf("event %s: bad fingerprint %q: %w", e.EventID, fp, err)
		}
		if err := json.Unmarshal([]byte(metrics), &e.Metrics); err != nil {
			return nil, fmt.Errorf("event %s: bad metrics: %w", e.EventID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Track is a stored track with its refitted outer state.
type Track struct {
	ID            string
	Seed          int
	NClusters     int
	RowsTraversed int
	Chi2          float64
	RefitChi2     float64
	DEdx          float64
	Label         int
	Fake          bool
	NWrongAssoc   int
	EarlyStop     bool
	X, Alpha      float64
	P             [5]float64
	Covariance    [15]float64
	Refs          map[int]l1clusters.ID // global row to cluster
}

// Tracks returns the tracks of eventID in seed priority order.
func (s *Store) Tracks(ctx context.Context, eventID string) ([]Track, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT track_id, seed, n_clusters, rows_traversed, chi2, refit_chi2, dedx, label, fake,
		       n_wrong, early_stop, x, alpha, y, z, snp, tgl, curvature, covariance_json
		FROM tpc_tracks WHERE event_id = ? ORDER BY rowid`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Track
	for rows.Next() {
		var t Track
		var cov string
		if err := rows.Scan(&t.ID, &t.Seed, &t.NClusters, &t.RowsTraversed, &t.Chi2, &t.RefitChi2,
			&t.DEdx, &t.Label, &t.Fake, &t.NWrongAssoc, &t.EarlyStop, &t.X, &t.Alpha,
			&t.P[0], &t.P[1], &t.P[2], &t.P[3], &t.P[4], &cov); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cov), &t.Covariance); err != nil {
			return nil, fmt.Errorf("track %s: bad covariance: %w", t.ID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Refs, err = s.refs(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) refs(ctx context.Context, trackID string) (map[int]l1clusters.ID, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT global_row, cluster_id FROM tpc_track_clusters WHERE track_id = ?`, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int]l1clusters.ID)
	for rows.Next() {
		var row int
		var id int64
		if err := rows.Scan(&row, &id); err != nil {
			return nil, err
		}
		out[row] = l1clusters.ID(id)
	}
	return out, rows.Err()
}
