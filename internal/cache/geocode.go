// Package cache provides a local SQLite cache for geocoding results, so
// repeated solves against the same facilities skip the remote geocoder.
// Non-matches are cached too.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/drivetime-cli/pkg/gis"
)

// GeocodeCache stores geocode results keyed by a hash of the normalized
// query. Candidate attributes are not cached, only the coordinate, matched
// address, and score.
type GeocodeCache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path and runs migrations.
func Open(path string) (*GeocodeCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}

	c := &GeocodeCache{db: db}
	if err := c.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	query_hash TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	matched    INTEGER NOT NULL,
	address    TEXT,
	x          REAL,
	y          REAL,
	score      REAL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_cached_at ON geocode_cache(cached_at);
`

func (c *GeocodeCache) migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "cache: migrate")
}

// Close closes the underlying database.
func (c *GeocodeCache) Close() error {
	return c.db.Close()
}

// key returns the SHA-256 hex of the normalized query.
func key(query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// Lookup returns the cached candidate for a query, if present and fresh.
// A cached non-match returns (nil, true, nil) so the caller can surface a
// no-match without a network round trip. ttl <= 0 disables expiry.
func (c *GeocodeCache) Lookup(ctx context.Context, query string, ttl time.Duration) (*gis.Candidate, bool, error) {
	q := `SELECT matched, address, x, y, score, cached_at FROM geocode_cache WHERE query_hash = ?`

	var matched bool
	var address sql.NullString
	var x, y, score sql.NullFloat64
	var cachedAt time.Time

	row := c.db.QueryRowContext(ctx, q, key(query))
	if err := row.Scan(&matched, &address, &x, &y, &score, &cachedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "cache: lookup")
	}

	if ttl > 0 && time.Since(cachedAt) > ttl {
		return nil, false, nil
	}

	zap.L().Debug("geocode cache hit", zap.String("query", query), zap.Bool("matched", matched))

	if !matched {
		return nil, true, nil
	}

	cand := &gis.Candidate{
		Address: address.String,
		Score:   score.Float64,
	}
	cand.Location.X = x.Float64
	cand.Location.Y = y.Float64
	return cand, true, nil
}

// Store caches a geocode result. A nil candidate records a non-match.
func (c *GeocodeCache) Store(ctx context.Context, query string, cand *gis.Candidate) error {
	var (
		matched bool
		address any
		x, y    any
		score   any
	)
	if cand != nil {
		matched = true
		address = cand.Address
		x = cand.Location.X
		y = cand.Location.Y
		score = cand.Score
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (query_hash, query, matched, address, x, y, score, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (query_hash) DO UPDATE SET
			matched = excluded.matched,
			address = excluded.address,
			x = excluded.x,
			y = excluded.y,
			score = excluded.score,
			cached_at = excluded.cached_at`,
		key(query), query, matched, address, x, y, score, time.Now().UTC(),
	)
	return eris.Wrap(err, "cache: store")
}

// Prune deletes entries older than ttl. Returns the number removed.
func (c *GeocodeCache) Prune(ctx context.Context, ttl time.Duration) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM geocode_cache WHERE cached_at < ?`,
		time.Now().UTC().Add(-ttl),
	)
	if err != nil {
		return 0, eris.Wrap(err, "cache: prune")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "cache: prune rows affected")
	}
	return n, nil
}
