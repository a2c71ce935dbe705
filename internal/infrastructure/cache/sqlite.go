package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pelles/backend/internal/domain"
)

// SQLiteCache is a durable mirror of the search cache so scraped results
// survive restarts. One row per (store_id, query_normalized); products are
// stored as JSON, matching the semantics of MemoryCache.
type SQLiteCache struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the cache database at path. Pass ":memory:"
// for an in-memory database (used by tests).
func OpenSQLite(path string) (*SQLiteCache, error) {
	dsn := path
	if dsn != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating cache directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging cache database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Busy timeout so concurrent access waits briefly instead of failing.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS search_cache (
		store_id         TEXT NOT NULL,
		query_normalized TEXT NOT NULL,
		results_json     TEXT NOT NULL,
		fetched_at       DATETIME NOT NULL,
		PRIMARY KEY (store_id, query_normalized)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating search_cache table: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Close closes the underlying database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Get retrieves the cached entry for (storeID, normalizedQuery), regardless
// of its age.
func (c *SQLiteCache) Get(ctx context.Context, storeID, normalizedQuery string) (*domain.CacheEntry, error) {
	var resultsJSON string
	var fetchedAt time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT results_json, fetched_at FROM search_cache
		 WHERE store_id = ? AND query_normalized = ?`,
		storeID, normalizedQuery,
	).Scan(&resultsJSON, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(resultsJSON), &products); err != nil {
		return nil, fmt.Errorf("%w: corrupt cache entry for %s:%s: %v",
			domain.ErrInvariantViolation, storeID, normalizedQuery, err)
	}

	return &domain.CacheEntry{
		StoreID:         storeID,
		NormalizedQuery: normalizedQuery,
		Products:        products,
		FetchedAt:       fetchedAt,
	}, nil
}

// Put upserts an entry, replacing any previous snapshot for the same key.
func (c *SQLiteCache) Put(ctx context.Context, entry *domain.CacheEntry) error {
	resultsJSON, err := json.Marshal(entry.Products)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO search_cache (store_id, query_normalized, results_json, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(store_id, query_normalized) DO UPDATE SET
		   results_json = excluded.results_json,
		   fetched_at   = excluded.fetched_at`,
		entry.StoreID, entry.NormalizedQuery, string(resultsJSON), entry.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes all entries for storeID, or every entry when storeID is
// empty. Returns the number of entries removed.
func (c *SQLiteCache) Clear(ctx context.Context, storeID string) (int, error) {
	var result sql.Result
	var err error
	if storeID == "" {
		result, err = c.db.ExecContext(ctx, `DELETE FROM search_cache`)
	} else {
		result, err = c.db.ExecContext(ctx, `DELETE FROM search_cache WHERE store_id = ?`, storeID)
	}
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	return int(removed), nil
}
