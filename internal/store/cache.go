// Package store persists verification verdicts in a local SQLite
// database, keyed by a hash of the inputs and the table set. Re-checking
// an unchanged proof is a single indexed lookup instead of a full search.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"geoverify/internal/logging"
	"geoverify/internal/verify"

	_ "modernc.org/sqlite"
)

// Cache is the SQLite-backed verdict cache. It implements
// verify.VerdictCache. Lookups and stores never fail a verification run:
// storage errors are logged and the caller proceeds uncached.
type Cache struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*Cache, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Get(logging.CategoryStore).Debug("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Get(logging.CategoryStore).Debug("failed to set journal_mode=WAL: %v", err)
	}
	// synchronous=NORMAL is safe under WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.Get(logging.CategoryStore).Debug("failed to set synchronous=NORMAL: %v", err)
	}

	c := &Cache{db: db, dbPath: path}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("verdict cache opened at %s", path)
	return c, nil
}

func (c *Cache) initialize() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS verdicts (
			key           TEXT PRIMARY KEY,
			kind          TEXT NOT NULL,
			is_valid      INTEGER NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			steps_passed  INTEGER NOT NULL DEFAULT 0,
			goal_reached  INTEGER NOT NULL DEFAULT 0,
			created_at    TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_verdicts_created ON verdicts(created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize verdict schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// GetProof returns a cached proof report.
func (c *Cache) GetProof(key string) (*verify.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var r verify.Report
	var isValid, goalReached int
	err := c.db.QueryRow(
		`SELECT is_valid, error_message, steps_passed, goal_reached FROM verdicts WHERE key = ? AND kind = 'proof'`,
		key,
	).Scan(&isValid, &r.ErrorMessage, &r.StepsPassed, &goalReached)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.Get(logging.CategoryStore).Warn("proof lookup failed: %v", err)
		}
		return nil, false
	}
	r.IsValid = isValid != 0
	r.GoalReached = goalReached != 0
	return &r, true
}

// PutProof stores a proof report.
func (c *Cache) PutProof(key string, r *verify.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO verdicts (key, kind, is_valid, error_message, steps_passed, goal_reached, created_at)
		 VALUES (?, 'proof', ?, ?, ?, ?, ?)`,
		key, boolInt(r.IsValid), r.ErrorMessage, r.StepsPassed, boolInt(r.GoalReached), time.Now().UTC(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("proof store failed: %v", err)
	}
}

// GetSolution returns a cached solution verdict.
func (c *Cache) GetSolution(key string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var isValid int
	err := c.db.QueryRow(
		`SELECT is_valid FROM verdicts WHERE key = ? AND kind = 'solution'`,
		key,
	).Scan(&isValid)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.Get(logging.CategoryStore).Warn("solution lookup failed: %v", err)
		}
		return false, false
	}
	return isValid != 0, true
}

// PutSolution stores a solution verdict.
func (c *Cache) PutSolution(key string, verdict bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO verdicts (key, kind, is_valid, created_at) VALUES (?, 'solution', ?, ?)`,
		key, boolInt(verdict), time.Now().UTC(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("solution store failed: %v", err)
	}
}

// Prune deletes verdicts older than the retention window and returns the
// number removed.
func (c *Cache) Prune(retention time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec(`DELETE FROM verdicts WHERE created_at < ?`, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune failed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Store("pruned %d stale verdicts", n)
	}
	return n, nil
}

// Stats returns the number of cached proof and solution verdicts.
func (c *Cache) Stats() (proofs, solutions int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.db.QueryRow(`SELECT COUNT(*) FROM verdicts WHERE kind = 'proof'`).Scan(&proofs)
	if err != nil {
		return 0, 0, err
	}
	err = c.db.QueryRow(`SELECT COUNT(*) FROM verdicts WHERE kind = 'solution'`).Scan(&solutions)
	return proofs, solutions, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
