package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	reflux "github.com/reflux-go/reflux"
	_ "modernc.org/sqlite"
)

// Journal implements reflux.Journal using SQLite. Handled dispatches are
// stored with monotonically increasing integer positions.
type Journal struct {
	db          *sql.DB
	cfg         *config
	logger      reflux.Logger
	metricsHook MetricsHook

	// Prepared statements
	appendStmt   *sql.Stmt
	loadStmt     *sql.Stmt
	loadToStmt   *sql.Stmt
	positionStmt *sql.Stmt
}

// Ensure Journal implements the required interface
var _ reflux.Journal = (*Journal)(nil)

// dbOpener is used to open database connections, injectable for testing
var dbOpener = sql.Open

// New creates a new Journal with the given path and options.
//
// Note: When WithAutoMigrate is enabled (the default), migrations run with
// context.Background() and are not cancellable. This ensures migrations
// complete fully to avoid leaving the database in an inconsistent state.
func New(path string, opts ...Option) (*Journal, error) {
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}

	// Validate path to prevent URI parameter injection
	if path != ":memory:" && (strings.Contains(path, "?") || strings.Contains(path, "#")) {
		return nil, errors.New("sqlite: path cannot contain '?' or '#' characters")
	}

	cfg := defaultConfig()
	cfg.path = path
	for _, opt := range opts {
		opt(cfg)
	}

	// Build connection string with pragmas
	var dsn string
	if cfg.path == ":memory:" {
		// Use shared cache mode for in-memory databases to allow multiple connections
		dsn = "file::memory:?mode=memory&cache=shared"
	} else {
		dsn = fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.path, cfg.busyTimeout.Milliseconds())
	}

	db, err := dbOpener("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	// Apply pragmas for performance
	// Errors here indicate filesystem issues (read-only, permissions)
	if err := applyPragmas(db, cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply pragmas: %w", err)
	}

	// Run migrations if enabled
	if cfg.autoMigrate {
		if err := migrate(context.Background(), db); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: migrate: %w", err)
		}
	}

	return newFromDB(db, cfg)
}

// newFromDB creates a Journal from an existing database connection
func newFromDB(db *sql.DB, cfg *config) (*Journal, error) {
	j := &Journal{
		db:          db,
		cfg:         cfg,
		logger:      cfg.logger,
		metricsHook: cfg.metricsHook,
	}

	if err := j.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: prepare statements: %w", err)
	}

	return j, nil
}

// applyPragmas configures SQLite for optimal performance
func applyPragmas(db *sql.DB, cfg *config) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout.Milliseconds()),
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("exec %q: %w", pragma, err)
		}
	}

	return nil
}

// prepareStatements prepares all SQL statements
func (j *Journal) prepareStatements() error {
	type stmtDef struct {
		dest **sql.Stmt
		sql  string
	}

	stmts := []stmtDef{
		{&j.appendStmt, "INSERT INTO dispatches (definition, tag, payload, timestamp) VALUES (?, ?, ?, ?)"},
		{&j.loadStmt, "SELECT position, definition, tag, payload, timestamp FROM dispatches WHERE position >= ? ORDER BY position"},
		{&j.loadToStmt, "SELECT position, definition, tag, payload, timestamp FROM dispatches WHERE position >= ? AND position <= ? ORDER BY position"},
		{&j.positionStmt, "SELECT COALESCE(MAX(position), 0) FROM dispatches"},
	}

	for _, def := range stmts {
		stmt, err := j.db.Prepare(def.sql)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		*def.dest = stmt
	}

	return nil
}

// Append implements reflux.Journal. The record's position is assigned by the
// database and written back into rec.
func (j *Journal) Append(ctx context.Context, rec *reflux.JournalRecord) error {
	start := time.Now()

	result, err := j.appendStmt.ExecContext(ctx, rec.Definition, rec.Tag, []byte(rec.Payload), rec.Timestamp)
	if err != nil {
		if j.metricsHook != nil {
			j.metricsHook.OnAppend(time.Since(start), err)
		}
		return fmt.Errorf("sqlite: append dispatch: %w", err)
	}

	// LastInsertId is always supported by the SQLite driver
	position, _ := result.LastInsertId()
	rec.Position = position

	if j.metricsHook != nil {
		j.metricsHook.OnAppend(time.Since(start), nil)
	}

	if j.logger != nil {
		j.logger.Debug("appended dispatch", "position", position, "definition", rec.Definition, "tag", rec.Tag)
	}

	return nil
}

// rowScanner abstracts sql.Rows for testing
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Load implements reflux.Journal.
func (j *Journal) Load(ctx context.Context, from, to int64) ([]*reflux.JournalRecord, error) {
	start := time.Now()
	var records []*reflux.JournalRecord
	var err error

	defer func() {
		if j.metricsHook != nil {
			j.metricsHook.OnLoad(time.Since(start), len(records), err)
		}
	}()

	var rows *sql.Rows
	if to == -1 {
		rows, err = j.loadStmt.QueryContext(ctx, from)
	} else {
		rows, err = j.loadToStmt.QueryContext(ctx, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load dispatches: %w", err)
	}

	records, err = j.scanRecords(rows)
	if err != nil {
		return nil, err
	}

	if j.logger != nil {
		j.logger.Debug("loaded dispatches", "from", from, "to", to, "count", len(records))
	}

	return records, nil
}

// scanRecords scans rows into journal records - extracted for testability
func (j *Journal) scanRecords(rows rowScanner) ([]*reflux.JournalRecord, error) {
	defer rows.Close()

	var records []*reflux.JournalRecord
	for rows.Next() {
		rec := &reflux.JournalRecord{}
		var payload []byte
		if err := rows.Scan(&rec.Position, &rec.Definition, &rec.Tag, &payload, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite: scan dispatch: %w", err)
		}
		rec.Payload = payload
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate dispatches: %w", err)
	}

	return records, nil
}

// Position implements reflux.Journal.
func (j *Journal) Position(ctx context.Context) (int64, error) {
	start := time.Now()

	var position int64
	err := j.positionStmt.QueryRowContext(ctx).Scan(&position)
	if j.metricsHook != nil {
		j.metricsHook.OnPosition(time.Since(start), err)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: get position: %w", err)
	}

	return position, nil
}

// Close closes the prepared statements and the database connection.
func (j *Journal) Close() error {
	stmts := []*sql.Stmt{j.appendStmt, j.loadStmt, j.loadToStmt, j.positionStmt}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return j.db.Close()
}
