// Package db implements the sensitive word store on database/sql, backed by
// SQLite (default) or PostgreSQL. Every successful mutation is reported to
// the registered change subscribers.
package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/go-ports/wordmask/internal/models"
)

// ErrDuplicate is returned when a create or update would store a word that
// already exists (exact, case-sensitive match).
var ErrDuplicate = errors.New("word already exists")

// driver names registered with database/sql.
const (
	sqliteDriver   = "sqlite3"
	postgresDriver = "postgres"
)

// DB is the word store. It is safe for concurrent use.
type DB struct {
	db     *sql.DB
	driver string
	origin string

	mu      sync.RWMutex
	nextSub int
	subs    map[int]func(models.ChangeEvent)
}

// Option customises Open.
type Option func(*DB)

// WithOrigin sets the Origin stamped on emitted change events.
func WithOrigin(origin string) Option {
	return func(d *DB) { d.origin = origin }
}

// Open opens (or creates) the word store and initialises the schema.
// driver is "sqlite" or "postgres"; for sqlite dsn is a file path.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*DB, error) {
	var (
		sqlDriver string
		source    string
	)
	switch driver {
	case "sqlite", sqliteDriver:
		sqlDriver = sqliteDriver
		source = sqliteDSN(dsn)
	case postgresDriver:
		sqlDriver = postgresDriver
		source = dsn
	default:
		return nil, errors.Newf("db.Open: unsupported driver %q", driver)
	}

	sqldb, err := sql.Open(sqlDriver, source)
	if err != nil {
		return nil, errors.Wrap(err, "db.Open")
	}
	d := &DB{
		db:     sqldb,
		driver: sqlDriver,
		subs:   make(map[int]func(models.ChangeEvent)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.createSchema(ctx); err != nil {
		_ = sqldb.Close()
		return nil, errors.Wrap(err, "db.Open createSchema")
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Driver returns the database/sql driver name in use.
func (d *DB) Driver() string { return d.driver }

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

func (d *DB) createSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS words (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		word TEXT NOT NULL UNIQUE
	)`
	if d.driver == postgresDriver {
		stmt = `CREATE TABLE IF NOT EXISTS words (
			id   BIGSERIAL PRIMARY KEY,
			word TEXT NOT NULL UNIQUE
		)`
	}
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrapf(err, "createSchema exec\nSQL: %s", stmt)
	}
	return nil
}

// rebind rewrites '?' placeholders to '$n' for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.driver != postgresDriver {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Change notifications
// ---------------------------------------------------------------------------

// Subscribe registers fn to be called after every successful mutation.
// fn runs synchronously on the mutating goroutine and must not block.
// The returned function removes the subscription.
func (d *DB) Subscribe(fn func(models.ChangeEvent)) (unsubscribe func()) {
	d.mu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		})
	}
}

func (d *DB) emit(op models.ChangeOp, id int64) {
	ev := models.NewChangeEvent(op, id, d.origin)

	d.mu.RLock()
	fns := make([]func(models.ChangeEvent), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// ListWords returns every stored word.
func (d *DB) ListWords(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT word FROM words ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "ListWords")
	}
	defer rows.Close()

	words := make([]string, 0)
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, errors.Wrap(err, "ListWords scan")
		}
		words = append(words, w)
	}
	return words, errors.Wrap(rows.Err(), "ListWords rows")
}

// ListEntries returns every stored word with its ID, ordered by ID.
func (d *DB) ListEntries(ctx context.Context) ([]models.Word, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, word FROM words ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "ListEntries")
	}
	defer rows.Close()

	entries := make([]models.Word, 0)
	for rows.Next() {
		var w models.Word
		if err := rows.Scan(&w.ID, &w.Word); err != nil {
			return nil, errors.Wrap(err, "ListEntries scan")
		}
		entries = append(entries, w)
	}
	return entries, errors.Wrap(rows.Err(), "ListEntries rows")
}

// GetByID returns the word stored under id. found is false when no row
// exists.
func (d *DB) GetByID(ctx context.Context, id int64) (word string, found bool, err error) {
	err = d.db.QueryRowContext(ctx, d.rebind(`SELECT word FROM words WHERE id = ?`), id).Scan(&word)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "GetByID")
	}
	return word, true, nil
}

// Exists reports whether word is stored (exact match).
func (d *DB) Exists(ctx context.Context, word string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx, d.rebind(`SELECT 1 FROM words WHERE word = ?`), word).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "Exists")
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// Create stores word and returns its new ID.
// Returns ErrDuplicate if the word is already stored.
func (d *DB) Create(ctx context.Context, word string) (int64, error) {
	var id int64
	err := d.db.QueryRowContext(ctx,
		d.rebind(`INSERT INTO words (word) VALUES (?) RETURNING id`), word,
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, errors.Wrap(err, "Create")
	}
	d.emit(models.OpCreate, id)
	return id, nil
}

// Update replaces the word stored under id and returns the number of rows
// affected. Returns ErrDuplicate if word is already stored under another ID.
func (d *DB) Update(ctx context.Context, id int64, word string) (int64, error) {
	res, err := d.db.ExecContext(ctx, d.rebind(`UPDATE words SET word = ? WHERE id = ?`), word, id)
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, errors.Wrap(err, "Update")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "Update rows affected")
	}
	d.emit(models.OpUpdate, id)
	return n, nil
}

// Delete removes the word stored under id and returns the number of rows
// affected.
func (d *DB) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := d.db.ExecContext(ctx, d.rebind(`DELETE FROM words WHERE id = ?`), id)
	if err != nil {
		return 0, errors.Wrap(err, "Delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "Delete rows affected")
	}
	d.emit(models.OpDelete, id)
	return n, nil
}

// sqliteDSN adds the WAL and busy-timeout pragmas to dsn, keeping any query
// parameters it already has.
func sqliteDSN(dsn string) string {
	const pragmas = "_journal_mode=WAL&_busy_timeout=5000"
	if strings.Contains(dsn, "?") {
		return dsn + "&" + pragmas
	}
	return dsn + "?" + pragmas
}

// Ping reports whether the database is reachable.
func (d *DB) Ping(ctx context.Context) bool {
	return d.db.PingContext(ctx) == nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}
