// Package seqdb stores sequence records in a BioSQL-style relational schema,
// one named collection (biodatabase) per release and locus.
package seqdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cenkalti/backoff"
	_ "github.com/go-sql-driver/mysql" // register mysql as a database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"imgtdb/internal/dat"
)

const (
	defaultSQLitePath  = "bioseqdb.db"
	defaultPostgresDSN = "postgres://localhost/bioseqdb?sslmode=disable"
	defaultMySQLDSN    = "root@tcp(localhost:3306)/bioseqdb"

	// division recorded for every entry; IMGT/HLA is human only.
	division = "HUM"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// ErrClosed is returned by operations on a closed server.
var ErrClosed = errors.New("seqdb: server closed")

// Options selects and configures the backend.
type Options struct {
	Driver Driver
	// DSN is the connection string, or the file path for sqlite. Empty picks the driver default.
	DSN string
	// Retries is the number of extra ping attempts, spaced by exponential backoff.
	Retries int
}

// Server is an open connection to the sequence store. It is meant to be held
// for a whole run and closed once at the end.
type Server struct {
	db        *sql.DB
	d         dialect
	closeOnce sync.Once
	closeErr  error
	closed    bool
	mu        sync.Mutex
}

// Open connects to the configured backend and ensures the schema exists.
func Open(ctx context.Context, opts Options) (*Server, error) {
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}
	d, ok := dialectFor(opts.Driver)
	if !ok {
		return nil, fmt.Errorf("unknown storage driver %s", opts.Driver)
	}
	dsn, err := resolveDSN(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}
	openMu.Lock()
	db, err := sqlOpen(d.sqlDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}
	if opts.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := ping(ctx, db, opts.Retries); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, err)
	}
	s := &Server{db: db, d: d}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func resolveDSN(driver Driver, dsn string) (string, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create dirs: %w", err)
		}
	case DriverPostgres:
		if dsn == "" {
			dsn = defaultPostgresDSN
		}
	case DriverMySQL:
		if dsn == "" {
			dsn = defaultMySQLDSN
		}
	}
	return dsn, nil
}

func ping(ctx context.Context, db *sql.DB, retries int) error {
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)), ctx)
	return backoff.Retry(func() error { return db.PingContext(ctx) }, b)
}

func (s *Server) ensureSchema(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// Driver reports the backend in use.
func (s *Server) Driver() Driver { return s.d.driver }

// Close releases the connection. Only the first call closes; later calls
// return the first result.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Closed reports whether Close has been called.
func (s *Server) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LoadCollection creates the named collection if it does not exist yet and
// appends records to it, all in one transaction. Nothing is committed when any
// insert fails. It returns the number of records inserted.
func (s *Server) LoadCollection(ctx context.Context, name, description string, records []dat.Record) (int, error) {
	if s.Closed() {
		return 0, ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	dbID, err := s.openOrCreate(ctx, tx, name, description)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range records {
		if err := s.insertRecord(ctx, tx, dbID, rec); err != nil {
			return 0, fmt.Errorf("insert %s into %s: %w", rec.Name, name, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return n, nil
}

func (s *Server) openOrCreate(ctx context.Context, tx *sql.Tx, name, description string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, s.d.rebind(`SELECT biodatabase_id FROM biodatabase WHERE name = ?`), name).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("lookup collection %s: %w", name, err)
	}
	id, err = s.insertID(ctx, tx, "biodatabase_id",
		`INSERT INTO biodatabase (name, authority, description) VALUES (?, ?, ?)`,
		name, nil, description)
	if err != nil {
		return 0, fmt.Errorf("create collection %s: %w", name, err)
	}
	return id, nil
}

func (s *Server) insertRecord(ctx context.Context, tx *sql.Tx, dbID int64, rec dat.Record) error {
	entryID, err := s.insertID(ctx, tx, "bioentry_id",
		`INSERT INTO bioentry (biodatabase_id, name, accession, identifier, division, description, version) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dbID, rec.Name, rec.Accession, nil, division, rec.Description, rec.Version)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.d.rebind(
		`INSERT INTO biosequence (bioentry_id, version, length, alphabet, seq) VALUES (?, ?, ?, ?, ?)`),
		entryID, rec.Version, len(rec.Sequence), alphabet(rec.Molecule), rec.Sequence)
	return err
}

// insertID runs an INSERT and returns the generated key column.
func (s *Server) insertID(ctx context.Context, tx *sql.Tx, idCol, query string, args ...any) (int64, error) {
	if s.d.returning {
		var id int64
		err := tx.QueryRowContext(ctx, s.d.rebind(query)+" RETURNING "+idCol, args...).Scan(&id)
		return id, err
	}
	res, err := tx.ExecContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func alphabet(molecule string) string {
	if strings.Contains(strings.ToUpper(molecule), "RNA") {
		return "rna"
	}
	return "dna"
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
