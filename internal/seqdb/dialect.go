package seqdb

import (
	"strconv"
	"strings"
)

// Driver identifies a concrete relational backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file (default)
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverMySQL    Driver = "mysql"    // MySQL / MariaDB server
)

type dialect struct {
	driver     Driver
	sqlDriver  string
	schema     []string
	dollarArgs bool // $1..$n placeholders instead of ?
	returning  bool // INSERT ... RETURNING instead of LastInsertId
}

func dialectFor(d Driver) (dialect, bool) {
	switch d {
	case DriverSQLite:
		return dialect{driver: d, sqlDriver: "sqlite", schema: sqliteSchema}, true
	case DriverPostgres:
		return dialect{driver: d, sqlDriver: "pgx", schema: postgresSchema, dollarArgs: true, returning: true}, true
	case DriverMySQL:
		return dialect{driver: d, sqlDriver: "mysql", schema: mysqlSchema}, true
	}
	return dialect{}, false
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// The tables follow the BioSQL layout (biodatabase / bioentry / biosequence)
// restricted to the columns the loader fills.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS biodatabase (
		biodatabase_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(128) NOT NULL UNIQUE,
		authority VARCHAR(128),
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS bioentry (
		bioentry_id INTEGER PRIMARY KEY AUTOINCREMENT,
		biodatabase_id INTEGER NOT NULL REFERENCES biodatabase(biodatabase_id),
		name VARCHAR(40) NOT NULL,
		accession VARCHAR(128) NOT NULL,
		identifier VARCHAR(40),
		division VARCHAR(6),
		description TEXT,
		version INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bioentry_db ON bioentry(biodatabase_id)`,
	`CREATE TABLE IF NOT EXISTS biosequence (
		bioentry_id INTEGER PRIMARY KEY REFERENCES bioentry(bioentry_id),
		version INTEGER,
		length INTEGER,
		alphabet VARCHAR(10),
		seq TEXT
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS biodatabase (
		biodatabase_id SERIAL PRIMARY KEY,
		name VARCHAR(128) NOT NULL UNIQUE,
		authority VARCHAR(128),
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS bioentry (
		bioentry_id SERIAL PRIMARY KEY,
		biodatabase_id INTEGER NOT NULL REFERENCES biodatabase(biodatabase_id),
		name VARCHAR(40) NOT NULL,
		accession VARCHAR(128) NOT NULL,
		identifier VARCHAR(40),
		division VARCHAR(6),
		description TEXT,
		version INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bioentry_db ON bioentry(biodatabase_id)`,
	`CREATE TABLE IF NOT EXISTS biosequence (
		bioentry_id INTEGER PRIMARY KEY REFERENCES bioentry(bioentry_id),
		version INTEGER,
		length INTEGER,
		alphabet VARCHAR(10),
		seq TEXT
	)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS biodatabase (
		biodatabase_id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(128) NOT NULL,
		authority VARCHAR(128),
		description TEXT,
		UNIQUE KEY biodatabase_name (name)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS bioentry (
		bioentry_id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		biodatabase_id INT UNSIGNED NOT NULL,
		name VARCHAR(40) NOT NULL,
		accession VARCHAR(128) NOT NULL,
		identifier VARCHAR(40),
		division VARCHAR(6),
		description TEXT,
		version SMALLINT UNSIGNED NOT NULL,
		KEY bioentry_db (biodatabase_id),
		FOREIGN KEY (biodatabase_id) REFERENCES biodatabase(biodatabase_id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS biosequence (
		bioentry_id INT UNSIGNED NOT NULL PRIMARY KEY,
		version SMALLINT,
		length INT,
		alphabet VARCHAR(10),
		seq LONGTEXT,
		FOREIGN KEY (bioentry_id) REFERENCES bioentry(bioentry_id)
	) ENGINE=InnoDB`,
}
