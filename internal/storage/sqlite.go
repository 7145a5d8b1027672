package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour of a DB.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// ParseDialect maps a config driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	}
	return "", fmt.Errorf("unsupported storage driver %q", driver)
}

// DB wraps a SQL connection and the dialect its queries are written for.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// New opens (or creates) the SQLite file at dbPath.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer
	conn.SetMaxOpenConns(1)

	return NewWithConn(conn, DialectSQLite)
}

// Open connects to a postgres or mysql server. sqlite DSNs are file paths
// and go through New.
func Open(dialect Dialect, dsn string) (*DB, error) {
	if dialect == DialectSQLite {
		return New(dsn)
	}
	if dialect == DialectMySQL && !strings.Contains(dsn, "parseTime=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "parseTime=true"
	}
	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(10 * time.Minute)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return NewWithConn(conn, dialect)
}

// NewWithConn wraps an already open connection and runs migrations.
func NewWithConn(conn *sql.DB, dialect Dialect) (*DB, error) {
	db := &DB{conn: conn, dialect: dialect}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) timestampType() string {
	switch db.dialect {
	case DialectPostgres:
		return "TIMESTAMPTZ"
	case DialectMySQL:
		return "DATETIME(6)"
	default:
		return "DATETIME"
	}
}

func (db *DB) migrate() error {
	ts := db.timestampType()
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS boards (
			id VARCHAR(64) PRIMARY KEY,
			name TEXT NOT NULL,
			viewport_x DOUBLE PRECISION NOT NULL DEFAULT 0,
			viewport_y DOUBLE PRECISION NOT NULL DEFAULT 0,
			viewport_scale DOUBLE PRECISION NOT NULL DEFAULT 1,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			board_id VARCHAR(64) NOT NULL,
			id VARCHAR(64) NOT NULL,
			x DOUBLE PRECISION NOT NULL DEFAULT 0,
			y DOUBLE PRECISION NOT NULL DEFAULT 0,
			width DOUBLE PRECISION NOT NULL DEFAULT 0,
			height DOUBLE PRECISION NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'todo',
			badge VARCHAR(32) NOT NULL DEFAULT 'note',
			color VARCHAR(32) NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL,
			PRIMARY KEY (board_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS connections (
			board_id VARCHAR(64) NOT NULL,
			id VARCHAR(64) NOT NULL,
			from_id VARCHAR(64) NOT NULL,
			to_id VARCHAR(64) NOT NULL,
			label TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL,
			PRIMARY KEY (board_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS app_state (
			setting VARCHAR(64) PRIMARY KEY,
			setting_value TEXT NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
