package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

func (c *Credentials) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName)
}

// SQLRepository keeps one row per (session, slot). Works against Postgres and
// SQLite; SQLite is what a single-device install uses.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLRepository(dialect Dialect, dsn string) (*SQLRepository, error) {
	var driverName string
	switch dialect {
	case DialectPostgres:
		driverName = "postgres"
	case DialectSQLite:
		driverName = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	if dialect == DialectSQLite {
		// a single writer avoids SQLITE_BUSY on concurrent commits
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(10)
	}
	return &SQLRepository{db: db, dialect: dialect}, nil
}

func (r *SQLRepository) RunMigrations() error {
	var (
		driver database.Driver
		err    error
	)
	switch r.dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(r.db, &postgres.Config{
			MigrationsTable: "storefront_schema_migrations",
		})
	case DialectSQLite:
		driver, err = sqlite.WithInstance(r.db, &sqlite.Config{
			MigrationsTable: "storefront_schema_migrations",
		})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+string(r.dialect))
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(r.dialect), driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, sessionID string, slot Slot) ([]byte, error) {
	query := r.rebind(`SELECT payload FROM session_slots WHERE session_id = ? AND slot = ?`)

	var payload []byte
	err := r.db.QueryRowContext(ctx, query, sessionID, string(slot)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query slot: %w", err)
	}
	return payload, nil
}

func (r *SQLRepository) Put(ctx context.Context, sessionID string, slot Slot, data []byte) error {
	return r.Apply(ctx, sessionID, Commit{Writes: map[Slot][]byte{slot: data}})
}

func (r *SQLRepository) Apply(ctx context.Context, sessionID string, commit Commit) (err error) {
	if commit.empty() {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	deleteQuery := r.rebind(`DELETE FROM session_slots WHERE session_id = ? AND slot = ?`)
	for _, s := range commit.deletes() {
		if _, err = tx.ExecContext(ctx, deleteQuery, sessionID, string(s)); err != nil {
			return fmt.Errorf("delete slot %s: %w", s, err)
		}
	}

	upsertQuery := r.rebind(`INSERT INTO session_slots (session_id, slot, payload, updated_at)
	          VALUES (?, ?, ?, ?)
	          ON CONFLICT (session_id, slot) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`)
	now := time.Now().UTC()
	for s, data := range commit.Writes {
		if _, err = tx.ExecContext(ctx, upsertQuery, sessionID, string(s), data, now); err != nil {
			return fmt.Errorf("upsert slot %s: %w", s, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// PurgeBefore drops slots not written since cutoff and returns how many rows
// were removed. SQL stores have no native expiry.
func (r *SQLRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM session_slots WHERE updated_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge slots: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind turns ? placeholders into $n for Postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
