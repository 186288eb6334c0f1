// Package store persists books and their append-only price history.
//
// The write side exposes identity resolution (upsert by title) and
// observation appends, grouped one catalog page per transaction. The read
// side exposes the joined history view the trend analysis consumes. History
// rows are never updated or deleted, so price movement stays auditable.
package store

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aluiziolira/go-book-gems/config"
	"github.com/aluiziolira/go-book-gems/models"
	"github.com/go-sql-driver/mysql"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema_mysql.sql
var schemaMySQL string

//go:embed schema_sqlite.sql
var schemaSQLite string

const mysqlTLSConfigName = "bookgems"

func init() {
	// The modernc driver registers as "sqlite", which sqlx does not know
	// about out of the box.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store is a handle to the book/price-history schema. It is safe for use
// from the single-threaded ingestion loop and the read-only analysis pass.
type Store struct {
	db     *sqlx.DB
	flavor sqlbuilder.Flavor
	schema string
}

// Status reports the read-side view of ingestion progress.
type Status struct {
	Books         int64      `json:"books"`
	Observations  int64      `json:"observations"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
}

// Open connects to the configured backend, verifies the connection and
// bootstraps the schema. The caller owns the handle and must Close it.
func Open(ctx context.Context, cfg config.Database) (*Store, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		return openMySQL(ctx, cfg)
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openMySQL(ctx context.Context, cfg config.Database) (*Store, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true

	if cfg.TLSCACert != "" {
		pem, err := os.ReadFile(cfg.TLSCACert)
		if err != nil {
			return nil, ErrDataAccess{Op: "read ca certificate", Err: err}
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, ErrDataAccess{Op: "load ca certificate", Err: fmt.Errorf("no certificates in %s", cfg.TLSCACert)}
		}
		if err := mysql.RegisterTLSConfig(mysqlTLSConfigName, &tls.Config{RootCAs: pool}); err != nil {
			return nil, ErrDataAccess{Op: "register tls config", Err: err}
		}
		mc.TLSConfig = mysqlTLSConfigName
	}

	db, err := sqlx.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, ErrDataAccess{Op: "open mysql", Err: err}
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, flavor: sqlbuilder.MySQL, schema: schemaMySQL}
	if err := s.bootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLite opens a file-backed or in-memory SQLite store using the
// pure-Go driver. Intended for local runs and tests.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, ErrDataAccess{Op: "open sqlite", Err: err}
	}
	if strings.Contains(path, ":memory:") {
		// Each new connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, flavor: sqlbuilder.SQLite, schema: schemaSQLite}
	if err := s.bootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return ErrDataAccess{Op: "ping", Err: err}
	}
	return nil
}

func (s *Store) bootstrap(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return ErrDataAccess{Op: "ping", Err: err}
	}
	for _, stmt := range strings.Split(s.schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return ErrDataAccess{Op: "bootstrap schema", Err: err}
		}
	}
	return nil
}

// ResolveBook maps a title to its stable identity, inserting a new book on
// first sight. Repeated sightings return the existing identity unchanged:
// the rating recorded at first sight wins and is never refreshed.
func (s *Store) ResolveBook(ctx context.Context, title, rating string) (int64, error) {
	return s.resolveBook(ctx, s.db, title, rating)
}

func (s *Store) resolveBook(ctx context.Context, ext sqlx.ExtContext, title, rating string) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, ErrInvalidInput{Reason: "empty title"}
	}

	ib := s.flavor.NewInsertBuilder()
	ib.InsertIgnoreInto("books")
	ib.Cols("title", "rating")
	ib.Values(title, rating)
	query, args := ib.Build()
	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		return 0, ErrDataAccess{Op: "insert book", Err: err}
	}

	sb := s.flavor.NewSelectBuilder()
	sb.Select("id")
	sb.From("books")
	sb.Where(sb.Equal("title", title))
	query, args = sb.Build()

	var id int64
	if err := sqlx.GetContext(ctx, ext, &id, query, args...); err != nil {
		return 0, ErrDataAccess{Op: "select book id", Err: err}
	}
	return id, nil
}

// AppendObservation records a price for an existing book. Observations are
// append-only; there is no way to mutate or delete one through this API.
// A zero scrapedAt defaults to the current time.
func (s *Store) AppendObservation(ctx context.Context, bookID int64, price float64, scrapedAt time.Time) error {
	return s.appendObservation(ctx, s.db, bookID, price, scrapedAt)
}

func (s *Store) appendObservation(ctx context.Context, ext sqlx.ExtContext, bookID int64, price float64, scrapedAt time.Time) error {
	if price < 0 {
		return ErrInvalidInput{Reason: fmt.Sprintf("negative price %.2f for book %d", price, bookID)}
	}
	if scrapedAt.IsZero() {
		scrapedAt = time.Now().UTC()
	}

	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("price_history")
	ib.Cols("book_id", "price", "scraped_at")
	ib.Values(bookID, price, scrapedAt)
	query, args := ib.Build()
	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		return ErrDataAccess{Op: "append observation", Err: err}
	}
	return nil
}

// IngestPage resolves and appends every entry of one catalog page inside a
// single transaction. Either the whole page becomes durable or none of it:
// a crash mid-run never leaves a partially written page.
func (s *Store) IngestPage(ctx context.Context, entries []models.CatalogEntry, scrapedAt time.Time) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, ErrDataAccess{Op: "begin page transaction", Err: err}
	}
	defer tx.Rollback()

	appended := 0
	for _, entry := range entries {
		bookID, err := s.resolveBook(ctx, tx, entry.Title, entry.RatingText)
		if err != nil {
			return 0, err
		}
		if err := s.appendObservation(ctx, tx, bookID, entry.Price, scrapedAt); err != nil {
			return 0, err
		}
		appended++
	}

	if err := tx.Commit(); err != nil {
		return 0, ErrDataAccess{Op: "commit page transaction", Err: err}
	}
	return appended, nil
}

// History returns the joined observation view, ordered by book and then by
// capture time ascending so trend computation is deterministic.
func (s *Store) History(ctx context.Context) ([]models.PriceRow, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("b.id AS book_id", "b.title", "b.rating", "p.price", "p.scraped_at")
	sb.From("books b")
	sb.Join("price_history p", "p.book_id = b.id")
	sb.OrderBy("b.id", "p.scraped_at")
	query, args := sb.Build()

	var rows []models.PriceRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, ErrDataAccess{Op: "select history", Err: err}
	}
	return rows, nil
}

// HistoryForBook returns the observations of a single title, ordered by
// capture time ascending. An unknown title yields an empty result.
func (s *Store) HistoryForBook(ctx context.Context, title string) ([]models.PriceRow, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("b.id AS book_id", "b.title", "b.rating", "p.price", "p.scraped_at")
	sb.From("books b")
	sb.Join("price_history p", "p.book_id = b.id")
	sb.Where(sb.Equal("b.title", title))
	sb.OrderBy("p.scraped_at")
	query, args := sb.Build()

	var rows []models.PriceRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, ErrDataAccess{Op: "select book history", Err: err}
	}
	return rows, nil
}

// Status reports row counts and the latest capture time.
func (s *Store) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := s.db.GetContext(ctx, &st.Books, "SELECT COUNT(*) FROM books"); err != nil {
		return Status{}, ErrDataAccess{Op: "count books", Err: err}
	}
	if err := s.db.GetContext(ctx, &st.Observations, "SELECT COUNT(*) FROM price_history"); err != nil {
		return Status{}, ErrDataAccess{Op: "count observations", Err: err}
	}

	var last time.Time
	err := s.db.GetContext(ctx, &last, "SELECT scraped_at FROM price_history ORDER BY scraped_at DESC LIMIT 1")
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Status{}, ErrDataAccess{Op: "latest observation", Err: err}
	default:
		st.LastScrapedAt = &last
	}
	return st, nil
}
