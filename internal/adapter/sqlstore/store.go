// Package sqlstore persists stations, products and bulletin files in
// PostgreSQL (through the pgx database/sql driver) or MySQL.
//
// Dimension saves are upserts that only ever fill NULL attributes and advance
// last_seen. A batch of bulletins is written in one transaction with a single
// prepared statement; a filename that already exists is reported as a
// duplicate rather than failing the batch.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

// Store implements pipeline.Store on a database/sql handle.
type Store struct {
	db *sql.DB
	d  *dialect
}

// Open connects to the database named by driver ("postgres" or "mysql") and
// verifies the connection.
func Open(ctx context.Context, driver, url string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch d {
	case mysqlDialect:
		cfg, err := mysqldriver.ParseDSN(url)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		conn, err := mysqldriver.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("mysql connector: %w", err)
		}
		db = sql.OpenDB(conn)
	default:
		db, err = sql.Open(d.driverName, url)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", d.name, err)
		}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	return &Store{db: db, d: d}, nil
}

// New wraps an existing handle.
func New(db *sql.DB, driver string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, d: d}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) LoadFilenames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename FROM bulletin_files`)
	if err != nil {
		return nil, fmt.Errorf("query filenames: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan filename: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) LoadStations(ctx context.Context) ([]domain.Station, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name, location, latitude, longitude,
		elevation_meters, station_type, region, country, first_seen, last_seen FROM stations`)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	var out []domain.Station
	for rows.Next() {
		var st domain.Station
		if err := rows.Scan(&st.Code, &st.Name, &st.Location, &st.Latitude, &st.Longitude,
			&st.ElevationMeters, &st.Type, &st.Region, &st.Country, &st.FirstSeen, &st.LastSeen); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		st.FirstSeen, st.LastSeen = st.FirstSeen.UTC(), st.LastSeen.UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name, category, description,
		first_seen, last_seen FROM products`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.Code, &p.Name, &p.Category, &p.Description, &p.FirstSeen, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.FirstSeen, p.LastSeen = p.FirstSeen.UTC(), p.LastSeen.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SaveStation(ctx context.Context, st domain.Station) error {
	if _, err := s.db.ExecContext(ctx, s.d.upsertStation, stationArgs(st)...); err != nil {
		return fmt.Errorf("save station %s: %w", st.Code, err)
	}
	return nil
}

func (s *Store) SaveProduct(ctx context.Context, p domain.Product) error {
	if _, err := s.db.ExecContext(ctx, s.d.upsertProduct, productArgs(p)...); err != nil {
		return fmt.Errorf("save product %s: %w", p.Code, err)
	}
	return nil
}

// WriteBatch inserts every bulletin and advances dimension last_seen in one
// transaction. Any error rolls the whole batch back.
func (s *Store) WriteBatch(ctx context.Context, b domain.Batch) (domain.BatchResult, error) {
	var res domain.BatchResult
	if len(b.Bulletins) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, s.d.insertBulletin)
	if err != nil {
		return res, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range b.Bulletins {
		f := &b.Bulletins[i]
		r, err := stmt.ExecContext(ctx, bulletinArgs(f)...)
		if err != nil {
			return domain.BatchResult{}, fmt.Errorf("insert bulletin %s: %w", f.Filename, err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return domain.BatchResult{}, fmt.Errorf("rows affected %s: %w", f.Filename, err)
		}
		if n == 0 {
			res.Duplicates = append(res.Duplicates, f.Filename)
			continue
		}
		res.Inserted++
	}

	if err := touch(ctx, tx, s.d.touchStation, b.StationSeen); err != nil {
		return domain.BatchResult{}, fmt.Errorf("advance station last_seen: %w", err)
	}
	if err := touch(ctx, tx, s.d.touchProduct, b.ProductSeen); err != nil {
		return domain.BatchResult{}, fmt.Errorf("advance product last_seen: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.BatchResult{}, fmt.Errorf("commit batch: %w", err)
	}
	return res, nil
}

// touch runs query for each code in sorted order so concurrent writers lock
// rows in the same sequence.
func touch(ctx context.Context, tx *sql.Tx, query string, seen map[string]time.Time) error {
	for _, code := range slices.Sorted(maps.Keys(seen)) {
		if _, err := tx.ExecContext(ctx, query, seen[code].UTC(), code); err != nil {
			return fmt.Errorf("%s: %w", code, err)
		}
	}
	return nil
}

// Wipe deletes all bulletins, products and stations.
func (s *Store) Wipe(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin wipe: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"bulletin_files", "products", "stations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("wipe %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit wipe: %w", err)
	}
	return nil
}

func stationArgs(st domain.Station) []any {
	return []any{
		st.Code, st.Name, st.Location, st.Latitude, st.Longitude, st.ElevationMeters,
		st.Type, st.Region, st.Country, st.FirstSeen.UTC(), st.LastSeen.UTC(),
	}
}

func productArgs(p domain.Product) []any {
	return []any{p.Code, p.Name, p.Category, p.Description, p.FirstSeen.UTC(), p.LastSeen.UTC()}
}

func bulletinArgs(f *domain.BulletinFile) []any {
	return []any{
		f.Filename, f.Path, f.SizeBytes, f.LastModified.UTC(), f.WMOHeader, f.Originator,
		f.CommID, f.MessageID, f.Version, f.ProductCode, f.BulletinTimestamp.UTC(),
		f.SourceDateTime.UTC(), f.Day, f.Hour, f.Minute, f.Preview, f.ContentSizeBytes, f.ReadFlag,
	}
}
