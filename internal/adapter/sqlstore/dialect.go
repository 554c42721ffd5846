package sqlstore

import (
	"fmt"
	"strings"
)

// dialect holds the statements that differ between PostgreSQL and MySQL.
// Queries are written with '?' and rebound for PostgreSQL.
type dialect struct {
	name       string
	driverName string
	numbered   bool
	schema     []string

	upsertStation  string
	upsertProduct  string
	insertBulletin string
	touchStation   string
	touchProduct   string
}

var stationColumns = []string{
	"code", "name", "location", "latitude", "longitude", "elevation_meters",
	"station_type", "region", "country", "first_seen", "last_seen",
}

var productColumns = []string{
	"code", "name", "category", "description", "first_seen", "last_seen",
}

var bulletinColumns = []string{
	"filename", "path", "size_bytes", "last_modified", "wmo_header", "originator",
	"comm_id", "message_id", "version", "product_code", "bulletin_timestamp",
	"source_datetime", "day", "hour", "minute", "preview", "content_size_bytes", "read_flag",
}

var postgresDialect = newDialect(dialect{
	name:       "postgres",
	driverName: "pgx",
	numbered:   true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS stations (
			code             TEXT PRIMARY KEY,
			name             TEXT,
			location         TEXT,
			latitude         DOUBLE PRECISION,
			longitude        DOUBLE PRECISION,
			elevation_meters DOUBLE PRECISION,
			station_type     TEXT,
			region           TEXT,
			country          TEXT,
			first_seen       TIMESTAMPTZ NOT NULL,
			last_seen        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			code        TEXT PRIMARY KEY,
			name        TEXT,
			category    TEXT,
			description TEXT,
			first_seen  TIMESTAMPTZ NOT NULL,
			last_seen   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bulletin_files (
			id                 BIGSERIAL PRIMARY KEY,
			filename           TEXT NOT NULL UNIQUE,
			path               TEXT NOT NULL,
			size_bytes         BIGINT NOT NULL,
			last_modified      TIMESTAMPTZ NOT NULL,
			wmo_header         TEXT NOT NULL,
			originator         TEXT NOT NULL REFERENCES stations (code),
			comm_id            TEXT NOT NULL,
			message_id         TEXT NOT NULL,
			version            TEXT NOT NULL,
			product_code       TEXT NOT NULL REFERENCES products (code),
			bulletin_timestamp TIMESTAMPTZ NOT NULL,
			source_datetime    TIMESTAMPTZ NOT NULL,
			day                TEXT NOT NULL,
			hour               TEXT NOT NULL,
			minute             TEXT NOT NULL,
			preview            TEXT NOT NULL,
			content_size_bytes BIGINT NOT NULL,
			read_flag          BOOLEAN NOT NULL DEFAULT FALSE,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS bulletin_files_originator_idx ON bulletin_files (originator)`,
		`CREATE INDEX IF NOT EXISTS bulletin_files_product_code_idx ON bulletin_files (product_code)`,
		`CREATE INDEX IF NOT EXISTS bulletin_files_bulletin_timestamp_idx ON bulletin_files (bulletin_timestamp)`,
	},
	upsertStation: insertInto("stations", stationColumns) + `
		ON CONFLICT (code) DO UPDATE SET ` + fillIfEmpty(stationColumns[1:9], "stations.%[1]s", "EXCLUDED.%[1]s") + `,
			last_seen = GREATEST(stations.last_seen, EXCLUDED.last_seen)`,
	upsertProduct: insertInto("products", productColumns) + `
		ON CONFLICT (code) DO UPDATE SET ` + fillIfEmpty(productColumns[1:4], "products.%[1]s", "EXCLUDED.%[1]s") + `,
			last_seen = GREATEST(products.last_seen, EXCLUDED.last_seen)`,
	insertBulletin: insertInto("bulletin_files", bulletinColumns) + `
		ON CONFLICT (filename) DO NOTHING`,
})

var mysqlDialect = newDialect(dialect{
	name:       "mysql",
	driverName: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS stations (
			code             VARCHAR(32) PRIMARY KEY,
			name             VARCHAR(255),
			location         VARCHAR(255),
			latitude         DOUBLE,
			longitude        DOUBLE,
			elevation_meters DOUBLE,
			station_type     VARCHAR(100),
			region           VARCHAR(100),
			country          VARCHAR(100),
			first_seen       DATETIME(6) NOT NULL,
			last_seen        DATETIME(6) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS products (
			code        VARCHAR(64) PRIMARY KEY,
			name        VARCHAR(255),
			category    VARCHAR(100),
			description TEXT,
			first_seen  DATETIME(6) NOT NULL,
			last_seen   DATETIME(6) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS bulletin_files (
			id                 BIGINT AUTO_INCREMENT PRIMARY KEY,
			filename           VARCHAR(255) NOT NULL,
			path               VARCHAR(1024) NOT NULL,
			size_bytes         BIGINT NOT NULL,
			last_modified      DATETIME(6) NOT NULL,
			wmo_header         VARCHAR(32) NOT NULL,
			originator         VARCHAR(32) NOT NULL,
			comm_id            VARCHAR(32) NOT NULL,
			message_id         VARCHAR(32) NOT NULL,
			version            VARCHAR(32) NOT NULL,
			product_code       VARCHAR(64) NOT NULL,
			bulletin_timestamp DATETIME(6) NOT NULL,
			source_datetime    DATETIME(6) NOT NULL,
			day                CHAR(2) NOT NULL,
			hour               CHAR(2) NOT NULL,
			minute             CHAR(2) NOT NULL,
			preview            TEXT NOT NULL,
			content_size_bytes BIGINT NOT NULL,
			read_flag          BOOLEAN NOT NULL DEFAULT FALSE,
			created_at         DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			UNIQUE KEY bulletin_files_filename_uq (filename),
			KEY bulletin_files_bulletin_timestamp_idx (bulletin_timestamp),
			CONSTRAINT bulletin_files_originator_fk FOREIGN KEY (originator) REFERENCES stations (code),
			CONSTRAINT bulletin_files_product_code_fk FOREIGN KEY (product_code) REFERENCES products (code)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	upsertStation: insertInto("stations", stationColumns) + `
		ON DUPLICATE KEY UPDATE ` + fillIfEmpty(stationColumns[1:9], "%[1]s", "VALUES(%[1]s)") + `,
			last_seen = GREATEST(last_seen, VALUES(last_seen))`,
	upsertProduct: insertInto("products", productColumns) + `
		ON DUPLICATE KEY UPDATE ` + fillIfEmpty(productColumns[1:4], "%[1]s", "VALUES(%[1]s)") + `,
			last_seen = GREATEST(last_seen, VALUES(last_seen))`,
	// A no-op update reports zero affected rows, which is how duplicates are
	// told apart. INSERT IGNORE would also swallow foreign key violations.
	insertBulletin: insertInto("bulletin_files", bulletinColumns) + `
		ON DUPLICATE KEY UPDATE filename = filename`,
})

func newDialect(d dialect) *dialect {
	d.upsertStation = d.rebind(d.upsertStation)
	d.upsertProduct = d.rebind(d.upsertProduct)
	d.insertBulletin = d.rebind(d.insertBulletin)
	d.touchStation = d.rebind(`UPDATE stations SET last_seen = GREATEST(last_seen, ?) WHERE code = ?`)
	d.touchProduct = d.rebind(`UPDATE products SET last_seen = GREATEST(last_seen, ?) WHERE code = ?`)
	return &d
}

func dialectFor(driver string) (*dialect, error) {
	switch driver {
	case "postgres", "postgresql", "pgx":
		return postgresDialect, nil
	case "mysql", "mariadb":
		return mysqlDialect, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// rebind replaces '?' placeholders with $1, $2, ... for numbered dialects.
func (d *dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func insertInto(table string, columns []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), marks)
}

// fillIfEmpty renders "col = COALESCE(current, incoming)" for each column so a
// stored value is never replaced, only a NULL filled.
func fillIfEmpty(columns []string, current, incoming string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("%s = COALESCE(%s, %s)", c, fmt.Sprintf(current, c), fmt.Sprintf(incoming, c))
	}
	return strings.Join(parts, ",\n\t\t\t")
}
