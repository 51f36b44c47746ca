package remote

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/roach88/scanledger/internal/history"
	"github.com/roach88/scanledger/internal/keys"
	"github.com/roach88/scanledger/internal/remote/migrations"
)

// Postgres is the impact log in PostgreSQL, scoped to one user.
type Postgres struct {
	db     DBTX
	userID string
}

// NewPostgres returns a Store reading and writing userID's rows.
func NewPostgres(db DBTX, userID string) *Postgres {
	return &Postgres{db: db, userID: userID}
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenDB connects to PostgreSQL through the pgx stdlib driver.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping remote database: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate remote schema: %w", err)
	}
	return nil
}

const fetchQuery = `SELECT item, material, bin, notes, recyclable, item_key, day_key,
		scanned_at, scan_count, source, points, image_path
	FROM impact_log
	WHERE user_id = $1
	ORDER BY scanned_at DESC, item_key ASC
	LIMIT $2`

// Fetch returns the user's most recent records.
func (p *Postgres) Fetch(ctx context.Context, limit int) ([]history.RemoteRecord, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := p.db.QueryContext(ctx, fetchQuery, p.userID, lim)
	if err != nil {
		return nil, fmt.Errorf("fetch impact log: %w", err)
	}
	defer rows.Close()

	var out []history.RemoteRecord
	for rows.Next() {
		var (
			rec       history.RemoteRecord
			scannedAt time.Time
		)
		if err := rows.Scan(
			&rec.Item, &rec.Material, &rec.Bin, &rec.Notes, &rec.Recyclable,
			&rec.ItemKey, &rec.DayKey, &scannedAt, &rec.ScanCount,
			&rec.Source, &rec.Points, &rec.ImagePath,
		); err != nil {
			return nil, fmt.Errorf("scan impact log row: %w", err)
		}
		rec.ScannedAt = scannedAt.UTC().Format(time.RFC3339)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate impact log: %w", err)
	}
	return out, nil
}

const insertQuery = `INSERT INTO impact_log
		(user_id, day_key, item_key, item, material, bin, notes, recyclable,
		 scanned_at, scan_count, source, points, image_path)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (user_id, day_key, item_key) DO UPDATE SET
		item = EXCLUDED.item,
		material = EXCLUDED.material,
		bin = EXCLUDED.bin,
		notes = EXCLUDED.notes,
		recyclable = EXCLUDED.recyclable,
		scanned_at = GREATEST(impact_log.scanned_at, EXCLUDED.scanned_at),
		scan_count = GREATEST(impact_log.scan_count, EXCLUDED.scan_count),
		points = GREATEST(impact_log.points, EXCLUDED.points),
		source = CASE WHEN impact_log.source = 'photo' THEN 'photo' ELSE EXCLUDED.source END,
		image_path = COALESCE(NULLIF(EXCLUDED.image_path, ''), impact_log.image_path);`

// Insert upserts rec under (user, dayKey, itemKey).
func (p *Postgres) Insert(ctx context.Context, rec history.RemoteRecord) error {
	at, err := validate(rec)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, insertQuery,
		p.userID, rec.DayKey, rec.ItemKey,
		rec.Item, rec.Material, rec.Bin, rec.Notes, rec.Recyclable,
		at.UTC(), max(1, rec.ScanCount), string(history.ParseSource(rec.Source)),
		max(0, rec.Points), rec.ImagePath,
	)
	if err != nil {
		return fmt.Errorf("insert impact log: %w", err)
	}
	return nil
}

// validate checks that rec can be keyed and returns its scan time.
func validate(rec history.RemoteRecord) (time.Time, error) {
	if rec.DayKey == "" || rec.ItemKey == "" {
		return time.Time{}, fmt.Errorf("%w: missing day or item key", ErrInvalidRecord)
	}
	if !keys.ValidDayKey(rec.DayKey) {
		return time.Time{}, fmt.Errorf("%w: day_key %q", ErrInvalidRecord, rec.DayKey)
	}
	at, ok := history.ParseTimestamp(rec.ScannedAt, time.UTC)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: scanned_at %q", ErrInvalidRecord, rec.ScannedAt)
	}
	return at, nil
}
