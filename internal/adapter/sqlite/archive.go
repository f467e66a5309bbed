// Package sqlite archives rendered hotspots in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
)

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 100

// ArchivedHotspot is a stored detection and the load that first saw it.
type ArchivedHotspot struct {
	domain.FireRecord
	FetchedAt time.Time `json:"fetched_at"`
}

// Archive stores every hotspot the overlay renders. A detection is stored
// once; later loads that see it again are ignored. It implements
// pipeline.HotspotSink.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", path, err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open archive %q: ping: %w", path, err)
	}
	if err := InitSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Archive{db: db, logger: logger}, nil
}

// InitSchema creates the hotspot table and its index.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{`
	CREATE TABLE IF NOT EXISTS hotspots (
		source     TEXT NOT NULL,
		acq_date   TEXT NOT NULL,
		acq_time   TEXT NOT NULL,
		lat        REAL NOT NULL,
		lon        REAL NOT NULL,
		frp        REAL NOT NULL,
		confidence TEXT NOT NULL,
		brightness REAL NOT NULL,
		fetched_at TEXT NOT NULL,
		PRIMARY KEY (source, acq_date, acq_time, lat, lon)
	);
	`, `
	CREATE INDEX IF NOT EXISTS idx_hotspots_fetched_at
	ON hotspots(fetched_at);
	`}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}
	return nil
}

func (a *Archive) Name() string { return "archive" }

// Publish inserts the snapshot's records in one transaction.
func (a *Archive) Publish(ctx context.Context, snap domain.FireSnapshot) error {
	if len(snap.Records) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive hotspots: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR IGNORE INTO hotspots (
		source, acq_date, acq_time, lat, lon, frp, confidence, brightness, fetched_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("archive hotspots: prepare insert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := snap.FetchedAt.UTC().Format(time.RFC3339Nano)
	var inserted int64
	for _, r := range snap.Records {
		res, err := stmt.ExecContext(ctx, r.Source, r.Date, r.Time, r.Lat, r.Lon, r.Intensity, r.Confidence, r.Brightness, fetchedAt)
		if err != nil {
			return fmt.Errorf("archive hotspot %.4f,%.4f: %w", r.Lat, r.Lon, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive hotspots: commit tx: %w", err)
	}
	a.logger.Debug("hotspots archived", "received", len(snap.Records), "inserted", inserted)
	return nil
}

// Recent returns up to limit archived hotspots, newest load first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]ArchivedHotspot, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := a.db.QueryContext(ctx, `
	SELECT source, acq_date, acq_time, lat, lon, frp, confidence, brightness, fetched_at
	FROM hotspots
	ORDER BY fetched_at DESC, rowid DESC
	LIMIT ?;
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent hotspots: query: %w", err)
	}
	defer rows.Close()

	var out []ArchivedHotspot
	for rows.Next() {
		var h ArchivedHotspot
		var fetchedAt string
		if err := rows.Scan(&h.Source, &h.Date, &h.Time, &h.Lat, &h.Lon, &h.Intensity, &h.Confidence, &h.Brightness, &fetchedAt); err != nil {
			return nil, fmt.Errorf("recent hotspots: scan: %w", err)
		}
		if h.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt); err != nil {
			return nil, fmt.Errorf("recent hotspots: parse fetched_at %q: %w", fetchedAt, err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent hotspots: row iteration: %w", err)
	}
	return out, nil
}

// Ping reports whether the database is reachable.
func (a *Archive) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *Archive) Close() error {
	return a.db.Close()
}
