// Package history keeps a DuckDB log of every route applied to a view.
package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/warehouse-visualizer/backend/internal/logging"
	"github.com/warehouse-visualizer/backend/internal/models"
	"go.uber.org/zap"
)

// DefaultRecentLimit caps Recent when the caller passes no limit.
const DefaultRecentLimit = 50

var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS route_id_seq`,
	`CREATE TABLE IF NOT EXISTS routes (
		id           BIGINT PRIMARY KEY DEFAULT nextval('route_id_seq'),
		view_id      VARCHAR NOT NULL,
		warehouse_id VARCHAR NOT NULL,
		kind         VARCHAR NOT NULL,
		source_col   INTEGER NOT NULL,
		source_row   INTEGER NOT NULL,
		dest_col     INTEGER,
		dest_row     INTEGER,
		length       INTEGER NOT NULL,
		item_count   INTEGER NOT NULL,
		recorded_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_routes_view ON routes(view_id)`,
	`CREATE INDEX IF NOT EXISTS idx_routes_warehouse ON routes(warehouse_id)`,
}

// Store is a route log backed by a DuckDB file, or by an in-memory
// database when opened with an empty path.
type Store struct {
	db     *sql.DB
	dbPath string
	logger *zap.Logger
	now    func() time.Time
}

// Open opens or creates the route log at dbPath.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	logger = logging.OrNop(logger).Named("history")

	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				logger.Warn("pragma failed", zap.String("pragma", pragma), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create routes table: %w", err)
		}
	}

	logger.Info("route history opened", zap.String("path", displayPath(dbPath)))
	return &Store{db: db, dbPath: dbPath, logger: logger, now: time.Now}, nil
}

// Record appends a route. A zero RecordedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, route models.Route) error {
	if route.RecordedAt.IsZero() {
		route.RecordedAt = s.now()
	}

	var destCol, destRow sql.NullInt64
	if route.Destination != nil {
		destCol = sql.NullInt64{Int64: int64(route.Destination.Col()), Valid: true}
		destRow = sql.NullInt64{Int64: int64(route.Destination.Row()), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO routes (view_id, warehouse_id, kind, source_col, source_row,
			dest_col, dest_row, length, item_count, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		route.ViewID, route.WarehouseID, string(route.Kind),
		route.Source.Col(), route.Source.Row(),
		destCol, destRow,
		route.Length, route.ItemCount, route.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record route: %w", err)
	}
	return nil
}

// Recent returns up to limit routes of a view, newest first.
func (s *Store) Recent(ctx context.Context, viewID string, limit int) ([]models.Route, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT view_id, warehouse_id, kind, source_col, source_row,
			dest_col, dest_row, length, item_count, recorded_at
		FROM routes
		WHERE view_id = ?
		ORDER BY id DESC
		LIMIT ?`, viewID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	routes := make([]models.Route, 0)
	for rows.Next() {
		var (
			r                models.Route
			kind             string
			srcCol, srcRow   int
			destCol, destRow sql.NullInt64
		)
		if err := rows.Scan(&r.ViewID, &r.WarehouseID, &kind, &srcCol, &srcRow,
			&destCol, &destRow, &r.Length, &r.ItemCount, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		r.Kind = models.RouteKind(kind)
		r.Source = models.Coord{srcCol, srcRow}
		if destCol.Valid && destRow.Valid {
			r.Destination = &models.Coord{int(destCol.Int64), int(destRow.Int64)}
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// Stats aggregates the routes recorded for a warehouse.
func (s *Store) Stats(ctx context.Context, warehouseID string) (*models.RouteStats, error) {
	stats := &models.RouteStats{WarehouseID: warehouseID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE kind = 'pick'),
			COALESCE(AVG(length), 0)
		FROM routes
		WHERE warehouse_id = ?`, warehouseID,
	).Scan(&stats.Routes, &stats.PickRoutes, &stats.AvgLength)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate routes: %w", err)
	}
	return stats, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func displayPath(p string) string {
	if p == "" {
		return ":memory:"
	}
	return p
}
