// Package persistence provides SQLite-based city state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/citygrid/internal/engine"
	"github.com/talgya/citygrid/internal/grid"
	"github.com/talgya/citygrid/internal/roads"
)

// DB wraps a SQLite connection for city state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
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

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS buildings (
		id TEXT PRIMARY KEY,
		type_id TEXT NOT NULL,
		row INTEGER NOT NULL,
		col INTEGER NOT NULL,
		owner_id TEXT,
		age INTEGER NOT NULL,
		condition REAL NOT NULL,
		under_construction INTEGER NOT NULL,
		progress REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS road_segments (
		row INTEGER NOT NULL,
		col INTEGER NOT NULL,
		orient INTEGER NOT NULL,
		road_type INTEGER NOT NULL,
		condition REAL NOT NULL,
		traffic_load REAL NOT NULL,
		built_at INTEGER NOT NULL,
		PRIMARY KEY (row, col, orient)
	);

	CREATE TABLE IF NOT EXISTS transit_routes (
		id TEXT PRIMARY KEY,
		mode INTEGER NOT NULL,
		service_level INTEGER NOT NULL,
		ticket_price REAL NOT NULL,
		stops_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS parcels (
		row INTEGER NOT NULL,
		col INTEGER NOT NULL,
		owner_id TEXT,
		paid_price REAL NOT NULL,
		land_value REAL NOT NULL,
		PRIMARY KEY (row, col)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_buildings_loc ON buildings(row, col);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveBuildings writes all building instances (full replace).
func (db *DB) SaveBuildings(buildings []*engine.BuildingInstance) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM buildings"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO buildings
		(id, type_id, row, col, owner_id, age, condition, under_construction, progress)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range buildings {
		uc := 0
		if b.UnderConstruction {
			uc = 1
		}
		_, err := stmt.Exec(
			b.ID.String(), b.TypeID, b.Loc.Row, b.Loc.Col, b.OwnerID,
			b.Age, b.Condition, uc, b.Progress,
		)
		if err != nil {
			return fmt.Errorf("insert building %s: %w", b.ID, err)
		}
	}

	return tx.Commit()
}

// LoadBuildings reads all persisted building instances.
func (db *DB) LoadBuildings() ([]*engine.BuildingInstance, error) {
	rows, err := db.conn.Queryx(`SELECT id, type_id, row, col, owner_id, age,
		condition, under_construction, progress FROM buildings ORDER BY row, col`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*engine.BuildingInstance
	for rows.Next() {
		var (
			idStr, typeID, ownerID string
			row, col, uc           int
			age                    uint64
			condition, progress    float64
		)
		if err := rows.Scan(&idStr, &typeID, &row, &col, &ownerID, &age, &condition, &uc, &progress); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("building id %q: %w", idStr, err)
		}
		out = append(out, &engine.BuildingInstance{
			ID:                id,
			TypeID:            typeID,
			Loc:               grid.Location{Row: row, Col: col},
			OwnerID:           ownerID,
			Age:               age,
			Condition:         condition,
			UnderConstruction: uc != 0,
			Progress:          progress,
		})
	}
	return out, rows.Err()
}

// SaveRoads writes all road segments and transit routes (full replace).
func (db *DB) SaveRoads(segments []*roads.RoadSegment, routes []*roads.TransitRoute) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM road_segments"); err != nil {
		return err
	}
	for _, s := range segments {
		_, err := tx.Exec(`INSERT INTO road_segments
			(row, col, orient, road_type, condition, traffic_load, built_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.Key.Row, s.Key.Col, s.Key.Orient, s.Type, s.Condition, s.TrafficLoad, s.BuiltAt,
		)
		if err != nil {
			return fmt.Errorf("insert segment (%d,%d): %w", s.Key.Row, s.Key.Col, err)
		}
	}

	if _, err := tx.Exec("DELETE FROM transit_routes"); err != nil {
		return err
	}
	for _, r := range routes {
		stopsJSON, _ := json.Marshal(r.Stops)
		_, err := tx.Exec(`INSERT INTO transit_routes
			(id, mode, service_level, ticket_price, stops_json)
			VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.Mode, r.ServiceLevel, r.TicketPrice, string(stopsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert route %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// LoadRoads reads all persisted road segments and transit routes.
func (db *DB) LoadRoads() ([]*roads.RoadSegment, []*roads.TransitRoute, error) {
	segRows, err := db.conn.Queryx(`SELECT row, col, orient, road_type, condition,
		traffic_load, built_at FROM road_segments ORDER BY row, col, orient`)
	if err != nil {
		return nil, nil, err
	}
	defer segRows.Close()

	var segments []*roads.RoadSegment
	for segRows.Next() {
		var s roads.RoadSegment
		if err := segRows.Scan(&s.Key.Row, &s.Key.Col, &s.Key.Orient, &s.Type,
			&s.Condition, &s.TrafficLoad, &s.BuiltAt); err != nil {
			return nil, nil, err
		}
		seg := s
		segments = append(segments, &seg)
	}
	if err := segRows.Err(); err != nil {
		return nil, nil, err
	}

	routeRows, err := db.conn.Queryx(`SELECT id, mode, service_level, ticket_price,
		stops_json FROM transit_routes ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	defer routeRows.Close()

	var routes []*roads.TransitRoute
	for routeRows.Next() {
		var r roads.TransitRoute
		var stopsJSON string
		if err := routeRows.Scan(&r.ID, &r.Mode, &r.ServiceLevel, &r.TicketPrice, &stopsJSON); err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal([]byte(stopsJSON), &r.Stops); err != nil {
			return nil, nil, fmt.Errorf("route %s stops: %w", r.ID, err)
		}
		route := r
		routes = append(routes, &route)
	}
	return segments, routes, routeRows.Err()
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. Missing keys return ("", nil).
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SaveCityState performs a full save of all mutable city state.
func (db *DB) SaveCityState(sim *engine.Simulation) error {
	buildings := sim.Buildings()
	segments := sim.Net.Segments()
	routes := sim.Net.Routes()
	slog.Info("saving city state",
		"buildings", len(buildings), "segments", len(segments), "routes", len(routes))

	if err := db.SaveBuildings(buildings); err != nil {
		return fmt.Errorf("save buildings: %w", err)
	}
	if err := db.SaveRoads(segments, routes); err != nil {
		return fmt.Errorf("save roads: %w", err)
	}
	if err := db.SaveEvents(sim.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", sim.CurrentTick())); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("state_digest", sim.StateDigest()); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("city state saved")
	return nil
}

// RecentEvents returns the most recent N events.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}
