// Package store persists named routes in a local SQLite database so
// exports can be re-run without keeping the original YAML or GPX files
// around.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ivlev/route2video/internal/route"
)

// ErrNotFound is returned when no stored route has the requested name.
var ErrNotFound = errors.New("route not found")

// Store wraps the SQLite handle. Safe for concurrent use; SQLite's own
// locking serializes writers.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS routes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS waypoints (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	route_id INTEGER NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	lat      REAL,
	lon      REAL
);
CREATE INDEX IF NOT EXISTS idx_waypoints_route ON waypoints(route_id, position);
`

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// WAL keeps readers unblocked during saves; foreign keys are off by
	// default in SQLite and the cascade delete depends on them.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores the route under its name, replacing any previous version
// atomically.
func (s *Store) Save(r *route.Route) error {
	if r.Name == "" {
		return fmt.Errorf("route must have a name to be saved")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM routes WHERE name = ?`, r.Name); err != nil {
		return fmt.Errorf("failed to replace route %q: %w", r.Name, err)
	}

	res, err := tx.Exec(`INSERT INTO routes (name) VALUES (?)`, r.Name)
	if err != nil {
		return fmt.Errorf("failed to insert route %q: %w", r.Name, err)
	}
	routeID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read route id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO waypoints (route_id, position, name, lat, lon) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare waypoint insert: %w", err)
	}
	defer stmt.Close()

	for i, w := range r.Waypoints {
		var lat, lon interface{}
		if w.Resolved() {
			lat, lon = *w.Lat, *w.Lon
		}
		if _, err := stmt.Exec(routeID, i, w.Name, lat, lon); err != nil {
			return fmt.Errorf("failed to insert waypoint %d of %q: %w", i, r.Name, err)
		}
	}

	return tx.Commit()
}

// Get loads one route by name.
func (s *Store) Get(name string) (*route.Route, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM routes WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up route %q: %w", name, err)
	}
	return s.loadRoute(id, name)
}

func (s *Store) loadRoute(id int64, name string) (*route.Route, error) {
	rows, err := s.db.Query(
		`SELECT name, lat, lon FROM waypoints WHERE route_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load waypoints of %q: %w", name, err)
	}
	defer rows.Close()

	r := &route.Route{Name: name}
	for rows.Next() {
		var wname string
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&wname, &lat, &lon); err != nil {
			return nil, fmt.Errorf("failed to scan waypoint of %q: %w", name, err)
		}
		w := route.Waypoint{Name: wname}
		if lat.Valid && lon.Valid {
			w.Lat, w.Lon = &lat.Float64, &lon.Float64
		}
		r.Waypoints = append(r.Waypoints, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate waypoints of %q: %w", name, err)
	}
	return r, nil
}

// LoadAll returns every stored route with its waypoints, newest first.
func (s *Store) LoadAll() ([]*route.Route, error) {
	rows, err := s.db.Query(`SELECT id, name FROM routes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}

	type entry struct {
		id   int64
		name string
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to iterate routes: %w", err)
	}

	routes := make([]*route.Route, 0, len(entries))
	for _, e := range entries {
		r, err := s.loadRoute(e.id, e.name)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, nil
}

// List returns the stored route names, newest first.
func (s *Store) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM routes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan route name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Delete removes a route and its waypoints.
func (s *Store) Delete(name string) error {
	res, err := s.db.Exec(`DELETE FROM routes WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete route %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}
