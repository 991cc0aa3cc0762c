package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"mosaicedit/internal/editor"
)

// Options tunes the database connection.
type Options struct {
	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration
	// Logger receives warnings about regions skipped on load. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Store represents the SQLite project store.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens or creates the SQLite database at the given path and runs migrations.
func Open(path string) (*Store, error) {
	return OpenWithOptions(path, Options{})
}

// OpenWithOptions is Open with connection options.
func OpenWithOptions(path string, opts Options) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_foreign_keys=on&_journal_mode=WAL"
	if opts.BusyTimeout > 0 {
		dsn += fmt.Sprintf("&_busy_timeout=%d", opts.BusyTimeout.Milliseconds())
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying handle for migration tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SaveProject inserts or updates a project and replaces its region list in
// one transaction. An empty ID is filled with a new one. CreatedAt is kept
// from the first save.
func (s *Store) SaveProject(p *Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO projects (id, name, video_path, duration, native_w, native_h, display_w, display_h, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			video_path = excluded.video_path,
			duration = excluded.duration,
			native_w = excluded.native_w,
			native_h = excluded.native_h,
			display_w = excluded.display_w,
			display_h = excluded.display_h,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.VideoPath, p.Duration, p.NativeWidth, p.NativeHeight,
		p.DisplayWidth, p.DisplayHeight, p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM regions WHERE project_id = ?", p.ID); err != nil {
		return fmt.Errorf("clear regions: %w", err)
	}
	if err := insertRegions(tx, p.ID, 0, p.Regions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit project: %w", err)
	}
	return nil
}

func insertRegions(tx *sql.Tx, projectID string, first int, regions []editor.Region) error {
	if len(regions) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO regions (project_id, ordinal, id, x, y, width, height, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range regions {
		if _, err := stmt.Exec(projectID, first+i, r.ID, r.X, r.Y, r.Width, r.Height, r.Start, r.End); err != nil {
			return fmt.Errorf("insert region %s: %w", r.ID, err)
		}
	}
	return nil
}

// LoadProject returns a project with its regions in z-order. Regions that
// fail validation (a zero-length window placed at the very end, a window
// past a shortened video) are dropped with a warning; the rest of the
// project still loads.
func (s *Store) LoadProject(id string) (*Project, error) {
	p := &Project{}
	var createdAt, updatedAt int64
	err := s.db.QueryRow(`
		SELECT id, name, video_path, duration, native_w, native_h, display_w, display_h, created_at, updated_at
		FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.VideoPath, &p.Duration, &p.NativeWidth, &p.NativeHeight,
		&p.DisplayWidth, &p.DisplayHeight, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load project %s: %w", id, ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	p.CreatedAt = time.Unix(0, createdAt)
	p.UpdatedAt = time.Unix(0, updatedAt)

	p.Regions, err = s.queryRegions(`
		SELECT id, x, y, width, height, start_time, end_time
		FROM regions WHERE project_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return nil, err
	}
	valid := p.Regions[:0]
	for _, r := range p.Regions {
		if err := r.Validate(p.Duration); err != nil {
			s.log.Warn("skipping invalid region", "project_id", id, "region_id", r.ID, "err", err)
			p.Skipped = append(p.Skipped, r.ID)
			continue
		}
		valid = append(valid, r)
	}
	p.Regions = valid
	return p, nil
}

// RegionsAt returns the regions of a project whose window contains t, in
// z-order.
func (s *Store) RegionsAt(projectID string, t float64) ([]editor.Region, error) {
	return s.queryRegions(`
		SELECT id, x, y, width, height, start_time, end_time
		FROM regions WHERE project_id = ? AND start_time <= ? AND end_time >= ?
		ORDER BY ordinal`, projectID, t, t)
}

func (s *Store) queryRegions(query string, args ...any) ([]editor.Region, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	var regions []editor.Region
	for rows.Next() {
		var r editor.Region
		if err := rows.Scan(&r.ID, &r.X, &r.Y, &r.Width, &r.Height, &r.Start, &r.End); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

// ListProjects returns every project, most recently updated first.
func (s *Store) ListProjects() ([]ProjectSummary, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.name, p.video_path, p.duration, p.updated_at, COUNT(r.id)
		FROM projects p LEFT JOIN regions r ON r.project_id = p.id
		GROUP BY p.id
		ORDER BY p.updated_at DESC, p.id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectSummary
	for rows.Next() {
		var ps ProjectSummary
		var updatedAt int64
		if err := rows.Scan(&ps.ID, &ps.Name, &ps.VideoPath, &ps.Duration, &updatedAt, &ps.RegionCount); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		ps.UpdatedAt = time.Unix(0, updatedAt)
		out = append(out, ps)
	}
	return out, rows.Err()
}

// DeleteProject removes a project and its regions.
func (s *Store) DeleteProject(id string) error {
	res, err := s.db.Exec("DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete project %s: %w", id, ErrProjectNotFound)
	}
	return nil
}

// AppendRegion adds a region on top of a project's existing regions. An
// empty region ID is filled with a new one.
func (s *Store) AppendRegion(projectID string, r editor.Region) (editor.Region, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return r, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM projects WHERE id = ?", projectID).Scan(&exists); err != nil {
		return r, fmt.Errorf("check project: %w", err)
	}
	if exists == 0 {
		return r, fmt.Errorf("append region: %w", ErrProjectNotFound)
	}

	var next int
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(ordinal) + 1, 0) FROM regions WHERE project_id = ?", projectID,
	).Scan(&next); err != nil {
		return r, fmt.Errorf("next ordinal: %w", err)
	}
	if err := insertRegions(tx, projectID, next, []editor.Region{r}); err != nil {
		return r, err
	}
	if err := touch(tx, projectID); err != nil {
		return r, err
	}
	return r, tx.Commit()
}

// DeleteRegion removes one region from a project. Remaining regions keep
// their relative order.
func (s *Store) DeleteRegion(projectID, regionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM regions WHERE project_id = ? AND id = ?", projectID, regionID)
	if err != nil {
		return fmt.Errorf("delete region: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete region: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete region %s: %w", regionID, ErrRegionNotFound)
	}
	if err := touch(tx, projectID); err != nil {
		return err
	}
	return tx.Commit()
}

func touch(tx *sql.Tx, projectID string) error {
	if _, err := tx.Exec("UPDATE projects SET updated_at = ? WHERE id = ?", time.Now().UnixNano(), projectID); err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return nil
}
