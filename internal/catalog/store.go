package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"capdeck/internal/config"
)

// Kind distinguishes catalog entries.
type Kind string

const (
	KindVideo Kind = "video"
	KindPhoto Kind = "photo"
)

// Item is one cataloged media file.
type Item struct {
	ID     int64
	Kind   Kind
	Target string
	Path   string
	// Alternative marks photos saved under the alternative photo root.
	Alternative bool
	SessionID   string
	CreatedAt   time.Time
}

// TargetSummary counts the media recorded for one target.
type TargetSummary struct {
	Target    string
	Videos    int
	Photos    int
	LastAdded time.Time
}

// Store is the SQLite-backed catalog.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the catalog database under the state directory and
// applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	dbPath := cfg.CatalogPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add records item. CreatedAt defaults to now. Adding a path twice updates
// the existing row.
func (s *Store) Add(ctx context.Context, item Item) (*Item, error) {
	if strings.TrimSpace(item.Path) == "" || strings.TrimSpace(item.Target) == "" {
		return nil, errors.New("catalog item requires target and path")
	}
	if item.Kind != KindVideo && item.Kind != KindPhoto {
		return nil, fmt.Errorf("unknown media kind %q", item.Kind)
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO media_items (kind, target, path, alternative, session_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
            kind = excluded.kind,
            target = excluded.target,
            alternative = excluded.alternative,
            session_id = excluded.session_id`,
		string(item.Kind),
		item.Target,
		item.Path,
		boolToInt(item.Alternative),
		nullableString(item.SessionID),
		item.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert media item: %w", err)
	}
	return s.GetByPath(ctx, item.Path)
}

const itemColumns = "id, kind, target, path, alternative, session_id, created_at"

// GetByPath returns the item stored for path, or nil.
func (s *Store) GetByPath(ctx context.Context, path string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM media_items WHERE path = ?`, path)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media item: %w", err)
	}
	return item, nil
}

// List returns the items of target, oldest first. An empty target lists
// everything.
func (s *Store) List(ctx context.Context, target string) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM media_items`
	var args []any
	if target = strings.TrimSpace(target); target != "" {
		query += ` WHERE target = ?`
		args = append(args, target)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media items: %w", err)
	}
	return items, nil
}

// Targets summarises every target with cataloged media.
func (s *Store) Targets(ctx context.Context) ([]TargetSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT target,
               SUM(CASE WHEN kind = 'video' THEN 1 ELSE 0 END),
               SUM(CASE WHEN kind = 'photo' THEN 1 ELSE 0 END),
               MAX(created_at)
        FROM media_items
        GROUP BY target
        ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("summarise targets: %w", err)
	}
	defer rows.Close()

	var out []TargetSummary
	for rows.Next() {
		var (
			summary TargetSummary
			last    string
		)
		if err := rows.Scan(&summary.Target, &summary.Videos, &summary.Photos, &last); err != nil {
			return nil, fmt.Errorf("scan target summary: %w", err)
		}
		summary.LastAdded = parseTime(last)
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate target summaries: %w", err)
	}
	return out, nil
}

// PruneMissing deletes items whose file no longer exists and returns how
// many were removed.
func (s *Store) PruneMissing(ctx context.Context) (int, error) {
	items, err := s.List(ctx, "")
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, item := range items {
		if _, statErr := os.Stat(item.Path); !errors.Is(statErr, os.ErrNotExist) {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM media_items WHERE id = ?`, item.ID); err != nil {
			return removed, fmt.Errorf("delete media item %d: %w", item.ID, err)
		}
		removed++
	}
	return removed, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*Item, error) {
	var (
		item        Item
		kind        string
		alternative int
		sessionID   sql.NullString
		created     string
	)
	if err := row.Scan(&item.ID, &kind, &item.Target, &item.Path, &alternative, &sessionID, &created); err != nil {
		return nil, err
	}
	item.Kind = Kind(kind)
	item.Alternative = alternative != 0
	item.SessionID = sessionID.String
	item.CreatedAt = parseTime(created)
	return &item, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
