// Package db is the SQLite content library: saved records, their version
// history, tags, and variation links.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/qninhdt/rpg-forge/internal/content"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
	"github.com/qninhdt/rpg-forge/internal/language"
)

// DB wraps database operations
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// Record is a saved piece of content
type Record struct {
	ID        string            `json:"id"`
	UserID    string            `json:"-"`
	Type      content.Type      `json:"type"`
	Name      string            `json:"name"`
	Scenario  string            `json:"scenario"`
	Language  language.Language `json:"language"`
	Source    string            `json:"source"`
	Content   content.Generated `json:"content"`
	ParentID  string            `json:"parentId,omitempty"`
	Version   int               `json:"version"`
	Tags      []string          `json:"tags"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Version is one entry of a record's history
type Version struct {
	Version   int               `json:"version"`
	Content   content.Generated `json:"content"`
	Note      string            `json:"note,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// ListFilter narrows ListContents. Zero fields are ignored.
type ListFilter struct {
	Type   content.Type
	Tag    string
	Search string
	Limit  int
	Offset int
}

const defaultListLimit = 50

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}

	// Run migrations
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs database migrations
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contents (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		scenario TEXT NOT NULL,
		language TEXT NOT NULL,
		source TEXT NOT NULL,
		payload TEXT NOT NULL,
		parent_id TEXT,
		version INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS content_versions (
		content_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		payload TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		PRIMARY KEY (content_id, version),
		FOREIGN KEY (content_id) REFERENCES contents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS content_tags (
		content_id TEXT NOT NULL,
		tag TEXT NOT NULL,
		PRIMARY KEY (content_id, tag),
		FOREIGN KEY (content_id) REFERENCES contents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_contents_user_id ON contents(user_id);
	CREATE INDEX IF NOT EXISTS idx_contents_parent_id ON contents(parent_id);
	CREATE INDEX IF NOT EXISTS idx_content_tags_tag ON content_tags(tag);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveContent stores a new record as version 1. ID, version and timestamps
// are assigned here; a parent must belong to the same user.
func (db *DB) SaveContent(rec *Record) error {
	if rec.UserID == "" {
		return rpgerr.Unauthenticated("missing user id")
	}
	if !rec.Content.Type.Valid() || rec.Content.Payload == nil {
		return rpgerr.InvalidArgument("content is empty")
	}
	payload, err := json.Marshal(rec.Content)
	if err != nil {
		return rpgerr.Wrap(err, "failed to encode content")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if rec.ParentID != "" {
		if err := db.checkOwner(rec.ParentID, rec.UserID); err != nil {
			return err
		}
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	rec.ID = uuid.New().String()
	rec.Type = rec.Content.Type
	rec.Name = rec.Content.DisplayName()
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err = tx.Exec(`
		INSERT INTO contents (
			id, user_id, type, name, scenario, language, source, payload,
			parent_id, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, string(rec.Type), rec.Name, rec.Scenario, string(rec.Language),
		rec.Source, string(payload), nullString(rec.ParentID), rec.Version, now, now)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO content_versions (content_id, version, payload, note, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.Version, string(payload), "created", now)
	if err != nil {
		return err
	}

	if err := insertTags(tx, rec.ID, rec.Tags); err != nil {
		return err
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}

	return tx.Commit()
}

// GetContent loads a record owned by userID
func (db *DB) GetContent(id, userID string) (*Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := db.checkOwner(id, userID); err != nil {
		return nil, err
	}
	row := db.conn.QueryRow(selectContents+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	if rec.Tags, err = db.loadTags(id); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListContents returns the user's records, most recently updated first
func (db *DB) ListContents(userID string, f ListFilter) ([]*Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := selectContents + ` WHERE user_id = ?`
	args := []interface{}{userID}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.Tag != "" {
		query += ` AND id IN (SELECT content_id FROM content_tags WHERE tag = ?)`
		args = append(args, strings.ToLower(f.Tag))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		query += ` AND (lower(name) LIKE ? ESCAPE '\' OR lower(scenario) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY updated_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	return db.queryRecords(query, args...)
}

// ListVariations returns the records generated from parentID
func (db *DB) ListVariations(parentID, userID string) ([]*Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := db.checkOwner(parentID, userID); err != nil {
		return nil, err
	}
	return db.queryRecords(selectContents+` WHERE parent_id = ? AND user_id = ? ORDER BY created_at ASC, rowid ASC`, parentID, userID)
}

// UpdatePayload replaces a record's content and appends a version
func (db *DB) UpdatePayload(id, userID string, g content.Generated, note string) (*Record, error) {
	payload, err := json.Marshal(g)
	if err != nil {
		return nil, rpgerr.Wrap(err, "failed to encode content")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOwner(id, userID); err != nil {
		return nil, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var (
		version int
		current string
	)
	if err := tx.QueryRow(`SELECT version, type FROM contents WHERE id = ?`, id).Scan(&version, &current); err != nil {
		return nil, err
	}
	if content.Type(current) != g.Type {
		return nil, rpgerr.InvalidArgumentf("cannot replace a %s with a %s", current, g.Type)
	}
	version++
	now := time.Now().UTC()

	_, err = tx.Exec(`
		UPDATE contents SET payload = ?, name = ?, version = ?, updated_at = ?
		WHERE id = ?
	`, string(payload), g.DisplayName(), version, now, id)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(`
		INSERT INTO content_versions (content_id, version, payload, note, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, version, string(payload), note, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	rec, err := scanRecord(db.conn.QueryRow(selectContents+` WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if rec.Tags, err = db.loadTags(id); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListVersions returns a record's history, oldest first
func (db *DB) ListVersions(id, userID string) ([]Version, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := db.checkOwner(id, userID); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
		SELECT version, payload, note, created_at FROM content_versions
		WHERE content_id = ? ORDER BY version ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []Version{}
	for rows.Next() {
		var (
			v       Version
			payload string
		)
		if err := rows.Scan(&v.Version, &payload, &v.Note, &v.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &v.Content); err != nil {
			return nil, rpgerr.Wrapf(err, "corrupt version %d of %s", v.Version, id)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// SetTags replaces a record's tags
func (db *DB) SetTags(id, userID string, tags []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOwner(id, userID); err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM content_tags WHERE content_id = ?`, id); err != nil {
		return err
	}
	if err := insertTags(tx, id, tags); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE contents SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteContent deletes a record and its history. Variations of it are kept
// and lose their parent link.
func (db *DB) DeleteContent(id, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkOwner(id, userID); err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM content_tags WHERE content_id = ?`,
		`DELETE FROM content_versions WHERE content_id = ?`,
		`UPDATE contents SET parent_id = NULL WHERE parent_id = ?`,
		`DELETE FROM contents WHERE id = ?`,
	} {
		if _, err := tx.Exec(stmt, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// checkOwner returns NOT_FOUND for a missing record and PERMISSION_DENIED
// when it belongs to someone else. Callers hold the lock.
func (db *DB) checkOwner(id, userID string) error {
	var owner string
	err := db.conn.QueryRow(`SELECT user_id FROM contents WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return rpgerr.NotFoundf("content %s not found", id)
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return rpgerr.PermissionDenied("access denied")
	}
	return nil
}

const selectContents = `
	SELECT id, user_id, type, name, scenario, language, source, payload,
	       parent_id, version, created_at, updated_at
	FROM contents`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec      Record
		typ      string
		lang     string
		payload  string
		parentID sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.UserID, &typ, &rec.Name, &rec.Scenario, &lang, &rec.Source,
		&payload, &parentID, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rpgerr.NotFoundf("content not found")
	}
	if err != nil {
		return nil, err
	}
	rec.Type = content.Type(typ)
	rec.Language = language.Language(lang)
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(payload), &rec.Content); err != nil {
		return nil, rpgerr.Wrapf(err, "corrupt content %s", rec.ID)
	}
	return &rec, nil
}

func (db *DB) queryRecords(query string, args ...interface{}) ([]*Record, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, rec := range records {
		if rec.Tags, err = db.loadTags(rec.ID); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (db *DB) loadTags(id string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT tag FROM content_tags WHERE content_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func insertTags(tx *sql.Tx, id string, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO content_tags (content_id, tag) VALUES (?, ?)`, id, strings.ToLower(tag)); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
