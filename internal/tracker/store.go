// Package tracker provides persistence of tracked app records.
package tracker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Error variables for store errors
var (
	// ErrStoreCorrupted is returned when the database file cannot be parsed
	ErrStoreCorrupted = errors.New("database file is corrupted")
	// ErrItemNotFound is returned when an identifier is not tracked
	ErrItemNotFound = errors.New("package doesn't exist in database")
	// ErrItemExists is returned when adding an identifier that is already tracked
	ErrItemExists = errors.New("package is already managed")
)

// DatabaseFileName is the name of the database file inside the data directory
const DatabaseFileName = "data.json"

// legacyDateLayout is the check_date format written by earlier releases
const legacyDateLayout = "Jan 02, 2006"

// TrackedItem is the persisted state of one tracked app.
type TrackedItem struct {
	// ID is the storefront identifier (package name); it is the database key
	ID string
	// Marker is the last observed "Updated on" text, as shown on the page
	Marker string
	// LastCheckedAt is when the app was last checked
	LastCheckedAt time.Time
	// FetchCount is the number of checks performed, successful or not
	FetchCount int
	// LastError is the failure of the last check, empty on success
	LastError string
	// AddedAt is when tracking started
	AddedAt time.Time
	// LastUpdateAt is when an update was last detected
	LastUpdateAt time.Time
}

// record is the on-disk shape of a TrackedItem. check_date is kept for
// compatibility with databases written by earlier releases.
type record struct {
	LastUpdate    string     `json:"last_update"`
	CheckDate     string     `json:"check_date,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	FetchCount    int        `json:"fetch_count"`
	LastError     string     `json:"last_error,omitempty"`
	AddedAt       *time.Time `json:"added_at,omitempty"`
	LastUpdateAt  *time.Time `json:"last_update_at,omitempty"`
}

func toRecord(item TrackedItem) record {
	r := record{
		LastUpdate: item.Marker,
		FetchCount: item.FetchCount,
		LastError:  item.LastError,
	}
	if !item.LastCheckedAt.IsZero() {
		t := item.LastCheckedAt
		r.LastCheckedAt = &t
		r.CheckDate = t.Format(legacyDateLayout)
	}
	if !item.AddedAt.IsZero() {
		t := item.AddedAt
		r.AddedAt = &t
	}
	if !item.LastUpdateAt.IsZero() {
		t := item.LastUpdateAt
		r.LastUpdateAt = &t
	}
	return r
}

func fromRecord(id string, r record) TrackedItem {
	item := TrackedItem{
		ID:         id,
		Marker:     r.LastUpdate,
		FetchCount: r.FetchCount,
		LastError:  r.LastError,
	}
	if r.LastCheckedAt != nil {
		item.LastCheckedAt = *r.LastCheckedAt
	} else if r.CheckDate != "" {
		// Legacy records only carry a day-precision check date
		if t, err := time.ParseInLocation(legacyDateLayout, r.CheckDate, time.Local); err == nil {
			item.LastCheckedAt = t
		}
	}
	if r.AddedAt != nil {
		item.AddedAt = *r.AddedAt
	} else {
		item.AddedAt = item.LastCheckedAt
	}
	if r.LastUpdateAt != nil {
		item.LastUpdateAt = *r.LastUpdateAt
	}
	return item
}

// Database is an insertion-ordered set of tracked items keyed by identifier.
type Database struct {
	order []string
	items map[string]TrackedItem
}

// NewDatabase creates an empty database.
func NewDatabase() *Database {
	return &Database{items: make(map[string]TrackedItem)}
}

// Get returns the item for id.
func (d *Database) Get(id string) (TrackedItem, bool) {
	item, ok := d.items[id]
	return item, ok
}

// Has reports whether id is tracked.
func (d *Database) Has(id string) bool {
	_, ok := d.items[id]
	return ok
}

// Put inserts or replaces an item. New identifiers are appended to the order.
func (d *Database) Put(item TrackedItem) {
	if _, ok := d.items[item.ID]; !ok {
		d.order = append(d.order, item.ID)
	}
	d.items[item.ID] = item
}

// Delete removes id from the database.
func (d *Database) Delete(id string) error {
	if _, ok := d.items[id]; !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	delete(d.items, id)
	for i, key := range d.order {
		if key == id {
			d.order = append(d.order[:i:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

// Items returns copies of all items in insertion order.
func (d *Database) Items() []TrackedItem {
	items := make([]TrackedItem, 0, len(d.order))
	for _, id := range d.order {
		items = append(items, d.items[id])
	}
	return items
}

// Len returns the number of tracked items.
func (d *Database) Len() int {
	return len(d.order)
}

// MarshalJSON encodes the database as an object whose keys keep insertion order.
func (d *Database) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(toRecord(d.items[id]))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an identifier-keyed object, recording key order.
func (d *Database) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	db := NewDatabase()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", tok)
		}
		var r record
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("record %q: %w", id, err)
		}
		db.Put(fromRecord(id, r))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*d = *db
	return nil
}

// Store persists the database as a JSON file in the data directory.
type Store struct {
	// path is the file path where the database is persisted
	path string
}

// NewStore creates a store rooted at dataDir, creating the directory if needed.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{path: filepath.Join(dataDir, DatabaseFileName)}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the database from disk.
// A missing file yields an empty database. A corrupted file is moved aside to
// <path>.corrupt and an empty database is returned together with an error
// wrapping ErrStoreCorrupted, so the caller can warn and carry on.
func (s *Store) Load() (*Database, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDatabase(), nil
		}
		return nil, fmt.Errorf("failed to read database: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return NewDatabase(), nil
	}

	db := NewDatabase()
	if err := json.Unmarshal(data, db); err != nil {
		backup := s.path + ".corrupt"
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			return nil, fmt.Errorf("%w: %v (backup failed: %v)", ErrStoreCorrupted, err, renameErr)
		}
		return NewDatabase(), fmt.Errorf("%w: %v (moved to %s)", ErrStoreCorrupted, err, backup)
	}

	return db, nil
}

// Save persists the database to disk atomically.
func (s *Store) Save(db *Database) error {
	compact, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("failed to marshal database: %w", err)
	}
	var data bytes.Buffer
	if err := json.Indent(&data, compact, "", "  "); err != nil {
		return fmt.Errorf("failed to marshal database: %w", err)
	}
	data.WriteByte('\n')

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write database file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		// Clean up temp file on rename failure
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename database file: %w", err)
	}

	return nil
}
