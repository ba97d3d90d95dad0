package driver

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Store keeps persistent memory devices in a SQLite database, one row per
// written cell. Cells never written read back as the device's fill byte.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// OpenStore opens or creates the database at dbPath
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cells (
		device TEXT NOT NULL,
		addr INTEGER NOT NULL,
		val INTEGER NOT NULL,
		PRIMARY KEY (device, addr)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Device returns the persistent device called name
func (s *Store) Device(name string, size int, fill byte) *SQLiteDevice {
	return &SQLiteDevice{store: s, name: name, size: size, fill: fill}
}

// SQLiteDevice is a memory device whose cells live in a Store
type SQLiteDevice struct {
	store *Store
	name  string
	size  int
	fill  byte
}

// Size returns the capacity in bytes
func (d *SQLiteDevice) Size() int {
	return d.size
}

// ReadAt implements io.ReaderAt
func (d *SQLiteDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(d.size) {
		return 0, ErrOutOfRange
	}
	for i := range p {
		p[i] = d.fill
	}
	if len(p) == 0 {
		return 0, nil
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	if d.store.db == nil {
		return 0, ErrClosed
	}
	rows, err := d.store.db.Query(
		`SELECT addr, val FROM cells WHERE device = ? AND addr >= ? AND addr < ?`,
		d.name, off, off+int64(len(p)))
	if err != nil {
		return 0, fmt.Errorf("querying cells: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr int64
		var val int
		if err := rows.Scan(&addr, &val); err != nil {
			return 0, fmt.Errorf("scanning cell: %w", err)
		}
		p[addr-off] = byte(val)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("reading cells: %w", err)
	}
	return len(p), nil
}

// WriteAt implements io.WriterAt. All bytes are written in one transaction.
func (d *SQLiteDevice) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(d.size) {
		return 0, ErrOutOfRange
	}
	if len(p) == 0 {
		return 0, nil
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	if d.store.db == nil {
		return 0, ErrClosed
	}
	tx, err := d.store.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO cells (device, addr, val) VALUES (?, ?, ?)
		ON CONFLICT (device, addr) DO UPDATE SET val = excluded.val`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing write: %w", err)
	}
	defer stmt.Close()

	for i, b := range p {
		if _, err := stmt.Exec(d.name, off+int64(i), int(b)); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("writing cell 0x%04x: %w", off+int64(i), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing write: %w", err)
	}
	return len(p), nil
}
