package swap

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pagesim/mem/vm"
)

const wordBytes = 8

// SQLiteStore keeps evicted pages in a SQLite database so that they survive
// the process.
type SQLiteStore struct {
	*sql.DB

	dbName string
}

// NewSQLiteStore creates a store backed by the file <path>.sqlite3. If path
// is empty, a unique name is generated. An existing file is reused and its
// pages stay loadable until Reset is called. The MMU resets its memory when
// initialized, so a simulation always starts from an empty swap.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "pagesim_swap_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	_, err := os.Stat(filename)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Swap database created: %s\n", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	s, err := NewSQLiteStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	s.dbName = filename
	atexit.Register(func() { s.Close() })

	return s, nil
}

// NewSQLiteStoreWithDB creates a store on an already opened database.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{DB: db}

	_, err := s.Exec(`CREATE TABLE IF NOT EXISTS swap_pages (
	page INTEGER PRIMARY KEY,
	data BLOB NOT NULL
);`)
	if err != nil {
		return nil, fmt.Errorf("creating swap table: %w", err)
	}

	return s, nil
}

// Name returns the database file name, or an empty string if the store was
// created on an existing connection.
func (s *SQLiteStore) Name() string {
	return s.dbName
}

// Save writes the page content to the database.
func (s *SQLiteStore) Save(pageNumber uint64, data []vm.Word) error {
	_, err := s.Exec(
		"INSERT OR REPLACE INTO swap_pages (page, data) VALUES (?, ?)",
		int64(pageNumber), encodeWords(data))
	if err != nil {
		return fmt.Errorf("saving page 0x%x: %w", pageNumber, err)
	}

	return nil
}

// Load reads and deletes the content of a page.
func (s *SQLiteStore) Load(pageNumber uint64) ([]vm.Word, bool, error) {
	tx, err := s.Begin()
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var blob []byte

	err = tx.QueryRow(
		"SELECT data FROM swap_pages WHERE page = ?", int64(pageNumber)).
		Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("loading page 0x%x: %w", pageNumber, err)
	}

	_, err = tx.Exec(
		"DELETE FROM swap_pages WHERE page = ?", int64(pageNumber))
	if err != nil {
		return nil, false, fmt.Errorf("loading page 0x%x: %w", pageNumber, err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, false, err
	}

	return decodeWords(blob), true, nil
}

// Len returns the number of pages in the database.
func (s *SQLiteStore) Len() (int, error) {
	var n int

	err := s.QueryRow("SELECT COUNT(*) FROM swap_pages").Scan(&n)
	if err != nil {
		return 0, err
	}

	return n, nil
}

// Reset deletes every page from the database.
func (s *SQLiteStore) Reset() error {
	_, err := s.Exec("DELETE FROM swap_pages")
	if err != nil {
		return fmt.Errorf("resetting swap: %w", err)
	}

	return nil
}

func encodeWords(data []vm.Word) []byte {
	buf := make([]byte, len(data)*wordBytes)
	for i, w := range data {
		binary.LittleEndian.PutUint64(buf[i*wordBytes:], uint64(w))
	}

	return buf
}

func decodeWords(buf []byte) []vm.Word {
	data := make([]vm.Word, len(buf)/wordBytes)
	for i := range data {
		data[i] = vm.Word(binary.LittleEndian.Uint64(buf[i*wordBytes:]))
	}

	return data
}
