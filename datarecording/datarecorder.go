// Package datarecording stores struct-shaped records in SQLite databases and
// reads them back.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the exported fields
	// of the sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of the tables created so far.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

const defaultFlushThreshold = 100000

// New creates a DataRecorder that writes to <path>.sqlite3. If path is
// empty, a unique name is generated. The file must not exist.
func New(path string) DataRecorder {
	r := NewWithDB(createDBFile(path)).(*recorder)

	atexit.Register(func() { r.Close() })

	return r
}

// NewWithDB creates a DataRecorder on an already opened database.
func NewWithDB(db *sql.DB) DataRecorder {
	return &recorder{
		db:             db,
		tables:         make(map[string]*tableBuffer),
		flushThreshold: defaultFlushThreshold,
	}
}

func createDBFile(path string) *sql.DB {
	if path == "" {
		path = "pagesim_recording_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	return db
}

// A tableBuffer holds the rows of one table that are not written yet.
type tableBuffer struct {
	rowType   reflect.Type
	insertSQL string
	rows      [][]any
}

type recorder struct {
	db *sql.DB

	tables         map[string]*tableBuffer
	pending        int
	flushThreshold int
	closed         bool
}

var columnKinds = map[reflect.Kind]bool{
	reflect.Bool:    true,
	reflect.Int:     true,
	reflect.Int8:    true,
	reflect.Int16:   true,
	reflect.Int32:   true,
	reflect.Int64:   true,
	reflect.Uint:    true,
	reflect.Uint8:   true,
	reflect.Uint16:  true,
	reflect.Uint32:  true,
	reflect.Uint64:  true,
	reflect.Float32: true,
	reflect.Float64: true,
	reflect.String:  true,
}

func columnsOf(entry any) []string {
	if reflect.TypeOf(entry).Kind() != reflect.Struct {
		panic(fmt.Sprintf("entry of type %T is not a struct", entry))
	}

	var columns []string

	for _, f := range structs.Fields(entry) {
		if !columnKinds[f.Kind()] {
			panic(fmt.Sprintf("field %s has unsupported kind %s",
				f.Name(), f.Kind()))
		}

		columns = append(columns, f.Name())
	}

	return columns
}

func (r *recorder) CreateTable(tableName string, sampleEntry any) {
	columns := columnsOf(sampleEntry)

	r.mustExec(fmt.Sprintf("CREATE TABLE %s (%s);",
		tableName, strings.Join(columns, ", ")))

	placeholders := strings.TrimSuffix(
		strings.Repeat("?, ", len(columns)), ", ")

	r.tables[tableName] = &tableBuffer{
		rowType: reflect.TypeOf(sampleEntry),
		insertSQL: fmt.Sprintf("INSERT INTO %s VALUES (%s)",
			tableName, placeholders),
	}
}

func (r *recorder) InsertData(tableName string, entry any) {
	buf, ok := r.tables[tableName]
	if !ok {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if t := reflect.TypeOf(entry); t != buf.rowType {
		panic(fmt.Sprintf("entry of type %s cannot be inserted into table %s",
			t, tableName))
	}

	buf.rows = append(buf.rows, structs.Values(entry))

	r.pending++
	if r.pending >= r.flushThreshold {
		r.Flush()
	}
}

func (r *recorder) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	return names
}

func (r *recorder) Flush() {
	if r.pending == 0 {
		return
	}

	tx, err := r.db.Begin()
	if err != nil {
		panic(err)
	}

	for _, buf := range r.tables {
		if len(buf.rows) == 0 {
			continue
		}

		writeRows(tx, buf)
		buf.rows = nil
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	r.pending = 0
}

func writeRows(tx *sql.Tx, buf *tableBuffer) {
	stmt, err := tx.Prepare(buf.insertSQL)
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	for _, row := range buf.rows {
		if _, err := stmt.Exec(row...); err != nil {
			panic(err)
		}
	}
}

func (r *recorder) Close() error {
	if r.closed {
		return nil
	}

	r.Flush()
	r.closed = true

	return r.db.Close()
}

func (r *recorder) mustExec(query string) {
	if _, err := r.db.Exec(query); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}
}
