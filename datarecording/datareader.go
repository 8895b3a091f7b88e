package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
)

// QueryParams narrows and orders a query.
type QueryParams struct {
	// Where is a filter without the WHERE keyword, such as
	// "Frame = ? AND Distance > ?".
	Where string

	// Args fill the placeholders in Where.
	Args []any

	// OrderBy is a sort clause without the ORDER BY keywords.
	OrderBy string

	// Limit caps the number of returned records. 0 means no cap.
	Limit int
}

// DataReader reads records written by a DataRecorder.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table decode to.
	// A table must be mapped before it can be queried.
	MapTable(tableName string, sampleEntry any)

	// Query returns pointers to the decoded rows of a table, together with
	// the number of rows that pass the filter regardless of Limit.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the database.
	Close() error
}

type reader struct {
	db    *sql.DB
	types map[string]reflect.Type
}

// NewReader opens a database file for reading.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return NewReaderWithDB(db)
}

// NewReaderWithDB creates a DataReader on an already opened database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &reader{
		db:    db,
		types: make(map[string]reflect.Type),
	}
}

func (r *reader) MapTable(tableName string, sampleEntry any) {
	r.types[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *reader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	rowType, ok := r.types[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		selectSQL("COUNT(*)", tableName, QueryParams{Where: params.Where}),
		params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting %s: %w", tableName, err)
	}

	rows, err := r.db.QueryContext(ctx,
		selectSQL("*", tableName, params), params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying %s: %w", tableName, err)
	}
	defer rows.Close()

	results, err := decodeRows(rows, rowType)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding %s: %w", tableName, err)
	}

	return results, total, nil
}

func selectSQL(what, tableName string, params QueryParams) string {
	var b strings.Builder

	fmt.Fprintf(&b, "SELECT %s FROM %s", what, tableName)

	if params.Where != "" {
		b.WriteString(" WHERE " + params.Where)
	}

	if params.OrderBy != "" {
		b.WriteString(" ORDER BY " + params.OrderBy)
	}

	if params.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", params.Limit)
	}

	return b.String()
}

// decodeRows scans every row into a new value of rowType. Columns without a
// field of the same name are skipped.
func decodeRows(rows *sql.Rows, rowType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		ptr := reflect.New(rowType)
		targets := make([]any, len(columns))

		for i, column := range columns {
			field := ptr.Elem().FieldByName(column)
			if field.IsValid() && field.CanSet() {
				targets[i] = field.Addr().Interface()
			} else {
				targets[i] = new(any)
			}
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, ptr.Interface())
	}

	return results, rows.Err()
}

func (r *reader) Close() error {
	return r.db.Close()
}
