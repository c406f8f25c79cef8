package datarecording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
)

// ErrNoRecording is returned when a recording file does not exist.
var ErrNoRecording = errors.New("no recording")

// Filter selects rows of a table.
type Filter struct {
	// Where is a condition without the WHERE keyword, for example
	// "Time > ? AND Kind = ?".
	Where string
	Args  []any

	// OrderBy is a column list without the ORDER BY keywords.
	OrderBy string

	// Limit caps the number of rows. Zero means all of them.
	Limit  int
	Offset int
}

func (f Filter) where() string {
	if f.Where == "" {
		return ""
	}

	return " WHERE " + f.Where
}

// A RunReader reads back the tables of a recorded run.
type RunReader interface {
	// MapTable sets the entry type of a table. The tables written by
	// EventTracer and the execution info are mapped from the start.
	MapTable(table string, sampleEntry any)

	// Tables returns the tables present in the recording.
	Tables(ctx context.Context) ([]string, error)

	// Count returns the number of rows matching f.
	Count(ctx context.Context, table string, f Filter) (int, error)

	// CountBy returns the number of rows per value of a column.
	CountBy(ctx context.Context, table, column string) (map[string]int, error)

	// Query returns pointers to the entries matching f.
	Query(ctx context.Context, table string, f Filter) ([]any, error)

	Close() error
}

type sqliteReader struct {
	db      *sql.DB
	typeMap map[string]reflect.Type
}

// OpenRun opens a recording for reading. The .sqlite3 suffix the recorder
// appends may be left out.
func OpenRun(path string) (RunReader, error) {
	if !strings.HasSuffix(path, ".sqlite3") {
		path += ".sqlite3"
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRecording, path)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return NewRunReader(db), nil
}

// NewRunReader creates a RunReader on an open database.
func NewRunReader(db *sql.DB) RunReader {
	r := &sqliteReader{
		db:      db,
		typeMap: make(map[string]reflect.Type),
	}

	r.MapTable(EventTable, EventEntry{})
	r.MapTable(RoundTable, RoundEntry{})
	r.MapTable(DropTable, DropEntry{})
	r.MapTable(execTable, ExecInfo{})

	return r
}

func (r *sqliteReader) MapTable(table string, sampleEntry any) {
	r.typeMap[table] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		tables = append(tables, name)
	}

	sort.Strings(tables)

	return tables, rows.Err()
}

// entryType returns the mapped type of table. Only mapped tables are
// queried, so table names never reach SQL unchecked.
func (r *sqliteReader) entryType(table string) (reflect.Type, error) {
	t, ok := r.typeMap[table]
	if !ok {
		return nil, fmt.Errorf("table %s is not mapped", table)
	}

	return t, nil
}

func (r *sqliteReader) Count(ctx context.Context, table string, f Filter) (int, error) {
	if _, err := r.entryType(table); err != nil {
		return 0, err
	}

	var n int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table+f.where(), f.Args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}

	return n, nil
}

func (r *sqliteReader) CountBy(
	ctx context.Context,
	table, column string,
) (map[string]int, error) {
	t, err := r.entryType(table)
	if err != nil {
		return nil, err
	}

	if _, ok := t.FieldByName(column); !ok {
		return nil, fmt.Errorf("table %s has no column %s", table, column)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %[1]s, COUNT(*) FROM %[2]s GROUP BY %[1]s", column, table))
	if err != nil {
		return nil, fmt.Errorf("count %s by %s: %w", table, column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			value sql.NullString
			n     int
		)

		if err := rows.Scan(&value, &n); err != nil {
			return nil, err
		}

		counts[value.String] = n
	}

	return counts, rows.Err()
}

func (r *sqliteReader) Query(ctx context.Context, table string, f Filter) ([]any, error) {
	t, err := r.entryType(table)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + table + f.where()

	if f.OrderBy != "" {
		query += " ORDER BY " + f.OrderBy
	}

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, f.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	return scanRows(rows, t)
}

// scanRows fills one entry per row, matching columns to fields by name.
// Columns without a field are skipped.
func scanRows(rows *sql.Rows, t reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		entry := reflect.New(t)
		targets := make([]any, len(columns))

		for i, column := range columns {
			if field := entry.Elem().FieldByName(column); field.IsValid() {
				targets[i] = field.Addr().Interface()
			} else {
				targets[i] = new(any)
			}
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}

// RunSummary condenses a recorded run.
type RunSummary struct {
	Exec          []ExecInfo
	Rounds        int
	Events        int
	EventsByKind  map[string]int
	DropsByReason map[string]int
}

// Summarize reads the execution info and the event, round and drop counts
// of a run recorded with an EventTracer.
func Summarize(ctx context.Context, r RunReader) (RunSummary, error) {
	var s RunSummary

	exec, err := r.Query(ctx, execTable, Filter{})
	if err != nil {
		return s, err
	}

	for _, e := range exec {
		s.Exec = append(s.Exec, *e.(*ExecInfo))
	}

	if s.Rounds, err = r.Count(ctx, RoundTable, Filter{}); err != nil {
		return s, err
	}

	if s.Events, err = r.Count(ctx, EventTable, Filter{}); err != nil {
		return s, err
	}

	if s.EventsByKind, err = r.CountBy(ctx, EventTable, "Kind"); err != nil {
		return s, err
	}

	if s.DropsByReason, err = r.CountBy(ctx, DropTable, "Reason"); err != nil {
		return s, err
	}

	return s, nil
}
