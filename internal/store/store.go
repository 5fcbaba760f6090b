// Package store is the process-lifetime, in-memory SQLite database that loaded
// Ramp resources live in. Nothing is ever written to disk.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/ramp/ramp-mcp-server/internal/logging"
	"github.com/ramp/ramp-mcp-server/internal/resource"
)

const (
	Driver = "sqlite"

	DefaultMaxRows  = 500
	DefaultMaxBytes = 64 << 10
)

// ErrNoTable is returned when an operation names a table that was never loaded.
var ErrNoTable = errors.New("table does not exist")

// State of a table's most recent load.
type State string

const (
	StateLoading  State = "loading"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

// TableInfo describes a loaded table.
type TableInfo struct {
	Name     string    `json:"name"`
	LoadID   string    `json:"load_id,omitempty"`
	Columns  []string  `json:"columns"`
	Rows     int       `json:"rows"`
	Pages    int       `json:"pages"`
	State    State     `json:"state"`
	LoadedAt time.Time `json:"loaded_at"`
	Error    string    `json:"error,omitempty"`
}

// Result is the bounded outcome of a query.
type Result struct {
	Columns          []string         `json:"columns"`
	Rows             []map[string]any `json:"rows"`
	RowCount         int              `json:"row_count"`
	Truncated        bool             `json:"truncated"`
	TruncationReason string           `json:"truncation_reason,omitempty"`
}

// QueryError reports a rejected or failed query along with the statement.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Options configures a Store.
type Options struct {
	MaxRows  int
	MaxBytes int
	Logger   *logrus.Entry
}

// Store owns the in-memory database. All methods are safe for concurrent use;
// they are serialized internally.
type Store struct {
	mu     sync.Mutex
	db     *sqlx.DB
	tables map[string]*TableInfo
	opts   Options
	lg     *logrus.Entry
}

// Open creates an empty in-memory database.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	lg := opts.Logger
	if lg == nil {
		lg = logging.Discard()
	}

	db, err := sqlx.Open(Driver, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// every connection to :memory: is a separate database, so there must be
	// exactly one and it must never be recycled.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Store{
		db:     db,
		tables: make(map[string]*TableInfo),
		opts:   opts,
		lg:     lg,
	}, nil
}

// Close discards the database and every table in it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = map[string]*TableInfo{}
	return s.db.Close()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// CreateOrReplaceTable drops the resource table if it exists and creates it
// empty with the descriptor's schema.
func (s *Store) CreateOrReplaceTable(ctx context.Context, desc resource.Descriptor, loadID string) error {
	if len(desc.Columns) == 0 {
		return fmt.Errorf("%s: no columns", desc.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	defs := make([]string, len(desc.Columns))
	for i, c := range desc.Columns {
		defs[i] = quote(c.Name) + " " + c.Kind.SQLType()
	}
	table := desc.Table()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table)); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quote(table), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.tables[table] = &TableInfo{
		Name:     table,
		LoadID:   loadID,
		Columns:  desc.ColumnNames(),
		State:    StateLoading,
		LoadedAt: time.Now().UTC(),
	}
	s.lg.WithFields(logrus.Fields{"table": table, "load_id": loadID}).Debug("table created")
	return nil
}

// InsertRows appends one page of rows to a table in a single transaction. Each
// row must have one value per column, in schema order.
func (s *Store) InsertRows(ctx context.Context, table string, rows [][]any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.tables[table]
	if !ok {
		return 0, fmt.Errorf("%s: %w", table, ErrNoTable)
	}
	if len(rows) == 0 {
		info.Pages++
		return 0, nil
	}

	cols := make([]string, len(info.Columns))
	for i, c := range info.Columns {
		cols[i] = quote(c)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	prep, err := tx.PreparexContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	defer prep.Close()

	for i, row := range rows {
		if len(row) != len(cols) {
			return 0, fmt.Errorf("insert into %s: row %d has %d values, want %d", table, i, len(row), len(cols))
		}
		if _, err := prep.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("insert into %s: row %d: %w", table, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	info.Rows += len(rows)
	info.Pages++
	return len(rows), nil
}

// MarkComplete records a finished load.
func (s *Store) MarkComplete(table string) {
	s.mark(table, StateComplete, nil)
}

// MarkFailed records a load that stopped early; the rows inserted so far stay.
func (s *Store) MarkFailed(table string, cause error) {
	s.mark(table, StateFailed, cause)
}

func (s *Store) mark(table string, st State, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.tables[table]
	if !ok {
		return
	}
	info.State = st
	info.Error = ""
	if cause != nil {
		info.Error = cause.Error()
	}
}

// DropTable removes a table. It reports whether the table existed.
func (s *Store) DropTable(ctx context.Context, table string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.tables[table]
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table)); err != nil {
		return existed, fmt.Errorf("drop %s: %w", table, err)
	}
	delete(s.tables, table)
	return existed, nil
}

// Table returns the metadata of one table.
func (s *Store) Table(table string) (TableInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.tables[table]
	if !ok {
		return TableInfo{}, false
	}
	return copyInfo(info), true
}

// Tables lists the loaded tables sorted by name.
func (s *Store) Tables() []TableInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TableInfo, 0, len(s.tables))
	for _, info := range s.tables {
		out = append(out, copyInfo(info))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func copyInfo(info *TableInfo) TableInfo {
	c := *info
	c.Columns = append([]string(nil), info.Columns...)
	return c
}

// Query runs a single read-only SELECT and returns at most MaxRows rows and
// roughly MaxBytes of serialized output. Truncation is reported in the result.
func (s *Store) Query(ctx context.Context, sql string) (Result, error) {
	if err := CheckSelect(sql); err != nil {
		return Result{}, &QueryError{SQL: sql, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return Result{}, err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return Result{}, fmt.Errorf("enable query_only: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), "PRAGMA query_only = OFF"); err != nil {
			s.lg.WithError(err).Error("failed to reset query_only")
		}
	}()

	rows, err := conn.QueryxContext(ctx, sql)
	if err != nil {
		return Result{}, &QueryError{SQL: sql, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, &QueryError{SQL: sql, Err: err}
	}
	res := Result{Columns: cols, Rows: []map[string]any{}}
	size := 0
	for rows.Next() {
		if len(res.Rows) >= s.opts.MaxRows {
			res.Truncated = true
			res.TruncationReason = fmt.Sprintf("limited to %d rows; aggregate or add a LIMIT/WHERE clause", s.opts.MaxRows)
			break
		}
		m := make(map[string]any, len(cols))
		if err := rows.MapScan(m); err != nil {
			return Result{}, &QueryError{SQL: sql, Err: err}
		}
		for k, v := range m {
			if b, ok := v.([]byte); ok {
				m[k] = string(b)
			}
		}
		enc, err := json.Marshal(m)
		if err != nil {
			return Result{}, &QueryError{SQL: sql, Err: err}
		}
		if size+len(enc) > s.opts.MaxBytes {
			res.Truncated = true
			res.TruncationReason = fmt.Sprintf("limited to %s of output; select fewer columns or aggregate",
				humanize.Bytes(uint64(s.opts.MaxBytes)))
			break
		}
		size += len(enc)
		res.Rows = append(res.Rows, m)
	}
	if err := rows.Err(); err != nil {
		return Result{}, &QueryError{SQL: sql, Err: err}
	}
	res.RowCount = len(res.Rows)
	return res, nil
}
