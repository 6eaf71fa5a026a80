package repositories

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/spotmirror/spotmirror/internal/shared"
)

// knownTables lists every table the dynamic helpers may touch. Table names
// are interpolated into SQL, so they must come from this set and never from
// user input.
var knownTables = map[string]bool{
	"tracks":          true,
	"albums":          true,
	"artists":         true,
	"playlists":       true,
	"playlist_tracks": true,
	"devices":         true,
	"users":           true,
	"tokens":          true,
	"queue":           true,
}

// BatchQuery is one parameterized statement of a transactional batch.
type BatchQuery struct {
	Query string
	Args  []any
}

// Store wraps the database handle with parameterized query helpers and
// schema lifecycle operations.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an open database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that need raw access.
func (s *Store) DB() *sql.DB {
	return s.db
}

func checkTable(table string) error {
	if !knownTables[table] {
		return &shared.InputError{Field: "table", Value: table, Want: "a known table name"}
	}
	return nil
}

// ExecQuery runs a single mutating statement and returns the number of
// affected rows.
func (s *Store) ExecQuery(query string, args ...any) (int64, error) {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}
	return rows, nil
}

// ExecBatch runs every statement inside one transaction. If any statement
// fails the whole batch rolls back and the error names the failing
// statement's position.
func (s *Store) ExecBatch(batch []BatchQuery) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &shared.StorageError{Statement: -1, Err: err}
	}
	defer tx.Rollback()

	for i, q := range batch {
		if _, err := tx.Exec(q.Query, q.Args...); err != nil {
			return &shared.StorageError{Statement: i, Query: q.Query, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &shared.StorageError{Statement: -1, Err: err}
	}
	return nil
}

// FetchRow returns the first result row as a column-name keyed map, or a
// not-found error when the query matches nothing.
func (s *Store) FetchRow(query string, args ...any) (map[string]any, error) {
	rows, err := s.fetch(query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no row for query", shared.ErrNotFound)
	}
	return rows[0], nil
}

// FetchRows returns every result row as a column-name keyed map.
func (s *Store) FetchRows(query string, args ...any) ([]map[string]any, error) {
	return s.fetch(query, args...)
}

// FetchColumn returns the first column of every result row.
func (s *Store) FetchColumn(query string, args ...any) ([]any, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}
	defer rows.Close()

	var values []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}
	return values, nil
}

func (s *Store) fetch(query string, args ...any) ([]map[string]any, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}
	return results, nil
}

// AddItemToTable upserts a row keyed by the table's primary key. Columns
// are taken from the item map; conflicting rows are replaced wholesale.
func (s *Store) AddItemToTable(table string, item map[string]any) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if len(item) == 0 {
		return &shared.InputError{Field: "item", Value: item, Want: "at least one column"}
	}

	columns := make([]string, 0, len(item))
	for col := range item {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	args := make([]any, 0, len(columns))
	placeholders := make([]string, 0, len(columns))
	for _, col := range columns {
		args = append(args, item[col])
		placeholders = append(placeholders, "?")
	}

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	_, err := s.ExecQuery(query, args...)
	return err
}

// RemoveSpecificItem deletes a row by key. Deleting an absent row is not an
// error; removal is idempotent.
func (s *Store) RemoveSpecificItem(table, keyColumn string, key any) error {
	if err := checkTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, keyColumn)
	_, err := s.ExecQuery(query, key)
	return err
}

// InitializeTables applies all pending schema migrations.
func (s *Store) InitializeTables() error {
	if err := shared.RunMigrations(s.db); err != nil {
		return fmt.Errorf("failed to initialize tables: %w", err)
	}
	return nil
}

// ResetTable drops a single table and recreates it from the versioned
// schema. Other tables keep their data.
func (s *Store) ResetTable(table string) error {
	if err := checkTable(table); err != nil {
		return err
	}

	if _, err := s.ExecQuery(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return err
	}

	// The schema uses IF NOT EXISTS throughout, so replaying it recreates
	// only the dropped objects.
	stmts, err := shared.SchemaStatements()
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := s.ExecQuery(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ResetDatabase drops every table and reapplies all migrations, returning
// the database to a pristine schema.
func (s *Store) ResetDatabase() error {
	stmts, err := shared.TeardownStatements()
	if err != nil {
		return fmt.Errorf("failed to load teardown statements: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := s.ExecQuery(stmt); err != nil {
			return err
		}
	}

	if _, err := s.ExecQuery("DROP TABLE IF EXISTS schema_migrations"); err != nil {
		return err
	}

	return s.InitializeTables()
}
