package nfl

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nealgriffin/gridiron/internal/logger"
)

// Persistable is implemented by objects stored in typed tables
type Persistable interface {
	GetTableName() string
	GetPrimaryKey() map[string]any
}

// defaulter lets a Persistable preset sentinel values (unplayed scores,
// absent odds) before a row scan assigns the non-NULL columns
type defaulter interface {
	InitDefaults()
}

// Row is a generic column-keyed record, used for staging tables and raw
// provider output
type Row = map[string]any

type WriteMode int

const (
	// Append inserts rows into the existing table
	Append WriteMode = iota
	// Replace drops and recreates the table with exactly these rows, in one
	// transaction: either the new table is fully visible or nothing changed
	Replace
)

// Store owns the sqlite handle. There is no package-level connection: every
// pipeline stage works through the Store it was given.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (creating if necessary) the sqlite database at path
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}
	logger.Debug("Database opened", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the raw handle for tests
func (s *Store) DB() *sql.DB {
	return s.db
}

/////////////////////////////////////////////////////////////////////////
////// Struct tag metadata
/////////////////////////////////////////////////////////////////////////

// fieldInfo describes one persisted column derived from struct tags.
// Nested stat blocks reach columns through a multi-step index path.
type fieldInfo struct {
	column  string
	dbtype  string
	primary bool
	index   bool
	agg     string
	path    []int
}

var (
	fieldCacheMu sync.Mutex
	fieldCache   = map[reflect.Type][]fieldInfo{}
)

// tableFields returns the persisted columns of a struct type, descending into
// anonymous structs (columns kept as-is) and into named fields carrying an
// `embed` tag (columns suffixed, join-key echoes dropped).
func tableFields(t reflect.Type) []fieldInfo {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	fieldCacheMu.Lock()
	defer fieldCacheMu.Unlock()
	if cached, ok := fieldCache[t]; ok {
		return cached
	}
	fields := collectFields(t, "", false, nil)
	fieldCache[t] = fields
	return fields
}

func collectFields(t reflect.Type, suffix string, embedded bool, path []int) []fieldInfo {
	var out []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Tag.Get("persist") == "false" {
			continue
		}

		fieldPath := append(append([]int{}, path...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			out = append(out, collectFields(field.Type, suffix, embedded, fieldPath)...)
			continue
		}

		if embedSuffix := field.Tag.Get("embed"); embedSuffix != "" && field.Type.Kind() == reflect.Struct {
			out = append(out, collectFields(field.Type, suffix+embedSuffix, true, fieldPath)...)
			continue
		}

		dbType := field.Tag.Get("dbtype")
		if dbType == "" {
			continue
		}

		primary := field.Tag.Get("primary") == "true"
		if embedded && primary {
			// join-key echo columns of an embedded stat block duplicate the
			// parent row's own keys and are dropped
			continue
		}

		column := field.Tag.Get("column")
		if column == "" {
			column = strings.ToLower(field.Name)
		}

		out = append(out, fieldInfo{
			column:  column + suffix,
			dbtype:  dbType,
			primary: primary && !embedded,
			index:   field.Tag.Get("index") == "true" && !embedded,
			agg:     field.Tag.Get("agg"),
			path:    fieldPath,
		})
	}
	return out
}

func fieldValue(v reflect.Value, path []int) reflect.Value {
	for _, i := range path {
		v = v.Field(i)
	}
	return v
}

// ColumnValues flattens a persisted struct into its column map, suffixed stat
// blocks included. Both the predicate evaluator and the feature builder
// consume this view.
func ColumnValues(obj any) map[string]any {
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	out := make(map[string]any)
	for _, f := range tableFields(v.Type()) {
		out[f.column] = fieldValue(v, f.path).Interface()
	}
	return out
}

/////////////////////////////////////////////////////////////////////////
////// Typed tables
/////////////////////////////////////////////////////////////////////////

// CreateTable creates the table and indexes for the given persistable object
func (s *Store) CreateTable(obj Persistable) error {
	tableName := obj.GetTableName()
	createSQL := generateCreateTableSQL(obj, tableName)

	logger.Debug("Creating table with SQL", createSQL)

	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	for _, query := range generateIndexSQL(obj, tableName) {
		if _, err := s.db.Exec(query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}
	return nil
}

func generateCreateTableSQL(obj any, tableName string) string {
	var columns []string
	var primaryKeys []string

	for _, f := range tableFields(reflect.TypeOf(obj)) {
		dbType := f.dbtype
		if f.primary {
			primaryKeys = append(primaryKeys, f.column)
			dbType = strings.TrimSpace(strings.ReplaceAll(dbType, "PRIMARY KEY", ""))
		}
		columns = append(columns, fmt.Sprintf("%s %s", f.column, dbType))
	}

	if len(primaryKeys) > 0 {
		columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(columns, ", "))
}

func generateIndexSQL(obj any, tableName string) []string {
	var out []string
	for _, f := range tableFields(reflect.TypeOf(obj)) {
		if !f.index {
			continue
		}
		indexName := fmt.Sprintf("idx_%s_%s", tableName, f.column)
		out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexName, tableName, f.column))
	}
	return out
}

// bindValue converts a field value to something the driver stores sensibly:
// NaN floats become NULL, bools become 0/1
func bindValue(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return t
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return t.UTC().Format(time.RFC3339)
	default:
		return v
	}
}

func insertData(obj any) (columns []string, placeholders []string, values []any) {
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for _, f := range tableFields(v.Type()) {
		columns = append(columns, f.column)
		placeholders = append(placeholders, "?")
		values = append(values, bindValue(fieldValue(v, f.path).Interface()))
	}
	return
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func buildWhereClause(primaryKey map[string]any) (string, []any) {
	// deterministic order keeps the statement cache warm
	cols := make([]string, 0, len(primaryKey))
	for c := range primaryKey {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var conditions []string
	var values []any
	for _, c := range cols {
		conditions = append(conditions, fmt.Sprintf("%s = ?", c))
		values = append(values, bindValue(primaryKey[c]))
	}
	return strings.Join(conditions, " AND "), values
}

func saveOn(e execer, obj Persistable) error {
	tableName := obj.GetTableName()
	whereClause, whereValues := buildWhereClause(obj.GetPrimaryKey())

	var count int
	err := e.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, whereClause), whereValues...).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check existence in %s: %w", tableName, err)
	}

	columns, placeholders, values := insertData(obj)

	if count > 0 {
		var setPairs []string
		var setValues []any
		pk := obj.GetPrimaryKey()
		for i, col := range columns {
			if _, isKey := pk[col]; isKey {
				continue
			}
			setPairs = append(setPairs, fmt.Sprintf("%s = ?", col))
			setValues = append(setValues, values[i])
		}
		setValues = append(setValues, whereValues...)
		query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", tableName, strings.Join(setPairs, ", "), whereClause)
		if _, err := e.Exec(query, setValues...); err != nil {
			return fmt.Errorf("failed to update %s: %w", tableName, err)
		}
		return nil
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := e.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", tableName, err)
	}
	return nil
}

// Save persists the object, inserting or updating on its primary key
func (s *Store) Save(obj Persistable) error {
	return saveOn(s.db, obj)
}

// BulkSave saves multiple objects in a single transaction
func (s *Store) BulkSave(objects []Persistable) error {
	if len(objects) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, obj := range objects {
		if err := saveOn(tx, obj); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceAll drops and recreates the object's table with exactly the given
// rows, atomically: a failure rolls the whole table back
func (s *Store) ReplaceAll(prototype Persistable, objects []Persistable) error {
	tableName := prototype.GetTableName()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", tableName)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	if _, err := tx.Exec(generateCreateTableSQL(prototype, tableName)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	for _, obj := range objects {
		columns, placeholders, values := insertData(obj)
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.Exec(query, values...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", tableName, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace of %s: %w", tableName, err)
	}

	// indexes sit outside the transaction; they are recreated idempotently
	for _, query := range generateIndexSQL(prototype, tableName) {
		if _, err := s.db.Exec(query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}

	logger.Debug("Replaced table", tableName, "with rows", len(objects))
	return nil
}

// FindWhere retrieves objects of the prototype's type matching the predicate.
// A nil predicate returns every row.
func (s *Store) FindWhere(prototype Persistable, pred Predicate) ([]Persistable, error) {
	tableName := prototype.GetTableName()
	fields := tableFields(reflect.TypeOf(prototype))

	var columns []string
	for _, f := range fields {
		columns = append(columns, f.column)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), tableName)
	var args []any
	if pred != nil {
		where, a := pred.SQL()
		query += " WHERE " + where
		args = a
	}

	logger.Debug("FindWhere SQL", query)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	objType := reflect.TypeOf(prototype)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}

	var results []Persistable
	for rows.Next() {
		newObj := reflect.New(objType).Interface()
		if d, ok := newObj.(defaulter); ok {
			d.InitDefaults()
		}

		raw := make([]any, len(fields))
		dests := make([]any, len(fields))
		for i := range raw {
			dests[i] = &raw[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}

		v := reflect.ValueOf(newObj).Elem()
		for i, f := range fields {
			if raw[i] == nil {
				continue // NULL keeps the sentinel from InitDefaults
			}
			if err := assignScanned(fieldValue(v, f.path), raw[i]); err != nil {
				return nil, fmt.Errorf("failed to assign column %s of %s: %w", f.column, tableName, err)
			}
		}

		results = append(results, newObj.(Persistable))
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}
	return results, nil
}

// assignScanned converts a driver value onto a struct field
func assignScanned(dest reflect.Value, raw any) error {
	switch dest.Kind() {
	case reflect.String:
		switch t := raw.(type) {
		case string:
			dest.SetString(t)
		case []byte:
			dest.SetString(string(t))
		default:
			dest.SetString(fmt.Sprintf("%v", t))
		}
	case reflect.Int, reflect.Int32, reflect.Int64:
		switch t := raw.(type) {
		case int64:
			dest.SetInt(t)
		case float64:
			dest.SetInt(int64(t))
		default:
			return fmt.Errorf("cannot assign %T to integer field", raw)
		}
	case reflect.Float64:
		switch t := raw.(type) {
		case float64:
			dest.SetFloat(t)
		case int64:
			dest.SetFloat(float64(t))
		default:
			return fmt.Errorf("cannot assign %T to float field", raw)
		}
	case reflect.Bool:
		switch t := raw.(type) {
		case int64:
			dest.SetBool(t != 0)
		case bool:
			dest.SetBool(t)
		default:
			return fmt.Errorf("cannot assign %T to bool field", raw)
		}
	case reflect.Struct:
		if dest.Type() == reflect.TypeOf(time.Time{}) {
			switch t := raw.(type) {
			case time.Time:
				dest.Set(reflect.ValueOf(t))
			case string:
				if parsed, err := time.Parse(time.RFC3339, t); err == nil {
					dest.Set(reflect.ValueOf(parsed))
				}
			case []byte:
				if parsed, err := time.Parse(time.RFC3339, string(t)); err == nil {
					dest.Set(reflect.ValueOf(parsed))
				}
			}
			return nil
		}
		return fmt.Errorf("cannot assign %T to struct field", raw)
	default:
		return fmt.Errorf("unsupported field kind %s", dest.Kind())
	}
	return nil
}

/////////////////////////////////////////////////////////////////////////
////// Raw staging tables
/////////////////////////////////////////////////////////////////////////

// TableExists reports whether a table is present in the database
func (s *Store) TableExists(name string) (bool, error) {
	var found string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return true, nil
}

// rawColumns derives a deterministic column list from the union of row keys
func rawColumns(rows []Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func sniffColumnType(rows []Row, col string) string {
	for _, row := range rows {
		switch row[col].(type) {
		case nil:
			continue
		case int, int64:
			return "INTEGER"
		case float64, float32:
			return "REAL"
		case bool:
			return "INTEGER"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

// WriteRaw persists generic rows into a staging table, inferring the schema
// from the rows themselves. Replace mode is atomic per table and always
// rebuilds it, even when rows is empty, so stale contents never survive a
// refresh; the fallback columns supply the schema when there are no rows to
// infer it from. Appending nothing is a no-op.
func (s *Store) WriteRaw(name string, rows []Row, mode WriteMode, fallback ...string) error {
	if len(rows) == 0 && mode == Append {
		logger.Debug("No rows to append to", name)
		return nil
	}

	cols := rawColumns(rows)
	if len(cols) == 0 {
		cols = fallback
	}
	if len(cols) == 0 {
		return fmt.Errorf("no rows or fallback columns for table %s", name)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if mode == Replace {
		if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", name)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", name, err)
		}
	}

	var defs []string
	for _, c := range cols {
		defs = append(defs, fmt.Sprintf("%s %s", c, sniffColumnType(rows, c)))
	}
	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", "))
	if _, err := tx.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(cols, ", "), placeholders)
	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", name, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		values := make([]any, len(cols))
		for i, c := range cols {
			if v, ok := row[c]; ok {
				values[i] = bindValue(v)
			}
		}
		if _, err := stmt.Exec(values...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write to %s: %w", name, err)
	}
	logger.Debug("Wrote rows to", name, len(rows))
	return nil
}

// ReadRaw loads rows from a staging table, optionally filtered. The returned
// maps use driver-native types; callers convert with the util helpers.
func (s *Store) ReadRaw(name string, pred Predicate) ([]Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s", name)
	var args []any
	if pred != nil {
		where, a := pred.SQL()
		query += " WHERE " + where
		args = a
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		if pred != nil {
			return nil, fmt.Errorf("failed to query %s with filter %q: %w", name, pred.String(), err)
		}
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}

	var out []Row
	for rows.Next() {
		raw := make([]any, len(cols))
		dests := make([]any, len(cols))
		for i := range raw {
			dests[i] = &raw[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", name, err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := raw[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = raw[i]
			}
		}
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", name, err)
	}
	return out, nil
}

// SeasonWeekKeys returns the distinct (season, week) pairs already persisted
// in a table, used to dedupe provider imports
func (s *Store) SeasonWeekKeys(table string) (map[SeasonWeek]bool, error) {
	exists, err := s.TableExists(table)
	if err != nil {
		return nil, err
	}
	keys := make(map[SeasonWeek]bool)
	if !exists {
		return keys, nil
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT DISTINCT season, week FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read season/week keys from %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var season, week int
		if err := rows.Scan(&season, &week); err != nil {
			return nil, fmt.Errorf("failed to scan season/week key from %s: %w", table, err)
		}
		keys[SeasonWeek{Season: season, Week: week}] = true
	}
	return keys, rows.Err()
}
