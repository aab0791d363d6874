package relm

import (
	"context"
	"database/sql"

	"github.com/coderi421/relm/internal/errs"
	lru "github.com/hashicorp/golang-lru"
)

type DBOption func(*DB)

// DB owns the connection to one embedded engine instance plus every model
// defined against it. 所有 SQL 都从这里编译、执行。
type DB struct {
	db      *sql.DB
	dialect Dialect
	mdls    []Middleware

	// models 保留定义顺序，生成 schema 时使用
	models   []*Model
	modelMap map[string]*Model

	// stmts caches prepared statements, keyed by SQL text.
	stmts     *lru.Cache
	stmtSize  int
	flushedDD bool
}

// Open opens a database handle and wraps it.
func Open(driver string, dsn string, opts ...DBOption) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return OpenDB(db, opts...)
}

// OpenDB wraps an existing *sql.DB; used with sqlmock in tests.
func OpenDB(db *sql.DB, opts ...DBOption) (*DB, error) {
	res := &DB{
		db:       db,
		dialect:  SQLite3,
		modelMap: make(map[string]*Model, 8),
		stmtSize: 256,
	}
	for _, opt := range opts {
		opt(res)
	}
	stmts, err := lru.NewWithEvict(res.stmtSize, func(key, value any) {
		// 被挤出去的语句要关掉，不然句柄会泄漏
		_ = value.(*sql.Stmt).Close()
	})
	if err != nil {
		return nil, err
	}
	res.stmts = stmts
	return res, nil
}

// MustOpen is Open panicking on error.
func MustOpen(driver string, dsn string, opts ...DBOption) *DB {
	db, err := Open(driver, dsn, opts...)
	if err != nil {
		panic(err)
	}
	return db
}

func DBWithDialect(d Dialect) DBOption {
	return func(db *DB) {
		db.dialect = d
	}
}

func DBWithMiddlewares(mdls ...Middleware) DBOption {
	return func(db *DB) {
		db.mdls = mdls
	}
}

// DBWithStmtCacheSize bounds the prepared-statement cache.
func DBWithStmtCacheSize(size int) DBOption {
	return func(db *DB) {
		db.stmtSize = size
	}
}

// Define creates a model owned by this DB. Names must be lexically valid
// identifiers and unique per DB.
func (db *DB) Define(name string) (*Model, error) {
	if !isValidName(name) {
		return nil, errs.NewErrInvalidIdentifier(name)
	}
	if _, ok := db.modelMap[name]; ok {
		return nil, errs.NewErrDuplicateModel(name)
	}
	m := &Model{
		db:          db,
		name:        name,
		fieldMap:    make(map[string]*field, 8),
		relationMap: make(map[string]*RelationData, 4),
	}
	db.models = append(db.models, m)
	db.modelMap[name] = m
	return m, nil
}

// MustDefine is Define panicking on error.
func (db *DB) MustDefine(name string) *Model {
	m, err := db.Define(name)
	if err != nil {
		panic(err)
	}
	return m
}

// Model looks up a defined model by name.
func (db *DB) Model(name string) (*Model, error) {
	m, ok := db.modelMap[name]
	if !ok {
		return nil, errs.NewErrUnknownModel(name)
	}
	return m, nil
}

// model resolves a model reference: either a *Model owned by this DB or a
// model name.
func (db *DB) model(ref any) (*Model, error) {
	switch v := ref.(type) {
	case *Model:
		if v.db != db {
			return nil, errs.NewErrUnknownModel(v.name)
		}
		return v, nil
	case string:
		return db.Model(v)
	default:
		return nil, errs.NewErrUnknownModel("")
	}
}

// Close closes every cached statement and the underlying handle.
func (db *DB) Close() error {
	db.stmts.Purge()
	return db.db.Close()
}

// stmt returns a prepared statement for the SQL text, reusing the cache.
func (db *DB) stmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if st, ok := db.stmts.Get(query); ok {
		return st.(*sql.Stmt), nil
	}
	st, err := db.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	db.stmts.Add(query, st)
	return st, nil
}

// do runs a handler through the middleware chain,
// 和 teacher 的 Deleter.Exec 一样从后往前包。
func (db *DB) do(ctx context.Context, qc *QueryContext, base Handler) *QueryResult {
	h := base
	for i := len(db.mdls) - 1; i >= 0; i-- {
		h = db.mdls[i](h)
	}
	return h(ctx, qc)
}

// queryRows executes a compiled SELECT and returns raw rows as
// column-name keyed maps.
func (db *DB) queryRows(ctx context.Context, qc *QueryContext) ([]map[string]any, error) {
	res := db.do(ctx, qc, func(ctx context.Context, qc *QueryContext) *QueryResult {
		st, err := db.stmt(ctx, qc.Query.SQL)
		if err != nil {
			return &QueryResult{Err: err}
		}
		rows, err := st.QueryContext(ctx, qc.Query.Args...)
		if err != nil {
			return &QueryResult{Err: err}
		}
		defer rows.Close()
		got, err := scanRows(rows)
		return &QueryResult{Result: got, Err: err}
	})
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Result.([]map[string]any), nil
}

// exec executes a compiled INSERT/UPDATE/DELETE.
func (db *DB) exec(ctx context.Context, qc *QueryContext) Result {
	res := db.do(ctx, qc, func(ctx context.Context, qc *QueryContext) *QueryResult {
		st, err := db.stmt(ctx, qc.Query.SQL)
		if err != nil {
			return &QueryResult{Err: err}
		}
		r, err := st.ExecContext(ctx, qc.Query.Args...)
		return &QueryResult{Result: r, Err: err}
	})
	if res.Err != nil {
		return Result{err: res.Err}
	}
	return Result{res: res.Result.(sql.Result)}
}

// scanRows drains a result set into maps keyed by column name.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// toInt64 normalizes the numeric shapes drivers hand back for row ids and
// counts.
func toInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
