package relm

import (
	"context"
	"fmt"
	"strings"

	"github.com/coderi421/relm/internal/errs"
)

// CreateSchema synthesizes the DDL for every defined model, in definition
// order, joined by "; ". Deterministic: column order follows field
// declaration order.
func (db *DB) CreateSchema() (string, error) {
	stmts := make([]string, 0, len(db.models))
	for _, m := range db.models {
		stmt, err := m.createTable()
		if err != nil {
			return "", err
		}
		stmts = append(stmts, stmt)
	}
	return strings.Join(stmts, "; "), nil
}

// FlushSchema executes the DDL against the engine, exactly once.
func (db *DB) FlushSchema(ctx context.Context) error {
	if db.flushedDD {
		return errs.ErrSchemaFlushed
	}
	ddl, err := db.CreateSchema()
	if err != nil {
		return err
	}
	qc := &QueryContext{Type: "DDL", Query: &Query{SQL: ddl}}
	res := db.do(ctx, qc, func(ctx context.Context, qc *QueryContext) *QueryResult {
		// DDL 不走 statement 缓存
		_, e := db.db.ExecContext(ctx, qc.Query.SQL)
		return &QueryResult{Err: e}
	})
	if res.Err != nil {
		return res.Err
	}
	db.flushedDD = true
	return nil
}

// createTable renders one CREATE TABLE statement.
func (m *Model) createTable() (string, error) {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(m.name)
	sb.WriteByte('(')
	for i, fd := range m.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := fd.writeColumnDef(&sb); err != nil {
			return "", err
		}
	}
	for _, c := range m.constraints {
		sb.WriteString(", ")
		sb.WriteString(c)
	}
	sb.WriteByte(')')
	return sb.String(), nil
}

// writeColumnDef renders one column definition. The clause order is fixed:
// type, PRIMARY KEY, UNIQUE, COLLATE, NOT NULL, DEFAULT.
func (f *field) writeColumnDef(sb *strings.Builder) error {
	sb.WriteString(f.name)
	if f.spec.Type != "" {
		sb.WriteByte(' ')
		sb.WriteString(f.spec.Type)
	}
	if f.spec.PrimaryKey {
		sb.WriteString(" PRIMARY KEY")
	}
	if f.spec.Unique {
		sb.WriteString(" UNIQUE")
	}
	if f.spec.Collate != "" {
		sb.WriteString(" COLLATE ")
		sb.WriteString(f.spec.Collate)
	}
	if f.spec.NotNull {
		sb.WriteString(" NOT NULL")
	}
	if f.spec.Default != nil {
		val, err := f.serializeValue(f.spec.Default)
		if err != nil {
			return err
		}
		sb.WriteString(" DEFAULT ")
		if s, ok := val.(string); ok {
			sb.WriteByte('\'')
			sb.WriteString(s)
			sb.WriteByte('\'')
		} else {
			fmt.Fprintf(sb, "%v", val)
		}
	}
	return nil
}
