package relm

import (
	"context"

	"github.com/coderi421/relm/internal/errs"
)

// Assignment is one SET column = value pair.
type Assignment struct {
	column string
	val    any
}

func Assign(column string, val any) Assignment {
	return Assignment{column: column, val: val}
}

// Updater compiles and runs bulk UPDATE statements.
type Updater struct {
	builder
	db      *DB
	assigns []Assignment
	where   []Criterion
}

func NewUpdater(db *DB, m *Model) *Updater {
	return &Updater{
		builder: newBuilder(m, db.dialect),
		db:      db,
	}
}

// Update is the entry point for bulk updates.
func (db *DB) Update(m *Model) *Updater {
	return NewUpdater(db, m)
}

func (u *Updater) Set(assigns ...Assignment) *Updater {
	u.assigns = assigns
	return u
}

func (u *Updater) Where(cs ...Criterion) *Updater {
	u.where = cs
	return u
}

// Build compiles the statement. Values are validated and serialized
// through each column's field metadata.
func (u *Updater) Build() (*Query, error) {
	if len(u.assigns) == 0 {
		return nil, errs.ErrNoAssignments
	}

	u.sb.WriteString("UPDATE ")
	u.quote(u.model.name)
	u.sb.WriteString(" SET ")
	for i, a := range u.assigns {
		if i > 0 {
			u.sb.WriteString(", ")
		}
		fd, ok := u.model.fieldMap[a.column]
		if !ok {
			return nil, errs.NewErrUnknownField(a.column)
		}
		val, err := fd.serializeValue(a.val)
		if err != nil {
			return nil, err
		}
		u.quote(fd.name)
		u.sb.WriteString(" = ")
		u.sb.WriteString(u.params.Bind(val))
	}

	if len(u.where) > 0 {
		u.sb.WriteString(" WHERE ")
		if err := u.buildCriteria(u.where); err != nil {
			return nil, err
		}
	}
	u.sb.WriteByte(';')
	return &Query{
		SQL:  u.sb.String(),
		Args: u.params.Args(),
	}, nil
}

// Exec runs the update. An empty assignment list is a silent no-op.
func (u *Updater) Exec(ctx context.Context) Result {
	if len(u.assigns) == 0 {
		return Result{res: noopResult{}}
	}
	q, err := u.Build()
	if err != nil {
		return Result{err: err}
	}
	return u.db.exec(ctx, &QueryContext{Type: "UPDATE", Model: u.model, Query: q})
}

// noopResult 是空 SET 的占位结果
type noopResult struct{}

func (noopResult) LastInsertId() (int64, error) { return 0, nil }

func (noopResult) RowsAffected() (int64, error) { return 0, nil }
