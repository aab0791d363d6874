package relm

import (
	"context"

	"github.com/coderi421/relm/internal/errs"
)

// Deleter compiles and runs DELETE statements. A delete without a where
// clause is rejected unless explicitly unguarded, 防止误删全表。
type Deleter struct {
	builder
	db        *DB
	where     []Criterion
	unguarded bool
}

func NewDeleter(db *DB, m *Model) *Deleter {
	return &Deleter{
		builder: newBuilder(m, db.dialect),
		db:      db,
	}
}

func (d *Deleter) Where(cs ...Criterion) *Deleter {
	d.where = cs
	return d
}

func (d *Deleter) Build() (*Query, error) {
	if len(d.where) == 0 && !d.unguarded {
		return nil, errs.ErrEmptyWhere
	}
	d.sb.WriteString("DELETE FROM ")
	d.quote(d.model.name)
	if len(d.where) > 0 {
		d.sb.WriteString(" WHERE ")
		if err := d.buildCriteria(d.where); err != nil {
			return nil, err
		}
	}
	d.sb.WriteByte(';')
	return &Query{
		SQL:  d.sb.String(),
		Args: d.params.Args(),
	}, nil
}

func (d *Deleter) Exec(ctx context.Context) Result {
	q, err := d.Build()
	if err != nil {
		return Result{err: err}
	}
	return d.db.exec(ctx, &QueryContext{Type: "DELETE", Model: d.model, Query: q})
}

// Remove deletes matching rows; an empty where clause is an error.
func (db *DB) Remove(ctx context.Context, m *Model, where ...Criterion) Result {
	return NewDeleter(db, m).Where(where...).Exec(ctx)
}

// RemoveAll is the explicit unguarded variant.
func (db *DB) RemoveAll(ctx context.Context, m *Model) Result {
	d := NewDeleter(db, m)
	d.unguarded = true
	return d.Exec(ctx)
}
