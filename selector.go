package relm

import (
	"context"

	"github.com/coderi421/relm/internal/errs"
)

// rowIDAlias is the alias of the engine's implicit row id in result sets.
// 下划线开头，声明的字段名不可能与之冲突。
const rowIDAlias = "_rowid"

type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
)

// Join requests that a declared relation be joined into a find.
type Join struct {
	Relation string
	Type     JoinType
}

// Sort describes one ORDER BY entry. Columns are compared case
// insensitively unless CaseSensitive is set.
type Sort struct {
	By            string
	Desc          bool
	CaseSensitive bool
}

// Asc sorts ascending, case insensitive.
func Asc(col string) Sort {
	return Sort{By: col}
}

// Desc sorts descending, case insensitive.
func Desc(col string) Sort {
	return Sort{By: col, Desc: true}
}

// FindOptions is the compact options carrier used by relation accessors.
type FindOptions struct {
	Where           []Criterion
	Sort            []Sort
	Limit           int
	Offset          int
	FetchTotalCount bool
	Joins           []Join
}

// FindResult carries hydrated instances plus per-join companions.
type FindResult struct {
	Items []*Instance
	// Joined maps a join alias to companion instances parallel to Items.
	// LEFT join 没命中时对应位置是 nil。
	Joined map[string][]*Instance
	// TotalCount is -1 unless FetchTotalCount was requested.
	TotalCount int64
}

// joinClause 是 Build 期解析好的 join 片段
type joinClause struct {
	alias string
	other *Model
	typ   JoinType
	cond  string
}

// Selector compiles and runs SELECT statements for one model.
type Selector struct {
	builder
	db *DB

	where     []Criterion
	sort      []Sort
	limit     int
	offset    int
	withTotal bool
	joins     []Join
	// extraJoins 由关联访问器注入，不经过 relation 名解析
	extraJoins []joinClause
}

// NewSelector creates a selector over a model.
func NewSelector(db *DB, m *Model) *Selector {
	return &Selector{
		builder: newBuilder(m, db.dialect),
		db:      db,
	}
}

// Find is the entry point for structured queries.
func (db *DB) Find(m *Model) *Selector {
	return NewSelector(db, m)
}

// Where sets the criteria; multiple criteria are conjoined.
func (s *Selector) Where(cs ...Criterion) *Selector {
	s.where = cs
	return s
}

func (s *Selector) OrderBy(sorts ...Sort) *Selector {
	s.sort = sorts
	return s
}

func (s *Selector) Limit(n int) *Selector {
	s.limit = n
	return s
}

func (s *Selector) Offset(n int) *Selector {
	s.offset = n
	return s
}

// FetchTotalCount makes All run a second COUNT(*) query with the same
// where and joins but no LIMIT.
func (s *Selector) FetchTotalCount() *Selector {
	s.withTotal = true
	return s
}

// Join adds a relation join; the companion table is aliased by the
// relation name.
func (s *Selector) Join(relation string, typ JoinType) *Selector {
	s.joins = append(s.joins, Join{Relation: relation, Type: typ})
	return s
}

// Apply folds a FindOptions into the selector.
func (s *Selector) Apply(opts *FindOptions) *Selector {
	if opts == nil {
		return s
	}
	if len(opts.Where) > 0 {
		s.where = opts.Where
	}
	if len(opts.Sort) > 0 {
		s.sort = opts.Sort
	}
	if opts.Limit > 0 {
		s.limit = opts.Limit
	}
	if opts.Offset > 0 {
		s.offset = opts.Offset
	}
	if opts.FetchTotalCount {
		s.withTotal = true
	}
	s.joins = append(s.joins, opts.Joins...)
	return s
}

// resolveJoins turns requested relation joins into concrete clauses.
func (s *Selector) resolveJoins() ([]joinClause, error) {
	clauses := make([]joinClause, 0, len(s.joins)+len(s.extraJoins))
	for _, j := range s.joins {
		rd, ok := s.model.relationMap[j.Relation]
		if !ok {
			return nil, errs.NewErrUnknownRelation(j.Relation)
		}
		if rd.Kind == ManyToMany {
			// 多对多必须经过 junction，走访问器的 Find
			return nil, errs.NewErrUnsupportedRelationKind(rd.Kind)
		}
		cond, err := rd.joinCondition()
		if err != nil {
			return nil, err
		}
		typ := j.Type
		if typ == "" {
			typ = JoinInner
		}
		clauses = append(clauses, joinClause{
			alias: rd.Name,
			other: rd.Other,
			typ:   typ,
			cond:  cond,
		})
	}
	return append(clauses, s.extraJoins...), nil
}

// Build compiles the SELECT statement.
func (s *Selector) Build() (*Query, error) {
	joins, err := s.resolveJoins()
	if err != nil {
		return nil, err
	}
	if len(joins) > 0 {
		s.qualify = s.model.name
	}

	s.sb.WriteString("SELECT ")
	if err = s.buildSelectColumns(joins); err != nil {
		return nil, err
	}
	s.sb.WriteString(" FROM ")
	s.quote(s.model.name)

	if err = s.buildJoins(joins); err != nil {
		return nil, err
	}

	if len(s.where) > 0 {
		s.sb.WriteString(" WHERE ")
		if err = s.buildCriteria(s.where); err != nil {
			return nil, err
		}
	}

	if err = s.buildOrderBy(); err != nil {
		return nil, err
	}

	if s.limit > 0 {
		s.sb.WriteString(" LIMIT ")
		s.sb.WriteString(s.params.Bind(s.limit))
	}
	if s.offset > 0 {
		s.sb.WriteString(" OFFSET ")
		s.sb.WriteString(s.params.Bind(s.offset))
	}

	s.sb.WriteByte(';')
	return &Query{
		SQL:  s.sb.String(),
		Args: s.params.Args(),
	}, nil
}

// buildSelectColumns writes the column list: every model field, the
// implicit row id when no primary key is declared, and one aliased column
// set per join.
func (s *Selector) buildSelectColumns(joins []joinClause) error {
	first := true
	writeSep := func() {
		if !first {
			s.sb.WriteString(", ")
		}
		first = false
	}

	for _, fd := range s.model.fields {
		writeSep()
		s.writeColumn(fd.name)
		if s.qualify != "" {
			s.sb.WriteString(" AS ")
			s.quote(fd.name)
		}
	}
	if s.model.pk == nil {
		col := s.dialect.rowIDColumn()
		if col == "" {
			return errs.ErrNoRowID
		}
		writeSep()
		s.writeColumn(col)
		s.sb.WriteString(" AS ")
		s.quote(rowIDAlias)
	}

	for _, j := range joins {
		for _, fd := range j.other.fields {
			writeSep()
			s.quote(j.alias)
			s.sb.WriteByte('.')
			s.quote(fd.name)
			s.sb.WriteString(" AS ")
			s.quote(j.alias + "." + fd.name)
		}
		if j.other.pk == nil {
			col := s.dialect.rowIDColumn()
			if col == "" {
				return errs.ErrNoRowID
			}
			writeSep()
			s.quote(j.alias)
			s.sb.WriteByte('.')
			s.quote(col)
			s.sb.WriteString(" AS ")
			s.quote(j.alias + "." + rowIDAlias)
		}
	}
	return nil
}

func (s *Selector) buildJoins(joins []joinClause) error {
	for _, j := range joins {
		s.sb.WriteByte(' ')
		s.sb.WriteString(string(j.typ))
		s.sb.WriteString(" JOIN ")
		s.quote(j.other.name)
		s.sb.WriteString(" AS ")
		s.quote(j.alias)
		s.sb.WriteString(" ON ")
		s.sb.WriteString(j.cond)
	}
	return nil
}

// buildOrderBy renders the explicit sort list, then the model's default
// sort for columns the caller did not already cover.
func (s *Selector) buildOrderBy() error {
	sorts := s.sort
	seen := make(map[string]struct{}, len(sorts))
	for _, so := range sorts {
		seen[so.By] = struct{}{}
	}
	for _, so := range s.model.defaultSort {
		if _, ok := seen[so.By]; !ok {
			sorts = append(sorts, so)
		}
	}
	if len(sorts) == 0 {
		return nil
	}

	s.sb.WriteString(" ORDER BY ")
	for i, so := range sorts {
		if i > 0 {
			s.sb.WriteString(", ")
		}
		if err := s.buildColumn(so.By); err != nil {
			return err
		}
		if !so.CaseSensitive {
			s.sb.WriteString(" COLLATE NOCASE")
		}
		if so.Desc {
			s.sb.WriteString(" DESC")
		} else {
			s.sb.WriteString(" ASC")
		}
	}
	return nil
}

// buildCount compiles the COUNT(*) twin query: same where and joins,
// no column list, no order, no limit.
func (s *Selector) buildCount() (*Query, error) {
	joins, err := s.resolveJoins()
	if err != nil {
		return nil, err
	}
	c := &Selector{
		builder:    newBuilder(s.model, s.dialect),
		db:         s.db,
		where:      s.where,
		extraJoins: joins,
	}
	if len(joins) > 0 {
		c.qualify = c.model.name
	}
	c.sb.WriteString("SELECT COUNT(*) FROM ")
	c.quote(c.model.name)
	if err = c.buildJoins(joins); err != nil {
		return nil, err
	}
	if len(c.where) > 0 {
		c.sb.WriteString(" WHERE ")
		if err = c.buildCriteria(c.where); err != nil {
			return nil, err
		}
	}
	c.sb.WriteByte(';')
	return &Query{SQL: c.sb.String(), Args: c.params.Args()}, nil
}

// All executes the query and hydrates every row.
func (s *Selector) All(ctx context.Context) (*FindResult, error) {
	joins, err := s.resolveJoins()
	if err != nil {
		return nil, err
	}
	q, err := s.Build()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.queryRows(ctx, &QueryContext{Type: "SELECT", Model: s.model, Query: q})
	if err != nil {
		return nil, err
	}

	res := &FindResult{TotalCount: -1}
	if len(joins) > 0 {
		res.Joined = make(map[string][]*Instance, len(joins))
	}
	for _, row := range rows {
		inst, err := s.model.hydrate(row, "")
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, inst)
		for _, j := range joins {
			companion, err := j.other.hydrateJoined(row, j.alias+".")
			if err != nil {
				return nil, err
			}
			res.Joined[j.alias] = append(res.Joined[j.alias], companion)
		}
	}

	if s.withTotal {
		cq, err := s.buildCount()
		if err != nil {
			return nil, err
		}
		total, err := s.db.countQuery(ctx, s.model, cq)
		if err != nil {
			return nil, err
		}
		res.TotalCount = total
	}
	return res, nil
}

// Get returns the first matching instance or ErrNoRows.
func (s *Selector) Get(ctx context.Context) (*Instance, error) {
	s.limit = 1
	res, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, errs.ErrNoRows
	}
	return res.Items[0], nil
}

// FindOne returns the first match or nil.
func (db *DB) FindOne(ctx context.Context, m *Model, where ...Criterion) (*Instance, error) {
	inst, err := db.FindOneChecked(ctx, m, where...)
	if err == errs.ErrNoRows {
		return nil, nil
	}
	return inst, err
}

// FindOneChecked returns the first match or ErrNoRows.
func (db *DB) FindOneChecked(ctx context.Context, m *Model, where ...Criterion) (*Instance, error) {
	return NewSelector(db, m).Where(where...).Get(ctx)
}

// FindByPK resolves a row by primary key (or implicit row id); nil when
// there is no match.
func (db *DB) FindByPK(ctx context.Context, m *Model, pk any) (*Instance, error) {
	inst, err := db.FindByPKChecked(ctx, m, pk)
	if err == errs.ErrNoRows {
		return nil, nil
	}
	return inst, err
}

// FindByPKChecked is FindByPK surfacing the miss as ErrNoRows.
func (db *DB) FindByPKChecked(ctx context.Context, m *Model, pk any) (*Instance, error) {
	if m.pk != nil {
		return db.FindOneChecked(ctx, m, C(m.pk.name).EQ(pk))
	}
	// 没有主键时按隐式 row id 查
	sel := NewSelector(db, m)
	col, err := m.keyColumn()
	if err != nil {
		return nil, err
	}
	sel.sb.WriteString("SELECT ")
	if err = sel.buildSelectColumns(nil); err != nil {
		return nil, err
	}
	sel.sb.WriteString(" FROM ")
	sel.quote(m.name)
	sel.sb.WriteString(" WHERE ")
	sel.quote(col)
	sel.sb.WriteString(" = ")
	sel.sb.WriteString(sel.params.Bind(pk))
	sel.sb.WriteByte(';')
	q := &Query{SQL: sel.sb.String(), Args: sel.params.Args()}
	rows, err := db.queryRows(ctx, &QueryContext{Type: "SELECT", Model: m, Query: q})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.ErrNoRows
	}
	return m.hydrate(rows[0], "")
}

// Count runs an unconditional SELECT COUNT(*).
func (db *DB) Count(ctx context.Context, m *Model) (int64, error) {
	b := newBuilder(m, db.dialect)
	b.sb.WriteString("SELECT COUNT(*) FROM ")
	b.quote(m.name)
	b.sb.WriteByte(';')
	return db.countQuery(ctx, m, &Query{SQL: b.sb.String()})
}

func (db *DB) countQuery(ctx context.Context, m *Model, q *Query) (int64, error) {
	rows, err := db.queryRows(ctx, &QueryContext{Type: "SELECT", Model: m, Query: q})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errs.ErrNoRows
	}
	for _, v := range rows[0] {
		if n, ok := toInt64(v); ok {
			return n, nil
		}
		return 0, errs.NewErrBadRowID(v)
	}
	return 0, errs.ErrNoRows
}
