package relm

// op 是 where 条件里的比较符号
type op string

const (
	opEQ    op = "="
	opNE    op = "!="
	opGT    op = ">"
	opGTE   op = ">="
	opLT    op = "<"
	opLTE   op = "<="
	opLike  op = "LIKE"
	opGlob  op = "GLOB"
	opIn    op = "IN"
	opNotIn op = "NOT IN"

	opAnd op = "AND"
	opOr  op = "OR"
)

func (o op) String() string {
	return string(o)
}

// Criterion 代表一个可以编译成 SQL 布尔表达式的查询条件。
// 叶子节点是 Predicate，组合节点是 And/Or。
type Criterion interface {
	criterion()
}

// Column refers to a model field inside a criterion.
type Column struct {
	name string
}

// C creates a Column, e.g. C("name").EQ("Tom").
func C(name string) Column {
	return Column{name: name}
}

// Predicate is a single comparison of a column against bound values.
type Predicate struct {
	col  Column
	op   op
	vals []any
}

func (Predicate) criterion() {}

func (c Column) EQ(val any) Predicate {
	return Predicate{col: c, op: opEQ, vals: []any{val}}
}

func (c Column) NE(val any) Predicate {
	return Predicate{col: c, op: opNE, vals: []any{val}}
}

func (c Column) GT(val any) Predicate {
	return Predicate{col: c, op: opGT, vals: []any{val}}
}

func (c Column) GTE(val any) Predicate {
	return Predicate{col: c, op: opGTE, vals: []any{val}}
}

func (c Column) LT(val any) Predicate {
	return Predicate{col: c, op: opLT, vals: []any{val}}
}

func (c Column) LTE(val any) Predicate {
	return Predicate{col: c, op: opLTE, vals: []any{val}}
}

func (c Column) Like(val any) Predicate {
	return Predicate{col: c, op: opLike, vals: []any{val}}
}

func (c Column) Glob(val any) Predicate {
	return Predicate{col: c, op: opGlob, vals: []any{val}}
}

// In compiles to `col IN (...)`. A single element degrades to EQ,
// an empty list is a compile error.
func (c Column) In(vals ...any) Predicate {
	return Predicate{col: c, op: opIn, vals: vals}
}

// NotIn compiles to `col NOT IN (...)`. A single element degrades to NE.
func (c Column) NotIn(vals ...any) Predicate {
	return Predicate{col: c, op: opNotIn, vals: vals}
}

// logic 是 AND/OR 组合节点
type logic struct {
	op       op
	children []Criterion
}

func (logic) criterion() {}

// And combines criteria; every child is parenthesized.
func And(cs ...Criterion) Criterion {
	return logic{op: opAnd, children: cs}
}

// Or combines criteria; every child is parenthesized.
func Or(cs ...Criterion) Criterion {
	return logic{op: opOr, children: cs}
}
