package relm

import (
	"strings"

	"github.com/coderi421/relm/internal/errs"
)

// builder 是 select update delete 共用的 SQL 拼接器
type builder struct {
	sb      strings.Builder
	params  *Params
	model   *Model
	dialect Dialect
	// qualify 非空时，列名会带上表限定前缀（join 查询需要）
	qualify string
}

func newBuilder(m *Model, dialect Dialect) builder {
	return builder{
		params:  NewParams(),
		model:   m,
		dialect: dialect,
	}
}

func (b *builder) quote(name string) {
	q := b.dialect.quoter()
	b.sb.WriteByte(q)
	b.sb.WriteString(name)
	b.sb.WriteByte(q)
}

// buildColumn writes a (possibly table-qualified) column reference,
// checking that the field exists on the model being compiled.
func (b *builder) buildColumn(name string) error {
	if _, ok := b.model.fieldMap[name]; !ok {
		return errs.NewErrUnknownField(name)
	}
	b.writeColumn(name)
	return nil
}

func (b *builder) writeColumn(name string) {
	if b.qualify != "" {
		b.quote(b.qualify)
		b.sb.WriteByte('.')
	}
	b.quote(name)
}

// buildCriteria compiles a where clause. Multiple criteria are conjoined
// with AND, the way multiple operators on one field are.
func (b *builder) buildCriteria(cs []Criterion) error {
	for i, c := range cs {
		if i > 0 {
			b.sb.WriteString(" AND ")
		}
		if len(cs) > 1 {
			b.sb.WriteByte('(')
		}
		if err := b.buildCriterion(c); err != nil {
			return err
		}
		if len(cs) > 1 {
			b.sb.WriteByte(')')
		}
	}
	return nil
}

// buildCriterion recursively compiles one criterion node.
// 组合节点的每个孩子都加括号，和 teacher 的 buildExpression 一致。
func (b *builder) buildCriterion(c Criterion) error {
	switch expr := c.(type) {
	case Predicate:
		return b.buildPredicate(expr)
	case logic:
		if len(expr.children) == 0 {
			return errs.ErrEmptyCriteria
		}
		for i, child := range expr.children {
			if i > 0 {
				b.sb.WriteByte(' ')
				b.sb.WriteString(expr.op.String())
				b.sb.WriteByte(' ')
			}
			b.sb.WriteByte('(')
			if err := b.buildCriterion(child); err != nil {
				return err
			}
			b.sb.WriteByte(')')
		}
		return nil
	default:
		return errs.NewErrUnsupportedCriterion(c)
	}
}

// buildPredicate compiles a leaf comparison. Every right-hand value is
// validated and serialized through the field's metadata before binding.
func (b *builder) buildPredicate(p Predicate) error {
	fd, ok := b.model.fieldMap[p.col.name]
	if !ok {
		return errs.NewErrUnknownField(p.col.name)
	}

	o := p.op
	vals := p.vals
	if o == opIn || o == opNotIn {
		switch len(vals) {
		case 0:
			return errs.ErrEmptyInList
		case 1:
			// 单元素列表退化成等值比较
			if o == opIn {
				o = opEQ
			} else {
				o = opNE
			}
		}
	}

	b.writeColumn(fd.name)
	b.sb.WriteByte(' ')
	b.sb.WriteString(o.String())
	b.sb.WriteByte(' ')

	if o == opIn || o == opNotIn {
		b.sb.WriteByte('(')
		for i, v := range vals {
			if i > 0 {
				b.sb.WriteString(", ")
			}
			arg, err := fd.serializeValue(v)
			if err != nil {
				return err
			}
			b.sb.WriteString(b.params.Bind(arg))
		}
		b.sb.WriteByte(')')
		return nil
	}

	arg, err := fd.serializeValue(vals[0])
	if err != nil {
		return err
	}
	b.sb.WriteString(b.params.Bind(arg))
	return nil
}
