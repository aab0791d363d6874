package relm

import (
	"database/sql"
	"strconv"

	"github.com/coderi421/relm/internal/errs"
	"github.com/gotomicro/ekit/slice"
)

// Params accumulates named placeholders and their values while a query is
// being compiled. Sub-expressions are compiled against a fork of the parent
// set: forks share one name sequence, so independently compiled fragments
// can be merged without collision.
type Params struct {
	seq  *int
	vals map[string]any
	// keys 记录绑定顺序，保证编译结果可复现
	keys []string
}

// NewParams creates an empty parameter set with a fresh name sequence.
func NewParams() *Params {
	seq := 0
	return &Params{
		seq:  &seq,
		vals: make(map[string]any, 4),
	}
}

// Fork returns an empty set sharing the receiver's name sequence.
func (p *Params) Fork() *Params {
	return &Params{
		seq:  p.seq,
		vals: make(map[string]any, 4),
	}
}

// Bind stores val under a freshly generated name and returns the
// placeholder text to splice into the SQL fragment, e.g. ":p3".
func (p *Params) Bind(val any) string {
	*p.seq++
	name := "p" + strconv.Itoa(*p.seq)
	p.vals[name] = val
	p.keys = append(p.keys, name)
	return ":" + name
}

// Merge folds o into the receiver. Placeholder names are unique per
// sequence, so a collision means the caller mixed sets from different
// compilations.
func (p *Params) Merge(o *Params) error {
	if o == nil {
		return nil
	}
	for _, k := range o.keys {
		if _, ok := p.vals[k]; ok {
			return errs.NewErrParamCollision(k)
		}
		p.vals[k] = o.vals[k]
		p.keys = append(p.keys, k)
	}
	return nil
}

// Len returns the number of bound values.
func (p *Params) Len() int {
	return len(p.keys)
}

// Value returns the bound value for a placeholder name (without the colon).
func (p *Params) Value(name string) (any, bool) {
	v, ok := p.vals[name]
	return v, ok
}

// Args renders the set as driver arguments in bind order.
func (p *Params) Args() []any {
	if len(p.keys) == 0 {
		return nil
	}
	return slice.Map(p.keys, func(idx int, name string) any {
		return sql.Named(name, p.vals[name])
	})
}
