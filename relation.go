package relm

import (
	"context"

	"github.com/coderi421/relm/internal/errs"
	"github.com/gotomicro/ekit/slice"
)

// Relation is the narrow contract every accessor strategy shares. The
// concrete strategy is picked once, at instance construction.
type Relation interface {
	Name() string
	Data() *RelationData
	JoinCondition() (string, error)
}

// joinCondition derives the ON clause for joining the companion table,
// aliased by the relation name, onto the owning model.
func (rd *RelationData) joinCondition() (string, error) {
	q := string(rd.Owner.db.dialect.quoter())
	qual := func(table, col string) string {
		return q + table + q + "." + q + col + q
	}

	if rd.Kind == ManyToMany {
		// junction 是基表，companion 以关联名作别名挂上来
		ref, err := rd.Other.referencedColumn()
		if err != nil {
			return "", err
		}
		return qual(rd.Name, ref) + " = " + qual(rd.Junction.name, rd.RightFK), nil
	}
	if rd.Left {
		ref, err := rd.Other.referencedColumn()
		if err != nil {
			return "", err
		}
		return qual(rd.Owner.name, rd.ForeignKey) + " = " + qual(rd.Name, ref), nil
	}
	ownKey, err := rd.Owner.keyColumn()
	if err != nil {
		return "", err
	}
	return qual(rd.Name, rd.ForeignKey) + " = " + qual(rd.Owner.name, ownKey), nil
}

// checkOwner guards every accessor operation: the owning instance must be
// persisted.
func checkOwner(owner *Instance) error {
	if !owner.created || owner.rowID == nil {
		return errs.ErrInstanceNotPersisted
	}
	return nil
}

// checkRelated guards instances passed into link/unlink.
func checkRelated(rd *RelationData, related *Instance) error {
	if related.model != rd.Other {
		return errs.NewErrModelMismatch(rd.Other.name, related.model.name)
	}
	if !related.created || related.rowID == nil {
		return errs.ErrInstanceNotPersisted
	}
	return nil
}

// relatedKeys extracts the resolved row ids of related instances.
func relatedKeys(related []*Instance) []any {
	return slice.Map(related, func(idx int, r *Instance) any {
		return r.rowID
	})
}

// updateForeignKey bulk-sets fk to val on m for rows whose key matches.
// The key column may be the implicit row id, so the where clause is
// written directly rather than through the criteria compiler.
func updateForeignKey(ctx context.Context, m *Model, fk string, val any, keys []any) error {
	fd, ok := m.fieldMap[fk]
	if !ok {
		return errs.NewErrUnknownField(fk)
	}
	arg, err := fd.serializeValue(val)
	if err != nil {
		return err
	}
	col, err := m.keyColumn()
	if err != nil {
		return err
	}

	b := newBuilder(m, m.db.dialect)
	b.sb.WriteString("UPDATE ")
	b.quote(m.name)
	b.sb.WriteString(" SET ")
	b.quote(fk)
	b.sb.WriteString(" = ")
	b.sb.WriteString(b.params.Bind(arg))
	b.sb.WriteString(" WHERE ")
	b.quote(col)
	if len(keys) == 1 {
		b.sb.WriteString(" = ")
		b.sb.WriteString(b.params.Bind(keys[0]))
	} else {
		b.sb.WriteString(" IN (")
		for i, k := range keys {
			if i > 0 {
				b.sb.WriteString(", ")
			}
			b.sb.WriteString(b.params.Bind(k))
		}
		b.sb.WriteByte(')')
	}
	b.sb.WriteByte(';')

	q := &Query{SQL: b.sb.String(), Args: b.params.Args()}
	res := m.db.exec(ctx, &QueryContext{Type: "UPDATE", Model: m, Query: q})
	return res.Err()
}

// SingleRelation resolves to at most one companion row: one-to-one (either
// side) or the owning side of many-to-one.
type SingleRelation struct {
	rd    *RelationData
	owner *Instance
}

func (r *SingleRelation) Name() string {
	return r.rd.Name
}

func (r *SingleRelation) Data() *RelationData {
	return r.rd
}

func (r *SingleRelation) JoinCondition() (string, error) {
	return r.rd.joinCondition()
}

// Get resolves the companion: by following the own foreign key, or — on
// the companion side of a one-to-one — by searching for the row whose
// foreign key points back here. nil means not linked.
func (r *SingleRelation) Get(ctx context.Context) (*Instance, error) {
	if r.rd.Left {
		fkVal := r.owner.values[r.rd.ForeignKey]
		if fkVal == nil {
			return nil, nil
		}
		return r.owner.db.FindByPK(ctx, r.rd.Other, fkVal)
	}
	if err := checkOwner(r.owner); err != nil {
		return nil, err
	}
	return r.owner.db.FindOne(ctx, r.rd.Other, C(r.rd.ForeignKey).EQ(r.owner.rowID))
}

// Link points the relation at a persisted companion instance.
func (r *SingleRelation) Link(ctx context.Context, related *Instance) error {
	if err := checkRelated(r.rd, related); err != nil {
		return err
	}
	return r.LinkByPK(ctx, related.rowID)
}

// LinkByPK sets the foreign key and flushes only that field. On the
// companion side, the related row's foreign key is set instead.
func (r *SingleRelation) LinkByPK(ctx context.Context, pk any) error {
	if err := checkOwner(r.owner); err != nil {
		return err
	}
	if r.rd.Left {
		if err := r.owner.Set(r.rd.ForeignKey, pk); err != nil {
			return err
		}
		return r.owner.Flush(ctx, r.rd.ForeignKey)
	}
	return updateForeignKey(ctx, r.rd.Other, r.rd.ForeignKey, r.owner.rowID, []any{pk})
}

// Unlink clears the foreign key analogously to LinkByPK.
func (r *SingleRelation) Unlink(ctx context.Context) error {
	if err := checkOwner(r.owner); err != nil {
		return err
	}
	if r.rd.Left {
		if err := r.owner.Set(r.rd.ForeignKey, nil); err != nil {
			return err
		}
		return r.owner.Flush(ctx, r.rd.ForeignKey)
	}
	// companion 侧：把指向自己的行全部断开
	u := r.owner.db.Update(r.rd.Other).
		Set(Assign(r.rd.ForeignKey, nil)).
		Where(C(r.rd.ForeignKey).EQ(r.owner.rowID))
	return u.Exec(ctx).Err()
}

// ManyRelation is the "many" view of a one-to-many relation: the
// companion model carries the foreign key.
type ManyRelation struct {
	rd    *RelationData
	owner *Instance
}

func (r *ManyRelation) Name() string {
	return r.rd.Name
}

func (r *ManyRelation) Data() *RelationData {
	return r.rd
}

func (r *ManyRelation) JoinCondition() (string, error) {
	return r.rd.joinCondition()
}

// Find queries the companion model filtered by this instance's key.
func (r *ManyRelation) Find(ctx context.Context, opts *FindOptions) (*FindResult, error) {
	if err := checkOwner(r.owner); err != nil {
		return nil, err
	}
	sel := NewSelector(r.owner.db, r.rd.Other).Apply(opts)
	sel.where = append(sel.where, C(r.rd.ForeignKey).EQ(r.owner.rowID))
	return sel.All(ctx)
}

// Link points one or more persisted companion instances at this one via a
// bulk update of the shared foreign key.
func (r *ManyRelation) Link(ctx context.Context, related ...*Instance) error {
	if err := checkOwner(r.owner); err != nil {
		return err
	}
	for _, rel := range related {
		if err := checkRelated(r.rd, rel); err != nil {
			return err
		}
	}
	if len(related) == 0 {
		return nil
	}
	return updateForeignKey(ctx, r.rd.Other, r.rd.ForeignKey, r.owner.rowID, relatedKeys(related))
}

// LinkByPK is Link addressing companions by primary key.
func (r *ManyRelation) LinkByPK(ctx context.Context, pks ...any) error {
	if err := checkOwner(r.owner); err != nil {
		return err
	}
	if len(pks) == 0 {
		return nil
	}
	return updateForeignKey(ctx, r.rd.Other, r.rd.ForeignKey, r.owner.rowID, pks)
}

// Unlink clears the foreign key on the given companion instances.
func (r *ManyRelation) Unlink(ctx context.Context, related ...*Instance) error {
	if err := checkOwner(r.owner); err != nil {
		return err
	}
	for _, rel := range related {
		if err := checkRelated(r.rd, rel); err != nil {
			return err
		}
	}
	if len(related) == 0 {
		return nil
	}
	return updateForeignKey(ctx, r.rd.Other, r.rd.ForeignKey, nil, relatedKeys(related))
}

// UnlinkByPK is Unlink addressing companions by primary key.
func (r *ManyRelation) UnlinkByPK(ctx context.Context, pks ...any) error {
	if err := checkOwner(r.owner); err != nil {
		return err
	}
	if len(pks) == 0 {
		return nil
	}
	return updateForeignKey(ctx, r.rd.Other, r.rd.ForeignKey, nil, pks)
}

// UnlinkWhere clears the foreign key on linked rows matching extra
// criteria.
func (r *ManyRelation) UnlinkWhere(ctx context.Context, cs ...Criterion) error {
	if err := checkOwner(r.owner); err != nil {
		return err
	}
	where := append([]Criterion{C(r.rd.ForeignKey).EQ(r.owner.rowID)}, cs...)
	u := r.owner.db.Update(r.rd.Other).
		Set(Assign(r.rd.ForeignKey, nil)).
		Where(where...)
	return u.Exec(ctx).Err()
}

// UnlinkAll clears the foreign key on every linked row.
func (r *ManyRelation) UnlinkAll(ctx context.Context) error {
	return r.UnlinkWhere(ctx)
}

// RelationResult is what a many-to-many find returns: companion rows plus
// the junction rows that linked them.
type RelationResult struct {
	Items         []*Instance
	RelationItems []*Instance
	TotalCount    int64
}

// MultiRelation traverses a junction model.
type MultiRelation struct {
	rd    *RelationData
	owner *Instance
}

func (r *MultiRelation) Name() string {
	return r.rd.Name
}

func (r *MultiRelation) Data() *RelationData {
	return r.rd
}

func (r *MultiRelation) JoinCondition() (string, error) {
	return r.rd.joinCondition()
}

// Link inserts one junction row per persisted related instance.
func (r *MultiRelation) Link(ctx context.Context, related ...*Instance) error {
	for _, rel := range related {
		if err := checkRelated(r.rd, rel); err != nil {
			return err
		}
	}
	return r.LinkByPKUsing(ctx, nil, relatedKeys(related)...)
}

// LinkUsing is Link with extra junction-row fields from a template.
func (r *MultiRelation) LinkUsing(ctx context.Context, template map[string]any, related ...*Instance) error {
	for _, rel := range related {
		if err := checkRelated(r.rd, rel); err != nil {
			return err
		}
	}
	return r.LinkByPKUsing(ctx, template, relatedKeys(related)...)
}

// LinkByPK inserts one junction row per primary key.
func (r *MultiRelation) LinkByPK(ctx context.Context, pks ...any) error {
	return r.LinkByPKUsing(ctx, nil, pks...)
}

// LinkByPKUsing inserts junction rows seeded from template, pairing this
// instance's key with each given primary key.
func (r *MultiRelation) LinkByPKUsing(ctx context.Context, template map[string]any, pks ...any) error {
	if err := checkOwner(r.owner); err != nil {
		return err
	}
	for _, pk := range pks {
		tmpl := make(map[string]any, len(template)+2)
		for k, v := range template {
			tmpl[k] = v
		}
		tmpl[r.rd.LeftFK] = r.owner.rowID
		tmpl[r.rd.RightFK] = pk
		row, err := r.rd.Junction.Build(tmpl)
		if err != nil {
			return err
		}
		if err = row.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Unlink deletes the junction rows pairing this instance with the given
// related instances.
func (r *MultiRelation) Unlink(ctx context.Context, related ...*Instance) error {
	for _, rel := range related {
		if err := checkRelated(r.rd, rel); err != nil {
			return err
		}
	}
	return r.UnlinkByPK(ctx, relatedKeys(related)...)
}

// UnlinkByPK deletes the junction rows pairing this instance with the
// given primary keys.
func (r *MultiRelation) UnlinkByPK(ctx context.Context, pks ...any) error {
	if err := checkOwner(r.owner); err != nil {
		return err
	}
	if len(pks) == 0 {
		return nil
	}
	res := r.owner.db.Remove(ctx, r.rd.Junction,
		C(r.rd.LeftFK).EQ(r.owner.rowID),
		C(r.rd.RightFK).In(pks...))
	return res.Err()
}

// UnlinkWhere deletes this instance's junction rows matching extra
// criteria on the junction model.
func (r *MultiRelation) UnlinkWhere(ctx context.Context, cs ...Criterion) error {
	if err := checkOwner(r.owner); err != nil {
		return err
	}
	where := append([]Criterion{C(r.rd.LeftFK).EQ(r.owner.rowID)}, cs...)
	return r.owner.db.Remove(ctx, r.rd.Junction, where...).Err()
}

// UnlinkAll deletes every junction row of this instance.
func (r *MultiRelation) UnlinkAll(ctx context.Context) error {
	return r.UnlinkWhere(ctx)
}

// Find queries the junction joined to the companion model. The caller may
// not pass joins, nor criteria referencing the owning foreign key: the
// accessor owns both.
func (r *MultiRelation) Find(ctx context.Context, opts *FindOptions) (*RelationResult, error) {
	if err := checkOwner(r.owner); err != nil {
		return nil, err
	}
	if opts != nil && len(opts.Joins) > 0 {
		return nil, errs.ErrJoinNotAllowed
	}
	if opts != nil {
		for _, c := range opts.Where {
			if refersTo(c, r.rd.LeftFK) {
				return nil, errs.NewErrReservedCriterion(r.rd.LeftFK)
			}
		}
	}

	cond, err := r.rd.joinCondition()
	if err != nil {
		return nil, err
	}
	sel := NewSelector(r.owner.db, r.rd.Junction).Apply(opts)
	sel.extraJoins = []joinClause{{
		alias: r.rd.Name,
		other: r.rd.Other,
		typ:   JoinInner,
		cond:  cond,
	}}
	sel.where = append(sel.where, C(r.rd.LeftFK).EQ(r.owner.rowID))

	res, err := sel.All(ctx)
	if err != nil {
		return nil, err
	}
	return &RelationResult{
		Items:         res.Joined[r.rd.Name],
		RelationItems: res.Items,
		TotalCount:    res.TotalCount,
	}, nil
}

// refersTo walks a criterion tree looking for a column reference.
func refersTo(c Criterion, col string) bool {
	switch expr := c.(type) {
	case Predicate:
		return expr.col.name == col
	case logic:
		for _, child := range expr.children {
			if refersTo(child, col) {
				return true
			}
		}
	}
	return false
}
