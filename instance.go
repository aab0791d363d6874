package relm

import (
	"context"

	"github.com/coderi421/relm/internal/errs"
)

// Instance is a live record bound to one model and one DB.
// created=false 意味着库里还没有对应的行。
type Instance struct {
	model  *Model
	db     *DB
	values map[string]any

	created bool
	// rowID is the resolved key: the primary-key value, or the engine's
	// implicit row id when no field is flagged as primary key.
	rowID any

	// relations 在构造时一次性装好，之后不再重新派发
	relations map[string]Relation
}

// newInstance wires the relation accessor handles once, per the model's
// relation metadata.
func (m *Model) newInstance() *Instance {
	inst := &Instance{
		model:     m,
		db:        m.db,
		values:    make(map[string]any, len(m.fields)),
		relations: make(map[string]Relation, len(m.relations)),
	}
	for _, rd := range m.relations {
		switch rd.Kind {
		case OneToOne, ManyToOne:
			inst.relations[rd.Name] = &SingleRelation{rd: rd, owner: inst}
		case OneToMany:
			inst.relations[rd.Name] = &ManyRelation{rd: rd, owner: inst}
		case ManyToMany:
			inst.relations[rd.Name] = &MultiRelation{rd: rd, owner: inst}
		}
	}
	return inst
}

// Build creates an unpersisted instance: every declared field is filled
// from the template, else from the field's generator, else left null.
func (m *Model) Build(template map[string]any) (*Instance, error) {
	for k := range template {
		if _, ok := m.fieldMap[k]; !ok {
			return nil, errs.NewErrUnknownField(k)
		}
	}
	inst := m.newInstance()
	for _, fd := range m.fields {
		if v, ok := template[fd.name]; ok {
			inst.values[fd.name] = v
			continue
		}
		if fd.spec.Generate != nil {
			inst.values[fd.name] = fd.spec.Generate()
			continue
		}
		inst.values[fd.name] = nil
	}
	if m.pk != nil {
		inst.rowID = inst.values[m.pk.name]
	}
	return inst, nil
}

// MustBuild is Build panicking on error.
func (m *Model) MustBuild(template map[string]any) *Instance {
	inst, err := m.Build(template)
	if err != nil {
		panic(err)
	}
	return inst
}

// hydrate builds an instance from one engine row. Strict: a missing value
// for any declared field, or an unresolvable row id, is fatal.
func (m *Model) hydrate(row map[string]any, prefix string) (*Instance, error) {
	inst := m.newInstance()
	for _, fd := range m.fields {
		raw, ok := row[prefix+fd.name]
		if !ok {
			return nil, errs.NewErrMissingFieldValue(prefix + fd.name)
		}
		val, err := fd.deserializeValue(raw)
		if err != nil {
			return nil, err
		}
		inst.values[fd.name] = val
	}

	if m.pk != nil {
		pkVal := inst.values[m.pk.name]
		if pkVal == nil {
			return nil, errs.NewErrMissingFieldValue(prefix + m.pk.name)
		}
		inst.rowID = pkVal
	} else {
		raw, ok := row[prefix+rowIDAlias]
		if !ok {
			return nil, errs.NewErrMissingFieldValue(prefix + rowIDAlias)
		}
		id, ok := toInt64(raw)
		if !ok {
			return nil, errs.NewErrBadRowID(raw)
		}
		inst.rowID = id
	}
	inst.created = true
	return inst, nil
}

// hydrateJoined hydrates a companion row from join-prefixed columns.
// LEFT join 没命中时整组列都是 NULL，返回 nil 而不是报错。
func (m *Model) hydrateJoined(row map[string]any, prefix string) (*Instance, error) {
	miss := true
	for _, fd := range m.fields {
		if row[prefix+fd.name] != nil {
			miss = false
			break
		}
	}
	if miss && row[prefix+rowIDAlias] == nil {
		return nil, nil
	}
	return m.hydrate(row, prefix)
}

// Model returns the owning model.
func (i *Instance) Model() *Model {
	return i.model
}

// Created reports whether a persisted row exists for this instance.
func (i *Instance) Created() bool {
	return i.created
}

// RowID returns the resolved key, nil while unpersisted.
func (i *Instance) RowID() any {
	return i.rowID
}

// Get reads a declared field value.
func (i *Instance) Get(name string) (any, error) {
	if _, ok := i.model.fieldMap[name]; !ok {
		return nil, errs.NewErrUnknownField(name)
	}
	return i.values[name], nil
}

// MustGet is Get panicking on unknown fields; handy in tests.
func (i *Instance) MustGet(name string) any {
	v, err := i.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Set writes a declared field value. Relation names are rejected; setting
// the primary-key field also refreshes the cached row id.
func (i *Instance) Set(name string, val any) error {
	if _, ok := i.relations[name]; ok {
		return errs.NewErrRelationNotSettable(name)
	}
	if _, ok := i.model.fieldMap[name]; !ok {
		return errs.NewErrUnknownField(name)
	}
	i.values[name] = val
	if i.model.pk != nil && i.model.pk.name == name {
		i.rowID = val
	}
	return nil
}

// Has reports whether a declared field currently holds a non-null value.
func (i *Instance) Has(name string) bool {
	v, ok := i.values[name]
	return ok && v != nil
}

// Relation returns the accessor handle declared under name.
func (i *Instance) Relation(name string) (Relation, error) {
	r, ok := i.relations[name]
	if !ok {
		return nil, errs.NewErrUnknownRelation(name)
	}
	return r, nil
}

// One returns a single-valued accessor (one-to-one, many-to-one side).
func (i *Instance) One(name string) (*SingleRelation, error) {
	r, err := i.Relation(name)
	if err != nil {
		return nil, err
	}
	s, ok := r.(*SingleRelation)
	if !ok {
		return nil, errs.NewErrUnsupportedRelationKind(r.Data().Kind)
	}
	return s, nil
}

// Many returns a one-to-many accessor.
func (i *Instance) Many(name string) (*ManyRelation, error) {
	r, err := i.Relation(name)
	if err != nil {
		return nil, err
	}
	s, ok := r.(*ManyRelation)
	if !ok {
		return nil, errs.NewErrUnsupportedRelationKind(r.Data().Kind)
	}
	return s, nil
}

// Multi returns a many-to-many accessor.
func (i *Instance) Multi(name string) (*MultiRelation, error) {
	r, err := i.Relation(name)
	if err != nil {
		return nil, err
	}
	s, ok := r.(*MultiRelation)
	if !ok {
		return nil, errs.NewErrUnsupportedRelationKind(r.Data().Kind)
	}
	return s, nil
}

// Flush persists the instance: an INSERT of every set field on first
// flush, an UPDATE of the named subset (or all set fields) afterwards.
func (i *Instance) Flush(ctx context.Context, updateFields ...string) error {
	if !i.created {
		return i.insert(ctx)
	}
	return i.update(ctx, updateFields)
}

// insert writes every non-null field and records the engine's row id,
// mirroring it into the primary-key field when one is declared.
func (i *Instance) insert(ctx context.Context) error {
	b := newBuilder(i.model, i.db.dialect)
	b.sb.WriteString("INSERT INTO ")
	b.quote(i.model.name)

	var cols []*field
	for _, fd := range i.model.fields {
		if i.values[fd.name] != nil {
			cols = append(cols, fd)
		}
	}
	if len(cols) == 0 {
		b.sb.WriteString(" DEFAULT VALUES;")
	} else {
		b.sb.WriteString(" (")
		for idx, fd := range cols {
			if idx > 0 {
				b.sb.WriteString(", ")
			}
			b.quote(fd.name)
		}
		b.sb.WriteString(") VALUES (")
		for idx, fd := range cols {
			if idx > 0 {
				b.sb.WriteString(", ")
			}
			val, err := fd.serializeValue(i.values[fd.name])
			if err != nil {
				return err
			}
			b.sb.WriteString(b.params.Bind(val))
		}
		b.sb.WriteString(");")
	}

	q := &Query{SQL: b.sb.String(), Args: b.params.Args()}
	res := i.db.exec(ctx, &QueryContext{Type: "INSERT", Model: i.model, Query: q})
	if res.Err() != nil {
		return res.Err()
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if i.model.pk != nil {
		if i.values[i.model.pk.name] == nil {
			i.values[i.model.pk.name] = id
		}
		i.rowID = i.values[i.model.pk.name]
	} else {
		i.rowID = id
	}
	i.created = true
	return nil
}

// update rewrites fields keyed by the resolved primary key / row id.
func (i *Instance) update(ctx context.Context, updateFields []string) error {
	if i.rowID == nil {
		return errs.ErrInstanceNotPersisted
	}
	var cols []*field
	if len(updateFields) > 0 {
		for _, name := range updateFields {
			fd, ok := i.model.fieldMap[name]
			if !ok {
				return errs.NewErrUnknownField(name)
			}
			cols = append(cols, fd)
		}
	} else {
		for _, fd := range i.model.fields {
			if i.values[fd.name] != nil {
				cols = append(cols, fd)
			}
		}
	}
	if len(cols) == 0 {
		return nil
	}

	b := newBuilder(i.model, i.db.dialect)
	b.sb.WriteString("UPDATE ")
	b.quote(i.model.name)
	b.sb.WriteString(" SET ")
	for idx, fd := range cols {
		if idx > 0 {
			b.sb.WriteString(", ")
		}
		val, err := fd.serializeValue(i.values[fd.name])
		if err != nil {
			return err
		}
		b.quote(fd.name)
		b.sb.WriteString(" = ")
		b.sb.WriteString(b.params.Bind(val))
	}
	if err := i.writeKeyWhere(&b); err != nil {
		return err
	}
	b.sb.WriteByte(';')

	q := &Query{SQL: b.sb.String(), Args: b.params.Args()}
	res := i.db.exec(ctx, &QueryContext{Type: "UPDATE", Model: i.model, Query: q})
	return res.Err()
}

// Remove deletes the persisted row and resets the lifecycle state.
func (i *Instance) Remove(ctx context.Context) error {
	if !i.created || i.rowID == nil {
		return errs.ErrInstanceNotPersisted
	}
	b := newBuilder(i.model, i.db.dialect)
	b.sb.WriteString("DELETE FROM ")
	b.quote(i.model.name)
	if err := i.writeKeyWhere(&b); err != nil {
		return err
	}
	b.sb.WriteByte(';')

	q := &Query{SQL: b.sb.String(), Args: b.params.Args()}
	res := i.db.exec(ctx, &QueryContext{Type: "DELETE", Model: i.model, Query: q})
	if res.Err() != nil {
		return res.Err()
	}
	i.created = false
	i.rowID = nil
	return nil
}

// writeKeyWhere appends "WHERE <key> = :pN" binding the resolved row id.
func (i *Instance) writeKeyWhere(b *builder) error {
	col, err := i.model.keyColumn()
	if err != nil {
		return err
	}
	b.sb.WriteString(" WHERE ")
	b.quote(col)
	b.sb.WriteString(" = ")
	b.sb.WriteString(b.params.Bind(i.rowID))
	return nil
}
