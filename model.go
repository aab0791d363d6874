package relm

import (
	"github.com/coderi421/relm/internal/errs"
)

// Model 描述一张表：字段、约束以及与其它模型的关联。
// Models are created through DB.Define only and belong to exactly one DB.
type Model struct {
	db   *DB
	name string

	// fields 保留声明顺序，生成 DDL 和 SELECT 列时使用
	fields   []*field
	fieldMap map[string]*field
	pk       *field

	constraints []string

	relations   []*RelationData
	relationMap map[string]*RelationData

	defaultSort []Sort
}

// Name returns the table name.
func (m *Model) Name() string {
	return m.name
}

// AddField appends a column in declaration order.
// A second primary-key field is rejected: compound keys are not supported,
// every row is keyed by a single scalar.
func (m *Model) AddField(name string, spec FieldSpec) error {
	if !isValidName(name) {
		return errs.NewErrInvalidIdentifier(name)
	}
	if m.reserved(name) {
		return errs.NewErrDuplicateField(m.name, name)
	}
	if spec.PrimaryKey && m.pk != nil {
		return errs.NewErrMultiplePrimaryKeys(m.name)
	}
	fd := &field{name: name, spec: spec}
	m.fields = append(m.fields, fd)
	m.fieldMap[name] = fd
	if spec.PrimaryKey {
		m.pk = fd
	}
	return nil
}

// MustAddField is AddField panicking on error; chainable, convenient when
// declaring schemas at startup.
func (m *Model) MustAddField(name string, spec FieldSpec) *Model {
	if err := m.AddField(name, spec); err != nil {
		panic(err)
	}
	return m
}

// AddConstraint appends a free-text table constraint, e.g. "UNIQUE(a, b)".
// DDL 中的标识符都经过校验，不需要引号。
func (m *Model) AddConstraint(text string) *Model {
	m.constraints = append(m.constraints, text)
	return m
}

// DefaultSort sets the sort applied by Find when the caller does not
// configure one.
func (m *Model) DefaultSort(sorts ...Sort) *Model {
	m.defaultSort = sorts
	return m
}

// PrimaryKeyField returns the declared primary-key field name, or "".
func (m *Model) PrimaryKeyField() string {
	if m.pk == nil {
		return ""
	}
	return m.pk.name
}

// keyColumn is the column every update/delete is keyed by: the declared
// primary key, or the engine's implicit row id.
func (m *Model) keyColumn() (string, error) {
	if m.pk != nil {
		return m.pk.name, nil
	}
	if col := m.db.dialect.rowIDColumn(); col != "" {
		return col, nil
	}
	return "", errs.ErrNoRowID
}

// referencedColumn is what a FOREIGN KEY pointing at this model references.
func (m *Model) referencedColumn() (string, error) {
	return m.keyColumn()
}

// reserved reports whether name is taken by a field or a relation.
// 关联名和字段名共享一个命名空间。
func (m *Model) reserved(name string) bool {
	if _, ok := m.fieldMap[name]; ok {
		return true
	}
	_, ok := m.relationMap[name]
	return ok
}

// RelationKind tags the four relation variants.
type RelationKind uint8

const (
	OneToOne RelationKind = iota + 1
	ManyToOne
	OneToMany
	ManyToMany
)

// RelationData is the metadata recorded per declared relation accessor.
type RelationData struct {
	Kind RelationKind
	// Name is the accessor name on Owner.
	Name  string
	Owner *Model
	Other *Model
	// Left 表示外键落在 Owner 这一侧
	Left bool
	// ForeignKey is the fk column for the single-sided kinds.
	ForeignKey string
	// Junction and the two fk columns are set for ManyToMany only.
	// LeftFK references Owner, RightFK references Other (seen from Owner).
	Junction *Model
	LeftFK   string
	RightFK  string
}

// RelationOption configures relation registration.
type RelationOption func(*relationOpts)

type relationOpts struct {
	foreignKey     string
	companionField string
	junctionModel  string
	leftFK         string
	rightFK        string
}

// WithForeignKey overrides the default `<otherModel>id` fk column name.
func WithForeignKey(name string) RelationOption {
	return func(o *relationOpts) {
		o.foreignKey = name
	}
}

// WithCompanionField also records the symmetric accessor on the other model.
func WithCompanionField(name string) RelationOption {
	return func(o *relationOpts) {
		o.companionField = name
	}
}

// WithJunctionModel names the junction table of a many-to-many relation.
// 省略时默认两个模型名直接拼接。
func WithJunctionModel(name string) RelationOption {
	return func(o *relationOpts) {
		o.junctionModel = name
	}
}

// WithLeftForeignKey overrides the junction column referencing the
// declaring model.
func WithLeftForeignKey(name string) RelationOption {
	return func(o *relationOpts) {
		o.leftFK = name
	}
}

// WithRightForeignKey overrides the junction column referencing the other
// model.
func WithRightForeignKey(name string) RelationOption {
	return func(o *relationOpts) {
		o.rightFK = name
	}
}

// OneToOne declares a one-to-one relation; the foreign key lives on the
// declaring model and is unique. relationField may be empty when no
// accessor is wanted on this side.
func (m *Model) OneToOne(other any, relationField string, opts ...RelationOption) error {
	return m.relate(OneToOne, other, relationField, opts)
}

// ManyToOne declares the "many" side: the declaring model carries the
// foreign key, the accessor resolves to a single companion row.
func (m *Model) ManyToOne(other any, relationField string, opts ...RelationOption) error {
	return m.relate(ManyToOne, other, relationField, opts)
}

// OneToMany declares the "one" side: the foreign key is created on the
// other model, the accessor resolves to many companion rows.
func (m *Model) OneToMany(other any, relationField string, opts ...RelationOption) error {
	return m.relate(OneToMany, other, relationField, opts)
}

// relate is the single registration routine behind the three single-fk
// kinds, parameterized by which side owns the foreign key.
func (m *Model) relate(kind RelationKind, other any, relationField string, opts []RelationOption) error {
	o, err := m.db.model(other)
	if err != nil {
		return err
	}
	var ro relationOpts
	for _, opt := range opts {
		opt(&ro)
	}

	// fkOwner 持有外键列，fkTarget 是被引用的一方
	fkOwner, fkTarget := m, o
	if kind == OneToMany {
		fkOwner, fkTarget = o, m
	}
	fk := ro.foreignKey
	if fk == "" {
		fk = fkTarget.name + "id"
	}
	if err = ensureForeignKey(fkOwner, fkTarget, fk, kind == OneToOne); err != nil {
		return err
	}

	if relationField != "" {
		err = m.addRelation(&RelationData{
			Kind:       kind,
			Name:       relationField,
			Owner:      m,
			Other:      o,
			Left:       fkOwner == m,
			ForeignKey: fk,
		})
		if err != nil {
			return err
		}
	}
	if ro.companionField != "" {
		err = o.addRelation(&RelationData{
			Kind:       companionKind(kind),
			Name:       ro.companionField,
			Owner:      o,
			Other:      m,
			Left:       fkOwner == o,
			ForeignKey: fk,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ManyToMany declares a relation through a junction model, resolving or
// creating the junction and its two foreign-key columns.
func (m *Model) ManyToMany(other any, relationField string, opts ...RelationOption) error {
	o, err := m.db.model(other)
	if err != nil {
		return err
	}
	var ro relationOpts
	for _, opt := range opts {
		opt(&ro)
	}

	junctionName := ro.junctionModel
	if junctionName == "" {
		junctionName = m.name + o.name
	}
	leftFK := ro.leftFK
	if leftFK == "" {
		leftFK = m.name + "id"
	}
	rightFK := ro.rightFK
	if rightFK == "" {
		rightFK = o.name + "id"
	}

	junction, err := m.db.model(junctionName)
	if err != nil {
		junction, err = m.db.Define(junctionName)
		if err != nil {
			return err
		}
	}
	if err = ensureForeignKey(junction, m, leftFK, false); err != nil {
		return err
	}
	if err = ensureForeignKey(junction, o, rightFK, false); err != nil {
		return err
	}
	junction.AddConstraint("UNIQUE(" + leftFK + ", " + rightFK + ")")

	if relationField != "" {
		err = m.addRelation(&RelationData{
			Kind:     ManyToMany,
			Name:     relationField,
			Owner:    m,
			Other:    o,
			Left:     true,
			Junction: junction,
			LeftFK:   leftFK,
			RightFK:  rightFK,
		})
		if err != nil {
			return err
		}
	}
	if ro.companionField != "" {
		err = o.addRelation(&RelationData{
			Kind:     ManyToMany,
			Name:     ro.companionField,
			Owner:    o,
			Other:    m,
			Left:     false,
			Junction: junction,
			LeftFK:   rightFK,
			RightFK:  leftFK,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// addRelation records accessor metadata, holding relation names to the
// same rules as field names.
func (m *Model) addRelation(rd *RelationData) error {
	if !isValidName(rd.Name) {
		return errs.NewErrInvalidIdentifier(rd.Name)
	}
	if m.reserved(rd.Name) {
		return errs.NewErrDuplicateField(m.name, rd.Name)
	}
	m.relations = append(m.relations, rd)
	m.relationMap[rd.Name] = rd
	return nil
}

// ensureForeignKey creates the fk column if missing (nullable INTEGER,
// unique for one-to-one) and the matching table constraint.
func ensureForeignKey(owner, target *Model, fk string, unique bool) error {
	if _, ok := owner.fieldMap[fk]; !ok {
		err := owner.AddField(fk, FieldSpec{Type: "INTEGER", Unique: unique})
		if err != nil {
			return err
		}
	}
	ref, err := target.referencedColumn()
	if err != nil {
		return err
	}
	owner.AddConstraint("FOREIGN KEY (" + fk + ") REFERENCES " + target.name + "(" + ref + ")")
	return nil
}

// companionKind swaps the roles for the symmetric accessor.
func companionKind(kind RelationKind) RelationKind {
	switch kind {
	case ManyToOne:
		return OneToMany
	case OneToMany:
		return ManyToOne
	default:
		return kind
	}
}
