package relm

import (
	"unicode"

	"github.com/coderi421/relm/internal/errs"
	"github.com/google/uuid"
)

// FieldSpec describes one column of a model.
// 零值即合法：可空、无约束、无钩子。
type FieldSpec struct {
	// Type is the SQL type hint, e.g. "INTEGER", "TEXT". May be empty.
	Type string
	// NotNull emits NOT NULL. Left false, the column accepts NULL.
	NotNull    bool
	Unique     bool
	PrimaryKey bool
	// Collate names the collation, e.g. "NOCASE".
	Collate string
	// Default is emitted as a DEFAULT literal after serialization.
	// Strings are quoted, everything else is written raw.
	Default any

	// Validate rejects a value before it is bound for insert, update or
	// where compilation. A nil hook accepts everything.
	Validate func(val any) error
	// Serialize converts a value right before binding.
	Serialize func(val any) (any, error)
	// Deserialize converts a value read back from the engine.
	Deserialize func(val any) (any, error)
	// Generate produces a value for a field omitted from a build template.
	Generate func() any
}

// field 是 FieldSpec 在模型上的包装，带上了名字
type field struct {
	name string
	spec FieldSpec
}

// validateValue runs the field's validator, wrapping failures so the caller
// can tell which field rejected the value.
func (f *field) validateValue(val any) error {
	if f.spec.Validate == nil {
		return nil
	}
	if err := f.spec.Validate(val); err != nil {
		return errs.NewErrValidation(f.name, err)
	}
	return nil
}

// serializeValue validates then serializes a value for binding.
func (f *field) serializeValue(val any) (any, error) {
	if err := f.validateValue(val); err != nil {
		return nil, err
	}
	if f.spec.Serialize == nil {
		return val, nil
	}
	return f.spec.Serialize(val)
}

// deserializeValue converts an engine value back to the caller's shape.
func (f *field) deserializeValue(val any) (any, error) {
	if f.spec.Deserialize == nil {
		return val, nil
	}
	return f.spec.Deserialize(val)
}

// GenerateUUID is a stock Generate hook producing a random uuid string.
// 常用于外部可见的业务 id 字段。
func GenerateUUID() any {
	return uuid.NewString()
}

// isValidName reports whether name is a lexically valid model, field or
// relation identifier: alphabetic first rune, alphanumeric or underscore
// thereafter.
func isValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 {
			if !unicode.IsLetter(r) {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
