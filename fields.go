package tideline

import (
	"reflect"
)

// FieldFunc reads a column value from a row.
type FieldFunc[T any] func(row T, column string) (any, bool)

// FieldValuer is implemented by rows that expose their own columns.
type FieldValuer interface {
	Field(column string) (any, bool)
}

// DefaultField reads columns from map rows, FieldValuer rows, or structs whose
// fields carry an `@:"column"` tag.
func DefaultField[T any]() FieldFunc[T] {
	weave := Use[T]()
	return func(row T, column string) (any, bool) {
		switch rv := any(row).(type) {
		case map[string]any:
			value, ok := rv[column]
			return value, ok
		case FieldValuer:
			return rv.Field(column)
		}
		return weave.Field(row, column)
	}
}

func fieldByTag(value reflect.Value, field reflect.StructField) (any, bool) {
	value = reflect.Indirect(value)
	if !value.IsValid() || value.Kind() != reflect.Struct {
		return nil, false
	}
	fieldValue := value.FieldByIndex(field.Index)
	if !fieldValue.IsValid() || !fieldValue.CanInterface() {
		return nil, false
	}
	return fieldValue.Interface(), true
}
