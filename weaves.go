package tideline

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Weave maps the `@:"column"` tags of a struct type to its fields. T may be a
// struct or a pointer to one.
type Weave[T any] struct {
	Config WeaveConfig
	Fields map[string]reflect.StructField
	Table  string
	Type   reflect.Type
}

// Field reads the value of a tagged column from a row.
func (weave *Weave[T]) Field(row T, column string) (any, bool) {
	field, ok := weave.Fields[column]
	if !ok {
		return nil, false
	}
	return fieldByTag(reflect.ValueOf(row), field)
}

// ScanMap builds a row from a column map, as produced by ScanFieldsToMap.
func (weave *Weave[T]) ScanMap(data map[string]any) (T, error) {
	var row T
	target := reflect.ValueOf(&row).Elem()
	if target.Kind() == reflect.Pointer {
		target.Set(reflect.New(weave.Type))
		target = target.Elem()
	}

	for column, v := range data {
		if field, ok := weave.Fields[column]; ok {
			if field := target.FieldByIndex(field.Index); field.IsValid() {
				columnValue := reflect.ValueOf(v)

				if v == nil {
					// database/sql null types (NullString, etc) default to `Valid: false`.

				} else if columnValue.Type().AssignableTo(field.Type()) {
					field.Set(columnValue)

				} else if scanner, ok := field.Addr().Interface().(sql.Scanner); ok {
					if err := scanner.Scan(v); err != nil {
						return row, fmt.Errorf("tideline: scan of column '%s' failed: %w", column, err)
					}

				} else if columnValue.CanConvert(field.Type()) && (field.Kind() != reflect.String || columnValue.Kind() == reflect.String) {
					field.Set(columnValue.Convert(field.Type()))

				} else if field.Kind() == reflect.String && columnValue.Kind() == reflect.Slice && columnValue.Type().Elem().Kind() == reflect.Uint8 {
					field.SetString(string(v.([]byte)))

				} else {
					return row, fmt.Errorf("tideline: unhandled type conversion in scan from '%s' to '%s'", columnValue.Type(), field.Type())
				}
			}
		}
	}

	return row, nil
}

type WeaveConfig struct {
	NoCache bool
	Table   string
}

type WeaveConfigurable interface {
	WeaveConfig() WeaveConfig
}

var weavesCache = &sync.Map{}

func PurgeWeaves() {
	weavesCache.Range(func(key, value any) bool {
		weavesCache.Delete(key)
		return true
	})
}

func Use[T any]() *Weave[T] {
	var model T
	if weaveConfigurable, ok := any(model).(WeaveConfigurable); ok {
		return UseWith[T](weaveConfigurable.WeaveConfig())
	}
	return UseWith[T](WeaveConfig{})
}

func UseWith[T any](config WeaveConfig) *Weave[T] {
	modelType := reflect.TypeOf((*T)(nil)).Elem()
	modelTypeStr := fmt.Sprintf("%s%+v", modelType.String(), config)

	if !config.NoCache {
		if existing, ok := weavesCache.Load(modelTypeStr); ok {
			if weave, ok := existing.(*Weave[T]); ok {
				return weave
			}
		}
	}

	structType := modelType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	fields := make(map[string]reflect.StructField, 0)
	if structType.Kind() == reflect.Struct {
		for _, field := range reflect.VisibleFields(structType) {
			if column, ok := field.Tag.Lookup("@"); ok && field.IsExported() {
				fields[column] = field
			}
		}
	}

	weave := &Weave[T]{
		Config: config,
		Fields: fields,
		Type:   structType,
	}
	if config.Table == "" {
		weave.Table = strings.ToLower(structType.Name())
	} else {
		weave.Table = config.Table
	}
	if !config.NoCache {
		weavesCache.Store(modelTypeStr, weave)
	}
	return weave
}
