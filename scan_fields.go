package tideline

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
)

// ScanFieldsToMap scans the current row into a column map. Columns with a
// matching struct field are scanned into that field's type; any other column
// is scanned as the driver returns it.
func ScanFieldsToMap(rows *sql.Rows, fields map[string]reflect.StructField) (map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	pointers := make([]any, len(columns))
	for i, column := range columns {
		if field, ok := fields[column]; ok {
			pointers[i] = reflect.New(field.Type).Interface()
		} else {
			pointers[i] = new(any)
		}
	}

	if err := rows.Scan(pointers...); err != nil {
		return nil, err
	}

	row := make(map[string]any, len(columns))
	for i, column := range columns {
		switch vt := reflect.ValueOf(pointers[i]).Elem().Interface().(type) {
		case driver.Valuer:
			value, err := vt.Value()
			if err != nil {
				return nil, err
			}
			row[column] = value
		default:
			row[column] = vt
		}
	}

	return row, nil
}
