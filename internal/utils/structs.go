package utils

import (
	"fmt"
	"reflect"
)

var ColumnTag = "db"

// StructTagValues lists the column names of a row struct in field order,
// skipping unexported fields and fields tagged "-".
func StructTagValues(input any) []string {
	targetValue := reflect.ValueOf(input)
	if targetValue.Kind() == reflect.Ptr {
		targetValue = targetValue.Elem()
	}

	if targetValue.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	targetType := targetValue.Type()
	result := make([]string, 0, targetValue.NumField())

	for i := 0; i < targetValue.NumField(); i++ {
		if column, ok := columnName(targetType.Field(i)); ok {
			result = append(result, column)
		}
	}

	return result
}

// StructToMap maps column names to field values, for squirrel SetMap.
// Columns listed in omit are left out.
func StructToMap(input any, omit ...string) map[string]any {
	itemValue := reflect.ValueOf(input)
	if itemValue.Kind() == reflect.Ptr {
		itemValue = itemValue.Elem()
	}

	if itemValue.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	itemType := itemValue.Type()
	result := make(map[string]any, itemValue.NumField())

fields:
	for i := 0; i < itemValue.NumField(); i++ {
		column, ok := columnName(itemType.Field(i))
		if !ok {
			continue
		}
		for _, skip := range omit {
			if skip == column {
				continue fields
			}
		}

		result[column] = itemValue.Field(i).Interface()
	}

	return result
}

func columnName(field reflect.StructField) (string, bool) {
	if field.PkgPath != "" {
		return "", false
	}

	tagValue := field.Tag.Get(ColumnTag)
	if tagValue == "" || tagValue == "-" {
		return "", false
	}

	return tagValue, true
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}

const columnPrefixFmt = "%s.%s"

// PrefixColumns qualifies each column with a table alias for joins.
func PrefixColumns(prefix string, columns []string) []string {
	out := make([]string, len(columns))
	for i, column := range columns {
		out[i] = fmt.Sprintf(columnPrefixFmt, prefix, column)
	}
	return out
}
