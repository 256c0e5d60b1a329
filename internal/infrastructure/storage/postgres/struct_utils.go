package postgres

import (
	"reflect"
	"sync"
)

// rowShape is the column layout of a struct mapped to a table row.
type rowShape struct {
	columns []string
	fields  []columnField
}

type columnField struct {
	column string
	index  []int
	// empty replaces a nil slice or map; JSONB lists such as order
	// payments and PO items are NOT NULL with an empty default.
	empty func() reflect.Value
}

var shapes sync.Map // reflect.Type -> *rowShape

// shapeOf returns the cached layout of t. Promoted fields of embedded
// entity.Document and entity.Catalog come first, in declaration order.
func shapeOf(t reflect.Type) *rowShape {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := shapes.Load(t); ok {
		return cached.(*rowShape)
	}

	shape := &rowShape{}
	if t.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(t) {
			if f.Anonymous || !f.IsExported() {
				continue
			}
			tag := f.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			shape.columns = append(shape.columns, tag)
			shape.fields = append(shape.fields, columnField{column: tag, index: f.Index, empty: emptyValue(f.Type)})
		}
	}
	actual, _ := shapes.LoadOrStore(t, shape)
	return actual.(*rowShape)
}

func emptyValue(t reflect.Type) func() reflect.Value {
	switch {
	case t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8:
		return func() reflect.Value { return reflect.MakeSlice(t, 0, 0) }
	case t.Kind() == reflect.Map:
		return func() reflect.Value { return reflect.MakeMap(t) }
	}
	return nil
}

// ExtractDBColumns returns the column names of T from its db tags,
// including those promoted from embedded structs.
func ExtractDBColumns[T any]() []string {
	shape := shapeOf(reflect.TypeFor[T]())
	return append([]string(nil), shape.columns...)
}

// StructToMap converts a struct to column values using db tags. Nil lists
// and maps are written as empty ones. Fields behind a nil embedded pointer
// are left out.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	shape := shapeOf(rv.Type())
	res := make(map[string]any, len(shape.fields))
	for _, f := range shape.fields {
		fv, err := rv.FieldByIndexErr(f.index)
		if err != nil {
			continue
		}
		if f.empty != nil && fv.IsNil() {
			fv = f.empty()
		}
		res[f.column] = fv.Interface()
	}
	return res
}
