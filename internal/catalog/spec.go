package catalog

import (
	"fmt"
	"reflect"

	"storefront-service/internal/domain"
)

// SpecRow is one rendered line of a specification table.
type SpecRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// BoolFormatter renders boolean attributes for display.
type BoolFormatter func(bool) string

// YesNo is the BoolFormatter used by the HTTP and gRPC surfaces.
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// RenderTable builds the specification table of p in schema order.
func (r *Registry) RenderTable(p domain.Product, formatBool BoolFormatter) ([]SpecRow, error) {
	schema, err := r.SpecSchema(p)
	if err != nil {
		return nil, err
	}
	if formatBool == nil {
		formatBool = YesNo
	}
	values := p.SpecValues()
	rows := make([]SpecRow, 0, len(schema))
	for _, f := range schema {
		rows = append(rows, SpecRow{Label: f.Label, Value: formatValue(values[f.Field], formatBool)})
	}
	return rows, nil
}

func formatValue(v any, formatBool BoolFormatter) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return formatBool(x)
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	// Optional attributes arrive as typed pointers.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return formatValue(rv.Elem().Interface(), formatBool)
	}
	return fmt.Sprint(v)
}
