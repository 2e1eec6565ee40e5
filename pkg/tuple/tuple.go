package tuple

import "fmt"

// Tuple is an ordered sequence of values matching a Schema's column order.
type Tuple struct {
	Values []Value
}

// New builds a Tuple from the given values, in schema order.
func New(values ...Value) Tuple {
	return Tuple{Values: append([]Value(nil), values...)}
}

// Serialize concatenates each value's serialized form, column by column,
// with no length prefix or padding between tuples — column boundaries are
// recovered from the schema at deserialize time.
func (t Tuple) Serialize() []byte {
	var buf []byte
	for _, v := range t.Values {
		buf = append(buf, v.Serialize()...)
	}
	return buf
}

// Deserialize decodes a Tuple from the front of data using schema, and
// returns the tuple plus the number of bytes consumed (so a page that
// packs several tuples back-to-back can find the start of the next one).
func Deserialize(data []byte, schema Schema) (Tuple, int, error) {
	values := make([]Value, 0, len(schema.Columns))
	offset := 0
	for _, col := range schema.Columns {
		v, n, err := DeserializeValue(data[offset:], col.ColumnType)
		if err != nil {
			return Tuple{}, 0, fmt.Errorf("column %q: %w", col.Name, err)
		}
		values = append(values, v)
		offset += n
	}
	return Tuple{Values: values}, offset, nil
}

// Matches reports whether t has the right number of values, each of the
// type schema expects in that position.
func (t Tuple) Matches(schema Schema) bool {
	if len(t.Values) != len(schema.Columns) {
		return false
	}
	for i, v := range t.Values {
		if v.Type != schema.Columns[i].ColumnType {
			return false
		}
	}
	return true
}
