// Package tuple implements the schema-typed value/tuple codec that heap
// pages serialize: Value, Column, Schema, and Tuple.
package tuple

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/mnohosten/pagedb/pkg/storage"
)

// ColumnType names the two value kinds a column can hold.
type ColumnType uint8

const (
	ColumnTypeInt ColumnType = iota
	ColumnTypeVarchar
)

// String returns the lowercase spelling the catalog stores on disk.
func (t ColumnType) String() string {
	switch t {
	case ColumnTypeInt:
		return "int"
	case ColumnTypeVarchar:
		return "varchar"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseColumnType maps the catalog's stored type string back to a
// ColumnType. An unrecognized string is surfaced as corruption: "int"
// and "varchar" are the only legal strings on disk.
func ParseColumnType(s string) (ColumnType, error) {
	switch s {
	case "int":
		return ColumnTypeInt, nil
	case "varchar":
		return ColumnTypeVarchar, nil
	default:
		return 0, fmt.Errorf("%w: unknown column type %q", storage.ErrCorruption, s)
	}
}

// Value is a tagged variant: exactly one of Int or Varchar is meaningful,
// selected by Type.
type Value struct {
	Type    ColumnType
	Int     int32
	Varchar string
}

// IntValue constructs an Int value.
func IntValue(v int32) Value { return Value{Type: ColumnTypeInt, Int: v} }

// VarcharValue constructs a Varchar value.
func VarcharValue(v string) Value { return Value{Type: ColumnTypeVarchar, Varchar: v} }

// Serialize encodes the value: a 4-byte big-endian int32 for Int, or a
// 4-byte big-endian UTF-8 byte length followed by the string's bytes for
// Varchar.
func (v Value) Serialize() []byte {
	switch v.Type {
	case ColumnTypeInt:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(v.Int))
		return buf
	case ColumnTypeVarchar:
		strBytes := []byte(v.Varchar)
		buf := make([]byte, 4+len(strBytes))
		binary.BigEndian.PutUint32(buf[:4], uint32(len(strBytes)))
		copy(buf[4:], strBytes)
		return buf
	default:
		return nil
	}
}

// DeserializeValue reads one value of columnType from the front of data,
// returning the value and the number of bytes it consumed.
func DeserializeValue(data []byte, columnType ColumnType) (Value, int, error) {
	switch columnType {
	case ColumnTypeInt:
		if len(data) < 4 {
			return Value{}, 0, fmt.Errorf("%w: int value needs 4 bytes, got %d", storage.ErrCorruption, len(data))
		}
		return IntValue(int32(binary.BigEndian.Uint32(data[:4]))), 4, nil

	case ColumnTypeVarchar:
		if len(data) < 4 {
			return Value{}, 0, fmt.Errorf("%w: varchar length prefix needs 4 bytes, got %d", storage.ErrCorruption, len(data))
		}
		size := int(binary.BigEndian.Uint32(data[:4]))
		if size < 0 || len(data) < 4+size {
			return Value{}, 0, fmt.Errorf("%w: varchar of length %d needs %d bytes, got %d", storage.ErrCorruption, size, 4+size, len(data))
		}
		strBytes := data[4 : 4+size]
		if !utf8.Valid(strBytes) {
			return Value{}, 0, fmt.Errorf("%w: varchar bytes are not valid UTF-8", storage.ErrCorruption)
		}
		return VarcharValue(string(strBytes)), 4 + size, nil

	default:
		return Value{}, 0, fmt.Errorf("%w: unknown column type %d", storage.ErrCorruption, columnType)
	}
}
