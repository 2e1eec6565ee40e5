// Package heap implements the append-only heap table: a linked chain of
// fixed-size pages, each packing tuples back to back with no padding or
// per-tuple length prefix, behind the 8-byte page header described below.
package heap

import (
	"encoding/binary"
	"fmt"

	"github.com/mnohosten/pagedb/pkg/storage"
	"github.com/mnohosten/pagedb/pkg/tuple"
)

// headerSize is the fixed 8-byte header every table page carries: a 4-byte
// big-endian next-block-number (noNextBlockNumber when this is the chain's
// last page) followed by a 4-byte big-endian tuple count.
const headerSize = 8

// noNextBlockNumber is the header's next-block-number sentinel for "this
// page is the end of the chain".
const noNextBlockNumber int32 = -1

// InitEmptyPage zero-fills page and writes an empty-page header: no next
// block, zero tuples. page must be storage.PageSize bytes.
func InitEmptyPage(page []byte) {
	for i := range page {
		page[i] = 0
	}
	next := noNextBlockNumber
	binary.BigEndian.PutUint32(page[0:4], uint32(next))
}

// NextBlockNumber reads the chain-link header field. ok is false when this
// page is the last in its chain.
func NextBlockNumber(page []byte) (bn storage.BlockNumber, ok bool) {
	raw := int32(binary.BigEndian.Uint32(page[0:4]))
	if raw == noNextBlockNumber {
		return 0, false
	}
	return storage.BlockNumber(raw), true
}

// SetNextBlockNumber links page to the next block in its chain.
func SetNextBlockNumber(page []byte, bn storage.BlockNumber) {
	binary.BigEndian.PutUint32(page[0:4], uint32(int32(bn)))
}

// TupleCount reads the number of tuples stored on page.
func TupleCount(page []byte) uint32 {
	return binary.BigEndian.Uint32(page[4:8])
}

func setTupleCount(page []byte, n uint32) {
	binary.BigEndian.PutUint32(page[4:8], n)
}

// freeOffset returns the byte offset at which the next tuple would be
// appended: the header plus every already-stored tuple's serialized length,
// recovered by walking the existing tuples under schema.
func freeOffset(page []byte, schema tuple.Schema) (int, error) {
	offset := headerSize
	count := TupleCount(page)
	for i := uint32(0); i < count; i++ {
		_, n, err := tuple.Deserialize(page[offset:], schema)
		if err != nil {
			return 0, fmt.Errorf("tuple %d: %w", i, err)
		}
		offset += n
	}
	return offset, nil
}

// TryAppendTuple attempts to append t's serialized bytes to page. It
// reports ok=false (with a nil error) when the page has no room left, so
// the caller can move on to the next page in the chain. It returns
// storage.ErrTupleTooLarge when t could not fit even on a freshly
// initialized empty page, since no amount of chain-walking would help.
func TryAppendTuple(page []byte, schema tuple.Schema, t tuple.Tuple) (ok bool, err error) {
	offset, err := freeOffset(page, schema)
	if err != nil {
		return false, err
	}

	encoded := t.Serialize()
	if len(encoded) > len(page)-headerSize {
		return false, fmt.Errorf("%w: tuple needs %d bytes, page payload is %d",
			storage.ErrTupleTooLarge, len(encoded), len(page)-headerSize)
	}
	if offset+len(encoded) > len(page) {
		return false, nil
	}

	copy(page[offset:offset+len(encoded)], encoded)
	setTupleCount(page, TupleCount(page)+1)
	return true, nil
}

// Tuples decodes every tuple currently stored on page under schema, in
// storage order.
func Tuples(page []byte, schema tuple.Schema) ([]tuple.Tuple, error) {
	count := TupleCount(page)
	tuples := make([]tuple.Tuple, 0, count)
	offset := headerSize
	for i := uint32(0); i < count; i++ {
		t, n, err := tuple.Deserialize(page[offset:], schema)
		if err != nil {
			return nil, fmt.Errorf("tuple %d: %w", i, err)
		}
		tuples = append(tuples, t)
		offset += n
	}
	return tuples, nil
}
