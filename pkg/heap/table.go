package heap

import (
	"fmt"

	"github.com/mnohosten/pagedb/pkg/storage"
	"github.com/mnohosten/pagedb/pkg/tuple"
)

// Table is a heap table: an insert-only, singly linked chain of pages
// starting at firstBlockNumber, all sharing one schema. A Table has no
// state of its own beyond that identity — the pages and the pool own the
// data.
type Table struct {
	pool             *storage.BufferPoolManager
	schema           tuple.Schema
	firstBlockNumber storage.BlockNumber
}

// Open returns a handle to the heap table whose chain begins at
// firstBlockNumber.
func Open(pool *storage.BufferPoolManager, schema tuple.Schema, firstBlockNumber storage.BlockNumber) *Table {
	return &Table{pool: pool, schema: schema, firstBlockNumber: firstBlockNumber}
}

// Schema returns the table's column layout.
func (t *Table) Schema() tuple.Schema { return t.schema }

// FirstBlockNumber returns the block number of the first page in the
// table's chain.
func (t *Table) FirstBlockNumber() storage.BlockNumber { return t.firstBlockNumber }

// CreateFirstPage allocates and initializes a fresh, empty single-page
// chain via pool, returning its block number. Callers creating a new table
// use this block number as the table's FirstBlockNumber.
func CreateFirstPage(pool *storage.BufferPoolManager) (storage.BlockNumber, error) {
	initial := make([]byte, storage.PageSize)
	InitEmptyPage(initial)

	blockNumber, frameID, _, err := pool.NewPage(initial)
	if err != nil {
		return 0, err
	}
	if err := pool.UnpinFrame(frameID, false); err != nil {
		return 0, err
	}
	return blockNumber, nil
}

// InsertTuple appends t to the table. It walks the chain starting at
// firstBlockNumber, trying to append to each page in turn; when the last
// page in the chain has no room, it allocates a new page, links the old
// last page to it, and appends there. At most two pages (the current one
// and, only while allocating, the new one) are pinned at a time.
func (t *Table) InsertTuple(tup tuple.Tuple) error {
	if !tup.Matches(t.schema) {
		return fmt.Errorf("%w: tuple does not match table schema", storage.ErrCorruption)
	}

	current := t.firstBlockNumber
	for {
		frameID, frame, err := t.pool.FetchPage(current)
		if err != nil {
			return err
		}

		frame.Mu.Lock()
		ok, appendErr := TryAppendTuple(frame.Data, t.schema, tup)
		frame.Mu.Unlock()
		if appendErr != nil {
			_ = t.pool.UnpinFrame(frameID, false)
			return appendErr
		}
		if ok {
			return t.pool.UnpinFrame(frameID, true)
		}

		frame.Mu.RLock()
		next, hasNext := NextBlockNumber(frame.Data)
		frame.Mu.RUnlock()

		if hasNext {
			if err := t.pool.UnpinFrame(frameID, false); err != nil {
				return err
			}
			current = next
			continue
		}

		freshPage := make([]byte, storage.PageSize)
		InitEmptyPage(freshPage)
		newBlock, newFrameID, newFrame, err := t.pool.NewPage(freshPage)
		if err != nil {
			_ = t.pool.UnpinFrame(frameID, false)
			return err
		}

		newFrame.Mu.Lock()
		ok, appendErr = TryAppendTuple(newFrame.Data, t.schema, tup)
		newFrame.Mu.Unlock()
		if appendErr != nil {
			_ = t.pool.UnpinFrame(frameID, false)
			_ = t.pool.UnpinFrame(newFrameID, false)
			return appendErr
		}
		if !ok {
			_ = t.pool.UnpinFrame(frameID, false)
			_ = t.pool.UnpinFrame(newFrameID, false)
			return fmt.Errorf("%w: tuple did not fit on a freshly allocated empty page", storage.ErrCorruption)
		}

		frame.Mu.Lock()
		SetNextBlockNumber(frame.Data, newBlock)
		frame.Mu.Unlock()

		if err := t.pool.UnpinFrame(frameID, true); err != nil {
			_ = t.pool.UnpinFrame(newFrameID, true)
			return err
		}
		return t.pool.UnpinFrame(newFrameID, true)
	}
}

// Scan returns a lazy, non-restartable iterator over every tuple in the
// table, in chain and storage order.
func (t *Table) Scan() *Iterator {
	return &Iterator{pool: t.pool, schema: t.schema, current: t.firstBlockNumber, more: true}
}

// Iterator walks a table's pages one at a time, holding no pin between
// Next calls: it pins the current page only long enough to copy out its
// tuples and chain link, then unpins (always clean — scanning never
// dirties a page) before returning to the caller.
type Iterator struct {
	pool    *storage.BufferPoolManager
	schema  tuple.Schema
	current storage.BlockNumber
	more    bool

	pending []tuple.Tuple
	idx     int
}

// Next returns the next tuple in the scan. ok is false once the table is
// exhausted; err is non-nil only on an underlying I/O or corruption
// failure, in which case the iterator should not be used further.
func (it *Iterator) Next() (t tuple.Tuple, ok bool, err error) {
	for {
		if it.idx < len(it.pending) {
			t = it.pending[it.idx]
			it.idx++
			return t, true, nil
		}
		if !it.more {
			return tuple.Tuple{}, false, nil
		}

		frameID, frame, ferr := it.pool.FetchPage(it.current)
		if ferr != nil {
			return tuple.Tuple{}, false, ferr
		}

		frame.Mu.RLock()
		tuples, derr := Tuples(frame.Data, it.schema)
		next, hasNext := NextBlockNumber(frame.Data)
		frame.Mu.RUnlock()

		if uerr := it.pool.UnpinFrame(frameID, false); uerr != nil {
			return tuple.Tuple{}, false, uerr
		}
		if derr != nil {
			return tuple.Tuple{}, false, derr
		}

		it.pending = tuples
		it.idx = 0
		if hasNext {
			it.current = next
		} else {
			it.more = false
		}
	}
}
