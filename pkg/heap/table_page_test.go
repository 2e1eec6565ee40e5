package heap

import (
	"errors"
	"testing"

	"github.com/mnohosten/pagedb/pkg/storage"
	"github.com/mnohosten/pagedb/pkg/tuple"
)

var testSchema = tuple.NewSchema(
	tuple.Column{Name: "id", ColumnType: tuple.ColumnTypeInt},
	tuple.Column{Name: "name", ColumnType: tuple.ColumnTypeVarchar},
)

func TestInitEmptyPage(t *testing.T) {
	page := make([]byte, storage.PageSize)
	for i := range page {
		page[i] = 0xff
	}
	InitEmptyPage(page)

	if _, ok := NextBlockNumber(page); ok {
		t.Error("expected no next block number on a fresh empty page")
	}
	if TupleCount(page) != 0 {
		t.Errorf("TupleCount() = %d, want 0", TupleCount(page))
	}
	for i := headerSize; i < len(page); i++ {
		if page[i] != 0 {
			t.Fatalf("byte %d = %d, want 0", i, page[i])
		}
	}
}

func TestTryAppendTupleAndTuples(t *testing.T) {
	page := make([]byte, storage.PageSize)
	InitEmptyPage(page)

	t1 := tuple.New(tuple.IntValue(1), tuple.VarcharValue("foo"))
	t2 := tuple.New(tuple.IntValue(2), tuple.VarcharValue("barbaz"))

	for _, want := range []tuple.Tuple{t1, t2} {
		ok, err := TryAppendTuple(page, testSchema, want)
		if err != nil {
			t.Fatalf("TryAppendTuple: %v", err)
		}
		if !ok {
			t.Fatal("TryAppendTuple: expected room on an empty page")
		}
	}

	got, err := Tuples(page, testSchema)
	if err != nil {
		t.Fatalf("Tuples: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Tuples() returned %d tuples, want 2", len(got))
	}
	if got[0].Values[0] != t1.Values[0] || got[0].Values[1] != t1.Values[1] {
		t.Errorf("Tuples()[0] = %+v, want %+v", got[0], t1)
	}
	if got[1].Values[0] != t2.Values[0] || got[1].Values[1] != t2.Values[1] {
		t.Errorf("Tuples()[1] = %+v, want %+v", got[1], t2)
	}
}

func TestTryAppendTupleFullPageReturnsFalse(t *testing.T) {
	page := make([]byte, storage.PageSize)
	InitEmptyPage(page)

	schema := tuple.NewSchema(tuple.Column{Name: "n", ColumnType: tuple.ColumnTypeVarchar})
	big := tuple.New(tuple.VarcharValue(string(make([]byte, storage.PageSize/3))))

	ok, err := TryAppendTuple(page, schema, big)
	if err != nil || !ok {
		t.Fatalf("first append: ok=%v err=%v", ok, err)
	}
	ok, err = TryAppendTuple(page, schema, big)
	if err != nil || !ok {
		t.Fatalf("second append: ok=%v err=%v", ok, err)
	}
	// A third copy no longer fits, but it would fit on an empty page, so
	// this must report "page is full" rather than ErrTupleTooLarge.
	ok, err = TryAppendTuple(page, schema, big)
	if err != nil {
		t.Fatalf("third append: unexpected error %v", err)
	}
	if ok {
		t.Fatal("third append: expected false, page should be full")
	}
}

func TestTryAppendTupleTooLargeForEmptyPage(t *testing.T) {
	page := make([]byte, storage.PageSize)
	InitEmptyPage(page)

	schema := tuple.NewSchema(tuple.Column{Name: "n", ColumnType: tuple.ColumnTypeVarchar})
	huge := tuple.New(tuple.VarcharValue(string(make([]byte, storage.PageSize))))

	_, err := TryAppendTuple(page, schema, huge)
	if err == nil {
		t.Fatal("expected ErrTupleTooLarge")
	}
	if !errors.Is(err, storage.ErrTupleTooLarge) {
		t.Errorf("err = %v, want ErrTupleTooLarge", err)
	}
}

func TestNextBlockNumberLink(t *testing.T) {
	page := make([]byte, storage.PageSize)
	InitEmptyPage(page)

	SetNextBlockNumber(page, storage.BlockNumber(7))
	bn, ok := NextBlockNumber(page)
	if !ok || bn != 7 {
		t.Fatalf("NextBlockNumber() = (%d, %v), want (7, true)", bn, ok)
	}
}
