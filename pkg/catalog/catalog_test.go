package catalog

import (
	"errors"
	"testing"

	"github.com/mnohosten/pagedb/pkg/storage"
	"github.com/mnohosten/pagedb/pkg/tuple"
)

func openPool(t *testing.T, dir string, numFrames int) *storage.BufferPoolManager {
	t.Helper()
	dm := storage.NewDiskManager(dir)
	return storage.NewBufferPoolManager(numFrames, dm)
}

func TestCatalogInitializeSeedsBootstrapTables(t *testing.T) {
	dir := t.TempDir()
	dm := storage.NewDiskManager(dir)
	if err := dm.InitDataFile(); err != nil {
		t.Fatalf("InitDataFile: %v", err)
	}
	pool := storage.NewBufferPoolManager(8, dm)

	cat := NewCatalog(pool)
	if err := cat.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for _, name := range []string{"header", "catalog_tables", "catalog_attributes"} {
		if _, ok := cat.GetOID(name); !ok {
			t.Errorf("GetOID(%q): not found", name)
		}
	}
	if block, ok := cat.GetFirstBlockNumber("catalog_tables"); !ok || block != 1 {
		t.Errorf("GetFirstBlockNumber(catalog_tables) = (%d, %v), want (1, true)", block, ok)
	}
	if block, ok := cat.GetFirstBlockNumber("catalog_attributes"); !ok || block != 2 {
		t.Errorf("GetFirstBlockNumber(catalog_attributes) = (%d, %v), want (2, true)", block, ok)
	}
}

func TestCatalogCreateTableRejectsDuplicateName(t *testing.T) {
	dir := t.TempDir()
	dm := storage.NewDiskManager(dir)
	if err := dm.InitDataFile(); err != nil {
		t.Fatalf("InitDataFile: %v", err)
	}
	pool := storage.NewBufferPoolManager(8, dm)

	cat := NewCatalog(pool)
	if err := cat.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	schema := tuple.NewSchema(tuple.Column{Name: "id", ColumnType: tuple.ColumnTypeInt})
	if _, err := cat.CreateTable("widgets", schema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := cat.CreateTable("widgets", schema); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second CreateTable err = %v, want ErrDuplicate", err)
	}
}

func TestCatalogCreateTableRejectsDuplicateColumn(t *testing.T) {
	dir := t.TempDir()
	dm := storage.NewDiskManager(dir)
	if err := dm.InitDataFile(); err != nil {
		t.Fatalf("InitDataFile: %v", err)
	}
	pool := storage.NewBufferPoolManager(8, dm)

	cat := NewCatalog(pool)
	if err := cat.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	schema := tuple.NewSchema(
		tuple.Column{Name: "id", ColumnType: tuple.ColumnTypeInt},
		tuple.Column{Name: "id", ColumnType: tuple.ColumnTypeVarchar},
	)
	if _, err := cat.CreateTable("broken", schema); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("CreateTable err = %v, want ErrDuplicate", err)
	}
}

func TestCatalogSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	schema := tuple.NewSchema(
		tuple.Column{Name: "id", ColumnType: tuple.ColumnTypeInt},
		tuple.Column{Name: "name", ColumnType: tuple.ColumnTypeVarchar},
	)

	func() {
		dm := storage.NewDiskManager(dir)
		if err := dm.InitDataFile(); err != nil {
			t.Fatalf("InitDataFile: %v", err)
		}
		pool := storage.NewBufferPoolManager(8, dm)

		cat := NewCatalog(pool)
		if err := cat.Initialize(); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		if _, err := cat.CreateTable("widgets", schema); err != nil {
			t.Fatalf("CreateTable: %v", err)
		}
		table, err := cat.OpenTable("widgets")
		if err != nil {
			t.Fatalf("OpenTable: %v", err)
		}
		if err := table.InsertTuple(tuple.New(tuple.IntValue(1), tuple.VarcharValue("gadget"))); err != nil {
			t.Fatalf("InsertTuple: %v", err)
		}
		if err := pool.FlushAllPages(); err != nil {
			t.Fatalf("FlushAllPages: %v", err)
		}
	}()

	dm := storage.NewDiskManager(dir)
	pool := storage.NewBufferPoolManager(8, dm)
	cat := NewCatalog(pool)
	if err := cat.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	gotSchema, ok := cat.GetSchema("widgets")
	if !ok {
		t.Fatal("GetSchema(widgets): not found after restart")
	}
	if !gotSchema.Equal(schema) {
		t.Errorf("GetSchema(widgets) = %+v, want %+v", gotSchema, schema)
	}

	table, err := cat.OpenTable("widgets")
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	it := table.Scan()
	row, ok, err := it.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if row.Values[0].Int != 1 || row.Values[1].Varchar != "gadget" {
		t.Errorf("row = %+v, want {1 gadget}", row)
	}

	// A second CreateTable after restart must not collide with oids
	// assigned before the restart.
	if _, err := cat.CreateTable("gizmos", schema); err != nil {
		t.Fatalf("CreateTable(gizmos) after restart: %v", err)
	}
}
