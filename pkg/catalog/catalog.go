// Package catalog implements the bootstrapping system catalog: three fixed
// heap tables, seeded at the first three blocks of a fresh data file, that
// describe every table in the database — including themselves.
package catalog

import (
	"fmt"
	"sync"

	"github.com/mnohosten/pagedb/pkg/heap"
	"github.com/mnohosten/pagedb/pkg/storage"
	"github.com/mnohosten/pagedb/pkg/tuple"
)

// Fixed object ids of the three bootstrap tables. A fresh data file lays
// them out in this order, so their first block numbers equal their oids.
const (
	headerOID     = 0
	tablesOID     = 1
	attributesOID = 2
)

var headerSchema = tuple.NewSchema(
	tuple.Column{Name: "object_id", ColumnType: tuple.ColumnTypeInt},
	tuple.Column{Name: "first_block_number", ColumnType: tuple.ColumnTypeInt},
)

var tablesSchema = tuple.NewSchema(
	tuple.Column{Name: "object_id", ColumnType: tuple.ColumnTypeInt},
	tuple.Column{Name: "name", ColumnType: tuple.ColumnTypeVarchar},
)

var attributesSchema = tuple.NewSchema(
	tuple.Column{Name: "table_object_id", ColumnType: tuple.ColumnTypeInt},
	tuple.Column{Name: "name", ColumnType: tuple.ColumnTypeVarchar},
	tuple.Column{Name: "type", ColumnType: tuple.ColumnTypeVarchar},
)

// Catalog tracks every table in the database by name: its object id, its
// heap table's first block number, and its schema. The three tables that
// hold this information about themselves and each other are bootstrapped
// by Initialize on a fresh data file, or rebuilt in memory by Bootstrap
// when reopening an existing one.
type Catalog struct {
	pool *storage.BufferPoolManager

	header     *heap.Table
	tables     *heap.Table
	attributes *heap.Table

	mu         sync.RWMutex
	oidCounter uint32

	nameToOID   map[string]uint32
	oidToName   map[uint32]string
	oidToBlock  map[uint32]storage.BlockNumber
	oidToSchema map[uint32]tuple.Schema
}

// NewCatalog returns a Catalog backed by pool. Call Initialize on a fresh
// data file, or Bootstrap on one that already has a catalog.
func NewCatalog(pool *storage.BufferPoolManager) *Catalog {
	return &Catalog{
		pool:        pool,
		nameToOID:   make(map[string]uint32),
		oidToName:   make(map[uint32]string),
		oidToBlock:  make(map[uint32]storage.BlockNumber),
		oidToSchema: make(map[uint32]tuple.Schema),
	}
}

// Initialize lays down the three bootstrap tables at blocks 0, 1, and 2 of
// a fresh data file and seeds them with rows describing themselves, then
// flushes them to disk so the bootstrap state is durable before any caller
// touches the database. It must only be called once, against an empty
// data file.
func (c *Catalog) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	headerBlock, err := heap.CreateFirstPage(c.pool)
	if err != nil {
		return fmt.Errorf("allocate header table: %w", err)
	}
	tablesBlock, err := heap.CreateFirstPage(c.pool)
	if err != nil {
		return fmt.Errorf("allocate catalog_tables: %w", err)
	}
	attributesBlock, err := heap.CreateFirstPage(c.pool)
	if err != nil {
		return fmt.Errorf("allocate catalog_attributes: %w", err)
	}
	if headerBlock != 0 || tablesBlock != 1 || attributesBlock != 2 {
		return fmt.Errorf("%w: bootstrap tables landed at blocks %d,%d,%d, expected 0,1,2",
			storage.ErrCorruption, headerBlock, tablesBlock, attributesBlock)
	}

	c.header = heap.Open(c.pool, headerSchema, headerBlock)
	c.tables = heap.Open(c.pool, tablesSchema, tablesBlock)
	c.attributes = heap.Open(c.pool, attributesSchema, attributesBlock)

	bootstrap := []struct {
		oid    uint32
		name   string
		block  storage.BlockNumber
		schema tuple.Schema
	}{
		{headerOID, "header", headerBlock, headerSchema},
		{tablesOID, "catalog_tables", tablesBlock, tablesSchema},
		{attributesOID, "catalog_attributes", attributesBlock, attributesSchema},
	}

	for _, b := range bootstrap {
		if err := c.header.InsertTuple(tuple.New(tuple.IntValue(int32(b.oid)), tuple.IntValue(int32(b.block)))); err != nil {
			return fmt.Errorf("seed header row for %q: %w", b.name, err)
		}
		if err := c.tables.InsertTuple(tuple.New(tuple.IntValue(int32(b.oid)), tuple.VarcharValue(b.name))); err != nil {
			return fmt.Errorf("seed catalog_tables row for %q: %w", b.name, err)
		}
		for _, col := range b.schema.Columns {
			row := tuple.New(tuple.IntValue(int32(b.oid)), tuple.VarcharValue(col.Name), tuple.VarcharValue(col.ColumnType.String()))
			if err := c.attributes.InsertTuple(row); err != nil {
				return fmt.Errorf("seed catalog_attributes row for %q.%q: %w", b.name, col.Name, err)
			}
		}

		c.nameToOID[b.name] = b.oid
		c.oidToName[b.oid] = b.name
		c.oidToBlock[b.oid] = b.block
		c.oidToSchema[b.oid] = b.schema
	}

	c.oidCounter = attributesOID

	if err := c.pool.FlushAllPages(); err != nil {
		return fmt.Errorf("flush bootstrap state: %w", err)
	}
	return nil
}

// Bootstrap reopens an existing data file's catalog, rebuilding the
// in-memory name/oid/block/schema lookups by scanning the three bootstrap
// tables at their fixed blocks.
func (c *Catalog) Bootstrap() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.header = heap.Open(c.pool, headerSchema, 0)
	c.tables = heap.Open(c.pool, tablesSchema, 1)
	c.attributes = heap.Open(c.pool, attributesSchema, 2)

	oidToBlock := make(map[uint32]storage.BlockNumber)
	var maxOID uint32
	it := c.header.Scan()
	for {
		row, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("scan header: %w", err)
		}
		if !ok {
			break
		}
		oid := uint32(row.Values[0].Int)
		oidToBlock[oid] = storage.BlockNumber(row.Values[1].Int)
		if oid > maxOID {
			maxOID = oid
		}
	}

	nameToOID := make(map[string]uint32)
	oidToName := make(map[uint32]string)
	it = c.tables.Scan()
	for {
		row, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("scan catalog_tables: %w", err)
		}
		if !ok {
			break
		}
		oid := uint32(row.Values[0].Int)
		name := row.Values[1].Varchar
		if _, dup := nameToOID[name]; dup {
			return fmt.Errorf("%w: table name %q appears twice in catalog_tables", ErrSchemaMismatch, name)
		}
		nameToOID[name] = oid
		oidToName[oid] = name
		if oid > maxOID {
			maxOID = oid
		}
	}

	columnsByOID := make(map[uint32][]tuple.Column)
	it = c.attributes.Scan()
	for {
		row, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("scan catalog_attributes: %w", err)
		}
		if !ok {
			break
		}
		oid := uint32(row.Values[0].Int)
		name := row.Values[1].Varchar
		colType, err := tuple.ParseColumnType(row.Values[2].Varchar)
		if err != nil {
			return fmt.Errorf("catalog_attributes row for oid %d: %w", oid, err)
		}
		columnsByOID[oid] = append(columnsByOID[oid], tuple.Column{Name: name, ColumnType: colType})
	}

	oidToSchema := make(map[uint32]tuple.Schema, len(columnsByOID))
	for oid, cols := range columnsByOID {
		oidToSchema[oid] = tuple.NewSchema(cols...)
	}

	c.oidToBlock = oidToBlock
	c.nameToOID = nameToOID
	c.oidToName = oidToName
	c.oidToSchema = oidToSchema
	c.oidCounter = maxOID
	return nil
}

// CreateTable allocates a new heap table named name with the given schema,
// assigns it the next object id, and records it in all three bootstrap
// tables. It rejects a name already in use, or a schema with a repeated
// column name, with ErrDuplicate.
func (c *Catalog) CreateTable(name string, schema tuple.Schema) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.nameToOID[name]; exists {
		return 0, fmt.Errorf("%w: table %q already exists", ErrDuplicate, name)
	}
	seen := make(map[string]bool, len(schema.Columns))
	for _, col := range schema.Columns {
		if seen[col.Name] {
			return 0, fmt.Errorf("%w: column %q appears twice in schema for table %q", ErrDuplicate, col.Name, name)
		}
		seen[col.Name] = true
	}

	block, err := heap.CreateFirstPage(c.pool)
	if err != nil {
		return 0, fmt.Errorf("allocate table %q: %w", name, err)
	}
	c.oidCounter++
	oid := c.oidCounter

	if err := c.header.InsertTuple(tuple.New(tuple.IntValue(int32(oid)), tuple.IntValue(int32(block)))); err != nil {
		return 0, fmt.Errorf("record header row for %q: %w", name, err)
	}
	if err := c.tables.InsertTuple(tuple.New(tuple.IntValue(int32(oid)), tuple.VarcharValue(name))); err != nil {
		return 0, fmt.Errorf("record catalog_tables row for %q: %w", name, err)
	}
	for _, col := range schema.Columns {
		row := tuple.New(tuple.IntValue(int32(oid)), tuple.VarcharValue(col.Name), tuple.VarcharValue(col.ColumnType.String()))
		if err := c.attributes.InsertTuple(row); err != nil {
			return 0, fmt.Errorf("record catalog_attributes row for %q.%q: %w", name, col.Name, err)
		}
	}

	c.nameToOID[name] = oid
	c.oidToName[oid] = name
	c.oidToBlock[oid] = block
	c.oidToSchema[oid] = schema
	return oid, nil
}

// GetOID returns the object id assigned to name, if any.
func (c *Catalog) GetOID(name string) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	oid, ok := c.nameToOID[name]
	return oid, ok
}

// GetFirstBlockNumber returns the first block number of name's heap table.
func (c *Catalog) GetFirstBlockNumber(name string) (storage.BlockNumber, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	oid, ok := c.nameToOID[name]
	if !ok {
		return 0, false
	}
	block, ok := c.oidToBlock[oid]
	return block, ok
}

// GetSchema returns name's column schema.
func (c *Catalog) GetSchema(name string) (tuple.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	oid, ok := c.nameToOID[name]
	if !ok {
		return tuple.Schema{}, false
	}
	schema, ok := c.oidToSchema[oid]
	return schema, ok
}

// OpenTable returns a heap.Table handle for name.
func (c *Catalog) OpenTable(name string) (*heap.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	oid, ok := c.nameToOID[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return heap.Open(c.pool, c.oidToSchema[oid], c.oidToBlock[oid]), nil
}
