// Package engine wires the storage core's layers — disk manager, buffer
// pool, and catalog — behind a single Config/Engine entry point, the way a
// caller that just wants a working database (not its individual pieces)
// would use it.
package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mnohosten/pagedb/pkg/catalog"
	"github.com/mnohosten/pagedb/pkg/heap"
	"github.com/mnohosten/pagedb/pkg/storage"
	"github.com/mnohosten/pagedb/pkg/tuple"
)

// Engine owns one database: a disk manager and buffer pool rooted at a
// home directory, and the catalog describing every table in it.
type Engine struct {
	diskMgr *storage.DiskManager
	pool    *storage.BufferPoolManager
	catalog *catalog.Catalog
}

// Open brings up an Engine from cfg. If the home directory has no data
// file yet, it creates one and bootstraps a fresh catalog; otherwise it
// reopens the existing data file and rebuilds the catalog from it.
func Open(cfg *Config) (*Engine, error) {
	if err := os.MkdirAll(cfg.Home.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create home directory: %w", err)
	}

	dataPath := filepath.Join(cfg.Home.Dir, storage.DataFileName)
	fresh := true
	if info, err := os.Stat(dataPath); err == nil {
		fresh = info.Size() == 0
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat data file: %w", err)
	}

	diskMgr := storage.NewDiskManager(cfg.Home.Dir)
	if fresh {
		if err := diskMgr.InitDataFile(); err != nil {
			return nil, err
		}
	}
	pool := storage.NewBufferPoolManager(cfg.BufferPool.Frames, diskMgr)
	cat := catalog.NewCatalog(pool)

	if fresh {
		if err := cat.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize catalog: %w", err)
		}
	} else {
		if err := cat.Bootstrap(); err != nil {
			return nil, fmt.Errorf("bootstrap catalog: %w", err)
		}
	}

	return &Engine{diskMgr: diskMgr, pool: pool, catalog: cat}, nil
}

// CreateTable registers a new table named name with the given schema and
// returns it ready for inserts.
func (e *Engine) CreateTable(name string, schema tuple.Schema) (*heap.Table, error) {
	if _, err := e.catalog.CreateTable(name, schema); err != nil {
		return nil, err
	}
	return e.catalog.OpenTable(name)
}

// OpenTable returns the existing table named name.
func (e *Engine) OpenTable(name string) (*heap.Table, error) {
	return e.catalog.OpenTable(name)
}

// Catalog exposes the engine's catalog for callers that need lookups
// beyond OpenTable (GetSchema, GetOID, and so on).
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// FlushAll persists every dirty buffered page to disk.
func (e *Engine) FlushAll() error {
	return e.pool.FlushAllPages()
}

// Stats reports buffer pool hit/miss/eviction counters.
func (e *Engine) Stats() map[string]any {
	return e.pool.Stats()
}

// Close flushes outstanding writes. The Engine should not be used after
// Close returns.
func (e *Engine) Close() error {
	return e.FlushAll()
}
