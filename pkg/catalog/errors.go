package catalog

import "errors"

var (
	// ErrSchemaMismatch marks catalog contents that contradict each other,
	// such as a table name recorded twice in catalog_tables. A stored column
	// type string that does not parse is reported as storage.ErrCorruption.
	ErrSchemaMismatch = errors.New("catalog: schema mismatch")

	// ErrDuplicate marks an attempt to create a table whose name, or a
	// column whose name, already exists.
	ErrDuplicate = errors.New("catalog: duplicate name")

	// ErrNotFound marks a lookup for a table name the catalog has no
	// record of.
	ErrNotFound = errors.New("catalog: not found")
)
