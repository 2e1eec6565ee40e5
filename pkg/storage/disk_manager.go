package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataFileName is the name of the single data file a DiskManager owns,
// relative to its home directory.
const DataFileName = "data"

// DiskManager treats a single data file as an array of fixed-size blocks.
// It does no caching and no locking of its own — the buffer pool above it
// serializes all access.
type DiskManager struct {
	path string
}

// NewDiskManager returns a DiskManager rooted at homeDir. It does not touch
// the filesystem; call InitDataFile to create a fresh data file, or rely on
// one already present from a prior run.
func NewDiskManager(homeDir string) *DiskManager {
	return &DiskManager{path: filepath.Join(homeDir, DataFileName)}
}

// InitDataFile truncates/creates the data file to length 0.
func (dm *DiskManager) InitDataFile() error {
	f, err := os.OpenFile(dm.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: init data file: %v", ErrIO, err)
	}
	return f.Close()
}

// WritePage writes exactly PageSize bytes at the offset for blockNumber.
func (dm *DiskManager) WritePage(blockNumber BlockNumber, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("%w: write_page: expected %d bytes, got %d", ErrIO, PageSize, len(data))
	}

	f, err := os.OpenFile(dm.path, os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: write_page: open: %v", ErrIO, err)
	}
	defer f.Close()

	n, err := f.WriteAt(data, int64(blockNumber)*PageSize)
	if err != nil {
		return fmt.Errorf("%w: write_page(%d): %v", ErrIO, blockNumber, err)
	}
	if n != PageSize {
		return fmt.Errorf("%w: write_page(%d): short write (%d bytes)", ErrIO, blockNumber, n)
	}
	return nil
}

// WriteNewPage appends data as a new block at the end of the file and
// returns the block number it was written to: file_size / PageSize.
func (dm *DiskManager) WriteNewPage(data []byte) (BlockNumber, error) {
	info, err := os.Stat(dm.path)
	if err != nil {
		return 0, fmt.Errorf("%w: write_new_page: stat: %v", ErrIO, err)
	}
	if info.Size()%PageSize != 0 {
		return 0, fmt.Errorf("%w: write_new_page: file size %d is not a multiple of %d", ErrIO, info.Size(), PageSize)
	}

	blockNumber := BlockNumber(info.Size() / PageSize)
	if err := dm.WritePage(blockNumber, data); err != nil {
		return 0, err
	}
	return blockNumber, nil
}

// ReadPage reads exactly PageSize bytes from the offset for blockNumber.
func (dm *DiskManager) ReadPage(blockNumber BlockNumber) ([]byte, error) {
	f, err := os.Open(dm.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read_page: open: %v", ErrIO, err)
	}
	defer f.Close()

	buf := make([]byte, PageSize)
	n, err := f.ReadAt(buf, int64(blockNumber)*PageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: read_page(%d): %v", ErrIO, blockNumber, err)
	}
	if n != PageSize {
		return nil, fmt.Errorf("%w: read_page(%d): short read (%d bytes)", ErrIO, blockNumber, n)
	}
	return buf, nil
}
