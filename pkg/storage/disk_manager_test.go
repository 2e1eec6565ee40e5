package storage

import (
	"bytes"
	"testing"
)

func TestDiskManagerRoundTrip(t *testing.T) {
	dm := NewDiskManager(t.TempDir())
	if err := dm.InitDataFile(); err != nil {
		t.Fatalf("InitDataFile: %v", err)
	}

	pageA := bytes.Repeat([]byte{65}, PageSize)
	pageB := bytes.Repeat([]byte{66}, PageSize)
	pageC := bytes.Repeat([]byte{67}, PageSize)

	if err := dm.WritePage(0, pageA); err != nil {
		t.Fatalf("WritePage(0): %v", err)
	}
	if err := dm.WritePage(1, pageB); err != nil {
		t.Fatalf("WritePage(1): %v", err)
	}
	if err := dm.WritePage(2, pageC); err != nil {
		t.Fatalf("WritePage(2): %v", err)
	}

	got, err := dm.ReadPage(1)
	if err != nil {
		t.Fatalf("ReadPage(1): %v", err)
	}
	if !bytes.Equal(got, pageB) {
		t.Errorf("ReadPage(1) = %v, want all-66 page", got[:8])
	}
}

func TestDiskManagerWritePageRejectsWrongSize(t *testing.T) {
	dm := NewDiskManager(t.TempDir())
	if err := dm.InitDataFile(); err != nil {
		t.Fatalf("InitDataFile: %v", err)
	}

	if err := dm.WritePage(0, make([]byte, PageSize-1)); err == nil {
		t.Fatal("expected an error writing a short page")
	}
}

func TestDiskManagerReadPageShortFileIsError(t *testing.T) {
	dm := NewDiskManager(t.TempDir())
	if err := dm.InitDataFile(); err != nil {
		t.Fatalf("InitDataFile: %v", err)
	}

	if _, err := dm.ReadPage(5); err == nil {
		t.Fatal("expected an error reading past EOF")
	}
}

func TestDiskManagerWriteNewPageAppendsAtEnd(t *testing.T) {
	dm := NewDiskManager(t.TempDir())
	if err := dm.InitDataFile(); err != nil {
		t.Fatalf("InitDataFile: %v", err)
	}

	first, err := dm.WriteNewPage(bytes.Repeat([]byte{1}, PageSize))
	if err != nil {
		t.Fatalf("WriteNewPage: %v", err)
	}
	if first != 0 {
		t.Fatalf("first appended block = %d, want 0", first)
	}

	second, err := dm.WriteNewPage(bytes.Repeat([]byte{2}, PageSize))
	if err != nil {
		t.Fatalf("WriteNewPage: %v", err)
	}
	if second != 1 {
		t.Fatalf("second appended block = %d, want 1", second)
	}

	third, err := dm.WriteNewPage(bytes.Repeat([]byte{3}, PageSize))
	if err != nil {
		t.Fatalf("WriteNewPage: %v", err)
	}
	if third != 2 {
		t.Fatalf("third appended block = %d, want 2", third)
	}
}

func TestDiskManagerWriteNewPageRequiresExistingFile(t *testing.T) {
	dm := NewDiskManager(t.TempDir())

	if _, err := dm.WriteNewPage(make([]byte, PageSize)); err == nil {
		t.Fatal("expected an error appending to a data file that doesn't exist yet")
	}
}
