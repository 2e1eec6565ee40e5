package storage

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
)

// BufferPoolManager caches a bounded number of blocks as frames, with
// pin/unpin bookkeeping and flush-on-replace eviction. A single mutex
// guards every operation; disk I/O is issued inside that critical section,
// matching the reference behavior this contract is built from (spec.md
// §5) rather than reserving a frame and dropping the lock mid-fetch.
type BufferPoolManager struct {
	mu      sync.Mutex
	diskMgr *DiskManager
	frames  []*Frame

	pageTable map[BlockNumber]FrameID
	freeList  []FrameID

	// lru orders resident, unpinned frames from least- (back) to most-
	// (front) recently used. A frame is removed the moment it's pinned and
	// re-inserted at the front when its pin count returns to zero.
	lru      *list.List
	lruNodes map[FrameID]*list.Element

	hits, misses, evictions int
}

// NewBufferPoolManager creates a pool of numFrames frames backed by diskMgr.
func NewBufferPoolManager(numFrames int, diskMgr *DiskManager) *BufferPoolManager {
	bp := &BufferPoolManager{
		diskMgr:   diskMgr,
		frames:    make([]*Frame, numFrames),
		pageTable: make(map[BlockNumber]FrameID, numFrames),
		freeList:  make([]FrameID, numFrames),
		lru:       list.New(),
		lruNodes:  make(map[FrameID]*list.Element, numFrames),
	}
	for i := 0; i < numFrames; i++ {
		bp.frames[i] = newFrame()
		bp.freeList[i] = FrameID(i)
	}
	return bp
}

// FetchPage returns a pinned handle to blockNumber's contents, reading it
// from disk on a miss.
func (bp *BufferPoolManager) FetchPage(blockNumber BlockNumber) (FrameID, *Frame, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frameID, ok := bp.pageTable[blockNumber]; ok {
		bp.hits++
		bp.pinLocked(frameID)
		return frameID, bp.frames[frameID], nil
	}
	bp.misses++

	frameID, err := bp.victimLocked()
	if err != nil {
		return 0, nil, err
	}

	frame := bp.frames[frameID]

	data, err := bp.diskMgr.ReadPage(blockNumber)
	if err != nil {
		frame.Mu.Lock()
		frame.reset()
		frame.Mu.Unlock()
		bp.freeList = append(bp.freeList, frameID)
		return 0, nil, err
	}

	frame.Mu.Lock()
	frame.reset()
	copy(frame.Data, data)
	bn := blockNumber
	frame.BlockNumber = &bn
	frame.PinCount = 1
	frame.Dirty = false
	frame.Mu.Unlock()

	bp.pageTable[blockNumber] = frameID
	return frameID, frame, nil
}

// NewPage secures a frame first and only then appends initial as a new
// block via the disk manager, so a pool-exhausted miss never durably grows
// the data file with a block nothing will ever reference. The caller is
// expected to UnpinFrame(frameID, true) once it has written the page's real
// contents into the returned frame.
func (bp *BufferPoolManager) NewPage(initial []byte) (BlockNumber, FrameID, *Frame, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, err := bp.victimLocked()
	if err != nil {
		return 0, 0, nil, err
	}

	blockNumber, err := bp.diskMgr.WriteNewPage(initial)
	if err != nil {
		frame := bp.frames[frameID]
		frame.Mu.Lock()
		frame.reset()
		frame.Mu.Unlock()
		bp.freeList = append(bp.freeList, frameID)
		return 0, 0, nil, err
	}

	bp.misses++

	frame := bp.frames[frameID]
	frame.Mu.Lock()
	frame.reset()
	copy(frame.Data, initial)
	bn := blockNumber
	frame.BlockNumber = &bn
	frame.PinCount = 1
	frame.Dirty = false
	frame.Mu.Unlock()

	bp.pageTable[blockNumber] = frameID
	return blockNumber, frameID, frame, nil
}

// UnpinFrame decrements a frame's pin count (saturating at 0) and ORs in
// the dirty flag. Multiple unpins with mixed dirty flags leave the frame
// dirty if any of them were.
func (bp *BufferPoolManager) UnpinFrame(frameID FrameID, dirty bool) error {
	bp.mu.Lock()

	if int(frameID) < 0 || int(frameID) >= len(bp.frames) {
		bp.mu.Unlock()
		return fmt.Errorf("%w: unpin_frame: frame %d out of range", ErrIO, frameID)
	}
	frame := bp.frames[frameID]

	frame.Mu.Lock()
	if frame.PinCount > 0 {
		frame.PinCount--
	}
	if dirty {
		frame.Dirty = true
	}
	nowUnpinned := frame.PinCount == 0
	frame.Mu.Unlock()

	if nowUnpinned {
		if _, ok := bp.lruNodes[frameID]; !ok {
			bp.lruNodes[frameID] = bp.lru.PushFront(frameID)
		}
	}
	bp.mu.Unlock()
	return nil
}

// FlushAllPages writes every resident frame's current bytes to its block,
// regardless of the dirty flag. It keeps going after a per-frame failure so
// it persists as much of the pool as it can, joining every per-frame
// failure (not just the first) into the returned error so none of them are
// silently lost.
func (bp *BufferPoolManager) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	var errs []error
	for _, frame := range bp.frames {
		frame.Mu.RLock()
		bn := frame.BlockNumber
		var data []byte
		if bn != nil {
			data = append([]byte(nil), frame.Data...)
		}
		frame.Mu.RUnlock()

		if bn == nil {
			continue
		}
		if err := bp.diskMgr.WritePage(*bn, data); err != nil {
			errs = append(errs, fmt.Errorf("flush block %d: %w", *bn, err))
			continue
		}
		frame.Mu.Lock()
		frame.Dirty = false
		frame.Mu.Unlock()
	}
	return errors.Join(errs...)
}

// Stats reports hit/miss/eviction counters for observability.
func (bp *BufferPoolManager) Stats() map[string]any {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	total := bp.hits + bp.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(bp.hits) / float64(total) * 100
	}
	return map[string]any{
		"capacity":  len(bp.frames),
		"hits":      bp.hits,
		"misses":    bp.misses,
		"evictions": bp.evictions,
		"hit_rate":  hitRate,
	}
}

// pinLocked marks a resident frame pinned and removes it from the LRU
// replacer, since a pinned frame is never an eviction candidate (P1).
// Caller must hold bp.mu.
func (bp *BufferPoolManager) pinLocked(frameID FrameID) {
	frame := bp.frames[frameID]
	frame.Mu.Lock()
	frame.PinCount++
	frame.Mu.Unlock()

	if node, ok := bp.lruNodes[frameID]; ok {
		bp.lru.Remove(node)
		delete(bp.lruNodes, frameID)
	}
}

// victimLocked picks a frame to populate for a miss: the free list first,
// then the least-recently-used unpinned resident frame. Returns
// ErrPoolExhausted (P2) if neither is available. Caller must hold bp.mu.
func (bp *BufferPoolManager) victimLocked() (FrameID, error) {
	if n := len(bp.freeList); n > 0 {
		frameID := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return frameID, nil
	}

	elem := bp.lru.Back()
	if elem == nil {
		return 0, ErrPoolExhausted
	}
	frameID := elem.Value.(FrameID)
	bp.lru.Remove(elem)
	delete(bp.lruNodes, frameID)

	frame := bp.frames[frameID]
	frame.Mu.Lock()
	dirty := frame.Dirty
	bn := frame.BlockNumber
	var data []byte
	if dirty {
		data = append([]byte(nil), frame.Data...)
	}
	frame.Mu.Unlock()

	if dirty && bn != nil {
		if err := bp.diskMgr.WritePage(*bn, data); err != nil {
			// The frame is still resident and unpinned; put it back in the
			// replacer rather than stranding it untracked by both the free
			// list and the LRU list.
			bp.lruNodes[frameID] = bp.lru.PushFront(frameID)
			return 0, fmt.Errorf("evict: flush victim: %w", err)
		}
	}
	if bn != nil {
		delete(bp.pageTable, *bn)
	}
	bp.evictions++
	return frameID, nil
}
