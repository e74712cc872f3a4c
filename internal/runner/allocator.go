package runner

import "sync/atomic"

// SlotAllocator hands out request sequence numbers in [1, total]. It is the
// only counter shared by all workers.
type SlotAllocator struct {
	total int64
	next  atomic.Int64
}

func NewSlotAllocator(total int) *SlotAllocator {
	if total < 0 {
		total = 0
	}
	return &SlotAllocator{total: int64(total)}
}

// Claim returns the next unused sequence number. It returns (0, false) once
// every slot has been issued.
func (a *SlotAllocator) Claim() (int64, bool) {
	for {
		cur := a.next.Load()
		if cur >= a.total {
			return 0, false
		}
		if a.next.CompareAndSwap(cur, cur+1) {
			return cur + 1, true
		}
	}
}

// Issued reports how many slots have been claimed.
func (a *SlotAllocator) Issued() int64 {
	return a.next.Load()
}

