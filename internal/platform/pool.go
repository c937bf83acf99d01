package platform

import "github.com/roach88/esm/internal/esm"

// CellPool is a fixed-capacity pool of message cell indices.
//
// Each slot carries an empty tag; free slots are kept on a LIFO stack so
// Alloc and Free are O(1). CellPool is not synchronized: Host only touches
// it while the Machine holds the Host lock.
type CellPool struct {
	empty []bool
	free  []esm.CellID
}

// NewCellPool creates a pool with capacity free cells.
func NewCellPool(capacity int) *CellPool {
	if capacity < 0 {
		capacity = 0
	}
	p := &CellPool{
		empty: make([]bool, capacity),
		free:  make([]esm.CellID, 0, capacity),
	}
	p.Reset()
	return p
}

// Reset marks every cell free. Cell 0 is handed out first.
func (p *CellPool) Reset() {
	p.free = p.free[:0]
	for i := len(p.empty) - 1; i >= 0; i-- {
		p.empty[i] = true
		p.free = append(p.free, esm.CellID(i))
	}
}

// Alloc takes a free cell. It returns false when the pool is exhausted.
func (p *CellPool) Alloc() (esm.CellID, bool) {
	n := len(p.free)
	if n == 0 {
		return 0, false
	}
	id := p.free[n-1]
	p.free = p.free[:n-1]
	p.empty[id] = false
	return id, true
}

// Free returns a cell to the pool. It reports false, and changes nothing,
// if id is out of range or already free.
func (p *CellPool) Free(id esm.CellID) bool {
	if id < 0 || int(id) >= len(p.empty) || p.empty[id] {
		return false
	}
	p.empty[id] = true
	p.free = append(p.free, id)
	return true
}

// Cap returns the pool capacity.
func (p *CellPool) Cap() int { return len(p.empty) }

// InUse returns the number of allocated cells.
func (p *CellPool) InUse() int { return len(p.empty) - len(p.free) }
