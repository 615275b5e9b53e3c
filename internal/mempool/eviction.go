package mempool

// Evict removes the entries served last until the pool is at or below
// maxSize, and returns how many it removed.
func (p *Pool) Evict() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.txs) <= p.maxSize {
		return 0
	}

	entries := p.sortedLocked()
	evicted := 0
	for i := len(entries) - 1; len(p.txs) > p.maxSize; i-- {
		p.removeLocked(entries[i].txHash)
		evicted++
	}
	return evicted
}

// SetMaxSize changes the capacity. Call Evict to shrink an overfull pool.
func (p *Pool) SetMaxSize(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n <= 0 {
		n = DefaultMaxSize
	}
	p.maxSize = n
}
