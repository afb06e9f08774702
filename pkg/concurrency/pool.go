package concurrency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/lam-tt/neural-memory/pkg/persistence"
)

// WorkerPool lazily creates and evicts one BrainWorker per brain, the
// activity-scoped identity (core.IndexID) the lifecycle manager tracks
// for a brain also persisted under its own core.BrainID — the two id
// types are bridged here by direct string conversion at the
// persistence boundary rather than by unifying them, since each
// subsystem already owns its identity type for unrelated reasons
// (lifecycle.Manager's activity tracking predates the persistence
// layer's brain identity).
type WorkerPool struct {
	workers map[core.IndexID]*BrainWorker
	store   *persistence.Store

	maxIdleTime time.Duration

	mu       sync.RWMutex
	createMu sync.Mutex

	totalCreated uint64
	totalEvicted uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorkerPool creates a new worker pool backed by store.
func NewWorkerPool(store *persistence.Store) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	p := &WorkerPool{
		workers:     make(map[core.IndexID]*BrainWorker),
		store:       store,
		maxIdleTime: 30 * time.Minute,
		ctx:         ctx,
		cancel:      cancel,
	}

	go p.evictionLoop()

	return p
}

// GetOrCreate returns the existing worker for indexID or lazily builds
// one, loading its brain from persistence if a brain of the same id
// was previously saved.
func (p *WorkerPool) GetOrCreate(indexID core.IndexID) (*BrainWorker, error) {
	p.mu.RLock()
	worker, ok := p.workers[indexID]
	p.mu.RUnlock()
	if ok {
		return worker, nil
	}

	p.createMu.Lock()
	defer p.createMu.Unlock()

	p.mu.RLock()
	worker, ok = p.workers[indexID]
	p.mu.RUnlock()
	if ok {
		return worker, nil
	}

	brainID := core.BrainID(indexID)
	var brain *core.Brain
	if p.store.Exists(brainID) {
		loaded, err := p.store.Load(brainID)
		if err == nil {
			brain = loaded
		}
	}
	if brain == nil {
		brain = core.NewBrain(string(indexID))
		brain.ID = brainID
	}

	worker = NewBrainWorker(brain)

	p.mu.Lock()
	p.workers[indexID] = worker
	p.totalCreated++
	p.mu.Unlock()

	return worker, nil
}

// Get returns the existing worker for indexID, or an error if none is
// active.
func (p *WorkerPool) Get(indexID core.IndexID) (*BrainWorker, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	worker, ok := p.workers[indexID]
	if !ok {
		return nil, fmt.Errorf("index %s not found", indexID)
	}
	return worker, nil
}

// ListIndexes returns all active index IDs.
func (p *WorkerPool) ListIndexes() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	indexes := make([]string, 0, len(p.workers))
	for id := range p.workers {
		indexes = append(indexes, string(id))
	}
	return indexes
}

// Evict removes a worker from the pool and persists its brain.
func (p *WorkerPool) Evict(indexID core.IndexID) error {
	p.mu.Lock()
	worker, ok := p.workers[indexID]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	delete(p.workers, indexID)
	p.totalEvicted++
	p.mu.Unlock()

	worker.Stop()
	return p.store.Save(worker.Brain())
}

// Truncate removes an index from memory and disk without persisting
// its in-memory state first.
func (p *WorkerPool) Truncate(indexID core.IndexID) error {
	p.mu.Lock()
	worker, ok := p.workers[indexID]
	if ok {
		delete(p.workers, indexID)
		p.totalEvicted++
	}
	p.mu.Unlock()

	if ok {
		worker.Stop()
	}

	return p.store.Delete(core.BrainID(indexID))
}

func (p *WorkerPool) evictionLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.evictIdle()
		}
	}
}

func (p *WorkerPool) evictIdle() {
	now := time.Now()
	toEvict := make([]core.IndexID, 0)

	p.mu.RLock()
	for id, worker := range p.workers {
		stats := worker.Stats()
		lastOp := stats["last_op"].(time.Time)
		if now.Sub(lastOp) > p.maxIdleTime {
			toEvict = append(toEvict, id)
		}
	}
	p.mu.RUnlock()

	for _, id := range toEvict {
		p.Evict(id)
	}
}

// PersistAll persists every active worker's brain.
func (p *WorkerPool) PersistAll() error {
	p.mu.RLock()
	workers := make([]*BrainWorker, 0, len(p.workers))
	for _, w := range p.workers {
		workers = append(workers, w)
	}
	p.mu.RUnlock()

	var lastErr error
	for _, w := range workers {
		if err := p.store.Save(w.Brain()); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Shutdown persists and stops every worker.
func (p *WorkerPool) Shutdown() error {
	p.cancel()

	p.mu.Lock()
	workers := make(map[core.IndexID]*BrainWorker)
	for k, v := range p.workers {
		workers[k] = v
	}
	p.workers = make(map[core.IndexID]*BrainWorker)
	p.mu.Unlock()

	var lastErr error
	for _, w := range workers {
		w.Stop()
		if err := p.store.Save(w.Brain()); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// ActiveCount returns the number of active workers.
func (p *WorkerPool) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.workers)
}

// SetMaxIdleTime updates the idle eviction threshold at runtime.
func (p *WorkerPool) SetMaxIdleTime(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxIdleTime = d
}

// Stats returns pool statistics.
func (p *WorkerPool) Stats() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workerStats := make(map[string]any)
	for id, w := range p.workers {
		workerStats[string(id)] = w.Stats()
	}

	return map[string]any{
		"active_workers": len(p.workers),
		"total_created":  p.totalCreated,
		"total_evicted":  p.totalEvicted,
		"max_idle_time":  p.maxIdleTime.String(),
		"worker_details": workerStats,
	}
}

// ForEach executes fn on each active worker.
func (p *WorkerPool) ForEach(fn func(core.IndexID, *BrainWorker)) {
	p.mu.RLock()
	workers := make(map[core.IndexID]*BrainWorker)
	for k, v := range p.workers {
		workers[k] = v
	}
	p.mu.RUnlock()

	for id, w := range workers {
		fn(id, w)
	}
}
