package daemon

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lam-tt/neural-memory/pkg/concurrency"
	"github.com/lam-tt/neural-memory/pkg/consolidation"
	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/lam-tt/neural-memory/pkg/lifecycle"
	"github.com/lam-tt/neural-memory/pkg/persistence"
)

// DaemonManager runs the background passes spec.md's public surface
// doesn't expose directly: continuous decay for active brains, a full
// consolidation sweep (all eight strategies, spec.md §4.9) for
// sleeping ones, and periodic persistence. The teacher ran five
// always-on tickers, one per matrix-specific concern (decay,
// consolidate, prune, persist, reorg); PRUNE and the teacher's reorg
// are now strategies consolidation.Dispatcher.RunAll already sweeps,
// so they no longer need their own ticker.
type DaemonManager struct {
	pool      *concurrency.WorkerPool
	lifecycle *lifecycle.Manager
	store     *persistence.Store

	decayInterval       time.Duration
	consolidateInterval time.Duration
	persistInterval     time.Duration
	intervalMu          sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDaemonManager creates a new daemon manager.
func NewDaemonManager(
	pool *concurrency.WorkerPool,
	lm *lifecycle.Manager,
	store *persistence.Store,
) *DaemonManager {
	ctx, cancel := context.WithCancel(context.Background())

	return &DaemonManager{
		pool:                pool,
		lifecycle:           lm,
		store:               store,
		decayInterval:       1 * time.Minute,
		consolidateInterval: 5 * time.Minute,
		persistInterval:     1 * time.Minute,
		ctx:                 ctx,
		cancel:              cancel,
	}
}

// Start starts all daemon workers.
func (dm *DaemonManager) Start() {
	dm.wg.Add(3)

	go dm.decayDaemon()
	go dm.consolidateDaemon()
	go dm.persistDaemon()

	log.Println("daemon manager started")
}

// Stop stops all daemons gracefully.
func (dm *DaemonManager) Stop() {
	dm.cancel()
	dm.wg.Wait()
	log.Println("daemon manager stopped")
}

// decayDaemon applies continuous energy decay to active/idle brains,
// leaving sleeping brains for the consolidation daemon's DREAM/PRUNE
// passes instead.
func (dm *DaemonManager) decayDaemon() {
	defer dm.wg.Done()

	for dm.waitInterval(dm.getDecayInterval()) {
		now := time.Now()
		dm.pool.ForEach(func(indexID core.IndexID, worker *concurrency.BrainWorker) {
			state := dm.lifecycle.GetState(indexID)
			if state == core.StateActive || state == core.StateIdle {
				worker.SubmitAsync(&concurrency.Operation{Type: concurrency.OpDecay, Payload: now})
			}
		})
	}
}

// consolidateDaemon runs every consolidation strategy over sleeping
// brains, mirroring real sleep consolidation's "structure changes
// while you're not actively recalling" shape.
func (dm *DaemonManager) consolidateDaemon() {
	defer dm.wg.Done()

	for dm.waitInterval(dm.getConsolidateInterval()) {
		now := time.Now()
		sleeping := dm.lifecycle.GetSleepingUsers()
		for _, indexID := range sleeping {
			worker, err := dm.pool.Get(indexID)
			if err != nil || worker == nil {
				continue
			}
			result, err := worker.Submit(dm.ctx, &concurrency.Operation{
				Type:    concurrency.OpConsolidate,
				Payload: concurrency.ConsolidateRequest{Now: now},
			})
			if err != nil {
				continue
			}
			if reports, ok := result.([]consolidation.Report); ok {
				log.Printf("index %s: ran %d consolidation strategies", indexID, len(reports))
			}
		}
	}
}

// persistDaemon periodically saves active brains.
func (dm *DaemonManager) persistDaemon() {
	defer dm.wg.Done()

	for dm.waitInterval(dm.getPersistInterval()) {
		dm.pool.ForEach(func(indexID core.IndexID, worker *concurrency.BrainWorker) {
			if err := dm.store.SaveAsync(worker.Brain()); err != nil {
				log.Printf("persist daemon: async save failed for %s: %v", indexID, err)
			}
		})
		dm.store.FlushAll()
	}

	dm.pool.PersistAll()
}

func (dm *DaemonManager) waitInterval(interval time.Duration) bool {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-dm.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (dm *DaemonManager) getDecayInterval() time.Duration {
	dm.intervalMu.RLock()
	defer dm.intervalMu.RUnlock()
	return dm.decayInterval
}

func (dm *DaemonManager) getConsolidateInterval() time.Duration {
	dm.intervalMu.RLock()
	defer dm.intervalMu.RUnlock()
	return dm.consolidateInterval
}

func (dm *DaemonManager) getPersistInterval() time.Duration {
	dm.intervalMu.RLock()
	defer dm.intervalMu.RUnlock()
	return dm.persistInterval
}

// SetIntervals configures daemon intervals.
func (dm *DaemonManager) SetIntervals(decay, consolidate, persist time.Duration) {
	dm.intervalMu.Lock()
	defer dm.intervalMu.Unlock()
	dm.decayInterval = decay
	dm.consolidateInterval = consolidate
	dm.persistInterval = persist
}

// Stats returns daemon statistics.
func (dm *DaemonManager) Stats() map[string]any {
	dm.intervalMu.RLock()
	defer dm.intervalMu.RUnlock()
	return map[string]any{
		"decay_interval":       dm.decayInterval.String(),
		"consolidate_interval": dm.consolidateInterval.String(),
		"persist_interval":     dm.persistInterval.String(),
	}
}
