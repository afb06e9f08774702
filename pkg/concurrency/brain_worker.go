// Package concurrency implements the single-logical-writer-per-brain
// model: one dedicated goroutine owns a *core.Brain and every mutation
// or read against it flows through that goroutine's operation queue,
// the same shape the teacher's BrainWorker/WorkerPool used to
// serialize matrix access, generalized here to the ten public
// operations of spec.md §6 instead of the teacher's matrix-specific
// op set.
package concurrency

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lam-tt/neural-memory/pkg/coactivation"
	"github.com/lam-tt/neural-memory/pkg/consolidation"
	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/lam-tt/neural-memory/pkg/encoder"
	"github.com/lam-tt/neural-memory/pkg/lifecycle"
	"github.com/lam-tt/neural-memory/pkg/persistence"
	"github.com/lam-tt/neural-memory/pkg/reflex"
)

// OpType is one of spec.md §6's ten public operations.
type OpType int

const (
	OpEncode OpType = iota
	OpQuery
	OpListNeurons
	OpGetFiber
	OpDecay
	OpConsolidate
	OpExport
	OpImport
	OpStats
	OpHealth
	opShutdown // internal, not part of the public surface
)

// Operation represents a queued operation.
type Operation struct {
	Type    OpType
	Payload any
	Result  chan any
	Error   chan error
}

// ListNeuronsRequest is OpListNeurons's payload.
type ListNeuronsRequest struct {
	Offset     int
	Limit      int
	TypeFilter *core.NeuronType
}

// NeuronListItem pairs a neuron's identity record with its live
// activation, reusing persistence.NeuronRecord rather than a new DTO
// since the export format already carries exactly the identity fields
// a listing needs.
type NeuronListItem struct {
	Neuron          persistence.NeuronRecord
	Activation      float64
	AccessFrequency uint64
}

// ListNeuronsResult is OpListNeurons's result.
type ListNeuronsResult struct {
	Items []NeuronListItem
	Total int
}

// FiberResult is OpGetFiber's result.
type FiberResult struct {
	Fiber      persistence.FiberRecord
	Maturation *persistence.MaturationRecord
}

// ConsolidateRequest is OpConsolidate's payload. An empty Strategy
// means "run every strategy" (consolidation.Dispatcher.RunAll).
type ConsolidateRequest struct {
	Strategy consolidation.Strategy
	DryRun   bool
	Now      time.Time
}

// BrainWorker is a dedicated goroutine owning one brain's mutable
// state. Collaborators are the already-built pipeline stages (spec.md
// §4): Encoder for writes, reflex.Pipeline for reads, Dispatcher for
// background consolidation, all sharing one coactivation.Ledger.
type BrainWorker struct {
	brainID core.BrainID
	brain   *core.Brain

	encoder    *encoder.Encoder
	pipeline   *reflex.Pipeline
	dispatcher *consolidation.Dispatcher
	ledger     *coactivation.Ledger

	ops chan *Operation

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	opsProcessed uint64
	lastOp       time.Time

	mu sync.RWMutex
}

// NewBrainWorker creates a new worker over brain and starts its
// goroutine.
func NewBrainWorker(brain *core.Brain) *BrainWorker {
	ctx, cancel := context.WithCancel(context.Background())
	ledger := coactivation.New()

	w := &BrainWorker{
		brainID:    brain.ID,
		brain:      brain,
		encoder:    encoder.New(brain),
		pipeline:   reflex.New(brain, ledger),
		dispatcher: consolidation.New(brain, ledger),
		ledger:     ledger,
		ops:        make(chan *Operation, 1000),
		ctx:        ctx,
		cancel:     cancel,
		lastOp:     time.Now(),
	}

	w.wg.Add(1)
	go w.run()

	return w
}

func (w *BrainWorker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.drainOps()
			return
		case op := <-w.ops:
			w.processOp(op)
		}
	}
}

func (w *BrainWorker) processOp(op *Operation) {
	w.mu.Lock()
	w.opsProcessed++
	w.lastOp = time.Now()
	w.mu.Unlock()

	var result any
	var err error

	switch op.Type {
	case OpEncode:
		req := op.Payload.(encoder.Request)
		result, err = w.encoder.Encode(req)

	case OpQuery:
		req := op.Payload.(reflex.Request)
		result, err = w.pipeline.Run(w.ctx, req)

	case OpListNeurons:
		req := op.Payload.(ListNeuronsRequest)
		result = w.listNeurons(req)

	case OpGetFiber:
		id := op.Payload.(core.FiberID)
		result, err = w.getFiber(id)

	case OpDecay:
		now := op.Payload.(time.Time)
		result = lifecycle.Decay(w.brain, now)

	case OpConsolidate:
		req := op.Payload.(ConsolidateRequest)
		if req.Strategy == "" {
			result, err = w.dispatcher.RunAll(w.ctx, req.DryRun, req.Now)
		} else {
			var report consolidation.Report
			report, err = w.dispatcher.Run(w.ctx, req.Strategy, req.DryRun, req.Now)
			result = []consolidation.Report{report}
		}

	case OpExport:
		now := op.Payload.(time.Time)
		w.brain.RLock()
		result = persistence.ExportSnapshot(w.brain, now)
		w.brain.RUnlock()

	case OpImport:
		snap := op.Payload.(persistence.BrainSnapshot)
		err = w.applyImport(snap)

	case OpStats:
		result = w.stats()

	case OpHealth:
		result = w.health()

	case opShutdown:
		w.cancel()
		return
	}

	if op.Result != nil {
		op.Result <- result
	}
	if op.Error != nil {
		op.Error <- err
	}
}

func (w *BrainWorker) listNeurons(req ListNeuronsRequest) ListNeuronsResult {
	w.brain.RLock()
	defer w.brain.RUnlock()

	ids := make([]core.NeuronID, 0, len(w.brain.Neurons))
	for id, n := range w.brain.Neurons {
		if req.TypeFilter != nil && n.Type != *req.TypeFilter {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := len(ids)
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if req.Limit > 0 && offset+req.Limit < end {
		end = offset + req.Limit
	}

	items := make([]NeuronListItem, 0, end-offset)
	for _, id := range ids[offset:end] {
		n := w.brain.Neurons[id]
		st := w.brain.NeuronStates[id]
		item := NeuronListItem{
			Neuron: persistence.NeuronRecord{
				ID: n.ID, Type: n.Type, Content: n.Content,
				Metadata: n.Metadata, ContentHash: n.ContentHash, CreatedAt: n.CreatedAt,
			},
		}
		if st != nil {
			item.Activation = st.Activation()
			item.AccessFrequency = st.AccessFrequency
		}
		items = append(items, item)
	}

	return ListNeuronsResult{Items: items, Total: total}
}

func (w *BrainWorker) getFiber(id core.FiberID) (FiberResult, error) {
	w.brain.RLock()
	defer w.brain.RUnlock()

	f := w.brain.Fibers[id]
	if f == nil {
		return FiberResult{}, core.ErrFiberNotFound
	}

	f.RLock()
	rec := persistence.FiberRecord{
		ID:           f.ID,
		AnchorNeuron: f.AnchorNeuron,
		Pathway:      f.Pathway,
		Conductivity: f.Conductivity,
		LastConducted: f.LastConducted,
		Summary:      f.Summary,
		Salience:     f.Salience,
		Frequency:    f.Frequency,
		TimeStart:    f.TimeStart,
		TimeEnd:      f.TimeEnd,
		MemoryType:   f.MemoryType,
	}
	for nid := range f.NeuronIDs {
		rec.NeuronIDs = append(rec.NeuronIDs, nid)
	}
	sort.Slice(rec.NeuronIDs, func(i, j int) bool { return rec.NeuronIDs[i] < rec.NeuronIDs[j] })
	for sid := range f.SynapseIDs {
		rec.SynapseIDs = append(rec.SynapseIDs, sid)
	}
	sort.Slice(rec.SynapseIDs, func(i, j int) bool { return rec.SynapseIDs[i] < rec.SynapseIDs[j] })
	for t := range f.AutoTags {
		rec.AutoTags = append(rec.AutoTags, t)
	}
	sort.Strings(rec.AutoTags)
	for t := range f.AgentTags {
		rec.AgentTags = append(rec.AgentTags, t)
	}
	sort.Strings(rec.AgentTags)
	f.RUnlock()

	result := FiberResult{Fiber: rec}
	if m := w.brain.Maturations[id]; m != nil {
		m.RLock()
		days := make([]string, 0, len(m.ReinforcementDays))
		for d := range m.ReinforcementDays {
			days = append(days, d)
		}
		sort.Strings(days)
		result.Maturation = &persistence.MaturationRecord{
			FiberID: m.FiberID, Stage: m.Stage, ReinforcementCount: m.ReinforcementCount,
			ReinforcementDays: days, StageEnteredAt: m.StageEnteredAt,
		}
		m.RUnlock()
	}

	return result, nil
}

// applyImport replaces the worker's brain state with an imported
// snapshot in place, since encoder/pipeline/dispatcher already close
// over w.brain's pointer and re-pointing them would require rebuilding
// all three.
func (w *BrainWorker) applyImport(snap persistence.BrainSnapshot) error {
	imported, err := persistence.ImportSnapshot(snap)
	if err != nil {
		return err
	}

	w.brain.Lock()
	defer w.brain.Unlock()
	w.brain.ID = imported.ID
	w.brain.Neurons = imported.Neurons
	w.brain.NeuronStates = imported.NeuronStates
	w.brain.Synapses = imported.Synapses
	w.brain.Fibers = imported.Fibers
	w.brain.Maturations = imported.Maturations
	w.brain.Adjacency = imported.Adjacency
	w.brain.Version = imported.Version
	w.brainID = imported.ID
	return nil
}

func (w *BrainWorker) stats() map[string]any {
	w.brain.RLock()
	defer w.brain.RUnlock()

	w.mu.RLock()
	defer w.mu.RUnlock()

	return map[string]any{
		"brain_id":      w.brain.ID,
		"version":       w.brain.Version,
		"neurons":       len(w.brain.Neurons),
		"synapses":      len(w.brain.Synapses),
		"fibers":        len(w.brain.Fibers),
		"ops_processed": w.opsProcessed,
		"last_op":       w.lastOp,
	}
}

func (w *BrainWorker) health() map[string]any {
	w.mu.RLock()
	queueLen, queueCap := len(w.ops), cap(w.ops)
	w.mu.RUnlock()

	return map[string]any{
		"status":         "healthy",
		"brain_id":       w.brainID,
		"queue_length":   queueLen,
		"queue_capacity": queueCap,
	}
}

// drainOps processes remaining operations before shutdown.
func (w *BrainWorker) drainOps() {
	for {
		select {
		case op := <-w.ops:
			if op.Type == opShutdown {
				return
			}
			w.processOp(op)
		default:
			return
		}
	}
}

// Submit queues an operation and waits for its result, honoring ctx
// cancellation on top of the worker's own shutdown signal.
func (w *BrainWorker) Submit(ctx context.Context, op *Operation) (any, error) {
	op.Result = make(chan any, 1)
	op.Error = make(chan error, 1)

	select {
	case w.ops <- op:
	case <-w.ctx.Done():
		return nil, context.Canceled
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case result := <-op.Result:
		err := <-op.Error
		return result, err
	case <-w.ctx.Done():
		return nil, context.Canceled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubmitAsync queues an operation without waiting for its result.
func (w *BrainWorker) SubmitAsync(op *Operation) {
	select {
	case w.ops <- op:
	default:
		// Queue full; caller should prefer Submit for operations that
		// must not be silently dropped under load.
	}
}

// Stop gracefully stops the worker, draining pending operations first.
func (w *BrainWorker) Stop() {
	w.cancel()
	w.wg.Wait()
}

// Brain returns the underlying brain.
func (w *BrainWorker) Brain() *core.Brain {
	return w.brain
}

// Stats returns worker-level stats (ops processed, last op time) used
// by the pool's idle-eviction sweep.
func (w *BrainWorker) Stats() map[string]any {
	return w.stats()
}
