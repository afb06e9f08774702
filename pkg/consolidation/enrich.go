package consolidation

import (
	"math"
	"sort"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// causalClosureWeight is spec.md §4.9 ENRICH's transitive-closure
// discount: a derived A->C edge is always weaker than either leg of
// the A->B->C chain it was composed from.
const causalClosureWeight = 0.5

// crossClusterRelatedWeight is the weight ENRICH's second rule gives a
// new RELATED_TO synapse between two fiber anchors that share an
// entity neuron but have no direct connection yet. spec.md names the
// rule but not a magnitude; 0.1 matches DREAM's weak-association
// weight, since both rules manufacture a low-confidence hint rather
// than a reinforced memory.
const crossClusterRelatedWeight = 0.1

// runEnrich derives new structure from two independent rules (spec.md
// §4.9 ENRICH): (1) transitive closure over two-hop CAUSED_BY chains
// A->B->C, each producing (or reinforcing) a LEADS_TO synapse A->C
// weighted 0.5*min(w_AB, w_BC) — kept as LEADS_TO rather than another
// CAUSED_BY so the closure doesn't itself become transitively
// closeable into an unbounded cascade; (2) a weak RELATED_TO synapse
// between any two fiber anchors whose fibers share an ENTITY neuron
// but aren't already linked. The two-hop reachability set for rule 1
// is discovered with gonum's breadth-first traversal rather than a
// hand-rolled double adjacency scan, exercising the same
// graph/traverse package the teacher's dependency list carries but
// never imports.
func (d *Dispatcher) runEnrich(dryRun bool, now time.Time) Report {
	brain := d.brain
	brain.Lock()
	defer brain.Unlock()

	created, reinforced := enrichCausalClosure(brain, dryRun, now)
	relatedCreated := enrichCrossClusterRelated(brain, dryRun, now)
	created = append(created, relatedCreated...)
	sort.Slice(created, func(i, j int) bool { return created[i] < created[j] })

	return Report{
		Strategy:        StrategyEnrich,
		DryRun:          dryRun,
		SynapsesCreated: created,
		Details:         map[string]any{"synapses_reinforced": reinforced},
	}
}

func enrichCausalClosure(brain *core.Brain, dryRun bool, now time.Time) ([]core.SynapseID, int) {
	ids := make([]core.NeuronID, 0, len(brain.Neurons))
	index := make(map[core.NeuronID]int64)
	for id := range brain.Neurons {
		index[id] = int64(len(ids))
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		index[id] = int64(i)
	}

	g := simple.NewDirectedGraph()
	for i := range ids {
		g.AddNode(simple.Node(int64(i)))
	}
	causedByEdges := make(map[[2]core.NeuronID]*core.Synapse)
	for _, s := range brain.Synapses {
		if s.Type != core.SynCausedBy {
			continue
		}
		causedByEdges[[2]core.NeuronID{s.SourceID, s.TargetID}] = s
		g.SetEdge(simple.Edge{F: simple.Node(index[s.SourceID]), T: simple.Node(index[s.TargetID])})
	}

	existingLeadsTo := make(map[[2]core.NeuronID]*core.Synapse)
	for _, s := range brain.Synapses {
		if s.Type == core.SynLeadsTo {
			existingLeadsTo[[2]core.NeuronID{s.SourceID, s.TargetID}] = s
		}
	}

	var created []core.SynapseID
	reinforced := 0

	for _, a := range ids {
		fromNode := simple.Node(index[a])
		var twoHop []graph.Node
		bf := traverse.BreadthFirst{}
		bf.Walk(g, fromNode, func(n graph.Node, d int) bool {
			if d == 2 {
				twoHop = append(twoHop, n)
			}
			return d > 2
		})

		for _, node := range twoHop {
			c := ids[node.ID()]
			if c == a {
				continue
			}
			bestWeight := -1.0
			for _, b := range ids {
				abEdge, hasAB := causedByEdges[[2]core.NeuronID{a, b}]
				if !hasAB {
					continue
				}
				bcEdge, hasBC := causedByEdges[[2]core.NeuronID{b, c}]
				if !hasBC {
					continue
				}
				w := causalClosureWeight * math.Min(abEdge.Weight, bcEdge.Weight)
				if w > bestWeight {
					bestWeight = w
				}
			}
			if bestWeight < 0 {
				continue
			}

			if existing, ok := existingLeadsTo[[2]core.NeuronID{a, c}]; ok {
				if !dryRun {
					existing.SetWeight(math.Max(existing.Weight, bestWeight))
					existing.Reinforce(0, now)
				}
				reinforced++
				continue
			}

			if dryRun {
				created = append(created, core.NewSynapseID(a, c, core.SynLeadsTo))
				continue
			}
			syn := core.NewSynapse(a, c, core.SynLeadsTo, bestWeight, core.DirUni)
			syn.Metadata["_inferred"] = true
			syn.CreatedAt = now
			brain.AddSynapseUnsafe(syn)
			existingLeadsTo[[2]core.NeuronID{a, c}] = syn
			created = append(created, syn.ID)
		}
	}
	return created, reinforced
}

func enrichCrossClusterRelated(brain *core.Brain, dryRun bool, now time.Time) []core.SynapseID {
	fibers := make([]*core.Fiber, 0, len(brain.Fibers))
	for _, f := range brain.Fibers {
		fibers = append(fibers, f)
	}
	sort.Slice(fibers, func(i, j int) bool { return fibers[i].ID < fibers[j].ID })

	entitiesOf := func(f *core.Fiber) map[core.NeuronID]struct{} {
		out := make(map[core.NeuronID]struct{})
		for id := range f.NeuronIDs {
			if n := brain.Neurons[id]; n != nil && n.Type == core.NeuronEntity {
				out[id] = struct{}{}
			}
		}
		return out
	}

	linked := make(map[[2]core.NeuronID]bool)
	for _, s := range brain.Synapses {
		linked[[2]core.NeuronID{s.SourceID, s.TargetID}] = true
		linked[[2]core.NeuronID{s.TargetID, s.SourceID}] = true
	}

	var created []core.SynapseID
	for i := 0; i < len(fibers); i++ {
		ei := entitiesOf(fibers[i])
		if len(ei) == 0 {
			continue
		}
		for j := i + 1; j < len(fibers); j++ {
			a, b := fibers[i].AnchorNeuron, fibers[j].AnchorNeuron
			if a == b || linked[[2]core.NeuronID{a, b}] {
				continue
			}
			ej := entitiesOf(fibers[j])
			shared := false
			for id := range ei {
				if _, ok := ej[id]; ok {
					shared = true
					break
				}
			}
			if !shared {
				continue
			}

			if dryRun {
				created = append(created, core.NewSynapseID(a, b, core.SynRelatedTo))
				linked[[2]core.NeuronID{a, b}] = true
				continue
			}
			syn := core.NewSynapse(a, b, core.SynRelatedTo, crossClusterRelatedWeight, core.DirBi)
			syn.Metadata["_inferred"] = true
			syn.CreatedAt = now
			brain.AddSynapseUnsafe(syn)
			linked[[2]core.NeuronID{a, b}] = true
			linked[[2]core.NeuronID{b, a}] = true
			created = append(created, syn.ID)
		}
	}
	return created
}
