package lifecycle

import (
	"sort"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

const (
	tagJaccardClusterThreshold = 0.6
	minClusterSizeForConcept   = 3
)

// PatternReport summarizes one pattern-extraction pass (spec.md §4.8):
// clusters of EPISODIC fibers whose tags overlap heavily enough become
// a new SEMANTIC concept.
type PatternReport struct {
	ConceptsCreated []core.NeuronID
}

// ExtractPatterns clusters every EPISODIC fiber in brain by tag
// Jaccard similarity (an edge exists between two fibers when their tag
// sets overlap by at least tagJaccardClusterThreshold), using
// gonum's connected-components walk over that similarity graph in
// place of hand-rolling Union-Find. Every resulting cluster of at
// least minClusterSizeForConcept fibers yields one new CONCEPT neuron,
// named from the most frequent co-occurring ENTITY neuron across the
// cluster, with an IS_A synapse from every entity neuron common to a
// majority of the cluster's fibers. Grounded on the teacher's
// pairwise-attraction-then-merge clustering shape (used there for
// spatial neuron clustering), repurposed here for tag similarity.
func ExtractPatterns(brain *core.Brain, now time.Time) PatternReport {
	brain.Lock()
	defer brain.Unlock()

	episodic := episodicFibers(brain)
	if len(episodic) == 0 {
		return PatternReport{}
	}

	g := simple.NewUndirectedGraph()
	for i := range episodic {
		g.AddNode(simple.Node(int64(i)))
	}
	for i := 0; i < len(episodic); i++ {
		tagsI := episodic[i].Tags()
		for j := i + 1; j < len(episodic); j++ {
			if jaccard(tagsI, episodic[j].Tags()) >= tagJaccardClusterThreshold {
				g.SetEdge(simple.Edge{F: simple.Node(int64(i)), T: simple.Node(int64(j))})
			}
		}
	}

	report := PatternReport{}
	for _, component := range topo.ConnectedComponents(g) {
		if len(component) < minClusterSizeForConcept {
			continue
		}
		fibers := make([]*core.Fiber, 0, len(component))
		for _, node := range component {
			fibers = append(fibers, episodic[node.ID()])
		}
		if id, ok := createConceptFromCluster(brain, fibers, now); ok {
			report.ConceptsCreated = append(report.ConceptsCreated, id)
		}
	}

	sort.Slice(report.ConceptsCreated, func(i, j int) bool {
		return report.ConceptsCreated[i] < report.ConceptsCreated[j]
	})
	return report
}

func episodicFibers(brain *core.Brain) []*core.Fiber {
	var out []*core.Fiber
	for _, f := range brain.Fibers {
		mat := brain.Maturations[f.ID]
		if mat != nil && mat.Stage == core.StageEpisodic {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// createConceptFromCluster builds the new CONCEPT neuron and its IS_A
// synapses. Returns false if no entity neuron could be found to name
// the concept from (an empty cluster of content-free fibers).
func createConceptFromCluster(brain *core.Brain, fibers []*core.Fiber, now time.Time) (core.NeuronID, bool) {
	entityFiberCount := make(map[core.NeuronID]int)
	for _, f := range fibers {
		seen := make(map[core.NeuronID]bool)
		for id := range f.NeuronIDs {
			n := brain.Neurons[id]
			if n == nil || n.Type != core.NeuronEntity || seen[id] {
				continue
			}
			seen[id] = true
			entityFiberCount[id]++
		}
	}
	if len(entityFiberCount) == 0 {
		return "", false
	}

	ordered := make([]core.NeuronID, 0, len(entityFiberCount))
	for id := range entityFiberCount {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if entityFiberCount[ordered[i]] != entityFiberCount[ordered[j]] {
			return entityFiberCount[ordered[i]] > entityFiberCount[ordered[j]]
		}
		return ordered[i] < ordered[j]
	})

	nameSource := brain.Neurons[ordered[0]]
	concept := core.NewNeuron(core.NeuronConcept, nameSource.Content)
	concept.SetContentHash(core.SimHash64(nameSource.Content))
	concept.Metadata["_extracted_pattern"] = true
	conceptState := core.NewNeuronState(concept.ID, brain.Config.DecayRate)
	brain.AddNeuronUnsafe(concept, conceptState)

	majority := (len(fibers) / 2) + 1
	for _, id := range ordered {
		if entityFiberCount[id] < majority {
			continue
		}
		syn := core.NewSynapse(id, concept.ID, core.SynIsA, 0.6, core.DirUni)
		syn.CreatedAt = now
		brain.AddSynapseUnsafe(syn)
	}

	return concept.ID, true
}
