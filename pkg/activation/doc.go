// Package activation implements the spreading-activation engine of
// spec.md §4.4: sigmoid gating, refractory enforcement, classic BFS
// spreading, reflex (fiber pathway) trail activation, their hybrid
// merge, co-activation binding, lateral inhibition and stabilization.
//
// An Engine mutates only NeuronState — activation level, refractory
// window, access stats — never brain topology. That mirrors the
// reader role a retrieval plays in the concurrency model (§5): the
// brain's own RWMutex is held for reading while the graph is walked,
// and released before any NeuronState is written, the same
// lock-then-release-before-mutate shape the teacher's Searcher uses
// around its Fire() calls.
package activation
