package activation

import (
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// MaxQueueSize bounds the classic spreading priority queue, the
// safety cap against pathological graphs named in spec.md §4.4/§5.
const MaxQueueSize = 50000

type queueItem struct {
	id            core.NeuronID
	weight        float64
	hop           int
	lastActivated time.Time
	anchorIdx     int
}

// spreadQueue is a priority queue ordered by decreasing activation
// weight, tie-broken by older last_activated then lexicographic id
// (spec.md §4.4). The heap.Interface shape mirrors the delivery-time
// priority queue pattern used for signal scheduling elsewhere in the
// corpus, generalized from time ordering to activation-weight
// ordering.
type spreadQueue []*queueItem

func (q spreadQueue) Len() int { return len(q) }

func (q spreadQueue) Less(i, j int) bool {
	if q[i].weight != q[j].weight {
		return q[i].weight > q[j].weight
	}
	if !q[i].lastActivated.Equal(q[j].lastActivated) {
		return q[i].lastActivated.Before(q[j].lastActivated)
	}
	return q[i].id < q[j].id
}

func (q spreadQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *spreadQueue) Push(x any) {
	*q = append(*q, x.(*queueItem))
}

func (q *spreadQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
