package graph

import (
	"github.com/google/uuid"

	"github.com/permafrostdb/permafrost/pkg/common"
	"github.com/permafrostdb/permafrost/pkg/mvcc"
)

// Traversal is a lazy, restartable, finite breadth-first walk over the edges
// visible to a transaction whose type matches the filter. Visibility is
// re-resolved per step rather than materialized upfront: a node discovered
// on step N reflects the snapshot exactly as a fresh resolve would.
//
// The walk is finite because a snapshot of the graph is a finite structure,
// and restartable because Restart re-seeds the frontier and each step
// re-queries the resolver.
type Traversal struct {
	g      *Graph
	t      *mvcc.Transaction
	owned  bool
	start  uuid.UUID
	filter string

	// order holds discovered nodes in BFS order, start first. Nodes up to
	// expanded have had their out-edges enumerated; nodes up to yielded
	// have been returned by Next.
	order    []uuid.UUID
	seen     map[uuid.UUID]struct{}
	expanded int
	yielded  int
}

// Traverse starts a breadth-first walk from the given node over edges whose
// type matches the filter; an empty filter matches every type. The start
// node itself is not yielded.
//
// Returns NotFoundError when the start node is not visible under the
// transaction's snapshot. With a nil transaction the traversal owns an
// ephemeral one, committed when the walk is exhausted or closed.
func (g *Graph) Traverse(t *mvcc.Transaction, start uuid.UUID, edgeTypeFilter string) (*Traversal, error) {
	t, owned := g.ensureTxn(t)

	if !g.mgr.IsVisible(t, mvcc.NewNodeKey(start)) {
		err := common.NewNotFoundError(mvcc.NewNodeKey(start).String())
		if owned {
			_ = g.mgr.Rollback(t)
		}
		return nil, err
	}

	tr := &Traversal{
		g:      g,
		t:      t,
		owned:  owned,
		start:  start,
		filter: edgeTypeFilter,
	}
	tr.Restart()
	return tr, nil
}

// Restart resets the walk to the start node. Subsequent steps re-resolve
// visibility fresh, so a restarted walk within the same transaction is
// guaranteed to observe the same snapshot plus the transaction's own writes.
// A traversal that owns its transaction and already committed it on
// exhaustion or Close begins a fresh ephemeral one, so the restarted walk
// runs against a current snapshot.
func (tr *Traversal) Restart() {
	if tr.owned && tr.t.Status() != mvcc.StatusActive {
		tr.t = tr.g.mgr.Begin()
	}
	tr.order = []uuid.UUID{tr.start}
	tr.seen = map[uuid.UUID]struct{}{tr.start: {}}
	tr.expanded = 0
	tr.yielded = 1 // the start node is expanded but never yielded
}

// Next returns the next reachable node identifier, or false when the walk is
// exhausted. Exhaustion commits an ephemeral transaction owned by the
// traversal.
func (tr *Traversal) Next() (uuid.UUID, bool) {
	for tr.yielded >= len(tr.order) {
		if tr.expanded >= len(tr.order) {
			_ = tr.Close()
			return uuid.Nil, false
		}
		tr.expand(tr.order[tr.expanded])
		tr.expanded++
	}

	id := tr.order[tr.yielded]
	tr.yielded++
	return id, true
}

// Collect drains the remainder of the walk into a slice.
func (tr *Traversal) Collect() []uuid.UUID {
	var out []uuid.UUID
	for id, ok := tr.Next(); ok; id, ok = tr.Next() {
		out = append(out, id)
	}
	return out
}

// Close terminates an ephemeral transaction owned by the traversal. It is a
// no-op for caller-managed transactions and safe to call more than once.
func (tr *Traversal) Close() error {
	if !tr.owned || tr.t.Status() != mvcc.StatusActive {
		return nil
	}
	return tr.g.mgr.Commit(tr.t)
}

// expand enumerates the out-edges of a node visible at this step, queueing
// targets that both exist in the snapshot and have not been discovered.
func (tr *Traversal) expand(node uuid.UUID) {
	for _, ev := range tr.g.mgr.VisibleOutEdges(tr.t, node, tr.filter) {
		target := ev.Edge().Target
		if _, ok := tr.seen[target]; ok {
			continue
		}
		if !tr.g.mgr.IsVisible(tr.t, mvcc.NewNodeKey(target)) {
			continue
		}
		tr.seen[target] = struct{}{}
		tr.order = append(tr.order, target)
	}
}
