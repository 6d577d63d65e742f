package graph

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/permafrostdb/permafrost/pkg/common"
	"github.com/permafrostdb/permafrost/test"
)

// chain builds n1 -> n2 -> n3 -> n4 plus n1 -> n4, all of one type, and
// returns the node ids.
func chain(t *testing.T, g *Graph, edgeType string) []uuid.UUID {
	txn := g.Begin()
	ids := make([]uuid.UUID, 4)
	for i := range ids {
		id, err := g.AddNode(txn, nil)
		assert.Nil(t, err, "Unexpected error while adding a node")
		ids[i] = id
	}
	for _, pair := range [][2]int{{0, 1}, {1, 2}, {2, 3}, {0, 3}} {
		_, err := g.AddEdge(txn, ids[pair[0]], ids[pair[1]], edgeType)
		assert.Nil(t, err, "Unexpected error while adding an edge")
	}
	assert.Nil(t, g.Commit(txn), "Unexpected error while committing the fixture")
	return ids
}

func TestTraverseBreadthFirstOrder(t *testing.T) {
	g := newTestGraph()
	ids := chain(t, g, test.TestEdgeTypes[0])

	tr, err := g.Traverse(nil, ids[0], "")
	assert.Nil(t, err, "Unexpected error while starting the traversal")

	// neighbors of n1 in edge creation order, then the next frontier
	assert.Equal(t, []uuid.UUID{ids[1], ids[3], ids[2]}, tr.Collect(), "expected breadth first order")
}

func TestTraverseDoesNotYieldStart(t *testing.T) {
	g := newTestGraph()
	ids := chain(t, g, test.TestEdgeTypes[0])

	tr, err := g.Traverse(nil, ids[2], "")
	assert.Nil(t, err, "Unexpected error while starting the traversal")
	assert.Equal(t, []uuid.UUID{ids[3]}, tr.Collect(), "expected only the reachable node, not the start")
}

func TestTraverseFollowsDirection(t *testing.T) {
	g := newTestGraph()
	ids := chain(t, g, test.TestEdgeTypes[0])

	// n4 is a sink
	tr, err := g.Traverse(nil, ids[3], "")
	assert.Nil(t, err, "Unexpected error while starting the traversal")
	assert.Equal(t, 0, len(tr.Collect()), "expected no nodes reachable against edge direction")
}

func TestTraverseEdgeTypeFilter(t *testing.T) {
	g := newTestGraph()

	txn := g.Begin()
	n1, _ := g.AddNode(txn, nil)
	n2, _ := g.AddNode(txn, nil)
	n3, _ := g.AddNode(txn, nil)
	_, err := g.AddEdge(txn, n1, n2, "red")
	assert.Nil(t, err, "Unexpected error while adding the red edge")
	_, err = g.AddEdge(txn, n1, n3, "blue")
	assert.Nil(t, err, "Unexpected error while adding the blue edge")
	_, err = g.AddEdge(txn, n2, n3, "red")
	assert.Nil(t, err, "Unexpected error while adding the second red edge")
	assert.Nil(t, g.Commit(txn), "Unexpected error while committing the fixture")

	assert.Equal(t, []uuid.UUID{n2, n3}, collect(t, g, nil, n1, "red"), "expected the red subgraph")
	assert.Equal(t, []uuid.UUID{n3}, collect(t, g, nil, n1, "blue"), "expected the blue subgraph")
	assert.Equal(t, []uuid.UUID{n2, n3}, collect(t, g, nil, n1, ""), "expected every type with an empty filter")
}

func TestTraverseCycleTerminates(t *testing.T) {
	g := newTestGraph()

	txn := g.Begin()
	n1, _ := g.AddNode(txn, nil)
	n2, _ := g.AddNode(txn, nil)
	_, err := g.AddEdge(txn, n1, n2, test.TestEdgeTypes[0])
	assert.Nil(t, err, "Unexpected error while adding an edge")
	_, err = g.AddEdge(txn, n2, n1, test.TestEdgeTypes[0])
	assert.Nil(t, err, "Unexpected error while adding the back edge")
	_, err = g.AddEdge(txn, n1, n1, test.TestEdgeTypes[0])
	assert.Nil(t, err, "Unexpected error while adding the self loop")
	assert.Nil(t, g.Commit(txn), "Unexpected error while committing the fixture")

	assert.Equal(t, []uuid.UUID{n2}, collect(t, g, nil, n1, ""), "expected each node once despite the cycle")
}

func TestTraverseMissingStart(t *testing.T) {
	g := newTestGraph()

	_, err := g.Traverse(nil, test.TestID(7), "")
	var notFound common.NotFoundError
	assert.True(t, errors.As(err, &notFound), "expected an invisible start node to be rejected")
}

func TestTraverseSeesOwnPendingWrites(t *testing.T) {
	g := newTestGraph()

	txn := g.Begin()
	n1, _ := g.AddNode(txn, nil)
	n2, _ := g.AddNode(txn, nil)
	_, err := g.AddEdge(txn, n1, n2, test.TestEdgeTypes[0])
	assert.Nil(t, err, "Unexpected error while adding an edge")

	assert.Equal(t, []uuid.UUID{n2}, collect(t, g, txn, n1, ""), "expected the walk to see the transaction's own writes")
	assert.Nil(t, g.Rollback(txn), "Unexpected error while rolling back")
}

func TestTraverseLazilyObservesLaterWrites(t *testing.T) {
	g := newTestGraph()

	txn := g.Begin()
	n1, _ := g.AddNode(txn, nil)
	n2, _ := g.AddNode(txn, nil)
	n3, _ := g.AddNode(txn, nil)
	_, err := g.AddEdge(txn, n1, n2, test.TestEdgeTypes[0])
	assert.Nil(t, err, "Unexpected error while adding the first edge")

	tr, err := g.Traverse(txn, n1, "")
	assert.Nil(t, err, "Unexpected error while starting the traversal")

	id, ok := tr.Next()
	assert.True(t, ok, "expected the first neighbor")
	assert.Equal(t, n2, id, "expected n2 first")

	// added after the walk started, before n2 is expanded
	_, err = g.AddEdge(txn, n2, n3, test.TestEdgeTypes[0])
	assert.Nil(t, err, "Unexpected error while adding the edge mid walk")

	id, ok = tr.Next()
	assert.True(t, ok, "expected the walk to pick up the new edge")
	assert.Equal(t, n3, id, "expected n3 via the edge added mid walk")

	_, ok = tr.Next()
	assert.False(t, ok, "expected exhaustion")
	assert.Nil(t, g.Commit(txn), "Unexpected error while committing")
}

func TestTraverseSkipsInvisibleTargets(t *testing.T) {
	g := newTestGraph()
	ids := chain(t, g, test.TestEdgeTypes[0])

	txn := g.Begin()
	// removing n2 breaks the n1 -> n2 -> n3 path but keeps n1 -> n4
	assert.Nil(t, g.RemoveNode(txn, ids[1]), "Unexpected error while removing the node")
	assert.Equal(t, []uuid.UUID{ids[3]}, collect(t, g, txn, ids[0], ""), "expected the removed node and its subtree to be skipped")
	assert.Nil(t, g.Rollback(txn), "Unexpected error while rolling back")

	// untouched in fresh snapshots
	assert.Equal(t, []uuid.UUID{ids[1], ids[3], ids[2]}, collect(t, g, nil, ids[0], ""), "expected the rolled back removal to leave the walk intact")
}

func TestTraverseRestart(t *testing.T) {
	g := newTestGraph()
	ids := chain(t, g, test.TestEdgeTypes[0])

	txn := g.Begin()
	tr, err := g.Traverse(txn, ids[0], "")
	assert.Nil(t, err, "Unexpected error while starting the traversal")

	first := tr.Collect()
	tr.Restart()
	second := tr.Collect()
	assert.Equal(t, first, second, "expected a restarted walk to repeat the same order")
	assert.Nil(t, g.Commit(txn), "Unexpected error while committing")
}

func TestTraverseRestartAfterOwnedTransactionCommitted(t *testing.T) {
	g := newTestGraph()
	ids := chain(t, g, test.TestEdgeTypes[0])

	tr, err := g.Traverse(nil, ids[0], "")
	assert.Nil(t, err, "Unexpected error while starting the traversal")
	first := tr.Collect() // exhaustion commits the ephemeral transaction

	tr.Restart()
	assert.Equal(t, first, tr.Collect(), "expected a restart after exhaustion to walk a fresh snapshot")

	// the fresh snapshot reflects changes committed in between
	assert.Nil(t, g.RemoveNode(nil, ids[3]), "Unexpected error while removing a node")
	tr.Restart()
	assert.Equal(t, []uuid.UUID{ids[1], ids[2]}, tr.Collect(), "expected the restarted walk to observe the removal")
	assert.Nil(t, tr.Close(), "Unexpected error while closing the traversal")
}

func TestTraverseOwnedTransactionLifecycle(t *testing.T) {
	g := newTestGraph()
	ids := chain(t, g, test.TestEdgeTypes[0])

	// exhaustion finishes the ephemeral transaction
	tr, err := g.Traverse(nil, ids[0], "")
	assert.Nil(t, err, "Unexpected error while starting the traversal")
	tr.Collect()
	assert.Nil(t, tr.Close(), "expected Close after exhaustion to be a no-op")

	// Close without draining finishes it too
	tr, err = g.Traverse(nil, ids[0], "")
	assert.Nil(t, err, "Unexpected error while starting the traversal")
	_, ok := tr.Next()
	assert.True(t, ok, "expected at least one step")
	assert.Nil(t, tr.Close(), "Unexpected error while closing the traversal")
	assert.Nil(t, tr.Close(), "expected a second Close to be a no-op")
}
