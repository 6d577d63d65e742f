package mvcc

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityKind tags an EntityKey as referring to a node or an edge.
type EntityKind int

const (
	// KindNode - the key identifies a node.
	KindNode EntityKind = iota

	// KindEdge - the key identifies an edge.
	KindEdge
)

func (k EntityKind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindEdge:
		return "edge"
	}

	panic("invalid entity kind")
}

// EntityKey identifies a single versioned entity in the store. It is a
// tagged variant over the entity kind so that the version store, resolver
// and conflict detector stay generic over nodes and edges.
//
// EntityKey is a value type and is valid as a map key.
type EntityKey struct {
	Kind EntityKind
	ID   uuid.UUID
}

// NewNodeKey returns the entity key for the node with the given identifier.
func NewNodeKey(id uuid.UUID) EntityKey {
	return EntityKey{Kind: KindNode, ID: id}
}

// NewEdgeKey returns the entity key for the edge with the given identifier.
func NewEdgeKey(id uuid.UUID) EntityKey {
	return EntityKey{Kind: KindEdge, ID: id}
}

func (k EntityKey) String() string {
	return fmt.Sprintf("%s/%s", k.Kind, k.ID)
}
