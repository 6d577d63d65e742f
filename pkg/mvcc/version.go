package mvcc

import "github.com/google/uuid"

// Payload is the tagged variant carried by a version. The store does not
// interpret node attributes; it only carries them.
type Payload interface {
	isPayload()
}

// NodeData is the payload of a node version. Attributes is an opaque blob
// owned by the caller.
type NodeData struct {
	Attributes []byte
}

func (NodeData) isPayload() {}

// EdgeData is the payload of an edge version. Edges are directed.
type EdgeData struct {
	Source   uuid.UUID
	Target   uuid.UUID
	EdgeType string
}

func (EdgeData) isPayload() {}

// Version is the unit the version store manages: one immutable revision of a
// node or edge. A version is pending until its creator commits, at which
// point CommitSeq is stamped. Deletion is a tombstone - DeleterTx is set,
// pending until the deleter commits and DeleteSeq is stamped - never a
// physical removal while any snapshot might still need the version.
//
// Stamp encoding:
//
//	CommitSeq == 0                    creator has not committed yet
//	DeleterTx == 0                    live, no tombstone
//	DeleterTx != 0 && DeleteSeq == 0  tombstone pending commit
type Version struct {
	Key     EntityKey
	Payload Payload

	CreatorTx uint64
	CommitSeq uint64

	DeleterTx uint64
	DeleteSeq uint64
}

// committed reports whether the creator transaction has committed.
func (v *Version) committed() bool {
	return v.CommitSeq != 0
}

// tombstoned reports whether a committed tombstone exists on this version.
func (v *Version) tombstoned() bool {
	return v.DeleterTx != 0 && v.DeleteSeq != 0
}

// Edge returns the edge payload, or nil if this is a node version.
func (v *Version) Edge() *EdgeData {
	if e, ok := v.Payload.(EdgeData); ok {
		return &e
	}
	return nil
}

// Node returns the node payload, or nil if this is an edge version.
func (v *Version) Node() *NodeData {
	if n, ok := v.Payload.(NodeData); ok {
		return &n
	}
	return nil
}
