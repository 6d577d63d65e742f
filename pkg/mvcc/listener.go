package mvcc

// CommitListener is the hook for a persistence collaborator. A durable log
// can be built from these callbacks alone.
//
// OnCommit fires once per successful commit, after every version in the
// write set has been stamped: a listener never observes a half-committed
// write set. The versions are copies; the slice covers both creations and
// tombstones stamped with commitSeq.
//
// OnDiscard fires when a transaction's pending versions are thrown away,
// either by explicit rollback or by a failed commit.
type CommitListener interface {
	OnCommit(commitSeq uint64, versions []Version)
	OnDiscard(txID uint64, keys []EntityKey)
}
