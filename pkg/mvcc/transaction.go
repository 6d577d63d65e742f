package mvcc

// Status is the lifecycle state of a transaction.
// Active -> Committed on successful commit, Active -> RolledBack on explicit
// rollback or failed commit. Both terminal states are final.
type Status int

const (
	// StatusActive - started, not yet terminated.
	StatusActive Status = iota

	// StatusCommitted - terminated successfully. Terminal.
	StatusCommitted

	// StatusRolledBack - rolled back, either explicitly or by a failed
	// commit. Terminal.
	StatusRolledBack
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCommitted:
		return "committed"
	case StatusRolledBack:
		return "rolledback"
	}

	panic("invalid transaction status")
}

// Transaction is a single MVCC transaction. It is a passive record: only the
// manager mutates it, and only through the begin/commit/rollback lifecycle.
// A single transaction is not safe for concurrent use; the whole execution
// model is single threaded and deterministic.
type Transaction struct {
	id       uint64
	startSeq uint64
	status   Status

	// commitSeq is assigned atomically at successful commit, 0 before.
	commitSeq uint64

	// writeSet holds every entity key this transaction created, modified
	// or tombstoned. writeOrder preserves insertion order so finalize,
	// discard and listener notifications are deterministic.
	writeSet   map[EntityKey]struct{}
	writeOrder []EntityKey
}

func newTransaction(id, startSeq uint64) *Transaction {
	return &Transaction{
		id:       id,
		startSeq: startSeq,
		status:   StatusActive,
		writeSet: make(map[EntityKey]struct{}),
	}
}

// ID returns the unique transaction id.
func (t *Transaction) ID() uint64 {
	return t.id
}

// StartSeq returns the start sequence assigned at Begin. It defines the
// transaction's snapshot: only versions committed below it are visible.
func (t *Transaction) StartSeq() uint64 {
	return t.startSeq
}

// CommitSeq returns the commit sequence, or 0 if the transaction has not
// committed.
func (t *Transaction) CommitSeq() uint64 {
	return t.commitSeq
}

// Status returns the lifecycle state.
func (t *Transaction) Status() Status {
	return t.status
}

// WriteSet returns the entity keys written by this transaction, in insertion
// order.
func (t *Transaction) WriteSet() []EntityKey {
	out := make([]EntityKey, len(t.writeOrder))
	copy(out, t.writeOrder)
	return out
}

func (t *Transaction) recordWrite(key EntityKey) {
	if _, ok := t.writeSet[key]; ok {
		return
	}
	t.writeSet[key] = struct{}{}
	t.writeOrder = append(t.writeOrder, key)
}
