package mvcc

import (
	log "github.com/sirupsen/logrus"
)

// Snapshot resolution. A transaction's snapshot is not stored anywhere: it
// is derived per read from the version stamps and the transaction's start
// sequence. Because one allocator hands out both start and commit sequences,
// "committed before this transaction started" is exactly CommitSeq < startSeq.

// visibleTo reports whether a version belongs to the snapshot of a
// transaction with the given id and start sequence.
//
// A version qualifies when its creator committed before the transaction
// started, or the transaction authored it (read-your-own-writes); it is
// disqualified when a tombstone committed before the transaction started,
// or the transaction tombstoned it itself.
func visibleTo(v *Version, txID, startSeq uint64) bool {
	if v.CreatorTx != txID && !(v.committed() && v.CommitSeq < startSeq) {
		return false
	}
	if v.DeleterTx == txID {
		return false
	}
	if v.tombstoned() && v.DeleteSeq < startSeq {
		return false
	}
	return true
}

// resolve returns the single version of key visible to (txID, startSeq), or
// nil when the entity does not exist from that transaction's point of view.
//
// At most one version per key can qualify: pending exclusivity and
// first-committer-wins guarantee it by construction. If the invariant is
// ever broken the resolver logs it and returns the newest qualifier.
func (s *Store) resolve(key EntityKey, txID, startSeq uint64) *Version {
	var found *Version
	for _, idx := range s.chains[key] {
		v := &s.arena[idx]
		if !visibleTo(v, txID, startSeq) {
			continue
		}
		if found != nil {
			log.WithFields(log.Fields{"key": key.String(), "txID": txID}).Warn("mvcc::snapshot::resolve; multiple visible versions, store invariant violated")
		}
		found = v
	}
	return found
}

// isVisible reports whether the entity exists under the snapshot of
// (txID, startSeq). A tombstoned or never-created entity is invisible.
func (s *Store) isVisible(key EntityKey, txID, startSeq uint64) bool {
	return s.resolve(key, txID, startSeq) != nil
}
