/**
 * Copyright 2025 The PermafrostDB Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mvcc

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/permafrostdb/permafrost/pkg/common"
)

// edgeTriple is the directed uniqueness key for edges.
type edgeTriple struct {
	source   uuid.UUID
	target   uuid.UUID
	edgeType string
}

// Store is the append-only version store. Versions live in an arena; each
// entity key maps to the ordered list of arena slots forming its version
// chain. Chains are in commit order by construction: pending exclusivity
// guarantees at most one in-flight writer per key, so versions are appended
// in the order their creators commit.
//
// Two secondary indexes are kept for the graph layer: edge versions by
// source node (traversal) and by directed triple (uniqueness checks).
//
// Only the transaction manager mutates the store.
type Store struct {
	arena  []Version
	chains map[EntityKey][]int

	bySource map[uuid.UUID][]int
	byTarget map[uuid.UUID][]int
	byTriple map[edgeTriple][]int
}

// NewStore creates an empty version store.
func NewStore() *Store {
	return &Store{
		chains:   make(map[EntityKey][]int),
		bySource: make(map[uuid.UUID][]int),
		byTarget: make(map[uuid.UUID][]int),
		byTriple: make(map[edgeTriple][]int),
	}
}

// putPending appends a new pending version for the key, authored by txID.
// The key must not already have a pending version from any transaction:
// a second writer collides instead of blocking, since the execution model
// has no wait queues.
func (s *Store) putPending(key EntityKey, payload Payload, txID uint64) error {
	for _, idx := range s.chains[key] {
		if !s.arena[idx].committed() {
			log.WithFields(log.Fields{"key": key.String(), "txID": txID, "pendingTxID": s.arena[idx].CreatorTx}).Info("mvcc::store::putPending; pending version exists")
			return common.NewCollisionError(key.String())
		}
	}

	idx := len(s.arena)
	s.arena = append(s.arena, Version{
		Key:       key,
		Payload:   payload,
		CreatorTx: txID,
	})
	s.chains[key] = append(s.chains[key], idx)

	if e, ok := payload.(EdgeData); ok {
		s.bySource[e.Source] = append(s.bySource[e.Source], idx)
		s.byTarget[e.Target] = append(s.byTarget[e.Target], idx)
		t := edgeTriple{source: e.Source, target: e.Target, edgeType: e.EdgeType}
		s.byTriple[t] = append(s.byTriple[t], idx)
	}

	return nil
}

// tombstone marks the version of key visible to (txID, startSeq) as deleted
// by txID, pending commit. Returns NotFoundError if no version is visible
// and CollisionError if the visible version already carries a tombstone from
// another transaction.
func (s *Store) tombstone(key EntityKey, txID, startSeq uint64) error {
	v := s.resolve(key, txID, startSeq)
	if v == nil {
		return common.NewNotFoundError(key.String())
	}
	if v.DeleterTx != 0 {
		log.WithFields(log.Fields{"key": key.String(), "txID": txID, "deleterTxID": v.DeleterTx}).Info("mvcc::store::tombstone; version already tombstoned")
		return common.NewCollisionError(key.String())
	}

	v.DeleterTx = txID
	return nil
}

// finalize converts every pending version and pending tombstone authored by
// txID under the given keys into committed state stamped with commitSeq.
// Irreversible.
func (s *Store) finalize(keys []EntityKey, txID, commitSeq uint64) {
	for _, key := range keys {
		for _, idx := range s.chains[key] {
			v := &s.arena[idx]
			if v.CreatorTx == txID && !v.committed() {
				v.CommitSeq = commitSeq
			}
			if v.DeleterTx == txID && v.DeleteSeq == 0 {
				v.DeleteSeq = commitSeq
			}
		}
	}
}

// discard removes every pending version authored by txID under the given
// keys and clears its pending tombstones. Used by rollback and by failed
// commits. Returns the keys that were actually touched.
func (s *Store) discard(keys []EntityKey, txID uint64) []EntityKey {
	var touched []EntityKey
	for _, key := range keys {
		chain := s.chains[key]
		kept := chain[:0]
		changed := false
		for _, idx := range chain {
			v := &s.arena[idx]
			if v.CreatorTx == txID && !v.committed() {
				s.unlink(idx)
				changed = true
				continue
			}
			if v.DeleterTx == txID && v.DeleteSeq == 0 {
				v.DeleterTx = 0
				changed = true
			}
			kept = append(kept, idx)
		}
		if len(kept) == 0 {
			delete(s.chains, key)
		} else {
			s.chains[key] = kept
		}
		if changed {
			touched = append(touched, key)
		}
	}
	return touched
}

// History returns the version chain of the key, oldest first. The returned
// versions are views into the arena: they must not be mutated and are only
// valid until the next mutating operation on the store.
func (s *Store) History(key EntityKey) []*Version {
	chain := s.chains[key]
	out := make([]*Version, 0, len(chain))
	for _, idx := range chain {
		out = append(out, &s.arena[idx])
	}
	return out
}

// compact unlinks every version whose tombstone committed below the
// watermark, i.e. versions no snapshot of any active or future transaction
// can reach. Returns the number of versions dropped.
func (s *Store) compact(watermark uint64) int {
	dropped := 0
	for key, chain := range s.chains {
		kept := chain[:0]
		for _, idx := range chain {
			v := &s.arena[idx]
			if v.tombstoned() && v.DeleteSeq < watermark {
				s.unlink(idx)
				dropped++
				continue
			}
			kept = append(kept, idx)
		}
		if len(kept) == 0 {
			delete(s.chains, key)
		} else {
			s.chains[key] = kept
		}
	}

	if dropped > 0 {
		log.WithFields(log.Fields{"dropped": dropped, "watermark": watermark}).Info("mvcc::store::compact; dropped unreachable versions")
	}
	return dropped
}

// unlink kills the arena slot and removes it from the secondary indexes.
// The caller is responsible for removing it from the chain.
func (s *Store) unlink(idx int) {
	if e := s.arena[idx].Edge(); e != nil {
		s.bySource[e.Source] = removeIndex(s.bySource[e.Source], idx)
		if len(s.bySource[e.Source]) == 0 {
			delete(s.bySource, e.Source)
		}
		s.byTarget[e.Target] = removeIndex(s.byTarget[e.Target], idx)
		if len(s.byTarget[e.Target]) == 0 {
			delete(s.byTarget, e.Target)
		}
		t := edgeTriple{source: e.Source, target: e.Target, edgeType: e.EdgeType}
		s.byTriple[t] = removeIndex(s.byTriple[t], idx)
		if len(s.byTriple[t]) == 0 {
			delete(s.byTriple, t)
		}
	}
	s.arena[idx] = Version{}
}

// visibleOutEdges returns the edge versions visible to (txID, startSeq)
// whose source is the given node, filtered by edge type. An empty filter
// matches every type.
func (s *Store) visibleOutEdges(txID, startSeq uint64, source uuid.UUID, edgeType string) []*Version {
	var out []*Version
	for _, idx := range s.bySource[source] {
		v := &s.arena[idx]
		if v.CreatorTx == 0 {
			continue
		}
		if edgeType != "" && v.Edge().EdgeType != edgeType {
			continue
		}
		if visibleTo(v, txID, startSeq) {
			out = append(out, v)
		}
	}
	return out
}

// visibleInEdges returns the edge versions visible to (txID, startSeq)
// whose target is the given node.
func (s *Store) visibleInEdges(txID, startSeq uint64, target uuid.UUID) []*Version {
	var out []*Version
	for _, idx := range s.byTarget[target] {
		v := &s.arena[idx]
		if v.CreatorTx != 0 && visibleTo(v, txID, startSeq) {
			out = append(out, v)
		}
	}
	return out
}

// snapshotEdge returns the edge version with the given directed triple
// visible to (txID, startSeq), or nil.
func (s *Store) snapshotEdge(txID, startSeq uint64, source, target uuid.UUID, edgeType string) *Version {
	t := edgeTriple{source: source, target: target, edgeType: edgeType}
	for _, idx := range s.byTriple[t] {
		v := &s.arena[idx]
		if v.CreatorTx != 0 && visibleTo(v, txID, startSeq) {
			return v
		}
	}
	return nil
}

// committedEdge returns an edge version with the given directed triple that
// is committed and carries no committed tombstone, excluding versions
// authored or tombstoned by txID. A pending tombstone held by txID is
// stamped by the very commit being validated, so the version it covers no
// longer occupies the triple. Used by the conflict detector to validate edge
// uniqueness against the state as of commit time.
func (s *Store) committedEdge(txID uint64, source, target uuid.UUID, edgeType string) *Version {
	t := edgeTriple{source: source, target: target, edgeType: edgeType}
	for _, idx := range s.byTriple[t] {
		v := &s.arena[idx]
		if v.CreatorTx == 0 || v.CreatorTx == txID || v.DeleterTx == txID {
			continue
		}
		if v.committed() && v.DeleteSeq == 0 {
			return v
		}
	}
	return nil
}

func removeIndex(s []int, idx int) []int {
	for i, v := range s {
		if v == idx {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
