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
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/btree"

	"github.com/permafrostdb/permafrost/pkg/common"
)

// Manager orchestrates the transaction lifecycle and is the only component
// that mutates commit status or the version store. It owns the process-wide
// sequence allocator: a single monotonic counter hands out both start and
// commit sequences, so every commit sequence is strictly greater than the
// start sequence of any transaction begun before the commit.
//
// The execution model is single threaded and deterministic. Concurrency is
// logical - multiple transactions may be active at once and their commit
// order decides conflicts - but every operation runs as one indivisible
// synchronous step, so there is no mutual exclusion here.
type Manager struct {
	store *Store
	conf  *common.Config

	// nextSeq is the last sequence handed out, 0 before the first Begin.
	nextSeq   uint64
	nextTxnID uint64

	// txns holds the active transactions, ordered by id. Terminated ones
	// are removed, so the first entry carries the minimum active start
	// sequence, the compaction watermark.
	txns btree.Map[uint64, *Transaction]

	listeners []CommitListener

	commitsSinceCompaction uint64
}

// NewManager creates a transaction manager over a fresh version store.
func NewManager(conf *common.Config) *Manager {
	if conf == nil {
		conf = common.NewDefaultConfig()
	}
	return &Manager{
		store: NewStore(),
		conf:  conf,
	}
}

// RegisterListener subscribes a persistence collaborator to commit and
// discard events.
func (m *Manager) RegisterListener(l CommitListener) {
	m.listeners = append(m.listeners, l)
}

// Begin starts a new transaction. It always succeeds; the start sequence is
// strictly greater than every previously allocated sequence.
func (m *Manager) Begin() *Transaction {
	m.nextTxnID++
	t := newTransaction(m.nextTxnID, m.allocSeq())
	m.txns.Set(t.id, t)

	log.WithFields(log.Fields{"txID": t.id, "startSeq": t.startSeq}).Debug("mvcc::manager::Begin; started transaction")
	return t
}

// Commit attempts to commit the transaction. On conflict the transaction is
// fully rolled back as a side effect and the ConflictError or
// DuplicateEdgeError is returned; the store is left as if the transaction
// had never existed. On success the whole write set becomes committed
// atomically: no later-started transaction can observe part of it.
func (m *Manager) Commit(t *Transaction) error {
	log.WithFields(log.Fields{"txID": t.id}).Debug("mvcc::manager::Commit; started")

	if t.status != StatusActive {
		return common.NewInvalidStateError(fmt.Sprintf("cannot commit transaction %d in status %s", t.id, t.status))
	}

	if err := detectConflicts(m.store, t); err != nil {
		touched := m.store.discard(t.writeOrder, t.id)
		t.status = StatusRolledBack
		m.txns.Delete(t.id)
		for _, l := range m.listeners {
			l.OnDiscard(t.id, touched)
		}
		log.WithFields(log.Fields{"txID": t.id}).Info("mvcc::manager::Commit; conflict, transaction rolled back")
		return err
	}

	t.commitSeq = m.allocSeq()
	m.store.finalize(t.writeOrder, t.id, t.commitSeq)
	t.status = StatusCommitted
	m.txns.Delete(t.id)

	if len(m.listeners) > 0 {
		committed := m.committedVersions(t)
		for _, l := range m.listeners {
			l.OnCommit(t.commitSeq, committed)
		}
	}

	log.WithFields(log.Fields{"txID": t.id, "commitSeq": t.commitSeq, "writes": len(t.writeOrder)}).Debug("mvcc::manager::Commit; committed")

	m.maybeCompact()
	return nil
}

// Rollback discards every version the transaction authored, including
// pending tombstones, and marks it rolled back.
func (m *Manager) Rollback(t *Transaction) error {
	log.WithFields(log.Fields{"txID": t.id}).Debug("mvcc::manager::Rollback; started")

	if t.status != StatusActive {
		return common.NewInvalidStateError(fmt.Sprintf("cannot rollback transaction %d in status %s", t.id, t.status))
	}

	touched := m.store.discard(t.writeOrder, t.id)
	t.status = StatusRolledBack
	m.txns.Delete(t.id)
	for _, l := range m.listeners {
		l.OnDiscard(t.id, touched)
	}
	return nil
}

// Put appends a pending version of the entity authored by t. The entity must
// not already exist under t's snapshot: the one-visible-version invariant is
// guaranteed by construction, so a modification is a Delete followed by a
// Put. Returns CollisionError when the key is visible to t or pending from
// another transaction.
func (m *Manager) Put(t *Transaction, key EntityKey, payload Payload) error {
	if t.status != StatusActive {
		return common.NewInvalidStateError(fmt.Sprintf("cannot write in transaction %d in status %s", t.id, t.status))
	}
	if m.store.resolve(key, t.id, t.startSeq) != nil {
		return common.NewCollisionError(key.String())
	}
	if err := m.store.putPending(key, payload, t.id); err != nil {
		return err
	}
	t.recordWrite(key)
	return nil
}

// Delete tombstones the version of the entity visible to t.
func (m *Manager) Delete(t *Transaction, key EntityKey) error {
	if t.status != StatusActive {
		return common.NewInvalidStateError(fmt.Sprintf("cannot delete in transaction %d in status %s", t.id, t.status))
	}
	if err := m.store.tombstone(key, t.id, t.startSeq); err != nil {
		return err
	}
	t.recordWrite(key)
	return nil
}

// Resolve returns the version of the entity visible to t, or NotFoundError
// when no version is visible under t's snapshot.
func (m *Manager) Resolve(t *Transaction, key EntityKey) (*Version, error) {
	if t.status != StatusActive {
		return nil, common.NewInvalidStateError(fmt.Sprintf("cannot read in transaction %d in status %s", t.id, t.status))
	}
	v := m.store.resolve(key, t.id, t.startSeq)
	if v == nil {
		return nil, common.NewNotFoundError(key.String())
	}
	return v, nil
}

// IsVisible reports whether the entity exists from t's point of view.
func (m *Manager) IsVisible(t *Transaction, key EntityKey) bool {
	return t.status == StatusActive && m.store.isVisible(key, t.id, t.startSeq)
}

// History returns the full version chain of the entity, oldest first.
// Read-only; unbounded barring compaction.
func (m *Manager) History(key EntityKey) []*Version {
	return m.store.History(key)
}

// VisibleOutEdges returns the edge versions visible to t whose source is the
// given node, filtered by edge type (empty matches all).
func (m *Manager) VisibleOutEdges(t *Transaction, source uuid.UUID, edgeType string) []*Version {
	if t.status != StatusActive {
		return nil
	}
	return m.store.visibleOutEdges(t.id, t.startSeq, source, edgeType)
}

// VisibleInEdges returns the edge versions visible to t whose target is the
// given node.
func (m *Manager) VisibleInEdges(t *Transaction, target uuid.UUID) []*Version {
	if t.status != StatusActive {
		return nil
	}
	return m.store.visibleInEdges(t.id, t.startSeq, target)
}

// SnapshotEdge returns the edge with the given directed triple visible to t,
// or nil.
func (m *Manager) SnapshotEdge(t *Transaction, source, target uuid.UUID, edgeType string) *Version {
	if t.status != StatusActive {
		return nil
	}
	return m.store.snapshotEdge(t.id, t.startSeq, source, target, edgeType)
}

// Compact drops every version tombstoned below the minimum active start
// sequence. Returns the number of versions dropped.
func (m *Manager) Compact() int {
	return m.store.compact(m.minActiveStartSeq())
}

// minActiveStartSeq is the compaction watermark: the start sequence of the
// oldest active transaction, or one past the last allocated sequence when no
// transaction is active. An open transaction pins its start sequence and
// thus every version tombstoned at or after it.
func (m *Manager) minActiveStartSeq() uint64 {
	watermark := m.nextSeq + 1
	m.txns.Scan(func(id uint64, t *Transaction) bool {
		watermark = t.startSeq
		return false
	})
	return watermark
}

func (m *Manager) maybeCompact() {
	if m.conf.CompactionInterval == 0 {
		return
	}
	m.commitsSinceCompaction++
	if m.commitsSinceCompaction >= m.conf.CompactionInterval {
		m.commitsSinceCompaction = 0
		m.Compact()
	}
}

// committedVersions snapshots the stamped versions of a just-committed
// transaction for listener delivery.
func (m *Manager) committedVersions(t *Transaction) []Version {
	var out []Version
	for _, key := range t.writeOrder {
		for _, v := range m.store.History(key) {
			if (v.CreatorTx == t.id && v.CommitSeq == t.commitSeq) ||
				(v.DeleterTx == t.id && v.DeleteSeq == t.commitSeq) {
				out = append(out, *v)
			}
		}
	}
	return out
}

func (m *Manager) allocSeq() uint64 {
	m.nextSeq++
	return m.nextSeq
}
