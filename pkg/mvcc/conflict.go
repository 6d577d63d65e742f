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
	log "github.com/sirupsen/logrus"

	"github.com/permafrostdb/permafrost/pkg/common"
)

// Commit-time validation, invoked only by the manager. The policy is
// first-committer-wins: whichever transaction reaches commit first for a
// colliding key succeeds, and every later committer fails regardless of
// start order.

// detectConflicts validates the write set of t against state committed after
// t's snapshot was taken.
//
// A write-write conflict exists when any key in the write set carries a
// version committed, or a tombstone committed, at or above t's start
// sequence by another transaction. All colliding keys are reported together.
//
// After the write-write check, every edge t created is validated against the
// edge uniqueness invariant at commit time: if a committed, non-tombstoned
// version with the same directed (source, target, type) triple exists and t
// did not author it, the commit fails with DuplicateEdgeError.
func detectConflicts(s *Store, t *Transaction) error {
	var colliding []string
	for _, key := range t.writeOrder {
		for _, v := range s.History(key) {
			if v.CreatorTx != t.id && v.committed() && v.CommitSeq >= t.startSeq {
				colliding = append(colliding, key.String())
				break
			}
			if v.DeleterTx != 0 && v.DeleterTx != t.id && v.tombstoned() && v.DeleteSeq >= t.startSeq {
				colliding = append(colliding, key.String())
				break
			}
		}
	}
	if len(colliding) > 0 {
		log.WithFields(log.Fields{"txID": t.id, "keys": colliding}).Info("mvcc::conflict::detectConflicts; write-write conflict")
		return common.NewConflictError(colliding)
	}

	for _, key := range t.writeOrder {
		if key.Kind != KindEdge {
			continue
		}
		for _, v := range s.History(key) {
			if v.CreatorTx != t.id || v.committed() {
				continue
			}
			e := v.Edge()
			if dup := s.committedEdge(t.id, e.Source, e.Target, e.EdgeType); dup != nil {
				log.WithFields(log.Fields{"txID": t.id, "source": e.Source, "target": e.Target, "edgeType": e.EdgeType}).Info("mvcc::conflict::detectConflicts; duplicate edge")
				return common.NewDuplicateEdgeError(e.Source.String(), e.Target.String(), e.EdgeType)
			}
		}
	}

	return nil
}
