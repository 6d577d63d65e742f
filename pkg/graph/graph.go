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

// Package graph is the thin composition layer over the MVCC core. Every
// mutating call routes through the transaction manager; calls issued with a
// nil transaction run under an ephemeral one that is committed immediately,
// and any conflict surfaces to the caller exactly as if they had managed the
// transaction themselves.
package graph

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/permafrostdb/permafrost/pkg/common"
	"github.com/permafrostdb/permafrost/pkg/mvcc"
)

// IDGenerator mints globally unique identifiers for nodes and edges. It is
// injected and assumed collision free.
type IDGenerator func() uuid.UUID

// Graph is a transactional MVCC graph store. Edges are directed and at most
// one visible edge per directed (source, target, type) triple may exist in
// any snapshot.
type Graph struct {
	mgr   *mvcc.Manager
	newID IDGenerator
}

// New creates a graph store with the default uuid identifier generator.
func New(conf *common.Config) *Graph {
	return NewWithIDGenerator(conf, uuid.New)
}

// NewWithIDGenerator creates a graph store with an injected identifier
// generator.
func NewWithIDGenerator(conf *common.Config, gen IDGenerator) *Graph {
	if conf == nil {
		conf = common.NewDefaultConfig()
	}
	if conf.LogLevel != "" {
		if lvl, err := log.ParseLevel(conf.LogLevel); err == nil {
			log.SetLevel(lvl)
		}
	}
	return &Graph{
		mgr:   mvcc.NewManager(conf),
		newID: gen,
	}
}

// Manager exposes the underlying transaction manager, e.g. to register a
// persistence listener or to trigger compaction.
func (g *Graph) Manager() *mvcc.Manager {
	return g.mgr
}

// Begin starts a new transaction.
func (g *Graph) Begin() *mvcc.Transaction {
	return g.mgr.Begin()
}

// Commit commits the transaction.
func (g *Graph) Commit(t *mvcc.Transaction) error {
	return g.mgr.Commit(t)
}

// Rollback rolls back the transaction.
func (g *Graph) Rollback(t *mvcc.Transaction) error {
	return g.mgr.Rollback(t)
}

// ensureTxn returns the caller's transaction, or begins an ephemeral one
// when none is supplied. The second return value reports ownership.
func (g *Graph) ensureTxn(t *mvcc.Transaction) (*mvcc.Transaction, bool) {
	if t != nil {
		return t, false
	}
	return g.mgr.Begin(), true
}

// finishTemp terminates an ephemeral transaction: commit on success,
// rollback on failure. The operation's error wins over lifecycle errors.
func (g *Graph) finishTemp(t *mvcc.Transaction, owned bool, opErr error) error {
	if !owned {
		return opErr
	}
	if opErr != nil {
		// Failed commits roll themselves back; only roll back if still active.
		if t.Status() == mvcc.StatusActive {
			_ = g.mgr.Rollback(t)
		}
		return opErr
	}
	return g.mgr.Commit(t)
}

// AddNode creates a node carrying the opaque attribute blob and returns its
// identifier.
func (g *Graph) AddNode(t *mvcc.Transaction, attrs []byte) (uuid.UUID, error) {
	t, owned := g.ensureTxn(t)

	id := g.newID()
	err := g.mgr.Put(t, mvcc.NewNodeKey(id), mvcc.NodeData{Attributes: attrs})
	if err = g.finishTemp(t, owned, err); err != nil {
		return uuid.Nil, err
	}

	log.WithFields(log.Fields{"txID": t.ID(), "node": id}).Debug("graph::graph::AddNode; created node")
	return id, nil
}

// AddEdge creates a directed edge of the given type between two visible
// nodes and returns its identifier.
//
// Returns NotFoundError when either endpoint is not visible under the
// transaction's snapshot, and DuplicateEdgeError when the directed triple is
// already visible. A triple committed by another transaction after this
// one's snapshot was taken is caught at commit time instead.
func (g *Graph) AddEdge(t *mvcc.Transaction, source, target uuid.UUID, edgeType string) (uuid.UUID, error) {
	t, owned := g.ensureTxn(t)

	id, err := g.addEdge(t, source, target, edgeType)
	if err = g.finishTemp(t, owned, err); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (g *Graph) addEdge(t *mvcc.Transaction, source, target uuid.UUID, edgeType string) (uuid.UUID, error) {
	if _, err := g.mgr.Resolve(t, mvcc.NewNodeKey(source)); err != nil {
		return uuid.Nil, err
	}
	if _, err := g.mgr.Resolve(t, mvcc.NewNodeKey(target)); err != nil {
		return uuid.Nil, err
	}
	if dup := g.mgr.SnapshotEdge(t, source, target, edgeType); dup != nil {
		return uuid.Nil, common.NewDuplicateEdgeError(source.String(), target.String(), edgeType)
	}

	id := g.newID()
	err := g.mgr.Put(t, mvcc.NewEdgeKey(id), mvcc.EdgeData{Source: source, Target: target, EdgeType: edgeType})
	if err != nil {
		return uuid.Nil, err
	}

	log.WithFields(log.Fields{"txID": t.ID(), "edge": id, "source": source, "target": target, "edgeType": edgeType}).Debug("graph::graph::AddEdge; created edge")
	return id, nil
}

// RemoveNode tombstones the node and every edge visible to the transaction
// that touches it. The cascaded edges join the write set, so a racing write
// against them is caught by the usual first-committer-wins rule.
func (g *Graph) RemoveNode(t *mvcc.Transaction, id uuid.UUID) error {
	t, owned := g.ensureTxn(t)
	return g.finishTemp(t, owned, g.removeNode(t, id))
}

func (g *Graph) removeNode(t *mvcc.Transaction, id uuid.UUID) error {
	if err := g.mgr.Delete(t, mvcc.NewNodeKey(id)); err != nil {
		return err
	}

	for _, ev := range g.mgr.VisibleOutEdges(t, id, "") {
		if err := g.mgr.Delete(t, ev.Key); err != nil {
			return err
		}
	}
	// Self loops tombstoned in the out-edge pass are no longer visible here.
	for _, ev := range g.mgr.VisibleInEdges(t, id) {
		if err := g.mgr.Delete(t, ev.Key); err != nil {
			return err
		}
	}
	return nil
}

// RemoveEdge tombstones the edge.
func (g *Graph) RemoveEdge(t *mvcc.Transaction, id uuid.UUID) error {
	t, owned := g.ensureTxn(t)
	return g.finishTemp(t, owned, g.mgr.Delete(t, mvcc.NewEdgeKey(id)))
}

// NodeAttributes returns the opaque attribute blob of the node as visible to
// the transaction.
func (g *Graph) NodeAttributes(t *mvcc.Transaction, id uuid.UUID) ([]byte, error) {
	t, owned := g.ensureTxn(t)

	var attrs []byte
	v, err := g.mgr.Resolve(t, mvcc.NewNodeKey(id))
	if err == nil {
		attrs = v.Node().Attributes
	}
	if err = g.finishTemp(t, owned, err); err != nil {
		return nil, err
	}
	return attrs, nil
}

// NodeVisible reports whether the node exists from the transaction's point
// of view.
func (g *Graph) NodeVisible(t *mvcc.Transaction, id uuid.UUID) bool {
	t, owned := g.ensureTxn(t)
	visible := g.mgr.IsVisible(t, mvcc.NewNodeKey(id))
	_ = g.finishTemp(t, owned, nil)
	return visible
}
