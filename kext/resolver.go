package kext

import (
	"context"

	"github.com/kextkit/kextmanager/logx"
)

// resolveDependencies is the Dependency Resolver's first phase:
// enumerate every identifier in the index, walk its spine, and at each
// spine node walk its duplicate list, calling ResolveDependencies on
// every node reached.
func (m *Manager) resolveDependencies(ctx context.Context) {
	for _, id := range m.index.Identifiers() {
		for _, node := range m.index.Spine(id) {
			if err := node.Bundle().ResolveDependencies(ctx); err != nil {
				m.Logger.Log(logx.Debug, int(node.Handle), "resolve-dependencies: %s", err)
			}
			for _, dup := range Duplicates(node) {
				if err := dup.Bundle().ResolveDependencies(ctx); err != nil {
					m.Logger.Log(logx.Debug, int(dup.Handle), "resolve-dependencies: %s", err)
				}
			}
		}
	}

	if m.Policy.FullTests {
		for _, repo := range m.repositories {
			if err := repo.ResolveBadDependencies(ctx); err != nil {
				m.Logger.Log(logx.Debug, logx.NoBundle, "resolve bad-kext dependencies in %s: %s", repo.URL(), err)
			}
		}
	}
}

// pruneUnresolved is the Dependency Resolver's second phase: for each
// identifier, walk the spine with cursors prev/cur/next,
// pruning any node whose HasAllDependencies is false and re-stitching
// both the spine and the surviving spine nodes' duplicate chains.
func (m *Manager) pruneUnresolved(ctx context.Context) {
	for _, id := range m.index.Identifiers() {
		m.pruneIdentifier(id)
	}
}

func (m *Manager) pruneIdentifier(id Identifier) {
	head, ok := m.index.get(id)
	if !ok {
		return
	}

	prev := NilRef
	cur := head
	for !cur.IsNil() {
		rec := cur.Record()
		next := rec.Prior

		if rec.Bundle.HasAllDependencies() {
			m.pruneDuplicatesOf(cur)
			prev = cur
			cur = next
			continue
		}

		m.recordMissing(cur)
		dup := rec.Duplicate

		if dup.IsNil() {
			if !prev.IsNil() {
				prev.Record().Prior = next
			} else if next.IsNil() {
				m.index.delete(id)
			} else {
				m.index.set(id, next)
			}
			cur = next
			continue
		}

		// Promote dup into cur's spine slot. It must itself be
		// re-examined in this same pass — not skipped — since it may
		// in turn be missing dependencies.
		dup.Record().Prior = next
		if !prev.IsNil() {
			prev.Record().Prior = dup
		} else {
			m.index.set(id, dup)
		}
		cur = dup
	}
}

// pruneDuplicatesOf walks spineNode's duplicate list with a peek
// cursor, unlinking any duplicate whose HasAllDependencies is false.
func (m *Manager) pruneDuplicatesOf(spineNode NodeRef) {
	prev := spineNode
	cur := spineNode.Record().Duplicate
	for !cur.IsNil() {
		rec := cur.Record()
		next := rec.Duplicate
		if !rec.Bundle.HasAllDependencies() {
			m.recordMissing(cur)
			prev.Record().Duplicate = next
			cur = next
			continue
		}
		prev = cur
		cur = next
	}
}

func (m *Manager) recordMissing(ref NodeRef) {
	m.missingDeps = append(m.missingDeps, ref)
	b := ref.Bundle()
	m.Logger.Log(logx.Basic, int(ref.Handle), "missing dependencies: %s %s", b.Identifier(), b.Version())
}
