package kext

import (
	"context"

	"github.com/kextkit/kextmanager/logx"
)

// Policy carries the orthogonal flags that shape Manager's behavior.
type Policy struct {
	SafeBoot             bool
	FullTests            bool
	StrictAuthentication bool
	LoadInProcess        bool
}

// Manager is the candidate-selection and dependency-resolution engine.
// It owns no bundles directly — repositories own their
// bundles exclusively — but owns the index built over them, the
// invalidation bookkeeping, and the policy flags that shape both.
type Manager struct {
	invalidation

	repositories []Repository
	urls         map[string]struct{}

	index       *Index
	missingDeps []NodeRef

	Policy Policy
	Logger logx.Logger

	Linker  Linker
	Spawner ChildSpawner
	Kernel  KernelGateway
}

// NewManager constructs an empty Manager. Repositories and bundles
// accumulate via AddRepository; the Manager is torn down simply by
// letting it and its repositories be garbage collected — it owns no OS
// resources of its own.
func NewManager(policy Policy, logger logx.Logger) *Manager {
	if logger == nil {
		logger = logx.Nop{}
	}
	return &Manager{
		repositories: nil,
		urls:         make(map[string]struct{}),
		index:        NewIndex(),
		Policy:       policy,
		Logger:       logger,
	}
}

// AddRepository appends repo to the repository list, in insertion
// order, unless its URL is already present (duplicate URL insertion is
// a no-op). Adding a repository invalidates the index.
func (m *Manager) AddRepository(repo Repository) {
	url := repo.URL()
	if _, dup := m.urls[url]; dup {
		return
	}
	m.urls[url] = struct{}{}
	m.repositories = append(m.repositories, repo)
	m.Clear()
}

// RemoveRepository drops the repository with the given URL, if present,
// and invalidates the index.
func (m *Manager) RemoveRepository(url string) {
	if _, ok := m.urls[url]; !ok {
		return
	}
	delete(m.urls, url)
	kept := m.repositories[:0]
	for _, r := range m.repositories {
		if r.URL() != url {
			kept = append(kept, r)
		}
	}
	m.repositories = kept
	m.Clear()
}

// Repositories returns the repository list in insertion order.
func (m *Manager) Repositories() []Repository {
	return append([]Repository(nil), m.repositories...)
}

// MissingDeps returns the bundles pruned by the most recent dependency
// resolution pass, in the order they were pruned. Diagnostic only.
func (m *Manager) MissingDeps() []NodeRef {
	return append([]NodeRef(nil), m.missingDeps...)
}

// RebuildNow forces an immediate read-repair regardless of whether a
// caller is about to read — useful for tests and CLI diagnostics that
// want to observe the index right after a batch of repository changes.
func (m *Manager) RebuildNow(ctx context.Context) error {
	return m.readRepair(ctx)
}

// buildRelationships is the Relationship Builder: clear the index and
// missing-deps (already done by the caller via clear()),
// then for every repository in insertion order, for every candidate
// bundle in that repository's candidate sequence in order, admit and
// insert it. Ties within equal versions resolve by discovery order,
// which falls out naturally from iterating repositories and their
// candidate sequences in a fixed order and inserting one at a time.
func (m *Manager) buildRelationships(ctx context.Context) error {
	admission := AdmissionPolicy{SafeBoot: m.Policy.SafeBoot}

	for _, repo := range m.repositories {
		for _, h := range repo.CandidateKexts() {
			ref := NodeRef{Repo: repo, Handle: h}
			rec := ref.Record()
			if rec == nil || rec.Bundle == nil {
				continue
			}
			rec.Prior = NilRef
			rec.Duplicate = NilRef
			if Admissible(rec.Bundle, admission) {
				m.index.Insert(ref)
			} else {
				m.Logger.Log(logx.Basic, int(h), "admission rejected %s %s", rec.Bundle.Identifier(), rec.Bundle.Version())
			}
		}
	}

	m.resolveDependencies(ctx)
	m.pruneUnresolved(ctx)

	m.needsRecalc = false
	return nil
}
