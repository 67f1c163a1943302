package kext

import "context"

// Get performs read-repair then returns the head (maximum known
// version) for id.
func (m *Manager) Get(ctx context.Context, id Identifier) (NodeRef, error) {
	if err := m.readRepair(ctx); err != nil {
		return NilRef, err
	}
	ref, ok := m.index.Head(id)
	if !ok {
		return NilRef, NewError(KindKextNotFound, nil, "no candidate for %s", id)
	}
	return ref, nil
}

// RawGet returns the current head for id without triggering read-repair
// or refreshing the loaded set. It exists for callbacks invoked from
// inside a rebuild itself — most notably a Bundle's ResolveDependencies
// looking up its own dependencies' candidates — where calling Get would
// recurse into readRepair while needsRecalc is still set — relationship
// building and dependency resolution run to completion before any read
// observes the index.
func (m *Manager) RawGet(id Identifier) (NodeRef, bool) {
	return m.index.Head(id)
}

// GetVersion walks id's spine and returns the node whose version
// equals exactly v.
func (m *Manager) GetVersion(ctx context.Context, id Identifier, v Version) (NodeRef, error) {
	if err := m.readRepair(ctx); err != nil {
		return NilRef, err
	}
	for _, node := range m.index.Spine(id) {
		if node.Bundle().Version().Equal(v) {
			return node, nil
		}
	}
	return NilRef, NewError(KindKextNotFound, nil, "no version %s of %s", v, id)
}

// GetCompatible walks id's spine, tracking the first node for which
// compatible reports true; if a loaded compatible node is found it is
// returned immediately, otherwise the earliest-found compatible node is
// returned (preference: loaded over newer; among unloaded, the latest
// compatible). Compatibility is caller-defined: the core has no opinion
// on constraint syntax, only on where in the spine to look.
func (m *Manager) GetCompatible(ctx context.Context, id Identifier, compatible func(Version) bool) (NodeRef, error) {
	if err := m.readRepair(ctx); err != nil {
		return NilRef, err
	}
	var first NodeRef
	for _, node := range m.index.Spine(id) {
		if !compatible(node.Bundle().Version()) {
			continue
		}
		if node.Record().Loaded {
			return node, nil
		}
		if first.IsNil() {
			first = node
		}
	}
	if first.IsNil() {
		return NilRef, NewError(KindKextNotFound, nil, "no compatible version of %s", id)
	}
	return first, nil
}

// GetLoadedOrLatest performs read-repair, refreshes the loaded set, and
// returns the loaded spine node for id if one exists, else the head.
func (m *Manager) GetLoadedOrLatest(ctx context.Context, id Identifier) (NodeRef, error) {
	if err := m.readRepair(ctx); err != nil {
		return NilRef, err
	}
	if err := m.refreshLoadedSet(ctx); err != nil {
		return NilRef, err
	}
	for _, node := range m.index.Spine(id) {
		if node.Record().Loaded {
			return node, nil
		}
	}
	return m.Get(ctx, id)
}

// CopyAllWith flattens id's full spine and every duplicate list into an
// ordered sequence.
func (m *Manager) CopyAllWith(ctx context.Context, id Identifier) ([]NodeRef, error) {
	if err := m.readRepair(ctx); err != nil {
		return nil, err
	}
	return m.index.CopyAllWith(id), nil
}

// CopyAllKexts flattens the whole index plus every repository's
// bad-kext sequence.
func (m *Manager) CopyAllKexts(ctx context.Context) ([]NodeRef, error) {
	if err := m.readRepair(ctx); err != nil {
		return nil, err
	}
	var out []NodeRef
	for _, id := range m.index.Identifiers() {
		out = append(out, m.index.CopyAllWith(id)...)
	}
	for _, repo := range m.repositories {
		for _, h := range repo.BadKexts() {
			out = append(out, NodeRef{Repo: repo, Handle: h})
		}
	}
	return out, nil
}

// refreshLoadedSet implements the loaded-set-check's marking pass: ask
// the kernel for the currently loaded module set, and for each loaded
// module name, locate its head in the index and mark nodes whose
// version equals the loaded version as Loaded, and all others with the
// same identifier as OtherVersionLoaded.
func (m *Manager) refreshLoadedSet(ctx context.Context) error {
	if m.Kernel == nil {
		return nil
	}
	loaded, err := m.Kernel.LoadedModules(ctx)
	if err != nil {
		return NewError(KindKernelError, err, "enumerating loaded modules")
	}

	for _, id := range m.index.Identifiers() {
		for _, node := range m.index.CopyAllWith(id) {
			rec := node.Record()
			rec.Loaded = false
			rec.OtherVersionLoaded = false
		}
	}

	for _, mod := range loaded {
		id := Identifier(mod.Name)
		v, verr := ParseVersion(mod.Version)
		all := m.index.CopyAllWith(id)
		for _, node := range all {
			rec := node.Record()
			if verr == nil && node.Bundle().Version().Equal(v) {
				rec.Loaded = true
				rec.OtherVersionLoaded = false
			} else {
				rec.OtherVersionLoaded = true
			}
		}
	}
	return nil
}
