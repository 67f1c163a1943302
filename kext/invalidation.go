package kext

import "context"

// invalidation implements the Invalidation Controller's disable-counter
// / deferred-flag discipline. It is embedded in Manager rather than
// free-standing because clear() ultimately needs to rebuild the index
// via the Relationship Builder, which needs the Manager's repository
// list and policy.
type invalidation struct {
	disableCount int
	needsClear   bool
	needsRecalc  bool
}

// DisableClear increments the disable counter. Every call must be
// matched by exactly one EnableClear on all control-flow paths;
// callers typically pair this with a deferred EnableClear.
func (m *Manager) DisableClear() {
	m.disableCount++
}

// EnableClear decrements the disable counter, not below zero, and
// performs the deferred clear if the counter has returned to zero and
// one was requested while disabled.
func (m *Manager) EnableClear() {
	if m.disableCount > 0 {
		m.disableCount--
	}
	if m.disableCount == 0 && m.needsClear {
		m.clear(context.Background())
	}
}

// Clear requests a full invalidation: drop the index and missing-deps,
// and reset every repository's per-bundle dependency state. If clears
// are currently coalesced (disableCount > 0), the clear and the implied
// rebuild are deferred instead of performed immediately.
func (m *Manager) Clear() {
	m.clear(context.Background())
}

func (m *Manager) clear(ctx context.Context) {
	if m.disableCount > 0 {
		m.needsClear = true
		m.needsRecalc = true
		return
	}

	m.index.Clear()
	m.missingDeps = nil
	for _, repo := range m.repositories {
		repo.ClearDependencyState()
	}
	m.needsClear = false
	m.needsRecalc = true
}

// readRepair is the sole guarantee that stale state is never observed:
// before any read that requires a consistent index, honor needsClear
// (by performing the deferred clear), then needsRecalc (by rebuilding
// relationships). needsRecalc is checked after the clear, since
// clearing sets it.
func (m *Manager) readRepair(ctx context.Context) error {
	if m.needsClear {
		m.clear(ctx)
	}
	if m.needsRecalc {
		return m.buildRelationships(ctx)
	}
	return nil
}
