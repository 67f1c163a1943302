// Package kernel provides an in-memory fake of the two kernel-facing
// transports — module enumeration and the catalog — so the Load
// Preparation state machine and Load Dispatch can be
// exercised — in tests and by a CLI running without root or a real
// kernel — without a genuine kernel call underneath.
package kernel

import (
	"context"
	"sync"

	"github.com/kextkit/kextmanager/kext"
)

// FakeGateway implements kext.KernelGateway entirely in memory: its
// "loaded modules" list and its "catalog" are just maps a test or CLI
// can inspect and mutate directly between calls.
type FakeGateway struct {
	mu      sync.Mutex
	loaded  map[string]kext.LoadedModule
	catalog map[string]kext.Personality
}

// NewFakeGateway returns an empty fake: no modules loaded, no
// personalities in the catalog.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		loaded:  make(map[string]kext.LoadedModule),
		catalog: make(map[string]kext.Personality),
	}
}

// SetLoaded records mod as currently loaded, as if the kernel itself
// had reported it — for tests to arrange a loaded-set-check scenario
// without going through Dispatch.
func (g *FakeGateway) SetLoaded(mod kext.LoadedModule) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loaded[mod.Name] = mod
}

// Unload removes name from the fake's loaded set.
func (g *FakeGateway) Unload(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.loaded, name)
}

func (g *FakeGateway) LoadedModules(ctx context.Context) ([]kext.LoadedModule, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]kext.LoadedModule, 0, len(g.loaded))
	for _, m := range g.loaded {
		out = append(out, m)
	}
	return out, nil
}

func (g *FakeGateway) PublishPersonalities(ctx context.Context, personalities map[string]kext.Personality) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name, p := range personalities {
		g.catalog[name] = p
	}
	return nil
}

func (g *FakeGateway) RemovePersonalities(ctx context.Context, match map[string]interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := match["CFBundleIdentifier"].(string)
	if !ok {
		return nil
	}
	for name, p := range g.catalog {
		if bid, _ := p["CFBundleIdentifier"].(string); bid == id {
			delete(g.catalog, name)
		}
	}
	return nil
}

// Catalog returns a snapshot of every personality currently published,
// keyed by personality name — for tests asserting on Dispatch's
// catalog-publish step.
func (g *FakeGateway) Catalog() map[string]kext.Personality {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]kext.Personality, len(g.catalog))
	for k, v := range g.catalog {
		out[k] = v
	}
	return out
}
