package kext

import (
	"context"

	"github.com/kextkit/kextmanager/logx"
)

// DispatchOptions carries the caller identity Load Dispatch needs on top
// of LoadOptions: whether the caller is the system's own kext daemon —
// non-daemon callers loading a bundle with no personalities get a
// minimal OSBundleModuleDemand personality published before the
// link/load runs.
type DispatchOptions struct {
	Options LoadOptions
	IsKextd bool
}

// Dispatch runs Load Dispatch against an already-prepared
// DependencyGraph. It first publishes the target's personalities to the
// kernel catalog (or a minimal OSBundleModuleDemand stand-in, for
// non-daemon callers loading a bundle with none of its own), with any
// carrying a nonzero IOKitDebug withheld under safe boot. It then either
// calls the Linker synchronously (in-process mode) or runs a
// ChildSpawner and maps its exit code back to an error, and on any
// failure other than already-loaded marks the target's load-failed flag
// and requests a full Clear().
func (m *Manager) Dispatch(ctx context.Context, target NodeRef, graph DependencyGraph, opts DispatchOptions) error {
	b := target.Bundle()
	if b == nil {
		return NewError(KindInvalidArgument, nil, "nil target")
	}

	if opts.Options.DoLoad && m.Kernel != nil {
		personalities := b.CopyPersonalities()
		if len(personalities) == 0 && !opts.IsKextd {
			// Non-kextd callers loading a bundle with no personalities of
			// its own get a minimal OSBundleModuleDemand instead, giving
			// the kernel a chance to load from its own prelinked set
			// before the user-space linker runs.
			personalities = map[string]Personality{
				"OSBundleModuleDemand": {"CFBundleIdentifier": string(b.Identifier())},
			}
		}
		if len(personalities) > 0 {
			if err := m.Kernel.PublishPersonalities(ctx, m.filterSafeBoot(personalities)); err != nil {
				m.Logger.Log(logx.Basic, int(target.Handle), "publishing personalities for %s: %s", b.Identifier(), err)
			}
		}
	}

	var dispatchErr error
	switch {
	case m.Policy.LoadInProcess:
		if m.Linker == nil {
			return NewError(KindInvalidArgument, nil, "no in-process linker configured")
		}
		dispatchErr = m.Linker.Link(ctx, graph, opts.Options)
	case m.Spawner != nil:
		code, err := m.Spawner.Spawn(ctx, graph, opts.Options)
		if err != nil {
			dispatchErr = err
		} else if Kind(code) != KindNone {
			dispatchErr = NewError(Kind(code), nil, "link/load driver reported %s", Kind(code))
		}
	default:
		return NewError(KindInvalidArgument, nil, "no link/load dispatch mechanism configured")
	}

	if dispatchErr != nil && KindOf(dispatchErr) != KindAlreadyLoaded {
		b.SetLoadFailed(true)
		m.Clear()
	}
	return dispatchErr
}

// filterSafeBoot drops personalities carrying a nonzero IOKitDebug under
// safe boot, so they are never handed to the kernel catalog.
func (m *Manager) filterSafeBoot(personalities map[string]Personality) map[string]Personality {
	if !m.Policy.SafeBoot {
		return personalities
	}
	out := make(map[string]Personality, len(personalities))
	for name, p := range personalities {
		if p.IOKitDebug() {
			continue
		}
		out[name] = p
	}
	return out
}
