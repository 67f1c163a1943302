package kernel

import (
	"context"

	"github.com/kextkit/kextmanager/kext"
)

// FakeLinker is an in-process kext.Linker: it never touches a real
// kernel, it just records every graph it was asked to link so a test
// or CLI can assert on Dispatch's in-process path. Fail, if set, is
// returned verbatim by every Link call, for exercising Dispatch's
// failure handling (load-failed flag, implied Clear()).
type FakeLinker struct {
	Fail  error
	Calls []kext.DependencyGraph
}

func (l *FakeLinker) Link(ctx context.Context, graph kext.DependencyGraph, opts kext.LoadOptions) error {
	l.Calls = append(l.Calls, graph)
	return l.Fail
}
