package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/kextkit/kextmanager/kernel"
	"github.com/kextkit/kextmanager/kext"
)

// loadCommand runs Load Preparation and Load Dispatch for a single
// identifier, in-process against the fake kernel gateway wired up by
// Config.Run. It exists to exercise the full Prepare→Dispatch path from
// the command line rather than only from tests.
type loadCommand struct {
	doLoad bool
}

func (*loadCommand) Name() string      { return "load" }
func (*loadCommand) ShortHelp() string { return "prepare and dispatch a load for <identifier>" }

func (c *loadCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.doLoad, "do-load", true, "actually request the load, not just a dry-run prepare")
}

func (c *loadCommand) Run(ctx context.Context, m *kext.Manager, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return kext.NewError(kext.KindInvalidArgument, nil, "load requires exactly one identifier argument")
	}
	id := kext.Identifier(args[0])

	target, err := m.Get(ctx, id)
	if err != nil {
		return err
	}

	linker := &kernel.FakeLinker{}
	m.Linker = linker
	m.Policy.LoadInProcess = true

	graph, err := m.Prepare(ctx, kext.PrepareOptions{
		Target:         target,
		DoLoad:         c.doLoad,
		CheckLoadedSet: true,
	})
	if err != nil {
		return err
	}

	if err := m.Dispatch(ctx, target, graph, kext.DispatchOptions{
		Options: kext.LoadOptions{DoLoad: c.doLoad, DoStart: c.doLoad},
	}); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "loaded %s %s (closure size %d)\n", id, target.Bundle().Version(), len(graph.Closure))
	return nil
}
