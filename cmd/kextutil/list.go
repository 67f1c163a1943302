package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/kextkit/kextmanager/kext"
)

// listCommand prints every candidate bundle currently in the index,
// followed by every repository's bad kexts, one per line, identifier
// then version.
type listCommand struct{}

func (*listCommand) Name() string      { return "list" }
func (*listCommand) ShortHelp() string { return "list candidate and bad kexts across all repositories" }
func (*listCommand) Register(*flag.FlagSet) {}

func (*listCommand) Run(ctx context.Context, m *kext.Manager, args []string, stdout io.Writer) error {
	all, err := m.CopyAllKexts(ctx)
	if err != nil {
		return err
	}
	for _, ref := range all {
		b := ref.Bundle()
		if b == nil {
			continue
		}
		fmt.Fprintf(stdout, "%s %s\n", b.Identifier(), b.Version())
	}
	return nil
}
