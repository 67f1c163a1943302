package kext

import (
	"context"
	"os/exec"
	"strconv"
	"syscall"
)

// ProcessSpawner is the default ChildSpawner: it execs a link/load
// driver binary, lets it perform the privileged kernel call, and reads
// back its numeric Kind as the process exit status — the channel the
// design notes call out as requiring numerically stable Kind values.
//
// Command construction runs a plain exec.Cmd to completion and inspects
// its *os.ProcessState, rather than trying to parse anything from
// stdout/stderr.
type ProcessSpawner struct {
	// Path is the link/load driver executable.
	Path string
	// ExtraArgs are prepended before the encoded request, e.g. a
	// subcommand name such as "--child-load".
	ExtraArgs []string
}

// Spawn encodes graph (as its closure's identifiers) and opts as
// command-line flags, execs Path, waits for it to exit, and returns its
// exit code. opts.LoadAddresses is not passed to the child.
//
// A child spawned this way must never attempt manager cleanup on exit
// — it is a separate process image entirely, so there is nothing here
// that could call back into a Manager.
func (p ProcessSpawner) Spawn(ctx context.Context, graph DependencyGraph, opts LoadOptions) (int, error) {
	args := append(append([]string{}, p.ExtraArgs...), encodeLoadOptions(graph, opts)...)
	cmd := exec.CommandContext(ctx, p.Path, args...)
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		// Couldn't even start the process, or a non-exit failure.
		return -1, NewError(KindChildTask, err, "spawning link/load driver %s", p.Path)
	}

	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return exitErr.ExitCode(), nil
	}
	if status.Signaled() || status.Stopped() {
		return -1, NewError(KindChildTask, err, "link/load driver terminated abnormally")
	}
	return status.ExitStatus(), nil
}

func encodeLoadOptions(graph DependencyGraph, opts LoadOptions) []string {
	var args []string
	if opts.DoLoad {
		args = append(args, "-load")
	}
	if opts.DoStart {
		args = append(args, "-start")
	}
	if opts.DoPrelink {
		args = append(args, "-prelink")
	}
	if opts.SymbolDir != "" {
		args = append(args, "-symbols", opts.SymbolDir)
	}
	if opts.PatchDir != "" {
		args = append(args, "-patch", opts.PatchDir)
	}
	if opts.KernelFile != "" {
		args = append(args, "-kernel", opts.KernelFile)
	}
	args = append(args, "-interactive", strconv.Itoa(int(opts.Interactive)))
	if opts.AskOverwrite {
		args = append(args, "-ask-overwrite")
	}
	if opts.Overwrite {
		args = append(args, "-overwrite")
	}
	for _, ref := range graph.Closure {
		args = append(args, "-dep", string(ref.Bundle().Identifier()))
	}
	return args
}
