package kext

import "context"

// InteractiveLevel controls how chatty the link/load driver's user
// prompts are: none, basic, or verbose.
type InteractiveLevel int

const (
	InteractiveNone InteractiveLevel = iota
	InteractiveBasic
	InteractiveVerbose
)

// LoadOptions are the caller-controlled options of Load Dispatch:
// do-load, do-start, do-prelink, symbol-dir, patch-dir, kernel-file,
// interactive level, overwrite policy, optional explicit load
// addresses.
type LoadOptions struct {
	DoLoad       bool
	DoStart      bool
	DoPrelink    bool
	SymbolDir    string
	PatchDir     string
	KernelFile   string
	Interactive  InteractiveLevel
	AskOverwrite bool
	Overwrite    bool
	// LoadAddresses optionally pins an explicit kernel load address per
	// identifier, overriding whatever address the linker would pick.
	LoadAddresses map[Identifier]uint64
}

// DependencyGraph is the dependency graph handed to the link/load
// driver: the dependency closure, ordered so that the target is last.
type DependencyGraph struct {
	Closure []NodeRef
}

// Linker is the link/load driver contract: a dependency-graph linker,
// symbol relocation, and kernel module injection, implemented outside
// this package. The core only needs to call it and interpret the Kind
// it returns.
type Linker interface {
	Link(ctx context.Context, graph DependencyGraph, opts LoadOptions) error
}

// ChildSpawner runs the same call out-of-process, for callers that want
// the link/load driver isolated in a forked child that reports its
// result as an exit code. It returns the child's exit code, which
// Dispatch maps to a Kind. ProcessSpawner reports abnormal termination
// (signaled/stopped) as a KindChildTask error, and Dispatch returns a
// Spawn error unchanged.
type ChildSpawner interface {
	Spawn(ctx context.Context, graph DependencyGraph, opts LoadOptions) (exitCode int, err error)
}
