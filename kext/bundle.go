package kext

import "context"

// BundleHandle is an arena index into the Registry that owns a Bundle.
// Handles are only meaningful relative to the Registry that produced
// them — see DESIGN.md for the rationale behind this index-into-arena
// scheme over a pointer-linked prior/duplicate chain.
type BundleHandle int

// NoBundle is the sentinel for "no such bundle".
const NoBundle BundleHandle = -1

// Personality is a driver-matching dictionary. Values are left untyped
// because the core never interprets a personality's contents except
// for two things it cares about directly: safe-boot eligibility
// signaling via "IOKitDebug", and synthesizing a minimal
// OSBundleModuleDemand personality during Load Dispatch.
type Personality map[string]interface{}

// IOKitDebug reports whether this personality carries a nonzero
// IOKitDebug key, the signal Load Dispatch's safe-boot filtering uses
// to withhold a personality from the kernel catalog under safe boot.
func (p Personality) IOKitDebug() bool {
	v, ok := p["IOKitDebug"]
	if !ok {
		return false
	}
	switch n := v.(type) {
	case int:
		return n != 0
	case int64:
		return n != 0
	case float64:
		return n != 0
	default:
		return false
	}
}

// Bundle is the external entity the core consumes. Everything about
// discovering, parsing, and authenticating a kext on disk lives outside
// this package; Bundle names only the attributes and capabilities the
// engine reads or calls.
type Bundle interface {
	Identifier() Identifier
	Version() Version

	IsValid() bool
	IsEnabled() bool
	IsSafeBootEligible() bool
	HasExecutable() bool
	AbsoluteURL() string

	// HasAllDependencies reports the result of the most recent
	// ResolveDependencies call. Before the first call it is false.
	HasAllDependencies() bool
	// IsAuthentic reports the result of the most recent Authenticate
	// call. Before the first call it is false.
	IsAuthentic() bool
	// DeclaresLoadFailed is the sticky load-failed quarantine flag.
	DeclaresLoadFailed() bool
	StartAddress() uint64

	// ResolveDependencies asks the bundle to determine, and cache, its
	// HasAllDependencies() answer and its CopyAllDependencies() list.
	ResolveDependencies(ctx context.Context) error
	// Authenticate asks the bundle to verify its own and its
	// dependencies' code signatures, caching IsAuthentic()'s answer.
	Authenticate(ctx context.Context) error
	// CopyAllDependencies returns this bundle's direct dependencies as
	// already-resolved index nodes, populated by the most recent
	// successful ResolveDependencies call. Matching a dependency
	// constraint to a specific candidate is the external capability's
	// business — the core only walks the result to build a closure.
	CopyAllDependencies() []NodeRef
	// CopyPersonalities returns this bundle's driver-matching
	// personalities, keyed by personality name.
	CopyPersonalities() map[string]Personality

	// SetLoadFailed sets or clears the sticky load-failed quarantine
	// flag consulted by both Load Dispatch and the Admission Filter.
	SetLoadFailed(bool)
}
