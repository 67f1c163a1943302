package kext

import "context"

// Record is one arena slot: the Bundle capability plus the mutable
// chain links and runtime-computed loaded-state flags the core writes
// during Insert, prune, and Load Preparation's loaded-set-check. It is
// intentionally a plain struct, not something with pointer-identity
// semantics, so the prune phase can rewrite links by simple field
// assignment.
type Record struct {
	Bundle Bundle

	// Prior is the next-lower-version spine node for this identifier,
	// or NilRef at the tail of the spine.
	Prior NodeRef
	// Duplicate is the next node in this version's duplicate list, or
	// NilRef at the end of the list.
	Duplicate NodeRef

	// Loaded and OtherVersionLoaded are set by Load Preparation's
	// loaded-set-check and read by the same state
	// machine's subsequent steps. They are not persisted anywhere and
	// are recomputed (or left stale and ignored) on every check.
	Loaded             bool
	OtherVersionLoaded bool
}

// NodeRef names one arena slot by the repository that owns it plus a
// local handle. Because duplicate-version bundles can come from
// different repositories, a bare BundleHandle isn't enough to identify
// a node globally; NodeRef widens the handle to be meaningful across
// repository boundaries.
type NodeRef struct {
	Repo   Repository
	Handle BundleHandle
}

// NilRef is the sentinel empty reference.
var NilRef = NodeRef{}

// IsNil reports whether r refers to no bundle.
func (r NodeRef) IsNil() bool {
	return r.Repo == nil || r.Handle == NoBundle
}

// Record dereferences r, or nil if r is nil.
func (r NodeRef) Record() *Record {
	if r.IsNil() {
		return nil
	}
	return r.Repo.Record(r.Handle)
}

// Bundle dereferences r's Bundle, or nil if r is nil.
func (r NodeRef) Bundle() Bundle {
	if rec := r.Record(); rec != nil {
		return rec.Bundle
	}
	return nil
}

func (r NodeRef) Equal(other NodeRef) bool {
	return r.Repo == other.Repo && r.Handle == other.Handle
}

// Repository is the external collaborator that owns a set of candidate
// and bad bundles discovered under one on-disk directory. The core
// treats it as an arena of Records plus the operations it needs to
// drive admission, pruning, and disqualification.
type Repository interface {
	// URL is the repository's canonical directory URL; repositories are
	// unique by URL within a Manager.
	URL() string

	// CandidateKexts returns, in discovery order, every bundle this
	// repository currently offers as a load candidate.
	CandidateKexts() []BundleHandle
	// BadKexts returns, in discovery order, bundles this repository
	// could not classify as usable candidates.
	BadKexts() []BundleHandle

	// Record dereferences a handle this repository previously vended.
	Record(BundleHandle) *Record

	// ResolveBadDependencies asks every bad kext to resolve its
	// dependencies, for diagnostic purposes only.
	ResolveBadDependencies(ctx context.Context) error

	// ClearDependencyState resets every owned bundle's cached
	// dependency-resolution state, so a subsequent ResolveDependencies
	// call starts clean.
	ClearDependencyState()

	// Disqualify removes a bundle from future CandidateKexts results
	// (moving it to the bad-kexts side), used when Load Preparation's
	// authentication step rejects a dependency outright.
	Disqualify(BundleHandle)
}
