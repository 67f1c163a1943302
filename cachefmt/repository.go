package cachefmt

import (
	"context"

	"github.com/kextkit/kextmanager/kext"
)

// lookupFunc resolves a dependency identifier to its current index
// head, wired by the caller to (*kext.Manager).RawGet so a cached
// bundle's dependency resolution never recurses into read-repair (the
// same reasoning diskrepo.lookupFunc documents).
type lookupFunc func(kext.Identifier) (kext.NodeRef, bool)

// CachedRepository is a Repository reconstructed from a cache file
// rather than a filesystem scan. It is read-only in the sense that
// candidate/bad membership never changes except through Disqualify,
// mirroring diskrepo.DiskRepository's shape closely enough that the
// Manager cannot tell the two apart.
type CachedRepository struct {
	url string

	records    []kext.Record
	candidates []kext.BundleHandle
	bad        []kext.BundleHandle
}

func newCachedRepository(root plistValue, lookup lookupFunc) (*CachedRepository, error) {
	r := &CachedRepository{url: root.stringOr("url", "")}

	for _, entry := range root.arrayOr("candidates") {
		b, err := decodeCachedBundle(entry, lookup)
		if err != nil {
			return nil, err
		}
		h := kext.BundleHandle(len(r.records))
		r.records = append(r.records, kext.Record{Bundle: b})
		r.candidates = append(r.candidates, h)
	}
	for _, entry := range root.arrayOr("bad") {
		b, err := decodeCachedBundle(entry, lookup)
		if err != nil {
			return nil, err
		}
		h := kext.BundleHandle(len(r.records))
		r.records = append(r.records, kext.Record{Bundle: b})
		r.bad = append(r.bad, h)
	}
	return r, nil
}

func (r *CachedRepository) URL() string { return r.url }

func (r *CachedRepository) CandidateKexts() []kext.BundleHandle {
	return append([]kext.BundleHandle(nil), r.candidates...)
}

func (r *CachedRepository) BadKexts() []kext.BundleHandle {
	return append([]kext.BundleHandle(nil), r.bad...)
}

func (r *CachedRepository) Record(h kext.BundleHandle) *kext.Record {
	if h < 0 || int(h) >= len(r.records) {
		return nil
	}
	return &r.records[h]
}

func (r *CachedRepository) ResolveBadDependencies(ctx context.Context) error {
	for _, h := range r.bad {
		if cb, ok := r.records[h].Bundle.(*cachedBundle); ok {
			_ = cb.ResolveDependencies(ctx)
		}
	}
	return nil
}

func (r *CachedRepository) ClearDependencyState() {
	for i := range r.records {
		if cb, ok := r.records[i].Bundle.(*cachedBundle); ok {
			cb.hasAllDeps = false
			cb.authentic = false
		}
	}
}

func (r *CachedRepository) Disqualify(h kext.BundleHandle) {
	for i, c := range r.candidates {
		if c == h {
			r.candidates = append(r.candidates[:i], r.candidates[i+1:]...)
			r.bad = append(r.bad, h)
			return
		}
	}
}

// encodeRepository flattens repo's candidate and bad kexts into a
// plist dict the shape newCachedRepository expects back. The round trip
// is not complete: no executable name is stored, so a reloaded bundle
// reports no executable, and only dependencies resolved at save time
// are stored, each with the resolved bundle's version as its minimum.
func encodeRepository(repo kext.Repository) plistValue {
	root := newPlistDict()
	root.set("url", plistString(repo.URL()))

	candidates := plistValue{kind: kindArray}
	for _, h := range repo.CandidateKexts() {
		if rec := repo.Record(h); rec != nil && rec.Bundle != nil {
			candidates.arr = append(candidates.arr, encodeBundle(rec.Bundle))
		}
	}
	root.set("candidates", candidates)

	bad := plistValue{kind: kindArray}
	for _, h := range repo.BadKexts() {
		if rec := repo.Record(h); rec != nil && rec.Bundle != nil {
			bad.arr = append(bad.arr, encodeBundle(rec.Bundle))
		}
	}
	root.set("bad", bad)

	return root
}
