package kext_test

import (
	"context"

	"github.com/kextkit/kextmanager/kext"
)

// fakeBundle is a fully scriptable Bundle: every capability the core
// reads or calls is just a field or a func field set directly by the
// test, so tests can exercise admission, resolution, and
// authentication decisions without any real bundle metadata format.
type fakeBundle struct {
	id      kext.Identifier
	version kext.Version

	valid            bool
	enabled          bool
	safeBootEligible bool
	hasExecutable    bool
	loadFailed       bool

	resolveErr error
	deps       []kext.NodeRef
	hasAllDeps bool

	authErr   error
	authentic bool

	personalities map[string]kext.Personality
}

func newFakeBundle(id, version string) *fakeBundle {
	return &fakeBundle{
		id:               kext.Identifier(id),
		version:          kext.MustParseVersion(version),
		valid:            true,
		enabled:          true,
		safeBootEligible: true,
		hasExecutable:    true,
	}
}

func (b *fakeBundle) Identifier() kext.Identifier { return b.id }
func (b *fakeBundle) Version() kext.Version        { return b.version }
func (b *fakeBundle) IsValid() bool                { return b.valid }
func (b *fakeBundle) IsEnabled() bool              { return b.enabled }
func (b *fakeBundle) IsSafeBootEligible() bool     { return b.safeBootEligible }
func (b *fakeBundle) HasExecutable() bool          { return b.hasExecutable }
func (b *fakeBundle) AbsoluteURL() string          { return "/fake/" + string(b.id) + ".kext" }
func (b *fakeBundle) HasAllDependencies() bool     { return b.hasAllDeps }
func (b *fakeBundle) IsAuthentic() bool            { return b.authentic }
func (b *fakeBundle) DeclaresLoadFailed() bool     { return b.loadFailed }
func (b *fakeBundle) SetLoadFailed(v bool)         { b.loadFailed = v }
func (b *fakeBundle) StartAddress() uint64         { return 0 }

func (b *fakeBundle) ResolveDependencies(ctx context.Context) error {
	b.hasAllDeps = b.resolveErr == nil
	return b.resolveErr
}

func (b *fakeBundle) Authenticate(ctx context.Context) error {
	b.authentic = b.authErr == nil
	return b.authErr
}

func (b *fakeBundle) CopyAllDependencies() []kext.NodeRef {
	return append([]kext.NodeRef(nil), b.deps...)
}

func (b *fakeBundle) CopyPersonalities() map[string]kext.Personality {
	return b.personalities
}

// fakeRepository is a plain arena over fakeBundle values, with
// Disqualify and ClearDependencyState behaving exactly like
// diskrepo.DiskRepository's.
type fakeRepository struct {
	url        string
	records    []kext.Record
	candidates []kext.BundleHandle
	bad        []kext.BundleHandle
}

func newFakeRepository(url string) *fakeRepository {
	return &fakeRepository{url: url}
}

func (r *fakeRepository) add(b *fakeBundle) kext.BundleHandle {
	h := kext.BundleHandle(len(r.records))
	r.records = append(r.records, kext.Record{Bundle: b})
	r.candidates = append(r.candidates, h)
	return h
}

func (r *fakeRepository) URL() string { return r.url }

func (r *fakeRepository) CandidateKexts() []kext.BundleHandle {
	return append([]kext.BundleHandle(nil), r.candidates...)
}

func (r *fakeRepository) BadKexts() []kext.BundleHandle {
	return append([]kext.BundleHandle(nil), r.bad...)
}

func (r *fakeRepository) Record(h kext.BundleHandle) *kext.Record {
	if h < 0 || int(h) >= len(r.records) {
		return nil
	}
	return &r.records[h]
}

func (r *fakeRepository) ResolveBadDependencies(ctx context.Context) error { return nil }

func (r *fakeRepository) ClearDependencyState() {
	for i := range r.records {
		if fb, ok := r.records[i].Bundle.(*fakeBundle); ok {
			fb.hasAllDeps = false
			fb.authentic = false
		}
	}
}

func (r *fakeRepository) Disqualify(h kext.BundleHandle) {
	for i, c := range r.candidates {
		if c == h {
			r.candidates = append(r.candidates[:i], r.candidates[i+1:]...)
			r.bad = append(r.bad, h)
			return
		}
	}
}

func ref(repo *fakeRepository, h kext.BundleHandle) kext.NodeRef {
	return kext.NodeRef{Repo: repo, Handle: h}
}
