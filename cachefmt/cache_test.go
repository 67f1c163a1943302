package cachefmt

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kextkit/kextmanager/kext"
)

type fakeBundle struct {
	id      string
	version string
	enabled bool
}

func (b fakeBundle) Identifier() kext.Identifier { return kext.Identifier(b.id) }
func (b fakeBundle) Version() kext.Version        { return kext.MustParseVersion(b.version) }
func (b fakeBundle) IsValid() bool                { return true }
func (b fakeBundle) IsEnabled() bool              { return b.enabled }
func (b fakeBundle) IsSafeBootEligible() bool     { return true }
func (b fakeBundle) HasExecutable() bool          { return true }
func (b fakeBundle) AbsoluteURL() string          { return "/repo/" + b.id + ".kext" }
func (b fakeBundle) HasAllDependencies() bool     { return true }
func (b fakeBundle) IsAuthentic() bool            { return true }
func (b fakeBundle) DeclaresLoadFailed() bool     { return false }
func (b fakeBundle) SetLoadFailed(bool)           {}
func (b fakeBundle) StartAddress() uint64         { return 0 }
func (b fakeBundle) ResolveDependencies(ctx context.Context) error { return nil }
func (b fakeBundle) Authenticate(ctx context.Context) error        { return nil }
func (b fakeBundle) CopyAllDependencies() []kext.NodeRef            { return nil }
func (b fakeBundle) CopyPersonalities() map[string]kext.Personality {
	return map[string]kext.Personality{"Driver": {"IOKitDebug": int64(1)}}
}

type fakeRepository struct {
	url     string
	records []kext.Record
}

func (r *fakeRepository) URL() string { return r.url }
func (r *fakeRepository) CandidateKexts() []kext.BundleHandle {
	out := make([]kext.BundleHandle, len(r.records))
	for i := range r.records {
		out[i] = kext.BundleHandle(i)
	}
	return out
}
func (r *fakeRepository) BadKexts() []kext.BundleHandle { return nil }
func (r *fakeRepository) Record(h kext.BundleHandle) *kext.Record {
	if int(h) >= len(r.records) {
		return nil
	}
	return &r.records[h]
}
func (r *fakeRepository) ResolveBadDependencies(ctx context.Context) error { return nil }
func (r *fakeRepository) ClearDependencyState()                           {}
func (r *fakeRepository) Disqualify(kext.BundleHandle)                    {}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo := &fakeRepository{
		url: "/repo",
		records: []kext.Record{
			{Bundle: fakeBundle{id: "com.example.one", version: "1.0.0", enabled: true}},
			{Bundle: fakeBundle{id: "com.example.two", version: "2.5.0", enabled: false}},
		},
	}

	cachePath := filepath.Join(t.TempDir(), "repo.cache")
	if err := Save(repo, cachePath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cached, err := Load(cachePath, noopLookup)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cached.URL(), "/repo"; got != want {
		t.Fatalf("URL = %q, want %q", got, want)
	}
	candidates := cached.CandidateKexts()
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}
	first := cached.Record(candidates[0]).Bundle
	if got, want := first.Identifier(), kext.Identifier("com.example.one"); got != want {
		t.Fatalf("identifier = %q, want %q", got, want)
	}
	if got, want := first.Version().String(), "1.0.0"; got != want {
		t.Fatalf("version = %q, want %q", got, want)
	}
	if !first.CopyPersonalities()["Driver"].IOKitDebug() {
		t.Fatal("expected IOKitDebug personality to round-trip")
	}
}

func noopLookup(kext.Identifier) (kext.NodeRef, bool) { return kext.NilRef, false }

func TestIsCurrentExactEquality(t *testing.T) {
	dir := t.TempDir()
	repoDir := filepath.Join(dir, "repo")
	if err := os.Mkdir(repoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cachePath := filepath.Join(dir, "repo.cache")
	if err := os.WriteFile(cachePath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirInfo, err := os.Stat(repoDir)
	if err != nil {
		t.Fatal(err)
	}

	// Exactly one second newer: current.
	exact := dirInfo.ModTime().Add(currencySkew)
	if err := os.Chtimes(cachePath, exact, exact); err != nil {
		t.Fatal(err)
	}
	current, err := IsCurrent(cachePath, repoDir)
	if err != nil {
		t.Fatalf("IsCurrent: %v", err)
	}
	if !current {
		t.Fatal("expected cache to be current at exact +1s skew")
	}

	// Two seconds newer: a looser ≥ check would accept this, the spec's
	// exact-equality rule must not.
	tooNew := dirInfo.ModTime().Add(2 * currencySkew)
	if err := os.Chtimes(cachePath, tooNew, tooNew); err != nil {
		t.Fatal(err)
	}
	current, err = IsCurrent(cachePath, repoDir)
	if err != nil {
		t.Fatalf("IsCurrent: %v", err)
	}
	if current {
		t.Fatal("expected cache to be stale at +2s skew despite being newer")
	}
}

func TestIsCurrentMissingCache(t *testing.T) {
	dir := t.TempDir()
	current, err := IsCurrent(filepath.Join(dir, "missing.cache"), dir)
	if err != nil {
		t.Fatalf("IsCurrent: %v", err)
	}
	if current {
		t.Fatal("expected missing cache to be non-current")
	}
}
