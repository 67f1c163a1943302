package diskrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kextkit/kextmanager/kext"
)

func writeBundle(t *testing.T, root, name, manifestBody string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), []byte(manifestBody), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func noopLookup(kext.Identifier) (kext.NodeRef, bool) { return kext.NilRef, false }

func TestNewDiskRepositoryScansTopLevelBundles(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "com.example.one.kext", `
identifier = "com.example.one"
version = "1.0.0"
enabled = true
safe_boot_eligible = true
executable = "one"
`)
	writeBundle(t, root, "com.example.two.kext", `
identifier = "com.example.two"
version = "2.0.0"
enabled = true
`)
	// not a bundle directory: no suffix, should be ignored entirely
	if err := os.MkdirAll(filepath.Join(root, "stray"), 0o755); err != nil {
		t.Fatal(err)
	}

	repo, err := NewDiskRepository(root, noopLookup)
	if err != nil {
		t.Fatalf("NewDiskRepository: %v", err)
	}

	if got, want := len(repo.CandidateKexts()), 2; got != want {
		t.Fatalf("candidates = %d, want %d", got, want)
	}
	if got, want := len(repo.BadKexts()), 0; got != want {
		t.Fatalf("bad kexts = %d, want %d", got, want)
	}
}

func TestNewDiskRepositoryQuarantinesUnparsableManifest(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "com.example.broken.kext", "this is not valid toml =====")

	repo, err := NewDiskRepository(root, noopLookup)
	if err != nil {
		t.Fatalf("NewDiskRepository: %v", err)
	}
	if got, want := len(repo.CandidateKexts()), 0; got != want {
		t.Fatalf("candidates = %d, want %d", got, want)
	}
	if got, want := len(repo.BadKexts()), 1; got != want {
		t.Fatalf("bad kexts = %d, want %d", got, want)
	}
}

func TestDiskRepositoryDoesNotDescendIntoNestedBundles(t *testing.T) {
	root := t.TempDir()
	outer := writeBundle(t, root, "com.example.outer.kext", `
identifier = "com.example.outer"
version = "1.0.0"
enabled = true
`)
	writeBundle(t, outer, "com.example.plugin.kext", `
identifier = "com.example.plugin"
version = "1.0.0"
enabled = true
`)

	repo, err := NewDiskRepository(root, noopLookup)
	if err != nil {
		t.Fatalf("NewDiskRepository: %v", err)
	}
	if got, want := len(repo.CandidateKexts()), 1; got != want {
		t.Fatalf("candidates = %d, want %d (nested bundle should not be scanned)", got, want)
	}
}

func TestDiskBundleResolveDependencies(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "com.example.dep.kext", `
identifier = "com.example.dep"
version = "1.0.0"
enabled = true
`)
	depRepo, err := NewDiskRepository(root, noopLookup)
	if err != nil {
		t.Fatal(err)
	}
	depRef := kext.NodeRef{Repo: depRepo, Handle: depRepo.CandidateKexts()[0]}

	lookup := func(id kext.Identifier) (kext.NodeRef, bool) {
		if id == "com.example.dep" {
			return depRef, true
		}
		return kext.NilRef, false
	}

	consumerRoot := t.TempDir()
	writeBundle(t, consumerRoot, "com.example.consumer.kext", `
identifier = "com.example.consumer"
version = "1.0.0"
enabled = true

[[dependencies]]
identifier = "com.example.dep"
min_version = "0.9.0"
`)
	consumerRepo, err := NewDiskRepository(consumerRoot, lookup)
	if err != nil {
		t.Fatal(err)
	}
	ref := kext.NodeRef{Repo: consumerRepo, Handle: consumerRepo.CandidateKexts()[0]}

	if err := ref.Bundle().ResolveDependencies(context.Background()); err != nil {
		t.Fatalf("ResolveDependencies: %v", err)
	}
	if !ref.Bundle().HasAllDependencies() {
		t.Fatal("expected HasAllDependencies true")
	}
	deps := ref.Bundle().CopyAllDependencies()
	if len(deps) != 1 || !deps[0].Equal(depRef) {
		t.Fatalf("deps = %+v, want [%+v]", deps, depRef)
	}
}

func TestDiskBundleResolveDependenciesMissing(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "com.example.consumer.kext", `
identifier = "com.example.consumer"
version = "1.0.0"
enabled = true

[[dependencies]]
identifier = "com.example.absent"
`)
	repo, err := NewDiskRepository(root, noopLookup)
	if err != nil {
		t.Fatal(err)
	}
	ref := kext.NodeRef{Repo: repo, Handle: repo.CandidateKexts()[0]}

	err = ref.Bundle().ResolveDependencies(context.Background())
	if err == nil {
		t.Fatal("expected error for missing dependency")
	}
	if kext.KindOf(err) != kext.KindDependency {
		t.Fatalf("kind = %s, want %s", kext.KindOf(err), kext.KindDependency)
	}
	if ref.Bundle().HasAllDependencies() {
		t.Fatal("expected HasAllDependencies false")
	}
}

func TestDiskRepositoryDisqualify(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "com.example.one.kext", `
identifier = "com.example.one"
version = "1.0.0"
enabled = true
`)
	repo, err := NewDiskRepository(root, noopLookup)
	if err != nil {
		t.Fatal(err)
	}
	h := repo.CandidateKexts()[0]
	repo.Disqualify(h)

	if got, want := len(repo.CandidateKexts()), 0; got != want {
		t.Fatalf("candidates after disqualify = %d, want %d", got, want)
	}
	if got, want := len(repo.BadKexts()), 1; got != want {
		t.Fatalf("bad kexts after disqualify = %d, want %d", got, want)
	}
}
