package diskrepo

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/termie/go-shutil"

	"github.com/kextkit/kextmanager/kext"
)

// bundleSuffix is the directory-name convention a repository's
// top-level entries must carry to be scanned as bundles: a directory
// conventionally suffixed ".kext".
const bundleSuffix = ".kext"

// DiskRepository is the reference Repository implementation: a
// directory containing zero or more top-level "*.kext" bundle
// directories, each carrying its own manifest.toml sidecar (see
// manifest.go). It uses godirwalk for directory walking and go-shutil
// for staging copies.
type DiskRepository struct {
	url string
	reg registry

	candidates []kext.BundleHandle
	bad        []kext.BundleHandle

	lookup lookupFunc
}

// NewDiskRepository scans dir's immediate children for "*.kext"
// bundle directories, parsing each one's manifest. lookup resolves a
// dependency identifier to its current index head; callers wire this
// to (*kext.Manager).RawGet so dependency resolution never recurses
// into read-repair.
func NewDiskRepository(dir string, lookup lookupFunc) (*DiskRepository, error) {
	r := &DiskRepository{url: dir, lookup: lookup}

	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == dir {
				return nil
			}
			if !de.IsDir() {
				return nil
			}
			if !strings.HasSuffix(path, bundleSuffix) {
				// Not a bundle: its contents are not at the top level.
				return filepath.SkipDir
			}
			r.scanOne(path)
			// Bundles may themselves nest plug-in bundles; a repository
			// only looks at its own top level, so don't descend further
			// into this one.
			return filepath.SkipDir
		},
		Unsorted: false,
	})
	if err != nil {
		return nil, kext.NewError(kext.KindFileAccess, err, "scanning repository %s", dir)
	}
	return r, nil
}

func (r *DiskRepository) scanOne(path string) {
	m, err := readManifest(path)
	if err != nil {
		h := r.reg.add(badBundle{path: path, err: err})
		r.bad = append(r.bad, h)
		return
	}
	b, err := newDiskBundle(path, m, r.lookup)
	if err != nil {
		h := r.reg.add(badBundle{path: path, err: err})
		r.bad = append(r.bad, h)
		return
	}
	h := r.reg.add(b)
	r.candidates = append(r.candidates, h)
}

func (r *DiskRepository) URL() string { return r.url }

func (r *DiskRepository) CandidateKexts() []kext.BundleHandle {
	return append([]kext.BundleHandle(nil), r.candidates...)
}

func (r *DiskRepository) BadKexts() []kext.BundleHandle {
	return append([]kext.BundleHandle(nil), r.bad...)
}

func (r *DiskRepository) Record(h kext.BundleHandle) *kext.Record {
	return r.reg.get(h)
}

func (r *DiskRepository) ResolveBadDependencies(ctx context.Context) error {
	for _, h := range r.bad {
		rec := r.reg.get(h)
		if rec == nil {
			continue
		}
		if db, ok := rec.Bundle.(*diskBundle); ok {
			_ = db.ResolveDependencies(ctx)
		}
	}
	return nil
}

func (r *DiskRepository) ClearDependencyState() {
	for i := range r.reg.records {
		if db, ok := r.reg.records[i].Bundle.(*diskBundle); ok {
			db.hasAllDeps = false
			db.authentic = false
		}
	}
}

func (r *DiskRepository) Disqualify(h kext.BundleHandle) {
	for i, c := range r.candidates {
		if c == h {
			r.candidates = append(r.candidates[:i], r.candidates[i+1:]...)
			r.bad = append(r.bad, h)
			return
		}
	}
}

// StageCopy stages bundleDir (one of this repository's ".kext"
// directories) into a scratch destination ahead of a privileged load:
// version-control housekeeping directories are skipped, and everything
// else is copied with symlinks preserved.
func (r *DiskRepository) StageCopy(bundleDir, dest string) error {
	cfg := &shutil.CopyTreeOptions{
		Symlinks:     true,
		CopyFunction: shutil.Copy,
		Ignore: func(src string, contents []os.FileInfo) (ignore []string) {
			for _, fi := range contents {
				if !fi.IsDir() {
					continue
				}
				switch fi.Name() {
				case ".git", ".svn", ".hg":
					ignore = append(ignore, fi.Name())
				}
			}
			return
		},
	}
	return shutil.CopyTree(bundleDir, dest, cfg)
}

// badBundle is the placeholder Bundle for a directory that failed to
// parse as a real one; it is always inadmissible (IsValid() false), so
// it can never leave the bad-kexts side of its repository.
type badBundle struct {
	path string
	err  error
}

func (b badBundle) Identifier() kext.Identifier { return kext.Identifier(filepath.Base(b.path)) }
func (b badBundle) Version() kext.Version        { return kext.Version{} }
func (b badBundle) IsValid() bool                { return false }
func (b badBundle) IsEnabled() bool              { return false }
func (b badBundle) IsSafeBootEligible() bool     { return false }
func (b badBundle) HasExecutable() bool          { return false }
func (b badBundle) AbsoluteURL() string          { return b.path }
func (b badBundle) HasAllDependencies() bool     { return false }
func (b badBundle) IsAuthentic() bool            { return false }
func (b badBundle) DeclaresLoadFailed() bool     { return true }
func (b badBundle) StartAddress() uint64         { return 0 }
func (b badBundle) ResolveDependencies(ctx context.Context) error {
	return kext.NewError(kext.KindValidation, b.err, "bad bundle %s", b.path)
}
func (b badBundle) Authenticate(ctx context.Context) error { return b.err }
func (b badBundle) CopyAllDependencies() []kext.NodeRef    { return nil }
func (b badBundle) CopyPersonalities() map[string]kext.Personality { return nil }
func (b badBundle) SetLoadFailed(bool)                     {}
