package diskrepo

import (
	"context"
	"path/filepath"

	"github.com/kextkit/kextmanager/kext"
)

// lookupFunc resolves an identifier to its current index head without
// triggering read-repair (kext.Manager.RawGet) — diskBundle is handed
// one by the repository that owns it, rather than holding a *Manager
// directly, so the dependency direction stays repository→engine only in
// the other direction too (the repository is the thing the engine
// depends on, not vice versa).
type lookupFunc func(kext.Identifier) (kext.NodeRef, bool)

// diskBundle is the reference Bundle implementation: one ".kext"
// directory plus its manifest.toml sidecar (see manifest.go for why a
// sidecar stands in for a real Info.plist).
type diskBundle struct {
	dir      string
	lookup   lookupFunc
	manifest *manifest

	version kext.Version

	loadFailed   bool
	hasAllDeps   bool
	authentic    bool
	deps         []kext.NodeRef
	personalities map[string]kext.Personality
}

func newDiskBundle(dir string, m *manifest, lookup lookupFunc) (*diskBundle, error) {
	v, err := kext.ParseVersion(m.Version)
	if err != nil {
		return nil, err
	}
	return &diskBundle{
		dir:           dir,
		lookup:        lookup,
		manifest:      m,
		version:       v,
		personalities: m.personalities(),
	}, nil
}

func (b *diskBundle) Identifier() kext.Identifier { return kext.Identifier(b.manifest.Identifier) }
func (b *diskBundle) Version() kext.Version        { return b.version }

func (b *diskBundle) IsValid() bool {
	return b.manifest.Identifier != "" && b.version.Valid()
}
func (b *diskBundle) IsEnabled() bool           { return b.manifest.Enabled }
func (b *diskBundle) IsSafeBootEligible() bool  { return b.manifest.SafeBootEligible }
func (b *diskBundle) HasExecutable() bool       { return b.manifest.Executable != "" }
func (b *diskBundle) AbsoluteURL() string       { return b.dir }
func (b *diskBundle) HasAllDependencies() bool  { return b.hasAllDeps }
func (b *diskBundle) IsAuthentic() bool         { return b.authentic }
func (b *diskBundle) DeclaresLoadFailed() bool  { return b.loadFailed }
func (b *diskBundle) SetLoadFailed(v bool)      { b.loadFailed = v }

// StartAddress is always zero for an on-disk, not-yet-loaded bundle; a
// live kernel gateway is what would populate this for a loaded module,
// which is out of this reference repository's business.
func (b *diskBundle) StartAddress() uint64 { return 0 }

func (b *diskBundle) ExecutablePath() string {
	if b.manifest.Executable == "" {
		return ""
	}
	return filepath.Join(b.dir, b.manifest.Executable)
}

// ResolveDependencies looks up each declared dependency by identifier
// through the repository-provided lookup, accepting the head if its
// version is at least the declared minimum (or any head when no
// minimum is declared). It never calls back into the engine's
// read-repairing Get — see lookupFunc.
func (b *diskBundle) ResolveDependencies(ctx context.Context) error {
	b.hasAllDeps = false
	b.deps = b.deps[:0]

	for _, req := range b.manifest.Dependencies {
		ref, ok := b.lookup(kext.Identifier(req.Identifier))
		if !ok {
			return kext.NewError(kext.KindDependency, nil, "missing dependency %s", req.Identifier)
		}
		if req.MinVersion != "" {
			min, err := kext.ParseVersion(req.MinVersion)
			if err != nil {
				return err
			}
			if ref.Bundle().Version().LessThan(min) {
				return kext.NewError(kext.KindDependency, nil, "dependency %s too old", req.Identifier)
			}
		}
		b.deps = append(b.deps, ref)
	}

	b.hasAllDeps = true
	return nil
}

// Authenticate is a stand-in for code-signature verification: every
// bundle is considered authentic — there is nothing to
// cryptographically check in this reference repository.
func (b *diskBundle) Authenticate(ctx context.Context) error {
	b.authentic = true
	return nil
}

func (b *diskBundle) CopyAllDependencies() []kext.NodeRef {
	return append([]kext.NodeRef(nil), b.deps...)
}

func (b *diskBundle) CopyPersonalities() map[string]kext.Personality {
	return b.personalities
}
