package cachefmt

import (
	"context"

	"github.com/kextkit/kextmanager/kext"
)

// cachedBundle is the Bundle reconstructed from one cache record. Its
// shape mirrors diskrepo.diskBundle deliberately: both are concrete
// stand-ins for the same external "Bundle" capability, one sourced from
// a live directory scan and one from a previously persisted cache.
type cachedBundle struct {
	identifier       string
	version          kext.Version
	enabled          bool
	safeBootEligible bool
	executable       string
	url              string
	loadFailed       bool

	deps          []dependencyRef
	personalities map[string]kext.Personality

	lookup lookupFunc

	hasAllDeps bool
	authentic  bool
	resolved   []kext.NodeRef
}

type dependencyRef struct {
	identifier string
	minVersion string
}

func decodeCachedBundle(v plistValue, lookup lookupFunc) (*cachedBundle, error) {
	version, err := kext.ParseVersion(v.stringOr("version", ""))
	if err != nil {
		return nil, err
	}

	b := &cachedBundle{
		identifier:       v.stringOr("identifier", ""),
		version:          version,
		enabled:          v.boolOr("enabled", false),
		safeBootEligible: v.boolOr("safeBootEligible", false),
		executable:       v.stringOr("executable", ""),
		url:              v.stringOr("url", ""),
		loadFailed:       v.boolOr("loadFailed", false),
		lookup:           lookup,
	}

	for _, dep := range v.arrayOr("dependencies") {
		b.deps = append(b.deps, dependencyRef{
			identifier: dep.stringOr("identifier", ""),
			minVersion: dep.stringOr("minVersion", ""),
		})
	}

	if personalities, ok := v.get("personalities"); ok && personalities.kind == kindDict {
		b.personalities = make(map[string]kext.Personality, len(personalities.order))
		for _, name := range personalities.order {
			dict := personalities.dict[name]
			p := make(kext.Personality, len(dict.order))
			for _, key := range dict.order {
				p[key] = plistScalar(dict.dict[key])
			}
			b.personalities[name] = p
		}
	}

	return b, nil
}

// plistScalar extracts a plistValue's native Go scalar, for the
// properties (like "IOKitDebug") the core reads out of a personality
// dictionary directly rather than through typed accessors.
func plistScalar(v plistValue) interface{} {
	switch v.kind {
	case kindString:
		return v.str
	case kindInteger:
		return v.i
	case kindBool:
		return v.b
	default:
		return nil
	}
}

func encodeBundle(b kext.Bundle) plistValue {
	v := newPlistDict()
	v.set("identifier", plistString(string(b.Identifier())))
	v.set("version", plistString(b.Version().String()))
	v.set("enabled", plistBool(b.IsEnabled()))
	v.set("safeBootEligible", plistBool(b.IsSafeBootEligible()))
	v.set("url", plistString(b.AbsoluteURL()))
	v.set("loadFailed", plistBool(b.DeclaresLoadFailed()))

	deps := plistValue{kind: kindArray}
	for _, ref := range b.CopyAllDependencies() {
		if dep := ref.Bundle(); dep != nil {
			entry := newPlistDict()
			entry.set("identifier", plistString(string(dep.Identifier())))
			entry.set("minVersion", plistString(dep.Version().String()))
			deps.arr = append(deps.arr, entry)
		}
	}
	v.set("dependencies", deps)

	personalities := newPlistDict()
	for name, p := range b.CopyPersonalities() {
		dict := newPlistDict()
		for key, val := range p {
			switch t := val.(type) {
			case string:
				dict.set(key, plistString(t))
			case int:
				dict.set(key, plistInteger(int64(t)))
			case int64:
				dict.set(key, plistInteger(t))
			case bool:
				dict.set(key, plistBool(t))
			}
		}
		personalities.set(name, dict)
	}
	v.set("personalities", personalities)

	return v
}

func (b *cachedBundle) Identifier() kext.Identifier { return kext.Identifier(b.identifier) }
func (b *cachedBundle) Version() kext.Version        { return b.version }
func (b *cachedBundle) IsValid() bool                { return b.identifier != "" && b.version.Valid() }
func (b *cachedBundle) IsEnabled() bool              { return b.enabled }
func (b *cachedBundle) IsSafeBootEligible() bool     { return b.safeBootEligible }
func (b *cachedBundle) HasExecutable() bool          { return b.executable != "" }
func (b *cachedBundle) AbsoluteURL() string          { return b.url }
func (b *cachedBundle) HasAllDependencies() bool     { return b.hasAllDeps }
func (b *cachedBundle) IsAuthentic() bool            { return b.authentic }
func (b *cachedBundle) DeclaresLoadFailed() bool     { return b.loadFailed }
func (b *cachedBundle) SetLoadFailed(v bool)         { b.loadFailed = v }
func (b *cachedBundle) StartAddress() uint64         { return 0 }

func (b *cachedBundle) ResolveDependencies(ctx context.Context) error {
	b.hasAllDeps = false
	b.resolved = b.resolved[:0]

	for _, dep := range b.deps {
		ref, ok := b.lookup(kext.Identifier(dep.identifier))
		if !ok {
			return kext.NewError(kext.KindDependency, nil, "missing dependency %s", dep.identifier)
		}
		if dep.minVersion != "" {
			min, err := kext.ParseVersion(dep.minVersion)
			if err != nil {
				return err
			}
			if ref.Bundle().Version().LessThan(min) {
				return kext.NewError(kext.KindDependency, nil, "dependency %s too old", dep.identifier)
			}
		}
		b.resolved = append(b.resolved, ref)
	}

	b.hasAllDeps = true
	return nil
}

func (b *cachedBundle) Authenticate(ctx context.Context) error {
	b.authentic = true
	return nil
}

func (b *cachedBundle) CopyAllDependencies() []kext.NodeRef {
	return append([]kext.NodeRef(nil), b.resolved...)
}

func (b *cachedBundle) CopyPersonalities() map[string]kext.Personality {
	return b.personalities
}
