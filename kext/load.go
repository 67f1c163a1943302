package kext

import "context"

// PrepareOptions carries the caller-controlled knobs of Load
// Preparation.
type PrepareOptions struct {
	Target NodeRef

	// DoLoad indicates the caller actually intends to load Target (as
	// opposed to merely checking admissibility); it gates the
	// already-loaded failure in the loaded-set-check step.
	DoLoad bool
	// CheckLoadedSet runs the loaded-set-check step. It is optional and
	// caller-controlled because not every caller has a live kernel
	// handle to ask.
	CheckLoadedSet bool
	// Inauthentic, if non-nil, switches authentication failures to
	// deferred mode: failing bundles are appended here instead of being
	// disqualified outright.
	Inauthentic *[]NodeRef
}

// Prepare runs the Load Preparation state machine: admit-check →
// relationships-ready → loaded-set-check → deps-resolve →
// closure-authenticate → ready-to-dispatch. It returns
// the prepared DependencyGraph on success; on any failure it returns
// that failure and the load must not be dispatched.
func (m *Manager) Prepare(ctx context.Context, opts PrepareOptions) (DependencyGraph, error) {
	target := opts.Target
	b := target.Bundle()
	if b == nil {
		return DependencyGraph{}, NewError(KindInvalidArgument, nil, "nil target")
	}

	// 1. admit-check
	if !b.IsValid() {
		return DependencyGraph{}, NewError(KindValidation, nil, "%s is not valid", b.Identifier())
	}
	if m.Policy.SafeBoot && !b.IsSafeBootEligible() {
		return DependencyGraph{}, NewError(KindBootLevel, nil, "%s is not safe-boot eligible", b.Identifier())
	}
	if !b.IsEnabled() {
		return DependencyGraph{}, NewError(KindDisabled, nil, "%s is disabled", b.Identifier())
	}

	// 2. relationships-ready
	if err := m.readRepair(ctx); err != nil {
		return DependencyGraph{}, err
	}

	// 3. loaded-set-check (optional, caller-controlled)
	if opts.CheckLoadedSet {
		if err := m.refreshLoadedSet(ctx); err != nil {
			return DependencyGraph{}, err
		}
		rec := target.Record()
		if opts.DoLoad && rec.Loaded {
			return DependencyGraph{}, NewError(KindAlreadyLoaded, nil, "%s is already loaded", b.Identifier())
		}
		if rec.OtherVersionLoaded {
			return DependencyGraph{}, NewError(KindLoadedVersionDiffers, nil, "%s is loaded at a different version", b.Identifier())
		}
	}

	// 4. deps-resolve: clear manager-wide, then re-resolve for target
	// only. A failure here is non-quarantining: it does not set
	// load-failed or trigger a Clear().
	for _, repo := range m.repositories {
		repo.ClearDependencyState()
	}
	resolveErr := b.ResolveDependencies(ctx)
	if resolveErr != nil || !b.HasAllDependencies() {
		m.recordMissing(target)
		return DependencyGraph{}, NewError(KindDependency, resolveErr, "resolving dependencies for %s", b.Identifier())
	}

	// 5. closure-authenticate, run under disable-clear() for the whole
	// loop so a disqualification's implied Clear() coalesces until the
	// loop finishes.
	closure, err := buildClosure(target)
	if err != nil {
		return DependencyGraph{}, err
	}

	m.DisableClear()
	defer m.EnableClear()

	var failures []error
	for _, node := range closure {
		rec := node.Record()
		nb := node.Bundle()

		if rec.OtherVersionLoaded {
			failures = append(failures, NewError(KindDependencyLoadedVersionDiffers, nil,
				"dependency %s is loaded at a different version", nb.Identifier()))
			if !m.Policy.FullTests {
				break
			}
			continue
		}

		if nb.IsAuthentic() {
			continue
		}
		if authErr := nb.Authenticate(ctx); authErr != nil {
			if opts.Inauthentic != nil {
				*opts.Inauthentic = append(*opts.Inauthentic, node)
			} else if !node.IsNil() && node.Repo != nil {
				node.Repo.Disqualify(node.Handle)
				m.Clear()
			}
			failures = append(failures, NewError(KindAuthentication, authErr, "authenticating %s", nb.Identifier()))
			if !m.Policy.FullTests {
				break
			}
		}
	}

	if len(failures) > 0 {
		return DependencyGraph{}, collapse(failures)
	}

	return DependencyGraph{Closure: closure}, nil
}
