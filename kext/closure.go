package kext

// buildClosure walks target's CopyAllDependencies() graph depth-first,
// returning the dependency closure ordered so that every dependency
// precedes its dependents, ending with target itself.
//
// A node currently being visited that is reached again indicates a
// cycle (KindDependencyLoop).
func buildClosure(target NodeRef) ([]NodeRef, error) {
	const (
		stateVisiting = 1
		stateDone     = 2
	)
	state := make(map[NodeRef]int)
	var order []NodeRef

	var visit func(ref NodeRef) error
	visit = func(ref NodeRef) error {
		switch state[ref] {
		case stateDone:
			return nil
		case stateVisiting:
			return NewError(KindDependencyLoop, nil, "dependency cycle at %s", ref.Bundle().Identifier())
		}
		state[ref] = stateVisiting
		for _, dep := range ref.Bundle().CopyAllDependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[ref] = stateDone
		order = append(order, ref)
		return nil
	}

	if err := visit(target); err != nil {
		return nil, err
	}
	return order, nil
}
