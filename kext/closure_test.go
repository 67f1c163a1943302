package kext_test

import (
	"context"
	"testing"

	"github.com/kextkit/kextmanager/kext"
)

func TestPrepareBuildsClosureDepsBeforeTarget(t *testing.T) {
	m := newManager()
	repo := newFakeRepository("/repo")

	base := newFakeBundle("com.ex.base", "1.0.0")
	baseHandle := repo.add(base)

	mid := newFakeBundle("com.ex.mid", "1.0.0")
	mid.deps = []kext.NodeRef{ref(repo, baseHandle)}
	midHandle := repo.add(mid)

	top := newFakeBundle("com.ex.top", "1.0.0")
	top.deps = []kext.NodeRef{ref(repo, midHandle)}
	repo.add(top)

	m.AddRepository(repo)

	target, err := m.Get(context.Background(), "com.ex.top")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	graph, err := m.Prepare(context.Background(), kext.PrepareOptions{Target: target})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if len(graph.Closure) != 3 {
		t.Fatalf("closure length = %d, want 3", len(graph.Closure))
	}
	ids := make([]string, len(graph.Closure))
	for i, ref := range graph.Closure {
		ids[i] = string(ref.Bundle().Identifier())
	}
	want := []string{"com.ex.base", "com.ex.mid", "com.ex.top"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("closure order = %v, want %v (dependencies precede dependents, target last)", ids, want)
		}
	}
}

func TestPrepareDetectsDependencyCycle(t *testing.T) {
	m := newManager()
	repo := newFakeRepository("/repo")

	a := newFakeBundle("com.ex.a", "1.0.0")
	aHandle := repo.add(a)
	b := newFakeBundle("com.ex.b", "1.0.0")
	bHandle := repo.add(b)

	a.deps = []kext.NodeRef{ref(repo, bHandle)}
	b.deps = []kext.NodeRef{ref(repo, aHandle)}

	m.AddRepository(repo)

	target, err := m.Get(context.Background(), "com.ex.a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	_, err = m.Prepare(context.Background(), kext.PrepareOptions{Target: target})
	if kext.KindOf(err) != kext.KindDependencyLoop {
		t.Fatalf("Prepare err = %v, want kind %s", err, kext.KindDependencyLoop)
	}
}
