package kext_test

import (
	"errors"
	"testing"

	"github.com/kextkit/kextmanager/kext"
)

func TestKindOfUnwrapsError(t *testing.T) {
	err := kext.NewError(kext.KindAuthentication, errors.New("signature invalid"), "authenticating %s", "com.ex.a")
	if kext.KindOf(err) != kext.KindAuthentication {
		t.Fatalf("KindOf = %s, want %s", kext.KindOf(err), kext.KindAuthentication)
	}
	if kext.KindOf(nil) != kext.KindNone {
		t.Fatalf("KindOf(nil) = %s, want %s", kext.KindOf(nil), kext.KindNone)
	}
	if kext.KindOf(errors.New("plain error")) != kext.KindUnspecified {
		t.Fatal("expected a plain error to report KindUnspecified")
	}
}

func TestKindStringStability(t *testing.T) {
	// These strings are part of this system's stable, observable error
	// taxonomy; a rename here is a behavior change, not a refactor.
	cases := map[kext.Kind]string{
		kext.KindNone:               "none",
		kext.KindAuthentication:     "authentication",
		kext.KindDependency:         "dependency",
		kext.KindAlreadyLoaded:      "already-loaded",
		kext.KindDependencyLoop:     "dependency-loop",
		kext.KindDiskFull:           "disk-full",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
