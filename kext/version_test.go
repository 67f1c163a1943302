package kext_test

import (
	"testing"

	"github.com/kextkit/kextmanager/kext"
)

func TestParseVersionFailureIsObservable(t *testing.T) {
	_, err := kext.ParseVersion("not-a-version")
	if err == nil {
		t.Fatal("expected an error for an unparsable version string")
	}
	if kext.KindOf(err) != kext.KindInvalidArgument {
		t.Fatalf("kind = %s, want %s", kext.KindOf(err), kext.KindInvalidArgument)
	}
}

func TestVersionCompare(t *testing.T) {
	v1 := kext.MustParseVersion("1.0.0")
	v2 := kext.MustParseVersion("2.0.0")

	if !v2.GreaterThan(v1) {
		t.Fatal("expected 2.0.0 > 1.0.0")
	}
	if !v1.LessThan(v2) {
		t.Fatal("expected 1.0.0 < 2.0.0")
	}
	if !v1.Equal(kext.MustParseVersion("1.0.0")) {
		t.Fatal("expected 1.0.0 == 1.0.0")
	}
}

func TestVersionStringPreservesSource(t *testing.T) {
	v := kext.MustParseVersion("1.2.3")
	if got, want := v.String(), "1.2.3"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestZeroVersionIsInvalid(t *testing.T) {
	var v kext.Version
	if v.Valid() {
		t.Fatal("expected the zero Version to be invalid")
	}
}
