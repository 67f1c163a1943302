package kext_test

import (
	"testing"

	"github.com/kextkit/kextmanager/kext"
)

func TestAdmissible(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*fakeBundle)
		policy kext.AdmissionPolicy
		want   bool
	}{
		{"valid enabled bundle is admitted", func(*fakeBundle) {}, kext.AdmissionPolicy{}, true},
		{"invalid bundle rejected", func(b *fakeBundle) { b.valid = false }, kext.AdmissionPolicy{}, false},
		{"load-failed bundle rejected", func(b *fakeBundle) { b.loadFailed = true }, kext.AdmissionPolicy{}, false},
		{"disabled bundle rejected", func(b *fakeBundle) { b.enabled = false }, kext.AdmissionPolicy{}, false},
		{"safe-boot-ineligible rejected under safe boot", func(b *fakeBundle) { b.safeBootEligible = false }, kext.AdmissionPolicy{SafeBoot: true}, false},
		{"safe-boot-ineligible admitted without safe boot", func(b *fakeBundle) { b.safeBootEligible = false }, kext.AdmissionPolicy{}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := newFakeBundle("com.ex.a", "1.0.0")
			c.modify(b)
			if got := kext.Admissible(b, c.policy); got != c.want {
				t.Fatalf("Admissible = %v, want %v", got, c.want)
			}
		})
	}
}
