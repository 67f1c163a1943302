// Package diskrepo is a reference Repository implementation backed by a
// directory of ".kext" bundle directories on disk.
package diskrepo

import (
	"github.com/kextkit/kextmanager/kext"
)

// registry is the per-repository bundle arena: bundle handles are
// indexes into this slice, and live only within the repository that
// owns them.
type registry struct {
	records []kext.Record
}

func (r *registry) add(b kext.Bundle) kext.BundleHandle {
	h := kext.BundleHandle(len(r.records))
	r.records = append(r.records, kext.Record{Bundle: b, Prior: kext.NilRef, Duplicate: kext.NilRef})
	return h
}

func (r *registry) get(h kext.BundleHandle) *kext.Record {
	if h < 0 || int(h) >= len(r.records) {
		return nil
	}
	return &r.records[h]
}
