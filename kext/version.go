package kext

import (
	"github.com/Masterminds/semver"
)

// Identifier is an opaque bundle identifier, compared for exact equality.
// Real identifiers are reverse-DNS strings such as "com.example.driver".
type Identifier string

// Version is a totally ordered value parsed from a canonical
// numeric-dotted string. It wraps Masterminds/semver for dotted version
// comparison.
//
// Parsing can fail; ParseVersion surfaces that as an error rather than
// panicking, so callers can observe and report a malformed version
// string instead of it being silently swallowed.
type Version struct {
	raw string
	sv  *semver.Version
}

// ParseVersion parses s as a canonical numeric-dotted version string.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, NewError(KindInvalidArgument, err, "parsing version %q", s)
	}
	return Version{raw: s, sv: sv}, nil
}

// MustParseVersion is ParseVersion, panicking on error. Reserved for
// fixtures and tests where the version string is a compile-time constant.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original source string this Version was parsed from.
func (v Version) String() string {
	return v.raw
}

// Valid reports whether v was successfully parsed (the zero Version is
// not valid).
func (v Version) Valid() bool {
	return v.sv != nil
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than other, matching semver.Version.Compare's contract.
func (v Version) Compare(other Version) int {
	return v.sv.Compare(other.sv)
}

// Equal reports whether v and other compare equal.
func (v Version) Equal(other Version) bool {
	return v.sv.Equal(other.sv)
}

// LessThan reports whether v sorts before other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// GreaterThan reports whether v sorts after other.
func (v Version) GreaterThan(other Version) bool {
	return v.Compare(other) > 0
}
