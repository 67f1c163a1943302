package kext

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the stable, small non-negative error taxonomy this system
// reports errors with. Numeric stability matters: a forked loader
// (Dispatch) returns a Kind as its process exit status, so renumbering
// breaks that channel.
type Kind int

const (
	KindNone Kind = iota
	KindUnspecified
	KindInvalidArgument
	KindNoMemory
	KindFileAccess
	KindNotADirectory
	KindNotABundle
	KindNotAKext
	KindURLNotInRepository
	KindKextNotFound
	KindValidation
	KindBootLevel
	KindDisabled
	KindAuthentication
	KindCache
	KindDependency
	KindDependencyLoop
	KindAlreadyLoaded
	KindLoadedVersionDiffers
	KindDependencyLoadedVersionDiffers
	KindLoadExecutableBad
	KindLoadExecutableNoArch
	KindLinkLoad
	KindSerialization
	KindCompression
	KindIPC
	KindKernelResource
	KindKernelPermission
	KindKernelError
	KindChildTask
	KindUserAbort
	KindDiskFull
)

var kindNames = map[Kind]string{
	KindNone:                           "none",
	KindUnspecified:                    "unspecified",
	KindInvalidArgument:                "invalid-argument",
	KindNoMemory:                       "no-memory",
	KindFileAccess:                     "file-access",
	KindNotADirectory:                  "not-a-directory",
	KindNotABundle:                     "not-a-bundle",
	KindNotAKext:                       "not-a-kext",
	KindURLNotInRepository:             "url-not-in-repository",
	KindKextNotFound:                   "kext-not-found",
	KindValidation:                     "validation",
	KindBootLevel:                      "boot-level",
	KindDisabled:                       "disabled",
	KindAuthentication:                 "authentication",
	KindCache:                          "cache",
	KindDependency:                     "dependency",
	KindDependencyLoop:                 "dependency-loop",
	KindAlreadyLoaded:                  "already-loaded",
	KindLoadedVersionDiffers:           "loaded-version-differs",
	KindDependencyLoadedVersionDiffers: "dependency-loaded-version-differs",
	KindLoadExecutableBad:              "load-executable-bad",
	KindLoadExecutableNoArch:           "load-executable-no-arch",
	KindLinkLoad:                       "link-load",
	KindSerialization:                  "serialization",
	KindCompression:                    "compression",
	KindIPC:                            "ipc",
	KindKernelResource:                 "kernel-resource",
	KindKernelPermission:               "kernel-permission",
	KindKernelError:                    "kernel-error",
	KindChildTask:                      "child-task",
	KindUserAbort:                      "user-abort",
	KindDiskFull:                       "disk-full",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unspecified"
}

// Error is the error type returned across the kext package's public API.
// It carries a stable Kind plus a wrapped cause, using pkg/errors for
// the cause chain.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.cause)
}

// Cause lets errors.Cause(err) (pkg/errors) unwrap to the underlying error.
func (e *Error) Cause() error { return e.cause }

// Unwrap supports the standard library's errors.Is/As as well.
func (e *Error) Unwrap() error { return e.cause }

// NewError builds an *Error of the given kind, optionally wrapping cause.
func NewError(kind Kind, cause error, format string, args ...interface{}) *Error {
	var wrapped error
	if cause != nil {
		wrapped = errors.Wrapf(cause, format, args...)
	} else if format != "" {
		wrapped = errors.Errorf(format, args...)
	}
	return &Error{Kind: kind, cause: wrapped}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error;
// otherwise it reports KindUnspecified.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindUnspecified
}

// collapse implements the shared propagation rule: multiple collected
// failures collapse to KindUnspecified unless all share one kind.
func collapse(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	first := KindOf(errs[0])
	for _, e := range errs[1:] {
		if KindOf(e) != first {
			return NewError(KindUnspecified, nil, "multiple distinct failures: %d errors", len(errs))
		}
	}
	return NewError(first, nil, "%d errors of kind %s", len(errs), first)
}
