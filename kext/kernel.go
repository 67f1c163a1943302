package kext

import "context"

// LoadedModule is one record from the kernel's module-enumeration
// syscall: name, version, and load address. KernelGateway.LoadedModules
// returns a fully-materialized slice, so a caller always sees the
// kernel's full loaded-module count in one call.
type LoadedModule struct {
	Name    string
	Version string
	Address uint64
}

// KernelGateway is the external collaborator for the two kernel-facing
// transports this system needs: module enumeration and the catalog
// (add/remove driver personalities).
type KernelGateway interface {
	// LoadedModules returns every currently loaded kernel module.
	LoadedModules(ctx context.Context) ([]LoadedModule, error)
	// PublishPersonalities serializes and sends personalities to the
	// kernel catalog's "add drivers" verb.
	PublishPersonalities(ctx context.Context, personalities map[string]Personality) error
	// RemovePersonalities sends the catalog's "remove drivers" verb,
	// matching by the given dictionary template.
	RemovePersonalities(ctx context.Context, match map[string]interface{}) error
}

// InteractivePrompt is the user-prompt capability object: approve/veto/
// input operations, with a conservative no-op default that denies
// approve, grants veto, and returns no input.
type InteractivePrompt interface {
	Approve(ctx context.Context, question string) (bool, error)
	Veto(ctx context.Context, question string) (bool, error)
	Input(ctx context.Context, prompt string) (string, error)
}

// NoPrompt is the conservative default InteractivePrompt.
type NoPrompt struct{}

func (NoPrompt) Approve(context.Context, string) (bool, error) { return false, nil }
func (NoPrompt) Veto(context.Context, string) (bool, error)    { return true, nil }
func (NoPrompt) Input(context.Context, string) (string, error) { return "", nil }

// ErrUserAbort is returned by an InteractivePrompt implementation when
// the user cancels; it carries KindUserAbort.
var ErrUserAbort = NewError(KindUserAbort, nil, "user aborted")
