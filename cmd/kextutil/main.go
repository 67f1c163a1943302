// Command kextutil is a reference CLI driving the kext candidate-
// selection and dependency-resolution engine against real directories
// on disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/kextkit/kextmanager/cachefmt"
	"github.com/kextkit/kextmanager/config"
	"github.com/kextkit/kextmanager/diskrepo"
	"github.com/kextkit/kextmanager/kernel"
	"github.com/kextkit/kextmanager/kext"
	"github.com/kextkit/kextmanager/logx"
)

type command interface {
	Name() string
	ShortHelp() string
	Register(*flag.FlagSet)
	Run(ctx context.Context, m *kext.Manager, args []string, stdout io.Writer) error
}

func main() {
	c := &Config{
		Args:   os.Args,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	os.Exit(c.Run())
}

// Config specifies a full configuration for a kextutil execution.
type Config struct {
	Args           []string
	Stdout, Stderr io.Writer
}

func (c *Config) Run() (exitCode int) {
	errLogger := log.New(c.Stderr, "", 0)

	commands := []command{
		&listCommand{},
		&loadCommand{},
	}

	if len(c.Args) < 2 {
		usage(c.Stderr, commands)
		return int(kext.KindInvalidArgument)
	}

	var configPath string
	fs := flag.NewFlagSet("kextutil", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "path to a kextutil.toml configuration file")
	if err := fs.Parse(c.Args[1:]); err != nil {
		return int(kext.KindInvalidArgument)
	}

	args := fs.Args()
	if len(args) == 0 {
		usage(c.Stderr, commands)
		return int(kext.KindInvalidArgument)
	}

	var cmd command
	for _, candidate := range commands {
		if candidate.Name() == args[0] {
			cmd = candidate
			break
		}
	}
	if cmd == nil {
		errLogger.Printf("kextutil: unknown command %q", args[0])
		usage(c.Stderr, commands)
		return int(kext.KindInvalidArgument)
	}

	sub := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.Register(sub)
	if err := sub.Parse(args[1:]); err != nil {
		return int(kext.KindInvalidArgument)
	}

	var cfg config.Config
	if configPath != "" {
		loaded, err := config.ReadFile(configPath)
		if err != nil {
			errLogger.Printf("kextutil: %v", err)
			return int(kext.KindInvalidArgument)
		}
		cfg = *loaded
	}

	logger := logx.New(c.Stderr, logx.Basic)
	m := kext.NewManager(cfg.Policy, logger)
	m.Kernel = kernel.NewFakeGateway()

	for _, dir := range cfg.Repositories {
		repo, err := buildRepository(dir, cfg.CacheDir, m)
		if err != nil {
			errLogger.Printf("kextutil: loading repository %s: %v", dir, err)
			return int(kext.KindOf(err))
		}
		m.AddRepository(repo)
	}

	if err := cmd.Run(context.Background(), m, sub.Args(), c.Stdout); err != nil {
		errLogger.Printf("kextutil: %v", err)
		return int(kext.KindOf(err))
	}
	return int(kext.KindNone)
}

// buildRepository loads dir from its cache file when the cache's exact
// mtime-currency check passes, otherwise falls back to a full directory
// scan — the two-path choice a real kext tool makes to avoid
// re-parsing bundle metadata on every run.
func buildRepository(dir, cacheDir string, m *kext.Manager) (kext.Repository, error) {
	lookup := func(id kext.Identifier) (kext.NodeRef, bool) { return m.RawGet(id) }

	if cacheDir != "" {
		cachePath := cacheDir + "/" + sanitizeForFilename(dir) + ".cache"
		if current, err := cachefmt.IsCurrent(cachePath, dir); err == nil && current {
			return cachefmt.Load(cachePath, lookup)
		}
	}

	repo, err := diskrepo.NewDiskRepository(dir, lookup)
	if err != nil {
		return nil, err
	}
	if cacheDir != "" {
		cachePath := cacheDir + "/" + sanitizeForFilename(dir) + ".cache"
		if err := cachefmt.Save(repo, cachePath); err != nil {
			// A failed cache write never fails the load itself; the
			// repository is still perfectly usable from the scan.
			return repo, nil
		}
	}
	return repo, nil
}

func sanitizeForFilename(dir string) string {
	out := make([]byte, len(dir))
	for i := 0; i < len(dir); i++ {
		if dir[i] == '/' {
			out[i] = '_'
		} else {
			out[i] = dir[i]
		}
	}
	return string(out)
}

func usage(w io.Writer, commands []command) {
	fmt.Fprintln(w, "usage: kextutil [-config path] <command> [args]")
	fmt.Fprintln(w, "commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.Name(), cmd.ShortHelp())
	}
}
