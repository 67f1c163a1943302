// Package config loads the process-start configuration a kextutil
// invocation needs: the Manager's policy flags and the repository
// search paths to scan or load from cache. This is configuration read
// once at startup, not persisted manager state — the Manager itself
// never round-trips through this package; the index is rebuilt fresh
// on every process start regardless of where its policy flags came
// from.
package config

import (
	"io"
	"io/ioutil"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/kextkit/kextmanager/kext"
)

// rawConfig mirrors the TOML document's shape exactly, with the policy
// flags in their own [policy] table.
type rawConfig struct {
	Policy       rawPolicy `toml:"policy"`
	Repositories []string  `toml:"repositories"`
	CacheDir     string    `toml:"cache_dir"`
}

type rawPolicy struct {
	SafeBoot             bool `toml:"safe_boot"`
	FullTests            bool `toml:"full_tests"`
	StrictAuthentication bool `toml:"strict_authentication"`
	LoadInProcess        bool `toml:"load_in_process"`
}

// Config is the parsed process-start configuration.
type Config struct {
	Policy       kext.Policy
	Repositories []string
	CacheDir     string
}

// Read parses a TOML configuration document from r.
func Read(r io.Reader) (*Config, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading configuration")
	}
	return parse(data)
}

// ReadFile parses the TOML configuration document at path.
func ReadFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading configuration file %s", path)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing configuration as TOML")
	}
	return &Config{
		Policy: kext.Policy{
			SafeBoot:             raw.Policy.SafeBoot,
			FullTests:            raw.Policy.FullTests,
			StrictAuthentication: raw.Policy.StrictAuthentication,
			LoadInProcess:        raw.Policy.LoadInProcess,
		},
		Repositories: raw.Repositories,
		CacheDir:     raw.CacheDir,
	}, nil
}
