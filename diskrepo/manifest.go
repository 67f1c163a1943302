package diskrepo

import (
	"io/ioutil"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/kextkit/kextmanager/kext"
)

// manifestName is the sidecar file a bundle directory carries in place
// of a real Info.plist. It is just enough metadata for the engine to
// exercise admission, dependency resolution, and personality publishing
// end to end against real directories on disk.
const manifestName = "manifest.toml"

// dependencyReq is one entry of a bundle's declared dependency list:
// the identifier it needs, and the lowest version that satisfies it.
// The engine itself is agnostic to constraint syntax — this is
// diskrepo's own minimal stand-in.
type dependencyReq struct {
	Identifier string `toml:"identifier"`
	MinVersion string `toml:"min_version"`
}

type manifest struct {
	Identifier        string                    `toml:"identifier"`
	Version           string                    `toml:"version"`
	Enabled           bool                      `toml:"enabled"`
	SafeBootEligible  bool                      `toml:"safe_boot_eligible"`
	Executable        string                    `toml:"executable"`
	Dependencies      []dependencyReq           `toml:"dependencies"`
	Personalities     map[string]map[string]interface{} `toml:"personalities"`
}

func readManifest(bundleDir string) (*manifest, error) {
	path := filepath.Join(bundleDir, manifestName)
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return &m, nil
}

func (m *manifest) personalities() map[string]kext.Personality {
	if len(m.Personalities) == 0 {
		return nil
	}
	out := make(map[string]kext.Personality, len(m.Personalities))
	for name, dict := range m.Personalities {
		out[name] = kext.Personality(dict)
	}
	return out
}
