// Package svnconfig loads the optional defaults file the CLI falls back to
// when a flag isn't given on the command line, using
// github.com/BurntSushi/toml the way the teacher's config layer loads its
// own file-backed settings.
package svnconfig

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Defaults are the settings the config file may supply as top-level keys.
// CLI flags always win; trim_tree and address_family only fill gaps.
// Verbosity is parsed but cmd/svn does not apply it; -v alone sets the
// log level.
type Defaults struct {
	Verbosity int    `toml:"verbosity"`
	TrimTree  *bool  `toml:"trim_tree"`
	Family    string `toml:"address_family"` // "", "4" or "6"
}

// Load reads path, returning zero-value Defaults (not an error) if the
// file doesn't exist - the config file is always optional.
func Load(path string) (Defaults, error) {
	var d Defaults
	if path == "" {
		return d, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, errors.Wrapf(err, "stat config %s", path)
	}
	if _, err := toml.DecodeFile(path, &d); err != nil {
		return d, errors.Wrapf(err, "parse config %s", path)
	}
	return d, nil
}

// TrimTreeOr returns d.TrimTree if the config set it, else fallback.
func (d Defaults) TrimTreeOr(fallback bool) bool {
	if d.TrimTree == nil {
		return fallback
	}
	return *d.TrimTree
}
