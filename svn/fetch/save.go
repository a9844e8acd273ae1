// Package fetch implements spec §4.7's batched attribute and body passes
// over both protocols, and the shared save-to-disk step that follows a
// verified body.
package fetch

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/svnup/svnup/svn"
)

const specialLinkPrefix = "link "

// VerifyAndSave checks body's MD5 against e.MD5 and, on success, writes it
// to disk under cfg.PathTarget: a special entry whose body begins with
// "link <target>" becomes a symlink (any existing file at that name is
// removed first, mirroring save_file), everything else is written with
// mode 0755 when executable, 0644 otherwise.
func VerifyAndSave(cfg *svn.Config, e *svn.FileEntry, body []byte) error {
	sum := md5.Sum(body)
	calc := hex.EncodeToString(sum[:])
	if e.MD5 != "" && calc != e.MD5 {
		return errors.Errorf("MD5 checksum mismatch: should be %s, calculated %s", e.MD5, calc)
	}

	full := filepath.Join(cfg.PathTarget, filepath.FromSlash(e.Path))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return errors.Wrapf(err, "mkdir for %s", e.Path)
	}

	if e.Special {
		if !bytes.HasPrefix(body, []byte(specialLinkPrefix)) {
			return errors.Errorf("%s: special file body missing %q prefix", e.Path, specialLinkPrefix)
		}
		target := string(body[len(specialLinkPrefix):])
		if _, err := os.Lstat(full); err == nil {
			if err := os.Remove(full); err != nil {
				return errors.Wrapf(err, "remove existing %s", e.Path)
			}
		}
		return errors.Wrapf(os.Symlink(target, full), "symlink %s", e.Path)
	}

	mode := os.FileMode(0644)
	if e.Executable {
		mode = 0755
	}
	return errors.Wrapf(os.WriteFile(full, body, mode), "write %s", e.Path)
}
