// Package render implements spec §4.9: the exact text layout `svn info`
// and `svn log` print, grounded on write_info_or_log in the reference
// client.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/svnup/svnup/svn"
)

const separator = "------------------------------------------------------------------------"

// SanitizeDate turns a server timestamp like
// "2020-11-10T09:23:51.711212Z" into "2020-11-10 09:23:51": the 'T' becomes
// a space and anything from the first '.' on (fractional seconds, the
// trailing 'Z') is dropped.
func SanitizeDate(raw string) string {
	s := strings.Replace(raw, "T", " ", 1)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return s
}

// Info writes the `svn info` rendering for rev/commit. Revision is always
// printed; the Last-Changed fields only appear when commit metadata was
// actually populated (an empty-revision gap in history leaves them off).
func Info(w io.Writer, rev int64, commit svn.CommitInfo) error {
	if _, err := fmt.Fprintf(w, "Revision: %d\n", rev); err != nil {
		return err
	}
	if !commit.HasAuthor() {
		return nil
	}
	if _, err := fmt.Fprintf(w, "Last Changed Author: %s\n", commit.Author); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Last Changed Rev: %d\n", rev); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Last Changed Date: %s +0000\n", SanitizeDate(commit.Date))
	return err
}

// Log writes the `svn log` rendering for one revision: the separator
// always comes first; an empty commit (no author ever recorded for this
// revision) prints nothing further, otherwise the r<rev> | author | date |
// header, the message, and a closing separator follow.
func Log(w io.Writer, rev int64, commit svn.CommitInfo) error {
	if _, err := fmt.Fprintln(w, separator); err != nil {
		return err
	}
	if !commit.HasAuthor() {
		return nil
	}
	if _, err := fmt.Fprintf(w, "r%d | %s | %s |\n\n", rev, commit.Author, SanitizeDate(commit.Date)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n", commit.Log); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, separator)
	return err
}
