package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/svnup/svnup/svn"
	"github.com/svnup/svnup/svn/engine"
	"github.com/svnup/svnup/svn/persist"
	"github.com/svnup/svnup/svn/render"
)

func newCheckoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "checkout URL [PATH]",
		Aliases: []string{"co"},
		Short:   "check out a revision of a repository subtree",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setUpLogging()
			pathTarget := ""
			if len(args) == 2 {
				pathTarget = args[1]
			}
			cfg, err := buildConfig(svn.JobCheckout, args[0], pathTarget)
			if err != nil {
				return err
			}
			return engine.Checkout(cfg)
		},
	}
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info TARGET",
		Short: "show revision metadata for a repository subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setUpLogging()
			if rec, ok, err := readLocalRevision(args[0], flagRevision); ok {
				if err != nil {
					return err
				}
				return render.Info(os.Stdout, rec.Revision, rec.Commit)
			}
			cfg, err := buildConfig(svn.JobInfo, args[0], "")
			if err != nil {
				return err
			}
			return engine.Info(cfg, os.Stdout)
		},
	}
}

func newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log TARGET",
		Short: "show the commit log entry for a revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setUpLogging()
			if rec, ok, err := readLocalRevision(args[0], flagRevision); ok {
				if err != nil {
					return err
				}
				return render.Log(os.Stdout, rec.Revision, rec.Commit)
			}
			cfg, err := buildConfig(svn.JobLog, args[0], "")
			if err != nil {
				return err
			}
			return engine.Log(cfg, os.Stdout)
		},
	}
}

// readLocalRevision reports whether target names a local working copy
// (spec §6: `info`/`log` TARGET "is a URL or a local working directory,
// for the latter <target>/.svnup/revision is read"), identified by the
// presence of that file rather than by URL-parsing failure so a bad URL
// still gets a URL-shaped error. ok is false when target isn't a local
// working copy at all, in which case err is always nil and the caller
// should fall back to the network path. rev is the user's -r pin, rejected
// by ReadRevisionFile when the working copy holds a different revision.
func readLocalRevision(target string, rev int64) (*persist.RevisionRecord, bool, error) {
	revPath := filepath.Join(target, ".svnup", "revision")
	if _, statErr := os.Stat(revPath); statErr != nil {
		return nil, false, nil
	}
	rec, err := persist.ReadRevisionFile(revPath, rev)
	return rec, true, err
}
