// Command svn is a dependency-minimal Subversion checkout client: it
// fetches one revision of a remote repository subtree and maintains a
// persisted manifest so later invocations behave as incremental updates.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/svnup/svnup/internal/svnconfig"
	"github.com/svnup/svnup/internal/svnerr"
	"github.com/svnup/svnup/internal/svnlog"
	"github.com/svnup/svnup/svn"
)

var (
	flagRevision int64
	flagVerbose  int
	flagConfig   string
	flagFamily   string
	flagNoTrim   bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "svn",
		Short:         "checkout, inspect and log a Subversion repository subtree",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Int64VarP(&flagRevision, "revision", "r", 0, "operate on revision REV instead of HEAD")
	root.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "increase verbosity (-v, -vv)")
	root.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "path to a defaults file")
	root.PersistentFlags().StringVar(&flagFamily, "family", "", "address family: 4, 6, or empty for either")
	root.PersistentFlags().BoolVar(&flagNoTrim, "no-trim-tree", false, "don't delete local files absent from the repository")

	root.AddCommand(newCheckoutCmd(), newInfoCmd(), newLogCmd())
	return root
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.svnuprc"
}

// buildConfig resolves a target URL plus the persistent flags (and the
// optional config file) into an *svn.Config.
func buildConfig(job svn.Job, target string, pathTarget string) (*svn.Config, error) {
	cfg, err := svn.ParseTarget(target)
	if err != nil {
		return nil, err
	}
	cfg.Job = job
	cfg.Revision = flagRevision
	cfg.Verbosity = flagVerbose

	defaults, err := svnconfig.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	family := flagFamily
	if family == "" {
		family = defaults.Family
	}
	switch family {
	case "4":
		cfg.Family = svn.FamilyV4
	case "6":
		cfg.Family = svn.FamilyV6
	}
	cfg.TrimTree = defaults.TrimTreeOr(true)
	if flagNoTrim {
		cfg.TrimTree = false
	}

	if job == svn.JobCheckout {
		if pathTarget == "" {
			pathTarget = svn.DefaultPathTarget(cfg.Branch)
		}
		cfg.PathTarget = pathTarget
		cfg.PathWork = pathTarget + "/.svnup"
	}
	return cfg, nil
}

// setUpLogging maps the repeatable -v flag to a svnlog.Level. With no -v at
// all the original svnup defaults to verbosity 1 (svnup.c's "-v NUMBER
// (default: 1)"), which corresponds to svnlog.Normal here; each additional
// -v raises it, capping at Debug since svnlog only distinguishes three
// tiers.
func setUpLogging() {
	level := svnlog.Normal
	if flagVerbose >= 1 {
		level = svnlog.Debug
	}
	svnlog.SetLevel(level)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "svn: "+err.Error())
		if svnerr.IsKind(err, svnerr.KindUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
