package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// build is stamped by main from release ldflags. An empty commit falls back to the VCS
// revision the Go toolchain embeds.
var build struct {
	version, commit, date string
}

func SetVersion(version, commit, date string) {
	build.version, build.commit, build.date = version, commit, date
}

func NewVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), orDefault(build.version, "dev"))
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "docqa %s (commit %s, built %s, %s)\n",
				orDefault(build.version, "dev"), revision(), orDefault(build.date, "unknown"), runtime.Version())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}

func revision() string {
	if build.commit != "" && build.commit != "none" {
		return build.commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "unknown"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
