package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

type versionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// buildVersion fills commit and time from the embedded VCS stamp when the
// binary was built without ldflags.
func buildVersion() versionInfo {
	v := versionInfo{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime, GoVersion: runtime.Version()}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && v.GitCommit == "unknown":
			v.GitCommit = s.Value
		case s.Key == "vcs.time" && v.BuildTime == "unknown":
			v.BuildTime = s.Value
		}
	}
	return v
}

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := buildVersion()
		if versionJSON {
			return json.NewEncoder(os.Stdout).Encode(v)
		}
		fmt.Printf("AUGUR %s (%s)\n", v.Version, v.GoVersion)
		fmt.Printf("  Git commit: %s\n", v.GitCommit)
		fmt.Printf("  Build time: %s\n", v.BuildTime)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(versionCmd)
}
