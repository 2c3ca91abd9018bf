package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/embersend/internal/version"
)

// Build metadata, injected at link time.
//
//nolint:gochecknoglobals // set via -ldflags
var (
	// Version is the release version.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var versionCheck bool

// versionCmd prints build information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show the embersend version, commit, and build date.

With --check, also query GitHub for the latest release.`,
	RunE: runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check for a newer release")
}

// versionInfo is the JSON shape of the version output.
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Latest    string `json:"latest,omitempty"`
	Outdated  bool   `json:"outdated,omitempty"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := versionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	if versionCheck {
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		release, err := version.NewClient(nil).LatestRelease(ctx, "mrz1836", "embersend")
		if err != nil {
			logger.Warn().Err(err).Msg("release check failed")
		} else {
			info.Latest = release.TagName
			info.Outdated = version.IsNewer(Version, release.TagName)
		}
	}

	if formatter.IsJSON() {
		return formatter.Print(info)
	}

	if err := formatter.Printf("embersend %s (commit %s, built %s, %s %s)\n",
		info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform); err != nil {
		return err
	}
	if info.Latest != "" {
		if info.Outdated {
			return formatter.Printf("A newer release is available: %s\n", info.Latest)
		}
		return formatter.Printf("Up to date (latest: %s)\n", info.Latest)
	}
	return nil
}
