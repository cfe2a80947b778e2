package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/cadence/internal/client"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionServer bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "cadence %s (commit: %s, built: %s)\n", Version, Commit, BuildDate)
		if !versionServer {
			return
		}
		c := client.New("")
		var health struct {
			Version string `json:"version"`
		}
		if err := c.GetJSON("/api/health", &health); err != nil {
			fmt.Fprintf(out, "server: not reachable at %s\n", c.URL())
			return
		}
		fmt.Fprintf(out, "server: %s at %s\n", health.Version, c.URL())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionServer, "server", false, "also report the running server's version")
}

// VersionString is the version reported by the health endpoint.
func VersionString() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
