package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lazypower/cadence/internal/client"
)

var agendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Print today's agenda from the running server",
	Long: "Fetch the daily agenda from the cadence server at $CADENCE_URL. " +
		"Safe for shell startup files: when the server is unreachable it prints nothing and exits 0.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		c := client.New("")
		if !c.Healthy() {
			return
		}
		data, err := c.Get("/api/agenda")
		if err != nil {
			fmt.Fprintf(os.Stderr, "cadence agenda: %v\n", err)
			return
		}
		cmd.OutOrStdout().Write(data)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the cadence server is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New("")
		var health struct {
			Status        string  `json:"status"`
			Version       string  `json:"version"`
			Uptime        float64 `json:"uptime"`
			DBPath        string  `json:"db_path"`
			SchemaVersion int     `json:"schema_version"`
		}
		if err := c.GetJSON("/api/health", &health); err != nil {
			return fmt.Errorf("server at %s not reachable: %w", c.URL(), err)
		}
		var prompts struct {
			Prompts []json.RawMessage `json:"prompts"`
		}
		c.GetJSON("/api/prompts", &prompts)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "cadence %s at %s\n", health.Version, c.URL())
		fmt.Fprintf(out, "  up %.0fs, db %s (schema v%d)\n", health.Uptime, health.DBPath, health.SchemaVersion)
		if n := len(prompts.Prompts); n > 0 {
			fmt.Fprintf(out, "  %d pending suggestion(s), run `cadence prompts`\n", n)
		}
		return nil
	},
}
