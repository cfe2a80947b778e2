package cli

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Adaptive local reminder scheduling",
	Long: "Cadence schedules reminders as local notifications, ties them to your daily routine, " +
		"escalates missed critical reminders and learns from how you snooze.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CADENCE_CONFIG or ~/.cadence/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine activity to stderr")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(anchorsCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(nextSlotCmd)
	rootCmd.AddCommand(reminderCmd)
	rootCmd.AddCommand(rescheduleCmd)
	rootCmd.AddCommand(escalationCmd)
	rootCmd.AddCommand(tiersCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(upcomingCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(agendaCmd)
	rootCmd.AddCommand(statusCmd)
}
