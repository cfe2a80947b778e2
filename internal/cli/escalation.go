package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var escalationCmd = &cobra.Command{
	Use:   "escalation",
	Short: "Inspect and stop escalation chains of critical reminders",
}

var escalationStatusCmd = &cobra.Command{
	Use:   "status <reminder-id>",
	Short: "Show the live escalation chain and caregiver alerts",
	Args:  cobra.ExactArgs(1),
	RunE:  runEscalationStatus,
}

var escalationStopCmd = &cobra.Command{
	Use:   "stop <reminder-id>",
	Short: "Cancel all pending follow-ups of a reminder",
	Args:  cobra.ExactArgs(1),
	RunE:  runEscalationStop,
}

func init() {
	escalationCmd.AddCommand(escalationStatusCmd)
	escalationCmd.AddCommand(escalationStopCmd)
}

func runEscalationStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		chain, err := a.eng.Escalator.Chain(ctx, args[0])
		if err != nil {
			return err
		}
		if chain == nil || len(chain.Milestones) == 0 {
			fmt.Fprintln(out, "No active escalation.")
		} else {
			for _, m := range chain.Milestones {
				fmt.Fprintf(out, "level %d  %s  %s\n", m.Level, m.ScheduledAt.Format("Mon 2 Jan 15:04"), m.NotificationID)
			}
		}

		recs, err := a.db.ListCaregiverEscalations(ctx, args[0])
		if err != nil {
			return err
		}
		for _, r := range recs {
			who := r.CaregiverID
			if who == "" {
				who = "caregiver"
			}
			fmt.Fprintf(out, "alert %s at %s (level %d)\n", who, r.DeliverAt.Format("Mon 2 Jan 15:04"), r.Level)
		}
		return nil
	})
}

func runEscalationStop(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		diags := a.eng.Escalator.Stop(cmd.Context(), args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "escalation stopped for %s\n", args[0])
		printDiagnostics(diags)
		return nil
	})
}
