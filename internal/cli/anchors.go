package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/cadence/internal/schedule"
)

var anchorsCmd = &cobra.Command{
	Use:   "anchors",
	Short: "Show routine anchor times",
	Args:  cobra.NoArgs,
	RunE:  runAnchors,
}

var anchorsSetCmd = &cobra.Command{
	Use:   "set <anchor> <time>",
	Short: "Move a routine anchor and reschedule reminders bound to it",
	Example: "  cadence anchors set breakfast 7:30\n" +
		"  cadence anchors set Bedtime \"10:15 PM\"",
	Args: cobra.ExactArgs(2),
	RunE: runAnchorsSet,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <input>",
	Short: "Show how a reminder time input is interpreted",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var nextSlotAt string

var nextSlotCmd = &cobra.Command{
	Use:   "next-slot",
	Short: "Show the next routine anchor after now",
	Args:  cobra.NoArgs,
	RunE:  runNextSlot,
}

func init() {
	anchorsCmd.AddCommand(anchorsSetCmd)
	nextSlotCmd.Flags().StringVar(&nextSlotAt, "at", "", "reference timestamp instead of now")
}

func runAnchors(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		anchors, err := a.eng.Anchors.Anchors(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, name := range schedule.AnchorOrder {
			fmt.Fprintf(out, "%-10s %s\n", name, anchors[name])
		}
		return nil
	})
}

func runAnchorsSet(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		update, err := a.eng.Anchors.SetAnchor(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if s := update.Sweep; s != nil {
			fmt.Fprintf(out, "%s is now %s\n", s.Anchor, s.TimeOfDay)
			fmt.Fprintf(out, "rescheduled %d reminder(s)\n", len(s.Updated))
			printDiagnostics(s.Diagnostics)
		}
		return nil
	})
}

func runResolve(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		d := a.eng.Resolve(args[0])
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, d.String())
		if d.Kind == schedule.Specific {
			fmt.Fprintf(out, "  at %s\n", d.At.Format("Mon 2 Jan 2006 15:04 MST"))
		}
		return nil
	})
}

func runNextSlot(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		ref := a.eng.Now()
		if nextSlotAt != "" {
			t, ok := schedule.ParseTimestamp(nextSlotAt, ref.Location())
			if !ok {
				return fmt.Errorf("--at %q is not a timestamp", nextSlotAt)
			}
			ref = t
		}
		slot, ok, err := a.eng.NextSlot(cmd.Context(), ref)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no routine anchors configured")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s at %s\n", slot.Anchor, slot.At.Format(time.RFC3339))
		return nil
	})
}
