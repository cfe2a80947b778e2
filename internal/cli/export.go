package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/cadence/internal/calendar"
	"github.com/lazypower/cadence/internal/notify"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export reminders",
}

var exportOutput string

var exportICSCmd = &cobra.Command{
	Use:   "ics",
	Short: "Write pending reminders as an iCalendar file",
	Args:  cobra.NoArgs,
	RunE:  runExportICS,
}

var upcomingDays int

var upcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List due times over the next few days",
	Args:  cobra.NoArgs,
	RunE:  runUpcoming,
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List queued local notifications",
	Args:  cobra.NoArgs,
	RunE:  runNotifications,
}

func init() {
	exportICSCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	exportCmd.AddCommand(exportICSCmd)
	upcomingCmd.Flags().IntVar(&upcomingDays, "days", 7, "how many days ahead")
}

func runExportICS(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		list, err := a.db.ListReminders(cmd.Context())
		if err != nil {
			return err
		}
		anchors, err := a.eng.Anchors.Anchors(cmd.Context())
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOutput, err)
			}
			defer f.Close()
			w = f
		}
		if err := calendar.Export(w, list, anchors, a.eng.Now()); err != nil {
			if errors.Is(err, calendar.ErrNoEvents) {
				fmt.Fprintln(os.Stderr, "nothing to export")
				return nil
			}
			return err
		}
		if exportOutput != "" {
			fmt.Fprintf(os.Stderr, "wrote %s\n", exportOutput)
		}
		return nil
	})
}

func runUpcoming(cmd *cobra.Command, args []string) error {
	if upcomingDays < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		list, err := a.db.ListReminders(cmd.Context())
		if err != nil {
			return err
		}
		anchors, err := a.eng.Anchors.Anchors(cmd.Context())
		if err != nil {
			return err
		}
		now := a.eng.Now()
		occ, err := calendar.Upcoming(list, anchors, now, now.AddDate(0, 0, upcomingDays))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(occ) == 0 {
			fmt.Fprintln(out, "Nothing coming up.")
			return nil
		}
		day := ""
		for _, o := range occ {
			at := o.At.In(now.Location())
			if d := at.Format("Monday 2 January"); d != day {
				if day != "" {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "## %s\n", d)
				day = d
			}
			fmt.Fprintf(out, "  %s  %s [%s]\n", at.Format("15:04"), o.Title, a.eng.Tiers.TierForCategory(o.Category))
		}
		return nil
	})
}

func runNotifications(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		pending, err := notify.NewQueue(a.db).Pending(cmd.Context(), time.Time{})
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No queued notifications.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FIRES\tTIER\tTITLE\tREMINDER")
		for _, p := range pending {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.FireAt.Local().Format("Mon 2 Jan 15:04"), p.Content.TierID, p.Content.Title, p.ReminderID)
		}
		return tw.Flush()
	})
}
