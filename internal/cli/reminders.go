package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/cadence/internal/engine"
	"github.com/lazypower/cadence/internal/reminder"
	"github.com/lazypower/cadence/internal/schedule"
)

var reminderCmd = &cobra.Command{
	Use:     "reminder",
	Aliases: []string{"reminders", "r"},
	Short:   "Create and manage reminders",
}

var (
	addDescription string
	addCategory    string
	addTime        string
	addRepeat      string
	addDays        []string
	addBuffers     []int
	addLead        int
	addCaregiver   string
	addDoseTimes   []string
)

var reminderAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a reminder and schedule it",
	Long: "Create a reminder. --time accepts a timestamp, a time of day, a weekday, " +
		"an anchor name or routine:<anchor>; without it the reminder is bound to the next routine anchor.",
	Example: "  cadence reminder add Metformin -c medications --time routine:Breakfast\n" +
		"  cadence reminder add \"Dentist\" -c appointments --time 2026-11-04T14:00:00",
	Args: cobra.MinimumNArgs(1),
	RunE: runReminderAdd,
}

var reminderListAll bool

var reminderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reminders",
	Args:  cobra.NoArgs,
	RunE:  runReminderList,
}

var reminderShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one reminder and its live notification",
	Args:  cobra.ExactArgs(1),
	RunE:  runReminderShow,
}

var scheduleAt string

var reminderScheduleCmd = &cobra.Command{
	Use:   "schedule <id>",
	Short: "(Re)schedule a reminder's notification",
	Args:  cobra.ExactArgs(1),
	RunE:  runReminderSchedule,
}

var reminderCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a reminder's live notification",
	Args:  cobra.ExactArgs(1),
	RunE:  runReminderCancel,
}

var snoozeMinutes int

var reminderSnoozeCmd = &cobra.Command{
	Use:   "snooze <id>",
	Short: "Snooze a reminder",
	Long: "Snooze a reminder by --minutes. When the same routine anchor keeps being snoozed to " +
		"the same time you are asked whether to move the anchor.",
	Args: cobra.ExactArgs(1),
	RunE: runReminderSnooze,
}

var reminderAckCmd = &cobra.Command{
	Use:       "ack <id> <taken|skipped|missed>",
	Short:     "Acknowledge a reminder",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"taken", "skipped", "missed"},
	RunE:      runReminderAck,
}

var reminderDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a reminder and cancel its notifications",
	Args:  cobra.ExactArgs(1),
	RunE:  runReminderDelete,
}

var reminderNextCmd = &cobra.Command{
	Use:   "next <id>",
	Short: "Roll a recurring reminder to its next occurrence",
	Args:  cobra.ExactArgs(1),
	RunE:  runReminderNext,
}

var rescheduleCmd = &cobra.Command{
	Use:   "reschedule",
	Short: "Reschedule every pending reminder",
	Args:  cobra.NoArgs,
	RunE:  runReschedule,
}

func init() {
	f := reminderAddCmd.Flags()
	f.StringVarP(&addDescription, "description", "d", "", "notification body")
	f.StringVarP(&addCategory, "category", "c", string(reminder.CategoryOther), "medications, appointments, important_dates or other")
	f.StringVarP(&addTime, "time", "t", "", "when the reminder is due")
	f.StringVar(&addRepeat, "repeat", "", "none, once, daily, weekly or custom")
	f.StringSliceVar(&addDays, "days", nil, "weekdays for weekly repeats, e.g. Mon,Thu")
	f.IntSliceVar(&addBuffers, "buffer", nil, "extra minutes-before reminders")
	f.IntVar(&addLead, "before", 0, "notify this many minutes early")
	f.StringVar(&addCaregiver, "caregiver", "", "caregiver to alert when a critical reminder is ignored")
	f.StringSliceVar(&addDoseTimes, "dose", nil, "dose times for medications")

	reminderListCmd.Flags().BoolVarP(&reminderListAll, "all", "a", false, "include acknowledged and deleted reminders")
	reminderScheduleCmd.Flags().StringVar(&scheduleAt, "at", "", "schedule at this timestamp instead of the reminder's time")
	reminderSnoozeCmd.Flags().IntVarP(&snoozeMinutes, "minutes", "m", 10, "minutes to snooze")

	reminderCmd.AddCommand(reminderAddCmd)
	reminderCmd.AddCommand(reminderListCmd)
	reminderCmd.AddCommand(reminderShowCmd)
	reminderCmd.AddCommand(reminderScheduleCmd)
	reminderCmd.AddCommand(reminderCancelCmd)
	reminderCmd.AddCommand(reminderSnoozeCmd)
	reminderCmd.AddCommand(reminderAckCmd)
	reminderCmd.AddCommand(reminderDeleteCmd)
	reminderCmd.AddCommand(reminderNextCmd)
}

func runReminderAdd(cmd *cobra.Command, args []string) error {
	draft := reminder.Draft{
		Title:               strings.Join(args, " "),
		Description:         addDescription,
		Category:            reminder.Category(addCategory),
		RawTime:             addTime,
		DoseTimes:           addDoseTimes,
		Buffers:             addBuffers,
		NotifyBeforeMinutes: addLead,
		CaregiverID:         addCaregiver,
	}
	if addRepeat != "" || len(addDays) > 0 {
		rule := reminder.RepeatRule{FrequencyType: reminder.Frequency(addRepeat), RepeatDays: addDays}
		if rule.FrequencyType == "" {
			rule.FrequencyType = reminder.FrequencyWeekly
		}
		draft.Repeat = &rule
	}

	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		created, err := a.eng.CreateReminder(cmd.Context(), draft)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		r := created.Reminder
		fmt.Fprintf(out, "created %s  %s [%s]\n", r.ID, r.Title, a.eng.Tiers.TierForCategory(string(r.Category)))
		if created.Slot != nil {
			fmt.Fprintf(out, "  no time given, bound to %s\n", created.Slot.Anchor)
		}
		printSchedule(out, created.Schedule)
		printDiagnostics(created.Diagnostics)
		return nil
	})
}

func runReminderList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		list, err := a.db.ListReminders(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tTIER\tWHEN\tREPEAT\tSTATUS")
		shown := 0
		for _, r := range list {
			if !reminderListAll && (r.Deleted || !r.Status.Schedulable()) {
				continue
			}
			status := string(r.Status)
			if r.Deleted {
				status = "deleted"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Title, r.Category, a.eng.Tiers.TierForCategory(string(r.Category)),
				describeWhen(&r), r.Repeat.FrequencyType, status)
			shown++
		}
		if shown == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No reminders.")
			return nil
		}
		return tw.Flush()
	})
}

func runReminderShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		r, err := a.eng.GetReminder(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", r.Title)
		if r.Description != "" {
			fmt.Fprintf(out, "  %s\n", r.Description)
		}
		fmt.Fprintf(out, "  id:        %s\n", r.ID)
		fmt.Fprintf(out, "  category:  %s (%s)\n", r.Category, a.eng.Tiers.TierForCategory(string(r.Category)))
		fmt.Fprintf(out, "  when:      %s\n", describeWhen(r))
		fmt.Fprintf(out, "  repeat:    %s\n", describeRepeat(r.Repeat))
		fmt.Fprintf(out, "  status:    %s\n", r.Status)

		nid, err := a.db.GetMapping(cmd.Context(), r.ID)
		if err != nil {
			return err
		}
		if nid == "" {
			fmt.Fprintln(out, "  notification: none")
		} else {
			fmt.Fprintf(out, "  notification: %s\n", nid)
		}
		if chain, err := a.eng.Escalator.Chain(cmd.Context(), r.ID); err == nil && chain != nil {
			for _, m := range chain.Milestones {
				fmt.Fprintf(out, "  escalation level %d at %s\n", m.Level, m.ScheduledAt.Format("15:04"))
			}
		}
		return nil
	})
}

func runReminderSchedule(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		r, err := a.eng.GetReminder(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		var opts engine.ScheduleOptions
		if scheduleAt != "" {
			t, ok := schedule.ParseTimestamp(scheduleAt, a.eng.Now().Location())
			if !ok {
				return fmt.Errorf("--at %q is not a timestamp", scheduleAt)
			}
			opts.OverrideDate = &t
		}
		res, err := a.eng.Scheduler.ScheduleReminder(cmd.Context(), r, opts)
		if err != nil {
			return err
		}
		printSchedule(cmd.OutOrStdout(), res)
		return nil
	})
}

func runReminderCancel(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		if err := a.eng.Scheduler.CancelScheduledReminder(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s\n", args[0])
		return nil
	})
}

func runReminderSnooze(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{prompter: confirmPrompter{}}, func(a *app) error {
		res, err := a.eng.Scheduler.SnoozeReminder(cmd.Context(), args[0], snoozeMinutes)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "snoozed %s until %s\n", res.Reminder.Title, describeWhen(res.Reminder))
		if p := res.Pattern; p != nil && p.Accepted && p.Update != nil {
			fmt.Fprintf(out, "%s moved to %s\n", p.Anchor, p.TimeOfDay)
		}
		printDiagnostics(res.Diagnostics)
		return nil
	})
}

func runReminderAck(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		res, err := a.eng.Acknowledge(cmd.Context(), args[0], reminder.Status(args[1]))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s marked %s\n", res.Reminder.Title, args[1])
		if res.Next != nil {
			fmt.Fprintf(out, "  next: %s\n", describeWhen(res.Next.Reminder))
		}
		printDiagnostics(res.Diagnostics)
		return nil
	})
}

func runReminderDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		diags, err := a.eng.DeleteReminder(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		printDiagnostics(diags)
		return nil
	})
}

func runReminderNext(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		r, err := a.eng.GetReminder(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		occ, err := a.eng.Scheduler.ScheduleNextOccurrence(cmd.Context(), r)
		if err != nil {
			return err
		}
		if occ == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s does not repeat\n", r.Title)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s next due %s\n", r.Title, describeWhen(occ.Reminder))
		printSchedule(cmd.OutOrStdout(), occ.Schedule)
		return nil
	})
}

func runReschedule(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		sweep, err := a.eng.Scheduler.RescheduleAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scheduled %d, skipped %d, failed %d\n",
			sweep.Scheduled, sweep.Skipped, len(sweep.Failures))
		printDiagnostics(sweep.Failures)
		return nil
	})
}

func printSchedule(w io.Writer, res *engine.ScheduleResult) {
	if res == nil {
		return
	}
	if res.Skipped {
		fmt.Fprintf(w, "  not scheduled: %s\n", res.SkipReason)
		return
	}
	fmt.Fprintf(w, "  fires %s (%s)\n", res.FireAt.Format("Mon 2 Jan 15:04"), res.Tier)
	if esc := res.Escalation; esc != nil && esc.Started {
		fmt.Fprintf(w, "  escalates %d time(s) if not acknowledged\n", len(esc.Milestones))
	}
	printDiagnostics(res.Diagnostics)
}

func describeWhen(r *reminder.Reminder) string {
	if name, ok := r.RoutineToken(); ok {
		return "at " + name
	}
	t, err := time.Parse(time.RFC3339, r.ReminderTime)
	if err != nil {
		return r.ReminderTime
	}
	when := t.Local().Format("Mon 2 Jan 15:04")
	if r.RoutineAnchor != "" {
		when += " (" + r.RoutineAnchor + ")"
	}
	return when
}

func describeRepeat(rule reminder.RepeatRule) string {
	switch rule.FrequencyType {
	case reminder.FrequencyWeekly:
		if len(rule.RepeatDays) > 0 {
			return "weekly on " + strings.Join(rule.RepeatDays, ", ")
		}
		return "weekly"
	case "":
		return string(reminder.FrequencyNone)
	default:
		return string(rule.FrequencyType)
	}
}
