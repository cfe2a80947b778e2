package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/lazypower/cadence/internal/engine"
)

// confirmPrompter asks on the terminal whether to move an anchor.
type confirmPrompter struct{}

func (confirmPrompter) Offer(ctx context.Context, o engine.Offer) (bool, error) {
	return confirm(fmt.Sprintf("You keep snoozing to %s. Move %s there", o.TimeOfDay, o.Anchor))
}

// confirm runs a y/N prompt. Declining or interrupting is not an error.
func confirm(label string) (bool, error) {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return false, nil
		}
		return false, fmt.Errorf("prompt: %w", err)
	}
	return true, nil
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Answer pending suggestions to move routine anchors",
	Long: "Suggestions are queued by the server when a snooze pattern is detected. " +
		"Each one is shown in turn; answering no dismisses it.",
	Args: cobra.NoArgs,
	RunE: runPrompts,
}

var promptsList bool

func init() {
	promptsCmd.Flags().BoolVarP(&promptsList, "list", "l", false, "list pending suggestions without answering")
}

func runPrompts(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), appOptions{}, func(a *app) error {
		ctx := cmd.Context()
		pending, err := a.db.ListPendingPrompts(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(pending) == 0 {
			fmt.Fprintln(out, "No pending suggestions.")
			return nil
		}
		for _, p := range pending {
			if promptsList {
				fmt.Fprintf(out, "%s  move %s to %s\n", p.ID, p.Anchor, p.TimeOfDay)
				continue
			}
			ok, err := confirm(fmt.Sprintf("Move %s to %s", p.Anchor, p.TimeOfDay))
			if err != nil {
				return err
			}
			if !ok {
				if err := a.eng.DismissPrompt(ctx, p.ID); err != nil {
					return err
				}
				fmt.Fprintf(out, "kept %s\n", p.Anchor)
				continue
			}
			update, err := a.eng.AcceptPrompt(ctx, p.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s is now %s\n", p.Anchor, p.TimeOfDay)
			if update.Sweep != nil {
				printDiagnostics(update.Sweep.Diagnostics)
			}
		}
		return nil
	})
}
