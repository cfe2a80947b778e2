package engine

import (
	"context"
	"fmt"

	"github.com/lazypower/cadence/internal/store"
)

// Prompt outcomes reported to metrics.
const (
	OutcomeOffered   = "offered"
	OutcomeAccepted  = "accepted"
	OutcomeDismissed = "dismissed"
)

// Offer asks the user whether an anchor should move to the time they keep
// snoozing to.
type Offer struct {
	Anchor     string `json:"anchor"`
	TimeOfDay  string `json:"time_of_day"`
	ReminderID string `json:"reminder_id,omitempty"`
	Title      string `json:"title,omitempty"`
}

// Prompter delivers an Offer. It returns true only when the user accepted
// right away; a prompter that defers the answer returns false.
type Prompter interface {
	Offer(ctx context.Context, o Offer) (bool, error)
}

// PrompterFunc adapts a function into a Prompter.
type PrompterFunc func(ctx context.Context, o Offer) (bool, error)

func (f PrompterFunc) Offer(ctx context.Context, o Offer) (bool, error) { return f(ctx, o) }

// Decline is a Prompter that never accepts.
var Decline = PrompterFunc(func(context.Context, Offer) (bool, error) { return false, nil })

// QueuedPrompter records offers as pending prompts to be answered later
// through Engine.AcceptPrompt or Engine.DismissPrompt.
type QueuedPrompter struct {
	repo PromptRepository
}

// NewQueuedPrompter creates a QueuedPrompter on repo.
func NewQueuedPrompter(repo PromptRepository) *QueuedPrompter {
	return &QueuedPrompter{repo: repo}
}

func (q *QueuedPrompter) Offer(ctx context.Context, o Offer) (bool, error) {
	p := &store.AnchorPrompt{
		Anchor:     o.Anchor,
		TimeOfDay:  o.TimeOfDay,
		ReminderID: o.ReminderID,
		Status:     store.PromptPending,
	}
	if err := q.repo.InsertPrompt(ctx, p); err != nil {
		return false, fmt.Errorf("queue prompt: %w", err)
	}
	return false, nil
}
