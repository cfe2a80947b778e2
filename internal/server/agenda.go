package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/lazypower/cadence/internal/schedule"
)

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	text, err := s.buildAgenda(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, text)
}

// buildAgenda renders today's anchors, the next 24 hours of reminders and
// any open adaptive prompts as markdown.
func (s *Server) buildAgenda(r *http.Request) (string, error) {
	now := s.eng.Now()
	var b strings.Builder

	fmt.Fprintf(&b, "## Agenda for %s\n", now.Format("Monday, 2 January 2006"))

	anchors, err := s.eng.Anchors.Anchors(r.Context())
	if err != nil {
		return "", err
	}
	b.WriteString("\n### Routine\n")
	for _, name := range schedule.AnchorOrder {
		fmt.Fprintf(&b, "- %s %s\n", hhmm(anchors[name]), name)
	}

	occ, err := s.upcoming(r, now, 1)
	if err != nil {
		return "", err
	}
	b.WriteString("\n### Coming up\n")
	if len(occ) == 0 {
		b.WriteString("- nothing in the next 24 hours\n")
	}
	for _, o := range occ {
		tierID := s.eng.Tiers.TierForCategory(o.Category)
		line := fmt.Sprintf("- %s %s [%s]", o.At.In(now.Location()).Format("15:04"), o.Title, tierID)
		if s.eng.Escalator.IsActive(r.Context(), o.ReminderID) {
			line += " (escalating)"
		}
		b.WriteString(line + "\n")
	}

	prompts, err := s.db.ListPendingPrompts(r.Context())
	if err != nil {
		return "", err
	}
	if len(prompts) > 0 {
		b.WriteString("\n### Suggestions\n")
		for _, p := range prompts {
			fmt.Fprintf(&b, "- Move %s to %s? (prompt %s)\n", p.Anchor, hhmm(p.TimeOfDay), p.ID)
		}
	}
	return b.String(), nil
}

func hhmm(tod string) string {
	if len(tod) > 5 {
		return tod[:5]
	}
	return tod
}
