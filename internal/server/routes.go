package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/calendar"
	"github.com/lazypower/cadence/internal/engine"
	"github.com/lazypower/cadence/internal/reminder"
	"github.com/lazypower/cadence/internal/schedule"
	"github.com/lazypower/cadence/internal/tier"
)

func (s *Server) handleGetAnchors(w http.ResponseWriter, r *http.Request) {
	anchors, err := s.eng.Anchors.Anchors(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"anchors": anchors})
}

func (s *Server) handleSetAnchor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TimeOfDay string `json:"time_of_day" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	update, err := s.eng.Anchors.SetAnchor(r.Context(), chi.URLParam(r, "name"), req.TimeOfDay)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Resolve(r.URL.Query().Get("input")))
}

func (s *Server) handleNextSlot(w http.ResponseWriter, r *http.Request) {
	ref := s.eng.Now()
	if at := r.URL.Query().Get("at"); at != "" {
		t, ok := schedule.ParseTimestamp(at, ref.Location())
		if !ok {
			writeError(w, http.StatusBadRequest, "at must be a timestamp")
			return
		}
		ref = t
	}
	slot, ok, err := s.eng.NextSlot(r.Context(), ref)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no routine anchors configured")
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *Server) handleGetTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles": tier.Profiles(),
		"mapping":  s.eng.Tiers.Mapping(),
	})
}

func (s *Server) handleMergeTiers(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	rejected := s.eng.Tiers.Merge(req)
	writeJSON(w, http.StatusOK, map[string]any{
		"mapping":  s.eng.Tiers.Mapping(),
		"rejected": rejected,
	})
}

func (s *Server) handleResolveTier(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Tiers.Resolve(chi.URLParam(r, "category")))
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	list, err := s.db.ListReminders(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": list})
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var draft reminder.Draft
	if err := decode(r, &draft); err != nil {
		s.writeErr(w, err)
		return
	}
	created, err := s.eng.CreateReminder(r.Context(), draft)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	rem, err := s.eng.GetReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	mapped, _ := s.db.GetMapping(r.Context(), rem.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"reminder":          rem,
		"notification_id":   mapped,
		"escalation_active": s.eng.Escalator.IsActive(r.Context(), rem.ID),
	})
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	diags, err := s.eng.DeleteReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "diagnostics": diags})
}

func (s *Server) handleScheduleReminder(w http.ResponseWriter, r *http.Request) {
	rem, err := s.eng.GetReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	var opts engine.ScheduleOptions
	if at := r.URL.Query().Get("at"); at != "" {
		t, ok := schedule.ParseTimestamp(at, s.eng.Now().Location())
		if !ok {
			writeError(w, http.StatusBadRequest, "at must be a timestamp")
			return
		}
		opts.OverrideDate = &t
	}
	res, err := s.eng.Scheduler.ScheduleReminder(r.Context(), rem, opts)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCancelReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Scheduler.CancelScheduledReminder(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleSnoozeReminder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Minutes int `json:"minutes" validate:"required,gt=0,lte=1440"`
	}
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	res, err := s.eng.Scheduler.SnoozeReminder(r.Context(), chi.URLParam(r, "id"), req.Minutes)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status reminder.Status `json:"status" validate:"required,oneof=taken skipped missed"`
	}
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	res, err := s.eng.Acknowledge(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleScheduleNext(w http.ResponseWriter, r *http.Request) {
	rem, err := s.eng.GetReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	occ, err := s.eng.Scheduler.ScheduleNextOccurrence(r.Context(), rem)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if occ == nil {
		writeJSON(w, http.StatusOK, map[string]any{"recurs": false})
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

func (s *Server) handleRescheduleAll(w http.ResponseWriter, r *http.Request) {
	sweep, err := s.eng.Scheduler.RescheduleAll(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sweep)
}

func (s *Server) handleGetEscalation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	chain, err := s.eng.Escalator.Chain(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active": chain != nil && len(chain.Milestones) > 0,
		"chain":  chain,
	})
}

func (s *Server) handleStartEscalation(w http.ResponseWriter, r *http.Request) {
	rem, err := s.eng.GetReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	now := s.eng.Now()
	var due time.Time
	if at := r.URL.Query().Get("due"); at != "" {
		t, ok := schedule.ParseTimestamp(at, now.Location())
		if !ok {
			writeError(w, http.StatusBadRequest, "due must be a timestamp")
			return
		}
		due = t
	} else if due, err = s.eng.Scheduler.TargetTime(r.Context(), rem, now); err != nil {
		s.writeErr(w, err)
		return
	}
	res, err := s.eng.Escalator.Start(r.Context(), rem, due)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStopEscalation(w http.ResponseWriter, r *http.Request) {
	diags := s.eng.Escalator.Stop(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]any{"status": "stopped", "diagnostics": diags})
}

func (s *Server) handleCaregiverEscalations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.db.ListCaregiverEscalations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"escalations": recs})
}

func (s *Server) handleRecordSnooze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReminderID string `json:"reminder_id" validate:"required"`
		At         string `json:"at" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	at, ok := schedule.ParseTimestamp(req.At, s.eng.Now().Location())
	if !ok {
		writeError(w, http.StatusBadRequest, "at must be a timestamp")
		return
	}
	rem, err := s.eng.GetReminder(r.Context(), req.ReminderID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	res, err := s.eng.Snooze.RecordSnooze(r.Context(), rem, at)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := s.db.ListPendingPrompts(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
}

func (s *Server) handleAcceptPrompt(w http.ResponseWriter, r *http.Request) {
	update, err := s.eng.AcceptPrompt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (s *Server) handleDismissPrompt(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.DismissPrompt(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

func (s *Server) handlePendingNotifications(w http.ResponseWriter, r *http.Request) {
	pending, err := s.queue.Pending(r.Context(), time.Time{})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": pending})
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 366 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}
	occ, err := s.upcoming(r, s.eng.Now(), days)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"upcoming": occ})
}

func (s *Server) upcoming(r *http.Request, from time.Time, days int) ([]calendar.Occurrence, error) {
	list, err := s.db.ListReminders(r.Context())
	if err != nil {
		return nil, err
	}
	anchors, err := s.eng.Anchors.Anchors(r.Context())
	if err != nil {
		return nil, err
	}
	return calendar.Upcoming(list, anchors, from, from.AddDate(0, 0, days))
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	list, err := s.db.ListReminders(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	anchors, err := s.eng.Anchors.Anchors(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := calendar.Export(w, list, anchors, s.eng.Now()); err != nil {
		if errors.Is(err, calendar.ErrNoEvents) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.logger.Error("export calendar", zap.Error(err))
	}
}
