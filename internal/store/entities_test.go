package store

import (
	"context"
	"testing"
	"time"
)

func TestSettings(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, ok, err := db.GetSetting(ctx, "k"); err != nil || ok {
		t.Fatalf("GetSetting on empty = (%v, %v)", ok, err)
	}
	if err := db.SetSetting(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := db.SetSetting(ctx, "k", "v2"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	v, ok, err := db.GetSetting(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Errorf("GetSetting = (%q, %v, %v), want v2", v, ok, err)
	}
	if err := db.DeleteSetting(ctx, "k"); err != nil {
		t.Fatalf("DeleteSetting: %v", err)
	}
	if _, ok, _ := db.GetSetting(ctx, "k"); ok {
		t.Error("setting still present after delete")
	}
}

func TestAnchorsRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.SaveAnchors(ctx, map[string]string{"Breakfast": "07:00:00", "Lunch": "12:00:00"}); err != nil {
		t.Fatalf("SaveAnchors: %v", err)
	}
	if err := db.SaveAnchors(ctx, map[string]string{"Breakfast": "07:30:00"}); err != nil {
		t.Fatalf("SaveAnchors update: %v", err)
	}
	got, err := db.LoadAnchors(ctx)
	if err != nil {
		t.Fatalf("LoadAnchors: %v", err)
	}
	if got["Breakfast"] != "07:30:00" || got["Lunch"] != "12:00:00" || len(got) != 2 {
		t.Errorf("LoadAnchors = %v", got)
	}
}

func TestMappingLatestWins(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if id, err := db.GetMapping(ctx, "r1"); err != nil || id != "" {
		t.Fatalf("GetMapping empty = (%q, %v)", id, err)
	}
	db.PutMapping(ctx, "r1", "n1")
	db.PutMapping(ctx, "r1", "n2")

	id, err := db.GetMapping(ctx, "r1")
	if err != nil || id != "n2" {
		t.Errorf("GetMapping = (%q, %v), want n2", id, err)
	}
	if n, _ := db.CountMappings(ctx); n != 1 {
		t.Errorf("CountMappings = %d, want 1", n)
	}
	if err := db.DeleteMapping(ctx, "r1"); err != nil {
		t.Fatalf("DeleteMapping: %v", err)
	}
	if id, _ := db.GetMapping(ctx, "r1"); id != "" {
		t.Errorf("mapping still present: %q", id)
	}
}

func TestChainRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	due := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	chain := &EscalationChain{
		ReminderID: "r1",
		CreatedAt:  due,
		Milestones: []Milestone{
			{Level: 1, ScheduledAt: due.Add(15 * time.Minute), NotificationID: "n1"},
			{Level: 3, ScheduledAt: due.Add(60 * time.Minute), NotificationID: "n3"},
		},
	}
	if err := db.PutChain(ctx, chain); err != nil {
		t.Fatalf("PutChain: %v", err)
	}
	got, err := db.GetChain(ctx, "r1")
	if err != nil || got == nil {
		t.Fatalf("GetChain = (%v, %v)", got, err)
	}
	if len(got.Milestones) != 2 || got.Milestones[1].Level != 3 || !got.Milestones[1].ScheduledAt.Equal(due.Add(time.Hour)) {
		t.Errorf("milestones = %+v", got.Milestones)
	}
	if !got.CreatedAt.Equal(due) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, due)
	}

	if err := db.DeleteChain(ctx, "r1"); err != nil {
		t.Fatalf("DeleteChain: %v", err)
	}
	if got, _ := db.GetChain(ctx, "r1"); got != nil {
		t.Errorf("chain still present: %+v", got)
	}
}

func TestCaregiverEscalations(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	e := &CaregiverEscalation{ReminderID: "r1", CaregiverID: "cg-1", Level: 3, DeliverAt: at}
	if err := db.InsertCaregiverEscalation(ctx, e); err != nil {
		t.Fatalf("InsertCaregiverEscalation: %v", err)
	}
	if e.ID == 0 {
		t.Error("expected assigned id")
	}
	list, err := db.ListCaregiverEscalations(ctx, "r1")
	if err != nil {
		t.Fatalf("ListCaregiverEscalations: %v", err)
	}
	if len(list) != 1 || list[0].CaregiverID != "cg-1" || !list[0].DeliverAt.Equal(at) {
		t.Errorf("list = %+v", list)
	}
}

func TestSnoozeEntryRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if e, err := db.GetSnoozeEntry(ctx, "Breakfast", "08:30:00"); err != nil || e != nil {
		t.Fatalf("GetSnoozeEntry empty = (%v, %v)", e, err)
	}
	e := &SnoozeEntry{Anchor: "Breakfast", TimeOfDay: "08:30:00", Dates: []string{"2026-03-01"}}
	if err := db.PutSnoozeEntry(ctx, e); err != nil {
		t.Fatalf("PutSnoozeEntry: %v", err)
	}
	e.Dates = append(e.Dates, "2026-03-02")
	e.LastPrompted = "2026-03-02"
	if err := db.PutSnoozeEntry(ctx, e); err != nil {
		t.Fatalf("PutSnoozeEntry update: %v", err)
	}

	got, err := db.GetSnoozeEntry(ctx, "Breakfast", "08:30:00")
	if err != nil || got == nil {
		t.Fatalf("GetSnoozeEntry = (%v, %v)", got, err)
	}
	if len(got.Dates) != 2 || got.LastPrompted != "2026-03-02" {
		t.Errorf("entry = %+v", got)
	}
}

func TestLocalNotifications(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"n1", "n2", "n3"} {
		n := &LocalNotification{ID: id, ReminderID: "r1", Payload: "{}", FireAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.InsertLocalNotification(ctx, n); err != nil {
			t.Fatalf("InsertLocalNotification: %v", err)
		}
	}

	due, err := db.PendingNotifications(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("PendingNotifications: %v", err)
	}
	if len(due) != 2 || due[0].ID != "n1" {
		t.Errorf("due = %+v", due)
	}

	if err := db.MarkDelivered(ctx, "n1", base); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if ok, _ := db.DeleteLocalNotification(ctx, "n1"); ok {
		t.Error("delivered notification should not be deletable")
	}
	if ok, _ := db.DeleteLocalNotification(ctx, "n2"); !ok {
		t.Error("expected n2 to be deleted")
	}
	if ok, _ := db.DeleteLocalNotification(ctx, "n2"); ok {
		t.Error("second delete of n2 should report false")
	}

	all, _ := db.PendingNotifications(ctx, time.Time{})
	if len(all) != 1 || all[0].ID != "n3" {
		t.Errorf("pending = %+v", all)
	}

	n1, _ := db.GetLocalNotification(ctx, "n1")
	if n1 == nil || n1.DeliveredAt == nil {
		t.Errorf("n1 = %+v, want delivered", n1)
	}
}

func TestPrompts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	p := &AnchorPrompt{Anchor: "Breakfast", TimeOfDay: "08:30:00", ReminderID: "r1"}
	if err := db.InsertPrompt(ctx, p); err != nil {
		t.Fatalf("InsertPrompt: %v", err)
	}
	pending, err := db.ListPendingPrompts(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListPendingPrompts = (%v, %v)", pending, err)
	}

	if err := db.ResolvePrompt(ctx, p.ID, "maybe"); err == nil {
		t.Error("expected error for invalid status")
	}
	if err := db.ResolvePrompt(ctx, p.ID, PromptAccepted); err != nil {
		t.Fatalf("ResolvePrompt: %v", err)
	}
	if err := db.ResolvePrompt(ctx, p.ID, PromptDismissed); err == nil {
		t.Error("resolving twice should fail")
	}

	got, _ := db.GetPrompt(ctx, p.ID)
	if got.Status != PromptAccepted || got.ResolvedAt == nil {
		t.Errorf("prompt = %+v", got)
	}
	pending, _ = db.ListPendingPrompts(ctx)
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
}
