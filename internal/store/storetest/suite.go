package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Unique test identifiers
	userID := "u-" + uuid.New().String()
	email := userID + "@example.test"

	// Users
	u := &model.User{UserID: userID, Email: email, TimeZone: "America/New_York"}
	if _, err := s.Users().Create(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if got, err := s.Users().Get(ctx, userID); err != nil || got == nil || got.UserID != userID {
		t.Fatalf("GetUser: got=%v err=%v", got, err)
	}
	if _, err := s.Users().Get(ctx, "u-missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetUser missing: err=%v", err)
	}

	// Tasks: one fully scheduled, one unresolved draft, one unscheduled
	instant := time.Date(2025, 10, 3, 18, 30, 0, 0, time.UTC)
	scheduled, err := s.Tasks().Create(ctx, &model.Task{
		UserID: userID,
		Title:  "review quarterly report",
		Schedule: model.ScheduledMoment{
			InstantUTC:        &instant,
			TimeZone:          "America/New_York",
			LocalDate:         "2025-10-03",
			LocalTime:         "14:30",
			DurationMinutes:   60,
			NotifyLeadMinutes: 15,
		},
	})
	if err != nil {
		t.Fatalf("CreateTask scheduled: %v", err)
	}
	draft, err := s.Tasks().Create(ctx, &model.Task{
		UserID: userID,
		Title:  "legacy draft",
		Schedule: model.ScheduledMoment{
			LocalDate:         "2025-10-04",
			LocalTime:         "09:00",
			NotifyLeadMinutes: model.NoNotification,
		},
	})
	if err != nil {
		t.Fatalf("CreateTask draft: %v", err)
	}
	if _, err := s.Tasks().Create(ctx, &model.Task{UserID: userID, Title: "someday",
		Schedule: model.ScheduledMoment{NotifyLeadMinutes: model.NoNotification}}); err != nil {
		t.Fatalf("CreateTask unscheduled: %v", err)
	}

	// Get round-trips the schedule
	got, err := s.Tasks().Get(ctx, userID, scheduled.TaskID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Schedule.InstantUTC == nil || !got.Schedule.InstantUTC.Equal(instant) {
		t.Fatalf("instant mismatch: %v", got.Schedule.InstantUTC)
	}
	if got.Schedule.LocalDate != "2025-10-03" || got.Schedule.LocalTime != "14:30" || got.Schedule.TimeZone != "America/New_York" {
		t.Fatalf("schedule mismatch: %+v", got.Schedule)
	}

	// List with a local-date range only sees the dated tasks
	lst, err := s.Tasks().List(ctx, model.ListTasksRequest{UserID: userID, DateFrom: "2025-10-03", DateTo: "2025-10-03"})
	if err != nil || len(lst) != 1 || lst[0].TaskID != scheduled.TaskID {
		t.Fatalf("List date range: n=%d err=%v", len(lst), err)
	}

	// ListDueBetween sees the scheduled task's notify minute (18:15Z)
	due, err := s.Tasks().ListDueBetween(ctx,
		time.Date(2025, 10, 3, 18, 15, 0, 0, time.UTC),
		time.Date(2025, 10, 3, 18, 16, 0, 0, time.UTC))
	if err != nil || len(due) != 1 || due[0].TaskID != scheduled.TaskID {
		t.Fatalf("ListDueBetween: n=%d err=%v", len(due), err)
	}
	due, err = s.Tasks().ListDueBetween(ctx,
		time.Date(2025, 10, 3, 18, 16, 0, 0, time.UTC),
		time.Date(2025, 10, 3, 18, 17, 0, 0, time.UTC))
	if err != nil || len(due) != 0 {
		t.Fatalf("ListDueBetween out of window: n=%d err=%v", len(due), err)
	}

	// ListUnresolved sees only the draft
	unres, err := s.Tasks().ListUnresolved(ctx, "", 10)
	if err != nil || len(unres) != 1 || unres[0].TaskID != draft.TaskID {
		t.Fatalf("ListUnresolved: n=%d err=%v", len(unres), err)
	}

	// Batched schedule update resolves the draft
	fixed := time.Date(2025, 10, 4, 16, 0, 0, 0, time.UTC)
	draft.Schedule.InstantUTC = &fixed
	draft.Schedule.TimeZone = "America/Los_Angeles"
	draft.Schedule.LocalTime = "09:00"
	if err := s.Tasks().UpdateSchedules(ctx, []*model.Task{draft}); err != nil {
		t.Fatalf("UpdateSchedules: %v", err)
	}
	if unres, err = s.Tasks().ListUnresolved(ctx, "", 10); err != nil || len(unres) != 0 {
		t.Fatalf("ListUnresolved after backfill: n=%d err=%v", len(unres), err)
	}

	// Update clears a schedule entirely
	scheduled.Schedule = model.ScheduledMoment{NotifyLeadMinutes: model.NoNotification}
	scheduled.Status = model.TaskStatusDone
	if _, err := s.Tasks().Update(ctx, scheduled); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	got, err = s.Tasks().Get(ctx, userID, scheduled.TaskID)
	if err != nil || got.Schedule.InstantUTC != nil || got.Status != model.TaskStatusDone {
		t.Fatalf("cleared schedule persisted wrong: %+v err=%v", got, err)
	}

	// Templates
	tpl, err := s.Templates().Create(ctx, &model.TaskTemplate{
		UserID:            userID,
		Title:             "standup",
		RRule:             "FREQ=WEEKLY;BYDAY=MO,WE,FR",
		LocalTime:         "09:30",
		TimeZone:          "America/New_York",
		DurationMinutes:   15,
		NotifyLeadMinutes: 5,
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if got, err := s.Templates().Get(ctx, userID, tpl.TemplateID); err != nil || got.RRule != "FREQ=WEEKLY;BYDAY=MO,WE,FR" {
		t.Fatalf("GetTemplate: %+v err=%v", got, err)
	}
	if lst, err := s.Templates().List(ctx, userID); err != nil || len(lst) != 1 {
		t.Fatalf("ListTemplates: n=%d err=%v", len(lst), err)
	}

	// Materialized occurrences are unique per (template, date)
	occ := "2025-10-06"
	mk := func() error {
		_, err := s.Tasks().Create(ctx, &model.Task{
			UserID:         userID,
			Title:          tpl.Title,
			TemplateID:     &tpl.TemplateID,
			OccurrenceDate: &occ,
			Schedule:       model.ScheduledMoment{NotifyLeadMinutes: model.NoNotification},
		})
		return err
	}
	if err := mk(); err != nil {
		t.Fatalf("materialize first: %v", err)
	}
	if err := mk(); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("materialize duplicate: err=%v want ErrConflict", err)
	}

	// Deletes
	if err := s.Templates().Delete(ctx, userID, tpl.TemplateID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if err := s.Tasks().Delete(ctx, userID, scheduled.TaskID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := s.Tasks().Delete(ctx, userID, scheduled.TaskID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("DeleteTask again: err=%v", err)
	}
	if err := s.Users().Delete(ctx, userID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
}
