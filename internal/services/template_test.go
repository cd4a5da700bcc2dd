package services

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/planwheel/planwheel/internal/logger"
	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/schedule"
)

func TestTemplateService_CreateValidation(t *testing.T) {
	svc := NewTemplateService(newFakeStore(), logger.New("test"))
	ctx := context.Background()

	base := model.TaskTemplate{
		UserID:            "u1",
		Title:             "standup",
		RRule:             "FREQ=WEEKLY;BYDAY=MO",
		LocalTime:         "09:30",
		TimeZone:          "America/New_York",
		NotifyLeadMinutes: 5,
	}

	if _, err := svc.CreateTemplate(ctx, &base); err != nil {
		t.Fatalf("valid template rejected: %v", err)
	}

	bad := base
	bad.RRule = "FREQ=SOMETIMES"
	if _, err := svc.CreateTemplate(ctx, &bad); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("bad rrule: got %v", err)
	}

	bad = base
	bad.TimeZone = "Moon/Tranquility"
	if _, err := svc.CreateTemplate(ctx, &bad); !errors.Is(err, schedule.ErrInvalidTimeZone) {
		t.Fatalf("bad zone: got %v", err)
	}

	bad = base
	bad.LocalTime = "9:30am"
	if _, err := svc.CreateTemplate(ctx, &bad); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("bad time: got %v", err)
	}
}

func TestTemplateService_Materialize(t *testing.T) {
	fs := newFakeStore()
	svc := NewTemplateService(fs, logger.New("test"))
	ctx := context.Background()

	tpl, err := svc.CreateTemplate(ctx, &model.TaskTemplate{
		UserID:            "u1",
		Title:             "standup",
		RRule:             "FREQ=WEEKLY;BYDAY=MO,WE",
		LocalTime:         "09:30",
		TimeZone:          "America/New_York",
		DurationMinutes:   15,
		NotifyLeadMinutes: 5,
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	// Mon Jun 2, Wed Jun 4, Mon Jun 9, Wed Jun 11.
	res, err := svc.Materialize(ctx, "u1", tpl.TemplateID, "2025-06-01", "2025-06-12")
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(res.Created) != 4 || res.Skipped != 0 {
		t.Fatalf("created=%d skipped=%d", len(res.Created), res.Skipped)
	}

	first := res.Created[0]
	if first.OccurrenceDate == nil || *first.OccurrenceDate != "2025-06-02" {
		t.Fatalf("first occurrence: %+v", first.OccurrenceDate)
	}
	// 09:30 EDT = 13:30Z.
	want := time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)
	if first.Schedule.InstantUTC == nil || !first.Schedule.InstantUTC.Equal(want) {
		t.Fatalf("instant: %v want %v", first.Schedule.InstantUTC, want)
	}
	if first.Schedule.LocalTime != "09:30" || first.Schedule.TimeZone != "America/New_York" {
		t.Fatalf("inherited schedule wrong: %+v", first.Schedule)
	}

	// Re-running the same window creates nothing new.
	res, err = svc.Materialize(ctx, "u1", tpl.TemplateID, "2025-06-01", "2025-06-12")
	if err != nil {
		t.Fatalf("Materialize rerun: %v", err)
	}
	if len(res.Created) != 0 || res.Skipped != 4 {
		t.Fatalf("rerun created=%d skipped=%d", len(res.Created), res.Skipped)
	}
}

func TestTemplateService_MaterializeUnknownTemplate(t *testing.T) {
	svc := NewTemplateService(newFakeStore(), logger.New("test"))
	if _, err := svc.Materialize(context.Background(), "u1", "tpl-missing", "2025-06-01", "2025-06-12"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
