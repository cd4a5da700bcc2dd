package api

import (
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/gorilla/mux"

	"github.com/planwheel/planwheel/internal/api/respond"
	"github.com/planwheel/planwheel/internal/api/validate"
	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/services"
)

type CalendarHandler struct {
	svc *services.TaskService
}

func NewCalendarHandler(svc *services.TaskService) *CalendarHandler {
	return &CalendarHandler{svc: svc}
}

// ExportICS handles GET /api/users/{userId}/calendar.ics and serves the
// user's scheduled tasks as an iCalendar feed. Only tasks with a resolved
// instant are exported; drafts and unscheduled tasks have no place on a
// calendar grid. Instants are emitted in UTC and left to the consuming
// client to project into its display zone.
func (h *CalendarHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := model.ListTasksRequest{
		UserID:   mux.Vars(r)["userId"],
		DateFrom: q.Get("from"),
		DateTo:   q.Get("to"),
	}
	if err := validate.LocalDate(req.DateFrom); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.LocalDate(req.DateTo); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	tasks, err := h.svc.ListTasks(r.Context(), req)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//planwheel//task-service//EN")

	now := time.Now().UTC()
	for _, t := range tasks {
		if !t.Schedule.IsScheduled() {
			continue
		}
		ev := cal.AddEvent(t.TaskID + "@planwheel")
		ev.SetDtStampTime(now)
		ev.SetCreatedTime(t.CreationTime.UTC())
		ev.SetModifiedAt(t.UpdateTime.UTC())
		ev.SetSummary(t.Title)
		if t.Notes != nil {
			ev.SetDescription(*t.Notes)
		}
		start := t.Schedule.InstantUTC.UTC()
		ev.SetStartAt(start)
		dur := t.Schedule.DurationMinutes
		if dur <= 0 {
			ev.SetEndAt(start)
		} else {
			ev.SetEndAt(start.Add(time.Duration(dur) * time.Minute))
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cal.Serialize()))
}
