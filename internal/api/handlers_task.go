package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/planwheel/planwheel/internal/api/respond"
	"github.com/planwheel/planwheel/internal/api/validate"
	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/services"
)

type TaskHandler struct {
	svc *services.TaskService
}

func NewTaskHandler(svc *services.TaskService) *TaskHandler { return &TaskHandler{svc: svc} }

// scheduleInput is the wire form of a schedule edit. All fields optional;
// notifyLeadMinutes defaults to "never notify" when omitted on create.
type scheduleInput struct {
	InstantUTC        *time.Time `json:"instantUtc,omitempty"`
	TimeZone          *string    `json:"timeZone,omitempty"`
	LocalDate         *string    `json:"localDate,omitempty"`
	LocalTime         *string    `json:"localTime,omitempty"`
	DurationMinutes   *int       `json:"durationMinutes,omitempty"`
	NotifyLeadMinutes *int       `json:"notifyLeadMinutes,omitempty"`
	Clear             bool       `json:"clear,omitempty"`
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var in struct {
		Title    string         `json:"title"`
		Notes    *string        `json:"notes,omitempty"`
		Schedule *scheduleInput `json:"schedule,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}

	m := model.ScheduledMoment{NotifyLeadMinutes: model.NoNotification}
	if s := in.Schedule; s != nil {
		if s.InstantUTC != nil {
			inst := s.InstantUTC.UTC()
			m.InstantUTC = &inst
		}
		if s.TimeZone != nil {
			m.TimeZone = *s.TimeZone
		}
		if s.LocalDate != nil {
			m.LocalDate = *s.LocalDate
		}
		if s.LocalTime != nil {
			m.LocalTime = *s.LocalTime
		}
		if s.DurationMinutes != nil {
			m.DurationMinutes = *s.DurationMinutes
		}
		if s.NotifyLeadMinutes != nil {
			m.NotifyLeadMinutes = *s.NotifyLeadMinutes
		}
	}
	if err := validate.CreateTask(in.Title, in.Notes, m.LocalDate, m.LocalTime, m.TimeZone); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	t := &model.Task{UserID: userID, Title: in.Title, Notes: in.Notes, Schedule: m}
	out, err := h.svc.CreateTask(r.Context(), t)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, err := h.svc.GetTask(r.Context(), vars["userId"], vars["taskId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := model.ListTasksRequest{
		UserID:    mux.Vars(r)["userId"],
		Status:    q.Get("status"),
		DateFrom:  q.Get("from"),
		DateTo:    q.Get("to"),
		AfterTask: q.Get("after"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respond.WriteBadRequest(w, "limit must be a non-negative integer")
			return
		}
		req.Limit = n
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
	if tasks == nil {
		tasks = []*model.Task{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"count": len(tasks),
	})
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var in struct {
		Title  *string `json:"title,omitempty"`
		Notes  *string `json:"notes,omitempty"`
		Status *string `json:"status,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if in.Title != nil {
		if err := validate.Title(*in.Title); err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
	}
	if err := validate.MaxLen("notes", in.Notes, 2000); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.svc.UpdateTask(r.Context(), vars["userId"], vars["taskId"], in.Title, in.Notes, in.Status)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// UpdateSchedule handles PATCH /api/users/{userId}/tasks/{taskId}/schedule.
// The whole patch is reconciled and persisted in one write, so a client can
// never observe an instant that disagrees with the cached local fields.
func (h *TaskHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var in scheduleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if in.LocalDate != nil {
		if err := validate.LocalDate(*in.LocalDate); err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
	}
	if in.LocalTime != nil {
		if err := validate.LocalTime(*in.LocalTime); err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
	}

	p := services.SchedulePatch{
		LocalDate:         in.LocalDate,
		LocalTime:         in.LocalTime,
		TimeZone:          in.TimeZone,
		InstantUTC:        in.InstantUTC,
		DurationMinutes:   in.DurationMinutes,
		NotifyLeadMinutes: in.NotifyLeadMinutes,
		Clear:             in.Clear,
	}
	out, err := h.svc.UpdateSchedule(r.Context(), vars["userId"], vars["taskId"], p)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.DeleteTask(r.Context(), vars["userId"], vars["taskId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
