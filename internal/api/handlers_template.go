package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planwheel/planwheel/internal/api/respond"
	"github.com/planwheel/planwheel/internal/api/validate"
	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/services"
)

type TemplateHandler struct {
	svc *services.TemplateService
}

func NewTemplateHandler(svc *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var in struct {
		Title             string `json:"title"`
		RRule             string `json:"rrule"`
		LocalTime         string `json:"localTime"`
		TimeZone          string `json:"timeZone"`
		DurationMinutes   int    `json:"durationMinutes"`
		NotifyLeadMinutes *int   `json:"notifyLeadMinutes,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.Title(in.Title); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	lead := model.NoNotification
	if in.NotifyLeadMinutes != nil {
		lead = *in.NotifyLeadMinutes
	}
	tpl := &model.TaskTemplate{
		UserID:            userID,
		Title:             in.Title,
		RRule:             in.RRule,
		LocalTime:         in.LocalTime,
		TimeZone:          in.TimeZone,
		DurationMinutes:   in.DurationMinutes,
		NotifyLeadMinutes: lead,
	}
	out, err := h.svc.CreateTemplate(r.Context(), tpl)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tpl, err := h.svc.GetTemplate(r.Context(), vars["userId"], vars["templateId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, tpl)
}

func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := h.svc.ListTemplates(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if tpls == nil {
		tpls = []*model.TaskTemplate{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"templates": tpls,
		"count":     len(tpls),
	})
}

// Materialize handles POST /api/users/{userId}/templates/{templateId}/materialize.
// The window comes from the from/to query params (inclusive local dates).
func (h *TemplateHandler) Materialize(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		respond.WriteBadRequest(w, "from and to query params are required")
		return
	}
	if err := validate.LocalDate(from); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.LocalDate(to); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if to < from {
		respond.WriteBadRequest(w, "to must not precede from")
		return
	}

	res, err := h.svc.Materialize(r.Context(), vars["userId"], vars["templateId"], from, to)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if res.Created == nil {
		res.Created = []*model.Task{}
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

func (h *TemplateHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.DeleteTemplate(r.Context(), vars["userId"], vars["templateId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
