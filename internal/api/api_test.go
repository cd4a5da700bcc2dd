package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwheel/planwheel/internal/logger"
	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/store/sqlite"
)

// newTestServer spins up the full router over a throwaway SQLite store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Bootstrap(context.Background(), db))

	srv := httptest.NewServer(NewRouter(sqlite.NewWithDB(db), logger.New("test")))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func createTestUser(t *testing.T, base, userID string) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, base+"/api/users", map[string]interface{}{
		"userId":   userID,
		"email":    userID + "@example.com",
		"timeZone": "America/New_York",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create user: %s", body)
}

func TestAPI_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Contains(t, out, "status")
}

func TestAPI_UserLifecycle(t *testing.T) {
	srv := newTestServer(t)
	createTestUser(t, srv.URL, "alice")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/users/alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var u model.User
	require.NoError(t, json.Unmarshal(body, &u))
	assert.Equal(t, "alice", u.UserID)
	assert.Equal(t, "America/New_York", u.TimeZone)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/users/nobody", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/users/alice", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/users/alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_UserValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/users", map[string]interface{}{
		"userId":   "bob",
		"email":    "bob@example.com",
		"timeZone": "Moon/Tranquility",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_TaskCreateResolvesInstant(t *testing.T) {
	srv := newTestServer(t)
	createTestUser(t, srv.URL, "alice")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/tasks", map[string]interface{}{
		"title": "dentist",
		"schedule": map[string]interface{}{
			"timeZone":          "America/New_York",
			"localDate":         "2025-10-03",
			"localTime":         "14:30",
			"notifyLeadMinutes": 15,
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create task: %s", body)

	var task model.Task
	require.NoError(t, json.Unmarshal(body, &task))
	require.NotNil(t, task.Schedule.InstantUTC)
	// 14:30 EDT = 18:30Z
	assert.True(t, task.Schedule.InstantUTC.Equal(time.Date(2025, 10, 3, 18, 30, 0, 0, time.UTC)))
	assert.Equal(t, model.TaskStatusPending, task.Status)
}

func TestAPI_TaskCreateFromInstant(t *testing.T) {
	srv := newTestServer(t)
	createTestUser(t, srv.URL, "alice")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/tasks", map[string]interface{}{
		"title": "imported appointment",
		"schedule": map[string]interface{}{
			"instantUtc": "2025-10-03T18:30:00Z",
			"timeZone":   "America/New_York",
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create task: %s", body)

	var task model.Task
	require.NoError(t, json.Unmarshal(body, &task))
	require.NotNil(t, task.Schedule.InstantUTC)
	assert.True(t, task.Schedule.InstantUTC.Equal(time.Date(2025, 10, 3, 18, 30, 0, 0, time.UTC)))
	// 18:30Z = 14:30 EDT, cached back onto the record.
	assert.Equal(t, "2025-10-03", task.Schedule.LocalDate)
	assert.Equal(t, "14:30", task.Schedule.LocalTime)
}

func TestAPI_TaskDraftWithoutTime(t *testing.T) {
	srv := newTestServer(t)
	createTestUser(t, srv.URL, "alice")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/tasks", map[string]interface{}{
		"title": "sometime saturday",
		"schedule": map[string]interface{}{
			"localDate": "2025-10-04",
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create draft: %s", body)

	var task model.Task
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Nil(t, task.Schedule.InstantUTC)
	assert.Equal(t, "2025-10-04", task.Schedule.LocalDate)
}

func TestAPI_SchedulePatchTimeZoneChange(t *testing.T) {
	srv := newTestServer(t)
	createTestUser(t, srv.URL, "alice")

	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/tasks", map[string]interface{}{
		"title": "flight",
		"schedule": map[string]interface{}{
			"timeZone":  "America/New_York",
			"localDate": "2025-10-03",
			"localTime": "14:30",
		},
	})
	var task model.Task
	require.NoError(t, json.Unmarshal(body, &task))

	url := fmt.Sprintf("%s/api/users/alice/tasks/%s/schedule", srv.URL, task.TaskID)
	resp, body := doJSON(t, http.MethodPatch, url, map[string]interface{}{
		"timeZone": "Europe/Berlin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "patch schedule: %s", body)

	var got model.Task
	require.NoError(t, json.Unmarshal(body, &got))
	require.NotNil(t, got.Schedule.InstantUTC)
	// Wall clock preserved, instant moved. 14:30 CEST = 12:30Z.
	assert.Equal(t, "14:30", got.Schedule.LocalTime)
	assert.True(t, got.Schedule.InstantUTC.Equal(time.Date(2025, 10, 3, 12, 30, 0, 0, time.UTC)))
}

func TestAPI_SchedulePatchRejectsUnknownZone(t *testing.T) {
	srv := newTestServer(t)
	createTestUser(t, srv.URL, "alice")

	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/tasks", map[string]interface{}{
		"title": "call",
		"schedule": map[string]interface{}{
			"timeZone":  "UTC",
			"localDate": "2025-05-01",
			"localTime": "10:00",
		},
	})
	var task model.Task
	require.NoError(t, json.Unmarshal(body, &task))

	url := fmt.Sprintf("%s/api/users/alice/tasks/%s/schedule", srv.URL, task.TaskID)
	resp, _ := doJSON(t, http.MethodPatch, url, map[string]interface{}{"timeZone": "Middle/Nowhere"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Rejected write leaves the stored record untouched.
	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/users/alice/tasks/%s", srv.URL, task.TaskID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.Task
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "UTC", got.Schedule.TimeZone)
}

func TestAPI_ListTasksByDateRange(t *testing.T) {
	srv := newTestServer(t)
	createTestUser(t, srv.URL, "alice")

	for _, d := range []string{"2025-06-01", "2025-06-15", "2025-07-01"} {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/tasks", map[string]interface{}{
			"title": "task " + d,
			"schedule": map[string]interface{}{
				"timeZone":  "UTC",
				"localDate": d,
				"localTime": "09:00",
			},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, "seed: %s", body)
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/users/alice/tasks?from=2025-06-01&to=2025-06-30", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Tasks []*model.Task `json:"tasks"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 2, out.Count)
}

func TestAPI_TemplateMaterialize(t *testing.T) {
	srv := newTestServer(t)
	createTestUser(t, srv.URL, "alice")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/templates", map[string]interface{}{
		"title":             "standup",
		"rrule":             "FREQ=WEEKLY;BYDAY=MO,WE",
		"localTime":         "09:30",
		"timeZone":          "America/New_York",
		"durationMinutes":   15,
		"notifyLeadMinutes": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create template: %s", body)
	var tpl model.TaskTemplate
	require.NoError(t, json.Unmarshal(body, &tpl))

	url := fmt.Sprintf("%s/api/users/alice/templates/%s/materialize?from=2025-06-01&to=2025-06-12", srv.URL, tpl.TemplateID)
	resp, body = doJSON(t, http.MethodPost, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "materialize: %s", body)

	var res struct {
		Created []*model.Task `json:"created"`
		Skipped int           `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	// Mon Jun 2, Wed Jun 4, Mon Jun 9, Wed Jun 11.
	assert.Len(t, res.Created, 4)

	// Re-running the same window is idempotent.
	resp, body = doJSON(t, http.MethodPost, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Len(t, res.Created, 0)
	assert.Equal(t, 4, res.Skipped)
}

func TestAPI_TemplateMaterializeRequiresWindow(t *testing.T) {
	srv := newTestServer(t)
	createTestUser(t, srv.URL, "alice")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/templates/whatever/materialize", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_CalendarExport(t *testing.T) {
	srv := newTestServer(t)
	createTestUser(t, srv.URL, "alice")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/tasks", map[string]interface{}{
		"title": "dentist",
		"schedule": map[string]interface{}{
			"timeZone":        "America/New_York",
			"localDate":       "2025-10-03",
			"localTime":       "14:30",
			"durationMinutes": 45,
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "seed: %s", body)

	// A draft without a resolved instant stays off the calendar.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/tasks", map[string]interface{}{
		"title":    "someday",
		"schedule": map[string]interface{}{"localDate": "2025-10-04"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/users/alice/calendar.ics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")

	ics := string(body)
	assert.True(t, strings.Contains(ics, "BEGIN:VCALENDAR"))
	assert.True(t, strings.Contains(ics, "SUMMARY:dentist"))
	// 14:30 EDT = 18:30Z
	assert.True(t, strings.Contains(ics, "DTSTART:20251003T183000Z"))
	assert.False(t, strings.Contains(ics, "SUMMARY:someday"))
}
