package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/store"
)

// fakeStore is an in-memory store.Store used across service tests.
type fakeStore struct {
	users     map[string]*model.User
	tasks     map[string]*model.Task
	templates map[string]*model.TaskTemplate
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[string]*model.User{},
		tasks:     map[string]*model.Task{},
		templates: map[string]*model.TaskTemplate{},
	}
}

func (f *fakeStore) Users() store.Users         { return &fakeUsers{f} }
func (f *fakeStore) Tasks() store.Tasks         { return &fakeTasks{f} }
func (f *fakeStore) Templates() store.Templates { return &fakeTemplates{f} }

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%04d", prefix, f.nextID)
}

type fakeUsers struct{ p *fakeStore }

func (u *fakeUsers) Create(_ context.Context, m *model.User) (*model.User, error) {
	if _, ok := u.p.users[m.UserID]; ok {
		return nil, model.ErrConflict
	}
	cp := *m
	cp.CreationTime = time.Now().UTC()
	u.p.users[m.UserID] = &cp
	return &cp, nil
}

func (u *fakeUsers) Get(_ context.Context, userID string) (*model.User, error) {
	m, ok := u.p.users[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return m, nil
}

func (u *fakeUsers) Delete(_ context.Context, userID string) error {
	if _, ok := u.p.users[userID]; !ok {
		return model.ErrNotFound
	}
	delete(u.p.users, userID)
	return nil
}

type fakeTasks struct{ p *fakeStore }

func (r *fakeTasks) Create(_ context.Context, t *model.Task) (*model.Task, error) {
	cp := *t
	if cp.TaskID == "" {
		cp.TaskID = r.p.id("task")
	}
	if cp.Status == "" {
		cp.Status = model.TaskStatusPending
	}
	if cp.TemplateID != nil && cp.OccurrenceDate != nil {
		for _, other := range r.p.tasks {
			if other.TemplateID != nil && *other.TemplateID == *cp.TemplateID &&
				other.OccurrenceDate != nil && *other.OccurrenceDate == *cp.OccurrenceDate {
				return nil, model.ErrConflict
			}
		}
	}
	now := time.Now().UTC()
	cp.CreationTime, cp.UpdateTime = now, now
	r.p.tasks[cp.TaskID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeTasks) Get(_ context.Context, userID, taskID string) (*model.Task, error) {
	t, ok := r.p.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, model.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTasks) List(_ context.Context, req model.ListTasksRequest) ([]*model.Task, error) {
	var res []*model.Task
	for _, t := range r.p.tasks {
		if t.UserID != req.UserID {
			continue
		}
		if req.Status != "" && t.Status != req.Status {
			continue
		}
		if req.DateFrom != "" && t.Schedule.LocalDate < req.DateFrom {
			continue
		}
		if req.DateTo != "" && (t.Schedule.LocalDate == "" || t.Schedule.LocalDate > req.DateTo) {
			continue
		}
		cp := *t
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].TaskID < res[j].TaskID })
	return res, nil
}

func (r *fakeTasks) Update(_ context.Context, t *model.Task) (*model.Task, error) {
	old, ok := r.p.tasks[t.TaskID]
	if !ok || old.UserID != t.UserID {
		return nil, model.ErrNotFound
	}
	cp := *t
	cp.UpdateTime = time.Now().UTC()
	r.p.tasks[t.TaskID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeTasks) Delete(_ context.Context, userID, taskID string) error {
	t, ok := r.p.tasks[taskID]
	if !ok || t.UserID != userID {
		return model.ErrNotFound
	}
	delete(r.p.tasks, taskID)
	return nil
}

func (r *fakeTasks) ListDueBetween(_ context.Context, fromUTC, toUTC time.Time) ([]*model.Task, error) {
	var res []*model.Task
	for _, t := range r.p.tasks {
		m := t.Schedule
		if m.InstantUTC == nil || m.NotifyLeadMinutes < 0 {
			continue
		}
		at := m.InstantUTC.Add(-time.Duration(m.NotifyLeadMinutes) * time.Minute).Truncate(time.Minute)
		if !at.Before(fromUTC) && at.Before(toUTC) {
			cp := *t
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].TaskID < res[j].TaskID })
	return res, nil
}

func (r *fakeTasks) ListUnresolved(_ context.Context, afterTaskID string, limit int) ([]*model.Task, error) {
	var res []*model.Task
	for _, t := range r.p.tasks {
		m := t.Schedule
		if m.InstantUTC == nil && m.LocalDate != "" && m.LocalTime != "" && t.TaskID > afterTaskID {
			cp := *t
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].TaskID < res[j].TaskID })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (r *fakeTasks) UpdateSchedules(_ context.Context, ts []*model.Task) error {
	for _, t := range ts {
		old, ok := r.p.tasks[t.TaskID]
		if !ok {
			return model.ErrNotFound
		}
		old.Schedule = t.Schedule
		old.UpdateTime = time.Now().UTC()
	}
	return nil
}

type fakeTemplates struct{ p *fakeStore }

func (r *fakeTemplates) Create(_ context.Context, t *model.TaskTemplate) (*model.TaskTemplate, error) {
	cp := *t
	if cp.TemplateID == "" {
		cp.TemplateID = r.p.id("tpl")
	}
	cp.CreationTime = time.Now().UTC()
	r.p.templates[cp.TemplateID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeTemplates) Get(_ context.Context, userID, templateID string) (*model.TaskTemplate, error) {
	t, ok := r.p.templates[templateID]
	if !ok || t.UserID != userID {
		return nil, model.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTemplates) List(_ context.Context, userID string) ([]*model.TaskTemplate, error) {
	var res []*model.TaskTemplate
	for _, t := range r.p.templates {
		if t.UserID == userID {
			cp := *t
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (r *fakeTemplates) Delete(_ context.Context, userID, templateID string) error {
	t, ok := r.p.templates[templateID]
	if !ok || t.UserID != userID {
		return model.ErrNotFound
	}
	delete(r.p.templates, templateID)
	return nil
}
