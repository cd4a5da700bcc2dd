package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/store"
)

// Open opens (or creates) a SQLite database at the given path and enables WAL
// journal mode. The URI parameter ensures better concurrency for read-heavy
// workloads.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    user_id       TEXT PRIMARY KEY,
    email         TEXT NOT NULL,
    display_name  TEXT,
    time_zone     TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'ACTIVE',
    creation_time TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS task_templates (
    template_id         TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    title               TEXT NOT NULL,
    rrule               TEXT NOT NULL,
    local_time          TEXT NOT NULL,
    time_zone           TEXT NOT NULL,
    duration_minutes    INTEGER NOT NULL DEFAULT 0,
    notify_lead_minutes INTEGER NOT NULL DEFAULT -1,
    creation_time       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
    task_id             TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    title               TEXT NOT NULL,
    notes               TEXT,
    status              TEXT NOT NULL DEFAULT 'PENDING',
    template_id         TEXT REFERENCES task_templates(template_id) ON DELETE SET NULL,
    occurrence_date     TEXT,
    instant_utc         TEXT,
    notify_at_utc       TEXT,
    time_zone           TEXT NOT NULL DEFAULT '',
    local_date          TEXT NOT NULL DEFAULT '',
    local_time          TEXT NOT NULL DEFAULT '',
    duration_minutes    INTEGER NOT NULL DEFAULT 0,
    notify_lead_minutes INTEGER NOT NULL DEFAULT -1,
    creation_time       TEXT NOT NULL,
    update_time         TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_template_occurrence
    ON tasks(template_id, occurrence_date) WHERE template_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_tasks_user_local_date ON tasks(user_id, local_date);
CREATE INDEX IF NOT EXISTS idx_tasks_notify_at ON tasks(notify_at_utc) WHERE notify_at_utc IS NOT NULL;
`

// Bootstrap creates the schema when it does not exist; safe to call repeatedly.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}

// NewWithDB constructs a SQLite store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &sqStore{db: db} }

type sqStore struct{ db *sql.DB }

func (s *sqStore) Users() store.Users         { return &users{db: s.db} }
func (s *sqStore) Tasks() store.Tasks         { return &tasks{db: s.db} }
func (s *sqStore) Templates() store.Templates { return &templates{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *sqStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SQLite has no native timestamp type; all instants are stored as RFC 3339
// UTC strings. notify_at_utc is minute-truncated so string comparison and
// chronological comparison agree.
const tsLayout = time.RFC3339Nano

func fmtTime(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func fmtNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	out := *m
	if out.Status == "" {
		out.Status = "ACTIVE"
	}
	out.CreationTime = time.Now().UTC()
	_, err := u.db.ExecContext(ctx, `
        INSERT INTO users (user_id, email, display_name, time_zone, status, creation_time)
        VALUES (?,?,?,?,?,?)
    `, out.UserID, out.Email, out.DisplayName, out.TimeZone, out.Status, fmtTime(out.CreationTime))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", out.UserID, model.ErrConflict)
		}
		return nil, err
	}
	return &out, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	var created string
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, email, display_name, time_zone, status, creation_time
        FROM users WHERE user_id=?
    `, userID)
	if err := row.Scan(&out.UserID, &out.Email, &out.DisplayName, &out.TimeZone, &out.Status, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, model.ErrNotFound)
		}
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	out.CreationTime = t
	return &out, nil
}

func (u *users) Delete(ctx context.Context, userID string) error {
	res, err := u.db.ExecContext(ctx, `DELETE FROM users WHERE user_id=?`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", userID, model.ErrNotFound)
	}
	return nil
}

// --- Tasks ---

type tasks struct{ db *sql.DB }

const taskColumns = `task_id, user_id, title, notes, status, template_id, occurrence_date,
       instant_utc, time_zone, local_date, local_time, duration_minutes, notify_lead_minutes,
       creation_time, update_time`

func scanTask(scan func(dest ...any) error) (*model.Task, error) {
	var t model.Task
	var instant sql.NullString
	var createdS, updatedS string
	if err := scan(&t.TaskID, &t.UserID, &t.Title, &t.Notes, &t.Status, &t.TemplateID, &t.OccurrenceDate,
		&instant, &t.Schedule.TimeZone, &t.Schedule.LocalDate, &t.Schedule.LocalTime,
		&t.Schedule.DurationMinutes, &t.Schedule.NotifyLeadMinutes, &createdS, &updatedS); err != nil {
		return nil, err
	}
	if instant.Valid {
		ts, err := parseTime(instant.String)
		if err != nil {
			return nil, err
		}
		t.Schedule.InstantUTC = &ts
	}
	ct, err := parseTime(createdS)
	if err != nil {
		return nil, err
	}
	ut, err := parseTime(updatedS)
	if err != nil {
		return nil, err
	}
	t.CreationTime, t.UpdateTime = ct, ut
	return &t, nil
}

func notifyAtValue(m model.ScheduledMoment) any {
	if m.InstantUTC == nil || m.NotifyLeadMinutes < 0 {
		return nil
	}
	return fmtTime(m.InstantUTC.Add(-time.Duration(m.NotifyLeadMinutes) * time.Minute).Truncate(time.Minute))
}

func (r *tasks) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	out := *t
	if out.TaskID == "" {
		out.TaskID = uuid.New().String()
	}
	if out.Status == "" {
		out.Status = model.TaskStatusPending
	}
	now := time.Now().UTC()
	out.CreationTime, out.UpdateTime = now, now

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO tasks (task_id, user_id, title, notes, status, template_id, occurrence_date,
                           instant_utc, notify_at_utc, time_zone, local_date, local_time,
                           duration_minutes, notify_lead_minutes, creation_time, update_time)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
    `, out.TaskID, out.UserID, out.Title, out.Notes, out.Status, out.TemplateID, out.OccurrenceDate,
		fmtNullableTime(out.Schedule.InstantUTC), notifyAtValue(out.Schedule),
		out.Schedule.TimeZone, out.Schedule.LocalDate, out.Schedule.LocalTime,
		out.Schedule.DurationMinutes, out.Schedule.NotifyLeadMinutes,
		fmtTime(out.CreationTime), fmtTime(out.UpdateTime))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("task %s: %w", out.TaskID, model.ErrConflict)
		}
		return nil, err
	}
	return &out, nil
}

func (r *tasks) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+taskColumns+` FROM tasks WHERE user_id=? AND task_id=?
    `, userID, taskID)
	t, err := scanTask(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (r *tasks) List(ctx context.Context, req model.ListTasksRequest) ([]*model.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id=?`
	args := []any{req.UserID}
	if req.Status != "" {
		q += ` AND status=?`
		args = append(args, req.Status)
	}
	if req.DateFrom != "" {
		q += ` AND local_date>=?`
		args = append(args, req.DateFrom)
	}
	if req.DateTo != "" {
		q += ` AND local_date<=? AND local_date<>''`
		args = append(args, req.DateTo)
	}
	if req.AfterTask != "" {
		q += ` AND task_id>?`
		args = append(args, req.AfterTask)
	}
	q += ` ORDER BY task_id ASC`
	if req.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, req.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *tasks) Update(ctx context.Context, t *model.Task) (*model.Task, error) {
	out := *t
	out.UpdateTime = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
        UPDATE tasks SET title=?, notes=?, status=?,
               instant_utc=?, notify_at_utc=?, time_zone=?, local_date=?, local_time=?,
               duration_minutes=?, notify_lead_minutes=?, update_time=?
        WHERE user_id=? AND task_id=?
    `, out.Title, out.Notes, out.Status,
		fmtNullableTime(out.Schedule.InstantUTC), notifyAtValue(out.Schedule),
		out.Schedule.TimeZone, out.Schedule.LocalDate, out.Schedule.LocalTime,
		out.Schedule.DurationMinutes, out.Schedule.NotifyLeadMinutes,
		fmtTime(out.UpdateTime), out.UserID, out.TaskID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("task %s: %w", out.TaskID, model.ErrNotFound)
	}
	return &out, nil
}

func (r *tasks) Delete(ctx context.Context, userID, taskID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id=? AND task_id=?`, userID, taskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}
	return nil
}

func (r *tasks) ListDueBetween(ctx context.Context, fromUTC, toUTC time.Time) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+taskColumns+` FROM tasks
        WHERE notify_at_utc IS NOT NULL AND notify_at_utc>=? AND notify_at_utc<?
        ORDER BY notify_at_utc ASC
    `, fmtTime(fromUTC.Truncate(time.Minute)), fmtTime(toUTC.Truncate(time.Minute)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *tasks) ListUnresolved(ctx context.Context, afterTaskID string, limit int) ([]*model.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+taskColumns+` FROM tasks
        WHERE instant_utc IS NULL AND local_date<>'' AND local_time<>'' AND task_id>?
        ORDER BY task_id ASC LIMIT ?
    `, afterTaskID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *tasks) UpdateSchedules(ctx context.Context, ts []*model.Task) error {
	if len(ts) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
        UPDATE tasks SET instant_utc=?, notify_at_utc=?, time_zone=?, local_date=?, local_time=?, update_time=?
        WHERE user_id=? AND task_id=?
    `)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := fmtTime(time.Now().UTC())
	for _, t := range ts {
		if _, err := stmt.ExecContext(ctx,
			fmtNullableTime(t.Schedule.InstantUTC), notifyAtValue(t.Schedule),
			t.Schedule.TimeZone, t.Schedule.LocalDate, t.Schedule.LocalTime,
			now, t.UserID, t.TaskID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- Templates ---

type templates struct{ db *sql.DB }

func (r *templates) Create(ctx context.Context, t *model.TaskTemplate) (*model.TaskTemplate, error) {
	out := *t
	if out.TemplateID == "" {
		out.TemplateID = uuid.New().String()
	}
	out.CreationTime = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO task_templates (template_id, user_id, title, rrule, local_time, time_zone,
                                    duration_minutes, notify_lead_minutes, creation_time)
        VALUES (?,?,?,?,?,?,?,?,?)
    `, out.TemplateID, out.UserID, out.Title, out.RRule, out.LocalTime, out.TimeZone,
		out.DurationMinutes, out.NotifyLeadMinutes, fmtTime(out.CreationTime))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("template %s: %w", out.TemplateID, model.ErrConflict)
		}
		return nil, err
	}
	return &out, nil
}

func (r *templates) Get(ctx context.Context, userID, templateID string) (*model.TaskTemplate, error) {
	var out model.TaskTemplate
	var created string
	row := r.db.QueryRowContext(ctx, `
        SELECT template_id, user_id, title, rrule, local_time, time_zone,
               duration_minutes, notify_lead_minutes, creation_time
        FROM task_templates WHERE user_id=? AND template_id=?
    `, userID, templateID)
	if err := row.Scan(&out.TemplateID, &out.UserID, &out.Title, &out.RRule, &out.LocalTime,
		&out.TimeZone, &out.DurationMinutes, &out.NotifyLeadMinutes, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %s: %w", templateID, model.ErrNotFound)
		}
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	out.CreationTime = t
	return &out, nil
}

func (r *templates) List(ctx context.Context, userID string) ([]*model.TaskTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT template_id, user_id, title, rrule, local_time, time_zone,
               duration_minutes, notify_lead_minutes, creation_time
        FROM task_templates WHERE user_id=? ORDER BY creation_time DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.TaskTemplate
	for rows.Next() {
		var out model.TaskTemplate
		var created string
		if err := rows.Scan(&out.TemplateID, &out.UserID, &out.Title, &out.RRule, &out.LocalTime,
			&out.TimeZone, &out.DurationMinutes, &out.NotifyLeadMinutes, &created); err != nil {
			return nil, err
		}
		t, err := parseTime(created)
		if err != nil {
			return nil, err
		}
		out.CreationTime = t
		res = append(res, &out)
	}
	return res, rows.Err()
}

func (r *templates) Delete(ctx context.Context, userID, templateID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM task_templates WHERE user_id=? AND template_id=?`, userID, templateID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("template %s: %w", templateID, model.ErrNotFound)
	}
	return nil
}
