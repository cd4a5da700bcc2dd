package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
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
    creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS task_templates (
    template_id         TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    title               TEXT NOT NULL,
    rrule               TEXT NOT NULL,
    local_time          TEXT NOT NULL,
    time_zone           TEXT NOT NULL,
    duration_minutes    INT NOT NULL DEFAULT 0,
    notify_lead_minutes INT NOT NULL DEFAULT -1,
    creation_time       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tasks (
    task_id             TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    title               TEXT NOT NULL,
    notes               TEXT,
    status              TEXT NOT NULL DEFAULT 'PENDING',
    template_id         TEXT REFERENCES task_templates(template_id) ON DELETE SET NULL,
    occurrence_date     TEXT,
    instant_utc         TIMESTAMPTZ,
    notify_at_utc       TIMESTAMPTZ,
    time_zone           TEXT NOT NULL DEFAULT '',
    local_date          TEXT NOT NULL DEFAULT '',
    local_time          TEXT NOT NULL DEFAULT '',
    duration_minutes    INT NOT NULL DEFAULT 0,
    notify_lead_minutes INT NOT NULL DEFAULT -1,
    creation_time       TIMESTAMPTZ NOT NULL DEFAULT now(),
    update_time         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_template_occurrence
    ON tasks(template_id, occurrence_date) WHERE template_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_tasks_user_local_date ON tasks(user_id, local_date);
CREATE INDEX IF NOT EXISTS idx_tasks_notify_at ON tasks(notify_at_utc) WHERE notify_at_utc IS NOT NULL;
`

// EnsureSchema creates tables and indexes when missing; safe to call repeatedly.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users         { return &users{db: s.db} }
func (s *pgStore) Tasks() store.Tasks         { return &tasks{db: s.db} }
func (s *pgStore) Templates() store.Templates { return &templates{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func mapNoRows(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, model.ErrNotFound)
	}
	return err
}

func notifyAt(m model.ScheduledMoment) *time.Time {
	if m.InstantUTC == nil || m.NotifyLeadMinutes < 0 {
		return nil
	}
	t := m.InstantUTC.Add(-time.Duration(m.NotifyLeadMinutes) * time.Minute).Truncate(time.Minute)
	return &t
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	var created time.Time
	row := u.db.QueryRowContext(ctx, `
        INSERT INTO users (user_id, email, display_name, time_zone, status)
        VALUES ($1,$2,$3,$4,'ACTIVE')
        RETURNING creation_time
    `, m.UserID, m.Email, m.DisplayName, m.TimeZone)
	if err := row.Scan(&created); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", m.UserID, model.ErrConflict)
		}
		return nil, err
	}
	out := *m
	out.Status = "ACTIVE"
	out.CreationTime = created
	return &out, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, email, display_name, time_zone, status, creation_time
        FROM users WHERE user_id=$1
    `, userID)
	if err := row.Scan(&out.UserID, &out.Email, &out.DisplayName, &out.TimeZone, &out.Status, &out.CreationTime); err != nil {
		return nil, mapNoRows(err, "user", userID)
	}
	return &out, nil
}

func (u *users) Delete(ctx context.Context, userID string) error {
	res, err := u.db.ExecContext(ctx, `DELETE FROM users WHERE user_id=$1`, userID)
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
	var instant *time.Time
	if err := scan(&t.TaskID, &t.UserID, &t.Title, &t.Notes, &t.Status, &t.TemplateID, &t.OccurrenceDate,
		&instant, &t.Schedule.TimeZone, &t.Schedule.LocalDate, &t.Schedule.LocalTime,
		&t.Schedule.DurationMinutes, &t.Schedule.NotifyLeadMinutes, &t.CreationTime, &t.UpdateTime); err != nil {
		return nil, err
	}
	if instant != nil {
		utc := instant.UTC()
		t.Schedule.InstantUTC = &utc
	}
	return &t, nil
}

func (r *tasks) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	out := *t
	if out.TaskID == "" {
		out.TaskID = uuid.New().String()
	}
	if out.Status == "" {
		out.Status = model.TaskStatusPending
	}
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO tasks (task_id, user_id, title, notes, status, template_id, occurrence_date,
                           instant_utc, notify_at_utc, time_zone, local_date, local_time,
                           duration_minutes, notify_lead_minutes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING creation_time, update_time
    `, out.TaskID, out.UserID, out.Title, out.Notes, out.Status, out.TemplateID, out.OccurrenceDate,
		out.Schedule.InstantUTC, notifyAt(out.Schedule),
		out.Schedule.TimeZone, out.Schedule.LocalDate, out.Schedule.LocalTime,
		out.Schedule.DurationMinutes, out.Schedule.NotifyLeadMinutes)
	if err := row.Scan(&out.CreationTime, &out.UpdateTime); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("task %s: %w", out.TaskID, model.ErrConflict)
		}
		return nil, err
	}
	return &out, nil
}

func (r *tasks) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+taskColumns+` FROM tasks WHERE user_id=$1 AND task_id=$2
    `, userID, taskID)
	t, err := scanTask(row.Scan)
	if err != nil {
		return nil, mapNoRows(err, "task", taskID)
	}
	return t, nil
}

func (r *tasks) List(ctx context.Context, req model.ListTasksRequest) ([]*model.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id=$1`
	args := []any{req.UserID}
	n := 1
	add := func(clause string, v any) {
		n++
		q += fmt.Sprintf(clause, n)
		args = append(args, v)
	}
	if req.Status != "" {
		add(` AND status=$%d`, req.Status)
	}
	if req.DateFrom != "" {
		add(` AND local_date>=$%d`, req.DateFrom)
	}
	if req.DateTo != "" {
		add(` AND local_date<>'' AND local_date<=$%d`, req.DateTo)
	}
	if req.AfterTask != "" {
		add(` AND task_id>$%d`, req.AfterTask)
	}
	q += ` ORDER BY task_id ASC`
	if req.Limit > 0 {
		add(` LIMIT $%d`, req.Limit)
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
	row := r.db.QueryRowContext(ctx, `
        UPDATE tasks SET title=$1, notes=$2, status=$3,
               instant_utc=$4, notify_at_utc=$5, time_zone=$6, local_date=$7, local_time=$8,
               duration_minutes=$9, notify_lead_minutes=$10, update_time=now()
        WHERE user_id=$11 AND task_id=$12
        RETURNING update_time
    `, out.Title, out.Notes, out.Status,
		out.Schedule.InstantUTC, notifyAt(out.Schedule),
		out.Schedule.TimeZone, out.Schedule.LocalDate, out.Schedule.LocalTime,
		out.Schedule.DurationMinutes, out.Schedule.NotifyLeadMinutes,
		out.UserID, out.TaskID)
	if err := row.Scan(&out.UpdateTime); err != nil {
		return nil, mapNoRows(err, "task", out.TaskID)
	}
	return &out, nil
}

func (r *tasks) Delete(ctx context.Context, userID, taskID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id=$1 AND task_id=$2`, userID, taskID)
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
        WHERE notify_at_utc IS NOT NULL AND notify_at_utc>=$1 AND notify_at_utc<$2
        ORDER BY notify_at_utc ASC
    `, fromUTC.Truncate(time.Minute), toUTC.Truncate(time.Minute))
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
        WHERE instant_utc IS NULL AND local_date<>'' AND local_time<>'' AND task_id>$1
        ORDER BY task_id ASC LIMIT $2
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
        UPDATE tasks SET instant_utc=$1, notify_at_utc=$2, time_zone=$3, local_date=$4, local_time=$5, update_time=now()
        WHERE user_id=$6 AND task_id=$7
    `)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range ts {
		if _, err := stmt.ExecContext(ctx,
			t.Schedule.InstantUTC, notifyAt(t.Schedule),
			t.Schedule.TimeZone, t.Schedule.LocalDate, t.Schedule.LocalTime,
			t.UserID, t.TaskID); err != nil {
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
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO task_templates (template_id, user_id, title, rrule, local_time, time_zone,
                                    duration_minutes, notify_lead_minutes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING creation_time
    `, out.TemplateID, out.UserID, out.Title, out.RRule, out.LocalTime, out.TimeZone,
		out.DurationMinutes, out.NotifyLeadMinutes)
	if err := row.Scan(&out.CreationTime); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("template %s: %w", out.TemplateID, model.ErrConflict)
		}
		return nil, err
	}
	return &out, nil
}

func (r *templates) Get(ctx context.Context, userID, templateID string) (*model.TaskTemplate, error) {
	var out model.TaskTemplate
	row := r.db.QueryRowContext(ctx, `
        SELECT template_id, user_id, title, rrule, local_time, time_zone,
               duration_minutes, notify_lead_minutes, creation_time
        FROM task_templates WHERE user_id=$1 AND template_id=$2
    `, userID, templateID)
	if err := row.Scan(&out.TemplateID, &out.UserID, &out.Title, &out.RRule, &out.LocalTime,
		&out.TimeZone, &out.DurationMinutes, &out.NotifyLeadMinutes, &out.CreationTime); err != nil {
		return nil, mapNoRows(err, "template", templateID)
	}
	return &out, nil
}

func (r *templates) List(ctx context.Context, userID string) ([]*model.TaskTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT template_id, user_id, title, rrule, local_time, time_zone,
               duration_minutes, notify_lead_minutes, creation_time
        FROM task_templates WHERE user_id=$1 ORDER BY creation_time DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.TaskTemplate
	for rows.Next() {
		var out model.TaskTemplate
		if err := rows.Scan(&out.TemplateID, &out.UserID, &out.Title, &out.RRule, &out.LocalTime,
			&out.TimeZone, &out.DurationMinutes, &out.NotifyLeadMinutes, &out.CreationTime); err != nil {
			return nil, err
		}
		res = append(res, &out)
	}
	return res, rows.Err()
}

func (r *templates) Delete(ctx context.Context, userID, templateID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM task_templates WHERE user_id=$1 AND template_id=$2`, userID, templateID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("template %s: %w", templateID, model.ErrNotFound)
	}
	return nil
}
