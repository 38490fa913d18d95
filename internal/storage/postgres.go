package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bagiro44/baby-tracker/internal"
)

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(dsn string, logger internal.Logger) (*PostgresStorage, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

func (p *PostgresStorage) Close() { p.pool.Close() }

// Advisory lock classes for the per-subject write paths. The lock is
// transaction-scoped, so the check and the insert commit as one unit
// even with concurrent writers.
const reminderLockClass int32 = 3

func lockClass(startType internal.EventType) int32 {
	if startType == internal.EventBreastStart {
		return 2
	}
	return 1
}

const eventColumns = `id, subject_id, event_type, timestamp, actor, amount, duration, notes, created_at`

func scanEvent(row pgx.Row) (*internal.Event, error) {
	var ev internal.Event
	err := row.Scan(&ev.ID, &ev.SubjectID, &ev.Type, &ev.Timestamp, &ev.Actor,
		&ev.Amount, &ev.Duration, &ev.Notes, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// --- EventRepository ---

func (p *PostgresStorage) Append(ctx context.Context, ev *internal.Event) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO events (subject_id, event_type, timestamp, actor, amount, duration, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		ev.SubjectID, ev.Type, ev.Timestamp, ev.Actor, ev.Amount, ev.Duration, ev.Notes,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert event: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) LastOfType(ctx context.Context, subjectID int64, typ internal.EventType) (*internal.Event, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE subject_id = $1 AND event_type = $2
		 ORDER BY timestamp DESC, id DESC LIMIT 1`, subjectID, typ)
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		p.logger.Errorf("failed to query last event: %v", err)
		return nil, err
	}
	return ev, nil
}

const openIntervalQuery = `
	SELECT ` + eventColumns + ` FROM events s
	WHERE s.subject_id = $1 AND s.event_type = $2
	AND NOT EXISTS (
		SELECT 1 FROM events e
		WHERE e.subject_id = s.subject_id
		AND e.event_type = $3
		AND (e.timestamp > s.timestamp
			OR (e.timestamp = s.timestamp AND e.id > s.id))
	)
	ORDER BY s.timestamp DESC, s.id DESC LIMIT 1`

func (p *PostgresStorage) OpenInterval(ctx context.Context, subjectID int64, startType, endType internal.EventType) (*internal.Event, error) {
	row := p.pool.QueryRow(ctx, openIntervalQuery, subjectID, startType, endType)
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		p.logger.Errorf("failed to query open interval: %v", err)
		return nil, err
	}
	return ev, nil
}

func (p *PostgresStorage) EventsInWindow(ctx context.Context, subjectID int64, since time.Time) ([]internal.Event, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE subject_id = $1 AND timestamp >= $2
		 ORDER BY timestamp DESC, id DESC`, subjectID, since)
	if err != nil {
		p.logger.Errorf("failed to query events window: %v", err)
		return nil, err
	}
	defer rows.Close()

	var events []internal.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			p.logger.Errorf("failed to scan event: %v", err)
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func (p *PostgresStorage) AppendStart(ctx context.Context, ev *internal.Event, endType internal.EventType) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		p.logger.Errorf("failed to begin tx: %v", err)
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, int32(ev.SubjectID), lockClass(ev.Type)); err != nil {
		p.logger.Errorf("failed to take advisory lock: %v", err)
		return err
	}

	row := tx.QueryRow(ctx, openIntervalQuery, ev.SubjectID, ev.Type, endType)
	if _, err := scanEvent(row); err == nil {
		return internal.ErrSessionAlreadyOpen
	} else if !errors.Is(err, pgx.ErrNoRows) {
		p.logger.Errorf("failed to check open interval: %v", err)
		return err
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO events (subject_id, event_type, timestamp, actor, amount, duration, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		ev.SubjectID, ev.Type, ev.Timestamp, ev.Actor, ev.Amount, ev.Duration, ev.Notes,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert start event: %v", err)
		return err
	}
	return tx.Commit(ctx)
}

func (p *PostgresStorage) CloseInterval(ctx context.Context, subjectID int64, startType, endType internal.EventType, end *internal.Event) (*internal.Event, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		p.logger.Errorf("failed to begin tx: %v", err)
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, int32(subjectID), lockClass(startType)); err != nil {
		p.logger.Errorf("failed to take advisory lock: %v", err)
		return nil, err
	}

	row := tx.QueryRow(ctx, openIntervalQuery, subjectID, startType, endType)
	start, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, internal.ErrNoOpenSession
	}
	if err != nil {
		p.logger.Errorf("failed to find open interval: %v", err)
		return nil, err
	}

	if end.Timestamp.Before(start.Timestamp) {
		return nil, internal.ErrInvalidInput
	}
	minutes := internal.DurationMinutes(start.Timestamp, end.Timestamp)
	end.Duration = &minutes

	err = tx.QueryRow(ctx,
		`INSERT INTO events (subject_id, event_type, timestamp, actor, amount, duration, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		end.SubjectID, end.Type, end.Timestamp, end.Actor, end.Amount, end.Duration, end.Notes,
	).Scan(&end.ID, &end.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert end event: %v", err)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return start, nil
}

// --- ReminderRepository ---

func (p *PostgresStorage) Replace(ctx context.Context, subjectID int64, reminders []*internal.Reminder) error {
	kinds := make([]string, 0, len(reminders))
	for _, r := range reminders {
		kinds = append(kinds, string(r.Kind))
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		p.logger.Errorf("failed to begin tx: %v", err)
		return err
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent reschedules per subject; without the lock
	// two committed transactions can each leave their own pair.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, int32(subjectID), reminderLockClass); err != nil {
		p.logger.Errorf("failed to take advisory lock: %v", err)
		return err
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM reminders WHERE subject_id = $1 AND sent = FALSE AND reminder_type = ANY($2)`,
		subjectID, kinds)
	if err != nil {
		p.logger.Errorf("failed to delete superseded reminders: %v", err)
		return err
	}

	for _, r := range reminders {
		err = tx.QueryRow(ctx,
			`INSERT INTO reminders (subject_id, reminder_type, scheduled_time)
			 VALUES ($1, $2, $3) RETURNING id, created_at`,
			r.SubjectID, r.Kind, r.ScheduledAt,
		).Scan(&r.ID, &r.CreatedAt)
		if err != nil {
			p.logger.Errorf("failed to insert reminder: %v", err)
			return err
		}
	}
	return tx.Commit(ctx)
}

func (p *PostgresStorage) Due(ctx context.Context, now time.Time) ([]internal.Reminder, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, subject_id, reminder_type, scheduled_time, sent, created_at FROM reminders
		 WHERE scheduled_time <= $1 AND sent = FALSE
		 ORDER BY scheduled_time ASC`, now)
	if err != nil {
		p.logger.Errorf("failed to query due reminders: %v", err)
		return nil, err
	}
	defer rows.Close()

	var due []internal.Reminder
	for rows.Next() {
		var r internal.Reminder
		if err := rows.Scan(&r.ID, &r.SubjectID, &r.Kind, &r.ScheduledAt, &r.Sent, &r.CreatedAt); err != nil {
			p.logger.Errorf("failed to scan reminder: %v", err)
			return nil, err
		}
		due = append(due, r)
	}
	return due, rows.Err()
}

func (p *PostgresStorage) MarkSent(ctx context.Context, id int64) error {
	// Idempotent: a second call matches no rows and that is fine.
	_, err := p.pool.Exec(ctx, `UPDATE reminders SET sent = TRUE WHERE id = $1 AND sent = FALSE`, id)
	if err != nil {
		p.logger.Errorf("failed to mark reminder sent: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) PurgeSent(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM reminders WHERE sent = TRUE AND created_at < $1`, olderThan)
	if err != nil {
		p.logger.Errorf("failed to purge sent reminders: %v", err)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- SubjectRepository ---

func (p *PostgresStorage) CreateSubject(ctx context.Context, s *internal.Subject) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO babies (name, birth_date, gender) VALUES ($1, $2, $3) RETURNING id, created_at`,
		s.Name, s.BirthDate, s.Gender,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert subject: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) GetSubject(ctx context.Context, id int64) (*internal.Subject, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, name, birth_date, gender, created_at FROM babies WHERE id = $1`, id)
	var s internal.Subject
	err := row.Scan(&s.ID, &s.Name, &s.BirthDate, &s.Gender, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, internal.ErrNotFound
	}
	if err != nil {
		p.logger.Errorf("failed to query subject: %v", err)
		return nil, err
	}
	return &s, nil
}

func (p *PostgresStorage) ListSubjects(ctx context.Context) ([]internal.Subject, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, birth_date, gender, created_at FROM babies ORDER BY created_at ASC`)
	if err != nil {
		p.logger.Errorf("failed to list subjects: %v", err)
		return nil, err
	}
	defer rows.Close()

	var subjects []internal.Subject
	for rows.Next() {
		var s internal.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.BirthDate, &s.Gender, &s.CreatedAt); err != nil {
			p.logger.Errorf("failed to scan subject: %v", err)
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (p *PostgresStorage) UpdateGender(ctx context.Context, id int64, gender internal.Gender) error {
	tag, err := p.pool.Exec(ctx, `UPDATE babies SET gender = $1 WHERE id = $2`, gender, id)
	if err != nil {
		p.logger.Errorf("failed to update gender: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return internal.ErrNotFound
	}
	return nil
}

// --- StateRepository ---

func (p *PostgresStorage) SetState(ctx context.Context, st *internal.UserState) error {
	data, err := json.Marshal(st.Data)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO user_states (user_id, state, data)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id)
		 DO UPDATE SET state = EXCLUDED.state, data = EXCLUDED.data, updated_at = CURRENT_TIMESTAMP`,
		st.UserID, st.State, data)
	if err != nil {
		p.logger.Errorf("failed to set user state: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) GetState(ctx context.Context, userID int64) (*internal.UserState, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT user_id, state, data, updated_at FROM user_states WHERE user_id = $1`, userID)
	var (
		st  internal.UserState
		raw []byte
	)
	err := row.Scan(&st.UserID, &st.State, &raw, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		p.logger.Errorf("failed to query user state: %v", err)
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &st.Data); err != nil {
			st.Data = map[string]string{}
		}
	}
	return &st, nil
}

func (p *PostgresStorage) ClearState(ctx context.Context, userID int64) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM user_states WHERE user_id = $1`, userID)
	if err != nil {
		p.logger.Errorf("failed to clear user state: %v", err)
		return err
	}
	return nil
}

// --- UserRepository ---

func (p *PostgresStorage) GetUserByToken(ctx context.Context, token string) (*internal.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, token, name FROM users WHERE token = $1`, token)
	var u internal.User
	err := row.Scan(&u.ID, &u.Token, &u.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, internal.ErrNotFound
	}
	if err != nil {
		p.logger.Errorf("failed to query user by token: %v", err)
		return nil, err
	}
	return &u, nil
}

// --- Compile-time assertions ---
var _ EventRepository = (*PostgresStorage)(nil)
var _ ReminderRepository = (*PostgresStorage)(nil)
var _ SubjectRepository = (*PostgresStorage)(nil)
var _ StateRepository = (*PostgresStorage)(nil)
var _ UserRepository = (*PostgresStorage)(nil)
