package calendar_event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	StoreEvent(ctx context.Context, event Event) (int, error)
	GetEvent(ctx context.Context, eventId int) (Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, eventId int) error
	GetAllEvents(ctx context.Context) ([]Event, error)
	// GetCandidateEvents returns every event that may be visible to a non-admin user:
	// public ones, ones they created or attend, and ones tied to the given courses.
	GetCandidateEvents(ctx context.Context, userId int, courseIds []int) ([]Event, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const eventColumns = `id, title, description, location, meeting_link, start_time, end_time, all_day,
				recurrence_rule, event_type, visibility, course_id, attendee_ids, reminder_minutes,
				creator_id, creator_role`

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	var description, location, meetingLink, recurrenceRule sql.NullString
	var courseId, reminderMinutes sql.NullInt32
	var attendeeIds []int32
	err := row.Scan(
		&e.Id,
		&e.Title,
		&description,
		&location,
		&meetingLink,
		&e.StartTime,
		&e.EndTime,
		&e.AllDay,
		&recurrenceRule,
		&e.EventType,
		&e.Visibility,
		&courseId,
		&attendeeIds,
		&reminderMinutes,
		&e.CreatorId,
		&e.CreatorRole,
	)
	if err != nil {
		return Event{}, err
	}
	e.Description = description.String
	e.Location = location.String
	e.MeetingLink = meetingLink.String
	e.RecurrenceRule = recurrenceRule.String
	if courseId.Valid {
		id := int(courseId.Int32)
		e.CourseId = &id
	}
	if reminderMinutes.Valid {
		minutes := int(reminderMinutes.Int32)
		e.ReminderMinutes = &minutes
	}
	e.AttendeeIds = make([]int, 0, len(attendeeIds))
	for _, id := range attendeeIds {
		e.AttendeeIds = append(e.AttendeeIds, int(id))
	}
	return e, nil
}

func attendeesParam(ids []int) []int32 {
	result := make([]int32, 0, len(ids))
	for _, id := range ids {
		result = append(result, int32(id))
	}
	return result
}

func (r *RepositoryImpl) StoreEvent(ctx context.Context, event Event) (int, error) {
	query := `INSERT INTO calendar_event (
                    title,
                    description,
                    location,
                    meeting_link,
                    start_time,
                    end_time,
                    all_day,
                    recurrence_rule,
                    event_type,
                    visibility,
                    course_id,
                    attendee_ids,
                    reminder_minutes,
                    creator_id,
                    creator_role
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`

	var id int
	err := r.db.QueryRow(ctx, query,
		event.Title,
		nullString(event.Description),
		nullString(event.Location),
		nullString(event.MeetingLink),
		event.StartTime.UTC(),
		event.EndTime.UTC(),
		event.AllDay,
		nullString(event.RecurrenceRule),
		event.EventType,
		event.Visibility,
		event.CourseId,
		attendeesParam(event.AttendeeIds),
		event.ReminderMinutes,
		event.CreatorId,
		event.CreatorRole,
	).Scan(&id)
	if err != nil {
		err := fmt.Errorf("could not store calendar event: %w", err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, eventId int) (Event, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_event WHERE id = $1`
	event, err := scanEvent(r.db.QueryRow(ctx, query, eventId))
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get calendar event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	return event, nil
}

func (r *RepositoryImpl) UpdateEvent(ctx context.Context, event Event) error {
	query := `UPDATE calendar_event SET
                    title = $1,
                    description = $2,
                    location = $3,
                    meeting_link = $4,
                    start_time = $5,
                    end_time = $6,
                    all_day = $7,
                    recurrence_rule = $8,
                    event_type = $9,
                    visibility = $10,
                    course_id = $11,
                    attendee_ids = $12,
                    reminder_minutes = $13,
                    updated_at = now()
				WHERE id = $14`
	result, err := r.db.Exec(ctx, query,
		event.Title,
		nullString(event.Description),
		nullString(event.Location),
		nullString(event.MeetingLink),
		event.StartTime.UTC(),
		event.EndTime.UTC(),
		event.AllDay,
		nullString(event.RecurrenceRule),
		event.EventType,
		event.Visibility,
		event.CourseId,
		attendeesParam(event.AttendeeIds),
		event.ReminderMinutes,
		event.Id,
	)
	if err != nil {
		err := fmt.Errorf("could not update calendar event: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *RepositoryImpl) DeleteEvent(ctx context.Context, eventId int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM calendar_event WHERE id = $1`, eventId)
	if err != nil {
		err := fmt.Errorf("could not delete calendar event: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *RepositoryImpl) GetAllEvents(ctx context.Context) ([]Event, error) {
	return r.queryEvents(ctx, `SELECT `+eventColumns+` FROM calendar_event ORDER BY start_time, id`)
}

func (r *RepositoryImpl) GetCandidateEvents(ctx context.Context, userId int, courseIds []int) ([]Event, error) {
	query := `SELECT ` + eventColumns + `
			  FROM calendar_event
			  WHERE visibility = 'PUBLIC'
			     OR creator_id = $1
			     OR $1 = ANY(attendee_ids)
			     OR course_id = ANY($2)
			  ORDER BY start_time, id`
	if courseIds == nil {
		courseIds = []int{}
	}
	return r.queryEvents(ctx, query, int32(userId), courseIds)
}

func (r *RepositoryImpl) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 10)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return events, nil
}
