package calendar_sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Binding records the mirrored copy of one event in one user's external calendar.
type Binding struct {
	EventId            int
	UserId             int
	ExternalEventId    string
	ExternalCalendarId string
	SyncedAt           time.Time
}

type BindingRepository interface {
	// GetBinding returns the binding of the pair or nil when the event is not mirrored for the user.
	GetBinding(ctx context.Context, eventId, userId int) (*Binding, error)
	SaveBinding(ctx context.Context, binding Binding) error
	DeleteBinding(ctx context.Context, eventId, userId int) error
	GetEventBindings(ctx context.Context, eventId int) ([]Binding, error)
}

type BindingRepositoryImpl struct {
	db *pgxpool.Pool
}

func NewBindingRepository(db *pgxpool.Pool) *BindingRepositoryImpl {
	return &BindingRepositoryImpl{db: db}
}

func (r *BindingRepositoryImpl) GetBinding(ctx context.Context, eventId, userId int) (*Binding, error) {
	var b Binding
	err := r.db.QueryRow(ctx,
		`SELECT event_id, user_id, external_event_id, external_calendar_id, synced_at
		 FROM calendar_event_binding WHERE event_id = $1 AND user_id = $2`, eventId, userId).
		Scan(&b.EventId, &b.UserId, &b.ExternalEventId, &b.ExternalCalendarId, &b.SyncedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("could not get binding of event %d for user %d: %w", eventId, userId, err)
		log.Error(err)
		return nil, err
	}
	return &b, nil
}

func (r *BindingRepositoryImpl) SaveBinding(ctx context.Context, binding Binding) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO calendar_event_binding (event_id, user_id, external_event_id, external_calendar_id, synced_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (event_id, user_id) DO UPDATE
		 SET external_event_id = EXCLUDED.external_event_id,
		     external_calendar_id = EXCLUDED.external_calendar_id,
		     synced_at = EXCLUDED.synced_at`,
		binding.EventId, binding.UserId, binding.ExternalEventId, binding.ExternalCalendarId, binding.SyncedAt)
	if err != nil {
		err := fmt.Errorf("could not save binding of event %d for user %d: %w", binding.EventId, binding.UserId, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *BindingRepositoryImpl) DeleteBinding(ctx context.Context, eventId, userId int) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM calendar_event_binding WHERE event_id = $1 AND user_id = $2`, eventId, userId)
	if err != nil {
		err := fmt.Errorf("could not delete binding of event %d for user %d: %w", eventId, userId, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *BindingRepositoryImpl) GetEventBindings(ctx context.Context, eventId int) ([]Binding, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_id, user_id, external_event_id, external_calendar_id, synced_at
		 FROM calendar_event_binding WHERE event_id = $1 ORDER BY user_id`, eventId)
	if err != nil {
		err := fmt.Errorf("could not query bindings of event %d: %w", eventId, err)
		log.Error(err)
		return nil, err
	}
	bindings, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Binding])
	if err != nil {
		err := fmt.Errorf("could not scan bindings of event %d: %w", eventId, err)
		log.Error(err)
		return nil, err
	}
	return bindings, nil
}
