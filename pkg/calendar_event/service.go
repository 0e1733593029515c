package calendar_event

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lernio/lernio/internal/event_bus"
	"github.com/lernio/lernio/pkg/user"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, eventId int) error
	GetEvent(ctx context.Context, eventId int) (Event, error)
}

type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
}

func NewService(repo Repository, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		eventBus: eventBus,
	}
}

// CreateEvent stores the event owned by the current user and announces it on the bus.
func (s *ServiceImpl) CreateEvent(ctx context.Context, event Event) (Event, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}
	event.CreatorId = currentUser.Id
	event.CreatorRole = currentUser.Role

	event, err = prepare(event)
	if err != nil {
		return Event{}, err
	}

	id, err := s.repo.StoreEvent(ctx, event)
	if err != nil {
		return Event{}, fmt.Errorf("failed to store calendar event: %w", err)
	}
	event.Id = id
	log.Debugf("Calendar event %d created by user %d", event.Id, event.CreatorId)

	s.publish(ctx, event_bus.CalendarEventCreated, event)
	return event, nil
}

// UpdateEvent replaces the mutable fields of an event. Only the creator or an admin may do it.
func (s *ServiceImpl) UpdateEvent(ctx context.Context, event Event) (Event, error) {
	existing, err := s.authorize(ctx, event.Id)
	if err != nil {
		return Event{}, err
	}
	event.CreatorId = existing.CreatorId
	event.CreatorRole = existing.CreatorRole

	event, err = prepare(event)
	if err != nil {
		return Event{}, err
	}

	if err := s.repo.UpdateEvent(ctx, event); err != nil {
		return Event{}, fmt.Errorf("failed to update calendar event: %w", err)
	}
	log.Debugf("Calendar event %d updated", event.Id)

	s.publish(ctx, event_bus.CalendarEventUpdated, event)
	return event, nil
}

// DeleteEvent removes the event. Subscribers of CalendarEventDeleting run before the
// record disappears; their failures never prevent the delete.
func (s *ServiceImpl) DeleteEvent(ctx context.Context, eventId int) error {
	existing, err := s.authorize(ctx, eventId)
	if err != nil {
		return err
	}

	s.publish(ctx, event_bus.CalendarEventDeleting, existing)

	if err := s.repo.DeleteEvent(ctx, eventId); err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	log.Debugf("Calendar event %d deleted", eventId)
	return nil
}

func (s *ServiceImpl) GetEvent(ctx context.Context, eventId int) (Event, error) {
	return s.repo.GetEvent(ctx, eventId)
}

func (s *ServiceImpl) authorize(ctx context.Context, eventId int) (Event, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}
	existing, err := s.repo.GetEvent(ctx, eventId)
	if err != nil {
		return Event{}, err
	}
	if existing.CreatorId != currentUser.Id && currentUser.Role != user.RoleAdmin {
		return Event{}, ErrForbidden
	}
	return existing, nil
}

func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, event Event) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, eventType, event)); err != nil {
		log.Errorf("failed to publish %s for calendar event %d: %v", eventType, event.Id, err)
	}
}

func prepare(event Event) (Event, error) {
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		return Event{}, fmt.Errorf("%w: title is required", ErrEventInvalid)
	}
	if event.StartTime.IsZero() || event.EndTime.IsZero() {
		return Event{}, fmt.Errorf("%w: start and end time are required", ErrEventInvalid)
	}
	if event.EndTime.Before(event.StartTime) {
		return Event{}, fmt.Errorf("%w: end time before start time", ErrEventInvalid)
	}
	if event.Visibility == "" {
		event.Visibility = VisibilityPrivate
	}
	if !event.Visibility.Valid() {
		return Event{}, fmt.Errorf("%w: unknown visibility %q", ErrEventInvalid, event.Visibility)
	}
	if event.EventType == "" {
		event.EventType = TypeOther
	}
	if event.ReminderMinutes != nil && *event.ReminderMinutes < 0 {
		return Event{}, fmt.Errorf("%w: reminder must not be negative", ErrEventInvalid)
	}
	if event.AttendeeIds == nil {
		event.AttendeeIds = []int{}
	}
	event.RecurrenceRule = normalizeRecurrence(event.RecurrenceRule)
	if err := validateRecurrence(event.RecurrenceRule, event.StartTime); err != nil {
		return Event{}, err
	}
	return event, nil
}

// IsValidationError reports whether err was caused by invalid event data.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEventInvalid) || errors.Is(err, ErrInvalidRecurrence)
}
