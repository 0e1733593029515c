package calendar_sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/lernio/lernio/internal/utils"
	"github.com/lernio/lernio/pkg/calendar_event"
	"github.com/lernio/lernio/pkg/google"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
)

// TokenProvider hands out valid provider credentials of users.
type TokenProvider interface {
	GetValidToken(ctx context.Context, userId int) (*oauth2.Token, error)
	DisableSync(ctx context.Context, userId int) error
}

type ClientFactory interface {
	CreateClient(ctx context.Context, token *oauth2.Token) (google.EventsAPI, error)
}

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// SyncResult is the outcome of mirroring one event for one user.
type SyncResult struct {
	EventId         int
	UserId          int
	Outcome         Outcome
	ExternalEventId string
	Err             error
}

// Syncer mirrors single events into single users' external calendars.
type Syncer struct {
	users    userReader
	tokens   TokenProvider
	clients  ClientFactory
	bindings BindingRepository
	clock    utils.Clock
	locks    *pairLock
}

func NewSyncer(users userReader, tokens TokenProvider, clients ClientFactory, bindings BindingRepository, clock utils.Clock) *Syncer {
	return &Syncer{
		users:    users,
		tokens:   tokens,
		clients:  clients,
		bindings: bindings,
		clock:    clock,
		locks:    newPairLock(),
	}
}

// Sync creates or updates the mirrored copy of event in the calendar of the user.
// A copy that vanished on the provider side is re-created and counted as updated.
// Authentication failures disable sync of the user.
func (s *Syncer) Sync(ctx context.Context, userId int, event calendar_event.Event) SyncResult {
	unlock := s.locks.lock(userId, event.Id)
	defer unlock()

	result := SyncResult{EventId: event.Id, UserId: userId}

	u, err := s.users.GetUser(ctx, userId)
	if err != nil {
		return failed(result, fmt.Errorf("failed to get user: %w", err))
	}
	if !u.Settings.CalendarSync.Enabled {
		log.Tracef("Calendar sync disabled for user %d, skipping event %d", userId, event.Id)
		result.Outcome = OutcomeSkipped
		return result
	}

	client, err := s.client(ctx, userId)
	if err != nil {
		return failed(result, s.handleAuthFailure(ctx, userId, err))
	}

	binding, err := s.bindings.GetBinding(ctx, event.Id, userId)
	if err != nil {
		return failed(result, err)
	}

	remote := ToGoogleEvent(event)
	calendarId := u.DestinationCalendarId()

	var externalId string
	if binding == nil {
		result.Outcome = OutcomeCreated
		externalId, err = s.create(ctx, client, calendarId, remote)
	} else {
		result.Outcome = OutcomeUpdated
		externalId, err = s.update(ctx, client, *binding, calendarId, remote)
	}
	if err != nil {
		return failed(result, s.handleAuthFailure(ctx, userId, err))
	}

	err = s.bindings.SaveBinding(ctx, Binding{
		EventId:            event.Id,
		UserId:             userId,
		ExternalEventId:    externalId,
		ExternalCalendarId: calendarId,
		SyncedAt:           s.clock.Now(),
	})
	if err != nil {
		if binding == nil || binding.ExternalEventId != externalId {
			s.discardUnbound(ctx, client, userId, calendarId, externalId)
		}
		return failed(result, err)
	}
	result.ExternalEventId = externalId
	log.Debugf("Event %d %s in calendar %s of user %d", event.Id, result.Outcome, calendarId, userId)
	return result
}

// discardUnbound deletes a copy created in this run whose binding could not be stored,
// so the next run does not create a duplicate.
func (s *Syncer) discardUnbound(ctx context.Context, client google.EventsAPI, userId int, calendarId, externalId string) {
	err := client.DeleteEvent(ctx, calendarId, externalId)
	if err != nil && !errors.Is(err, google.ErrNotFound) {
		log.Errorf("failed to delete unbound copy %s from calendar of user %d: %v", externalId, userId, err)
	}
}

func (s *Syncer) update(ctx context.Context, client google.EventsAPI, binding Binding, calendarId string, remote *gcal.Event) (string, error) {
	if binding.ExternalCalendarId != calendarId {
		// destination calendar changed, move the copy
		log.Debugf("Moving event %d of user %d from calendar %s to %s", binding.EventId, binding.UserId, binding.ExternalCalendarId, calendarId)
		if err := client.DeleteEvent(ctx, binding.ExternalCalendarId, binding.ExternalEventId); err != nil && !errors.Is(err, google.ErrNotFound) {
			log.Warnf("failed to delete event %d from previous calendar of user %d: %v", binding.EventId, binding.UserId, err)
		}
		return s.create(ctx, client, calendarId, remote)
	}

	updated, err := client.UpdateEvent(ctx, calendarId, binding.ExternalEventId, remote)
	if errors.Is(err, google.ErrNotFound) {
		log.Infof("Mirrored copy of event %d vanished from calendar of user %d, re-creating it", binding.EventId, binding.UserId)
		return s.create(ctx, client, calendarId, remote)
	}
	if err != nil {
		return "", fmt.Errorf("failed to update remote event: %w", err)
	}
	return updated.Id, nil
}

func (s *Syncer) create(ctx context.Context, client google.EventsAPI, calendarId string, remote *gcal.Event) (string, error) {
	created, err := client.CreateEvent(ctx, calendarId, remote)
	if err != nil {
		return "", fmt.Errorf("failed to create remote event: %w", err)
	}
	return created.Id, nil
}

// Remove deletes the mirrored copy recorded by binding and the binding itself.
// A copy that is already gone counts as removed.
func (s *Syncer) Remove(ctx context.Context, binding Binding) error {
	unlock := s.locks.lock(binding.UserId, binding.EventId)
	defer unlock()

	client, err := s.client(ctx, binding.UserId)
	if err != nil {
		return s.handleAuthFailure(ctx, binding.UserId, err)
	}
	err = client.DeleteEvent(ctx, binding.ExternalCalendarId, binding.ExternalEventId)
	if err != nil && !errors.Is(err, google.ErrNotFound) {
		return s.handleAuthFailure(ctx, binding.UserId, fmt.Errorf("failed to delete remote event: %w", err))
	}
	return s.bindings.DeleteBinding(ctx, binding.EventId, binding.UserId)
}

func (s *Syncer) client(ctx context.Context, userId int) (google.EventsAPI, error) {
	token, err := s.tokens.GetValidToken(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	client, err := s.clients.CreateClient(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	return client, nil
}

func (s *Syncer) handleAuthFailure(ctx context.Context, userId int, err error) error {
	if !errors.Is(err, google.ErrUnauthenticated) {
		return err
	}
	if disableErr := s.tokens.DisableSync(ctx, userId); disableErr != nil {
		log.Errorf("failed to disable calendar sync of user %d: %v", userId, disableErr)
	}
	return fmt.Errorf("authentication failed for user %d: %w", userId, err)
}

func failed(result SyncResult, err error) SyncResult {
	result.Outcome = OutcomeFailed
	result.Err = err
	return result
}
