package calendar_sync

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lernio/lernio/pkg/google"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
)

type remoteKey struct {
	owner      string
	calendarId string
	eventId    string
}

// RemoteCalendarStub imitates the provider for many users. Calendars are owned by
// the access token the client was created with.
type RemoteCalendarStub struct {
	mu          sync.Mutex
	events      map[remoteKey]*gcal.Event
	nextId      int
	ownerErrs   map[string]error
	summaryErrs map[string]error
	createCalls int
	updateCalls int
	deleteCalls int
}

func NewRemoteCalendarStub() *RemoteCalendarStub {
	return &RemoteCalendarStub{
		events:      make(map[remoteKey]*gcal.Event),
		ownerErrs:   make(map[string]error),
		summaryErrs: make(map[string]error),
	}
}

func (r *RemoteCalendarStub) CreateClient(ctx context.Context, token *oauth2.Token) (google.EventsAPI, error) {
	return &clientStub{remote: r, owner: token.AccessToken}, nil
}

// FailUser makes every call made with the user's token fail with err.
func (r *RemoteCalendarStub) FailUser(userId int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ownerErrs[stubToken(userId)] = err
}

// FailSummary makes create and update of events with the given title fail with err.
func (r *RemoteCalendarStub) FailSummary(summary string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaryErrs[summary] = err
}

// Forget drops an event on the provider side, as if the user deleted it there.
func (r *RemoteCalendarStub) Forget(userId int, calendarId, eventId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, remoteKey{stubToken(userId), calendarId, eventId})
}

// Events returns the events in the user's calendar ordered by id.
func (r *RemoteCalendarStub) Events(userId int, calendarId string) []*gcal.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*gcal.Event
	for key, e := range r.events {
		if key.owner == stubToken(userId) && key.calendarId == calendarId {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Id < result[j].Id })
	return result
}

func (r *RemoteCalendarStub) Calls() (create, update, remove int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createCalls, r.updateCalls, r.deleteCalls
}

type clientStub struct {
	remote *RemoteCalendarStub
	owner  string
}

func (c *clientStub) CreateEvent(ctx context.Context, calendarId string, event *gcal.Event) (*gcal.Event, error) {
	r := c.remote
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if err := r.failure(c.owner, event.Summary); err != nil {
		return nil, err
	}
	r.nextId++
	stored := *event
	stored.Id = fmt.Sprintf("remote-%d", r.nextId)
	r.events[remoteKey{c.owner, calendarId, stored.Id}] = &stored
	result := stored
	return &result, nil
}

func (c *clientStub) UpdateEvent(ctx context.Context, calendarId string, eventId string, event *gcal.Event) (*gcal.Event, error) {
	r := c.remote
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if err := r.failure(c.owner, event.Summary); err != nil {
		return nil, err
	}
	key := remoteKey{c.owner, calendarId, eventId}
	if _, ok := r.events[key]; !ok {
		return nil, google.ErrNotFound
	}
	stored := *event
	stored.Id = eventId
	r.events[key] = &stored
	result := stored
	return &result, nil
}

func (c *clientStub) DeleteEvent(ctx context.Context, calendarId string, eventId string) error {
	r := c.remote
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	if err := r.ownerErrs[c.owner]; err != nil {
		return err
	}
	key := remoteKey{c.owner, calendarId, eventId}
	if _, ok := r.events[key]; !ok {
		return google.ErrNotFound
	}
	delete(r.events, key)
	return nil
}

func (r *RemoteCalendarStub) failure(owner, summary string) error {
	if err := r.ownerErrs[owner]; err != nil {
		return err
	}
	return r.summaryErrs[summary]
}
