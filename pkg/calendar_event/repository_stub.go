package calendar_event

import (
	"context"
	"slices"
	"sort"
	"sync"
)

type RepositoryStub struct {
	mu     sync.RWMutex
	items  map[int]Event
	nextId int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		items:  make(map[int]Event),
		nextId: 1,
	}
}

func (r *RepositoryStub) StoreEvent(ctx context.Context, event Event) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.Id = r.nextId
	r.nextId++
	event.AttendeeIds = slices.Clone(event.AttendeeIds)
	r.items[event.Id] = event
	return event.Id, nil
}

func (r *RepositoryStub) GetEvent(ctx context.Context, eventId int) (Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.items[eventId]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return event, nil
}

func (r *RepositoryStub) UpdateEvent(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[event.Id]; !ok {
		return ErrEventNotFound
	}
	event.AttendeeIds = slices.Clone(event.AttendeeIds)
	r.items[event.Id] = event
	return nil
}

func (r *RepositoryStub) DeleteEvent(ctx context.Context, eventId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[eventId]; !ok {
		return ErrEventNotFound
	}
	delete(r.items, eventId)
	return nil
}

func (r *RepositoryStub) GetAllEvents(ctx context.Context) ([]Event, error) {
	return r.filter(func(Event) bool { return true }), nil
}

func (r *RepositoryStub) GetCandidateEvents(ctx context.Context, userId int, courseIds []int) ([]Event, error) {
	return r.filter(func(e Event) bool {
		return e.Visibility == VisibilityPublic ||
			e.CreatorId == userId ||
			e.HasAttendee(userId) ||
			(e.CourseId != nil && slices.Contains(courseIds, *e.CourseId))
	}), nil
}

func (r *RepositoryStub) filter(keep func(Event) bool) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	events := make([]Event, 0, len(r.items))
	for _, e := range r.items {
		if keep(e) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Id < events[j].Id })
	return events
}
