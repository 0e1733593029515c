package calendar_sync

import (
	"context"
	"fmt"

	"github.com/lernio/lernio/pkg/calendar_event"
	"github.com/lernio/lernio/pkg/course"
	"github.com/lernio/lernio/pkg/user"
)

type eventReader interface {
	GetAllEvents(ctx context.Context) ([]calendar_event.Event, error)
	GetCandidateEvents(ctx context.Context, userId int, courseIds []int) ([]calendar_event.Event, error)
}

type rosterReader interface {
	GetRosters(ctx context.Context, courseIds []int) (map[int]course.Roster, error)
	GetUserCourseIds(ctx context.Context, userId int) ([]int, error)
}

type userReader interface {
	GetUser(ctx context.Context, id int) (user.User, error)
	GetSyncEnabledUsers(ctx context.Context) ([]user.User, error)
}

// Resolver answers which (user, event) pairs are kept in sync. Both directions are
// computed from canSee over the current store content, so a user is in the audience
// of an event exactly when the event is visible to that user.
type Resolver struct {
	events  eventReader
	courses rosterReader
	users   userReader
}

func NewResolver(events eventReader, courses rosterReader, users userReader) *Resolver {
	return &Resolver{events: events, courses: courses, users: users}
}

// EventsVisibleToUser returns every event u may see, independent of u's sync flag.
func (r *Resolver) EventsVisibleToUser(ctx context.Context, u user.User) ([]calendar_event.Event, error) {
	var candidates []calendar_event.Event
	var err error
	if u.Role == user.RoleAdmin {
		candidates, err = r.events.GetAllEvents(ctx)
	} else {
		var courseIds []int
		courseIds, err = r.courses.GetUserCourseIds(ctx, u.Id)
		if err != nil {
			return nil, fmt.Errorf("failed to get courses of user %d: %w", u.Id, err)
		}
		candidates, err = r.events.GetCandidateEvents(ctx, u.Id, courseIds)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate events of user %d: %w", u.Id, err)
	}

	rosters, err := r.rostersOf(ctx, candidates...)
	if err != nil {
		return nil, err
	}

	visible := make([]calendar_event.Event, 0, len(candidates))
	for _, e := range candidates {
		if canSee(u, e, rosters) {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// UsersWhoShouldSeeEvent returns the audience of e restricted to sync-enabled users.
func (r *Resolver) UsersWhoShouldSeeEvent(ctx context.Context, e calendar_event.Event) ([]user.User, error) {
	if e.Visibility == calendar_event.VisibilityCourse && e.CourseId == nil {
		return []user.User{}, nil
	}
	if e.Visibility == calendar_event.VisibilityCustom && len(e.AttendeeIds) == 0 {
		return []user.User{}, nil
	}

	candidates, err := r.users.GetSyncEnabledUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync enabled users: %w", err)
	}
	rosters, err := r.rostersOf(ctx, e)
	if err != nil {
		return nil, err
	}

	audience := make([]user.User, 0, len(candidates))
	for _, u := range candidates {
		if canSee(u, e, rosters) {
			audience = append(audience, u)
		}
	}
	return audience, nil
}

// CanSee reports whether e is visible to the user, regardless of the user's sync flag.
func (r *Resolver) CanSee(ctx context.Context, u user.User, e calendar_event.Event) (bool, error) {
	rosters, err := r.rostersOf(ctx, e)
	if err != nil {
		return false, err
	}
	return canSee(u, e, rosters), nil
}

func (r *Resolver) rostersOf(ctx context.Context, events ...calendar_event.Event) (map[int]course.Roster, error) {
	seen := make(map[int]struct{})
	courseIds := make([]int, 0)
	for _, e := range events {
		if e.Visibility != calendar_event.VisibilityCourse || e.CourseId == nil {
			continue
		}
		if _, ok := seen[*e.CourseId]; ok {
			continue
		}
		seen[*e.CourseId] = struct{}{}
		courseIds = append(courseIds, *e.CourseId)
	}
	if len(courseIds) == 0 {
		return map[int]course.Roster{}, nil
	}
	rosters, err := r.courses.GetRosters(ctx, courseIds)
	if err != nil {
		return nil, fmt.Errorf("failed to get course rosters: %w", err)
	}
	return rosters, nil
}

func canSee(u user.User, e calendar_event.Event, rosters map[int]course.Roster) bool {
	switch e.Visibility {
	case calendar_event.VisibilityPublic:
		return true
	case calendar_event.VisibilityPrivate:
		return e.CreatorId == u.Id
	case calendar_event.VisibilityCourse:
		if e.CourseId == nil {
			return false
		}
		roster, ok := rosters[*e.CourseId]
		if !ok {
			return false
		}
		return u.Role == user.RoleAdmin || roster.IsInstructor(u.Id) || roster.IsStudent(u.Id)
	case calendar_event.VisibilityCustom:
		return e.HasAttendee(u.Id)
	}
	return false
}
