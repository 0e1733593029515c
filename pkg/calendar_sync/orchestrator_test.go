package calendar_sync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lernio/lernio/pkg/calendar_event"
	"github.com/lernio/lernio/pkg/course"
	"github.com/lernio/lernio/pkg/google"
	"github.com/lernio/lernio/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
)

func TestOrchestrator_SyncUser(t *testing.T) {
	ctx := context.Background()

	t.Run("should isolate a failing event from the rest of the batch", func(t *testing.T) {
		// given
		f := newFixture(t)
		u := f.addUser(t, "student", user.RoleStudent, true)
		var broken calendar_event.Event
		for i := 0; i < 10; i++ {
			e := f.addEvent(t, calendar_event.Event{Title: fmt.Sprintf("Event %d", i), Visibility: calendar_event.VisibilityPublic})
			if i == 6 {
				broken = e
			}
		}
		f.remote.FailSummary(broken.Title, fmt.Errorf("backend error"))

		// when
		result, err := f.orchestrator.SyncUser(ctx, u.Id)

		// then
		require.NoError(t, err)
		assert.Equal(t, 10, result.Total)
		assert.Equal(t, 9, result.Created)
		assert.Equal(t, 0, result.Updated)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, broken.Id, result.Errors[0].EventId)
		assert.Equal(t, u.Id, result.Errors[0].UserId)
		assert.Contains(t, result.Errors[0].Message, "backend error")
		assert.Equal(t, "1 of 10 events failed to sync", result.Summary())
		assert.Len(t, f.remote.Events(u.Id, user.PrimaryCalendarId), 9)

		synced := f.user(t, u.Id).Settings.CalendarSync.LastSyncedAt
		require.NotNil(t, synced)
		assert.Equal(t, fixtureNow, *synced)
	})

	t.Run("should count previously bound events as updated", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(t, "student", user.RoleStudent, true)
		f.addEvent(t, calendar_event.Event{Visibility: calendar_event.VisibilityPublic})
		f.addEvent(t, calendar_event.Event{Visibility: calendar_event.VisibilityPublic})

		_, err := f.orchestrator.SyncUser(ctx, u.Id)
		require.NoError(t, err)
		f.addEvent(t, calendar_event.Event{Visibility: calendar_event.VisibilityPublic})
		result, err := f.orchestrator.SyncUser(ctx, u.Id)

		require.NoError(t, err)
		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 1, result.Created)
		assert.Equal(t, 2, result.Updated)
		assert.Equal(t, "3 events synced", result.Summary())
		assert.Len(t, f.remote.Events(u.Id, user.PrimaryCalendarId), 3)
	})

	t.Run("should only mirror visible events", func(t *testing.T) {
		f := newFixture(t)
		instructor := f.addUser(t, "instructor", user.RoleInstructor, true)
		student := f.addUser(t, "student", user.RoleStudent, true)
		f.courses.AddCourse(course.Course{Id: 1, Name: "Algebra", InstructorId: instructor.Id}, student.Id)
		f.addEvent(t, calendar_event.Event{Visibility: calendar_event.VisibilityCourse, CourseId: courseId(1), CreatorId: instructor.Id})
		f.addEvent(t, calendar_event.Event{Visibility: calendar_event.VisibilityPrivate, CreatorId: instructor.Id})
		f.addEvent(t, calendar_event.Event{Visibility: calendar_event.VisibilityCustom, AttendeeIds: []int{instructor.Id}, CreatorId: instructor.Id})

		result, err := f.orchestrator.SyncUser(ctx, student.Id)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Total)
		assert.Equal(t, 1, result.Created)
	})

	t.Run("should skip users with sync disabled", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(t, "student", user.RoleStudent, false)
		f.addEvent(t, calendar_event.Event{Visibility: calendar_event.VisibilityPublic})

		result, err := f.orchestrator.SyncUser(ctx, u.Id)

		require.NoError(t, err)
		assert.Equal(t, 0, result.Total)
		assert.Equal(t, "0 events synced", result.Summary())
		created, _, _ := f.remote.Calls()
		assert.Equal(t, 0, created)
		assert.Nil(t, f.user(t, u.Id).Settings.CalendarSync.LastSyncedAt)
	})

	t.Run("should stop syncing the rest of the batch after authentication failure", func(t *testing.T) {
		// given
		f := newFixtureWithChunks(t, 10)
		u := f.addUser(t, "student", user.RoleStudent, true)
		for i := 0; i < 25; i++ {
			f.addEvent(t, calendar_event.Event{Visibility: calendar_event.VisibilityPublic})
		}
		f.remote.FailUser(u.Id, google.ErrUnauthenticated)

		// when
		result, err := f.orchestrator.SyncUser(ctx, u.Id)

		// then
		require.NoError(t, err)
		assert.Equal(t, 25, result.Total)
		assert.Equal(t, 25, result.Failed+result.Skipped)
		assert.GreaterOrEqual(t, result.Failed, 1)
		assert.LessOrEqual(t, result.Failed, 10)
		assert.False(t, f.user(t, u.Id).Settings.CalendarSync.Enabled)
		for _, itemErr := range result.Errors {
			assert.Contains(t, itemErr.Message, google.ErrUnauthenticated.Error())
		}

		createsBefore, _, _ := f.remote.Calls()
		next, err := f.orchestrator.SyncUser(ctx, u.Id)
		require.NoError(t, err)
		assert.Equal(t, 0, next.Total)
		createsAfter, _, _ := f.remote.Calls()
		assert.Equal(t, createsBefore, createsAfter)
	})
}

// probeFactory records the highest number of concurrent provider calls.
type probeFactory struct {
	remote   *RemoteCalendarStub
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (p *probeFactory) CreateClient(ctx context.Context, token *oauth2.Token) (google.EventsAPI, error) {
	client, err := p.remote.CreateClient(ctx, token)
	if err != nil {
		return nil, err
	}
	return &probeClient{EventsAPI: client, probe: p}, nil
}

func (p *probeFactory) enter() {
	p.mu.Lock()
	p.inFlight++
	p.peak = max(p.peak, p.inFlight)
	p.mu.Unlock()
}

func (p *probeFactory) leave() {
	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
}

type probeClient struct {
	google.EventsAPI
	probe *probeFactory
}

func (c *probeClient) CreateEvent(ctx context.Context, calendarId string, event *gcal.Event) (*gcal.Event, error) {
	c.probe.enter()
	defer c.probe.leave()
	time.Sleep(5 * time.Millisecond)
	return c.EventsAPI.CreateEvent(ctx, calendarId, event)
}

func TestOrchestrator_Chunking(t *testing.T) {
	// given
	f := newFixture(t)
	probe := &probeFactory{remote: f.remote}
	syncer := NewSyncer(f.users, f.tokens, probe, f.bindings, f.clock)
	orchestrator := NewOrchestrator(f.resolver, syncer, f.users, f.users, f.bindings, f.clock,
		OrchestratorConfig{ChunkSize: 3, ChunkPause: time.Millisecond})
	u := f.addUser(t, "student", user.RoleStudent, true)
	for i := 0; i < 7; i++ {
		f.addEvent(t, calendar_event.Event{Visibility: calendar_event.VisibilityPublic})
	}

	// when
	result, err := orchestrator.SyncUser(context.Background(), u.Id)

	// then
	require.NoError(t, err)
	assert.Equal(t, 7, result.Created)
	assert.LessOrEqual(t, probe.peak, 3)
	assert.GreaterOrEqual(t, probe.peak, 1)
	assert.Zero(t, probe.inFlight)
}

func TestOrchestrator_SyncEvent(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, user.User, []user.User, calendar_event.Event) {
		f := newFixture(t)
		instructor := f.addUser(t, "instructor", user.RoleInstructor, true)
		students := []user.User{
			f.addUser(t, "anna", user.RoleStudent, true),
			f.addUser(t, "ben", user.RoleStudent, true),
			f.addUser(t, "cleo", user.RoleStudent, false),
		}
		f.addUser(t, "outsider", user.RoleStudent, true)
		f.courses.AddCourse(course.Course{Id: 1, Name: "Algebra", InstructorId: instructor.Id}, userIds(students)...)
		event := f.addEvent(t, calendar_event.Event{
			Title:      "Lecture",
			Visibility: calendar_event.VisibilityCourse,
			CourseId:   courseId(1),
			CreatorId:  instructor.Id,
		})
		return f, instructor, students, event
	}

	t.Run("should mirror the event to the enabled audience", func(t *testing.T) {
		f, instructor, students, event := setup(t)

		result, err := f.orchestrator.SyncEvent(ctx, event)

		require.NoError(t, err)
		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 3, result.Created)
		for _, u := range []user.User{instructor, students[0], students[1]} {
			assert.Len(t, f.remote.Events(u.Id, user.PrimaryCalendarId), 1, "user %s", u.Username)
		}
		assert.Empty(t, f.remote.Events(students[2].Id, user.PrimaryCalendarId))
	})

	t.Run("should remove the copy of an unenrolled student", func(t *testing.T) {
		f, _, students, event := setup(t)
		_, err := f.orchestrator.SyncEvent(ctx, event)
		require.NoError(t, err)
		f.courses.Unenroll(1, students[0].Id)

		event.Title = "Lecture (moved)"
		result, err := f.orchestrator.SyncEvent(ctx, event)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		assert.Equal(t, 2, result.Updated)
		assert.Empty(t, f.remote.Events(students[0].Id, user.PrimaryCalendarId))
		binding, _ := f.bindings.GetBinding(ctx, event.Id, students[0].Id)
		assert.Nil(t, binding)
	})

	t.Run("should keep the copy of a user who only disabled sync", func(t *testing.T) {
		f, _, students, event := setup(t)
		_, err := f.orchestrator.SyncEvent(ctx, event)
		require.NoError(t, err)
		require.NoError(t, f.users.SetSyncEnabled(ctx, students[1].Id, false))

		result, err := f.orchestrator.SyncEvent(ctx, event)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		assert.Len(t, f.remote.Events(students[1].Id, user.PrimaryCalendarId), 1)
		binding, _ := f.bindings.GetBinding(ctx, event.Id, students[1].Id)
		assert.NotNil(t, binding)
	})

	t.Run("should remove copies when visibility is narrowed", func(t *testing.T) {
		f, instructor, students, event := setup(t)
		_, err := f.orchestrator.SyncEvent(ctx, event)
		require.NoError(t, err)

		event.Visibility = calendar_event.VisibilityPrivate
		event.CourseId = nil
		result, err := f.orchestrator.SyncEvent(ctx, event)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Total)
		assert.Len(t, f.remote.Events(instructor.Id, user.PrimaryCalendarId), 1)
		assert.Empty(t, f.remote.Events(students[0].Id, user.PrimaryCalendarId))
		assert.Empty(t, f.remote.Events(students[1].Id, user.PrimaryCalendarId))
	})

	t.Run("should do nothing for custom events without attendees", func(t *testing.T) {
		f := newFixture(t)
		creator := f.addUser(t, "instructor", user.RoleInstructor, true)
		event := f.addEvent(t, calendar_event.Event{Visibility: calendar_event.VisibilityCustom, AttendeeIds: []int{}, CreatorId: creator.Id})

		result, err := f.orchestrator.SyncEvent(ctx, event)

		require.NoError(t, err)
		assert.Equal(t, 0, result.Total)
		assert.Equal(t, "0 events synced", result.Summary())
		_, _, remove := f.remote.Calls()
		assert.Zero(t, remove)
	})
}
