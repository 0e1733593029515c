package calendar_sync

import (
	"context"
	"testing"
	"time"

	"github.com/lernio/lernio/internal/utils"
	"github.com/lernio/lernio/pkg/calendar_event"
	"github.com/lernio/lernio/pkg/course"
	"github.com/lernio/lernio/pkg/user"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	users        *user.StubUserRepository
	courses      *course.RepositoryStub
	events       *calendar_event.RepositoryStub
	bindings     *BindingRepositoryStub
	remote       *RemoteCalendarStub
	tokens       *TokenProviderStub
	clock        *utils.MockClock
	resolver     *Resolver
	syncer       *Syncer
	orchestrator *Orchestrator
}

var fixtureNow = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	return newFixtureWithChunks(t, 10)
}

func newFixtureWithChunks(t *testing.T, chunkSize int) *fixture {
	f := &fixture{
		users:    user.NewStubUserRepository(),
		courses:  course.NewRepositoryStub(),
		events:   calendar_event.NewRepositoryStub(),
		bindings: NewBindingRepositoryStub(),
		remote:   NewRemoteCalendarStub(),
		clock:    &utils.MockClock{FixedNow: fixtureNow},
	}
	f.tokens = NewTokenProviderStub(f.users)
	f.resolver = NewResolver(f.events, f.courses, f.users)
	f.syncer = NewSyncer(f.users, f.tokens, f.remote, f.bindings, f.clock)
	f.orchestrator = NewOrchestrator(f.resolver, f.syncer, f.users, f.users, f.bindings, f.clock,
		OrchestratorConfig{ChunkSize: chunkSize, ChunkPause: 0})
	return f
}

func (f *fixture) addUser(t *testing.T, username string, role user.Role, syncEnabled bool) user.User {
	t.Helper()
	u := user.User{
		Username: username,
		Role:     role,
		Settings: user.Settings{CalendarSync: user.CalendarSyncSettings{Enabled: syncEnabled}},
	}
	id, err := f.users.CreateUser(context.Background(), u)
	require.NoError(t, err)
	u.Id = id
	return u
}

func (f *fixture) user(t *testing.T, id int) user.User {
	t.Helper()
	u, err := f.users.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) addEvent(t *testing.T, e calendar_event.Event) calendar_event.Event {
	t.Helper()
	if e.StartTime.IsZero() {
		e.StartTime = fixtureNow.Add(24 * time.Hour)
		e.EndTime = e.StartTime.Add(time.Hour)
	}
	if e.Title == "" {
		e.Title = "Event"
	}
	id, err := f.events.StoreEvent(context.Background(), e)
	require.NoError(t, err)
	e.Id = id
	return e
}

func courseId(id int) *int {
	return &id
}

func userIds(users []user.User) []int {
	ids := make([]int, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.Id)
	}
	return ids
}

func eventIds(events []calendar_event.Event) []int {
	ids := make([]int, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.Id)
	}
	return ids
}
