package calendar_sync

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lernio/lernio/internal/test_utils"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupBindingRepository(t *testing.T) (context.Context, *BindingRepositoryImpl, *pgxpool.Pool) {
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	return ctx, NewBindingRepository(db), db
}

func TestBindingRepositoryImpl_SaveAndGet(t *testing.T) {
	// given
	ctx, repo, db := setupBindingRepository(t)
	userId := test_utils.InsertUser(t, db, "student", "STUDENT", true)
	eventId := test_utils.InsertEvent(t, db, "Lecture", "PUBLIC", userId)

	// when
	missing, err := repo.GetBinding(ctx, eventId, userId)
	require.NoError(t, err)
	err = repo.SaveBinding(ctx, Binding{
		EventId:            eventId,
		UserId:             userId,
		ExternalEventId:    "remote-1",
		ExternalCalendarId: "primary",
		SyncedAt:           fixtureNow,
	})
	require.NoError(t, err)
	stored, err := repo.GetBinding(ctx, eventId, userId)

	// then
	require.NoError(t, err)
	assert.Nil(t, missing)
	require.NotNil(t, stored)
	assert.Equal(t, "remote-1", stored.ExternalEventId)
	assert.Equal(t, "primary", stored.ExternalCalendarId)
	assert.True(t, fixtureNow.Equal(stored.SyncedAt))
}

func TestBindingRepositoryImpl_SaveOverwrites(t *testing.T) {
	ctx, repo, db := setupBindingRepository(t)
	userId := test_utils.InsertUser(t, db, "student", "STUDENT", true)
	eventId := test_utils.InsertEvent(t, db, "Lecture", "PUBLIC", userId)
	binding := Binding{EventId: eventId, UserId: userId, ExternalEventId: "remote-1", ExternalCalendarId: "primary", SyncedAt: fixtureNow}
	require.NoError(t, repo.SaveBinding(ctx, binding))

	binding.ExternalEventId = "remote-2"
	binding.ExternalCalendarId = "school"
	require.NoError(t, repo.SaveBinding(ctx, binding))

	bindings, err := repo.GetEventBindings(ctx, eventId)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "remote-2", bindings[0].ExternalEventId)
	assert.Equal(t, "school", bindings[0].ExternalCalendarId)
}

func TestBindingRepositoryImpl_GetEventBindings(t *testing.T) {
	ctx, repo, db := setupBindingRepository(t)
	anna := test_utils.InsertUser(t, db, "anna", "STUDENT", true)
	ben := test_utils.InsertUser(t, db, "ben", "STUDENT", true)
	lecture := test_utils.InsertEvent(t, db, "Lecture", "PUBLIC", anna)
	lab := test_utils.InsertEvent(t, db, "Lab", "PUBLIC", anna)
	for _, b := range []Binding{
		{EventId: lecture, UserId: ben, ExternalEventId: "b-1", ExternalCalendarId: "primary", SyncedAt: fixtureNow},
		{EventId: lecture, UserId: anna, ExternalEventId: "a-1", ExternalCalendarId: "primary", SyncedAt: fixtureNow},
		{EventId: lab, UserId: anna, ExternalEventId: "a-2", ExternalCalendarId: "primary", SyncedAt: fixtureNow},
	} {
		require.NoError(t, repo.SaveBinding(ctx, b))
	}

	bindings, err := repo.GetEventBindings(ctx, lecture)

	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, anna, bindings[0].UserId)
	assert.Equal(t, ben, bindings[1].UserId)

	none, err := repo.GetEventBindings(ctx, lecture+lab+100)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBindingRepositoryImpl_Delete(t *testing.T) {
	ctx, repo, db := setupBindingRepository(t)
	userId := test_utils.InsertUser(t, db, "student", "STUDENT", true)
	eventId := test_utils.InsertEvent(t, db, "Lecture", "PUBLIC", userId)
	require.NoError(t, repo.SaveBinding(ctx, Binding{EventId: eventId, UserId: userId, ExternalEventId: "remote-1", ExternalCalendarId: "primary", SyncedAt: fixtureNow}))

	require.NoError(t, repo.DeleteBinding(ctx, eventId, userId))
	require.NoError(t, repo.DeleteBinding(ctx, eventId, userId))

	binding, err := repo.GetBinding(ctx, eventId, userId)
	require.NoError(t, err)
	assert.Nil(t, binding)
}

func TestBindingRepositoryImpl_CascadeOnEventDelete(t *testing.T) {
	ctx, repo, db := setupBindingRepository(t)
	userId := test_utils.InsertUser(t, db, "student", "STUDENT", true)
	eventId := test_utils.InsertEvent(t, db, "Lecture", "PUBLIC", userId)
	require.NoError(t, repo.SaveBinding(ctx, Binding{EventId: eventId, UserId: userId, ExternalEventId: "remote-1", ExternalCalendarId: "primary", SyncedAt: fixtureNow}))

	_, err := db.Exec(ctx, "DELETE FROM calendar_event WHERE id = $1", eventId)
	require.NoError(t, err)

	bindings, err := repo.GetEventBindings(ctx, eventId)
	require.NoError(t, err)
	assert.Empty(t, bindings)
}
