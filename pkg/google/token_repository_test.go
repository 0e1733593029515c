package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lernio/lernio/internal/test_utils"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/oauth2"
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

func setupTokenRepository(t *testing.T) (context.Context, *TokenRepositoryImpl, int) {
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	userId := test_utils.InsertUser(t, db, "anna", "STUDENT", true)
	return ctx, NewTokenRepository(db), userId
}

func TestTokenRepositoryImpl_AuthorizationFlow(t *testing.T) {
	// given
	ctx, repo, userId := setupTokenRepository(t)
	expiry := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	// when authorization is pending
	require.NoError(t, repo.StartAuthorization(ctx, userId, "nonce-1"))
	pending, err := repo.GetToken(ctx, userId)
	require.NoError(t, err)

	// then no token is handed out
	assert.Nil(t, pending)

	// when authorization completes
	completedFor, err := repo.CompleteAuthorization(ctx, "nonce-1", &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       expiry,
	})
	require.NoError(t, err)
	token, err := repo.GetToken(ctx, userId)
	require.NoError(t, err)

	// then
	assert.Equal(t, userId, completedFor)
	require.NotNil(t, token)
	assert.Equal(t, "access-1", token.AccessToken)
	assert.Equal(t, "refresh-1", token.RefreshToken)
	assert.True(t, expiry.Equal(token.Expiry))
}

func TestTokenRepositoryImpl_UnknownNonce(t *testing.T) {
	ctx, repo, _ := setupTokenRepository(t)

	_, err := repo.CompleteAuthorization(ctx, "nope", &oauth2.Token{AccessToken: "access"})

	assert.ErrorIs(t, err, ErrUnknownNonce)
}

func TestTokenRepositoryImpl_SaveTokenKeepsRefreshToken(t *testing.T) {
	ctx, repo, userId := setupTokenRepository(t)
	require.NoError(t, repo.StartAuthorization(ctx, userId, "nonce-1"))
	_, err := repo.CompleteAuthorization(ctx, "nonce-1", &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1"})
	require.NoError(t, err)

	require.NoError(t, repo.SaveToken(ctx, userId, &oauth2.Token{AccessToken: "access-2"}))

	token, err := repo.GetToken(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "access-2", token.AccessToken)
	assert.Equal(t, "refresh-1", token.RefreshToken)
}

func TestTokenRepositoryImpl_DeleteToken(t *testing.T) {
	ctx, repo, userId := setupTokenRepository(t)
	require.NoError(t, repo.StartAuthorization(ctx, userId, "nonce-1"))
	_, err := repo.CompleteAuthorization(ctx, "nonce-1", &oauth2.Token{AccessToken: "access-1"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteToken(ctx, userId))

	token, err := repo.GetToken(ctx, userId)
	require.NoError(t, err)
	assert.Nil(t, token)
}
