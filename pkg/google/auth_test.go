package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type syncSwitchStub struct {
	mu       sync.Mutex
	disabled []int
}

func (s *syncSwitchStub) SetSyncEnabled(ctx context.Context, userId int, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !enabled {
		s.disabled = append(s.disabled, userId)
	}
	return nil
}

func setupAuthTest(t *testing.T, handler http.HandlerFunc) (*GoogleAuth, *TokenRepositoryStub, *syncSwitchStub) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	repo := NewTokenRepositoryStub()
	users := &syncSwitchStub{}
	auth := newGoogleAuth(repo, users, &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			TokenURL:  server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	})
	return auth, repo, users
}

func tokenEndpoint(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestGoogleAuth_GetValidToken(t *testing.T) {
	ctx := context.Background()

	t.Run("should return stored token while it is valid", func(t *testing.T) {
		auth, repo, _ := setupAuthTest(t, tokenEndpoint(http.StatusInternalServerError, `{}`))
		require.NoError(t, repo.SaveToken(ctx, 1, &oauth2.Token{AccessToken: "current", Expiry: time.Now().Add(time.Hour)}))

		token, err := auth.GetValidToken(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, "current", token.AccessToken)
	})

	t.Run("should refresh and persist an expired token", func(t *testing.T) {
		auth, repo, _ := setupAuthTest(t, tokenEndpoint(http.StatusOK,
			`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
		require.NoError(t, repo.SaveToken(ctx, 1, &oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(-time.Hour),
		}))

		token, err := auth.GetValidToken(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, "fresh", token.AccessToken)
		stored, err := auth.GetTokens(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "fresh", stored.AccessToken)
		assert.Equal(t, "refresh", stored.RefreshToken)
	})

	t.Run("should report rejected refresh as unauthenticated", func(t *testing.T) {
		auth, repo, _ := setupAuthTest(t, tokenEndpoint(http.StatusBadRequest, `{"error":"invalid_grant"}`))
		require.NoError(t, repo.SaveToken(ctx, 1, &oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "revoked",
			Expiry:       time.Now().Add(-time.Hour),
		}))

		_, err := auth.GetValidToken(ctx, 1)

		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("should keep sync enabled when the token endpoint is unavailable", func(t *testing.T) {
		auth, repo, users := setupAuthTest(t, tokenEndpoint(http.StatusServiceUnavailable, `{"error":"backendError"}`))
		require.NoError(t, repo.SaveToken(ctx, 1, &oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(-time.Hour),
		}))

		_, err := auth.GetValidToken(ctx, 1)

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnauthenticated)
		assert.Empty(t, users.disabled)
		stored, err := auth.GetTokens(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "refresh", stored.RefreshToken)
	})

	t.Run("should report missing grant as unauthenticated", func(t *testing.T) {
		auth, _, _ := setupAuthTest(t, tokenEndpoint(http.StatusOK, `{}`))

		_, err := auth.GetValidToken(ctx, 7)

		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("should report expired token without refresh token as unauthenticated", func(t *testing.T) {
		auth, repo, _ := setupAuthTest(t, tokenEndpoint(http.StatusOK, `{}`))
		require.NoError(t, repo.SaveToken(ctx, 1, &oauth2.Token{AccessToken: "stale", Expiry: time.Now().Add(-time.Hour)}))

		_, err := auth.GetValidToken(ctx, 1)

		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestGoogleAuth_DisableSync(t *testing.T) {
	auth, _, users := setupAuthTest(t, tokenEndpoint(http.StatusOK, `{}`))

	err := auth.DisableSync(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, []int{5}, users.disabled)
}
