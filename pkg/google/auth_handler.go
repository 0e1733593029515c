package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/lernio/lernio/internal/config"
	"github.com/lernio/lernio/internal/rest"
	"github.com/lernio/lernio/pkg/user"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

type googleAuthRedirect struct {
	RedirectUrl string `json:"redirectUrl"`
}

type syncSwitch interface {
	SetSyncEnabled(ctx context.Context, userId int, enabled bool) error
}

// GoogleAuth owns the OAuth grants of users. It hands out valid access tokens,
// refreshing and persisting them when they expire.
type GoogleAuth struct {
	repo        TokenRepository
	users       syncSwitch
	oauthConfig *oauth2.Config
}

func NewGoogleAuth(repo TokenRepository, users syncSwitch, cfg config.Application) *GoogleAuth {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientId,
		ClientSecret: cfg.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.Host + "/api/integrations/google/auth/callback",
		Scopes:       []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope},
	}
	return newGoogleAuth(repo, users, oauthConfig)
}

func newGoogleAuth(repo TokenRepository, users syncSwitch, oauthConfig *oauth2.Config) *GoogleAuth {
	return &GoogleAuth{repo: repo, users: users, oauthConfig: oauthConfig}
}

// GetValidToken returns an unexpired access token of the user. A missing grant or a
// refresh rejected by the provider is ErrUnauthenticated.
func (g *GoogleAuth) GetValidToken(ctx context.Context, userId int) (*oauth2.Token, error) {
	token, err := g.repo.GetToken(ctx, userId)
	if err != nil {
		return nil, err
	}
	if token == nil {
		log.Debugf("user %d has no Google grant", userId)
		return nil, ErrUnauthenticated
	}
	if token.Valid() {
		return token, nil
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: access token expired and no refresh token stored", ErrUnauthenticated)
	}

	log.Debugf("Refreshing Google access token of user %d", userId)
	refreshed, err := g.oauthConfig.TokenSource(ctx, token).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && isRejectedGrant(retrieveErr) {
			return nil, fmt.Errorf("%w: token refresh rejected: %v", ErrUnauthenticated, err)
		}
		err := fmt.Errorf("unable to refresh Google token of user %d: %w", userId, err)
		log.Error(err)
		return nil, err
	}
	if err := g.repo.SaveToken(ctx, userId, refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

// GetTokens returns the stored grant without refreshing it, or nil.
func (g *GoogleAuth) GetTokens(ctx context.Context, userId int) (*oauth2.Token, error) {
	return g.repo.GetToken(ctx, userId)
}

func (g *GoogleAuth) DisableSync(ctx context.Context, userId int) error {
	if err := g.users.SetSyncEnabled(ctx, userId, false); err != nil {
		return fmt.Errorf("failed to disable calendar sync of user %d: %w", userId, err)
	}
	log.Warnf("Calendar sync disabled for user %d, Google authorization is no longer valid", userId)
	return nil
}

// OAuthLogin godoc
// @Summary Start Google authorization
// @Tags Google
// @Produce json
// @Param finalUrl query string false "URL to return to after authorization"
// @Success 200 {object} googleAuthRedirect
// @Router /api/integrations/google/auth/login [get]
// @Security XUserId
func (g *GoogleAuth) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		log.Error("unable to retrieve current user: ", err)
		http.Error(w, "unable to retrieve current user", http.StatusInternalServerError)
		return
	}

	stateNonce := uuid.New().String()
	finalUrl := r.URL.Query().Get("finalUrl")

	if err := g.repo.StartAuthorization(r.Context(), userId, stateNonce); err != nil {
		rest.WriteError(w, http.StatusInternalServerError, "Failed to handle Google authentication")
		return
	}

	log.Tracef("Redirecting to Google auth URL with nonce: %s", stateNonce)
	u := g.oauthConfig.AuthCodeURL(finalUrl+"|"+stateNonce, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(googleAuthRedirect{RedirectUrl: u}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// OAuthCallback godoc
// @Summary Complete Google authorization
// @Tags Google
// @Param code query string true "Authorization code"
// @Param state query string true "State"
// @Success 302
// @Router /api/integrations/google/auth/callback [get]
func (g *GoogleAuth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	state := r.FormValue("state")

	parts := strings.SplitN(state, "|", 2)
	if len(parts) != 2 {
		rest.WriteError(w, http.StatusBadRequest, "Invalid state")
		return
	}
	finalUrl := parts[0]
	nonce := parts[1]

	token, err := g.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Errorf("unable to exchange code for token: %v", err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	userId, err := g.repo.CompleteAuthorization(r.Context(), nonce, token)
	if err != nil {
		log.Errorf("unable to complete Google authorization: %v", err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}
	log.Debugf("Stored Google auth token of user %d", userId)
	http.Redirect(w, r, finalUrl+"?success=true", http.StatusFound)
}

// OAuthLogout godoc
// @Summary Revoke the stored Google authorization
// @Description Calendar sync of the user is disabled as well
// @Tags Google
// @Success 204
// @Router /api/integrations/google/auth/logout [delete]
// @Security XUserId
func (g *GoogleAuth) OAuthLogout(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		log.Error("unable to retrieve current user: ", err)
		http.Error(w, "unable to retrieve current user", http.StatusInternalServerError)
		return
	}
	if err := g.repo.DeleteToken(r.Context(), userId); err != nil {
		rest.WriteError(w, http.StatusInternalServerError, "Failed to handle Google authentication")
		return
	}
	if err := g.DisableSync(r.Context(), userId); err != nil {
		log.Error(err)
	}
	w.WriteHeader(http.StatusNoContent)
}
