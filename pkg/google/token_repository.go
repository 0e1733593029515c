package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

var ErrUnknownNonce = errors.New("unknown Google auth state")

type TokenRepository interface {
	// GetToken returns the stored grant of the user or nil when there is none.
	GetToken(ctx context.Context, userId int) (*oauth2.Token, error)
	SaveToken(ctx context.Context, userId int, token *oauth2.Token) error
	// StartAuthorization replaces any grant of the user with a pending one identified by nonce.
	StartAuthorization(ctx context.Context, userId int, nonce string) error
	// CompleteAuthorization stores the token of a pending grant and returns its user.
	CompleteAuthorization(ctx context.Context, nonce string, token *oauth2.Token) (int, error)
	DeleteToken(ctx context.Context, userId int) error
}

type TokenRepositoryImpl struct {
	db *pgxpool.Pool
}

func NewTokenRepository(db *pgxpool.Pool) *TokenRepositoryImpl {
	return &TokenRepositoryImpl{db: db}
}

func (r *TokenRepositoryImpl) GetToken(ctx context.Context, userId int) (*oauth2.Token, error) {
	var accessToken, refreshToken *string
	var expiry *int64
	err := r.db.QueryRow(ctx,
		"SELECT access_token, refresh_token, expiry FROM google_calendar_auth WHERE user_id = $1", userId).
		Scan(&accessToken, &refreshToken, &expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("unable to retrieve Google auth token: %w", err)
		log.Error(err)
		return nil, err
	}
	if accessToken == nil {
		// authorization started but never completed
		return nil, nil
	}

	token := &oauth2.Token{AccessToken: *accessToken, TokenType: "Bearer"}
	if refreshToken != nil {
		token.RefreshToken = *refreshToken
	}
	if expiry != nil && *expiry > 0 {
		token.Expiry = time.Unix(*expiry, 0)
	}
	return token, nil
}

func (r *TokenRepositoryImpl) SaveToken(ctx context.Context, userId int, token *oauth2.Token) error {
	_, err := r.db.Exec(ctx,
		`UPDATE google_calendar_auth
		 SET access_token = $1, refresh_token = COALESCE(NULLIF($2, ''), refresh_token), expiry = $3
		 WHERE user_id = $4`,
		token.AccessToken, token.RefreshToken, expiryUnix(token), userId)
	if err != nil {
		err := fmt.Errorf("unable to store Google auth token for user %d: %w", userId, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *TokenRepositoryImpl) StartAuthorization(ctx context.Context, userId int, nonce string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO google_calendar_auth (user_id, nonce) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET nonce = EXCLUDED.nonce, access_token = NULL, refresh_token = NULL, expiry = NULL`,
		userId, nonce)
	if err != nil {
		err := fmt.Errorf("failed to store Google auth nonce for user %d: %w", userId, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *TokenRepositoryImpl) CompleteAuthorization(ctx context.Context, nonce string, token *oauth2.Token) (int, error) {
	var userId int
	err := r.db.QueryRow(ctx,
		`UPDATE google_calendar_auth SET access_token = $1, refresh_token = $2, expiry = $3
		 WHERE nonce = $4 RETURNING user_id`,
		token.AccessToken, token.RefreshToken, expiryUnix(token), nonce).Scan(&userId)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUnknownNonce
	} else if err != nil {
		err := fmt.Errorf("unable to store Google auth token for nonce: %w", err)
		log.Error(err)
		return 0, err
	}
	return userId, nil
}

func (r *TokenRepositoryImpl) DeleteToken(ctx context.Context, userId int) error {
	_, err := r.db.Exec(ctx, "DELETE FROM google_calendar_auth WHERE user_id = $1", userId)
	if err != nil {
		err := fmt.Errorf("failed to delete Google auth row for user %d: %w", userId, err)
		log.Error(err)
		return err
	}
	return nil
}

func expiryUnix(token *oauth2.Token) int64 {
	if token.Expiry.IsZero() {
		return 0
	}
	return token.Expiry.Unix()
}
