package calendar_sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lernio/lernio/pkg/google"
	"golang.org/x/oauth2"
)

type syncSwitch interface {
	SetSyncEnabled(ctx context.Context, userId int, enabled bool) error
}

func stubToken(userId int) string {
	return fmt.Sprintf("token-%d", userId)
}

// TokenProviderStub grants a token to every user that has not been revoked.
type TokenProviderStub struct {
	mu       sync.Mutex
	users    syncSwitch
	revoked  map[int]bool
	disabled []int
}

func NewTokenProviderStub(users syncSwitch) *TokenProviderStub {
	return &TokenProviderStub{users: users, revoked: make(map[int]bool)}
}

func (t *TokenProviderStub) Revoke(userId int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[userId] = true
}

func (t *TokenProviderStub) GetValidToken(ctx context.Context, userId int) (*oauth2.Token, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.revoked[userId] {
		return nil, google.ErrUnauthenticated
	}
	return &oauth2.Token{AccessToken: stubToken(userId), Expiry: time.Now().Add(time.Hour)}, nil
}

func (t *TokenProviderStub) DisableSync(ctx context.Context, userId int) error {
	t.mu.Lock()
	t.disabled = append(t.disabled, userId)
	t.mu.Unlock()
	return t.users.SetSyncEnabled(ctx, userId, false)
}

func (t *TokenProviderStub) Disabled() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.disabled...)
}
