package google

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

type TokenRepositoryStub struct {
	mu      sync.RWMutex
	tokens  map[int]oauth2.Token
	pending map[string]int // nonce -> userId
}

func NewTokenRepositoryStub() *TokenRepositoryStub {
	return &TokenRepositoryStub{
		tokens:  make(map[int]oauth2.Token),
		pending: make(map[string]int),
	}
}

func (r *TokenRepositoryStub) GetToken(ctx context.Context, userId int) (*oauth2.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[userId]
	if !ok {
		return nil, nil
	}
	return &token, nil
}

func (r *TokenRepositoryStub) SaveToken(ctx context.Context, userId int, token *oauth2.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *token
	if stored.RefreshToken == "" {
		stored.RefreshToken = r.tokens[userId].RefreshToken
	}
	r.tokens[userId] = stored
	return nil
}

func (r *TokenRepositoryStub) StartAuthorization(ctx context.Context, userId int, nonce string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, userId)
	r.pending[nonce] = userId
	return nil
}

func (r *TokenRepositoryStub) CompleteAuthorization(ctx context.Context, nonce string, token *oauth2.Token) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userId, ok := r.pending[nonce]
	if !ok {
		return 0, ErrUnknownNonce
	}
	delete(r.pending, nonce)
	r.tokens[userId] = *token
	return userId, nil
}

func (r *TokenRepositoryStub) DeleteToken(ctx context.Context, userId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, userId)
	return nil
}
