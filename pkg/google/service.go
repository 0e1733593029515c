package google

import (
	"context"
	"fmt"

	"github.com/lernio/lernio/pkg/user"
)

type Service interface {
	ListCalendars(ctx context.Context) ([]CalendarItem, error)
}

type ServiceImpl struct {
	auth    *GoogleAuth
	clients *ClientFactoryImpl
}

func NewService(auth *GoogleAuth, clients *ClientFactoryImpl) *ServiceImpl {
	return &ServiceImpl{
		auth:    auth,
		clients: clients,
	}
}

// ListCalendars returns the calendars of the current user that mirrored events can be written to.
func (s *ServiceImpl) ListCalendars(ctx context.Context) ([]CalendarItem, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	token, err := s.auth.GetValidToken(ctx, userId)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.NewClient(ctx, token)
	if err != nil {
		return nil, err
	}
	return client.ListCalendars(ctx)
}
