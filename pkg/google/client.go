package google

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// EventsAPI is the part of the Google Calendar API used to mirror events.
// Errors are classified: ErrUnauthenticated, ErrNotFound or *RateLimitError.
type EventsAPI interface {
	CreateEvent(ctx context.Context, calendarId string, event *gcal.Event) (*gcal.Event, error)
	UpdateEvent(ctx context.Context, calendarId string, eventId string, event *gcal.Event) (*gcal.Event, error)
	DeleteEvent(ctx context.Context, calendarId string, eventId string) error
}

type CalendarItem struct {
	ID      string
	Summary string
	Primary bool
}

// Client talks to the Google Calendar API on behalf of one user.
type Client struct {
	service *gcal.Service
	retry   RetryConfig
	now     func() time.Time
}

type ClientFactoryImpl struct {
	retry   RetryConfig
	options []option.ClientOption
}

// NewClientFactory builds clients retrying rate limited calls per retry. Extra options
// are appended to every client, e.g. a custom endpoint.
func NewClientFactory(retry RetryConfig, options ...option.ClientOption) *ClientFactoryImpl {
	return &ClientFactoryImpl{retry: retry, options: options}
}

func (f *ClientFactoryImpl) CreateClient(ctx context.Context, token *oauth2.Token) (EventsAPI, error) {
	return f.NewClient(ctx, token)
}

func (f *ClientFactoryImpl) NewClient(ctx context.Context, token *oauth2.Token) (*Client, error) {
	options := append([]option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(token))}, f.options...)
	service, err := gcal.NewService(context.WithoutCancel(ctx), options...)
	if err != nil {
		err := fmt.Errorf("unable to create Calendar client: %w", err)
		log.Error(err)
		return nil, err
	}
	return &Client{service: service, retry: f.retry, now: time.Now}, nil
}

func (c *Client) CreateEvent(ctx context.Context, calendarId string, event *gcal.Event) (*gcal.Event, error) {
	return RetryWithBackoff(ctx, c.retry, func() (*gcal.Event, error) {
		created, err := c.service.Events.Insert(calendarId, event).Context(ctx).Do()
		return created, classifyError(err, c.now())
	})
}

func (c *Client) UpdateEvent(ctx context.Context, calendarId string, eventId string, event *gcal.Event) (*gcal.Event, error) {
	return RetryWithBackoff(ctx, c.retry, func() (*gcal.Event, error) {
		updated, err := c.service.Events.Update(calendarId, eventId, event).Context(ctx).Do()
		return updated, classifyError(err, c.now())
	})
}

func (c *Client) DeleteEvent(ctx context.Context, calendarId string, eventId string) error {
	_, err := RetryWithBackoff(ctx, c.retry, func() (struct{}, error) {
		err := c.service.Events.Delete(calendarId, eventId).Context(ctx).Do()
		return struct{}{}, classifyError(err, c.now())
	})
	return err
}

func (c *Client) ListCalendars(ctx context.Context) ([]CalendarItem, error) {
	list, err := RetryWithBackoff(ctx, c.retry, func() (*gcal.CalendarList, error) {
		list, err := c.service.CalendarList.List().MinAccessRole("writer").Context(ctx).Do()
		return list, classifyError(err, c.now())
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendars from Google Calendar: %w", err)
	}
	calendars := make([]CalendarItem, 0, len(list.Items))
	for _, cal := range list.Items {
		calendars = append(calendars, CalendarItem{
			ID:      cal.Id,
			Summary: cal.Summary,
			Primary: cal.Primary,
		})
	}
	return calendars, nil
}
