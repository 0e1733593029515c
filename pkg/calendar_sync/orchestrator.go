package calendar_sync

import (
	"context"
	"fmt"
	"time"

	"github.com/lernio/lernio/internal/utils"
	"github.com/lernio/lernio/pkg/calendar_event"
	"github.com/lernio/lernio/pkg/user"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type ItemError struct {
	EventId int
	UserId  int
	Message string
}

// BatchResult summarizes one pull or push run.
type BatchResult struct {
	Total   int
	Created int
	Updated int
	Skipped int
	Failed  int
	Errors  []ItemError
}

func (r BatchResult) Summary() string {
	if r.Failed == 0 {
		return fmt.Sprintf("%d events synced", r.Total)
	}
	return fmt.Sprintf("%d of %d events failed to sync", r.Failed, r.Total)
}

func (r *BatchResult) add(result SyncResult) {
	r.Total++
	switch result.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeSkipped:
		r.Skipped++
	default:
		r.Failed++
		message := "unknown error"
		if result.Err != nil {
			message = result.Err.Error()
		}
		r.Errors = append(r.Errors, ItemError{EventId: result.EventId, UserId: result.UserId, Message: message})
	}
}

type syncStateWriter interface {
	SetLastSyncedAt(ctx context.Context, userId int, at time.Time) error
}

type workItem struct {
	userId int
	event  calendar_event.Event
}

type OrchestratorConfig struct {
	ChunkSize  int
	ChunkPause time.Duration
}

// Orchestrator drives the Syncer over many (user, event) pairs in chunks. Items of
// one chunk run concurrently; a chunk and its pause complete before the next starts.
type Orchestrator struct {
	resolver *Resolver
	syncer   *Syncer
	users    userReader
	state    syncStateWriter
	bindings BindingRepository
	clock    utils.Clock
	cfg      OrchestratorConfig
}

func NewOrchestrator(
	resolver *Resolver,
	syncer *Syncer,
	users userReader,
	state syncStateWriter,
	bindings BindingRepository,
	clock utils.Clock,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 10
	}
	return &Orchestrator{
		resolver: resolver,
		syncer:   syncer,
		users:    users,
		state:    state,
		bindings: bindings,
		clock:    clock,
		cfg:      cfg,
	}
}

// SyncUser mirrors every event visible to the user into their calendar. The last
// sync time of the user is recorded even when some items fail. Users with sync
// turned off get an empty result.
func (o *Orchestrator) SyncUser(ctx context.Context, userId int) (BatchResult, error) {
	u, err := o.users.GetUser(ctx, userId)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to get user %d: %w", userId, err)
	}
	if !u.Settings.CalendarSync.Enabled {
		log.Debugf("Pull sync of user %d skipped, calendar sync is disabled", userId)
		return BatchResult{Errors: []ItemError{}}, nil
	}

	events, err := o.resolver.EventsVisibleToUser(ctx, u)
	if err != nil {
		return BatchResult{}, err
	}
	items := make([]workItem, 0, len(events))
	for _, e := range events {
		items = append(items, workItem{userId: userId, event: e})
	}

	log.Infof("Pull sync of user %d started, %d events", userId, len(items))
	result := o.run(ctx, items)

	if err := o.state.SetLastSyncedAt(ctx, userId, o.clock.Now()); err != nil {
		log.Errorf("failed to record last sync time of user %d: %v", userId, err)
	}
	log.Infof("Pull sync of user %d finished: %s", userId, result.Summary())
	return result, nil
}

// SyncEvent mirrors the event into the calendars of its whole audience and removes
// copies held by users who can no longer see it.
func (o *Orchestrator) SyncEvent(ctx context.Context, event calendar_event.Event) (BatchResult, error) {
	audience, err := o.resolver.UsersWhoShouldSeeEvent(ctx, event)
	if err != nil {
		return BatchResult{}, err
	}
	items := make([]workItem, 0, len(audience))
	for _, u := range audience {
		items = append(items, workItem{userId: u.Id, event: event})
	}

	log.Debugf("Push sync of event %d started, audience of %d users", event.Id, len(items))
	result := o.run(ctx, items)
	o.pruneStale(ctx, event, audience)
	log.Debugf("Push sync of event %d finished: %s", event.Id, result.Summary())
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, items []workItem) BatchResult {
	result := BatchResult{Errors: []ItemError{}}
	for start := 0; start < len(items); start += o.cfg.ChunkSize {
		end := min(start+o.cfg.ChunkSize, len(items))
		chunk := items[start:end]

		outcomes := make([]SyncResult, len(chunk))
		var g errgroup.Group
		for i, item := range chunk {
			g.Go(func() error {
				outcomes[i] = o.syncer.Sync(ctx, item.userId, item.event)
				return nil
			})
		}
		_ = g.Wait()

		for _, outcome := range outcomes {
			if outcome.Err != nil {
				log.Warnf("sync of event %d for user %d failed: %v", outcome.EventId, outcome.UserId, outcome.Err)
			}
			result.add(outcome)
		}

		if end < len(items) && o.cfg.ChunkPause > 0 {
			time.Sleep(o.cfg.ChunkPause)
		}
	}
	return result
}

func (o *Orchestrator) pruneStale(ctx context.Context, event calendar_event.Event, audience []user.User) {
	bindings, err := o.bindings.GetEventBindings(ctx, event.Id)
	if err != nil {
		log.Errorf("failed to get bindings of event %d: %v", event.Id, err)
		return
	}
	members := make(map[int]struct{}, len(audience))
	for _, u := range audience {
		members[u.Id] = struct{}{}
	}

	for _, binding := range bindings {
		if _, ok := members[binding.UserId]; ok {
			continue
		}
		u, err := o.users.GetUser(ctx, binding.UserId)
		if err != nil {
			log.Errorf("failed to get user %d of stale binding: %v", binding.UserId, err)
			continue
		}
		visible, err := o.resolver.CanSee(ctx, u, event)
		if err != nil {
			log.Errorf("failed to check visibility of event %d for user %d: %v", event.Id, u.Id, err)
			continue
		}
		if visible {
			// still visible, only the sync flag of the user is off
			continue
		}
		log.Debugf("Event %d no longer visible to user %d, removing mirrored copy", event.Id, u.Id)
		if err := o.syncer.Remove(ctx, binding); err != nil {
			log.Errorf("failed to remove mirrored copy of event %d for user %d: %v", event.Id, u.Id, err)
		}
	}
}
