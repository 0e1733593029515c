package calendar_sync

import (
	"context"
	"time"

	"github.com/lernio/lernio/pkg/user"
	log "github.com/sirupsen/logrus"
)

type userSyncer interface {
	SyncUser(ctx context.Context, userId int) (BatchResult, error)
}

type syncEnabledUsers interface {
	GetSyncEnabledUsers(ctx context.Context) ([]user.User, error)
}

// Scheduler runs pull sync for every sync-enabled user on a fixed interval.
type Scheduler struct {
	orchestrator userSyncer
	users        syncEnabledUsers
	interval     time.Duration
	notifyCh     chan struct{}
}

func NewScheduler(orchestrator userSyncer, users syncEnabledUsers, interval time.Duration) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		users:        users,
		interval:     interval,
		notifyCh:     make(chan struct{}, 1),
	}
}

// Notify triggers an immediate run. Non-blocking if a run is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		log.Info("Calendar sync scheduler disabled")
		return
	}
	log.Infof("Calendar sync scheduler started, interval %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Calendar sync scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.notifyCh:
			log.Debug("Calendar sync scheduler triggered by notification")
			s.RunOnce(ctx)
		}
	}
}

// RunOnce pulls the calendars of all sync-enabled users one after another.
func (s *Scheduler) RunOnce(ctx context.Context) {
	users, err := s.users.GetSyncEnabledUsers(ctx)
	if err != nil {
		log.Errorf("scheduled calendar sync: failed to get users: %v", err)
		return
	}
	for _, u := range users {
		if ctx.Err() != nil {
			return
		}
		result, err := s.orchestrator.SyncUser(ctx, u.Id)
		if err != nil {
			log.Errorf("scheduled calendar sync of user %d failed: %v", u.Id, err)
			continue
		}
		if result.Failed > 0 {
			log.Warnf("scheduled calendar sync of user %d: %s", u.Id, result.Summary())
		}
	}
}
