package calendar_sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/lernio/lernio/pkg/calendar_event"
	log "github.com/sirupsen/logrus"
)

type eventSyncer interface {
	SyncEvent(ctx context.Context, event calendar_event.Event) (BatchResult, error)
}

// Pusher runs push syncs in the background, detached from the request that
// mutated the event. Failures go to an error channel drained by a logger.
type Pusher struct {
	orchestrator eventSyncer
	errs         chan error
	mu           sync.Mutex
	closed       bool
	pending      sync.WaitGroup
	drained      chan struct{}
}

func NewPusher(orchestrator eventSyncer) *Pusher {
	p := &Pusher{
		orchestrator: orchestrator,
		errs:         make(chan error, 64),
		drained:      make(chan struct{}),
	}
	go p.logErrors()
	return p
}

// Push starts mirroring event to its audience and returns immediately.
func (p *Pusher) Push(ctx context.Context, event calendar_event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		log.Warnf("push sync of event %d dropped, pusher is closed", event.Id)
		return
	}
	p.pending.Add(1)

	detached := context.WithoutCancel(ctx)
	go func() {
		defer p.pending.Done()
		result, err := p.orchestrator.SyncEvent(detached, event)
		if err != nil {
			p.errs <- fmt.Errorf("push sync of event %d failed: %w", event.Id, err)
			return
		}
		for _, itemErr := range result.Errors {
			p.errs <- fmt.Errorf("push sync of event %d to user %d failed: %s", itemErr.EventId, itemErr.UserId, itemErr.Message)
		}
	}()
}

// Close waits for running pushes and stops the error logger.
func (p *Pusher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.pending.Wait()
	close(p.errs)
	<-p.drained
}

func (p *Pusher) logErrors() {
	defer close(p.drained)
	for err := range p.errs {
		log.Error(err)
	}
}
