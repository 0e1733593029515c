package calendar_sync

import (
	"context"

	"github.com/lernio/lernio/pkg/calendar_event"
	log "github.com/sirupsen/logrus"
)

type DeletionResult struct {
	Removed int
	Failed  int
}

// DeletionPropagator removes the mirrored copies of an event that is being deleted.
type DeletionPropagator struct {
	syncer   *Syncer
	bindings BindingRepository
}

func NewDeletionPropagator(syncer *Syncer, bindings BindingRepository) *DeletionPropagator {
	return &DeletionPropagator{syncer: syncer, bindings: bindings}
}

// Propagate deletes the copy behind every recorded binding of the event. Copies
// already gone count as removed. Failures are logged only; the caller proceeds
// with the internal delete regardless.
func (d *DeletionPropagator) Propagate(ctx context.Context, event calendar_event.Event) DeletionResult {
	var result DeletionResult
	bindings, err := d.bindings.GetEventBindings(ctx, event.Id)
	if err != nil {
		log.Errorf("failed to get bindings of deleted event %d: %v", event.Id, err)
		return result
	}

	for _, binding := range bindings {
		if err := d.syncer.Remove(ctx, binding); err != nil {
			log.Errorf("failed to delete mirrored copy of event %d for user %d: %v", event.Id, binding.UserId, err)
			result.Failed++
			continue
		}
		result.Removed++
	}
	if len(bindings) > 0 {
		log.Infof("Deletion of event %d propagated: %d removed, %d failed", event.Id, result.Removed, result.Failed)
	}
	return result
}
