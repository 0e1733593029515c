package calendar_sync

import (
	"github.com/lernio/lernio/internal/event_bus"
	"github.com/lernio/lernio/pkg/calendar_event"
)

// Subscribe mirrors calendar event mutations published on the bus. Created and
// updated events are pushed in the background; deletions are propagated before
// the event record disappears. Handlers never fail the publisher.
func Subscribe(bus *event_bus.EventBus, pusher *Pusher, deletions *DeletionPropagator) {
	push := func(e event_bus.EventT[calendar_event.Event]) error {
		pusher.Push(e.Context(), e.Data)
		return nil
	}
	event_bus.SubscribeTyped(bus, event_bus.CalendarEventCreated, push)
	event_bus.SubscribeTyped(bus, event_bus.CalendarEventUpdated, push)
	event_bus.SubscribeTyped(bus, event_bus.CalendarEventDeleting, func(e event_bus.EventT[calendar_event.Event]) error {
		deletions.Propagate(e.Context(), e.Data)
		return nil
	})
}
