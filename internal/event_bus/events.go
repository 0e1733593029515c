package event_bus

// Calendar event lifecycle. The payload of each is a calendar_event.Event.
const (
	CalendarEventCreated EventType = "calendar_event.created"
	CalendarEventUpdated EventType = "calendar_event.updated"
	// CalendarEventDeleting is published synchronously before the internal record
	// is removed, so subscribers can still read the event and its bindings.
	CalendarEventDeleting EventType = "calendar_event.deleting"
)
