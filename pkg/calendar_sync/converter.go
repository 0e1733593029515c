package calendar_sync

import (
	"strings"
	"time"

	"github.com/lernio/lernio/pkg/calendar_event"
	gcal "google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

// neutralColorId is the graphite color of the provider palette.
const neutralColorId = "8"

var eventTypeColors = map[calendar_event.EventType]string{
	calendar_event.TypeLecture:     "9",  // blueberry
	calendar_event.TypeLab:         "7",  // peacock
	calendar_event.TypeAssignment:  "5",  // banana
	calendar_event.TypeExam:        "11", // tomato
	calendar_event.TypeOfficeHours: "2",  // sage
	calendar_event.TypeMeeting:     "3",  // grape
	calendar_event.TypeDeadline:    "6",  // tangerine
	calendar_event.TypeHoliday:     "10", // basil
}

func colorId(eventType calendar_event.EventType) string {
	if id, ok := eventTypeColors[eventType]; ok {
		return id
	}
	return neutralColorId
}

// ToGoogleEvent maps an internal event to the Google Calendar representation.
func ToGoogleEvent(e calendar_event.Event) *gcal.Event {
	g := &gcal.Event{
		Summary:     e.Title,
		Description: description(e),
		Location:    e.Location,
		ColorId:     colorId(e.EventType),
	}

	if e.AllDay {
		start := e.StartTime.UTC()
		end := e.EndTime.UTC()
		startDate := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		endDate := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
		// the provider treats the end date as exclusive
		if !endDate.After(startDate) {
			endDate = startDate.AddDate(0, 0, 1)
		}
		g.Start = &gcal.EventDateTime{Date: startDate.Format(dateLayout)}
		g.End = &gcal.EventDateTime{Date: endDate.Format(dateLayout)}
	} else {
		g.Start = &gcal.EventDateTime{DateTime: e.StartTime.UTC().Format(time.RFC3339), TimeZone: "UTC"}
		g.End = &gcal.EventDateTime{DateTime: e.EndTime.UTC().Format(time.RFC3339), TimeZone: "UTC"}
	}

	if e.RecurrenceRule != "" {
		g.Recurrence = []string{e.RecurrenceRule}
	}

	if e.ReminderMinutes != nil {
		g.Reminders = &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "popup", Minutes: int64(*e.ReminderMinutes)},
				{Method: "email", Minutes: int64(*e.ReminderMinutes)},
			},
			ForceSendFields: []string{"UseDefault"},
		}
	}
	return g
}

func description(e calendar_event.Event) string {
	if e.MeetingLink == "" {
		return e.Description
	}
	var b strings.Builder
	if e.Description != "" {
		b.WriteString(e.Description)
		b.WriteString("\n\n")
	}
	b.WriteString("Meeting link: ")
	b.WriteString(e.MeetingLink)
	return b.String()
}
