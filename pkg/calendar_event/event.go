package calendar_event

import (
	"errors"
	"time"

	"github.com/lernio/lernio/pkg/user"
)

var ErrEventNotFound = errors.New("calendar event not found")
var ErrEventInvalid = errors.New("calendar event invalid")
var ErrInvalidRecurrence = errors.New("invalid recurrence rule")
var ErrForbidden = errors.New("not allowed to modify calendar event")

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityCourse  Visibility = "COURSE"
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityCustom  Visibility = "CUSTOM"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityCourse, VisibilityPrivate, VisibilityCustom:
		return true
	}
	return false
}

// EventType tags an event for color coding in the external calendar.
type EventType string

const (
	TypeLecture     EventType = "LECTURE"
	TypeLab         EventType = "LAB"
	TypeAssignment  EventType = "ASSIGNMENT"
	TypeExam        EventType = "EXAM"
	TypeOfficeHours EventType = "OFFICE_HOURS"
	TypeMeeting     EventType = "MEETING"
	TypeDeadline    EventType = "DEADLINE"
	TypeHoliday     EventType = "HOLIDAY"
	TypeOther       EventType = "OTHER"
)

// Event is a calendar entry owned by the platform. Empty strings stand for absent
// optional text fields.
type Event struct {
	Id             int
	Title          string
	Description    string
	Location       string
	MeetingLink    string
	StartTime      time.Time
	EndTime        time.Time
	AllDay         bool
	RecurrenceRule string
	EventType      EventType
	Visibility     Visibility
	CourseId       *int
	AttendeeIds    []int
	// ReminderMinutes is the lead time of the reminder, nil when none is wanted.
	ReminderMinutes *int
	CreatorId       int
	CreatorRole     user.Role
}

func (e Event) HasAttendee(userId int) bool {
	for _, id := range e.AttendeeIds {
		if id == userId {
			return true
		}
	}
	return false
}
