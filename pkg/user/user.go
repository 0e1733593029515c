package user

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserDataInvalid = errors.New("user data invalid")

type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// PrimaryCalendarId addresses the account's primary calendar on the provider.
const PrimaryCalendarId = "primary"

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Role        Role
	Settings    Settings
}

type Settings struct {
	Timezone     string
	CalendarSync CalendarSyncSettings
}

type CalendarSyncSettings struct {
	Enabled bool
	// CalendarId of the destination calendar; empty means the primary calendar.
	CalendarId   string
	LastSyncedAt *time.Time
}

// DestinationCalendarId returns the calendar mirrored events are written to.
func (u User) DestinationCalendarId() string {
	if u.Settings.CalendarSync.CalendarId == "" {
		return PrimaryCalendarId
	}
	return u.Settings.CalendarSync.CalendarId
}
