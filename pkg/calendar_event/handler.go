package calendar_event

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/lernio/lernio/internal/rest"
	"github.com/lernio/lernio/pkg/user"
	log "github.com/sirupsen/logrus"
)

type EventDTO struct {
	Id              int        `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Location        string     `json:"location,omitempty"`
	MeetingLink     string     `json:"meetingLink,omitempty"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         time.Time  `json:"endTime"`
	AllDay          bool       `json:"allDay"`
	RecurrenceRule  string     `json:"recurrenceRule,omitempty"`
	EventType       EventType  `json:"eventType"`
	Visibility      Visibility `json:"visibility"`
	CourseId        *int       `json:"courseId,omitempty"`
	AttendeeIds     []int      `json:"attendeeIds"`
	ReminderMinutes *int       `json:"reminderMinutes,omitempty"`
	CreatorId       int        `json:"creatorId"`
	CreatorRole     user.Role  `json:"creatorRole"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateEvent godoc
// @Summary Create a calendar event
// @Description The event is mirrored to the external calendars of its audience in the background
// @Tags CalendarEvent
// @Accept json
// @Produce json
// @Param event body EventDTO true "Calendar event"
// @Success 201 {object} EventDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid event"
// @Router /api/calendar/event [post]
// @Security XUserId
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var dto EventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}

	created, err := h.service.CreateEvent(r.Context(), DTOToEvent(dto))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeEvent(w, http.StatusCreated, created)
}

// GetEvent godoc
// @Summary Get a calendar event
// @Tags CalendarEvent
// @Produce json
// @Param eventId path int true "Event ID"
// @Success 200 {object} EventDTO
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/calendar/event/{eventId} [get]
// @Security XUserId
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventId, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	event, err := h.service.GetEvent(r.Context(), eventId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeEvent(w, http.StatusOK, event)
}

// UpdateEvent godoc
// @Summary Update a calendar event
// @Description Only the creator or an admin may update an event
// @Tags CalendarEvent
// @Accept json
// @Produce json
// @Param eventId path int true "Event ID"
// @Param event body EventDTO true "Calendar event"
// @Success 200 {object} EventDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid event"
// @Failure 403 {object} rest.ErrorResponse "Not allowed"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/calendar/event/{eventId} [put]
// @Security XUserId
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventId, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	var dto EventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}
	event := DTOToEvent(dto)
	event.Id = eventId

	updated, err := h.service.UpdateEvent(r.Context(), event)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeEvent(w, http.StatusOK, updated)
}

// DeleteEvent godoc
// @Summary Delete a calendar event
// @Description Mirrored copies are removed from external calendars before the event is deleted
// @Tags CalendarEvent
// @Param eventId path int true "Event ID"
// @Success 204
// @Failure 403 {object} rest.ErrorResponse "Not allowed"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/calendar/event/{eventId} [delete]
// @Security XUserId
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventId, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEvent(r.Context(), eventId); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func eventIdFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	eventId, err := strconv.Atoi(mux.Vars(r)["eventId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event id")
		return 0, false
	}
	return eventId, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case IsValidationError(err):
		rest.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, ErrForbidden):
		rest.WriteError(w, http.StatusForbidden, "Not allowed to modify this event")
	case errors.Is(err, user.ErrNoUser):
		http.Error(w, "User not found", http.StatusForbidden)
	default:
		log.Errorf("calendar event request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeEvent(w http.ResponseWriter, status int, event Event) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(EventToDTO(event)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func EventToDTO(e Event) EventDTO {
	attendees := e.AttendeeIds
	if attendees == nil {
		attendees = []int{}
	}
	return EventDTO{
		Id:              e.Id,
		Title:           e.Title,
		Description:     e.Description,
		Location:        e.Location,
		MeetingLink:     e.MeetingLink,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		AllDay:          e.AllDay,
		RecurrenceRule:  e.RecurrenceRule,
		EventType:       e.EventType,
		Visibility:      e.Visibility,
		CourseId:        e.CourseId,
		AttendeeIds:     attendees,
		ReminderMinutes: e.ReminderMinutes,
		CreatorId:       e.CreatorId,
		CreatorRole:     e.CreatorRole,
	}
}

func DTOToEvent(dto EventDTO) Event {
	return Event{
		Id:              dto.Id,
		Title:           dto.Title,
		Description:     dto.Description,
		Location:        dto.Location,
		MeetingLink:     dto.MeetingLink,
		StartTime:       dto.StartTime,
		EndTime:         dto.EndTime,
		AllDay:          dto.AllDay,
		RecurrenceRule:  dto.RecurrenceRule,
		EventType:       dto.EventType,
		Visibility:      dto.Visibility,
		CourseId:        dto.CourseId,
		AttendeeIds:     dto.AttendeeIds,
		ReminderMinutes: dto.ReminderMinutes,
	}
}
