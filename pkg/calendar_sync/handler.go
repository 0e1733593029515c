package calendar_sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lernio/lernio/internal/rest"
	"github.com/lernio/lernio/pkg/calendar_event"
	"github.com/lernio/lernio/pkg/user"
	log "github.com/sirupsen/logrus"
)

type ItemErrorDTO struct {
	EventId int    `json:"eventId"`
	Message string `json:"message"`
}

type BatchResultDTO struct {
	Total   int            `json:"total"`
	Created int            `json:"created"`
	Updated int            `json:"updated"`
	Skipped int            `json:"skipped"`
	Failed  int            `json:"failed"`
	Message string         `json:"message"`
	Errors  []ItemErrorDTO `json:"errors"`
}

type Handler struct {
	orchestrator *Orchestrator
	resolver     *Resolver
	// syncTimeout replaces the server write timeout for a pull sync request.
	syncTimeout time.Duration
}

func NewHandler(orchestrator *Orchestrator, resolver *Resolver, syncTimeout time.Duration) *Handler {
	return &Handler{orchestrator: orchestrator, resolver: resolver, syncTimeout: syncTimeout}
}

// SyncCurrentUser godoc
// @Summary Sync all visible events to the external calendar of the current user
// @Tags CalendarSync
// @Produce json
// @Success 200 {object} BatchResultDTO
// @Failure 409 {object} rest.ErrorResponse "Calendar sync disabled"
// @Router /api/calendar/sync [post]
// @Security XUserId
func (h *Handler) SyncCurrentUser(w http.ResponseWriter, r *http.Request) {
	currentUser, err := user.CurrentUser(r.Context())
	if err != nil {
		http.Error(w, "User not found", http.StatusForbidden)
		return
	}
	userId := currentUser.Id
	if !currentUser.Settings.CalendarSync.Enabled {
		rest.WriteError(w, http.StatusConflict, "Calendar sync is disabled")
		return
	}

	// chunk pauses and rate limit backoff easily outlast the server write timeout
	if h.syncTimeout > 0 {
		err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(h.syncTimeout))
		if err != nil && !errors.Is(err, http.ErrNotSupported) {
			log.Warnf("failed to extend write deadline of calendar sync request: %v", err)
		}
	}

	// a started batch runs to completion even if the client goes away
	result, err := h.orchestrator.SyncUser(context.WithoutCancel(r.Context()), userId)
	if err != nil {
		log.Errorf("calendar sync of user %d failed: %v", userId, err)
		rest.WriteError(w, http.StatusInternalServerError, "Calendar sync failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(batchResultToDTO(result)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetVisibleEvents godoc
// @Summary List calendar events visible to the current user
// @Tags CalendarEvent
// @Produce json
// @Success 200 {array} calendar_event.EventDTO
// @Router /api/calendar/event [get]
// @Security XUserId
func (h *Handler) GetVisibleEvents(w http.ResponseWriter, r *http.Request) {
	currentUser, err := user.CurrentUser(r.Context())
	if err != nil {
		http.Error(w, "User not found", http.StatusForbidden)
		return
	}
	events, err := h.resolver.EventsVisibleToUser(r.Context(), currentUser)
	if err != nil {
		log.Errorf("failed to resolve events of user %d: %v", currentUser.Id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]calendar_event.EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, calendar_event.EventToDTO(e))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func batchResultToDTO(r BatchResult) BatchResultDTO {
	errs := make([]ItemErrorDTO, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, ItemErrorDTO{EventId: e.EventId, Message: e.Message})
	}
	return BatchResultDTO{
		Total:   r.Total,
		Created: r.Created,
		Updated: r.Updated,
		Skipped: r.Skipped,
		Failed:  r.Failed,
		Message: r.Summary(),
		Errors:  errs,
	}
}
