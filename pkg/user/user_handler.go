package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lernio/lernio/internal/rest"
	log "github.com/sirupsen/logrus"
)

type UserDTO struct {
	Uid         string      `json:"uid"`
	Username    string      `json:"username"`
	DisplayName string      `json:"displayName"`
	Role        Role        `json:"role"`
	Settings    SettingsDTO `json:"settings"`
}

type SettingsDTO struct {
	Timezone     string          `json:"timezone"`
	CalendarSync CalendarSyncDTO `json:"calendarSync"`
}

type CalendarSyncDTO struct {
	Enabled      bool       `json:"enabled"`
	CalendarId   string     `json:"calendarId,omitempty"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

type Handler struct {
	userService Service
}

func NewHandler(userService Service) *Handler {
	return &Handler{
		userService: userService,
	}
}

// CreateUser godoc
// @Summary Create a new user
// @Tags User
// @Accept json
// @Produce json
// @Param user body UserDTO true "User"
// @Success 201 {object} UserDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/user [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating user")

	var dto UserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}
	if len(dto.Username) == 0 {
		rest.WriteError(w, http.StatusBadRequest, "Username is required")
		return
	}
	if len(dto.DisplayName) == 0 {
		rest.WriteError(w, http.StatusBadRequest, "Display name is required")
		return
	}

	createdUser, err := h.userService.CreateUser(r.Context(), dtoToUser(dto))
	if err != nil {
		if errors.Is(err, ErrUserDataInvalid) {
			rest.WriteError(w, http.StatusBadRequest, "Invalid user data")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Tracef("Created user: %+v", createdUser)

	writeUser(w, http.StatusCreated, createdUser)
}

// CurrentUser godoc
// @Summary Get current user
// @Tags User
// @Produce json
// @Success 200 {object} UserDTO
// @Failure 403 {string} string "User not found"
// @Router /api/user/current [get]
// @Security XUserId
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	currentUser, err := h.userService.GetCurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoUser) {
			http.Error(w, "User not found", http.StatusForbidden)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeUser(w, http.StatusOK, currentUser)
}

// UpdateCalendarSync godoc
// @Summary Enable or disable external calendar sync
// @Tags User
// @Accept json
// @Produce json
// @Param settings body CalendarSyncDTO true "Calendar sync settings"
// @Success 200 {object} UserDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/user/current/calendar-sync [put]
// @Security XUserId
func (h *Handler) UpdateCalendarSync(w http.ResponseWriter, r *http.Request) {
	var dto CalendarSyncDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}
	updated, err := h.userService.UpdateCalendarSync(r.Context(), dto.Enabled, dto.CalendarId)
	if err != nil {
		if errors.Is(err, ErrNoUser) {
			http.Error(w, "User not found", http.StatusForbidden)
			return
		}
		log.Errorf("failed to update calendar sync settings: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Infof("Calendar sync for user %d set to %t", updated.Id, updated.Settings.CalendarSync.Enabled)
	writeUser(w, http.StatusOK, updated)
}

func writeUser(w http.ResponseWriter, status int, u User) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(userToDTO(u)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func userToDTO(u User) UserDTO {
	return UserDTO{
		Uid:         u.Uid,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Settings: SettingsDTO{
			Timezone: u.Settings.Timezone,
			CalendarSync: CalendarSyncDTO{
				Enabled:      u.Settings.CalendarSync.Enabled,
				CalendarId:   u.Settings.CalendarSync.CalendarId,
				LastSyncedAt: u.Settings.CalendarSync.LastSyncedAt,
			},
		},
	}
}

func dtoToUser(dto UserDTO) User {
	return User{
		Uid:         dto.Uid,
		Username:    dto.Username,
		DisplayName: dto.DisplayName,
		Role:        dto.Role,
		Settings: Settings{
			Timezone: dto.Settings.Timezone,
			CalendarSync: CalendarSyncSettings{
				Enabled:    dto.Settings.CalendarSync.Enabled,
				CalendarId: dto.Settings.CalendarSync.CalendarId,
			},
		},
	}
}
