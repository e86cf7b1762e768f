package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tkluge/tournament-server/middleware"
	"github.com/tkluge/tournament-server/models"
	"github.com/tkluge/tournament-server/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(rs services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: rs}
}

// RegisterTeamHandler handles POST /tournaments/{tournamentID}/teams
func (h *RegistrationHandler) RegisterTeamHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		Name    string   `json:"name"`
		Players []string `json:"players"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.registrationService.RegisterTeam(r.Context(), tournamentID, input.Name, input.Players, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

// JoinTeamHandler handles POST /tournaments/{tournamentID}/teams/{teamName}/join
func (h *RegistrationHandler) JoinTeamHandler(w http.ResponseWriter, r *http.Request) {
	h.teamAction(w, r, h.registrationService.JoinTeam)
}

// ActivateHandler handles POST /tournaments/{tournamentID}/teams/{teamName}/activate
func (h *RegistrationHandler) ActivateHandler(w http.ResponseWriter, r *http.Request) {
	h.teamAction(w, r, h.registrationService.Activate)
}

// DeclineHandler handles POST /tournaments/{tournamentID}/teams/{teamName}/decline
func (h *RegistrationHandler) DeclineHandler(w http.ResponseWriter, r *http.Request) {
	h.teamAction(w, r, h.registrationService.Decline)
}

// LeaveHandler handles POST /tournaments/{tournamentID}/leave
func (h *RegistrationHandler) LeaveHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, _, err := h.registrationService.LeaveTournament(r.Context(), tournamentID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

// RemovePlayerHandler handles DELETE /tournaments/{tournamentID}/teams/{teamName}/players
func (h *RegistrationHandler) RemovePlayerHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	teamName := teamNameFromURL(r)
	var input struct {
		Username string `json:"username"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.registrationService.RemovePlayer(r.Context(), tournamentID, userID, input.Username, teamName)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

type teamActionFunc func(ctx context.Context, tournamentID int, teamName string, userID int) (*models.Tournament, error)

func (h *RegistrationHandler) teamAction(w http.ResponseWriter, r *http.Request, action teamActionFunc) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := action(r.Context(), tournamentID, teamNameFromURL(r), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

func teamNameFromURL(r *http.Request) string {
	return chi.URLParam(r, "teamName")
}
