package handlers

import (
	"net/http"

	"github.com/tkluge/tournament-server/middleware"
	"github.com/tkluge/tournament-server/services"
)

const maxAvatarSize = 5 << 20 // 5MB

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(us services.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

// MeHandler handles GET /users/me
func (h *UserHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}); err != nil {
		serverErrorResponse(w, err)
	}
}

// RemoveAvatarHandler handles DELETE /users/me/avatar
func (h *UserHandler) RemoveAvatarHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	user, err := h.userService.RemoveAvatar(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}); err != nil {
		serverErrorResponse(w, err)
	}
}

// UploadAvatarHandler handles PUT /users/me/avatar. The image arrives as the
// raw request body; the Content-Type header selects the format.
func (h *UserHandler) UploadAvatarHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	contentType := r.Header.Get("Content-Type")
	body := http.MaxBytesReader(w, r.Body, maxAvatarSize)

	user, err := h.userService.UploadAvatar(r.Context(), userID, contentType, body)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}); err != nil {
		serverErrorResponse(w, err)
	}
}
