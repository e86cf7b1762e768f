package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tkluge/tournament-server/brackets"
	"github.com/tkluge/tournament-server/repositories"
	"github.com/tkluge/tournament-server/services"
	"github.com/tkluge/tournament-server/storage"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, status int, code, message string) {
	env := jsonResponse{"error": jsonResponse{"code": code, "message": message}}
	if err := writeJSON(w, status, env); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, err error) {
	slog.Error("internal server error", slog.Any("error", err))
	errorResponse(w, http.StatusInternalServerError, "INTERNAL",
		"the server encountered a problem and could not process your request")
}

func badRequestResponse(w http.ResponseWriter, err error) {
	errorResponse(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
}

func getIDFromURL(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s URL parameter", param)
	}
	return id, nil
}

// serviceErrorCode turns a domain error into the stable machine-readable
// code clients switch on. Unknown errors fall through to INTERNAL.
var serviceErrorCodes = []struct {
	err    error
	status int
	code   string
}{
	{repositories.ErrTournamentNotFound, http.StatusNotFound, "TOURNAMENT_NOT_FOUND"},
	{repositories.ErrGameNotFound, http.StatusNotFound, "GAME_NOT_FOUND"},
	{repositories.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{repositories.ErrConcurrentModification, http.StatusConflict, "CONCURRENT_MODIFICATION"},

	{services.ErrSignUpClosed, http.StatusConflict, "SIGNUP_CLOSED"},
	{services.ErrDuplicateTeamName, http.StatusConflict, "DUPLICATE_TEAM_NAME"},
	{services.ErrDuplicatePlayer, http.StatusConflict, "DUPLICATE_PLAYER"},
	{services.ErrTooManyPlayers, http.StatusBadRequest, "TOO_MANY_PLAYERS"},
	{services.ErrTeamFull, http.StatusConflict, "TEAM_FULL"},
	{services.ErrTeamNotFound, http.StatusNotFound, "TEAM_NOT_FOUND"},
	{services.ErrPlayerNotRegistered, http.StatusNotFound, "PLAYER_NOT_REGISTERED"},
	{services.ErrPlayerNotInTeam, http.StatusForbidden, "PLAYER_NOT_IN_TEAM"},
	{services.ErrInvalidTeamName, http.StatusBadRequest, "INVALID_TEAM_NAME"},

	{services.ErrOnlyKOSupported, http.StatusBadRequest, "UNSUPPORTED_TOURNAMENT_TYPE"},
	{services.ErrInvalidTeamConfig, http.StatusBadRequest, "INVALID_TEAM_CONFIG"},
	{services.ErrInvalidTeamTarget, http.StatusBadRequest, "INVALID_TEAM_TARGET"},
	{services.ErrInvalidSignupWindow, http.StatusBadRequest, "INVALID_SIGNUP_WINDOW"},
	{services.ErrNotEnoughTeams, http.StatusConflict, "NOT_ENOUGH_TEAMS"},
	{services.ErrInvalidStatusTransition, http.StatusConflict, "INVALID_STATUS_TRANSITION"},
	{services.ErrSlotNotFound, http.StatusNotFound, "SLOT_NOT_FOUND"},
	{services.ErrSlotNotReady, http.StatusConflict, "SLOT_NOT_READY"},
	{services.ErrSlotAlreadyStarted, http.StatusConflict, "SLOT_ALREADY_STARTED"},
	{services.ErrResultAlreadyReported, http.StatusConflict, "RESULT_ALREADY_REPORTED"},
	{services.ErrWinnerNotInMatch, http.StatusBadRequest, "WINNER_NOT_IN_MATCH"},

	{brackets.ErrCreationDatesMismatch, http.StatusBadRequest, "CREATIONDATES_LENGTH_MISMATCH"},
	{brackets.ErrNotEnoughTeams, http.StatusConflict, "NOT_ENOUGH_TEAMS"},
	{brackets.ErrUnsupportedTeamsPerMatch, http.StatusBadRequest, "INVALID_TEAM_CONFIG"},

	{services.ErrAuthInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{services.ErrAuthUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
	{services.ErrAuthEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{services.ErrUnsupportedAvatarType, http.StatusBadRequest, "UNSUPPORTED_AVATAR_TYPE"},
	{storage.ErrStorageDisabled, http.StatusServiceUnavailable, "STORAGE_DISABLED"},
}

func mapServiceErrorToHTTP(w http.ResponseWriter, err error) {
	for _, entry := range serviceErrorCodes {
		if errors.Is(err, entry.err) {
			errorResponse(w, entry.status, entry.code, entry.err.Error())
			return
		}
	}
	serverErrorResponse(w, err)
}
