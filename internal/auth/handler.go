package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"user-portal/internal/httpresponse"
	"user-portal/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		httpresponse.Error(w, http.StatusBadRequest, "invalid json body")
		return
	}

	principal, token, err := h.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			httpresponse.Error(w, http.StatusBadRequest, BadCredentialsMessage)
		case errors.Is(err, ErrAccountLocked):
			httpresponse.Error(w, http.StatusUnauthorized, AccountLockedMessage)
		case errors.Is(err, ErrAccountDisabled):
			httpresponse.Error(w, http.StatusBadRequest, AccountDisabledMessage)
		default:
			observability.CaptureError(r.Context(), "login", err)
			httpresponse.Error(w, http.StatusInternalServerError, InternalErrorMessage)
		}
		return
	}

	w.Header().Set(JWTTokenHeader, token)
	httpresponse.JSON(w, http.StatusOK, principal)
}

// Me returns the principal installed by the request gate.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		WriteUnauthorized(w)
		return
	}
	httpresponse.JSON(w, http.StatusOK, principal)
}

func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PathValue("username"))
	if err := h.service.Unlock(r.Context(), username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpresponse.Error(w, http.StatusNotFound, "No user found by username: "+username)
			return
		}
		observability.CaptureError(r.Context(), "unlock", err)
		httpresponse.Error(w, http.StatusInternalServerError, InternalErrorMessage)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
