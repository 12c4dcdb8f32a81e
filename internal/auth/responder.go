package auth

import (
	"net/http"

	"user-portal/internal/httpresponse"
)

const (
	ForbiddenMessage       = "You need to login to access this page"
	AccessDeniedMessage    = "You do not have permission to access this page"
	AccountLockedMessage   = "Your account has been locked. Please contact administration"
	AccountDisabledMessage = "Your account has been disabled. If this is an error, please contact administration"
	BadCredentialsMessage  = "Username / password incorrect. Please try again"
	InternalErrorMessage   = "An error occurred while processing the request"
)

// WriteUnauthorized answers a request that reached a protected route
// without an authenticated principal. The body is identical for every cause.
func WriteUnauthorized(w http.ResponseWriter) {
	httpresponse.Error(w, http.StatusUnauthorized, ForbiddenMessage)
}

// WriteAccessDenied answers an authenticated request lacking an authority.
func WriteAccessDenied(w http.ResponseWriter) {
	httpresponse.Error(w, http.StatusForbidden, AccessDeniedMessage)
}
