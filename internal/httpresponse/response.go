// Package httpresponse writes the JSON bodies shared by every handler of the
// portal API.
package httpresponse

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Body is the canonical error payload.
type Body struct {
	Timestamp      string `json:"timestamp"`
	HTTPStatusCode int    `json:"httpStatusCode"`
	HTTPStatus     string `json:"httpStatus"`
	Reason         string `json:"reason"`
	Message        string `json:"message"`
}

func New(status int, message string) Body {
	text := http.StatusText(status)
	return Body{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		HTTPStatusCode: status,
		HTTPStatus:     strings.ToUpper(strings.ReplaceAll(text, " ", "_")),
		Reason:         strings.ToUpper(text),
		Message:        message,
	}
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, New(status, message))
}
