package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"
	"time"

	"TODOLIST_BACK-END/internal/dto"
)

// Request decoding errors. The response has already been written when one is returned.
var (
	ErrNotJSON      = errors.New("content type is not json")
	ErrEmptyBody    = errors.New("request body is empty")
	ErrInvalidBody  = errors.New("request body is invalid")
	ErrBodyTooLarge = errors.New("request body too large")
)

// WriteJSONResponse writes a JSON response to the HTTP response writer
func WriteJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("write response: %v", err)
	}
}

// WriteErrorResponse writes the standard {error, message} envelope
func WriteErrorResponse(w http.ResponseWriter, status int, errMsg, message string) {
	WriteJSONResponse(w, status, dto.ErrorResponse{Error: errMsg, Message: message})
}

// IsJSONRequest reports whether the declared content type is application/json or a +json type
func IsJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// RequireJSON writes a 400 and returns false when the request is not JSON
func RequireJSON(w http.ResponseWriter, r *http.Request) bool {
	if !IsJSONRequest(r) {
		WriteErrorResponse(w, http.StatusBadRequest, "Content-Type must be application/json", "")
		return false
	}
	return true
}

// DecodeJSONRequest checks the content type and decodes the body into dst.
// A body with no data (empty, null, false, 0, "", [] or {}) is rejected with "No data provided".
// On error the response is already written.
func DecodeJSONRequest(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return decodeJSON(w, r, dst, true)
}

// DecodeJSONBody is DecodeJSONRequest without the no-data check, for handlers that
// report missing fields themselves. An empty body or null is still an invalid body.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return decodeJSON(w, r, dst, false)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, requireData bool) error {
	if !RequireJSON(w, r) {
		return ErrNotJSON
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large", err.Error())
			return ErrBodyTooLarge
		}
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return ErrInvalidBody
	}

	body = bytes.TrimSpace(body)
	if requireData && isEmptyPayload(body) {
		WriteErrorResponse(w, http.StatusBadRequest, "No data provided", "")
		return ErrEmptyBody
	}
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", "request body must be a JSON object")
		return ErrInvalidBody
	}

	if err := json.Unmarshal(body, dst); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return ErrInvalidBody
	}
	return nil
}

// isEmptyPayload reports whether body is missing or a JSON value carrying no data
func isEmptyPayload(body []byte) bool {
	if len(body) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return false
	}
	switch v := v.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

// FormatTimestamp renders t as ISO-8601 in UTC
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
