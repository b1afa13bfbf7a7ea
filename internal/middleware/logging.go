package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"TODOLIST_BACK-END/internal/utils"
)

// RequestID keeps an incoming X-Request-Id or assigns a uuid, stores it where
// chimw.GetReqID finds it and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(chimw.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(chimw.RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), chimw.RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request once it completes
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Printf("[%s] %s %s -> %d (%dB) in %s",
			chimw.GetReqID(r.Context()), r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start))
	})
}

// Recoverer turns a panic in a handler into a 500 JSON error. chimw.Recoverer
// answers with a bare status, so the error envelope is written here instead.
// A response that has already started is left alone and the panic is only logged.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			log.Printf("[%s] panic serving %s %s: %v\n%s",
				chimw.GetReqID(r.Context()), r.Method, r.URL.Path, rvr, debug.Stack())
			if ww.Status() != 0 {
				return
			}
			utils.WriteErrorResponse(ww, http.StatusInternalServerError, "Internal server error", fmt.Sprint(rvr))
		}()
		next.ServeHTTP(ww, r)
	})
}
