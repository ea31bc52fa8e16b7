package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// EchoRequestID copies the id assigned by chi's RequestID middleware to the
// X-Request-ID response header so clients can quote it.
func EchoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rid := chimw.GetReqID(r.Context()); rid != "" {
			w.Header().Set(chimw.RequestIDHeader, rid)
		}
		next.ServeHTTP(w, r)
	})
}
