package server

import (
	"context"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ghindex/ghindex/pkg/github"
)

// ctxKey is the type for context keys used in this package.
// Using a distinct type prevents collisions with other packages.
type ctxKey int

const (
	loggerKey ctxKey = iota
	credentialKey
)

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *charmlog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFrom retrieves the request logger from ctx, falling back to the
// default logger so handlers never have to nil-check.
func loggerFrom(ctx context.Context) *charmlog.Logger {
	if l, ok := ctx.Value(loggerKey).(*charmlog.Logger); ok {
		return l
	}
	return charmlog.Default()
}

func withCredential(ctx context.Context, cred github.Credential) context.Context {
	return context.WithValue(ctx, credentialKey, cred)
}

// credentialFrom retrieves the request credential extracted by
// requireCredential.
func credentialFrom(ctx context.Context) (github.Credential, bool) {
	cred, ok := ctx.Value(credentialKey).(github.Credential)
	return cred, ok
}

// logRequests tags every request with an id, attaches a request-scoped
// logger to the context, and logs completion with status and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.log.With(
			"request_id", uuid.NewString(),
			"method", r.Method,
			"path", r.URL.Path,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(withLogger(r.Context(), logger)))

		logger.Info("request",
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

// requireCredential extracts the caller's Basic credential and attaches it
// to the context. A username with an empty password is treated as a
// personal access token; otherwise the pair is forwarded as-is.
//
// Requests without a credential get a 401 with a Basic challenge, which is
// what makes pip (and browsers) prompt for one.
func (s *Server) requireCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user == "" {
			loggerFrom(r.Context()).Warn("request without credentials")
			w.Header().Set("WWW-Authenticate", `Basic realm="Simple index"`)
			http.Error(w, "credentials required", http.StatusUnauthorized)
			return
		}

		var cred github.Credential
		if pass == "" {
			cred = github.Credential{Token: user}
		} else {
			cred = github.Credential{Username: user, Password: pass}
		}
		next.ServeHTTP(w, r.WithContext(withCredential(r.Context(), cred)))
	})
}
