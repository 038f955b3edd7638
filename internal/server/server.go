// Package server implements the HTTP surface of the index service: the
// simple-index pages, the release listing pages, and the download proxy.
//
// Every page request authenticates against GitHub with the caller's own
// Basic credential; the service holds no credentials of its own. The
// repository listing is served through a shared time-bounded cache, while
// release listings and downloads always go straight upstream.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/ghindex/ghindex/internal/index"
	"github.com/ghindex/ghindex/pkg/gherrors"
	"github.com/ghindex/ghindex/pkg/github"
)

// archiveContentType is the content type set on proxied release archives.
const archiveContentType = "application/x-compressed"

// purgeParam is the query parameter that evicts the listing snapshot
// before the request is served.
const purgeParam = "purge_cache"

// Server serves the package index over HTTP.
type Server struct {
	log      *charmlog.Logger
	apiURL   string
	listing  *index.Listing
	renderer *Renderer
}

// New creates a server talking to the GitHub API at apiURL.
func New(logger *charmlog.Logger, apiURL string, listing *index.Listing, renderer *Renderer) *Server {
	if logger == nil {
		logger = charmlog.Default()
	}
	return &Server{
		log:      logger,
		apiURL:   apiURL,
		listing:  listing,
		renderer: renderer,
	}
}

// Router builds the route tree. The health endpoint is open; everything
// else requires a Basic credential.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(s.requireCredential)
		r.Get("/", s.handleIndex)
		r.Get("/{repository}/", s.handleRepository)
		r.Get("/{repository}/release/{artifact}", s.handleDownload)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: download responses stream for as long as the
		// upstream asset takes.
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok\n")
}

// handleIndex serves the root page: one link per installable repository.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	client, err := s.login(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	m, err := s.listing.Get(ctx, client, r.URL.Query().Has(purgeParam))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Index(w, m.Names()); err != nil {
		loggerFrom(ctx).Error("render index", "err", err)
	}
}

// handleRepository serves one repository's release links.
func (s *Server) handleRepository(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "repository")

	client, err := s.login(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	m, err := s.listing.Get(ctx, client, r.URL.Query().Has(purgeParam))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	tags, err := index.NewReleases(client).ListTags(ctx, m, name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(tags.Links) == 0 {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "No releases available for this repository\n")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Repository(w, tags.Repository, tags.Links); err != nil {
		loggerFrom(ctx).Error("render repository", "err", err, "repository", name)
	}
}

// handleDownload streams one release archive asset through the service,
// so private assets are fetched with the caller's credential instead of a
// link that would 404 for pip.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "repository")

	tag, ok := strings.CutSuffix(chi.URLParam(r, "artifact"), ".tar.gz")
	if !ok {
		s.respondError(w, r, gherrors.New(gherrors.CodeNotFound,
			"unknown artifact %q", chi.URLParam(r, "artifact")))
		return
	}

	client, err := s.login(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	m, err := s.listing.Get(ctx, client, r.URL.Query().Has(purgeParam))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	assetURL, err := index.NewReleases(client).ResolveDownload(ctx, m, name, tag)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	body, err := client.StreamAsset(ctx, assetURL)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			err = gherrors.Wrap(gherrors.CodeNotFound, err, "release asset is not available")
		} else {
			err = gherrors.Wrap(gherrors.CodeNetwork, err, "unable to fetch release asset")
		}
		s.respondError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", archiveContentType)
	if _, err := io.Copy(w, body); err != nil {
		// Headers are gone; all we can do is log the broken stream.
		loggerFrom(ctx).Warn("asset stream interrupted", "err", err, "repository", name, "tag", tag)
	}
}

// login authenticates the request's credential against the GitHub API.
// A rejected credential is a 403: the caller presented something, it just
// doesn't work upstream. 401 is reserved for requests with no credential.
func (s *Server) login(r *http.Request) (*github.Client, error) {
	cred, ok := credentialFrom(r.Context())
	if !ok {
		return nil, gherrors.New(gherrors.CodeUnauthorized, "credentials required")
	}

	client, err := github.Login(r.Context(), s.apiURL, cred)
	if err != nil {
		if errors.Is(err, github.ErrAuth) {
			return nil, gherrors.Wrap(gherrors.CodeForbidden, err, "GitHub rejected the supplied credentials")
		}
		return nil, gherrors.Wrap(gherrors.CodeNetwork, err, "unable to reach the GitHub API")
	}
	return client, nil
}

// respondError translates a pipeline error into its HTTP response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := gherrors.GetCode(err)
	status := gherrors.HTTPStatus(code)

	logger := loggerFrom(r.Context())
	if status >= 500 {
		logger.Error("request failed", "code", code, "err", err)
	} else {
		logger.Warn("request rejected", "code", code, "err", err)
	}

	if code == gherrors.CodeUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="Simple index"`)
	}
	http.Error(w, gherrors.UserMessage(err), status)
}
