package index

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ghindex/ghindex/pkg/github"
)

// fakeUpstream is a stateful double of the GitHub API surface the pipeline
// touches: current user, org membership, privileged repo listing, code
// search, and per-repository releases.
type fakeUpstream struct {
	user     github.User
	orgs     []github.Org
	ownRepos []github.Repo

	// searchable repos visible to public code search, and the set of full
	// names (lowercased) whose root carries setup.py.
	publicRepos []github.Repo
	markers     map[string]bool

	releases map[string][]github.Release

	// queries records every search query received, for assertions on
	// batching behavior.
	queries []string
}

func (f *fakeUpstream) hasMarker(fullName string) bool {
	return f.markers[strings.ToLower(fullName)]
}

func (f *fakeUpstream) serve(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, f.user)
	})
	mux.HandleFunc("/user/orgs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, f.orgs)
	})
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, f.ownRepos)
	})
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/repos/"), "/")
		if len(parts) != 3 || parts[2] != "releases" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		full := parts[0] + "/" + parts[1]
		releases, ok := f.releases[full]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, releases)
	})
	mux.HandleFunc("/search/code", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		f.queries = append(f.queries, query)

		var items []github.CodeResult
		add := func(repo github.Repo) {
			items = append(items, github.CodeResult{
				Name: "setup.py", Path: "setup.py", Repository: repo,
			})
		}

		if strings.Contains(query, "repo:") {
			// Batched privileged query: return listed repos with the marker.
			for _, field := range strings.Fields(query) {
				full, ok := strings.CutPrefix(field, "repo:")
				if !ok || !f.hasMarker(full) {
					continue
				}
				for _, repo := range f.ownRepos {
					if strings.EqualFold(repo.FullName, full) {
						add(repo)
					}
				}
			}
		} else {
			// Public scoped query: search behaves fuzzily and may
			// over-return, so no owner filtering here on purpose.
			for _, repo := range f.publicRepos {
				if f.hasMarker(repo.FullName) {
					add(repo)
				}
			}
		}
		writeJSON(w, map[string]any{"total_count": len(items), "items": items})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// login authenticates a test client against the fake upstream.
func (f *fakeUpstream) login(t *testing.T) *github.Client {
	t.Helper()
	srv := f.serve(t)
	client, err := github.Login(context.Background(), srv.URL, github.Credential{Token: "test-token"})
	if err != nil {
		t.Fatalf("login against fake upstream: %v", err)
	}
	return client
}

func repo(fullName string, private bool) github.Repo {
	owner, name, _ := strings.Cut(fullName, "/")
	return github.Repo{
		Name:     name,
		FullName: fullName,
		Private:  private,
		HTMLURL:  "https://github.com/" + fullName,
		Owner:    github.Owner{Login: owner},
	}
}
