package index

import (
	"sort"
	"strings"

	"github.com/ghindex/ghindex/pkg/github"
)

// Mapping is an ordered mapping of repository short name to repository
// record, sorted case-insensitively by short name. A mapping is built fresh
// per cache miss and rehydrated from a snapshot on cache hits; it holds
// plain records only, never client-bound state.
type Mapping struct {
	names []string
	repos map[string]github.Repo
}

// newMapping builds a sorted mapping from repos. Callers must have already
// rejected duplicate short names.
func newMapping(repos []github.Repo) *Mapping {
	m := &Mapping{
		names: make([]string, 0, len(repos)),
		repos: make(map[string]github.Repo, len(repos)),
	}
	for _, repo := range repos {
		m.names = append(m.names, repo.Name)
		m.repos[repo.Name] = repo
	}
	sort.Slice(m.names, func(i, j int) bool {
		return strings.ToLower(m.names[i]) < strings.ToLower(m.names[j])
	})
	return m
}

// Names returns the repository short names in case-insensitive order.
func (m *Mapping) Names() []string {
	return m.names
}

// Len returns the number of repositories in the mapping.
func (m *Mapping) Len() int {
	return len(m.names)
}

// Lookup resolves a requested name to a repository record. It tries the
// exact short name first, then matches stored names with underscores
// rewritten to hyphens, since installer clients normalize names that way.
// The alias is one-directional: stored name to hyphen variant only.
func (m *Mapping) Lookup(name string) (github.Repo, bool) {
	if repo, ok := m.repos[name]; ok {
		return repo, true
	}
	for _, stored := range m.names {
		if strings.ReplaceAll(stored, "_", "-") == name {
			return m.repos[stored], true
		}
	}
	return github.Repo{}, false
}

// Repos returns the repository records in mapping order. The result is the
// raw snapshot persisted by the listing cache.
func (m *Mapping) Repos() []github.Repo {
	repos := make([]github.Repo, 0, len(m.names))
	for _, name := range m.names {
		repos = append(repos, m.repos[name])
	}
	return repos
}
