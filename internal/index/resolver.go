package index

import (
	"context"
	"strings"

	"github.com/ghindex/ghindex/pkg/gherrors"
	"github.com/ghindex/ghindex/pkg/github"
)

// markerQuery selects repositories carrying the package manifest marker
// (setup.py at the repository root), the heuristic for "installable".
const markerQuery = "filename:setup.py path:/"

// Resolver produces the deduplicated, conflict-checked, alphabetically
// ordered mapping of repository short name to repository record for the
// configured identities, as visible to one authenticated client.
type Resolver struct {
	client     *github.Client
	identities []Identity
}

// NewResolver creates a resolver bound to the given client and the
// service's configured identities.
func NewResolver(client *github.Client, identities []Identity) *Resolver {
	return &Resolver{client: client, identities: identities}
}

// Resolve builds the repository mapping.
//
// Identities the authenticated user can access directly (their own account
// and organizations they belong to) use the privileged listing path:
// enumerate everything visible, then confirm the marker file with a single
// batched search. All other configured identities fall back to a public
// per-identity search. Zero repositories is a valid, empty mapping; two
// distinct repositories sharing a short name is a hard conflict error.
func (r *Resolver) Resolve(ctx context.Context) (*Mapping, error) {
	accessible, err := r.accessibleLogins(ctx)
	if err != nil {
		return nil, err
	}

	var privileged, public []Identity
	for _, id := range r.identities {
		if accessible[strings.ToLower(id.Name)] {
			privileged = append(privileged, id)
		} else {
			public = append(public, id)
		}
	}

	var repos []github.Repo
	if len(privileged) > 0 {
		found, err := r.resolvePrivileged(ctx, privileged)
		if err != nil {
			return nil, err
		}
		repos = append(repos, found...)
	}
	for _, id := range public {
		found, err := r.resolvePublic(ctx, id)
		if err != nil {
			return nil, err
		}
		repos = append(repos, found...)
	}

	repos = dedupeByFullName(repos)
	if err := detectConflicts(repos); err != nil {
		return nil, err
	}
	return newMapping(repos), nil
}

// accessibleLogins returns the lowercased set of account logins the
// authenticated user can list directly: their own login plus every
// organization they belong to.
func (r *Resolver) accessibleLogins(ctx context.Context) (map[string]bool, error) {
	orgs, err := r.client.Organizations(ctx)
	if err != nil {
		return nil, listingError(err)
	}

	logins := make(map[string]bool, len(orgs)+1)
	logins[strings.ToLower(r.client.Me().Login)] = true
	for _, org := range orgs {
		logins[strings.ToLower(org.Login)] = true
	}
	return logins, nil
}

// resolvePrivileged lists every repository the authenticated user can see
// and keeps those owned by one of the requested identities that carry the
// marker file. The marker check batches all candidates into one search
// query scoped by repo full names, so private repositories are covered by
// the caller's own access.
func (r *Resolver) resolvePrivileged(ctx context.Context, identities []Identity) ([]github.Repo, error) {
	all, err := r.client.ListOwnRepos(ctx)
	if err != nil {
		return nil, listingError(err)
	}

	wanted := make(map[string]bool, len(identities))
	for _, id := range identities {
		wanted[strings.ToLower(id.Name)] = true
	}

	var candidates []github.Repo
	for _, repo := range all {
		if wanted[strings.ToLower(repo.Owner.Login)] {
			candidates = append(candidates, repo)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	qualifiers := make([]string, 0, len(candidates)+1)
	qualifiers = append(qualifiers, markerQuery)
	for _, repo := range candidates {
		qualifiers = append(qualifiers, "repo:"+repo.FullName)
	}
	results, err := r.client.SearchCode(ctx, strings.Join(qualifiers, " "))
	if err != nil {
		return nil, listingError(err)
	}

	marked := make(map[string]bool, len(results))
	for _, res := range results {
		marked[strings.ToLower(res.Repository.FullName)] = true
	}

	var repos []github.Repo
	for _, repo := range candidates {
		if marked[strings.ToLower(repo.FullName)] {
			repos = append(repos, repo)
		}
	}
	return repos, nil
}

// resolvePublic searches one identity's publicly visible repositories for
// the marker file. Search may over-return, so only exact owner-login
// matches are kept.
func (r *Resolver) resolvePublic(ctx context.Context, id Identity) ([]github.Repo, error) {
	results, err := r.client.SearchCode(ctx, markerQuery+" "+id.Qualifier())
	if err != nil {
		return nil, listingError(err)
	}

	var repos []github.Repo
	for _, res := range results {
		if res.Repository.Owner.Login == id.Name {
			repos = append(repos, res.Repository)
		}
	}
	return repos, nil
}

// dedupeByFullName drops repeated records of the same repository, keeping
// the first occurrence.
func dedupeByFullName(repos []github.Repo) []github.Repo {
	seen := make(map[string]bool, len(repos))
	out := repos[:0]
	for _, repo := range repos {
		key := strings.ToLower(repo.FullName)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, repo)
	}
	return out
}

// detectConflicts fails when two distinct repositories map to the same
// short name. Silent deduplication would produce an ambiguous install
// target, so the full conflict set is surfaced instead.
func detectConflicts(repos []github.Repo) error {
	byName := make(map[string][]string)
	for _, repo := range repos {
		byName[repo.Name] = append(byName[repo.Name], repo.FullName)
	}

	conflicts := make(map[string][]string)
	for name, fullNames := range byName {
		if len(fullNames) > 1 {
			conflicts[name] = fullNames
		}
	}
	if len(conflicts) > 0 {
		return &gherrors.ConflictError{Conflicts: conflicts}
	}
	return nil
}

// listingError classifies an upstream failure during a listing or search
// call. Anything unrecognized becomes a BadRequest-class error with a
// human-readable cause; raw upstream errors never propagate.
func listingError(err error) error {
	return gherrors.Wrap(gherrors.CodeBadRequest, err, "unable to get list of repositories from GitHub API")
}
