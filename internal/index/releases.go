package index

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/ghindex/ghindex/pkg/gherrors"
	"github.com/ghindex/ghindex/pkg/github"
)

// AssetName is the fixed filename convention for installable release
// archives attached as assets.
const AssetName = "pypi.tar.gz"

// Link is one rendered release link on a repository page.
type Link struct {
	Name string
	URL  string
}

// TagListing is the ordered release listing of one repository.
// Links is nil when the repository has no releases; callers render a
// "no releases" message rather than an error.
type TagListing struct {
	Repository string
	Links      []Link
}

// Releases resolves a repository's releases for one request, bound to that
// request's authenticated client. Release listings are never cached.
type Releases struct {
	client *github.Client
}

// NewReleases creates a release resolver for the current request.
func NewReleases(client *github.Client) *Releases {
	return &Releases{client: client}
}

// ListTags lists a repository's release tags in ascending creation-time
// order. Public repositories link straight to the derived archive URL;
// private repositories link to the service's own download route, which
// streams the release asset with the caller's credential.
func (r *Releases) ListTags(ctx context.Context, m *Mapping, name string) (*TagListing, error) {
	repo, ok := m.Lookup(name)
	if !ok {
		return nil, gherrors.New(gherrors.CodeNotFound, "unknown repository %q", name)
	}

	releases, err := r.fetchOrdered(ctx, repo)
	if err != nil {
		return nil, err
	}

	listing := &TagListing{Repository: repo.Name}
	for _, release := range releases {
		var u string
		if repo.Private {
			u = fmt.Sprintf("/%s/release/%s.tar.gz", repo.Name, release.TagName)
		} else {
			u, err = ArchiveURL(repo, release.TagName)
			if err != nil {
				return nil, err
			}
		}
		listing.Links = append(listing.Links, Link{Name: release.TagName, URL: u})
	}
	return listing, nil
}

// ResolveDownload resolves the authorized download URL for one release tag:
// the release's asset named [AssetName], with the caller's access token
// appended as a query parameter.
func (r *Releases) ResolveDownload(ctx context.Context, m *Mapping, name, tag string) (string, error) {
	repo, ok := m.Lookup(name)
	if !ok {
		return "", gherrors.New(gherrors.CodeNotFound, "unknown repository %q", name)
	}

	releases, err := r.fetchOrdered(ctx, repo)
	if err != nil {
		return "", err
	}

	var release *github.Release
	for i := range releases {
		if releases[i].TagName == tag {
			release = &releases[i]
		}
	}
	if release == nil {
		return "", gherrors.New(gherrors.CodeNotFound, "unknown release %q for repository %q", tag, repo.Name)
	}

	for _, asset := range release.Assets {
		if asset.Name == AssetName {
			return authorizeURL(asset.BrowserDownloadURL, r.client.Credential())
		}
	}
	return "", gherrors.New(gherrors.CodeNotFound,
		"no asset named %q in release %q", AssetName, releaseLabel(release))
}

// fetchOrdered lists the repository's releases sorted ascending by creation
// time, deduplicated by tag name. When a tag appears more than once the tag
// keeps its first position and the last release record wins.
func (r *Releases) fetchOrdered(ctx context.Context, repo github.Repo) ([]github.Release, error) {
	releases, err := r.client.Releases(ctx, repo.FullName)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			return nil, gherrors.Wrap(gherrors.CodeNotFound, err, "repository %q not found on GitHub", repo.FullName)
		}
		return nil, gherrors.Wrap(gherrors.CodeBadRequest, err, "unable to get releases from GitHub API")
	}

	sort.SliceStable(releases, func(i, j int) bool {
		return releases[i].CreatedAt.Before(releases[j].CreatedAt)
	})

	var ordered []github.Release
	position := make(map[string]int, len(releases))
	for _, release := range releases {
		if i, seen := position[release.TagName]; seen {
			ordered[i] = release
			continue
		}
		position[release.TagName] = len(ordered)
		ordered = append(ordered, release)
	}
	return ordered, nil
}

// ArchiveURL derives the public source-archive URL for a release tag from
// the repository's web URL. The shortcut is only valid for public
// repositories: for a private repository the derived link would 404 for
// unauthenticated fetches, so it fails instead of silently misleading.
func ArchiveURL(repo github.Repo, tag string) (string, error) {
	if repo.Private {
		return "", gherrors.New(gherrors.CodeNotImplemented,
			"public archive links are not supported for private repository %q", repo.FullName)
	}
	return fmt.Sprintf("%s/archive/%s.tar.gz", strings.TrimRight(repo.HTMLURL, "/"), tag), nil
}

// authorizeURL appends the caller's access token to an asset URL.
func authorizeURL(rawURL string, cred github.Credential) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", gherrors.Wrap(gherrors.CodeInternal, err, "invalid asset URL")
	}
	q := u.Query()
	q.Set("access_token", cred.AccessToken())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// releaseLabel names a release for error messages: the release's title, or
// its tag when untitled.
func releaseLabel(release *github.Release) string {
	if release.Name != "" {
		return release.Name
	}
	return release.TagName
}
