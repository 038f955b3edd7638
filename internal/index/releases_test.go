package index

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ghindex/ghindex/pkg/gherrors"
	"github.com/ghindex/ghindex/pkg/github"
)

func release(tag string, created time.Time, assets ...github.Asset) github.Release {
	return github.Release{TagName: tag, CreatedAt: created, Assets: assets}
}

func TestListTags_AscendingByCreationTime(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t2.Add(24 * time.Hour)

	fake := &fakeUpstream{
		user: github.User{ID: 1, Login: "alice"},
		releases: map[string][]github.Release{
			// Upstream returns newest first; listing must re-sort.
			"alice/pkg": {release("v3", t3), release("v1", t1), release("v2", t2)},
		},
	}
	client := fake.login(t)
	m := newMapping([]github.Repo{repo("alice/pkg", false)})

	listing, err := NewReleases(client).ListTags(context.Background(), m, "pkg")
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}

	got := make([]string, len(listing.Links))
	for i, link := range listing.Links {
		got[i] = link.Name
	}
	if strings.Join(got, ",") != "v1,v2,v3" {
		t.Errorf("tags = %v, want ascending creation order", got)
	}
}

func TestListTags_PublicArchiveURL(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pkg := repo("alice/pkg", false)
	pkg.HTMLURL = "https://github.com/alice/pkg/" // trailing slash must be stripped

	fake := &fakeUpstream{
		user:     github.User{ID: 1, Login: "alice"},
		releases: map[string][]github.Release{"alice/pkg": {release("v1.0", created)}},
	}
	client := fake.login(t)
	m := newMapping([]github.Repo{pkg})

	listing, err := NewReleases(client).ListTags(context.Background(), m, "pkg")
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	want := "https://github.com/alice/pkg/archive/v1.0.tar.gz"
	if listing.Links[0].URL != want {
		t.Errorf("URL = %q, want %q", listing.Links[0].URL, want)
	}
}

func TestListTags_PrivateLinksToDownloadRoute(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeUpstream{
		user:     github.User{ID: 1, Login: "alice"},
		releases: map[string][]github.Release{"alice/secret": {release("v2", created)}},
	}
	client := fake.login(t)
	m := newMapping([]github.Repo{repo("alice/secret", true)})

	listing, err := NewReleases(client).ListTags(context.Background(), m, "secret")
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if listing.Links[0].URL != "/secret/release/v2.tar.gz" {
		t.Errorf("private repo should link to the proxy route, got %q", listing.Links[0].URL)
	}
}

func TestListTags_NoReleases(t *testing.T) {
	fake := &fakeUpstream{
		user:     github.User{ID: 1, Login: "alice"},
		releases: map[string][]github.Release{"alice/quiet": {}},
	}
	client := fake.login(t)
	m := newMapping([]github.Repo{repo("alice/quiet", false)})

	listing, err := NewReleases(client).ListTags(context.Background(), m, "quiet")
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if listing.Links != nil {
		t.Errorf("expected nil links for a repository without releases, got %v", listing.Links)
	}
	if listing.Repository != "quiet" {
		t.Errorf("Repository = %q, want quiet", listing.Repository)
	}
}

func TestListTags_UnknownRepository(t *testing.T) {
	fake := &fakeUpstream{user: github.User{ID: 1, Login: "alice"}}
	client := fake.login(t)
	m := newMapping(nil)

	_, err := NewReleases(client).ListTags(context.Background(), m, "ghost")
	if !gherrors.Is(err, gherrors.CodeNotFound) {
		t.Fatalf("got %v, want NOT_FOUND", err)
	}
}

func TestListTags_ResolvesUnderscoreAlias(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeUpstream{
		user:     github.User{ID: 1, Login: "alice"},
		releases: map[string][]github.Release{"alice/my_pkg": {release("v1", created)}},
	}
	client := fake.login(t)
	m := newMapping([]github.Repo{repo("alice/my_pkg", false)})

	listing, err := NewReleases(client).ListTags(context.Background(), m, "my-pkg")
	if err != nil {
		t.Fatalf("ListTags via alias: %v", err)
	}
	if listing.Repository != "my_pkg" {
		t.Errorf("Repository = %q, want my_pkg", listing.Repository)
	}
}

func TestListTags_DuplicateTagLastWins(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	first := release("v1", t1)
	second := release("v1", t2)
	second.Name = "re-cut"

	fake := &fakeUpstream{
		user:     github.User{ID: 1, Login: "alice"},
		releases: map[string][]github.Release{"alice/pkg": {second, first}},
	}
	client := fake.login(t)
	m := newMapping([]github.Repo{repo("alice/pkg", false)})

	listing, err := NewReleases(client).ListTags(context.Background(), m, "pkg")
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(listing.Links) != 1 {
		t.Fatalf("duplicate tags must collapse to one link, got %d", len(listing.Links))
	}
}

func TestArchiveURL_PrivateIsNotImplemented(t *testing.T) {
	_, err := ArchiveURL(repo("alice/secret", true), "v1")
	if !gherrors.Is(err, gherrors.CodeNotImplemented) {
		t.Fatalf("got %v, want NOT_IMPLEMENTED", err)
	}
}

func TestResolveDownload(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	asset := github.Asset{
		Name:               AssetName,
		BrowserDownloadURL: "https://github.com/alice/secret/releases/download/v1/pypi.tar.gz",
	}
	fake := &fakeUpstream{
		user: github.User{ID: 1, Login: "alice"},
		releases: map[string][]github.Release{
			"alice/secret": {release("v1", created, asset)},
		},
	}
	client := fake.login(t)
	m := newMapping([]github.Repo{repo("alice/secret", true)})

	got, err := NewReleases(client).ResolveDownload(context.Background(), m, "secret", "v1")
	if err != nil {
		t.Fatalf("ResolveDownload: %v", err)
	}

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse download URL: %v", err)
	}
	if u.Query().Get("access_token") != "test-token" {
		t.Errorf("download URL should carry the caller's token: %s", got)
	}
	if u.Path != "/alice/secret/releases/download/v1/pypi.tar.gz" {
		t.Errorf("unexpected asset path: %s", u.Path)
	}
}

func TestResolveDownload_UnknownTag(t *testing.T) {
	fake := &fakeUpstream{
		user:     github.User{ID: 1, Login: "alice"},
		releases: map[string][]github.Release{"alice/pkg": {}},
	}
	client := fake.login(t)
	m := newMapping([]github.Repo{repo("alice/pkg", false)})

	_, err := NewReleases(client).ResolveDownload(context.Background(), m, "pkg", "v9")
	if !gherrors.Is(err, gherrors.CodeNotFound) {
		t.Fatalf("got %v, want NOT_FOUND", err)
	}
}

func TestResolveDownload_MissingAssetNamesBoth(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rel := release("v1", created, github.Asset{Name: "other.zip"})
	rel.Name = "First release"

	fake := &fakeUpstream{
		user:     github.User{ID: 1, Login: "alice"},
		releases: map[string][]github.Release{"alice/pkg": {rel}},
	}
	client := fake.login(t)
	m := newMapping([]github.Repo{repo("alice/pkg", false)})

	_, err := NewReleases(client).ResolveDownload(context.Background(), m, "pkg", "v1")
	if !gherrors.Is(err, gherrors.CodeNotFound) {
		t.Fatalf("got %v, want NOT_FOUND", err)
	}
	msg := gherrors.UserMessage(err)
	if !strings.Contains(msg, AssetName) || !strings.Contains(msg, "First release") {
		t.Errorf("error should name the expected asset and the release: %s", msg)
	}
}
