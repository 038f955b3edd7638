package github

import "time"

// User represents a GitHub user account.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Org represents a GitHub organization the authenticated user belongs to.
type Org struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// Repo represents a GitHub repository. It carries the raw record only; all
// operations on a repository go through a credentialed [Client], so a Repo
// can be cached and later rehydrated against a different request's client.
type Repo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	HTMLURL  string `json:"html_url"`
	Owner    Owner  `json:"owner"`
}

// Owner is the account a repository belongs to.
type Owner struct {
	Login string `json:"login"`
}

// Release represents a tagged release of a repository.
type Release struct {
	ID        int64     `json:"id"`
	TagName   string    `json:"tag_name"`
	Name      string    `json:"name"`
	Draft     bool      `json:"draft"`
	CreatedAt time.Time `json:"created_at"`
	Assets    []Asset   `json:"assets"`
}

// Asset is a downloadable artifact attached to a release.
type Asset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	ContentType        string `json:"content_type"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// CodeResult is a single item of a code-search response.
type CodeResult struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Repository Repo   `json:"repository"`
}

// searchResponse is the envelope of the code-search endpoint.
type searchResponse struct {
	TotalCount        int          `json:"total_count"`
	IncompleteResults bool         `json:"incomplete_results"`
	Items             []CodeResult `json:"items"`
}
