// Package index implements the core request pipeline of the simple-index
// service: resolving the installable repository mapping for the configured
// accounts, caching one snapshot of that mapping, and resolving a
// repository's releases into downloadable archive links.
package index

// Kind distinguishes which upstream listing call an identity uses.
type Kind string

const (
	// KindUser scans a user account.
	KindUser Kind = "user"
	// KindOrg scans an organization.
	KindOrg Kind = "org"
)

// Identity is an opaque reference to an upstream account to scan for
// installable repositories. Identities are supplied once at service
// configuration time and are immutable for the process lifetime.
type Identity struct {
	Kind Kind
	Name string
}

// Qualifier returns the code-search scope qualifier for this identity,
// e.g. "user:alice" or "org:acme".
func (i Identity) Qualifier() string {
	return string(i.Kind) + ":" + i.Name
}

func (i Identity) String() string {
	return i.Qualifier()
}
