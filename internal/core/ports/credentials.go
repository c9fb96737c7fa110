package ports

// CredentialKind tells which flavor of platform a credential belongs to.
type CredentialKind string

const (
	KindAppliance CredentialKind = "appliance" // APIv2, static token
	KindPortal    CredentialKind = "portal"    // APIv3, OAuth client secret
)

// Credential is the explicit result of credential resolution.
type Credential struct {
	Kind   CredentialKind
	Secret string
}

// CredentialStore abstracts wherever secrets live (environment, keyring
// file, ...). Get reports false when no value is stored under key.
type CredentialStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}
