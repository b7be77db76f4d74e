package models

// Default values applied to every principal created from an OIDC login.
const (
	DefaultLangKey = "en"
	AuthorityUser  = "user"
)

// Principal is the authenticated identity on whose behalf a request executes.
// It is built from the identity provider's user-info response and never changes
// for the life of the session that carries it.
type Principal struct {
	ID          string   `json:"id"` // stable subject identifier from the provider
	Login       string   `json:"login"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Email       string   `json:"email"`
	Activated   bool     `json:"activated"` // provider reports the email as verified
	ImageURL    string   `json:"image_url"`
	LangKey     string   `json:"lang_key"`
	Authorities []string `json:"authorities"`
}

// Clone returns a deep copy of the principal.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Authorities != nil {
		clone.Authorities = append([]string(nil), p.Authorities...)
	}
	return &clone
}

// OwnerPrincipal builds the minimal principal for a credential that only
// records its owner's subject identifier, such as an API key.
func OwnerPrincipal(ownerID string) *Principal {
	return &Principal{
		ID:          ownerID,
		LangKey:     DefaultLangKey,
		Authorities: []string{AuthorityUser},
	}
}
