package models

// UserInfo is the typed subset of the provider's user-info claims the service
// understands. Optional claims are pointers so "absent" and "empty" stay distinct.
type UserInfo struct {
	Subject           string  `json:"sub"`
	PreferredUsername *string `json:"preferred_username,omitempty"`
	Name              *string `json:"name,omitempty"`
	GivenName         *string `json:"given_name,omitempty"`
	FamilyName        *string `json:"family_name,omitempty"`
	Email             *string `json:"email,omitempty"`
	EmailVerified     *bool   `json:"-"` // providers disagree on bool vs string; set by the login flow
	Picture           *string `json:"picture,omitempty"`
	Locale            *string `json:"locale,omitempty"`
}

// Clone returns a deep copy of the user info.
func (u *UserInfo) Clone() *UserInfo {
	if u == nil {
		return nil
	}
	clone := &UserInfo{Subject: u.Subject}
	clone.PreferredUsername = cloneString(u.PreferredUsername)
	clone.Name = cloneString(u.Name)
	clone.GivenName = cloneString(u.GivenName)
	clone.FamilyName = cloneString(u.FamilyName)
	clone.Email = cloneString(u.Email)
	clone.Picture = cloneString(u.Picture)
	clone.Locale = cloneString(u.Locale)
	if u.EmailVerified != nil {
		v := *u.EmailVerified
		clone.EmailVerified = &v
	}
	return clone
}

// Principal derives the service principal from the user-info claims.
// The first name prefers given_name and falls back to the full name claim.
func (u *UserInfo) Principal() *Principal {
	firstName := deref(u.GivenName)
	if firstName == "" {
		firstName = deref(u.Name)
	}

	var activated bool
	if u.EmailVerified != nil {
		activated = *u.EmailVerified
	}

	return &Principal{
		ID:          u.Subject,
		Login:       deref(u.PreferredUsername),
		FirstName:   firstName,
		LastName:    deref(u.FamilyName),
		Email:       deref(u.Email),
		Activated:   activated,
		ImageURL:    deref(u.Picture),
		LangKey:     DefaultLangKey,
		Authorities: []string{AuthorityUser},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
