package models

// ProviderClaims are the verified attributes extracted from a third-party
// identity token. Email is the only required field; everything else is
// best-effort and may be empty.
type ProviderClaims struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Picture    string `json:"picture,omitempty"`
}
