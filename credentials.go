package authsync

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Credentials is the payload for password sign-in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&c.Password, validation.Required, validation.Length(8, 100)),
	)
}

// SignUpPayload is the payload for account creation.
type SignUpPayload struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (p SignUpPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&p.DisplayName, validation.Length(1, 200)),
	)
}

// FederatedCredential carries the credential obtained by the host from an
// interactive federated flow (popup/redirect). The library exchanges it
// with the provider; it never drives the interactive flow itself.
type FederatedCredential struct {
	ProviderID  string `json:"provider_id"`
	IDToken     string `json:"id_token,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	RequestURI  string `json:"request_uri,omitempty"`
}

func (f FederatedCredential) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.ProviderID, validation.Required),
		validation.Field(&f.IDToken, validation.By(func(interface{}) error {
			if f.IDToken == "" && f.AccessToken == "" {
				return errors.New("either id_token or access_token is required")
			}
			return nil
		})),
	)
}
