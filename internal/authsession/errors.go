package authsession

import (
	"errors"
	"fmt"
)

var (
	// ErrStateMismatch means the callback's state is absent or does not
	// match the session's CSRF token. Treated as an invalid request.
	ErrStateMismatch = errors.New("authsession: state mismatch")
	// ErrMissingCode means the callback carried neither a code nor an error.
	ErrMissingCode = errors.New("authsession: callback missing authorization code")
	// ErrTokenExchange means the code could not be exchanged for a token,
	// including provider replies without an access_token.
	ErrTokenExchange = errors.New("authsession: token exchange failed")
)

// ProviderDeniedError carries the provider's error parameter when the
// user declines or the provider refuses authorization.
type ProviderDeniedError struct {
	Code        string
	Description string
}

func (e *ProviderDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authsession: provider denied authorization: %s: %s", e.Code, e.Description)
	}

	return "authsession: provider denied authorization: " + e.Code
}
