package authflow

import (
	"errors"

	"github.com/al-bashkir/erp-portal/internal/identity"
)

// User-facing messages.
const (
	msgInvalidCredentials   = "Invalid credentials"
	msgChallengeUnavailable = "Security check is unavailable right now. You can continue with your password."
	msgImageNotVerified     = "That is not your security image. Please try again."
	msgSelectListedImage    = "Select one of the displayed images."
	msgUsernameRequired     = "Enter your username."
	msgCompleteChallenge    = "Complete the security check before entering your password."
	msgAlreadySignedIn      = "You are already signed in."
	msgResetSent            = "If the account exists, password reset instructions have been sent."
	msgResetFailed          = "Password reset failed. Check your username and email."
	msgResetIncomplete      = "Enter both your username and email."
)

// messageFor maps identity failures to what the user is shown. Login
// failures of any kind read as invalid credentials.
func messageFor(err error) string {
	switch {
	case errors.Is(err, identity.ErrChallengeUnavailable):
		return msgChallengeUnavailable
	case errors.Is(err, identity.ErrImageNotVerified):
		return msgImageNotVerified
	default:
		return msgInvalidCredentials
	}
}
