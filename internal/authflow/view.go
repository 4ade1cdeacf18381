package authflow

import (
	"github.com/al-bashkir/erp-portal/internal/identity"
	"github.com/al-bashkir/erp-portal/internal/session"
)

// View is a read-only snapshot of the flow for the presentation layer.
type View struct {
	State    State
	Username string

	Phrase          string
	Images          []identity.Image
	SelectedImageID string
	ImageVerified   bool
	ChallengeShown  bool
	Verifying       bool

	// PasswordVisible is the derived password-entry condition.
	PasswordVisible bool
	DemoMode        bool

	Error  string
	Notice string

	Principal *session.Principal
}
