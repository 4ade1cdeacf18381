package authflow

import "github.com/al-bashkir/erp-portal/internal/session"

// Demo account accepted without contacting the identity service.
const (
	DemoEmail    = "demo@demo.net"
	DemoPassword = "demo"
	DemoRole     = "administrator"
	demoToken    = "demo-token"
)

// Credentials is what the user submitted: either DemoCredentials or
// RemoteCredentials.
type Credentials interface {
	credentials()
}

// DemoCredentials is the local demo bypass.
type DemoCredentials struct{}

// RemoteCredentials are checked by the identity service.
type RemoteCredentials struct {
	Username string
	Password string
}

func (DemoCredentials) credentials()   {}
func (RemoteCredentials) credentials() {}

// ClassifyCredentials yields DemoCredentials only when demo login is
// enabled and both fields match exactly.
func ClassifyCredentials(username, password string, demoEnabled bool) Credentials {
	if demoEnabled && username == DemoEmail && password == DemoPassword {
		return DemoCredentials{}
	}
	return RemoteCredentials{Username: username, Password: password}
}

// DemoPrincipal is the principal established by a demo login.
func DemoPrincipal() session.Principal {
	return session.Principal{
		ID:          "demo",
		Username:    "demo",
		Email:       DemoEmail,
		DisplayName: "Demo User",
		Role:        DemoRole,
	}
}
