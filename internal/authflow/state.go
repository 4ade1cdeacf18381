package authflow

// State is the position of the login flow.
type State int

const (
	// Anonymous: no session, no challenge requested.
	Anonymous State = iota
	// ChallengePending: prelogin request in flight.
	ChallengePending
	// ChallengeShown: phrase and candidate images are displayed.
	ChallengeShown
	// ImageVerified: the user picked their registered image.
	ImageVerified
	// ChallengeSkipped: the challenge could not be fetched; password-only.
	ChallengeSkipped
	// Authenticated: a session is active.
	Authenticated
)

var stateNames = [...]string{
	Anonymous:        "anonymous",
	ChallengePending: "challenge-pending",
	ChallengeShown:   "challenge-shown",
	ImageVerified:    "image-verified",
	ChallengeSkipped: "challenge-skipped",
	Authenticated:    "authenticated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// acceptsPassword reports whether a non-demo password may be submitted.
func (s State) acceptsPassword() bool {
	return s == ImageVerified || s == ChallengeSkipped
}
