package identity

// User is the principal as returned by the identity service.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// AuthResult is the body of a successful login.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Image is one candidate security image.
type Image struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Challenge is the prelogin security phrase and its candidate images,
// in server order.
type Challenge struct {
	Phrase string  `json:"phrase"`
	Images []Image `json:"images"`
}

// HasImage reports whether id is one of the candidate images.
func (c *Challenge) HasImage(id string) bool {
	if c == nil {
		return false
	}
	for _, img := range c.Images {
		if img.ID == id {
			return true
		}
	}
	return false
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type challengeLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ImageID  string `json:"imageId"`
}

type preloginRequest struct {
	Username string `json:"username"`
}

type verifyImageRequest struct {
	Username string `json:"username"`
	ImageID  string `json:"imageId"`
}

type verifyImageResponse struct {
	Valid bool `json:"valid"`
}

type resetPasswordRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type settingsResponse struct {
	Settings map[string]string `json:"settings"`
}

type updateSettingRequest struct {
	Value string `json:"value"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}
