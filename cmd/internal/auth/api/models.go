package authapi

import "stash/cmd/identity"

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type updateProfileRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

// loginData is the data payload of login and refresh responses. Tokens are
// also set as cookies; the body copies serve non-browser clients.
type loginData struct {
	User         identity.Profile `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}
