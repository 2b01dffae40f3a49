package auth

import "time"

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginNameRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,max=72"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func newTokenResponse(token string) tokenResponse {
	return tokenResponse{AccessToken: token, TokenType: "bearer"}
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	ID             uint      `json:"id"`
	Email          *string   `json:"email"`
	Username       *string   `json:"username"`
	FirstName      *string   `json:"first_name"`
	LastName       *string   `json:"last_name"`
	Role           string    `json:"role"`
	OnboardingStep int       `json:"onboarding_step"`
	IsVerified     bool      `json:"is_verified"`
	CreatedAt      time.Time `json:"created_at"`
}

func newUserResponse(u *User) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           u.Role,
		OnboardingStep: u.OnboardingStep,
		IsVerified:     u.IsVerified,
		CreatedAt:      u.CreatedAt,
	}
}

type nameRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
}

type claimResponse struct {
	OnboardingToken string  `json:"onboarding_token"`
	FirstName       *string `json:"first_name"`
}

type onboardingStatusResponse struct {
	OnboardingStep int     `json:"onboarding_step"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Email          *string `json:"email"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type codeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type bulkAccountsRequest struct {
	Accounts []nameRequest `json:"accounts" validate:"required,min=1,max=100,dive"`
}

type accountResponse struct {
	ID             uint      `json:"id"`
	FirstName      *string   `json:"first_name"`
	LastName       *string   `json:"last_name"`
	OnboardingStep int       `json:"onboarding_step"`
	CreatedAt      time.Time `json:"created_at"`
}

func newAccountResponses(users []*User) []accountResponse {
	out := make([]accountResponse, 0, len(users))
	for _, u := range users {
		out = append(out, accountResponse{
			ID:             u.ID,
			FirstName:      u.FirstName,
			LastName:       u.LastName,
			OnboardingStep: u.OnboardingStep,
			CreatedAt:      u.CreatedAt,
		})
	}
	return out
}

type bulkAccountsResponse struct {
	Created []accountResponse `json:"created"`
	Skipped int               `json:"skipped"`
}

type listAccountsQuery struct {
	Status string `validate:"omitempty,oneof=unclaimed in_progress complete"`
}

type promoteRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=admin user"`
}

type settingsResponse struct {
	AIProvider *string `json:"ai_provider"`
	HasAPIKey  bool    `json:"has_api_key"`
	IsVerified bool    `json:"is_verified"`
}

func newSettingsResponse(v SettingsView) settingsResponse {
	return settingsResponse{
		AIProvider: v.AIProvider,
		HasAPIKey:  v.HasAPIKey,
		IsVerified: v.IsVerified,
	}
}

type settingsUpdateRequest struct {
	AIProvider *string `json:"ai_provider" validate:"omitempty,oneof=claude openai"`
	AIAPIKey   *string `json:"ai_api_key" validate:"omitempty,max=1000"`
}

type profileResponse struct {
	FirstName    *string   `json:"first_name"`
	LastName     *string   `json:"last_name"`
	Username     *string   `json:"username"`
	Email        *string   `json:"email"`
	PendingEmail *string   `json:"pending_email"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

func newProfileResponse(u *User) profileResponse {
	return profileResponse{
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		Email:        u.Email,
		PendingEmail: u.PendingEmail,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt,
	}
}

type profileUpdateRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Username  *string `json:"username" validate:"omitempty,min=3,max=50"`
}
