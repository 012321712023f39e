package user_app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yebrai/skillswap/internal/apperror"
	"github.com/yebrai/skillswap/internal/application/api_helpers"
	"github.com/yebrai/skillswap/internal/domain/user"
	"github.com/yebrai/skillswap/internal/infrastructure/auth"
)

// UserService is the part of user.Service the handlers use.
type UserService interface {
	Register(ctx context.Context, in user.RegisterInput) (*user.User, error)
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
	UpdateProfile(ctx context.Context, id string, patch user.ProfilePatch) (*user.User, error)
	ListOthers(ctx context.Context, callerID string) ([]*user.User, error)
	Search(ctx context.Context, callerID, query, category string) ([]*user.User, error)
	ListSkills(ctx context.Context, category string) ([]user.SkillListing, error)
	AddOfferedSkill(ctx context.Context, userID string, sk user.OfferedSkill) (*user.SkillListing, error)
	ReplaceOfferedSkill(ctx context.Context, userID, title string, sk user.OfferedSkill) (*user.SkillListing, error)
}

// TokenGenerator issues and checks session tokens. auth.JWTService implements it.
type TokenGenerator interface {
	GenerateToken(userID, email string) (string, error)
	GenerateRefreshToken(userID string) (string, error)
	ValidateToken(tokenString string) (*auth.CustomClaims, error)
}

// PresenceChecker reports whether a user holds a live realtime connection.
type PresenceChecker interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// UserHandler handles HTTP requests related to accounts, profiles and skills.
type UserHandler struct {
	users    UserService
	tokens   TokenGenerator
	presence PresenceChecker
	logger   *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserService, tokens TokenGenerator, presence PresenceChecker, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		tokens:   tokens,
		presence: presence,
		logger:   logger.With("component", "api"),
	}
}

// RegistrationRequest defines the expected JSON structure for user registration.
type RegistrationRequest struct {
	Name           string               `json:"name"`
	Email          string               `json:"email"`
	Password       string               `json:"password"`
	Bio            string               `json:"bio,omitempty"`
	Avatar         string               `json:"avatar,omitempty"`
	OfferedSkills  []user.OfferedSkill  `json:"offeredSkills,omitempty"`
	RequiredSkills []user.RequiredSkill `json:"requiredSkills,omitempty"`
}

// LoginRequest defines the expected JSON structure for user login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshTokenRequest defines the expected JSON structure for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	User         *user.User `json:"user"`
}

// ProfileRequest is a partial profile update. Absent fields are untouched.
type ProfileRequest struct {
	Name           *string               `json:"name,omitempty"`
	Bio            *string               `json:"bio,omitempty"`
	Avatar         *string               `json:"avatar,omitempty"`
	OfferedSkills  *[]user.OfferedSkill  `json:"offeredSkills,omitempty"`
	RequiredSkills *[]user.RequiredSkill `json:"requiredSkills,omitempty"`
}

// PresenceResponse is the body of GET /api/users/{id}/presence.
type PresenceResponse struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// Register handles new user registration.
// POST /api/auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegistrationRequest
	if err := api_helpers.DecodeJSONBody(r, &req); err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}

	created, err := h.users.Register(r.Context(), user.RegisterInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Avatar:         req.Avatar,
		Bio:            req.Bio,
		OfferedSkills:  req.OfferedSkills,
		RequiredSkills: req.RequiredSkills,
	})
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	h.respondWithSession(w, http.StatusCreated, created)
}

// Login handles user authentication.
// POST /api/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := api_helpers.DecodeJSONBody(r, &req); err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}

	authenticated, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	h.respondWithSession(w, http.StatusOK, authenticated)
}

// RefreshToken exchanges a refresh token for a new access token.
// POST /api/auth/refresh
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := api_helpers.DecodeJSONBody(r, &req); err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	if req.RefreshToken == "" {
		api_helpers.RespondWithAppError(w, h.logger, apperror.InvalidArg("Refresh token is required"))
		return
	}

	claims, err := h.tokens.ValidateToken(req.RefreshToken)
	if err != nil || claims.Type != auth.TokenTypeRefresh {
		api_helpers.RespondWithAppError(w, h.logger, apperror.Unauthorized("Invalid or expired refresh token"))
		return
	}

	// Refresh tokens carry no email, so the account is looked up. This also
	// rejects tokens of deleted accounts.
	u, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, apperror.Unauthorized("Invalid or expired refresh token"))
		return
	}
	token, err := h.tokens.GenerateToken(u.ID, u.Email)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, AuthResponse{Token: token, User: u})
}

// Me returns the authenticated user.
// GET /api/auth/user
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), callerID(r))
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, u)
}

// ListUsers returns every user except the caller.
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListOthers(r.Context(), callerID(r))
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, users)
}

// SearchUsers filters users by free text and skill category.
// GET /api/users/search/skills?query=&category=
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.users.Search(r.Context(), callerID(r), q.Get("query"), q.Get("category"))
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, users)
}

// GetUserProfile handles fetching a user's profile.
// GET /api/users/{id}
func (h *UserHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, u)
}

// Presence reports whether a user is connected to the realtime hub.
// GET /api/users/{id}/presence
func (h *UserHandler) Presence(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.users.GetByID(r.Context(), id); err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	online, err := h.presence.IsOnline(r.Context(), id)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, PresenceResponse{UserID: id, Online: online})
}

// UpdateUserProfile applies a partial profile update for the caller.
// PUT /api/users/profile
func (h *UserHandler) UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := api_helpers.DecodeJSONBody(r, &req); err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}

	patch := user.ProfilePatch{Name: req.Name, Bio: req.Bio, Avatar: req.Avatar}
	if req.OfferedSkills != nil {
		patch.OfferedSkills = *req.OfferedSkills
		patch.ReplaceOffered = true
	}
	if req.RequiredSkills != nil {
		patch.RequiredSkills = *req.RequiredSkills
		patch.ReplaceRequired = true
	}

	updated, err := h.users.UpdateProfile(r.Context(), callerID(r), patch)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) respondWithSession(w http.ResponseWriter, status int, u *user.User) {
	token, err := h.tokens.GenerateToken(u.ID, u.Email)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	refresh, err := h.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, status, AuthResponse{Token: token, RefreshToken: refresh, User: u})
}

// callerID is set by the auth middleware on every protected route.
func callerID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
