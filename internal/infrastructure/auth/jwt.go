package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yebrai/skillswap/internal/config"
)

const (
	// TokenTypeAccess identifies an access token.
	TokenTypeAccess = "access_token"
	// TokenTypeRefresh identifies a refresh token.
	TokenTypeRefresh = "refresh_token"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// CustomClaims includes custom data for the JWT.
type CustomClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"` // Empty on refresh tokens
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// JWTService provides operations for JWT generation and validation.
type JWTService struct {
	secretKey       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	issuer          string
	audience        string
	now             func() time.Time
}

// NewJWTService creates a new JWTService from the jwt config section.
func NewJWTService(cfg config.JWT) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("JWT token TTLs must be positive")
	}
	return &JWTService{
		secretKey:       []byte(cfg.Secret),
		accessTokenTTL:  cfg.AccessTTL,
		refreshTokenTTL: cfg.RefreshTTL,
		issuer:          cfg.Issuer,
		audience:        cfg.Audience,
		now:             time.Now,
	}, nil
}

// SetClock replaces the time source used for issuing and validating tokens.
func (s *JWTService) SetClock(now func() time.Time) { s.now = now }

// GenerateToken generates a new access token for a user.
func (s *JWTService) GenerateToken(userID, email string) (string, error) {
	return s.sign(CustomClaims{UserID: userID, Email: email, Type: TokenTypeAccess}, s.accessTokenTTL, "")
}

// GenerateRefreshToken generates a new refresh token for a user.
func (s *JWTService) GenerateRefreshToken(userID string) (string, error) {
	return s.sign(CustomClaims{UserID: userID, Type: TokenTypeRefresh}, s.refreshTokenTTL, uuid.NewString())
}

func (s *JWTService) sign(claims CustomClaims, ttl time.Duration, id string) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		Subject:   claims.UserID,
		ID:        id,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken validates a JWT token string.
// It returns the custom claims if the token is valid, or an error otherwise.
func (s *JWTService) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if s.audience != "" && !slices.Contains(claims.Audience, s.audience) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	return claims, nil
}

// ValidateAccessToken is ValidateToken restricted to access tokens.
func (s *JWTService) ValidateAccessToken(tokenString string) (*CustomClaims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// AccessUserID returns the user id carried by a valid access token. It
// satisfies websocket.Authenticator.
func (s *JWTService) AccessUserID(tokenString string) (string, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// ContextKey defines a type for context keys to avoid collisions.
type ContextKey string

const (
	// UserIDKey is the key for storing UserID in context.
	UserIDKey ContextKey = "userID"
	// UserClaimsKey is the key for storing the whole claims object.
	UserClaimsKey ContextKey = "userClaims"
)

// WithClaims stores the caller's claims and id in ctx.
func WithClaims(ctx context.Context, claims *CustomClaims) context.Context {
	ctx = context.WithValue(ctx, UserClaimsKey, claims)
	return context.WithValue(ctx, UserIDKey, claims.UserID)
}

// UserIDFromContext returns the id stored by WithClaims.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}
