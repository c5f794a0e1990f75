package shopstub

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/storefront-sync/internal/shopstub/store"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims are the access-token claims issued by the stub auth service.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenPair is what register, login and refresh hand back: a short-lived
// access token carrying the user's profile claims and a long-lived refresh
// token carrying only the subject.
type TokenPair struct {
	Access    string
	Refresh   string
	ExpiresAt time.Time // access-token expiry
}

// TokenService signs and validates the stub's JWT token pairs.
type TokenService struct {
	secretKey          []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

func NewTokenService(secretKey string, accessExpiry, refreshExpiry time.Duration) *TokenService {
	return &TokenService{
		secretKey:          []byte(secretKey),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
	}
}

// IssuePair signs a fresh token pair for the user.
func (s *TokenService) IssuePair(user *store.User) (TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTokenExpiry)

	access, err := s.sign(Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := s.sign(jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTokenExpiry)),
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh, ExpiresAt: expiresAt}, nil
}

// ValidateAccessToken returns the profile claims of a valid access token.
func (s *TokenService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateRefreshToken returns the user id a valid refresh token was issued
// for.
func (s *TokenService) ValidateRefreshToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *TokenService) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
}

func (s *TokenService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
