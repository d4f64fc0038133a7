package auth

import (
	"errors"
	"fmt"
	"time"

	"todo_api/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserIDKey is the gin context key holding the authenticated user id
const UserIDKey = "userID"

const issuer = "todo_api"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

type Claims struct {
	UserID int       `json:"user_id"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is embedded in auth responses, so the access token serializes as "token"
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithExpirationRequired(),
	jwt.WithIssuedAt(),
	jwt.WithIssuer(issuer),
)

// GenerateTokenPair mints an access and a refresh token for userID. Each token
// carries its own jti, so repeated logins never hand out the same string.
func GenerateTokenPair(userID int, jwtCfg *config.JWTConfig) (*TokenPair, error) {
	pair := &TokenPair{ExpiresIn: int64(jwtCfg.AccessTTL.Seconds())}

	var err error
	if pair.AccessToken, err = generateToken(userID, AccessToken, jwtCfg.AccessTTL, jwtCfg.Secret); err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	if pair.RefreshToken, err = generateToken(userID, RefreshToken, jwtCfg.RefreshTTL, jwtCfg.Secret); err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return pair, nil
}

func generateToken(userID int, tokenType TokenType, ttl time.Duration, secret string) (string, error) {
	issuedAt := time.Now()

	return jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: userID,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}).SignedString([]byte(secret))
}

// ValidateToken parses tokenString and returns its claims. Expired tokens
// yield ErrExpiredToken; every other failure is ErrInvalidToken.
func ValidateToken(tokenString string, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	case claims.UserID <= 0:
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetUserIDFromContext extracts the authenticated user id set by AuthMiddleware
func GetUserIDFromContext(c *gin.Context) (int, error) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return 0, fmt.Errorf("user ID not found in context")
	}

	id, ok := value.(int)
	if !ok {
		return 0, fmt.Errorf("invalid user ID type")
	}

	return id, nil
}
