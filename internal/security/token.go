package security

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"teamline/internal/domain"
)

// TokenService validates the identity tokens minted by the surrounding
// application's identity provider, and can mint them itself for tooling
// and tests. Claims carry the user id plus the display fields needed to
// render authors and typing indicators.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
}

func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		expiresIn: expiresIn,
	}
}

// CreateForUser creates a JWT carrying the user's identity claims.
func (t *TokenService) CreateForUser(u *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":          strconv.FormatInt(u.ID, 10),
		"username":     u.Username,
		"display_name": u.DisplayName,
		"iat":          now.Unix(),
		"exp":          now.Add(t.expiresIn).Unix(),
	}
	if u.AvatarURL != nil {
		claims["avatar_url"] = *u.AvatarURL
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token and returns its claims.
func (t *TokenService) Parse(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		return claims, nil
	}
	return nil, jwt.ErrTokenMalformed
}

// UserFromClaims rebuilds the identity provider's user view from token
// claims. Returns nil when the subject is missing or malformed.
func UserFromClaims(claims jwt.MapClaims) *domain.User {
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	u := &domain.User{ID: id}
	u.Username, _ = claims["username"].(string)
	u.DisplayName, _ = claims["display_name"].(string)
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	if avatar, ok := claims["avatar_url"].(string); ok && avatar != "" {
		u.AvatarURL = &avatar
	}
	if u.Username == "" {
		return nil
	}
	return u
}
