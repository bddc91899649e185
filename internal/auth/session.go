package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"reflection-portal/internal/models"
)

// SessionCookie carries the signed session between requests.
const SessionCookie = "portal_session"

const sessionTTL = 30 * 24 * time.Hour

// Sessions signs and verifies the HS256 session tokens stored in the cookie.
type Sessions struct {
	secret []byte
}

func NewSessions(secret string) *Sessions {
	return &Sessions{secret: []byte(secret)}
}

// Issue signs a session token for a freshly authenticated user.
func (s *Sessions) Issue(user models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name":    user.Name,
		"email":   user.Email,
		"picture": user.Picture,
		"exp":     time.Now().Add(sessionTTL).Unix(),
		"iat":     time.Now().Unix(),
	})
	return token.SignedString(s.secret)
}

// Parse verifies a session token and recovers the user it was issued for.
func (s *Sessions) Parse(tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	user := &models.User{}
	if name, ok := claims["name"].(string); ok {
		user.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if picture, ok := claims["picture"].(string); ok {
		user.Picture = picture
	}
	if user.Email == "" {
		return nil, fmt.Errorf("session token has no email claim")
	}
	return user, nil
}
