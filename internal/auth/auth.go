package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/form3tech-oss/jwt-go"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller.
type Identity struct {
	UserID      string
	DisplayName string
}

// Verifier turns a bearer token into an identity.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// HS256Verifier checks tokens signed with a shared secret. The subject
// claim carries the user id; an optional name claim carries the display
// name.
type HS256Verifier struct {
	Secret []byte
}

func NewHS256(secret string) *HS256Verifier {
	return &HS256Verifier{Secret: []byte(secret)}
}

func (v *HS256Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.Secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	name, _ := claims["name"].(string)
	if name == "" {
		name = sub
	}
	return Identity{UserID: sub, DisplayName: name}, nil
}

// Sign issues a token for the identity, mainly for tests and local use.
func (v *HS256Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  id.UserID,
		"name": id.DisplayName,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.Secret)
}
