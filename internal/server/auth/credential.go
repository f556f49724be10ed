// Package auth issues and verifies the delegated access credentials the
// gateway hands out per tenant: HS256-signed tokens scoped to one container
// with an explicit validity window and permission set. The signed token is
// stored and transported in query-string form ("?token=...") so it can be
// appended verbatim to any object URL inside the container.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/filegilla/filegateway/internal/common"
)

// TokenParam is the query parameter carrying the credential on object URLs.
const TokenParam = "token"

// Permissions granted by a container credential.
const (
	PermRead  = "read"
	PermWrite = "write"
	PermList  = "list"
)

// Claims are the statements carried by a container credential.
type Claims struct {
	jwt.RegisteredClaims
	Container   string   `json:"container"`
	Permissions []string `json:"permissions"`
}

// Issuer signs and verifies container credentials.
type Issuer struct {
	secret   []byte
	validity time.Duration
}

func NewIssuer(secret []byte, validity time.Duration) *Issuer {
	return &Issuer{secret: secret, validity: validity}
}

// Issue creates a credential for the container granting read/write/list over
// its validity window. The returned string is the query-string form; start
// and end delimit the window persisted alongside it.
func (i *Issuer) Issue(container string) (string, time.Time, time.Time, error) {
	start := time.Now().UTC()
	end := start.Add(i.validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			NotBefore: jwt.NewNumericDate(start),
			ExpiresAt: jwt.NewNumericDate(end),
			IssuedAt:  jwt.NewNumericDate(start),
		},
		Container:   container,
		Permissions: []string{PermRead, PermWrite, PermList},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}

	return "?" + TokenParam + "=" + signed, start, end, nil
}

// Verify checks that tokenString is a valid credential for the container and
// grants the permission. It accepts either the bare signed token or the
// stored query-string form.
func (i *Issuer) Verify(tokenString, container, permission string) error {
	tokenString = strings.TrimPrefix(tokenString, "?"+TokenParam+"=")

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInvalidCredential, err)
	}
	if !token.Valid {
		return common.ErrorInvalidCredential
	}

	if claims.Container != container {
		return fmt.Errorf("%w: wrong container", common.ErrorInvalidCredential)
	}
	for _, p := range claims.Permissions {
		if p == permission {
			return nil
		}
	}
	return fmt.Errorf("%w: missing permission %s", common.ErrorInvalidCredential, permission)
}
