package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID  int64  `json:"uid"`
	Role string `json:"role"` // user / admin / superadmin
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type JWTer struct {
	Secret     []byte
	Issuer     string
	TTL        time.Duration
	RefreshTTL time.Duration
	// Method defaults to HS256.
	Method jwt.SigningMethod
}

func (j *JWTer) method() jwt.SigningMethod {
	if j.Method != nil {
		return j.Method
	}
	return jwt.SigningMethodHS256
}

func (j *JWTer) Issue(uid int64, role string) (string, error) {
	return j.issue(uid, role, TokenAccess, j.TTL)
}

func (j *JWTer) IssueRefresh(uid int64, role string) (string, error) {
	return j.issue(uid, role, TokenRefresh, j.RefreshTTL)
}

func (j *JWTer) issue(uid int64, role, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UID:  uid,
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   fmt.Sprint(uid),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(j.method(), claims)
	return token.SignedString(j.Secret)
}

// Parse accepts access tokens only.
func (j *JWTer) Parse(tokenStr string) (*Claims, error) { return j.parse(tokenStr, TokenAccess) }

func (j *JWTer) ParseRefresh(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, TokenRefresh)
}

func (j *JWTer) parse(tokenStr, typ string) (*Claims, error) {
	want := j.method()
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != want.Alg() {
			return nil, fmt.Errorf("unexpected alg %s", token.Method.Alg())
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithLeeway(60*time.Second))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Type != typ {
		return nil, ErrInvalidToken
	}
	return c, nil
}
