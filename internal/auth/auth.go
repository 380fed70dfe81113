// Package auth verifies bearer tokens issued by the identity provider and
// resolves the caller's user id from their claims.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned for a missing, malformed, expired or
// wrongly signed credential.
var ErrUnauthenticated = errors.New("unauthenticated")

// DefaultUserClaims lists the claims holding the user id, in priority order.
// Tokens from the auth service carry "sub"; the older issuer only sets "userId".
var DefaultUserClaims = []string{"sub", "userId"}

// Verifier validates HMAC-signed JWTs.
type Verifier struct {
	key        []byte
	userClaims []string
	parser     *jwt.Parser
}

// NewVerifier returns a Verifier that only accepts tokens signed with
// algorithm. When userClaims is empty DefaultUserClaims is used.
func NewVerifier(secret, algorithm string, userClaims ...string) (*Verifier, error) {
	method, err := hmacMethod(algorithm)
	if err != nil {
		return nil, err
	}
	if len(userClaims) == 0 {
		userClaims = DefaultUserClaims
	}
	return &Verifier{
		key:        []byte(secret),
		userClaims: userClaims,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{method.Alg()})),
	}, nil
}

// Authenticate resolves the user id from an Authorization header value.
func (v *Verifier) Authenticate(header string) (int64, error) {
	token, err := BearerToken(header)
	if err != nil {
		return 0, err
	}
	claims, err := v.Verify(token)
	if err != nil {
		return 0, err
	}
	return v.UserID(claims)
}

// Verify checks the token signature and time-based claims.
func (v *Verifier) Verify(token string) (jwt.MapClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnauthenticated)
	}
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return claims, nil
}

// UserID returns the id held by the first configured claim that is present.
func (v *Verifier) UserID(claims jwt.MapClaims) (int64, error) {
	for _, name := range v.userClaims {
		raw, ok := claims[name]
		if !ok || blankClaim(raw) {
			continue
		}
		id, err := parseUserID(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: claim %q: %v", ErrUnauthenticated, name, err)
		}
		return id, nil
	}
	return 0, fmt.Errorf("%w: no user id claim", ErrUnauthenticated)
}

// blankClaim reports claim values that count as unset: null, "", false and 0.
func blankClaim(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	}
	return false
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	return token, nil
}

func parseUserID(raw any) (int64, error) {
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, fmt.Errorf("unsupported type %T", raw)
}

// Signer issues tokens the Verifier accepts. It exists for tooling and tests;
// production tokens come from the identity provider.
type Signer struct {
	key    []byte
	method jwt.SigningMethod
}

// NewSigner returns a Signer for an HMAC algorithm.
func NewSigner(secret, algorithm string) (*Signer, error) {
	method, err := hmacMethod(algorithm)
	if err != nil {
		return nil, err
	}
	return &Signer{key: []byte(secret), method: method}, nil
}

// Sign signs arbitrary claims.
func (s *Signer) Sign(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(s.method, claims).SignedString(s.key)
}

// SignUser signs a token carrying userID in claim. A zero ttl omits "exp".
func (s *Signer) SignUser(claim string, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		claim: strconv.FormatInt(userID, 10),
		"iat": now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	return s.Sign(claims)
}

func hmacMethod(algorithm string) (*jwt.SigningMethodHMAC, error) {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	return method, nil
}
