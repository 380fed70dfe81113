package auth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newPair(t *testing.T) (*Verifier, *Signer) {
	t.Helper()
	v, err := NewVerifier(testSecret, "HS256")
	require.NoError(t, err)
	s, err := NewSigner(testSecret, "HS256")
	require.NoError(t, err)
	return v, s
}

func TestAuthenticate_SubClaim(t *testing.T) {
	v, s := newPair(t)
	token, err := s.SignUser("sub", 42, time.Hour)
	require.NoError(t, err)

	userID, err := v.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestAuthenticate_FallsBackToUserIDClaim(t *testing.T) {
	v, s := newPair(t)
	token, err := s.SignUser("userId", 7, time.Hour)
	require.NoError(t, err)

	userID, err := v.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestUserID_ClaimOrder(t *testing.T) {
	v, _ := newPair(t)

	tests := []struct {
		name    string
		claims  jwt.MapClaims
		want    int64
		wantErr bool
	}{
		{"sub wins over userId", jwt.MapClaims{"sub": "1", "userId": "2"}, 1, false},
		{"numeric sub", jwt.MapClaims{"sub": float64(15)}, 15, false},
		{"empty sub falls back", jwt.MapClaims{"sub": "", "userId": "9"}, 9, false},
		{"null sub falls back", jwt.MapClaims{"sub": nil, "userId": float64(3)}, 3, false},
		{"zero sub falls back", jwt.MapClaims{"sub": float64(0), "userId": "8"}, 8, false},
		{"false sub falls back", jwt.MapClaims{"sub": false, "userId": float64(6)}, 6, false},
		{"zero json number falls back", jwt.MapClaims{"sub": json.Number("0"), "userId": "2"}, 2, false},
		{"only zero", jwt.MapClaims{"sub": float64(0)}, 0, true},
		{"no claims", jwt.MapClaims{"name": "x"}, 0, true},
		{"non numeric sub", jwt.MapClaims{"sub": "abc", "userId": "4"}, 0, true},
		{"fractional id", jwt.MapClaims{"userId": 1.5}, 0, true},
		{"boolean id", jwt.MapClaims{"sub": true}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.UserID(tt.claims)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticate_Rejects(t *testing.T) {
	v, s := newPair(t)

	expired, err := s.Sign(jwt.MapClaims{"sub": "1", "exp": time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, err)

	other, err := NewSigner("another-secret", "HS256")
	require.NoError(t, err)
	wrongKey, err := other.SignUser("sub", 1, time.Hour)
	require.NoError(t, err)

	hs512, err := NewSigner(testSecret, "HS512")
	require.NoError(t, err)
	wrongAlg, err := hs512.SignUser("sub", 1, time.Hour)
	require.NoError(t, err)

	noUser, err := s.Sign(jwt.MapClaims{"role": "admin"})
	require.NoError(t, err)

	headers := map[string]string{
		"missing header":   "",
		"wrong scheme":     "Basic dXNlcjpwYXNz",
		"bearer no token":  "Bearer ",
		"malformed token":  "Bearer not.a.jwt",
		"expired":          "Bearer " + expired,
		"wrong secret":     "Bearer " + wrongKey,
		"wrong algorithm":  "Bearer " + wrongAlg,
		"no user id claim": "Bearer " + noUser,
	}

	for name, header := range headers {
		t.Run(name, func(t *testing.T) {
			_, err := v.Authenticate(header)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = BearerToken("abc")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestNewVerifier_RejectsNonHMAC(t *testing.T) {
	_, err := NewVerifier(testSecret, "RS256")
	assert.Error(t, err)

	_, err = NewSigner(testSecret, "none")
	assert.Error(t, err)
}

func TestNewVerifier_CustomClaims(t *testing.T) {
	v, err := NewVerifier(testSecret, "HS256", "uid")
	require.NoError(t, err)

	id, err := v.UserID(jwt.MapClaims{"sub": "1", "uid": "5"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
}
