package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTValidator(t *testing.T) {
	v := NewJWTValidator("secret")

	t.Run("issued token", func(t *testing.T) {
		token, err := v.Issue("alice", time.Hour)
		require.NoError(t, err)
		userID, err := v.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", userID)
	})

	t.Run("numeric user_id claim", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 42}).SignedString([]byte("secret"))
		require.NoError(t, err)
		userID, err := v.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "42", userID)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := v.Issue("alice", -time.Minute)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewJWTValidator("other").Issue("alice", time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("no user claim", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin"}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestMiddleware(t *testing.T) {
	v := NewJWTValidator("secret")
	var seen string
	h := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := v.Issue("bob", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "bob", seen)

	for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "header %q", header)
	}
}
