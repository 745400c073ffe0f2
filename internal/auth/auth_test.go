package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestVerifier(t *testing.T) {
	v := NewVerifier("s3cret", "noodle-auth")
	user := User{ID: "user-1", Email: "asha@example.com", Name: "Asha"}

	t.Run("round trip", func(t *testing.T) {
		token, err := v.Issue(user, time.Hour)
		require.NoError(t, err)

		got, err := v.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := v.Issue(user, -time.Hour)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewVerifier("other", "noodle-auth").Issue(user, time.Hour)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := NewVerifier("s3cret", "someone-else").Issue(user, time.Hour)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned token", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := v.Issue(User{Email: "x@example.com"}, time.Hour)
		require.NoError(t, err)

		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("not configured", func(t *testing.T) {
		empty := NewVerifier("", "")
		assert.False(t, empty.Configured())

		_, err := empty.Verify("anything")
		assert.ErrorIs(t, err, ErrNotConfigured)
		_, err = empty.Issue(user, time.Hour)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestRequireUser(t *testing.T) {
	v := NewVerifier("s3cret", "")
	token, err := v.Issue(User{ID: "user-1"}, time.Hour)
	require.NoError(t, err)

	protected := func(v *Verifier) http.Handler {
		return RequireUser(v, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				t.Error("user missing from context")
			}
			_, _ = w.Write([]byte(user.ID))
		}))
	}

	tests := []struct {
		name       string
		verifier   *Verifier
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", v, "Bearer " + token, http.StatusOK, "user-1"},
		{"lowercase scheme", v, "bearer " + token, http.StatusOK, "user-1"},
		{"no header", v, "", http.StatusUnauthorized, "sign in required"},
		{"basic auth", v, "Basic abc", http.StatusUnauthorized, "sign in required"},
		{"garbage token", v, "Bearer abc.def.ghi", http.StatusUnauthorized, "invalid or expired token"},
		{"not configured", NewVerifier("", ""), "Bearer " + token, http.StatusServiceUnavailable, "identity provider is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected(tt.verifier).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
