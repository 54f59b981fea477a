package boardsyncauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tj/assert"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	assert.NoError(t, err)
	return token
}

func TestJWTVerifier(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)
	ctx := context.Background()

	t.Run("valid token resolves identity", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"sub": "user-42",
			"exp": time.Now().Add(time.Hour).Unix(),
		}, testSecret)

		identity, err := verifier.Verify(ctx, token)
		assert.NoError(t, err)
		assert.Equal(t, "user-42", identity.UserID)
		assert.Equal(t, "user-42", identity.Username)
	})

	t.Run("preferred_username supplies the display name", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"sub":                "user-42",
			"preferred_username": "Alice",
			"exp":                time.Now().Add(time.Hour).Unix(),
		}, testSecret)

		identity, err := verifier.Verify(ctx, token)
		assert.NoError(t, err)
		assert.Equal(t, "Alice", identity.Username)
	})

	t.Run("empty credential fails", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("garbage credential fails", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "not-a-jwt")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"sub": "user-42"}, []byte("other-secret"))
		_, err := verifier.Verify(ctx, token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("expired token fails", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"sub": "user-42",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}, testSecret)
		_, err := verifier.Verify(ctx, token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("missing subject fails", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, testSecret)
		_, err := verifier.Verify(ctx, token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestWithTimeout(t *testing.T) {
	t.Run("fast verifier passes through", func(t *testing.T) {
		inner := VerifierFunc(func(context.Context, string) (Identity, error) {
			return Identity{UserID: "u"}, nil
		})
		identity, err := WithTimeout(inner, time.Second).Verify(context.Background(), "token")
		assert.NoError(t, err)
		assert.Equal(t, "u", identity.UserID)
	})

	t.Run("slow verifier is an authentication failure", func(t *testing.T) {
		inner := VerifierFunc(func(ctx context.Context, _ string) (Identity, error) {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			return Identity{}, ctx.Err()
		})
		_, err := WithTimeout(inner, 10*time.Millisecond).Verify(context.Background(), "token")
		assert.True(t, errors.Is(err, ErrVerifyTimeout))
	})
}
