// Package boardsyncauth provides the token-verification contract consumed by
// the realtime channel. Credential issuance lives elsewhere; the server only
// ever maps an opaque credential to a stable user identity or rejects it.
package boardsyncauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the resolved owner of a connection.
type Identity struct {
	UserID   string
	Username string
}

var (
	// ErrInvalidToken covers bad, missing, and expired credentials alike.
	ErrInvalidToken = errors.New("invalid token")

	// ErrVerifyTimeout is returned when verification does not complete
	// within its deadline. It counts as an authentication failure, not a
	// crash.
	ErrVerifyTimeout = errors.New("token verification timed out")
)

// Verifier maps an opaque credential to a user identity or rejects it.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, token string) (Identity, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

// JWTVerifier validates HS256 bearer tokens signed with a shared secret.
// The subject claim is the user id; preferred_username or username, when
// present, supplies the display name.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("%w: empty credential", ErrInvalidToken)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	identity := Identity{UserID: sub, Username: sub}
	for _, key := range []string{"preferred_username", "username"} {
		if name, ok := claims[key].(string); ok && name != "" {
			identity.Username = name
			break
		}
	}
	return identity, nil
}

// WithTimeout bounds the latency of an arbitrary Verifier. Verification that
// outlives the deadline fails with ErrVerifyTimeout; the underlying call is
// abandoned to its context.
func WithTimeout(v Verifier, d time.Duration) Verifier {
	return VerifierFunc(func(ctx context.Context, token string) (Identity, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		type result struct {
			identity Identity
			err      error
		}
		ch := make(chan result, 1)
		go func() {
			identity, err := v.Verify(ctx, token)
			ch <- result{identity, err}
		}()

		select {
		case res := <-ch:
			return res.identity, res.err
		case <-ctx.Done():
			return Identity{}, ErrVerifyTimeout
		}
	})
}
