// Package token encodes, decodes, and verifies the signed tokens issued by
// the service. Tokens are self-contained RS256 JWTs carrying a subject, a
// kind (access or refresh), and the usual iat/nbf/exp timestamps plus a jti
// used for refresh-token revocation.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medpoint/authsvc/internal/common"
	"github.com/medpoint/authsvc/internal/server/keys"
)

// Kind distinguishes token usage. A token presented where the other kind is
// expected must be rejected.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// leeway absorbs small clock skew between issuer and verifier on the
// exp/nbf comparisons.
const leeway = 10 * time.Second

// Claims is the claim set embedded in every issued token.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"kind"`
}

// Codec signs tokens with the private key and verifies them with the public
// key. The key pair is immutable, so a single Codec is safe for concurrent
// use across request handlers.
type Codec struct {
	pair *keys.Pair
	now  func() time.Time
}

func NewCodec(pair *keys.Pair) *Codec {
	return &Codec{pair: pair, now: time.Now}
}

// Mint builds a claim set {sub, kind, jti, iat, nbf, exp=iat+ttl} and signs
// it with RS256.
func (c *Codec) Mint(subject string, kind Kind, ttl time.Duration) (string, error) {
	now := c.now()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.pair.Private)
}

// Verify parses the token, checks the RS256 signature against the public key,
// enforces exp (with leeway) and nbf, and requires the embedded kind to match
// the expected one. Failures map to distinct sentinel errors because callers
// react differently: an expired access token triggers a refresh, an invalid
// or expired refresh token forces re-login.
func (c *Codec) Verify(tokenString string, expected Kind) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.pair.Public, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	if claims.Kind != expected {
		return nil, common.ErrTokenKindMismatch
	}

	return claims, nil
}
