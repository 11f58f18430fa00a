package token

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/medpoint/authsvc/internal/common"
	"github.com/medpoint/authsvc/internal/server/keys"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey error: %v", err)
	}
	return NewCodec(&keys.Pair{Private: key, Public: &key.PublicKey})
}

func TestMintAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	for _, kind := range []Kind{KindAccess, KindRefresh} {
		tok, err := codec.Mint("user-123", kind, time.Hour)
		if err != nil {
			t.Fatalf("Mint(%s) error: %v", kind, err)
		}

		claims, err := codec.Verify(tok, kind)
		if err != nil {
			t.Fatalf("Verify(%s) error: %v", kind, err)
		}
		if claims.Subject != "user-123" {
			t.Fatalf("subject mismatch: got %q", claims.Subject)
		}
		if claims.ID == "" {
			t.Fatalf("expected a jti on minted token")
		}
		if !claims.ExpiresAt.After(claims.IssuedAt.Time) {
			t.Fatalf("exp must be after iat: exp=%v iat=%v", claims.ExpiresAt, claims.IssuedAt)
		}
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	tok, err := codec.Mint("u1", KindAccess, -1*time.Minute)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}

	_, err = codec.Verify(tok, KindAccess)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestVerify_LeewayAbsorbsSmallSkew(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	tok, err := codec.Mint("u1", KindAccess, time.Hour)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}

	// A verifier whose clock runs a few seconds behind must still accept
	// a token that is technically not yet valid on its clock.
	codec.now = func() time.Time { return time.Now().Add(-5 * time.Second) }
	if _, err := codec.Verify(tok, KindAccess); err != nil {
		t.Fatalf("expected skewed verify to succeed, got %v", err)
	}
}

func TestVerify_NotYetValid(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	tok, err := codec.Mint("u1", KindAccess, time.Hour)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}

	// Far before iat/nbf the token must be rejected.
	codec.now = func() time.Time { return time.Now().Add(-time.Hour) }
	if _, err := codec.Verify(tok, KindAccess); err == nil {
		t.Fatalf("expected not-yet-valid token to be rejected")
	}
}

func TestVerify_KindMismatch(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	refresh, err := codec.Mint("u1", KindRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}

	_, err = codec.Verify(refresh, KindAccess)
	if !errors.Is(err, common.ErrTokenKindMismatch) {
		t.Fatalf("expected common.ErrTokenKindMismatch, got %v", err)
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	tok, err := codec.Mint("u1", KindAccess, time.Hour)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %q", tok)
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Verify(tampered, KindAccess)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestVerify_WrongKey(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	other := newTestCodec(t)

	tok, err := codec.Mint("u1", KindAccess, time.Hour)
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}

	_, err = other.Verify(tok, KindAccess)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	_, err := codec.Verify("not.a.jwt", KindAccess)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}
