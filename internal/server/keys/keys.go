// Package keys loads and holds the RSA key pair used for token signatures.
// The pair is loaded once at process start and is immutable afterwards, so
// request handlers may read it concurrently without locking.
package keys

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medpoint/authsvc/internal/common"
	"github.com/medpoint/authsvc/internal/server/config"
)

// Pair is the process-wide signing key pair. Read-only after Load.
type Pair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// Load reads the private and public PEM keys from their configured locations
// (file paths or s3:// URLs), parses them, and runs a signature self-test so
// that a mismatched pair is caught at startup rather than on the first login.
// All failures wrap common.ErrKeyLoad and are fatal: the process must not
// serve traffic with an unusable key pair.
func Load(ctx context.Context, cfg *config.Config) (*Pair, error) {
	privPEM, err := readLocation(ctx, cfg, cfg.PrivateKeyLocation)
	if err != nil {
		return nil, fmt.Errorf("%w: reading private key %q: %v", common.ErrKeyLoad, cfg.PrivateKeyLocation, err)
	}

	pubPEM, err := readLocation(ctx, cfg, cfg.PublicKeyLocation)
	if err != nil {
		return nil, fmt.Errorf("%w: reading public key %q: %v", common.ErrKeyLoad, cfg.PublicKeyLocation, err)
	}

	private, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing private key: %v", common.ErrKeyLoad, err)
	}

	public, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing public key: %v", common.ErrKeyLoad, err)
	}

	if err := selfTest(private, public); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyLoad, err)
	}

	return &Pair{Private: private, Public: public}, nil
}

// selfTest signs a probe digest with the private key and verifies it with the
// public key, rejecting pairs that do not belong together.
func selfTest(private *rsa.PrivateKey, public *rsa.PublicKey) error {
	digest := sha256.Sum256([]byte("key pair self test"))

	sig, err := rsa.SignPKCS1v15(rand.Reader, private, crypto.SHA256, digest[:])
	if err != nil {
		return fmt.Errorf("self-test signing failed: %v", err)
	}

	if err := rsa.VerifyPKCS1v15(public, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("key pair mismatch: %v", err)
	}

	return nil
}
