// Package services contains server-side business logic. This file implements
// AuthService, which verifies credentials and issues, refreshes, and revokes
// the access/refresh token pair.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/medpoint/authsvc/internal/common"
	"github.com/medpoint/authsvc/internal/dbx"
	"github.com/medpoint/authsvc/internal/server/config"
	"github.com/medpoint/authsvc/internal/server/denylist"
	"github.com/medpoint/authsvc/internal/server/models"
	"github.com/medpoint/authsvc/internal/server/repositories/repomanager"
	"github.com/medpoint/authsvc/internal/server/token"
)

// dummyHash is a valid bcrypt hash compared against the submitted password
// when the identifier resolves to no user, so the unknown-identifier path
// costs the same as a real comparison.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthService provides authentication-related operations:
// - Login: verify credentials and mint a token pair
// - Refresh: redeem a refresh token for a new pair, rotating the old one
// - Logout: revoke a refresh token
// - VerifyAccess: validate an access token for authorization middleware
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	codec                        *token.Codec
	denylist                     denylist.Denylist
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewAuthService constructs an AuthService using repositories, the token
// codec, the denylist backend, and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, codec *token.Codec, dl denylist.Denylist, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		codec:                        codec,
		denylist:                     dl,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Login resolves the identifier (email when it contains "@", username
// otherwise), verifies the password against the stored bcrypt hash, and on
// success returns a fresh TokenPair. An unknown identifier and a wrong
// password both surface as common.ErrorInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	user, err := s.findUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, common.ErrorInvalidCredentials
		}
		return nil, common.ErrorUnavailable
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, common.ErrorInvalidCredentials
	}

	return s.generateTokenPair(user.ID)
}

// Refresh re-verifies the refresh token, checks it against the denylist,
// rotates it (the redeemed jti stays revoked until the token would have
// expired), and mints a new pair without re-authenticating credentials.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, common.ErrorUnavailable
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}

	if err := s.denylist.Revoke(ctx, claims.ID, remainingTTL(claims)); err != nil {
		return nil, common.ErrorUnavailable
	}

	return s.generateTokenPair(claims.Subject)
}

// Logout revokes the presented refresh token. Invalid or already-expired
// tokens are ignored: the session is gone either way once the cookie is
// cleared by the HTTP layer.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return nil
	}

	if err := s.denylist.Revoke(ctx, claims.ID, remainingTTL(claims)); err != nil {
		return common.ErrorUnavailable
	}

	return nil
}

// VerifyAccess validates an access token and returns the embedded subject.
func (s *AuthService) VerifyAccess(tokenString string) (string, error) {
	claims, err := s.codec.Verify(tokenString, token.KindAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// SeedUser creates the bootstrap user unless a record with the same email
// already exists. Runs in a transaction so concurrent starts do not race.
func (s *AuthService) SeedUser(ctx context.Context, username, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing seed password: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, email)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		_, err = repo.Create(ctx, &models.User{
			Username:     username,
			Email:        email,
			PasswordHash: string(hash),
		})
		return err
	})
}

// --- helpers below ---

func remainingTTL(claims *token.Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}

func (s *AuthService) findUser(ctx context.Context, identifier string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	if strings.Contains(identifier, "@") {
		return repo.GetByEmail(ctx, identifier)
	}
	return repo.GetByUsername(ctx, identifier)
}

func (s *AuthService) generateTokenPair(userID string) (*TokenPair, error) {
	access, err := s.codec.Mint(userID, token.KindAccess, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refresh, err := s.codec.Mint(userID, token.KindRefresh, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: time.Now().Add(s.refreshTokenValidityDuration),
	}, nil
}
