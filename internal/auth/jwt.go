package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talehub/internal/apperr"
	"talehub/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Config holds the signing material. Access and refresh tokens use
// different secrets so one can never be replayed as the other.
type Config struct {
	AccessSecret  string        `yaml:"access_secret"`
	RefreshSecret string        `yaml:"refresh_secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	Issuer        string        `yaml:"issuer"`
}

// Validate rejects short or shared secrets and inconsistent lifetimes.
func (c Config) Validate() error {
	if len(c.AccessSecret) < 32 {
		return fmt.Errorf("access_secret too short (min 32 chars)")
	}
	if len(c.RefreshSecret) < 32 {
		return fmt.Errorf("refresh_secret too short (min 32 chars)")
	}
	if c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("access_secret and refresh_secret must be different")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return fmt.Errorf("refresh_ttl must be longer than access_ttl")
	}
	if c.AccessTTL > 24*time.Hour {
		return fmt.Errorf("access_ttl too long (max 24h)")
	}
	if c.RefreshTTL > 90*24*time.Hour {
		return fmt.Errorf("refresh_ttl too long (max 90 days)")
	}
	return nil
}

type Claims struct {
	AccountID uint   `json:"account_id"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenStore is the slice of the account repository the token service needs.
type TokenStore interface {
	FindAccountByID(ctx context.Context, id uint) (domain.Account, error)
	SetRefreshTokenHash(ctx context.Context, accountID uint, hash string) error
	SwapRefreshTokenHash(ctx context.Context, accountID uint, oldHash, newHash string) (bool, error)
}

// TokenService issues, verifies and rotates token pairs. Each account has
// at most one live refresh token: the one whose hash is stored on the row.
type TokenService struct {
	cfg   Config
	store TokenStore
	now   func() time.Time
}

func NewTokenService(cfg Config, store TokenStore) *TokenService {
	if cfg.Issuer == "" {
		cfg.Issuer = "talehub"
	}
	return &TokenService{cfg: cfg, store: store, now: time.Now}
}

// WithClock replaces the time source; tests use it to move past expiry.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) sign(accountID uint, email, tokenType string) (string, error) {
	ttl, secret := s.cfg.AccessTTL, s.cfg.AccessSecret
	if tokenType == TypeRefresh {
		ttl, secret = s.cfg.RefreshTTL, s.cfg.RefreshSecret
	}
	now := s.now()
	claims := Claims{
		AccountID: accountID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *TokenService) IssueAccessToken(account domain.Account) (string, error) {
	return s.sign(account.ID, account.Email, TypeAccess)
}

// IssueRefreshToken signs a refresh token and makes it the account's only
// valid one.
func (s *TokenService) IssueRefreshToken(ctx context.Context, account domain.Account) (string, error) {
	token, err := s.sign(account.ID, "", TypeRefresh)
	if err != nil {
		return "", err
	}
	if err := s.store.SetRefreshTokenHash(ctx, account.ID, HashToken(token)); err != nil {
		return "", err
	}
	return token, nil
}

func (s *TokenService) IssuePair(ctx context.Context, account domain.Account) (domain.TokenPair, error) {
	access, err := s.IssueAccessToken(account)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.IssueRefreshToken(ctx, account)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) parse(token, secret, tokenType string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	claims := &Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Wrap(apperr.KindAuthExpired, "token expired", err)
		}
		return nil, apperr.Wrap(apperr.KindAuthInvalid, "invalid token", err)
	}
	if claims.TokenType != tokenType || claims.AccountID == 0 {
		return nil, apperr.New(apperr.KindAuthInvalid, "invalid token claims")
	}
	return claims, nil
}

// VerifyAccess checks signature, expiry and token type of an access token.
func (s *TokenService) VerifyAccess(token string) (*Claims, error) {
	return s.parse(token, s.cfg.AccessSecret, TypeAccess)
}

// Rotate exchanges a refresh token for a new pair. The presented token must
// match the stored hash; the swap is conditional on that hash, so of two
// concurrent rotations with the same token only one succeeds.
func (s *TokenService) Rotate(ctx context.Context, presented string) (domain.TokenPair, error) {
	claims, err := s.parse(presented, s.cfg.RefreshSecret, TypeRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}

	account, err := s.store.FindAccountByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return domain.TokenPair{}, apperr.New(apperr.KindAuthInvalid, "account no longer exists")
		}
		return domain.TokenPair{}, err
	}

	presentedHash := HashToken(presented)
	if account.RefreshTokenHash == "" || account.RefreshTokenHash != presentedHash {
		return domain.TokenPair{}, apperr.New(apperr.KindAuthRevoked, "refresh token has been revoked")
	}

	access, err := s.IssueAccessToken(account)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.sign(account.ID, "", TypeRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}

	swapped, err := s.store.SwapRefreshTokenHash(ctx, account.ID, presentedHash, HashToken(refresh))
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !swapped {
		return domain.TokenPair{}, apperr.New(apperr.KindAuthRevoked, "refresh token has been revoked")
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Revoke forgets the stored refresh token, signing the account out.
func (s *TokenService) Revoke(ctx context.Context, accountID uint) error {
	return s.store.SetRefreshTokenHash(ctx, accountID, "")
}
