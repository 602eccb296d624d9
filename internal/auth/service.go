package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"portfolio/internal/redis"
)

const redisTokenPrefix = "auth:token:"

var (
	ErrTokenRequired = errors.New("token required")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
)

// Service issues, validates, and revokes admin bearer tokens. Tokens live in
// the admin_tokens table; redis, when configured, caches the token to admin
// mapping for the token's remaining lifetime.
type Service struct {
	db         *sql.DB
	cache      *redis.Client
	tokenTTL   time.Duration
	headerName string
	logger     zerolog.Logger
}

// NewService constructs an auth service with the supplied token lifetime.
// cache may be nil.
func NewService(db *sql.DB, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		db:         db,
		cache:      cache,
		tokenTTL:   ttl,
		headerName: "Authorization",
		logger:     logger,
	}
}

// IssueToken mints a new random token for the admin and persists it.
func (s *Service) IssueToken(ctx context.Context, adminID int64) (string, error) {
	if adminID <= 0 {
		return "", errors.New("invalid admin id")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	for i := 0; i < 5; i++ {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO admin_tokens (token, admin_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
			token, adminID, now, expiresAt,
		)
		if err == nil {
			s.cacheToken(ctx, token, adminID, s.tokenTTL)
			return token, nil
		}
	}
	return "", errors.New("could not issue token")
}

// ValidateToken verifies the token exists and has not expired, returning the admin id.
func (s *Service) ValidateToken(ctx context.Context, authToken string) (int64, error) {
	if authToken == "" {
		return 0, ErrTokenRequired
	}
	if s.cache.Enabled() {
		if val, err := s.cache.Get(ctx, redisTokenPrefix+authToken); err == nil {
			if id, perr := strconv.ParseInt(val, 10, 64); perr == nil {
				return id, nil
			}
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn().Err(err).Msg("token cache lookup failed")
		}
	}

	var adminID int64
	var expires time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT admin_id, expires_at FROM admin_tokens WHERE token = ?`, authToken,
	).Scan(&adminID, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrInvalidToken
		}
		return 0, fmt.Errorf("lookup token: %w", err)
	}
	remaining := time.Until(expires)
	if remaining <= 0 {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM admin_tokens WHERE token = ?`, authToken)
		return 0, ErrTokenExpired
	}
	s.cacheToken(ctx, authToken, adminID, remaining)
	return adminID, nil
}

// RevokeToken deletes a single token.
func (s *Service) RevokeToken(ctx context.Context, authToken string) error {
	if authToken == "" {
		return nil
	}
	if s.cache.Enabled() {
		if err := s.cache.Del(ctx, redisTokenPrefix+authToken); err != nil {
			s.logger.Warn().Err(err).Msg("token cache delete failed")
		}
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admin_tokens WHERE token = ?`, authToken); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// PurgeExpired removes expired tokens and returns how many were deleted.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_tokens WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	return res.RowsAffected()
}

func (s *Service) cacheToken(ctx context.Context, token string, adminID int64, ttl time.Duration) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Set(ctx, redisTokenPrefix+token, strconv.FormatInt(adminID, 10), ttl); err != nil {
		s.logger.Warn().Err(err).Msg("token cache store failed")
	}
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}
