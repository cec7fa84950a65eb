package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"lecto-bridge/internal/domain"
)

const userTokenableType = "App\\Infrastructure\\Persistence\\Models\\User"

var ErrTokenNotFound = errors.New("token not found")

type PersonalAccessTokenRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPersonalAccessTokenRepository(db *sql.DB, logger *slog.Logger) *PersonalAccessTokenRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersonalAccessTokenRepository{db: db, logger: logger}
}

// splitToken parses "<id>|<secret>". A token without a numeric id prefix is
// treated as a bare secret.
func splitToken(plain string) (*int64, string) {
	idx := strings.Index(plain, "|")
	if idx <= 0 {
		return nil, plain
	}
	id, err := strconv.ParseInt(plain[:idx], 10, 64)
	if err != nil {
		return nil, plain[idx+1:]
	}
	return &id, plain[idx+1:]
}

func hashToken(secret string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(secret)))
}

func (r *PersonalAccessTokenRepository) FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error) {
	plainToken = strings.TrimSpace(plainToken)
	if plainToken == "" {
		return nil, errors.New("empty token")
	}

	tokenID, secret := splitToken(plainToken)
	hash := hashToken(secret)
	now := time.Now()

	var pat domain.PersonalAccessToken

	if tokenID != nil {
		query := `
			SELECT id, token, tokenable_id, abilities, expires_at
			FROM personal_access_tokens
			WHERE id = $1
			  AND tokenable_type = $2
			  AND (expires_at IS NULL OR expires_at > $3)
		`

		err := r.db.QueryRowContext(ctx, query, *tokenID, userTokenableType, now).Scan(
			&pat.ID,
			&pat.TokenHash,
			&pat.UserID,
			&pat.Abilities,
			&pat.ExpiresAt,
		)
		switch {
		case err == nil && (pat.TokenHash == hash || pat.TokenHash == secret):
			return &pat, nil
		case err == nil:
			r.logger.Debug("token secret mismatch", "token_id", *tokenID)
		case !errors.Is(err, sql.ErrNoRows):
			r.logger.Warn("token lookup by id failed", "token_id", *tokenID, "error", err)
		}
	}

	query := `
		SELECT id, token, tokenable_id, abilities, expires_at
		FROM personal_access_tokens
		WHERE tokenable_type = $1
		  AND token IN ($2, $3)
		  AND (expires_at IS NULL OR expires_at > $4)
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, userTokenableType, hash, secret, now).Scan(
		&pat.ID,
		&pat.TokenHash,
		&pat.UserID,
		&pat.Abilities,
		&pat.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}

	return &pat, nil
}
