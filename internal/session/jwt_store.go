package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sinzn/dbDrive/internal/domain"
)

// claims carries the identity snapshot inside the token itself.
type claims struct {
	jwt.RegisteredClaims
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// JWTStore issues self-contained HS256 tokens. Logout revokes the token id
// in memory until the token would have expired anyway, so revocations do
// not survive a restart.
type JWTStore struct {
	secret []byte
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewJWTStore(secret string) (*JWTStore, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("session: jwt secret must be at least 16 bytes")
	}
	return &JWTStore{
		secret:  []byte(secret),
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

func (j *JWTStore) Create(_ context.Context, s Session) (string, error) {
	if s.UserID == 0 {
		return "", fmt.Errorf("session: missing user id")
	}
	jti, err := GenerateID()
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(s.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		Username: s.Username,
		Role:     s.Role,
	})

	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

func (j *JWTStore) parse(token string, opts ...jwt.ParserOption) (*claims, error) {
	c := &claims{}
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	)
	parsed, err := jwt.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return c, nil
}

func (j *JWTStore) Get(_ context.Context, token string) (*Session, error) {
	c, err := j.parse(token, jwt.WithExpirationRequired())
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	j.mu.Lock()
	_, revoked := j.revoked[c.ID]
	j.mu.Unlock()
	if revoked {
		return nil, domain.ErrUnauthenticated
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, domain.ErrUnauthenticated
	}

	s := &Session{
		Token:     token,
		UserID:    userID,
		Username:  c.Username,
		Role:      c.Role,
		ExpiresAt: c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		s.CreatedAt = c.IssuedAt.Time
	}
	return s, nil
}

// Delete revokes a token. Tokens with a bad signature are ignored.
func (j *JWTStore) Delete(_ context.Context, token string) error {
	c, err := j.parse(token, jwt.WithoutClaimsValidation())
	if err != nil || c.ID == "" || c.ExpiresAt == nil {
		return nil
	}
	if !j.now().Before(c.ExpiresAt.Time) {
		return nil
	}

	j.mu.Lock()
	j.revoked[c.ID] = c.ExpiresAt.Time
	j.mu.Unlock()
	return nil
}

// PurgeExpired forgets revocations for tokens that have expired since.
func (j *JWTStore) PurgeExpired(_ context.Context) int {
	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()
	removed := 0
	for id, exp := range j.revoked {
		if !now.Before(exp) {
			delete(j.revoked, id)
			removed++
		}
	}
	return removed
}

var (
	_ Store  = (*JWTStore)(nil)
	_ Purger = (*JWTStore)(nil)
)
