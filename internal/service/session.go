package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dittygoops/helpdesk-backend/internal/logging"
	"github.com/dittygoops/helpdesk-backend/internal/model"
	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
)

// Session is one logged-in caller resolved to exactly one active role.
type Session struct {
	UserID     uuid.UUID
	Username   string
	ActiveRole model.Role
}

type sessionClaims struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionManager binds a login to one active role for the rest of the
// session. Multi-role users pick the role at login; changing it requires
// logging in again. Tokens are JWTs; when a redis client is configured the
// active role is also cached there so a re-login revokes the previous
// session, and a nil client degrades to token-only operation.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
	log    logging.Logger
}

func NewSessionManager(secret string, ttl time.Duration, rdb *redis.Client, log logging.Logger) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, rdb: rdb, log: log}
}

// Start opens a session for user acting as active. The role must be one the
// user actually holds; a user with a single role may pass it explicitly or
// let the empty value select it.
func (m *SessionManager) Start(ctx context.Context, user *model.User, active model.Role) (string, error) {
	roles := user.Roles()
	if active == "" && len(roles) == 1 {
		active = roles.Roles()[0]
	}
	if !roles.Has(active) {
		m.log.Warn(ctx, "session role not held by user", "user_id", user.ID, "role", string(active))
		return "", apperror.New(apperror.ErrForbidden, "user does not hold role "+string(active))
	}

	now := time.Now()
	claims := sessionClaims{
		Role:     string(active),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", err
	}

	if m.rdb != nil {
		key := sessionKey(user.ID)
		if err := m.rdb.Set(ctx, key, string(active), m.ttl).Err(); err != nil {
			m.log.Warn(ctx, "session cache write failed", "error", err)
		}
	}
	return token, nil
}

// Resolve verifies the token and returns the session it carries. With redis
// configured, the cached role must still match; a re-login overwrites it and
// invalidates older tokens.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperror.New(apperror.ErrForbidden, "invalid or expired session")
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok {
		return nil, apperror.New(apperror.ErrForbidden, "invalid session claims")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.New(apperror.ErrForbidden, "invalid session subject")
	}
	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return nil, apperror.New(apperror.ErrForbidden, "invalid session role")
	}

	if m.rdb != nil {
		cached, err := m.rdb.Get(ctx, sessionKey(userID)).Result()
		if err == nil && cached != string(role) {
			return nil, apperror.New(apperror.ErrForbidden, "session superseded by a newer login")
		}
	}

	return &Session{UserID: userID, Username: claims.Username, ActiveRole: role}, nil
}

// End drops the cached session, if any.
func (m *SessionManager) End(ctx context.Context, userID uuid.UUID) {
	if m.rdb != nil {
		if err := m.rdb.Del(ctx, sessionKey(userID)).Err(); err != nil {
			m.log.Warn(ctx, "session cache delete failed", "error", err)
		}
	}
}

func sessionKey(userID uuid.UUID) string {
	return "session:" + userID.String()
}
