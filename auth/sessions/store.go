package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-account-service/cache"
	"github.com/pkg/errors"
)

const (
	sessionKeyPrefix      = "session:"
	userSessionsKeyPrefix = "user-sessions:"
	blacklistKeyPrefix    = "blacklist:"
)

// ErrNotFound is returned by Get when no session record exists for an id.
// Natural TTL expiry and prior revocation are deliberately indistinguishable.
var ErrNotFound = errors.New("session not found")

// Store keeps session records, the per-user index, and the access-token
// blacklist in a shared TTL cache. Record TTLs are always written from the
// record's ExpiresAt, so cache eviction and logical expiry agree.
type Store struct {
	cache      cache.Store
	sessionTTL time.Duration
	nowFunc    func() time.Time
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// NewStore creates a session store. sessionTTL is the lifetime given to newly
// created sessions.
func NewStore(cacheStore cache.Store, sessionTTL time.Duration, options ...StoreOption) *Store {
	s := &Store{
		cache:      cacheStore,
		sessionTTL: sessionTTL,
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Create writes a new session record and appends its id to the user's session
// index, refreshing the index TTL to at least the new session's lifetime.
func (s *Store) Create(ctx context.Context, data Data) (string, error) {
	sessionID := uuid.New().String()
	now := s.nowFunc()

	session := Session{
		SessionID: sessionID,
		UserID:    data.UserID,
		Email:     data.Email,
		JTI:       data.JTI,
		IPAddress: data.IPAddress,
		UserAgent: data.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err := s.writeSession(ctx, &session, s.sessionTTL); err != nil {
		return "", errors.Wrap(err, "[Store.Create] writeSession")
	}
	if err := s.appendUserSession(ctx, data.UserID, sessionID, s.sessionTTL); err != nil {
		return "", errors.Wrap(err, "[Store.Create] appendUserSession")
	}
	return sessionID, nil
}

// Get returns the session for the id, or ErrNotFound. Absence is a normal,
// expected outcome.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := s.cache.Get(ctx, sessionKeyPrefix+sessionID)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Get] cache.Get")
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, errors.Wrap(err, "[Store.Get] unmarshal session record")
	}
	return &session, nil
}

// Invalidate removes the session record and prunes the id from the user's
// index, deleting the index when it becomes empty. Invalidating an absent
// session is a no-op.
func (s *Store) Invalidate(ctx context.Context, sessionID string) error {
	session, err := s.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[Store.Invalidate] Get")
	}

	if err := s.cache.Delete(ctx, sessionKeyPrefix+sessionID); err != nil {
		return errors.Wrap(err, "[Store.Invalidate] delete session record")
	}
	if err := s.removeUserSession(ctx, session.UserID, sessionID); err != nil {
		return errors.Wrap(err, "[Store.Invalidate] removeUserSession")
	}
	return nil
}

// InvalidateAllForUser deletes every session listed in the user's index, then
// the index itself. Used for "sign out everywhere" and forced account actions.
func (s *Store) InvalidateAllForUser(ctx context.Context, userID string) error {
	ids, err := s.userSessions(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "[Store.InvalidateAllForUser] userSessions")
	}

	for _, id := range ids {
		if err := s.cache.Delete(ctx, sessionKeyPrefix+id); err != nil {
			return errors.Wrap(err, "[Store.InvalidateAllForUser] delete session record")
		}
	}
	if err := s.cache.Delete(ctx, userSessionsKeyPrefix+userID); err != nil {
		return errors.Wrap(err, "[Store.InvalidateAllForUser] delete index")
	}
	return nil
}

// Extend is the rotation operation: it replaces the session's jti, client
// fingerprint and expiry, rewrites the record with a TTL recomputed from the
// new expiry, and refreshes the user-index TTL to match. Extending a session
// that no longer exists is a no-op — it was already invalidated.
func (s *Store) Extend(ctx context.Context, sessionID, jti, ipAddress, userAgent string, expiresAt time.Time) error {
	session, err := s.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[Store.Extend] Get")
	}

	ttl := s.remainingTTL(expiresAt)
	if ttl <= 0 {
		return errors.Errorf("[Store.Extend] new expiry %s is in the past", expiresAt)
	}

	session.JTI = jti
	session.IPAddress = ipAddress
	session.UserAgent = userAgent
	session.ExpiresAt = expiresAt

	if err := s.writeSession(ctx, session, ttl); err != nil {
		return errors.Wrap(err, "[Store.Extend] writeSession")
	}
	if err := s.refreshUserSessionsTTL(ctx, session.UserID, ttl); err != nil {
		return errors.Wrap(err, "[Store.Extend] refreshUserSessionsTTL")
	}
	return nil
}

// BlacklistToken writes a presence marker for an access token's jti with TTL
// equal to the token's remaining lifetime. A token that has already expired
// needs no marker — it is dead on its own.
func (s *Store) BlacklistToken(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := s.remainingTTL(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, blacklistKeyPrefix+jti, []byte("1"), ttl); err != nil {
		return errors.Wrap(err, "[Store.BlacklistToken] cache.Set")
	}
	return nil
}

// IsTokenBlacklisted reports whether an access token's jti has been revoked.
// A missing key means "not blacklisted", which also holds after natural
// expiry since the marker never outlives the token.
func (s *Store) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	_, err := s.cache.Get(ctx, blacklistKeyPrefix+jti)
	if errors.Is(err, cache.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "[Store.IsTokenBlacklisted] cache.Get")
	}
	return true, nil
}

func (s *Store) writeSession(ctx context.Context, session *Session, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "marshal session record")
	}
	return s.cache.Set(ctx, sessionKeyPrefix+session.SessionID, raw, ttl)
}

func (s *Store) userSessions(ctx context.Context, userID string) ([]string, error) {
	raw, err := s.cache.Get(ctx, userSessionsKeyPrefix+userID)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, errors.Wrap(err, "unmarshal session index")
	}
	return ids, nil
}

func (s *Store) writeUserSessions(ctx context.Context, userID string, ids []string, ttl time.Duration) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "marshal session index")
	}
	return s.cache.Set(ctx, userSessionsKeyPrefix+userID, raw, ttl)
}

func (s *Store) appendUserSession(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	ids, err := s.userSessions(ctx, userID)
	if err != nil {
		return err
	}
	return s.writeUserSessions(ctx, userID, append(ids, sessionID), ttl)
}

func (s *Store) removeUserSession(ctx context.Context, userID, sessionID string) error {
	ids, err := s.userSessions(ctx, userID)
	if err != nil {
		return err
	}

	remaining := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != sessionID {
			remaining = append(remaining, id)
		}
	}

	if len(remaining) == 0 {
		return s.cache.Delete(ctx, userSessionsKeyPrefix+userID)
	}
	return s.writeUserSessions(ctx, userID, remaining, s.sessionTTL)
}

func (s *Store) refreshUserSessionsTTL(ctx context.Context, userID string, ttl time.Duration) error {
	ids, err := s.userSessions(ctx, userID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return s.writeUserSessions(ctx, userID, ids, ttl)
}

func (s *Store) remainingTTL(expiresAt time.Time) time.Duration {
	return expiresAt.Sub(s.nowFunc())
}

// SessionTTL returns the lifetime given to newly created sessions.
func (s *Store) SessionTTL() time.Duration {
	return s.sessionTTL
}
